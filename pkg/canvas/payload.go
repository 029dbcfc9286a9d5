package canvas

import (
	"encoding/json"
	"strings"
)

var (
	textKeys  = []string{"text", "content", "value", "markdown"}
	fileKeys  = []string{"path", "file", "filePath", "src"}
	urlKeys   = []string{"url", "href", "link", "value"}
	labelKeys = []string{"label", "text", "value", "title"}
)

// maxPayloadDepth bounds how far nested records are followed.
const maxPayloadDepth = 3

// TextOf returns the inline text of a text node.
func TextOf(n Node) string { return normalizeRaw(n.Text, textKeys) }

// FileOf returns the referenced document path of a file node.
func FileOf(n Node) string { return normalizeRaw(n.File, fileKeys) }

// URLOf returns the target URL of a link node.
func URLOf(n Node) string { return normalizeRaw(n.URL, urlKeys) }

// LabelOf returns the display label of a node, if any.
func LabelOf(n Node) string { return normalizeRaw(n.Label, labelKeys) }

// normalizeRaw accepts either a bare JSON string or a record carrying the
// string under one of keys. Anything else degrades to "".
func normalizeRaw(raw json.RawMessage, keys []string) string {
	if len(raw) == 0 {
		return ""
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return strings.TrimSpace(normalizeValue(v, keys, 0))
}

func normalizeValue(v interface{}, keys []string, depth int) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]interface{}:
		if depth >= maxPayloadDepth {
			return ""
		}
		for _, k := range keys {
			inner, ok := t[k]
			if !ok {
				continue
			}
			if s := normalizeValue(inner, keys, depth+1); s != "" {
				return s
			}
		}
	}
	return ""
}

func rawString(s string) json.RawMessage {
	if s == "" {
		return nil
	}
	b, _ := json.Marshal(s)
	return b
}

// NewFileNode builds a file node referencing path.
func NewFileNode(id, path string, r Rect) Node {
	return Node{
		ID:     id,
		Type:   NodeFile,
		X:      r.X,
		Y:      r.Y,
		Width:  r.Width,
		Height: r.Height,
		File:   rawString(path),
	}
}

// NewTextNode builds a text node with inline content.
func NewTextNode(id, text string, r Rect) Node {
	return Node{
		ID:     id,
		Type:   NodeText,
		X:      r.X,
		Y:      r.Y,
		Width:  r.Width,
		Height: r.Height,
		Text:   rawString(text),
	}
}
