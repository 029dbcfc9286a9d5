package canvas

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

type document struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Parse decodes a canvas document. Empty input and absent arrays yield an
// empty graph.
func Parse(data []byte) (*Graph, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return New(nil, nil), nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode canvas: %w", err)
	}

	var doc document
	if raw, ok := fields["nodes"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &doc.Nodes); err != nil {
			return nil, fmt.Errorf("decode canvas nodes: %w", err)
		}
	}
	if raw, ok := fields["edges"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &doc.Edges); err != nil {
			return nil, fmt.Errorf("decode canvas edges: %w", err)
		}
	}
	delete(fields, "nodes")
	delete(fields, "edges")

	g := New(doc.Nodes, doc.Edges)
	if len(fields) > 0 {
		g.extra = fields
	}
	return g, nil
}

// Marshal encodes the whole graph as a tab-indented canvas document.
func (g *Graph) Marshal() ([]byte, error) {
	nodes := g.nodes
	if nodes == nil {
		nodes = []Node{}
	}
	edges := g.edges
	if edges == nil {
		edges = []Edge{}
	}

	obj := newObjectWriter()
	if err := obj.field("nodes", nodes); err != nil {
		return nil, err
	}
	if err := obj.field("edges", edges); err != nil {
		return nil, err
	}
	obj.extras(g.extra)

	var out bytes.Buffer
	if err := json.Indent(&out, obj.bytes(), "", "\t"); err != nil {
		return nil, fmt.Errorf("indent canvas: %w", err)
	}
	return out.Bytes(), nil
}

var nodeKeys = map[string]bool{
	"id": true, "type": true, "x": true, "y": true, "width": true, "height": true,
	"text": true, "file": true, "url": true, "label": true,
}

// UnmarshalJSON decodes a node and keeps unknown keys for round-tripping.
// Malformed geometry degrades to zero rather than failing the document.
func (n *Node) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*n = Node{
		ID:     stringField(fields["id"]),
		Type:   NodeType(stringField(fields["type"])),
		X:      numberField(fields["x"]),
		Y:      numberField(fields["y"]),
		Width:  numberField(fields["width"]),
		Height: numberField(fields["height"]),
		Text:   rawField(fields["text"]),
		File:   rawField(fields["file"]),
		URL:    rawField(fields["url"]),
		Label:  rawField(fields["label"]),
	}
	for k, v := range fields {
		if nodeKeys[k] {
			continue
		}
		if n.extra == nil {
			n.extra = make(map[string]json.RawMessage)
		}
		n.extra[k] = v
	}
	return nil
}

// MarshalJSON writes known keys in canonical order followed by retained
// unknown keys.
func (n Node) MarshalJSON() ([]byte, error) {
	obj := newObjectWriter()
	_ = obj.field("id", n.ID)
	_ = obj.field("type", n.Type)
	_ = obj.field("x", n.X)
	_ = obj.field("y", n.Y)
	_ = obj.field("width", n.Width)
	_ = obj.field("height", n.Height)
	obj.raw("text", n.Text)
	obj.raw("file", n.File)
	obj.raw("url", n.URL)
	obj.raw("label", n.Label)
	obj.extras(n.extra)
	return obj.bytes(), nil
}

var edgeKeys = map[string]bool{
	"id": true, "fromNode": true, "toNode": true,
	"fromSide": true, "toSide": true, "label": true,
}

// UnmarshalJSON decodes an edge and keeps unknown keys for round-tripping.
func (e *Edge) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*e = Edge{
		ID:       stringField(fields["id"]),
		FromNode: stringField(fields["fromNode"]),
		ToNode:   stringField(fields["toNode"]),
		FromSide: Side(strings.ToLower(stringField(fields["fromSide"]))),
		ToSide:   Side(strings.ToLower(stringField(fields["toSide"]))),
		Label:    stringField(fields["label"]),
	}
	for k, v := range fields {
		if edgeKeys[k] {
			continue
		}
		if e.extra == nil {
			e.extra = make(map[string]json.RawMessage)
		}
		e.extra[k] = v
	}
	return nil
}

// MarshalJSON writes known keys in canonical order followed by retained
// unknown keys.
func (e Edge) MarshalJSON() ([]byte, error) {
	obj := newObjectWriter()
	_ = obj.field("id", e.ID)
	_ = obj.field("fromNode", e.FromNode)
	if e.FromSide != "" {
		_ = obj.field("fromSide", e.FromSide)
	}
	_ = obj.field("toNode", e.ToNode)
	if e.ToSide != "" {
		_ = obj.field("toSide", e.ToSide)
	}
	if e.Label != "" {
		_ = obj.field("label", e.Label)
	}
	obj.extras(e.extra)
	return obj.bytes(), nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func stringField(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

func numberField(raw json.RawMessage) float64 {
	var f float64
	if len(raw) == 0 || json.Unmarshal(raw, &f) != nil {
		return 0
	}
	return f
}

func rawField(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || isNull(raw) {
		return nil
	}
	return raw
}

// objectWriter emits a JSON object with a stable key order.
type objectWriter struct {
	buf   bytes.Buffer
	count int
}

func newObjectWriter() *objectWriter {
	w := &objectWriter{}
	w.buf.WriteByte('{')
	return w
}

func (w *objectWriter) key(k string) {
	if w.count > 0 {
		w.buf.WriteByte(',')
	}
	w.count++
	kb, _ := json.Marshal(k)
	w.buf.Write(kb)
	w.buf.WriteByte(':')
}

func (w *objectWriter) field(k string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", k, err)
	}
	w.key(k)
	w.buf.Write(b)
	return nil
}

func (w *objectWriter) raw(k string, v json.RawMessage) {
	if len(v) == 0 {
		return
	}
	w.key(k)
	w.buf.Write(v)
}

func (w *objectWriter) extras(m map[string]json.RawMessage) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		w.raw(k, m[k])
	}
}

func (w *objectWriter) bytes() []byte {
	out := append([]byte(nil), w.buf.Bytes()...)
	return append(out, '}')
}
