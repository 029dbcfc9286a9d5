package vault

import (
	"bytes"
	"regexp"
	"strings"

	"canvas-rag-be/pkg/search"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

type frontMatter struct {
	Title   string      `yaml:"title"`
	Aliases interface{} `yaml:"aliases"`
	Alias   interface{} `yaml:"alias"`
	Tags    interface{} `yaml:"tags"`
	Tag     interface{} `yaml:"tag"`
}

var (
	inlineTagPattern = regexp.MustCompile(`(?:^|[\s(,;])#([\p{L}\p{N}_/\-]+)`)
	fenceLine        = regexp.MustCompile("^\\s*(```|~~~)")
	markdown         = goldmark.New()
)

// ParseMetadata extracts title, aliases and tags from YAML front matter,
// headings from the markdown body, and inline #tags.
func ParseMetadata(content []byte) search.Metadata {
	fm, body := splitFrontMatter(content)

	var meta search.Metadata
	if fm != nil {
		var parsed frontMatter
		if err := yaml.Unmarshal(fm, &parsed); err == nil {
			meta.Title = strings.TrimSpace(parsed.Title)
			meta.Aliases = appendUnique(nil, stringList(parsed.Aliases)...)
			meta.Aliases = appendUnique(meta.Aliases, stringList(parsed.Alias)...)
			meta.Tags = appendUnique(nil, tagList(parsed.Tags)...)
			meta.Tags = appendUnique(meta.Tags, tagList(parsed.Tag)...)
		}
	}

	meta.Headings = headings(body)
	meta.Tags = appendUnique(meta.Tags, inlineTags(body)...)
	return meta
}

// splitFrontMatter returns the YAML block (nil when absent) and the rest.
func splitFrontMatter(content []byte) ([]byte, []byte) {
	normalized := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(normalized, []byte("---\n")) {
		return nil, normalized
	}
	rest := normalized[4:]
	for offset := 0; offset <= len(rest); {
		end := bytes.IndexByte(rest[offset:], '\n')
		var line []byte
		if end < 0 {
			line = rest[offset:]
		} else {
			line = rest[offset : offset+end]
		}
		trimmed := bytes.TrimSpace(line)
		if bytes.Equal(trimmed, []byte("---")) || bytes.Equal(trimmed, []byte("...")) {
			if end < 0 {
				return rest[:offset], nil
			}
			return rest[:offset], rest[offset+end+1:]
		}
		if end < 0 {
			break
		}
		offset += end + 1
	}
	return nil, normalized
}

func headings(body []byte) []string {
	doc := markdown.Parser().Parse(text.NewReader(body))

	var out []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		if s := strings.TrimSpace(inlineText(h, body)); s != "" {
			out = append(out, s)
		}
		return ast.WalkSkipChildren, nil
	})
	return out
}

func inlineText(n ast.Node, source []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		default:
			b.WriteString(inlineText(c, source))
		}
	}
	return b.String()
}

func inlineTags(body []byte) []string {
	var out []string
	inFence := false
	for _, line := range strings.Split(string(body), "\n") {
		if fenceLine.MatchString(line) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		for _, m := range inlineTagPattern.FindAllStringSubmatch(line, -1) {
			if isNumeric(m[1]) {
				continue
			}
			out = append(out, m[1])
		}
	}
	return out
}

// stringList accepts comma separated YAML scalars and lists.
func stringList(v interface{}) []string {
	switch t := v.(type) {
	case string:
		fields := strings.FieldsFunc(t, func(r rune) bool { return r == ',' })
		out := make([]string, 0, len(fields))
		for _, f := range fields {
			if f = strings.TrimSpace(f); f != "" {
				out = append(out, f)
			}
		}
		return out
	case []interface{}:
		var out []string
		for _, item := range t {
			out = append(out, stringList(item)...)
		}
		return out
	default:
		return nil
	}
}

// tagList is stringList with tags also split on spaces and stripped of
// their leading '#'.
func tagList(v interface{}) []string {
	var out []string
	for _, item := range stringList(v) {
		for _, f := range strings.Fields(item) {
			if f = strings.TrimLeft(f, "#"); f != "" {
				out = append(out, f)
			}
		}
	}
	return out
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		dup := false
		for _, d := range dst {
			if strings.EqualFold(d, v) {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, v)
		}
	}
	return dst
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
