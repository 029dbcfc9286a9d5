package canvas

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPayloadNormalization(t *testing.T) {
	tests := []struct {
		name string
		node Node
		get  func(Node) string
		want string
	}{
		{"text bare string", Node{Text: json.RawMessage(`"hello"`)}, TextOf, "hello"},
		{"text record content", Node{Text: json.RawMessage(`{"content":"hi there"}`)}, TextOf, "hi there"},
		{"text record markdown", Node{Text: json.RawMessage(`{"markdown":"# T"}`)}, TextOf, "# T"},
		{"text nested record", Node{Text: json.RawMessage(`{"value":{"text":"deep"}}`)}, TextOf, "deep"},
		{"text missing", Node{}, TextOf, ""},
		{"text number", Node{Text: json.RawMessage(`42`)}, TextOf, ""},
		{"text array", Node{Text: json.RawMessage(`["a"]`)}, TextOf, ""},
		{"text malformed", Node{Text: json.RawMessage(`{"text":`)}, TextOf, ""},
		{"text record without known key", Node{Text: json.RawMessage(`{"other":"x"}`)}, TextOf, ""},
		{"file bare", Node{File: json.RawMessage(`"notes/a.md"`)}, FileOf, "notes/a.md"},
		{"file record path", Node{File: json.RawMessage(`{"path":"notes/b.md"}`)}, FileOf, "notes/b.md"},
		{"file record filePath", Node{File: json.RawMessage(`{"filePath":"c.md"}`)}, FileOf, "c.md"},
		{"url bare", Node{URL: json.RawMessage(`"https://example.com"`)}, URLOf, "https://example.com"},
		{"url record href", Node{URL: json.RawMessage(`{"href":"https://go.dev"}`)}, URLOf, "https://go.dev"},
		{"label bare", Node{Label: json.RawMessage(`"Group A"`)}, LabelOf, "Group A"},
		{"label null", Node{Label: json.RawMessage(`null`)}, LabelOf, ""},
		{"whitespace trimmed", Node{Text: json.RawMessage(`"  padded \n"`)}, TextOf, "padded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.get(tt.node))
		})
	}
}

func TestNewNodeConstructors(t *testing.T) {
	r := Rect{X: 1, Y: 2, Width: 3, Height: 4}

	f := NewFileNode("f1", "answers/a.md", r)
	assert.Equal(t, NodeFile, f.Type)
	assert.Equal(t, "answers/a.md", FileOf(f))
	assert.Equal(t, r, f.Rect())

	txt := NewTextNode("t1", "body", r)
	assert.Equal(t, NodeText, txt.Type)
	assert.Equal(t, "body", TextOf(txt))
}
