package vault

import (
	"testing"

	"canvas-rag-be/pkg/search"

	"github.com/stretchr/testify/assert"
)

func TestParseMetadata(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    search.Metadata
	}{
		{
			name: "front matter lists",
			content: "---\n" +
				"title: Rust Ownership\n" +
				"aliases:\n  - Borrowing\n  - Lifetimes\n" +
				"tags: [rust, \"#systems\"]\n" +
				"---\n" +
				"# Moves\n\nBody with #memory and #rust.\n\n## Copy *types*\n",
			want: search.Metadata{
				Title:    "Rust Ownership",
				Aliases:  []string{"Borrowing", "Lifetimes"},
				Tags:     []string{"rust", "systems", "memory"},
				Headings: []string{"Moves", "Copy types"},
			},
		},
		{
			name: "front matter scalars",
			content: "---\r\n" +
				"alias: Async, Futures\r\n" +
				"tags: go concurrency\r\n" +
				"---\r\n" +
				"Setext heading\r\n==============\r\n",
			want: search.Metadata{
				Aliases:  []string{"Async", "Futures"},
				Tags:     []string{"go", "concurrency"},
				Headings: []string{"Setext heading"},
			},
		},
		{
			name:    "no front matter",
			content: "Intro #idea/sub but not issue#12 or #123\n\n### Deep `code` heading\n",
			want: search.Metadata{
				Tags:     []string{"idea/sub"},
				Headings: []string{"Deep code heading"},
			},
		},
		{
			name:    "tags inside fences are ignored",
			content: "```sh\n# not a heading\necho #nope\n```\n#yes\n",
			want: search.Metadata{
				Tags: []string{"yes"},
			},
		},
		{
			name:    "unterminated front matter is body",
			content: "---\ntitle: x\n# Heading\n",
			want: search.Metadata{
				Headings: []string{"Heading"},
			},
		},
		{
			name:    "malformed yaml keeps the body signals",
			content: "---\ntitle: [unclosed\n---\n# Still here\n",
			want: search.Metadata{
				Headings: []string{"Still here"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseMetadata([]byte(tt.content))
			assert.Equal(t, tt.want.Title, got.Title)
			assert.ElementsMatch(t, tt.want.Aliases, got.Aliases)
			assert.Equal(t, tt.want.Tags, nilIfEmpty(got.Tags))
			assert.Equal(t, tt.want.Headings, nilIfEmpty(got.Headings))
		})
	}
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}
