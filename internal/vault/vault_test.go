package vault

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"canvas-rag-be/pkg/canvas"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVault(t *testing.T, files map[string]string) *Vault {
	t.Helper()
	root := t.TempDir()
	for p, content := range files {
		full := filepath.Join(root, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	v, err := New(root, nil)
	require.NoError(t, err)
	return v
}

func TestListSkipsHiddenAndNonMarkdown(t *testing.T) {
	v := newTestVault(t, map[string]string{
		"b.md":                 "",
		"a/z.md":               "",
		"a/c.MD":               "",
		"board.canvas":         "{}",
		"image.png":            "",
		".obsidian/plugins.md": "",
		"notes/.trash/old.md":  "",
		"notes/deep/nested.md": "",
	})

	got, err := v.List(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"a/c.MD", "a/z.md", "b.md", "notes/deep/nested.md"}, got)
}

func TestReadWriteEnsureFolder(t *testing.T) {
	v := newTestVault(t, nil)
	ctx := context.Background()

	require.NoError(t, v.Write(ctx, "answers/q.md", "first"))
	require.NoError(t, v.Write(ctx, "answers/q.md", "second"))
	got, err := v.Read(ctx, "answers/q.md")
	require.NoError(t, err)
	assert.Equal(t, "second", got)
	assert.True(t, v.Exists("answers/q.md"))
	assert.False(t, v.Exists("answers"))

	require.NoError(t, v.EnsureFolder(ctx, "exports/2026"))
	info, err := os.Stat(filepath.Join(v.Root(), "exports", "2026"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = v.Read(ctx, "missing.md")
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	require.NoError(t, v.Remove(ctx, "answers/q.md"))
	assert.False(t, v.Exists("answers/q.md"))
	assert.NoError(t, v.Remove(ctx, "answers/q.md"), "removing twice is fine")
	assert.ErrorIs(t, v.Remove(ctx, ""), ErrInvalidPath)
}

func TestPathsStayInsideRoot(t *testing.T) {
	v := newTestVault(t, nil)
	ctx := context.Background()

	require.NoError(t, v.Write(ctx, "../../escape.md", "x"))
	_, err := os.Stat(filepath.Join(v.Root(), "escape.md"))
	assert.NoError(t, err, "parent segments are clamped at the root")

	assert.ErrorIs(t, v.Write(ctx, "", "x"), ErrInvalidPath)
	assert.ErrorIs(t, v.Write(ctx, "..", "x"), ErrInvalidPath)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "a/b.md", Normalize("a/./b.md"))
	assert.Equal(t, "a/b.md", Normalize(`a\b.md`))
	assert.Equal(t, "b.md", Normalize("/../b.md"))
}

func TestMetadataIsCachedPerModification(t *testing.T) {
	v := newTestVault(t, map[string]string{"n.md": "# First\n"})
	ctx := context.Background()
	full := filepath.Join(v.Root(), "n.md")

	meta, ok := v.Metadata(ctx, "n.md")
	require.True(t, ok)
	assert.Equal(t, []string{"First"}, meta.Headings)

	require.NoError(t, os.WriteFile(full, []byte("# Second\n"), 0o644))
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(full, later, later))

	meta, ok = v.Metadata(ctx, "n.md")
	require.True(t, ok)
	assert.Equal(t, []string{"Second"}, meta.Headings)

	_, ok = v.Metadata(ctx, "missing.md")
	assert.False(t, ok)
}

func TestCanvasRoundTrip(t *testing.T) {
	v := newTestVault(t, map[string]string{
		"board.canvas": `{"nodes":[{"id":"a","type":"text","text":"hi","x":0,"y":0,"width":10,"height":10,"color":"2"}],"edges":[]}`,
	})
	ctx := context.Background()

	g, err := v.ReadCanvas(ctx, "board.canvas")
	require.NoError(t, err)
	require.True(t, g.AppendNode(canvas.NewFileNode("b", "n.md", canvas.Rect{Y: 100, Width: 10, Height: 10})))
	require.NoError(t, v.WriteCanvas(ctx, "board.canvas", g))

	again, err := v.ReadCanvas(ctx, "board.canvas")
	require.NoError(t, err)
	require.Len(t, again.Nodes(), 2)
	assert.Equal(t, "n.md", canvas.FileOf(again.Nodes()[1]))

	raw, err := v.Read(ctx, "board.canvas")
	require.NoError(t, err)
	assert.Contains(t, raw, `"color": "2"`)

	_, err = v.ReadCanvas(ctx, "missing.canvas")
	assert.Error(t, err)
}

func TestNewRejectsFile(t *testing.T) {
	v := newTestVault(t, map[string]string{"f.md": ""})
	_, err := New(filepath.Join(v.Root(), "f.md"), nil)
	assert.Error(t, err)
}
