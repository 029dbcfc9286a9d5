package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"canvas-rag-be/internal/config"
	"canvas-rag-be/internal/dto"
	"canvas-rag-be/internal/pkg/logger"
	"canvas-rag-be/internal/service"
	"canvas-rag-be/internal/vault"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const board = `{
	"nodes": [
		{"id":"top","type":"text","text":"Ownership rules","x":0,"y":-300,"width":400,"height":200},
		{"id":"q","type":"text","text":"rust borrowing","x":0,"y":0,"width":400,"height":200}
	],
	"edges": [
		{"id":"e1","fromNode":"top","fromSide":"bottom","toNode":"q","toSide":"top"}
	]
}`

func newTestApp(t *testing.T) (*app, *bytes.Buffer, string) {
	t.Helper()
	color.NoColor = true

	root := t.TempDir()
	files := map[string]string{
		"board.canvas":       board,
		"notes/borrow.md":    "# Rust Borrowing\n\nShared and mutable borrows.",
		"notes/unrelated.md": "# Gardening\n",
	}
	for p, content := range files {
		full := filepath.Join(root, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}

	cfg := config.Default()
	cfg.Vault.Root = root
	cfg.Vault.ExportFolder = "Exports"
	cfg.Normalize()

	out := &bytes.Buffer{}
	a := newApp(out)
	a.cfg = cfg
	closed := false
	a.open = func(ctx context.Context, cfg *config.Config) (service.ICanvasService, func(), error) {
		v, err := vault.New(cfg.Vault.Root, nil)
		if err != nil {
			return nil, nil, err
		}
		svc := service.NewCanvasService(v, nil, nil, service.NewRequestGuard(), cfg, logger.NewNop())
		return svc, func() { closed = true }, nil
	}
	t.Cleanup(func() { assert.True(t, closed || a.svc == nil, "service is closed after the command") })
	return a, out, root
}

func run(t *testing.T, a *app, args ...string) error {
	t.Helper()
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetOut(a.out)
	cmd.SetErr(a.out)
	return cmd.ExecuteContext(context.Background())
}

func TestContextCommand(t *testing.T) {
	a, out, _ := newTestApp(t)

	require.NoError(t, run(t, a, "context", "board.canvas", "q"))

	assert.Equal(t, "Context\nOwnership rules\n\nrust borrowing\n\nSources\n- Text node top\n- Text node q\n", out.String())
}

func TestContextCommandHopsFlag(t *testing.T) {
	a, out, _ := newTestApp(t)

	require.NoError(t, run(t, a, "--json", "context", "board.canvas", "q", "--hops", "0"))

	var res dto.ContextBundle
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, "rust borrowing", res.Text)
}

func TestRelatedCommandJSON(t *testing.T) {
	a, out, _ := newTestApp(t)

	require.NoError(t, run(t, a, "--json", "related", "board.canvas", "q"))

	var items []dto.RankedItem
	require.NoError(t, json.Unmarshal(out.Bytes(), &items))
	require.NotEmpty(t, items)
	assert.Equal(t, "notes/borrow.md", items[0].Path)
	for _, it := range items {
		assert.NotEqual(t, "notes/unrelated.md", it.Path)
	}
}

func TestPlaceCommand(t *testing.T) {
	a, out, root := newTestApp(t)

	require.NoError(t, run(t, a, "place", "board.canvas", "q", "notes/borrow.md", "--label", "see"))

	assert.Contains(t, out.String(), "Placed notes/borrow.md as node ")
	assert.Contains(t, out.String(), "at (0, 260)")

	raw, err := os.ReadFile(filepath.Join(root, "board.canvas"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"label": "see"`)
}

func TestAskCommandDisabled(t *testing.T) {
	a, out, _ := newTestApp(t)

	err := run(t, a, "ask", "board.canvas", "q", "what", "is", "borrowing?")

	assert.ErrorIs(t, err, service.ErrDisabled)
	assert.Equal(t, "Error: ai is disabled\n", out.String())
}

func TestExportCommand(t *testing.T) {
	a, out, root := newTestApp(t)

	require.NoError(t, run(t, a, "export", "board.canvas", "q", "--out", "ctx/q"))

	assert.Equal(t, "Exported 2 nodes (31 chars) to ctx/q.md\n", out.String())
	_, err := os.Stat(filepath.Join(root, "ctx", "q.md"))
	assert.NoError(t, err)
}

func TestArgumentErrors(t *testing.T) {
	a, _, _ := newTestApp(t)

	assert.Error(t, run(t, a, "context", "board.canvas"))
	assert.Error(t, run(t, a, "place", "board.canvas", "q"))
}

func TestWatchNeedsURL(t *testing.T) {
	a, out, _ := newTestApp(t)

	err := run(t, a, "watch")

	assert.Error(t, err)
	assert.Contains(t, out.String(), "no NATS url")
}
