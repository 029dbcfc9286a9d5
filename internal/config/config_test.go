package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("AI_ENABLED", "true")
	t.Setenv("LLM_MODEL", "local-model")
	t.Setenv("LLM_TEMPERATURE", "0.7")
	t.Setenv("LLM_ATTEMPT_TIMEOUT", "5s")
	t.Setenv("CONTEXT_HOP_LIMIT", "40")
	t.Setenv("CONTEXT_EXPORT_HOP_LIMIT", "-2")
	t.Setenv("SEARCH_TOP_K", "not-a-number")
	t.Setenv("VAULT_ANSWER_FOLDER", " /Answers/ ")

	cfg := Load()

	assert.True(t, cfg.Ai.Enabled)
	assert.Equal(t, "local-model", cfg.Ai.LLMModel)
	assert.Equal(t, 0.7, cfg.Ai.Temperature)
	assert.Equal(t, 5*time.Second, cfg.Ai.AttemptTimeout)
	assert.Equal(t, 12, cfg.Context.HopLimit)
	assert.Equal(t, 0, cfg.Context.ExportHopLimit)
	assert.Equal(t, 8, cfg.Search.DefaultTopK)
	assert.Equal(t, "Answers", cfg.Vault.AnswerFolder)
	assert.Equal(t, 5.0, cfg.Search.Weights.Title)
	assert.Equal(t, 20.0, cfg.Layout.Grid)
}

func TestMergeFileOverridesPresentKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "canvas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ai:
  model: from-file
  max_delay: 45s
search:
  weights:
    title: 9
  max_results: 50
layout:
  grid: 10
  node_width: 320
`), 0o644))

	t.Setenv("LLM_MODEL", "from-env")
	t.Setenv("CANVAS_CONFIG_FILE", path)

	cfg := Load()

	assert.Equal(t, "from-file", cfg.Ai.LLMModel)
	assert.Equal(t, 45*time.Second, cfg.Ai.MaxDelay)
	assert.Equal(t, 9.0, cfg.Search.Weights.Title)
	assert.Equal(t, 3.0, cfg.Search.Weights.Heading, "absent keys keep their defaults")
	assert.Equal(t, 12, cfg.Search.MaxResults)
	assert.Equal(t, 10.0, cfg.Layout.Grid)
	assert.Equal(t, 320.0, cfg.Layout.NodeWidth)
	assert.Equal(t, 60.0, cfg.Layout.VerticalSpacing)
}

func TestMergeFileErrors(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.MergeFile(filepath.Join(t.TempDir(), "missing.yaml")))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("ai: [unclosed"), 0o644))
	assert.Error(t, cfg.MergeFile(bad))
}

func TestNormalize(t *testing.T) {
	cfg := &Config{
		Ai:      AIConfig{Temperature: 3, MaxAttempts: 0},
		Search:  SearchConfig{DefaultTopK: 1, MaxResults: 99},
		Tracing: TracingConfig{SampleRatio: 4},
	}

	cfg.Normalize()

	assert.Equal(t, 2.0, cfg.Ai.Temperature)
	assert.Equal(t, 1, cfg.Ai.MaxAttempts)
	assert.Equal(t, 800, cfg.Ai.MaxTokens)
	assert.Equal(t, 30*time.Second, cfg.Ai.AttemptTimeout)
	assert.Equal(t, 3, cfg.Search.DefaultTopK)
	assert.Equal(t, 12, cfg.Search.MaxResults)
	assert.Equal(t, 4000, cfg.Context.CharBudget)
	assert.Equal(t, 1.0, cfg.Tracing.SampleRatio)
	assert.Equal(t, "localhost:4318", cfg.Tracing.Endpoint)
}

func TestDefaultHopLimits(t *testing.T) {
	cfg := Default()
	cfg.Normalize()

	assert.Equal(t, 3, cfg.Context.HopLimit)
	assert.Equal(t, 5, cfg.Context.ExportHopLimit)
	assert.Equal(t, 8, cfg.Search.DefaultTopK)

	t.Run("zero stays zero", func(t *testing.T) {
		cfg := Default()
		cfg.Context.HopLimit = 0
		cfg.Context.ExportHopLimit = 0
		cfg.Normalize()

		assert.Equal(t, 0, cfg.Context.HopLimit)
		assert.Equal(t, 0, cfg.Context.ExportHopLimit)
	})
}
