package bootstrap

import (
	"testing"

	"canvas-rag-be/internal/config"
	"canvas-rag-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContainer(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *config.Config)
		wantErr bool
	}{
		{name: "ai disabled", mutate: func(cfg *config.Config) {}},
		{name: "ai enabled", mutate: func(cfg *config.Config) {
			cfg.Ai.Enabled = true
			cfg.Ai.LLMProvider = "ollama"
		}},
		{name: "unknown provider", mutate: func(cfg *config.Config) {
			cfg.Ai.Enabled = true
			cfg.Ai.LLMProvider = "carrier-pigeon"
		}, wantErr: true},
		{name: "missing vault", mutate: func(cfg *config.Config) {
			cfg.Vault.Root = "/definitely/not/here"
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Vault.Root = t.TempDir()
			cfg.Normalize()
			tt.mutate(cfg)

			c, err := newContainer(cfg, logger.NewNop())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer c.Close()

			assert.NotNil(t, c.CanvasController)
			assert.NotNil(t, c.CanvasService)
			assert.NotNil(t, c.EventRelayService)
		})
	}
}
