package factory

import (
	"fmt"
	"strings"

	"canvas-rag-be/internal/pkg/logger"
	"canvas-rag-be/pkg/llm"
	"canvas-rag-be/pkg/llm/openai"
)

// Default endpoints of the OpenAI-compatible backends we know about.
var defaultBaseURLs = map[string]string{
	"openai":      openai.DefaultBaseURL,
	"ollama":      "http://localhost:11434",
	"huggingface": "https://router.huggingface.co/v1",
}

// NewLLMProvider builds the completion client for providerType. Every
// supported backend speaks the chat/completions contract, so they differ
// only in their default base URL.
func NewLLMProvider(providerType string, config openai.Config, log logger.ILogger) (llm.LLMProvider, error) {
	providerType = strings.ToLower(strings.TrimSpace(providerType))
	if providerType == "" {
		providerType = "openai"
	}

	base, ok := defaultBaseURLs[providerType]
	if !ok {
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
	if config.BaseURL == "" {
		config.BaseURL = base
	}
	return openai.NewClient(config, log), nil
}
