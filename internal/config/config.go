package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"canvas-rag-be/pkg/layout"
	"canvas-rag-be/pkg/rag/upstream"
	"canvas-rag-be/pkg/search"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App     AppConfig     `yaml:"app"`
	Vault   VaultConfig   `yaml:"vault"`
	Ai      AIConfig      `yaml:"ai"`
	Search  SearchConfig  `yaml:"search"`
	Context ContextConfig `yaml:"context"`
	Layout  LayoutConfig  `yaml:"layout"`
	Tracing TracingConfig `yaml:"tracing"`
}

type AppConfig struct {
	Port               string `yaml:"port"`
	Environment        string `yaml:"environment"`
	LogFilePath        string `yaml:"log_file_path"`
	LogLevel           string `yaml:"log_level"`
	CorsAllowedOrigins string `yaml:"cors_allowed_origins"`
	NatsURL            string `yaml:"nats_url"`
	JWTSecret          string `yaml:"jwt_secret"`
}

type VaultConfig struct {
	Root         string `yaml:"root"`
	AnswerFolder string `yaml:"answer_folder"`
	ExportFolder string `yaml:"export_folder"`
}

type AIConfig struct {
	Enabled        bool          `yaml:"enabled"`
	LLMProvider    string        `yaml:"provider"` // "openai", "ollama", "huggingface"
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"`
	LLMModel       string        `yaml:"model"`
	Temperature    float64       `yaml:"temperature"`
	MaxTokens      int           `yaml:"max_tokens"`
	SystemPrompt   string        `yaml:"system_prompt"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
	MaxAttempts    int           `yaml:"max_attempts"`
	BaseDelay      time.Duration `yaml:"base_delay"`
	MaxDelay       time.Duration `yaml:"max_delay"`
	MinDelay       time.Duration `yaml:"min_delay"`
}

type SearchConfig struct {
	Weights       search.Weights `yaml:"weights"`
	ShortlistSize int            `yaml:"shortlist_size"`
	ContentBudget int            `yaml:"content_budget"`
	SnippetWidth  int            `yaml:"snippet_width"`
	DefaultTopK   int            `yaml:"default_top_k"`
	MaxResults    int            `yaml:"max_results"`
	Concurrency   int            `yaml:"concurrency"`
}

type ContextConfig struct {
	HopLimit       int `yaml:"hop_limit"`
	ExportHopLimit int `yaml:"export_hop_limit"`
	CharBudget     int `yaml:"char_budget"`
	Concurrency    int `yaml:"concurrency"`
}

type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

type LayoutConfig struct {
	layout.Options `yaml:",inline"`
	NodeWidth      float64 `yaml:"node_width"`
	NodeHeight     float64 `yaml:"node_height"`
}

const defaultSystemPrompt = "You answer questions using the context assembled from a canvas. " +
	"Prefer the context over prior knowledge and say so when the context is not enough."

// Default returns the configuration used when nothing is set in the
// environment. Load overlays environment variables on top of it.
func Default() *Config {
	defaultSearch := search.DefaultConfig()

	return &Config{
		App: AppConfig{
			Port:               "3000",
			Environment:        "development",
			LogFilePath:        "logs/app.log",
			LogLevel:           "debug",
			CorsAllowedOrigins: "http://localhost:5173",
		},
		Vault: VaultConfig{
			Root:         ".",
			AnswerFolder: "Canvas Answers",
			ExportFolder: "Canvas Exports",
		},
		Ai: AIConfig{
			LLMProvider:    "openai",
			LLMModel:       "gpt-4o-mini",
			Temperature:    0.2,
			MaxTokens:      800,
			SystemPrompt:   defaultSystemPrompt,
			AttemptTimeout: 30 * time.Second,
			MaxAttempts:    3,
			BaseDelay:      time.Second,
			MaxDelay:       20 * time.Second,
			MinDelay:       200 * time.Millisecond,
		},
		Search: SearchConfig{
			Weights:       defaultSearch.Weights,
			ShortlistSize: defaultSearch.ShortlistSize,
			ContentBudget: defaultSearch.ContentBudget,
			SnippetWidth:  defaultSearch.SnippetWidth,
			DefaultTopK:   8,
			MaxResults:    defaultSearch.MaxResults,
			Concurrency:   defaultSearch.Concurrency,
		},
		Context: ContextConfig{
			HopLimit:       3,
			ExportHopLimit: 5,
			CharBudget:     4000,
			Concurrency:    4,
		},
		Layout: LayoutConfig{
			Options:    layout.DefaultOptions(),
			NodeWidth:  layout.DefaultSize.Width,
			NodeHeight: layout.DefaultSize.Height,
		},
		Tracing: TracingConfig{
			Endpoint:    "localhost:4318",
			SampleRatio: 1,
		},
	}
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	d := Default()
	cfg := &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", d.App.Port),
			Environment:        getEnv("GO_ENV", d.App.Environment),
			LogFilePath:        getEnv("LOG_FILE_PATH", d.App.LogFilePath),
			LogLevel:           getEnv("LOG_LEVEL", d.App.LogLevel),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", d.App.CorsAllowedOrigins),
			NatsURL:            getEnv("NATS_URL", d.App.NatsURL),
			JWTSecret:          getEnv("JWT_SECRET", d.App.JWTSecret),
		},
		Vault: VaultConfig{
			Root:         getEnv("VAULT_ROOT", d.Vault.Root),
			AnswerFolder: getEnv("VAULT_ANSWER_FOLDER", d.Vault.AnswerFolder),
			ExportFolder: getEnv("VAULT_EXPORT_FOLDER", d.Vault.ExportFolder),
		},
		Ai: AIConfig{
			Enabled:        getEnvAsBool("AI_ENABLED", d.Ai.Enabled),
			LLMProvider:    getEnv("LLM_PROVIDER", d.Ai.LLMProvider),
			BaseURL:        getEnv("LLM_BASE_URL", d.Ai.BaseURL),
			APIKey:         getEnv("LLM_API_KEY", d.Ai.APIKey),
			LLMModel:       getEnv("LLM_MODEL", d.Ai.LLMModel),
			Temperature:    getEnvAsFloat("LLM_TEMPERATURE", d.Ai.Temperature),
			MaxTokens:      getEnvAsInt("LLM_MAX_TOKENS", d.Ai.MaxTokens),
			SystemPrompt:   getEnv("LLM_SYSTEM_PROMPT", d.Ai.SystemPrompt),
			AttemptTimeout: getEnvAsDuration("LLM_ATTEMPT_TIMEOUT", d.Ai.AttemptTimeout),
			MaxAttempts:    getEnvAsInt("LLM_MAX_ATTEMPTS", d.Ai.MaxAttempts),
			BaseDelay:      getEnvAsDuration("LLM_BASE_DELAY", d.Ai.BaseDelay),
			MaxDelay:       getEnvAsDuration("LLM_MAX_DELAY", d.Ai.MaxDelay),
			MinDelay:       getEnvAsDuration("LLM_MIN_DELAY", d.Ai.MinDelay),
		},
		Search: SearchConfig{
			Weights:       d.Search.Weights,
			ShortlistSize: getEnvAsInt("SEARCH_SHORTLIST_SIZE", d.Search.ShortlistSize),
			ContentBudget: getEnvAsInt("SEARCH_CONTENT_BUDGET", d.Search.ContentBudget),
			SnippetWidth:  getEnvAsInt("SEARCH_SNIPPET_WIDTH", d.Search.SnippetWidth),
			DefaultTopK:   getEnvAsInt("SEARCH_TOP_K", d.Search.DefaultTopK),
			MaxResults:    getEnvAsInt("SEARCH_MAX_RESULTS", d.Search.MaxResults),
			Concurrency:   getEnvAsInt("SEARCH_CONCURRENCY", d.Search.Concurrency),
		},
		Context: ContextConfig{
			HopLimit:       getEnvAsInt("CONTEXT_HOP_LIMIT", d.Context.HopLimit),
			ExportHopLimit: getEnvAsInt("CONTEXT_EXPORT_HOP_LIMIT", d.Context.ExportHopLimit),
			CharBudget:     getEnvAsInt("CONTEXT_CHAR_BUDGET", d.Context.CharBudget),
			Concurrency:    getEnvAsInt("CONTEXT_CONCURRENCY", d.Context.Concurrency),
		},
		Layout: LayoutConfig{
			Options:    d.Layout.Options,
			NodeWidth:  getEnvAsFloat("LAYOUT_NODE_WIDTH", d.Layout.NodeWidth),
			NodeHeight: getEnvAsFloat("LAYOUT_NODE_HEIGHT", d.Layout.NodeHeight),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", d.Tracing.Enabled),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", d.Tracing.Endpoint),
			SampleRatio: getEnvAsFloat("OTEL_SAMPLE_RATIO", d.Tracing.SampleRatio),
		},
	}

	if path := getEnv("CANVAS_CONFIG_FILE", ""); path != "" {
		if err := cfg.MergeFile(path); err != nil {
			log.Printf("[WARN] Ignoring config file %s: %v", path, err)
		}
	}

	cfg.Normalize()
	return cfg
}

// MergeFile overlays the keys present in a YAML file onto cfg.
func (c *Config) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// Normalize clamps every value into the range the services accept.
func (c *Config) Normalize() {
	c.Context.HopLimit = upstream.ClampHops(c.Context.HopLimit, upstream.MaxInteractiveHops)
	c.Context.ExportHopLimit = upstream.ClampHops(c.Context.ExportHopLimit, upstream.MaxExportHops)
	if c.Context.CharBudget <= 0 {
		c.Context.CharBudget = 4000
	}

	if c.Search.Weights == (search.Weights{}) {
		c.Search.Weights = search.DefaultWeights()
	}
	if c.Search.DefaultTopK <= 0 {
		c.Search.DefaultTopK = 8
	}
	if c.Search.MaxResults <= 0 {
		c.Search.MaxResults = search.DefaultConfig().MaxResults
	}
	c.Search.DefaultTopK = search.ResultLimit(c.Search.DefaultTopK, 0)
	c.Search.MaxResults = search.ResultLimit(c.Search.MaxResults, 0)
	if c.Search.ShortlistSize <= 0 {
		c.Search.ShortlistSize = search.DefaultConfig().ShortlistSize
	}

	if c.Ai.Temperature < 0 {
		c.Ai.Temperature = 0
	}
	if c.Ai.Temperature > 2 {
		c.Ai.Temperature = 2
	}
	if c.Ai.MaxTokens <= 0 {
		c.Ai.MaxTokens = 800
	}
	if c.Ai.MaxAttempts < 1 {
		c.Ai.MaxAttempts = 1
	}
	if c.Ai.MaxAttempts > 10 {
		c.Ai.MaxAttempts = 10
	}
	if c.Ai.AttemptTimeout <= 0 {
		c.Ai.AttemptTimeout = 30 * time.Second
	}
	if c.Ai.SystemPrompt == "" {
		c.Ai.SystemPrompt = defaultSystemPrompt
	}

	if c.Tracing.Endpoint == "" {
		c.Tracing.Endpoint = "localhost:4318"
	}
	if c.Tracing.SampleRatio <= 0 || c.Tracing.SampleRatio > 1 {
		c.Tracing.SampleRatio = 1
	}

	c.Vault.AnswerFolder = strings.Trim(strings.TrimSpace(c.Vault.AnswerFolder), "/")
	c.Vault.ExportFolder = strings.Trim(strings.TrimSpace(c.Vault.ExportFolder), "/")
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
