// Package openai is a resilient client for OpenAI-compatible
// chat/completions endpoints.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"canvas-rag-be/internal/pkg/logger"
	"canvas-rag-be/pkg/llm"
)

const (
	DefaultBaseURL        = "https://api.openai.com"
	DefaultAttemptTimeout = 30 * time.Second

	maxResponseBytes = 4 << 20
)

// Config holds the request defaults of a Client.
type Config struct {
	BaseURL        string
	APIKey         string
	Model          string
	Temperature    float64
	MaxTokens      int
	AttemptTimeout time.Duration
	Retry          llm.RetryPolicy
}

// Client sends chat requests with a per-attempt timeout and bounded
// retries. It is safe for concurrent use.
type Client struct {
	config   Config
	endpoint string
	http     *http.Client
	logger   logger.ILogger
	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time
}

// Ensure Client implements LLMProvider
var _ llm.LLMProvider = &Client{}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithSleeper replaces the backoff sleep. The function must return
// ctx.Err() when ctx ends first.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) ClientOption {
	return func(c *Client) { c.sleep = sleep }
}

// WithClock replaces the clock used to resolve Retry-After dates.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) { c.now = now }
}

// NewClient creates a client. logger may be nil.
func NewClient(config Config, logger logger.ILogger, opts ...ClientOption) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.AttemptTimeout <= 0 {
		config.AttemptTimeout = DefaultAttemptTimeout
	}
	if config.Retry.MaxAttempts <= 0 {
		config.Retry = llm.DefaultRetryPolicy()
	}

	c := &Client{
		config:   config,
		endpoint: Endpoint(config.BaseURL),
		http:     &http.Client{},
		logger:   logger,
		sleep:    sleepContext,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the chat/completions URL for base, which may or may
// not already end in /v1.
func Endpoint(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if strings.HasSuffix(base, "/v1") {
		return base + "/chat/completions"
	}
	return base + "/v1/chat/completions"
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Messages    []llm.Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Code    json.RawMessage `json:"code"`
		Type    string          `json:"type"`
		Message string          `json:"message"`
	} `json:"error"`
}

// permanentError marks failures that happen before anything is sent.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func (c *Client) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	opts := llm.Apply(llm.Options{
		Model:       c.config.Model,
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
	}, options...)

	payload, err := json.Marshal(chatRequest{
		Model:       opts.Model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Messages:    history,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	policy := c.config.Retry
	attempts := policy.Attempts()
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", c.aborted(err, attempt)
		}

		text, hint, err := c.do(ctx, payload)
		if err == nil {
			return text, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", c.aborted(ctxErr, attempt)
		}
		lastErr = err

		if !retryable(err) {
			c.log().Error("LLM", "Completion request failed", map[string]interface{}{
				"attempt": attempt,
				"error":   err.Error(),
			})
			return "", err
		}
		if attempt == attempts {
			break
		}

		delay := policy.Delay(attempt, hint)
		c.log().Warn("LLM", "Retrying completion request", map[string]interface{}{
			"attempt":  attempt,
			"delay_ms": delay.Milliseconds(),
			"error":    err.Error(),
		})
		if err := c.sleep(ctx, delay); err != nil {
			return "", c.aborted(err, attempt)
		}
	}

	c.log().Error("LLM", "Completion retries exhausted", map[string]interface{}{
		"attempts": attempts,
		"error":    lastErr.Error(),
	})
	return "", lastErr
}

func (c *Client) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	messages := []llm.Message{
		{Role: llm.RoleUser, Content: prompt},
	}
	return c.Chat(ctx, messages, options...)
}

// do runs one attempt. hint is the server's Retry-After, if any.
func (c *Client) do(ctx context.Context, payload []byte) (text string, hint time.Duration, err error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.config.AttemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", 0, &permanentError{fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", 0, c.transportError(attemptCtx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", 0, c.transportError(attemptCtx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		hint = llm.ParseRetryAfter(resp.Header.Get("Retry-After"), c.now())
		return "", hint, c.apiError(resp.StatusCode, body)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", 0, fmt.Errorf("%w: undecodable response body", llm.ErrNoContent)
	}
	if len(parsed.Choices) == 0 {
		return "", 0, llm.ErrNoContent
	}
	text = strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", 0, llm.ErrNoContent
	}
	return text, 0, nil
}

func (c *Client) transportError(attemptCtx context.Context, err error) error {
	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return &llm.AbortError{Cause: llm.ErrTimeout}
	}
	return fmt.Errorf("request failed: %s", llm.SanitizeMessage(err.Error(), c.config.APIKey))
}

func (c *Client) apiError(status int, body []byte) *llm.APIError {
	apiErr := &llm.APIError{Status: status}

	var parsed errorResponse
	if json.Unmarshal(body, &parsed) == nil {
		apiErr.Code = rawCode(parsed.Error.Code)
		if apiErr.Code == "" {
			apiErr.Code = parsed.Error.Type
		}
		apiErr.Message = parsed.Error.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = string(body)
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	apiErr.Message = llm.SanitizeMessage(apiErr.Message, c.config.APIKey)
	return apiErr
}

// rawCode accepts error codes sent as strings or numbers.
func rawCode(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}

func (c *Client) aborted(cause error, attempt int) error {
	c.log().Info("LLM", "Completion request aborted", map[string]interface{}{
		"attempt": attempt,
		"cause":   cause.Error(),
	})
	return &llm.AbortError{Cause: cause}
}

func (c *Client) log() logger.ILogger {
	if c.logger == nil {
		return logger.NewNop()
	}
	return c.logger
}

func retryable(err error) bool {
	var perm *permanentError
	if errors.As(err, &perm) {
		return false
	}
	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	if errors.Is(err, llm.ErrNoContent) {
		return false
	}
	if errors.Is(err, llm.ErrAborted) {
		return errors.Is(err, llm.ErrTimeout)
	}
	return true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
