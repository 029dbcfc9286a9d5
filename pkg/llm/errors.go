package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"canvas-rag-be/pkg/utils"
)

var (
	// ErrAborted matches every *AbortError, whatever its cause.
	ErrAborted = errors.New("request aborted")
	// ErrTimeout is the cause of an abort raised by the per-attempt timer.
	ErrTimeout = errors.New("attempt timed out")
	// ErrNoContent is returned when a successful response carries no
	// usable answer text. It is never retried.
	ErrNoContent = errors.New("no content returned")
)

// MaxErrorMessage caps the length of upstream error messages.
const MaxErrorMessage = 200

// APIError is a non-2xx response from the completion endpoint.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error (status %d, %s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
}

// Retryable reports whether the status is worth another attempt.
func (e *APIError) Retryable() bool {
	return e.Status == 408 || e.Status == 429 || e.Status >= 500
}

// AbortError ends a request early. Cause is context.Canceled (or the
// caller's deadline) for external cancellation, ErrTimeout when a single
// attempt ran out of time.
type AbortError struct {
	Cause error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("%s: %v", ErrAborted, e.Cause)
}

func (e *AbortError) Is(target error) bool { return target == ErrAborted }

func (e *AbortError) Unwrap() error { return e.Cause }

// IsCancelled reports whether err is an abort raised by the caller rather
// than by the attempt timer.
func IsCancelled(err error) bool {
	var abort *AbortError
	if !errors.As(err, &abort) {
		return false
	}
	return errors.Is(abort.Cause, context.Canceled) || errors.Is(abort.Cause, context.DeadlineExceeded)
}

var (
	skTokenPattern     = regexp.MustCompile(`sk-[A-Za-z0-9_\-]{4,}`)
	bearerTokenPattern = regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._~+/=\-]+`)
)

// SanitizeMessage makes an upstream message safe to log and show:
// whitespace collapsed, secrets redacted, length capped.
func SanitizeMessage(msg string, secrets ...string) string {
	msg = utils.CollapseWhitespace(msg)
	for _, s := range secrets {
		if s != "" {
			msg = strings.ReplaceAll(msg, s, "[redacted]")
		}
	}
	msg = bearerTokenPattern.ReplaceAllString(msg, "Bearer [redacted]")
	msg = skTokenPattern.ReplaceAllString(msg, "[redacted]")
	return utils.TruncateRunes(msg, MaxErrorMessage)
}
