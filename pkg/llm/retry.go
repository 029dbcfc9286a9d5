package llm

import (
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RetryPolicy decides how many attempts a request gets and how long to
// wait between them.
type RetryPolicy struct {
	// MaxAttempts includes the first attempt.
	MaxAttempts int
	// BaseDelay is the wait before the second attempt, doubled per retry.
	BaseDelay time.Duration
	// MaxDelay caps the computed backoff. A Retry-After hint is not capped.
	MaxDelay time.Duration
	// MinDelay floors every wait, hinted or not.
	MinDelay time.Duration
	// Jitter is the relative spread applied to every wait (0.2 = ±20%).
	Jitter float64
	// Rand returns a value in [0, 1). Nil uses math/rand.
	Rand func() float64
}

// DefaultRetryPolicy returns sensible defaults for retry behavior.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
		MaxDelay:    20 * time.Second,
		MinDelay:    200 * time.Millisecond,
		Jitter:      0.2,
	}
}

// Attempts returns MaxAttempts, at least 1.
func (p RetryPolicy) Attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Delay returns the wait after the given failed attempt (1-based). A
// positive hint, usually from Retry-After, replaces exponential backoff.
func (p RetryPolicy) Delay(attempt int, hint time.Duration) time.Duration {
	hinted := hint > 0
	d := hint
	if !hinted {
		d = p.backoff(attempt)
	}

	if p.Jitter > 0 {
		r := rand.Float64
		if p.Rand != nil {
			r = p.Rand
		}
		d = time.Duration(float64(d) * (1 + (r()*2-1)*p.Jitter))
	}
	if !hinted && p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if d < p.MinDelay {
		d = p.MinDelay
	}
	return d
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(p.BaseDelay) * math.Pow(2, float64(attempt-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// ParseRetryAfter reads a Retry-After header value given as delta seconds
// or an HTTP date. Missing, malformed, negative and already expired values
// yield 0.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	at, err := http.ParseTime(value)
	if err != nil {
		return 0
	}
	if d := at.Sub(now); d > 0 {
		return d
	}
	return 0
}
