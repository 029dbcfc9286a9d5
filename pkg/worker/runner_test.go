package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRunPreservesSubmissionOrder(t *testing.T) {
	const n = 20
	jobs := make([]Job[int], n)
	for i := 0; i < n; i++ {
		jobs[i] = func(ctx context.Context) int {
			// Later jobs finish first.
			time.Sleep(time.Duration(n-i) * time.Millisecond)
			return i * 10
		}
	}

	got := Run(context.Background(), jobs, 4)

	assert.Len(t, got, n)
	for i, v := range got {
		assert.Equal(t, i*10, v)
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	tests := []struct {
		name  string
		jobs  int
		limit int
		want  int64
	}{
		{"limit below batch", 12, 3, 3},
		{"limit above batch", 2, 8, 2},
		{"zero limit runs one worker", 5, 0, 1},
		{"negative limit runs one worker", 5, -4, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var active, peak atomic.Int64
			jobs := make([]Job[bool], tt.jobs)
			for i := range jobs {
				jobs[i] = func(ctx context.Context) bool {
					cur := active.Add(1)
					for {
						old := peak.Load()
						if cur <= old || peak.CompareAndSwap(old, cur) {
							break
						}
					}
					time.Sleep(5 * time.Millisecond)
					active.Add(-1)
					return true
				}
			}

			got := Run(context.Background(), jobs, tt.limit)

			assert.LessOrEqual(t, peak.Load(), tt.want)
			for _, ok := range got {
				assert.True(t, ok)
			}
		})
	}
}

func TestRunEmpty(t *testing.T) {
	got := Run[string](context.Background(), nil, 4)
	assert.Empty(t, got)
}

func TestRunStopsClaimingAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var ran atomic.Int64

	jobs := make([]Job[int], 10)
	for i := range jobs {
		jobs[i] = func(ctx context.Context) int {
			if ran.Add(1) == 2 {
				cancel()
			}
			return 1
		}
	}

	got := Run(ctx, jobs, 1)

	assert.Equal(t, int64(2), ran.Load())
	assert.Equal(t, []int{1, 1, 0, 0, 0, 0, 0, 0, 0, 0}, got)
}

func TestEffectiveLimit(t *testing.T) {
	orig := HardwareHint
	t.Cleanup(func() { HardwareHint = orig })

	tests := []struct {
		name      string
		hint      int
		requested int
		n         int
		want      int
	}{
		{"requested under hint", 8, 4, 100, 4},
		{"requested capped by hint", 8, 32, 100, 8},
		{"no request uses hint", 6, 0, 100, 6},
		{"capped by batch size", 8, 4, 2, 2},
		{"no hint keeps request", 0, 24, 100, 24},
		{"no hint no request", 0, 0, 100, 1},
		{"empty batch", 8, 4, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			HardwareHint = func() int { return tt.hint }
			assert.Equal(t, tt.want, EffectiveLimit(tt.requested, tt.n))
		})
	}
}

func TestDefaultHardwareHintIsClamped(t *testing.T) {
	h := HardwareHint()
	assert.GreaterOrEqual(t, h, 2)
	assert.LessOrEqual(t, h, 16)
}
