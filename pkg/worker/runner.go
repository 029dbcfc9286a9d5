// Package worker runs batches of independent jobs with bounded
// parallelism while keeping results in submission order.
package worker

import (
	"context"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

const (
	minHint = 2
	maxHint = 16
)

// Job is a unit of work. A job reports its own failures through its
// result value (a zero score, an empty fragment); it never aborts the
// batch.
type Job[T any] func(ctx context.Context) T

// HardwareHint returns the parallelism the machine comfortably supports.
// Tests may replace it. A value <= 0 means no hint is available.
var HardwareHint = func() int {
	return clamp(runtime.NumCPU(), minHint, maxHint)
}

// EffectiveLimit combines the caller's requested limit with the hardware
// hint and the batch size. A requested limit <= 0 defers to the hint.
func EffectiveLimit(requested, n int) int {
	limit := requested
	if hint := HardwareHint(); hint > 0 {
		if limit <= 0 || limit > hint {
			limit = hint
		}
	}
	if limit > n {
		limit = n
	}
	if limit < 1 {
		limit = 1
	}
	return limit
}

// Run executes jobs on at most limit concurrent workers. Each worker
// claims the next unclaimed index from a shared cursor, so the slot at
// index i always holds the result of jobs[i] regardless of completion
// order. Once ctx is done no further jobs are claimed and their slots keep
// the zero value.
func Run[T any](ctx context.Context, jobs []Job[T], limit int) []T {
	n := len(jobs)
	results := make([]T, n)
	if n == 0 {
		return results
	}

	workers := clamp(limit, 1, n)
	var cursor atomic.Int64
	var g errgroup.Group

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				if ctx.Err() != nil {
					return nil
				}
				i := int(cursor.Add(1)) - 1
				if i >= n {
					return nil
				}
				results[i] = jobs[i](ctx)
			}
		})
	}
	_ = g.Wait()

	return results
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
