package service

import (
	"context"
	"sync"
)

// Request kinds that preempt each other.
const (
	RequestAsk    = "ask"
	RequestExport = "export"
)

// RequestGuard keeps at most one live request per kind. Acquiring a kind
// cancels whatever request of that kind is still running.
type RequestGuard struct {
	mu     sync.Mutex
	seq    uint64
	active map[string]guardEntry
}

type guardEntry struct {
	seq    uint64
	cancel context.CancelFunc
}

func NewRequestGuard() *RequestGuard {
	return &RequestGuard{active: make(map[string]guardEntry)}
}

// Acquire derives a cancellable context from parent and registers it as
// the current request of kind. The returned release must be called when
// the request ends; it cancels the context and unregisters it unless a
// newer request has already taken its place.
func (g *RequestGuard) Acquire(parent context.Context, kind string) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	g.mu.Lock()
	if prev, ok := g.active[kind]; ok {
		prev.cancel()
	}
	g.seq++
	seq := g.seq
	g.active[kind] = guardEntry{seq: seq, cancel: cancel}
	g.mu.Unlock()

	release := func() {
		g.mu.Lock()
		if cur, ok := g.active[kind]; ok && cur.seq == seq {
			delete(g.active, kind)
		}
		g.mu.Unlock()
		cancel()
	}
	return ctx, release
}

// Cancel aborts the current request of kind. It reports whether one was
// running.
func (g *RequestGuard) Cancel(kind string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	cur, ok := g.active[kind]
	if !ok {
		return false
	}
	cur.cancel()
	delete(g.active, kind)
	return true
}
