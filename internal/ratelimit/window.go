package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Window is a sliding-log limiter: each key keeps the timestamps of its
// accepted requests within the trailing window.
type Window struct {
	size time.Duration
	now  func() time.Time

	mu      sync.RWMutex
	buckets map[string]*bucket
}

// bucket holds one key's arrival-ordered timestamps. dead is set when Sweep
// unlinks the bucket so a writer holding a stale pointer retries the lookup.
type bucket struct {
	mu   sync.Mutex
	hits []time.Time
	dead bool
}

// Option configures a Window.
type Option func(*Window)

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(w *Window) {
		if fn != nil {
			w.now = fn
		}
	}
}

// NewWindow creates a limiter with the given window length.
func NewWindow(size time.Duration, opts ...Option) *Window {
	if size <= 0 {
		size = time.Minute
	}
	w := &Window{size: size, now: time.Now, buckets: make(map[string]*bucket)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Allow prunes expired timestamps for key, rejects when limit accepted
// requests remain in the window, and otherwise records now and accepts.
// The three steps are atomic per key.
func (w *Window) Allow(key string, limit int) bool {
	if limit <= 0 {
		return false
	}
	for {
		b := w.lookup(key)
		b.mu.Lock()
		if b.dead {
			b.mu.Unlock()
			continue
		}
		now := w.now()
		b.prune(now.Add(-w.size))
		if len(b.hits) >= limit {
			b.mu.Unlock()
			return false
		}
		b.hits = append(b.hits, now)
		b.mu.Unlock()
		return true
	}
}

func (w *Window) lookup(key string) *bucket {
	w.mu.RLock()
	b, ok := w.buckets[key]
	w.mu.RUnlock()
	if ok {
		return b
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if b, ok = w.buckets[key]; ok {
		return b
	}
	b = &bucket{}
	w.buckets[key] = b
	return b
}

// prune drops timestamps strictly older than cutoff. Caller holds b.mu.
func (b *bucket) prune(cutoff time.Time) {
	i := 0
	for i < len(b.hits) && b.hits[i].Before(cutoff) {
		i++
	}
	if i == 0 {
		return
	}
	n := copy(b.hits, b.hits[i:])
	b.hits = b.hits[:n]
}

// Sweep removes buckets whose window has emptied and returns how many were removed.
func (w *Window) Sweep() int {
	cutoff := w.now().Add(-w.size)
	removed := 0
	w.mu.Lock()
	defer w.mu.Unlock()
	for key, b := range w.buckets {
		b.mu.Lock()
		b.prune(cutoff)
		if len(b.hits) == 0 {
			b.dead = true
			delete(w.buckets, key)
			removed++
		}
		b.mu.Unlock()
	}
	return removed
}

// Len returns the number of live buckets.
func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.buckets)
}

// Run sweeps on every tick until ctx is done.
func (w *Window) Run(ctx context.Context, interval time.Duration, onSweep func(removed, live int)) {
	if interval <= 0 {
		interval = w.size
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := w.Sweep()
			if onSweep != nil {
				onSweep(removed, w.Len())
			}
		}
	}
}
