package audit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"bazaar.dev/internal/obs"
)

// Sink persists audit entries.
type Sink interface {
	Append(ctx context.Context, e Entry) error
}

// Dispatcher hands entries to a Sink on a background worker. A full queue
// drops the entry instead of stalling the caller.
type Dispatcher struct {
	sink    Sink
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan Entry
	done   chan struct{}

	dropWarn rate.Sometimes
}

// NewDispatcher starts a worker draining into sink. size bounds the queue.
func NewDispatcher(sink Sink, size int) *Dispatcher {
	if size <= 0 {
		size = 1
	}
	d := &Dispatcher{
		sink:     sink,
		timeout:  5 * time.Second,
		queue:    make(chan Entry, size),
		done:     make(chan struct{}),
		dropWarn: rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
	go d.run()
	return d
}

// Enqueue queues an entry and reports whether it was accepted.
func (d *Dispatcher) Enqueue(e Entry) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.dropped(e, "closed")
		return false
	}
	select {
	case d.queue <- e:
		return true
	default:
		d.dropped(e, "queue full")
		return false
	}
}

// Close stops accepting entries and waits until queued ones are written or ctx ends.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for e := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := d.sink.Append(ctx, e); err != nil {
			obs.Warn("audit append failed", map[string]any{"id": e.ID, "event": string(e.Kind), "error": err.Error()})
		}
		cancel()
	}
}

func (d *Dispatcher) dropped(e Entry, reason string) {
	obs.AuditDropped()
	d.dropWarn.Do(func() {
		obs.Warn("audit entry dropped", map[string]any{"id": e.ID, "event": string(e.Kind), "reason": reason})
	})
}
