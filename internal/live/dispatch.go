// Package live connects market data feeds to the engine for real-time runs.
// Feeds publish ticks concurrently; a bounded queue serializes them so the
// engine still sees one tick at a time.
package live

import (
	"context"
	"sync"

	"consensus-trader/internal/errors"
	"consensus-trader/internal/metrics"
	"consensus-trader/internal/models"
)

// Dispatcher is a bounded, non-blocking tick queue.
type Dispatcher struct {
	ch     chan models.Tick
	mu     sync.RWMutex
	closed bool
}

// NewDispatcher allocates a dispatcher with the given capacity.
func NewDispatcher(capacity int) *Dispatcher {
	if capacity <= 0 {
		capacity = 1
	}
	return &Dispatcher{ch: make(chan models.Tick, capacity)}
}

// TryPublish enqueues a tick without blocking. A full queue drops the tick
// rather than stalling the feed. The lock is held around the send so a
// concurrent Close can never close the channel under an in-flight publish.
func (d *Dispatcher) TryPublish(tick models.Tick) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return errors.ErrQueueClosed
	}
	select {
	case d.ch <- tick:
		return nil
	default:
		metrics.TicksDropped.WithLabelValues(tick.Symbol).Inc()
		return errors.ErrQueueFull
	}
}

// Close stops the dispatcher from accepting new ticks. Ticks already queued
// are still delivered to Run.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true
	close(d.ch)
}

// Run consumes ticks until the context is done or the queue is closed and
// drained. The handler runs on a single goroutine, in publish order.
func (d *Dispatcher) Run(ctx context.Context, handler func(models.Tick)) {
	for {
		select {
		case <-ctx.Done():
			return
		case tick, ok := <-d.ch:
			if !ok {
				return
			}
			handler(tick)
		}
	}
}
