// Package queue implements the two bounded queues the routing engine
// is built on: a multi-producer single-consumer
// inbound queue shared by every link reader and the router, and a
// single-producer single-consumer outbound queue owned by one link's
// writer. Both refuse a push when full by returning false, leaving the
// caller to count the drop; neither ever blocks a push.
package queue

import (
	"sync"
	"sync/atomic"

	"mavrouter/internal/mavio"
)

// Item is one frame as it sits in the shared inbound queue: the frame
// itself plus which link produced it, since the router's forwarding
// decision needs to know the source link.
type Item struct {
	LinkID int
	Frame  mavio.Frame
}

// Inbound is the shared MPSC queue between every link reader and the
// router.
type Inbound struct {
	ch    chan Item
	depth atomic.Int64

	// mu serializes Push against Shutdown so a reader mid-push cannot
	// race the channel close.
	mu     sync.RWMutex
	closed bool
}

// NewInbound returns an Inbound queue with the given bounded capacity.
func NewInbound(capacity int) *Inbound {
	return &Inbound{ch: make(chan Item, capacity)}
}

// Push enqueues item without blocking. It returns false if the queue is
// full (the caller must count this as a drop) or already shut down.
func (q *Inbound) Push(item Item) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}
	select {
	case q.ch <- item:
		q.depth.Add(1)
		return true
	default:
		return false
	}
}

// Pop blocks for the next item. ok is false only once the queue has been
// shut down and fully drained; the router treats that as a permanent
// shutdown signal.
func (q *Inbound) Pop() (Item, bool) {
	item, ok := <-q.ch
	if ok {
		q.depth.Add(-1)
	}
	return item, ok
}

// Shutdown closes the queue. Safe to call more than once.
func (q *Inbound) Shutdown() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}

// Depth returns the current number of queued items, for externally
// readable queue-depth telemetry.
func (q *Inbound) Depth() int64 {
	return q.depth.Load()
}

// Outbound is the per-link SPSC queue between the router (producer) and
// that link's writer (consumer).
type Outbound struct {
	ch    chan mavio.Frame
	depth atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// NewOutbound returns an Outbound queue with the given bounded capacity.
func NewOutbound(capacity int) *Outbound {
	return &Outbound{ch: make(chan mavio.Frame, capacity)}
}

// Push enqueues fr without blocking. It returns false if the queue is full
// or shut down, in which case the caller must count a drop.
func (q *Outbound) Push(fr mavio.Frame) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}
	select {
	case q.ch <- fr:
		q.depth.Add(1)
		return true
	default:
		return false
	}
}

// Pop blocks for the next frame. ok is false once the queue has been shut
// down and drained.
func (q *Outbound) Pop() (mavio.Frame, bool) {
	fr, ok := <-q.ch
	if ok {
		q.depth.Add(-1)
	}
	return fr, ok
}

// Shutdown closes the queue. Safe to call more than once.
func (q *Outbound) Shutdown() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}

// Depth returns the current number of queued frames.
func (q *Outbound) Depth() int64 {
	return q.depth.Load()
}

// TryPop returns the next queued frame without blocking, reporting
// false if nothing is queued right now. Used by tests, through
// link.Base.PopOutboundForTest.
func (q *Outbound) TryPop() (mavio.Frame, bool) {
	select {
	case fr, ok := <-q.ch:
		if ok {
			q.depth.Add(-1)
		}
		return fr, ok
	default:
		return mavio.Frame{}, false
	}
}
