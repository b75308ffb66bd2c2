package objectstream

// Single-producer/single-consumer command queue connecting Writer (the
// producer: it encodes each record synchronously so handle/binding/intern
// table state stays consistent with the calling goroutine, then hands the
// encoded bytes off) to the persister's drain goroutine (the sole
// consumer, responsible only for getting bytes to the sink). Grounded on
// original_source/cpp/queueentry.h's tagged-uint64 word (bit 0 distinguishes
// an object pointer from a command+length word); see DESIGN.md's REDESIGN
// note for why this is a typed channel of already-encoded byte segments
// rather than a bit-packed pointer word.

import (
	"context"
	"errors"
	"time"
)

// command identifies a control word enqueued instead of an encoded record.
// Named after the original Cmd enum.
type command int

const (
	cmdMessageBoundary command = iota
	cmdFlush
	cmdShutdown
)

// entry is one SPSC queue slot: either an already-encoded record, or a
// control command.
type entry struct {
	isValue bool
	data    []byte
	cmd     command
}

// estimateSize gives a rough byte-size estimate for backpressure/queue
// capacity accounting, mirroring the original implementation's
// estimate_size() heuristic: cheap to compute, not exact.
func estimateSize(e entry) int {
	if !e.isValue {
		return 16
	}
	return len(e.data) + 8
}

// ErrQueueFull is returned by spscQueue.Push when the push deadline elapses
// before room becomes available.
var ErrQueueFull = errors.New("objectstream: queue full")

// spscQueue is a bounded FIFO of entry, implemented as a buffered channel:
// Go's channel already gives the SPSC queue's core guarantees (FIFO,
// blocking push, non-blocking drain-side receive) without needing the
// original's hand-rolled ring buffer and condition variable.
type spscQueue struct {
	ch chan entry
}

func newSPSCQueue(capacity int) *spscQueue {
	return &spscQueue{ch: make(chan entry, capacity)}
}

// Push enqueues e, blocking until room is available or deadline elapses. A
// zero deadline means block forever.
func (q *spscQueue) Push(e entry, deadline time.Duration) error {
	if deadline <= 0 {
		q.ch <- e
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), deadline)
	defer cancel()
	select {
	case q.ch <- e:
		return nil
	case <-ctx.Done():
		return ErrQueueFull
	}
}

// Pop blocks until an entry is available or ctx is done.
func (q *spscQueue) Pop(ctx context.Context) (entry, bool) {
	select {
	case e := <-q.ch:
		return e, true
	case <-ctx.Done():
		return entry{}, false
	}
}

// TryPop returns immediately if the queue is empty.
func (q *spscQueue) TryPop() (entry, bool) {
	select {
	case e := <-q.ch:
		return e, true
	default:
		return entry{}, false
	}
}

func (q *spscQueue) Len() int { return len(q.ch) }
