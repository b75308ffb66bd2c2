package objectstream

// Thread demultiplexer: pulls decoded values off a single Reader and routes
// them to per-thread-key waiters, so a host running one goroutine per
// recorded thread can each call NextFor(key) and only ever see the values
// that were recorded on that thread, in the order they were recorded.
// Grounded on original_source/src/demux.cpp's Demux (single-slot cache,
// per-key pending-waiter map, condition-variable wait with timeout,
// on_timeout callback), translated to Go's sync.Cond + per-key queue idiom.
//
// Ordering guarantee: FIFO per key only. There is no guarantee about the
// relative order two different keys' values were recorded in.

import (
	"sync"
	"time"
)

// ErrDemuxTimeout is returned by NextFor when no value for key arrives
// before the deadline.
type ErrDemuxTimeout struct {
	Key uint64
}

func (e *ErrDemuxTimeout) Error() string {
	return "objectstream: demux wait for thread timed out"
}

// OnTimeoutFunc is invoked (outside the demux's lock) whenever a NextFor
// call times out, so a host can log or account for stalled threads.
type OnTimeoutFunc func(key uint64, pendingWaiters int)

// Demux fans a single decoded Reader stream out to per-thread-key readers.
type Demux struct {
	mu        sync.Mutex
	cond      *sync.Cond
	queues    map[uint64][]Value
	waiting   map[uint64]int
	closed    bool
	pullErr   error
	onTimeout OnTimeoutFunc
}

// NewDemux starts a background goroutine pulling values from r and routes
// each to the thread key implied by the most recent ThreadSwitch record.
// values recorded before any ThreadSwitch are routed to key 0.
func NewDemux(r *Reader, onTimeout OnTimeoutFunc) *Demux {
	d := &Demux{
		queues:    make(map[uint64][]Value),
		waiting:   make(map[uint64]int),
		onTimeout: onTimeout,
	}
	d.cond = sync.NewCond(&d.mu)
	go d.pull(r)
	return d
}

func (d *Demux) pull(r *Reader) {
	var currentKey uint64
	for {
		v, err := r.Next()
		if err != nil {
			d.mu.Lock()
			d.closed = true
			d.pullErr = err
			d.cond.Broadcast()
			d.mu.Unlock()
			return
		}
		if ts, ok := v.(ThreadSwitch); ok {
			currentKey = ts.ThreadID
			continue
		}
		d.mu.Lock()
		d.queues[currentKey] = append(d.queues[currentKey], v)
		d.cond.Broadcast()
		d.mu.Unlock()
	}
}

// NextFor blocks until a value routed to key is available, the stream
// ends, or timeout elapses (a zero timeout blocks forever).
func (d *Demux) NextFor(key uint64, timeout time.Duration) (Value, error) {
	d.mu.Lock()
	d.waiting[key]++
	defer func() {
		d.mu.Lock()
		d.waiting[key]--
		d.mu.Unlock()
	}()

	var timer *time.Timer
	var timedOut bool
	if timeout > 0 {
		timer = time.AfterFunc(timeout, func() {
			d.mu.Lock()
			timedOut = true
			d.cond.Broadcast()
			d.mu.Unlock()
		})
	}

	for len(d.queues[key]) == 0 && !d.closed && !timedOut {
		d.cond.Wait()
	}
	if timer != nil {
		timer.Stop()
	}

	if len(d.queues[key]) > 0 {
		v := d.queues[key][0]
		d.queues[key] = d.queues[key][1:]
		d.mu.Unlock()
		return v, nil
	}

	pending := d.waiting[key]
	err := d.pullErr
	closed := d.closed
	d.mu.Unlock()

	if timedOut && !closed {
		if d.onTimeout != nil {
			d.onTimeout(key, pending)
		}
		return nil, &ErrDemuxTimeout{Key: key}
	}
	return nil, err
}
