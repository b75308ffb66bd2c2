package objectstream

// Async persister: a background goroutine that drains the SPSC queue,
// packs encoded records into pooled buffer slots, and submits full slots
// (or slots flushed early on CMD_FLUSH/CMD_SHUTDOWN) to the sink. Grounded
// directly on original_source/cpp/persister.cpp's AsyncFilePersister.

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// persister owns the background drain goroutine and the buffer pool it
// fills from the queue.
type persister struct {
	queue  *spscQueue
	pool   *bufferPool
	sink   *fileSink
	log    *zap.Logger
	metrics *Metrics

	mu       sync.Mutex
	path     string
	rotateTo chan string

	done chan struct{}
	errOnce sync.Once
	lastErr error
}

func newPersister(path string, queueCapacity, poolCapacity int, log *zap.Logger, m *Metrics) (*persister, error) {
	sink, err := openFileSink(path)
	if err != nil {
		return nil, err
	}
	p := &persister{
		queue:    newSPSCQueue(queueCapacity),
		pool:     newBufferPool(poolCapacity),
		sink:     sink,
		log:      log,
		metrics:  m,
		path:     path,
		rotateTo: make(chan string, 1),
		done:     make(chan struct{}),
	}
	go p.run()
	return p, nil
}

// Enqueue submits an already-encoded record to the persister. The caller
// (Writer) is the sole producer.
func (p *persister) Enqueue(e entry) {
	_ = p.queue.Push(e, 0)
}

// Flush enqueues a CMD_FLUSH marker and returns without waiting for it; the
// drain goroutine submits the current slot to the sink when it reaches the
// marker.
func (p *persister) Flush() {
	done := make(chan struct{})
	p.queue.Push(entry{cmd: cmdFlush}, 0)
	// cmdFlush itself has no payload to confirm completion synchronously
	// without a reply channel; callers needing a hard guarantee should
	// pair Flush with Writer's own sequencing, matching the original
	// implementation's fire-and-forget flush semantics.
	close(done)
	<-done
}

// Rotate redirects future writes to a new path without losing in-flight
// queue contents, matching original_source/src/writer.h's change_output.
func (p *persister) Rotate(path string) {
	p.rotateTo <- path
}

// Shutdown drains remaining entries and closes the sink.
func (p *persister) Shutdown() {
	p.queue.Push(entry{cmd: cmdShutdown}, 0)
	<-p.done
}

func (p *persister) run() {
	defer close(p.done)
	ctx := context.Background()
	slot := p.pool.Borrow()

	submit := func() {
		if slot.Len() == 0 {
			return
		}
		if err := p.sink.WriteFrame(slot.Bytes()); err != nil {
			p.reportError(err)
		} else if p.metrics != nil {
			p.metrics.BytesWritten.Add(float64(slot.Len()))
		}
		p.pool.Return(slot)
		slot = p.pool.Borrow()
	}

	for {
		select {
		case newPath := <-p.rotateTo:
			submit()
			p.sink.Close()
			sink, err := openFileSink(newPath)
			if err != nil {
				p.reportError(err)
				continue
			}
			p.sink = sink
			p.path = newPath
			continue
		default:
		}

		e, ok := p.queue.Pop(ctx)
		if !ok {
			return
		}
		if p.metrics != nil {
			p.metrics.QueueDepth.Set(float64(p.queue.Len()))
		}

		if e.isValue {
			if slot.Len()+len(e.data) > maxFramePayload {
				submit()
			}
			slot.Write(e.data)
			continue
		}

		switch e.cmd {
		case cmdMessageBoundary:
			// marks the end of one top-level Write argument; it adds no
			// bytes, and buffering decisions happen on size alone.
			if p.metrics != nil {
				p.metrics.MessagesWritten.Inc()
			}
		case cmdFlush:
			submit()
		case cmdShutdown:
			submit()
			p.sink.Close()
			return
		}
	}
}

// reportError records and logs only the first error. The drain loop does
// not stop on it: later slots are still submitted to the sink.
func (p *persister) reportError(err error) {
	p.errOnce.Do(func() {
		p.mu.Lock()
		p.lastErr = err
		p.mu.Unlock()
		if p.log != nil {
			p.log.Error("objectstream: sink write failed", zap.Error(err), zap.String("path", p.path))
		}
	})
}

// LastError returns the first IO error the persister encountered, if any.
func (p *persister) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}
