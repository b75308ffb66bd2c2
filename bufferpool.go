package objectstream

// Pooled 65536-byte buffer slots shared between the persister's drain
// goroutine (which fills slots with encoded records) and the sink writer
// (which consumes filled slots and returns them to the pool). Grounded on
// original_source/cpp/bufferslot.h's BufferSlot: a fixed-size region with an
// atomic in_use flag. The C++ version hands the slot around as a raw
// pointer guarded by a manually toggled flag; Go's GC makes that
// unnecessary, so the pool below is a buffered channel of *bufferSlot, the
// idiomatic Go object-pool shape (closer in spirit to sync.Pool, but
// bounded, since the whole point is to cap total memory committed to
// in-flight buffers).

import (
	"bytes"
	"sync/atomic"
)

// bufferSlotSize matches the original implementation's BUFFER_SLOT_SIZE.
const bufferSlotSize = 65536

// bufferSlot is one pooled encoding scratch buffer.
type bufferSlot struct {
	buf    bytes.Buffer
	inUse  atomic.Bool
	pid    uint32
	seq    uint64
}

func newBufferSlot() *bufferSlot {
	s := &bufferSlot{}
	s.buf.Grow(bufferSlotSize)
	return s
}

func (s *bufferSlot) WriteByte(b byte) error { return s.buf.WriteByte(b) }
func (s *bufferSlot) Write(p []byte) (int, error) { return s.buf.Write(p) }
func (s *bufferSlot) Len() int { return s.buf.Len() }
func (s *bufferSlot) Bytes() []byte { return s.buf.Bytes() }
func (s *bufferSlot) Reset() { s.buf.Reset() }

// bufferPool hands out bufferSlot instances up to a fixed capacity,
// blocking a borrower when every slot is currently in use by the sink.
type bufferPool struct {
	slots chan *bufferSlot
}

// newBufferPool preallocates capacity slots.
func newBufferPool(capacity int) *bufferPool {
	p := &bufferPool{slots: make(chan *bufferSlot, capacity)}
	for i := 0; i < capacity; i++ {
		p.slots <- newBufferSlot()
	}
	return p
}

// Borrow blocks until a slot is available.
func (p *bufferPool) Borrow() *bufferSlot {
	s := <-p.slots
	s.inUse.Store(true)
	return s
}

// Return resets and returns a slot to the pool.
func (p *bufferPool) Return(s *bufferSlot) {
	s.Reset()
	s.inUse.Store(false)
	p.slots <- s
}
