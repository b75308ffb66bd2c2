package objectstream

// Handle table bookkeeping, grounded on original_source/src/objectwriter.cpp
// (write-side: next_handle counter, write_delete's delta-from-end encoding)
// and cpp/reader.h's mirror read-side slot table.

import "sync"

// writerHandles assigns monotonically increasing handle ids to values the
// host asks to stream by reference, and tracks which ids are still live so
// HANDLE_DELETE can encode the delta-from-end form spec section 3
// describes: delta = nextHandle - id, encoded on the wire as delta-1.
type writerHandles struct {
	mu    sync.Mutex
	next  uint64
	alive map[uint64]bool
}

func newWriterHandles() *writerHandles {
	return &writerHandles{alive: make(map[uint64]bool)}
}

// Allocate reserves the next handle id and marks it live.
func (h *writerHandles) Allocate() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	h.alive[id] = true
	return id
}

// Delete marks id dead and returns the wire-encoded delete delta.
func (h *writerHandles) Delete(id uint64) (uint64, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.alive[id] {
		return 0, false
	}
	delete(h.alive, id)
	delta := h.next - id
	return delta - 1, true
}

// readerHandles mirrors the live-value side of the handle table. Slots
// become nil on delete; dereferencing a deleted or never-allocated handle
// is a ResourceError, and a delete delta beyond the table is a
// ProtocolError.
type readerHandles struct {
	slots []Value
	live  []bool
}

func newReaderHandles() *readerHandles {
	return &readerHandles{}
}

// Bind records value at the next sequential handle id (the id NEW_HANDLE
// implicitly assigns) and returns that id.
func (h *readerHandles) Bind(value Value) uint64 {
	id := uint64(len(h.slots))
	h.slots = append(h.slots, value)
	h.live = append(h.live, true)
	return id
}

// Delete decodes a wire delta (as produced by writerHandles.Delete) back
// into an absolute id and clears that slot.
func (h *readerHandles) Delete(encodedDelta uint64) (uint64, error) {
	nextHandle := uint64(len(h.slots))
	delta := encodedDelta + 1
	if delta > nextHandle {
		return 0, &Error{Kind: ProtocolError, Err: errHandleRange}
	}
	id := nextHandle - delta
	if id >= uint64(len(h.live)) || !h.live[id] {
		return 0, &Error{Kind: ResourceError, Err: errHandleDead}
	}
	h.live[id] = false
	h.slots[id] = nil
	return id, nil
}

// Get resolves a HANDLE_REF to its live value.
func (h *readerHandles) Get(id uint64) (Value, error) {
	if id >= uint64(len(h.live)) || !h.live[id] {
		return nil, &Error{Kind: ResourceError, Err: errHandleDead}
	}
	return h.slots[id], nil
}

var errHandleRange = simpleError("handle delete delta out of range")
var errHandleDead = simpleError("reference to deleted or unknown handle")

type simpleError string

func (e simpleError) Error() string { return string(e) }
