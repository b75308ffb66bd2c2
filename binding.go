package objectstream

// Binding table: a separate monotonic counter from the handle table, for
// values the host pre-registers out-of-band (BIND) or that are
// self-describing via a zero-arg constructor (EXT_BIND). Grounded on
// original_source/src/writer.h's binding map/counter and the BIND/EXT_BIND
// handling in cpp/reader.h.

import "sync"

type writerBindings struct {
	mu   sync.Mutex
	next uint64
}

func newWriterBindings() *writerBindings {
	return &writerBindings{}
}

func (b *writerBindings) Allocate() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	return id
}

// readerBindings mirrors the absolute-indexed binding slots on the replay
// side. A BIND slot starts in the "pending" state (no value supplied yet)
// and the reader returns a BindPending sentinel carrying that index until
// the host calls Reader.Bind.
type readerBindings struct {
	values  []Value
	pending []bool
	deleted []bool
}

func newReaderBindings() *readerBindings {
	return &readerBindings{}
}

// ReservePending allocates the next sequential binding index in the
// PENDING_BIND state.
func (b *readerBindings) ReservePending() uint64 {
	id := uint64(len(b.values))
	b.values = append(b.values, nil)
	b.pending = append(b.pending, true)
	b.deleted = append(b.deleted, false)
	return id
}

// ReserveExt allocates the next sequential binding index and immediately
// fills it with value (the EXT_BIND path: the value is constructed
// in-band from the wire, not supplied later by the host).
func (b *readerBindings) ReserveExt(value Value) uint64 {
	id := uint64(len(b.values))
	b.values = append(b.values, value)
	b.pending = append(b.pending, false)
	b.deleted = append(b.deleted, false)
	return id
}

// Supply fulfills a pending BIND slot.
func (b *readerBindings) Supply(id uint64, value Value) error {
	if id >= uint64(len(b.values)) || !b.pending[id] {
		return &Error{Kind: ProtocolError, Err: simpleError("bind() on a non-pending binding index")}
	}
	b.values[id] = value
	b.pending[id] = false
	return nil
}

// Get resolves a binding index, returning a BindPending for that index if
// the slot hasn't been supplied yet.
func (b *readerBindings) Get(id uint64) (Value, error) {
	if id >= uint64(len(b.values)) || b.deleted[id] {
		return nil, &Error{Kind: ResourceError, Err: simpleError("reference to deleted or unknown binding")}
	}
	if b.pending[id] {
		return BindPending{Index: id}, nil
	}
	return b.values[id], nil
}

// Delete removes an absolute-indexed binding (BINDING_DELETE records the
// absolute index directly, unlike HANDLE_DELETE's delta encoding).
func (b *readerBindings) Delete(id uint64) error {
	if id >= uint64(len(b.values)) || b.deleted[id] {
		return &Error{Kind: ResourceError, Err: simpleError("delete of unknown binding")}
	}
	b.deleted[id] = true
	b.values[id] = nil
	return nil
}
