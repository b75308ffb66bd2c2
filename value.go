// Package objectstream implements a bidirectional binary object-stream
// codec: a record side serializes heterogeneous values onto an append-only
// sink, and a replay side decodes the stream back into values, honoring
// handle identity, externally-bound values, interned strings and thread
// interleaving.
package objectstream

import (
	"fmt"
	"math/big"
)

// Value is the universal decoded type. Decoded values are always one of:
// nil, bool, int64, *big.Int, float64, Bytes, string, Tuple, List, Set,
// FrozenSet, Dict, or one of the protocol-visible records below
// (ThreadSwitch, StackDelta, Dropped, BindPending).
type Value = any

// None is reserved for callers that need to distinguish "no value" from Go's
// nil in a container; the wire format itself represents None as a
// fixed-size control byte and decodes to plain nil.
type None struct{}

// Bytes is an uninterpreted byte string, written with the BYTES sized type.
type Bytes []byte

// Tuple is a fixed-length heterogeneous sequence, written with the TUPLE
// sized type.
type Tuple []Value

// List is a variable-length heterogeneous sequence, written with the LIST
// sized type.
type List []Value

// Set is written with the SET sized type when a host passes one to the
// writer, and the reader decodes SET records into it (see DESIGN.md Open
// Question 3).
type Set []Value

// FrozenSet is written with the FROZENSET sized type and decoded from it,
// the same way as Set.
type FrozenSet []Value

// BigInt is an arbitrary-precision integer, written with the BIGINT sized
// type. A *big.Int is always written as BIGINT and decoded back as a
// *big.Int, even when its value fits in an int64.
type BigInt = *big.Int

// ThreadSwitch is yielded by Reader.Next when a THREAD_SWITCH record is
// decoded. ThreadID is the host's logical thread identifier; Handle is the
// handle id this stream now associates with that thread for the remainder
// of the active-thread run.
type ThreadSwitch struct {
	ThreadID uint64
	Handle   uint64
}

// Frame is one (filename, line) pair inside a StackDelta.
type Frame struct {
	Filename string
	Line     uint32
}

// StackDelta is yielded by Reader.Next when a STACK record is decoded. Drop
// is the number of frames the host should pop from whatever stack it is
// tracking before pushing Frames.
type StackDelta struct {
	Drop   uint64
	Frames []Frame
}

// Dropped is yielded by Reader.Next when a DROPPED record is decoded and the
// reader was constructed with a MakeDropped factory. Count is the number of
// messages the writer silently discarded due to backpressure.
type Dropped struct {
	Count uint64
}

// BindPending is the sentinel value returned for a BIND record whose
// external value has not yet been supplied via Reader.Bind. It is not a
// single shared instance: each one carries the binding Index to pass to
// Reader.Bind, and two BindPending values are == exactly when their Index
// fields are equal.
type BindPending struct {
	Index uint64
}

// ExtBindFactory constructs the zero-arg value for an EXT_BIND record of the
// given type name. It is supplied by the host at Reader construction time;
// an EXT_BIND record for a type with no registered factory is a protocol
// error.
type ExtBindFactory func(typeName string) (Value, error)

// HandleRef is what the writer emits for a stream-handle token invocation
// carrying no fresh payload: the argument that follows is a reference to an
// already-live handle, not a new value.
type HandleRef struct {
	Handle uint64
}

func (v None) String() string { return "None" }

func describe(x Value) string {
	return fmt.Sprintf("%T(%v)", x, x)
}
