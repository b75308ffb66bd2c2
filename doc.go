// objectstream records and replays streams of heterogeneous Go values.
//
// A Writer serializes values passed to Write onto an append-only sink,
// assigning handles to values the host asks to stream by reference,
// interning repeated strings, and tracking which host thread recorded each
// value. A Reader decodes that stream back into values one at a time via
// Next, resolving handle and binding references and reconstructing the
// same interning table the writer built.
//
// # Wire format
//
// Every record starts with a one-byte control byte. Its low nibble
// normally selects a SizedType (BYTES, STR, TUPLE, DICT, ...) and its high
// nibble gives the payload's length, either inline (0-11) or as an
// out-of-line 1/2/8-byte integer that follows. When the low nibble equals
// the fixed-size sentinel, the high nibble instead selects a
// FixedSizeType (NONE, NEW_HANDLE, THREAD_SWITCH, ...), a family of
// records with a statically known shape and no inline payload length.
//
// # Concurrency
//
// Write is safe to call from multiple goroutines; each call holds the
// Writer's internal mutex only long enough to encode and enqueue its
// arguments. The actual I/O happens on a single background goroutine owned
// by the persister, draining a bounded queue so a slow sink applies
// backpressure to callers instead of growing memory without bound.
package objectstream
