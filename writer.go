package objectstream

// Writer is the record-side public API: it serializes heterogeneous values
// onto a sink, switching threads, assigning handles, interning strings and
// filenames, and tracking backpressure-dropped messages along the way.
// Grounded on original_source/src/writer.h's MessageStream and
// src/objectwriter.cpp's ObjectWriter/StreamHandle.

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// WriterOption configures optional Writer behavior.
type WriterOption func(*Writer)

// WithBackpressureTimeout bounds how long Write blocks when the queue is
// full before counting the message as dropped instead. A zero timeout (the
// default) blocks forever.
func WithBackpressureTimeout(d time.Duration) WriterOption {
	return func(w *Writer) { w.backpressureTimeout = d }
}

// WithMetrics attaches a Metrics instance; pass nil (the default) to skip
// instrumentation.
func WithMetrics(m *Metrics) WriterOption {
	return func(w *Writer) { w.metrics = m }
}

// WithLogger attaches a zap logger for the single-report IO error policy
// (spec section 7). The default is zap.NewNop().
func WithLogger(log *zap.Logger) WriterOption {
	return func(w *Writer) { w.log = log }
}

// WithQueueCapacity sets the SPSC queue's entry capacity (default 4096).
func WithQueueCapacity(n int) WriterOption {
	return func(w *Writer) { w.queueCapacity = n }
}

// WithBufferPoolCapacity sets how many 65536-byte buffer slots the
// persister may have in flight at once (default 4).
func WithBufferPoolCapacity(n int) WriterOption {
	return func(w *Writer) { w.poolCapacity = n }
}

// WithNormalizeFilename installs a hook applied to stack-frame filenames
// before they are interned, mirroring original_source's
// set_normalize_path.
func WithNormalizeFilename(f func(string) string) WriterOption {
	return func(w *Writer) { w.normalizeFilename = f }
}

// WithSyncMarkers stores the magic-marker debug-sync setting on the Writer.
// The Writer does not read the setting and writes no marker bytes, whether
// it is enabled or not.
func WithSyncMarkers(enabled bool) WriterOption {
	return func(w *Writer) { w.emitSyncMarkers = enabled }
}

// WithThreadIDAllocator supplies the factory used to allocate a handle for
// a host thread id the Writer has not seen before, so THREAD_SWITCH can
// reference it by handle.
func WithThreadIDAllocator(f func(threadID uint64) uint64) WriterOption {
	return func(w *Writer) { w.threadIDFactory = f }
}

// WithSerialize registers the fallback used to encode a Value outside the
// closed set encodeValue natively understands, as a PICKLED record (the
// host-supplied opaque blob escape hatch described in SPEC_FULL.md section
// 2). Without it, Write returns an error for such values instead.
func WithSerialize(f func(Value) ([]byte, error)) WriterOption {
	return func(w *Writer) { w.serialize = f }
}

// BindingToken is returned by Writer.Bind/ExtBind and identifies a binding
// slot; pass it as a Write argument to emit a reference to the bound value
// instead of re-encoding it.
type BindingToken struct {
	id  uint64
	ext bool
}

// HandleToken is returned by Writer.Handle. Calling Ref emits a HANDLE_REF
// for the underlying value as one message; Ref takes no further arguments
// to send along with it. Close emits HANDLE_DELETE, after which the token
// must not be used again.
type HandleToken struct {
	w  *Writer
	id uint64
}

// Writer serializes values onto an append-only sink.
type Writer struct {
	mu sync.Mutex

	persister *persister
	handles   *writerHandles
	bindings  *writerBindings
	intern    *writerIntern
	filenames *writerFilenames

	currentThread uint64
	haveThread    bool
	droppedCount  uint64

	backpressureTimeout time.Duration
	queueCapacity       int
	poolCapacity        int
	metrics             *Metrics
	log                 *zap.Logger
	normalizeFilename   func(string) string
	emitSyncMarkers     bool
	threadIDFactory     func(uint64) uint64
	serialize           func(Value) ([]byte, error)

	freeHooksMu sync.Mutex
	freeHooks   map[uint64]struct{}
}

// NewWriter opens path (creating it if absent) and returns a Writer that
// appends records to it.
func NewWriter(path string, opts ...WriterOption) (*Writer, error) {
	w := &Writer{
		handles:       newWriterHandles(),
		bindings:      newWriterBindings(),
		intern:        newWriterIntern(),
		filenames:     newWriterFilenames(),
		queueCapacity: 4096,
		poolCapacity:  4,
		log:           zap.NewNop(),
		freeHooks:     make(map[uint64]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	p, err := newPersister(path, w.queueCapacity, w.poolCapacity, w.log, w.metrics)
	if err != nil {
		return nil, err
	}
	w.persister = p
	return w, nil
}

// resolve substitutes a BindingToken/HandleToken Value passed by the caller
// with its wire representation; everything else passes through unchanged.
func (w *Writer) resolve(v Value) (Value, bool) {
	switch t := v.(type) {
	case *BindingToken:
		return t, true
	case *HandleToken:
		return HandleRef{Handle: t.id}, true
	}
	return nil, false
}

// encodeCtx builds the encodeCtx this Writer threads through encodeValue.
func (w *Writer) encodeCtx() encodeCtx {
	return encodeCtx{resolve: w.resolve, pickle: w.serialize}
}

// encodeRecord encodes v into a single byte buffer ready to enqueue; a
// top-level string goes through the intern table and is written as STR or
// STR_REF.
func (w *Writer) encodeRecord(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := w.encodeWithSideRecords(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (w *Writer) encodeWithSideRecords(buf *bytes.Buffer, v Value) error {
	switch t := v.(type) {
	case string:
		idx, isNew := w.intern.Intern(t)
		if isNew {
			return encodeSized(buf, Str, []byte(t))
		}
		return encodeExpectedIntSized(buf, StrRef, idx)
	}
	return encodeValue(buf, v, w.encodeCtx())
}

// Write encodes each value in turn, emitting a MESSAGE_BOUNDARY command
// after each one, matching spec section 4.3's per-top-level-argument
// boundary discipline. If any DROPPED messages have accumulated from a
// prior backpressure timeout, a DROPPED record is emitted first.
func (w *Writer) Write(values ...Value) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.flushDroppedLocked(); err != nil {
		return err
	}

	for _, v := range values {
		data, err := w.encodeRecord(v)
		if err != nil {
			return fmt.Errorf("objectstream: encode: %w", err)
		}
		if err := w.pushLocked(entry{isValue: true, data: data}); err != nil {
			w.droppedCount++
			continue
		}
		w.persister.Enqueue(entry{cmd: cmdMessageBoundary})
	}
	return nil
}

func (w *Writer) pushLocked(e entry) error {
	if err := w.persister.queue.Push(e, w.backpressureTimeout); err != nil {
		return err
	}
	return nil
}

func (w *Writer) flushDroppedLocked() error {
	if w.droppedCount == 0 {
		return nil
	}
	var buf bytes.Buffer
	buf.WriteByte(makeFixedControl(DroppedOp))
	if err := writeExpectedInt(&buf, w.droppedCount); err != nil {
		return err
	}
	if err := w.pushLocked(entry{isValue: true, data: buf.Bytes()}); err != nil {
		return err
	}
	if w.metrics != nil {
		w.metrics.Dropped.Add(float64(w.droppedCount))
	}
	w.droppedCount = 0
	return nil
}

// SwitchThread emits a THREAD_SWITCH record if threadID differs from the
// currently active thread, allocating a handle for threadID the first time
// it is seen.
func (w *Writer) SwitchThread(threadID uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.haveThread && w.currentThread == threadID {
		return nil
	}
	var handleID uint64
	if w.threadIDFactory != nil {
		handleID = w.threadIDFactory(threadID)
	} else {
		handleID = w.handles.Allocate()
	}
	var buf bytes.Buffer
	buf.WriteByte(makeFixedControl(ThreadSwitchOp))
	if err := writeExpectedInt(&buf, threadID); err != nil {
		return err
	}
	if err := writeExpectedInt(&buf, handleID); err != nil {
		return err
	}
	if err := w.pushLocked(entry{isValue: true, data: buf.Bytes()}); err != nil {
		return err
	}
	w.currentThread = threadID
	w.haveThread = true
	return nil
}

// Handle assigns value a fresh handle id, emits NEW_HANDLE, and returns a
// token the host can later Ref or Close.
func (w *Writer) Handle(value Value) (*HandleToken, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.handles.Allocate()
	var buf bytes.Buffer
	buf.WriteByte(makeFixedControl(NewHandle))
	if err := w.encodeWithSideRecords(&buf, value); err != nil {
		return nil, err
	}
	if err := w.pushLocked(entry{isValue: true, data: buf.Bytes()}); err != nil {
		return nil, err
	}
	return &HandleToken{w: w, id: id}, nil
}

// Ref emits a reference to the token's handle, matching how
// StreamHandle_vectorcall lets a handle be "called" with fresh arguments in
// the original implementation.
func (t *HandleToken) Ref() error {
	return t.w.Write(HandleRef{Handle: t.id})
}

// Close emits HANDLE_DELETE for this handle. The token must not be used
// again afterward.
func (t *HandleToken) Close() error {
	t.w.mu.Lock()
	defer t.w.mu.Unlock()
	delta, ok := t.w.handles.Delete(t.id)
	if !ok {
		return fmt.Errorf("objectstream: handle %d already deleted", t.id)
	}
	var buf bytes.Buffer
	buf.WriteByte(makeFixedControl(HandleDelete))
	if err := writeExpectedInt(&buf, delta); err != nil {
		return err
	}
	return t.w.pushLocked(entry{isValue: true, data: buf.Bytes()})
}

// Release is the idiomatic substitute for the original free-hook registry
// (DESIGN.md Open Question 10): the host calls it at the point it would
// have freed the underlying value, instead of the writer patching a
// deallocator it cannot observe in Go.
func (w *Writer) Release(t *HandleToken) error {
	return t.Close()
}

// Bind emits a BIND record and returns a token the reader resolves once
// the host supplies the out-of-band value via Reader.Bind.
func (w *Writer) Bind() (*BindingToken, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.bindings.Allocate()
	var buf bytes.Buffer
	buf.WriteByte(makeFixedControl(Bind))
	if err := writeExpectedInt(&buf, id); err != nil {
		return nil, err
	}
	if err := w.pushLocked(entry{isValue: true, data: buf.Bytes()}); err != nil {
		return nil, err
	}
	return &BindingToken{id: id}, nil
}

// ExtBind emits an EXT_BIND record naming typeName; the reader constructs
// the value itself via a registered zero-arg factory.
func (w *Writer) ExtBind(typeName string) (*BindingToken, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.bindings.Allocate()
	var buf bytes.Buffer
	buf.WriteByte(makeFixedControl(ExtBind))
	if err := writeExpectedInt(&buf, id); err != nil {
		return nil, err
	}
	if err := w.encodeWithSideRecords(&buf, typeName); err != nil {
		return nil, err
	}
	if err := w.pushLocked(entry{isValue: true, data: buf.Bytes()}); err != nil {
		return nil, err
	}
	return &BindingToken{id: id, ext: true}, nil
}

// DeleteBinding emits BINDING_DELETE for an absolute binding index.
func (w *Writer) DeleteBinding(t *BindingToken) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var buf bytes.Buffer
	buf.WriteByte(makeFixedControl(BindingDelete))
	if err := writeExpectedInt(&buf, t.id); err != nil {
		return err
	}
	return w.pushLocked(entry{isValue: true, data: buf.Bytes()})
}

// Stack emits a STACK record describing a drop count and frame list.
func (w *Writer) Stack(drop uint64, frames []Frame) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.normalizeFilename != nil {
		normalized := make([]Frame, len(frames))
		for i, f := range frames {
			normalized[i] = Frame{Filename: w.normalizeFilename(f.Filename), Line: f.Line}
		}
		frames = normalized
	}
	var buf bytes.Buffer
	buf.WriteByte(makeFixedControl(StackOp))
	err := writeStackDelta(&buf, drop, frames, w.filenames, func(idx uint16, name string) error {
		var fbuf bytes.Buffer
		fbuf.WriteByte(makeFixedControl(AddFilename))
		if err := writeUint16(&fbuf, idx); err != nil {
			return err
		}
		if err := w.encodeWithSideRecords(&fbuf, name); err != nil {
			return err
		}
		return w.pushLocked(entry{isValue: true, data: fbuf.Bytes()})
	})
	if err != nil {
		return err
	}
	return w.pushLocked(entry{isValue: true, data: buf.Bytes()})
}

// Flush enqueues a flush command and returns without waiting; the records
// enqueued before it reach the sink once the drain goroutine processes it.
func (w *Writer) Flush() {
	w.persister.Flush()
}

// Rotate redirects the sink to a new path, matching original_source's
// change_output.
func (w *Writer) Rotate(path string) {
	w.persister.Rotate(path)
}

// Close flushes and shuts down the persister goroutine.
func (w *Writer) Close() error {
	w.persister.Shutdown()
	return w.persister.LastError()
}

// QueueDepth reports how many encoded records are waiting to be drained,
// useful for a host that wants visibility beyond the Metrics gauge.
func (w *Writer) QueueDepth() int {
	return w.persister.queue.Len()
}
