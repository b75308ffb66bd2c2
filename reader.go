package objectstream

// Reader is the replay-side public API: a single-pass decode loop that
// dispatches on each record's control byte, maintaining the handle,
// binding, interned-string and filename tables in lockstep with the
// writer. Grounded on ogorek.go's Decoder.Decode dispatch loop and
// original_source/cpp/reader.h's mirror PrimitiveStream reader.

import (
	"bufio"
	"fmt"
	"io"
)

// MakeDropped, if supplied, turns a DROPPED record into a visible Dropped
// value; otherwise DROPPED records are swallowed (the decode loop recurses
// past them) per DESIGN.md Open Question 5.
type MakeDropped func(count uint64) Value

// Reader decodes a byte stream previously produced by Writer.
type Reader struct {
	src *bufio.Reader

	handles   *readerHandles
	bindings  *readerBindings
	intern    *readerIntern
	filenames *readerFilenames

	extFactory  ExtBindFactory
	makeDropped MakeDropped
	deserialize func([]byte) (Value, error)

	offset     int64
	messageNum uint64
}

// ReaderOption configures optional Reader behavior.
type ReaderOption func(*Reader)

// WithExtBindFactory registers the constructor used for EXT_BIND records.
func WithExtBindFactory(f ExtBindFactory) ReaderOption {
	return func(r *Reader) { r.extFactory = f }
}

// WithMakeDropped registers the factory used to surface DROPPED records to
// the caller; without it DROPPED records are silently consumed.
func WithMakeDropped(f MakeDropped) ReaderOption {
	return func(r *Reader) { r.makeDropped = f }
}

// WithDeserialize registers the callback used to turn a PICKLED record's
// opaque bytes back into a Value; without it, decoding a PICKLED record
// fails (SPEC_FULL.md section 2).
func WithDeserialize(f func([]byte) (Value, error)) ReaderOption {
	return func(r *Reader) { r.deserialize = f }
}

// NewReader wraps src, which must yield exactly the bytes one Writer
// appended to its sink (callers reading a live PID-framed file should
// route bytes through a frameDemuxer first).
func NewReader(src io.Reader, opts ...ReaderOption) *Reader {
	r := &Reader{
		src:       bufio.NewReader(src),
		handles:   newReaderHandles(),
		bindings:  newReaderBindings(),
		intern:    newReaderIntern(),
		filenames: newReaderFilenames(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Bind supplies the out-of-band value for a pending BIND binding index.
func (r *Reader) Bind(id uint64, value Value) error {
	return r.bindings.Supply(id, value)
}

func (r *Reader) ctx() decodeCtx {
	return decodeCtx{
		resolveStr: func(idx uint64) (string, error) {
			return r.intern.Get(idx)
		},
		internStr: func(s string) uint64 {
			return r.intern.Append(s)
		},
		resolveHandle: func(idx uint64) (Value, error) {
			return r.handles.Get(idx)
		},
		resolveBinding: func(idx uint64) (Value, error) {
			return r.bindings.Get(idx)
		},
		deserialize: r.deserialize,
	}
}

// Next decodes and returns the next visible value. EOF is returned exactly
// as the underlying source reports it (typically io.EOF).
func (r *Reader) Next() (Value, error) {
	control, err := r.src.ReadByte()
	if err != nil {
		return nil, err
	}
	r.offset++
	return r.dispatch(control)
}

func (r *Reader) dispatch(control byte) (Value, error) {
	low, high := splitControl(control)

	if low != fixedSizeSentinel {
		v, err := decodeValue(r.src, control, r.ctx())
		if err != nil {
			return nil, r.wrap(DecodeError, control, err)
		}
		return v, nil
	}

	switch FixedSizeType(high) {
	case NewHandle:
		c, err := r.src.ReadByte()
		if err != nil {
			return nil, r.wrap(IOError, control, err)
		}
		v, err := decodeValue(r.src, c, r.ctx())
		if err != nil {
			return nil, r.wrap(DecodeError, control, err)
		}
		r.handles.Bind(v)
		return v, nil

	case HandleDelete:
		delta, err := readExpectedInt(r.src)
		if err != nil {
			return nil, r.wrap(IOError, control, err)
		}
		if _, err := r.handles.Delete(delta); err != nil {
			return nil, err
		}
		return r.Next()

	case BindingDelete:
		id, err := readExpectedInt(r.src)
		if err != nil {
			return nil, r.wrap(IOError, control, err)
		}
		if err := r.bindings.Delete(id); err != nil {
			return nil, err
		}
		return r.Next()

	case Bind:
		id, err := readExpectedInt(r.src)
		if err != nil {
			return nil, r.wrap(IOError, control, err)
		}
		gotID := r.bindings.ReservePending()
		if gotID != id {
			return nil, r.wrap(ProtocolError, control, fmt.Errorf("BIND index mismatch: wire %d, table %d", id, gotID))
		}
		return BindPending{Index: id}, nil

	case ExtBind:
		id, err := readExpectedInt(r.src)
		if err != nil {
			return nil, r.wrap(IOError, control, err)
		}
		c, err := r.src.ReadByte()
		if err != nil {
			return nil, r.wrap(IOError, control, err)
		}
		nameVal, err := decodeValue(r.src, c, r.ctx())
		if err != nil {
			return nil, r.wrap(DecodeError, control, err)
		}
		name, _ := nameVal.(string)
		if r.extFactory == nil {
			return nil, r.wrap(ProtocolError, control, fmt.Errorf("EXT_BIND for type %q with no registered factory", name))
		}
		value, err := r.extFactory(name)
		if err != nil {
			return nil, r.wrap(ProtocolError, control, err)
		}
		gotID := r.bindings.ReserveExt(value)
		if gotID != id {
			return nil, r.wrap(ProtocolError, control, fmt.Errorf("EXT_BIND index mismatch: wire %d, table %d", id, gotID))
		}
		return r.Next()

	case ThreadSwitchOp:
		threadID, err := readExpectedInt(r.src)
		if err != nil {
			return nil, r.wrap(IOError, control, err)
		}
		handleID, err := readExpectedInt(r.src)
		if err != nil {
			return nil, r.wrap(IOError, control, err)
		}
		return ThreadSwitch{ThreadID: threadID, Handle: handleID}, nil

	case MessageBoundary:
		r.messageNum++
		return r.Next()

	case AddFilename:
		idx, err := readUint16(r.src)
		if err != nil {
			return nil, r.wrap(IOError, control, err)
		}
		c, err := r.src.ReadByte()
		if err != nil {
			return nil, r.wrap(IOError, control, err)
		}
		nameVal, err := decodeValue(r.src, c, r.ctx())
		if err != nil {
			return nil, r.wrap(DecodeError, control, err)
		}
		name, _ := nameVal.(string)
		gotIdx := r.filenames.Add(name)
		if uint16(gotIdx) != idx {
			return nil, r.wrap(ProtocolError, control, fmt.Errorf("ADD_FILENAME index mismatch: wire %d, table %d", idx, gotIdx))
		}
		return r.Next()

	case StackOp:
		delta, err := readStackDelta(r.src, r.filenames)
		if err != nil {
			return nil, r.wrap(DecodeError, control, err)
		}
		return delta, nil

	case DroppedOp:
		count, err := readExpectedInt(r.src)
		if err != nil {
			return nil, r.wrap(IOError, control, err)
		}
		if r.makeDropped == nil {
			return r.Next()
		}
		return r.makeDropped(count), nil

	case NoneType, TrueType, FalseType, FloatType, Neg1Type, Int64Type:
		v, err := decodeFixed(r.src, FixedSizeType(high))
		if err != nil {
			return nil, r.wrap(DecodeError, control, err)
		}
		return v, nil

	default:
		return nil, r.wrap(DecodeError, control, fmt.Errorf("unknown fixed-size type %d", high))
	}
}

func (r *Reader) wrap(kind ErrorKind, control byte, err error) *Error {
	return newError(kind, r.offset, r.messageNum, control, err)
}
