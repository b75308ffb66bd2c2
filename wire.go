package objectstream

// Recursive value encode/decode for the SizedType/FixedSizeType primitives
// described in SPEC_FULL.md section 2, grounded on ogorek.go's opcode
// dispatch (Decoder.Decode's switch over a one-byte tag, Encoder's type
// switch in encode.go) and original_source/src/wireformat.h for the exact
// enum values. Handle/binding/intern/filename table bookkeeping lives in
// handle.go/binding.go/intern.go/stack.go and is layered on top of the
// primitives here by Writer/Reader.

import (
	"fmt"
	"math"
	"math/big"
)

// encodeCtx bundles the callbacks encodeValue needs while recursing through
// containers: resolve substitutes a handle/binding token Value the caller
// has already seen, and pickle is the escape hatch for a Value outside the
// closed set below (SPEC_FULL.md section 2's PICKLED variant).
type encodeCtx struct {
	resolve func(Value) (Value, bool)
	pickle  func(Value) ([]byte, error)
}

// encodeValue appends the wire encoding of v to w. Container values recurse
// through ctx.resolve, which lets the caller substitute handle/binding/intern
// references for values it has already seen.
func encodeValue(w byteWriter, v Value, ctx encodeCtx) error {
	if ctx.resolve != nil {
		if repl, substituted := ctx.resolve(v); substituted {
			v = repl
		}
	}

	switch x := v.(type) {
	case nil, None:
		return w.WriteByte(makeFixedControl(NoneType))
	case bool:
		if x {
			return w.WriteByte(makeFixedControl(TrueType))
		}
		return w.WriteByte(makeFixedControl(FalseType))
	case int64:
		return encodeInt(w, x)
	case int:
		return encodeInt(w, int64(x))
	case *big.Int:
		return encodeSized(w, BigIntType, bigIntBytes(x))
	case float64:
		if err := w.WriteByte(makeFixedControl(FloatType)); err != nil {
			return err
		}
		var b [8]byte
		bits := math.Float64bits(x)
		for i := 0; i < 8; i++ {
			b[i] = byte(bits >> (8 * i))
		}
		_, err := w.Write(b[:])
		return err
	case string:
		return encodeSized(w, Str, []byte(x))
	case Bytes:
		return encodeSized(w, Bytes_, []byte(x))
	case Tuple:
		return encodeContainer(w, TupleType, x, ctx)
	case List:
		return encodeContainer(w, ListType, x, ctx)
	case Set:
		return encodeContainer(w, SetType, x, ctx)
	case FrozenSet:
		return encodeContainer(w, FrozenSet_, x, ctx)
	case Dict:
		return encodeDict(w, x, ctx)
	case HandleRef:
		return encodeExpectedIntSized(w, HandleRefOp, x.Handle)
	case *BindingToken:
		return encodeExpectedIntSized(w, BindingRefOp, x.id)
	default:
		if ctx.pickle == nil {
			return fmt.Errorf("objectstream: value of type %T has no wire encoding", v)
		}
		data, err := ctx.pickle(v)
		if err != nil {
			return fmt.Errorf("objectstream: pickle value of type %T: %w", v, err)
		}
		return encodeSized(w, PickledType, data)
	}
}

// encodeInt implements the integer encoding policy (SPEC_FULL.md section
// 2): 0..255 is a UINT SizedType whose size-class high
// nibble IS the value, with no payload bytes at all; -1 is the fixed NEG1
// control byte, also payload-free; everything else is the fixed INT64
// control byte followed by 8 raw little-endian signed bytes.
func encodeInt(w byteWriter, v int64) error {
	if v == -1 {
		return w.WriteByte(makeFixedControl(Neg1Type))
	}
	if v >= 0 && v <= 0xff {
		class, inline := sizeClassFor(uint64(v))
		if err := w.WriteByte(makeControl(UintType, class)); err != nil {
			return err
		}
		if !inline {
			return writeOutOfLineSize(w, class, uint64(v))
		}
		return nil
	}
	if err := w.WriteByte(makeFixedControl(Int64Type)); err != nil {
		return err
	}
	u := uint64(v)
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(u >> (8 * i))
	}
	_, err := w.Write(b[:])
	return err
}

func bigIntBytes(v *big.Int) []byte {
	// two's-complement big-endian encoding, minimal length, matching
	// original_source/src/writer.h's _PyLong_AsByteArray(..., 0 /* big
	// endian */, ...) call.
	if v.Sign() == 0 {
		return []byte{0}
	}
	abs := new(big.Int).Abs(v)
	b := abs.Bytes() // already big-endian magnitude
	if v.Sign() < 0 {
		// two's complement over len(b) bytes, growing by one if the
		// high bit is already set (to keep the sign bit correct).
		if b[0]&0x80 != 0 {
			b = append([]byte{0}, b...)
		}
		carry := true
		for i := len(b) - 1; i >= 0; i-- {
			b[i] = ^b[i]
			if carry {
				b[i]++
				carry = b[i] == 0
			}
		}
	} else if b[0]&0x80 != 0 {
		b = append([]byte{0}, b...)
	}
	return b
}

// encodeExpectedIntSized writes a SizedType record whose payload is a
// single expected-int value (used by STR_REF and HANDLE_REF), where the
// control byte's inline size class doubles as the expected-int's own byte
// length (1 for small indices, 9 for the 0xff-sentinel + uint64 form).
func encodeExpectedIntSized(w byteWriter, st SizedType, idx uint64) error {
	n := byte(1)
	if idx >= 255 {
		n = 9
	}
	if err := w.WriteByte(makeControl(st, n)); err != nil {
		return err
	}
	return writeExpectedInt(w, idx)
}

func encodeSized(w byteWriter, st SizedType, payload []byte) error {
	class, inline := sizeClassFor(uint64(len(payload)))
	if err := w.WriteByte(makeControl(st, class)); err != nil {
		return err
	}
	if !inline {
		if err := writeOutOfLineSize(w, class, uint64(len(payload))); err != nil {
			return err
		}
	}
	_, err := w.Write(payload)
	return err
}

func encodeContainer(w byteWriter, st SizedType, items []Value, ctx encodeCtx) error {
	class, inline := sizeClassFor(uint64(len(items)))
	if err := w.WriteByte(makeControl(st, class)); err != nil {
		return err
	}
	if !inline {
		if err := writeOutOfLineSize(w, class, uint64(len(items))); err != nil {
			return err
		}
	}
	for _, it := range items {
		if err := encodeValue(w, it, ctx); err != nil {
			return err
		}
	}
	return nil
}

func encodeDict(w byteWriter, d Dict, ctx encodeCtx) error {
	class, inline := sizeClassFor(uint64(d.Len()))
	if err := w.WriteByte(makeControl(DictType, class)); err != nil {
		return err
	}
	if !inline {
		if err := writeOutOfLineSize(w, class, uint64(d.Len())); err != nil {
			return err
		}
	}
	var outerErr error
	d.Iter()(func(k, v any) bool {
		if err := encodeValue(w, k, ctx); err != nil {
			outerErr = err
			return false
		}
		if err := encodeValue(w, v, ctx); err != nil {
			outerErr = err
			return false
		}
		return true
	})
	return outerErr
}

// decodeCtx bundles the table callbacks Reader supplies so decodeValue can
// resolve STR_REF/HANDLE_REF/BINDING_REF while recursing through
// containers without a long, repeated parameter list.
type decodeCtx struct {
	resolveStr     func(idx uint64) (string, error)
	internStr      func(string) uint64
	resolveHandle  func(uint64) (Value, error)
	resolveBinding func(uint64) (Value, error)
	deserialize    func([]byte) (Value, error)
}

// decodeValue reads one wire record starting at the control byte already
// consumed by the caller as `control`.
func decodeValue(r byteReader, control byte, ctx decodeCtx) (Value, error) {
	low, high := splitControl(control)
	if low == fixedSizeSentinel {
		return decodeFixed(r, FixedSizeType(high))
	}

	st := SizedType(low)
	n, err := readSize(r, high)
	if err != nil {
		return nil, err
	}

	switch st {
	case Bytes_:
		buf := make([]byte, n)
		if _, err := readFull(r, buf); err != nil {
			return nil, err
		}
		return Bytes(buf), nil
	case Str:
		buf := make([]byte, n)
		if _, err := readFull(r, buf); err != nil {
			return nil, err
		}
		s := string(buf)
		if ctx.internStr != nil {
			ctx.internStr(s)
		}
		return s, nil
	case StrRef:
		idx, err := readExpectedIntFromInline(r, n)
		if err != nil {
			return nil, err
		}
		return ctx.resolveStr(idx)
	case UintType:
		// the UINT SizedType carries no payload: n, decoded above by
		// readSize exactly as it would be for any other sized record's
		// length, IS the value.
		return int64(n), nil
	case BigIntType:
		buf := make([]byte, n)
		if _, err := readFull(r, buf); err != nil {
			return nil, err
		}
		return decodeBigInt(buf), nil
	case PickledType:
		buf := make([]byte, n)
		if _, err := readFull(r, buf); err != nil {
			return nil, err
		}
		if ctx.deserialize == nil {
			return nil, fmt.Errorf("objectstream: PICKLED record with no deserialize hook registered")
		}
		return ctx.deserialize(buf)
	case TupleType, ListType, SetType, FrozenSet_:
		items := make([]Value, n)
		for i := range items {
			c, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			v, err := decodeValue(r, c, ctx)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		switch st {
		case TupleType:
			return Tuple(items), nil
		case ListType:
			return List(items), nil
		case SetType:
			return Set(items), nil
		default:
			return FrozenSet(items), nil
		}
	case DictType:
		d := NewDictWithSizeHint(int(n))
		for i := uint64(0); i < n; i++ {
			kc, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			k, err := decodeValue(r, kc, ctx)
			if err != nil {
				return nil, err
			}
			vc, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			val, err := decodeValue(r, vc, ctx)
			if err != nil {
				return nil, err
			}
			d.Set(k, val)
		}
		return d, nil
	case HandleRefOp:
		idx, err := readExpectedIntFromInline(r, n)
		if err != nil {
			return nil, err
		}
		return ctx.resolveHandle(idx)
	case BindingRefOp:
		idx, err := readExpectedIntFromInline(r, n)
		if err != nil {
			return nil, err
		}
		return ctx.resolveBinding(idx)
	case NewHandleLegacy:
		// Legacy encoding: payload is the handle's value, inlined as a
		// sized record instead of behind the fixed-size NEW_HANDLE byte.
		// Reader-only (DESIGN.md Open Question 4).
		c, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		return decodeValue(r, c, ctx)
	default:
		return nil, fmt.Errorf("objectstream: unknown sized type %d", low)
	}
}

func readExpectedIntFromInline(r byteReader, n uint64) (uint64, error) {
	// STR_REF/HANDLE_REF payloads are themselves expected-int encoded
	// values whose byte length was already consumed as the sized-type's
	// size; n here is that byte count (1 or 9), not the index itself.
	if n == 1 {
		b, err := r.ReadByte()
		return uint64(b), err
	}
	if _, err := r.ReadByte(); err != nil { // sentinel 0xff, already implied by n==9
		return 0, err
	}
	return readUint64(r)
}

func decodeFixed(r byteReader, ft FixedSizeType) (Value, error) {
	switch ft {
	case NoneType:
		return nil, nil
	case TrueType:
		return true, nil
	case FalseType:
		return false, nil
	case Neg1Type:
		return int64(-1), nil
	case FloatType:
		var b [8]byte
		if _, err := readFull(r, b[:]); err != nil {
			return nil, err
		}
		var bits uint64
		for i := 0; i < 8; i++ {
			bits |= uint64(b[i]) << (8 * i)
		}
		return math.Float64frombits(bits), nil
	case Int64Type:
		var b [8]byte
		if _, err := readFull(r, b[:]); err != nil {
			return nil, err
		}
		var u uint64
		for i := 0; i < 8; i++ {
			u |= uint64(b[i]) << (8 * i)
		}
		return int64(u), nil
	default:
		return nil, fmt.Errorf("objectstream: fixed-size type %s must be handled by the reader state machine", ft)
	}
}

func decodeBigInt(buf []byte) *big.Int {
	if len(buf) == 0 {
		return big.NewInt(0)
	}
	neg := buf[0]&0x80 != 0
	b := append([]byte(nil), buf...)
	if neg {
		carry := true
		for i := len(b) - 1; i >= 0; i-- {
			b[i] = ^b[i]
			if carry {
				b[i]++
				carry = b[i] == 0
			}
		}
	}
	v := new(big.Int).SetBytes(b)
	if neg {
		v.Neg(v)
	}
	return v
}
