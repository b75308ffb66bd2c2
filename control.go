package objectstream

// Control byte layout (see SPEC_FULL.md section 2):
//
//	bit:   7 6 5 4 | 3 2 1 0
//	       |------>| |----->
//	        high nibble  low nibble
//
// The low nibble normally selects a SizedType. When the low nibble equals
// fixedSizeSentinel, the control byte instead dispatches on the high
// nibble as a FixedSizeType and carries no inline size at all.
//
// When the low nibble is a SizedType, the high nibble is the size class:
// 0..11 is the literal inline byte count, and 12/13/15 are out-of-line size
// markers (the payload length follows as a 1/2/8-byte little-endian
// integer). There is no 4-byte size class: a high nibble of 14 under a
// SizedType low nibble is rejected by readSize.

type SizedType byte

const (
	Bytes_       SizedType = 0
	Str          SizedType = 1
	StrRef       SizedType = 2
	TupleType    SizedType = 3
	ListType     SizedType = 4
	SetType      SizedType = 5
	UintType     SizedType = 6
	DictType     SizedType = 7
	BigIntType   SizedType = 8
	PickledType  SizedType = 9
	HandleRefOp  SizedType = 11
	BindingRefOp SizedType = 12
	FrozenSet_   SizedType = 13

	// NewHandleLegacy is the pre-fixed-size-type encoding of NEW_HANDLE,
	// where the handle's payload type was inlined as a sized type instead
	// of living behind the fixed-size NewHandle control byte. The reader
	// accepts it; the writer never emits it (DESIGN.md Open Question 4).
	NewHandleLegacy SizedType = 15
)

// Size class values carried in the high nibble when the low nibble is a
// SizedType.
const (
	OneByteSize   = 12
	TwoByteSize   = 13
	EightByteSize = 15
)

// fixedSizeSentinel is the low-nibble value that marks a control byte as
// carrying a FixedSizeType in its high nibble rather than a SizedType.
const fixedSizeSentinel = 14

// FixedSizeType is carried in the high nibble of a control byte whose low
// nibble is fixedSizeSentinel. Each one has a statically-known wire shape
// described in SPEC_FULL.md section 2.
type FixedSizeType byte

const (
	NoneType        FixedSizeType = 0
	TrueType        FixedSizeType = 1
	FalseType       FixedSizeType = 2
	NewHandle       FixedSizeType = 3
	HandleDelete    FixedSizeType = 14
	BindingDelete   FixedSizeType = 5
	Bind            FixedSizeType = 6
	ExtBind         FixedSizeType = 7
	ThreadSwitchOp  FixedSizeType = 8
	MessageBoundary FixedSizeType = 9
	AddFilename     FixedSizeType = 10
	StackOp         FixedSizeType = 11
	DroppedOp       FixedSizeType = 12

	// FloatType, Neg1Type and Int64Type carry the integer/float encoding
	// policy described in SPEC_FULL.md section 2: FLOAT always has a
	// statically-known 8-byte payload so it lives in the fixed-size table
	// rather than behind a size-prefixed SizedType, and small/negative
	// integers that don't fit the UINT SizedType's inline-size-as-value
	// trick fall back to one of these two instead of a generic
	// length-prefixed encoding.
	FloatType FixedSizeType = 13
	Neg1Type  FixedSizeType = 4
	Int64Type FixedSizeType = 15
)

func makeControl(st SizedType, sizeClass byte) byte {
	return byte(st) | (sizeClass << 4)
}

func makeFixedControl(ft FixedSizeType) byte {
	return fixedSizeSentinel | (byte(ft) << 4)
}

func splitControl(c byte) (low byte, high byte) {
	return c & 0x0f, c >> 4
}

func (t FixedSizeType) String() string {
	switch t {
	case NoneType:
		return "NONE"
	case TrueType:
		return "TRUE"
	case FalseType:
		return "FALSE"
	case NewHandle:
		return "NEW_HANDLE"
	case HandleDelete:
		return "HANDLE_DELETE"
	case BindingDelete:
		return "BINDING_DELETE"
	case Bind:
		return "BIND"
	case ExtBind:
		return "EXT_BIND"
	case ThreadSwitchOp:
		return "THREAD_SWITCH"
	case MessageBoundary:
		return "MESSAGE_BOUNDARY"
	case AddFilename:
		return "ADD_FILENAME"
	case StackOp:
		return "STACK"
	case DroppedOp:
		return "DROPPED"
	case FloatType:
		return "FLOAT"
	case Neg1Type:
		return "NEG1"
	case Int64Type:
		return "INT64"
	default:
		return "UNKNOWN_FIXED"
	}
}

func (t SizedType) String() string {
	switch t {
	case Bytes_:
		return "BYTES"
	case Str:
		return "STR"
	case StrRef:
		return "STR_REF"
	case TupleType:
		return "TUPLE"
	case ListType:
		return "LIST"
	case SetType:
		return "SET"
	case FrozenSet_:
		return "FROZENSET"
	case DictType:
		return "DICT"
	case BigIntType:
		return "BIGINT"
	case UintType:
		return "UINT"
	case PickledType:
		return "PICKLED"
	case HandleRefOp:
		return "HANDLE_REF"
	case BindingRefOp:
		return "BINDING_REF"
	case NewHandleLegacy:
		return "NEW_HANDLE_LEGACY"
	default:
		return "UNKNOWN_SIZED"
	}
}
