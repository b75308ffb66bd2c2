package objectstream

import "testing"

func TestMakeControlRoundTrip(t *testing.T) {
	cases := []struct {
		st    SizedType
		class byte
	}{
		{Bytes_, 0},
		{Str, 11},
		{TupleType, OneByteSize},
		{DictType, TwoByteSize},
		{BigIntType, EightByteSize},
	}
	for _, c := range cases {
		ctrl := makeControl(c.st, c.class)
		low, high := splitControl(ctrl)
		if SizedType(low) != c.st {
			t.Errorf("makeControl(%v,%d): low nibble = %d, want %d", c.st, c.class, low, c.st)
		}
		if high != c.class {
			t.Errorf("makeControl(%v,%d): high nibble = %d, want %d", c.st, c.class, high, c.class)
		}
	}
}

func TestMakeFixedControlRoundTrip(t *testing.T) {
	for _, ft := range []FixedSizeType{NoneType, TrueType, FalseType, NewHandle, HandleDelete, BindingDelete, Bind, ExtBind, ThreadSwitchOp, MessageBoundary, AddFilename, StackOp, DroppedOp, FloatType, Neg1Type, Int64Type} {
		ctrl := makeFixedControl(ft)
		low, high := splitControl(ctrl)
		if low != fixedSizeSentinel {
			t.Fatalf("makeFixedControl(%v): low nibble = %d, want sentinel %d", ft, low, fixedSizeSentinel)
		}
		if FixedSizeType(high) != ft {
			t.Errorf("makeFixedControl(%v): high nibble = %d, want %d", ft, high, ft)
		}
	}
}

func TestSizeClassForInline(t *testing.T) {
	for n := uint64(0); n <= 11; n++ {
		class, inline := sizeClassFor(n)
		if !inline || uint64(class) != n {
			t.Errorf("sizeClassFor(%d) = (%d, %v), want (%d, true)", n, class, inline, n)
		}
	}
}

func TestSizeClassForOutOfLine(t *testing.T) {
	cases := []struct {
		n     uint64
		class byte
	}{
		{12, OneByteSize},
		{255, OneByteSize},
		{256, TwoByteSize},
		{65535, TwoByteSize},
		{65536, EightByteSize},
	}
	for _, c := range cases {
		class, inline := sizeClassFor(c.n)
		if inline {
			t.Errorf("sizeClassFor(%d): got inline, want out-of-line", c.n)
		}
		if class != c.class {
			t.Errorf("sizeClassFor(%d) class = %d, want %d", c.n, class, c.class)
		}
	}
}
