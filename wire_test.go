package objectstream

import (
	"bytes"
	"testing"
)

// TestIntegerEncodingLiteralBytes pins the exact wire bytes the integer
// encoding policy in SPEC_FULL.md section 2 produces.
func TestIntegerEncodingLiteralBytes(t *testing.T) {
	var zero bytes.Buffer
	if err := encodeValue(&zero, int64(0), encodeCtx{}); err != nil {
		t.Fatalf("encodeValue(0): %v", err)
	}
	if got := zero.Bytes(); len(got) != 1 || got[0] != 0x06 {
		t.Fatalf("encodeValue(0) = % x, want [06]", got)
	}

	var negOne bytes.Buffer
	if err := encodeValue(&negOne, int64(-1), encodeCtx{}); err != nil {
		t.Fatalf("encodeValue(-1): %v", err)
	}
	// NEG1's control byte is fixedSizeSentinel(14) in the low nibble and
	// Neg1Type(4)'s own ordinal in the high nibble: 0x0e | (0x04 << 4).
	if got := negOne.Bytes(); len(got) != 1 || got[0] != 0x4e {
		t.Fatalf("encodeValue(-1) = % x, want [4e]", got)
	}
}

func TestFloatFixedSizeLiteralBytes(t *testing.T) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, float64(0), encodeCtx{}); err != nil {
		t.Fatalf("encodeValue(0.0): %v", err)
	}
	got := buf.Bytes()
	if len(got) != 9 {
		t.Fatalf("encodeValue(0.0) length = %d, want 9 (1 control + 8 payload)", len(got))
	}
	if low, high := splitControl(got[0]); low != fixedSizeSentinel || FixedSizeType(high) != FloatType {
		t.Fatalf("encodeValue(0.0) control byte = %#x, want FIXED_SIZE/FLOAT", got[0])
	}
}
