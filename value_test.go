package objectstream

import (
	"bytes"
	"math/big"
	"reflect"
	"testing"
)

func roundTrip(t *testing.T, v Value) Value {
	t.Helper()
	var buf bytes.Buffer
	if err := encodeValue(&buf, v, encodeCtx{}); err != nil {
		t.Fatalf("encodeValue(%v): %v", v, err)
	}
	control, err := buf.ReadByte()
	if err != nil {
		t.Fatalf("ReadByte: %v", err)
	}
	intern := newReaderIntern()
	out, err := decodeValue(&buf, control, decodeCtx{
		internStr: func(s string) uint64 { return intern.Append(s) },
		resolveStr: func(idx uint64) (string, error) { return intern.Get(idx) },
		resolveHandle: func(uint64) (Value, error) { return nil, nil },
		resolveBinding: func(uint64) (Value, error) { return nil, nil },
	})
	if err != nil {
		t.Fatalf("decodeValue(%v): %v", v, err)
	}
	return out
}

func TestRoundTripPrimitives(t *testing.T) {
	cases := []Value{
		nil,
		true,
		false,
		int64(0),
		int64(42),
		int64(-42),
		int64(1 << 40),
		float64(3.5),
		"hello",
		Bytes("raw bytes"),
		big.NewInt(123456789012345),
	}
	for _, v := range cases {
		got := roundTrip(t, v)
		if bi, ok := v.(*big.Int); ok {
			gbi, ok := got.(*big.Int)
			if !ok || gbi.Cmp(bi) != 0 {
				t.Errorf("roundTrip(%v) = %v, want equal bigint", v, got)
			}
			continue
		}
		if !reflect.DeepEqual(v, got) {
			t.Errorf("roundTrip(%v) = %#v, want %#v", v, got, v)
		}
	}
}

func TestRoundTripContainers(t *testing.T) {
	tup := Tuple{int64(1), "two", Bytes("three")}
	got := roundTrip(t, tup)
	if !reflect.DeepEqual(tup, got) {
		t.Errorf("roundTrip(Tuple) = %#v, want %#v", got, tup)
	}

	list := List{int64(1), List{int64(2), int64(3)}}
	got = roundTrip(t, list)
	if !reflect.DeepEqual(list, got) {
		t.Errorf("roundTrip(List) = %#v, want %#v", got, list)
	}
}

func TestRoundTripDict(t *testing.T) {
	d := NewDictWithData("a", int64(1), "b", int64(2))
	got := roundTrip(t, d)
	gd, ok := got.(Dict)
	if !ok {
		t.Fatalf("roundTrip(Dict) returned %T", got)
	}
	if gd.Len() != d.Len() {
		t.Fatalf("roundTrip(Dict) len = %d, want %d", gd.Len(), d.Len())
	}
	if gd.Get("a") != int64(1) || gd.Get("b") != int64(2) {
		t.Errorf("roundTrip(Dict) = %v, want %v", gd, d)
	}
}

func TestNegativeBigInt(t *testing.T) {
	v := new(big.Int).Neg(big.NewInt(987654321098765))
	got := roundTrip(t, v)
	gbi, ok := got.(*big.Int)
	if !ok || gbi.Cmp(v) != 0 {
		t.Errorf("roundTrip(%v) = %v, want equal bigint", v, got)
	}
}
