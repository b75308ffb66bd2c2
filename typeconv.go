package objectstream

// Conversion helpers between the decoded Value variants and plain Go types,
// the way og-rek's typeconv.go lets callers accept a value independent of
// which wire representation produced it.

import (
	"fmt"
	"math/big"
)

// AsInt64 represents a decoded value as int64.
//
// Small integers decode as int64 directly; integers outside that range
// decode as *big.Int. Callers that don't care which should use AsInt64 to
// accept both, and get an explicit error when a big.Int genuinely overflows
// int64.
func AsInt64(x Value) (int64, error) {
	switch x := x.(type) {
	case int64:
		return x, nil
	case *big.Int:
		if !x.IsInt64() {
			return 0, fmt.Errorf("bigint outside of int64 range")
		}
		return x.Int64(), nil
	}
	return 0, fmt.Errorf("expect int64|bigint; got %T", x)
}

// AsBytes represents a decoded value as Bytes.
//
// It succeeds only if the value is Bytes; it does not succeed for string or
// any other type.
func AsBytes(x Value) (Bytes, error) {
	if b, ok := x.(Bytes); ok {
		return b, nil
	}
	return nil, fmt.Errorf("expect bytes; got %T", x)
}

// AsString represents a decoded value as string.
//
// It succeeds only if the value is string.
func AsString(x Value) (string, error) {
	if s, ok := x.(string); ok {
		return s, nil
	}
	return "", fmt.Errorf("expect string; got %T", x)
}

// stringEQ compares arbitrary x to string y.
func stringEQ(x Value, y string) bool {
	s, err := AsString(x)
	return err == nil && s == y
}
