package objectstream

// Dict that handles keys by structural equality, the way a DICT wire record
// is reconstructed on the replay side. Adapted from og-rek's Dict: the
// equal/hash pair below keeps cross-numeric equality between int64, float64
// and *big.Int (so int64(1) and float64(1.0) are the same key), drops og-rek's
// complex-number and ByteString rules, and covers exactly this module's
// variants (bool, int64, *big.Int, float64, string, Bytes, Tuple, List, Dict
// and None).

import (
	"encoding/binary"
	"fmt"
	"hash/maphash"
	"math/big"
	"sort"

	"github.com/aristanetworks/gomap"
)

// Dict represents a decoded DICT record.
//
// Note: similarly to builtin map, Dict is a pointer-like type: its
// zero-value represents a nil dictionary that is empty and invalid to Set
// on.
type Dict struct {
	m *gomap.Map[any, any]
}

// NewDict returns a new empty dictionary.
func NewDict() Dict {
	return NewDictWithSizeHint(0)
}

// NewDictWithSizeHint returns a new empty dictionary with preallocated space
// for size items.
func NewDictWithSizeHint(size int) Dict {
	return Dict{m: gomap.NewHint[any, any](size, equal, hash)}
}

// NewDictWithData returns a new dictionary with preset data.
//
// kv should be key1, value1, key2, value2, ...
func NewDictWithData(kv ...any) Dict {
	l := len(kv)
	if l%2 != 0 {
		panic("odd number of arguments")
	}
	l /= 2
	d := NewDictWithSizeHint(l)
	for i := 0; i < l; i++ {
		d.Set(kv[2*i], kv[2*i+1])
	}
	return d
}

// Get returns the value associated with an equal key, or nil if absent.
func (d Dict) Get(key any) any {
	value, _ := d.Get_(key)
	return value
}

// Get_ is the comma-ok version of Get.
func (d Dict) Get_(key any) (value any, ok bool) {
	return d.m.Get(key)
}

// Set sets key to be associated with value.
func (d Dict) Set(key, value any) {
	d.m.Set(key, value)
}

// Del removes an equal key from the dictionary.
func (d Dict) Del(key any) {
	d.m.Delete(key)
}

// Len returns the number of items in the dictionary.
func (d Dict) Len() int {
	return d.m.Len()
}

// Iter returns an iterator over all elements in the dictionary, in
// arbitrary order.
func (d Dict) Iter() func(yield func(any, any) bool) {
	it := d.m.Iter()
	return func(yield func(any, any) bool) {
		for it.Next() {
			if !yield(it.Key(), it.Elem()) {
				break
			}
		}
	}
}

// String returns a human-readable representation of the dictionary.
func (d Dict) String() string {
	type kv struct{ k, v string }
	items := make([]kv, 0, d.Len())
	d.Iter()(func(k, v any) bool {
		items = append(items, kv{fmt.Sprintf("%v", k), fmt.Sprintf("%v", v)})
		return true
	})
	sort.Slice(items, func(i, j int) bool { return items[i].k < items[j].k })

	s := "{"
	for i, it := range items {
		if i > 0 {
			s += ", "
		}
		s += it.k + ": " + it.v
	}
	return s + "}"
}

// ---- equal ----

func equal(xa, xb any) bool {
	switch a := xa.(type) {
	case string:
		b, ok := xb.(string)
		return ok && a == b
	case Bytes:
		b, ok := xb.(Bytes)
		return ok && string(a) == string(b)
	case bool:
		b, ok := xb.(bool)
		return ok && a == b
	case int64:
		switch b := xb.(type) {
		case int64:
			return a == b
		case float64:
			return float64(a) == b
		case *big.Int:
			return b.IsInt64() && b.Int64() == a
		}
		return false
	case float64:
		switch b := xb.(type) {
		case float64:
			return a == b
		case int64:
			return a == float64(b)
		}
		return false
	case *big.Int:
		switch b := xb.(type) {
		case *big.Int:
			return a.Cmp(b) == 0
		case int64:
			return a.IsInt64() && a.Int64() == b
		}
		return false
	case None:
		_, ok := xb.(None)
		return ok
	case Tuple:
		b, ok := xb.(Tuple)
		return ok && eqSlice(a, b)
	case List:
		b, ok := xb.(List)
		return ok && eqSlice(a, b)
	case Dict:
		b, ok := xb.(Dict)
		return ok && eqDict(a, b)
	}
	return xa == xb
}

func eqSlice(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func eqDict(a, b Dict) bool {
	if a.Len() != b.Len() {
		return false
	}
	eq := true
	a.Iter()(func(k, va any) bool {
		vb, ok := b.Get_(k)
		if !ok || !equal(va, vb) {
			eq = false
			return false
		}
		return true
	})
	return eq
}

// ---- hash ----

func hash(seed maphash.Seed, x any) uint64 {
	switch v := x.(type) {
	case string:
		return maphashString(seed, v)
	case Bytes:
		return maphashString(seed, string(v))
	}

	var h maphash.Hash
	h.SetSeed(seed)

	writeUint := func(u uint64) {
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], u)
		h.Write(b[:])
	}

	switch v := x.(type) {
	case bool:
		if v {
			writeUint(1)
		} else {
			writeUint(0)
		}
	case int64:
		writeUint(uint64(v))
	case float64:
		i := int64(v)
		if float64(i) == v {
			writeUint(uint64(i))
		} else {
			writeUint(uint64(v))
		}
	case *big.Int:
		if v.IsInt64() {
			writeUint(uint64(v.Int64()))
		} else {
			h.WriteString("bigint")
			h.Write(v.Bytes())
		}
	case None:
		h.WriteString("none")
	case Tuple:
		h.WriteString("tuple")
		for _, item := range v {
			writeUint(hash(seed, item))
		}
	case List:
		panic("unhashable type: List")
	case Dict:
		panic("unhashable type: Dict")
	default:
		panic(fmt.Sprintf("unhashable type: %T", x))
	}
	return h.Sum64()
}

func maphashString(seed maphash.Seed, s string) uint64 {
	var h maphash.Hash
	h.SetSeed(seed)
	h.WriteString(s)
	return h.Sum64()
}
