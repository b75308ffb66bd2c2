package objectstream

import "testing"

func TestDictSetGetDel(t *testing.T) {
	d := NewDict()
	d.Set("x", int64(1))
	d.Set(int64(2), "y")

	if got := d.Get("x"); got != int64(1) {
		t.Errorf("Get(x) = %v, want 1", got)
	}
	if got := d.Get(int64(2)); got != "y" {
		t.Errorf("Get(2) = %v, want y", got)
	}
	if d.Len() != 2 {
		t.Errorf("Len() = %d, want 2", d.Len())
	}

	d.Del("x")
	if _, ok := d.Get_("x"); ok {
		t.Errorf("Get_(x) after Del: ok=true, want false")
	}
	if d.Len() != 1 {
		t.Errorf("Len() after Del = %d, want 1", d.Len())
	}
}

func TestDictEqualCrossNumeric(t *testing.T) {
	if !equal(int64(1), float64(1.0)) {
		t.Errorf("equal(int64(1), float64(1.0)) = false, want true")
	}
	if equal(int64(1), float64(1.5)) {
		t.Errorf("equal(int64(1), float64(1.5)) = true, want false")
	}
}

func TestDictEqualNested(t *testing.T) {
	a := Tuple{int64(1), "x"}
	b := Tuple{int64(1), "x"}
	if !equal(a, b) {
		t.Errorf("equal(%v, %v) = false, want true", a, b)
	}
}
