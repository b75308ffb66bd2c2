package objectstream

import (
	"bufio"
	"bytes"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := writeFrame(&buf, 42, []byte("hello")); err != nil {
		t.Fatalf("writeFrame: %v", err)
	}

	r := bufio.NewReader(&buf)
	hdr, err := readFrameHeader(r)
	if err != nil {
		t.Fatalf("readFrameHeader: %v", err)
	}
	if hdr.PID != 42 || hdr.Len != 5 {
		t.Fatalf("readFrameHeader = %+v, want {PID:42 Len:5}", hdr)
	}

	payload := make([]byte, hdr.Len)
	if _, err := readFull(r, payload); err != nil {
		t.Fatalf("readFull: %v", err)
	}
	if string(payload) != "hello" {
		t.Errorf("payload = %q, want %q", payload, "hello")
	}
}

func TestFrameDemuxerInterleavedPIDs(t *testing.T) {
	var buf bytes.Buffer
	writeFrame(&buf, 1, []byte("a1"))
	writeFrame(&buf, 2, []byte("b1"))
	writeFrame(&buf, 1, []byte("a2"))

	d := newFrameDemuxer(bufio.NewReader(&buf))
	d.SetActivePID(1)

	p1, err := d.Next()
	if err != nil || string(p1) != "a1" {
		t.Fatalf("Next() = (%q, %v), want (a1, nil)", p1, err)
	}
	p2, err := d.Next()
	if err != nil || string(p2) != "a2" {
		t.Fatalf("Next() = (%q, %v), want (a2, nil)", p2, err)
	}

	d.SetActivePID(2)
	p3, err := d.Next()
	if err != nil || string(p3) != "b1" {
		t.Fatalf("Next() = (%q, %v), want (b1, nil)", p3, err)
	}
}

func TestFrameRejectsOversizePayload(t *testing.T) {
	var buf bytes.Buffer
	big := make([]byte, maxFramePayload+1)
	if err := writeFrame(&buf, 1, big); err == nil {
		t.Fatalf("writeFrame with oversize payload: got nil error, want error")
	}
}
