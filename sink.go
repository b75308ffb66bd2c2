package objectstream

// Append-only file sink with an advisory exclusive lock, grounded on
// original_source/src/writer.h's open() (O_APPEND, non-blocking exclusive
// flock) and cpp/persister.cpp's write loop (EINTR retry, report-once on
// any other error).

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// fileSink is the persister's write destination: an append-mode file held
// under an advisory exclusive lock for the sink's lifetime.
type fileSink struct {
	f   *os.File
	pid uint32
}

// openFileSink opens path for append, creating it if necessary, and takes a
// non-blocking exclusive flock so a second process attempting to persist to
// the same path fails fast instead of corrupting interleaved frames.
func openFileSink(path string) (*fileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("objectstream: open sink %q: %w", path, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("objectstream: lock sink %q: %w", path, err)
	}
	return &fileSink{f: f, pid: uint32(os.Getpid())}, nil
}

// Write writes p in full, retrying on EINTR, matching the original
// persister's write-loop retry policy.
func (s *fileSink) Write(p []byte) error {
	for len(p) > 0 {
		n, err := s.f.Write(p)
		if err != nil {
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			return err
		}
		p = p[n:]
	}
	return nil
}

// WriteFrame wraps p in a PID frame and writes it.
func (s *fileSink) WriteFrame(p []byte) error {
	if len(p) > maxFramePayload {
		return fmt.Errorf("objectstream: frame payload %d exceeds max %d", len(p), maxFramePayload)
	}
	w := &fixedByteWriter{buf: make([]byte, 0, frameHeaderSize)}
	if err := writeUint32(w, s.pid); err != nil {
		return err
	}
	if err := writeUint16(w, uint16(len(p))); err != nil {
		return err
	}
	// Header and payload are written as two syscalls to avoid an extra
	// copy for large payloads; the sink holds the lock for the duration
	// so no other writer can interleave a frame in between.
	if err := s.Write(w.buf); err != nil {
		return err
	}
	return s.Write(p)
}

func (s *fileSink) Close() error {
	unix.Flock(int(s.f.Fd()), unix.LOCK_UN)
	return s.f.Close()
}

// fixedByteWriter is a tiny byteWriter over a preallocated slice, used to
// build the small fixed-size frame header without allocating a
// bytes.Buffer.
type fixedByteWriter struct {
	buf []byte
}

func (w *fixedByteWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *fixedByteWriter) WriteByte(b byte) error {
	w.buf = append(w.buf, b)
	return nil
}
