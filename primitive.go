package objectstream

// Low-level little-endian primitive readers/writers, grounded on
// original_source/cpp/reader.h's read<T>()/read_unsigned_number() and
// src/writer.h's write(T) helpers, generalized the way og-rek's ogorek.go
// generalizes pickle's own little-endian int opcodes.

import (
	"encoding/binary"
	"fmt"
	"io"
)

// byteWriter is satisfied by *bufferSlot and by bytes.Buffer; it is the
// narrow surface the wire-encoding helpers need.
type byteWriter interface {
	io.Writer
	WriteByte(byte) error
}

func writeUint8(w byteWriter, v uint8) error {
	return w.WriteByte(v)
}

func writeUint16(w byteWriter, v uint16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeUint32(w byteWriter, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeUint64(w byteWriter, v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

// writeExpectedInt writes the "expected-int" compact encoding: a single
// byte if v < 255, else the sentinel byte 255 followed by the full uint64.
func writeExpectedInt(w byteWriter, v uint64) error {
	if v < 255 {
		return w.WriteByte(byte(v))
	}
	if err := w.WriteByte(255); err != nil {
		return err
	}
	return writeUint64(w, v)
}

// sizeClassFor returns the size class to embed in the control byte's high
// nibble for a payload of length n: n itself (inline) when n <= 11, else the
// narrowest of OneByteSize/TwoByteSize/EightByteSize that holds it, whose
// out-of-line size writeOutOfLineSize then writes.
func sizeClassFor(n uint64) (class byte, inline bool) {
	if n <= 11 {
		return byte(n), true
	}
	switch {
	case n <= 0xff:
		return OneByteSize, false
	case n <= 0xffff:
		return TwoByteSize, false
	default:
		return EightByteSize, false
	}
}

func writeOutOfLineSize(w byteWriter, class byte, n uint64) error {
	switch class {
	case OneByteSize:
		return writeUint8(w, uint8(n))
	case TwoByteSize:
		return writeUint16(w, uint16(n))
	case EightByteSize:
		return writeUint64(w, n)
	default:
		return fmt.Errorf("objectstream: invalid size class %d", class)
	}
}

// byteReader is the narrow surface wire-decoding helpers need.
type byteReader interface {
	io.Reader
	io.ByteReader
}

func readUint8(r byteReader) (uint8, error) {
	return r.ReadByte()
}

func readUint16(r byteReader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

func readUint32(r byteReader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readUint64(r byteReader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// readExpectedInt reads the "expected-int" compact encoding.
func readExpectedInt(r byteReader) (uint64, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	if b != 255 {
		return uint64(b), nil
	}
	return readUint64(r)
}

// readSize reads the payload length for a SizedType control byte given its
// size-class high nibble.
func readSize(r byteReader, class byte) (uint64, error) {
	switch {
	case class <= 11:
		return uint64(class), nil
	case class == OneByteSize:
		v, err := readUint8(r)
		return uint64(v), err
	case class == TwoByteSize:
		v, err := readUint16(r)
		return uint64(v), err
	case class == EightByteSize:
		return readUint64(r)
	default:
		return 0, fmt.Errorf("objectstream: invalid size class %d", class)
	}
}
