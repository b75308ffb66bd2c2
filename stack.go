package objectstream

// Filename table and STACK record codec, grounded on
// original_source/src/stack.cpp / cpp/stack.cpp: a 16-bit filename index
// table populated by ADD_FILENAME ahead of first use, and STACK records
// carrying an expected-int drop count followed by a length-prefixed list
// of (filename_idx:u16, line:u16) pairs.

type writerFilenames struct {
	index map[string]uint16
	next  uint16
}

func newWriterFilenames() *writerFilenames {
	return &writerFilenames{index: make(map[string]uint16)}
}

// Intern returns the filename's table index, and whether an ADD_FILENAME
// record must be emitted before it is first referenced.
func (t *writerFilenames) Intern(name string) (idx uint16, isNew bool) {
	if idx, ok := t.index[name]; ok {
		return idx, false
	}
	idx = t.next
	t.next++
	t.index[name] = idx
	return idx, true
}

type readerFilenames struct {
	table []string
}

func newReaderFilenames() *readerFilenames {
	return &readerFilenames{}
}

func (t *readerFilenames) Add(name string) uint16 {
	idx := uint16(len(t.table))
	t.table = append(t.table, name)
	return idx
}

func (t *readerFilenames) Get(idx uint16) (string, error) {
	if int(idx) >= len(t.table) {
		return "", &Error{Kind: ProtocolError, Err: simpleError("stack frame references an unknown filename index")}
	}
	return t.table[idx], nil
}

// writeStackDelta encodes a STACK record body (the caller has already
// written the fixed-size STACK control byte).
func writeStackDelta(w byteWriter, drop uint64, frames []Frame, filenames *writerFilenames, onNewFilename func(idx uint16, name string) error) error {
	if err := writeExpectedInt(w, drop); err != nil {
		return err
	}
	if err := writeExpectedInt(w, uint64(len(frames))); err != nil {
		return err
	}
	for _, f := range frames {
		idx, isNew := filenames.Intern(f.Filename)
		if isNew && onNewFilename != nil {
			if err := onNewFilename(idx, f.Filename); err != nil {
				return err
			}
		}
		if err := writeUint16(w, idx); err != nil {
			return err
		}
		if err := writeUint16(w, uint32ToU16(f.Line)); err != nil {
			return err
		}
	}
	return nil
}

func uint32ToU16(v uint32) uint16 {
	if v > 0xffff {
		return 0xffff
	}
	return uint16(v)
}

// readStackDelta decodes a STACK record body.
func readStackDelta(r byteReader, filenames *readerFilenames) (StackDelta, error) {
	drop, err := readExpectedInt(r)
	if err != nil {
		return StackDelta{}, err
	}
	count, err := readExpectedInt(r)
	if err != nil {
		return StackDelta{}, err
	}
	frames := make([]Frame, count)
	for i := range frames {
		idx, err := readUint16(r)
		if err != nil {
			return StackDelta{}, err
		}
		line, err := readUint16(r)
		if err != nil {
			return StackDelta{}, err
		}
		name, err := filenames.Get(idx)
		if err != nil {
			return StackDelta{}, err
		}
		frames[i] = Frame{Filename: name, Line: uint32(line)}
	}
	return StackDelta{Drop: drop, Frames: frames}, nil
}
