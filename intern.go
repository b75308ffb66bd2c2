package objectstream

// Interned string table. Grounded on original_source's STR/STR_REF
// dedup discipline (spec section 3): the writer emits STR the first time a
// string is seen and STR_REF afterward, the reader's table grows in
// lockstep with every STR it decodes (not only on a dedup hit) so indices
// always agree between the two sides, and the table resets whenever a new
// Writer is constructed (no cross-restart dedup).
//
// Adaptation note: the original implementation dedups by host-side pointer
// identity (two Python str objects that happen to share storage). Go
// strings have no host-observable pointer identity in the same sense, so
// the writer side here dedups by content instead, which is a strictly more
// aggressive (and still wire-compatible) form of the same optimization: it
// can only ever encode MORE STR_REFs than the original, never fewer.

type writerIntern struct {
	index map[string]uint64
	next  uint64
}

func newWriterIntern() *writerIntern {
	return &writerIntern{index: make(map[string]uint64)}
}

// Intern returns the STR_REF index for s if already seen, or registers it
// and reports that a fresh STR record is needed.
func (t *writerIntern) Intern(s string) (idx uint64, isNew bool) {
	if idx, ok := t.index[s]; ok {
		return idx, false
	}
	idx = t.next
	t.next++
	t.index[s] = idx
	return idx, true
}

// readerIntern mirrors the table growth on the decode side: every STR
// record appends, regardless of whether the writer considered it a dedup
// hit.
type readerIntern struct {
	table []string
}

func newReaderIntern() *readerIntern {
	return &readerIntern{}
}

func (t *readerIntern) Append(s string) uint64 {
	idx := uint64(len(t.table))
	t.table = append(t.table, s)
	return idx
}

func (t *readerIntern) Get(idx uint64) (string, error) {
	if idx >= uint64(len(t.table)) {
		return "", &Error{Kind: ProtocolError, Err: simpleError("STR_REF to an index never interned")}
	}
	return t.table[idx], nil
}
