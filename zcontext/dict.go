package zcontext

// Dict holds every distinct snip seen by a context, in the order they
// were first added (= the order word_index is assigned, per spec.md
// §4.2: "word_index assigned in later VBs always exceed those
// assigned in earlier VBs"). It mirrors the role of
// fieldio.fieldWriteBuf.blobBuf plus a dedup map, generalized from
// "delta-coded per block" to "append-once, global to the file".
type Dict struct {
	words   [][]byte
	byValue map[string]uint32
}

// NewDict returns an empty dictionary.
func NewDict() *Dict {
	return &Dict{byValue: make(map[string]uint32)}
}

// Add returns the word index for snip, assigning a new one if this is
// the first time snip has been seen. isNew reports whether a new
// dictionary entry was created.
func (d *Dict) Add(snip []byte) (index uint32, isNew bool) {
	if idx, ok := d.byValue[string(snip)]; ok {
		return idx, false
	}
	idx := uint32(len(d.words))
	cp := append([]byte(nil), snip...)
	d.words = append(d.words, cp)
	d.byValue[string(cp)] = idx
	return idx, true
}

// Lookup returns the index of snip without adding it.
func (d *Dict) Lookup(snip []byte) (index uint32, ok bool) {
	idx, ok := d.byValue[string(snip)]
	return idx, ok
}

// Word returns the snip bytes stored at index.
func (d *Dict) Word(index uint32) []byte {
	if int(index) >= len(d.words) {
		return nil
	}
	return d.words[index]
}

// Len reports the number of distinct snips.
func (d *Dict) Len() int { return len(d.words) }

// Merge folds other's new words into d, returning a map from other's
// indices to d's indices, plus the snips that were genuinely new (in
// the order they were assigned, i.e. global-index order). Used during
// the ZIP merge step (spec.md §4.2) when a VB's local dictionary
// fragment is folded into the global context table under its mutex;
// the returned newWords is exactly the per-VB DICT section fragment
// the writer appends at finalize ("all dictionaries fragmented by
// VB", spec.md §4.4).
func (d *Dict) Merge(other *Dict) (remap map[uint32]uint32, newWords [][]byte) {
	remap = make(map[uint32]uint32, len(other.words))
	for i, w := range other.words {
		idx, isNew := d.Add(w)
		remap[uint32(i)] = idx
		if isNew {
			newWords = append(newWords, w)
		}
	}
	return remap, newWords
}

// MarshalWords serializes words to the SEC_DICT wire form: each snip
// length-prefixed (uvarint) rather than separator-delimited, because a
// snip may legally contain any byte — a generic line carries its own
// newline, a SAM tail blob carries tabs, a BAM AUX payload carries
// NULs — so no in-band separator is safe. Used both for a context's
// whole dictionary and for the per-VB new-word fragments the ZIP
// writer emits at finalize.
func MarshalWords(words [][]byte) []byte {
	var buf []byte
	for _, w := range words {
		buf = appendLocalUvarint(buf, uint64(len(w)))
		buf = append(buf, w...)
	}
	return buf
}

// Marshal serializes the dictionary to its SEC_DICT section body form.
func (d *Dict) Marshal() []byte { return MarshalWords(d.words) }

// UnmarshalDict parses a SEC_DICT section body holding at most
// numSnips entries (a per-VB fragment holds fewer than the owning
// context's cumulative count, which is what the section header
// records).
func UnmarshalDict(body []byte, numSnips int) *Dict {
	d := NewDict()
	for len(body) > 0 && d.Len() < numSnips {
		n, adv := readLocalUvarint(body)
		if adv == 0 || uint64(len(body)-adv) < n {
			break
		}
		d.Add(body[adv : adv+int(n)])
		body = body[adv+int(n):]
	}
	return d
}
