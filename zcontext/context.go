package zcontext

import "sync"

// LastValue holds the most recently reconstructed (or segged) value
// of a context in each representation SNIP_OTHER_DELTA and friends
// might need, the way original_source's mtf_context tracks last_value
// alongside last_txt.
type LastValue struct {
	Int   int64
	Valid bool
	Text  []byte
}

// Context is one field's dict_id-addressed state: its dictionary, its
// b250 word-reference stream, its local stream and its per-line
// history, plus the bookkeeping ZIP needs to merge a VB-local fragment
// into the file-global table under a mutex (spec.md §4.2). It plays
// the role fieldio.Writer/Reader play for one PAM column, generalized
// to carry a shared dictionary instead of a self-contained block.
type Context struct {
	DictID DictID
	Name   string // short ASCII name, for logging/diagnostics only

	Dict *Dict

	// b250: one word index (or a SNIP_* control reference) per record.
	// Stored as already-encoded base-250 bytes once flushed, or as a
	// pending slice of un-encoded word indices while segging.
	pendingB250 []uint32
	b250Bytes   []byte
	Encoding    Encoding

	Local *Local

	// AllTheSame marks a context whose b250 is exactly one entry used
	// for every line of the VB (spec.md §3.2).
	AllTheSame bool

	// StorePerLine marks a context whose value is written to History
	// on every line, for buddy/mate lookups (spec.md §4.5).
	StorePerLine bool
	History      *History

	Last LastValue

	mu sync.Mutex // guards Dict during the ZIP merge step
}

// NewContext creates an empty context for dictID/name with the given
// local element type (LTypeNone if the context has no local stream).
func NewContext(dictID DictID, name string, lt LType) *Context {
	return &Context{
		DictID: dictID,
		Name:   name,
		Dict:   NewDict(),
		Local:  NewLocal(lt),
	}
}

// SegSnip appends one record's worth of reference to snip, adding it
// to the dictionary if new, and queues the resulting word index for
// the b250 stream. It is the Go analogue of seg_by_ctx (spec.md §4.2).
func (c *Context) SegSnip(snip []byte) (wordIndex uint32, isNew bool) {
	wordIndex, isNew = c.Dict.Add(snip)
	c.pendingB250 = append(c.pendingB250, wordIndex)
	return wordIndex, isNew
}

// SegControl appends a raw control-opcode snip (e.g. SNIP_LOOKUP) to
// the dictionary and queues it exactly like SegSnip; callers use this
// when the snip itself is not a literal word but a reconstruction
// directive (spec.md §4.2 control opcodes).
func (c *Context) SegControl(snip []byte) (wordIndex uint32) {
	wordIndex, _ = c.SegSnip(snip)
	return wordIndex
}

// PendingB250 returns the queued (not yet base-250-encoded) word
// indices accumulated since the last FlushB250.
func (c *Context) PendingB250() []uint32 { return c.pendingB250 }

// FlushB250 encodes every pending word index under enc and appends the
// result to the context's b250 byte stream, the write-path equivalent
// of spec.md §4.1's "compressed/encrypted body" for a B250 section.
func (c *Context) FlushB250(enc Encoding) {
	c.Encoding = enc
	for _, idx := range c.pendingB250 {
		c.b250Bytes = append(c.b250Bytes, EncodeWord(idx, enc)...)
	}
	c.pendingB250 = c.pendingB250[:0]
}

// RemapPending rewrites every queued (not yet flushed) word index
// through remap, the step a VB's local context needs right after
// Table.MergeFrom hands back the VB-local-to-global index mapping but
// before FlushB250 encodes them (spec.md §4.2 "the VB's own b250
// stream ... is then rewritten to reference the merged global word
// indices"). Indices with no entry in remap (should not happen for a
// fully-merged dictionary) are left unchanged.
func (c *Context) RemapPending(remap map[uint32]uint32) {
	for i, idx := range c.pendingB250 {
		if g, ok := remap[idx]; ok {
			c.pendingB250[i] = g
		}
	}
}

// PendingAllTheSame reports whether every queued (not yet flushed) word index
// is identical, the condition spec.md §3.2 calls "a b250 section
// containing exactly one logical element used for every row of the
// VB". Returns false for an empty queue.
func (c *Context) PendingAllTheSame() bool {
	if len(c.pendingB250) == 0 {
		return false
	}
	first := c.pendingB250[0]
	for _, v := range c.pendingB250[1:] {
		if v != first {
			return false
		}
	}
	return true
}

// TruncatePending keeps only the first n queued word indices, for the
// ZIP writer to shrink an AllTheSame context's pending queue down to
// its single representative entry before FlushB250 encodes it.
func (c *Context) TruncatePending(n int) {
	if n < len(c.pendingB250) {
		c.pendingB250 = c.pendingB250[:n]
	}
}

// ChooseEncoding picks Enc8 if the context's merged dictionary still
// fits the 8-bit numeral range, else Enc16 (original_source/base250.h:
// "a field's b250 is promoted to 16-bit encoding once its dictionary
// exceeds 250 words").
func (c *Context) ChooseEncoding() Encoding {
	if c.Dict.Len() <= 250 {
		return Enc8
	}
	return Enc16
}

// B250Bytes returns the flushed b250 stream.
func (c *Context) B250Bytes() []byte { return c.b250Bytes }

// SetB250Bytes installs a decoded B250 section body (PIZ load).
func (c *Context) SetB250Bytes(buf []byte, enc Encoding) {
	c.b250Bytes = buf
	c.Encoding = enc
}

// NextB250 decodes and returns the next word index (or sentinel byte)
// from the b250 read cursor. A context whose on-disk B250 section
// carried FlagAllTheSame (spec.md §3.2: "exactly one logical element
// used for all rows of the VB") stores only that one encoded numeral;
// every call replays it without advancing the cursor.
func (c *Context) NextB250(cursor *int) (value uint32, special byte, err error) {
	if c.AllTheSame {
		value, _, special, err = DecodeWord(c.b250Bytes, c.Encoding, uint32(c.Last.Int))
		return value, special, err
	}
	value, n, special, err := DecodeWord(c.b250Bytes[*cursor:], c.Encoding, uint32(c.Last.Int))
	if err != nil {
		return 0, 0, err
	}
	*cursor += n
	return value, special, nil
}

// Table is the file-global context table, addressed by dict_id, the
// fixed-capacity-with-O(1)-lookup structure spec.md §4.2 calls for.
// Grows dynamically here (Go maps are the idiomatic analogue of a
// hash table keyed by a fixed-width integer) rather than over a
// preallocated fixed array, since the engine has no static knowledge
// of how many distinct fields a data type will ultimately use.
type Table struct {
	mu   sync.RWMutex
	byID map[DictID]*Context

	// Aux carries data-type-specific auxiliary state a plugin's SegVB
	// or container.SpecialFunc callbacks may need but that doesn't fit
	// the dict_id-addressed context model, e.g. a *reference.Genome
	// attached by the --reference flag (spec.md §4.6). nil when unused.
	Aux interface{}
}

func NewTable() *Table { return &Table{byID: make(map[DictID]*Context)} }

// GetOrCreate returns the context for dictID, creating it with the
// given name/LType if this is the first reference.
func (t *Table) GetOrCreate(dictID DictID, name string, lt LType) *Context {
	t.mu.RLock()
	c, ok := t.byID[dictID]
	t.mu.RUnlock()
	if ok {
		return c
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok = t.byID[dictID]; ok {
		return c
	}
	c = NewContext(dictID, name, lt)
	t.byID[dictID] = c
	return c
}

// Get returns the context for dictID, or nil if it does not exist.
func (t *Table) Get(dictID DictID) *Context {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.byID[dictID]
}

// All returns every context currently in the table. The returned slice
// is a snapshot; callers must not assume a stable iteration order
// across calls.
func (t *Table) All() []*Context {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Context, 0, len(t.byID))
	for _, c := range t.byID {
		out = append(out, c)
	}
	return out
}

// MergeFrom folds a VB-local context's dictionary into the
// file-global context of the same dict_id, returning a remap from the
// VB-local word indices to the merged global indices. This is the
// "merge phase is serialized: ... acquiring the global context's
// mutex to fold in new snips" step of spec.md §4.2. Global word
// indices are monotonically increasing across VBs because Dict.Add
// only ever appends.
func (t *Table) MergeFrom(vbLocal *Context) (remap map[uint32]uint32, newWords [][]byte) {
	global := t.GetOrCreate(vbLocal.DictID, vbLocal.Name, vbLocal.Local.LType)
	global.mu.Lock()
	defer global.mu.Unlock()
	return global.Dict.Merge(vbLocal.Dict)
}
