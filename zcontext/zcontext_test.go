package zcontext

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestB250Encode8RoundTrip(t *testing.T) {
	for _, n := range []uint32{0, 1, 249, 250, 1000, 250*250 - 1, 250 * 250, 20000000} {
		enc := EncodeWord(n, Enc8)
		got, consumed, special, err := DecodeWord(enc, Enc8, 0)
		require.NoError(t, err)
		require.Zero(t, special)
		require.Equal(t, len(enc), consumed)
		require.Equal(t, n, got)
	}
}

func TestB250Encode16RoundTrip(t *testing.T) {
	for _, n := range []uint32{0, 1, 249, 250, 62499, 62500, 1000000} {
		enc := EncodeWord(n, Enc16)
		got, consumed, special, err := DecodeWord(enc, Enc16, 0)
		require.NoError(t, err)
		require.Zero(t, special)
		require.Equal(t, len(enc), consumed)
		require.Equal(t, n, got)
	}
}

func TestB250OneUp(t *testing.T) {
	got, consumed, _, err := DecodeWord([]byte{OneUp}, Enc8, 41)
	require.NoError(t, err)
	require.Equal(t, 1, consumed)
	require.Equal(t, uint32(42), got)
}

func TestB250Sentinels(t *testing.T) {
	_, consumed, special, err := DecodeWord([]byte{EmptySF}, Enc8, 0)
	require.NoError(t, err)
	require.Equal(t, 1, consumed)
	require.EqualValues(t, EmptySF, special)
}

func TestDictAddDedup(t *testing.T) {
	d := NewDict()
	i1, isNew1 := d.Add([]byte("chr1"))
	i2, isNew2 := d.Add([]byte("chr2"))
	i3, isNew3 := d.Add([]byte("chr1"))
	require.True(t, isNew1)
	require.True(t, isNew2)
	require.False(t, isNew3)
	require.Equal(t, i1, i3)
	require.NotEqual(t, i1, i2)
	require.Equal(t, []byte("chr1"), d.Word(i1))
}

func TestDictMarshalUnmarshal(t *testing.T) {
	d := NewDict()
	d.Add([]byte("chr1"))
	d.Add([]byte("chr2"))
	buf := d.Marshal()
	got := UnmarshalDict(buf, d.Len())
	require.Equal(t, d.Len(), got.Len())
	require.Equal(t, []byte("chr1"), got.Word(0))
	require.Equal(t, []byte("chr2"), got.Word(1))
}

func TestDictMerge(t *testing.T) {
	global := NewDict()
	global.Add([]byte("A"))

	local := NewDict()
	local.Add([]byte("B"))
	local.Add([]byte("A"))

	remap, newWords := global.Merge(local)
	require.Equal(t, uint32(1), remap[0]) // "B" became global index 1
	require.Equal(t, uint32(0), remap[1]) // "A" already existed at index 0
	require.Equal(t, [][]byte{[]byte("B")}, newWords)
}

func TestLocalACGTPackingWithException(t *testing.T) {
	l := NewLocal(LTypeACGT)
	for _, b := range []byte("ACGTN") {
		l.PutACGT(b)
	}
	for i, want := range []byte("ACGTA") { // N decodes back via exception, not 'A'
		if i == 4 {
			require.EqualValues(t, 'N', l.ACGTAt(uint64(i)))
			continue
		}
		require.EqualValues(t, want, l.ACGTAt(uint64(i)))
	}
}

func TestLocalBitmap(t *testing.T) {
	l := NewLocal(LTypeBitmap)
	bits := []bool{true, false, true, true, false, false, false, false, true}
	for _, b := range bits {
		l.PutBit(b)
	}
	l.SetBytes(l.Bytes())
	for _, want := range bits {
		require.Equal(t, want, l.ReadBit())
	}
}

func TestContextSegAndFlushB250(t *testing.T) {
	c := NewContext(DictID(1), "CHROM", LTypeNone)
	idx1, _ := c.SegSnip([]byte("chr1"))
	idx2, _ := c.SegSnip([]byte("chr2"))
	idx3, _ := c.SegSnip([]byte("chr1"))
	require.Equal(t, idx1, idx3)
	require.NotEqual(t, idx1, idx2)

	c.FlushB250(Enc8)
	require.Equal(t, 3, len(c.B250Bytes()))

	cursor := 0
	v1, _, err := c.NextB250(&cursor)
	require.NoError(t, err)
	require.Equal(t, idx1, v1)
}

func TestTableMergeMonotonic(t *testing.T) {
	table := NewTable()
	vb1 := NewContext(DictID(9), "POS", LTypeNone)
	vb1.Dict.Add([]byte("100"))
	remap1, new1 := table.MergeFrom(vb1)
	require.Equal(t, uint32(0), remap1[0])
	require.Equal(t, [][]byte{[]byte("100")}, new1)

	vb2 := NewContext(DictID(9), "POS", LTypeNone)
	vb2.Dict.Add([]byte("200"))
	remap2, new2 := table.MergeFrom(vb2)
	require.Equal(t, uint32(1), remap2[0])
	require.Equal(t, [][]byte{[]byte("200")}, new2)

	global := table.Get(DictID(9))
	require.Equal(t, 2, global.Dict.Len())
}

func TestRemapPendingRewritesQueuedIndices(t *testing.T) {
	table := NewTable()
	// Earlier VBs establish "chrZ"/"chrY" as global indices 0 and 1.
	seed := NewContext(DictID(11), "RNAME", LTypeNone)
	seed.Dict.Add([]byte("chrZ"))
	seed.Dict.Add([]byte("chrY"))
	table.MergeFrom(seed)

	// This VB only ever sees "chrA", so its own local dict assigns it
	// index 0 -- but the merged global index must be 2.
	vbLocal := NewContext(DictID(11), "RNAME", LTypeNone)
	vbLocal.SegSnip([]byte("chrA"))
	vbLocal.SegSnip([]byte("chrA"))

	remap, newWords := table.MergeFrom(vbLocal)
	require.Equal(t, [][]byte{[]byte("chrA")}, newWords)
	require.Equal(t, uint32(2), remap[0])

	vbLocal.RemapPending(remap)
	pending := vbLocal.PendingB250()
	require.Equal(t, []uint32{2, 2}, pending)
}

func TestChooseEncoding(t *testing.T) {
	c := NewContext(DictID(12), "SMALL", LTypeNone)
	for i := 0; i < 250; i++ {
		c.Dict.Add([]byte{byte(i)})
	}
	require.Equal(t, Enc8, c.ChooseEncoding())

	c.Dict.Add([]byte("one more"))
	require.Equal(t, Enc16, c.ChooseEncoding())
}

func TestHistoryBuddyResolution(t *testing.T) {
	h := NewHistory()
	h.Append(HistoryEntry{Int: 10})
	h.Append(HistoryEntry{Int: 20})
	h.Append(HistoryEntry{Int: 30})

	resolve := func(current int, kind BuddyKind) (int, bool) {
		if current == 2 {
			return 0, true
		}
		return 0, false
	}
	e, err := h.ResolveCopyBuddy(2, BuddyMate, resolve)
	require.NoError(t, err)
	require.Equal(t, int64(10), e.Int)
}

func TestSnipOpcodeDetection(t *testing.T) {
	op, ok := IsOp(MakeLookup())
	require.True(t, ok)
	require.Equal(t, OpLookup, op)

	_, ok = IsOp([]byte("chr1"))
	require.False(t, ok)
}

func TestOtherDeltaRoundTrip(t *testing.T) {
	snip := MakeOtherDelta(DictID(555), -7)
	other, delta, err := ParseOtherDelta(snip[1:])
	require.NoError(t, err)
	require.Equal(t, DictID(555), other)
	require.Equal(t, int64(-7), delta)
}

func TestRedirectionRoundTrip(t *testing.T) {
	snip := MakeRedirection(DictID(42))
	got, err := ParseRedirection(snip[1:])
	require.NoError(t, err)
	require.Equal(t, DictID(42), got)
}
