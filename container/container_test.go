package container

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/divonlan/genozip-go/zcontext"
)

func seggedContext(table *zcontext.Table, id zcontext.DictID, name string, values ...[]byte) *zcontext.Context {
	ctx := table.GetOrCreate(id, name, zcontext.LTypeNone)
	for _, v := range values {
		ctx.SegSnip(v)
	}
	ctx.FlushB250(zcontext.Enc8)
	return ctx
}

func TestReconstructFlatRecord(t *testing.T) {
	table := zcontext.NewTable()
	seggedContext(table, zcontext.DictID(1), "CHROM", []byte("chr1"), []byte("chr2"))
	seggedContext(table, zcontext.DictID(2), "POS", []byte("100"), []byte("200"))

	c := &Container{
		RepeatsConst: 2,
		Items: []Item{
			{DictID: zcontext.DictID(1), Separator: []byte("\t")},
			{DictID: zcontext.DictID(2), Separator: []byte("\n")},
		},
	}
	e := NewEngine(table, nil)
	var out bytes.Buffer
	require.NoError(t, e.Reconstruct(c, &out))
	require.Equal(t, "chr1\t100\nchr2\t200\n", out.String())
}

func TestReconstructNestedContainer(t *testing.T) {
	table := zcontext.NewTable()
	seggedContext(table, zcontext.DictID(1), "NAME", []byte("read1"))
	seggedContext(table, zcontext.DictID(2), "QUAL", []byte("IIII"))

	inner := &Container{
		RepeatsConst: 1,
		Items: []Item{
			{DictID: zcontext.DictID(2)},
		},
	}
	outer := &Container{
		RepeatsConst: 1,
		Items: []Item{
			{DictID: zcontext.DictID(1), Separator: []byte(" ")},
			{Sub: inner},
		},
	}
	e := NewEngine(table, nil)
	var out bytes.Buffer
	require.NoError(t, e.Reconstruct(outer, &out))
	require.Equal(t, "read1 IIII", out.String())
}

func TestReconstructInvisibleItem(t *testing.T) {
	table := zcontext.NewTable()
	seggedContext(table, zcontext.DictID(1), "FLAG_HELPER", []byte("secret"))
	seggedContext(table, zcontext.DictID(2), "VISIBLE", []byte("shown"))

	c := &Container{
		RepeatsConst: 1,
		Items: []Item{
			{DictID: zcontext.DictID(1), Invisible: true},
			{DictID: zcontext.DictID(2)},
		},
	}
	e := NewEngine(table, nil)
	var out bytes.Buffer
	require.NoError(t, e.Reconstruct(c, &out))
	require.Equal(t, "shown", out.String())
}

func TestReconstructTranslator(t *testing.T) {
	table := zcontext.NewTable()
	seggedContext(table, zcontext.DictID(1), "LOWER", []byte("abc"))

	upper := func(raw []byte) []byte {
		out := make([]byte, len(raw))
		for i, b := range raw {
			if b >= 'a' && b <= 'z' {
				b -= 32
			}
			out[i] = b
		}
		return out
	}
	c := &Container{
		RepeatsConst: 1,
		Items: []Item{
			{DictID: zcontext.DictID(1), Translate: upper},
		},
	}
	e := NewEngine(table, nil)
	var out bytes.Buffer
	require.NoError(t, e.Reconstruct(c, &out))
	require.Equal(t, "ABC", out.String())
}

func TestReconstructRepeatsFromContext(t *testing.T) {
	table := zcontext.NewTable()
	rep := table.GetOrCreate(zcontext.DictID(9), "REPS", zcontext.LTypeNone)
	rep.SetB250Bytes(zcontext.EncodeWord(2, zcontext.Enc8), zcontext.Enc8)

	seggedContext(table, zcontext.DictID(5), "ITEM", []byte("a"), []byte("b"))

	c := &Container{
		RepeatsConst: -1,
		RepeatsCtx:   zcontext.DictID(9),
		Items: []Item{
			{DictID: zcontext.DictID(5), Separator: []byte(",")},
		},
	}
	e := NewEngine(table, nil)
	var out bytes.Buffer
	require.NoError(t, e.Reconstruct(c, &out))
	require.Equal(t, "a,b,", out.String())
}

func TestReconstructOtherDelta(t *testing.T) {
	table := zcontext.NewTable()
	posCtx := table.GetOrCreate(zcontext.DictID(1), "POS", zcontext.LTypeNone)
	posCtx.SegSnip([]byte("100"))
	posCtx.FlushB250(zcontext.Enc8)

	endCtx := table.GetOrCreate(zcontext.DictID(2), "END", zcontext.LTypeNone)
	endCtx.SegControl(zcontext.MakeOtherDelta(zcontext.DictID(1), 50))
	endCtx.FlushB250(zcontext.Enc8)

	c := &Container{
		RepeatsConst: 1,
		Items: []Item{
			{DictID: zcontext.DictID(1), Separator: []byte("\t")},
			{DictID: zcontext.DictID(2)},
		},
	}
	e := NewEngine(table, nil)
	var out bytes.Buffer
	require.NoError(t, e.Reconstruct(c, &out))
	require.Equal(t, "100\t150", out.String())
}

func TestReconstructCopyBuddy(t *testing.T) {
	table := zcontext.NewTable()
	mate := table.GetOrCreate(zcontext.DictID(1), "MATE_RNAME", zcontext.LTypeNone)
	mate.StorePerLine = true
	mate.History = zcontext.NewHistory()
	mate.SegSnip([]byte("chr1"))
	mate.SegControl(zcontext.MakeCopyBuddy(zcontext.BuddyMate))
	mate.FlushB250(zcontext.Enc8)

	resolve := func(current int, kind zcontext.BuddyKind) (int, bool) {
		if current == 1 {
			return 0, true
		}
		return 0, false
	}
	c := &Container{
		RepeatsConst: 2,
		Items: []Item{
			{DictID: zcontext.DictID(1), Separator: []byte("\n")},
		},
	}
	e := NewEngine(table, resolve)
	var out bytes.Buffer
	require.NoError(t, e.Reconstruct(c, &out))
	require.Equal(t, "chr1\nchr1\n", out.String())
}

func TestReconstructContainerRef(t *testing.T) {
	table := zcontext.NewTable()
	inner := table.GetOrCreate(zcontext.DictID(1), "TAG", zcontext.LTypeNone)
	inner.SegSnip([]byte("NM:i:0"))
	inner.FlushB250(zcontext.Enc8)

	top := table.GetOrCreate(zcontext.DictID(2), "AUX", zcontext.LTypeNone)
	top.SegControl(zcontext.MakeContainerRef(77))
	top.FlushB250(zcontext.Enc8)

	e := NewEngine(table, nil)
	e.Containers[77] = &Container{
		RepeatsConst: 1,
		Items:        []Item{{DictID: zcontext.DictID(1)}},
	}
	c := &Container{
		RepeatsConst: 1,
		Items:        []Item{{DictID: zcontext.DictID(2)}},
	}
	var out bytes.Buffer
	require.NoError(t, e.Reconstruct(c, &out))
	require.Equal(t, "NM:i:0", out.String())
}

func TestReconstructSpecial(t *testing.T) {
	table := zcontext.NewTable()
	ctx := table.GetOrCreate(zcontext.DictID(1), "CIGAR", zcontext.LTypeNone)
	ctx.SegControl(zcontext.MakeSpecial(9, []byte("ignored")))
	ctx.FlushB250(zcontext.Enc8)

	e := NewEngine(table, nil)
	e.Specials[9] = func(e *Engine, id byte, operand []byte) ([]byte, error) {
		return []byte("4M"), nil
	}
	c := &Container{RepeatsConst: 1, Items: []Item{{DictID: zcontext.DictID(1)}}}
	var out bytes.Buffer
	require.NoError(t, e.Reconstruct(c, &out))
	require.Equal(t, "4M", out.String())
}

func TestReconstructRedirection(t *testing.T) {
	table := zcontext.NewTable()
	real := table.GetOrCreate(zcontext.DictID(1), "REAL", zcontext.LTypeNone)
	real.SegSnip([]byte("value"))
	real.FlushB250(zcontext.Enc8)

	alias := table.GetOrCreate(zcontext.DictID(2), "ALIAS", zcontext.LTypeNone)
	alias.SegControl(zcontext.MakeRedirection(zcontext.DictID(1)))
	alias.FlushB250(zcontext.Enc8)

	e := NewEngine(table, nil)
	c := &Container{RepeatsConst: 1, Items: []Item{{DictID: zcontext.DictID(2)}}}
	var out bytes.Buffer
	require.NoError(t, e.Reconstruct(c, &out))
	require.Equal(t, "value", out.String())
}

func TestReconstructDiff(t *testing.T) {
	table := zcontext.NewTable()
	base := table.GetOrCreate(zcontext.DictID(1), "BASE", zcontext.LTypeNone)
	base.SegSnip([]byte("hello world"))
	base.FlushB250(zcontext.Enc8)

	ops := EncodeDiffOps([]DiffOp{{CopyLen: 6, Literal: []byte("there!")}})
	variant := table.GetOrCreate(zcontext.DictID(2), "VARIANT", zcontext.LTypeNone)
	variant.SegControl(zcontext.MakeDiff(zcontext.DictID(1), ops))
	variant.FlushB250(zcontext.Enc8)

	c := &Container{
		RepeatsConst: 1,
		Items: []Item{
			{DictID: zcontext.DictID(1), Separator: []byte("|")},
			{DictID: zcontext.DictID(2)},
		},
	}
	e := NewEngine(table, nil)
	var out bytes.Buffer
	require.NoError(t, e.Reconstruct(c, &out))
	require.Equal(t, "hello world|hello there!", out.String())
}

func TestApplyDiffCopiesRemainder(t *testing.T) {
	ops := EncodeDiffOps([]DiffOp{{CopyLen: 2, Literal: []byte("XY")}})
	got := ApplyDiff([]byte("abcdef"), ops)
	require.Equal(t, "abXYef", string(got))
}

func TestReconstructLookupFromLocal(t *testing.T) {
	table := zcontext.NewTable()
	ctx := table.GetOrCreate(zcontext.DictID(1), "SEQ", zcontext.LTypeBytes)
	ctx.Local.PutString([]byte("ACGT"))
	ctx.Local.PutString([]byte("TTAA"))
	ctx.SegControl(zcontext.MakeLookup())
	ctx.SegControl(zcontext.MakeLookup())
	ctx.FlushB250(zcontext.Enc8)

	c := &Container{
		RepeatsConst: 2,
		Items:        []Item{{DictID: zcontext.DictID(1), Separator: []byte(";")}},
	}
	e := NewEngine(table, nil)
	var out bytes.Buffer
	require.NoError(t, e.Reconstruct(c, &out))
	require.Equal(t, "ACGT;TTAA;", out.String())
}

func TestReconstructLineCallback(t *testing.T) {
	table := zcontext.NewTable()
	seggedContext(table, zcontext.DictID(1), "X", []byte("a"), []byte("b"), []byte("c"))

	var seen []string
	e := NewEngine(table, nil)
	e.Callbacks = append(e.Callbacks, func(lineIndex int, line []byte) {
		seen = append(seen, string(line))
	})
	c := &Container{
		RepeatsConst: 3,
		Items:        []Item{{DictID: zcontext.DictID(1)}},
	}
	var out bytes.Buffer
	require.NoError(t, e.Reconstruct(c, &out))
	require.Equal(t, []string{"a", "b", "c"}, seen)
}
