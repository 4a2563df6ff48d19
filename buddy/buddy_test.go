package buddy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/divonlan/genozip-go/zcontext"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		kind  zcontext.BuddyKind
		delta int
	}{
		{zcontext.BuddyMate, 1},
		{zcontext.BuddySaggy, 200},
		{zcontext.BuddyBoth, 0},
	} {
		snip := Encode(tc.kind, tc.delta)
		kind, delta, err := Decode(snip)
		require.NoError(t, err)
		require.Equal(t, tc.kind, kind)
		require.Equal(t, tc.delta, delta)
	}
}

func TestDecodeRejectsNonBuddySnip(t *testing.T) {
	_, _, err := Decode([]byte{1, 2, 3})
	require.Error(t, err)
}

func buildBuddyContext(t *testing.T, entries ...[]byte) *zcontext.Context {
	t.Helper()
	ctx := zcontext.NewContext(zcontext.DictID(1), "BUDDY", zcontext.LTypeNone)
	for _, e := range entries {
		ctx.SegSnip(e)
	}
	ctx.FlushB250(zcontext.Enc8)
	return ctx
}

func TestTrackerResolvesMateBuddy(t *testing.T) {
	ctx := buildBuddyContext(t,
		Encode(zcontext.BuddyMate, 0), // line 0: no buddy (first of pair)
		Encode(zcontext.BuddyMate, 1), // line 1: buddy is line 0
	)
	tr, err := BuildTracker(ctx, 2)
	require.NoError(t, err)
	resolve := tr.Resolver()

	_, ok := resolve(0, zcontext.BuddyMate)
	require.False(t, ok)

	line, ok := resolve(1, zcontext.BuddyMate)
	require.True(t, ok)
	require.Equal(t, 0, line)
}

func TestTrackerBothFallsBackForMateOrSaggy(t *testing.T) {
	ctx := buildBuddyContext(t,
		Encode(zcontext.BuddyBoth, 0),
		Encode(zcontext.BuddyBoth, 0),
		Encode(zcontext.BuddyBoth, 2),
	)
	tr, err := BuildTracker(ctx, 3)
	require.NoError(t, err)
	resolve := tr.Resolver()

	line, ok := resolve(2, zcontext.BuddyMate)
	require.True(t, ok)
	require.Equal(t, 0, line)

	line, ok = resolve(2, zcontext.BuddySaggy)
	require.True(t, ok)
	require.Equal(t, 0, line)
}

func TestTrackerOutOfRangeLine(t *testing.T) {
	ctx := buildBuddyContext(t, Encode(zcontext.BuddyMate, 0))
	tr, err := BuildTracker(ctx, 1)
	require.NoError(t, err)
	_, ok := tr.Resolver()(5, zcontext.BuddyMate)
	require.False(t, ok)
}

func TestIntegrationWithContainerHistory(t *testing.T) {
	table := zcontext.NewTable()
	buddyCtx := table.GetOrCreate(zcontext.DictID(99), "BUDDY", zcontext.LTypeNone)
	buddyCtx.SegSnip(Encode(zcontext.BuddyMate, 0))
	buddyCtx.SegSnip(Encode(zcontext.BuddyMate, 1))
	buddyCtx.FlushB250(zcontext.Enc8)

	tr, err := BuildTracker(buddyCtx, 2)
	require.NoError(t, err)

	mate := table.GetOrCreate(zcontext.DictID(1), "RNAME", zcontext.LTypeNone)
	mate.StorePerLine = true
	mate.History = zcontext.NewHistory()
	mate.SegSnip([]byte("chr1"))
	mate.SegControl(zcontext.MakeCopyBuddy(zcontext.BuddyMate))
	mate.FlushB250(zcontext.Enc8)

	cursor := 0
	v0, _, err := mate.NextB250(&cursor)
	require.NoError(t, err)
	mate.Last = zcontext.LastValue{Valid: true, Text: mate.Dict.Word(v0)}
	mate.History.Append(zcontext.HistoryEntry{Text: mate.Last.Text})

	entry, err := mate.History.ResolveCopyBuddy(1, zcontext.BuddyMate, tr.Resolver())
	require.NoError(t, err)
	require.Equal(t, "chr1", string(entry.Text))
}
