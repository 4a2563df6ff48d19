package samplugin

import (
	"bytes"
	"testing"

	"github.com/divonlan/genozip-go/buddy"
	"github.com/divonlan/genozip-go/container"
	"github.com/divonlan/genozip-go/datatype"
	"github.com/divonlan/genozip-go/zcontext"
	"github.com/stretchr/testify/require"
)

func sampleSAM() []byte {
	// A mate pair sharing QNAME "r1" and RNAME "chr1", followed by an
	// unrelated singleton read on "chr2".
	lines := [][]byte{
		[]byte("r1\t99\tchr1\t100\t60\t10M\t=\t200\t110\tACGTACGTAC\tIIIIIIIIII\n"),
		[]byte("r1\t147\tchr1\t200\t60\t10M\t=\t100\t-110\tTGCATGCATG\tIIIIIIIIII\tNM:i:0\n"),
		[]byte("r2\t0\tchr2\t50\t30\t10M\t*\t0\t0\tAAAAAAAAAA\tIIIIIIIIII\n"),
	}
	var buf bytes.Buffer
	for _, l := range lines {
		buf.Write(l)
	}
	return buf.Bytes()
}

func TestSegVBFieldCounts(t *testing.T) {
	p, ok := datatype.Get(Name)
	require.True(t, ok)

	table := zcontext.NewTable()
	n, err := p.SegVB(table, sampleSAM())
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestBuddyDeltaRecordedForMatePair(t *testing.T) {
	table := zcontext.NewTable()
	p, _ := datatype.Get(Name)
	_, err := p.SegVB(table, sampleSAM())
	require.NoError(t, err)

	bud := table.Get(buddyID)
	require.NotNil(t, bud)
	bud.FlushB250(zcontext.Enc8)

	tracker, err := buddy.BuildTracker(bud, 3)
	require.NoError(t, err)
	resolve := tracker.Resolver()

	buddyLine, ok := resolve(1, zcontext.BuddyMate)
	require.True(t, ok)
	require.Equal(t, 0, buddyLine)

	_, ok = resolve(0, zcontext.BuddyMate)
	require.False(t, ok)

	_, ok = resolve(2, zcontext.BuddyMate)
	require.False(t, ok)
}

func TestRNameCopyBuddyRoundTrip(t *testing.T) {
	p, _ := datatype.Get(Name)
	table := zcontext.NewTable()
	text := sampleSAM()
	n, err := p.SegVB(table, text)
	require.NoError(t, err)

	for _, ctx := range table.All() {
		ctx.FlushB250(zcontext.Enc8)
	}

	bud := table.Get(buddyID)
	tracker, err := buddy.BuildTracker(bud, n)
	require.NoError(t, err)

	// Reconstruction re-populates History as it goes, exactly like a
	// freshly loaded PIZ table would start with none; clear out the
	// Seg-time bookkeeping History so indices line up.
	table.Get(rnameID).History = zcontext.NewHistory()
	table.Get(qnameID).History = zcontext.NewHistory()

	top := *p.Toplevel()
	top.RepeatsConst = n
	engine := container.NewEngine(table, tracker.Resolver())
	engine.Specials = p.Specials()
	var out bytes.Buffer
	require.NoError(t, engine.Reconstruct(&top, &out))
	require.Equal(t, text, out.Bytes())
}

func TestHeaderLenSkipsAtLines(t *testing.T) {
	p, _ := datatype.Get(Name)
	data := []byte("@HD\tVN:1.6\n@SQ\tSN:chr1\tLN:1000\nr1\t0\tchr1\t1\t0\t*\t*\t0\t0\t*\t*\n")
	hl := p.HeaderLen(data)
	require.Equal(t, "@HD\tVN:1.6\n@SQ\tSN:chr1\tLN:1000\n", string(data[:hl]))
}
