package genericdt

import (
	"bytes"
	"testing"

	"github.com/divonlan/genozip-go/container"
	"github.com/divonlan/genozip-go/datatype"
	"github.com/divonlan/genozip-go/zcontext"
	"github.com/stretchr/testify/require"
)

func TestGenericRoundTrip(t *testing.T) {
	p, ok := datatype.Get(GenericName)
	require.True(t, ok)

	text := []byte("line one\nline two\nline three")
	table := zcontext.NewTable()
	n, err := p.SegVB(table, text)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	for _, ctx := range table.All() {
		ctx.FlushB250(zcontext.Enc8)
	}

	top := *p.Toplevel()
	top.RepeatsConst = n
	engine := container.NewEngine(table, nil)
	var out bytes.Buffer
	require.NoError(t, engine.Reconstruct(&top, &out))
	require.Equal(t, text, out.Bytes())
}

func TestFastaRoundTrip(t *testing.T) {
	p, ok := datatype.Get(FastaName)
	require.True(t, ok)

	text := []byte(">seq1 desc\nACGT\nACGT\n>seq2\nTTTT\n")
	table := zcontext.NewTable()
	n, err := p.SegVB(table, text)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	for _, ctx := range table.All() {
		ctx.FlushB250(zcontext.Enc8)
	}

	top := *p.Toplevel()
	top.RepeatsConst = n
	engine := container.NewEngine(table, nil)
	var out bytes.Buffer
	require.NoError(t, engine.Reconstruct(&top, &out))
	require.Equal(t, text, out.Bytes())
}

func TestFastaUnconsumedKeepsPartialDescLine(t *testing.T) {
	p, _ := datatype.Get(FastaName)
	chunk := []byte(">seq1 desc\nACGT\n>partial-nex")
	require.Equal(t, len(">partial-nex"), p.Unconsumed(chunk))
}
