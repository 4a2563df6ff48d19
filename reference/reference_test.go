package reference

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRangePutBaseAndGPos(t *testing.T) {
	r := NewRange("chr1", 0, 1, 4)
	r.PutBase('A')
	r.PutBase('C')
	r.PutGap()
	r.PutBase('T')

	b, ok := r.BaseAt(0)
	require.True(t, ok)
	require.EqualValues(t, 'A', b)

	_, ok = r.BaseAt(2)
	require.False(t, ok)

	require.Equal(t, uint64(4), r.Len())
}

func TestGenomeFinalizeAssignsGPos(t *testing.T) {
	g := NewGenome()
	r1 := NewRange("chr1", 0, 1, 3)
	r1.PutBase('A')
	r1.PutBase('C')
	r1.PutBase('G')
	require.NoError(t, g.AddRange(r1))

	r2 := NewRange("chr2", 1, 1, 2)
	r2.PutBase('T')
	r2.PutBase('A')
	require.NoError(t, g.AddRange(r2))

	g.Finalize()
	require.Equal(t, uint64(0), r1.GPosStart)
	require.Equal(t, uint64(3), r2.GPosStart)
	require.Equal(t, uint64(4), r2.GPos(2))
	require.Equal(t, uint64(5), g.TotalLen())
}

func TestGenomeDigestStableAcrossInsertOrder(t *testing.T) {
	g1 := NewGenome()
	r1 := NewRange("chr1", 0, 1, 1)
	r1.PutBase('A')
	r2 := NewRange("chr2", 1, 1, 1)
	r2.PutBase('C')
	require.NoError(t, g1.AddRange(r1))
	require.NoError(t, g1.AddRange(r2))

	g2 := NewGenome()
	r2b := NewRange("chr2", 1, 1, 1)
	r2b.PutBase('C')
	r1b := NewRange("chr1", 0, 1, 1)
	r1b.PutBase('A')
	require.NoError(t, g2.AddRange(r2b))
	require.NoError(t, g2.AddRange(r1b))

	require.Equal(t, g1.Digest(), g2.Digest())
}

func TestAddRangeDuplicateRejected(t *testing.T) {
	g := NewGenome()
	require.NoError(t, g.AddRange(NewRange("chr1", 0, 1, 1)))
	require.Error(t, g.AddRange(NewRange("chr1", 0, 1, 1)))
}
