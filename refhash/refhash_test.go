package refhash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPackKmerRoundTrip(t *testing.T) {
	kmer := []byte("ACGTACGTACGTAC")
	require.Equal(t, KmerLen, len(kmer))
	key, ok := PackKmer(kmer)
	require.True(t, ok)

	_, ok = PackKmer([]byte("ACGTN"))
	require.False(t, ok)

	key2, ok := PackKmer([]byte("acgtacgtacgtac"))
	require.True(t, ok)
	require.Equal(t, key, key2)
}

func TestInsertLookup(t *testing.T) {
	tbl := NewTable(1000, 4)
	k1, _ := PackKmer([]byte("AAAAAAAAAAAAAA"))
	k2, _ := PackKmer([]byte("CCCCCCCCCCCCCC"))

	tbl.Insert(k1, 100)
	tbl.Insert(k2, 200)

	g1, ok := tbl.Lookup(k1)
	require.True(t, ok)
	require.Equal(t, uint64(100), g1)

	g2, ok := tbl.Lookup(k2)
	require.True(t, ok)
	require.Equal(t, uint64(200), g2)

	_, ok = tbl.Lookup(uint32(0xdeadbeef) & 0x0fffffff)
	_ = ok // may or may not collide; just must not panic
}

func TestInsertUpdatesExistingKey(t *testing.T) {
	tbl := NewTable(100, 4)
	k, _ := PackKmer([]byte("GGGGGGGGGGGGGG"))
	tbl.Insert(k, 1)
	tbl.Insert(k, 2)
	g, ok := tbl.Lookup(k)
	require.True(t, ok)
	require.Equal(t, uint64(2), g)
}

func TestNumLayers(t *testing.T) {
	tbl := NewTable(1000, 4)
	require.Equal(t, NumLayers, tbl.NumLayersInUse())
}
