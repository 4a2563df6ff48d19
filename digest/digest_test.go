package digest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMD5InOrder(t *testing.T) {
	d := New(AlgorithmMD5)
	require.NoError(t, d.Update(1, []byte("chr1\t100\n")))
	require.NoError(t, d.Update(2, []byte("chr1\t200\n")))
	h, err := d.Finalize()
	require.NoError(t, err)
	require.NotEqual(t, Hash{}, h)
}

func TestMD5OutOfOrderMatchesInOrder(t *testing.T) {
	a := New(AlgorithmMD5)
	require.NoError(t, a.Update(1, []byte("AAA")))
	require.NoError(t, a.Update(2, []byte("BBB")))
	require.NoError(t, a.Update(3, []byte("CCC")))
	ha, err := a.Finalize()
	require.NoError(t, err)

	b := New(AlgorithmMD5)
	require.NoError(t, b.Update(3, []byte("CCC")))
	require.NoError(t, b.Update(1, []byte("AAA")))
	require.NoError(t, b.Update(2, []byte("BBB")))
	hb, err := b.Finalize()
	require.NoError(t, err)

	require.Equal(t, ha, hb)
}

func TestFinalizeFailsOnGap(t *testing.T) {
	d := New(AlgorithmMD5)
	require.NoError(t, d.Update(2, []byte("BBB")))
	_, err := d.Finalize()
	require.Error(t, err)
}

func TestRejectsReplay(t *testing.T) {
	d := New(AlgorithmMD5)
	require.NoError(t, d.Update(1, []byte("AAA")))
	require.Error(t, d.Update(1, []byte("AAA")))
}

func TestQuickCheckCommutative(t *testing.T) {
	var a, b QuickCheck
	a.Add(1, []byte("AAA"))
	a.Add(2, []byte("BBB"))
	b.Add(2, []byte("BBB"))
	b.Add(1, []byte("AAA"))
	require.Equal(t, a.Sum64(), b.Sum64())
}
