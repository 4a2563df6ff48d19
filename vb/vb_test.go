package vb

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPoolGetPutRoundTrip(t *testing.T) {
	p := NewPool(2)
	require.Equal(t, 2, p.Capacity())

	v1 := p.Get()
	v1.Reset(1, 0, 0)
	v1.TxtData = append(v1.TxtData, []byte("hello")...)

	v2 := p.Get()
	v2.Reset(2, 0, 5)
	require.NotSame(t, v1, v2)

	p.Put(v1)
	v3 := p.Get()
	require.Same(t, v1, v3)
}

func TestVBReset(t *testing.T) {
	v := &VB{}
	v.TxtData = append(v.TxtData, []byte("stale")...)
	v.NumLines = 7
	v.Reset(3, 1, 10)
	require.Equal(t, uint32(3), v.VBlockI)
	require.Equal(t, 0, v.NumLines)
	require.Empty(t, v.TxtData)
	require.NotNil(t, v.Table)
}
