package datatype

import (
	"testing"

	"github.com/divonlan/genozip-go/container"
	"github.com/divonlan/genozip-go/zcontext"
	"github.com/stretchr/testify/require"
)

type stubPlugin struct{ name string }

func (s stubPlugin) Name() string                             { return s.name }
func (stubPlugin) DataType() uint16                           { return 99 }
func (stubPlugin) HeaderLen([]byte) int                       { return 0 }
func (stubPlugin) SegTxtHeader(h []byte) ([]byte, error)      { return h, nil }
func (stubPlugin) Unconsumed([]byte) int                      { return 0 }
func (stubPlugin) SegVB(*zcontext.Table, []byte) (int, error) { return 0, nil }
func (stubPlugin) Toplevel() *container.Container             { return &container.Container{} }
func (stubPlugin) Specials() map[byte]container.SpecialFunc   { return nil }
func (stubPlugin) BuddyDictID() zcontext.DictID               { return 0 }
func (stubPlugin) ChromDictID() zcontext.DictID               { return 0 }
func (stubPlugin) RandomAccess(*zcontext.Table) (RandomAccessInfo, bool) {
	return RandomAccessInfo{}, false
}

func TestRegisterGetMustGet(t *testing.T) {
	Register(stubPlugin{name: "stub-for-test"})

	p, ok := Get("stub-for-test")
	require.True(t, ok)
	require.Equal(t, "stub-for-test", p.Name())

	require.NotPanics(t, func() { MustGet("stub-for-test") })
	require.Panics(t, func() { MustGet("no-such-plugin") })
}

func TestNamesSorted(t *testing.T) {
	Register(stubPlugin{name: "zzz-test"})
	Register(stubPlugin{name: "aaa-test"})

	names := Names()
	var lastIdx, zIdx, aIdx = -1, -1, -1
	for i, n := range names {
		if n == "zzz-test" {
			zIdx = i
		}
		if n == "aaa-test" {
			aIdx = i
		}
		lastIdx = i
	}
	require.GreaterOrEqual(t, lastIdx, 0)
	require.Less(t, aIdx, zIdx)
}

func TestGetUnknown(t *testing.T) {
	_, ok := Get("definitely-not-registered")
	require.False(t, ok)
}
