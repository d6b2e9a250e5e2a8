package interval_test

import (
	"testing"

	"github.com/momentics/ucx-transports/internal/interval"
	"github.com/stretchr/testify/require"
)

func TestFindReturnsOverlapping(t *testing.T) {
	m := interval.New[string]()
	m.Insert(interval.Range{Base: 0x1000, Len: 0x1000}, "accel")

	_, v, ok := m.Find(interval.Range{Base: 0x1800, Len: 4})
	require.True(t, ok)
	require.Equal(t, "accel", v)

	_, _, ok = m.Find(interval.Range{Base: 0x2000, Len: 4})
	require.False(t, ok)
}

func TestBoundaryLookup(t *testing.T) {
	m := interval.New[string]()
	m.Insert(interval.Range{Base: 0x1000, Len: 0x1000}, "accel")

	_, _, ok := m.Find(interval.Range{Base: 0x1FFF, Len: 1})
	require.True(t, ok, "last byte of region should still overlap")

	_, _, ok = m.Find(interval.Range{Base: 0x2000, Len: 1})
	require.False(t, ok, "one byte past the end must not overlap")
}

func TestEraseAndFirst(t *testing.T) {
	m := interval.New[int]()
	m.Insert(interval.Range{Base: 0, Len: 10}, 1)
	m.Insert(interval.Range{Base: 20, Len: 10}, 2)
	require.Equal(t, 2, m.Len())

	r, v, ok := m.First()
	require.True(t, ok)
	require.Equal(t, uint64(0), r.Base)
	require.Equal(t, 1, v)

	require.True(t, m.Erase(interval.Range{Base: 0, Len: 10}))
	require.False(t, m.Erase(interval.Range{Base: 0, Len: 10}))
	require.Equal(t, 1, m.Len())
}

func TestInsertOverlapPanics(t *testing.T) {
	m := interval.New[int]()
	m.Insert(interval.Range{Base: 0, Len: 10}, 1)
	require.Panics(t, func() {
		m.Insert(interval.Range{Base: 5, Len: 10}, 2)
	})
}

func TestAscendOrdering(t *testing.T) {
	m := interval.New[int]()
	m.Insert(interval.Range{Base: 100, Len: 10}, 3)
	m.Insert(interval.Range{Base: 0, Len: 10}, 1)
	m.Insert(interval.Range{Base: 50, Len: 10}, 2)

	var bases []uint64
	m.Ascend(func(r interval.Range, v int) bool {
		bases = append(bases, r.Base)
		return true
	})
	require.Equal(t, []uint64{0, 50, 100}, bases)
}
