package interval

import (
	"fmt"

	"github.com/google/btree"
)

const treeDegree = 32

// entry is one stored region: its key range plus the opaque value the
// caller attached to it (a memory kind, in the memtype cache).
type entry[V any] struct {
	Range Range
	Value V
}

// Map is an ordered, interval-keyed collection in which no two stored
// regions may overlap (callers — MemTypeCache — are responsible for
// enforcing that invariant via Update's split-and-reinsert algorithm;
// Map itself only refuses to silently corrupt state, see Insert).
type Map[V any] struct {
	tree *btree.BTreeG[entry[V]]
	n    int
}

// New constructs an empty interval map.
func New[V any]() *Map[V] {
	cmp := func(a, b entry[V]) bool { return less(a.Range, b.Range) }
	return &Map[V]{tree: btree.NewG(treeDegree, cmp)}
}

// Len returns the number of stored regions.
func (m *Map[V]) Len() int { return m.n }

// IsEmpty reports whether the map holds no regions.
func (m *Map[V]) IsEmpty() bool { return m.n == 0 }

// Insert adds a region. The caller must ensure r does not overlap any
// region already present; Insert panics on that violation since it
// signals a bug in the caller's split logic, not a recoverable runtime
// condition (the original's insert() has no such check because the
// untyped rbtree blindly accepts the comparator's verdict — this is
// the one place this port intentionally fails louder).
func (m *Map[V]) Insert(r Range, value V) {
	key := entry[V]{Range: r, Value: value}
	if existing, found := m.tree.Get(key); found {
		panic(fmt.Sprintf("interval: Insert(%s) overlaps existing region %s", r, existing.Range))
	}
	m.tree.ReplaceOrInsert(key)
	m.n++
}

// Find returns some region overlapping r, and whether one exists. When
// r spans several stored regions, which one is returned is not defined;
// use FindLeftmost for the smallest-Base one.
func (m *Map[V]) Find(r Range) (Range, V, bool) {
	key := entry[V]{Range: r}
	got, ok := m.tree.Get(key)
	if !ok {
		var zero V
		return Range{}, zero, false
	}
	return got.Range, got.Value, true
}

// FindLeftmost returns the smallest-Base region overlapping r.
func (m *Map[V]) FindLeftmost(r Range) (Range, V, bool) {
	var (
		got   entry[V]
		found bool
	)
	// Stored regions are disjoint and ordered, so the first one ending
	// after r.Base is the only leftmost candidate.
	pivot := entry[V]{Range: Range{Base: r.Base, Len: 1}}
	m.tree.AscendGreaterOrEqual(pivot, func(e entry[V]) bool {
		got, found = e, e.Range.Overlaps(r)
		return false
	})
	if !found {
		var zero V
		return Range{}, zero, false
	}
	return got.Range, got.Value, true
}

// Erase removes the region with the given exact key range. It reports
// whether a region was removed.
func (m *Map[V]) Erase(r Range) bool {
	key := entry[V]{Range: r}
	_, ok := m.tree.Delete(key)
	if ok {
		m.n--
	}
	return ok
}

// Ascend calls fn for every stored region in ascending Base order,
// stopping early if fn returns false.
func (m *Map[V]) Ascend(fn func(r Range, value V) bool) {
	m.tree.Ascend(func(e entry[V]) bool {
		return fn(e.Range, e.Value)
	})
}

// First returns the lowest-Base region, if any. Used by the drain
// loop in MemTypeCache.Close to avoid the original's
// iterate-while-freeing hazard (see DESIGN.md / spec §9).
func (m *Map[V]) First() (Range, V, bool) {
	got, ok := m.tree.Min()
	if !ok {
		var zero V
		return Range{}, zero, false
	}
	return got.Range, got.Value, true
}
