// Package interval implements a half-open-interval-keyed ordered map
// with merge-on-insert-overlap comparator semantics: two overlapping
// intervals compare equal, so a balanced ordered tree keyed this way
// turns "does anything overlap [a,b)" into a single O(log n) lookup.
//
// This generalizes the original's opaque-comparator red-black tree
// (src/ucs/datastruct/rbtree.h, driven by left_of/right_of in
// src/ucs/sys/iovec.h) into a type-safe generic collection backed by
// google/btree's generic B-tree, per the REDESIGN FLAGS direction of
// replacing untyped comparator callbacks with a type-level contract.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package interval

import "fmt"

// Range is a half-open byte range [Base, Base+Len). Len must be > 0
// for any region actually stored in a Map; Map itself does not enforce
// this (callers validate at the API boundary they own).
type Range struct {
	Base uint64
	Len  uint64
}

// End returns the exclusive end of the range.
func (r Range) End() uint64 { return r.Base + r.Len }

// LeftOf reports whether r lies strictly to the left of other, i.e.
// r ends at or before other begins.
func (r Range) LeftOf(other Range) bool {
	return r.End() <= other.Base
}

// RightOf reports whether r lies strictly to the right of other.
func (r Range) RightOf(other Range) bool {
	return r.Base >= other.End()
}

// Overlaps reports whether r and other share at least one byte.
func (r Range) Overlaps(other Range) bool {
	return !r.LeftOf(other) && !r.RightOf(other)
}

func (r Range) String() string {
	return fmt.Sprintf("[0x%x, 0x%x)", r.Base, r.End())
}

// less is the strict weak ordering used to key the backing B-tree:
// overlapping ranges compare neither less-than-nor-greater-than each
// other (i.e. "equal" for ordering purposes), which is exactly the
// trick that makes Get(key) on the tree an overlap query.
func less(a, b Range) bool {
	return a.LeftOf(b)
}
