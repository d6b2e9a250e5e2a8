// Package pool provides the bounded object arena the scopy engine
// draws Tx request objects from. It generalizes the teacher's
// pool/objpool.go (a sync.Pool wrapper with unbounded growth) into a
// pool with a hard ceiling, since the engine must be able to report
// StatusNoMemory to a caller rather than grow forever — spec.md §9's
// design note calls for "an arena per interface ... freed requests are
// returned to a free-list ... bounded by the interface's lifetime".
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package pool

import "sync"

// BoundedPool hands out values of *T up to Max outstanding at once.
// Initial controls how many are pre-allocated at construction; beyond
// that, Get allocates lazily via New until Max is reached, after which
// it reports exhaustion rather than growing further.
type BoundedPool[T any] struct {
	mu       sync.Mutex
	free     []*T
	new      func() *T
	reset    func(*T)
	max      int
	in       int // currently checked-out count; free-list entries are not included
	capacity int // total objects ever allocated by this pool (<= max)
}

// NewBounded constructs a pool that pre-allocates `initial` objects
// via newFn and never exceeds `max` objects outstanding. resetFn, if
// non-nil, is called on every object returned via Put before it is
// reused, to clear per-request state.
func NewBounded[T any](initial, max int, newFn func() *T, resetFn func(*T)) *BoundedPool[T] {
	if max <= 0 {
		max = initial
	}
	if initial > max {
		initial = max
	}
	p := &BoundedPool[T]{new: newFn, reset: resetFn, max: max}
	p.free = make([]*T, 0, initial)
	for i := 0; i < initial; i++ {
		p.free = append(p.free, newFn())
		p.capacity++
	}
	return p
}

// Get removes an object from the free-list, allocating a fresh one if
// the pool hasn't reached its capacity ceiling yet. ok is false when
// the pool is at max capacity and none are free — the caller should
// treat this as StatusNoMemory.
func (p *BoundedPool[T]) Get() (obj *T, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n := len(p.free); n > 0 {
		obj = p.free[n-1]
		p.free = p.free[:n-1]
		p.in++
		return obj, true
	}
	if p.capacity < p.max {
		p.capacity++
		p.in++
		return p.new(), true
	}
	return nil, false
}

// Put returns obj to the free-list after resetting it.
func (p *BoundedPool[T]) Put(obj *T) {
	if p.reset != nil {
		p.reset(obj)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.free = append(p.free, obj)
	p.in--
}

// Outstanding reports how many objects are currently checked out.
func (p *BoundedPool[T]) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.in
}
