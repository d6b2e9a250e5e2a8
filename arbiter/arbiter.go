// Package arbiter implements the single-threaded, cooperative,
// round-robin-over-groups scheduler that both the scopy engine and
// (conceptually) any other FIFO-per-endpoint subsystem can drive.
// spec.md §9 singles this out as "the cleanest abstraction to
// preserve verbatim" rather than reinvent per transport.
//
// Each group is a FIFO of Dispatchable work items belonging to one
// endpoint. Tick() picks the next runnable group, dispatches exactly
// one step of its head item, and either pops the item (Done) or
// leaves it at the head and sends the group to the tail of the
// rotation (Rescheduled) — giving every group a fair turn while
// preserving strict FIFO ordering of completions within a group.
//
// Grounded on the teacher's core/concurrency.Executor (round-robin
// local queues with a reschedule loop), generalized from worker
// goroutines pulling tasks to a single-threaded tick driven by
// iface_progress, and backed by github.com/eapache/queue for the FIFO
// storage exactly as the teacher's executor uses it for per-worker
// local queues.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package arbiter

import (
	"sync"

	"github.com/eapache/queue"
)

// Outcome is the verdict a Dispatchable returns after one dispatch
// step: whether it is finished (Done) or needs another tick later
// (Rescheduled).
type Outcome int

const (
	Done Outcome = iota
	Rescheduled
)

// Dispatchable is one unit of work queued on a Group. Dispatch must
// perform exactly one bounded step of work (e.g. one segment of an
// RMA request) and never block.
type Dispatchable interface {
	Dispatch() Outcome
}

// Group is a FIFO of Dispatchable items belonging to one owner (an
// endpoint). It has no behavior of its own beyond storage; the
// Arbiter owns scheduling and fairness.
type Group struct {
	q *queue.Queue
}

// NewGroup constructs an empty group.
func NewGroup() *Group {
	return &Group{q: queue.New()}
}

// Push appends item to the tail of the group's FIFO. It does not by
// itself make the group runnable — call Arbiter.Schedule after
// pushing to the first item in an otherwise-idle group.
func (g *Group) Push(item Dispatchable) {
	g.q.Add(item)
}

// Empty reports whether the group has no queued work.
func (g *Group) Empty() bool {
	return g.q.Length() == 0
}

// Len reports how many items are queued.
func (g *Group) Len() int {
	return g.q.Length()
}

// Arbiter is the round-robin scheduler over a dynamic set of Groups.
// It is not safe for concurrent Tick/Schedule calls from multiple
// goroutines simultaneously — by design, it is driven exclusively from
// the single progress thread (spec.md §5); the internal mutex exists
// only to let Schedule be called safely from, e.g., a submit path that
// itself always also runs on the progress thread in this module, but
// is kept defensive against future callers on a different goroutine.
type Arbiter struct {
	mu        sync.Mutex
	runnable  *queue.Queue
	scheduled map[*Group]struct{}
}

// New constructs an empty arbiter.
func New() *Arbiter {
	return &Arbiter{
		runnable:  queue.New(),
		scheduled: make(map[*Group]struct{}),
	}
}

// Schedule enqueues g into the round-robin rotation if it is not
// already scheduled. Safe to call redundantly — a group already
// pending a tick is not double-queued.
func (a *Arbiter) Schedule(g *Group) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, already := a.scheduled[g]; already {
		return
	}
	a.scheduled[g] = struct{}{}
	a.runnable.Add(g)
}

// Tick services one runnable group: pops it from the rotation,
// dispatches exactly one step of its head item, and reschedules
// either the group (Rescheduled, or Done with more work left) or
// nothing (Done and the group drained). It returns whether any work
// was actually dispatched, for iface_progress's event count.
func (a *Arbiter) Tick() bool {
	a.mu.Lock()
	if a.runnable.Length() == 0 {
		a.mu.Unlock()
		return false
	}
	g := a.runnable.Remove().(*Group)
	delete(a.scheduled, g)
	a.mu.Unlock()

	if g.Empty() {
		return false
	}

	head := g.q.Peek().(Dispatchable)
	switch head.Dispatch() {
	case Done:
		g.q.Remove()
		if !g.Empty() {
			a.Schedule(g)
		}
	case Rescheduled:
		a.Schedule(g)
	}
	return true
}

// Outstanding reports how many groups are currently scheduled (have
// at least one dispatch pending this rotation). It does not count
// groups that have queued work but are momentarily between ticks and
// not yet rescheduled — callers wanting "any work anywhere" should
// instead track outstanding request counts directly (see
// scopy.Interface.outstanding).
func (a *Arbiter) Outstanding() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.scheduled)
}
