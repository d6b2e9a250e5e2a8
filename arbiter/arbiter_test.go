package arbiter_test

import (
	"testing"

	"github.com/momentics/ucx-transports/arbiter"
	"github.com/stretchr/testify/require"
)

// step is a Dispatchable that requires `steps` ticks before it
// reports Done, recording the order in which items complete.
type step struct {
	name    string
	left    int
	log     *[]string
}

func (s *step) Dispatch() arbiter.Outcome {
	s.left--
	if s.left <= 0 {
		*s.log = append(*s.log, s.name)
		return arbiter.Done
	}
	return arbiter.Rescheduled
}

func TestFIFOWithinGroup(t *testing.T) {
	a := arbiter.New()
	g := arbiter.NewGroup()
	var log []string

	g.Push(&step{name: "r1", left: 1, log: &log})
	g.Push(&step{name: "r2", left: 1, log: &log})
	g.Push(&step{name: "r3", left: 1, log: &log})
	a.Schedule(g)

	for i := 0; i < 3; i++ {
		require.True(t, a.Tick())
	}
	require.Equal(t, []string{"r1", "r2", "r3"}, log)
	require.False(t, a.Tick())
}

func TestRoundRobinAcrossGroups(t *testing.T) {
	a := arbiter.New()
	var log []string

	g1 := arbiter.NewGroup()
	g1.Push(&step{name: "g1", left: 2, log: &log})
	a.Schedule(g1)

	g2 := arbiter.NewGroup()
	g2.Push(&step{name: "g2", left: 1, log: &log})
	a.Schedule(g2)

	a.Tick() // dispatches g1's first step (rescheduled)
	a.Tick() // dispatches g2's only step (done)
	a.Tick() // dispatches g1's second step (done)

	require.Equal(t, []string{"g2", "g1"}, log)
	require.False(t, a.Tick())
}

func TestScheduleIsIdempotentWhilePending(t *testing.T) {
	a := arbiter.New()
	g := arbiter.NewGroup()
	var log []string
	g.Push(&step{name: "only", left: 1, log: &log})

	a.Schedule(g)
	a.Schedule(g) // must not double-enqueue the group

	require.Equal(t, 1, a.Outstanding())
	require.True(t, a.Tick())
	require.False(t, a.Tick())
}
