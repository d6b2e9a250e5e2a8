package memtype

import "github.com/momentics/ucx-transports/api"

// EventKind distinguishes an allocation notification from a free
// notification in the memory-event stream a Cache subscribes to.
type EventKind int

const (
	EventAlloc EventKind = iota
	EventFree
)

// Event is one allocation/free notification delivered by the
// process-wide memory-event source. The source is global (every
// allocator in the process funnels through it) but each Cache only
// ever sees the events it subscribed to, via its own Handle — see
// DESIGN.md's note on avoiding global mutable state in the cache
// itself.
type Event struct {
	Kind    EventKind
	Address uint64
	Size    uint64
	MemKind api.MemKind
}

// Handler receives Events from the subscription the owning Cache
// registered with Source.Subscribe (or Attach).
type Handler func(Event)

// OnEvent applies ev to the cache: Alloc sets the region's kind,
// Free removes it. This is the function a caller wires as the
// Handler for this cache's subscription.
func (c *Cache) OnEvent(ev Event) {
	switch ev.Kind {
	case EventAlloc:
		c.Update(ev.Address, ev.Size, ev.MemKind)
	case EventFree:
		c.Remove(ev.Address, ev.Size)
	}
}
