package scopy

import (
	"sync/atomic"

	"github.com/momentics/ucx-transports/arbiter"
)

// Endpoint is a communication handle bound to one remote peer on a
// ScopyInterface. It owns an arbiter group that serializes its own
// queued transactions FIFO, giving per-endpoint submission-order
// completion while the interface's arbiter round-robins fairly across
// every endpoint's group.
type Endpoint struct {
	iface  *Interface
	group  *arbiter.Group
	peerID uint64

	lastTx atomic.Pointer[Tx]
}

// NewEndpoint creates an endpoint bound to peerID (the remote process
// identifier the copy primitive will target) on iface.
func (iface *Interface) NewEndpoint(peerID uint64) *Endpoint {
	return &Endpoint{
		iface:  iface,
		group:  arbiter.NewGroup(),
		peerID: peerID,
	}
}
