package tcp

import (
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/momentics/ucx-transports/api"
)

// Endpoint is one TCP connection's state: its socket, the connection
// state machine, the capabilities it currently carries (TX, RX, or
// both after tie-break splicing), and its framing buffers.
type Endpoint struct {
	iface *Interface

	fd int

	peerAddr    Addr
	hasPeer     bool
	localConnID uint32 // conn_id this side allocated for this endpoint (outbound or accepted)

	state ConnState
	caps  Caps

	tx ioCtx
	rx ioCtx

	pending *pendingQueue

	events     api.FDEventType
	retries    int
	magicSent  bool
	magicRecvd int // bytes of the 8-byte magic prefix consumed so far

	failed     bool
	lastStatus api.Status
}

func newEndpoint(iface *Interface, fd int) *Endpoint {
	return &Endpoint{
		iface:   iface,
		fd:      fd,
		pending: newPendingQueue(),
		tx:      ioCtx{buf: make([]byte, 0, iface.cfg.Get().AmBufSize)},
		rx:      ioCtx{buf: make([]byte, iface.cfg.Get().AmBufSize)},
	}
}

// canSend reports whether the endpoint has completed its handshake
// and its TX buffer is free to accept a new frame
// (uct_tcp_ep_can_send). An endpoint still mid-handshake must never
// have an application frame written onto its socket ahead of the CM
// frames the state machine itself is still exchanging.
func (ep *Endpoint) canSend() bool {
	return ep.state == StateConnected && ep.tx.empty()
}

// modEvents updates the reactor's interest set for this endpoint's
// fd, adding `add` and clearing `remove`, issuing epoll_ctl only when
// the effective mask actually changes (uct_tcp_ep_mod_events).
func (ep *Endpoint) modEvents(add, remove api.FDEventType) {
	old := ep.events
	next := (old | add) &^ remove

	if next == old {
		return
	}
	ep.events = next

	if next == 0 {
		_ = ep.iface.reactor.Unregister(uintptr(ep.fd))
		return
	}
	if old == 0 {
		_ = ep.iface.reactor.Register(uintptr(ep.fd), next, ep.iface.onFDEvent)
		return
	}
	_ = ep.iface.reactor.Modify(uintptr(ep.fd), next)
}

// setState transitions the endpoint's connection state, logging the
// transition the way tcp_cm.c's uct_tcp_cm_change_conn_state does.
func (ep *Endpoint) setState(next ConnState) {
	prev := ep.state
	ep.state = next
	ep.iface.log.Debug("connection state change",
		zap.Int("fd", ep.fd), zap.String("from", prev.String()), zap.String("to", next.String()))
}

// fail marks the endpoint permanently failed with status and removes
// it from the reactor. The interface then removes it from its
// connection map and table (destroyEndpoint). Sends still queued on
// the pending queue are dropped with the endpoint; they carry no
// completion, so nothing is notified of the failure.
func (ep *Endpoint) fail(status api.Status) {
	if ep.failed {
		return
	}
	ep.failed = true
	ep.lastStatus = status
	ep.setState(StateClosed)
	if ep.events != 0 {
		_ = ep.iface.reactor.Unregister(uintptr(ep.fd))
		ep.events = 0
	}
}

// frameWithMagicPrefix prepends the 8-byte magic number to frame if
// this endpoint has never sent anything on its socket before,
// matching tcp_cm.c's "magic number on the very first send" rule.
func (ep *Endpoint) frameWithMagicPrefix(frame []byte) []byte {
	if ep.magicSent {
		return frame
	}
	out := make([]byte, magicSize+len(frame))
	encodeMagic(out[:magicSize])
	copy(out[magicSize:], frame)
	ep.magicSent = true
	return out
}

// close releases the fd. The sentinel value -1 marks an accepted
// endpoint whose fd was already spliced onto this side's outbound
// (donor) endpoint during simultaneous-connect tie-break, preventing a
// double-close.
func (ep *Endpoint) close() {
	if ep.fd == -1 {
		return
	}
	_ = unix.Close(ep.fd)
	ep.fd = -1
}
