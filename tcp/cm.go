package tcp

import (
	"golang.org/x/sys/unix"

	"github.com/momentics/ucx-transports/api"
)

// connStart begins outbound connection establishment on a freshly
// created endpoint (tcp_cm.c's uct_tcp_cm_conn_start).
func (iface *Interface) connStart(ep *Endpoint) {
	inProgress, err := connectNB(ep.fd, ep.peerAddr)
	if err != nil {
		ep.fail(api.StatusUnreachable)
		return
	}
	if inProgress {
		ep.setState(StateConnecting)
		ep.modEvents(api.EventWrite, 0)
		return
	}

	// Connected immediately (e.g. loopback): go straight to the
	// request/ack handshake.
	if err := iface.cmSendConnReq(ep); err != nil {
		ep.fail(api.StatusIOError)
		return
	}
	ep.setState(StateWaitingAck)
	ep.modEvents(api.EventRead, api.EventWrite)
}

// onWritable dispatches a writable event by connection state.
func (iface *Interface) onWritable(ep *Endpoint) {
	switch ep.state {
	case StateConnecting:
		iface.cmConnProgress(ep)
	case StateConnected:
		iface.txProgress(ep)
	}
}

// onReadable dispatches a readable event by connection state.
func (iface *Interface) onReadable(ep *Endpoint) {
	switch ep.state {
	case StateWaitingAck:
		iface.cmRecvAck(ep)
	case StateRecvMagic:
		iface.cmRecvMagic(ep)
	case StateAccepting:
		iface.cmRecvConnReq(ep)
	case StateConnected:
		iface.rxProgress(ep)
	}
}

// cmConnProgress handles the writable event that follows a
// nonblocking connect(2) (tcp_cm.c's uct_tcp_cm_conn_progress).
func (iface *Interface) cmConnProgress(ep *Endpoint) {
	if err := socketError(ep.fd); err != nil {
		iface.retryOrFail(ep)
		return
	}
	if err := iface.cmSendConnReq(ep); err != nil {
		ep.fail(api.StatusIOError)
		return
	}
	ep.setState(StateWaitingAck)
	ep.modEvents(api.EventRead, api.EventWrite)
}

// retryOrFail reissues the connect on a fresh socket up to
// MaxConnRetries times before permanently failing the endpoint.
func (iface *Interface) retryOrFail(ep *Endpoint) {
	ep.retries++
	if ep.retries > iface.cfg.Get().MaxConnRetries {
		ep.fail(api.StatusTimedOut)
		return
	}

	oldFD := ep.fd
	_ = iface.reactor.Unregister(uintptr(oldFD))
	unix.Close(oldFD)
	delete(iface.endpoints, oldFD)

	fd, err := newNonblockingSocket()
	if err != nil {
		ep.fail(api.StatusUnreachable)
		return
	}
	ep.fd = fd
	ep.events = 0
	iface.endpoints[fd] = ep
	iface.connStart(ep)
}

func (iface *Interface) cmSendConnReq(ep *Endpoint) error {
	payload := encodeConnReq(cmEventConnReq, iface.localAddr, ep.localConnID)
	frame := ep.frameWithMagicPrefix(buildFrame(amIDCM, payload))
	return sendAllBlocking(ep.fd, frame)
}

// cmSendConnAck and cmSendConnAckReq answer on an accepted socket, so
// they never carry the magic prefix: only the initiator sends it.
func (iface *Interface) cmSendConnAck(ep *Endpoint) error {
	frame := buildFrame(amIDCM, encodeConnAck())
	return sendAllBlocking(ep.fd, frame)
}

func (iface *Interface) cmSendConnAckReq(ep *Endpoint) error {
	payload := encodeConnReq(cmEventConnAckReq, iface.localAddr, ep.localConnID)
	frame := buildFrame(amIDCM, payload)
	return sendAllBlocking(ep.fd, frame)
}

// cmRecvMagic consumes the 8-byte magic prefix an acceptor expects on
// the first bytes of a new connection, one nonblocking read at a
// time so a slow sender doesn't stall the reactor.
func (iface *Interface) cmRecvMagic(ep *Endpoint) {
	n, err := unix.Read(ep.fd, ep.rx.buf[ep.magicRecvd:magicSize])
	if err != nil {
		if isWouldBlock(err) {
			return
		}
		ep.fail(api.StatusIOError)
		return
	}
	if n == 0 {
		ep.fail(api.StatusUnreachable)
		return
	}
	ep.magicRecvd += n
	if ep.magicRecvd < magicSize {
		return
	}
	if decodeMagic(ep.rx.buf[:magicSize]) != magicNumber {
		ep.fail(api.StatusUnreachable)
		return
	}
	ep.rx.rewind()
	ep.setState(StateAccepting)
}

// readOneControlFrame reads whatever is available into ep.rx and
// returns the first complete {am_id, payload} frame once fully
// buffered. It is shared by the WaitingAck and Accepting states,
// which each expect exactly one control frame before the connection
// either becomes Connected or is torn down.
func (iface *Interface) readOneControlFrame(ep *Endpoint) (amID uint8, payload []byte, ok bool) {
	n, err := unix.Read(ep.fd, ep.rx.buf[ep.rx.length:])
	if err != nil {
		if isWouldBlock(err) {
			return 0, nil, false
		}
		ep.fail(api.StatusIOError)
		return 0, nil, false
	}
	if n == 0 {
		ep.fail(api.StatusUnreachable)
		return 0, nil, false
	}
	ep.rx.length += n

	if ep.rx.length-ep.rx.offset < amHeaderSize {
		return 0, nil, false
	}
	id, length := decodeFrameHeader(ep.rx.buf[ep.rx.offset:])
	if ep.rx.length-ep.rx.offset < amHeaderSize+int(length) {
		return 0, nil, false
	}

	start := ep.rx.offset + amHeaderSize
	payload = append([]byte(nil), ep.rx.buf[start:start+int(length)]...)
	ep.rx.rewind()
	return id, payload, true
}

// cmRecvConnReq handles the acceptor-side CONN_REQ, including the
// simultaneous-connect tie-break (tcp_cm.c's
// uct_tcp_cm_conn_req_rx_progress, spec.md §4.4.1).
func (iface *Interface) cmRecvConnReq(ep *Endpoint) {
	amID, payload, ok := iface.readOneControlFrame(ep)
	if !ok || ep.failed {
		return
	}
	if amID != amIDCM || len(payload) == 0 || payload[0] != cmEventConnReq {
		ep.fail(api.StatusUnreachable)
		return
	}

	peerIfaceAddr, peerConnID := decodeConnReq(payload)
	ep.peerAddr = peerIfaceAddr
	ep.hasPeer = true

	withRX, withoutRX := iface.conns.findForPeer(peerIfaceAddr)
	if withRX != nil {
		iface.destroyEndpoint(ep)
		return
	}

	if withoutRX != nil && !iface.localAddr.Equal(peerIfaceAddr) {
		if iface.localAddr.Less(peerIfaceAddr) {
			iface.spliceTieBreak(withoutRX, ep)
		} else {
			// We are the larger side: our own outbound CONN_REQ
			// will be answered normally by the peer, which is the
			// smaller side and will accept this connection.
			iface.destroyEndpoint(ep)
		}
		return
	}

	ep.localConnID = iface.conns.nextConnID(peerIfaceAddr)
	iface.conns.register(peerIfaceAddr, ep.localConnID, ep)
	_ = peerConnID // only needed for diagnostics; our map keys on our own counter

	if err := iface.cmSendConnAck(ep); err != nil {
		ep.fail(api.StatusIOError)
		return
	}
	ep.caps = CapTX | CapRX
	ep.setState(StateConnected)
	ep.modEvents(api.EventRead, api.EventWrite)
	iface.dispatchPending(ep)
}

// spliceTieBreak is the smaller-address side of the tie-break: donor
// is this side's own outbound endpoint (still WaitingAck); accepted
// is the freshly accepted socket from the peer's outbound connect.
// donor keeps living, now carrying accepted's fd; accepted's fd is
// set to the "no fd" sentinel so its destruction never closes a file
// descriptor donor now owns (spec.md §5, "fd ownership is transferred
// atomically").
func (iface *Interface) spliceTieBreak(donor, accepted *Endpoint) {
	oldFD := donor.fd
	acceptedFD := accepted.fd

	_ = iface.reactor.Unregister(uintptr(oldFD))
	unix.Close(oldFD)
	delete(iface.endpoints, oldFD)

	donor.fd = acceptedFD
	donor.events = 0
	iface.endpoints[acceptedFD] = donor
	accepted.fd = -1

	if err := iface.cmSendConnAckReq(donor); err != nil {
		donor.fail(api.StatusIOError)
		return
	}
	donor.caps = CapTX | CapRX
	donor.setState(StateConnected)
	donor.modEvents(api.EventRead, api.EventWrite)
	iface.dispatchPending(donor)
}

// cmRecvAck handles the initiator-side CONN_ACK / CONN_ACK|CONN_REQ.
func (iface *Interface) cmRecvAck(ep *Endpoint) {
	amID, payload, ok := iface.readOneControlFrame(ep)
	if !ok || ep.failed {
		return
	}
	if amID != amIDCM || len(payload) == 0 {
		ep.fail(api.StatusUnreachable)
		return
	}

	switch payload[0] {
	case cmEventConnAck:
		ep.caps = CapTX | CapRX
	case cmEventConnAckReq:
		ep.caps = CapTX | CapRX
	default:
		ep.fail(api.StatusUnreachable)
		return
	}

	ep.setState(StateConnected)
	ep.modEvents(api.EventRead, api.EventWrite)
	iface.dispatchPending(ep)
}

// handleIncomingConn wraps a freshly accepted fd in a new endpoint,
// awaiting the magic-number prefix before it trusts anything read
// from it.
func (iface *Interface) handleIncomingConn(_ Addr, fd int) {
	ep := newEndpoint(iface, fd)
	iface.endpoints[fd] = ep
	ep.setState(StateRecvMagic)
	ep.modEvents(api.EventRead, 0)
}

func isWouldBlock(err error) bool {
	return err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR
}
