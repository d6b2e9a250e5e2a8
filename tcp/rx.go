package tcp

import (
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/momentics/ucx-transports/api"
)

// rxProgress handles a readable event on a Connected endpoint
// (uct_tcp_ep_progress_rx): read whatever the socket has buffered,
// then parse as many complete frames as fit and dispatch each to its
// handler, compacting the buffer only when it has filled without a
// complete frame draining from the front.
func (iface *Interface) rxProgress(ep *Endpoint) {
	if ep.rx.length == len(ep.rx.buf) && ep.rx.offset > 0 {
		iface.compactRx(ep)
	}

	n, err := unix.Read(ep.fd, ep.rx.buf[ep.rx.length:])
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
	ep.rx.length += n

	for ep.rx.length-ep.rx.offset >= amHeaderSize {
		amID, length := decodeFrameHeader(ep.rx.buf[ep.rx.offset:])
		if ep.rx.length-ep.rx.offset < amHeaderSize+int(length) {
			break
		}
		start := ep.rx.offset + amHeaderSize
		end := start + int(length)
		payload := ep.rx.buf[start:end]
		ep.rx.offset = end
		iface.dispatchAM(ep, amID, payload)
		if ep.failed {
			return
		}
	}

	if !ep.rx.needProgress() {
		ep.rx.rewind()
	} else if ep.rx.length == len(ep.rx.buf) {
		iface.compactRx(ep)
	}
}

// compactRx slides the unparsed tail of ep.rx down to offset 0,
// reclaiming space consumed by frames already dispatched.
func (iface *Interface) compactRx(ep *Endpoint) {
	copy(ep.rx.buf, ep.rx.buf[ep.rx.offset:ep.rx.length])
	ep.rx.length -= ep.rx.offset
	ep.rx.offset = 0
}

// dispatchAM routes one received frame to its registered handler. A
// stray CM frame (am_id 0xFF) on an already-Connected endpoint is
// logged and dropped rather than treated as a protocol error, since a
// peer retransmitting a handshake frame after a race is harmless here.
func (iface *Interface) dispatchAM(ep *Endpoint, amID uint8, payload []byte) {
	if amID == amIDCM {
		iface.log.Debug("stray CM frame on connected endpoint", zap.Int("fd", ep.fd))
		return
	}
	handler, ok := iface.handlers[amID]
	if !ok {
		return
	}
	handler(amID, payload)
}
