package tcp

import (
	"encoding/binary"

	"golang.org/x/sys/unix"

	"github.com/momentics/ucx-transports/api"
)

// AmShort sends a small active message: an 8-byte header followed by
// payload, framed and handed to the socket immediately if the TX
// buffer is free (uct_tcp_ep_am_short). Returns NoResource if the
// buffer is occupied; the caller should queue via PendingAdd.
func (iface *Interface) AmShort(ep *Endpoint, amID uint8, header uint64, payload []byte) api.Status {
	if amID == amIDCM {
		return api.StatusInvalidParam
	}
	limit := iface.cfg.Get().AmShortSize - amHeaderSize
	if 8+len(payload) > limit {
		return api.StatusInvalidParam
	}
	if !ep.canSend() {
		return api.StatusNoResource
	}

	body := make([]byte, 8+len(payload))
	binary.LittleEndian.PutUint64(body[:8], header)
	copy(body[8:], payload)

	iface.sendFrameNow(ep, amID, body)
	if ep.failed {
		return ep.lastStatus
	}
	return api.StatusOK
}

// AmBcopy sends an active message whose payload is produced in place
// by packCB into a scratch buffer sized to the interface's AM buffer
// (uct_tcp_ep_am_bcopy). Returns the packed length and OK, or
// NoResource if the TX buffer is occupied.
func (iface *Interface) AmBcopy(ep *Endpoint, amID uint8, packCB func(buf []byte) int) (int, api.Status) {
	if amID == amIDCM {
		return 0, api.StatusInvalidParam
	}
	if !ep.canSend() {
		return 0, api.StatusNoResource
	}

	scratch := make([]byte, iface.cfg.Get().AmBufSize-amHeaderSize)
	n := packCB(scratch)
	iface.sendFrameNow(ep, amID, scratch[:n])
	if ep.failed {
		return 0, ep.lastStatus
	}
	return n, api.StatusOK
}

// PendingAdd queues an already-encoded AM body to be sent once the TX
// buffer next drains (uct_tcp_ep_pending_add). Dispatched FIFO by
// txProgress/dispatchPending.
func (iface *Interface) PendingAdd(ep *Endpoint, amID uint8, body []byte) api.Status {
	ep.pending.push(pendingItem{amID: amID, payload: body})
	return api.StatusOK
}

// Flush implements ep_flush (spec.md §4.4.4): OK iff the TX buffer is
// free and the pending queue is empty. completion is invoked only when
// OK is returned; on InProgress it is not retained and never fires.
func (ep *Endpoint) Flush(completion api.Completion) api.Status {
	if ep.canSend() && ep.pending.empty() {
		api.InvokeCompletion(completion, api.StatusOK)
		return api.StatusOK
	}
	return api.StatusInProgress
}

// sendFrameNow encodes one frame into ep's TX buffer and attempts to
// drain it immediately, re-arming EPOLLOUT if the write is partial.
func (iface *Interface) sendFrameNow(ep *Endpoint, amID uint8, payload []byte) {
	frame := buildFrame(amID, payload)
	if cap(ep.tx.buf) < len(frame) {
		ep.tx.buf = make([]byte, len(frame))
	} else {
		ep.tx.buf = ep.tx.buf[:len(frame)]
	}
	copy(ep.tx.buf, frame)
	ep.tx.offset = 0
	ep.tx.length = len(frame)
	iface.outstandingBytes.Add(int64(len(frame)))

	iface.sendTxBuf(ep)
	if !ep.failed && !ep.tx.empty() {
		ep.modEvents(api.EventWrite, 0)
	}
}

// sendTxBuf drains as much of ep.tx as the socket accepts without
// blocking (uct_tcp_ep_send).
func (iface *Interface) sendTxBuf(ep *Endpoint) {
	n, err := unix.Write(ep.fd, ep.tx.buf[ep.tx.offset:ep.tx.length])
	if err != nil {
		if isWouldBlock(err) {
			return
		}
		ep.fail(api.StatusIOError)
		return
	}
	iface.outstandingBytes.Add(-int64(n))
	ep.tx.offset += n
	if !ep.tx.needProgress() {
		ep.tx.rewind()
	}
}

// txProgress handles a writable event on a Connected endpoint:
// (uct_tcp_ep_progress_tx) drain the TX buffer, then dispatch the
// pending queue FIFO while the buffer stays free, disarming EPOLLOUT
// once nothing remains to send.
func (iface *Interface) txProgress(ep *Endpoint) {
	if !ep.tx.empty() {
		iface.sendTxBuf(ep)
		if ep.failed {
			return
		}
	}
	iface.dispatchPending(ep)
}

func (iface *Interface) dispatchPending(ep *Endpoint) {
	for ep.canSend() {
		item, ok := ep.pending.pop()
		if !ok {
			break
		}
		iface.sendFrameNow(ep, item.amID, item.payload)
		if ep.failed {
			return
		}
	}
	if ep.canSend() {
		ep.modEvents(0, api.EventWrite)
	}
}
