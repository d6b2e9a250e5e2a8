package scopy

import (
	"github.com/momentics/ucx-transports/api"
	"github.com/momentics/ucx-transports/internal/iovec"
)

// PutZcopy submits a zero-copy PUT: iov's bytes are written to
// [remoteAddr, remoteAddr+len) on the peer ep is bound to.
func (ep *Endpoint) PutZcopy(iov []api.IovElem, remoteAddr, remoteKey uint64, completion api.Completion) api.Status {
	return ep.submit(api.OpPut, iov, remoteAddr, remoteKey, completion)
}

// GetZcopy submits a zero-copy GET: bytes are read from
// [remoteAddr, remoteAddr+len) on the peer into iov.
func (ep *Endpoint) GetZcopy(iov []api.IovElem, remoteAddr, remoteKey uint64, completion api.Completion) api.Status {
	return ep.submit(api.OpGet, iov, remoteAddr, remoteKey, completion)
}

func (ep *Endpoint) submit(op api.RmaOp, iov []api.IovElem, remoteAddr, remoteKey uint64, completion api.Completion) api.Status {
	cfg := ep.iface.cfg.Get()
	if len(iov) > cfg.MaxIOV {
		return api.StatusInvalidParam
	}

	normalized, total := iovec.Normalize(iov)

	// Zero-length submissions (including an iov of all zero-length
	// elements) complete synchronously without ever touching the
	// pool or the arbiter (spec.md §4.3, §8 boundary behaviors).
	if total == 0 {
		api.InvokeCompletion(completion, api.StatusOK)
		return api.StatusOK
	}

	tx, ok := ep.iface.txPool.Get()
	if !ok {
		return api.StatusNoMemory
	}

	tx.iface = ep.iface
	tx.ep = ep
	tx.op = op
	tx.iov = normalized
	tx.totalLength = total
	tx.consumedLen = 0
	tx.iter = api.IovIter{}
	tx.remoteAddr = remoteAddr
	tx.remoteKey = remoteKey
	tx.peerID = ep.peerID
	tx.completion = completion
	tx.flushSubs = nil
	tx.lastStatus = api.StatusInProgress

	ep.lastTx.Store(tx)
	ep.group.Push(tx)
	ep.iface.arb.Schedule(ep.group)
	ep.iface.outstanding.Add(1)

	return api.StatusInProgress
}

// Flush implements ep_flush: synchronously OK if the endpoint's group
// has no queued work; otherwise InProgress, attaching completion (if
// non-nil) as a flush subscriber on the endpoint's most recently
// submitted request. The subscriber fires exactly when that request
// terminates — not necessarily when the group fully drains, since by
// construction the group FIFO guarantees every earlier request has
// already terminated by then (spec.md §4.3).
func (ep *Endpoint) Flush(completion api.Completion) api.Status {
	if ep.group.Empty() {
		api.InvokeCompletion(completion, api.StatusOK)
		return api.StatusOK
	}
	if completion != nil {
		if tx := ep.lastTx.Load(); tx != nil {
			tx.AddFlushSubscriber(completion)
		}
	}
	return api.StatusInProgress
}
