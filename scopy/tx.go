// Package scopy implements the generic segmented RMA engine: it
// fragments zero-copy GET/PUT requests into seg_size-bounded
// invocations of a pluggable api.CopyPrimitive, schedules them fairly
// across endpoints via arbiter.Arbiter, and drives per-operation
// flush semantics.
//
// Grounded on src/uct/sm/scopy/base/scopy_ep.c and scopy_iface.c (the
// mpool-backed tx object, one-tx-dispatched-per-progress-call loop,
// flush-iff-tx_cnt-zero), generalized per spec.md §4.3 to carry a
// segmentation cursor and a list of flush subscribers instead of the
// original's single-shot, un-segmented tx_fn dispatch.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package scopy

import (
	"github.com/momentics/ucx-transports/api"
	"github.com/momentics/ucx-transports/arbiter"
)

// Tx is one queued RMA work item. It implements arbiter.Dispatchable:
// each Dispatch call performs exactly one segment of the transfer via
// the owning interface's copy primitive.
type Tx struct {
	iface *Interface
	ep    *Endpoint

	op            api.RmaOp
	iov           []api.IovElem
	totalLength   int
	consumedLen   int
	iter          api.IovIter
	remoteAddr    uint64
	remoteKey     uint64
	peerID        uint64
	completion    api.Completion
	flushSubs     []api.Completion
	lastStatus    api.Status
}

// reset clears a Tx for reuse from the pool. Called by pool.BoundedPool
// on Put, after the Tx has left its group. The endpoint's lastTx may
// still point at it; Endpoint.Flush only follows lastTx while the
// group has queued work.
func (t *Tx) reset() {
	t.iface = nil
	t.ep = nil
	t.iov = nil
	t.totalLength = 0
	t.consumedLen = 0
	t.iter = api.IovIter{}
	t.remoteAddr = 0
	t.remoteKey = 0
	t.peerID = 0
	t.completion = nil
	t.flushSubs = nil
	t.lastStatus = api.StatusOK
}

// AddFlushSubscriber attaches comp to fire when this Tx terminates.
// Subscribers fire, in FIFO order, immediately after the primary
// completion.
func (t *Tx) AddFlushSubscriber(comp api.Completion) {
	t.flushSubs = append(t.flushSubs, comp)
}

// Dispatch performs one segment of this Tx's transfer: it computes
// seg_size = min(cfg.SegSize, total-consumed), invokes the interface's
// copy primitive, and folds the result through comp_tx (spec.md §4.3).
func (t *Tx) Dispatch() arbiter.Outcome {
	cfg := t.iface.cfg.Get()
	remaining := t.totalLength - t.consumedLen
	segLen := cfg.SegSize
	if segLen > remaining {
		segLen = remaining
	}

	seg := api.CopySegment{
		Iov:        t.iov,
		Iter:       t.iter,
		Length:     segLen,
		RemoteAddr: t.remoteAddr + uint64(t.consumedLen),
		RemoteKey:  t.remoteKey,
		Op:         t.op,
		PeerID:     t.peerID,
	}

	nextIter, moved, status := t.iface.primitive.Copy(seg)
	t.iter = nextIter
	return t.compTx(status, moved)
}

// compTx folds one segment's result into the request's running state,
// firing completions when the request terminates.
func (t *Tx) compTx(status api.Status, moved int) arbiter.Outcome {
	t.consumedLen += moved
	t.lastStatus = status

	if status.IsError() || t.consumedLen == t.totalLength {
		t.terminate(status)
		return arbiter.Done
	}
	return arbiter.Rescheduled
}

// terminate fires the primary completion, then every flush subscriber
// in FIFO order, then returns this Tx to the interface's pool and
// decrements the outstanding-request counter. The engine never drops
// a completion (spec.md §4.3, "Failure semantics").
func (t *Tx) terminate(status api.Status) {
	api.InvokeCompletion(t.completion, status)
	for _, sub := range t.flushSubs {
		api.InvokeCompletion(sub, status)
	}
	t.iface.outstanding.Add(-1)
	t.iface.txPool.Put(t)
}
