package scopy

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/momentics/ucx-transports/api"
	"github.com/momentics/ucx-transports/arbiter"
	"github.com/momentics/ucx-transports/config"
	"github.com/momentics/ucx-transports/internal/xlog"
	"github.com/momentics/ucx-transports/pool"
)

// Interface is one SCOPY transport instance: it owns the arbiter all
// of its endpoints' groups are scheduled on, the bounded pool that Tx
// objects are drawn from, and the pluggable copy primitive that
// actually moves bytes.
type Interface struct {
	arb       *arbiter.Arbiter
	txPool    *pool.BoundedPool[Tx]
	primitive api.CopyPrimitive
	cfg       *config.Store
	log       *zap.Logger

	outstanding atomic.Int64
}

// New constructs a ScopyInterface bound to primitive, sized per cfg's
// tx pool bounds.
func New(primitive api.CopyPrimitive, cfg config.Config, log *zap.Logger) *Interface {
	if log == nil {
		log = xlog.Nop()
	}
	iface := &Interface{
		arb:       arbiter.New(),
		primitive: primitive,
		cfg:       config.NewStore(cfg),
		log:       log.Named("scopy"),
	}
	iface.txPool = pool.NewBounded(cfg.TxPoolInitial, cfg.TxPoolMax,
		func() *Tx { return &Tx{} },
		func(tx *Tx) { tx.reset() },
	)
	return iface
}

// Outstanding reports the number of in-flight (not yet completed)
// requests anywhere on this interface.
func (iface *Interface) Outstanding() int64 {
	return iface.outstanding.Load()
}

// Progress dispatches at most one segment of work — mirroring
// uct_scopy_iface_progress's "pull one tx, run it, return 1" contract
// — and returns the number of events processed (0 or 1), so an
// external progress driver calling this in a loop observes exactly
// one unit of forward progress per call regardless of how large the
// pending request is.
func (iface *Interface) Progress() int {
	if iface.arb.Tick() {
		return 1
	}
	return 0
}

// Flush implements iface_flush: synchronously OK if nothing is
// outstanding anywhere on the interface; otherwise InProgress, unless
// the caller supplied a completion, which spec.md §4.3 explicitly
// does not support for interface-wide flush (it would require
// broadcasting to every in-flight request).
func (iface *Interface) Flush(completion api.Completion) api.Status {
	if iface.outstanding.Load() == 0 {
		api.InvokeCompletion(completion, api.StatusOK)
		return api.StatusOK
	}
	if completion != nil {
		return api.StatusUnsupported
	}
	return api.StatusInProgress
}
