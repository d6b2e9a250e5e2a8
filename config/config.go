// Package config defines the configuration record consumed by both
// transport cores and a typed, hot-reloadable store for the handful of
// fields that may change after an interface is already running.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package config

import "golang.org/x/sys/unix"

const (
	DefaultMaxIOV         = 16
	DefaultSegSize        = 512 * 1024 // 512 KiB, per spec.md §6
	DefaultTxPoolInitial  = 8
	DefaultTxPoolMax      = 4096
	DefaultMaxConnRetries = 3
	DefaultAmBufSize      = 64 * 1024 // per-endpoint TCP rx/tx scratch buffer
	DefaultAmShortSize    = 2048      // max am_short payload+header size
)

// Config is the shared configuration record described in spec.md §6.
// MaxIOV is clamped to the system's IOV_MAX at NewDefault time;
// SegSize is SCOPY-specific but harmless to carry on TCP-only configs
// (it is simply unused there).
type Config struct {
	MaxIOV          int
	SegSize         int
	BandwidthBps    uint64 // informational only; never consulted for scheduling
	TxPoolInitial   int
	TxPoolMax       int
	MaxConnRetries  int // TCP only
	ConnNonblocking bool // TCP only: whether the connected socket remains nonblocking
	AmBufSize       int  // TCP only: rx/tx scratch buffer size
	AmShortSize     int  // TCP only: max am_short (header+payload) size
}

// NewDefault returns a Config populated with spec.md §6's defaults,
// with MaxIOV clamped to the platform's IOV_MAX.
func NewDefault() Config {
	return Config{
		MaxIOV:          clampIOV(DefaultMaxIOV),
		SegSize:         DefaultSegSize,
		TxPoolInitial:   DefaultTxPoolInitial,
		TxPoolMax:       DefaultTxPoolMax,
		MaxConnRetries:  DefaultMaxConnRetries,
		ConnNonblocking: true,
		AmBufSize:       DefaultAmBufSize,
		AmShortSize:     DefaultAmShortSize,
	}
}

func clampIOV(want int) int {
	const iovMax = unix.IOV_MAX
	if want > iovMax {
		return iovMax
	}
	return want
}
