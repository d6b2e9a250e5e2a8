// Package tcp implements the nonblocking, single-threaded TCP
// transport core: connection establishment (with symmetric
// tie-breaking for simultaneous connect), a per-interface connection
// map for reuse and collision detection, active-message framing over
// a plain TCP byte stream, and reactor-driven RX/TX progress.
//
// Grounded on src/uct/tcp/tcp_cm.c and tcp_ep.c: the conn_state
// machine, the magic-number-prefixed handshake, and the tie-break rule
// are ported close to the original control flow, generalized from the
// UCT endpoint/iface class hierarchy onto plain composed structs per
// spec.md §9's "manual inheritance -> composition" design note.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package tcp

// ConnState is the connection-establishment state of one TcpEndpoint.
type ConnState int

const (
	StateClosed ConnState = iota
	StateConnecting
	StateWaitingAck
	StateRecvMagic
	StateAccepting
	StateConnected
)

func (s ConnState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateConnecting:
		return "connecting"
	case StateWaitingAck:
		return "waiting-ack"
	case StateRecvMagic:
		return "recv-magic"
	case StateAccepting:
		return "accepting"
	case StateConnected:
		return "connected"
	default:
		return "invalid"
	}
}

// Caps is the set of directions an endpoint currently carries.
type Caps int

const (
	CapTX Caps = 1 << iota
	CapRX
)

func (c Caps) Has(bit Caps) bool { return c&bit != 0 }

// AmHandler receives one fully-framed active message's payload.
type AmHandler func(amID uint8, payload []byte)
