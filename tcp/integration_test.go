package tcp_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/momentics/ucx-transports/api"
	"github.com/momentics/ucx-transports/config"
	"github.com/momentics/ucx-transports/tcp"
)

// driveUntil pumps both interfaces' progress loops until cond returns
// true or the deadline elapses, returning whether cond was satisfied.
func driveUntil(t *testing.T, deadline time.Time, cond func() bool, ifaces ...*tcp.Interface) bool {
	t.Helper()
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		for _, iface := range ifaces {
			iface.Progress(5)
		}
	}
	return cond()
}

func TestOrdinaryConnectAndAmRoundTrip(t *testing.T) {
	cfg := config.NewDefault()

	ifaceA, err := tcp.New(tcp.NewAddr(127, 0, 0, 1, 28181), cfg, nil)
	require.NoError(t, err)
	defer ifaceA.Close()

	ifaceB, err := tcp.New(tcp.NewAddr(127, 0, 0, 1, 28182), cfg, nil)
	require.NoError(t, err)
	defer ifaceB.Close()

	received := make(chan []byte, 1)
	ifaceB.RegisterHandler(1, func(_ uint8, payload []byte) {
		received <- append([]byte(nil), payload...)
	})

	ep, err := ifaceA.Connect(ifaceB.LocalAddr())
	require.NoError(t, err)

	// Queue the message before the handshake has had a chance to
	// complete: it must sit in the pending queue and drain
	// automatically once ep reaches Connected (spec.md §8 scenario 5).
	require.Equal(t, api.StatusOK, ifaceA.PendingAdd(ep, 1, []byte("hello")))

	deadline := time.Now().Add(3 * time.Second)
	ok := driveUntil(t, deadline, func() bool { return len(received) == 1 }, ifaceA, ifaceB)
	require.True(t, ok, "expected AM to be delivered before the deadline")
	require.Equal(t, []byte("hello"), <-received)
}

func TestSimultaneousConnectBothSidesEndUpConnected(t *testing.T) {
	cfg := config.NewDefault()

	ifaceA, err := tcp.New(tcp.NewAddr(127, 0, 0, 1, 28183), cfg, nil)
	require.NoError(t, err)
	defer ifaceA.Close()

	ifaceB, err := tcp.New(tcp.NewAddr(127, 0, 0, 1, 28184), cfg, nil)
	require.NoError(t, err)
	defer ifaceB.Close()

	recvA := make(chan []byte, 1)
	recvB := make(chan []byte, 1)
	ifaceA.RegisterHandler(2, func(_ uint8, payload []byte) { recvA <- append([]byte(nil), payload...) })
	ifaceB.RegisterHandler(2, func(_ uint8, payload []byte) { recvB <- append([]byte(nil), payload...) })

	epToB, err := ifaceA.Connect(ifaceB.LocalAddr())
	require.NoError(t, err)
	epToA, err := ifaceB.Connect(ifaceA.LocalAddr())
	require.NoError(t, err)

	require.Equal(t, api.StatusOK, ifaceA.PendingAdd(epToB, 2, []byte("from-a")))
	require.Equal(t, api.StatusOK, ifaceB.PendingAdd(epToA, 2, []byte("from-b")))

	deadline := time.Now().Add(3 * time.Second)
	ok := driveUntil(t, deadline, func() bool {
		return len(recvA) == 1 && len(recvB) == 1
	}, ifaceA, ifaceB)
	require.True(t, ok, "both sides must converge on a Connected endpoint despite the simultaneous connect race")
	require.Equal(t, []byte("from-b"), <-recvA)
	require.Equal(t, []byte("from-a"), <-recvB)
}
