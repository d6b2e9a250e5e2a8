package scopy_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/momentics/ucx-transports/api"
	"github.com/momentics/ucx-transports/config"
	"github.com/momentics/ucx-transports/internal/iovec"
	"github.com/momentics/ucx-transports/scopy"
)

// fakePrimitive moves at most maxPerCall bytes per Copy invocation,
// letting tests exercise the engine's multi-segment progress loop
// without a real copy back-end.
type fakePrimitive struct {
	maxPerCall int
	calls      int
	failAfter  int // if > 0, the call at this index and every later call fail
}

func (p *fakePrimitive) Copy(seg api.CopySegment) (api.IovIter, int, api.Status) {
	p.calls++
	if p.failAfter > 0 && p.calls >= p.failAfter {
		return seg.Iter, 0, api.StatusIOError
	}
	n := seg.Length
	if n > p.maxPerCall {
		n = p.maxPerCall
	}
	return iovec.Advance(seg.Iov, seg.Iter, n), n, api.StatusOK
}

func newIface(t *testing.T, prim api.CopyPrimitive) *scopy.Interface {
	t.Helper()
	cfg := config.NewDefault()
	cfg.SegSize = 4
	return scopy.New(prim, cfg, nil)
}

func TestSubmitCompletesAcrossMultipleSegments(t *testing.T) {
	prim := &fakePrimitive{maxPerCall: 4}
	iface := newIface(t, prim)
	ep := iface.NewEndpoint(1)

	iov := []api.IovElem{{Buffer: make([]byte, 10), Length: 10}}
	var status api.Status
	done := false
	st := ep.PutZcopy(iov, 0x1000, 0xfeed, func(s api.Status) {
		status = s
		done = true
	})
	require.Equal(t, api.StatusInProgress, st)
	require.EqualValues(t, 1, iface.Outstanding())

	for !done {
		require.Equal(t, 1, iface.Progress())
	}
	require.Equal(t, api.StatusOK, status)
	require.EqualValues(t, 0, iface.Outstanding())
	require.Equal(t, 0, iface.Progress())
}

func TestZeroLengthSubmitCompletesSynchronously(t *testing.T) {
	iface := newIface(t, &fakePrimitive{maxPerCall: 4})
	ep := iface.NewEndpoint(1)

	called := false
	st := ep.GetZcopy(nil, 0, 0, func(s api.Status) {
		called = true
		require.Equal(t, api.StatusOK, s)
	})
	require.Equal(t, api.StatusOK, st)
	require.True(t, called)
	require.EqualValues(t, 0, iface.Outstanding())
}

func TestSubmitRejectsOversizedIOV(t *testing.T) {
	cfg := config.NewDefault()
	cfg.MaxIOV = 1
	iface := scopy.New(&fakePrimitive{maxPerCall: 4}, cfg, nil)
	ep := iface.NewEndpoint(1)

	iov := []api.IovElem{{Buffer: make([]byte, 1), Length: 1}, {Buffer: make([]byte, 1), Length: 1}}
	st := ep.PutZcopy(iov, 0, 0, nil)
	require.Equal(t, api.StatusInvalidParam, st)
}

func TestFailedSegmentTerminatesRequestWithError(t *testing.T) {
	prim := &fakePrimitive{maxPerCall: 4, failAfter: 2}
	iface := newIface(t, prim)
	ep := iface.NewEndpoint(1)

	iov := []api.IovElem{{Buffer: make([]byte, 10), Length: 10}}
	var status api.Status
	done := false
	ep.PutZcopy(iov, 0, 0, func(s api.Status) { status = s; done = true })

	for !done {
		iface.Progress()
	}
	require.Equal(t, api.StatusIOError, status)
	require.EqualValues(t, 0, iface.Outstanding())
}

func TestEndpointFlushFiresAfterLastSubmittedRequestTerminates(t *testing.T) {
	iface := newIface(t, &fakePrimitive{maxPerCall: 4})
	ep := iface.NewEndpoint(1)

	iov := []api.IovElem{{Buffer: make([]byte, 8), Length: 8}}
	reqDone := false
	ep.PutZcopy(iov, 0, 0, func(api.Status) { reqDone = true })

	flushDone := false
	st := ep.Flush(func(s api.Status) {
		require.Equal(t, api.StatusOK, s)
		flushDone = true
	})
	require.Equal(t, api.StatusInProgress, st)

	for !reqDone {
		iface.Progress()
	}
	require.True(t, flushDone, "flush completion must fire once the outstanding request terminates")
}

func TestEndpointFlushSynchronousWhenGroupEmpty(t *testing.T) {
	iface := newIface(t, &fakePrimitive{maxPerCall: 4})
	ep := iface.NewEndpoint(1)

	called := false
	st := ep.Flush(func(s api.Status) { called = true; require.Equal(t, api.StatusOK, s) })
	require.Equal(t, api.StatusOK, st)
	require.True(t, called)
}

func TestInterfaceFlushUnsupportedWithCompletionWhileOutstanding(t *testing.T) {
	iface := newIface(t, &fakePrimitive{maxPerCall: 4})
	ep := iface.NewEndpoint(1)
	iov := []api.IovElem{{Buffer: make([]byte, 8), Length: 8}}
	ep.PutZcopy(iov, 0, 0, nil)

	st := iface.Flush(func(api.Status) {})
	require.Equal(t, api.StatusUnsupported, st)

	st = iface.Flush(nil)
	require.Equal(t, api.StatusInProgress, st)
}

func TestInterfaceFlushOKWhenNothingOutstanding(t *testing.T) {
	iface := newIface(t, &fakePrimitive{maxPerCall: 4})
	st := iface.Flush(nil)
	require.Equal(t, api.StatusOK, st)
}

func TestRoundRobinAcrossEndpointGroups(t *testing.T) {
	prim := &fakePrimitive{maxPerCall: 1}
	iface := newIface(t, prim)
	epA := iface.NewEndpoint(1)
	epB := iface.NewEndpoint(2)

	iovA := []api.IovElem{{Buffer: make([]byte, 2), Length: 2}}
	iovB := []api.IovElem{{Buffer: make([]byte, 2), Length: 2}}

	var order []string
	doneA, doneB := false, false
	epA.PutZcopy(iovA, 0, 0, func(api.Status) { doneA = true; order = append(order, "a") })
	epB.PutZcopy(iovB, 0, 0, func(api.Status) { doneB = true; order = append(order, "b") })

	// Two ticks serve one segment of A, then one of B: neither request
	// can have finished yet if the groups alternate.
	iface.Progress()
	iface.Progress()
	require.False(t, doneA, "B's group must get a turn before A's second segment")

	for !doneA || !doneB {
		iface.Progress()
	}
	require.ElementsMatch(t, []string{"a", "b"}, order)
}
