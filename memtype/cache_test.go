package memtype_test

import (
	"testing"

	"github.com/momentics/ucx-transports/api"
	"github.com/momentics/ucx-transports/memtype"
	"github.com/stretchr/testify/require"
)

func TestScenarioMemtypeSplit(t *testing.T) {
	c := memtype.New(nil)
	c.Update(0x1000, 0x1000, api.MemKindCudaDevice) // [0x1000,0x2000) = Accel

	c.Update(0x1800, 0x400, api.MemKindHost) // [0x1800,0x1C00) = Host

	kind, status := c.Lookup(0x1900, 1)
	require.Equal(t, api.StatusOK, status)
	require.Equal(t, api.MemKindHost, kind)

	_, status = c.Lookup(0x1FFF, 2)
	require.Equal(t, api.StatusNotPresent, status, "spans the 0x2000 boundary")

	kind, status = c.Lookup(0x1000, 0x800) // fully inside the left Accel remainder
	require.Equal(t, api.StatusOK, status)
	require.Equal(t, api.MemKindCudaDevice, kind)

	kind, status = c.Lookup(0x1C00, 0x400) // right Accel remainder [0x1C00,0x2000)
	require.Equal(t, api.StatusOK, status)
	require.Equal(t, api.MemKindCudaDevice, kind)
}

func TestLookupMissOnEmptyCache(t *testing.T) {
	c := memtype.New(nil)
	require.True(t, c.IsEmpty())
	_, status := c.Lookup(0, 1)
	require.Equal(t, api.StatusNotPresent, status)
}

func TestRemoveDropsRegionEntirely(t *testing.T) {
	c := memtype.New(nil)
	c.Update(0, 0x1000, api.MemKindHost)
	c.Remove(0x100, 0x100)

	_, status := c.Lookup(0x100, 0x100)
	require.Equal(t, api.StatusNotPresent, status)

	kind, status := c.Lookup(0, 0x100)
	require.Equal(t, api.StatusOK, status)
	require.Equal(t, api.MemKindHost, kind)

	kind, status = c.Lookup(0x200, 0xE00)
	require.Equal(t, api.StatusOK, status)
	require.Equal(t, api.MemKindHost, kind)
}

func TestUpdateSequenceNeverOverlaps(t *testing.T) {
	c := memtype.New(nil)
	c.Update(0, 100, api.MemKindHost)
	c.Update(50, 100, api.MemKindCudaDevice)
	c.Update(25, 10, api.MemKindRocmDevice)
	c.Update(200, 50, api.MemKindHost)
	c.Update(0, 300, api.MemKindUnknownNonHost)

	// After collapsing everything under one region, a single lookup
	// spanning the whole range must succeed with the latest kind.
	kind, status := c.Lookup(0, 300)
	require.Equal(t, api.StatusOK, status)
	require.Equal(t, api.MemKindUnknownNonHost, kind)
}

func TestCloseDrainsAllRegions(t *testing.T) {
	c := memtype.New(nil)
	for i := uint64(0); i < 50; i++ {
		c.Update(i*0x1000, 0x100, api.MemKindHost)
	}
	require.False(t, c.IsEmpty())
	c.Close()
	require.True(t, c.IsEmpty())
}

func TestEventSourceAttachDetach(t *testing.T) {
	src := memtype.NewSource()
	c := memtype.New(nil)
	h := memtype.Attach(src, c)

	src.Publish(memtype.Event{Kind: memtype.EventAlloc, Address: 0x4000, Size: 0x100, MemKind: api.MemKindCudaDevice})
	kind, status := c.Lookup(0x4000, 0x100)
	require.Equal(t, api.StatusOK, status)
	require.Equal(t, api.MemKindCudaDevice, kind)

	src.Unsubscribe(h)
	src.Publish(memtype.Event{Kind: memtype.EventFree, Address: 0x4000, Size: 0x100})
	// still present: unsubscribed before the free event
	kind, status = c.Lookup(0x4000, 0x100)
	require.Equal(t, api.StatusOK, status)
	require.Equal(t, api.MemKindCudaDevice, kind)
}
