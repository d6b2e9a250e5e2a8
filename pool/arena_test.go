package pool_test

import (
	"testing"

	"github.com/momentics/ucx-transports/pool"
	"github.com/stretchr/testify/require"
)

type widget struct {
	used bool
}

func TestBoundedPoolExhaustion(t *testing.T) {
	p := pool.NewBounded(1, 2, func() *widget { return &widget{} }, func(w *widget) { w.used = false })

	a, ok := p.Get()
	require.True(t, ok)
	a.used = true

	b, ok := p.Get()
	require.True(t, ok)

	_, ok = p.Get()
	require.False(t, ok, "pool is at its max of 2")

	p.Put(a)
	require.False(t, a.used, "Put must run the reset function")

	c, ok := p.Get()
	require.True(t, ok, "returning an object should free capacity")
	require.Same(t, a, c)

	_ = b
}

func TestBoundedPoolOutstanding(t *testing.T) {
	p := pool.NewBounded(0, 4, func() *widget { return &widget{} }, nil)
	require.Equal(t, 0, p.Outstanding())

	a, _ := p.Get()
	b, _ := p.Get()
	require.Equal(t, 2, p.Outstanding())

	p.Put(a)
	require.Equal(t, 1, p.Outstanding())
	p.Put(b)
	require.Equal(t, 0, p.Outstanding())
}
