package gc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mathisgroup/pylambda/internal/gc"
	"github.com/mathisgroup/pylambda/internal/heap"
	"github.com/mathisgroup/pylambda/internal/node"
)

func TestCollectReclaimsUnreachableNodes(t *testing.T) {
	a := heap.New(8)
	c := gc.New(a, 100)
	a.SetCollector(c)

	garbage, err := a.Allocate(0)
	require.NoError(t, err)
	a.Set(garbage, node.MakeInt(99))

	live, err := a.Allocate(0)
	require.NoError(t, err)
	a.Set(live, node.MakeInt(1))

	require.NoError(t, c.Collect(live, nil))

	// garbage's slot should be back on the free list and reusable.
	reused, err := a.Allocate(0)
	require.NoError(t, err)
	require.Equal(t, garbage, reused)
}

func TestCollectKeepsExtraRootsAlive(t *testing.T) {
	a := heap.New(4)
	c := gc.New(a, 100)
	a.SetCollector(c)

	protected, err := a.Allocate(0)
	require.NoError(t, err)
	a.Set(protected, node.MakeInt(7))

	root, err := a.Allocate(0)
	require.NoError(t, err)
	a.Set(root, node.MakeInt(1))

	require.NoError(t, c.Collect(root, []node.Ref{protected}))

	// both slots were marked live, so the next allocation must grow into
	// a fresh slot rather than reuse either of them.
	fresh, err := a.Allocate(0)
	require.NoError(t, err)
	require.NotEqual(t, protected, fresh)
	require.NotEqual(t, root, fresh)
}

func TestCollectDescendsApplicationAndAbstraction(t *testing.T) {
	a := heap.New(16)
	c := gc.New(a, 100)
	a.SetCollector(c)

	leafA, _ := a.Allocate(0)
	a.Set(leafA, node.MakeInt(1))
	leafB, _ := a.Allocate(0)
	a.Set(leafB, node.MakeInt(2))

	app, _ := a.Allocate(0)
	a.Set(app, node.MakeApp(leafA, leafB))

	abs, _ := a.Allocate(0)
	a.Set(abs, node.MakeAbs(42, app))

	// allocate unreachable garbage alongside the live structure before
	// collecting explicitly.
	for i := 0; i < 10; i++ {
		r, err := a.Allocate(0)
		require.NoError(t, err)
		a.Set(r, node.MakeInt(int64(i)))
	}

	require.NoError(t, c.Collect(abs, nil))

	got := a.Get(abs)
	require.Equal(t, node.Abstraction, got.Code)
	gotApp := a.Get(got.AbsBody())
	require.Equal(t, node.Application, gotApp.Code)
}
