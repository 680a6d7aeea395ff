package freevars_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mathisgroup/pylambda/internal/freevars"
	"github.com/mathisgroup/pylambda/internal/heap"
	"github.com/mathisgroup/pylambda/internal/node"
)

const (
	symX int32 = 1
	symY int32 = 2
)

func ident(a *heap.Arena, sym int32) node.Ref {
	r, err := a.Allocate(0)
	if err != nil {
		panic(err)
	}
	a.Set(r, node.MakeIdent(sym, node.KeyNone))
	return r
}

func TestNotFreeDetectsAFreeOccurrence(t *testing.T) {
	a := heap.New(32)

	// \x.(x)y -- y is free, x is not
	x := ident(a, symX)
	y := ident(a, symY)
	app, _ := a.Allocate(0)
	a.Set(app, node.MakeApp(x, y))
	abs, _ := a.Allocate(0)
	a.Set(abs, node.MakeAbs(symX, app))

	notFreeX, err := freevars.NotFree(a, symX, abs, 100)
	require.NoError(t, err)
	require.True(t, notFreeX, "x is bound by the enclosing abstraction")

	notFreeY, err := freevars.NotFree(a, symY, abs, 100)
	require.NoError(t, err)
	require.False(t, notFreeY, "y has a free occurrence in the application")
}

func TestNotFreeRespectsShadowingThroughNestedAbstractions(t *testing.T) {
	a := heap.New(32)

	// \x.\x.x -- the inner x shadows the outer, so x is not free here
	inner := ident(a, symX)
	innerAbs, _ := a.Allocate(0)
	a.Set(innerAbs, node.MakeAbs(symX, inner))
	outerAbs, _ := a.Allocate(0)
	a.Set(outerAbs, node.MakeAbs(symX, innerAbs))

	notFree, err := freevars.NotFree(a, symX, outerAbs, 100)
	require.NoError(t, err)
	require.True(t, notFree)
}

func TestRecurveRewritesFreeSelfReferencesToAnIndirection(t *testing.T) {
	a := heap.New(32)

	// body = \n.(f)n, with f meant to recurse to the let-binding itself
	n := ident(a, symY)
	f := ident(a, symX)
	app, _ := a.Allocate(0)
	a.Set(app, node.MakeApp(f, n))
	abs, _ := a.Allocate(0)
	a.Set(abs, node.MakeAbs(symY, app))

	self := abs // the let-binding's own root, once it exists
	require.NoError(t, freevars.Recurve(a, symX, abs, self, 100))

	// the occurrence of f inside the body must now be an indirection to self
	body := a.Get(abs).AbsBody()
	rewritten := a.Get(body).AppFunc()
	got := a.Get(rewritten)
	require.Equal(t, node.Indirection, got.Code)
	require.Equal(t, self, got.Op2)
}

func TestRecurveLeavesShadowedOccurrencesAlone(t *testing.T) {
	a := heap.New(32)

	// \f.f -- f is rebound by the inner abstraction, so recurve must not
	// touch it even though the outer name matches.
	inner := ident(a, symX)
	abs, _ := a.Allocate(0)
	a.Set(abs, node.MakeAbs(symX, inner))

	require.NoError(t, freevars.Recurve(a, symX, abs, abs, 100))

	body := a.Get(abs).AbsBody()
	got := a.Get(body)
	require.Equal(t, node.Ident, got.Code)
	require.Equal(t, symX, got.IdentSym())
}

func TestNotFreeReportsStackOverflow(t *testing.T) {
	a := heap.New(4096)

	// a long application spine deep enough to exceed a tiny stack limit
	root := ident(a, symY)
	for i := 0; i < 50; i++ {
		app, _ := a.Allocate(0)
		a.Set(app, node.MakeApp(ident(a, symX), root))
		root = app
	}

	_, err := freevars.NotFree(a, symX, root, 4)
	require.Error(t, err)
}
