// Package gc implements the mark-and-sweep collector: an explicit-stack
// DFS mark from the root followed by a linear sweep that rebuilds the
// free list from everything left unmarked.
package gc

import (
	"github.com/mathisgroup/pylambda/internal/errs"
	"github.com/mathisgroup/pylambda/internal/heap"
	"github.com/mathisgroup/pylambda/internal/node"
)

// Collector owns no state of its own beyond the stack bound; it operates
// directly on a heap.Arena.
type Collector struct {
	Arena      *heap.Arena
	StackLimit int
}

func New(a *heap.Arena, stackLimit int) *Collector {
	return &Collector{Arena: a, StackLimit: stackLimit}
}

// Collect marks everything reachable from root or extra and sweeps the
// rest back onto the free list. extra is the caller's protected-root set
// (e.g. a session's other pending commands and let-environment); NIL
// (index 0) terminates descent. Only abstractions, applications, cons
// cells, indirections and renaming prefixes are descended into; every
// other code is treated as a leaf with no graph children. If the mark
// stack overflows, every marker is cleared before the error is returned
// and nothing is swept.
func (c *Collector) Collect(root node.Ref, extra []node.Ref) *errs.LambdaError {
	a := c.Arena
	stack := make([]node.Ref, 0, 256+len(extra))
	stack = append(stack, root)
	stack = append(stack, extra...)

	for len(stack) > 0 {
		if len(stack) > c.StackLimit {
			for i := node.Ref(1); i <= a.HighWater(); i++ {
				n := a.Get(i)
				n.Marker = false
				a.Set(i, n)
			}
			return errs.New(errs.CodeGarbageTrackOverflow, "garbage collector traversal stack overflowed")
		}
		r := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if r == node.Nil {
			continue
		}
		n := a.Get(r)
		if n.Marker {
			continue
		}
		n.Marker = true
		a.Set(r, n)

		if n.Rename {
			stack = append(stack, n.Op2)
			continue
		}

		switch n.Code {
		case node.Abstraction:
			stack = append(stack, n.AbsBody())
		case node.Application:
			stack = append(stack, n.AppFunc(), n.AppArg())
		case node.Cons:
			stack = append(stack, n.ConsHead(), n.ConsTail())
		case node.Indirection:
			stack = append(stack, n.Op2)
		default:
			// leaf: Integer, Real, Ident, ListNil, YCombinator, Head,
			// Tail, ConsOp, Arith, Relational carry no graph children.
		}
	}

	var freeIdx []node.Ref
	for i := node.Ref(1); i <= a.HighWater(); i++ {
		n := a.Get(i)
		if n.Marker {
			n.Marker = false
			a.Set(i, n)
		} else {
			freeIdx = append(freeIdx, i)
		}
	}

	a.RebuildFreeList(freeIdx)
	return nil
}
