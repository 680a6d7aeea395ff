// Package heap implements the fixed-capacity node arena: a free list
// threaded through unused slots, an allocator that triggers collection on
// exhaustion, and the path-compressing child accessors every other
// component uses to read the graph.
package heap

import (
	"github.com/mathisgroup/pylambda/internal/errs"
	"github.com/mathisgroup/pylambda/internal/node"
)

// Collector is satisfied by the garbage collector; heap depends on it
// only through this interface to avoid a package cycle (the collector
// needs full heap access, the heap only needs "please reclaim"). extra
// carries every root the caller needs kept alive beyond the single
// subterm it is actively allocating into, e.g. a session's other
// pending commands and its let-environment.
type Collector interface {
	Collect(root node.Ref, extra []node.Ref) *errs.LambdaError
}

// Arena owns the node storage. Index 0 is the permanent NIL sentinel:
// always allocated, always marked, and the value that terminates both
// indirection chains and the free list.
type Arena struct {
	nodes []node.Node
	free  node.Ref // head of the free list; 0 means exhausted
	// gcInvoked records whether the collector ran since the last Reset,
	// so Reset can cheaply skip rescanning the whole arena when it
	// didn't (the high-water mark alone bounds what's live).
	gcInvoked bool
	highWater node.Ref

	collector Collector
	// protected holds extra roots a multi-command caller (session) needs
	// kept alive across a single Allocate call: sibling commands already
	// parsed into this arena but not yet reduced, and the let-environment,
	// neither of which the allocation's own root parameter reaches.
	protected []node.Ref
}

func New(size int) *Arena {
	a := &Arena{nodes: make([]node.Node, size+1)}
	a.nodes[node.Nil] = node.Node{Code: node.NilSentinel, Marker: true}
	a.free = 0
	a.highWater = 0
	return a
}

// SetCollector wires the collector in after construction, breaking the
// heap<->gc initialization cycle.
func (a *Arena) SetCollector(c Collector) { a.collector = c }

// SetProtectedRoots replaces the extra root set Collect marks on top of
// whatever single root an Allocate call passes. A caller that shares one
// arena across several independent live graphs (a session running
// several commands) must call this before any Allocate that could
// trigger a collection, or the collector will reclaim graphs the current
// allocation's root can't see.
func (a *Arena) SetProtectedRoots(roots []node.Ref) { a.protected = roots }

func (a *Arena) Len() int { return len(a.nodes) }

func (a *Arena) Get(r node.Ref) node.Node { return a.nodes[r] }

func (a *Arena) Set(r node.Ref, n node.Node) { a.nodes[r] = n }

// Allocate pops a node off the free list, delivering it with Code =
// Indirection, Op1 = 0 as callers assume. On an empty list it invokes the
// collector and retries once; a second failure is a hard space_limit.
func (a *Arena) Allocate(root node.Ref) (node.Ref, *errs.LambdaError) {
	if r, ok := a.popFree(); ok {
		return r, nil
	}

	if a.collector != nil {
		if err := a.collector.Collect(root, a.protected); err != nil {
			return 0, err
		}
		a.gcInvoked = true
		if r, ok := a.popFree(); ok {
			return r, nil
		}
	}

	return 0, errs.NewEvalLocal(errs.CodeSpaceLimit, "heap exhausted")
}

func (a *Arena) popFree() (node.Ref, bool) {
	if a.free == 0 {
		// grow into unused high-water slots before declaring exhaustion
		if int(a.highWater)+1 < len(a.nodes) {
			a.highWater++
			a.nodes[a.highWater] = node.Node{Code: node.Indirection}
			return a.highWater, true
		}
		return 0, false
	}
	r := a.free
	a.free = a.nodes[r].Op2
	a.nodes[r] = node.Node{Code: node.Indirection}
	return r, true
}

// pushFree prepends r onto the free list; used only by the collector's sweep.
func (a *Arena) pushFree(r node.Ref) {
	a.nodes[r] = node.Node{Code: node.Indirection, Op2: a.free}
	a.free = r
}

// RebuildFreeList replaces the free list wholesale from a sweep pass,
// called by the collector with indices in ascending order so the chain
// reads the same direction as the original sweep.
func (a *Arena) RebuildFreeList(indices []node.Ref) {
	a.free = 0
	for i := len(indices) - 1; i >= 0; i-- {
		a.pushFree(indices[i])
	}
}

// ReleaseAll resets the arena to empty, per the allocator's release_all
// contract. If the collector never ran since the prior reset, only the
// high-water slice needs clearing; otherwise the whole arena may hold
// scattered live nodes from the previous top-level call and must be
// rescanned node by node.
func (a *Arena) ReleaseAll() {
	if !a.gcInvoked {
		for i := node.Ref(1); i <= a.highWater; i++ {
			a.nodes[i] = node.Node{}
		}
	} else {
		for i := node.Ref(1); i < node.Ref(len(a.nodes)); i++ {
			a.nodes[i] = node.Node{}
		}
	}
	a.free = 0
	a.highWater = 0
	a.gcInvoked = false
}

// RChild path-compresses and returns the effective right/payload child
// of n (Op2), skipping indirection chains and rewriting the containing
// node's field to point directly at the first non-indirection node.
func (a *Arena) RChild(r node.Ref) node.Ref {
	target := a.chase(a.nodes[r].Op2)
	n := a.nodes[r]
	n.Op2 = target
	a.nodes[r] = n
	return target
}

// LChild is RChild's counterpart for Application and Cons nodes, whose
// left child (function position / list head) is carried in Op1
// reinterpreted as a Ref, matching the original's r_child/l_child pair.
// Abstraction and Ident nodes store a plain integer in Op1 and must
// never be passed here.
func (a *Arena) LChild(r node.Ref) node.Ref {
	n := a.nodes[r]
	target := a.chase(node.Ref(uint32(n.Op1)))
	n.Op1 = int32(uint32(target))
	a.nodes[r] = n
	return target
}

func (a *Arena) chase(r node.Ref) node.Ref {
	for r != node.Nil && a.nodes[r].Code == node.Indirection && !a.nodes[r].Rename {
		next := a.nodes[r].Op2
		if next == r {
			break
		}
		r = next
	}
	return r
}

// Deref is chase exposed for read-only callers that don't want to pay
// for path compression bookkeeping (e.g. a pure inspector).
func (a *Arena) Deref(r node.Ref) node.Ref { return a.chase(r) }

// HighWater reports how many slots have ever been handed out since the
// last ReleaseAll, used by the collector to bound full scans.
func (a *Arena) HighWater() node.Ref { return a.highWater }
