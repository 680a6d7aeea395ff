// Package freevars implements the free-variable predicate (not_free) and
// the recurve self-reference rewrite, which share the same two-pass
// marker-based DFS discipline: pass one sets markers while searching,
// pass two clears every marker it set, on every exit path including
// abort.
package freevars

import (
	"github.com/mathisgroup/pylambda/internal/errs"
	"github.com/mathisgroup/pylambda/internal/heap"
	"github.com/mathisgroup/pylambda/internal/node"
)

// NotFree reports whether id has no free occurrence in the subgraph
// rooted at root. stackLimit bounds the explicit DFS stack; exceeding it
// is reported as not-free overflow. Renaming-prefix nodes must never be
// encountered here — the reducer always consumes them first.
func NotFree(a *heap.Arena, id int32, root node.Ref, stackLimit int) (bool, *errs.LambdaError) {
	visited := make(map[node.Ref]bool)
	found := false

	type frame struct {
		r       node.Ref
		shadow  bool // true if id is shadowed by an enclosing abstraction on this path
	}
	stack := make([]frame, 0, 64)
	stack = append(stack, frame{r: root})

	for len(stack) > 0 {
		if len(stack) > stackLimit {
			unmark(a, visited)
			return false, errs.NewEvalLocal(errs.CodeNotFreeOverflow, "free-variable scan exceeded its stack limit")
		}
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		r := a.Deref(top.r)
		if r == node.Nil || found {
			continue
		}
		n := a.Get(r)
		if n.Rename {
			unmark(a, visited)
			return false, errs.New(errs.CodeWrongRenaming, "not_free encountered a live renaming prefix")
		}

		if n.Code == node.Ident {
			if !top.shadow && n.IdentSym() == id {
				found = true
			}
			continue
		}

		if visited[r] {
			continue
		}
		visited[r] = true
		mark(a, r)

		switch n.Code {
		case node.Abstraction:
			shadow := top.shadow || n.AbsVar() == id
			stack = append(stack, frame{r: n.AbsBody(), shadow: shadow})
		case node.Application:
			stack = append(stack, frame{r: n.AppFunc(), shadow: top.shadow})
			stack = append(stack, frame{r: n.AppArg(), shadow: top.shadow})
		case node.Cons:
			stack = append(stack, frame{r: n.ConsHead(), shadow: top.shadow})
			stack = append(stack, frame{r: n.ConsTail(), shadow: top.shadow})
		default:
			// leaf: no children to descend into
		}
	}

	unmark(a, visited)
	return !found, nil
}

func mark(a *heap.Arena, r node.Ref) {
	n := a.Get(r)
	n.Marker = true
	a.Set(r, n)
}

func unmark(a *heap.Arena, visited map[node.Ref]bool) {
	for r := range visited {
		n := a.Get(r)
		n.Marker = false
		a.Set(r, n)
	}
}

// Recurve walks body, replacing every free occurrence of id with an
// indirection to self, producing the self-referential sharing edge that
// backs `let name _ expr` recursion without the Y combinator. Uses the
// same marker discipline as NotFree.
func Recurve(a *heap.Arena, id int32, body, self node.Ref, stackLimit int) *errs.LambdaError {
	visited := make(map[node.Ref]bool)

	type frame struct {
		r      node.Ref
		parent node.Ref
		which  int // 0 = func/head, 1 = arg/tail, -1 = root (no rewrite slot)
		shadow bool
	}
	stack := make([]frame, 0, 64)
	stack = append(stack, frame{r: body, which: -1})

	for len(stack) > 0 {
		if len(stack) > stackLimit {
			unmark(a, visited)
			return errs.NewEvalLocal(errs.CodeNotFreeOverflow, "recurve exceeded its stack limit")
		}
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		r := a.Deref(top.r)
		if r == node.Nil {
			continue
		}
		n := a.Get(r)

		if n.Code == node.Ident && !top.shadow && n.IdentSym() == id {
			rewriteChild(a, top.parent, top.which, r, self)
			continue
		}

		if visited[r] {
			continue
		}
		visited[r] = true
		mark(a, r)

		switch n.Code {
		case node.Abstraction:
			shadow := top.shadow || n.AbsVar() == id
			stack = append(stack, frame{r: n.AbsBody(), parent: r, which: 1, shadow: shadow})
		case node.Application:
			stack = append(stack, frame{r: n.AppFunc(), parent: r, which: 0, shadow: top.shadow})
			stack = append(stack, frame{r: n.AppArg(), parent: r, which: 1, shadow: top.shadow})
		case node.Cons:
			stack = append(stack, frame{r: n.ConsHead(), parent: r, which: 0, shadow: top.shadow})
			stack = append(stack, frame{r: n.ConsTail(), parent: r, which: 1, shadow: top.shadow})
		}
	}

	unmark(a, visited)
	return nil
}

// rewriteChild patches parent's which-th child to point at the
// self-reference indirection. which == -1 means the occurrence was the
// root itself (a definition body that is a bare reference to its own
// name); that occurrence has no parent slot and is left unrewritten.
func rewriteChild(a *heap.Arena, parent node.Ref, which int, target, self node.Ref) {
	if parent == node.Nil {
		return
	}
	n := a.Get(parent)
	ind := mustIndirect(a, target, self)
	switch n.Code {
	case node.Abstraction:
		n.Op2 = ind
	case node.Application, node.Cons:
		if which == 0 {
			n.Op1 = int32(uint32(ind))
		} else {
			n.Op2 = ind
		}
	}
	a.Set(parent, n)
}

// mustIndirect allocates nothing: it reuses the occurrence node itself
// as an indirection to self, since we already hold its index via the
// parent rewrite path — callers pass target as the occurrence's own
// ref so it can be turned in place into an indirection.
func mustIndirect(a *heap.Arena, occurrence, self node.Ref) node.Ref {
	a.Set(occurrence, node.MakeIndirection(self))
	return occurrence
}
