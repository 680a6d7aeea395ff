// Package canon implements alpha-standardization: assigning canonical
// scope ids to each abstraction in DFS order and marking every bound
// occurrence with its binder's scope, plus the free-variable discovery
// pass used by bind_all_free_vars and Free_Variables.
package canon

import (
	"github.com/mathisgroup/pylambda/internal/errs"
	"github.com/mathisgroup/pylambda/internal/heap"
	"github.com/mathisgroup/pylambda/internal/node"
)

// Standardize performs alpha_standardize(root): a DFS that assigns each
// abstraction the next scope id (1, 2, 3, ... in traversal order) and,
// for each one, marks every free occurrence of its bound identifier in
// its body with that scope id via Scope.
func Standardize(a *heap.Arena, root node.Ref, stackLimit int) *errs.LambdaError {
	nextID := int32(1)
	visited := make(map[node.Ref]bool)
	return standardizeWalk(a, root, &nextID, visited, stackLimit)
}

func standardizeWalk(a *heap.Arena, r node.Ref, nextID *int32, visited map[node.Ref]bool, stackLimit int) *errs.LambdaError {
	r = a.Deref(r)
	if r == node.Nil || visited[r] {
		return nil
	}
	visited[r] = true
	n := a.Get(r)

	switch n.Code {
	case node.Abstraction:
		id := *nextID
		*nextID++
		n.Scope = id
		a.Set(r, n)
		if err := Scope(a, n.AbsVar(), n.AbsBody(), id, stackLimit); err != nil {
			return err
		}
		return standardizeWalk(a, n.AbsBody(), nextID, visited, stackLimit)
	case node.Application:
		if err := standardizeWalk(a, n.AppFunc(), nextID, visited, stackLimit); err != nil {
			return err
		}
		return standardizeWalk(a, n.AppArg(), nextID, visited, stackLimit)
	case node.Cons:
		if err := standardizeWalk(a, n.ConsHead(), nextID, visited, stackLimit); err != nil {
			return err
		}
		return standardizeWalk(a, n.ConsTail(), nextID, visited, stackLimit)
	}
	return nil
}

// Scope marks every free occurrence of boundID within body with scopeID.
// It does not touch node markers: shared subgraphs are skipped through a
// local visited set, and the scope field it writes is permanent output,
// so nothing needs restoring afterwards. Descent stops at any inner
// abstraction rebinding boundID.
func Scope(a *heap.Arena, boundID int32, body node.Ref, scopeID int32, stackLimit int) *errs.LambdaError {
	type frame struct {
		r      node.Ref
		shadow bool
	}
	visited := make(map[node.Ref]bool)
	stack := []frame{{r: body}}

	for len(stack) > 0 {
		if len(stack) > stackLimit {
			return errs.NewEvalLocal(errs.CodeNotFreeOverflow, "scope assignment exceeded its stack limit")
		}
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		r := a.Deref(top.r)
		if r == node.Nil {
			continue
		}
		n := a.Get(r)

		if n.Code == node.Ident {
			if !top.shadow && n.IdentSym() == boundID {
				n.Scope = scopeID
				a.Set(r, n)
			}
			continue
		}

		if visited[r] {
			continue
		}
		visited[r] = true

		switch n.Code {
		case node.Abstraction:
			shadow := top.shadow || n.AbsVar() == boundID
			stack = append(stack, frame{r: n.AbsBody(), shadow: shadow})
		case node.Application:
			stack = append(stack, frame{r: n.AppFunc(), shadow: top.shadow}, frame{r: n.AppArg(), shadow: top.shadow})
		case node.Cons:
			stack = append(stack, frame{r: n.ConsHead(), shadow: top.shadow}, frame{r: n.ConsTail(), shadow: top.shadow})
		}
	}
	return nil
}

// FreeVarsList returns the free identifier symbol ids occurring in root,
// in discovery (DFS, leftmost-outermost) order, without duplicates.
func FreeVarsList(a *heap.Arena, root node.Ref, stackLimit int) ([]int32, *errs.LambdaError) {
	type frame struct {
		r      node.Ref
		bound  []int32
	}
	visited := make(map[node.Ref]bool)
	var order []int32
	seen := make(map[int32]bool)

	stack := []frame{{r: root}}
	for len(stack) > 0 {
		if len(stack) > stackLimit {
			return nil, errs.NewEvalLocal(errs.CodeNotFreeOverflow, "free-variable discovery exceeded its stack limit")
		}
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		r := a.Deref(top.r)
		if r == node.Nil {
			continue
		}
		n := a.Get(r)

		if n.Code == node.Ident {
			id := n.IdentSym()
			if n.IdentKey() == 0 && !contains(top.bound, id) && !seen[id] {
				seen[id] = true
				order = append(order, id)
			}
			continue
		}

		if visited[r] {
			continue
		}
		visited[r] = true

		switch n.Code {
		case node.Abstraction:
			bound := append(append([]int32{}, top.bound...), n.AbsVar())
			stack = append(stack, frame{r: n.AbsBody(), bound: bound})
		case node.Application:
			stack = append(stack, frame{r: n.AppArg(), bound: top.bound}, frame{r: n.AppFunc(), bound: top.bound})
		case node.Cons:
			stack = append(stack, frame{r: n.ConsTail(), bound: top.bound}, frame{r: n.ConsHead(), bound: top.bound})
		}
	}
	return order, nil
}

func contains(xs []int32, x int32) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
