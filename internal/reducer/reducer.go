// Package reducer implements the normal-order graph reduction automaton:
// alpha-renaming via lazy prefix nodes, the four beta rules, the Y
// combinator's cyclic rewrite, and dispatch into the primitive table.
// Every rewrite mutates the graph in place, overwriting the redex site
// with an indirection to its result so every other pointer to that site
// observes the same reduced value — this is the sharing the engine is
// built around.
package reducer

import (
	"github.com/mathisgroup/pylambda/internal/builtin"
	"github.com/mathisgroup/pylambda/internal/errs"
	"github.com/mathisgroup/pylambda/internal/freevars"
	"github.com/mathisgroup/pylambda/internal/heap"
	"github.com/mathisgroup/pylambda/internal/node"
)

// Reducer carries the mutable reduction state for a single eval: cycle
// and reduction counters, the fresh-variable supply, and the configured
// limits. A Reducer is not reused across evals with different roots; the
// session constructs one per eval command.
type Reducer struct {
	arena *heap.Arena
	sym   builtin.Symbols

	sysVar int32 // monotonically decreasing; fresh vars are negative

	cycleLimit int
	pathLimit  int

	Cycles     int
	Reductions int

	Output OutputSink
}

// OutputSink receives the side-effecting output of show/more.
type OutputSink interface {
	WriteString(s string) (int, error)
}

func New(a *heap.Arena, sym builtin.Symbols, cycleLimit, pathLimit int, out OutputSink) *Reducer {
	return &Reducer{arena: a, sym: sym, cycleLimit: cycleLimit, pathLimit: pathLimit, Output: out}
}

func (r *Reducer) freshVar() int32 {
	r.sysVar--
	return r.sysVar
}

func (r *Reducer) alloc(n node.Node, root node.Ref) (node.Ref, *errs.LambdaError) {
	ref, err := r.arena.Allocate(root)
	if err != nil {
		return 0, err
	}
	r.arena.Set(ref, n)
	return ref, nil
}

func (r *Reducer) trueRef(root node.Ref) (node.Ref, *errs.LambdaError) {
	return r.alloc(node.MakeIdent(r.sym.True, node.KeyTrue), root)
}

func (r *Reducer) falseRef(root node.Ref) (node.Ref, *errs.LambdaError) {
	return r.alloc(node.MakeIdent(r.sym.False, node.KeyFalse), root)
}

func (r *Reducer) boolRef(v bool, root node.Ref) (node.Ref, *errs.LambdaError) {
	if v {
		return r.trueRef(root)
	}
	return r.falseRef(root)
}

// resolve path-compresses indirections and consumes any renaming-prefix
// node found at ref, looping until it lands on a concrete, non-rename
// node shape.
func (r *Reducer) resolve(ref node.Ref) (node.Ref, *errs.LambdaError) {
	for {
		ref = r.arena.Deref(ref)
		n := r.arena.Get(ref)
		if !n.Rename {
			return ref, nil
		}
		if err := r.applyAlpha(ref); err != nil {
			return 0, err
		}
	}
}

// applyAlpha consumes a single renaming-prefix node in place, per the
// alpha rules: substitute-and-stop on a direct variable hit, collapse
// when the name being renamed doesn't occur free, or push the prefix
// through an abstraction/application/cons and recurse lazily.
func (r *Reducer) applyAlpha(ref node.Ref) *errs.LambdaError {
	n := r.arena.Get(ref)
	old := n.RenameOld
	fresh := n.RenameFresh
	bodyRef := r.arena.RChild(ref)
	bodyNode := r.arena.Get(bodyRef)

	if bodyNode.Code == node.Ident && bodyNode.IdentKey() == 0 && bodyNode.IdentSym() == old {
		r.arena.Set(ref, node.MakeIdent(fresh, 0))
		return nil
	}

	notFreeOld, err := freevars.NotFree(r.arena, old, bodyRef, r.pathLimit)
	if err != nil {
		return err
	}
	if notFreeOld {
		r.arena.Set(ref, node.MakeIndirection(bodyRef))
		return nil
	}

	switch bodyNode.Code {
	case node.Abstraction:
		y := bodyNode.AbsVar()
		if y == old {
			r.arena.Set(ref, node.MakeIndirection(bodyRef))
			return nil
		}
		inner, aerr := r.alloc(node.MakeRename(fresh, old, bodyNode.AbsBody()), ref)
		if aerr != nil {
			return aerr
		}
		newAbs, aerr := r.alloc(node.MakeAbs(y, inner), ref)
		if aerr != nil {
			return aerr
		}
		r.arena.Set(ref, node.MakeIndirection(newAbs))
		return nil
	case node.Application:
		fRename, aerr := r.alloc(node.MakeRename(fresh, old, bodyNode.AppFunc()), ref)
		if aerr != nil {
			return aerr
		}
		gRename, aerr := r.alloc(node.MakeRename(fresh, old, bodyNode.AppArg()), ref)
		if aerr != nil {
			return aerr
		}
		newApp, aerr := r.alloc(node.MakeApp(fRename, gRename), ref)
		if aerr != nil {
			return aerr
		}
		r.arena.Set(ref, node.MakeIndirection(newApp))
		return nil
	case node.Cons:
		hRename, aerr := r.alloc(node.MakeRename(fresh, old, bodyNode.ConsHead()), ref)
		if aerr != nil {
			return aerr
		}
		tRename, aerr := r.alloc(node.MakeRename(fresh, old, bodyNode.ConsTail()), ref)
		if aerr != nil {
			return aerr
		}
		newCons, aerr := r.alloc(node.MakeCons(hRename, tRename), ref)
		if aerr != nil {
			return aerr
		}
		r.arena.Set(ref, node.MakeIndirection(newCons))
		return nil
	default:
		return errs.New(errs.CodeWrongRenaming, "alpha-renaming rule applied to a node shape it cannot handle")
	}
}

// duplicate makes a shallow top-level copy of ref: a fresh node with the
// same fields, sharing ref's children. This is the "physical
// duplication" beta4 uses to break sharing at the redex site while
// still sharing unrelated substructure.
func (r *Reducer) duplicate(ref node.Ref, root node.Ref) (node.Ref, *errs.LambdaError) {
	ref = r.arena.Deref(ref)
	n := r.arena.Get(ref)
	return r.alloc(n, root)
}

// beta performs the four beta-rule cases. appRef is the application
// (\x.M)N; absRef is the function position, already resolved to an
// abstraction.
func (r *Reducer) beta(appRef, absRef node.Ref) *errs.LambdaError {
	absNode := r.arena.Get(absRef)
	x := absNode.AbsVar()
	mRef := r.arena.RChild(absRef)
	mNode := r.arena.Get(mRef)
	appNode := r.arena.Get(appRef)
	nArg := appNode.AppArg()

	if mNode.Code == node.Ident && mNode.IdentKey() == 0 && mNode.IdentSym() == x {
		// beta1
		r.arena.Set(appRef, node.MakeIndirection(nArg))
		return nil
	}

	notFreeX, err := freevars.NotFree(r.arena, x, mRef, r.pathLimit)
	if err != nil {
		return err
	}
	if notFreeX {
		// beta2 (subsumes gamma0 when M is [])
		r.arena.Set(appRef, node.MakeIndirection(mRef))
		return nil
	}

	switch mNode.Code {
	case node.Abstraction:
		y := mNode.AbsVar()
		mBody := mNode.AbsBody()
		notFreeY, err := freevars.NotFree(r.arena, y, nArg, r.pathLimit)
		if err != nil {
			return err
		}
		newMBody := mBody
		newY := y
		if !notFreeY {
			z := r.freshVar()
			renameRef, aerr := r.alloc(node.MakeRename(z, y, mBody), appRef)
			if aerr != nil {
				return aerr
			}
			newMBody = renameRef
			newY = z
		}
		innerAbs, aerr := r.alloc(node.MakeAbs(x, newMBody), appRef)
		if aerr != nil {
			return aerr
		}
		innerApp, aerr := r.alloc(node.MakeApp(innerAbs, nArg), appRef)
		if aerr != nil {
			return aerr
		}
		outerAbs, aerr := r.alloc(node.MakeAbs(newY, innerApp), appRef)
		if aerr != nil {
			return aerr
		}
		r.arena.Set(appRef, node.MakeIndirection(outerAbs))
		return nil

	case node.Application:
		p := mNode.AppFunc()
		q := mNode.AppArg()
		notFreeXinP, err := freevars.NotFree(r.arena, x, p, r.pathLimit)
		if err != nil {
			return err
		}
		if notFreeXinP {
			innerAbs, aerr := r.alloc(node.MakeAbs(x, q), appRef)
			if aerr != nil {
				return aerr
			}
			innerApp, aerr := r.alloc(node.MakeApp(innerAbs, nArg), appRef)
			if aerr != nil {
				return aerr
			}
			newApp, aerr := r.alloc(node.MakeApp(p, innerApp), appRef)
			if aerr != nil {
				return aerr
			}
			r.arena.Set(appRef, node.MakeIndirection(newApp))
			return nil
		}
		nDup, derr := r.duplicate(nArg, appRef)
		if derr != nil {
			return derr
		}
		leftAbs, aerr := r.alloc(node.MakeAbs(x, p), appRef)
		if aerr != nil {
			return aerr
		}
		leftApp, aerr := r.alloc(node.MakeApp(leftAbs, nArg), appRef)
		if aerr != nil {
			return aerr
		}
		rightAbs, aerr := r.alloc(node.MakeAbs(x, q), appRef)
		if aerr != nil {
			return aerr
		}
		rightApp, aerr := r.alloc(node.MakeApp(rightAbs, nDup), appRef)
		if aerr != nil {
			return aerr
		}
		newApp, aerr := r.alloc(node.MakeApp(leftApp, rightApp), appRef)
		if aerr != nil {
			return aerr
		}
		r.arena.Set(appRef, node.MakeIndirection(newApp))
		return nil

	case node.Cons:
		h := mNode.ConsHead()
		t := mNode.ConsTail()
		nDup, derr := r.duplicate(nArg, appRef)
		if derr != nil {
			return derr
		}
		leftAbs, aerr := r.alloc(node.MakeAbs(x, h), appRef)
		if aerr != nil {
			return aerr
		}
		leftApp, aerr := r.alloc(node.MakeApp(leftAbs, nArg), appRef)
		if aerr != nil {
			return aerr
		}
		rightAbs, aerr := r.alloc(node.MakeAbs(x, t), appRef)
		if aerr != nil {
			return aerr
		}
		rightApp, aerr := r.alloc(node.MakeApp(rightAbs, nDup), appRef)
		if aerr != nil {
			return aerr
		}
		newCons, aerr := r.alloc(node.MakeCons(leftApp, rightApp), appRef)
		if aerr != nil {
			return aerr
		}
		r.arena.Set(appRef, node.MakeIndirection(newCons))
		return nil

	default:
		return errs.New(errs.CodeWrongRenaming, "beta-reduction found a free occurrence in a node shape it cannot distribute over")
	}
}

// Whnf reduces ref to weak head normal form: indirections and renaming
// prefixes are always resolved, applications are rewritten until their
// head is an abstraction applied to nothing further reducible, a
// primitive result, or a stuck application headed by something opaque
// (a free variable). depth bounds recursive descent into the function
// position, standing in for the original's path-depth limit.
func (r *Reducer) Whnf(ref node.Ref, depth int) (node.Ref, *errs.LambdaError) {
	if depth > r.pathLimit {
		return 0, errs.New(errs.CodePathOverflow, "reducer recursion exceeded its path limit")
	}

	for {
		r.Cycles++
		if r.Cycles > r.cycleLimit {
			return ref, errs.NewEvalLocal(errs.CodeCycleLimit, "reduction exceeded cycle_limit without reaching a normal form")
		}

		var err *errs.LambdaError
		ref, err = r.resolve(ref)
		if err != nil {
			return 0, err
		}
		n := r.arena.Get(ref)

		if n.Code != node.Application {
			return ref, nil
		}

		fnRef := n.AppFunc()
		argRef := n.AppArg()

		fnWhnf, err := r.Whnf(fnRef, depth+1)
		if err != nil {
			return 0, err
		}
		nn := r.arena.Get(ref)
		nn.Op1 = int32(uint32(fnWhnf))
		r.arena.Set(ref, nn)

		fnNode := r.arena.Get(fnWhnf)

		switch fnNode.Code {
		case node.Abstraction:
			if err := r.beta(ref, fnWhnf); err != nil {
				return 0, err
			}
			r.Reductions++
			continue

		case node.YCombinator:
			newApp, aerr := r.alloc(node.MakeApp(argRef, ref), ref)
			if aerr != nil {
				return 0, aerr
			}
			r.arena.Set(ref, node.MakeIndirection(newApp))
			r.Reductions++
			continue

		case node.Integer:
			res, perr := r.selectFromList(fnNode.IntVal, argRef, depth)
			if perr != nil {
				return 0, perr
			}
			r.arena.Set(ref, node.MakeIndirection(res))
			r.Reductions++
			continue

		case node.Head, node.Tail:
			res, perr := r.applyStructural(fnNode.Code, argRef, ref, depth)
			if perr != nil {
				return 0, perr
			}
			r.arena.Set(ref, node.MakeIndirection(res))
			r.Reductions++
			continue

		case node.Ident:
			key := fnNode.IdentKey()
			res, handled, perr := r.applyUnary(key, argRef, ref, depth)
			if perr != nil {
				return 0, perr
			}
			if handled {
				r.arena.Set(ref, node.MakeIndirection(res))
				r.Reductions++
				continue
			}
			return ref, nil

		case node.Arith, node.Relational:
			return ref, nil

		case node.Application:
			innerFnRef, err := r.resolve(fnNode.AppFunc())
			if err != nil {
				return 0, err
			}
			innerFnNode := r.arena.Get(innerFnRef)
			firstArg := r.arena.Get(fnWhnf).AppArg()
			res, handled, perr := r.applyBinary(innerFnNode, firstArg, argRef, ref, depth)
			if perr != nil {
				return 0, perr
			}
			if handled {
				r.arena.Set(ref, node.MakeIndirection(res))
				r.Reductions++
				continue
			}
			return ref, nil

		default:
			return ref, nil
		}
	}
}

// Normalize drives ref to full normal form: Whnf at the root, then
// recursively normalizing whatever substructure remains exposed.
func (r *Reducer) Normalize(ref node.Ref, depth int) (node.Ref, *errs.LambdaError) {
	headRef, err := r.Whnf(ref, depth)
	if err != nil {
		return 0, err
	}
	n := r.arena.Get(headRef)

	switch n.Code {
	case node.Abstraction:
		bodyNorm, err := r.Normalize(n.AbsBody(), depth+1)
		if err != nil {
			return 0, err
		}
		nn := r.arena.Get(headRef)
		nn.Op2 = bodyNorm
		r.arena.Set(headRef, nn)
		return headRef, nil

	case node.Application:
		fnNorm, err := r.Normalize(n.AppFunc(), depth+1)
		if err != nil {
			return 0, err
		}
		argNorm, err := r.Normalize(n.AppArg(), depth+1)
		if err != nil {
			return 0, err
		}
		nn := r.arena.Get(headRef)
		nn.Op1 = int32(uint32(fnNorm))
		nn.Op2 = argNorm
		r.arena.Set(headRef, nn)
		return headRef, nil

	case node.Cons:
		hNorm, err := r.Normalize(n.ConsHead(), depth+1)
		if err != nil {
			return 0, err
		}
		tNorm, err := r.Normalize(n.ConsTail(), depth+1)
		if err != nil {
			return 0, err
		}
		nn := r.arena.Get(headRef)
		nn.Op1 = int32(uint32(hNorm))
		nn.Op2 = tNorm
		r.arena.Set(headRef, nn)
		return headRef, nil

	default:
		return headRef, nil
	}
}
