package reducer

import (
	"fmt"

	"github.com/mathisgroup/pylambda/internal/errs"
	"github.com/mathisgroup/pylambda/internal/node"
)

// applyStructural handles the two one-argument structural primitives,
// head (^) and tail (~). Cons construction (&) is a two-argument
// primitive and is dispatched through applyBinary instead, once both
// of its arguments are in hand.
func (r *Reducer) applyStructural(code node.Code, argRef, root node.Ref, depth int) (node.Ref, *errs.LambdaError) {
	switch code {
	case node.Head:
		a, err := r.Whnf(argRef, depth+1)
		if err != nil {
			return 0, err
		}
		an := r.arena.Get(a)
		if an.Code != node.Cons {
			return 0, errs.New(errs.CodeWrongOperandHdTl, "head applied to a non-cons value")
		}
		return an.ConsHead(), nil
	case node.Tail:
		a, err := r.Whnf(argRef, depth+1)
		if err != nil {
			return 0, err
		}
		an := r.arena.Get(a)
		if an.Code != node.Cons {
			return 0, errs.New(errs.CodeWrongOperandHdTl, "tail applied to a non-cons value")
		}
		return an.ConsTail(), nil
	}
	return 0, errs.New(errs.CodeWrongOperator, "unrecognized structural primitive")
}

// selectFromList implements the undocumented "select by index" primitive
// recovered from the original implementation: an integer literal in
// function position selects the idx-th (1-based) element of the list
// it's applied to.
func (r *Reducer) selectFromList(idx int64, argRef node.Ref, depth int) (node.Ref, *errs.LambdaError) {
	cur, err := r.Whnf(argRef, depth+1)
	if err != nil {
		return 0, err
	}
	for i := int64(1); i < idx; i++ {
		n := r.arena.Get(cur)
		if n.Code != node.Cons {
			return 0, errs.New(errs.CodeWrongOperandSelection, "selection index exceeds the list's length")
		}
		cur, err = r.Whnf(n.ConsTail(), depth+1)
		if err != nil {
			return 0, err
		}
	}
	n := r.arena.Get(cur)
	if n.Code != node.Cons {
		return 0, errs.New(errs.CodeWrongOperandSelection, "selection applied to a non-list or out-of-range index")
	}
	return n.ConsHead(), nil
}

// applyUnary dispatches the builtin keys that take exactly one argument.
// handled is false for keys (add/sub/mult/div-as-binary-ops never occur
// here; list-arithmetic add/sub/mult/div ARE unary, folding a whole
// list) that this function doesn't own, signalling the caller to treat
// the application as stuck (awaiting a second argument, in the binary
// keys' case).
func (r *Reducer) applyUnary(key int32, argRef, root node.Ref, depth int) (node.Ref, bool, *errs.LambdaError) {
	switch key {
	case node.KeyPred, node.KeySucc:
		a, err := r.Whnf(argRef, depth+1)
		if err != nil {
			return 0, true, err
		}
		an := r.arena.Get(a)
		if an.Code != node.Integer {
			return 0, true, errs.New(errs.CodeWrongOperandPredSucc, "pred/succ requires an integer operand")
		}
		delta := int64(1)
		if key == node.KeyPred {
			delta = -1
		}
		res, aerr := r.alloc(node.MakeInt(an.IntVal+delta), root)
		return res, true, aerr

	case node.KeyZero:
		a, err := r.Whnf(argRef, depth+1)
		if err != nil {
			return 0, true, err
		}
		an := r.arena.Get(a)
		if an.Code != node.Integer {
			return 0, true, errs.New(errs.CodeWrongOperandZero, "zero requires an integer operand")
		}
		res, aerr := r.boolRef(an.IntVal == 0, root)
		return res, true, aerr

	case node.KeyNull:
		a, err := r.Whnf(argRef, depth+1)
		if err != nil {
			return 0, true, err
		}
		an := r.arena.Get(a)
		switch an.Code {
		case node.ListNil, node.NilSentinel:
			res, aerr := r.trueRef(root)
			return res, true, aerr
		case node.Cons:
			res, aerr := r.falseRef(root)
			return res, true, aerr
		default:
			return 0, true, errs.New(errs.CodeWrongOperandNull, "null requires a list operand")
		}

	case node.KeyNot:
		a, err := r.Whnf(argRef, depth+1)
		if err != nil {
			return 0, true, err
		}
		an := r.arena.Get(a)
		if an.Code != node.Ident {
			return 0, true, errs.New(errs.CodeWrongOperandNot, "not requires a boolean operand")
		}
		switch an.IdentKey() {
		case node.KeyTrue:
			res, aerr := r.falseRef(root)
			return res, true, aerr
		case node.KeyFalse:
			res, aerr := r.trueRef(root)
			return res, true, aerr
		default:
			return 0, true, errs.New(errs.CodeWrongOperandNot, "not requires a boolean operand")
		}

	case node.KeyIota:
		a, err := r.Whnf(argRef, depth+1)
		if err != nil {
			return 0, true, err
		}
		an := r.arena.Get(a)
		if an.Code != node.Integer || an.IntVal < 0 {
			return 0, true, errs.New(errs.CodeWrongOperandIota, "iota requires a non-negative integer operand")
		}
		tail, aerr := r.alloc(node.Node{Code: node.ListNil}, root)
		if aerr != nil {
			return 0, true, aerr
		}
		// root is redirected to the partial list as it grows, so that a
		// collection triggered by a later allocation keeps it alive.
		r.arena.Set(root, node.MakeIndirection(tail))
		for i := an.IntVal; i >= 1; i-- {
			cons, aerr := r.alloc(node.MakeCons(node.Nil, tail), root)
			if aerr != nil {
				return 0, true, aerr
			}
			r.arena.Set(root, node.MakeIndirection(cons))
			elem, aerr := r.alloc(node.MakeInt(i), root)
			if aerr != nil {
				return 0, true, aerr
			}
			cn := r.arena.Get(cons)
			cn.Op1 = int32(uint32(elem))
			r.arena.Set(cons, cn)
			tail = cons
		}
		return tail, true, nil

	case node.KeyAdd, node.KeySub, node.KeyMult, node.KeyDiv:
		return r.listArithmetic(key, argRef, root, depth)

	case node.KeyShow:
		res, err := r.showFirst(argRef, root, depth)
		return res, true, err

	case node.KeyMore:
		res, err := r.showNext(argRef, root, depth)
		return res, true, err
	}

	return 0, false, nil
}

func (r *Reducer) listArithmetic(key int32, argRef, root node.Ref, depth int) (node.Ref, bool, *errs.LambdaError) {
	head, err := r.Whnf(argRef, depth+1)
	if err != nil {
		return 0, true, err
	}

	var acc int64
	var accReal float64
	isReal := false
	switch key {
	case node.KeyAdd, node.KeySub:
		acc = 0
	case node.KeyMult, node.KeyDiv:
		acc = 1
	}

	cur := head
	for {
		n := r.arena.Get(cur)
		if n.Code == node.ListNil || n.Code == node.NilSentinel {
			break
		}
		if n.Code != node.Cons {
			return 0, true, errs.New(errs.CodeWrongOperandListArith, "list arithmetic requires a proper list of numbers")
		}
		elem, err := r.Whnf(n.ConsHead(), depth+1)
		if err != nil {
			return 0, true, err
		}
		en := r.arena.Get(elem)

		var v int64
		var vr float64
		switch en.Code {
		case node.Integer:
			v = en.IntVal
			vr = float64(v)
		case node.Real:
			isReal = true
			vr = en.RealVal
		default:
			return 0, true, errs.New(errs.CodeWrongOperandListArith, "list arithmetic requires a list of numbers")
		}

		switch key {
		case node.KeyAdd:
			acc += v
			accReal += vr
		case node.KeySub:
			acc -= v
			accReal -= vr
		case node.KeyMult:
			acc *= v
			accReal *= vr
		case node.KeyDiv:
			if v == 0 && vr == 0 {
				return 0, true, errs.New(errs.CodeWrongOperandListArith, "division by zero in list arithmetic")
			}
			acc /= v
			accReal /= vr
		}

		next, err := r.Whnf(n.ConsTail(), depth+1)
		if err != nil {
			return 0, true, err
		}
		cur = next
	}

	var res node.Ref
	var aerr *errs.LambdaError
	if isReal {
		res, aerr = r.alloc(node.MakeReal(accReal), root)
	} else {
		res, aerr = r.alloc(node.MakeInt(acc), root)
	}
	return res, true, aerr
}

// showFirst implements the opening step of show/more: print the
// normalized head of a non-empty list prefixed by "[" and hand back
// (more)tail so the reducer's own Whnf loop keeps pulling elements one
// cons cell at a time, gamma-style, exactly as it does for map/append.
// Grounded on the original's show (case 16 of binary()): show only
// accepts an already-Cons argument; an empty list is a wrong-operand
// error there too, since show's job is printing an opening bracket for
// at least one element.
func (r *Reducer) showFirst(argRef, root node.Ref, depth int) (node.Ref, *errs.LambdaError) {
	xs, err := r.Whnf(argRef, depth+1)
	if err != nil {
		return 0, err
	}
	n := r.arena.Get(xs)
	if n.Code != node.Cons {
		return 0, errs.New(errs.CodeWrongOperandHdTl, "show requires a non-empty list")
	}
	return r.showElement(n, root, depth, "[")
}

// showNext implements the continuation step: a Cons prints its head
// after a comma and hands back another (more)tail; a ListNil closes the
// bracket and terminates the chain by returning the ListNil itself, so
// the whole (show)xs expression ultimately normalizes to the same
// terminal value xs itself would have.
func (r *Reducer) showNext(argRef, root node.Ref, depth int) (node.Ref, *errs.LambdaError) {
	xs, err := r.Whnf(argRef, depth+1)
	if err != nil {
		return 0, err
	}
	n := r.arena.Get(xs)
	switch n.Code {
	case node.ListNil, node.NilSentinel:
		if r.Output != nil {
			r.Output.WriteString("]")
		}
		return xs, nil
	case node.Cons:
		return r.showElement(n, root, depth, ",")
	default:
		return 0, errs.New(errs.CodeWrongOperandHdTl, "more requires a list")
	}
}

func (r *Reducer) showElement(cons node.Node, root node.Ref, depth int, prefix string) (node.Ref, *errs.LambdaError) {
	elem, err := r.Normalize(cons.ConsHead(), depth+1)
	if err != nil {
		return 0, err
	}
	if r.Output != nil {
		r.Output.WriteString(prefix + r.describe(elem))
	}
	moreIdent, aerr := r.alloc(node.MakeIdent(0, node.KeyMore), root)
	if aerr != nil {
		return 0, aerr
	}
	return r.alloc(node.MakeApp(moreIdent, cons.ConsTail()), root)
}

func (r *Reducer) describe(ref node.Ref) string {
	n := r.arena.Get(ref)
	switch n.Code {
	case node.Integer:
		return fmt.Sprintf("%d", n.IntVal)
	case node.Real:
		return fmt.Sprintf("%g", n.RealVal)
	default:
		return "<value>"
	}
}

// applyBinary dispatches the builtin operators (arithmetic, relational,
// and/or, map, append) once both operands of a curried two-argument
// application are known.
func (r *Reducer) applyBinary(opNode node.Node, firstArg, secondArg, root node.Ref, depth int) (node.Ref, bool, *errs.LambdaError) {
	switch opNode.Code {
	case node.Arith:
		return r.arithmetic(int32(uint32(opNode.Op2)), firstArg, secondArg, root, depth)
	case node.Relational:
		return r.relational(int32(uint32(opNode.Op2)), firstArg, secondArg, root, depth)
	case node.ConsOp:
		res, aerr := r.alloc(node.MakeCons(firstArg, secondArg), root)
		return res, true, aerr
	case node.Ident:
		switch opNode.IdentKey() {
		case node.KeyTrue:
			return firstArg, true, nil
		case node.KeyFalse:
			return secondArg, true, nil
		case node.KeyAnd:
			return r.boolFold(true, firstArg, secondArg, root, depth)
		case node.KeyOr:
			return r.boolFold(false, firstArg, secondArg, root, depth)
		case node.KeyMap:
			res, err := r.mapList(firstArg, secondArg, root, depth)
			return res, true, err
		case node.KeyAppend:
			res, err := r.appendList(firstArg, secondArg, root, depth)
			return res, true, err
		}
	}
	return 0, false, nil
}

func (r *Reducer) numeric(ref node.Ref, depth int) (isReal bool, i int64, f float64, err *errs.LambdaError) {
	a, werr := r.Whnf(ref, depth+1)
	if werr != nil {
		return false, 0, 0, werr
	}
	n := r.arena.Get(a)
	switch n.Code {
	case node.Integer:
		return false, n.IntVal, float64(n.IntVal), nil
	case node.Real:
		return true, 0, n.RealVal, nil
	default:
		return false, 0, 0, errs.New(errs.CodeWrongOperandArithmetic, "arithmetic requires numeric operands")
	}
}

func (r *Reducer) arithmetic(op int32, aRef, bRef, root node.Ref, depth int) (node.Ref, bool, *errs.LambdaError) {
	aReal, ai, af, err := r.numeric(aRef, depth)
	if err != nil {
		return 0, true, err
	}
	bReal, bi, bf, err := r.numeric(bRef, depth)
	if err != nil {
		return 0, true, err
	}
	isReal := aReal || bReal

	var resI int64
	var resF float64
	switch op {
	case node.ArithAdd:
		resI, resF = ai+bi, af+bf
	case node.ArithSub:
		resI, resF = ai-bi, af-bf
	case node.ArithMul:
		resI, resF = ai*bi, af*bf
	case node.ArithDiv:
		if !isReal && bi == 0 {
			return 0, true, errs.New(errs.CodeWrongOperandArithmetic, "division by zero")
		}
		if isReal {
			resF = af / bf
		} else {
			resI = ai / bi
		}
	default:
		return 0, true, errs.New(errs.CodeWrongOperator, "unrecognized arithmetic operator")
	}

	var res node.Ref
	var aerr *errs.LambdaError
	if isReal {
		res, aerr = r.alloc(node.MakeReal(resF), root)
	} else {
		res, aerr = r.alloc(node.MakeInt(resI), root)
	}
	return res, true, aerr
}

func (r *Reducer) relational(op int32, aRef, bRef, root node.Ref, depth int) (node.Ref, bool, *errs.LambdaError) {
	_, ai, af, err := r.numeric(aRef, depth)
	if err != nil {
		return 0, true, errs.New(errs.CodeWrongOperandComparison, "comparison requires numeric operands")
	}
	_, bi, bf, err := r.numeric(bRef, depth)
	if err != nil {
		return 0, true, errs.New(errs.CodeWrongOperandComparison, "comparison requires numeric operands")
	}
	_ = ai
	_ = bi

	var v bool
	switch op {
	case node.RelEq:
		v = af == bf
	case node.RelLt:
		v = af < bf
	case node.RelGt:
		v = af > bf
	case node.RelLe:
		v = af <= bf
	case node.RelGe:
		v = af >= bf
	case node.RelNe:
		v = af != bf
	default:
		return 0, true, errs.New(errs.CodeWrongOperator, "unrecognized relational operator")
	}
	res, aerr := r.boolRef(v, root)
	return res, true, aerr
}

func (r *Reducer) boolFold(isAnd bool, aRef, bRef, root node.Ref, depth int) (node.Ref, bool, *errs.LambdaError) {
	a, err := r.Whnf(aRef, depth+1)
	if err != nil {
		return 0, true, err
	}
	an := r.arena.Get(a)
	if an.Code != node.Ident || (an.IdentKey() != node.KeyTrue && an.IdentKey() != node.KeyFalse) {
		return 0, true, errs.New(errs.CodeWrongOperandAndOr, "and/or requires boolean operands")
	}
	av := an.IdentKey() == node.KeyTrue

	if isAnd && !av {
		res, aerr := r.falseRef(root)
		return res, true, aerr
	}
	if !isAnd && av {
		res, aerr := r.trueRef(root)
		return res, true, aerr
	}

	b, err := r.Whnf(bRef, depth+1)
	if err != nil {
		return 0, true, err
	}
	bn := r.arena.Get(b)
	if bn.Code != node.Ident || (bn.IdentKey() != node.KeyTrue && bn.IdentKey() != node.KeyFalse) {
		return 0, true, errs.New(errs.CodeWrongOperandAndOr, "and/or requires boolean operands")
	}
	res, aerr := r.boolRef(bn.IdentKey() == node.KeyTrue, root)
	return res, true, aerr
}

// mapList rewrites (map f xs) to [f x0, map f xs'] lazily, one cons
// cell at a time, gamma-style.
func (r *Reducer) mapList(fRef, xsRef, root node.Ref, depth int) (node.Ref, *errs.LambdaError) {
	xs, err := r.Whnf(xsRef, depth+1)
	if err != nil {
		return 0, err
	}
	xn := r.arena.Get(xs)
	switch xn.Code {
	case node.ListNil, node.NilSentinel:
		return xs, nil
	case node.Cons:
		h := xn.ConsHead()
		t := xn.ConsTail()
		fh, aerr := r.alloc(node.MakeApp(fRef, h), root)
		if aerr != nil {
			return 0, aerr
		}
		mapIdent, aerr := r.alloc(node.MakeIdent(0, node.KeyMap), root)
		if aerr != nil {
			return 0, aerr
		}
		mapF, aerr := r.alloc(node.MakeApp(mapIdent, fRef), root)
		if aerr != nil {
			return 0, aerr
		}
		rest, aerr := r.alloc(node.MakeApp(mapF, t), root)
		if aerr != nil {
			return 0, aerr
		}
		return r.alloc(node.MakeCons(fh, rest), root)
	default:
		return 0, errs.New(errs.CodeWrongOperandMap, "map requires a list argument")
	}
}

// appendList rewrites (append xs ys) to xs's head consed onto
// (append xs' ys), terminating in ys when xs runs out.
func (r *Reducer) appendList(xsRef, ysRef, root node.Ref, depth int) (node.Ref, *errs.LambdaError) {
	xs, err := r.Whnf(xsRef, depth+1)
	if err != nil {
		return 0, err
	}
	xn := r.arena.Get(xs)
	switch xn.Code {
	case node.ListNil, node.NilSentinel:
		return ysRef, nil
	case node.Cons:
		h := xn.ConsHead()
		t := xn.ConsTail()
		appendIdent, aerr := r.alloc(node.MakeIdent(0, node.KeyAppend), root)
		if aerr != nil {
			return 0, aerr
		}
		appendT, aerr := r.alloc(node.MakeApp(appendIdent, t), root)
		if aerr != nil {
			return 0, aerr
		}
		rest, aerr := r.alloc(node.MakeApp(appendT, ysRef), root)
		if aerr != nil {
			return 0, aerr
		}
		return r.alloc(node.MakeCons(h, rest), root)
	default:
		return 0, errs.New(errs.CodeWrongOperandAppend, "append requires a list as its first argument")
	}
}
