// Package printer serializes a graph back to text, consulting scope
// annotations to render canonical bound-variable names when standard
// mode is requested.
package printer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mathisgroup/pylambda/internal/errs"
	"github.com/mathisgroup/pylambda/internal/heap"
	"github.com/mathisgroup/pylambda/internal/node"
	"github.com/mathisgroup/pylambda/internal/symtab"
)

type Printer struct {
	Arena            *heap.Arena
	Symtab           *symtab.Table
	Standard         bool
	StandardVariable rune
	OutputLimit      int

	scopeOffset int32
	freeNames   map[string]bool
}

func New(a *heap.Arena, st *symtab.Table, standard bool, standardVar rune, outputLimit int) *Printer {
	return &Printer{Arena: a, Symtab: st, Standard: standard, StandardVariable: standardVar, OutputLimit: outputLimit, freeNames: make(map[string]bool)}
}

// Print renders root as text. When Standard is set, the printer picks a
// scope_offset avoiding collisions between generated canonical names and
// free-variable spellings actually present in the term, bumping it until
// no collision remains.
func (p *Printer) Print(root node.Ref) (string, *errs.LambdaError) {
	if p.Standard {
		p.collectFreeNames(root, make(map[node.Ref]bool))
		p.scopeOffset = 0
		for p.hasCollision() {
			p.scopeOffset++
		}
	}
	var b strings.Builder
	if err := p.print(root, &b, make(map[node.Ref]bool)); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (p *Printer) hasCollision() bool {
	// Canonical names are <letter><scope+offset> with scope >= 1, so a
	// free name <letter><k> can only clash with a generated name while
	// k > offset. Every such free name counts as a collision, whether or
	// not some scope id actually lands on k, so the bump loop in Print
	// stops once the offset reaches the largest such k.
	for name := range p.freeNames {
		if strings.HasPrefix(name, string(p.StandardVariable)) {
			if v, err := strconv.ParseInt(name[1:], 10, 32); err == nil && strconv.FormatInt(v, 10) == name[1:] && v > int64(p.scopeOffset) {
				return true
			}
		}
	}
	return false
}

func (p *Printer) collectFreeNames(r node.Ref, visited map[node.Ref]bool) {
	r = p.Arena.Deref(r)
	if r == node.Nil || visited[r] {
		return
	}
	visited[r] = true
	n := p.Arena.Get(r)
	switch n.Code {
	case node.Ident:
		if n.Scope == 0 && n.IdentKey() == 0 {
			p.freeNames[p.Symtab.Name(n.IdentSym())] = true
		}
	case node.Abstraction:
		p.collectFreeNames(n.AbsBody(), visited)
	case node.Application:
		p.collectFreeNames(n.AppFunc(), visited)
		p.collectFreeNames(n.AppArg(), visited)
	case node.Cons:
		p.collectFreeNames(n.ConsHead(), visited)
		p.collectFreeNames(n.ConsTail(), visited)
	}
}

func (p *Printer) print(r node.Ref, b *strings.Builder, visiting map[node.Ref]bool) *errs.LambdaError {
	if b.Len() > p.OutputLimit {
		return errs.New(errs.CodeOutputOverflow, "printed output exceeded the output buffer")
	}
	r = p.Arena.Deref(r)
	n := p.Arena.Get(r)

	switch n.Code {
	case node.NilSentinel, node.ListNil:
		b.WriteString("[]")
		return nil
	case node.Integer:
		b.WriteString(strconv.FormatInt(n.IntVal, 10))
		return nil
	case node.Real:
		b.WriteString(strconv.FormatFloat(n.RealVal, 'g', -1, 64))
		return nil
	case node.YCombinator:
		b.WriteString("?")
		return nil
	case node.Head:
		b.WriteString("^")
		return nil
	case node.Tail:
		b.WriteString("~")
		return nil
	case node.ConsOp:
		b.WriteString("&")
		return nil
	case node.Arith:
		b.WriteString(arithSymbol(int32(uint32(n.Op2))))
		return nil
	case node.Relational:
		b.WriteString(relSymbol(int32(uint32(n.Op2))))
		return nil
	case node.Ident:
		b.WriteString(p.identName(n))
		return nil
	case node.Abstraction:
		if visiting[r] {
			b.WriteString("<cycle>")
			return nil
		}
		visiting[r] = true
		b.WriteString("\\")
		b.WriteString(p.boundName(n))
		b.WriteString(".")
		err := p.print(n.AbsBody(), b, visiting)
		delete(visiting, r)
		return err
	case node.Application:
		if visiting[r] {
			b.WriteString("<cycle>")
			return nil
		}
		visiting[r] = true
		b.WriteString("(")
		if err := p.print(n.AppFunc(), b, visiting); err != nil {
			return err
		}
		b.WriteString(")")
		err := p.print(n.AppArg(), b, visiting)
		delete(visiting, r)
		return err
	case node.Cons:
		if visiting[r] {
			b.WriteString("<cycle>")
			return nil
		}
		visiting[r] = true
		b.WriteString("[")
		if err := p.print(n.ConsHead(), b, visiting); err != nil {
			return err
		}
		err := p.printListTail(n.ConsTail(), b, visiting)
		delete(visiting, r)
		if err != nil {
			return err
		}
		b.WriteString("]")
		return nil
	default:
		return errs.New(errs.CodeWrongOperator, fmt.Sprintf("printer reached an unexpected node code %v", n.Code))
	}
}

func (p *Printer) printListTail(r node.Ref, b *strings.Builder, visiting map[node.Ref]bool) *errs.LambdaError {
	r = p.Arena.Deref(r)
	n := p.Arena.Get(r)
	switch n.Code {
	case node.NilSentinel, node.ListNil:
		return nil
	case node.Cons:
		b.WriteString(",")
		if err := p.print(n.ConsHead(), b, visiting); err != nil {
			return err
		}
		return p.printListTail(n.ConsTail(), b, visiting)
	default:
		// improper tail (e.g. a variable): render it after a separator
		b.WriteString("|")
		return p.print(r, b, visiting)
	}
}

func (p *Printer) identName(n node.Node) string {
	if p.Standard && n.Scope != 0 {
		return fmt.Sprintf("%c%d", p.StandardVariable, n.Scope+p.scopeOffset)
	}
	return p.Symtab.Name(n.IdentSym())
}

func (p *Printer) boundName(n node.Node) string {
	if p.Standard && n.Scope != 0 {
		return fmt.Sprintf("%c%d", p.StandardVariable, n.Scope+p.scopeOffset)
	}
	return p.Symtab.Name(n.AbsVar())
}

func arithSymbol(op int32) string {
	switch op {
	case node.ArithAdd:
		return "+"
	case node.ArithSub:
		return "-"
	case node.ArithMul:
		return "*"
	case node.ArithDiv:
		return "/"
	}
	return "?op"
}

func relSymbol(op int32) string {
	switch op {
	case node.RelEq:
		return "="
	case node.RelLt:
		return "<"
	case node.RelGt:
		return ">"
	case node.RelLe:
		return "<="
	case node.RelGe:
		return ">="
	case node.RelNe:
		return "<>"
	}
	return "?rel"
}
