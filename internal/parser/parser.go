// Package parser turns tokenized source into a graph of heap nodes,
// allocating them in the arena as it parses. An abstraction's node is
// allocated before its body is parsed; application and list nodes are
// allocated only after their parts have been parsed.
package parser

import (
	"fmt"

	"github.com/mathisgroup/pylambda/internal/errs"
	"github.com/mathisgroup/pylambda/internal/freevars"
	"github.com/mathisgroup/pylambda/internal/heap"
	"github.com/mathisgroup/pylambda/internal/lexer"
	"github.com/mathisgroup/pylambda/internal/node"
	"github.com/mathisgroup/pylambda/internal/symtab"
)

// CommandKind distinguishes the two top-level forms the grammar allows.
type CommandKind int

const (
	CmdEval CommandKind = iota
	CmdLet
)

type Command struct {
	Kind CommandKind
	Name string // only set for CmdLet
	Root node.Ref
	Pos  lexer.Position
}

// Program is everything a parse of a whole source produces: the ordered
// command list and every identifier spelling that occurs in expression
// position, in discovery order, duplicates included — callers needing a
// deduplicated set filter this themselves. Abstraction parameters and
// let names are not recorded.
type Program struct {
	Commands    []Command
	Identifiers []string
}

type Parser struct {
	lex        *lexer.Lexer
	arena      *heap.Arena
	symtab     *symtab.Table
	stackLimit int

	cur  lexer.Token
	next lexer.Token

	identifiers []string
}

func New(source string, a *heap.Arena, st *symtab.Table, nameLength, stackLimit int) *Parser {
	p := &Parser{lex: lexer.New(source, nameLength), arena: a, symtab: st, stackLimit: stackLimit}
	p.cur = p.lex.Next()
	p.next = p.lex.Next()
	return p
}

func (p *Parser) advance() lexer.Token {
	t := p.cur
	p.cur = p.next
	p.next = p.lex.Next()
	return t
}

func (p *Parser) check(tt lexer.TokenType) bool { return p.cur.Type == tt }

func (p *Parser) consume(tt lexer.TokenType, message string) (lexer.Token, *errs.LambdaError) {
	if p.check(tt) {
		return p.advance(), nil
	}
	return lexer.Token{}, p.errorAt(p.cur, message)
}

func (p *Parser) errorAt(t lexer.Token, message string) *errs.LambdaError {
	return errs.New(errs.CodeParseUnexpectedToken, message).At(errs.Position{Line: t.Pos.Line, Column: t.Pos.Column})
}

// ParseProgram consumes the whole token stream as (command ';')*.
func ParseProgram(source string, a *heap.Arena, st *symtab.Table, nameLength, stackLimit int) (*Program, *errs.LambdaError) {
	p := New(source, a, st, nameLength, stackLimit)
	prog := &Program{}

	for !p.check(lexer.EOF) {
		cmd, err := p.parseCommand()
		if err != nil {
			return nil, err
		}
		prog.Commands = append(prog.Commands, cmd)
		// Every command parsed so far already lives in the arena, but
		// nothing else in the arena points at it yet (Program.Commands is
		// a plain Go slice). Keep it in the protected-root set so that
		// allocating nodes for a later command in this same program can't
		// have the collector reclaim an earlier one.
		a.SetProtectedRoots(commandRoots(prog.Commands))
		if _, err := p.consume(lexer.Semicolon, "expected ';' after command"); err != nil {
			return nil, err
		}
	}

	prog.Identifiers = p.identifiers
	return prog, nil
}

func commandRoots(cmds []Command) []node.Ref {
	roots := make([]node.Ref, len(cmds))
	for i, c := range cmds {
		roots[i] = c.Root
	}
	return roots
}

func (p *Parser) parseCommand() (Command, *errs.LambdaError) {
	switch {
	case p.check(lexer.KwEval):
		pos := p.advance().Pos
		expr, err := p.parseExpr()
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: CmdEval, Root: expr, Pos: toPos(pos)}, nil

	case p.check(lexer.KwLet):
		pos := p.advance().Pos
		nameTok, err := p.consume(lexer.IDENT, "expected an identifier after 'let'")
		if err != nil {
			return Command{}, err
		}
		if _, err := p.consume(lexer.Underscore, "expected '_' after let-bound name"); err != nil {
			return Command{}, errs.New(errs.CodeParseMisplacedUnderscore, "misplaced '_' in let-binding").At(errs.Position{Line: pos.Line, Column: pos.Column})
		}
		body, err := p.parseExpr()
		if err != nil {
			return Command{}, err
		}

		sym, serr := p.symtab.Locate(nameTok.Literal)
		if serr != nil {
			return Command{}, serr
		}
		if rerr := freevars.Recurve(p.arena, sym, body, body, p.stackLimit); rerr != nil {
			return Command{}, rerr
		}

		return Command{Kind: CmdLet, Name: nameTok.Literal, Root: body, Pos: toPos(pos)}, nil
	}

	return Command{}, p.errorAt(p.cur, fmt.Sprintf("expected 'eval' or 'let', found %q", p.cur.Literal))
}

func toPos(p lexer.Position) lexer.Position { return p }

var primitiveTokens = map[lexer.TokenType]node.Node{
	lexer.Quest: {Code: node.YCombinator},
	lexer.Caret: {Code: node.Head},
	lexer.Tilde: {Code: node.Tail},
	lexer.Amp:   {Code: node.ConsOp},
	lexer.Plus:  {Code: node.Arith, Op2: node.Ref(uint32(node.ArithAdd))},
	lexer.Minus: {Code: node.Arith, Op2: node.Ref(uint32(node.ArithSub))},
	lexer.Star:  {Code: node.Arith, Op2: node.Ref(uint32(node.ArithMul))},
	lexer.Slash: {Code: node.Arith, Op2: node.Ref(uint32(node.ArithDiv))},
	lexer.Eq:    {Code: node.Relational, Op2: node.Ref(uint32(node.RelEq))},
	lexer.Lt:    {Code: node.Relational, Op2: node.Ref(uint32(node.RelLt))},
	lexer.Gt:    {Code: node.Relational, Op2: node.Ref(uint32(node.RelGt))},
	lexer.Le:    {Code: node.Relational, Op2: node.Ref(uint32(node.RelLe))},
	lexer.Ge:    {Code: node.Relational, Op2: node.Ref(uint32(node.RelGe))},
	lexer.Ne:    {Code: node.Relational, Op2: node.Ref(uint32(node.RelNe))},
}

// parseExpr implements the grammar's single expr production. It is not a
// Pratt parser: this grammar has no infix precedence to resolve, only
// prefix forms and explicit parenthesized application.
func (p *Parser) parseExpr() (node.Ref, *errs.LambdaError) {
	switch {
	case p.check(lexer.Backslash):
		return p.parseAbstraction()
	case p.check(lexer.LParen):
		return p.parseApplication()
	case p.check(lexer.LBracket):
		return p.parseList()
	case p.check(lexer.INT):
		tok := p.advance()
		return p.alloc(node.MakeInt(parseInt(tok.Literal)))
	case p.check(lexer.REAL):
		tok := p.advance()
		return p.alloc(node.MakeReal(parseReal(tok.Literal)))
	case p.check(lexer.IDENT):
		tok := p.advance()
		p.identifiers = append(p.identifiers, tok.Literal)
		sym, err := p.symtab.Locate(tok.Literal)
		if err != nil {
			return 0, err
		}
		return p.alloc(node.MakeIdent(sym, p.symtab.BuiltinKey(sym)))
	default:
		if n, ok := primitiveTokens[p.cur.Type]; ok {
			p.advance()
			return p.alloc(n)
		}
	}
	return 0, p.errorAt(p.cur, fmt.Sprintf("unknown symbol %q", p.cur.Literal))
}

func (p *Parser) parseAbstraction() (node.Ref, *errs.LambdaError) {
	p.advance() // '\'
	nameTok, err := p.consume(lexer.IDENT, "expected an identifier after '\\'")
	if err != nil {
		return 0, errs.New(errs.CodeParseMissingIdentifier, err.Message).At(errs.Position{Line: nameTok.Pos.Line, Column: nameTok.Pos.Column})
	}
	if _, err := p.consume(lexer.Dot, "expected '.' after abstraction parameter"); err != nil {
		return 0, errs.New(errs.CodeParseMisplacedDot, "misplaced '.' in abstraction").At(errs.Position{Line: p.cur.Pos.Line, Column: p.cur.Pos.Column})
	}

	sym, serr := p.symtab.Locate(nameTok.Literal)
	if serr != nil {
		return 0, serr
	}

	bodyRef, allocErr := p.arena.Allocate(0)
	if allocErr != nil {
		return 0, allocErr
	}
	selfRef, allocErr := p.arena.Allocate(bodyRef)
	if allocErr != nil {
		return 0, allocErr
	}
	p.arena.Set(selfRef, node.MakeAbs(sym, bodyRef))

	body, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	n := p.arena.Get(selfRef)
	n.Op2 = body
	p.arena.Set(selfRef, n)
	return selfRef, nil
}

func (p *Parser) parseApplication() (node.Ref, *errs.LambdaError) {
	p.advance() // '('
	fn, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if _, err := p.consume(lexer.RParen, "expected ')' to close application's function position"); err != nil {
		return 0, err
	}
	arg, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	return p.alloc(node.MakeApp(fn, arg))
}

func (p *Parser) parseList() (node.Ref, *errs.LambdaError) {
	p.advance() // '['
	if p.check(lexer.RBracket) {
		p.advance()
		return p.alloc(node.Node{Code: node.ListNil})
	}

	var elems []node.Ref
	first, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	elems = append(elems, first)

	for p.check(lexer.Comma) {
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		elems = append(elems, e)
	}

	if _, err := p.consume(lexer.RBracket, "expected ']' to close list"); err != nil {
		return 0, errs.New(errs.CodeParseUnterminatedList, "unterminated list literal").At(errs.Position{Line: p.cur.Pos.Line, Column: p.cur.Pos.Column})
	}

	tail, allocErr := p.alloc(node.Node{Code: node.ListNil})
	if allocErr != nil {
		return 0, allocErr
	}
	for i := len(elems) - 1; i >= 0; i-- {
		cons, allocErr := p.alloc(node.MakeCons(elems[i], tail))
		if allocErr != nil {
			return 0, allocErr
		}
		tail = cons
	}
	return tail, nil
}

func (p *Parser) alloc(n node.Node) (node.Ref, *errs.LambdaError) {
	r, err := p.arena.Allocate(0)
	if err != nil {
		return 0, err
	}
	p.arena.Set(r, n)
	return r, nil
}

func parseInt(s string) int64 {
	var v int64
	for _, c := range s {
		v = v*10 + int64(c-'0')
	}
	return v
}

func parseReal(s string) float64 {
	var intPart, fracPart int64
	var fracDigits int
	seenDot := false
	for _, c := range s {
		if c == '.' {
			seenDot = true
			continue
		}
		if !seenDot {
			intPart = intPart*10 + int64(c-'0')
		} else {
			fracPart = fracPart*10 + int64(c-'0')
			fracDigits++
		}
	}
	result := float64(intPart)
	if fracDigits > 0 {
		div := 1.0
		for i := 0; i < fracDigits; i++ {
			div *= 10
		}
		result += float64(fracPart) / div
	}
	return result
}
