// Package session owns a single interpreter instance: one arena, one
// symbol table, reduction parameters, and the error counters the
// reduction core reports into. It is the sole entry point external
// collaborators (the REPL, the CLI, the LSP server, the regression
// harness) use to reach the core; nothing in internal/node, heap,
// parser, reducer, canon, gc, or printer is reachable except through a
// *Session.
package session

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	deadlock "github.com/sasha-s/go-deadlock"
	"github.com/segmentio/ksuid"

	"github.com/mathisgroup/pylambda/internal/builtin"
	"github.com/mathisgroup/pylambda/internal/canon"
	"github.com/mathisgroup/pylambda/internal/errs"
	"github.com/mathisgroup/pylambda/internal/gc"
	"github.com/mathisgroup/pylambda/internal/heap"
	"github.com/mathisgroup/pylambda/internal/node"
	"github.com/mathisgroup/pylambda/internal/parser"
	"github.com/mathisgroup/pylambda/internal/printer"
	"github.com/mathisgroup/pylambda/internal/reducer"
	"github.com/mathisgroup/pylambda/internal/symtab"
)


// Params collects the six numeric and naming options, plus the two I/O
// sinks the reducer (Output) and error reporter (ErrorFP) write through.
type Params struct {
	HeapSize         int
	CycleLimit       int
	SymbolTableSize  int
	StackSize        int
	NameLength       int
	StandardVariable rune
	Output           io.Writer // show/more side-effect sink
	ErrorFP          io.Writer // human-readable error sink
}

// DefaultParams mirrors the defaults the original interpreter shipped,
// scaled up for a modern heap.
func DefaultParams() Params {
	return Params{
		HeapSize:         20000,
		CycleLimit:       200000,
		SymbolTableSize:  2000,
		StackSize:        1000,
		NameLength:       32,
		StandardVariable: 'x',
		Output:           os.Stdout,
		ErrorFP:          os.Stderr,
	}
}

// Counters tallies every abort category spec.md §7 names, keyed by the
// stable error code that fired, plus SumNoNFTerms, the number of evals
// that ended in an eval-local abort and so produced no normal form.
type Counters struct {
	mu           sync.Mutex
	byCode       map[string]int
	SumNoNFTerms int
}

func newCounters() *Counters { return &Counters{byCode: make(map[string]int)} }

func (c *Counters) record(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byCode[code]++
}

// Count reports how many times code has fired since the session was
// created; Reset does not clear the counters.
func (c *Counters) Count(code string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.byCode[code]
}

// Session is a single live interpreter instance. Every exported method
// except Counters (whose tallies carry their own lock) is guarded by the
// same mutex: the governing model states the session
// is single-threaded by contract ("no locking because there is no
// sharing"); the mutex turns that contract into a runtime-checked
// invariant instead of trusting every caller to respect it.
type Session struct {
	ID ksuid.KSUID

	mu     deadlock.Mutex
	params Params

	arena     *heap.Arena
	symtab    *symtab.Table
	builtins  builtin.Symbols
	collector *gc.Collector

	// defs records every `let name _ expr` seen so far, across calls:
	// later eval/let bodies in the same or later calls have free
	// occurrences of name rewritten to an indirection into the
	// definition's root before reduction. This is the cross-command
	// half of sharing; within-body self-reference is handled by
	// freevars.Recurve at parse time.
	defs map[int32]node.Ref

	counters *Counters
}

// FreeVarResult is the tri-valued answer to "does this term have a free
// variable", resolving the open question in spec.md §9: a parse failure
// is reported through the separate error return instead of being
// folded into NoFreeVars.
type FreeVarResult int

const (
	NoFreeVars FreeVarResult = iota
	HasFreeVars
)

// New constructs a session with the given parameters, registering every
// builtin name in a fresh symbol table before any user code is parsed.
func New(p Params) *Session {
	if p.Output == nil {
		p.Output = io.Discard
	}
	if p.ErrorFP == nil {
		p.ErrorFP = io.Discard
	}
	s := &Session{
		ID:       ksuid.New(),
		params:   p,
		counters: newCounters(),
		defs:     make(map[int32]node.Ref),
	}
	s.init()
	return s
}

func (s *Session) init() {
	s.arena = heap.New(s.params.HeapSize)
	s.symtab = symtab.New(s.params.NameLength, s.params.SymbolTableSize)
	s.builtins = builtin.Register(s.symtab)
	s.collector = gc.New(s.arena, s.params.StackSize)
	s.arena.SetCollector(s.collector)
}

// Reset discards the arena, symbol table, and let-environment, starting
// a brand-new program. Unlike an ordinary call-to-call garbage
// collection, this also forgets every prior `let` binding; the
// regression harness uses it between independent test cases so that one
// case's identifiers can never leak into the next, and the LSP handler
// uses it before re-checking a document.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defs = make(map[int32]node.Ref)
	s.init()
}

// Counters exposes the session's running error tallies.
func (s *Session) Counters() *Counters { return s.counters }

// reportAndCount formats err against source through a fresh Reporter and
// writes it to the configured error sink, counting it under its code.
func (s *Session) reportAndCount(name, source string, err *errs.LambdaError) {
	s.counters.record(err.Code)
	rep := errs.NewReporter(name, source)
	fmt.Fprint(s.params.ErrorFP, rep.Format(err))
}

// ReduceLambda parses every command in source and reduces each `eval`
// to normal form in source order, emitting the concatenated printed
// results. `let` commands extend the session's definition environment
// for this and every later call. A parse error or any Fatal-severity
// abort (ill-typed primitive, wrong-renaming, symbol table overflow)
// returns a null result for the whole call, per spec.md §7. An
// EvalLocal abort (cycle_limit, space_limit, stack overflow inside a
// marker-based scan) instead skips only the offending eval: it
// contributes no text, the session's counters record it, and later
// commands in the same call still run, against whatever the
// collector-driven allocator could reclaim.
func (s *Session) ReduceLambda(source string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prog, perr := parser.ParseProgram(source, s.arena, s.symtab, s.params.NameLength, s.params.StackSize)
	if perr != nil {
		s.reportAndCount("eval", source, perr)
		return "", perr
	}

	var out strings.Builder
	for i, cmd := range prog.Commands {
		s.protectAround(remainingRoots(prog.Commands, i+1))
		if err := s.bindDefs(cmd.Root); err != nil {
			s.reportAndCount("eval", source, err)
			if err.Severity == errs.Fatal {
				return "", err
			}
			continue
		}

		switch cmd.Kind {
		case parser.CmdLet:
			sym, serr := s.symtab.Locate(cmd.Name)
			if serr != nil {
				s.reportAndCount("eval", source, serr)
				return "", serr
			}
			s.defs[sym] = cmd.Root

		case parser.CmdEval:
			red := reducer.New(s.arena, s.builtins, s.params.CycleLimit, s.params.StackSize, sinkOf(s.params.Output))
			normal, rerr := red.Normalize(cmd.Root, 0)
			if rerr != nil {
				s.reportAndCount("eval", source, rerr)
				if rerr.Severity == errs.Fatal {
					return "", rerr
				}
				s.counters.SumNoNFTerms++
				continue
			}
			text, printErr := printer.New(s.arena, s.symtab, false, s.params.StandardVariable, outputLimit).Print(normal)
			if printErr != nil {
				s.reportAndCount("eval", source, printErr)
				if printErr.Severity == errs.Fatal {
					return "", printErr
				}
				continue
			}
			out.WriteString(text)
		}
	}
	return out.String(), nil
}

// Standardize parses source as a single expression, runs
// alpha_standardize over it, and prints the result with canonical
// bound-variable names.
func (s *Session) Standardize(source string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	root, err := s.parseBareExpr(source)
	if err != nil {
		s.reportAndCount("standardize", source, err)
		return "", err
	}
	if err := canon.Standardize(s.arena, root, s.params.StackSize); err != nil {
		s.reportAndCount("standardize", source, err)
		return "", err
	}
	text, err := printer.New(s.arena, s.symtab, true, s.params.StandardVariable, outputLimit).Print(root)
	if err != nil {
		s.reportAndCount("standardize", source, err)
		return "", err
	}
	return text, nil
}

// BindAllFreeVars returns source prefixed by \v1.\v2.... in the order
// its free variables were discovered, so that the result is closed.
func (s *Session) BindAllFreeVars(source string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	root, err := s.parseBareExpr(source)
	if err != nil {
		s.reportAndCount("bind_all_free_vars", source, err)
		return "", err
	}

	free, ferr := canon.FreeVarsList(s.arena, root, s.params.StackSize)
	if ferr != nil {
		s.reportAndCount("bind_all_free_vars", source, ferr)
		return "", ferr
	}

	closed := root
	for i := len(free) - 1; i >= 0; i-- {
		abs, aerr := s.arena.Allocate(closed)
		if aerr != nil {
			s.reportAndCount("bind_all_free_vars", source, aerr)
			return "", aerr
		}
		s.arena.Set(abs, node.MakeAbs(free[i], closed))
		closed = abs
	}

	text, perr := printer.New(s.arena, s.symtab, false, s.params.StandardVariable, outputLimit).Print(closed)
	if perr != nil {
		s.reportAndCount("bind_all_free_vars", source, perr)
		return "", perr
	}
	return text, nil
}

// FreeVariables reports whether source, parsed as a bare expression,
// contains any free variable occurrence. A parse failure is reported
// through the error return, never folded into NoFreeVars.
func (s *Session) FreeVariables(source string) (FreeVarResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	root, err := s.parseBareExpr(source)
	if err != nil {
		s.reportAndCount("free_variables", source, err)
		return NoFreeVars, err
	}
	free, ferr := canon.FreeVarsList(s.arena, root, s.params.StackSize)
	if ferr != nil {
		s.reportAndCount("free_variables", source, ferr)
		return NoFreeVars, ferr
	}
	if len(free) > 0 {
		return HasFreeVars, nil
	}
	return NoFreeVars, nil
}

// parseBareExpr parses source as a single `eval` expression, wrapping it
// the way the grammar requires, and returns its root after binding any
// definitions carried over from earlier let commands.
func (s *Session) parseBareExpr(source string) (node.Ref, *errs.LambdaError) {
	s.protectAround(nil)
	wrapped := "eval " + source + ";"
	prog, perr := parser.ParseProgram(wrapped, s.arena, s.symtab, s.params.NameLength, s.params.StackSize)
	if perr != nil {
		return 0, perr
	}
	if len(prog.Commands) != 1 {
		return 0, errs.New(errs.CodeParseUnexpectedToken, "expected exactly one expression")
	}
	root := prog.Commands[0].Root
	if err := s.bindDefs(root); err != nil {
		return 0, err
	}
	return root, nil
}

// bindDefs rewrites every free occurrence of a previously `let`-bound
// identifier in root to an indirection into that definition's root,
// using the same marker-based DFS discipline as freevars.Recurve
// (pass one marks and rewrites, pass two restores markers), generalized
// from "replace occurrences of one id with self" to "replace
// occurrences of any id in defs with defs[id]".
func (s *Session) bindDefs(root node.Ref) *errs.LambdaError {
	if len(s.defs) == 0 {
		return nil
	}
	visited := make(map[node.Ref]bool)
	type frame struct {
		r      node.Ref
		parent node.Ref
		which  int // 0 = func/head, 1 = arg/tail/abs-body
		shadow map[int32]bool
	}
	stack := []frame{{r: root, which: -1}}
	defer s.unmarkAll(visited)

	for len(stack) > 0 {
		if len(stack) > s.params.StackSize {
			return errs.NewEvalLocal(errs.CodeNotFreeOverflow, "definition binding exceeded its stack limit")
		}
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		r := s.arena.Deref(top.r)
		if r == node.Nil {
			continue
		}
		n := s.arena.Get(r)

		if n.Code == node.Ident && n.IdentKey() == 0 && !top.shadow[n.IdentSym()] {
			if defRoot, ok := s.defs[n.IdentSym()]; ok && defRoot != r {
				s.rewriteChild(top.parent, top.which, r, defRoot)
				continue
			}
		}

		if visited[r] {
			continue
		}
		visited[r] = true
		s.mark(r)

		switch n.Code {
		case node.Abstraction:
			shadow := cloneShadow(top.shadow)
			shadow[n.AbsVar()] = true
			stack = append(stack, frame{r: n.AbsBody(), parent: r, which: 1, shadow: shadow})
		case node.Application:
			stack = append(stack, frame{r: n.AppFunc(), parent: r, which: 0, shadow: top.shadow})
			stack = append(stack, frame{r: n.AppArg(), parent: r, which: 1, shadow: top.shadow})
		case node.Cons:
			stack = append(stack, frame{r: n.ConsHead(), parent: r, which: 0, shadow: top.shadow})
			stack = append(stack, frame{r: n.ConsTail(), parent: r, which: 1, shadow: top.shadow})
		}
	}
	return nil
}

// protectAround tells the arena to keep extra alive across any
// collection a later Allocate call triggers, in addition to the
// let-environment: parser.ParseProgram builds every command's graph into
// the same arena up front, so reducing command N must not let the
// collector reclaim command N+1's still-unprocessed graph just because
// it isn't reachable from N's root.
func (s *Session) protectAround(extra []node.Ref) {
	roots := make([]node.Ref, 0, len(s.defs)+len(extra))
	for _, r := range s.defs {
		roots = append(roots, r)
	}
	roots = append(roots, extra...)
	s.arena.SetProtectedRoots(roots)
}

// remainingRoots collects the root of every command from index on,
// matching their source position so a command being reduced never loses
// a sibling command that hasn't run yet.
func remainingRoots(cmds []parser.Command, from int) []node.Ref {
	if from >= len(cmds) {
		return nil
	}
	roots := make([]node.Ref, 0, len(cmds)-from)
	for _, c := range cmds[from:] {
		roots = append(roots, c.Root)
	}
	return roots
}

func cloneShadow(s map[int32]bool) map[int32]bool {
	out := make(map[int32]bool, len(s)+1)
	for k, v := range s {
		out[k] = v
	}
	return out
}

func (s *Session) rewriteChild(parent node.Ref, which int, occurrence, target node.Ref) {
	s.arena.Set(occurrence, node.MakeIndirection(target))
	if parent == node.Nil {
		return
	}
	n := s.arena.Get(parent)
	switch n.Code {
	case node.Abstraction:
		n.Op2 = occurrence
	case node.Application, node.Cons:
		if which == 0 {
			n.Op1 = int32(uint32(occurrence))
		} else {
			n.Op2 = occurrence
		}
	}
	s.arena.Set(parent, n)
}

func (s *Session) mark(r node.Ref) {
	n := s.arena.Get(r)
	n.Marker = true
	s.arena.Set(r, n)
}

func (s *Session) unmarkAll(visited map[node.Ref]bool) {
	for r := range visited {
		n := s.arena.Get(r)
		n.Marker = false
		s.arena.Set(r, n)
	}
}

// outputLimit bounds the printer's output buffer, matching the
// original's fixed-size print buffer.
const outputLimit = 1 << 20

type writerSink struct{ w io.Writer }

func (w writerSink) WriteString(str string) (int, error) {
	if bw, ok := w.w.(interface{ WriteString(string) (int, error) }); ok {
		return bw.WriteString(str)
	}
	return w.w.Write([]byte(str))
}

func sinkOf(w io.Writer) reducer.OutputSink {
	if w == nil {
		return nil
	}
	return writerSink{w}
}

// NewBufferedSession is a convenience constructor for callers that want
// show/more output captured in a buffer instead of streamed to a real
// writer.
func NewBufferedSession(p Params) (*Session, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	p.Output = buf
	return New(p), buf
}
