package errs

import "fmt"

// Position locates a diagnostic in source text, 1-indexed like the
// teacher's parser positions.
type Position struct {
	Line   int
	Column int
}

// Severity mirrors the counter taxonomy the original interpreter kept on
// its flags struct, collapsed onto two abort granularities.
type Severity int

const (
	// Fatal aborts the whole top-level call (reduce_lambda/standardize/
	// bind_all_free_vars/free_variables): nothing accumulated so far in
	// that call is returned. Corresponds to the original's RECOVER jump.
	Fatal Severity = iota
	// EvalLocal aborts only the current eval/command; prior and
	// subsequent commands in the same top-level call are unaffected.
	// Corresponds to the original's LONGJUMP (cycle_limit and
	// not_free_overflow encountered inside the reducer's own loop).
	EvalLocal
)

// LambdaError is the single error type carrying everything the original
// interpreter's error reporter needed: a stable code, a message, an
// optional position, and optional suggestion/help text.
type LambdaError struct {
	Code     string
	Message  string
	Severity Severity
	Pos      *Position
	Help     string
}

func (e *LambdaError) Error() string {
	if e.Pos != nil {
		return fmt.Sprintf("%s: %s (at %d:%d)", e.Code, e.Message, e.Pos.Line, e.Pos.Column)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(code, message string) *LambdaError {
	return &LambdaError{Code: code, Message: message, Severity: Fatal}
}

func NewEvalLocal(code, message string) *LambdaError {
	return &LambdaError{Code: code, Message: message, Severity: EvalLocal}
}

func (e *LambdaError) At(pos Position) *LambdaError {
	e2 := *e
	e2.Pos = &pos
	return &e2
}

func (e *LambdaError) WithHelp(help string) *LambdaError {
	e2 := *e
	e2.Help = help
	return &e2
}
