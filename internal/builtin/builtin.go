// Package builtin holds the fixed name-to-key table for the engine's
// primitive identifiers and the registration helper that interns them
// into a fresh symbol table before any user code is parsed.
package builtin

import (
	"github.com/mathisgroup/pylambda/internal/node"
	"github.com/mathisgroup/pylambda/internal/symtab"
)

// Names maps each reserved identifier spelling to its builtin key.
var Names = map[string]int32{
	"pred":   node.KeyPred,
	"zero":   node.KeyZero,
	"succ":   node.KeySucc,
	"null":   node.KeyNull,
	"add":    node.KeyAdd,
	"sub":    node.KeySub,
	"mult":   node.KeyMult,
	"div":    node.KeyDiv,
	"iota":   node.KeyIota,
	"show":   node.KeyShow,
	"more":   node.KeyMore,
	"not":    node.KeyNot,
	"true":   node.KeyTrue,
	"false":  node.KeyFalse,
	"and":    node.KeyAnd,
	"or":     node.KeyOr,
	"map":    node.KeyMap,
	"append": node.KeyAppend,
}

// Symbols holds the interned symbol ids of "true" and "false", handed
// back from Register so callers (the reducer, mainly) don't need to
// re-locate "true"/"false" by string on every boolean result.
type Symbols struct {
	True, False int32
}

// Register interns every builtin name into st with its reserved key and
// returns the interned ids for the two boolean constants, which the
// reducer constructs directly rather than re-looking-up by name.
func Register(st *symtab.Table) Symbols {
	var sym Symbols
	for name, key := range Names {
		id := st.DefineBuiltin(name, key)
		switch key {
		case node.KeyTrue:
			sym.True = id
		case node.KeyFalse:
			sym.False = id
		}
	}
	return sym
}
