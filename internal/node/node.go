// Package node defines the tagged heap-node representation shared by every
// component that reads or rewrites the reduction graph.
package node

// Ref addresses a node in an arena. Zero is reserved for the permanent NIL
// sentinel and doubles as the free-list terminator.
type Ref uint32

// Nil is the always-valid, always-marked sentinel index.
const Nil Ref = 0

// Code identifies the kind of a node. Most codes are small non-negative
// tags; a renaming-prefix node is instead represented by the dedicated
// Rename flag below rather than by a negative integer, per the sum-type
// redesign: code is never compared against zero to decide sign.
type Code int32

const (
	Indirection Code = iota // 0: also the shape of a freshly allocated node
	Abstraction              // 1: \x.body
	Application              // 2: (f)arg
	Cons                     // 3: list cons [h|t]
	ListNil                  // 4: end of list
	YCombinator              // 5: ?
	Head                     // 6: ^
	Tail                     // 7: ~
	ConsOp                   // 8: &
	Integer                  // 9: integer literal
	Real                     // 10: real literal
	Ident                    // 11: identifier / builtin
	NilSentinel              // 12: the permanent NIL node at index 0
	PrintOpen                // 13: transient printer marker, first list element
	PrintComma               // 14: transient printer marker, continuation
	Arith                    // 15: arithmetic operator
	Relational               // 16: relational operator
)

// ArithOp values stored in an Arith node's payload.
const (
	ArithAdd = 1 + iota
	ArithSub
	ArithMul
	ArithDiv
)

// RelOp values stored in a Relational node's payload.
const (
	RelEq = iota
	RelLt
	RelGt
	RelLe
	RelGe
	RelNe
)

// Builtin keys, assigned low integers so the reducer can recognize a
// primitive without a string compare.
const (
	KeyNone = 0
	KeyPred = 1
	KeyZero = 2
	KeySucc = 3
	KeyNull = 4
	KeyAdd  = 5
	KeySub  = 6
	KeyMult = 7
	KeyDiv  = 8
	KeyIota = 15
	KeyShow = 16
	KeyMore = 17
	KeyNot  = 20
	KeyTrue = 21
	KeyFalse = 22
	KeyAnd  = 23
	KeyOr   = 24
	KeyMap  = 25
	KeyAppend = 26
	// KeySelect is an undocumented primitive recovered from the original
	// C source: using an integer literal in function position selects
	// the nth element of the list applied to it. Not in the published
	// grammar; included as a supplemental feature.
	KeySelect = 27
)

// Node is one heap record: (code, op1, payload, marker, scope) plus the
// renaming-prefix fields folded in as a distinct variant instead of a
// sign trick on code.
type Node struct {
	Code Code

	Op1     int32 // abstraction bound-var id / ident symbol id / rename fresh id
	Op2     Ref   // application arg / cons tail / ident builtin key / rename body
	IntVal  int64 // integer literal payload
	RealVal float64 // real literal payload

	Marker bool
	Scope  int32

	// Rename is true when this node is an in-flight alpha-renaming
	// prefix {Fresh/Old}. Old and Fresh are symbol ids (Old may be a
	// user symbol or a previously generated system variable; Fresh is
	// always a system variable). Op2 holds the prefix's body.
	Rename     bool
	RenameOld  int32
	RenameFresh int32
}

// IsLeaf reports whether a node's Op1/Op2 are payload rather than graph
// children — the collector and free-variable scan must not descend into
// these. Codes 4 and up other than identifiers are not descended into by
// marker-based DFS; identifiers (11) carry no children either.
func (n Node) IsLeaf() bool {
	if n.Rename {
		return false
	}
	switch n.Code {
	case Abstraction, Application, Cons:
		return false
	default:
		return true
	}
}

// AppFunc and AppArg read an Application node's children without path
// compression; use heap.Arena.LChild/RChild when compression is wanted.
func (n Node) AppFunc() Ref { return Ref(uint32(n.Op1)) }
func (n Node) AppArg() Ref  { return n.Op2 }

// AbsVar and AbsBody read an Abstraction node.
func (n Node) AbsVar() int32 { return n.Op1 }
func (n Node) AbsBody() Ref  { return n.Op2 }

// ConsHead and ConsTail read a Cons node's children.
func (n Node) ConsHead() Ref { return Ref(uint32(n.Op1)) }
func (n Node) ConsTail() Ref { return n.Op2 }

// IdentSym and IdentKey read an Ident node.
func (n Node) IdentSym() int32 { return n.Op1 }
func (n Node) IdentKey() int32 { return int32(uint32(n.Op2)) }

func MakeApp(fn, arg Ref) Node {
	return Node{Code: Application, Op1: int32(uint32(fn)), Op2: arg}
}

func MakeAbs(boundVar int32, body Ref) Node {
	return Node{Code: Abstraction, Op1: boundVar, Op2: body}
}

func MakeCons(head, tail Ref) Node {
	return Node{Code: Cons, Op1: int32(uint32(head)), Op2: tail}
}

func MakeIdent(sym int32, key int32) Node {
	return Node{Code: Ident, Op1: sym, Op2: Ref(uint32(key))}
}

func MakeIndirection(target Ref) Node {
	return Node{Code: Indirection, Op2: target}
}

func MakeInt(v int64) Node {
	return Node{Code: Integer, IntVal: v}
}

func MakeReal(v float64) Node {
	return Node{Code: Real, RealVal: v}
}

func MakeRename(fresh, old int32, body Ref) Node {
	return Node{Rename: true, RenameFresh: fresh, RenameOld: old, Op2: body}
}

func (c Code) String() string {
	switch c {
	case Indirection:
		return "indirection"
	case Abstraction:
		return "abstraction"
	case Application:
		return "application"
	case Cons:
		return "cons"
	case ListNil:
		return "nil"
	case YCombinator:
		return "Y"
	case Head:
		return "head"
	case Tail:
		return "tail"
	case ConsOp:
		return "cons-op"
	case Integer:
		return "integer"
	case Real:
		return "real"
	case Ident:
		return "ident"
	case NilSentinel:
		return "NIL"
	case PrintOpen:
		return "print-open"
	case PrintComma:
		return "print-comma"
	case Arith:
		return "arith"
	case Relational:
		return "relational"
	default:
		return "unknown"
	}
}
