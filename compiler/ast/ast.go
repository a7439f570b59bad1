package ast

import (
	"github.com/slowlang/quadcc/compiler/tp"
)

type (
	// Node is one of the types declared in this package.
	Node interface {
		Pos() int
		node()
	}

	Base struct {
		Line int
	}

	Op int

	ConstKind int

	JumpKind int

	TopLevel struct {
		Base `tlog:",embed"`

		Decls *List
	}

	// List is a cell of a singly linked node list.
	// The head caches the last cell.
	List struct {
		Base `tlog:",embed"`

		Node Node
		Next *List

		end *List
	}

	Ident struct {
		Base `tlog:",embed"`

		Name string
		Sym  *tp.Symbol
	}

	Constant struct {
		Base `tlog:",embed"`

		Kind     ConstKind
		Unsigned bool

		Int   int64
		Float float64
		Str   []byte
	}

	BinOp struct {
		Base `tlog:",embed"`

		Op   Op
		L, R Node
	}

	Unary struct {
		Base `tlog:",embed"`

		Op Op
		X  Node
	}

	Ternary struct {
		Base `tlog:",embed"`

		Cond, Then, Else Node
	}

	Call struct {
		Base `tlog:",embed"`

		Func Node
		Args *List
	}

	Member struct {
		Base `tlog:",embed"`

		X     Node
		Name  *Ident
		Arrow bool
	}

	// Decl declares one identifier.
	// Initializers are split off into a following assignment.
	Decl struct {
		Base `tlog:",embed"`

		Ident *Ident // nil for abstract declarators
		Type  tp.Type
	}

	// TypeNode is a bare type: a specifier, a qualifier or a declarator layer.
	TypeNode struct {
		Base `tlog:",embed"`

		Type tp.Type
	}

	EnumDef struct {
		Base `tlog:",embed"`

		Ident  *Ident
		Values *List // of *Enumerator
	}

	Enumerator struct {
		Base `tlog:",embed"`

		Ident *Ident
		Value Node
	}

	If struct {
		Base `tlog:",embed"`

		Cond, Then, Else Node
	}

	// For is also a while loop (no Init and Step) and a do-while loop.
	For struct {
		Base `tlog:",embed"`

		Init, Cond, Step Node
		Body             Node

		DoWhile bool
	}

	Jump struct {
		Base `tlog:",embed"`

		Kind  JumpKind
		Label *Ident
	}

	// Label marks the place of a label. The labeled statement follows it in the list.
	Label struct {
		Base `tlog:",embed"`

		Ident *Ident
	}

	Return struct {
		Base `tlog:",embed"`

		X Node
	}

	Switch struct {
		Base `tlog:",embed"`

		X    Node
		Body Node
	}

	// Case is a case label. X is nil for default.
	Case struct {
		Base `tlog:",embed"`

		X    Node
		Stmt Node
	}
)

const (
	OpInvalid Op = iota

	Add
	Sub
	Mul
	Div
	Mod
	Shl
	Shr
	BitAnd
	BitOr
	BitXor
	LogAnd
	LogOr

	Lt
	Gt
	Le
	Ge
	Eq
	Ne

	Assign
	AddAssign
	SubAssign
	MulAssign
	DivAssign
	ModAssign
	ShlAssign
	ShrAssign
	AndAssign
	OrAssign
	XorAssign

	Cast
	Comma

	AddrOf
	Deref
	Plus
	Neg
	BitNot
	LogNot
	Sizeof
	PostInc
	PostDec
)

const (
	ConstInt ConstKind = iota
	ConstLong
	ConstLongLong
	ConstFloat
	ConstDouble
	ConstLongDouble
	ConstChar
	ConstString
)

const (
	Goto JumpKind = iota
	Break
	Continue
)

var opNames = []string{
	OpInvalid: "INVALID",
	Add:       "ADD",
	Sub:       "SUBTRACT",
	Mul:       "MULTIPLY",
	Div:       "DIVIDE",
	Mod:       "MOD",
	Shl:       "SHIFT_LEFT",
	Shr:       "SHIFT_RIGHT",
	BitAnd:    "BITWISE_AND",
	BitOr:     "BITWISE_OR",
	BitXor:    "BITWISE_XOR",
	LogAnd:    "LOGICAL_AND",
	LogOr:     "LOGICAL_OR",
	Lt:        "LESS_THAN",
	Gt:        "GREATER_THAN",
	Le:        "LESS_THAN_OR_EQUAL",
	Ge:        "GREATER_THAN_OR_EQUAL",
	Eq:        "EQUALS",
	Ne:        "NOT_EQUALS",
	Assign:    "ASSIGN",
	AddAssign: "ADD_ASSIGN",
	SubAssign: "SUB_ASSIGN",
	MulAssign: "MUL_ASSIGN",
	DivAssign: "DIV_ASSIGN",
	ModAssign: "MOD_ASSIGN",
	ShlAssign: "SHL_ASSIGN",
	ShrAssign: "SHR_ASSIGN",
	AndAssign: "AND_ASSIGN",
	OrAssign:  "OR_ASSIGN",
	XorAssign: "XOR_ASSIGN",
	Cast:      "CAST",
	Comma:     "COMMA",
	AddrOf:    "ADDRESS_OF",
	Deref:     "DEREFERENCE",
	Plus:      "PLUS",
	Neg:       "NEGATE",
	BitNot:    "BITWISE_NOT",
	LogNot:    "LOGICAL_NOT",
	Sizeof:    "SIZEOF",
	PostInc:   "POSTINC",
	PostDec:   "POSTDEC",
}

var constNames = []string{
	ConstInt:        "int",
	ConstLong:       "long",
	ConstLongLong:   "long long",
	ConstFloat:      "float",
	ConstDouble:     "double",
	ConstLongDouble: "long double",
	ConstChar:       "char",
	ConstString:     "string",
}

var jumpNames = []string{
	Goto:     "GOTO",
	Break:    "BREAK",
	Continue: "CONTINUE",
}

func (b Base) Pos() int { return b.Line }
func (Base) node()      {}

// Compound maps a compound assignment to its arithmetic operator.
func (o Op) Compound() (Op, bool) {
	if o < AddAssign || o > XorAssign {
		return OpInvalid, false
	}

	return [...]Op{Add, Sub, Mul, Div, Mod, Shl, Shr, BitAnd, BitOr, BitXor}[o-AddAssign], true
}

func (o Op) String() string        { return opNames[o] }
func (k ConstKind) String() string { return constNames[k] }
func (k JumpKind) String() string  { return jumpNames[k] }

// IntValue implements tp.IntConst.
func (c *Constant) IntValue() (int64, bool) {
	switch c.Kind {
	case ConstInt, ConstLong, ConstLongLong, ConstChar:
		return c.Int, true
	}

	return 0, false
}

func (c *Constant) IsFloat() bool {
	switch c.Kind {
	case ConstFloat, ConstDouble, ConstLongDouble:
		return true
	}

	return false
}

// Type is the type of the constant value.
func (c *Constant) Type() tp.Type {
	var k tp.Kind

	switch c.Kind {
	case ConstFloat:
		return &tp.Scalar{Kind: tp.Float}
	case ConstDouble:
		return &tp.Scalar{Kind: tp.Double}
	case ConstLongDouble:
		return &tp.Scalar{Kind: tp.LongDouble}
	case ConstString:
		return &tp.Pointer{Link: tp.Link{Of: &tp.Sign{Link: tp.Link{Of: &tp.Scalar{Kind: tp.Char}}}}}
	case ConstChar:
		k = tp.Char
	case ConstLong:
		k = tp.Long
	case ConstLongLong:
		k = tp.LongLong
	default:
		k = tp.Int
	}

	return &tp.Sign{Unsigned: c.Unsigned, Link: tp.Link{Of: &tp.Scalar{Kind: k}}}
}
