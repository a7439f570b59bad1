package ir

import (
	"strconv"

	"tlog.app/go/tlog/tlwire"

	"github.com/slowlang/quadcc/compiler/ast"
	"github.com/slowlang/quadcc/compiler/tp"
)

type (
	Op int

	// Reg is a quad operand.
	Reg interface {
		Type() tp.Type
		String() string

		reg()
	}

	// Pseudo is a virtual register of a function.
	Pseudo struct {
		Num int
		T   tp.Type
	}

	// Sym is a named storage location.
	// Literal symbols name string constants in the read only section.
	Sym struct {
		Sym     *tp.Symbol
		Literal bool
	}

	Const struct {
		C *ast.Constant
	}

	BlockRef struct {
		B *Block
	}

	// Quad is a three address instruction.
	Quad struct {
		Op   Op
		Dst  Reg
		Src1 Reg
		Src2 Reg
	}

	// Block is a straight line quad sequence.
	// A block with no successors ends the function.
	Block struct {
		Num   int
		Quads []*Quad

		Then *Block
		Else *Block
	}

	Func struct {
		Name string
		Sym  *tp.Symbol

		Entry *Block

		Locals int // bytes of local variables
		Temps  int // bytes of pseudo register slots
	}

	// Global is a file scope object or a string literal.
	Global struct {
		Sym *tp.Symbol
		Str []byte

		Literal bool
	}

	Program struct {
		Funcs   []*Func
		Globals []*Global
	}
)

const (
	OpInvalid Op = iota

	Lea
	Load
	Store
	Move

	Add
	Sub
	Mul
	Div
	Mod
	And
	Or
	Xor
	Shl
	Shr

	Eq
	Ne
	Lt
	Gt
	Le
	Ge

	LogNot
	Neg
	BitNot
	PostInc
	PostDec

	Branch
	BranchIfTrue
	BranchIfFalse

	Arg
	Call
	Return
)

var opNames = []string{
	OpInvalid:     "INVALID",
	Lea:           "LEA",
	Load:          "LOAD",
	Store:         "STR",
	Move:          "MOVE",
	Add:           "ADD",
	Sub:           "SUBTRACT",
	Mul:           "MULTIPLY",
	Div:           "DIVIDE",
	Mod:           "MOD",
	And:           "AND",
	Or:            "OR",
	Xor:           "XOR",
	Shl:           "SHL",
	Shr:           "SHR",
	Eq:            "EQUALS",
	Ne:            "NOT_EQUALS",
	Lt:            "LESS_THAN",
	Gt:            "GREATER_THAN",
	Le:            "LESS_THAN_OR_EQUAL",
	Ge:            "GREATER_THAN_OR_EQUAL",
	LogNot:        "LOGICAL_NOT",
	Neg:           "NEGATE",
	BitNot:        "BITWISE_NOT",
	PostInc:       "POSTINC",
	PostDec:       "POSTDEC",
	Branch:        "BRANCH",
	BranchIfTrue:  "BRANCH_IF_TRUE",
	BranchIfFalse: "BRANCH_IF_FALSE",
	Arg:           "FUNCTION_ARG",
	Call:          "FUNCTION_CALL",
	Return:        "RETURN",
}

func (o Op) String() string {
	if o < 0 || int(o) >= len(opNames) {
		return "Op(" + strconv.Itoa(int(o)) + ")"
	}

	return opNames[o]
}

// IsBranch reports branch instructions.
func (o Op) IsBranch() bool {
	return o == Branch || o == BranchIfTrue || o == BranchIfFalse
}

func (r Pseudo) Type() tp.Type   { return r.T }
func (r Sym) Type() tp.Type      { return r.Sym.Type }
func (r Const) Type() tp.Type    { return r.C.Type() }
func (r BlockRef) Type() tp.Type { return nil }

func (Pseudo) reg()   {}
func (Sym) reg()      {}
func (Const) reg()    {}
func (BlockRef) reg() {}

// Global reports operands addressed by name.
func (r Sym) Global() bool { return r.Literal || r.Sym.Global() }

func (r Pseudo) String() string { return "%T" + strconv.Itoa(r.Num) }

func (r Sym) String() string {
	if r.Global() {
		return "global:" + r.Sym.Name
	}

	return "local:" + r.Sym.Name
}

func (r Const) String() string {
	c := r.C

	switch {
	case c.Kind == ast.ConstString:
		return "$" + strconv.Quote(string(c.Str))
	case c.Kind == ast.ConstChar:
		return "$" + strconv.QuoteRune(rune(c.Int))
	case c.IsFloat():
		return "$" + strconv.FormatFloat(c.Float, 'f', 6, 64)
	case c.Unsigned:
		return "$" + strconv.FormatUint(uint64(c.Int), 10)
	default:
		return "$" + strconv.FormatInt(c.Int, 10)
	}
}

func (r BlockRef) String() string { return r.B.Name() }

// RegString renders an operand, nil included.
func RegString(r Reg) string {
	if r == nil {
		return "NULL"
	}

	return r.String()
}

func (b *Block) Name() string { return ".BB" + strconv.Itoa(b.Num) }

// Terminal reports a block without successors.
func (b *Block) Terminal() bool { return b.Then == nil && b.Else == nil }

func (b *Block) Add(q ...*Quad) {
	b.Quads = append(b.Quads, q...)
}

// Last is the last quad or nil.
func (b *Block) Last() *Quad {
	if len(b.Quads) == 0 {
		return nil
	}

	return b.Quads[len(b.Quads)-1]
}

// FrameSize is the stack space a function reserves, 16 byte aligned.
func (f *Func) FrameSize() int { return (f.Locals + f.Temps + 15) &^ 15 }

// Name is the assembler name of a global.
func (g *Global) Name() string { return g.Sym.Name }

func (q *Quad) String() string {
	return RegString(q.Dst) + " = " + q.Op.String() + " " + RegString(q.Src1) + " " + RegString(q.Src2)
}

func (q *Quad) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 4)

	b = e.AppendKey(b, "op")
	b = e.AppendString(b, q.Op.String())
	b = e.AppendKey(b, "dst")
	b = e.AppendString(b, RegString(q.Dst))
	b = e.AppendKey(b, "src1")
	b = e.AppendString(b, RegString(q.Src1))
	b = e.AppendKey(b, "src2")
	b = e.AppendString(b, RegString(q.Src2))

	return b
}

func (b *Block) TlogAppend(buf []byte) []byte {
	var e tlwire.Encoder

	if b == nil {
		return e.AppendNil(buf)
	}

	return e.AppendString(buf, b.Name())
}
