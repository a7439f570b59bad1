package ir

import (
	"strconv"

	"github.com/slowlang/quadcc/compiler/ast"
	"github.com/slowlang/quadcc/compiler/tp"
)

// State is the generation state threaded through IR construction.
// Fresh state numbers pseudo registers and blocks from zero.
type State struct {
	Prog *Program
	Func *Func // function being generated

	pseudos int
	blocks  int
	strings int
}

func NewState() *State {
	return &State{Prog: &Program{}}
}

// NewPseudo allocates a pseudo register and reserves its stack slot
// in the current function.
func (s *State) NewPseudo(t tp.Type) Pseudo {
	r := Pseudo{Num: s.pseudos, T: t}
	s.pseudos++

	if s.Func != nil {
		s.Func.Temps += tp.WordSize
	}

	return r
}

func (s *State) NewBlock() *Block {
	b := &Block{Num: s.blocks}
	s.blocks++

	return b
}

// Blocks is the number of blocks allocated so far.
func (s *State) Blocks() int { return s.blocks }

// NewFunc starts a function. It becomes current.
func (s *State) NewFunc(sym *tp.Symbol) *Func {
	f := &Func{
		Name: sym.Name,
		Sym:  sym,
	}

	s.Prog.Funcs = append(s.Prog.Funcs, f)
	s.Func = f

	return f
}

// NewGlobal registers a file scope object.
func (s *State) NewGlobal(sym *tp.Symbol) *Global {
	g := &Global{Sym: sym}

	s.Prog.Globals = append(s.Prog.Globals, g)

	return g
}

// NewString registers a string literal as a read only global
// and returns the operand naming it.
func (s *State) NewString(c *ast.Constant) Sym {
	sym := &tp.Symbol{
		Name:    ".LC" + strconv.Itoa(s.strings),
		Class:   tp.ClassStatic,
		Type:    c.Type(),
		Line:    c.Line,
		Defined: true,
		Node:    c,
	}

	s.strings++

	s.Prog.Globals = append(s.Prog.Globals, &Global{
		Sym:     sym,
		Str:     c.Str,
		Literal: true,
	})

	return Sym{Sym: sym, Literal: true}
}
