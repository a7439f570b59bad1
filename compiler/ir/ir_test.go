package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/quadcc/compiler/ast"
	"github.com/slowlang/quadcc/compiler/tp"
)

func TestStateCounters(t *testing.T) {
	s := NewState()

	f := s.NewFunc(&tp.Symbol{Name: "f"})
	require.Same(t, f, s.Func)

	a := s.NewPseudo(tp.NewInt())
	b := s.NewPseudo(tp.NewInt())

	assert.Equal(t, 0, a.Num)
	assert.Equal(t, 1, b.Num)
	assert.Equal(t, 2*tp.WordSize, f.Temps)

	b0, b1 := s.NewBlock(), s.NewBlock()
	assert.Equal(t, ".BB0", b0.Name())
	assert.Equal(t, ".BB1", b1.Name())
	assert.Equal(t, 2, s.Blocks())

	// fresh state starts over
	s = NewState()
	assert.Equal(t, 0, s.NewPseudo(nil).Num)
	assert.Equal(t, 0, s.NewBlock().Num)
}

func TestNewString(t *testing.T) {
	s := NewState()

	r0 := s.NewString(&ast.Constant{Kind: ast.ConstString, Str: []byte("hi")})
	r1 := s.NewString(&ast.Constant{Kind: ast.ConstString, Str: []byte("yo")})

	assert.Equal(t, "global:.LC0", r0.String())
	assert.Equal(t, "global:.LC1", r1.String())
	assert.True(t, r0.Global())
	assert.Equal(t, "pointer -> signed -> char", tp.String(r0.Type()))

	require.Len(t, s.Prog.Globals, 2)
	assert.True(t, s.Prog.Globals[0].Literal)
	assert.Equal(t, []byte("hi"), s.Prog.Globals[0].Str)
}

func TestQuadString(t *testing.T) {
	g := tp.NewTableSet(nil, tp.ScopeGlobal)
	l := tp.NewTableSet(g, tp.ScopeFunction)

	gs := &tp.Symbol{Name: "g", Type: tp.NewInt()}
	ls := &tp.Symbol{Name: "x", Type: tp.NewInt()}

	require.NoError(t, g.Add(tp.General, gs))
	require.NoError(t, l.Add(tp.General, ls))

	q := &Quad{
		Op:   Add,
		Dst:  Pseudo{Num: 3},
		Src1: Sym{Sym: gs},
		Src2: Sym{Sym: ls},
	}

	assert.Equal(t, "%T3 = ADD global:g local:x", q.String())

	b := &Block{Num: 7}
	q = &Quad{Op: BranchIfTrue, Src1: BlockRef{B: b}, Src2: Const{C: &ast.Constant{Int: -5}}}

	assert.Equal(t, "NULL = BRANCH_IF_TRUE .BB7 $-5", q.String())
	assert.True(t, q.Op.IsBranch())
	assert.False(t, Move.IsBranch())
}

func TestBlock(t *testing.T) {
	b := &Block{}

	assert.True(t, b.Terminal())
	assert.Nil(t, b.Last())

	q := &Quad{Op: Return}
	b.Add(&Quad{Op: Move}, q)

	assert.Same(t, q, b.Last())

	b.Then = b
	assert.False(t, b.Terminal())
}
