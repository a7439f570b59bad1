package tp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/quadcc/compiler/diag"
)

func TestScopeVisibility(t *testing.T) {
	global := NewTableSet(nil, ScopeGlobal)
	fn := NewTableSet(global, ScopeFunction)
	inner := NewTableSet(fn, ScopeBlock)
	sibling := NewTableSet(fn, ScopeBlock)

	require.NoError(t, global.Add(General, &Symbol{Name: "g"}))
	require.NoError(t, inner.Add(General, &Symbol{Name: "x"}))

	assert.NotNil(t, inner.Lookup("x", General, true))
	assert.NotNil(t, inner.Lookup("g", General, true))
	assert.Nil(t, inner.Lookup("g", General, false))

	assert.Nil(t, fn.Lookup("x", General, true), "outer scope sees inner name")
	assert.Nil(t, sibling.Lookup("x", General, true), "sibling scope sees name")
}

func TestScopeNamespaces(t *testing.T) {
	s := NewTableSet(nil, ScopeGlobal)

	require.NoError(t, s.Add(Tag, &Symbol{Name: "s"}))
	require.NoError(t, s.Add(General, &Symbol{Name: "s"}))

	assert.NotSame(t, s.Lookup("s", Tag, false), s.Lookup("s", General, false))
	assert.Nil(t, s.Lookup("s", Member, true))
}

func TestScopeDuplicate(t *testing.T) {
	s := NewTableSet(nil, ScopeGlobal)
	first := &Symbol{Name: "a"}

	require.NoError(t, s.Add(General, first))

	err := s.Add(General, &Symbol{Name: "a"})
	assert.ErrorIs(t, err, diag.SymbolAlreadyExists)
	assert.Same(t, first, s.Lookup("a", General, false))
	assert.Equal(t, 1, s.Table(General).Len())
}

func TestStructScopeDoesNotRecurse(t *testing.T) {
	global := NewTableSet(nil, ScopeGlobal)
	members := NewTableSet(global, ScopeStructOrUnion)

	require.NoError(t, global.Add(General, &Symbol{Name: "g"}))
	require.NoError(t, members.Add(General, &Symbol{Name: "m"}))

	assert.Nil(t, members.Lookup("g", General, true))
	assert.NotNil(t, members.Lookup("m", General, true))
	assert.Nil(t, global.Lookup("m", General, true))
}

func TestLabelsGoToFunctionScope(t *testing.T) {
	global := NewTableSet(nil, ScopeGlobal)
	fn := NewTableSet(global, ScopeFunction)
	block := NewTableSet(fn, ScopeBlock)
	deeper := NewTableSet(block, ScopeBlock)

	sym := &Symbol{Name: "out"}
	require.NoError(t, deeper.Add(Label, sym))

	assert.Same(t, fn, sym.Set)
	assert.Equal(t, 1, fn.Table(Label).Len())
	assert.Equal(t, 0, deeper.Table(Label).Len())
	assert.Same(t, sym, block.Lookup("out", Label, false))

	err := global.Add(Label, &Symbol{Name: "bad"})
	assert.ErrorIs(t, err, diag.InvalidArguments)
}

func TestTableOrder(t *testing.T) {
	s := NewTableSet(nil, ScopeGlobal)

	for _, n := range []string{"c", "a", "b"} {
		require.NoError(t, s.Add(General, &Symbol{Name: n}))
	}

	var names []string

	s.Table(General).Range(func(sym *Symbol) bool {
		names = append(names, sym.Name)
		return true
	})

	assert.Equal(t, []string{"c", "a", "b"}, names)
	assert.True(t, s.Lookup("a", General, false).Global())
}
