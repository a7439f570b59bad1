package front

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tlog.app/go/errors"

	"github.com/slowlang/quadcc/compiler/ast"
	"github.com/slowlang/quadcc/compiler/diag"
	"github.com/slowlang/quadcc/compiler/ir"
	"github.com/slowlang/quadcc/compiler/parse"
	"github.com/slowlang/quadcc/compiler/tp"
)

func compile(t *testing.T, src string) (*ir.Program, error) {
	t.Helper()

	ctx := context.Background()

	x, _, err := parse.Parse(ctx, "t.c", []byte(src), false)
	require.NoError(t, err)

	return New("t.c").Compile(ctx, x)
}

func fn(t *testing.T, p *ir.Program, name string) *ir.Func {
	t.Helper()

	for _, f := range p.Funcs {
		if f.Name == name {
			return f
		}
	}

	require.Fail(t, "no function", "%v", name)

	return nil
}

// blocks collects blocks reachable from the entry by number.
func blocks(f *ir.Func) map[int]*ir.Block {
	m := map[int]*ir.Block{}

	var walk func(b *ir.Block)
	walk = func(b *ir.Block) {
		if b == nil {
			return
		}

		if _, ok := m[b.Num]; ok {
			return
		}

		m[b.Num] = b

		walk(b.Then)
		walk(b.Else)
	}

	walk(f.Entry)

	return m
}

func quads(b *ir.Block) (r []string) {
	for _, q := range b.Quads {
		r = append(r, q.String())
	}

	return r
}

func TestCompileAdd(t *testing.T) {
	p, err := compile(t, "int add(int a,int b){ return a+b; }")
	require.NoError(t, err)

	require.Len(t, p.Funcs, 1)
	assert.Empty(t, p.Globals)

	f := fn(t, p, "add")

	assert.True(t, f.Entry.Terminal())
	assert.Equal(t, []string{
		"%T0 = ADD local:a local:b",
		"NULL = RETURN %T0 NULL",
	}, quads(f.Entry))

	assert.Equal(t, 0, f.Locals)
	assert.Equal(t, tp.WordSize, f.Temps)
}

func TestCompileEmptyBody(t *testing.T) {
	p, err := compile(t, "void f(); void f(){}")
	require.NoError(t, err)

	require.Len(t, p.Funcs, 1)

	f := fn(t, p, "f")
	assert.Empty(t, f.Entry.Quads)
	assert.True(t, f.Entry.Terminal())
}

func TestPointerArith(t *testing.T) {
	for _, tc := range []struct {
		src  string
		exp  []string
		code diag.Code
	}{{
		src: "int *f(int *p, int i){ return p+i; }",
		exp: []string{
			"%T0 = MULTIPLY local:i $4",
			"%T1 = ADD local:p %T0",
			"NULL = RETURN %T1 NULL",
		},
	}, {
		src: "int *f(int *p, int i){ return i+p; }",
		exp: []string{
			"%T0 = MULTIPLY local:i $4",
			"%T1 = ADD %T0 local:p",
			"NULL = RETURN %T1 NULL",
		},
	}, {
		src: "int f(int *p, int *q){ return p-q; }",
		exp: []string{
			"%T0 = SUBTRACT local:p local:q",
			"%T1 = DIVIDE %T0 $4",
			"NULL = RETURN %T1 NULL",
		},
	}, {
		src:  "int f(int *p, int *q){ return p+q; }",
		code: diag.InvalidCode,
	}, {
		src:  "int f(int *p, int i){ return i-p; }",
		code: diag.InvalidCode,
	}} {
		p, err := compile(t, tc.src)
		if tc.code != 0 {
			assert.True(t, errors.Is(err, tc.code), "%v: %v", tc.src, err)
			continue
		}

		require.NoError(t, err, tc.src)

		assert.Equal(t, tc.exp, quads(fn(t, p, "f").Entry), tc.src)
	}
}

func TestPointerResultType(t *testing.T) {
	p, err := compile(t, "int *f(int *p){ return p+1; }")
	require.NoError(t, err)

	q := fn(t, p, "f").Entry.Quads[1]
	require.Equal(t, ir.Add, q.Op)

	assert.True(t, tp.IsPointer(q.Dst.Type()))
}

func TestDerefStore(t *testing.T) {
	p, err := compile(t, "int f(int *p){ *p = 3; return *p; }")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"%T0 = LOAD local:p NULL",
		"%T0 = STR $3 NULL",
		"%T1 = LOAD local:p NULL",
		"NULL = RETURN %T1 NULL",
	}, quads(fn(t, p, "f").Entry))

	_, err = compile(t, "int f(int a){ 1 = a; return a; }")
	assert.True(t, errors.Is(err, diag.InvalidCode), "%v", err)
}

func TestCompileIf(t *testing.T) {
	p, err := compile(t, "int f(int a){ if (a) a = 1; else a = 2; return a; }")
	require.NoError(t, err)

	bs := blocks(fn(t, p, "f"))
	require.Len(t, bs, 5)

	assert.Equal(t, []string{"NULL = BRANCH .BB4 NULL"}, quads(bs[0]))
	assert.Equal(t, []string{"NULL = RETURN local:a NULL"}, quads(bs[1]))
	assert.Equal(t, []string{"local:a = MOVE $1 NULL", "NULL = BRANCH .BB1 NULL"}, quads(bs[2]))
	assert.Equal(t, []string{"local:a = MOVE $2 NULL", "NULL = BRANCH .BB1 NULL"}, quads(bs[3]))
	assert.Equal(t, []string{
		"NULL = BRANCH_IF_TRUE .BB2 local:a",
		"NULL = BRANCH_IF_FALSE .BB3 local:a",
	}, quads(bs[4]))

	assert.Same(t, bs[2], bs[4].Then)
	assert.Same(t, bs[3], bs[4].Else)
}

func TestCompileFor(t *testing.T) {
	p, err := compile(t, "int f(int i){ for (i = 0; i < 3; i++) ; return i; }")
	require.NoError(t, err)

	bs := blocks(fn(t, p, "f"))
	require.Len(t, bs, 6)

	assert.Equal(t, []string{"NULL = BRANCH .BB5 NULL"}, quads(bs[0]))
	assert.Equal(t, []string{"NULL = RETURN local:i NULL"}, quads(bs[1]))
	assert.Equal(t, []string{"NULL = BRANCH .BB4 NULL"}, quads(bs[2]))
	assert.Equal(t, []string{
		"%T1 = LESS_THAN local:i $3",
		"NULL = BRANCH_IF_TRUE .BB2 %T1",
		"NULL = BRANCH_IF_FALSE .BB1 %T1",
	}, quads(bs[3]))
	assert.Equal(t, []string{"%T0 = POSTINC local:i NULL", "NULL = BRANCH .BB3 NULL"}, quads(bs[4]))
	assert.Equal(t, []string{"local:i = MOVE $0 NULL", "NULL = BRANCH .BB3 NULL"}, quads(bs[5]))
}

func TestCompileDoWhile(t *testing.T) {
	p, err := compile(t, "int f(int i){ do i++; while (i < 3); return i; }")
	require.NoError(t, err)

	bs := blocks(fn(t, p, "f"))

	// entry goes straight to the body
	assert.Equal(t, []string{"NULL = BRANCH .BB2 NULL"}, quads(bs[0]))

	body := bs[2]
	step := body.Then

	require.NotNil(t, step)
	assert.Same(t, step, body.Else)

	cond := step.Then

	require.NotNil(t, cond)
	assert.Same(t, cond, step.Else)
	assert.NotSame(t, body, cond)
	assert.Contains(t, quads(cond), "NULL = BRANCH_IF_TRUE .BB2 %T1")

	// condition loops back to the body or leaves
	assert.Same(t, body, cond.Then)
	require.NotNil(t, cond.Else)
	assert.NotSame(t, body, cond.Else)
	assert.Equal(t, []string{"NULL = RETURN local:i NULL"}, quads(cond.Else))
}

func TestLoopJumps(t *testing.T) {
	p, err := compile(t, "int f(int a){ while (a) { for (;;) { continue; } } return 0; }")
	require.NoError(t, err)

	bs := blocks(fn(t, p, "f"))

	// inner body continues to the inner step block
	assert.Equal(t, []string{"NULL = BRANCH .BB8 NULL"}, quads(bs[6]))

	p, err = compile(t, "int f(int a){ while (a) { break; } return a; }")
	require.NoError(t, err)

	bs = blocks(fn(t, p, "f"))
	assert.Equal(t, []string{"NULL = BRANCH .BB1 NULL"}, quads(bs[2]))

	for _, src := range []string{
		"void f(){ break; }",
		"void f(){ continue; }",
		"void f(int a){ switch (a) { case 1: continue; } }",
	} {
		_, err = compile(t, src)
		assert.True(t, errors.Is(err, diag.InvalidCode), "%v: %v", src, err)
	}
}

func TestCompileSwitch(t *testing.T) {
	p, err := compile(t, "int f(int a){ switch (a) { case 1: a = 2; break; default: a = 3; } return a; }")
	require.NoError(t, err)

	f := fn(t, p, "f")
	require.NotNil(t, f.Entry.Then)

	test := f.Entry.Then
	assert.Equal(t, []string{
		"%T0 = EQUALS local:a $1",
		"NULL = BRANCH_IF_TRUE " + test.Then.Name() + " %T0",
		"NULL = BRANCH_IF_FALSE " + test.Else.Name() + " %T0",
	}, quads(test))

	assert.Equal(t, []string{"local:a = MOVE $2 NULL", "NULL = BRANCH .BB1 NULL"}, quads(test.Then))
	assert.Equal(t, []string{"local:a = MOVE $3 NULL", "NULL = BRANCH .BB1 NULL"}, quads(test.Else))

	_, err = compile(t, "int f(int a){ switch (a) { default: a = 1; default: a = 2; } return a; }")
	assert.True(t, errors.Is(err, diag.Redefinition), "%v", err)
}

func TestCompileGoto(t *testing.T) {
	p, err := compile(t, "int f(int a){ goto out; a = 1; out: return a; }")
	require.NoError(t, err)

	f := fn(t, p, "f")

	require.NotNil(t, f.Entry.Then)
	assert.Equal(t, []string{"NULL = RETURN local:a NULL"}, quads(f.Entry.Then))
}

func TestCallArgs(t *testing.T) {
	p, err := compile(t, "int g(int a, int b); int f(){ return g(1, 2); }")
	require.NoError(t, err)

	require.Len(t, p.Funcs, 1)

	assert.Equal(t, []string{
		"NULL = FUNCTION_ARG $2 NULL",
		"NULL = FUNCTION_ARG $1 NULL",
		"%T0 = FUNCTION_CALL global:g NULL",
		"NULL = RETURN %T0 NULL",
	}, quads(fn(t, p, "f").Entry))
}

func TestFunctionDecay(t *testing.T) {
	want := []string{
		"%T0 = LEA global:g NULL",
		"local:fp = MOVE %T0 NULL",
		"NULL = FUNCTION_ARG $1 NULL",
		"%T1 = FUNCTION_CALL local:fp NULL",
		"NULL = RETURN %T1 NULL",
	}

	for _, src := range []string{
		"int g(int v){return v;} int f(){ int (*fp)(int); fp = g; return fp(1); }",
		"int g(int v){return v;} int f(){ int (*fp)(int); fp = &g; return fp(1); }",
	} {
		p, err := compile(t, src)
		require.NoError(t, err)

		assert.Equal(t, want, quads(fn(t, p, "f").Entry), src)
	}

	p, err := compile(t, "int g(int v); int h(int (*x)(int)); int f(){ return h(g); }")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"%T0 = LEA global:g NULL",
		"NULL = FUNCTION_ARG %T0 NULL",
		"%T1 = FUNCTION_CALL global:h NULL",
		"NULL = RETURN %T1 NULL",
	}, quads(fn(t, p, "f").Entry))

	ptr, ok := fn(t, p, "f").Entry.Quads[0].Dst.Type().(*tp.Pointer)
	require.True(t, ok)
	assert.True(t, tp.IsFunction(ptr.Of))

	_, err = compile(t, "int g(int v); int f(){ g = 0; return 0; }")
	assert.True(t, errors.Is(err, diag.InvalidCode), "%v", err)
}

func TestSizeofEmitsNothing(t *testing.T) {
	p, err := compile(t, "int f(int a){ return sizeof a++; }")
	require.NoError(t, err)

	assert.Equal(t, []string{"NULL = RETURN $4 NULL"}, quads(fn(t, p, "f").Entry))

	p, err = compile(t, "int f(){ int b[3]; return sizeof(b); }")
	require.NoError(t, err)

	assert.Equal(t, []string{"NULL = RETURN $12 NULL"}, quads(fn(t, p, "f").Entry))
}

func TestLocalOffsets(t *testing.T) {
	p, err := compile(t, "int f(int x, int y){ int a; int b[3]; int *p; return 0; }")
	require.NoError(t, err)

	f := fn(t, p, "f")
	assert.Equal(t, 20, f.Locals)

	ft := f.Sym.Type.(*tp.Function)

	off := map[string]int{}

	for _, n := range ft.Params.(*ast.List).Nodes() {
		d := n.(*ast.Decl)
		off[d.Ident.Name] = d.Ident.Sym.Offset
	}

	for _, n := range ft.Body.(*ast.List).Nodes() {
		if d, ok := n.(*ast.Decl); ok {
			off[d.Ident.Name] = d.Ident.Sym.Offset
		}
	}

	assert.Equal(t, map[string]int{"x": 8, "y": 12, "a": 0, "b": 4, "p": 16}, off)
}

func TestGlobals(t *testing.T) {
	p, err := compile(t, `int g; extern int e; typedef int T; extern int g; T h; char *s(){ return "hi"; }`)
	require.NoError(t, err)

	var names []string
	for _, g := range p.Globals {
		names = append(names, g.Name())
	}

	assert.Equal(t, []string{"g", "h", ".LC0"}, names)
	assert.True(t, p.Globals[2].Literal)
	assert.Equal(t, []string{"NULL = RETURN global:.LC0 NULL"}, quads(fn(t, p, "s").Entry))
}
