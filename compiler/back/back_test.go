package back

import (
	"context"
	"strings"
	"testing"

	"github.com/nikandfor/hacked/hfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tlog.app/go/errors"

	"github.com/slowlang/quadcc/compiler/ast"
	"github.com/slowlang/quadcc/compiler/diag"
	"github.com/slowlang/quadcc/compiler/front"
	"github.com/slowlang/quadcc/compiler/ir"
	"github.com/slowlang/quadcc/compiler/parse"
	"github.com/slowlang/quadcc/compiler/tp"
)

func compile(t *testing.T, src string) (string, error) {
	t.Helper()

	ctx := context.Background()

	x, _, err := parse.Parse(ctx, "t.c", []byte(src), false)
	require.NoError(t, err)

	p, err := front.New("t.c").Compile(ctx, x)
	require.NoError(t, err)

	b, err := New().CompileProgram(ctx, nil, p)

	return string(b), err
}

func TestSmoke(t *testing.T) {
	asm, err := compile(t, "int add(int a,int b){ return a+b; }")
	require.NoError(t, err)

	assert.Equal(t, `
.globl add
add:
	pushl %ebp
	movl %esp, %ebp
	subl $16, %esp
.BB0:
	movl 8(%ebp), %eax
	movl 12(%ebp), %edx
	addl %edx, %eax
	movl %eax, -4(%ebp)
	movl -4(%ebp), %eax
	leave
	ret
`, asm)
}

func TestGlobals(t *testing.T) {
	p := &ir.Program{
		Globals: []*ir.Global{
			{Sym: &tp.Symbol{Name: "g", Class: tp.ClassExtern, Type: tp.NewInt()}},
			{Sym: &tp.Symbol{Name: "s", Class: tp.ClassStatic, Type: &tp.Pointer{Link: tp.Link{Of: tp.NewInt()}}}},
			{Sym: &tp.Symbol{Name: ".LC0", Class: tp.ClassStatic}, Str: []byte("a\"b\n"), Literal: true},
		},
	}

	b, err := New().CompileProgram(context.Background(), nil, p)
	require.NoError(t, err)

	assert.Equal(t, `.comm g, 4, 4
.local s
.comm s, 4, 4
	.section .rodata
.LC0:
	.string "a\"b\012"
	.text

`, string(b))
}

func TestGlobalArray(t *testing.T) {
	asm, err := compile(t, "int arr[10]; int f(){ return arr[2]; }")
	require.NoError(t, err)

	assert.Contains(t, asm, ".comm arr, 40, 4\n")
	assert.Contains(t, asm, "\tleal arr, %eax\n")
}

func TestIncompleteGlobal(t *testing.T) {
	p := &ir.Program{
		Globals: []*ir.Global{
			{Sym: &tp.Symbol{Name: "s", File: "t.c", Line: 3, Class: tp.ClassExtern, Type: &tp.Struct{}}},
		},
	}

	_, err := New().CompileProgram(context.Background(), nil, p)
	assert.True(t, errors.Is(err, diag.NotYetImplemented), "%v", err)

	var e *diag.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, 3, e.Line)
}

func TestBlockOrder(t *testing.T) {
	asm, err := compile(t, "int f(int a){ if (a) a = 1; else a = 2; return a; }")
	require.NoError(t, err)

	var labels []string

	for _, l := range strings.Split(asm, "\n") {
		if strings.HasPrefix(l, ".BB") {
			labels = append(labels, l)
		}
	}

	assert.Equal(t, []string{".BB0:", ".BB4:", ".BB2:", ".BB1:", ".BB3:"}, labels)

	assert.Contains(t, asm, "\tcmpl $0, %eax\n\tjne .BB2\n\tje .BB3\n")
	assert.Equal(t, 1, strings.Count(asm, "cmpl $0"))
	assert.Equal(t, 3, strings.Count(asm, "\tjmp "))
}

func TestEpilogue(t *testing.T) {
	asm, err := compile(t, "void f(){}")
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(asm, "\tsubl $0, %esp\n.BB0:\n\tleave\n\tret\n"), asm)
}

func TestCalls(t *testing.T) {
	asm, err := compile(t, `int g(int a, int b); int puts(char *s);
int f(){ g(1, 2); puts("hi"); return 0; }`)
	require.NoError(t, err)

	assert.Contains(t, asm, "\tpushl $2\n\tpushl $1\n\tcall g\n\taddl $8, %esp\n")
	assert.Contains(t, asm, "\tpushl $.LC0\n\tcall puts\n\taddl $4, %esp\n")
	assert.Contains(t, asm, ".LC0:\n\t.string \"hi\"\n")
}

func TestDivMod(t *testing.T) {
	asm, err := compile(t, "int f(int a, int b){ return a % b; }")
	require.NoError(t, err)

	assert.Contains(t, asm, "\tmovl 12(%ebp), %ecx\n\tmovl 8(%ebp), %eax\n\tcltd\n\tidivl %ecx\n\tmovl %edx, -4(%ebp)\n")

	asm, err = compile(t, "int f(int a, int b){ return a / b; }")
	require.NoError(t, err)

	assert.Contains(t, asm, "\tidivl %ecx\n\tmovl %eax, -4(%ebp)\n")
}

func TestCompare(t *testing.T) {
	asm, err := compile(t, "int f(int a, int b){ return a <= b; }")
	require.NoError(t, err)

	assert.Contains(t, asm, "\tcmpl %edx, %eax\n\tsetle %al\n\tmovzbl %al, %eax\n")
}

func TestLocals(t *testing.T) {
	asm, err := compile(t, "int f(){ int a; int b; b = 5; a = b; return a; }")
	require.NoError(t, err)

	// frame: 8 bytes of locals, no temporaries
	assert.Contains(t, asm, "\tsubl $16, %esp\n")
	assert.Contains(t, asm, "\tmovl $5, %eax\n\tmovl %eax, -8(%ebp)\n")
	assert.Contains(t, asm, "\tmovl -8(%ebp), %eax\n\tmovl %eax, -4(%ebp)\n")
}

func TestStoreThroughPointer(t *testing.T) {
	asm, err := compile(t, "int f(int *p){ *p = 3; return 0; }")
	require.NoError(t, err)

	assert.Contains(t, asm, "\tmovl 8(%ebp), %ecx\n\tmovl $3, %eax\n\tmovl %eax, (%ecx)\n")
}

func TestCollapseLoadLeaStore(t *testing.T) {
	asm, err := compile(t, "int f(int **pp, int x){ *pp = &x; return 0; }")
	require.NoError(t, err)

	assert.NotContains(t, asm, "movl (%eax), %eax")
	assert.Contains(t, asm, "\tleal 12(%ebp), %eax\n\tmovl %eax, -4(%ebp)\n")
	assert.Contains(t, asm, "\tmovl 8(%ebp), %ecx\n\tmovl -4(%ebp), %eax\n\tmovl %eax, (%ecx)\n")

	// the loaded value is read afterwards
	asm, err = compile(t, "int f(int **pp, int x){ int *q; q = (*pp = &x); return 0; }")
	require.NoError(t, err)

	assert.Contains(t, asm, "movl (%eax), %eax")
}

func TestCollapsible(t *testing.T) {
	x := ir.Sym{Sym: &tp.Symbol{Name: "x"}}
	y := ir.Sym{Sym: &tp.Symbol{Name: "y"}}
	t0, t1 := ir.Pseudo{Num: 0}, ir.Pseudo{Num: 1}

	qs := []*ir.Quad{
		{Op: ir.Load, Dst: t0, Src1: x},
		{Op: ir.Lea, Dst: t1, Src1: y},
		{Op: ir.Store, Dst: t0, Src1: t1},
	}

	assert.True(t, collapsible(qs, 0))
	assert.False(t, collapsible(qs, 1))

	qs[2].Dst = t1
	assert.False(t, collapsible(qs, 0))
}

func TestCollapsibleLaterRead(t *testing.T) {
	x := ir.Sym{Sym: &tp.Symbol{Name: "x"}}
	y := ir.Sym{Sym: &tp.Symbol{Name: "y"}}
	z := ir.Sym{Sym: &tp.Symbol{Name: "z"}}
	t0, t1, t2 := ir.Pseudo{Num: 0}, ir.Pseudo{Num: 1}, ir.Pseudo{Num: 2}

	triple := func(tail ...*ir.Quad) []*ir.Quad {
		return append([]*ir.Quad{
			{Op: ir.Load, Dst: t0, Src1: x},
			{Op: ir.Lea, Dst: t1, Src1: y},
			{Op: ir.Store, Dst: t0, Src1: t1},
		}, tail...)
	}

	for _, tc := range []struct {
		name string
		tail *ir.Quad
		exp  bool
	}{
		{"unrelated", &ir.Quad{Op: ir.Move, Dst: z, Src1: t1}, true},
		{"src1", &ir.Quad{Op: ir.Move, Dst: z, Src1: t0}, false},
		{"src2", &ir.Quad{Op: ir.Add, Dst: t2, Src1: z, Src2: t0}, false},
		{"store_through", &ir.Quad{Op: ir.Store, Dst: t0, Src1: z}, false},
		{"return", &ir.Quad{Op: ir.Return, Src1: t0}, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			qs := triple(&ir.Quad{Op: ir.Move, Dst: z, Src1: y}, tc.tail)

			assert.Equal(t, tc.exp, collapsible(qs, 0))
		})
	}

	// not adjacent
	qs := triple()
	qs = append(qs[:1], append([]*ir.Quad{{Op: ir.Move, Dst: z, Src1: y}}, qs[1:]...)...)
	assert.False(t, collapsible(qs, 0))
}

func TestEmittedBlocks(t *testing.T) {
	ctx := context.Background()

	x, _, err := parse.Parse(ctx, "t.c", []byte("int f(int a){ if (a) a = 1; return a; } int g(){ return 0; }"), false)
	require.NoError(t, err)

	p, err := front.New("t.c").Compile(ctx, x)
	require.NoError(t, err)

	pc := &progContext{Program: p}

	var b []byte

	for _, fn := range p.Funcs {
		b, err = New().compileFunc(ctx, b, pc, fn)
		require.NoError(t, err)
	}

	asm := string(b)

	assert.Equal(t, strings.Count(asm, "\n.BB"), pc.emitted.Size())
	assert.Equal(t, 0, pc.emitted.First())

	pc.emitted.Range(func(i int) bool {
		assert.Contains(t, asm, string(hfmt.Appendf(nil, "\n.BB%d:\n", i)))
		return true
	})
}

func TestPostInc(t *testing.T) {
	asm, err := compile(t, "int f(int *p, int i){ p++; i--; (*p)++; return i; }")
	require.NoError(t, err)

	assert.Contains(t, asm, "\taddl $4, 8(%ebp)\n")
	assert.Contains(t, asm, "\tsubl $1, 12(%ebp)\n")
	assert.Contains(t, asm, "\tmovl 8(%ebp), %ecx\n\taddl $1, (%ecx)\n")
}

func TestUnsupportedConstant(t *testing.T) {
	_, err := compile(t, "int f(){ return 1.5; }")
	assert.True(t, errors.Is(err, diag.NotYetImplemented), "%v", err)
}

func TestEscape(t *testing.T) {
	assert.Equal(t, `a\\b\"\011\177`, string(appendEscaped(nil, []byte("a\\b\"\t\x7f"))))
	assert.Equal(t, `x`, string(appendEscaped(nil, []byte("x"))))
}

func TestConstantOperand(t *testing.T) {
	f := &funContext{Func: &ir.Func{}, slots: map[int]int{}}

	assert.Equal(t, "$97", f.operand(ir.Const{C: &ast.Constant{Kind: ast.ConstChar, Int: 'a'}}))
	assert.Equal(t, "$4294967295", f.operand(ir.Const{C: &ast.Constant{Unsigned: true, Int: 4294967295}}))
	assert.Equal(t, "-4(%ebp)", f.operand(ir.Pseudo{Num: 9}))
	assert.Equal(t, "-8(%ebp)", f.operand(ir.Pseudo{Num: 3}))
	assert.Equal(t, "-4(%ebp)", f.operand(ir.Pseudo{Num: 9}))
	assert.NoError(t, f.err)
}
