package back

import (
	"context"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/quadcc/compiler/diag"
	"github.com/slowlang/quadcc/compiler/ir"
	"github.com/slowlang/quadcc/compiler/set"
	"github.com/slowlang/quadcc/compiler/tp"
)

type (
	// Compiler emits 32 bit x86 assembly in AT&T syntax.
	Compiler struct{}

	progContext struct {
		*ir.Program

		emitted set.Bitmap // block numbers of all functions
	}

	funContext struct {
		*ir.Func

		slots map[int]int    // pseudo register -> frame offset
		loads map[int]ir.Reg // loaded pseudo register -> address it was loaded from

		blocks set.Bitmap // emitted block numbers

		args int // words pushed for the pending call

		err error
	}
)

func New() *Compiler {
	return &Compiler{}
}

// CompileProgram appends the assembly of p to b.
func (c *Compiler) CompileProgram(ctx context.Context, b []byte, p *ir.Program) (_ []byte, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "back: compile program", "funcs", len(p.Funcs), "globals", len(p.Globals))
	defer tr.Finish("err", &err)

	pc := &progContext{Program: p}

	for _, g := range p.Globals {
		b, err = c.compileGlobal(b, g)
		if err != nil {
			return nil, errors.Wrap(err, "global %v", g.Name())
		}
	}

	b = append(b, '\n')

	for _, f := range p.Funcs {
		b, err = c.compileFunc(ctx, b, pc, f)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", f.Name)
		}
	}

	if tr.If("dump_asm") {
		tr.Printw("assembly", "size", len(b), "blocks", pc.emitted.Size(), "emitted", pc.emitted)
	}

	return b, nil
}

func (c *Compiler) compileGlobal(b []byte, g *ir.Global) ([]byte, error) {
	if g.Literal {
		b = append(b, "\t.section .rodata\n"...)
		b = hfmt.Appendf(b, "%s:\n", g.Name())
		b = append(b, "\t.string \""...)
		b = appendEscaped(b, g.Str)
		b = append(b, "\"\n\t.text\n"...)

		return b, nil
	}

	size, err := tp.Sizeof(g.Sym.Type)
	if err != nil {
		return nil, position(err, g.Sym)
	}

	if g.Sym.Class == tp.ClassStatic {
		b = hfmt.Appendf(b, ".local %s\n", g.Name())
	}

	b = hfmt.Appendf(b, ".comm %s, %d, 4\n", g.Name(), size)

	return b, nil
}

func (c *Compiler) compileFunc(ctx context.Context, b []byte, p *progContext, fn *ir.Func) (_ []byte, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "back: compile func", "name", fn.Name)
	defer tr.Finish("err", &err)

	f := &funContext{
		Func:  fn,
		slots: map[int]int{},
		loads: map[int]ir.Reg{},
	}

	if fn.Sym == nil || fn.Sym.Class != tp.ClassStatic {
		b = hfmt.Appendf(b, ".globl %s\n", fn.Name)
	}

	b = hfmt.Appendf(b, "%s:\n", fn.Name)

	b = append(b, "\tpushl %ebp\n"...)
	b = append(b, "\tmovl %esp, %ebp\n"...)
	b = hfmt.Appendf(b, "\tsubl $%d, %%esp\n", fn.FrameSize())

	b, err = c.compileBlock(ctx, b, p, f, fn.Entry)
	if err != nil {
		return nil, err
	}

	p.emitted.Or(f.blocks)

	if tr.If("dump_frame") {
		tr.Printw("frame", "size", fn.FrameSize(), "locals", fn.Locals, "temps", fn.Temps, "slots", len(f.slots),
			"blocks", f.blocks, "first_block", f.blocks.First(), "last_block", f.blocks.Last())
	}

	return b, nil
}

// compileBlock emits bl and then its successors depth first,
// the true branch before the false one. Each block is emitted once.
func (c *Compiler) compileBlock(ctx context.Context, b []byte, p *progContext, f *funContext, bl *ir.Block) (_ []byte, err error) {
	if bl == nil || f.blocks.TestAndSet(bl.Num) {
		return b, nil
	}

	b = hfmt.Appendf(b, "%s:\n", bl.Name())

	var prev *ir.Quad

	for i := 0; i < len(bl.Quads); i++ {
		q := bl.Quads[i]

		if collapsible(bl.Quads, i) {
			lea, str := bl.Quads[i+1], bl.Quads[i+2]

			b = f.quad(b, lea, q)
			b = f.store(b, q.Src1, str.Src1)

			prev = str
			i += 2
		} else {
			b = f.quad(b, q, prev)
			prev = q
		}

		if f.err != nil {
			return nil, errors.Wrap(f.err, "%v: %v", bl.Name(), q)
		}
	}

	if bl.Terminal() {
		if last := bl.Last(); last == nil || last.Op != ir.Return {
			b = append(b, "\tleave\n\tret\n"...)
		}
	}

	b, err = c.compileBlock(ctx, b, p, f, bl.Then)
	if err != nil {
		return nil, err
	}

	if bl.Else != bl.Then {
		b, err = c.compileBlock(ctx, b, p, f, bl.Else)
		if err != nil {
			return nil, err
		}
	}

	return b, nil
}

// collapsible matches LOAD x -> t; LEA y -> t2; STR t2 -> t at i.
// The store then goes through x directly and the load is dropped.
// The loaded value must not be read later in the block.
func collapsible(qs []*ir.Quad, i int) bool {
	if i+2 >= len(qs) {
		return false
	}

	ld, lea, str := qs[i], qs[i+1], qs[i+2]

	if ld.Op != ir.Load || lea.Op != ir.Lea || str.Op != ir.Store {
		return false
	}

	if str.Dst != ld.Dst || str.Src1 != lea.Dst {
		return false
	}

	for _, q := range qs[i+3:] {
		if q.Src1 == ld.Dst || q.Src2 == ld.Dst || q.Dst == ld.Dst {
			return false
		}
	}

	return true
}

// position attaches the symbol declaration site to a diagnostic without one.
func position(err error, sym *tp.Symbol) error {
	var e *diag.Error
	if errors.As(err, &e) && e.File == "" {
		e.File = sym.File
		e.Line = sym.Line
	}

	return err
}

// appendEscaped writes s as the body of a .string directive.
func appendEscaped(b, s []byte) []byte {
	for _, c := range s {
		switch {
		case c == '"' || c == '\\':
			b = append(b, '\\', c)
		case c < 0x20 || c >= 0x7f:
			b = append(b, '\\', '0'+c>>6, '0'+c>>3&7, '0'+c&7)
		default:
			b = append(b, c)
		}
	}

	return b
}
