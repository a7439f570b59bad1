package back

import (
	"strconv"

	"github.com/nikandfor/hacked/hfmt"

	"github.com/slowlang/quadcc/compiler/ast"
	"github.com/slowlang/quadcc/compiler/diag"
	"github.com/slowlang/quadcc/compiler/ir"
	"github.com/slowlang/quadcc/compiler/tp"
)

var arith = map[ir.Op]string{
	ir.Add: "addl",
	ir.Sub: "subl",
	ir.Mul: "imull",
	ir.And: "andl",
	ir.Or:  "orl",
	ir.Xor: "xorl",
}

var setcc = map[ir.Op]string{
	ir.Eq: "sete",
	ir.Ne: "setne",
	ir.Lt: "setl",
	ir.Gt: "setg",
	ir.Le: "setle",
	ir.Ge: "setge",
}

// quad lowers one instruction. Sources go through %eax and %edx,
// the result is saved from %eax.
func (f *funContext) quad(b []byte, q, prev *ir.Quad) []byte {
	switch q.Op {
	case ir.Lea:
		if s, ok := q.Src1.(ir.Sym); ok && s.Literal {
			b = f.ins(b, "movl %s, %%eax", q.Src1)
		} else {
			b = f.ins(b, "leal %s, %%eax", q.Src1)
		}

		b = f.save(b, q.Dst, "%eax")
	case ir.Load:
		b = f.ins(b, "movl %s, %%eax", q.Src1)
		b = append(b, "\tmovl (%eax), %eax\n"...)
		b = f.save(b, q.Dst, "%eax")

		if p, ok := q.Dst.(ir.Pseudo); ok {
			f.loads[p.Num] = q.Src1
		}
	case ir.Store:
		b = f.store(b, f.address(q.Dst), q.Src1)
	case ir.Move:
		b = f.ins(b, "movl %s, %%eax", q.Src1)
		b = f.save(b, q.Dst, "%eax")
	case ir.Add, ir.Sub, ir.Mul, ir.And, ir.Or, ir.Xor:
		b = f.load2(b, q)
		b = hfmt.Appendf(b, "\t%s %%edx, %%eax\n", arith[q.Op])
		b = f.save(b, q.Dst, "%eax")
	case ir.Div, ir.Mod:
		b = f.ins(b, "movl %s, %%ecx", q.Src2)
		b = f.ins(b, "movl %s, %%eax", q.Src1)
		b = append(b, "\tcltd\n\tidivl %ecx\n"...)

		if q.Op == ir.Div {
			b = f.save(b, q.Dst, "%eax")
		} else {
			b = f.save(b, q.Dst, "%edx")
		}
	case ir.Shl, ir.Shr:
		op := "sall"
		if q.Op == ir.Shr {
			op = "sarl"
		}

		b = f.ins(b, "movl %s, %%eax", q.Src1)
		b = f.ins(b, "movl %s, %%ecx", q.Src2)
		b = hfmt.Appendf(b, "\t%s %%cl, %%eax\n", op)
		b = f.save(b, q.Dst, "%eax")
	case ir.Eq, ir.Ne, ir.Lt, ir.Gt, ir.Le, ir.Ge:
		b = f.load2(b, q)
		b = append(b, "\tcmpl %edx, %eax\n"...)
		b = hfmt.Appendf(b, "\t%s %%al\n", setcc[q.Op])
		b = append(b, "\tmovzbl %al, %eax\n"...)
		b = f.save(b, q.Dst, "%eax")
	case ir.LogNot:
		b = f.ins(b, "movl %s, %%eax", q.Src1)
		b = append(b, "\tcmpl $0, %eax\n\tsete %al\n\tmovzbl %al, %eax\n"...)
		b = f.save(b, q.Dst, "%eax")
	case ir.Neg, ir.BitNot:
		op := "negl"
		if q.Op == ir.BitNot {
			op = "notl"
		}

		b = f.ins(b, "movl %s, %%eax", q.Src1)
		b = hfmt.Appendf(b, "\t%s %%eax\n", op)
		b = f.save(b, q.Dst, "%eax")
	case ir.PostInc, ir.PostDec:
		b = f.step(b, q)
	case ir.Branch:
		b = f.ins(b, "jmp %s", q.Src1)
	case ir.BranchIfTrue:
		b = f.ins(b, "movl %s, %%eax", q.Src2)
		b = append(b, "\tcmpl $0, %eax\n"...)
		b = f.ins(b, "jne %s", q.Src1)
	case ir.BranchIfFalse:
		// the paired true branch has compared the condition already
		if prev == nil || prev.Op != ir.BranchIfTrue || prev.Src2 != q.Src2 {
			b = f.ins(b, "movl %s, %%eax", q.Src2)
			b = append(b, "\tcmpl $0, %eax\n"...)
		}

		b = f.ins(b, "je %s", q.Src1)
	case ir.Arg:
		b = f.ins(b, "pushl %s", q.Src1)
		f.args++
	case ir.Call:
		if s, ok := q.Src1.(ir.Sym); ok && f.global(s) {
			b = hfmt.Appendf(b, "\tcall %s\n", s.Sym.Name)
		} else {
			b = f.ins(b, "movl %s, %%eax", q.Src1)
			b = append(b, "\tcall *%eax\n"...)
		}

		b = hfmt.Appendf(b, "\taddl $%d, %%esp\n", f.args*tp.WordSize)
		f.args = 0

		b = f.save(b, q.Dst, "%eax")
	case ir.Return:
		if q.Src1 != nil {
			b = f.ins(b, "movl %s, %%eax", q.Src1)
		}

		b = append(b, "\tleave\n\tret\n"...)
	default:
		f.fail(diag.New(diag.NotYetImplemented, "instruction %v", q.Op))
	}

	return b
}

// step copies the old value to Dst and adjusts the operand in place.
func (f *funContext) step(b []byte, q *ir.Quad) []byte {
	op := "addl"
	if q.Op == ir.PostDec {
		op = "subl"
	}

	size := "$1"
	if q.Src2 != nil {
		size = f.operand(q.Src2)
	}

	b = f.ins(b, "movl %s, %%eax", q.Src1)
	b = f.save(b, q.Dst, "%eax")

	if p, ok := q.Src1.(ir.Pseudo); ok {
		addr, ok := f.loads[p.Num]
		if !ok {
			f.fail(diag.New(diag.Internal, "%v of a temporary %v", q.Op, p))
			return b
		}

		b = f.ins(b, "movl %s, %%ecx", addr)
		b = hfmt.Appendf(b, "\t%s %s, (%%ecx)\n", op, size)

		return b
	}

	b = hfmt.Appendf(b, "\t%s %s, %s\n", op, size, f.operand(q.Src1))

	return b
}

// store writes v to the memory addr points to.
func (f *funContext) store(b []byte, addr, v ir.Reg) []byte {
	if addr == nil {
		return b
	}

	b = f.ins(b, "movl %s, %%ecx", addr)
	b = f.ins(b, "movl %s, %%eax", v)
	b = append(b, "\tmovl %eax, (%ecx)\n"...)

	return b
}

// address finds where a loaded pseudo register came from.
// Any other operand holds the address itself.
func (f *funContext) address(r ir.Reg) ir.Reg {
	p, ok := r.(ir.Pseudo)
	if !ok {
		return r
	}

	if a, ok := f.loads[p.Num]; ok {
		return a
	}

	f.fail(diag.New(diag.Internal, "store through %v which was never loaded", p))

	return nil
}

func (f *funContext) load2(b []byte, q *ir.Quad) []byte {
	b = f.ins(b, "movl %s, %%eax", q.Src1)
	b = f.ins(b, "movl %s, %%edx", q.Src2)

	return b
}

func (f *funContext) save(b []byte, dst ir.Reg, reg string) []byte {
	if dst == nil {
		return b
	}

	return hfmt.Appendf(b, "\tmovl %s, %s\n", reg, f.operand(dst))
}

// ins emits one instruction with operands substituted for %s verbs.
func (f *funContext) ins(b []byte, format string, regs ...ir.Reg) []byte {
	args := make([]any, len(regs))

	for i, r := range regs {
		args[i] = f.operand(r)
	}

	b = append(b, '\t')
	b = hfmt.Appendf(b, format, args...)
	b = append(b, '\n')

	return b
}

// operand renders an operand in AT&T syntax.
// Pseudo registers get frame slots after the locals on first use.
func (f *funContext) operand(r ir.Reg) string {
	switch r := r.(type) {
	case ir.Pseudo:
		off, ok := f.slots[r.Num]
		if !ok {
			off = f.Locals + tp.WordSize*(len(f.slots)+1)
			f.slots[r.Num] = off
		}

		return frame(-off)
	case ir.Sym:
		switch {
		case r.Literal:
			return "$" + r.Sym.Name
		case f.global(r):
			return r.Sym.Name
		case r.Sym.Class == tp.ClassParam:
			return frame(r.Sym.Offset)
		}

		size, err := tp.Sizeof(r.Sym.Type)
		if err != nil {
			f.fail(position(err, r.Sym))
			return "?"
		}

		return frame(-(r.Sym.Offset + size))
	case ir.Const:
		return f.constant(r.C)
	case ir.BlockRef:
		return r.B.Name()
	default:
		f.fail(diag.New(diag.Internal, "operand %v", ir.RegString(r)))
		return "?"
	}
}

func (f *funContext) global(r ir.Sym) bool {
	switch r.Sym.Class {
	case tp.ClassExtern, tp.ClassExternExplicit:
		return true
	}

	return r.Global()
}

func (f *funContext) constant(c *ast.Constant) string {
	if c.IsFloat() || c.Kind == ast.ConstString {
		f.fail(diag.New(diag.NotYetImplemented, "%v constant operand", c.Kind))
		return "?"
	}

	if c.Unsigned {
		return "$" + strconv.FormatUint(uint64(c.Int), 10)
	}

	return "$" + strconv.FormatInt(c.Int, 10)
}

func (f *funContext) fail(err error) {
	if f.err == nil {
		f.err = err
	}
}

func frame(off int) string {
	return strconv.Itoa(off) + "(%ebp)"
}
