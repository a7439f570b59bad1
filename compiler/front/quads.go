package front

import (
	"context"

	"tlog.app/go/errors"

	"github.com/slowlang/quadcc/compiler/ast"
	"github.com/slowlang/quadcc/compiler/diag"
	"github.com/slowlang/quadcc/compiler/ir"
	"github.com/slowlang/quadcc/compiler/tp"
)

type (
	// result is the lowering of an expression: its code and where the value is.
	result struct {
		code []*ir.Quad
		reg  ir.Reg
	}
)

var binOps = map[ast.Op]ir.Op{
	ast.Add:    ir.Add,
	ast.Sub:    ir.Sub,
	ast.Mul:    ir.Mul,
	ast.Div:    ir.Div,
	ast.Mod:    ir.Mod,
	ast.BitAnd: ir.And,
	ast.BitOr:  ir.Or,
	ast.BitXor: ir.Xor,
	ast.Shl:    ir.Shl,
	ast.Shr:    ir.Shr,
	ast.Lt:     ir.Lt,
	ast.Gt:     ir.Gt,
	ast.Le:     ir.Le,
	ast.Ge:     ir.Ge,
	ast.Eq:     ir.Eq,
	ast.Ne:     ir.Ne,
}

var unaryOps = map[ast.Op]ir.Op{
	ast.LogNot:  ir.LogNot,
	ast.Neg:     ir.Neg,
	ast.BitNot:  ir.BitNot,
	ast.PostInc: ir.PostInc,
	ast.PostDec: ir.PostDec,
}

// translate lowers an expression or a declaration to quads.
func (c *Front) translate(ctx context.Context, n ast.Node) (r result, err error) {
	switch n := n.(type) {
	case nil:
		return r, nil
	case *ast.Ident:
		return c.ident(n)
	case *ast.Constant:
		if n.Kind == ast.ConstString {
			return result{reg: c.st.NewString(n)}, nil
		}

		return result{reg: ir.Const{C: n}}, nil
	case *ast.Decl:
		return r, c.declare(n)
	case *ast.TypeNode:
		return r, nil
	case *ast.BinOp:
		return c.binOp(ctx, n)
	case *ast.Unary:
		return c.unary(ctx, n)
	case *ast.Call:
		return c.call(ctx, n)
	case *ast.Return:
		x, err := c.translate(ctx, n.X)
		if err != nil {
			return r, err
		}

		r.code = append(x.code, &ir.Quad{Op: ir.Return, Src1: x.reg})

		return r, nil
	case *ast.List:
		for l := n; l != nil; l = l.Next {
			x, err := c.translate(ctx, l.Node)
			if err != nil {
				return r, err
			}

			r.code = append(r.code, x.code...)
			r.reg = x.reg
		}

		return r, nil
	case *ast.Ternary:
		return r, c.errorf(n, diag.NotYetImplemented, "conditional operator")
	case *ast.Member:
		return r, c.errorf(n, diag.NotYetImplemented, "member access")
	default:
		return r, c.errorf(n, diag.UnknownAstType, "expression node %T", n)
	}
}

func (c *Front) ident(n *ast.Ident) (r result, err error) {
	sym := n.Sym
	if sym == nil {
		return r, c.errorf(n, diag.InvalidArguments, "unresolved identifier %v", n.Name)
	}

	if sym.Class == tp.ClassEnumerator {
		v, ok := sym.Value.(*ast.Constant)
		if !ok {
			return r, c.errorf(n, diag.InvalidArguments, "enumerator %v without value", n.Name)
		}

		return result{reg: ir.Const{C: v}}, nil
	}

	if tp.IsArray(sym.Type) {
		p := c.st.NewPseudo(sym.Type)

		r.code = append(r.code, &ir.Quad{Op: ir.Lea, Dst: p, Src1: ir.Sym{Sym: sym}})
		r.reg = p

		return r, nil
	}

	// a function name used as a value is its address
	if tp.IsFunction(sym.Type) {
		p := c.st.NewPseudo(&tp.Pointer{Link: tp.Link{Of: sym.Type}})

		r.code = append(r.code, &ir.Quad{Op: ir.Lea, Dst: p, Src1: ir.Sym{Sym: sym}})
		r.reg = p

		return r, nil
	}

	return result{reg: ir.Sym{Sym: sym}}, nil
}

// declare reserves frame space for a local object.
func (c *Front) declare(d *ast.Decl) error {
	if d.Ident == nil || d.Ident.Sym == nil {
		return nil
	}

	sym := d.Ident.Sym

	switch sym.Class {
	case tp.ClassTypedef, tp.ClassExtern, tp.ClassExternExplicit:
		return nil
	case tp.ClassStatic:
		return c.errorf(d, diag.NotYetImplemented, "static local %v", sym.Name)
	}

	if tp.IsFunction(sym.Type) {
		return nil
	}

	size, err := tp.Sizeof(sym.Type)
	if err != nil {
		return errors.Wrap(c.at(d, err), "declaration of %v", sym.Name)
	}

	fn := c.st.Func

	sym.Offset = fn.Locals
	fn.Locals += size

	return nil
}

func (c *Front) binOp(ctx context.Context, n *ast.BinOp) (r result, err error) {
	switch n.Op {
	case ast.LogAnd, ast.LogOr, ast.Comma:
		return r, c.errorf(n, diag.NotYetImplemented, "%v operator", n.Op)
	case ast.Cast:
		return c.cast(ctx, n)
	}

	l, err := c.translate(ctx, n.L)
	if err != nil {
		return r, err
	}

	rr, err := c.translate(ctx, n.R)
	if err != nil {
		return r, err
	}

	if l.reg == nil || rr.reg == nil {
		return r, c.errorf(n, diag.InvalidCode, "%v operand has no value", n.Op)
	}

	op, compound := n.Op.Compound()
	if !compound {
		op = n.Op
	}

	if (n.Op == ast.Assign || compound) && !lvalue(l) {
		return r, c.errorf(n, diag.InvalidCode, "assignment to an rvalue")
	}

	r.code = append(r.code, l.code...)
	r.code = append(r.code, rr.code...)

	if n.Op == ast.Assign {
		r.code = append(r.code, c.store(l, rr.reg))
		r.reg = l.reg

		return r, nil
	}

	v, code, err := c.arith(n, op, l.reg, rr.reg)
	if err != nil {
		return r, err
	}

	r.code = append(r.code, code...)

	if !compound {
		r.reg = v

		return r, nil
	}

	r.code = append(r.code, c.store(l, v))
	r.reg = l.reg

	return r, nil
}

// lvalue reports whether l names storage.
func lvalue(l result) bool {
	switch x := l.reg.(type) {
	case ir.Sym:
		return !x.Literal && !tp.IsArray(x.Type()) && !tp.IsFunction(x.Type())
	case ir.Pseudo:
		k := len(l.code)

		return k != 0 && l.code[k-1].Op == ir.Load && l.code[k-1].Dst == l.reg
	}

	return false
}

// store assigns v to the lvalue l.
// A dereferenced lvalue is stored through the address it was loaded from.
func (c *Front) store(l result, v ir.Reg) *ir.Quad {
	if len(l.code) != 0 {
		last := l.code[len(l.code)-1]

		if last.Op == ir.Load && last.Dst == l.reg {
			return &ir.Quad{Op: ir.Store, Dst: l.reg, Src1: v}
		}
	}

	return &ir.Quad{Op: ir.Move, Dst: l.reg, Src1: v}
}

// arith emits one binary operation. Additive operators involving
// pointers scale the integer side by the element size.
func (c *Front) arith(n ast.Node, op ast.Op, a, b ir.Reg) (_ ir.Reg, code []*ir.Quad, err error) {
	iop, ok := binOps[op]
	if !ok {
		return nil, nil, c.errorf(n, diag.InvalidArguments, "binary operator %v", op)
	}

	ta, tb := a.Type(), b.Type()
	pa, pb := tp.IsPointer(ta), tp.IsPointer(tb)

	if op != ast.Add && op != ast.Sub || !pa && !pb {
		t := ta
		switch iop {
		case ir.Lt, ir.Gt, ir.Le, ir.Ge, ir.Eq, ir.Ne:
			t = tp.NewInt()
		}

		d := c.st.NewPseudo(t)
		code = append(code, &ir.Quad{Op: iop, Dst: d, Src1: a, Src2: b})

		return d, code, nil
	}

	switch {
	case pa && pb && op == ast.Add:
		return nil, nil, c.errorf(n, diag.InvalidCode, "adding two pointers")
	case pa && pb:
		size, err := c.elemSize(n, ta)
		if err != nil {
			return nil, nil, err
		}

		diff := c.st.NewPseudo(tp.NewInt())
		d := c.st.NewPseudo(tp.NewInt())

		code = append(code,
			&ir.Quad{Op: ir.Sub, Dst: diff, Src1: a, Src2: b},
			&ir.Quad{Op: ir.Div, Dst: d, Src1: diff, Src2: c.intConst(n, size)},
		)

		return d, code, nil
	case pb && op == ast.Sub:
		return nil, nil, c.errorf(n, diag.InvalidCode, "subtracting a pointer from an integer")
	}

	ptr, idx := a, b
	if pb {
		ptr, idx = b, a
	}

	size, err := c.elemSize(n, ptr.Type())
	if err != nil {
		return nil, nil, err
	}

	scaled := c.st.NewPseudo(idx.Type())
	d := c.st.NewPseudo(ptr.Type())

	code = append(code, &ir.Quad{Op: ir.Mul, Dst: scaled, Src1: idx, Src2: c.intConst(n, size)})

	if pa {
		code = append(code, &ir.Quad{Op: iop, Dst: d, Src1: a, Src2: scaled})
	} else {
		code = append(code, &ir.Quad{Op: iop, Dst: d, Src1: scaled, Src2: b})
	}

	return d, code, nil
}

func (c *Front) elemSize(n ast.Node, t tp.Type) (int, error) {
	size, err := tp.Sizeof(tp.Elem(t))
	if err != nil {
		return 0, errors.Wrap(c.at(n, err), "element of %v", tp.String(t))
	}

	return size, nil
}

func (c *Front) intConst(n ast.Node, v int) ir.Const {
	return ir.Const{C: &ast.Constant{Base: ast.Base{Line: n.Pos()}, Kind: ast.ConstInt, Int: int64(v)}}
}

// cast moves the value into a register of the target type.
func (c *Front) cast(ctx context.Context, n *ast.BinOp) (r result, err error) {
	tn, ok := n.L.(*ast.TypeNode)
	if !ok {
		return r, c.errorf(n, diag.InvalidArguments, "cast to %T", n.L)
	}

	x, err := c.translate(ctx, n.R)
	if err != nil {
		return r, err
	}

	if x.reg == nil {
		return r, c.errorf(n, diag.InvalidCode, "cast of a statement")
	}

	d := c.st.NewPseudo(tn.Type)

	r.code = append(x.code, &ir.Quad{Op: ir.Move, Dst: d, Src1: x.reg})
	r.reg = d

	return r, nil
}

func (c *Front) unary(ctx context.Context, n *ast.Unary) (r result, err error) {
	if n.Op == ast.Sizeof {
		return c.sizeof(ctx, n)
	}

	x, err := c.translate(ctx, n.X)
	if err != nil {
		return r, err
	}

	if x.reg == nil {
		return r, c.errorf(n, diag.InvalidCode, "%v operand has no value", n.Op)
	}

	t := x.reg.Type()

	switch n.Op {
	case ast.Plus:
		return x, nil
	case ast.AddrOf:
		return c.addrOf(n, x)
	case ast.Deref:
		if !tp.IsPointer(t) {
			return r, c.errorf(n, diag.InvalidCode, "dereference of %v", tp.String(t))
		}

		el := tp.Elem(t)

		op := ir.Load
		if tp.IsArray(el) || tp.IsFunction(el) {
			op = ir.Move
		}

		d := c.st.NewPseudo(el)

		r.code = append(x.code, &ir.Quad{Op: op, Dst: d, Src1: x.reg})
		r.reg = d

		return r, nil
	case ast.PostInc, ast.PostDec:
		if !lvalue(x) {
			return r, c.errorf(n, diag.InvalidCode, "%v of an rvalue", n.Op)
		}

		var step ir.Reg

		if tp.IsPointer(t) {
			size, err := c.elemSize(n, t)
			if err != nil {
				return r, err
			}

			step = c.intConst(n, size)
		}

		d := c.st.NewPseudo(t)

		r.code = append(x.code, &ir.Quad{Op: unaryOps[n.Op], Dst: d, Src1: x.reg, Src2: step})
		r.reg = d

		return r, nil
	}

	op, ok := unaryOps[n.Op]
	if !ok {
		return r, c.errorf(n, diag.InvalidArguments, "unary operator %v", n.Op)
	}

	if n.Op == ast.LogNot {
		t = tp.NewInt()
	}

	d := c.st.NewPseudo(t)

	r.code = append(x.code, &ir.Quad{Op: op, Dst: d, Src1: x.reg})
	r.reg = d

	return r, nil
}

// sizeof evaluates to a constant and emits nothing.
func (c *Front) sizeof(ctx context.Context, n *ast.Unary) (r result, err error) {
	var t tp.Type

	if tn, ok := n.X.(*ast.TypeNode); ok {
		t = tn.Type
	} else {
		x, err := c.translate(ctx, n.X)
		if err != nil {
			return r, err
		}

		if x.reg == nil {
			return r, c.errorf(n, diag.InvalidCode, "sizeof of a statement")
		}

		t = x.reg.Type()
	}

	size, err := tp.Sizeof(t)
	if err != nil {
		return r, errors.Wrap(c.at(n, err), "sizeof")
	}

	v := &ast.Constant{Base: n.Base, Kind: ast.ConstInt, Unsigned: true, Int: int64(size)}

	return result{reg: ir.Const{C: v}}, nil
}

// addrOf takes the address of an lvalue.
// The address of a dereference is the pointer itself.
func (c *Front) addrOf(n *ast.Unary, x result) (r result, err error) {
	if direct(n.X) != nil {
		return x, nil
	}

	t := x.reg.Type()

	if k := len(x.code); k != 0 {
		last := x.code[k-1]

		if last.Op == ir.Load && last.Dst == x.reg {
			r.code = x.code[:k-1]
			r.reg = last.Src1

			return r, nil
		}
	}

	switch x.reg.(type) {
	case ir.Sym:
	case ir.Pseudo:
		if !tp.IsArray(t) {
			return r, c.errorf(n, diag.InvalidCode, "address of a temporary value")
		}

		d := c.st.NewPseudo(&tp.Pointer{Link: tp.Link{Of: t}})

		r.code = append(x.code, &ir.Quad{Op: ir.Move, Dst: d, Src1: x.reg})
		r.reg = d

		return r, nil
	default:
		return r, c.errorf(n, diag.InvalidCode, "address of %v", x.reg)
	}

	d := c.st.NewPseudo(&tp.Pointer{Link: tp.Link{Of: t}})

	r.code = append(x.code, &ir.Quad{Op: ir.Lea, Dst: d, Src1: x.reg})
	r.reg = d

	return r, nil
}

// call pushes arguments right to left and calls.
func (c *Front) call(ctx context.Context, n *ast.Call) (r result, err error) {
	var f result

	if sym := direct(n.Func); sym != nil {
		f.reg = ir.Sym{Sym: sym}
	} else {
		f, err = c.translate(ctx, n.Func)
		if err != nil {
			return r, err
		}
	}

	if f.reg == nil {
		return r, c.errorf(n, diag.InvalidCode, "call of a statement")
	}

	r.code = append(r.code, f.code...)

	args := n.Args.Nodes()

	for i := len(args) - 1; i >= 0; i-- {
		a, err := c.translate(ctx, args[i])
		if err != nil {
			return r, err
		}

		if a.reg == nil {
			return r, c.errorf(n, diag.InvalidCode, "argument %d has no value", i)
		}

		r.code = append(r.code, a.code...)
		r.code = append(r.code, &ir.Quad{Op: ir.Arg, Src1: a.reg})
	}

	ret := tp.NewInt()

	ft := tp.Unqual(f.reg.Type())
	if tp.IsPointer(ft) {
		ft = tp.Unqual(tp.Elem(ft))
	}

	if fn, ok := ft.(*tp.Function); ok && fn.Return() != nil {
		ret = fn.Return()
	}

	d := c.st.NewPseudo(ret)

	r.code = append(r.code, &ir.Quad{Op: ir.Call, Dst: d, Src1: f.reg})
	r.reg = d

	return r, nil
}

// direct returns the function symbol n names, if any.
func direct(n ast.Node) *tp.Symbol {
	id, ok := n.(*ast.Ident)
	if !ok || id.Sym == nil || !tp.IsFunction(id.Sym.Type) {
		return nil
	}

	return id.Sym
}
