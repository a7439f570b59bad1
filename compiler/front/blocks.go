package front

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/slowlang/quadcc/compiler/ast"
	"github.com/slowlang/quadcc/compiler/diag"
	"github.com/slowlang/quadcc/compiler/ir"
	"github.com/slowlang/quadcc/compiler/tp"
)

type (
	// status is a block under construction and where control goes from it.
	// then and els are the fallthrough targets, cont and brk the loop exits.
	status struct {
		b *ir.Block

		then, els *status
		cont, brk *status

		last ir.Reg // branch condition
	}

	// segment is a run of switch body statements after one or more case labels.
	segment struct {
		cases []*ast.Case
		items *ast.List
		st    *status
	}
)

func (c *Front) newStatus() *status {
	return &status{b: c.st.NewBlock()}
}

// inherit creates a status continuing where st would.
func (c *Front) inherit(st *status) *status {
	s := c.newStatus()
	s.then, s.els = st.then, st.els
	s.cont, s.brk = st.cont, st.brk

	return s
}

// blocks lowers a statement list into st.
// Control statements consume the rest of the list themselves.
func (c *Front) blocks(ctx context.Context, l *ast.List, st *status) (err error) {
	for ; l != nil; l = l.Next {
		switch n := l.Node.(type) {
		case nil:
			continue
		case *ast.If:
			return c.compileIf(ctx, n, l.Next, st)
		case *ast.For:
			return c.compileFor(ctx, n, l.Next, st)
		case *ast.Switch:
			return c.compileSwitch(ctx, n, l.Next, st)
		case *ast.Jump:
			return c.compileJump(ctx, n, l.Next, st)
		case *ast.Label:
			return c.compileLabel(ctx, n, l.Next, st)
		case *ast.Case:
			return c.errorf(n, diag.NotYetImplemented, "case label nested in a statement of a switch body")
		default:
			r, err := c.translate(ctx, n)
			if err != nil {
				return err
			}

			st.b.Add(r.code...)

			if r.reg != nil {
				st.last = r.reg
			}
		}
	}

	return c.finalize(ctx, st)
}

// finalize ends the block with branches to its continuations.
func (c *Front) finalize(ctx context.Context, st *status) error {
	b := st.b

	switch {
	case st.then == nil && st.els == nil:
	case st.then == st.els || st.last == nil || st.els == nil || st.then == nil:
		t := st.then
		if t == nil {
			t = st.els
		}

		b.Add(&ir.Quad{Op: ir.Branch, Src1: ir.BlockRef{B: t.b}})
		b.Then, b.Else = t.b, t.b
	default:
		b.Add(
			&ir.Quad{Op: ir.BranchIfTrue, Src1: ir.BlockRef{B: st.then.b}, Src2: st.last},
			&ir.Quad{Op: ir.BranchIfFalse, Src1: ir.BlockRef{B: st.els.b}, Src2: st.last},
		)

		b.Then, b.Else = st.then.b, st.els.b
	}

	if tr := tlog.SpanFromContext(ctx); tr.If("dump_quads") {
		tr.Printw("block", "block", b, "then", b.Then, "else", b.Else, "quads", len(b.Quads))

		for _, q := range b.Quads {
			tr.Printw("quad", "block", b, "quad", q)
		}
	}

	return nil
}

func list(n ast.Node) *ast.List {
	if n == nil {
		return nil
	}

	return ast.NewList(n)
}

func (c *Front) compileIf(ctx context.Context, n *ast.If, rest *ast.List, st *status) (err error) {
	next := c.inherit(st)

	then := c.newStatus()
	then.then, then.els = next, next
	then.cont, then.brk = st.cont, st.brk

	var els *status

	if n.Else != nil {
		els = c.newStatus()
		els.then, els.els = next, next
		els.cont, els.brk = st.cont, st.brk
	}

	cond := c.newStatus()
	cond.then, cond.els = then, next
	cond.cont, cond.brk = st.cont, st.brk

	if els != nil {
		cond.els = els
	}

	err = c.blocks(ctx, rest, next)
	if err != nil {
		return err
	}

	err = c.blocks(ctx, list(n.Then), then)
	if err != nil {
		return err
	}

	if els != nil {
		err = c.blocks(ctx, list(n.Else), els)
		if err != nil {
			return err
		}
	}

	err = c.blocks(ctx, list(n.Cond), cond)
	if err != nil {
		return err
	}

	st.then, st.els = cond, cond

	return c.finalize(ctx, st)
}

// compileFor lowers for, while and do-while loops.
func (c *Front) compileFor(ctx context.Context, n *ast.For, rest *ast.List, st *status) (err error) {
	next := c.inherit(st)
	body := c.newStatus()
	cond := c.newStatus()
	iter := c.newStatus()

	var init *status
	if n.Init != nil {
		init = c.newStatus()
	}

	body.then, body.els = iter, iter
	body.cont, body.brk = iter, next

	cond.then, cond.els = body, next
	cond.cont, cond.brk = st.cont, st.brk

	iter.then, iter.els = cond, cond
	iter.cont, iter.brk = st.cont, st.brk

	if init != nil {
		init.then, init.els = cond, cond
		init.cont, init.brk = st.cont, st.brk
	}

	err = c.blocks(ctx, rest, next)
	if err != nil {
		return err
	}

	err = c.blocks(ctx, list(n.Body), body)
	if err != nil {
		return err
	}

	err = c.blocks(ctx, list(n.Step), iter)
	if err != nil {
		return err
	}

	err = c.blocks(ctx, list(n.Cond), cond)
	if err != nil {
		return err
	}

	if init != nil {
		err = c.blocks(ctx, list(n.Init), init)
		if err != nil {
			return err
		}
	}

	entry := cond

	switch {
	case n.DoWhile:
		entry = body
	case init != nil:
		entry = init
	}

	st.then, st.els = entry, entry

	return c.finalize(ctx, st)
}

// compileSwitch evaluates the switch value in the current block
// and dispatches through a chain of equality tests.
func (c *Front) compileSwitch(ctx context.Context, n *ast.Switch, rest *ast.List, st *status) (err error) {
	x, err := c.translate(ctx, n.X)
	if err != nil {
		return err
	}

	if x.reg == nil {
		return c.errorf(n, diag.InvalidCode, "switch on a statement without value")
	}

	st.b.Add(x.code...)

	next := c.inherit(st)

	var (
		dead *ast.List
		segs []*segment
	)

	for l := list(n.Body); l != nil; l = l.Next {
		cs, ok := l.Node.(*ast.Case)
		if !ok {
			if len(segs) == 0 {
				dead = ast.Append(dead, l.Node)
			} else {
				s := segs[len(segs)-1]
				s.items = ast.Append(s.items, l.Node)
			}

			continue
		}

		s := &segment{}
		segs = append(segs, s)

		for {
			s.cases = append(s.cases, cs)

			inner, ok := cs.Stmt.(*ast.Case)
			if !ok {
				break
			}

			cs = inner
		}

		s.items = ast.Append(s.items, cs.Stmt)
	}

	for _, s := range segs {
		s.st = c.newStatus()
		s.st.cont, s.st.brk = st.cont, next
	}

	var dflt *status

	for i, s := range segs {
		follow := next
		if i+1 < len(segs) {
			follow = segs[i+1].st
		}

		s.st.then, s.st.els = follow, follow

		for _, cs := range s.cases {
			if cs.X == nil {
				if dflt != nil {
					return c.errorf(cs, diag.Redefinition, "multiple default labels in one switch")
				}

				dflt = s.st
			}
		}
	}

	err = c.blocks(ctx, rest, next)
	if err != nil {
		return err
	}

	if dead != nil {
		ds := c.newStatus()
		ds.cont, ds.brk = st.cont, next
		ds.then, ds.els = next, next

		if len(segs) != 0 {
			ds.then, ds.els = segs[0].st, segs[0].st
		}

		err = c.blocks(ctx, dead, ds)
		if err != nil {
			return err
		}
	}

	for _, s := range segs {
		err = c.blocks(ctx, s.items, s.st)
		if err != nil {
			return err
		}
	}

	miss := next
	if dflt != nil {
		miss = dflt
	}

	var tests []*status

	for _, s := range segs {
		for _, cs := range s.cases {
			if cs.X == nil {
				continue
			}

			v, err := c.translate(ctx, cs.X)
			if err != nil {
				return err
			}

			if v.reg == nil {
				return c.errorf(cs, diag.InvalidCode, "case label without value")
			}

			t := c.newStatus()
			t.cont, t.brk = st.cont, next
			t.then = s.st

			eq := c.st.NewPseudo(tp.NewInt())

			t.b.Add(v.code...)
			t.b.Add(&ir.Quad{Op: ir.Eq, Dst: eq, Src1: x.reg, Src2: v.reg})
			t.last = eq

			tests = append(tests, t)
		}
	}

	for i, t := range tests {
		t.els = miss
		if i+1 < len(tests) {
			t.els = tests[i+1]
		}

		err = c.finalize(ctx, t)
		if err != nil {
			return err
		}
	}

	entry := miss
	if len(tests) != 0 {
		entry = tests[0]
	}

	st.then, st.els = entry, entry

	return c.finalize(ctx, st)
}

// compileJump ends the block with a branch. Statements after it
// go to an unreachable block which a label may still make reachable.
func (c *Front) compileJump(ctx context.Context, n *ast.Jump, rest *ast.List, st *status) (err error) {
	var to *status

	switch n.Kind {
	case ast.Break:
		to = st.brk
	case ast.Continue:
		to = st.cont
	case ast.Goto:
		to = c.label(n.Label.Sym)
	}

	if to == nil {
		return c.errorf(n, diag.InvalidCode, "%v outside of a loop or switch", n.Kind)
	}

	if rest != nil {
		dead := c.inherit(st)

		err = c.blocks(ctx, rest, dead)
		if err != nil {
			return err
		}
	}

	st.then, st.els = to, to
	st.last = nil

	return c.finalize(ctx, st)
}

// compileLabel starts a new block at the label.
func (c *Front) compileLabel(ctx context.Context, n *ast.Label, rest *ast.List, st *status) (err error) {
	ls := c.label(n.Ident.Sym)
	ls.then, ls.els = st.then, st.els
	ls.cont, ls.brk = st.cont, st.brk

	err = c.blocks(ctx, rest, ls)
	if err != nil {
		return err
	}

	st.then, st.els = ls, ls
	st.last = nil

	return c.finalize(ctx, st)
}

func (c *Front) label(sym *tp.Symbol) *status {
	if s, ok := c.labels[sym]; ok {
		return s
	}

	s := c.newStatus()
	c.labels[sym] = s

	return s
}
