package front

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/quadcc/compiler/ast"
	"github.com/slowlang/quadcc/compiler/diag"
	"github.com/slowlang/quadcc/compiler/ir"
	"github.com/slowlang/quadcc/compiler/tp"
)

type (
	// Front lowers a syntax tree to basic blocks of quads.
	Front struct {
		File string

		st *ir.State

		labels map[*tp.Symbol]*status
	}
)

func New(file string) *Front {
	return &Front{File: file}
}

// Compile lowers every function definition and collects file scope objects.
func (c *Front) Compile(ctx context.Context, x *ast.TopLevel) (_ *ir.Program, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "front: compile", "file", c.File, "decls", x.Decls.Len())
	defer tr.Finish("err", &err)

	c.st = ir.NewState()

	seen := map[*tp.Symbol]struct{}{}

	for l := x.Decls; l != nil; l = l.Next {
		switch n := l.Node.(type) {
		case *ast.Decl:
			if f, ok := n.Type.(*tp.Function); ok {
				if n.Ident == nil || n.Ident.Sym == nil || !n.Ident.Sym.Defined || n.Ident.Sym.Node != n {
					continue
				}

				err = c.compileFunc(ctx, n, f)
				if err != nil {
					return nil, errors.Wrap(err, "func %v", n.Ident.Name)
				}

				continue
			}

			c.compileGlobal(n, seen)
		case *ast.TypeNode:
		case *ast.BinOp:
			return nil, c.errorf(n, diag.NotYetImplemented, "initializers of file scope objects")
		default:
			return nil, c.errorf(n, diag.UnknownAstType, "top level node %T", n)
		}
	}

	tr.Printw("compiled", "funcs", len(c.st.Prog.Funcs), "globals", len(c.st.Prog.Globals), "blocks", c.st.Blocks())

	return c.st.Prog, nil
}

func (c *Front) compileGlobal(d *ast.Decl, seen map[*tp.Symbol]struct{}) {
	if d.Ident == nil || d.Ident.Sym == nil {
		return
	}

	sym := d.Ident.Sym

	switch sym.Class {
	case tp.ClassTypedef, tp.ClassExternExplicit:
		return
	}

	if _, ok := seen[sym]; ok {
		return
	}

	seen[sym] = struct{}{}

	c.st.NewGlobal(sym)
}

func (c *Front) compileFunc(ctx context.Context, d *ast.Decl, f *tp.Function) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "front: compile func", "name", d.Ident.Name)
	defer tr.Finish("err", &err)

	fn := c.st.NewFunc(d.Ident.Sym)
	defer func() {
		c.st.Func = nil
	}()

	c.labels = map[*tp.Symbol]*status{}

	params, _ := f.Params.(*ast.List)

	for i, p := range params.Nodes() {
		pd, ok := p.(*ast.Decl)
		if !ok || pd.Ident == nil || pd.Ident.Sym == nil {
			continue
		}

		pd.Ident.Sym.Offset = 2*tp.WordSize + tp.WordSize*i
	}

	entry := c.newStatus()
	fn.Entry = entry.b

	body, _ := f.Body.(*ast.List)

	err = c.blocks(ctx, body, entry)
	if err != nil {
		return err
	}

	if tr.If("dump_frame") {
		tr.Printw("frame", "locals", fn.Locals, "temps", fn.Temps)
	}

	return nil
}

func (c *Front) errorf(n ast.Node, code diag.Code, f string, args ...any) error {
	line := 0
	if n != nil {
		line = n.Pos()
	}

	return diag.At(c.File, line, code, f, args...)
}

// at attaches position to a diagnostic raised without one.
func (c *Front) at(n ast.Node, err error) error {
	var e *diag.Error
	if errors.As(err, &e) && e.File == "" {
		e.File = c.File
		e.Line = n.Pos()
	}

	return err
}
