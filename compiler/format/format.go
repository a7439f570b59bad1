package format

import (
	"context"
	"strconv"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/slowlang/quadcc/compiler/ast"
	"github.com/slowlang/quadcc/compiler/tp"
)

// Format appends an indented dump of a syntax tree.
func Format(ctx context.Context, b []byte, x ast.Node) ([]byte, error) {
	return format(ctx, b, x, 0, "")
}

func format(ctx context.Context, b []byte, x ast.Node, d int, pref string) (_ []byte, err error) {
	switch x := x.(type) {
	case nil:
		return b, nil
	case *ast.TopLevel:
		return formatList(ctx, b, x.Decls, d, pref)
	case *ast.List:
		return formatList(ctx, b, x, d, pref)
	case *ast.Decl:
		return formatDecl(ctx, b, x, d, pref)
	case *ast.Ident:
		b = app(b, d, "%sIDENT %s", pref, x.Name)
		b = appendSym(b, x.Sym)
		b = append(b, '\n')
	case *ast.Constant:
		b = app(b, d, "%sCONSTANT %v %s\n", pref, x.Kind, constant(x))
	case *ast.TypeNode:
		b = app(b, d, "%sTYPE %s\n", pref, tp.String(x.Type))
	case *ast.BinOp:
		b = app(b, d, "%sBINOP %v\n", pref, x.Op)

		b, err = format(ctx, b, x.L, d+1, "")
		if err != nil {
			return nil, errors.Wrap(err, "left")
		}

		b, err = format(ctx, b, x.R, d+1, "")
		if err != nil {
			return nil, errors.Wrap(err, "right")
		}
	case *ast.Unary:
		b = app(b, d, "%sUNARY %v\n", pref, x.Op)

		return format(ctx, b, x.X, d+1, "")
	case *ast.Ternary:
		b = app(b, d, "%sTERNARY\n", pref)

		return children(ctx, b, d+1, "cond: ", x.Cond, "then: ", x.Then, "else: ", x.Else)
	case *ast.Call:
		b = app(b, d, "%sCALL\n", pref)

		b, err = format(ctx, b, x.Func, d+1, "func: ")
		if err != nil {
			return nil, errors.Wrap(err, "func")
		}

		if x.Args != nil {
			b, err = formatList(ctx, b, x.Args, d+1, "arg: ")
			if err != nil {
				return nil, errors.Wrap(err, "args")
			}
		}
	case *ast.Member:
		op := "."
		if x.Arrow {
			op = "->"
		}

		b = app(b, d, "%sMEMBER %s%s\n", pref, op, x.Name.Name)

		return format(ctx, b, x.X, d+1, "of: ")
	case *ast.EnumDef:
		b = app(b, d, "%sENUM", pref)
		if x.Ident != nil {
			b = app(b, 0, " %s", x.Ident.Name)
		}

		b = append(b, '\n')

		return formatList(ctx, b, x.Values, d+1, "")
	case *ast.Enumerator:
		b = app(b, d, "%sENUMERATOR %s", pref, x.Ident.Name)
		b = appendSym(b, x.Ident.Sym)
		b = append(b, '\n')

		return format(ctx, b, x.Value, d+1, "value: ")
	case *ast.If:
		b = app(b, d, "%sIF\n", pref)

		return children(ctx, b, d+1, "cond: ", x.Cond, "then: ", x.Then, "else: ", x.Else)
	case *ast.For:
		if x.DoWhile {
			b = app(b, d, "%sDO WHILE\n", pref)
		} else {
			b = app(b, d, "%sFOR\n", pref)
		}

		return children(ctx, b, d+1, "init: ", x.Init, "cond: ", x.Cond, "step: ", x.Step, "body: ", x.Body)
	case *ast.Jump:
		b = app(b, d, "%s%v", pref, x.Kind)
		if x.Label != nil {
			b = app(b, 0, " %s", x.Label.Name)
		}

		b = append(b, '\n')
	case *ast.Label:
		b = app(b, d, "%sLABEL %s\n", pref, x.Ident.Name)
	case *ast.Return:
		b = app(b, d, "%sRETURN\n", pref)

		return format(ctx, b, x.X, d+1, "")
	case *ast.Switch:
		b = app(b, d, "%sSWITCH\n", pref)

		return children(ctx, b, d+1, "value: ", x.X, "body: ", x.Body)
	case *ast.Case:
		if x.X == nil {
			b = app(b, d, "%sDEFAULT\n", pref)
		} else {
			b = app(b, d, "%sCASE\n", pref)

			b, err = format(ctx, b, x.X, d+1, "value: ")
			if err != nil {
				return nil, err
			}
		}

		return format(ctx, b, x.Stmt, d+1, "")
	default:
		return nil, errors.New("unsupported node: %T", x)
	}

	return b, nil
}

func formatList(ctx context.Context, b []byte, l *ast.List, d int, pref string) (_ []byte, err error) {
	for ; l != nil; l = l.Next {
		b, err = format(ctx, b, l.Node, d, pref)
		if err != nil {
			return nil, errors.Wrap(err, "line %d", l.Line)
		}
	}

	return b, nil
}

func formatDecl(ctx context.Context, b []byte, x *ast.Decl, d int, pref string) (_ []byte, err error) {
	name := "<abstract>"
	if x.Ident != nil {
		name = x.Ident.Name
	}

	b = app(b, d, "%sDECL %s: %s", pref, name, tp.String(x.Type))

	if x.Ident != nil {
		b = appendSym(b, x.Ident.Sym)
	}

	b = append(b, '\n')

	f, ok := x.Type.(*tp.Function)
	if !ok {
		return b, nil
	}

	if l, ok := f.Params.(*ast.List); ok {
		b, err = formatList(ctx, b, l, d+1, "param: ")
		if err != nil {
			return nil, errors.Wrap(err, "params")
		}
	}

	if x.Ident == nil || x.Ident.Sym == nil || x.Ident.Sym.Node != x {
		return b, nil
	}

	b = app(b, d+1, "body:\n")

	if l, ok := f.Body.(*ast.List); ok {
		b, err = formatList(ctx, b, l, d+2, "")
		if err != nil {
			return nil, errors.Wrap(err, "body")
		}
	}

	return b, nil
}

// children formats prefix and node pairs skipping nil nodes.
func children(ctx context.Context, b []byte, d int, kv ...any) (_ []byte, err error) {
	for i := 0; i+1 < len(kv); i += 2 {
		n, _ := kv[i+1].(ast.Node)
		if n == nil {
			continue
		}

		pref := kv[i].(string)

		b, err = format(ctx, b, n, d, pref)
		if err != nil {
			return nil, errors.Wrap(err, "%s", pref[:len(pref)-2])
		}
	}

	return b, nil
}

func appendSym(b []byte, s *tp.Symbol) []byte {
	if s == nil {
		return b
	}

	return hfmt.Appendf(b, " (%v, %s, line %d)", s.Class, tp.String(s.Type), s.Line)
}

func constant(c *ast.Constant) string {
	switch {
	case c.Kind == ast.ConstString:
		return strconv.Quote(string(c.Str))
	case c.Kind == ast.ConstChar:
		return strconv.QuoteRune(rune(c.Int))
	case c.IsFloat():
		return strconv.FormatFloat(c.Float, 'g', -1, 64)
	case c.Unsigned:
		return strconv.FormatUint(uint64(c.Int), 10) + "u"
	default:
		return strconv.FormatInt(c.Int, 10)
	}
}

func app(b []byte, d int, f string, args ...any) []byte {
	const tabs = "\t\t\t\t\t\t\t\t\t\t\t\t\t\t\t"

	for d > len(tabs) {
		b = append(b, tabs...)
		d -= len(tabs)
	}

	b = append(b, tabs[:d]...)
	b = hfmt.Appendf(b, f, args...)

	return b
}
