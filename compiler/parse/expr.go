package parse

import (
	"github.com/slowlang/quadcc/compiler/ast"
	"github.com/slowlang/quadcc/compiler/lex"
)

type binOp struct {
	op   ast.Op
	prec int
}

var binOps = map[string]binOp{
	"||": {ast.LogOr, 1},
	"&&": {ast.LogAnd, 2},
	"|":  {ast.BitOr, 3},
	"^":  {ast.BitXor, 4},
	"&":  {ast.BitAnd, 5},
	"==": {ast.Eq, 6},
	"!=": {ast.Ne, 6},
	"<":  {ast.Lt, 7},
	">":  {ast.Gt, 7},
	"<=": {ast.Le, 7},
	">=": {ast.Ge, 7},
	"<<": {ast.Shl, 8},
	">>": {ast.Shr, 8},
	"+":  {ast.Add, 9},
	"-":  {ast.Sub, 9},
	"*":  {ast.Mul, 10},
	"/":  {ast.Div, 10},
	"%":  {ast.Mod, 10},
}

var assignOps = map[string]ast.Op{
	"=":   ast.Assign,
	"+=":  ast.AddAssign,
	"-=":  ast.SubAssign,
	"*=":  ast.MulAssign,
	"/=":  ast.DivAssign,
	"%=":  ast.ModAssign,
	"<<=": ast.ShlAssign,
	">>=": ast.ShrAssign,
	"&=":  ast.AndAssign,
	"|=":  ast.OrAssign,
	"^=":  ast.XorAssign,
}

var unaryOps = map[string]ast.Op{
	"&": ast.AddrOf,
	"*": ast.Deref,
	"+": ast.Plus,
	"-": ast.Neg,
	"~": ast.BitNot,
	"!": ast.LogNot,
}

// expression parses a comma separated sequence.
// More than one expression makes a list evaluated in order.
func (s *State) expression() (ast.Node, error) {
	x, err := s.assignment()
	if err != nil {
		return nil, err
	}

	if !s.is(",") {
		return x, nil
	}

	l := ast.NewList(x)

	for s.accept(",") {
		x, err = s.assignment()
		if err != nil {
			return nil, err
		}

		l = ast.Append(l, x)
	}

	s.reduce("comma_expression")

	return l, nil
}

func (s *State) assignment() (ast.Node, error) {
	l, err := s.conditional()
	if err != nil {
		return nil, err
	}

	t := s.peek()

	op, ok := assignOps[t.Text]
	if !ok || t.Kind != lex.Punct {
		return l, nil
	}

	s.next()

	r, err := s.assignment()
	if err != nil {
		return nil, err
	}

	s.reduce("assignment_expression")

	return s.b.NewBinOp(op, l, r), nil
}

func (s *State) conditional() (ast.Node, error) {
	cond, err := s.binary(1)
	if err != nil {
		return nil, err
	}

	if !s.accept("?") {
		return cond, nil
	}

	then, err := s.expression()
	if err != nil {
		return nil, err
	}

	err = s.expect(":")
	if err != nil {
		return nil, err
	}

	els, err := s.conditional()
	if err != nil {
		return nil, err
	}

	s.reduce("conditional_expression")

	return s.b.NewTernary(cond, then, els), nil
}

// binary is precedence climbing over left associative operators.
func (s *State) binary(min int) (ast.Node, error) {
	l, err := s.cast()
	if err != nil {
		return nil, err
	}

	for {
		t := s.peek()

		bo, ok := binOps[t.Text]
		if !ok || t.Kind != lex.Punct || bo.prec < min {
			return l, nil
		}

		s.next()

		r, err := s.binary(bo.prec + 1)
		if err != nil {
			return nil, err
		}

		l = s.b.NewBinOp(bo.op, l, r)

		s.reduce("binary_expression")
	}
}

func (s *State) cast() (ast.Node, error) {
	if !s.is("(") || !s.startsType(s.peekN(1)) {
		return s.unary()
	}

	s.next()

	t, err := s.typeName()
	if err != nil {
		return nil, err
	}

	err = s.expect(")")
	if err != nil {
		return nil, err
	}

	x, err := s.cast()
	if err != nil {
		return nil, err
	}

	s.reduce("cast_expression")

	return s.b.NewCast(t, x), nil
}

func (s *State) unary() (ast.Node, error) {
	t := s.peek()

	switch {
	case t.Is("++"), t.Is("--"):
		s.next()

		x, err := s.unary()
		if err != nil {
			return nil, err
		}

		op := ast.AddAssign
		if t.Text == "--" {
			op = ast.SubAssign
		}

		s.reduce("unary_expression")

		return s.b.NewBinOp(op, x, s.b.NewInt(1)), nil
	case t.Is("sizeof"):
		return s.sizeof()
	case t.Kind == lex.Punct:
		op, ok := unaryOps[t.Text]
		if !ok {
			break
		}

		s.next()

		x, err := s.cast()
		if err != nil {
			return nil, err
		}

		s.reduce("unary_expression")

		return s.b.NewUnary(op, x), nil
	}

	return s.postfix()
}

func (s *State) sizeof() (ast.Node, error) {
	s.next()

	if s.is("(") && s.startsType(s.peekN(1)) {
		s.next()

		t, err := s.typeName()
		if err != nil {
			return nil, err
		}

		err = s.expect(")")
		if err != nil {
			return nil, err
		}

		return s.b.NewUnary(ast.Sizeof, s.b.NewType(t)), nil
	}

	x, err := s.unary()
	if err != nil {
		return nil, err
	}

	s.reduce("sizeof_expression")

	return s.b.NewUnary(ast.Sizeof, x), nil
}

func (s *State) postfix() (x ast.Node, err error) {
	x, err = s.primary()
	if err != nil {
		return nil, err
	}

	for {
		switch {
		case s.accept("["):
			idx, err := s.expression()
			if err != nil {
				return nil, err
			}

			err = s.expect("]")
			if err != nil {
				return nil, err
			}

			x = s.b.NewUnary(ast.Deref, s.b.NewBinOp(ast.Add, x, idx))
		case s.accept("("):
			args, err := s.arguments()
			if err != nil {
				return nil, err
			}

			x = s.b.NewCall(x, args)
		case s.is("."), s.is("->"):
			arrow := s.next().Text == "->"

			name, err := s.expectName()
			if err != nil {
				return nil, err
			}

			x, err = s.b.NewMember(x, name, arrow)
			if err != nil {
				return nil, err
			}
		case s.accept("++"):
			x = s.b.NewUnary(ast.PostInc, x)
		case s.accept("--"):
			x = s.b.NewUnary(ast.PostDec, x)
		default:
			return x, nil
		}

		s.reduce("postfix_expression")
	}
}

func (s *State) arguments() (args *ast.List, err error) {
	for !s.accept(")") {
		if args != nil {
			err = s.expect(",")
			if err != nil {
				return nil, err
			}
		}

		x, err := s.assignment()
		if err != nil {
			return nil, err
		}

		args = ast.Append(args, x)
	}

	return args, nil
}

func (s *State) primary() (ast.Node, error) {
	t := s.peek()

	switch t.Kind {
	case lex.Num, lex.Char:
		s.next()

		return s.b.NewConstant(t)
	case lex.String:
		s.next()

		for s.peek().Kind == lex.String {
			n := s.next()

			t.Str = append(t.Str[:len(t.Str):len(t.Str)], n.Str...)
			t.Text += n.Text
		}

		return s.b.NewConstant(t)
	}

	if s.accept("(") {
		x, err := s.expression()
		if err != nil {
			return nil, err
		}

		err = s.expect(")")
		if err != nil {
			return nil, err
		}

		return x, nil
	}

	if !isName(t) {
		return nil, s.errorf("expected expression, got %v", describe(t))
	}

	s.next()

	return s.b.Use(t.Text)
}
