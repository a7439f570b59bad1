package parse

import (
	"github.com/slowlang/quadcc/compiler/ast"
	"github.com/slowlang/quadcc/compiler/lex"
	"github.com/slowlang/quadcc/compiler/tp"
)

// compound parses a brace enclosed block in the current scope.
func (s *State) compound() (items *ast.List, err error) {
	err = s.expect("{")
	if err != nil {
		return nil, err
	}

	for !s.accept("}") {
		if s.peek().Kind == lex.EOF {
			return nil, s.errorf("unexpected end of file in block")
		}

		var n ast.Node

		if s.startsType(s.peek()) && !s.peekN(1).Is(":") {
			l, err := s.declaration()
			if err != nil {
				return nil, err
			}

			if l != nil {
				n = l
			}
		} else {
			n, err = s.statement()
			if err != nil {
				return nil, err
			}
		}

		items = ast.Append(items, n)
	}

	s.reduce("compound_statement")

	return items, nil
}

// statement returns nil for an empty statement.
func (s *State) statement() (ast.Node, error) {
	t := s.peek()

	switch {
	case t.Is("{"):
		s.b.PushScope(tp.ScopeBlock)
		defer s.b.PopScope()

		l, err := s.compound()
		if err != nil || l == nil {
			return nil, err
		}

		return l, nil
	case t.Is(";"):
		s.next()
		return nil, nil
	case isName(t) && s.peekN(1).Is(":"):
		return s.labeled()
	case t.Kind != lex.Ident:
		return s.expressionStatement()
	}

	switch t.Text {
	case "if":
		return s.ifStatement()
	case "while":
		return s.whileStatement()
	case "do":
		return s.doStatement()
	case "for":
		return s.forStatement()
	case "switch":
		return s.switchStatement()
	case "case", "default":
		return s.caseStatement()
	case "break", "continue":
		s.next()

		err := s.expect(";")
		if err != nil {
			return nil, err
		}

		s.reduce("jump_statement")

		if t.Text == "break" {
			return s.b.NewBreak(), nil
		}

		return s.b.NewContinue(), nil
	case "goto":
		s.next()

		name, err := s.expectName()
		if err != nil {
			return nil, err
		}

		j, err := s.b.NewGoto(name)
		if err != nil {
			return nil, err
		}

		err = s.expect(";")
		if err != nil {
			return nil, err
		}

		s.reduce("jump_statement")

		return j, nil
	case "return":
		s.next()

		var x ast.Node

		if !s.is(";") {
			var err error

			x, err = s.expression()
			if err != nil {
				return nil, err
			}
		}

		err := s.expect(";")
		if err != nil {
			return nil, err
		}

		s.reduce("return_statement")

		return s.b.NewReturn(x), nil
	}

	return s.expressionStatement()
}

func (s *State) expressionStatement() (ast.Node, error) {
	x, err := s.expression()
	if err != nil {
		return nil, err
	}

	err = s.expect(";")
	if err != nil {
		return nil, err
	}

	s.reduce("expression_statement")

	return x, nil
}

// labeled places a label and returns it followed by the statement.
func (s *State) labeled() (ast.Node, error) {
	name := s.next().Text
	s.next() // :

	l, err := s.b.NewLabel(name)
	if err != nil {
		return nil, err
	}

	st, err := s.labelTarget()
	if err != nil {
		return nil, err
	}

	s.reduce("labeled_statement")

	return ast.Append(ast.NewList(l), st), nil
}

// labelTarget is the statement after a label, empty before a closing brace.
func (s *State) labelTarget() (ast.Node, error) {
	if s.is("}") {
		return nil, nil
	}

	return s.statement()
}

func (s *State) caseStatement() (ast.Node, error) {
	var x ast.Node

	if s.next().Text == "case" {
		var err error

		x, err = s.conditional()
		if err != nil {
			return nil, err
		}
	}

	err := s.expect(":")
	if err != nil {
		return nil, err
	}

	st, err := s.labelTarget()
	if err != nil {
		return nil, err
	}

	s.reduce("case_statement")

	return s.b.NewCase(x, st), nil
}

func (s *State) paren() (ast.Node, error) {
	err := s.expect("(")
	if err != nil {
		return nil, err
	}

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

func (s *State) ifStatement() (ast.Node, error) {
	s.next()

	cond, err := s.paren()
	if err != nil {
		return nil, err
	}

	then, err := s.statement()
	if err != nil {
		return nil, err
	}

	var els ast.Node

	if s.accept("else") {
		els, err = s.statement()
		if err != nil {
			return nil, err
		}
	}

	s.reduce("if_statement")

	return s.b.NewIf(cond, then, els), nil
}

func (s *State) whileStatement() (ast.Node, error) {
	s.next()

	cond, err := s.paren()
	if err != nil {
		return nil, err
	}

	body, err := s.statement()
	if err != nil {
		return nil, err
	}

	s.reduce("while_statement")

	return s.b.NewWhile(cond, body), nil
}

func (s *State) doStatement() (ast.Node, error) {
	s.next()

	body, err := s.statement()
	if err != nil {
		return nil, err
	}

	err = s.expect("while")
	if err != nil {
		return nil, err
	}

	cond, err := s.paren()
	if err != nil {
		return nil, err
	}

	err = s.expect(";")
	if err != nil {
		return nil, err
	}

	s.reduce("do_statement")

	return s.b.NewDoWhile(body, cond), nil
}

func (s *State) forStatement() (_ ast.Node, err error) {
	s.next()

	s.b.PushScope(tp.ScopeBlock)
	defer s.b.PopScope()

	err = s.expect("(")
	if err != nil {
		return nil, err
	}

	var init, cond, step ast.Node

	switch {
	case s.startsType(s.peek()):
		l, err := s.declaration()
		if err != nil {
			return nil, err
		}

		if l != nil {
			init = l
		}
	case s.accept(";"):
	default:
		init, err = s.expressionStatement()
		if err != nil {
			return nil, err
		}
	}

	if !s.is(";") {
		cond, err = s.expression()
		if err != nil {
			return nil, err
		}
	}

	err = s.expect(";")
	if err != nil {
		return nil, err
	}

	if !s.is(")") {
		step, err = s.expression()
		if err != nil {
			return nil, err
		}
	}

	err = s.expect(")")
	if err != nil {
		return nil, err
	}

	body, err := s.statement()
	if err != nil {
		return nil, err
	}

	s.reduce("for_statement")

	return s.b.NewFor(init, cond, step, body), nil
}

func (s *State) switchStatement() (ast.Node, error) {
	s.next()

	x, err := s.paren()
	if err != nil {
		return nil, err
	}

	body, err := s.statement()
	if err != nil {
		return nil, err
	}

	s.reduce("switch_statement")

	return s.b.NewSwitch(x, body), nil
}
