package parse

import (
	"context"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/quadcc/compiler/ast"
	"github.com/slowlang/quadcc/compiler/diag"
	"github.com/slowlang/quadcc/compiler/lex"
	"github.com/slowlang/quadcc/compiler/tp"
)

type (
	// State is a recursive descent parser over one translation unit.
	State struct {
		Trace bool // log every reduced rule

		file string
		toks []lex.Token
		i    int

		b  *ast.Builder
		tr tlog.Span
	}
)

var keywords = map[string]struct{}{}

func init() {
	for _, k := range []string{
		"auto", "break", "case", "char", "const", "continue", "default", "do",
		"double", "else", "enum", "extern", "float", "for", "goto", "if",
		"inline", "int", "long", "register", "restrict", "return", "short", "signed",
		"sizeof", "static", "struct", "switch", "typedef", "union", "unsigned", "void",
		"volatile", "while", "_Bool", "_Thread_local",
	} {
		keywords[k] = struct{}{}
	}
}

func ParseFile(ctx context.Context, name string, trace bool) (*ast.TopLevel, *tp.TableSet, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read file")
	}

	return Parse(ctx, name, data, trace)
}

// Parse returns the tree and the global scope it was resolved in.
func Parse(ctx context.Context, name string, text []byte, trace bool) (*ast.TopLevel, *tp.TableSet, error) {
	s := New(name)
	s.Trace = trace

	x, err := s.Parse(ctx, text)
	if err != nil {
		return nil, nil, err
	}

	return x, s.b.Global, nil
}

func New(name string) *State {
	return &State{
		file: name,
		b:    ast.NewBuilder(name),
	}
}

func (s *State) Parse(ctx context.Context, text []byte) (x *ast.TopLevel, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "parse", "file", s.file, "size", len(text))
	defer tr.Finish("err", &err)

	s.tr = tr

	s.toks, err = lex.Lex(s.file, text)
	if err != nil {
		return nil, err
	}

	s.i = 0

	x, err = s.translationUnit()
	if err != nil {
		return nil, errors.Wrap(err, "parse")
	}

	return x, nil
}

func (s *State) translationUnit() (*ast.TopLevel, error) {
	x := &ast.TopLevel{}

	for s.peek().Kind != lex.EOF {
		l, err := s.externalDeclaration()
		if err != nil {
			return nil, err
		}

		x.Decls = ast.Append(x.Decls, l)
	}

	s.reduce("translation_unit")

	return x, nil
}

func (s *State) peek() lex.Token { return s.peekN(0) }

func (s *State) peekN(n int) lex.Token {
	if s.i+n >= len(s.toks) {
		return s.toks[len(s.toks)-1]
	}

	return s.toks[s.i+n]
}

func (s *State) next() lex.Token {
	t := s.peek()
	if t.Kind != lex.EOF {
		s.i++
	}

	s.b.Line = t.Line

	return t
}

func (s *State) is(text string) bool { return s.peek().Is(text) }

func (s *State) accept(text string) bool {
	if !s.is(text) {
		return false
	}

	s.next()

	return true
}

func (s *State) expect(text string) error {
	if s.accept(text) {
		return nil
	}

	return s.errorf("expected %q, got %v", text, describe(s.peek()))
}

// name accepts an identifier which is not a keyword.
func (s *State) name() (string, bool) {
	t := s.peek()
	if !isName(t) {
		return "", false
	}

	s.next()

	return t.Text, true
}

func (s *State) expectName() (string, error) {
	n, ok := s.name()
	if !ok {
		return "", s.errorf("expected identifier, got %v", describe(s.peek()))
	}

	return n, nil
}

func (s *State) errorf(f string, args ...any) error {
	return diag.At(s.file, s.peek().Line, diag.Syntax, f, args...)
}

func (s *State) nyi(f string, args ...any) error {
	return diag.At(s.file, s.peek().Line, diag.NotYetImplemented, f, args...)
}

func (s *State) reduce(rule string) {
	if !s.Trace {
		return
	}

	s.tr.Printw("reduce", "rule", rule, "line", s.b.Line)
}

func isName(t lex.Token) bool {
	if t.Kind != lex.Ident {
		return false
	}

	_, kw := keywords[t.Text]

	return !kw
}

func describe(t lex.Token) string {
	if t.Kind == lex.EOF {
		return "end of file"
	}

	return "\"" + t.Text + "\""
}
