package ast

import (
	"github.com/slowlang/quadcc/compiler/diag"
	"github.com/slowlang/quadcc/compiler/lex"
	"github.com/slowlang/quadcc/compiler/tp"
)

// Builder constructs nodes for a parser working bottom-up.
// It tracks the current scope and source position
// so that declarations and references resolve as they are built.
type Builder struct {
	File string
	Line int

	Global *tp.TableSet
	Scope  *tp.TableSet
}

func NewBuilder(file string) *Builder {
	g := tp.NewTableSet(nil, tp.ScopeGlobal)

	return &Builder{
		File:   file,
		Global: g,
		Scope:  g,
	}
}

func (b *Builder) PushScope(s tp.Scope) *tp.TableSet {
	b.Scope = tp.NewTableSet(b.Scope, s)

	return b.Scope
}

// EnterScope makes an existing set current.
// It must be a child of the current one.
func (b *Builder) EnterScope(set *tp.TableSet) {
	b.Scope = set
}

func (b *Builder) PopScope() {
	if b.Scope.Parent != nil {
		b.Scope = b.Scope.Parent
	}
}

func (b *Builder) base() Base {
	return Base{Line: b.Line}
}

func (b *Builder) errorf(c diag.Code, f string, args ...any) error {
	return diag.At(b.File, b.Line, c, f, args...)
}

// NewIdent creates an unresolved identifier.
func (b *Builder) NewIdent(name string) *Ident {
	return &Ident{Base: b.base(), Name: name}
}

// Use resolves an identifier in the ordinary namespace.
func (b *Builder) Use(name string) (*Ident, error) {
	sym := b.Scope.Lookup(name, tp.General, true)
	if sym == nil {
		return nil, b.errorf(diag.CannotFindSymbol, "use of undeclared identifier %v", name)
	}

	return &Ident{Base: b.base(), Name: name, Sym: sym}, nil
}

// Typedef returns the symbol if name is a typedef name visible here.
func (b *Builder) Typedef(name string) *tp.Symbol {
	sym := b.Scope.Lookup(name, tp.General, true)
	if sym == nil || sym.Class != tp.ClassTypedef {
		return nil
	}

	return sym
}

// NewConstant converts a numeric, char or string token.
func (b *Builder) NewConstant(t lex.Token) (*Constant, error) {
	c := &Constant{Base: b.base()}

	switch t.Kind {
	case lex.Num:
		c.Unsigned = t.Num.Unsigned
		c.Int = t.Num.Int
		c.Float = t.Num.Float

		c.Kind = [...]ConstKind{
			lex.NumInt:        ConstInt,
			lex.NumLong:       ConstLong,
			lex.NumLongLong:   ConstLongLong,
			lex.NumFloat:      ConstFloat,
			lex.NumDouble:     ConstDouble,
			lex.NumLongDouble: ConstLongDouble,
		}[t.Num.Kind]
	case lex.Char:
		c.Kind = ConstChar
		c.Int = t.Num.Int
	case lex.String:
		c.Kind = ConstString
		c.Str = t.Str
	default:
		return nil, diag.New(diag.InvalidArguments, "constant from %v token", t.Kind)
	}

	return c, nil
}

func (b *Builder) NewInt(v int64) *Constant {
	return &Constant{Base: b.base(), Kind: ConstInt, Int: v}
}

func (b *Builder) NewBinOp(op Op, l, r Node) *BinOp {
	return &BinOp{Base: b.base(), Op: op, L: l, R: r}
}

func (b *Builder) NewUnary(op Op, x Node) *Unary {
	return &Unary{Base: b.base(), Op: op, X: x}
}

func (b *Builder) NewTernary(cond, then, els Node) *Ternary {
	return &Ternary{Base: b.base(), Cond: cond, Then: then, Else: els}
}

func (b *Builder) NewCall(f Node, args *List) *Call {
	return &Call{Base: b.base(), Func: f, Args: args}
}

func (b *Builder) NewCast(t tp.Type, x Node) *BinOp {
	return b.NewBinOp(Cast, b.NewType(t), x)
}

func (b *Builder) NewType(t tp.Type) *TypeNode {
	return &TypeNode{Base: b.base(), Type: t}
}

// NewMember resolves name among the members of x's struct type
// when that type is known and complete.
func (b *Builder) NewMember(x Node, name string, arrow bool) (*Member, error) {
	id := b.NewIdent(name)

	if t := typeOf(x); t != nil {
		if arrow {
			t = tp.Elem(t)
		}

		if s, ok := tp.Unqual(t).(*tp.Struct); ok {
			if !s.Defined {
				return nil, b.errorf(diag.IncompleteType, "member %v of incomplete %v", name, s)
			}

			id.Sym = s.Members.Lookup(name, tp.Member, false)
			if id.Sym == nil {
				return nil, b.errorf(diag.CannotFindSymbol, "%v has no member %v", s, name)
			}
		}
	}

	return &Member{Base: b.base(), X: x, Name: id, Arrow: arrow}, nil
}

func typeOf(n Node) tp.Type {
	switch n := n.(type) {
	case *Ident:
		if n.Sym != nil {
			return n.Sym.Type
		}
	case *Member:
		if n.Name.Sym != nil {
			return n.Name.Sym.Type
		}
	case *Unary:
		if n.Op == Deref {
			return tp.Elem(typeOf(n.X))
		}
	}

	return nil
}

func (b *Builder) NewIf(cond, then, els Node) *If {
	return &If{Base: b.base(), Cond: cond, Then: then, Else: els}
}

func (b *Builder) NewFor(init, cond, step, body Node) *For {
	return &For{Base: b.base(), Init: init, Cond: cond, Step: step, Body: body}
}

// NewWhile is a for loop without init and step.
func (b *Builder) NewWhile(cond, body Node) *For {
	return b.NewFor(nil, cond, nil, body)
}

// NewDoWhile keeps the condition in Cond and runs Body first.
func (b *Builder) NewDoWhile(body, cond Node) *For {
	f := b.NewFor(nil, cond, nil, body)
	f.DoWhile = true

	return f
}

func (b *Builder) NewReturn(x Node) *Return {
	return &Return{Base: b.base(), X: x}
}

func (b *Builder) NewSwitch(x, body Node) *Switch {
	return &Switch{Base: b.base(), X: x, Body: body}
}

func (b *Builder) NewCase(x, stmt Node) *Case {
	return &Case{Base: b.base(), X: x, Stmt: stmt}
}

func (b *Builder) NewBreak() *Jump {
	return &Jump{Base: b.base(), Kind: Break}
}

func (b *Builder) NewContinue() *Jump {
	return &Jump{Base: b.base(), Kind: Continue}
}

// NewGoto refers to a label, placed or not yet.
func (b *Builder) NewGoto(name string) (*Jump, error) {
	sym, err := b.label(name)
	if err != nil {
		return nil, err
	}

	id := b.NewIdent(name)
	id.Sym = sym

	return &Jump{Base: b.base(), Kind: Goto, Label: id}, nil
}

// NewLabel places a label. Placing it twice is an error.
func (b *Builder) NewLabel(name string) (*Label, error) {
	sym, err := b.label(name)
	if err != nil {
		return nil, err
	}

	if sym.Defined {
		return nil, b.errorf(diag.Redefinition, "label %v already defined at line %d", name, sym.Line)
	}

	l := &Label{Base: b.base(), Ident: b.NewIdent(name)}
	l.Ident.Sym = sym

	sym.Defined = true
	sym.Line = b.Line
	sym.Node = l

	return l, nil
}

func (b *Builder) label(name string) (*tp.Symbol, error) {
	if sym := b.Scope.Lookup(name, tp.Label, false); sym != nil {
		return sym, nil
	}

	sym := &tp.Symbol{
		Name: name,
		File: b.File,
		Line: b.Line,
	}

	err := b.Scope.Add(tp.Label, sym)
	if err != nil {
		return nil, err
	}

	return sym, nil
}

// CheckLabels reports a label referenced but never placed in the function scope set.
func (b *Builder) CheckLabels(fn *tp.TableSet) (err error) {
	fn.Table(tp.Label).Range(func(sym *tp.Symbol) bool {
		if sym.Defined {
			return true
		}

		err = diag.At(sym.File, sym.Line, diag.CannotFindSymbol, "label %v used but not defined", sym.Name)

		return false
	})

	return err
}
