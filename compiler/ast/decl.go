package ast

import (
	"tlog.app/go/errors"

	"github.com/slowlang/quadcc/compiler/diag"
	"github.com/slowlang/quadcc/compiler/tp"
)

func (b *Builder) NewSpecifier(k tp.SpecKind) *TypeNode {
	return b.NewType(&tp.Specifier{Kind: k})
}

func (b *Builder) NewQualifier(k tp.QualKind) *TypeNode {
	return b.NewType(&tp.Qualifier{Kind: k})
}

func (b *Builder) NewStorage(c tp.StorageClass) *TypeNode {
	return b.NewType(&tp.Storage{Class: c})
}

func (b *Builder) NewTypedefName(sym *tp.Symbol) *TypeNode {
	return b.NewType(&tp.Specifier{Kind: tp.SpecTypedefName, Name: sym.Name, Alias: sym.Type})
}

// NewDecl starts a declarator. id is nil for abstract declarators.
func (b *Builder) NewDecl(id *Ident) *Decl {
	return &Decl{Base: b.base(), Ident: id}
}

func (b *Builder) NewArrayType(size Node) *tp.Array {
	return &tp.Array{Size: size}
}

func (b *Builder) NewFunctionType(params *List, scope *tp.TableSet, variadic bool) *tp.Function {
	f := &tp.Function{Scope: scope, Variadic: variadic}

	if params != nil {
		f.Params = params
	}

	return f
}

// AppendDeclarator appends layers to d's type chain in list order.
func (b *Builder) AppendDeclarator(d *Decl, layers *List) error {
	for c := layers; c != nil; c = c.Next {
		tn, ok := c.Node.(*TypeNode)
		if !ok {
			return diag.New(diag.InvalidArguments, "declarator layer %T", c.Node)
		}

		d.Type = tp.Append(d.Type, tn.Type)
	}

	return nil
}

// SpecifiersToType resolves a declaration specifier list
// into a type chain and a storage class.
// Qualifiers become outer layers, integer types get a signedness wrapper.
func (b *Builder) SpecifiersToType(specs *List) (tp.Type, tp.StorageClass, error) {
	var (
		sign    *tp.Sign
		base    tp.Kind
		hasBase bool
		complex tp.Type
		quals   tp.Type
		class   tp.StorageClass
		err     error
	)

	for c := specs; c != nil; c = c.Next {
		tn, ok := c.Node.(*TypeNode)
		if !ok {
			return nil, 0, diag.New(diag.InvalidArguments, "declaration specifier %T", c.Node)
		}

		switch t := tn.Type.(type) {
		case *tp.Storage:
			if class != tp.ClassInvalid {
				return nil, 0, b.errorf(diag.Conflict, "multiple storage classes: %v and %v", class, t.Class)
			}

			class = t.Class
		case *tp.Qualifier:
			quals = tp.Append(quals, &tp.Qualifier{Kind: t.Kind})
		case *tp.Specifier:
			switch t.Kind {
			case tp.SpecSigned, tp.SpecUnsigned:
				if sign != nil {
					return nil, 0, b.errorf(diag.Redeclaration, "signedness specified twice")
				}

				sign = &tp.Sign{Unsigned: t.Kind == tp.SpecUnsigned}
			case tp.SpecStruct, tp.SpecUnion, tp.SpecEnum, tp.SpecTypedefName:
				if complex != nil {
					return nil, 0, b.errorf(diag.Conflict, "%v after %v", t, complex)
				}

				switch t.Kind {
				case tp.SpecEnum:
					complex = t.Enum
				case tp.SpecTypedefName:
					complex = t.Alias
				default:
					complex = t.Record
				}
			default:
				base, err = b.combine(base, hasBase, t.Kind)
				if err != nil {
					return nil, 0, err
				}

				hasBase = true
			}
		default:
			return nil, 0, diag.New(diag.InvalidArguments, "declaration specifier %T", t)
		}
	}

	if complex != nil {
		if hasBase || sign != nil {
			return nil, 0, b.errorf(diag.Conflict, "%v combined with basic type specifiers", complex)
		}

		return tp.Append(quals, complex), class, nil
	}

	if !hasBase {
		base = tp.Int
	}

	var t tp.Type = &tp.Scalar{Kind: base}

	switch base {
	case tp.Void, tp.Bool, tp.Float, tp.Double, tp.LongDouble:
		if sign != nil {
			return nil, 0, b.errorf(diag.Conflict, "signedness of %v", base)
		}
	default:
		if sign == nil {
			sign = &tp.Sign{}
		}

		sign.Of = t
		t = sign
	}

	return tp.Append(quals, t), class, nil
}

func (b *Builder) combine(cur tp.Kind, has bool, next tp.SpecKind) (tp.Kind, error) {
	k := [...]tp.Kind{
		tp.SpecVoid:   tp.Void,
		tp.SpecBool:   tp.Bool,
		tp.SpecChar:   tp.Char,
		tp.SpecShort:  tp.Short,
		tp.SpecInt:    tp.Int,
		tp.SpecLong:   tp.Long,
		tp.SpecFloat:  tp.Float,
		tp.SpecDouble: tp.Double,
	}[next]

	if !has {
		return k, nil
	}

	switch {
	case k == tp.Int && (cur == tp.Short || cur == tp.Long || cur == tp.LongLong):
		return cur, nil
	case cur == tp.Int && (k == tp.Short || k == tp.Long):
		return k, nil
	case cur == tp.Long && k == tp.Long:
		return tp.LongLong, nil
	case cur == tp.Long && k == tp.Double, cur == tp.Double && k == tp.Long:
		return tp.LongDouble, nil
	}

	return 0, b.errorf(diag.Conflict, "%v after %v", next, cur)
}

// NewDeclaration applies specifiers to every declarator
// and registers the declared names in the current scope.
// An initialized declarator is split into the declaration and an assignment.
func (b *Builder) NewDeclaration(specs, decls *List) (*List, error) {
	return b.declare(specs, decls, true)
}

// NewMemberDeclaration is NewDeclaration for struct members.
// Members are registered when the struct is completed.
func (b *Builder) NewMemberDeclaration(specs, decls *List) (*List, error) {
	return b.declare(specs, decls, false)
}

func (b *Builder) declare(specs, decls *List, register bool) (out *List, err error) {
	t, class, err := b.SpecifiersToType(specs)
	if err != nil {
		return nil, err
	}

	if !register && class != tp.ClassInvalid {
		return nil, b.errorf(diag.InvalidCode, "storage class %v on a member", class)
	}

	if decls == nil {
		return NewList(b.NewType(t)), nil
	}

	for c := decls; c != nil; c = c.Next {
		d, init, err := splitInit(c.Node)
		if err != nil {
			return nil, err
		}

		applySpecifiers(d, t)

		if register && d.Ident != nil {
			err = b.register(d, class)
			if err != nil {
				return nil, err
			}
		}

		out = Append(out, d)

		if init == nil {
			continue
		}

		if !register || class == tp.ClassTypedef {
			return nil, b.errorf(diag.InvalidCode, "%v cannot be initialized", d.Ident.Name)
		}

		lhs := &Ident{Base: d.Base, Name: d.Ident.Name, Sym: d.Ident.Sym}

		out = Append(out, &BinOp{Base: d.Base, Op: Assign, L: lhs, R: init})
	}

	return out, nil
}

func splitInit(n Node) (*Decl, Node, error) {
	switch n := n.(type) {
	case *Decl:
		return n, nil, nil
	case *BinOp:
		if d, ok := n.L.(*Decl); ok && n.Op == Assign {
			return d, n.R, nil
		}
	}

	return nil, nil, diag.New(diag.InvalidArguments, "init declarator %T", n)
}

// applySpecifiers puts the specifier chain under the declarator layers.
// For a function declarator it becomes the return type.
func applySpecifiers(d *Decl, t tp.Type) {
	if f, ok := d.Type.(*tp.Function); ok {
		f.Of = tp.Append(f.Of, t)
		return
	}

	d.Type = tp.Append(d.Type, t)
}

func (b *Builder) register(d *Decl, class tp.StorageClass) error {
	if class == tp.ClassInvalid {
		class = tp.ClassAuto

		if b.Scope.Scope == tp.ScopeGlobal {
			class = tp.ClassExtern
		}
	}

	sym := &tp.Symbol{
		Name:  d.Ident.Name,
		Class: class,
		Type:  d.Type,
		File:  b.File,
		Line:  d.Line,
		Node:  d,
	}

	err := b.Scope.Add(tp.General, sym)
	if errors.Is(err, diag.SymbolAlreadyExists) {
		prev := b.Scope.Lookup(sym.Name, tp.General, false)

		if !redeclarable(prev, sym) {
			return b.errorf(diag.Redeclaration, "redeclaration of %v, previous declaration at line %d", sym.Name, prev.Line)
		}

		if tp.IsFunction(sym.Type) && !prev.Defined {
			prev.Type = sym.Type
		}

		sym = prev
	} else if err != nil {
		return err
	}

	d.Ident.Sym = sym

	return nil
}

func redeclarable(prev, sym *tp.Symbol) bool {
	if prev.Class == tp.ClassTypedef || sym.Class == tp.ClassTypedef {
		return false
	}

	if tp.IsFunction(prev.Type) || tp.IsFunction(sym.Type) {
		return tp.IsFunction(prev.Type) && tp.IsFunction(sym.Type)
	}

	return prev.Class == tp.ClassExternExplicit || sym.Class == tp.ClassExternExplicit
}

// NewParam resolves one parameter declaration in the prototype scope.
// Array and function parameters are adjusted to pointers.
func (b *Builder) NewParam(specs *List, d *Decl) (*Decl, error) {
	t, class, err := b.SpecifiersToType(specs)
	if err != nil {
		return nil, err
	}

	if class != tp.ClassInvalid && class != tp.ClassRegister {
		return nil, b.errorf(diag.InvalidCode, "storage class %v on a parameter", class)
	}

	applySpecifiers(d, t)

	switch x := tp.Unqual(d.Type).(type) {
	case *tp.Array:
		d.Type = &tp.Pointer{Link: tp.Link{Of: x.Of}}
	case *tp.Function:
		d.Type = &tp.Pointer{Link: tp.Link{Of: d.Type}}
	}

	if d.Ident == nil {
		return d, nil
	}

	sym := &tp.Symbol{
		Name:  d.Ident.Name,
		Class: tp.ClassParam,
		Type:  d.Type,
		File:  b.File,
		Line:  d.Line,
		Node:  d,
	}

	err = b.Scope.Add(tp.General, sym)
	if errors.Is(err, diag.SymbolAlreadyExists) {
		return nil, b.errorf(diag.Redeclaration, "duplicate parameter %v", sym.Name)
	}
	if err != nil {
		return nil, err
	}

	d.Ident.Sym = sym

	return d, nil
}

// NewFunction registers a function definition and enters its scope.
// The body is parsed next and attached with EndFunction.
func (b *Builder) NewFunction(specs *List, d *Decl) (*Decl, error) {
	f, ok := d.Type.(*tp.Function)
	if !ok || d.Ident == nil {
		return nil, b.errorf(diag.InvalidCode, "function definition of a non-function")
	}

	_, err := b.declare(specs, NewList(d), true)
	if err != nil {
		return nil, err
	}

	sym := d.Ident.Sym
	if sym.Defined {
		return nil, b.errorf(diag.Redefinition, "function %v already defined at line %d", sym.Name, sym.Line)
	}

	sym.Defined = true
	sym.Type = d.Type
	sym.Line = d.Line
	sym.Node = d

	if f.Scope == nil {
		f.Scope = tp.NewTableSet(b.Scope, tp.ScopeFunction)
	}

	f.Scope.Scope = tp.ScopeFunction

	b.EnterScope(f.Scope)

	return d, nil
}

// EndFunction attaches the body, checks labels and leaves the function scope.
func (b *Builder) EndFunction(d *Decl, body *List) error {
	f := d.Type.(*tp.Function)

	if body != nil {
		f.Body = body
	}

	b.EnterScope(f.Scope.Parent)

	return b.CheckLabels(f.Scope)
}

func (b *Builder) NewStructSpecifier(union bool) *TypeNode {
	k := tp.SpecStruct
	if union {
		k = tp.SpecUnion
	}

	s := &tp.Struct{
		Union:   union,
		Members: tp.NewTableSet(b.Scope, tp.ScopeStructOrUnion),
	}

	return b.NewType(&tp.Specifier{Kind: k, Record: s})
}

// UpdateStructSpecifier names a struct specifier and/or gives it members.
// Naming links it to an existing tag of the same name if there is one.
func (b *Builder) UpdateStructSpecifier(n *TypeNode, name *Ident, members *List) (*TypeNode, error) {
	spec, ok := n.Type.(*tp.Specifier)
	if !ok || spec.Record == nil {
		return nil, diag.New(diag.InvalidArguments, "struct specifier expected: %T", n.Type)
	}

	if name != nil {
		err := b.nameRecord(spec, name)
		if err != nil {
			return nil, err
		}
	}

	if members != nil {
		err := b.defineRecord(spec.Record, members)
		if err != nil {
			return nil, err
		}
	}

	return n, nil
}

func (b *Builder) nameRecord(spec *tp.Specifier, name *Ident) error {
	s := spec.Record

	if s.Name != "" {
		return b.errorf(diag.Redefinition, "%v renamed to %v", s, name.Name)
	}

	if sym := b.Scope.Lookup(name.Name, tp.Tag, true); sym != nil {
		prev, ok := sym.Type.(*tp.Struct)
		if !ok || prev.Union != s.Union {
			return b.errorf(diag.Conflict, "%v redeclared as a different kind of tag", name.Name)
		}

		spec.Record = prev
		name.Sym = sym

		return nil
	}

	s.Name = name.Name

	sym := &tp.Symbol{
		Name: name.Name,
		Type: s,
		File: b.File,
		Line: b.Line,
	}

	err := b.Scope.Add(tp.Tag, sym)
	if err != nil {
		return err
	}

	s.Sym = sym
	name.Sym = sym

	return nil
}

func (b *Builder) defineRecord(s *tp.Struct, members *List) error {
	if s.Defined {
		line := 0
		if s.Sym != nil {
			line = s.Sym.Line
		}

		return b.errorf(diag.Redefinition, "%v already defined at line %d", s, line)
	}

	for c := members; c != nil; c = c.Next {
		d, ok := c.Node.(*Decl)
		if !ok || d.Ident == nil {
			continue
		}

		if incomplete(d.Type) {
			return diag.At(b.File, d.Line, diag.IncompleteType, "member %v has incomplete type %v", d.Ident.Name, tp.String(d.Type))
		}

		sym := &tp.Symbol{
			Name: d.Ident.Name,
			Type: d.Type,
			File: b.File,
			Line: d.Line,
			Node: d,
		}

		err := s.Members.Add(tp.Member, sym)
		if errors.Is(err, diag.SymbolAlreadyExists) {
			return diag.At(b.File, d.Line, diag.Redeclaration, "duplicate member %v", sym.Name)
		}
		if err != nil {
			return err
		}

		d.Ident.Sym = sym
	}

	s.Defined = true

	if s.Sym != nil {
		s.Sym.Defined = true
	}

	return nil
}

func incomplete(t tp.Type) bool {
	for {
		switch x := tp.Unqual(t).(type) {
		case *tp.Array:
			t = x.Of
		case *tp.Struct:
			return !x.Defined
		default:
			return false
		}
	}
}

func (b *Builder) NewEnumerator(name string, value Node) *Enumerator {
	return &Enumerator{Base: b.base(), Ident: b.NewIdent(name), Value: value}
}

// NewEnumSpecifier declares an enum tag and its enumerators.
// values is nil for a reference to a declared enum.
func (b *Builder) NewEnumSpecifier(name *Ident, values *List) (*TypeNode, error) {
	e := &tp.Enum{}

	if name != nil {
		sym := b.Scope.Lookup(name.Name, tp.Tag, true)

		switch {
		case sym == nil:
			e.Name = name.Name

			sym = &tp.Symbol{Name: name.Name, Type: e, File: b.File, Line: b.Line}

			err := b.Scope.Add(tp.Tag, sym)
			if err != nil {
				return nil, err
			}

			e.Sym = sym
		case values != nil && sym.Defined:
			return nil, b.errorf(diag.Redefinition, "enum %v already defined at line %d", name.Name, sym.Line)
		default:
			prev, ok := sym.Type.(*tp.Enum)
			if !ok {
				return nil, b.errorf(diag.Conflict, "%v redeclared as a different kind of tag", name.Name)
			}

			e = prev
		}

		name.Sym = sym
	}

	if values != nil {
		var next int64

		for c := values; c != nil; c = c.Next {
			en, ok := c.Node.(*Enumerator)
			if !ok {
				return nil, diag.New(diag.InvalidArguments, "enumerator expected: %T", c.Node)
			}

			if en.Value != nil {
				v, ok := constValue(en.Value)
				if !ok {
					return nil, diag.At(b.File, en.Line, diag.NotYetImplemented, "enumerator %v value is not an integer constant", en.Ident.Name)
				}

				next = v
			}

			sym := &tp.Symbol{
				Name:  en.Ident.Name,
				Class: tp.ClassEnumerator,
				Type:  e,
				File:  b.File,
				Line:  en.Line,
				Node:  en,
				Value: &Constant{Base: en.Base, Kind: ConstInt, Int: next},
			}

			err := b.Scope.Add(tp.General, sym)
			if errors.Is(err, diag.SymbolAlreadyExists) {
				return nil, diag.At(b.File, en.Line, diag.Redeclaration, "redeclaration of enumerator %v", sym.Name)
			}
			if err != nil {
				return nil, err
			}

			en.Ident.Sym = sym

			next++
		}

		e.Def = &EnumDef{Base: b.base(), Ident: name, Values: values}

		if e.Sym != nil {
			e.Sym.Defined = true
		}
	}

	return b.NewType(&tp.Specifier{Kind: tp.SpecEnum, Enum: e}), nil
}

func constValue(n Node) (int64, bool) {
	switch n := n.(type) {
	case *Constant:
		return n.IntValue()
	case *Unary:
		if n.Op != Neg {
			break
		}

		v, ok := constValue(n.X)

		return -v, ok
	case *Ident:
		if n.Sym != nil && n.Sym.Class == tp.ClassEnumerator {
			return constValue(n.Sym.Value.(*Constant))
		}
	}

	return 0, false
}
