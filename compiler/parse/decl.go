package parse

import (
	"github.com/slowlang/quadcc/compiler/ast"
	"github.com/slowlang/quadcc/compiler/lex"
	"github.com/slowlang/quadcc/compiler/tp"
)

var (
	specKinds = map[string]tp.SpecKind{
		"void":     tp.SpecVoid,
		"_Bool":    tp.SpecBool,
		"char":     tp.SpecChar,
		"short":    tp.SpecShort,
		"int":      tp.SpecInt,
		"long":     tp.SpecLong,
		"float":    tp.SpecFloat,
		"double":   tp.SpecDouble,
		"signed":   tp.SpecSigned,
		"unsigned": tp.SpecUnsigned,
	}

	qualKinds = map[string]tp.QualKind{
		"const":    tp.Const,
		"volatile": tp.Volatile,
		"restrict": tp.Restrict,
	}

	storageClasses = map[string]tp.StorageClass{
		"typedef":  tp.ClassTypedef,
		"extern":   tp.ClassExternExplicit,
		"static":   tp.ClassStatic,
		"auto":     tp.ClassAuto,
		"register": tp.ClassRegister,
	}
)

func (s *State) externalDeclaration() (*ast.List, error) {
	specs, err := s.specifiers()
	if err != nil {
		return nil, err
	}

	if specs == nil {
		return nil, s.errorf("expected declaration, got %v", describe(s.peek()))
	}

	if s.accept(";") {
		s.reduce("declaration")
		return s.b.NewDeclaration(specs, nil)
	}

	d, err := s.declarator(false)
	if err != nil {
		return nil, err
	}

	if _, ok := d.Type.(*tp.Function); !ok || !s.is("{") {
		return s.initDeclarators(specs, d)
	}

	d, err = s.b.NewFunction(specs, d)
	if err != nil {
		return nil, err
	}

	body, err := s.compound()
	if err != nil {
		return nil, err
	}

	err = s.b.EndFunction(d, body)
	if err != nil {
		return nil, err
	}

	s.reduce("function_definition")

	return ast.NewList(d), nil
}

// declaration parses a block scope declaration.
func (s *State) declaration() (*ast.List, error) {
	specs, err := s.specifiers()
	if err != nil {
		return nil, err
	}

	if s.accept(";") {
		s.reduce("declaration")
		return s.b.NewDeclaration(specs, nil)
	}

	d, err := s.declarator(false)
	if err != nil {
		return nil, err
	}

	return s.initDeclarators(specs, d)
}

// initDeclarators declares d and the rest of the comma separated list.
// Every declarator is registered before the next one is parsed.
func (s *State) initDeclarators(specs *ast.List, d *ast.Decl) (list *ast.List, err error) {
	for {
		var n ast.Node = d

		if s.accept("=") {
			if s.is("{") {
				return nil, s.nyi("initializer lists")
			}

			init, err := s.assignment()
			if err != nil {
				return nil, err
			}

			n = s.b.NewBinOp(ast.Assign, d, init)
		}

		l, err := s.b.NewDeclaration(specs, ast.NewList(n))
		if err != nil {
			return nil, err
		}

		list = ast.Append(list, l)

		if !s.accept(",") {
			break
		}

		d, err = s.declarator(false)
		if err != nil {
			return nil, err
		}
	}

	err = s.expect(";")
	if err != nil {
		return nil, err
	}

	s.reduce("declaration")

	return list, nil
}

// specifiers parses declaration specifiers. It returns nil if there are none.
func (s *State) specifiers() (specs *ast.List, err error) {
	typed := false

loop:
	for {
		t := s.peek()
		if t.Kind != lex.Ident {
			break
		}

		var n *ast.TypeNode

		switch t.Text {
		case "inline":
			s.next()
			continue
		case "_Thread_local":
			return nil, s.nyi("thread local storage")
		case "struct", "union":
			n, err = s.structSpecifier()
			typed = true
		case "enum":
			n, err = s.enumSpecifier()
			typed = true
		default:
			if k, ok := specKinds[t.Text]; ok {
				s.next()
				n = s.b.NewSpecifier(k)
				typed = true

				break
			}

			if k, ok := qualKinds[t.Text]; ok {
				s.next()
				n = s.b.NewQualifier(k)

				break
			}

			if c, ok := storageClasses[t.Text]; ok {
				s.next()
				n = s.b.NewStorage(c)

				break
			}

			if typed || !isName(t) {
				break loop
			}

			sym := s.b.Typedef(t.Text)
			if sym == nil {
				break loop
			}

			s.next()
			n = s.b.NewTypedefName(sym)
			typed = true
		}

		if err != nil {
			return nil, err
		}

		specs = ast.Append(specs, n)
	}

	if specs != nil {
		s.reduce("declaration_specifiers")
	}

	return specs, nil
}

// startsType reports whether t begins declaration specifiers.
func (s *State) startsType(t lex.Token) bool {
	if t.Kind != lex.Ident {
		return false
	}

	switch t.Text {
	case "struct", "union", "enum", "inline", "_Thread_local":
		return true
	}

	if _, ok := specKinds[t.Text]; ok {
		return true
	}

	if _, ok := qualKinds[t.Text]; ok {
		return true
	}

	if _, ok := storageClasses[t.Text]; ok {
		return true
	}

	return isName(t) && s.b.Typedef(t.Text) != nil
}

// declarator parses pointers, a name or a nested declarator, and suffixes.
// The resulting chain is the nested part, then suffixes, then pointers
// in reverse order of appearance.
func (s *State) declarator(abstract bool) (d *ast.Decl, err error) {
	ptrs := s.pointers()

	var inner tp.Type

	switch {
	case isName(s.peek()):
		name := s.next().Text
		d = s.b.NewDecl(s.b.NewIdent(name))
	case s.is("(") && s.nested(abstract):
		s.next()

		d, err = s.declarator(abstract)
		if err != nil {
			return nil, err
		}

		err = s.expect(")")
		if err != nil {
			return nil, err
		}

		inner, d.Type = d.Type, nil
	case abstract:
		d = s.b.NewDecl(nil)
	default:
		return nil, s.errorf("expected declarator, got %v", describe(s.peek()))
	}

	suffixes, err := s.suffixes()
	if err != nil {
		return nil, err
	}

	d.Type = tp.Append(tp.Append(inner, suffixes), ptrs)

	s.reduce("declarator")

	return d, nil
}

// nested tells a parenthesized declarator from a parameter list.
func (s *State) nested(abstract bool) bool {
	t := s.peekN(1)

	switch {
	case t.Is("*"), t.Is("("):
		return true
	case abstract:
		return false
	default:
		return isName(t) && s.b.Typedef(t.Text) == nil
	}
}

func (s *State) pointers() (chain tp.Type) {
	var layers []tp.Type

	for s.accept("*") {
		layers = append(layers, &tp.Pointer{})

		for {
			k, ok := qualKinds[s.peek().Text]
			if !ok || s.peek().Kind != lex.Ident {
				break
			}

			s.next()

			layers = append(layers, &tp.Qualifier{Kind: k})
		}
	}

	for i := len(layers) - 1; i >= 0; i-- {
		chain = tp.Append(chain, layers[i])
	}

	return chain
}

func (s *State) suffixes() (chain tp.Type, err error) {
	for {
		switch {
		case s.accept("["):
			var size ast.Node

			if !s.is("]") {
				size, err = s.conditional()
				if err != nil {
					return nil, err
				}
			}

			err = s.expect("]")
			if err != nil {
				return nil, err
			}

			chain = tp.Append(chain, s.b.NewArrayType(size))
		case s.is("("):
			f, err := s.parameters()
			if err != nil {
				return nil, err
			}

			chain = tp.Append(chain, f)
		default:
			return chain, nil
		}
	}
}

// parameters parses a parameter list in a new prototype scope.
func (s *State) parameters() (f *tp.Function, err error) {
	err = s.expect("(")
	if err != nil {
		return nil, err
	}

	scope := s.b.PushScope(tp.ScopePrototype)
	defer s.b.PopScope()

	var (
		params   *ast.List
		variadic bool
	)

	switch {
	case s.is(")"):
	case s.is("void") && s.peekN(1).Is(")"):
		s.next()
	default:
		for {
			if s.accept("...") {
				variadic = true
				break
			}

			specs, err := s.specifiers()
			if err != nil {
				return nil, err
			}

			if specs == nil {
				return nil, s.errorf("expected parameter declaration, got %v", describe(s.peek()))
			}

			d, err := s.declarator(true)
			if err != nil {
				return nil, err
			}

			d, err = s.b.NewParam(specs, d)
			if err != nil {
				return nil, err
			}

			params = ast.Append(params, d)

			if !s.accept(",") {
				break
			}
		}
	}

	err = s.expect(")")
	if err != nil {
		return nil, err
	}

	s.reduce("parameter_list")

	return s.b.NewFunctionType(params, scope, variadic), nil
}

// typeName parses a type in a cast or sizeof.
func (s *State) typeName() (tp.Type, error) {
	specs, err := s.specifiers()
	if err != nil {
		return nil, err
	}

	d, err := s.declarator(true)
	if err != nil {
		return nil, err
	}

	if d.Ident != nil {
		return nil, s.errorf("unexpected name %v in type name", d.Ident.Name)
	}

	t, class, err := s.b.SpecifiersToType(specs)
	if err != nil {
		return nil, err
	}

	if class != tp.ClassInvalid {
		return nil, s.errorf("storage class %v in type name", class)
	}

	s.reduce("type_name")

	return tp.Append(d.Type, t), nil
}

func (s *State) structSpecifier() (n *ast.TypeNode, err error) {
	union := s.next().Text == "union"
	n = s.b.NewStructSpecifier(union)

	named := false

	if name, ok := s.name(); ok {
		n, err = s.b.UpdateStructSpecifier(n, s.b.NewIdent(name), nil)
		if err != nil {
			return nil, err
		}

		named = true
	}

	if !s.accept("{") {
		if !named {
			return nil, s.errorf("expected struct name or body, got %v", describe(s.peek()))
		}

		return n, nil
	}

	var members *ast.List

	for !s.accept("}") {
		specs, err := s.specifiers()
		if err != nil {
			return nil, err
		}

		if specs == nil {
			return nil, s.errorf("expected member declaration, got %v", describe(s.peek()))
		}

		var decls *ast.List

		for !s.is(";") {
			d, err := s.declarator(false)
			if err != nil {
				return nil, err
			}

			if s.is(":") {
				return nil, s.nyi("bit fields")
			}

			decls = ast.Append(decls, d)

			if !s.accept(",") {
				break
			}
		}

		err = s.expect(";")
		if err != nil {
			return nil, err
		}

		l, err := s.b.NewMemberDeclaration(specs, decls)
		if err != nil {
			return nil, err
		}

		members = ast.Append(members, l)
	}

	if members == nil {
		return nil, s.errorf("struct without members")
	}

	s.reduce("struct_or_union_specifier")

	return s.b.UpdateStructSpecifier(n, nil, members)
}

func (s *State) enumSpecifier() (*ast.TypeNode, error) {
	s.next()

	var id *ast.Ident

	if name, ok := s.name(); ok {
		id = s.b.NewIdent(name)
	}

	if !s.accept("{") {
		if id == nil {
			return nil, s.errorf("expected enum name or body, got %v", describe(s.peek()))
		}

		return s.b.NewEnumSpecifier(id, nil)
	}

	var values *ast.List

	for !s.accept("}") {
		name, err := s.expectName()
		if err != nil {
			return nil, err
		}

		var v ast.Node

		if s.accept("=") {
			v, err = s.conditional()
			if err != nil {
				return nil, err
			}
		}

		values = ast.Append(values, s.b.NewEnumerator(name, v))

		if s.accept(",") {
			continue
		}

		err = s.expect("}")
		if err != nil {
			return nil, err
		}

		break
	}

	if values == nil {
		return nil, s.errorf("enum without enumerators")
	}

	s.reduce("enum_specifier")

	return s.b.NewEnumSpecifier(id, values)
}
