package tp

import (
	"tlog.app/go/tlog/tlwire"

	"github.com/slowlang/quadcc/compiler/diag"
)

type (
	Namespace int

	Scope int

	StorageClass int

	Symbol struct {
		Name  string
		Class StorageClass
		Type  Type

		File string
		Line int

		// Defined is set for a struct or union once its members are known,
		// for a label once it is placed and for a function once it has a body.
		Defined bool

		Node  Node // declaring node or labeled statement
		Value Node // enumerator constant

		// Offset is the frame offset of a local or parameter.
		Offset int

		Set *TableSet

		next *Symbol
	}

	// Table is a list of symbols in insertion order.
	Table struct {
		head, tail *Symbol
		n          int
	}

	// TableSet holds the four namespaces of one scope.
	TableSet struct {
		Scope  Scope
		Parent *TableSet

		tables [namespaces]Table
	}
)

const (
	Label Namespace = iota
	Tag
	Member
	General

	namespaces
)

const (
	ScopeGlobal Scope = iota
	ScopeFunction
	ScopeBlock
	ScopePrototype
	ScopeStructOrUnion
)

const (
	ClassInvalid StorageClass = iota
	ClassAuto
	ClassRegister
	ClassExtern
	ClassExternExplicit
	ClassStatic
	ClassTypedef
	ClassParam
	ClassEnumerator
)

var nsNames = []string{
	Label:   "label",
	Tag:     "tag",
	Member:  "member",
	General: "general",
}

var scopeNames = []string{
	ScopeGlobal:        "global",
	ScopeFunction:      "function",
	ScopeBlock:         "block",
	ScopePrototype:     "prototype",
	ScopeStructOrUnion: "struct_or_union",
}

var classNames = []string{
	ClassInvalid:        "invalid",
	ClassAuto:           "auto",
	ClassRegister:       "register",
	ClassExtern:         "extern",
	ClassExternExplicit: "extern_explicit",
	ClassStatic:         "static",
	ClassTypedef:        "typedef",
	ClassParam:          "param",
	ClassEnumerator:     "enumerator",
}

func NewTableSet(parent *TableSet, scope Scope) *TableSet {
	return &TableSet{
		Scope:  scope,
		Parent: parent,
	}
}

func (s *TableSet) Table(ns Namespace) *Table {
	return &s.tables[ns]
}

// Add inserts sym into the namespace.
// Labels always go to the nearest enclosing function scope.
// An existing name is reported as diag.SymbolAlreadyExists and left intact.
func (s *TableSet) Add(ns Namespace, sym *Symbol) error {
	set := s

	if ns == Label {
		set = s.function()
		if set == nil {
			return diag.New(diag.InvalidArguments, "label %v outside of a function", sym.Name)
		}
	}

	t := &set.tables[ns]

	if t.find(sym.Name) != nil {
		return diag.New(diag.SymbolAlreadyExists, "%v %v", ns, sym.Name)
	}

	sym.Set = set
	t.add(sym)

	return nil
}

// Lookup finds name in the namespace.
// Struct and union member scopes are never searched past.
func (s *TableSet) Lookup(name string, ns Namespace, recurse bool) *Symbol {
	set := s

	if ns == Label {
		set = s.function()
	}

	for ; set != nil; set = set.Parent {
		if sym := set.tables[ns].find(name); sym != nil {
			return sym
		}

		if !recurse || set.Scope == ScopeStructOrUnion {
			break
		}
	}

	return nil
}

func (s *TableSet) function() *TableSet {
	for set := s; set != nil; set = set.Parent {
		if set.Scope == ScopeFunction {
			return set
		}
	}

	return nil
}

func (t *Table) add(sym *Symbol) {
	if t.tail == nil {
		t.head = sym
	} else {
		t.tail.next = sym
	}

	t.tail = sym
	t.n++
}

func (t *Table) find(name string) *Symbol {
	for s := t.head; s != nil; s = s.next {
		if s.Name == name {
			return s
		}
	}

	return nil
}

func (t *Table) Len() int { return t.n }

// Range calls f for every symbol in insertion order until f returns false.
func (t *Table) Range(f func(*Symbol) bool) {
	for s := t.head; s != nil; s = s.next {
		if !f(s) {
			return
		}
	}
}

// Global reports symbols with static lifetime addressed by name.
func (s *Symbol) Global() bool {
	return s.Set != nil && s.Set.Scope == ScopeGlobal
}

func (s *Symbol) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 4)

	b = e.AppendKey(b, "name")
	b = e.AppendString(b, s.Name)
	b = e.AppendKey(b, "class")
	b = e.AppendString(b, s.Class.String())
	b = e.AppendKey(b, "type")
	b = e.AppendString(b, String(s.Type))
	b = e.AppendKeyInt(b, "line", s.Line)

	return b
}

func (n Namespace) String() string    { return nsNames[n] }
func (s Scope) String() string        { return scopeNames[s] }
func (c StorageClass) String() string { return classNames[c] }
