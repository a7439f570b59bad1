package tp

import (
	"github.com/nikandfor/hacked/hfmt"

	"github.com/slowlang/quadcc/compiler/diag"
)

// WordSize is the size of every scalar and pointer on the 32-bit target.
const WordSize = 4

type (
	// Type is one layer of a type chain.
	// The chain is read outermost first: pointer -> const -> signed -> int.
	Type interface {
		Next() Type
		setNext(Type)
	}

	// Node is a syntax tree node types and symbols refer to.
	// They never own it.
	Node interface {
		Pos() int
	}

	// IntConst is implemented by literal integer constant nodes.
	IntConst interface {
		IntValue() (int64, bool)
	}

	Link struct {
		Of Type
	}

	Kind int

	Scalar struct {
		Link
		Kind Kind
	}

	Sign struct {
		Link
		Unsigned bool
	}

	Pointer struct {
		Link
	}

	Array struct {
		Link
		Size Node // nil for []
	}

	// Function keeps its return type in Of.
	Function struct {
		Link

		Params   Node
		Scope    *TableSet
		Body     Node
		Variadic bool
	}

	// Struct is a struct or union. There is one per tag.
	Struct struct {
		Link

		Name    string
		Union   bool
		Members *TableSet
		Defined bool
		Sym     *Symbol
	}

	Enum struct {
		Link

		Name string
		Sym  *Symbol
		Def  Node
	}

	QualKind int

	Qualifier struct {
		Link
		Kind QualKind
	}

	// Storage is a storage-class specifier as written.
	// Declarations consume it into Symbol.Class.
	Storage struct {
		Link
		Class StorageClass
	}

	SpecKind int

	// Specifier is a type specifier keyword as written.
	Specifier struct {
		Link

		Kind SpecKind

		Record *Struct
		Enum   *Enum
		Alias  Type
		Name   string
	}
)

const (
	Void Kind = iota
	Bool
	Char
	Short
	Int
	Long
	LongLong
	Float
	Double
	LongDouble
)

const (
	Const QualKind = iota
	Volatile
	Restrict
)

const (
	SpecVoid SpecKind = iota
	SpecBool
	SpecChar
	SpecShort
	SpecInt
	SpecLong
	SpecFloat
	SpecDouble
	SpecSigned
	SpecUnsigned
	SpecStruct
	SpecUnion
	SpecEnum
	SpecTypedefName
)

var kindNames = []string{
	Void:       "void",
	Bool:       "_Bool",
	Char:       "char",
	Short:      "short",
	Int:        "int",
	Long:       "long",
	LongLong:   "long long",
	Float:      "float",
	Double:     "double",
	LongDouble: "long double",
}

var qualNames = []string{
	Const:    "const",
	Volatile: "volatile",
	Restrict: "restrict",
}

var specNames = []string{
	SpecVoid:        "void",
	SpecBool:        "_Bool",
	SpecChar:        "char",
	SpecShort:       "short",
	SpecInt:         "int",
	SpecLong:        "long",
	SpecFloat:       "float",
	SpecDouble:      "double",
	SpecSigned:      "signed",
	SpecUnsigned:    "unsigned",
	SpecStruct:      "struct",
	SpecUnion:       "union",
	SpecEnum:        "enum",
	SpecTypedefName: "typedef-name",
}

func (l *Link) Next() Type       { return l.Of }
func (l *Link) setNext(t Type)   { l.Of = t }
func (f *Function) Return() Type { return f.Of }

// Append attaches child at the innermost end of parent chain.
// Either may be nil.
func Append(parent, child Type) Type {
	if parent == nil {
		return child
	}

	if child == nil {
		return parent
	}

	t := parent
	for t.Next() != nil {
		t = t.Next()
	}

	t.setNext(child)

	return parent
}

// NewInt returns a fresh signed int chain.
func NewInt() Type {
	return &Sign{Link: Link{Of: &Scalar{Kind: Int}}}
}

// Unqual skips qualifier and storage layers.
func Unqual(t Type) Type {
	for {
		switch x := t.(type) {
		case *Qualifier:
			t = x.Of
		case *Storage:
			t = x.Of
		default:
			return t
		}
	}
}

// IsPointer reports pointers and arrays.
func IsPointer(t Type) bool {
	switch Unqual(t).(type) {
	case *Pointer, *Array:
		return true
	}

	return false
}

func IsArray(t Type) bool {
	_, ok := Unqual(t).(*Array)
	return ok
}

func IsFunction(t Type) bool {
	_, ok := Unqual(t).(*Function)
	return ok
}

// IsScalar reports word sized arithmetic types.
func IsScalar(t Type) bool {
	switch x := Unqual(t).(type) {
	case *Sign, *Enum:
		return true
	case *Scalar:
		return x.Kind != Void
	}

	return false
}

// Elem is the pointed-to or element type.
func Elem(t Type) Type {
	switch x := Unqual(t).(type) {
	case *Pointer:
		return x.Of
	case *Array:
		return x.Of
	}

	return nil
}

// Sizeof computes the storage size of t in bytes.
func Sizeof(t Type) (int, error) {
	switch t := t.(type) {
	case *Scalar, *Sign, *Enum, *Pointer:
		return WordSize, nil
	case *Qualifier:
		return Sizeof(t.Of)
	case *Storage:
		return Sizeof(t.Of)
	case *Array:
		c, ok := t.Size.(IntConst)
		if !ok {
			return 0, diag.New(diag.NotYetImplemented, "array size is not an integer constant")
		}

		n, ok := c.IntValue()
		if !ok {
			return 0, diag.New(diag.NotYetImplemented, "array size is not an integer constant")
		}

		el, err := Sizeof(t.Of)
		if err != nil {
			return 0, err
		}

		return int(n) * el, nil
	case *Struct:
		return 0, diag.New(diag.NotYetImplemented, "sizeof %v", t)
	case *Function:
		return 0, diag.New(diag.InvalidCode, "sizeof function type")
	case nil:
		return 0, diag.New(diag.InvalidArguments, "sizeof nil type")
	default:
		return 0, diag.New(diag.InvalidArguments, "sizeof unresolved type %v", t)
	}
}

// String renders the chain outermost layer first.
func String(t Type) string {
	return string(appendType(nil, t))
}

func appendType(b []byte, t Type) []byte {
	if t == nil {
		return append(b, "<nil>"...)
	}

	for i := 0; t != nil; i++ {
		if i != 0 {
			b = append(b, " -> "...)
		}

		b = appendLayer(b, t)

		t = t.Next()
	}

	return b
}

func appendLayer(b []byte, t Type) []byte {
	switch t := t.(type) {
	case *Scalar:
		return append(b, kindNames[t.Kind]...)
	case *Sign:
		if t.Unsigned {
			return append(b, "unsigned"...)
		}

		return append(b, "signed"...)
	case *Pointer:
		return append(b, "pointer"...)
	case *Array:
		if c, ok := t.Size.(IntConst); ok {
			if n, ok := c.IntValue(); ok {
				return hfmt.Appendf(b, "array[%d]", n)
			}
		}

		return append(b, "array[]"...)
	case *Function:
		return append(b, "function"...)
	case *Struct:
		if t.Union {
			b = append(b, "union"...)
		} else {
			b = append(b, "struct"...)
		}

		if t.Name != "" {
			b = hfmt.Appendf(b, " %s", t.Name)
		}

		return b
	case *Enum:
		return hfmt.Appendf(b, "enum %s", t.Name)
	case *Qualifier:
		return append(b, qualNames[t.Kind]...)
	case *Storage:
		return append(b, t.Class.String()...)
	case *Specifier:
		if t.Kind == SpecTypedefName {
			return append(b, t.Name...)
		}

		return append(b, specNames[t.Kind]...)
	default:
		return append(b, '?')
	}
}

func (k Kind) String() string     { return kindNames[k] }
func (k QualKind) String() string { return qualNames[k] }
func (k SpecKind) String() string { return specNames[k] }

func (t *Scalar) String() string    { return String(t) }
func (t *Sign) String() string      { return String(t) }
func (t *Pointer) String() string   { return String(t) }
func (t *Array) String() string     { return String(t) }
func (t *Function) String() string  { return String(t) }
func (t *Struct) String() string    { return string(appendLayer(nil, t)) }
func (t *Enum) String() string      { return string(appendLayer(nil, t)) }
func (t *Qualifier) String() string { return String(t) }
func (t *Storage) String() string   { return String(t) }
func (t *Specifier) String() string { return String(t) }
