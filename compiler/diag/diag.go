package diag

import (
	"fmt"
	"io"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
)

type (
	// Code is an error category.
	// It is an error itself so errors.Is(err, diag.Redefinition) works on any wrapped *Error.
	Code int

	// Error is a compilation failure.
	Error struct {
		Code Code
		Msg  string

		File string
		Line int

		Stack loc.PCs
	}
)

const (
	_ Code = iota

	// SymbolAlreadyExists is the only recoverable code.
	SymbolAlreadyExists

	InvalidArguments
	CannotFindSymbol
	Conflict
	IncompleteType
	InvalidCode
	NotYetImplemented
	UnknownAstType
	Redeclaration
	Redefinition
	Syntax
	Internal
)

var names = []string{
	SymbolAlreadyExists: "SYMBOL_ALREADY_EXISTS",
	InvalidArguments:    "INVALID_ARGUMENTS",
	CannotFindSymbol:    "CANNOT_FIND_SYMBOL",
	Conflict:            "CONFLICT",
	IncompleteType:      "INCOMPLETE_TYPE",
	InvalidCode:         "INVALID_CODE",
	NotYetImplemented:   "NOT_YET_IMPLEMENTED",
	UnknownAstType:      "UNKNOWN_AST_TYPE",
	Redeclaration:       "REDECLARATION",
	Redefinition:        "REDEFINITION",
	Syntax:              "SYNTAX",
	Internal:            "INTERNAL",
}

// New creates a diagnostic without a source position.
func New(c Code, f string, args ...any) *Error {
	return &Error{
		Code:  c,
		Msg:   fmt.Sprintf(f, args...),
		Stack: loc.Callers(1, 16),
	}
}

// At creates a diagnostic pointing at the source line.
func At(file string, line int, c Code, f string, args ...any) *Error {
	return &Error{
		Code:  c,
		Msg:   fmt.Sprintf(f, args...),
		File:  file,
		Line:  line,
		Stack: loc.Callers(1, 16),
	}
}

// Recover turns a panic into an Internal error.
// Must be deferred directly.
func Recover(errp *error) {
	p := recover()
	if p == nil {
		return
	}

	*errp = &Error{
		Code:  Internal,
		Msg:   fmt.Sprintf("panic: %v", p),
		Stack: loc.Callers(2, 32),
	}
}

// Report writes err in the user facing form.
// Internal errors get a call stack.
func Report(w io.Writer, err error) {
	var e *Error
	if !errors.As(err, &e) {
		fmt.Fprintf(w, "error: %v\n", err)
		return
	}

	switch {
	case e.Code.Internal():
		fmt.Fprintf(w, "internal error: (%v) %s\n", e.Code, e.Msg)
	case e.File != "":
		fmt.Fprintf(w, "%s:%d: error: (%v) %s\n", e.File, e.Line, e.Code, e.Msg)
	default:
		fmt.Fprintf(w, "error: (%v) %s\n", e.Code, e.Msg)
	}

	if !e.Code.Internal() {
		return
	}

	for _, pc := range e.Stack {
		fmt.Fprintf(w, "\t%v\n", pc)
	}
}

func (e *Error) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s:%d: (%v) %s", e.File, e.Line, e.Code, e.Msg)
	}

	return fmt.Sprintf("(%v) %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.Code }

func (c Code) Error() string { return c.String() }

func (c Code) String() string {
	if c > 0 && int(c) < len(names) {
		return names[c]
	}

	return fmt.Sprintf("CODE_%d", int(c))
}

// Internal reports codes which mean a compiler bug rather than a bad program.
func (c Code) Internal() bool {
	switch c {
	case InvalidArguments, UnknownAstType, Internal:
		return true
	}

	return false
}
