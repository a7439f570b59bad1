package lex

import (
	"strconv"
	"strings"

	"tlog.app/go/errors"

	"github.com/slowlang/quadcc/compiler/diag"
)

type (
	Kind int

	NumKind int

	Token struct {
		Kind Kind
		Text string
		Line int

		Num Number
		Str []byte // decoded string or char
	}

	// Number is a numeric literal tagged with its width.
	Number struct {
		Kind     NumKind
		Unsigned bool

		Int   int64
		Float float64
	}

	lexer struct {
		name string
		text []byte
		i    int
		line int

		toks []Token
	}
)

const (
	EOF Kind = iota
	Ident
	Num
	Char
	String
	Punct
)

const (
	NumInt NumKind = iota
	NumLong
	NumLongLong
	NumFloat
	NumDouble
	NumLongDouble
)

// longest first
var puncts = []string{
	"...", "<<=", ">>=",
	"->", "++", "--", "<<", ">>", "<=", ">=", "==", "!=", "&&", "||",
	"+=", "-=", "*=", "/=", "%=", "&=", "^=", "|=",
	"[", "]", "(", ")", "{", "}", ".", "&", "*", "+", "-", "~", "!",
	"/", "%", "<", ">", "^", "|", "?", ":", ";", "=", ",",
}

var kindNames = []string{
	EOF:    "EOF",
	Ident:  "identifier",
	Num:    "number",
	Char:   "char",
	String: "string",
	Punct:  "punct",
}

// Lex splits text into tokens. The last token is always EOF.
// Comments and preprocessor lines are skipped.
func Lex(name string, text []byte) ([]Token, error) {
	l := &lexer{
		name: name,
		text: text,
		line: 1,
	}

	err := l.run()
	if err != nil {
		return nil, errors.Wrap(err, "lex")
	}

	return l.toks, nil
}

func (l *lexer) run() error {
	bol := true

	for l.i < len(l.text) {
		c := l.text[l.i]

		switch {
		case c == '\n':
			l.line++
			l.i++
			bol = true

			continue
		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			l.i++
			continue
		case c == '#' && bol:
			l.skipLine()
			continue
		case l.has("//"):
			l.skipLine()
			continue
		case l.has("/*"):
			if err := l.skipComment(); err != nil {
				return err
			}

			continue
		}

		bol = false

		var err error

		switch {
		case isIdentStart(c):
			l.ident()
		case isDigit(c) || c == '.' && l.i+1 < len(l.text) && isDigit(l.text[l.i+1]):
			err = l.number()
		case c == '\'':
			err = l.char()
		case c == '"':
			err = l.string()
		default:
			err = l.punct()
		}

		if err != nil {
			return err
		}
	}

	l.toks = append(l.toks, Token{Kind: EOF, Line: l.line})

	return nil
}

func (l *lexer) ident() {
	st := l.i

	for l.i < len(l.text) && (isIdentStart(l.text[l.i]) || isDigit(l.text[l.i])) {
		l.i++
	}

	l.toks = append(l.toks, Token{Kind: Ident, Text: string(l.text[st:l.i]), Line: l.line})
}

func (l *lexer) number() (err error) {
	st := l.i
	float := false

	if l.has("0x") || l.has("0X") {
		l.i += 2

		for l.i < len(l.text) && isHex(l.text[l.i]) {
			l.i++
		}
	} else {
	loop:
		for l.i < len(l.text) {
			switch c := l.text[l.i]; {
			case isDigit(c):
			case c == '.':
				float = true
			case c == 'e' || c == 'E':
				float = true

				if l.i+1 < len(l.text) && (l.text[l.i+1] == '+' || l.text[l.i+1] == '-') {
					l.i++
				}
			default:
				break loop
			}

			l.i++
		}
	}

	digits := string(l.text[st:l.i])

	sst := l.i
	for l.i < len(l.text) && isIdentStart(l.text[l.i]) {
		l.i++
	}

	suffix := strings.ToLower(string(l.text[sst:l.i]))

	tok := Token{Kind: Num, Text: string(l.text[st:l.i]), Line: l.line}

	if float {
		tok.Num.Kind = NumDouble

		switch suffix {
		case "":
		case "f":
			tok.Num.Kind = NumFloat
		case "l":
			tok.Num.Kind = NumLongDouble
		default:
			return l.errorf("bad float suffix %q", suffix)
		}

		tok.Num.Float, err = strconv.ParseFloat(digits, 64)
		if err != nil {
			return l.errorf("bad float %q: %v", digits, err)
		}

		l.toks = append(l.toks, tok)

		return nil
	}

	switch suffix {
	case "":
	case "u":
		tok.Num.Unsigned = true
	case "l":
		tok.Num.Kind = NumLong
	case "ul", "lu":
		tok.Num.Kind = NumLong
		tok.Num.Unsigned = true
	case "ll":
		tok.Num.Kind = NumLongLong
	case "ull", "llu":
		tok.Num.Kind = NumLongLong
		tok.Num.Unsigned = true
	default:
		return l.errorf("bad integer suffix %q", suffix)
	}

	v, err := strconv.ParseUint(digits, 0, 64)
	if err != nil {
		return l.errorf("bad integer %q: %v", digits, err)
	}

	tok.Num.Int = int64(v)

	l.toks = append(l.toks, tok)

	return nil
}

func (l *lexer) char() error {
	st := l.i
	l.i++

	var val []byte

	for l.i < len(l.text) && l.text[l.i] != '\'' {
		c, err := l.escaped()
		if err != nil {
			return err
		}

		val = append(val, c)
	}

	if l.i == len(l.text) {
		return l.errorf("unterminated char constant")
	}

	l.i++

	if len(val) != 1 {
		return l.errorf("char constant must be one character: %q", l.text[st:l.i])
	}

	l.toks = append(l.toks, Token{
		Kind: Char,
		Text: string(l.text[st:l.i]),
		Line: l.line,
		Str:  val,
		Num:  Number{Int: int64(int8(val[0]))},
	})

	return nil
}

func (l *lexer) string() error {
	st := l.i
	l.i++

	var val []byte

	for l.i < len(l.text) && l.text[l.i] != '"' {
		if l.text[l.i] == '\n' {
			return l.errorf("newline in string literal")
		}

		c, err := l.escaped()
		if err != nil {
			return err
		}

		val = append(val, c)
	}

	if l.i == len(l.text) {
		return l.errorf("unterminated string literal")
	}

	l.i++

	l.toks = append(l.toks, Token{Kind: String, Text: string(l.text[st:l.i]), Line: l.line, Str: val})

	return nil
}

func (l *lexer) escaped() (byte, error) {
	c := l.text[l.i]
	l.i++

	if c != '\\' {
		return c, nil
	}

	if l.i == len(l.text) {
		return 0, l.errorf("unterminated escape")
	}

	c = l.text[l.i]
	l.i++

	switch c {
	case 'n':
		return '\n', nil
	case 't':
		return '\t', nil
	case 'r':
		return '\r', nil
	case 'a':
		return '\a', nil
	case 'b':
		return '\b', nil
	case 'f':
		return '\f', nil
	case 'v':
		return '\v', nil
	case '\\', '\'', '"', '?':
		return c, nil
	case 'x':
		var v int

		st := l.i
		for l.i < len(l.text) && isHex(l.text[l.i]) {
			v = v*16 + hexVal(l.text[l.i])
			l.i++
		}

		if st == l.i {
			return 0, l.errorf("\\x without digits")
		}

		return byte(v), nil
	}

	if c >= '0' && c <= '7' {
		v := int(c - '0')

		for n := 1; n < 3 && l.i < len(l.text) && l.text[l.i] >= '0' && l.text[l.i] <= '7'; n++ {
			v = v*8 + int(l.text[l.i]-'0')
			l.i++
		}

		return byte(v), nil
	}

	return 0, l.errorf("unknown escape \\%c", c)
}

func (l *lexer) punct() error {
	for _, p := range puncts {
		if l.has(p) {
			l.toks = append(l.toks, Token{Kind: Punct, Text: p, Line: l.line})
			l.i += len(p)

			return nil
		}
	}

	return l.errorf("unexpected character %q", l.text[l.i])
}

func (l *lexer) skipLine() {
	for l.i < len(l.text) && l.text[l.i] != '\n' {
		l.i++
	}
}

func (l *lexer) skipComment() error {
	l.i += 2

	for l.i < len(l.text) && !l.has("*/") {
		if l.text[l.i] == '\n' {
			l.line++
		}

		l.i++
	}

	if l.i == len(l.text) {
		return l.errorf("unterminated comment")
	}

	l.i += 2

	return nil
}

func (l *lexer) has(p string) bool {
	return strings.HasPrefix(string(l.text[l.i:min(l.i+len(p), len(l.text))]), p)
}

func (l *lexer) errorf(f string, args ...any) error {
	return diag.At(l.name, l.line, diag.Syntax, f, args...)
}

func (t Token) Is(text string) bool {
	return (t.Kind == Punct || t.Kind == Ident) && t.Text == text
}

func (k Kind) String() string { return kindNames[k] }

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHex(c byte) bool {
	return isDigit(c) || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

func hexVal(c byte) int {
	switch {
	case isDigit(c):
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	default:
		return int(c-'A') + 10
	}
}
