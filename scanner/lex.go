package scanner

import (
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/dhamidi/iparse/ident"
	"github.com/dhamidi/iparse/tree"
)

type lexKind int

const (
	lexEOF lexKind = iota
	lexIdent
	lexInt
	lexDouble
	lexString
	lexChar
	lexOther
)

// lexeme is a classified token: text spans src[start:end].
type lexeme struct {
	kind  lexKind
	start int
	end   int
	text  string
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentShaped(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 && !isIdentStart(r) || !isIdentPart(r) {
			return false
		}
	}
	return true
}

func (b *base) peekRune(off int) (rune, int) {
	if off >= len(b.src) {
		return 0, 0
	}
	return utf8.DecodeRune(b.src[off:])
}

// skipSpace skips white space starting at off.
func (b *base) skipSpace(off int) int {
	for off < len(b.src) {
		r, size := b.peekRune(off)
		if !unicode.IsSpace(r) {
			break
		}
		off += size
	}
	return off
}

// skipSpaceAndComments skips white space, // line comments and /* */ block
// comments starting at off.
func (b *base) skipSpaceAndComments(off int) int {
	for {
		off = b.skipSpace(off)
		if off+1 >= len(b.src) || b.src[off] != '/' {
			return off
		}
		switch b.src[off+1] {
		case '/':
			for off < len(b.src) && b.src[off] != '\n' {
				off++
			}
		case '*':
			start := off
			off += 2
			for {
				if off+1 >= len(b.src) {
					b.fail(start, "unterminated comment")
					return len(b.src)
				}
				if b.src[off] == '*' && b.src[off+1] == '/' {
					off += 2
					break
				}
				off++
			}
		default:
			return off
		}
	}
}

// lexAt classifies the token starting at start. Anything that is not an
// identifier, number, string or character literal is a single rune of kind
// lexOther.
func (b *base) lexAt(start int) lexeme {
	if start >= len(b.src) {
		return lexeme{kind: lexEOF, start: start, end: start}
	}
	r, size := b.peekRune(start)
	if r == utf8.RuneError && size == 1 {
		b.fail(start, "invalid UTF-8 encoding")
		return b.lexeme(lexOther, start, start+1)
	}

	switch {
	case isIdentStart(r):
		end := start + size
		for end < len(b.src) {
			r, size := b.peekRune(end)
			if !isIdentPart(r) {
				break
			}
			end += size
		}
		return b.lexeme(lexIdent, start, end)
	case isDigit(b.src[start]):
		return b.lexNumber(start)
	case r == '"':
		return b.lexQuoted(start, '"', lexString)
	case r == '\'':
		return b.lexQuoted(start, '\'', lexChar)
	}
	return b.lexeme(lexOther, start, start+size)
}

func (b *base) lexeme(kind lexKind, start, end int) lexeme {
	return lexeme{kind: kind, start: start, end: end, text: string(b.src[start:end])}
}

func (b *base) lexNumber(start int) lexeme {
	end := start
	for end < len(b.src) && isDigit(b.src[end]) {
		end++
	}
	kind := lexInt
	if end+1 < len(b.src) && b.src[end] == '.' && isDigit(b.src[end+1]) {
		kind = lexDouble
		end++
		for end < len(b.src) && isDigit(b.src[end]) {
			end++
		}
	}
	if end < len(b.src) && (b.src[end] == 'e' || b.src[end] == 'E') {
		exp := end + 1
		if exp < len(b.src) && (b.src[exp] == '+' || b.src[exp] == '-') {
			exp++
		}
		if exp < len(b.src) && isDigit(b.src[exp]) {
			kind = lexDouble
			end = exp
			for end < len(b.src) && isDigit(b.src[end]) {
				end++
			}
		}
	}
	return b.lexeme(kind, start, end)
}

func (b *base) lexQuoted(start int, quote byte, kind lexKind) lexeme {
	end := start + 1
	for {
		if end >= len(b.src) || b.src[end] == '\n' {
			b.fail(start, "unterminated %s literal", map[lexKind]string{lexString: "string", lexChar: "character"}[kind])
			return b.lexeme(lexOther, start, end)
		}
		switch b.src[end] {
		case '\\':
			end += 2
			continue
		case quote:
			return b.lexeme(kind, start, end+1)
		}
		end++
	}
}

// value converts a lexeme to the value of terminal name. ok is false when
// the lexeme is not of that terminal's class.
func (b *base) value(lx lexeme, name string) (tree.Tree, bool) {
	switch name {
	case TermEOF:
		return tree.Tree{}, lx.kind == lexEOF
	case TermIdent:
		if lx.kind != lexIdent || b.isReserved(lx.text) {
			return tree.Tree{}, false
		}
		return tree.NewIdent(ident.New(lx.text)), true
	case TermInt:
		if lx.kind != lexInt {
			return tree.Tree{}, false
		}
		i, err := strconv.ParseInt(lx.text, 10, 64)
		if err != nil {
			b.fail(lx.start, "integer %s out of range", lx.text)
			return tree.Tree{}, false
		}
		return tree.NewInt(i), true
	case TermDouble:
		if lx.kind != lexDouble {
			return tree.Tree{}, false
		}
		f, err := strconv.ParseFloat(lx.text, 64)
		if err != nil {
			b.fail(lx.start, "invalid number %s", lx.text)
			return tree.Tree{}, false
		}
		return tree.NewDouble(f), true
	case TermString:
		if lx.kind != lexString {
			return tree.Tree{}, false
		}
		s, ok := unescape(lx.text[1 : len(lx.text)-1])
		if !ok {
			b.fail(lx.start, "invalid escape in %s", lx.text)
			return tree.Tree{}, false
		}
		return tree.NewString(s), true
	case TermChar:
		if lx.kind != lexChar {
			return tree.Tree{}, false
		}
		s, ok := unescape(lx.text[1 : len(lx.text)-1])
		if !ok || utf8.RuneCountInString(s) != 1 {
			b.fail(lx.start, "invalid character literal %s", lx.text)
			return tree.Tree{}, false
		}
		r, _ := utf8.DecodeRuneInString(s)
		return tree.NewChar(r), true
	}
	return tree.Tree{}, false
}

// unescape resolves the escapes \\ \" \' \n \t \r and \0.
func unescape(s string) (string, bool) {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			out = append(out, c)
			continue
		}
		i++
		if i >= len(s) {
			return "", false
		}
		switch s[i] {
		case '\\', '"', '\'':
			out = append(out, s[i])
		case 'n':
			out = append(out, '\n')
		case 't':
			out = append(out, '\t')
		case 'r':
			out = append(out, '\r')
		case '0':
			out = append(out, 0)
		default:
			return "", false
		}
	}
	return string(out), true
}
