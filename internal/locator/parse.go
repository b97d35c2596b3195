package locator

import (
	"strings"
	"unicode/utf8"
)

// Parse parses locator text. See the package documentation for the
// grammar.
func Parse(text string) (Locator, error) {
	p := &parser{in: strings.TrimSpace(text)}
	return p.locator()
}

// MustParse is like Parse but panics on error. It is meant for locator
// literals in tests and package-level variables.
func MustParse(text string) Locator {
	l, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return l
}

type parser struct {
	in  string
	pos int
}

func (p *parser) fail(msg string) error {
	return &SyntaxError{Input: p.in, Pos: p.pos, Msg: msg}
}

func (p *parser) eof() bool {
	return p.pos >= len(p.in)
}

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.in[p.pos]
}

func (p *parser) skipSpace() {
	for !p.eof() && (p.in[p.pos] == ' ' || p.in[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) locator() (Locator, error) {
	if p.in == "" {
		return Locator{}, p.fail("empty locator")
	}

	var app string
	if p.peek() == '*' {
		app = AnyApp
		p.pos++
	} else {
		start := p.pos
		app = p.take(isIdentByte)
		if app == "" {
			return Locator{}, p.fail("expected application token")
		}
		if !validIdent(app) {
			p.pos = start
			return Locator{}, p.fail("invalid application token " + app)
		}
	}
	if p.peek() != ':' {
		return Locator{}, p.fail("expected ':' after application token")
	}
	p.pos++

	var segs []Segment
	for !p.eof() {
		seg, err := p.segment()
		if err != nil {
			return Locator{}, err
		}
		segs = append(segs, seg)
	}
	if len(segs) == 0 {
		return Locator{}, p.fail("expected '/' or '//'")
	}
	return Locator{app: app, segments: segs}, nil
}

func (p *parser) segment() (Segment, error) {
	var seg Segment
	if p.peek() != '/' {
		return seg, p.fail("expected '/' or '//'")
	}
	p.pos++
	if p.peek() == '/' {
		seg.Axis = Descendant
		p.pos++
	}

	start := p.pos
	seg.Type = p.take(isTypeByte)
	if seg.Type != "" && !validType(seg.Type) {
		p.pos = start
		return seg, p.fail("invalid type name " + seg.Type)
	}

	if p.peek() == '{' {
		p.pos++
		preds, err := p.predicates()
		if err != nil {
			return seg, err
		}
		seg.Preds = preds
	}

	if seg.Type == "" && len(seg.Preds) == 0 {
		return seg, p.fail("segment needs a type or predicates")
	}
	if !p.eof() && p.peek() != '/' {
		return seg, p.fail("unexpected character " + string(p.peek()))
	}
	return seg, nil
}

func (p *parser) predicates() ([]Predicate, error) {
	var preds []Predicate
	for {
		p.skipSpace()
		if p.peek() == '}' && len(preds) == 0 {
			return nil, p.fail("empty predicate list")
		}
		start := p.pos
		name := p.take(isIdentByte)
		if name == "" {
			return nil, p.fail("expected property name")
		}
		if !validIdent(name) {
			p.pos = start
			return nil, p.fail("invalid property name " + name)
		}
		p.skipSpace()
		op, ok := p.op()
		if !ok {
			return nil, p.fail("expected one of = ~= *= ?=")
		}
		p.skipSpace()
		value, err := p.quoted()
		if err != nil {
			return nil, err
		}
		preds = append(preds, Predicate{Name: name, Op: op, Value: value})

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return preds, nil
		default:
			return nil, p.fail("expected ',' or '}'")
		}
	}
}

func (p *parser) op() (Op, bool) {
	rest := p.in[p.pos:]
	for _, o := range []Op{OpContains, OpFold, OpWildcard, OpEqual} {
		if strings.HasPrefix(rest, o.String()) {
			p.pos += len(o.String())
			return o, true
		}
	}
	return 0, false
}

func (p *parser) quoted() (string, error) {
	if p.peek() != '\'' {
		return "", p.fail("expected quoted value")
	}
	p.pos++
	var b strings.Builder
	for !p.eof() {
		r, size := utf8.DecodeRuneInString(p.in[p.pos:])
		switch r {
		case '\\':
			p.pos += size
			if p.eof() {
				return "", p.fail("unterminated escape")
			}
			r, size = utf8.DecodeRuneInString(p.in[p.pos:])
			b.WriteRune(r)
			p.pos += size
		case '\'':
			p.pos += size
			return b.String(), nil
		default:
			b.WriteRune(r)
			p.pos += size
		}
	}
	return "", p.fail("unterminated quoted value")
}

func (p *parser) take(accept func(byte) bool) string {
	start := p.pos
	for !p.eof() && accept(p.in[p.pos]) {
		p.pos++
	}
	return p.in[start:p.pos]
}

func isIdentByte(b byte) bool {
	return b == '_' || b == '-' || b == '.' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func isTypeByte(b byte) bool {
	return b == ':' || b == '_' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func validIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isIdentByte(s[i]) {
			return false
		}
	}
	c := s[0]
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// validType accepts identifiers optionally qualified with "::", such as
// Core::Internal::MainWindow.
func validType(s string) bool {
	if s == "" || strings.HasPrefix(s, ":") || strings.HasSuffix(s, ":") {
		return false
	}
	for _, part := range strings.Split(s, "::") {
		if part == "" || strings.Contains(part, ":") {
			return false
		}
		c := part[0]
		if !(c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')) {
			return false
		}
	}
	return true
}
