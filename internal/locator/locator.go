// Package locator implements the object repository: a typed, textual
// widget identifier and its resolution against a live UI tree.
//
// A locator names the application it belongs to and a chain of segments
// leading from the application root to a single widget:
//
//	fakeide://MainWindow{title~='Fake IDE'}/TextEditor{name='CppEditor'}
//
// "/" steps to a direct child, "//" to any descendant. Each segment names
// a widget type, property predicates in braces, or both. Predicates
// compare a property against a quoted value with one of the operators
//
//	=   exact match
//	~=  substring
//	*=  case-insensitive substring (Unicode case folding)
//	?=  wildcard pattern, * and ? as in shell globs
//
// The application token "*" matches whatever application the session is
// attached to. Test scripts embed these strings literally, so the syntax
// is stable: [Locator.String] always produces the canonical form accepted
// by [Parse].
package locator

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// AnyApp matches the application of whatever session resolves the locator.
const AnyApp = "*"

// Axis selects how a segment relates to the widgets matched so far.
type Axis int

const (
	// Child matches direct children.
	Child Axis = iota
	// Descendant matches any descendant.
	Descendant
)

func (a Axis) String() string {
	if a == Descendant {
		return "//"
	}
	return "/"
}

// Op is a property comparison operator.
type Op int

const (
	OpEqual Op = iota
	OpContains
	OpFold
	OpWildcard
)

var opText = [...]string{
	OpEqual:    "=",
	OpContains: "~=",
	OpFold:     "*=",
	OpWildcard: "?=",
}

func (o Op) String() string {
	if int(o) < len(opText) {
		return opText[o]
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Predicate compares one widget property with a literal value.
type Predicate struct {
	Name  string
	Op    Op
	Value string
}

// Match reports whether the property value v satisfies the predicate.
func (p Predicate) Match(v string) bool {
	switch p.Op {
	case OpEqual:
		return v == p.Value
	case OpContains:
		return strings.Contains(v, p.Value)
	case OpFold:
		fold := cases.Fold()
		return strings.Contains(fold.String(v), fold.String(p.Value))
	case OpWildcard:
		return wildcardMatch(p.Value, v)
	}
	return false
}

func (p Predicate) String() string {
	return p.Name + p.Op.String() + quote(p.Value)
}

// Segment is one step of a locator chain.
type Segment struct {
	Axis  Axis
	Type  string
	Preds []Predicate
}

func (s Segment) String() string {
	var b strings.Builder
	b.WriteString(s.Axis.String())
	b.WriteString(s.Type)
	if len(s.Preds) > 0 {
		b.WriteByte('{')
		for i, p := range s.Preds {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(p.String())
		}
		b.WriteByte('}')
	}
	return b.String()
}

func (s Segment) hasPred(name string) bool {
	for _, p := range s.Preds {
		if p.Name == name {
			return true
		}
	}
	return false
}

func (s Segment) validate() error {
	if s.Type == "" && len(s.Preds) == 0 {
		return fmt.Errorf("segment needs a type or at least one predicate")
	}
	if s.Type != "" && !validType(s.Type) {
		return fmt.Errorf("invalid type name %q", s.Type)
	}
	for _, p := range s.Preds {
		if !validIdent(p.Name) {
			return fmt.Errorf("invalid property name %q", p.Name)
		}
		if p.Op < OpEqual || p.Op > OpWildcard {
			return fmt.Errorf("invalid operator for property %q", p.Name)
		}
	}
	return nil
}

// Locator is an immutable widget identifier. The zero value is invalid;
// construct one with [Parse] or [New].
type Locator struct {
	app      string
	segments []Segment
}

// New builds a locator from parts, validating them the same way [Parse]
// does.
func New(app string, segments ...Segment) (Locator, error) {
	if app != AnyApp && !validIdent(app) {
		return Locator{}, fmt.Errorf("%w: invalid application token %q", ErrSyntax, app)
	}
	if len(segments) == 0 {
		return Locator{}, fmt.Errorf("%w: locator needs at least one segment", ErrSyntax)
	}
	segs := make([]Segment, len(segments))
	for i, s := range segments {
		if err := s.validate(); err != nil {
			return Locator{}, fmt.Errorf("%w: segment %d: %v", ErrSyntax, i+1, err)
		}
		s.Preds = append([]Predicate(nil), s.Preds...)
		segs[i] = s
	}
	return Locator{app: app, segments: segs}, nil
}

// App returns the application token.
func (l Locator) App() string {
	return l.app
}

// Segments returns a copy of the segment chain.
func (l Locator) Segments() []Segment {
	out := make([]Segment, len(l.segments))
	for i, s := range l.segments {
		s.Preds = append([]Predicate(nil), s.Preds...)
		out[i] = s
	}
	return out
}

// IsZero reports whether l is the zero (invalid) locator.
func (l Locator) IsZero() bool {
	return len(l.segments) == 0
}

// Within returns a locator for l nested inside container: the container's
// application and segments followed by l's segments.
func (l Locator) Within(container Locator) Locator {
	segs := make([]Segment, 0, len(container.segments)+len(l.segments))
	segs = append(segs, container.Segments()...)
	segs = append(segs, l.Segments()...)
	return Locator{app: container.app, segments: segs}
}

// Child returns a locator extending l with one more segment.
func (l Locator) Child(seg Segment) (Locator, error) {
	return New(l.app, append(l.Segments(), seg)...)
}

// String returns the canonical text form.
func (l Locator) String() string {
	if l.IsZero() {
		return ""
	}
	var b strings.Builder
	b.WriteString(l.app)
	b.WriteByte(':')
	for _, s := range l.segments {
		b.WriteString(s.String())
	}
	return b.String()
}

func quote(v string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range v {
		if r == '\'' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('\'')
	return b.String()
}

// wildcardMatch matches s against a pattern where * matches any run of
// characters (including none) and ? matches exactly one.
func wildcardMatch(pattern, s string) bool {
	p, v := []rune(pattern), []rune(s)
	pi, vi := 0, 0
	star, mark := -1, 0
	for vi < len(v) {
		switch {
		case pi < len(p) && (p[pi] == '?' || p[pi] == v[vi]):
			pi++
			vi++
		case pi < len(p) && p[pi] == '*':
			star, mark = pi, vi
			pi++
		case star >= 0:
			pi = star + 1
			mark++
			vi = mark
		default:
			return false
		}
	}
	for pi < len(p) && p[pi] == '*' {
		pi++
	}
	return pi == len(p)
}
