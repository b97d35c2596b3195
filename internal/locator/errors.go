package locator

import (
	"errors"
	"fmt"
)

var (
	// ErrSyntax is returned for malformed locator text or parts.
	ErrSyntax = errors.New("locator syntax error")
	// ErrNotFound is returned when no live widget matches a locator.
	ErrNotFound = errors.New("object not found")
	// ErrAmbiguous is returned when more than one live widget matches.
	ErrAmbiguous = errors.New("ambiguous locator")
	// ErrUnknownName is returned for a symbolic name missing from the object map.
	ErrUnknownName = errors.New("unknown symbolic name")
)

// SyntaxError describes where parsing failed.
type SyntaxError struct {
	Input string
	Pos   int
	Msg   string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("locator syntax error at offset %d in %q: %s", e.Pos, e.Input, e.Msg)
}

func (e *SyntaxError) Unwrap() error {
	return ErrSyntax
}

// ResolveError reports a failed resolution. Err is ErrNotFound or
// ErrAmbiguous.
type ResolveError struct {
	Locator Locator
	Matches int
	Err     error
}

func (e *ResolveError) Error() string {
	if errors.Is(e.Err, ErrAmbiguous) {
		return fmt.Sprintf("%v: %d widgets match %s", e.Err, e.Matches, e.Locator)
	}
	return fmt.Sprintf("%v: %s", e.Err, e.Locator)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}
