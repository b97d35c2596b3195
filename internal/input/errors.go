package input

import (
	"errors"
	"fmt"

	"github.com/joeycumines/uidriver/internal/locator"
)

// ErrTargetUnavailable is returned when the widget an operation targets
// cannot receive input at dispatch time: it vanished, became ambiguous, is
// disabled or has no on-screen area.
var ErrTargetUnavailable = errors.New("target unavailable")

// DispatchError describes a dispatch against an unavailable target.
type DispatchError struct {
	Op      string
	Locator locator.Locator
	Err     error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Locator, ErrTargetUnavailable, e.Err)
}

// Unwrap exposes both ErrTargetUnavailable and the underlying cause.
func (e *DispatchError) Unwrap() []error {
	return []error{ErrTargetUnavailable, e.Err}
}
