package session

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrLaunchFailure is returned when the application never reached the
	// ready state.
	ErrLaunchFailure = errors.New("launch failure")
	// ErrNotRunning is returned for operations on a session whose
	// application has exited or been terminated.
	ErrNotRunning = errors.New("application not running")
	// ErrNoTree is returned before the application has published its
	// widget tree.
	ErrNoTree = errors.New("no widget tree available")
	// ErrHookClosed is returned when the application is still running but
	// its widget tree stream has ended, so the last tree is stale.
	ErrHookClosed = errors.New("widget tree stream closed")
)

// LaunchError describes a failed launch. Output holds the terminal text
// the application produced, which usually explains the failure.
type LaunchError struct {
	Command string
	Reason  string
	Output  string
}

func (e *LaunchError) Error() string {
	msg := fmt.Sprintf("%v: %s: %s", ErrLaunchFailure, e.Command, e.Reason)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\n" + out
	}
	return msg
}

func (e *LaunchError) Unwrap() error {
	return ErrLaunchFailure
}
