//go:build unix

package session

import (
	"errors"
	"os"
	"os/exec"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

// startPTY starts cmd attached to a new pseudo-terminal. pty makes the
// child a session leader, so its PID is also its process group ID.
func startPTY(cmd *exec.Cmd, rows, cols int) (*os.File, error) {
	return pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
}

// signalGroup signals the process group led by p. force selects SIGKILL
// over SIGTERM. A group that is already gone is not an error.
func signalGroup(p *os.Process, force bool) error {
	sig := unix.SIGTERM
	if force {
		sig = unix.SIGKILL
	}
	err := unix.Kill(-p.Pid, sig)
	if errors.Is(err, unix.ESRCH) {
		return nil
	}
	return err
}
