package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/joeycumines/uidriver/internal/input"
	"github.com/joeycumines/uidriver/internal/locator"
	"github.com/joeycumines/uidriver/internal/report"
	"github.com/joeycumines/uidriver/internal/uitree"
	"github.com/joeycumines/uidriver/internal/wait"
)

// maxOutputSize bounds the retained terminal output.
const maxOutputSize = 4 << 20

// hookExitGrace is how long Snapshot waits for the exit status after the
// widget tree stream ends.
const hookExitGrace = 100 * time.Millisecond

// Session is one running application under test. Its methods are meant
// to be called sequentially by a single test; background goroutines only
// drain the terminal and the hook pipe.
type Session struct {
	id          string
	cmd         *exec.Cmd
	command     string
	ptmx        *os.File
	hookR       *os.File
	hook        *uitree.Reader
	settingsDir string
	cfg         Config
	objects     *locator.ObjectMap
	report      *report.Report
	logger      *slog.Logger
	resolver    *locator.Resolver
	input       *input.PTY
	started     time.Time

	output outputBuffer

	exited   chan struct{}
	exitMu   sync.Mutex
	exitCode int
	exitErr  error

	termOnce    sync.Once
	termErr     error
	onTerminate func()
}

// ID returns the session ID.
func (s *Session) ID() string { return s.id }

// Command returns the launched command line.
func (s *Session) Command() string { return s.command }

// SettingsDir returns the session's isolated settings directory.
func (s *Session) SettingsDir() string { return s.settingsDir }

// Objects returns the object map used to resolve symbolic names.
func (s *Session) Objects() *locator.ObjectMap { return s.objects }

// Report returns the report the session records into, if any.
func (s *Session) Report() *report.Report { return s.report }

// Alive reports whether the application is still running.
func (s *Session) Alive() bool {
	select {
	case <-s.exited:
		return false
	default:
		return true
	}
}

// ExitCode returns the application's exit status, or -1 while it runs or
// when it was killed by a signal.
func (s *Session) ExitCode() int {
	s.exitMu.Lock()
	defer s.exitMu.Unlock()
	return s.exitCode
}

// Wait blocks until the application exits and returns its exit status.
func (s *Session) Wait(ctx context.Context) (int, error) {
	select {
	case <-s.exited:
		return s.ExitCode(), nil
	case <-ctx.Done():
		return -1, ctx.Err()
	}
}

// Snapshot implements locator.Source with the latest published tree.
func (s *Session) Snapshot(ctx context.Context) (*uitree.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.Alive() {
		return nil, ErrNotRunning
	}
	select {
	case <-s.hook.Done():
		// the stream also ends when the application exits; let the exit
		// status win when it arrives shortly after
		select {
		case <-s.exited:
			return nil, ErrNotRunning
		case <-time.After(hookExitGrace):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if err := s.hook.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrHookClosed, err)
		}
		return nil, ErrHookClosed
	default:
	}
	snap := s.hook.Latest()
	if snap == nil {
		return nil, ErrNoTree
	}
	return snap, nil
}

// Lookup turns a symbolic name or locator text into a Locator.
func (s *Session) Lookup(object string) (locator.Locator, error) {
	return s.objects.Resolve(object)
}

// Resolve resolves l against the live tree.
func (s *Session) Resolve(ctx context.Context, l locator.Locator) (*locator.Handle, error) {
	return s.resolver.Resolve(ctx, l)
}

// FindObject resolves l without waiting.
func (s *Session) FindObject(ctx context.Context, l locator.Locator) (*locator.Handle, error) {
	return s.resolver.Resolve(ctx, l)
}

// FindAll returns every widget l matches.
func (s *Session) FindAll(ctx context.Context, l locator.Locator) ([]*locator.Handle, error) {
	return s.resolver.FindAll(ctx, l)
}

// Exists reports whether l resolves to exactly one widget right now.
func (s *Session) Exists(ctx context.Context, l locator.Locator) (bool, error) {
	return s.resolver.Exists(ctx, l)
}

// WaitForObject waits until l resolves to exactly one enabled widget. A
// non-positive timeout uses the configured default. On timeout the error
// wraps both wait.ErrTimeout and the last resolution error.
func (s *Session) WaitForObject(ctx context.Context, l locator.Locator, timeout time.Duration) (*locator.Handle, error) {
	if timeout <= 0 {
		timeout = s.cfg.WaitTimeout
	}
	var h *locator.Handle
	var lastErr error
	err := s.poller().Until(ctx, func(ctx context.Context) (bool, error) {
		h, lastErr = s.resolver.Resolve(ctx, l)
		if lastErr != nil {
			return false, lastErr
		}
		if !h.Node.IsEnabled() {
			lastErr = fmt.Errorf("%s is disabled", l)
			return false, lastErr
		}
		return true, nil
	}, timeout)
	if err != nil {
		if errors.Is(err, wait.ErrTimeout) && lastErr != nil {
			return nil, fmt.Errorf("waiting for %s: %w: %w", l, wait.ErrTimeout, lastErr)
		}
		return nil, fmt.Errorf("waiting for %s: %w", l, err)
	}
	return h, nil
}

// WaitFor polls pred until it holds or timeout elapses. Reaching the
// timeout returns false, not an error.
func (s *Session) WaitFor(ctx context.Context, pred wait.Predicate, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = s.cfg.WaitTimeout
	}
	return s.poller().For(ctx, pred, timeout)
}

// WaitForExpr waits for an expression condition (see wait.Expr) over this
// session's widgets. Only a malformed expression is an error.
func (s *Session) WaitForExpr(ctx context.Context, expression string, vars map[string]any, timeout time.Duration) (bool, error) {
	pred, err := wait.Expr(expression, exprEnv{s}, vars)
	if err != nil {
		return false, err
	}
	return s.WaitFor(ctx, pred, timeout), nil
}

func (s *Session) poller() wait.Poller {
	return wait.Poller{Interval: s.cfg.PollInterval, Notify: s.hook.Changed, Logger: s.logger}
}

// Input returns the session's input dispatcher.
func (s *Session) Input() *input.PTY { return s.input }

// Click clicks the widget behind h.
func (s *Session) Click(ctx context.Context, h *locator.Handle) error {
	return s.input.Click(ctx, h)
}

// DoubleClick double-clicks the widget behind h.
func (s *Session) DoubleClick(ctx context.Context, h *locator.Handle) error {
	return s.input.DoubleClick(ctx, h)
}

// RightClick right-clicks the widget behind h.
func (s *Session) RightClick(ctx context.Context, h *locator.Handle) error {
	return s.input.RightClick(ctx, h)
}

// Type focuses the widget behind h and types text.
func (s *Session) Type(ctx context.Context, h *locator.Handle, text string) error {
	return s.input.Type(ctx, h, text)
}

// NativeType types text into the focused widget.
func (s *Session) NativeType(ctx context.Context, text string) error {
	return s.input.NativeType(ctx, text)
}

// PressKey sends a named key.
func (s *Session) PressKey(ctx context.Context, key string) error {
	return s.input.PressKey(ctx, key)
}

// InvokeMenu clicks through a menu path, e.g. "File", "Exit".
func (s *Session) InvokeMenu(ctx context.Context, path ...string) error {
	return s.input.InvokeMenu(ctx, path...)
}

// Screen returns the application's terminal as text, one line per row,
// without trailing blank rows.
func (s *Session) Screen() string {
	lines := uitree.ParseScreen(s.output.String(), s.cfg.Rows, s.cfg.Cols)
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// Output returns the raw terminal output retained so far.
func (s *Session) Output() string {
	return s.output.String()
}

// Terminate stops the application: SIGTERM to its process group, then
// SIGKILL after the grace period. It closes the terminal and hook, and
// removes the settings directory unless configured to keep it. It is safe
// to call more than once.
func (s *Session) Terminate() error {
	s.termOnce.Do(func() {
		var errs []error
		if s.Alive() {
			if err := signalGroup(s.cmd.Process, false); err != nil {
				errs = append(errs, fmt.Errorf("failed to send SIGTERM: %w", err))
			}
			grace := time.NewTimer(s.cfg.TerminateGrace)
			select {
			case <-s.exited:
				grace.Stop()
			case <-grace.C:
				s.logger.Warn("application ignored SIGTERM, killing")
				if err := signalGroup(s.cmd.Process, true); err != nil {
					errs = append(errs, fmt.Errorf("failed to send SIGKILL: %w", err))
				}
				<-s.exited
			}
		}
		errs = append(errs, s.closeFiles()...)
		if !s.cfg.KeepSettings {
			if err := os.RemoveAll(s.settingsDir); err != nil {
				errs = append(errs, fmt.Errorf("failed to remove settings directory: %w", err))
			}
		}
		if s.onTerminate != nil {
			s.onTerminate()
		}
		s.termErr = errors.Join(errs...)
		s.logger.Info("terminated application", slog.Int("exit_code", s.ExitCode()))
	})
	return s.termErr
}

// kill tears down a session that never became ready. The settings
// directory is kept.
func (s *Session) kill() {
	s.termOnce.Do(func() {
		_ = signalGroup(s.cmd.Process, true)
		select {
		case <-s.exited:
		case <-time.After(5 * time.Second):
			s.logger.Error("application did not exit after SIGKILL")
		}
		s.closeFiles()
		s.termErr = ErrNotRunning
	})
}

func (s *Session) closeFiles() []error {
	var errs []error
	if err := s.ptmx.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		errs = append(errs, fmt.Errorf("failed to close terminal: %w", err))
	}
	if err := s.hookR.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		errs = append(errs, fmt.Errorf("failed to close hook: %w", err))
	}
	return errs
}

func (s *Session) awaitReady(ctx context.Context, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-s.hook.Ready():
		return nil
	case <-s.exited:
		// the first snapshot may race with a quick exit
		if s.hook.Latest() != nil {
			return &LaunchError{Command: s.command, Reason: fmt.Sprintf("exited with status %d right after starting", s.ExitCode()), Output: s.Screen()}
		}
		return &LaunchError{Command: s.command, Reason: fmt.Sprintf("exited with status %d before publishing a widget tree", s.ExitCode()), Output: s.Screen()}
	case <-timer.C:
		return &LaunchError{Command: s.command, Reason: fmt.Sprintf("no widget tree within %v", timeout), Output: s.Screen()}
	case <-ctx.Done():
		return &LaunchError{Command: s.command, Reason: ctx.Err().Error(), Output: s.Screen()}
	}
}

func (s *Session) drainOutput() {
	buf := make([]byte, 32<<10)
	for {
		n, err := s.ptmx.Read(buf)
		if n > 0 {
			s.output.Write(buf[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				s.logger.Debug("terminal output ended", slog.Any("error", err))
			}
			return
		}
	}
}

func (s *Session) waitExit() {
	err := s.cmd.Wait()
	s.exitMu.Lock()
	s.exitCode = s.cmd.ProcessState.ExitCode()
	s.exitErr = err
	s.exitMu.Unlock()
	close(s.exited)
	s.logger.Debug("application exited", slog.Int("exit_code", s.exitCode))
}

// outputBuffer keeps terminal output, discarding the oldest half when it
// grows past its limit.
type outputBuffer struct {
	mu    sync.Mutex
	buf   []byte
	limit int
}

func (b *outputBuffer) Write(p []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if b.limit > 0 && len(b.buf) > b.limit {
		b.buf = append([]byte(nil), b.buf[len(b.buf)-b.limit/2:]...)
	}
}

func (b *outputBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

// exprEnv exposes a session to expression conditions.
type exprEnv struct {
	s *Session
}

func (e exprEnv) Exists(ctx context.Context, object string) (bool, error) {
	l, err := e.s.Lookup(object)
	if err != nil {
		return false, err
	}
	return e.s.resolver.Exists(ctx, l)
}

func (e exprEnv) Property(ctx context.Context, object, name string) (string, error) {
	l, err := e.s.Lookup(object)
	if err != nil {
		return "", err
	}
	h, err := e.s.resolver.Resolve(ctx, l)
	if err != nil {
		return "", err
	}
	v, _ := h.Node.Property(name)
	return v, nil
}

func (e exprEnv) Count(ctx context.Context, object string) (int, error) {
	l, err := e.s.Lookup(object)
	if err != nil {
		return 0, err
	}
	hs, err := e.s.resolver.FindAll(ctx, l)
	if err != nil {
		return 0, err
	}
	return len(hs), nil
}

func (e exprEnv) Screen() string {
	return e.s.Screen()
}
