// Package session launches applications under test and exposes their live
// widget trees to the locator, wait and input layers.
//
// Each session runs one application in its own pseudo-terminal and
// process group, with a fresh settings directory so no state leaks between
// test cases. The application publishes widget tree snapshots over an
// inherited pipe (see uitree.HookEnv); the session is ready once the first
// snapshot arrives.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/joeycumines/uidriver/internal/input"
	"github.com/joeycumines/uidriver/internal/locator"
	"github.com/joeycumines/uidriver/internal/uitree"
)

// Controller starts sessions and tracks the ones still running.
type Controller struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewController returns a Controller. A nil logger uses slog.Default().
func NewController(cfg Config, logger *slog.Logger) (*Controller, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid session config: %w", err)
	}
	return &Controller{cfg: cfg, logger: logger, sessions: make(map[string]*Session)}, nil
}

// Config returns the effective configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

// Start launches an application and waits until it is ready. On failure
// the process is killed and the error wraps ErrLaunchFailure; the settings
// directory is kept for diagnosis.
func (c *Controller) Start(ctx context.Context, opts Options) (*Session, error) {
	if opts.Command == "" {
		return nil, &LaunchError{Reason: "no command given"}
	}
	cfg := c.cfg
	startupTimeout := cfg.StartupTimeout
	if opts.StartupTimeout > 0 {
		startupTimeout = opts.StartupTimeout
	}

	id := NewID(opts.ID)
	logger := c.logger.With(slog.String("session", id))

	settingsDir := filepath.Join(cfg.SettingsBaseDir, id)
	if err := os.MkdirAll(settingsDir, 0o755); err != nil {
		return nil, &LaunchError{Command: opts.Command, Reason: fmt.Sprintf("failed to create settings directory: %v", err)}
	}

	args := append([]string(nil), opts.Args...)
	if cfg.SettingsFlag != "-" {
		args = append(args, cfg.SettingsFlag, settingsDir)
	}
	cmd := exec.Command(opts.Command, args...)
	cmd.Dir = opts.Dir
	cmd.Env = append(os.Environ(), "TERM=xterm-256color", uitree.HookEnv+"=3")
	cmd.Env = append(cmd.Env, cfg.Env...)
	cmd.Env = append(cmd.Env, opts.Env...)

	hookR, hookW, err := os.Pipe()
	if err != nil {
		return nil, &LaunchError{Command: opts.Command, Reason: fmt.Sprintf("failed to create hook pipe: %v", err)}
	}
	cmd.ExtraFiles = []*os.File{hookW}

	ptmx, err := startPTY(cmd, cfg.Rows, cfg.Cols)
	_ = hookW.Close()
	if err != nil {
		_ = hookR.Close()
		return nil, &LaunchError{Command: opts.Command, Reason: fmt.Sprintf("failed to start: %v", err)}
	}

	s := &Session{
		id:          id,
		cmd:         cmd,
		command:     strings.Join(append([]string{opts.Command}, args...), " "),
		ptmx:        ptmx,
		hookR:       hookR,
		hook:        uitree.NewReader(hookR, logger),
		settingsDir: settingsDir,
		cfg:         cfg,
		objects:     opts.Objects,
		report:      opts.Report,
		logger:      logger,
		exited:      make(chan struct{}),
		exitCode:    -1,
		started:     time.Now(),
	}
	s.output.limit = maxOutputSize
	go s.drainOutput()
	go s.waitExit()

	s.resolver = locator.NewResolver(s, logger)
	s.input, err = input.NewPTY(ptmx, s.resolver,
		input.WithLogger(logger),
		input.WithMenuTimeout(cfg.MenuTimeout),
		input.WithPolling(cfg.PollInterval, s.hook.Changed),
	)
	if err != nil {
		s.kill()
		return nil, &LaunchError{Command: s.command, Reason: err.Error()}
	}

	logger.Info("launched application",
		slog.String("command", s.command),
		slog.Int("pid", cmd.Process.Pid),
		slog.String("settings", settingsDir))

	if err := s.awaitReady(ctx, startupTimeout); err != nil {
		s.kill()
		logger.Warn("application failed to become ready", slog.Any("error", err))
		return nil, err
	}

	c.mu.Lock()
	c.sessions[id] = s
	c.mu.Unlock()
	s.onTerminate = func() {
		c.mu.Lock()
		delete(c.sessions, id)
		c.mu.Unlock()
	}

	logger.Info("application ready",
		slog.Duration("startup", time.Since(s.started)),
		slog.Uint64("seq", s.hook.Latest().Seq))
	return s, nil
}

// Sessions returns the running sessions ordered by ID.
func (c *Controller) Sessions() []*Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// TerminateAll terminates every running session.
func (c *Controller) TerminateAll() error {
	var errs []error
	for _, s := range c.Sessions() {
		if err := s.Terminate(); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", s.id, err))
		}
	}
	return errors.Join(errs...)
}
