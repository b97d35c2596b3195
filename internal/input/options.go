package input

import (
	"fmt"
	"log/slog"
	"time"
)

// Option configures a PTY dispatcher.
type Option interface {
	applyOption(*ptyConfig) error
}

type optionFunc func(*ptyConfig) error

func (f optionFunc) applyOption(c *ptyConfig) error { return f(c) }

type ptyConfig struct {
	logger       *slog.Logger
	clickPause   time.Duration
	keyDelay     time.Duration
	menuTimeout  time.Duration
	pollInterval time.Duration
	notify       func() <-chan struct{}
}

func defaultPTYConfig() ptyConfig {
	return ptyConfig{
		logger:      slog.Default(),
		clickPause:  30 * time.Millisecond,
		keyDelay:    5 * time.Millisecond,
		menuTimeout: 5 * time.Second,
	}
}

// WithLogger sets the logger. Every dispatch is logged at debug level.
func WithLogger(logger *slog.Logger) Option {
	return optionFunc(func(c *ptyConfig) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		c.logger = logger
		return nil
	})
}

// WithClickPause sets the delay between mouse press and release.
// Default is 30ms.
func WithClickPause(d time.Duration) Option {
	return optionFunc(func(c *ptyConfig) error {
		if d < 0 {
			return fmt.Errorf("click pause must not be negative, got %v", d)
		}
		c.clickPause = d
		return nil
	})
}

// WithKeyDelay sets the delay after each typed character or key.
// Default is 5ms.
func WithKeyDelay(d time.Duration) Option {
	return optionFunc(func(c *ptyConfig) error {
		if d < 0 {
			return fmt.Errorf("key delay must not be negative, got %v", d)
		}
		c.keyDelay = d
		return nil
	})
}

// WithMenuTimeout bounds how long InvokeMenu waits for each submenu
// entry to appear. Default is 5s.
func WithMenuTimeout(d time.Duration) Option {
	return optionFunc(func(c *ptyConfig) error {
		if d <= 0 {
			return fmt.Errorf("menu timeout must be positive, got %v", d)
		}
		c.menuTimeout = d
		return nil
	})
}

// WithPolling configures how InvokeMenu polls for menu entries: the
// interval, and an optional change notification (see wait.Poller).
func WithPolling(interval time.Duration, notify func() <-chan struct{}) Option {
	return optionFunc(func(c *ptyConfig) error {
		c.pollInterval = interval
		c.notify = notify
		return nil
	})
}
