package session

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joeycumines/uidriver/internal/locator"
	"github.com/joeycumines/uidriver/internal/report"
)

// DefaultPluginErrorLocator matches the dialog an application shows when
// some of its plugins failed to load.
const DefaultPluginErrorLocator = "*://Dialog{name='PluginErrorOverview'}"

// Config holds controller-wide defaults. Zero fields take the values from
// DefaultConfig.
type Config struct {
	// SettingsBaseDir is where per-session settings directories are created.
	SettingsBaseDir string
	// SettingsFlag is the command line flag that points the application at
	// its settings directory. "-" disables it.
	SettingsFlag string
	// KeepSettings keeps settings directories after Terminate.
	KeepSettings bool

	StartupTimeout time.Duration
	GateTimeout    time.Duration
	WaitTimeout    time.Duration
	MenuTimeout    time.Duration
	PollInterval   time.Duration
	TerminateGrace time.Duration

	Rows int
	Cols int

	PluginErrorLocator string
	// Env is appended to the environment of every launched application.
	Env []string
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		SettingsBaseDir:    filepath.Join(os.TempDir(), "uidriver-settings"),
		SettingsFlag:       "-settingspath",
		StartupTimeout:     10 * time.Second,
		GateTimeout:        time.Second,
		WaitTimeout:        20 * time.Second,
		MenuTimeout:        5 * time.Second,
		PollInterval:       25 * time.Millisecond,
		TerminateGrace:     3 * time.Second,
		Rows:               24,
		Cols:               80,
		PluginErrorLocator: DefaultPluginErrorLocator,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SettingsBaseDir == "" {
		c.SettingsBaseDir = d.SettingsBaseDir
	}
	if c.SettingsFlag == "" {
		c.SettingsFlag = d.SettingsFlag
	}
	if c.StartupTimeout <= 0 {
		c.StartupTimeout = d.StartupTimeout
	}
	if c.GateTimeout <= 0 {
		c.GateTimeout = d.GateTimeout
	}
	if c.WaitTimeout <= 0 {
		c.WaitTimeout = d.WaitTimeout
	}
	if c.MenuTimeout <= 0 {
		c.MenuTimeout = d.MenuTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.TerminateGrace <= 0 {
		c.TerminateGrace = d.TerminateGrace
	}
	if c.Rows <= 0 {
		c.Rows = d.Rows
	}
	if c.Cols <= 0 {
		c.Cols = d.Cols
	}
	if c.PluginErrorLocator == "" {
		c.PluginErrorLocator = d.PluginErrorLocator
	}
	return c
}

func (c Config) validate() error {
	if _, err := locator.Parse(c.PluginErrorLocator); err != nil {
		return fmt.Errorf("plugin error locator: %w", err)
	}
	return nil
}

// Options describe one launch.
type Options struct {
	Command string
	Args    []string
	Env     []string
	Dir     string
	// ID overrides the generated session ID.
	ID string
	// Objects resolves symbolic names used with this session.
	Objects *locator.ObjectMap
	// Report receives records the session itself produces, such as the
	// startup gate's fatal record.
	Report *report.Report
	// StartupTimeout overrides Config.StartupTimeout when positive.
	StartupTimeout time.Duration
}
