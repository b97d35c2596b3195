package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

// Settings are the typed, effective options for one command.
type Settings struct {
	LogLevel slog.Level
	LogFile  string

	WaitTimeout    time.Duration
	WaitInterval   time.Duration
	StartupTimeout time.Duration
	GateTimeout    time.Duration
	MenuTimeout    time.Duration

	SettingsBaseDir string
	SettingsFlag    string
	KeepSettings    bool

	Rows int
	Cols int

	ObjectMapPath      string
	ReportFormat       string
	PluginErrorLocator string
	Color              string
}

// Resolve computes the settings of command from c, the environment and
// the schema defaults. Unlike loading, a bad value is an error here.
func Resolve(c *Config, command string) (Settings, error) {
	r := resolver{schema: DefaultSchema(), c: c, command: command}
	s := Settings{
		LogFile:            r.str(KeyLogFile),
		WaitTimeout:        r.duration(KeyWaitTimeout),
		WaitInterval:       r.duration(KeyWaitInterval),
		StartupTimeout:     r.duration(KeyStartupTimeout),
		GateTimeout:        r.duration(KeyGateTimeout),
		MenuTimeout:        r.duration(KeyMenuTimeout),
		SettingsBaseDir:    r.str(KeySettingsBaseDir),
		SettingsFlag:       r.str(KeySettingsFlag),
		KeepSettings:       r.bool(KeySettingsKeep),
		Rows:               r.int(KeyTerminalRows),
		Cols:               r.int(KeyTerminalCols),
		ObjectMapPath:      r.str(KeyObjectMapPath),
		ReportFormat:       r.str(KeyReportFormat),
		PluginErrorLocator: r.str(KeyPluginErrorLocator),
		Color:              r.str(KeyColor),
	}
	if err := s.LogLevel.UnmarshalText([]byte(r.str(KeyLogLevel))); err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", KeyLogLevel, err))
	}
	return s, errors.Join(r.errs...)
}

type resolver struct {
	schema  *ConfigSchema
	c       *Config
	command string
	errs    []error
}

func (r *resolver) str(key string) string {
	v := r.schema.Value(r.c, r.command, key)
	if opt := r.schema.find(r.command, key); opt != nil {
		if err := opt.check(v); err != nil {
			r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		}
	}
	return v
}

func (r *resolver) duration(key string) time.Duration {
	d, _ := time.ParseDuration(r.str(key))
	return d
}

func (r *resolver) int(key string) int {
	i, _ := strconv.Atoi(r.str(key))
	return i
}

func (r *resolver) bool(key string) bool {
	b, _ := parseBool(r.str(key))
	return b
}

// Bool returns a boolean option of command. An invalid value is logged
// and the schema default is used instead.
func Bool(c *Config, command, key string) bool {
	v, def := lookupTyped(c, command, key)
	b, err := parseBool(v)
	if err != nil {
		slog.Warn("invalid configuration value, using default",
			slog.String("key", key), slog.String("value", v), slog.String("default", def))
		b, _ = parseBool(def)
	}
	return b
}

// Int returns an integer option of command. An invalid value is logged
// and the schema default is used instead.
func Int(c *Config, command, key string) int {
	v, def := lookupTyped(c, command, key)
	i, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid configuration value, using default",
			slog.String("key", key), slog.String("value", v), slog.String("default", def))
		i, _ = strconv.Atoi(def)
	}
	return i
}

func lookupTyped(c *Config, command, key string) (value, def string) {
	schema := DefaultSchema()
	if opt := schema.find(command, key); opt != nil {
		def = opt.Default
	}
	return schema.Value(c, command, key), def
}
