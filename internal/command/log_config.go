package command

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joeycumines/uidriver/internal/config"
)

// logFlags are the logging flags shared by commands that drive
// applications.
type logFlags struct {
	file  string
	level string
}

func (f *logFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.file, "log-file", "", "Write JSON logs to this file (default: log.file config)")
	fs.StringVar(&f.level, "log-level", "", "Log level: debug, info, warn, error (default: log.level config)")
}

// logConfig holds a resolved logger and the file behind it, if any.
type logConfig struct {
	level   slog.Level
	logger  *slog.Logger
	logFile io.WriteCloser
}

func (lc *logConfig) Close() error {
	if lc.logFile == nil {
		return nil
	}
	return lc.logFile.Close()
}

// resolveLogConfig builds the logger: flag, then config, then info for the
// level; a JSON handler on the log file when one is set, else a text
// handler on stderr. The caller must Close the result.
func resolveLogConfig(flags logFlags, settings config.Settings, stderr io.Writer) (*logConfig, error) {
	lc := &logConfig{level: settings.LogLevel}
	if flags.level != "" {
		if err := lc.level.UnmarshalText([]byte(flags.level)); err != nil {
			return nil, fmt.Errorf("invalid log level: %s", flags.level)
		}
	}
	opts := &slog.HandlerOptions{Level: lc.level}

	path := flags.file
	if path == "" {
		path = settings.LogFile
	}
	if path == "" {
		lc.logger = slog.New(slog.NewTextHandler(stderr, opts))
		return lc, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	lc.logFile = f
	lc.logger = slog.New(slog.NewJSONHandler(f, opts))
	return lc, nil
}
