package command

import (
	"context"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joeycumines/uidriver/internal/config"
	"github.com/joeycumines/uidriver/internal/locator"
	"github.com/joeycumines/uidriver/internal/report"
	"github.com/joeycumines/uidriver/internal/script"
	"github.com/joeycumines/uidriver/internal/session"
)

// RunCommand runs test case scripts and reports their outcomes. The exit
// status is that of the worst outcome: 0 pass or skipped, 1 fail, 2 error.
type RunCommand struct {
	*BaseCommand
	config *config.Config

	logFlags     logFlags
	objects      string
	format       string
	output       string
	settingsDir  string
	keepSettings bool
	failFast     bool
	apps         map[string]string
}

// NewRunCommand creates a new run command.
func NewRunCommand(cfg *config.Config) *RunCommand {
	return &RunCommand{
		BaseCommand: NewBaseCommand(
			"run",
			"Run test case scripts against their applications",
			"run [options] <script.js|suite-dir>...",
		),
		config: cfg,
	}
}

// SetupFlags configures the flags for the run command.
func (c *RunCommand) SetupFlags(fs *flag.FlagSet) {
	c.logFlags.register(fs)
	fs.StringVar(&c.objects, "objects", "", "Object map for every script (default: objects.yaml next to each script)")
	fs.StringVar(&c.format, "format", "", "Report format: text or json (default: report.format config)")
	fs.StringVar(&c.output, "o", "", "Write reports to this file instead of stdout")
	fs.StringVar(&c.settingsDir, "settings-dir", "", "Parent directory of per-session settings directories")
	fs.BoolVar(&c.keepSettings, "keep-settings", false, "Keep settings directories after each test case")
	fs.BoolVar(&c.failFast, "fail-fast", false, "Stop after the first test case that does not pass")
	c.apps = make(map[string]string)
	fs.Func("app", "Map an application name to an executable, name=path (repeatable)", func(v string) error {
		name, path, ok := strings.Cut(v, "=")
		if !ok || name == "" || path == "" {
			return fmt.Errorf("expected name=path, got %q", v)
		}
		c.apps[name] = path
		return nil
	})
}

// Execute runs the scripts in order.
func (c *RunCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		_, _ = fmt.Fprintln(stderr, "no test scripts given")
		return &ExitError{Code: 2, Err: fmt.Errorf("missing arguments")}
	}
	scripts, err := collectScripts(args)
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}

	settings, err := config.Resolve(c.config, c.Name())
	if err != nil {
		return &ExitError{Code: 2, Err: fmt.Errorf("invalid configuration: %w", err)}
	}
	if c.format != "" {
		settings.ReportFormat = c.format
	}
	if c.settingsDir != "" {
		settings.SettingsBaseDir = c.settingsDir
	}
	settings.KeepSettings = settings.KeepSettings || c.keepSettings
	if c.objects != "" {
		settings.ObjectMapPath = c.objects
	}
	failFast := c.failFast || !config.Bool(c.config, c.Name(), "keep-going")

	lc, err := resolveLogConfig(c.logFlags, settings, stderr)
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}
	defer lc.Close()
	logger := lc.logger

	var objects *locator.ObjectMap
	if settings.ObjectMapPath != "" {
		if objects, err = locator.LoadObjectMap(settings.ObjectMapPath); err != nil {
			return &ExitError{Code: 2, Err: err}
		}
	}

	controller, err := session.NewController(sessionConfig(settings), logger)
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}
	defer func() {
		if err := controller.TerminateAll(); err != nil {
			logger.Warn("teardown failed", slog.Any("error", err))
		}
	}()

	out := stdout
	if c.output != "" {
		f, err := os.Create(c.output)
		if err != nil {
			return &ExitError{Code: 2, Err: fmt.Errorf("failed to create report file: %w", err)}
		}
		defer f.Close()
		out = f
	}
	textOpts := report.TextOptions{Color: useColor(settings.Color, out)}

	runner := &script.Runner{
		Controller:   controller,
		Objects:      objects,
		Applications: c.apps,
		Logger:       logger,
	}

	worst, notPassed, ran := 0, 0, 0
	for _, path := range scripts {
		if ctx.Err() != nil {
			break
		}
		res := runner.Run(ctx, path)
		ran++
		if err := report.Write(out, res, settings.ReportFormat, textOpts); err != nil {
			return &ExitError{Code: 2, Err: fmt.Errorf("failed to write report: %w", err)}
		}
		code := res.Outcome.ExitCode()
		worst = max(worst, code)
		if code != 0 {
			notPassed++
			if failFast {
				break
			}
		}
	}
	if ctx.Err() != nil && ran < len(scripts) {
		worst = 2
		notPassed += len(scripts) - ran
	}

	if worst != 0 {
		return &ExitError{Code: worst, Err: fmt.Errorf("%d of %d test cases did not pass", notPassed, len(scripts))}
	}
	return nil
}

// collectScripts expands suite directories into their test cases: every
// tst_*/test.js below the directory, sorted.
func collectScripts(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		fi, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !fi.IsDir() {
			out = append(out, arg)
			continue
		}
		var found []string
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && d.Name() == "test.js" && strings.HasPrefix(filepath.Base(filepath.Dir(path)), "tst_") {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			return nil, fmt.Errorf("no test cases in %s", arg)
		}
		sort.Strings(found)
		out = append(out, found...)
	}
	return out, nil
}
