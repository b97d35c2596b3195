// Package script runs JavaScript test cases against applications launched
// through the session controller.
//
// A test case is a file defining main(). The harness API is available both
// as globals and through require('uidriver'):
//
//	function main() {
//	    var app = startApplication("fakeide");
//	    if (!app.startedWithoutPluginError())
//	        return;
//	    app.invokeMenuItem("File", "New File or Project...");
//	    test.verify(app.exists(":New File or Project_Dialog"), "Dialog shown?");
//	    app.invokeMenuItem("File", "Exit");
//	}
//
// Every application call takes the application object explicitly. Failed
// lookups and launches throw; waitFor returns a boolean; test.verify
// records a result and returns its condition.
package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"
	"github.com/joeycumines/uidriver/internal/locator"
	"github.com/joeycumines/uidriver/internal/report"
	"github.com/joeycumines/uidriver/internal/session"
)

// ObjectMapFile is the object map looked up next to a test case, and in the
// shared directory of its suite.
const ObjectMapFile = "objects.yaml"

// Runner runs test case scripts.
type Runner struct {
	Controller *session.Controller
	// Objects resolves symbolic names. When nil, each script uses the
	// object map found next to it, if any.
	Objects *locator.ObjectMap
	// Applications maps names passed to startApplication to executables.
	// Unknown names are looked up in PATH.
	Applications map[string]string
	// Env is added to the environment of every launched application.
	Env    []string
	Logger *slog.Logger
}

// TestCaseName derives the test case name from a script path: the
// directory name for ".../tst_name/test.js", else the file name without
// extension.
func TestCaseName(path string) string {
	base := filepath.Base(path)
	if strings.TrimSuffix(base, filepath.Ext(base)) == "test" {
		return filepath.Base(filepath.Dir(path))
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Run executes one script and returns its result. Errors never escape:
// anything that aborts the script becomes the result's error outcome.
func (r *Runner) Run(ctx context.Context, path string) report.Result {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := TestCaseName(path)
	logger = logger.With(slog.String("test_case", name))
	rep := report.New(name, report.WithLogger(logger))

	err := r.run(ctx, path, rep, logger)
	res := rep.Finish(err)
	logger.Info("test case finished", slog.String("outcome", string(res.Outcome)), slog.Duration("duration", res.Duration))
	return res
}

func (r *Runner) run(ctx context.Context, path string, rep *report.Report, logger *slog.Logger) (err error) {
	if r.Controller == nil {
		return errors.New("runner has no session controller")
	}
	code, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}
	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return fmt.Errorf("failed to resolve script directory: %w", err)
	}
	objects := r.Objects
	if objects == nil {
		if objects, err = FindObjectMap(dir); err != nil {
			return err
		}
	}

	h := &host{
		ctx:       ctx,
		runner:    r,
		report:    rep,
		objects:   objects,
		scriptDir: dir,
		logger:    logger,
	}
	defer func() {
		if cerr := h.cleanup(); cerr != nil {
			logger.Warn("cleanup after script failed", slog.Any("error", cerr))
		}
	}()

	registry := require.NewRegistry()
	registry.RegisterNativeModule(ModuleName, h.require)
	rt := newRuntime(registry)
	defer rt.close()

	err = rt.run(ctx, func(vm *goja.Runtime) error {
		module := vm.NewObject()
		exports := vm.NewObject()
		_ = module.Set("exports", exports)
		h.require(vm, module)
		for _, key := range exports.Keys() {
			if err := vm.Set(key, exports.Get(key)); err != nil {
				return err
			}
		}
		if err := vm.Set("source", h.source(vm)); err != nil {
			return err
		}

		prg, err := goja.Compile(path, string(code), false)
		if err != nil {
			return err
		}
		if _, err := vm.RunProgram(prg); err != nil {
			return err
		}
		main, ok := goja.AssertFunction(vm.Get("main"))
		if !ok {
			return errors.New("script does not define a main function")
		}
		_, err = main(goja.Undefined())
		return err
	})
	if err != nil {
		return fmt.Errorf("script error: %w", err)
	}
	return nil
}

// FindObjectMap loads the object map for a test case directory: dir's own
// objects.yaml, else the suite's shared/objects.yaml. It returns (nil,
// nil) when neither exists.
func FindObjectMap(dir string) (*locator.ObjectMap, error) {
	for _, candidate := range []string{
		filepath.Join(dir, ObjectMapFile),
		filepath.Join(filepath.Dir(dir), "shared", ObjectMapFile),
	} {
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		return locator.LoadObjectMap(candidate)
	}
	return nil, nil
}
