package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dop251/goja"
	"github.com/joeycumines/uidriver/internal/locator"
	"github.com/joeycumines/uidriver/internal/report"
	"github.com/joeycumines/uidriver/internal/session"
)

// ModuleName is the name scripts pass to require.
const ModuleName = "uidriver"

// host is the Go side of one script run.
type host struct {
	ctx       context.Context
	runner    *Runner
	report    *report.Report
	objects   *locator.ObjectMap
	scriptDir string
	logger    *slog.Logger

	sessions []*session.Session
	tempDirs []string
}

func throw(vm *goja.Runtime, err error) {
	panic(vm.NewGoError(err))
}

func argString(call goja.FunctionCall, i int) string {
	v := call.Argument(i)
	if goja.IsUndefined(v) || goja.IsNull(v) {
		return ""
	}
	return v.String()
}

func argMillis(call goja.FunctionCall, i int) time.Duration {
	v := call.Argument(i)
	if goja.IsUndefined(v) || goja.IsNull(v) {
		return 0
	}
	return time.Duration(v.ToInteger()) * time.Millisecond
}

// require is the loader for the uidriver module. The same exports are
// installed as globals.
func (h *host) require(vm *goja.Runtime, module *goja.Object) {
	exports := module.Get("exports").(*goja.Object)

	// startApplication(command: string, ...args: string): app
	_ = exports.Set("startApplication", func(call goja.FunctionCall) goja.Value {
		command := argString(call, 0)
		var args []string
		for _, a := range call.Arguments[min(1, len(call.Arguments)):] {
			args = append(args, a.String())
		}
		if len(args) == 0 && strings.ContainsAny(command, " \t'\"\\") {
			words, err := splitCommandLine(command)
			if err != nil {
				throw(vm, fmt.Errorf("startApplication: %w", err))
			}
			if len(words) > 0 {
				command, args = words[0], words[1:]
			}
		}
		s, err := h.startApplication(command, args)
		if err != nil {
			throw(vm, err)
		}
		return h.newApp(vm, s)
	})

	// tempDir(): string
	_ = exports.Set("tempDir", func(goja.FunctionCall) goja.Value {
		dir, err := os.MkdirTemp("", "uidriver-")
		if err != nil {
			throw(vm, fmt.Errorf("failed to create temporary directory: %w", err))
		}
		h.tempDirs = append(h.tempDirs, dir)
		return vm.ToValue(dir)
	})

	// snooze(seconds: number): void
	_ = exports.Set("snooze", func(call goja.FunctionCall) goja.Value {
		d := time.Duration(call.Argument(0).ToFloat() * float64(time.Second))
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-h.ctx.Done():
			throw(vm, h.ctx.Err())
		case <-t.C:
		}
		return goja.Undefined()
	})

	// objectLocator(name: string): string
	_ = exports.Set("objectLocator", func(call goja.FunctionCall) goja.Value {
		l, err := h.objects.Resolve(argString(call, 0))
		if err != nil {
			throw(vm, err)
		}
		return vm.ToValue(l.String())
	})

	_ = exports.Set("test", h.newTest(vm))
}

func (h *host) newTest(vm *goja.Runtime) *goja.Object {
	t := vm.NewObject()
	rep := h.report
	_ = t.Set("verify", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(rep.Verify(call.Argument(0).ToBoolean(), argString(call, 1)))
	})
	_ = t.Set("compare", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(rep.Compare(call.Argument(0).Export(), call.Argument(1).Export(), argString(call, 2)))
	})
	_ = t.Set("fail", func(call goja.FunctionCall) goja.Value {
		rep.Fail(argString(call, 0), argString(call, 1))
		return goja.Undefined()
	})
	_ = t.Set("warning", func(call goja.FunctionCall) goja.Value {
		rep.Warning(argString(call, 0), argString(call, 1))
		return goja.Undefined()
	})
	_ = t.Set("log", func(call goja.FunctionCall) goja.Value {
		rep.Log(argString(call, 0))
		return goja.Undefined()
	})
	_ = t.Set("skip", func(call goja.FunctionCall) goja.Value {
		rep.Skip(argString(call, 0))
		return goja.Undefined()
	})
	return t
}

func (h *host) startApplication(command string, args []string) (*session.Session, error) {
	if command == "" {
		return nil, errors.New("startApplication: no command given")
	}
	if path, ok := h.runner.Applications[command]; ok {
		command = path
	}
	s, err := h.runner.Controller.Start(h.ctx, session.Options{
		Command: command,
		Args:    args,
		Env:     h.runner.Env,
		Dir:     h.scriptDir,
		Objects: h.objects,
		Report:  h.report,
	})
	if err != nil {
		return nil, err
	}
	h.sessions = append(h.sessions, s)
	return s, nil
}

// source runs another script file in the global scope. Relative paths are
// resolved against the directory of the test script.
func (h *host) source(vm *goja.Runtime) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		path := argString(call, 0)
		if !filepath.IsAbs(path) {
			path = filepath.Join(h.scriptDir, path)
		}
		code, err := os.ReadFile(path)
		if err != nil {
			throw(vm, fmt.Errorf("source: %w", err))
		}
		prg, err := goja.Compile(path, string(code), false)
		if err != nil {
			throw(vm, fmt.Errorf("source: %w", err))
		}
		if _, err := vm.RunProgram(prg); err != nil {
			panic(err)
		}
		return goja.Undefined()
	}
}

// cleanup terminates applications the script left running and removes
// temporary directories.
func (h *host) cleanup() error {
	var errs []error
	for _, s := range h.sessions {
		if s.Alive() {
			h.logger.Warn("terminating application left running by the script", slog.String("session", s.ID()))
		}
		if err := s.Terminate(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, dir := range h.tempDirs {
		if err := os.RemoveAll(dir); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// app wraps one session for scripts.
type app struct {
	h  *host
	vm *goja.Runtime
	s  *session.Session
}

func (h *host) newApp(vm *goja.Runtime, s *session.Session) *goja.Object {
	a := &app{h: h, vm: vm, s: s}
	obj := vm.NewObject()
	_ = obj.Set("id", s.ID())
	_ = obj.Set("settingsDir", s.SettingsDir())

	_ = obj.Set("startedWithoutPluginError", func(goja.FunctionCall) goja.Value {
		return vm.ToValue(s.StartedWithoutPluginError(h.ctx))
	})
	_ = obj.Set("waitForObject", func(call goja.FunctionCall) goja.Value {
		return a.widget(a.waitForObject(call.Argument(0), argMillis(call, 1)))
	})
	_ = obj.Set("findObject", func(call goja.FunctionCall) goja.Value {
		handle, err := s.FindObject(h.ctx, a.target(call.Argument(0)))
		if err != nil {
			throw(vm, err)
		}
		return a.widget(handle)
	})
	_ = obj.Set("findAllObjects", func(call goja.FunctionCall) goja.Value {
		handles, err := s.FindAll(h.ctx, a.target(call.Argument(0)))
		if err != nil {
			throw(vm, err)
		}
		out := make([]any, len(handles))
		for i, handle := range handles {
			out[i] = widgetMap(handle)
		}
		return vm.ToValue(out)
	})
	_ = obj.Set("exists", func(call goja.FunctionCall) goja.Value {
		ok, err := s.Exists(h.ctx, a.target(call.Argument(0)))
		if err != nil && !errors.Is(err, session.ErrNoTree) {
			throw(vm, err)
		}
		return vm.ToValue(ok)
	})
	_ = obj.Set("waitFor", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(a.waitFor(call.Argument(0), argMillis(call, 1), call.Argument(2)))
	})
	_ = obj.Set("mouseClick", func(call goja.FunctionCall) goja.Value {
		a.check(s.Click(h.ctx, a.waitForObject(call.Argument(0), 0)))
		return goja.Undefined()
	})
	_ = obj.Set("clickButton", func(call goja.FunctionCall) goja.Value {
		a.check(s.Click(h.ctx, a.waitForObject(call.Argument(0), 0)))
		return goja.Undefined()
	})
	_ = obj.Set("doubleClick", func(call goja.FunctionCall) goja.Value {
		a.check(s.DoubleClick(h.ctx, a.waitForObject(call.Argument(0), 0)))
		return goja.Undefined()
	})
	_ = obj.Set("type", func(call goja.FunctionCall) goja.Value {
		a.check(s.Type(h.ctx, a.waitForObject(call.Argument(0), 0), argString(call, 1)))
		return goja.Undefined()
	})
	_ = obj.Set("nativeType", func(call goja.FunctionCall) goja.Value {
		a.check(s.NativeType(h.ctx, argString(call, 0)))
		return goja.Undefined()
	})
	_ = obj.Set("pressKey", func(call goja.FunctionCall) goja.Value {
		a.check(s.PressKey(h.ctx, argString(call, 0)))
		return goja.Undefined()
	})
	_ = obj.Set("invokeMenuItem", func(call goja.FunctionCall) goja.Value {
		path := make([]string, len(call.Arguments))
		for i, v := range call.Arguments {
			path[i] = v.String()
		}
		a.check(s.InvokeMenu(h.ctx, path...))
		return goja.Undefined()
	})
	_ = obj.Set("screen", func(goja.FunctionCall) goja.Value {
		return vm.ToValue(s.Screen())
	})
	_ = obj.Set("alive", func(goja.FunctionCall) goja.Value {
		return vm.ToValue(s.Alive())
	})
	_ = obj.Set("exitCode", func(goja.FunctionCall) goja.Value {
		return vm.ToValue(s.ExitCode())
	})
	_ = obj.Set("terminate", func(goja.FunctionCall) goja.Value {
		a.check(s.Terminate())
		return vm.ToValue(s.ExitCode())
	})
	return obj
}

func (a *app) check(err error) {
	if err != nil {
		throw(a.vm, err)
	}
}

// target turns a symbolic name, locator text or widget object into a
// locator.
func (a *app) target(v goja.Value) locator.Locator {
	if goja.IsUndefined(v) || goja.IsNull(v) {
		throw(a.vm, errors.New("missing object name or widget"))
	}
	if obj, ok := v.(*goja.Object); ok {
		text := obj.Get("locator")
		if text == nil || goja.IsUndefined(text) {
			throw(a.vm, errors.New("object has no locator property"))
		}
		l, err := locator.Parse(text.String())
		if err != nil {
			throw(a.vm, err)
		}
		return l
	}
	l, err := a.s.Lookup(v.String())
	if err != nil {
		throw(a.vm, err)
	}
	return l
}

func (a *app) waitForObject(v goja.Value, timeout time.Duration) *locator.Handle {
	handle, err := a.s.WaitForObject(a.h.ctx, a.target(v), timeout)
	if err != nil {
		throw(a.vm, err)
	}
	return handle
}

// waitFor accepts a JS function or an expression string. Exceptions thrown
// by the function count as "not yet".
func (a *app) waitFor(cond goja.Value, timeout time.Duration, vars goja.Value) bool {
	if fn, ok := goja.AssertFunction(cond); ok {
		return a.s.WaitFor(a.h.ctx, func(context.Context) (bool, error) {
			res, err := fn(goja.Undefined())
			if err != nil {
				return false, err
			}
			return res.ToBoolean(), nil
		}, timeout)
	}
	if goja.IsUndefined(cond) || goja.IsNull(cond) {
		throw(a.vm, errors.New("waitFor: missing condition"))
	}
	var env map[string]any
	if !goja.IsUndefined(vars) && !goja.IsNull(vars) {
		m, ok := vars.Export().(map[string]any)
		if !ok {
			throw(a.vm, errors.New("waitFor: variables must be an object"))
		}
		env = m
	}
	ok, err := a.s.WaitForExpr(a.h.ctx, cond.String(), env, timeout)
	if err != nil {
		throw(a.vm, err)
	}
	return ok
}

func (a *app) widget(handle *locator.Handle) goja.Value {
	return a.vm.ToValue(widgetMap(handle))
}

// widgetMap is the script view of a widget: a plain snapshot taken when it
// was resolved.
func widgetMap(handle *locator.Handle) map[string]any {
	n := handle.Node
	props := make(map[string]any, len(n.Props))
	for k, v := range n.Props {
		props[k] = v
	}
	return map[string]any{
		"id":      n.ID,
		"type":    n.Type,
		"name":    n.Name,
		"text":    n.Text,
		"title":   n.Title(),
		"visible": n.IsVisible(),
		"enabled": n.IsEnabled(),
		"focused": n.Focused,
		"props":   props,
		"bounds": map[string]any{
			"x":      n.Bounds.X,
			"y":      n.Bounds.Y,
			"width":  n.Bounds.Width,
			"height": n.Bounds.Height,
		},
		"locator": handle.Locator.String(),
	}
}
