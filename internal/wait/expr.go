package wait

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Env is the live application state visible to expression conditions.
// Object arguments are symbolic names (":IDE_MainWindow") or locator text.
type Env interface {
	// Exists reports whether the object resolves to exactly one widget.
	Exists(ctx context.Context, object string) (bool, error)
	// Property returns a property of the resolved widget.
	Property(ctx context.Context, object, name string) (string, error)
	// Count returns the number of widgets the object matches.
	Count(ctx context.Context, object string) (int, error)
	// Screen returns the application's terminal screen as text.
	Screen() string
}

var programs = newProgramCache(DefaultProgramCacheSize)

// builtinNames are the functions every condition can call. Variables may
// not shadow them.
var builtinNames = []string{"exists", "title", "text", "prop", "count", "screen"}

// Expr compiles a boolean expr-lang condition into a Predicate. The
// condition can call
//
//	exists(obj) bool
//	title(obj) string
//	text(obj) string
//	prop(obj, name) string
//	count(obj) int
//	screen() string
//
// and read the caller's vars, for example:
//
//	title(':IDE_MainWindow') contains sourceFileName
//
// Compiled programs are cached by expression and variable types. A lookup
// that fails during evaluation (the widget is not there yet) makes that
// evaluation report "not yet".
func Expr(expression string, env Env, vars map[string]any) (Predicate, error) {
	if env == nil {
		return nil, errors.New("expression condition needs an environment")
	}
	for _, name := range builtinNames {
		if _, ok := vars[name]; ok {
			return nil, fmt.Errorf("variable %q shadows a builtin function", name)
		}
	}

	program, err := compile(expression, vars)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) (bool, error) {
		ev := &evaluation{ctx: ctx, env: env}
		out, err := expr.Run(program, ev.bind(vars))
		if err != nil {
			return false, fmt.Errorf("failed to evaluate %q: %w", expression, err)
		}
		if ev.err != nil {
			return false, ev.err
		}
		result, ok := out.(bool)
		if !ok {
			return false, fmt.Errorf("condition %q returned %T, not bool", expression, out)
		}
		return result, nil
	}, nil
}

// Check compiles expression against vars without evaluating it.
func Check(expression string, vars map[string]any) error {
	_, err := compile(expression, vars)
	return err
}

func compile(expression string, vars map[string]any) (*vm.Program, error) {
	key := cacheKey(expression, vars)
	if program, ok := programs.get(key); ok {
		return program, nil
	}
	ev := &evaluation{ctx: context.Background()}
	program, err := expr.Compile(expression,
		expr.Env(ev.bind(vars)),
		expr.DisableBuiltin("count"),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compile condition %q: %w", expression, err)
	}
	programs.put(key, program)
	return program, nil
}

func cacheKey(expression string, vars map[string]any) string {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	b.WriteString(expression)
	for _, name := range names {
		fmt.Fprintf(&b, "\x00%s:%T", name, vars[name])
	}
	return b.String()
}

// evaluation binds the builtin functions for one run. The functions cannot
// return errors to the expression, so the first failure is kept aside and
// turns the whole evaluation into "not yet".
type evaluation struct {
	ctx  context.Context
	env  Env
	once sync.Once
	err  error
}

func (ev *evaluation) fail(err error) {
	ev.once.Do(func() { ev.err = err })
}

func (ev *evaluation) bind(vars map[string]any) map[string]any {
	m := make(map[string]any, len(vars)+len(builtinNames))
	for k, v := range vars {
		m[k] = v
	}
	m["exists"] = ev.exists
	m["title"] = func(obj string) string { return ev.prop(obj, "title") }
	m["text"] = func(obj string) string { return ev.prop(obj, "text") }
	m["prop"] = ev.prop
	m["count"] = ev.count
	m["screen"] = ev.screen
	return m
}

func (ev *evaluation) exists(obj string) bool {
	if ev.env == nil {
		return false
	}
	ok, err := ev.env.Exists(ev.ctx, obj)
	if err != nil {
		ev.fail(err)
		return false
	}
	return ok
}

func (ev *evaluation) prop(obj, name string) string {
	if ev.env == nil {
		return ""
	}
	v, err := ev.env.Property(ev.ctx, obj, name)
	if err != nil {
		ev.fail(err)
		return ""
	}
	return v
}

func (ev *evaluation) count(obj string) int {
	if ev.env == nil {
		return 0
	}
	n, err := ev.env.Count(ev.ctx, obj)
	if err != nil {
		ev.fail(err)
		return 0
	}
	return n
}

func (ev *evaluation) screen() string {
	if ev.env == nil {
		return ""
	}
	return ev.env.Screen()
}
