package command

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/joeycumines/uidriver/internal/config"
	"github.com/joeycumines/uidriver/internal/locator"
)

// LintCommand parses locators and symbolic names and prints their
// canonical form. Without arguments it checks the whole object map.
type LintCommand struct {
	*BaseCommand
	config  *config.Config
	objects string
}

// NewLintCommand creates a new lint command.
func NewLintCommand(cfg *config.Config) *LintCommand {
	return &LintCommand{
		BaseCommand: NewBaseCommand(
			"lint",
			"Check locators and object maps",
			"lint [-objects file] [locator|:name]...",
		),
		config: cfg,
	}
}

// SetupFlags configures the flags for the lint command.
func (c *LintCommand) SetupFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.objects, "objects", "", "Object map resolving symbolic names (default: objectmap.path config)")
}

// Execute lints the arguments.
func (c *LintCommand) Execute(_ context.Context, args []string, stdout, stderr io.Writer) error {
	path := c.objects
	if path == "" {
		path = config.DefaultSchema().Value(c.config, c.Name(), config.KeyObjectMapPath)
	}
	var objects *locator.ObjectMap
	if path != "" {
		var err error
		if objects, err = locator.LoadObjectMap(path); err != nil {
			_, _ = fmt.Fprintln(stderr, err)
			return &ExitError{Code: 1, Err: err}
		}
	}
	if len(args) == 0 {
		if objects == nil {
			_, _ = fmt.Fprintln(stderr, "nothing to lint: give locators or an object map")
			return fmt.Errorf("missing arguments")
		}
		args = objects.Names()
	}

	w := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
	failed := 0
	for _, arg := range args {
		l, err := objects.Resolve(arg)
		if err != nil {
			failed++
			_, _ = fmt.Fprintf(stderr, "%s: %v\n", arg, err)
			continue
		}
		if arg == l.String() {
			_, _ = fmt.Fprintf(w, "%s\tok\n", arg)
		} else {
			_, _ = fmt.Fprintf(w, "%s\t%s\n", arg, l)
		}
	}
	_ = w.Flush()
	if failed > 0 {
		return &ExitError{Code: 1, Err: errors.New("invalid locators")}
	}
	return nil
}
