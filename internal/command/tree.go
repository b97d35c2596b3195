package command

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joeycumines/uidriver/internal/config"
	"github.com/joeycumines/uidriver/internal/locator"
	"github.com/joeycumines/uidriver/internal/session"
	"github.com/joeycumines/uidriver/internal/uitree"
)

// TreeCommand launches an application, prints its widget tree and shuts
// it down again. It is the tool for writing locators.
type TreeCommand struct {
	*BaseCommand
	config *config.Config

	logFlags logFlags
	depth    int
	asJSON   bool
	screen   bool
	waitFor  string
	settle   time.Duration
}

// NewTreeCommand creates a new tree command.
func NewTreeCommand(cfg *config.Config) *TreeCommand {
	return &TreeCommand{
		BaseCommand: NewBaseCommand(
			"tree",
			"Print the widget tree of an application",
			"tree [options] -- command [args...]",
		),
		config: cfg,
	}
}

// SetupFlags configures the flags for the tree command.
func (c *TreeCommand) SetupFlags(fs *flag.FlagSet) {
	c.logFlags.register(fs)
	fs.IntVar(&c.depth, "depth", -1, "Maximum depth printed, 0 for all (default: depth in [tree] config)")
	fs.BoolVar(&c.asJSON, "json", false, "Print the raw snapshot as JSON")
	fs.BoolVar(&c.screen, "screen", false, "Also print the terminal screen")
	fs.StringVar(&c.waitFor, "wait", "", "Locator to wait for before printing")
	fs.DurationVar(&c.settle, "settle", 200*time.Millisecond, "Time the tree must stay unchanged before printing")
}

// Execute launches the command and prints its tree.
func (c *TreeCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		_, _ = fmt.Fprintln(stderr, "no command given")
		return fmt.Errorf("missing arguments")
	}
	settings, err := config.Resolve(c.config, c.Name())
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	depth := c.depth
	if depth < 0 {
		depth = config.Int(c.config, c.Name(), "depth")
	}
	var target locator.Locator
	if c.waitFor != "" {
		if target, err = locator.Parse(c.waitFor); err != nil {
			return err
		}
	}

	lc, err := resolveLogConfig(c.logFlags, settings, stderr)
	if err != nil {
		return err
	}
	defer lc.Close()

	controller, err := session.NewController(sessionConfig(settings), lc.logger)
	if err != nil {
		return err
	}
	s, err := controller.Start(ctx, session.Options{Command: args[0], Args: args[1:]})
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Terminate(); err != nil {
			lc.logger.Warn("teardown failed", slog.Any("error", err))
		}
	}()

	if !target.IsZero() {
		if _, err := s.WaitForObject(ctx, target, 0); err != nil {
			return err
		}
	}
	snap, err := settledSnapshot(ctx, s, c.settle)
	if err != nil {
		return err
	}

	if c.asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap); err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprintf(stdout, "%s (seq %d)\n", snap.App, snap.Seq)
		writeTree(stdout, snap.Root, depth)
	}
	if c.screen {
		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, s.Screen())
	}
	return nil
}

// settledSnapshot returns the latest snapshot once its sequence number
// has not moved for settle.
func settledSnapshot(ctx context.Context, s *session.Session, settle time.Duration) (*uitree.Snapshot, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	for settle > 0 {
		timer := time.NewTimer(settle)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		next, err := s.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		if next.Seq == snap.Seq {
			break
		}
		snap = next
	}
	return snap, nil
}

// writeTree prints the children of root, one widget per line, indented
// by depth. maxDepth 0 prints everything.
func writeTree(w io.Writer, root *uitree.Node, maxDepth int) {
	if root == nil {
		return
	}
	var visit func(n *uitree.Node, depth int)
	visit = func(n *uitree.Node, depth int) {
		_, _ = fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth-1), describeNode(n))
		if maxDepth > 0 && depth >= maxDepth {
			return
		}
		for _, child := range n.Children {
			visit(child, depth+1)
		}
	}
	for _, child := range root.Children {
		visit(child, 1)
	}
}

func describeNode(n *uitree.Node) string {
	var b strings.Builder
	b.WriteString(n.Type)
	if n.Name != "" {
		b.WriteString(" name=" + strconv.Quote(n.Name))
	}
	if n.Text != "" {
		text := n.Text
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			text = text[:i] + "..."
		}
		b.WriteString(" text=" + strconv.Quote(text))
	}
	keys := make([]string, 0, len(n.Props))
	for k := range n.Props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(" " + k + "=" + strconv.Quote(n.Props[k]))
	}
	bo := n.Bounds
	fmt.Fprintf(&b, " [%d,%d %dx%d]", bo.X, bo.Y, bo.Width, bo.Height)
	if !n.IsVisible() {
		b.WriteString(" hidden")
	}
	if !n.IsEnabled() {
		b.WriteString(" disabled")
	}
	if n.Focused {
		b.WriteString(" focused")
	}
	return b.String()
}
