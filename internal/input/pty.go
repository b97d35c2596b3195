// Package input synthesises user input for an application running under a
// pseudo-terminal: SGR mouse events at widget positions, key sequences and
// typed text, and menu invocation.
//
// Dispatch is fire-and-forget. Every operation returns once its bytes are
// written; waiting for the resulting UI change is the caller's business.
package input

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/joeycumines/uidriver/internal/locator"
	"github.com/joeycumines/uidriver/internal/wait"
)

// Mouse buttons in SGR encoding.
const (
	ButtonLeft   = 0
	ButtonMiddle = 1
	ButtonRight  = 2
)

// Resolver re-resolves locators at dispatch time.
type Resolver interface {
	Resolve(ctx context.Context, l locator.Locator) (*locator.Handle, error)
}

// Dispatcher delivers input to an application.
type Dispatcher interface {
	Click(ctx context.Context, h *locator.Handle) error
	DoubleClick(ctx context.Context, h *locator.Handle) error
	RightClick(ctx context.Context, h *locator.Handle) error
	Type(ctx context.Context, h *locator.Handle, text string) error
	PressKey(ctx context.Context, key string) error
	InvokeMenu(ctx context.Context, path ...string) error
}

var _ Dispatcher = (*PTY)(nil)

// PTY dispatches input by writing terminal sequences to the master side of
// the application's pseudo-terminal.
type PTY struct {
	mu  sync.Mutex
	w   io.Writer
	res Resolver
	cfg ptyConfig
}

// NewPTY returns a dispatcher writing to w and revalidating targets with
// res.
func NewPTY(w io.Writer, res Resolver, opts ...Option) (*PTY, error) {
	if w == nil {
		return nil, errors.New("input: nil writer")
	}
	if res == nil {
		return nil, errors.New("input: nil resolver")
	}
	cfg := defaultPTYConfig()
	for _, opt := range opts {
		if err := opt.applyOption(&cfg); err != nil {
			return nil, fmt.Errorf("input: %w", err)
		}
	}
	return &PTY{w: w, res: res, cfg: cfg}, nil
}

// Click left-clicks the centre of the widget.
func (p *PTY) Click(ctx context.Context, h *locator.Handle) error {
	return p.clickHandle(ctx, "click", h, ButtonLeft, 1)
}

// DoubleClick left-clicks the widget twice.
func (p *PTY) DoubleClick(ctx context.Context, h *locator.Handle) error {
	return p.clickHandle(ctx, "double-click", h, ButtonLeft, 2)
}

// RightClick right-clicks the centre of the widget.
func (p *PTY) RightClick(ctx context.Context, h *locator.Handle) error {
	return p.clickHandle(ctx, "right-click", h, ButtonRight, 1)
}

// ClickAt clicks the 0-indexed cell (x, y) without any target check.
func (p *PTY) ClickAt(ctx context.Context, x, y, button int) error {
	return p.click(ctx, x, y, button)
}

// Type focuses the widget with a click, then types text into it. A nil
// handle types into whatever has focus. Key names in angle brackets, such
// as "<Return>", are sent as keys.
func (p *PTY) Type(ctx context.Context, h *locator.Handle, text string) error {
	if h != nil {
		if err := p.clickHandle(ctx, "type", h, ButtonLeft, 1); err != nil {
			return err
		}
	}
	chunks := expandText(text)
	for _, chunk := range chunks {
		if err := p.write(ctx, chunk); err != nil {
			return fmt.Errorf("failed to type: %w", err)
		}
		p.sleep(ctx, p.cfg.keyDelay)
	}
	p.cfg.logger.Debug("typed text", slog.Int("chunks", len(chunks)))
	return nil
}

// NativeType types into whatever currently has focus.
func (p *PTY) NativeType(ctx context.Context, text string) error {
	return p.Type(ctx, nil, text)
}

// PressKey sends a named key, e.g. "enter", "escape" or "ctrl+u".
func (p *PTY) PressKey(ctx context.Context, key string) error {
	seq, err := KeySequence(key)
	if err != nil {
		return err
	}
	if err := p.write(ctx, seq); err != nil {
		return fmt.Errorf("failed to press %s: %w", key, err)
	}
	p.cfg.logger.Debug("pressed key", slog.String("key", key))
	p.sleep(ctx, p.cfg.keyDelay)
	return nil
}

// InvokeMenu opens the menu bar entry whose text is path[0] and then clicks
// each further entry in turn, waiting for it to appear first.
func (p *PTY) InvokeMenu(ctx context.Context, path ...string) error {
	if len(path) == 0 {
		return errors.New("menu path is empty")
	}

	bar, err := menuLocator("MenuBarItem", path[0])
	if err != nil {
		return err
	}
	if err := p.clickLocator(ctx, "menu", bar, 0); err != nil {
		return err
	}
	for _, text := range path[1:] {
		item, err := menuLocator("MenuItem", text)
		if err != nil {
			return err
		}
		if err := p.clickLocator(ctx, "menu", item, p.cfg.menuTimeout); err != nil {
			return err
		}
	}
	p.cfg.logger.Debug("invoked menu", slog.Any("path", path))
	return nil
}

func menuLocator(typ, text string) (locator.Locator, error) {
	return locator.New(locator.AnyApp, locator.Segment{
		Axis:  locator.Descendant,
		Type:  typ,
		Preds: []locator.Predicate{{Name: "text", Op: locator.OpEqual, Value: text}},
	})
}

// clickLocator clicks the widget l resolves to, first waiting up to
// timeout for it to exist.
func (p *PTY) clickLocator(ctx context.Context, op string, l locator.Locator, timeout time.Duration) error {
	var h *locator.Handle
	var lastErr error
	poller := wait.Poller{Interval: p.cfg.pollInterval, Notify: p.cfg.notify, Logger: p.cfg.logger}
	ok := poller.For(ctx, func(ctx context.Context) (bool, error) {
		h, lastErr = p.res.Resolve(ctx, l)
		return lastErr == nil, lastErr
	}, timeout)
	if !ok {
		if lastErr == nil {
			lastErr = ctx.Err()
		}
		return &DispatchError{Op: op, Locator: l, Err: lastErr}
	}
	return p.clickHandle(ctx, op, h, ButtonLeft, 1)
}

func (p *PTY) clickHandle(ctx context.Context, op string, h *locator.Handle, button, count int) error {
	if h == nil {
		return errors.New("nil handle")
	}
	live, err := p.revalidate(ctx, op, h)
	if err != nil {
		return err
	}
	x, y := live.Node.Bounds.Center()
	for i := 0; i < count; i++ {
		if err := p.click(ctx, x, y, button); err != nil {
			return err
		}
	}
	p.cfg.logger.Debug("dispatched click",
		slog.String("op", op),
		slog.String("locator", h.Locator.String()),
		slog.Int("x", x),
		slog.Int("y", y),
		slog.Uint64("seq", live.Seq))
	return nil
}

// revalidate re-resolves the handle's locator against the live tree.
func (p *PTY) revalidate(ctx context.Context, op string, h *locator.Handle) (*locator.Handle, error) {
	live, err := p.res.Resolve(ctx, h.Locator)
	if err != nil {
		return nil, &DispatchError{Op: op, Locator: h.Locator, Err: err}
	}
	if !live.Node.IsEnabled() {
		return nil, &DispatchError{Op: op, Locator: h.Locator, Err: errors.New("widget is disabled")}
	}
	if live.Node.Bounds.Empty() {
		return nil, &DispatchError{Op: op, Locator: h.Locator, Err: errors.New("widget has no on-screen area")}
	}
	return live, nil
}

// click sends an SGR press and release at the 0-indexed cell (x, y).
func (p *PTY) click(ctx context.Context, x, y, button int) error {
	press := fmt.Sprintf("\x1b[<%d;%d;%dM", button, x+1, y+1)
	release := fmt.Sprintf("\x1b[<%d;%d;%dm", button, x+1, y+1)
	if err := p.write(ctx, press); err != nil {
		return fmt.Errorf("failed to send mouse press: %w", err)
	}
	p.sleep(ctx, p.cfg.clickPause)
	if err := p.write(ctx, release); err != nil {
		return fmt.Errorf("failed to send mouse release: %w", err)
	}
	return nil
}

func (p *PTY) write(ctx context.Context, s string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := io.WriteString(p.w, s)
	return err
}

func (p *PTY) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
