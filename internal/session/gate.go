package session

import (
	"context"
	"log/slog"
	"strings"

	"github.com/joeycumines/uidriver/internal/locator"
)

// StartedWithoutPluginError checks that the application came up without
// its plugin error dialog. If the dialog appears within the gate timeout,
// its text is recorded as a fatal record, the dialog is closed, the
// application is asked to exit through File > Exit, and false is returned.
//
// A test should return immediately when this reports false.
func (s *Session) StartedWithoutPluginError(ctx context.Context) bool {
	dialog, err := locator.Parse(s.cfg.PluginErrorLocator)
	if err != nil {
		// validated by NewController
		s.logger.Error("invalid plugin error locator", slog.Any("error", err))
		return true
	}

	var h *locator.Handle
	found := s.poller().For(ctx, func(ctx context.Context) (bool, error) {
		var err error
		h, err = s.resolver.Resolve(ctx, dialog)
		return err == nil, err
	}, s.cfg.GateTimeout)
	if !found {
		return true
	}

	text := s.pluginErrorText(ctx, h)
	s.logger.Warn("application reported plugin errors", slog.String("details", text))
	if s.report != nil {
		s.report.Fatal("Plugin errors", text)
	}

	closeButton, err := h.Locator.Child(locator.Segment{
		Axis:  locator.Descendant,
		Type:  "PushButton",
		Preds: []locator.Predicate{{Name: "text", Op: locator.OpEqual, Value: "Close"}},
	})
	if err == nil {
		if btn, err := s.resolver.Resolve(ctx, closeButton); err == nil {
			if err := s.input.Click(ctx, btn); err != nil {
				s.logger.Warn("failed to close plugin error dialog", slog.Any("error", err))
			}
		}
	}
	// the menu only becomes reachable once the modal dialog is gone
	s.poller().For(ctx, func(ctx context.Context) (bool, error) {
		ok, err := s.resolver.Exists(ctx, dialog)
		return !ok && err == nil, err
	}, s.cfg.GateTimeout)
	if err := s.input.InvokeMenu(ctx, "File", "Exit"); err != nil {
		s.logger.Warn("failed to exit after plugin errors", slog.Any("error", err))
	}
	return false
}

func (s *Session) pluginErrorText(ctx context.Context, h *locator.Handle) string {
	views, err := h.Locator.Child(locator.Segment{Axis: locator.Descendant, Type: "TextView"})
	if err == nil {
		if hs, err := s.resolver.FindAll(ctx, views); err == nil && len(hs) > 0 {
			parts := make([]string, 0, len(hs))
			for _, v := range hs {
				if t := strings.TrimSpace(v.Node.Text); t != "" {
					parts = append(parts, t)
				}
			}
			if len(parts) > 0 {
				return strings.Join(parts, "\n")
			}
		}
	}
	if t := strings.TrimSpace(h.Node.Text); t != "" {
		return t
	}
	return h.Node.Name
}
