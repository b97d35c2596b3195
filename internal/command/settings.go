package command

import (
	"io"
	"os"

	"github.com/joeycumines/uidriver/internal/config"
	"github.com/joeycumines/uidriver/internal/session"
	"golang.org/x/term"
)

// sessionConfig maps resolved settings onto the session controller.
func sessionConfig(s config.Settings) session.Config {
	return session.Config{
		SettingsBaseDir:    s.SettingsBaseDir,
		SettingsFlag:       s.SettingsFlag,
		KeepSettings:       s.KeepSettings,
		StartupTimeout:     s.StartupTimeout,
		GateTimeout:        s.GateTimeout,
		WaitTimeout:        s.WaitTimeout,
		MenuTimeout:        s.MenuTimeout,
		PollInterval:       s.WaitInterval,
		Rows:               s.Rows,
		Cols:               s.Cols,
		PluginErrorLocator: s.PluginErrorLocator,
	}
}

// useColor decides whether text written to w gets ANSI colours. "auto"
// colours terminals unless NO_COLOR is set.
func useColor(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
