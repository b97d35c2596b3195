// Command fakeide is a small terminal IDE used as the application under
// test in integration tests. It draws a menu bar, a document editor and a
// few modal dialogs with bubbletea, and publishes its widget tree over the
// automation hook when launched by the harness.
//
//	fakeide [-settingspath dir] [-broken-plugin name]
package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joeycumines/uidriver/internal/uitree"
	zone "github.com/lrstanley/bubblezone"
)

const version = "1.0.0"

func main() {
	settingsPath := flag.String("settingspath", "", "directory for persistent settings")
	brokenPlugin := flag.String("broken-plugin", "", "simulate a plugin that fails to load")
	flag.Parse()

	if err := run(*settingsPath, *brokenPlugin); err != nil {
		fmt.Fprintf(os.Stderr, "fakeide: %v\n", err)
		os.Exit(1)
	}
}

func run(settingsPath, brokenPlugin string) error {
	if settingsPath != "" {
		if _, err := recordLaunch(settingsPath); err != nil {
			return err
		}
	}

	em, err := uitree.NewEmitterFromEnv(appName)
	if err != nil {
		return err
	}
	defer em.Close()

	zm := zone.New()
	defer zm.Close()

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	m := newModel(zm, em, cwd)
	if brokenPlugin != "" {
		m.showDialog(pluginErrorDialog(brokenPlugin))
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
