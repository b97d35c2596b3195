//go:build unix

package command

import (
	"flag"
	"fmt"
	"os"
	"testing"

	"github.com/joeycumines/uidriver/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	fakeIDEPath string
	fakeIDEErr  error
)

// TestMain builds the fake IDE once before any tests run.
func TestMain(m *testing.M) {
	flag.Parse()
	var buildDir string
	if !testing.Short() {
		var err error
		buildDir, err = os.MkdirTemp("", "uidriver-command-test-")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create build dir: %v\n", err)
			os.Exit(1)
		}
		fakeIDEPath, fakeIDEErr = testutil.BuildFakeIDE(buildDir)
	}
	code := m.Run()
	if buildDir != "" {
		_ = os.RemoveAll(buildDir)
	}
	os.Exit(code)
}

func TestTreeCommand_FakeIDE(t *testing.T) {
	testutil.SkipUnlessPTY(t)
	require.NoError(t, fakeIDEErr)

	cmd := NewTreeCommand(runConfig(t))
	stdout, _, err := execute(t, cmd, "-depth", "2", "-screen", "-wait", "fakeide:/MainWindow//Label{name='Welcome'}", "--", fakeIDEPath)
	require.NoError(t, err)

	assert.Contains(t, stdout, "fakeide (seq ")
	assert.Contains(t, stdout, `MainWindow name="MainWindow"`)
	assert.Contains(t, stdout, `  MenuBar`)
	assert.NotContains(t, stdout, "MenuBarItem", "depth 2 stops above the menu bar items")
	assert.Contains(t, stdout, "Welcome to Fake IDE")
}

func TestTreeCommand_LaunchFailure(t *testing.T) {
	testutil.SkipUnlessPTY(t)
	cmd := NewTreeCommand(runConfig(t))
	_, _, err := execute(t, cmd, "--", "/nonexistent/uidriver-app")
	assert.ErrorContains(t, err, "launch failure")
}
