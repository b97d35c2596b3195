package command

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joeycumines/uidriver/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute parses args into a fresh FlagSet the way main does and runs cmd.
func execute(t *testing.T, cmd Command, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cmd.SetupFlags(fs)
	require.NoError(t, fs.Parse(args))
	var out, errOut bytes.Buffer
	err = cmd.Execute(context.Background(), fs.Args(), &out, &errOut)
	return out.String(), errOut.String(), err
}

func runConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("UIDRIVER_LOG_LEVEL", "")
	t.Setenv("UIDRIVER_LOG_FILE", "")
	cfg := config.NewConfig()
	cfg.SetGlobalOption(config.KeySettingsBaseDir, t.TempDir())
	cfg.SetGlobalOption(config.KeyLogLevel, "error")
	return cfg
}

func exitCodeOf(err error) int {
	var exit *ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}
	if err != nil {
		return -1
	}
	return 0
}

func TestCollectScripts(t *testing.T) {
	t.Parallel()
	scripts, err := collectScripts([]string{filepath.Join("testdata", "suite"), filepath.Join("testdata", "suite", "tst_pass", "test.js")})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("testdata", "suite", "tst_fail", "test.js"),
		filepath.Join("testdata", "suite", "tst_pass", "test.js"),
		filepath.Join("testdata", "suite", "tst_pass", "test.js"),
	}, scripts)

	_, err = collectScripts([]string{filepath.Join("testdata", "suite", "shared")})
	assert.ErrorContains(t, err, "no test cases")
	_, err = collectScripts([]string{filepath.Join("testdata", "missing.js")})
	assert.Error(t, err)
}

func TestRunCommand_Suite(t *testing.T) {
	cmd := NewRunCommand(runConfig(t))
	stdout, _, err := execute(t, cmd, "-format", "json", filepath.Join("testdata", "suite"))

	assert.Equal(t, 1, exitCodeOf(err))
	assert.ErrorContains(t, err, "1 of 2 test cases did not pass")

	dec := json.NewDecoder(strings.NewReader(stdout))
	var outcomes []string
	for dec.More() {
		var res struct {
			Name    string `json:"name"`
			Outcome string `json:"outcome"`
		}
		require.NoError(t, dec.Decode(&res))
		outcomes = append(outcomes, res.Name+"="+res.Outcome)
	}
	assert.Equal(t, []string{"tst_fail=fail", "tst_pass=pass"}, outcomes)
}

func TestRunCommand_FailFast(t *testing.T) {
	cmd := NewRunCommand(runConfig(t))
	stdout, _, err := execute(t, cmd, "-fail-fast", filepath.Join("testdata", "suite"))
	assert.Equal(t, 1, exitCodeOf(err))
	assert.Contains(t, stdout, "Test case: tst_fail")
	assert.NotContains(t, stdout, "Test case: tst_pass")
}

func TestRunCommand_KeepGoingConfig(t *testing.T) {
	cfg := runConfig(t)
	cfg.SetCommandOption("run", "keep-going", "false")
	stdout, _, err := execute(t, NewRunCommand(cfg), filepath.Join("testdata", "suite"))
	assert.Equal(t, 1, exitCodeOf(err))
	assert.NotContains(t, stdout, "Test case: tst_pass")
}

func TestRunCommand_InvalidKeepGoingKeepsDefault(t *testing.T) {
	cfg := runConfig(t)
	cfg.SetCommandOption("run", "keep-going", "maybe")
	stdout, _, err := execute(t, NewRunCommand(cfg), filepath.Join("testdata", "suite"))
	assert.Equal(t, 1, exitCodeOf(err))
	assert.Contains(t, stdout, "Test case: tst_pass")
}

func TestRunCommand_Pass(t *testing.T) {
	cmd := NewRunCommand(runConfig(t))
	stdout, _, err := execute(t, cmd, filepath.Join("testdata", "suite", "tst_pass", "test.js"))
	require.NoError(t, err)
	assert.Contains(t, stdout, "PASS")
	assert.Contains(t, stdout, "object map found")
	assert.NotContains(t, stdout, "\x1b[", "reports to a buffer are not coloured")
}

func TestRunCommand_ObjectsFlagReplacesSuiteMap(t *testing.T) {
	cmd := NewRunCommand(runConfig(t))
	_, _, err := execute(t, cmd, "-objects", filepath.Join("testdata", "broken.yaml"), filepath.Join("testdata", "suite", "tst_pass", "test.js"))
	assert.Equal(t, 2, exitCodeOf(err))
	assert.ErrorContains(t, err, "unknown symbolic name")
}

func TestRunCommand_Errors(t *testing.T) {
	_, stderr, err := execute(t, NewRunCommand(runConfig(t)))
	assert.Equal(t, 2, exitCodeOf(err))
	assert.Contains(t, stderr, "no test scripts given")

	cfg := runConfig(t)
	cfg.SetGlobalOption(config.KeyReportFormat, "xml")
	_, _, err = execute(t, NewRunCommand(cfg), filepath.Join("testdata", "suite", "tst_pass", "test.js"))
	assert.Equal(t, 2, exitCodeOf(err))
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestRunCommand_AppFlag(t *testing.T) {
	cmd := NewRunCommand(nil)
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cmd.SetupFlags(fs)
	require.NoError(t, fs.Parse([]string{"-app", "fakeide=/opt/fakeide", "-app", "other=./bin/other"}))
	assert.Equal(t, map[string]string{"fakeide": "/opt/fakeide", "other": "./bin/other"}, cmd.apps)
	assert.Error(t, fs.Parse([]string{"-app", "nopath"}))
}
