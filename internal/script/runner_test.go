package script

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joeycumines/uidriver/internal/locator"
	"github.com/joeycumines/uidriver/internal/report"
	"github.com/joeycumines/uidriver/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	c, err := session.NewController(session.Config{SettingsBaseDir: t.TempDir()}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.TerminateAll() })
	return &Runner{Controller: c, Logger: discardLogger()}
}

func script(name string) string {
	return filepath.Join("testdata", "scripts", name)
}

func TestTestCaseName(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		path, want string
	}{
		{"suite/tst_new_class/test.js", "tst_new_class"},
		{"scripts/asserts.js", "asserts"},
		{"plain", "plain"},
	} {
		assert.Equal(t, tc.want, TestCaseName(tc.path), tc.path)
	}
}

func TestRunner_Assertions(t *testing.T) {
	t.Parallel()
	res := newTestRunner(t).Run(context.Background(), script("asserts.js"))

	assert.Equal(t, "asserts", res.Name)
	assert.Equal(t, report.OutcomeFail, res.Outcome)
	assert.Empty(t, res.Error)
	assert.Equal(t, report.Counts{Passed: 2, Failed: 1, Warnings: 1}, res.Counts)
	require.Len(t, res.Records, 5)
	assert.Equal(t, report.KindLog, res.Records[0].Kind)
	assert.Equal(t, `expected "b", got "a"`, res.Records[3].Detail)
}

func TestRunner_ThrownErrorIsErrorOutcome(t *testing.T) {
	t.Parallel()
	res := newTestRunner(t).Run(context.Background(), script("throws.js"))
	assert.Equal(t, report.OutcomeError, res.Outcome)
	assert.Contains(t, res.Error, "boom")
	assert.Equal(t, 1, res.Counts.Passed)
	assert.Equal(t, 2, res.Outcome.ExitCode())
}

func TestRunner_Skip(t *testing.T) {
	t.Parallel()
	res := newTestRunner(t).Run(context.Background(), script("skip.js"))
	assert.Equal(t, report.OutcomeSkipped, res.Outcome)
	assert.Equal(t, 0, res.Outcome.ExitCode())
}

func TestRunner_MissingMain(t *testing.T) {
	t.Parallel()
	res := newTestRunner(t).Run(context.Background(), script("nomain.js"))
	assert.Equal(t, report.OutcomeError, res.Outcome)
	assert.Contains(t, res.Error, "main function")
}

func TestRunner_MissingScript(t *testing.T) {
	t.Parallel()
	res := newTestRunner(t).Run(context.Background(), script("does_not_exist.js"))
	assert.Equal(t, report.OutcomeError, res.Outcome)
	assert.Contains(t, res.Error, "failed to read script")
}

func TestRunner_ModuleAndObjectMap(t *testing.T) {
	t.Parallel()
	r := newTestRunner(t)
	objects, err := locator.ParseObjectMap(strings.NewReader(`objects:
  ":IDE_MainWindow": "fakeide:/MainWindow{title~='Fake IDE'}"
`))
	require.NoError(t, err)
	r.Objects = objects

	res := r.Run(context.Background(), script("module.js"))
	assert.Equal(t, report.OutcomePass, res.Outcome, "records: %+v error: %s", res.Records, res.Error)
	assert.Equal(t, 3, res.Counts.Passed)
}

func TestRunner_LaunchFailureThrows(t *testing.T) {
	t.Parallel()
	res := newTestRunner(t).Run(context.Background(), script("launch_failure.js"))
	assert.Equal(t, report.OutcomePass, res.Outcome, "records: %+v error: %s", res.Records, res.Error)
	assert.Equal(t, 2, res.Counts.Passed)
}

func TestRunner_ContextCancelInterruptsScript(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	res := newTestRunner(t).Run(ctx, script("spin.js"))
	assert.Equal(t, report.OutcomeError, res.Outcome)
	assert.Contains(t, res.Error, "interrupted")
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestFindObjectMap(t *testing.T) {
	t.Parallel()
	m, err := FindObjectMap(filepath.Join("testdata", "suite_general", "tst_new_class"))
	require.NoError(t, err)
	require.NotNil(t, m)
	l, ok := m.Lookup(":IDE_CppEditor")
	require.True(t, ok)
	assert.Equal(t, "fakeide:/MainWindow{title~='Fake IDE'}/TextEditor{name='CppEditor'}", l.String())

	m, err = FindObjectMap(t.TempDir())
	assert.NoError(t, err)
	assert.Nil(t, m)
}
