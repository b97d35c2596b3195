package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/joeycumines/uidriver/internal/input"
	"github.com/joeycumines/uidriver/internal/locator"
	"github.com/joeycumines/uidriver/internal/report"
	"github.com/joeycumines/uidriver/internal/uitree"
	"github.com/joeycumines/uidriver/internal/wait"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// newDetachedSession builds a session with no process behind it. Trees
// published on the returned emitter reach the session through a pipe,
// exactly as they would from a launched application.
func newDetachedSession(t *testing.T, cfg Config, rep *report.Report) (*Session, *uitree.Emitter, *lockedBuffer) {
	t.Helper()
	cfg = cfg.withDefaults()
	require.NoError(t, cfg.validate())

	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })

	s := &Session{
		id:       "ex--detached",
		command:  "detached",
		hook:     uitree.NewReader(pr, nil),
		cfg:      cfg,
		report:   rep,
		logger:   discardLogger(),
		exited:   make(chan struct{}),
		exitCode: -1,
		started:  time.Now(),
	}
	s.resolver = locator.NewResolver(s, s.logger)
	out := &lockedBuffer{}
	var err error
	s.input, err = input.NewPTY(out, s.resolver,
		input.WithClickPause(0),
		input.WithKeyDelay(0),
		input.WithMenuTimeout(cfg.MenuTimeout),
		input.WithPolling(cfg.PollInterval, s.hook.Changed))
	require.NoError(t, err)
	return s, uitree.NewEmitter(pw, "fakeide"), out
}

func publish(t *testing.T, em *uitree.Emitter, s *Session, root *uitree.Node) {
	t.Helper()
	changed := s.hook.Changed()
	go func() { _ = em.Publish(root) }()
	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("snapshot never arrived")
	}
}

func mainWindow(children ...*uitree.Node) *uitree.Node {
	return &uitree.Node{Type: "Application", Children: []*uitree.Node{{
		Type:     "MainWindow",
		Props:    map[string]string{"title": "Fake IDE"},
		Bounds:   uitree.Bounds{Width: 80, Height: 24},
		Children: children,
	}}}
}

func TestSession_SnapshotStates(t *testing.T) {
	t.Parallel()
	s, em, _ := newDetachedSession(t, Config{}, nil)
	ctx := context.Background()

	_, err := s.Snapshot(ctx)
	assert.ErrorIs(t, err, ErrNoTree)

	publish(t, em, s, mainWindow())
	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fakeide", snap.App)

	close(s.exited)
	_, err = s.Snapshot(ctx)
	assert.ErrorIs(t, err, ErrNotRunning)
	assert.False(t, s.Alive())
}

func TestSession_SnapshotAfterHookCloses(t *testing.T) {
	t.Parallel()
	s, em, _ := newDetachedSession(t, Config{}, nil)
	ctx := context.Background()

	publish(t, em, s, mainWindow())
	require.NoError(t, em.Close())
	select {
	case <-s.hook.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("hook reader did not stop")
	}

	_, err := s.Snapshot(ctx)
	require.ErrorIs(t, err, ErrHookClosed)
	assert.True(t, s.Alive())

	_, err = s.Resolve(ctx, locator.MustParse("fakeide:/MainWindow"))
	assert.ErrorIs(t, err, ErrHookClosed)
}

func TestSession_WaitForObject(t *testing.T) {
	t.Parallel()
	s, em, _ := newDetachedSession(t, Config{PollInterval: 5 * time.Millisecond}, nil)
	publish(t, em, s, mainWindow())
	l := locator.MustParse("fakeide:/MainWindow/PushButton{text='Finish'}")

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = em.Publish(mainWindow(&uitree.Node{Type: "PushButton", Text: "Finish", Bounds: uitree.Bounds{X: 5, Y: 5, Width: 8, Height: 1}}))
	}()
	h, err := s.WaitForObject(context.Background(), l, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "Finish", h.Node.Text)
}

func TestSession_WaitForObjectDisabledTimesOut(t *testing.T) {
	t.Parallel()
	s, em, _ := newDetachedSession(t, Config{PollInterval: 5 * time.Millisecond}, nil)
	publish(t, em, s, mainWindow(&uitree.Node{Type: "PushButton", Text: "Finish", Enabled: uitree.Bool(false)}))

	_, err := s.WaitForObject(context.Background(), locator.MustParse("*://PushButton{text='Finish'}"), 50*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, wait.ErrTimeout)
	assert.Contains(t, err.Error(), "disabled")
}

func TestSession_WaitForObjectReportsLastResolveError(t *testing.T) {
	t.Parallel()
	s, em, _ := newDetachedSession(t, Config{PollInterval: 5 * time.Millisecond}, nil)
	publish(t, em, s, mainWindow(
		&uitree.Node{Type: "PushButton", Text: "A"},
		&uitree.Node{Type: "PushButton", Text: "B"},
	))

	_, err := s.WaitForObject(context.Background(), locator.MustParse("*://PushButton"), 40*time.Millisecond)
	assert.ErrorIs(t, err, wait.ErrTimeout)
	assert.ErrorIs(t, err, locator.ErrAmbiguous)
}

func TestSession_WaitForExpr(t *testing.T) {
	t.Parallel()
	s, em, _ := newDetachedSession(t, Config{PollInterval: 5 * time.Millisecond}, nil)
	publish(t, em, s, mainWindow(&uitree.Node{Type: "TextEditor", Name: "CppEditor", Props: map[string]string{"file": "/tmp/x.cpp"}}))

	ok, err := s.WaitForExpr(context.Background(),
		`exists("*://TextEditor{name='CppEditor'}") && prop("*://TextEditor", "file") endsWith suffix`,
		map[string]any{"suffix": ".cpp"}, time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.WaitForExpr(context.Background(), `count("*://PushButton") > 0`, nil, 30*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.WaitForExpr(context.Background(), `exists(`, nil, time.Second)
	assert.Error(t, err)
}

func TestSession_LookupUsesObjectMap(t *testing.T) {
	t.Parallel()
	s, _, _ := newDetachedSession(t, Config{}, nil)
	objects, err := locator.ParseObjectMap(strings.NewReader(`objects:
  ":IDE_MainWindow": "fakeide:/MainWindow"
`))
	require.NoError(t, err)
	s.objects = objects

	l, err := s.Lookup(":IDE_MainWindow")
	require.NoError(t, err)
	assert.Equal(t, "fakeide:/MainWindow", l.String())

	_, err = s.Lookup(":Missing")
	assert.ErrorIs(t, err, locator.ErrUnknownName)
}

func TestSession_ClickWritesToTerminal(t *testing.T) {
	t.Parallel()
	s, em, out := newDetachedSession(t, Config{}, nil)
	publish(t, em, s, mainWindow(&uitree.Node{Type: "PushButton", Text: "OK", Bounds: uitree.Bounds{X: 10, Y: 5, Width: 6, Height: 1}}))

	h, err := s.FindObject(context.Background(), locator.MustParse("*://PushButton{text='OK'}"))
	require.NoError(t, err)
	require.NoError(t, s.Click(context.Background(), h))
	assert.Equal(t, "\x1b[<0;14;6M\x1b[<0;14;6m", out.String())
}

func TestSession_Screen(t *testing.T) {
	t.Parallel()
	s, _, _ := newDetachedSession(t, Config{Rows: 4, Cols: 20}, nil)
	s.output.limit = maxOutputSize
	s.output.Write([]byte("\x1b[2J\x1b[Hhello\r\n\x1b[1mworld\x1b[0m\r\n"))
	assert.Equal(t, "hello\nworld", s.Screen())
}

func TestOutputBuffer_Limit(t *testing.T) {
	t.Parallel()
	var b outputBuffer
	b.limit = 8
	b.Write([]byte("0123456789"))
	assert.Equal(t, "6789", b.String())
	b.Write([]byte("ab"))
	assert.Equal(t, "6789ab", b.String())
}

func TestSession_PluginErrorGate(t *testing.T) {
	t.Parallel()
	rep := report.New("tst_gate", report.WithLogger(discardLogger()))
	s, em, out := newDetachedSession(t, Config{
		PollInterval: 5 * time.Millisecond,
		GateTimeout:  200 * time.Millisecond,
		MenuTimeout:  50 * time.Millisecond,
	}, rep)
	publish(t, em, s, mainWindow(&uitree.Node{
		Type:   "Dialog",
		Name:   "PluginErrorOverview",
		Bounds: uitree.Bounds{X: 10, Y: 5, Width: 40, Height: 10},
		Children: []*uitree.Node{
			{Type: "TextView", Name: "pluginError", Text: "Plugin Foo failed to load"},
			{Type: "PushButton", Text: "Close", Bounds: uitree.Bounds{X: 20, Y: 13, Width: 7, Height: 1}},
		},
	}))

	assert.False(t, s.StartedWithoutPluginError(context.Background()))
	assert.Contains(t, out.String(), "\x1b[<0;24;14M")

	recs := rep.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, report.KindFatal, recs[0].Kind)
	assert.Equal(t, "Plugin errors", recs[0].Label)
	assert.Equal(t, "Plugin Foo failed to load", recs[0].Detail)
	assert.Equal(t, report.OutcomeError, rep.Finish(nil).Outcome)
}

func TestSession_PluginErrorGatePasses(t *testing.T) {
	t.Parallel()
	rep := report.New("tst_gate", report.WithLogger(discardLogger()))
	s, em, out := newDetachedSession(t, Config{PollInterval: 5 * time.Millisecond, GateTimeout: 30 * time.Millisecond}, rep)
	publish(t, em, s, mainWindow())

	assert.True(t, s.StartedWithoutPluginError(context.Background()))
	assert.Empty(t, out.String())
	assert.Empty(t, rep.Records())
}

func TestLaunchError(t *testing.T) {
	t.Parallel()
	err := error(&LaunchError{Command: "fakeide -x", Reason: "no widget tree within 1s", Output: "  boom\n"})
	assert.True(t, errors.Is(err, ErrLaunchFailure))
	assert.Equal(t, "launch failure: fakeide -x: no widget tree within 1s\nboom", err.Error())
}

func TestConfig_Defaults(t *testing.T) {
	t.Parallel()
	cfg := Config{WaitTimeout: time.Second}.withDefaults()
	d := DefaultConfig()
	assert.Equal(t, time.Second, cfg.WaitTimeout)
	assert.Equal(t, d.StartupTimeout, cfg.StartupTimeout)
	assert.Equal(t, d.SettingsFlag, cfg.SettingsFlag)
	assert.Equal(t, DefaultPluginErrorLocator, cfg.PluginErrorLocator)
	assert.Equal(t, 24, cfg.Rows)
	assert.Equal(t, 80, cfg.Cols)
}

func TestNewController_RejectsBadLocator(t *testing.T) {
	t.Parallel()
	_, err := NewController(Config{PluginErrorLocator: "not a locator"}, discardLogger())
	assert.ErrorIs(t, err, locator.ErrSyntax)
}

func TestController_StartWithoutCommand(t *testing.T) {
	t.Parallel()
	c, err := NewController(Config{SettingsBaseDir: t.TempDir()}, discardLogger())
	require.NoError(t, err)
	_, err = c.Start(context.Background(), Options{})
	assert.ErrorIs(t, err, ErrLaunchFailure)
	assert.Empty(t, c.Sessions())
}
