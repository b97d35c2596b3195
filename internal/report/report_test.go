package report

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepClock starts at a fixed instant and advances 100ms per call.
func stepClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	first := true
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		if first {
			first = false
			return t
		}
		t = t.Add(100 * time.Millisecond)
		return t
	}
}

func newTestReport(name string) *Report {
	return New(name, WithClock(stepClock()), WithID("run-1"))
}

func failingRun() Result {
	r := newTestReport("tst_new_class")
	r.Log("started application")
	r.Verify(true, "Main window title contains mynewclass.cpp")
	r.Compare("a.h", "mynewclass.h", "Header file name")
	r.Warning("Slow startup", "took 3s")
	return r.Finish(nil)
}

func erroredRun() Result {
	r := newTestReport("tst_new_class")
	r.Log("starting")
	r.Fatal("Plugin errors", "Failed to load plugin 'Broken'")
	return r.Finish(errors.New("application exited"))
}

func TestOutcome(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		build func(r *Report)
		err   error
		want  Outcome
	}{
		{"empty passes", func(r *Report) {}, nil, OutcomePass},
		{"all verified", func(r *Report) { r.Verify(true, "a"); r.Log("x"); r.Warning("w", "") }, nil, OutcomePass},
		{"one failure", func(r *Report) { r.Verify(true, "a"); r.Verify(false, "b") }, nil, OutcomeFail},
		{"fail call", func(r *Report) { r.Fail("f", "detail") }, nil, OutcomeFail},
		{"harness error", func(r *Report) { r.Verify(true, "a") }, errors.New("launch failed"), OutcomeError},
		{"fatal record", func(r *Report) { r.Fatal("plugin", "broken") }, nil, OutcomeError},
		{"error beats fail", func(r *Report) { r.Verify(false, "b") }, errors.New("x"), OutcomeError},
		{"skipped", func(r *Report) { r.Skip("no compiler") }, nil, OutcomeSkipped},
		{"fail beats skip", func(r *Report) { r.Verify(false, "b"); r.Skip("later") }, nil, OutcomeFail},
		{"error beats skip", func(r *Report) { r.Skip("s") }, errors.New("x"), OutcomeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := newTestReport(tt.name)
			tt.build(r)
			assert.Equal(t, tt.want, r.Finish(tt.err).Outcome)
		})
	}
}

func TestOutcome_ExitCode(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0, OutcomePass.ExitCode())
	assert.Equal(t, 0, OutcomeSkipped.ExitCode())
	assert.Equal(t, 1, OutcomeFail.ExitCode())
	assert.Equal(t, 2, OutcomeError.ExitCode())
}

func TestVerify_AppendsExactlyOneRecord(t *testing.T) {
	t.Parallel()

	r := newTestReport("t")
	assert.True(t, r.Verify(true, "yes"))
	assert.False(t, r.Verify(false, "no"))

	recs := r.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, Record{Kind: KindPass, Label: "yes", Passed: true, Time: recs[0].Time}, recs[0])
	assert.Equal(t, Record{Kind: KindFail, Label: "no", Passed: false, Time: recs[1].Time}, recs[1])
	assert.True(t, recs[1].Time.After(recs[0].Time))
}

func TestCompare(t *testing.T) {
	t.Parallel()

	r := newTestReport("t")
	assert.True(t, r.Compare(3, 3.0, "int vs float"))
	assert.True(t, r.Compare(int64(7), uint8(7), "mixed ints"))
	assert.True(t, r.Compare("x", "x", "strings"))
	assert.True(t, r.Compare([]string{"a"}, []string{"a"}, "slices"))
	assert.False(t, r.Compare("3", 3, "string vs number"))
	assert.False(t, r.Compare(nil, "x", "nil"))

	recs := r.Records()
	require.Len(t, recs, 6)
	assert.Equal(t, `expected 3, got "3"`, recs[4].Detail)
	assert.Equal(t, `expected "x", got null`, recs[5].Detail)
}

func TestFinish_FreezesReport(t *testing.T) {
	t.Parallel()

	r := newTestReport("t")
	r.Verify(true, "before")
	first := r.Finish(nil)

	r.Verify(false, "after")
	assert.Len(t, r.Records(), 1, "records after Finish are dropped")
	second := r.Finish(errors.New("ignored"))
	assert.Equal(t, first, second)
	assert.Equal(t, OutcomePass, second.Outcome)
}

func TestFinish_Counts(t *testing.T) {
	t.Parallel()

	res := failingRun()
	assert.Equal(t, Counts{Passed: 1, Failed: 1, Warnings: 1}, res.Counts)
	assert.Equal(t, 500*time.Millisecond, res.Duration)
	assert.Equal(t, "run-1", res.ID)
}

func TestNew_GeneratesID(t *testing.T) {
	t.Parallel()
	a, b := New("a"), New("b")
	assert.Len(t, a.ID(), 36)
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, "a", a.Name())
}

func TestReport_ConcurrentRecords(t *testing.T) {
	t.Parallel()

	r := New("t")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				r.Verify(true, "ok")
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 400, r.Finish(nil).Counts.Passed)
}

func TestWriteText_Golden(t *testing.T) {
	t.Parallel()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, failingRun(), TextOptions{}))
	g.Assert(t, "fail.txt", buf.Bytes())

	buf.Reset()
	require.NoError(t, WriteText(&buf, erroredRun(), TextOptions{}))
	g.Assert(t, "error.txt", buf.Bytes())
}

func TestWriteJSON_Golden(t *testing.T) {
	t.Parallel()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, failingRun()))
	g.Assert(t, "fail.json", buf.Bytes())

	buf.Reset()
	require.NoError(t, WriteJSON(&buf, erroredRun()))
	g.Assert(t, "error.json", buf.Bytes())
}

func TestWriteText_Color(t *testing.T) {
	t.Parallel()

	var plain, colored bytes.Buffer
	require.NoError(t, WriteText(&plain, failingRun(), TextOptions{}))
	require.NoError(t, WriteText(&colored, failingRun(), TextOptions{Color: true}))
	assert.NotContains(t, plain.String(), "\x1b[")
	assert.Contains(t, colored.String(), "\x1b[")
	assert.Contains(t, colored.String(), "PASS")
}

func TestWrite_Formats(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, failingRun(), "json", TextOptions{}))
	assert.Contains(t, buf.String(), `"outcome": "fail"`)

	buf.Reset()
	require.NoError(t, Write(&buf, failingRun(), "", TextOptions{}))
	assert.Contains(t, buf.String(), "Outcome: FAIL")

	assert.Error(t, Write(&buf, failingRun(), "xml", TextOptions{}))
}
