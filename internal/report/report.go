// Package report collects the labelled checks of one test case and derives
// its outcome.
//
// Checks never abort a test case: a failed Verify or Compare is recorded
// and execution continues, so one run can surface several independent
// defects. Harness-level failures are recorded with Fatal, or passed to
// Finish as an error, and turn the outcome into "error".
package report

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind classifies a record.
type Kind string

const (
	KindPass    Kind = "pass"
	KindFail    Kind = "fail"
	KindFatal   Kind = "fatal"
	KindWarning Kind = "warning"
	KindLog     Kind = "log"
	KindSkip    Kind = "skip"
)

// Outcome is the overall result of a test case.
type Outcome string

const (
	OutcomePass    Outcome = "pass"
	OutcomeFail    Outcome = "fail"
	OutcomeError   Outcome = "error"
	OutcomeSkipped Outcome = "skipped"
)

// ExitCode maps an outcome to a process exit status: 0 for pass and
// skipped, 1 for fail, 2 for error.
func (o Outcome) ExitCode() int {
	switch o {
	case OutcomePass, OutcomeSkipped:
		return 0
	case OutcomeFail:
		return 1
	}
	return 2
}

// Record is one entry of a report.
type Record struct {
	Kind   Kind      `json:"kind"`
	Label  string    `json:"label"`
	Passed bool      `json:"passed"`
	Detail string    `json:"detail,omitempty"`
	Time   time.Time `json:"time"`
}

// Counts tallies records by kind.
type Counts struct {
	Passed   int `json:"passed"`
	Failed   int `json:"failed"`
	Fatal    int `json:"fatal"`
	Warnings int `json:"warnings"`
	Skipped  int `json:"skipped"`
}

// Result is the frozen state of a finished report.
type Result struct {
	ID       string
	Name     string
	Outcome  Outcome
	Error    string
	Started  time.Time
	Duration time.Duration
	Counts   Counts
	Records  []Record
}

// Report accumulates records for one test case. It is safe for use from
// multiple goroutines.
type Report struct {
	mu       sync.Mutex
	id       string
	name     string
	started  time.Time
	records  []Record
	finished bool
	result   Result
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Report.
type Option func(*Report)

// WithLogger sets the logger records are mirrored to.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Report) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Report) {
		if now != nil {
			r.now = now
		}
	}
}

// WithID sets the run ID instead of generating one.
func WithID(id string) Option {
	return func(r *Report) {
		r.id = id
	}
}

// New starts a report for the named test case.
func New(name string, opts ...Option) *Report {
	r := &Report{
		name:   name,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.id == "" {
		r.id = uuid.NewString()
	}
	r.started = r.now()
	return r
}

// Name returns the test case name.
func (r *Report) Name() string {
	return r.name
}

// ID returns the run ID.
func (r *Report) ID() string {
	return r.id
}

// Verify records a pass or fail for cond and returns cond.
func (r *Report) Verify(cond bool, label string) bool {
	if cond {
		r.add(KindPass, label, "")
	} else {
		r.add(KindFail, label, "")
	}
	return cond
}

// Compare records whether actual equals expected and returns the result.
// Numbers compare by value regardless of their Go type.
func (r *Report) Compare(actual, expected any, label string) bool {
	if equalValues(actual, expected) {
		r.add(KindPass, label, "")
		return true
	}
	r.add(KindFail, label, fmt.Sprintf("expected %s, got %s", formatValue(expected), formatValue(actual)))
	return false
}

// Fail records an unconditional failure.
func (r *Report) Fail(label, detail string) {
	r.add(KindFail, label, detail)
}

// Fatal records a harness-level error. The outcome becomes "error".
func (r *Report) Fatal(label, detail string) {
	r.add(KindFatal, label, detail)
}

// Warning records a warning. Warnings do not affect the outcome.
func (r *Report) Warning(label, detail string) {
	r.add(KindWarning, label, detail)
}

// Log records an informational message.
func (r *Report) Log(message string) {
	r.add(KindLog, message, "")
}

// Skip marks the test case skipped. The outcome is "skipped" unless
// something failed.
func (r *Report) Skip(reason string) {
	r.add(KindSkip, reason, "")
}

// Records returns a copy of the records so far.
func (r *Report) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Record(nil), r.records...)
}

func (r *Report) add(kind Kind, label, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finished {
		r.logger.Warn("record after finish dropped",
			slog.String("test", r.name),
			slog.String("kind", string(kind)),
			slog.String("label", label))
		return
	}

	rec := Record{
		Kind:   kind,
		Label:  label,
		Passed: kind != KindFail && kind != KindFatal,
		Detail: detail,
		Time:   r.now(),
	}
	r.records = append(r.records, rec)

	level := slog.LevelDebug
	switch kind {
	case KindFail:
		level = slog.LevelInfo
	case KindFatal, KindWarning:
		level = slog.LevelWarn
	}
	r.logger.Log(context.Background(), level, "test record",
		slog.String("test", r.name),
		slog.String("kind", string(kind)),
		slog.String("label", label),
		slog.String("detail", detail))
}

// Finish freezes the report and returns its result. err is a harness
// error that ended the test case early. Calling Finish again returns the
// first result.
func (r *Report) Finish(err error) Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return r.result
	}
	r.finished = true

	res := Result{
		ID:       r.id,
		Name:     r.name,
		Started:  r.started,
		Duration: r.now().Sub(r.started),
		Records:  append([]Record(nil), r.records...),
	}
	for _, rec := range r.records {
		switch rec.Kind {
		case KindPass:
			res.Counts.Passed++
		case KindFail:
			res.Counts.Failed++
		case KindFatal:
			res.Counts.Fatal++
		case KindWarning:
			res.Counts.Warnings++
		case KindSkip:
			res.Counts.Skipped++
		}
	}
	if err != nil {
		res.Error = err.Error()
	}
	res.Outcome = outcome(err, res.Counts)
	r.result = res

	r.logger.Info("test finished",
		slog.String("test", r.name),
		slog.String("outcome", string(res.Outcome)),
		slog.Int("passed", res.Counts.Passed),
		slog.Int("failed", res.Counts.Failed),
		slog.Duration("duration", res.Duration))
	return res
}

func outcome(err error, c Counts) Outcome {
	switch {
	case err != nil || c.Fatal > 0:
		return OutcomeError
	case c.Failed > 0:
		return OutcomeFail
	case c.Skipped > 0:
		return OutcomeSkipped
	}
	return OutcomePass
}

func equalValues(a, b any) bool {
	if x, ok := toFloat(a); ok {
		if y, ok := toFloat(b); ok {
			return x == y || (math.IsNaN(x) && math.IsNaN(y))
		}
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	}
	return fmt.Sprintf("%v", v)
}
