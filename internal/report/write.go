package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// TextOptions configures WriteText.
type TextOptions struct {
	// Color enables ANSI colouring of record tags and the outcome.
	Color bool
}

var tagText = map[Kind]string{
	KindPass:    "PASS",
	KindFail:    "FAIL",
	KindFatal:   "FATAL",
	KindWarning: "WARNING",
	KindLog:     "LOG",
	KindSkip:    "SKIP",
}

var kindColor = map[Kind]lipgloss.Color{
	KindPass:    lipgloss.Color("2"),
	KindFail:    lipgloss.Color("1"),
	KindFatal:   lipgloss.Color("9"),
	KindWarning: lipgloss.Color("3"),
	KindLog:     lipgloss.Color("8"),
	KindSkip:    lipgloss.Color("6"),
}

var outcomeColor = map[Outcome]lipgloss.Color{
	OutcomePass:    lipgloss.Color("2"),
	OutcomeFail:    lipgloss.Color("1"),
	OutcomeError:   lipgloss.Color("9"),
	OutcomeSkipped: lipgloss.Color("6"),
}

// WriteText writes a human-readable report.
func WriteText(w io.Writer, res Result, opts TextOptions) error {
	renderer := lipgloss.NewRenderer(w)
	if opts.Color {
		renderer.SetColorProfile(termenv.ANSI)
	} else {
		renderer.SetColorProfile(termenv.Ascii)
	}
	tag := func(k Kind) string {
		text := fmt.Sprintf("%-7s", tagText[k])
		return renderer.NewStyle().Foreground(kindColor[k]).Render(text)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Test case: %s\n", res.Name)
	fmt.Fprintf(&b, "Run ID:    %s\n", res.ID)
	for _, rec := range res.Records {
		line := rec.Label
		if rec.Detail != "" {
			line += ": " + rec.Detail
		}
		fmt.Fprintf(&b, "  %s  %s\n", tag(rec.Kind), line)
	}

	outcome := renderer.NewStyle().Bold(true).Foreground(outcomeColor[res.Outcome]).
		Render(strings.ToUpper(string(res.Outcome)))
	fmt.Fprintf(&b, "Outcome: %s (%d passed, %d failed, %d fatal, %d warnings) in %s\n",
		outcome, res.Counts.Passed, res.Counts.Failed, res.Counts.Fatal, res.Counts.Warnings,
		res.Duration.Round(time.Millisecond))
	if res.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", res.Error)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

type jsonResult struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Outcome    Outcome  `json:"outcome"`
	Error      string   `json:"error,omitempty"`
	Started    string   `json:"started"`
	DurationMS int64    `json:"durationMs"`
	Counts     Counts   `json:"counts"`
	Records    []Record `json:"records"`
}

// WriteJSON writes the result as an indented JSON document.
func WriteJSON(w io.Writer, res Result) error {
	records := res.Records
	if records == nil {
		records = []Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonResult{
		ID:         res.ID,
		Name:       res.Name,
		Outcome:    res.Outcome,
		Error:      res.Error,
		Started:    res.Started.UTC().Format(time.RFC3339Nano),
		DurationMS: res.Duration.Milliseconds(),
		Counts:     res.Counts,
		Records:    records,
	})
}

// Write writes res in the named format, "text" or "json".
func Write(w io.Writer, res Result, format string, opts TextOptions) error {
	switch format {
	case "", "text":
		return WriteText(w, res, opts)
	case "json":
		return WriteJSON(w, res)
	}
	return fmt.Errorf("unknown report format %q", format)
}
