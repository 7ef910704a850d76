// Package render formats run summaries and test history for the terminal.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/networkteam/goldsuite/report"
)

// Options configures a Renderer.
type Options struct {
	// Color enables ANSI styling of outcomes and JSON highlighting.
	Color bool
}

// Renderer writes human readable reports.
type Renderer struct {
	w     io.Writer
	color bool

	heading lipgloss.Style
	passed  lipgloss.Style
	failed  lipgloss.Style
	skipped lipgloss.Style
}

// New creates a Renderer writing to w.
func New(w io.Writer, options Options) *Renderer {
	r := &Renderer{
		w:       w,
		color:   options.Color,
		heading: lipgloss.NewStyle(),
		passed:  lipgloss.NewStyle(),
		failed:  lipgloss.NewStyle(),
		skipped: lipgloss.NewStyle(),
	}
	if options.Color {
		r.heading = r.heading.Bold(true)
		r.passed = r.passed.Foreground(lipgloss.Color("42"))
		r.failed = r.failed.Bold(true).Foreground(lipgloss.Color("196"))
		r.skipped = r.skipped.Foreground(lipgloss.Color("214"))
	}
	return r
}

// Runs writes one line per run summary.
func (r *Renderer) Runs(summaries []report.RunSummary) error {
	if len(summaries) == 0 {
		_, err := io.WriteString(r.w, "No runs recorded.\n")
		return err
	}

	tw := r.table()
	fmt.Fprintln(tw, "RUN ID\tSTARTED\tEXIT\tTOTAL\tPASSED\tFAILED\tSKIPPED")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			s.RunID, s.RunStartedAt, s.ExitStatus,
			s.Totals.Total, s.Totals.Passed, s.Totals.Failed, s.Totals.Skipped)
	}
	return tw.Flush()
}

// Summary writes the totals and results of one run followed by the failure details.
func (r *Renderer) Summary(summary report.RunSummary) error {
	p := &printer{w: r.w}
	p.printf("%s\n", r.heading.Render("Run "+summary.RunID))
	p.printf("Started:     %s\n", summary.RunStartedAt)
	p.printf("Finished:    %s\n", summary.RunFinishedAt)
	p.printf("Exit status: %d\n", summary.ExitStatus)
	p.printf("Totals:      %s\n", formatTotals(summary.Totals))
	if p.err != nil {
		return p.err
	}

	if len(summary.Results) == 0 {
		return nil
	}

	p.printf("\n")
	tw := r.table()
	fmt.Fprintln(tw, "NODE ID\tDURATION\tOUTCOME")
	for _, rec := range summary.Results {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", rec.NodeID, formatSeconds(rec.DurationSeconds), r.outcome(rec.Outcome))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	var failures []report.TestExecutionRecord
	for _, rec := range summary.Results {
		if rec.ErrorDetail != nil {
			failures = append(failures, rec)
		}
	}
	if len(failures) == 0 {
		return p.err
	}

	p.printf("\n%s\n", r.heading.Render("Failures:"))
	for _, rec := range failures {
		p.printf("  %s\n", rec.NodeID)
		p.printf("%s", indent(*rec.ErrorDetail, "    "))
	}
	return p.err
}

// History writes the records of one test in recorded order.
func (r *Renderer) History(nodeID string, records []report.TestExecutionRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintf(r.w, "No history for %s.\n", nodeID)
		return err
	}

	stats := report.Analyze(records)[0]

	p := &printer{w: r.w}
	p.printf("%s\n", r.heading.Render(nodeID))
	p.printf("Runs: %d (%d passed, %d failed, %d skipped), failure rate %s\n\n",
		stats.Runs, stats.Passed, stats.Failed, stats.Skipped, formatRate(stats.FailureRate()))
	if p.err != nil {
		return p.err
	}

	tw := r.table()
	fmt.Fprintln(tw, "RUN ID\tRECORDED\tDURATION\tOUTCOME")
	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", rec.RunID, rec.RecordedAt, formatSeconds(rec.DurationSeconds), r.outcome(rec.Outcome))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if stats.LastError != "" {
		p.printf("\n%s\n", r.heading.Render("Last error:"))
		p.printf("%s", indent(stats.LastError, "    "))
	}
	return p.err
}

// Flaky writes the tests that both passed and failed.
func (r *Renderer) Flaky(stats []report.TestStats) error {
	var flaky []report.TestStats
	for _, s := range stats {
		if s.Flaky() {
			flaky = append(flaky, s)
		}
	}
	if len(flaky) == 0 {
		_, err := io.WriteString(r.w, "No flaky tests.\n")
		return err
	}

	tw := r.table()
	fmt.Fprintln(tw, "NODE ID\tRUNS\tPASSED\tFAILED\tSKIPPED\tFAILURE RATE\tLAST")
	for _, s := range flaky {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%s\t%s\n",
			s.NodeID, s.Runs, s.Passed, s.Failed, s.Skipped, formatRate(s.FailureRate()), r.outcome(s.LastOutcome))
	}
	return tw.Flush()
}

// JSON writes v as indented JSON, highlighted when color is enabled.
func (r *Renderer) JSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	data = append(data, '\n')

	if !r.color {
		_, err := r.w.Write(data)
		return err
	}
	return highlightJSON(r.w, string(data))
}

func highlightJSON(w io.Writer, content string) error {
	lexer := lexers.Get("json")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	formatter := formatters.Get("terminal256")
	style := styles.Get("monokai")
	if style == nil {
		style = styles.Fallback
	}

	iterator, err := lexer.Tokenise(nil, content)
	if err != nil {
		return err
	}
	return formatter.Format(w, style, iterator)
}

func (r *Renderer) table() *tabwriter.Writer {
	return tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
}

func (r *Renderer) outcome(o report.Outcome) string {
	switch o {
	case report.OutcomePassed:
		return r.passed.Render(string(o))
	case report.OutcomeFailed:
		return r.failed.Render(string(o))
	case report.OutcomeSkipped:
		return r.skipped.Render(string(o))
	default:
		return string(o)
	}
}

func formatTotals(t report.Totals) string {
	return fmt.Sprintf("%d total, %d passed, %d failed, %d skipped", t.Total, t.Passed, t.Failed, t.Skipped)
}

func formatSeconds(s float64) string {
	return fmt.Sprintf("%.2fs", s)
}

func formatRate(rate float64) string {
	return fmt.Sprintf("%.0f%%", rate*100)
}

// indent prefixes every line of s and terminates it with a newline.
func indent(s, prefix string) string {
	var b strings.Builder
	for _, line := range strings.Split(strings.TrimRight(s, "\n"), "\n") {
		b.WriteString(prefix)
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// printer keeps the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
