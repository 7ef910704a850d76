package report

import (
	"math"

	"github.com/samber/lo"
)

// Outcome is the final classification of a test or a single phase.
type Outcome string

const (
	OutcomePassed  Outcome = "passed"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// Environment is a snapshot of where a record was produced.
type Environment struct {
	BaseURL  string `json:"base_url"`
	Headless string `json:"headless"`
	Go       string `json:"go"`
	OS       string `json:"os"`
}

// TestExecutionRecord is the single record kept for one test in one run.
// It is written to the run summary, the per-test history and the global log.
type TestExecutionRecord struct {
	RecordID        string      `json:"record_id"`
	RunID           string      `json:"run_id"`
	RunStartedAt    string      `json:"run_started_at"`
	RecordedAt      string      `json:"recorded_at"`
	NodeID          string      `json:"node_id"`
	Outcome         Outcome     `json:"outcome"`
	DurationSeconds float64     `json:"duration_seconds"`
	ErrorDetail     *string     `json:"error_detail"`
	Environment     Environment `json:"environment"`
}

// Totals counts records by outcome.
type Totals struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// RunSummary is written once per run to reports/runs/<run_id>.json.
type RunSummary struct {
	RunID         string                `json:"run_id"`
	RunStartedAt  string                `json:"run_started_at"`
	RunFinishedAt string                `json:"run_finished_at"`
	ExitStatus    int                   `json:"exitstatus"`
	Totals        Totals                `json:"totals"`
	Results       []TestExecutionRecord `json:"results"`
}

// CountOutcomes derives totals from records.
func CountOutcomes(records []TestExecutionRecord) Totals {
	counts := lo.CountValuesBy(records, func(r TestExecutionRecord) Outcome {
		return r.Outcome
	})
	return Totals{
		Total:   len(records),
		Passed:  counts[OutcomePassed],
		Failed:  counts[OutcomeFailed],
		Skipped: counts[OutcomeSkipped],
	}
}

// RoundSeconds rounds a duration in seconds to microsecond precision.
func RoundSeconds(seconds float64) float64 {
	return math.Round(seconds*1e6) / 1e6
}
