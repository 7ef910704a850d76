package report

import (
	"sort"

	"github.com/samber/lo"
)

// TestStats summarizes the history of one test across runs.
type TestStats struct {
	NodeID      string
	Runs        int
	Passed      int
	Failed      int
	Skipped     int
	LastOutcome Outcome
	LastError   string
}

// Flaky reports whether the test both passed and failed in its history.
func (s TestStats) Flaky() bool {
	return s.Passed > 0 && s.Failed > 0
}

// FailureRate is failed runs over runs that were not skipped.
func (s TestStats) FailureRate() float64 {
	executed := s.Passed + s.Failed
	if executed == 0 {
		return 0
	}
	return float64(s.Failed) / float64(executed)
}

// Analyze groups records by node id, keeping write order within a test.
// The result is sorted by node id.
func Analyze(records []TestExecutionRecord) []TestStats {
	grouped := lo.GroupBy(records, func(r TestExecutionRecord) string {
		return r.NodeID
	})

	stats := make([]TestStats, 0, len(grouped))
	for nodeID, recs := range grouped {
		totals := CountOutcomes(recs)
		last := recs[len(recs)-1]
		s := TestStats{
			NodeID:      nodeID,
			Runs:        totals.Total,
			Passed:      totals.Passed,
			Failed:      totals.Failed,
			Skipped:     totals.Skipped,
			LastOutcome: last.Outcome,
		}
		if failed, _, ok := lo.FindLastIndexOf(recs, func(r TestExecutionRecord) bool {
			return r.Outcome == OutcomeFailed && r.ErrorDetail != nil
		}); ok {
			s.LastError = *failed.ErrorDetail
		}
		stats = append(stats, s)
	}

	sort.Slice(stats, func(i, j int) bool {
		return stats[i].NodeID < stats[j].NodeID
	})
	return stats
}
