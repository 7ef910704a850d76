package collector

import (
	"sync"

	"github.com/networkteam/goldsuite/report"
	"github.com/networkteam/goldsuite/stamp"
)

// SummaryWriter persists the summary of a finished run.
type SummaryWriter interface {
	WriteRunSummary(summary report.RunSummary) error
}

// Run holds the state of one test session: its identity, start time and the
// records produced so far, in execution order.
type Run struct {
	id        string
	startedAt string
	clock     stamp.Clock
	writer    SummaryWriter

	records  []report.TestExecutionRecord
	finished bool
	summary  report.RunSummary

	mu sync.Mutex
}

// RunOptions configures a Run.
type RunOptions struct {
	// Clock provides the start and finish times.
	// Default: stamp.SystemClock
	Clock stamp.Clock
	// Writer receives the summary when the run is finished. Nil skips persisting.
	Writer SummaryWriter
}

// NewRun starts a run now.
func NewRun(options RunOptions) *Run {
	clock := options.Clock
	if clock == nil {
		clock = stamp.SystemClock
	}
	now := clock()
	return &Run{
		id:        stamp.RunID(now),
		startedAt: stamp.ISO(now),
		clock:     clock,
		writer:    options.Writer,
	}
}

// ID returns the run identifier.
func (r *Run) ID() string {
	return r.id
}

// StartedAt returns the formatted start time.
func (r *Run) StartedAt() string {
	return r.startedAt
}

// Append adds a record. Records appended after Finish are ignored.
func (r *Run) Append(record report.TestExecutionRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return
	}
	r.records = append(r.records, record)
}

// Records returns a copy of the records collected so far.
func (r *Run) Records() []report.TestExecutionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	records := make([]report.TestExecutionRecord, len(r.records))
	copy(records, r.records)
	return records
}

// Finished reports whether Finish has been called.
func (r *Run) Finished() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finished
}

// Finish computes the totals and writes the summary. Only the first call has an
// effect; later calls return the first summary and a nil error.
func (r *Run) Finish(exitStatus int) (report.RunSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finished {
		return r.summary, nil
	}
	r.finished = true

	results := make([]report.TestExecutionRecord, len(r.records))
	copy(results, r.records)

	r.summary = report.RunSummary{
		RunID:         r.id,
		RunStartedAt:  r.startedAt,
		RunFinishedAt: stamp.ISO(r.clock()),
		ExitStatus:    exitStatus,
		Totals:        report.CountOutcomes(results),
		Results:       results,
	}

	if r.writer == nil {
		return r.summary, nil
	}
	return r.summary, r.writer.WriteRunSummary(r.summary)
}
