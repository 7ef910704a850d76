package collector

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/gofrs/uuid"

	"github.com/networkteam/goldsuite/report"
	"github.com/networkteam/goldsuite/stamp"
)

// RecordSink persists finished records.
type RecordSink interface {
	AppendTestHistory(record report.TestExecutionRecord) error
	AppendHistoryLog(record report.TestExecutionRecord) error
}

// Reconciler collects the phase reports of each test and turns them into exactly one
// TestExecutionRecord once the teardown report arrives.
type Reconciler struct {
	run         *Run
	sink        RecordSink
	environment func() report.Environment
	clock       stamp.Clock
	logger      *slog.Logger
	notifier    *Notifier[report.TestExecutionRecord]

	pending map[string]*Slots
	order   []string

	mu sync.Mutex
}

// ReconcilerOptions configures a Reconciler.
type ReconcilerOptions struct {
	// Sink receives every record. Nil keeps records in memory only.
	Sink RecordSink
	// Environment snapshots the environment for each record.
	// Default: an empty Environment
	Environment func() report.Environment
	// Clock provides the recorded_at time.
	// Default: stamp.SystemClock
	Clock stamp.Clock
	// Logger receives persistence errors and per-test results.
	// Default: slog.Default()
	Logger *slog.Logger
	// NotifierOptions are options for notification about new records.
	// Default: nil, will use DefaultNotifierOptions()
	NotifierOptions *NotifierOptions
}

var _ Listener = (*Reconciler)(nil)

// NewReconciler creates a Reconciler appending to run.
func NewReconciler(run *Run, options ReconcilerOptions) *Reconciler {
	environment := options.Environment
	if environment == nil {
		environment = func() report.Environment { return report.Environment{} }
	}
	clock := options.Clock
	if clock == nil {
		clock = stamp.SystemClock
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notifierOptions := DefaultNotifierOptions()
	if options.NotifierOptions != nil {
		notifierOptions = *options.NotifierOptions
	}

	return &Reconciler{
		run:         run,
		sink:        options.Sink,
		environment: environment,
		clock:       clock,
		logger:      logger.With("component", "reconciler", "run_id", run.ID()),
		notifier:    NewNotifierWithOptions[report.TestExecutionRecord](notifierOptions),
		pending:     make(map[string]*Slots),
	}
}

// PhaseCompleted stores the report and finalizes the test on its teardown report.
func (r *Reconciler) PhaseCompleted(ctx context.Context, rep PhaseReport) {
	r.mu.Lock()
	slots, ok := r.pending[rep.NodeID]
	if !ok {
		slots = &Slots{}
		r.pending[rep.NodeID] = slots
		r.order = append(r.order, rep.NodeID)
	}
	slots.Set(rep)

	if rep.Phase != PhaseTeardown {
		r.mu.Unlock()
		return
	}
	r.forget(rep.NodeID)
	r.mu.Unlock()

	r.finalize(ctx, rep.NodeID, *slots)
}

// Pending returns the node ids that started but have not been finalized, in start order.
func (r *Reconciler) Pending() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.order)
}

// Flush finalizes every test that never reported a teardown, e.g. because the
// session was interrupted.
func (r *Reconciler) Flush(ctx context.Context) []report.TestExecutionRecord {
	r.mu.Lock()
	order := r.order
	pending := r.pending
	r.order = nil
	r.pending = make(map[string]*Slots)
	r.mu.Unlock()

	records := make([]report.TestExecutionRecord, 0, len(order))
	for _, nodeID := range order {
		records = append(records, r.finalize(ctx, nodeID, *pending[nodeID]))
	}
	return records
}

// Subscribe returns a channel that receives every finalized record.
func (r *Reconciler) Subscribe(ctx context.Context) <-chan report.TestExecutionRecord {
	return r.notifier.Subscribe(ctx)
}

// Close releases resources used by the reconciler
func (r *Reconciler) Close() {
	r.notifier.Close()
}

// forget must be called with lock held.
func (r *Reconciler) forget(nodeID string) {
	delete(r.pending, nodeID)
	r.order = slices.DeleteFunc(r.order, func(id string) bool { return id == nodeID })
}

func (r *Reconciler) finalize(ctx context.Context, nodeID string, slots Slots) report.TestExecutionRecord {
	res := Reduce(slots)

	record := report.TestExecutionRecord{
		RecordID:        uuid.Must(uuid.NewV7()).String(),
		RunID:           r.run.ID(),
		RunStartedAt:    r.run.StartedAt(),
		RecordedAt:      stamp.ISO(r.clock()),
		NodeID:          nodeID,
		Outcome:         res.Outcome,
		DurationSeconds: report.RoundSeconds(res.Duration.Seconds()),
		ErrorDetail:     res.ErrorDetail,
		Environment:     r.environment(),
	}

	if r.sink != nil {
		if err := r.sink.AppendTestHistory(record); err != nil {
			r.logger.ErrorContext(ctx, "Failed to write test history", "node_id", nodeID, "err", err)
		}
		if err := r.sink.AppendHistoryLog(record); err != nil {
			r.logger.ErrorContext(ctx, "Failed to write history log", "node_id", nodeID, "err", err)
		}
	}
	r.run.Append(record)
	r.notifier.Notify(record)

	r.logger.DebugContext(ctx, "Recorded test",
		"node_id", nodeID,
		"outcome", record.Outcome,
		"duration_seconds", record.DurationSeconds,
	)

	return record
}
