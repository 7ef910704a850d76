// Package index keeps test execution records in a SQLite database for querying
// history across many runs.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/networkteam/goldsuite/report"
)

// Record is an indexed test execution record. A test has at most one record per run.
type Record struct {
	ID              uint   `gorm:"primaryKey"`
	RecordID        string `gorm:"index"`
	RunID           string `gorm:"not null;uniqueIndex:idx_records_run_node"`
	NodeID          string `gorm:"not null;uniqueIndex:idx_records_run_node;index"`
	Outcome         string `gorm:"not null;index"`
	DurationSeconds float64
	ErrorDetail     *string `gorm:"type:text"`
	RunStartedAt    string
	RecordedAt      string `gorm:"index"`

	BaseURL   string
	Headless  string
	GoVersion string
	OS        string

	IndexedAt time.Time
}

// TestDuration aggregates the durations of one test.
type TestDuration struct {
	NodeID     string
	Runs       int
	AvgSeconds float64
	MaxSeconds float64
}

// Index is a handle to the index database.
type Index struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
}

// Open opens or creates the database at path and migrates the schema.
// Use ":memory:" for a throwaway index.
func Open(ctx context.Context, path string, log *slog.Logger) (*Index, error) {
	if log == nil {
		log = slog.Default()
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("opening index database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying db: %w", err)
	}
	// A single connection keeps in-memory databases consistent.
	sqlDB.SetMaxOpenConns(1)

	if err := db.WithContext(ctx).AutoMigrate(&Record{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("running index migrations: %w", err)
	}

	log.Debug("Index database opened", slog.String("path", path))

	return &Index{db: db, logger: log, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (i *Index) Close() error {
	sqlDB, err := i.db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying db: %w", err)
	}
	return sqlDB.Close()
}

// Ingest adds records that are not indexed yet and returns how many were added.
// Records are identified by run id and node id.
func (i *Index) Ingest(ctx context.Context, records []report.TestExecutionRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	indexedAt := i.now().UTC()
	rows := make([]Record, 0, len(records))
	for _, r := range records {
		rows = append(rows, fromReport(r, indexedAt))
	}

	var added int64
	err := i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var before, after int64
		if err := tx.Model(&Record{}).Count(&before).Error; err != nil {
			return err
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "run_id"}, {Name: "node_id"}},
			DoNothing: true,
		}).CreateInBatches(rows, 200).Error; err != nil {
			return err
		}
		if err := tx.Model(&Record{}).Count(&after).Error; err != nil {
			return err
		}
		added = after - before
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("ingesting records: %w", err)
	}

	i.logger.Debug("Ingested records", slog.Int("received", len(records)), slog.Int64("added", added))
	return int(added), nil
}

// IngestStore indexes the global history log of a report store.
func (i *Index) IngestStore(ctx context.Context, store *report.Store) (int, error) {
	records, err := store.ReadHistoryLog()
	if err != nil {
		return 0, err
	}
	return i.Ingest(ctx, records)
}

// OutcomeCounts counts the indexed records of one test, or of all tests if nodeID is empty.
func (i *Index) OutcomeCounts(ctx context.Context, nodeID string) (report.Totals, error) {
	var rows []struct {
		Outcome string
		Count   int
	}

	q := i.db.WithContext(ctx).Model(&Record{}).Select("outcome, COUNT(*) AS count")
	if nodeID != "" {
		q = q.Where("node_id = ?", nodeID)
	}
	if err := q.Group("outcome").Scan(&rows).Error; err != nil {
		return report.Totals{}, fmt.Errorf("counting outcomes: %w", err)
	}

	var totals report.Totals
	for _, row := range rows {
		totals.Total += row.Count
		switch report.Outcome(row.Outcome) {
		case report.OutcomePassed:
			totals.Passed += row.Count
		case report.OutcomeFailed:
			totals.Failed += row.Count
		case report.OutcomeSkipped:
			totals.Skipped += row.Count
		}
	}
	return totals, nil
}

// History returns the indexed records of one test in the order they were recorded.
func (i *Index) History(ctx context.Context, nodeID string) ([]report.TestExecutionRecord, error) {
	var rows []Record
	if err := i.db.WithContext(ctx).
		Where("node_id = ?", nodeID).
		Order("recorded_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}

	records := make([]report.TestExecutionRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toReport())
	}
	return records, nil
}

// SlowestTests returns the tests with the highest average duration of passed runs.
func (i *Index) SlowestTests(ctx context.Context, limit int) ([]TestDuration, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}

	var durations []TestDuration
	if err := i.db.WithContext(ctx).
		Model(&Record{}).
		Select("node_id, COUNT(*) AS runs, AVG(duration_seconds) AS avg_seconds, MAX(duration_seconds) AS max_seconds").
		Where("outcome = ?", report.OutcomePassed).
		Group("node_id").
		Order("avg_seconds DESC, node_id ASC").
		Limit(limit).
		Scan(&durations).Error; err != nil {
		return nil, fmt.Errorf("listing slowest tests: %w", err)
	}
	return durations, nil
}

func fromReport(r report.TestExecutionRecord, indexedAt time.Time) Record {
	return Record{
		RecordID:        r.RecordID,
		RunID:           r.RunID,
		NodeID:          r.NodeID,
		Outcome:         string(r.Outcome),
		DurationSeconds: r.DurationSeconds,
		ErrorDetail:     r.ErrorDetail,
		RunStartedAt:    r.RunStartedAt,
		RecordedAt:      r.RecordedAt,
		BaseURL:         r.Environment.BaseURL,
		Headless:        r.Environment.Headless,
		GoVersion:       r.Environment.Go,
		OS:              r.Environment.OS,
		IndexedAt:       indexedAt,
	}
}

func (r Record) toReport() report.TestExecutionRecord {
	return report.TestExecutionRecord{
		RecordID:        r.RecordID,
		RunID:           r.RunID,
		RunStartedAt:    r.RunStartedAt,
		RecordedAt:      r.RecordedAt,
		NodeID:          r.NodeID,
		Outcome:         report.Outcome(r.Outcome),
		DurationSeconds: r.DurationSeconds,
		ErrorDetail:     r.ErrorDetail,
		Environment: report.Environment{
			BaseURL:  r.BaseURL,
			Headless: r.Headless,
			Go:       r.GoVersion,
			OS:       r.OS,
		},
	}
}
