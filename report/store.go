package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/networkteam/goldsuite/stamp"
)

const (
	runsDirName    = "runs"
	testsDirName   = "tests"
	historyLogName = "history.jsonl"
)

// Store persists reports below a root directory:
//
//	<root>/runs/<run_id>.json          one summary per run
//	<root>/tests/<safe_node_id>.json   JSON array per test, growing across runs
//	<root>/history.jsonl               one record per line, growing across runs
type Store struct {
	root   string
	logger *slog.Logger
}

// StoreOptions configures a Store.
type StoreOptions struct {
	// Logger receives warnings about discarded history files.
	// Default: slog.Default()
	Logger *slog.Logger
}

// NewStore creates a store rooted at dir. Nothing is created until the first write.
func NewStore(dir string) *Store {
	return NewStoreWithOptions(dir, StoreOptions{})
}

// NewStoreWithOptions creates a store rooted at dir with the given options.
func NewStoreWithOptions(dir string, options StoreOptions) *Store {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		root:   dir,
		logger: logger.With("component", "report-store"),
	}
}

// Root returns the directory the store writes to.
func (s *Store) Root() string {
	return s.root
}

// RunsDir returns the directory holding run summaries.
func (s *Store) RunsDir() string {
	return filepath.Join(s.root, runsDirName)
}

// TestsDir returns the directory holding per-test histories.
func (s *Store) TestsDir() string {
	return filepath.Join(s.root, testsDirName)
}

// HistoryLogPath returns the path of the global append-only log.
func (s *Store) HistoryLogPath() string {
	return filepath.Join(s.root, historyLogName)
}

// RunSummaryPath returns the summary file path for a run.
func (s *Store) RunSummaryPath(runID string) string {
	return filepath.Join(s.RunsDir(), runID+".json")
}

// TestHistoryPath returns the history file path for a test node id.
func (s *Store) TestHistoryPath(nodeID string) string {
	return filepath.Join(s.TestsDir(), stamp.SafeFilename(nodeID)+".json")
}

// Prepare creates the runs and tests directories.
func (s *Store) Prepare() error {
	for _, dir := range []string{s.RunsDir(), s.TestsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating report directory: %w", err)
		}
	}
	return nil
}

// AppendTestHistory appends the record to the history array of its test.
func (s *Store) AppendTestHistory(record TestExecutionRecord) error {
	path := s.TestHistoryPath(record.NodeID)
	discarded, err := AppendJSONArray(path, record)
	if discarded {
		s.logger.Warn("Discarded unreadable test history", "path", path, "node_id", record.NodeID)
	}
	if err != nil {
		return fmt.Errorf("appending test history for %s: %w", record.NodeID, err)
	}
	return nil
}

// AppendHistoryLog appends the record as one line to the global log.
func (s *Store) AppendHistoryLog(record TestExecutionRecord) error {
	if err := AppendJSONLine(s.HistoryLogPath(), record); err != nil {
		return fmt.Errorf("appending history log: %w", err)
	}
	return nil
}

// WriteRunSummary writes the summary file of a run.
func (s *Store) WriteRunSummary(summary RunSummary) error {
	if err := os.MkdirAll(s.RunsDir(), 0o755); err != nil {
		return fmt.Errorf("creating runs directory: %w", err)
	}
	data, err := marshalIndent(summary)
	if err != nil {
		return fmt.Errorf("marshaling run summary: %w", err)
	}
	if err := os.WriteFile(s.RunSummaryPath(summary.RunID), data, 0o644); err != nil {
		return fmt.Errorf("writing run summary: %w", err)
	}
	return nil
}

// AppendJSONArray appends v to the JSON array stored at path and rewrites the file.
// A missing file starts a new array. Content that is not a JSON array is discarded and
// the array starts empty; discarded reports whether that happened.
func AppendJSONArray(path string, v any) (discarded bool, err error) {
	var items []json.RawMessage

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(data, &items); jsonErr != nil || items == nil {
			items = nil
			discarded = true
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		// Unreadable files are replaced like corrupt ones.
		discarded = true
	}

	item, err := marshalCompact(v)
	if err != nil {
		return discarded, err
	}
	items = append(items, item)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return discarded, err
	}
	out, err := marshalIndent(items)
	if err != nil {
		return discarded, err
	}
	return discarded, os.WriteFile(path, out, 0o644)
}

// AppendJSONLine appends v as a single compact JSON line to path.
func AppendJSONLine(path string, v any) error {
	line, err := marshalCompact(v)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func marshalCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func marshalIndent(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
