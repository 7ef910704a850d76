package report

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoRuns is returned when no run summary has been written yet.
var ErrNoRuns = errors.New("no run summaries found")

// ListRuns returns the ids of all stored run summaries, oldest first.
// Run ids embed their start time, so lexical order is chronological.
func (s *Store) ListRuns() ([]string, error) {
	entries, err := os.ReadDir(s.RunsDir())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading runs directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		ids = append(ids, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

// ReadRunSummary loads the summary of one run.
func (s *Store) ReadRunSummary(runID string) (RunSummary, error) {
	var summary RunSummary
	data, err := os.ReadFile(s.RunSummaryPath(runID))
	if err != nil {
		return summary, fmt.Errorf("reading run summary %s: %w", runID, err)
	}
	if err := json.Unmarshal(data, &summary); err != nil {
		return summary, fmt.Errorf("parsing run summary %s: %w", runID, err)
	}
	return summary, nil
}

// LatestRunSummary loads the most recent run summary.
func (s *Store) LatestRunSummary() (RunSummary, error) {
	ids, err := s.ListRuns()
	if err != nil {
		return RunSummary{}, err
	}
	if len(ids) == 0 {
		return RunSummary{}, ErrNoRuns
	}
	return s.ReadRunSummary(ids[len(ids)-1])
}

// ReadTestHistory loads all records of one test. A missing history is empty.
func (s *Store) ReadTestHistory(nodeID string) ([]TestExecutionRecord, error) {
	data, err := os.ReadFile(s.TestHistoryPath(nodeID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading test history: %w", err)
	}

	var records []TestExecutionRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing test history %s: %w", nodeID, err)
	}
	return records, nil
}

// ScanHistoryLog calls fn for every record of the global log in write order.
// Lines that do not parse are skipped. A missing log yields no records.
func (s *Store) ScanHistoryLog(fn func(TestExecutionRecord) error) error {
	f, err := os.Open(s.HistoryLogPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening history log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record TestExecutionRecord
		if err := json.Unmarshal(line, &record); err != nil {
			continue
		}
		if err := fn(record); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanning history log: %w", err)
	}
	return nil
}

// ReadHistoryLog loads the whole global log.
func (s *Store) ReadHistoryLog() ([]TestExecutionRecord, error) {
	var records []TestExecutionRecord
	err := s.ScanHistoryLog(func(r TestExecutionRecord) error {
		records = append(records, r)
		return nil
	})
	return records, err
}
