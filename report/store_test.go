package report_test

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/networkteam/goldsuite/report"
)

func testRecord(nodeID string, outcome report.Outcome) report.TestExecutionRecord {
	rec := report.TestExecutionRecord{
		RecordID:        nodeID + "-" + string(outcome),
		RunID:           "run_2026-02-16T004911+0530",
		RunStartedAt:    "2026-02-16T00:49:11+05:30",
		RecordedAt:      "2026-02-16T00:49:15+05:30",
		NodeID:          nodeID,
		Outcome:         outcome,
		DurationSeconds: 1.25,
		Environment: report.Environment{
			BaseURL:  "http://localhost:3000",
			Headless: "true",
			Go:       "1.24.2",
			OS:       "linux-amd64",
		},
	}
	if outcome == report.OutcomeFailed {
		detail := "expected <b>success</b>"
		rec.ErrorDetail = &detail
	}
	return rec
}

func readArray(t *testing.T, path string) []report.TestExecutionRecord {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var records []report.TestExecutionRecord
	require.NoError(t, json.Unmarshal(data, &records))
	return records
}

func TestStore_AppendTestHistory_CreatesDirectories(t *testing.T) {
	store := report.NewStore(filepath.Join(t.TempDir(), "reports"))
	rec := testRecord("acceptance::TestBuy/by amount", report.OutcomePassed)

	require.NoError(t, store.AppendTestHistory(rec))

	path := filepath.Join(store.Root(), "tests", "acceptance__TestBuy__by_amount.json")
	assert.Equal(t, path, store.TestHistoryPath(rec.NodeID))
	records := readArray(t, path)
	require.Len(t, records, 1)
	assert.Equal(t, rec, records[0])
}

func TestStore_AppendTestHistory_Grows(t *testing.T) {
	store := report.NewStore(t.TempDir())

	for i := 0; i < 3; i++ {
		require.NoError(t, store.AppendTestHistory(testRecord("TestGrow", report.OutcomePassed)))
	}

	records, err := store.ReadTestHistory("TestGrow")
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestStore_AppendTestHistory_CorruptedFileStartsFresh(t *testing.T) {
	for _, content := range []string{`"not a list"`, `{"a":1}`, `null`, `[1, 2`, ``} {
		t.Run(content, func(t *testing.T) {
			store := report.NewStore(t.TempDir())
			path := store.TestHistoryPath("TestCorrupt")
			require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

			require.NoError(t, store.AppendTestHistory(testRecord("TestCorrupt", report.OutcomePassed)))
			assert.Len(t, readArray(t, path), 1)

			for i := 0; i < 4; i++ {
				require.NoError(t, store.AppendTestHistory(testRecord("TestCorrupt", report.OutcomeFailed)))
			}
			assert.Len(t, readArray(t, path), 5)
		})
	}
}

func TestAppendJSONArray_ReportsDiscard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "file.json")

	discarded, err := report.AppendJSONArray(path, map[string]int{"a": 1})
	require.NoError(t, err)
	assert.False(t, discarded)

	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))
	discarded, err = report.AppendJSONArray(path, map[string]int{"b": 2})
	require.NoError(t, err)
	assert.True(t, discarded)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"b":2}]`, string(data))
}

func TestAppendJSONArray_EmptyArrayIsValid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0o644))

	discarded, err := report.AppendJSONArray(path, 1)
	require.NoError(t, err)
	assert.False(t, discarded)
}

func TestStore_AppendHistoryLog_OneLinePerRecord(t *testing.T) {
	store := report.NewStore(t.TempDir())

	require.NoError(t, store.AppendHistoryLog(testRecord("TestA", report.OutcomePassed)))
	require.NoError(t, store.AppendHistoryLog(testRecord("TestB", report.OutcomeFailed)))
	require.NoError(t, store.AppendHistoryLog(testRecord("TestC", report.OutcomeSkipped)))

	f, err := os.Open(store.HistoryLogPath())
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	require.Len(t, lines, 3)

	for _, line := range lines {
		assert.False(t, strings.Contains(line, "\n  "), "line should be compact")
	}
	// HTML characters are not escaped.
	assert.Contains(t, lines[1], "<b>success</b>")

	records, err := store.ReadHistoryLog()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "TestA", records[0].NodeID)
	assert.Equal(t, "TestC", records[2].NodeID)
}

func TestStore_ScanHistoryLog_SkipsBrokenLines(t *testing.T) {
	store := report.NewStore(t.TempDir())
	require.NoError(t, store.AppendHistoryLog(testRecord("TestA", report.OutcomePassed)))

	f, err := os.OpenFile(store.HistoryLogPath(), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("{broken\n\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, store.AppendHistoryLog(testRecord("TestB", report.OutcomePassed)))

	records, err := store.ReadHistoryLog()
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestStore_ReadHistoryLog_Missing(t *testing.T) {
	store := report.NewStore(t.TempDir())

	records, err := store.ReadHistoryLog()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStore_WriteRunSummary(t *testing.T) {
	store := report.NewStore(t.TempDir())
	results := []report.TestExecutionRecord{
		testRecord("TestA", report.OutcomePassed),
		testRecord("TestB", report.OutcomeFailed),
	}
	summary := report.RunSummary{
		RunID:         "run_2026-02-16T004911+0530",
		RunStartedAt:  "2026-02-16T00:49:11+05:30",
		RunFinishedAt: "2026-02-16T00:50:00+05:30",
		ExitStatus:    1,
		Totals:        report.CountOutcomes(results),
		Results:       results,
	}

	require.NoError(t, store.WriteRunSummary(summary))

	data, err := os.ReadFile(filepath.Join(store.Root(), "runs", "run_2026-02-16T004911+0530.json"))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, float64(1), raw["exitstatus"])
	assert.Equal(t, map[string]any{"total": float64(2), "passed": float64(1), "failed": float64(1), "skipped": float64(0)}, raw["totals"])

	ids, err := store.ListRuns()
	require.NoError(t, err)
	assert.Equal(t, []string{summary.RunID}, ids)

	latest, err := store.LatestRunSummary()
	require.NoError(t, err)
	assert.Equal(t, summary, latest)
}

func TestStore_LatestRunSummary_NoRuns(t *testing.T) {
	store := report.NewStore(t.TempDir())

	_, err := store.LatestRunSummary()
	assert.ErrorIs(t, err, report.ErrNoRuns)
}

func TestStore_ListRuns_Ordered(t *testing.T) {
	store := report.NewStore(t.TempDir())
	for _, id := range []string{"run_2026-02-17T000000+0530", "run_2026-02-16T000000+0530", "run_2026-02-18T000000+0530"} {
		require.NoError(t, store.WriteRunSummary(report.RunSummary{RunID: id}))
	}
	require.NoError(t, os.WriteFile(filepath.Join(store.RunsDir(), "notes.txt"), []byte("x"), 0o644))

	ids, err := store.ListRuns()
	require.NoError(t, err)
	assert.Equal(t, []string{"run_2026-02-16T000000+0530", "run_2026-02-17T000000+0530", "run_2026-02-18T000000+0530"}, ids)
}

func TestRecord_ErrorDetailNullWhenUnset(t *testing.T) {
	data, err := json.Marshal(testRecord("TestA", report.OutcomePassed))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	v, ok := raw["error_detail"]
	assert.True(t, ok)
	assert.Nil(t, v)
}
