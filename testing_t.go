package goldsuite

import (
	"fmt"
	"strings"
	"sync"
	"testing"
)

// T wraps the *testing.T of a suite test and keeps the messages of every reported
// error, so they end up as error detail of the test record.
type T struct {
	*testing.T

	mu          sync.Mutex
	diagnostics []string
}

func newT(t *testing.T) *T {
	return &T{T: t}
}

func (t *T) Error(args ...any) {
	t.T.Helper()
	t.record(sprintln(args...))
	t.T.Error(args...)
}

func (t *T) Errorf(format string, args ...any) {
	t.T.Helper()
	t.record(fmt.Sprintf(format, args...))
	t.T.Errorf(format, args...)
}

func (t *T) Fatal(args ...any) {
	t.T.Helper()
	t.record(sprintln(args...))
	t.T.Fatal(args...)
}

func (t *T) Fatalf(format string, args ...any) {
	t.T.Helper()
	t.record(fmt.Sprintf(format, args...))
	t.T.Fatalf(format, args...)
}

// Diagnostics returns the recorded error messages in order.
func (t *T) Diagnostics() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.diagnostics...)
}

func (t *T) record(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.diagnostics = append(t.diagnostics, msg)
}

// failure returns the joined diagnostics or a generic message if the test was marked
// failed without any.
func (t *T) failure() string {
	diagnostics := t.Diagnostics()
	if len(diagnostics) == 0 {
		return fmt.Sprintf("%s failed without an error message", t.Name())
	}
	return strings.Join(diagnostics, "\n")
}

// sprintln formats like testing.T.Error does.
func sprintln(args ...any) string {
	return strings.TrimSuffix(fmt.Sprintln(args...), "\n")
}
