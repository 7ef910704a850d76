package collector

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/networkteam/goldsuite/report"
)

// TestCollector gathers items from a subscription for assertions in tests.
type TestCollector[T any] struct {
	t       testing.TB
	cancel  context.CancelFunc
	timeout time.Duration

	mu      sync.Mutex
	items   []T
	arrived chan struct{}
}

// Collect subscribes and gathers items in the background until Wait or Stop.
func Collect[T any](t testing.TB, subscribe func(context.Context) <-chan T) *TestCollector[T] {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	ch := subscribe(ctx)

	c := &TestCollector[T]{
		t:       t,
		cancel:  cancel,
		timeout: time.Second,
		arrived: make(chan struct{}, 1),
	}

	go func() {
		for item := range ch {
			c.mu.Lock()
			c.items = append(c.items, item)
			c.mu.Unlock()

			select {
			case c.arrived <- struct{}{}:
			default:
			}
		}
	}()

	return c
}

// Wait blocks until at least n items arrived and fails the test after one second.
func (c *TestCollector[T]) Wait(n int) []T {
	c.t.Helper()
	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	for {
		if items := c.snapshot(); len(items) >= n {
			c.cancel()
			return items
		}
		select {
		case <-c.arrived:
		case <-timer.C:
			c.cancel()
			c.t.Fatalf("timeout waiting for %d items, got %d", n, len(c.snapshot()))
			return nil
		}
	}
}

// Stop ends the subscription and returns what arrived so far.
func (c *TestCollector[T]) Stop() []T {
	c.cancel()
	return c.snapshot()
}

func (c *TestCollector[T]) snapshot() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]T, len(c.items))
	copy(items, c.items)
	return items
}

// Emit sends a phase report for each given outcome to l, in setup, call, teardown
// order. An empty outcome leaves that phase out. Failed phases carry a failure text
// naming the phase; every phase lasts one second.
func Emit(ctx context.Context, l Listener, nodeID string, setup, call, teardown report.Outcome) {
	for _, p := range []struct {
		phase   Phase
		outcome report.Outcome
	}{
		{PhaseSetup, setup},
		{PhaseCall, call},
		{PhaseTeardown, teardown},
	} {
		if p.outcome == "" {
			continue
		}
		rep := PhaseReport{
			NodeID:   nodeID,
			Phase:    p.phase,
			Outcome:  p.outcome,
			Duration: time.Second,
		}
		if p.outcome != report.OutcomePassed {
			rep.Failure = string(p.phase) + " " + string(p.outcome)
		}
		l.PhaseCompleted(ctx, rep)
	}
}
