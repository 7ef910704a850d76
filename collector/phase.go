package collector

import (
	"context"
	"sync"
	"time"

	"github.com/networkteam/goldsuite/report"
)

// Phase is one of the three stages a test goes through.
type Phase string

const (
	PhaseSetup    Phase = "setup"
	PhaseCall     Phase = "call"
	PhaseTeardown Phase = "teardown"
)

// PhaseReport is emitted by the runner when a phase of a test has completed.
type PhaseReport struct {
	NodeID   string
	Phase    Phase
	Outcome  report.Outcome
	Duration time.Duration
	// Failure describes why the phase failed or was skipped. It is stringified lazily.
	Failure any
}

// Listener observes completed phases.
type Listener interface {
	PhaseCompleted(ctx context.Context, r PhaseReport)
}

// ListenerFunc adapts a function to a Listener.
type ListenerFunc func(ctx context.Context, r PhaseReport)

// PhaseCompleted implements Listener.
func (f ListenerFunc) PhaseCompleted(ctx context.Context, r PhaseReport) {
	f(ctx, r)
}

// Dispatcher forwards phase reports to registered listeners in registration order.
type Dispatcher struct {
	listeners []Listener

	mu sync.RWMutex
}

// NewDispatcher creates a Dispatcher without listeners.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Register adds a listener.
func (d *Dispatcher) Register(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, l)
}

// Dispatch delivers r to all listeners synchronously.
func (d *Dispatcher) Dispatch(ctx context.Context, r PhaseReport) {
	d.mu.RLock()
	listeners := make([]Listener, len(d.listeners))
	copy(listeners, d.listeners)
	d.mu.RUnlock()

	for _, l := range listeners {
		l.PhaseCompleted(ctx, r)
	}
}

// PhaseCompleted implements Listener so dispatchers can be nested.
func (d *Dispatcher) PhaseCompleted(ctx context.Context, r PhaseReport) {
	d.Dispatch(ctx, r)
}
