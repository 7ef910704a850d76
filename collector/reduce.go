package collector

import (
	"fmt"
	"time"

	"github.com/networkteam/goldsuite/report"
)

// UnprintableFailure replaces a failure whose description could not be produced.
const UnprintableFailure = "Test failed (unable to stringify failure detail)."

// MissingFailure describes a failed phase that carried no failure value.
const MissingFailure = "Test failed without failure detail."

// Slots holds the phase reports seen for one test. Missing phases are nil.
type Slots struct {
	Setup    *PhaseReport
	Call     *PhaseReport
	Teardown *PhaseReport
}

// Set stores r in the slot of its phase. Unknown phases are ignored.
func (s *Slots) Set(r PhaseReport) {
	switch r.Phase {
	case PhaseSetup:
		s.Setup = &r
	case PhaseCall:
		s.Call = &r
	case PhaseTeardown:
		s.Teardown = &r
	}
}

// Result is the reduction of the phase slots of one test.
type Result struct {
	Outcome  report.Outcome
	Duration time.Duration
	// ErrorDetail is set only when Outcome is failed.
	ErrorDetail *string
}

// Reduce classifies a test from its phases. The first matching rule wins:
//
//  1. setup failed    -> failed
//  2. call failed     -> failed
//  3. teardown failed -> failed
//  4. setup or call skipped -> skipped
//  5. otherwise       -> passed
//
// The duration is the sum of all observed phases. For failed tests the error detail
// comes from the first failing phase in the order call, setup, teardown.
func Reduce(s Slots) Result {
	var res Result
	for _, r := range []*PhaseReport{s.Setup, s.Call, s.Teardown} {
		if r != nil {
			res.Duration += r.Duration
		}
	}

	switch {
	case outcomeOf(s.Setup) == report.OutcomeFailed,
		outcomeOf(s.Call) == report.OutcomeFailed,
		outcomeOf(s.Teardown) == report.OutcomeFailed:
		res.Outcome = report.OutcomeFailed
	case outcomeOf(s.Setup) == report.OutcomeSkipped,
		outcomeOf(s.Call) == report.OutcomeSkipped:
		res.Outcome = report.OutcomeSkipped
	default:
		res.Outcome = report.OutcomePassed
	}

	if res.Outcome == report.OutcomeFailed {
		for _, r := range []*PhaseReport{s.Call, s.Setup, s.Teardown} {
			if outcomeOf(r) == report.OutcomeFailed {
				detail := Describe(r.Failure)
				res.ErrorDetail = &detail
				break
			}
		}
	}

	return res
}

func outcomeOf(r *PhaseReport) report.Outcome {
	if r == nil {
		return ""
	}
	return r.Outcome
}

// Describe turns a failure value into text. A nil failure yields MissingFailure, a
// panic while formatting yields UnprintableFailure.
func Describe(failure any) (s string) {
	if failure == nil {
		return MissingFailure
	}
	defer func() {
		if recover() != nil {
			s = UnprintableFailure
		}
	}()

	switch f := failure.(type) {
	case string:
		return f
	case error:
		return f.Error()
	case fmt.Stringer:
		return f.String()
	default:
		return fmt.Sprintf("%v", f)
	}
}
