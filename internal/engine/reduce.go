package engine

import (
	"time"

	"github.com/lumenlabs/chainflow/pkg/api"
)

// Reduce folds one supervision pass over a flow: staleness check first,
// then the current step's evaluation outcome. It is pure; the input flow
// is never mutated and the same input is returned unchanged when nothing
// needs to happen.
//
// Staleness is checked before the outcome so that a flow past the window
// is parked even when its probe would have advanced it this tick
func Reduce(
	flow *api.Flow, outcome Outcome, staleness time.Duration, now time.Time,
) *api.Flow {
	if flowTransitions.IsTerminal(flow.Status) {
		return flow
	}

	// Stale is distinct from failed: the flow was abandoned, not known
	// to have gone wrong, so LastError stays empty
	if staleness > 0 && now.Sub(flow.UpdatedAt) > staleness {
		next := flow.Clone()
		next.Status = api.FlowStale
		next.UpdatedAt = now
		return next
	}

	step, ok := flow.CurrentStepRef()
	if !ok {
		// Index already past the last step; normally completion happens
		// on advance, this is a backstop for restored snapshots
		next := flow.Clone()
		next.Status = api.FlowCompleted
		next.UpdatedAt = now
		return next
	}

	switch outcome.Kind {
	case OutcomeAdvance:
		return advanceStep(flow, now)
	case OutcomeFail:
		return failStep(flow, outcome.Reason, now)
	case OutcomeKeepMonitoring:
		if step.Status == api.StepMonitoring {
			return flow
		}
		next := flow.Clone()
		cur := next.Steps[next.CurrentStep]
		cur.Status = api.StepMonitoring
		cur.UpdatedAt = now
		next.UpdatedAt = now
		return next
	default:
		return flow
	}
}

// advanceStep confirms the current step and moves the index forward,
// completing the flow when it was the last one
func advanceStep(flow *api.Flow, now time.Time) *api.Flow {
	next := flow.Clone()
	cur := next.Steps[next.CurrentStep]
	cur.Status = api.StepConfirmed
	cur.Error = ""
	cur.UpdatedAt = now

	next.CurrentStep++
	if next.CurrentStep >= len(next.Steps) {
		next.Status = api.FlowCompleted
	}
	next.UpdatedAt = now
	return next
}

func failStep(flow *api.Flow, reason string, now time.Time) *api.Flow {
	next := flow.Clone()
	if cur, ok := next.CurrentStepRef(); ok {
		cur.Status = api.StepFailed
		cur.Error = reason
		cur.UpdatedAt = now
	}
	next.Status = api.FlowFailed
	next.LastError = reason
	next.UpdatedAt = now
	return next
}
