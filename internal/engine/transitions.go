package engine

import (
	"github.com/lumenlabs/chainflow/internal/util"
	"github.com/lumenlabs/chainflow/pkg/api"
)

// StateTransitions maps states to their set of valid next states
//
// Generic state transition tables are used to validate flow and step
// status changes
type StateTransitions[T comparable] map[T]util.Set[T]

var (
	flowTransitions = StateTransitions[api.FlowStatus]{
		api.FlowRunning: util.SetOf(
			api.FlowCompleted,
			api.FlowFailed,
			api.FlowCancelled,
			api.FlowStale,
		),
		api.FlowCompleted: {},
		api.FlowFailed:    {},
		api.FlowCancelled: {},
		api.FlowStale:     {},
	}

	stepTransitions = StateTransitions[api.StepStatus]{
		api.StepPending: util.SetOf(
			api.StepAwaitingUser,
			api.StepSubmitted,
			api.StepMonitoring,
			api.StepConfirmed,
			api.StepFailed,
			api.StepSkipped,
		),
		api.StepAwaitingUser: util.SetOf(
			api.StepSubmitted,
			api.StepMonitoring,
			api.StepConfirmed,
			api.StepFailed,
			api.StepSkipped,
		),
		api.StepSubmitted: util.SetOf(
			api.StepMonitoring,
			api.StepConfirmed,
			api.StepFailed,
		),
		api.StepMonitoring: util.SetOf(
			api.StepConfirmed,
			api.StepFailed,
		),
		api.StepConfirmed: {},
		api.StepFailed:    {},
		api.StepSkipped:   {},
	}
)

// CanTransition returns whether transition from one state to another is valid
func (t StateTransitions[T]) CanTransition(from, to T) bool {
	allowed, ok := t[from]
	if !ok {
		return false
	}
	return allowed.Contains(to)
}

// IsTerminal returns true if the state has no valid transitions
func (t StateTransitions[T]) IsTerminal(state T) bool {
	allowed, ok := t[state]
	return ok && allowed.IsEmpty()
}
