package api

import (
	"maps"
	"time"
)

type (
	// FlowStatus represents the current state of a flow
	FlowStatus string

	// FlowType is a closed business identifier for a multi-step operation,
	// used only for filtering and metrics
	FlowType string

	// Context is an opaque key/value bag of caller-supplied correlation
	// data. The engine never inspects or mutates it after creation
	Context map[string]any

	// Flow is one tracked multi-step user operation spanning one or more
	// chains. Steps are append-only after creation and CurrentStep only
	// ever moves forward while the flow is running
	Flow struct {
		CreatedAt   time.Time   `json:"created_at"`
		UpdatedAt   time.Time   `json:"updated_at"`
		Context     Context     `json:"context,omitempty"`
		ID          FlowID      `json:"id"`
		Type        FlowType    `json:"type"`
		Status      FlowStatus  `json:"status"`
		LastError   string      `json:"last_error,omitempty"`
		Steps       []*FlowStep `json:"steps"`
		CurrentStep int         `json:"current_step"`
	}
)

const (
	FlowRunning   FlowStatus = "running"
	FlowCompleted FlowStatus = "completed"
	FlowFailed    FlowStatus = "failed"
	FlowCancelled FlowStatus = "cancelled"
	FlowStale     FlowStatus = "stale"
)

// CurrentStepRef returns the flow's active step, or false when CurrentStep
// is past the end of the step sequence
func (f *Flow) CurrentStepRef() (*FlowStep, bool) {
	if f.CurrentStep < 0 || f.CurrentStep >= len(f.Steps) {
		return nil, false
	}
	return f.Steps[f.CurrentStep], true
}

// Clone returns a deep copy of the flow. Mutating the copy never aliases
// the original's steps
func (f *Flow) Clone() *Flow {
	if f == nil {
		return nil
	}
	res := *f
	res.Steps = make([]*FlowStep, len(f.Steps))
	for i, s := range f.Steps {
		res.Steps[i] = s.Clone()
	}
	res.Context = maps.Clone(f.Context)
	return &res
}

// Equal reports field-level structural equality between two flows. Context
// is write-once and never touched by the engine, so it does not participate
// in the comparison
func (f *Flow) Equal(o *Flow) bool {
	if f == nil || o == nil {
		return f == o
	}
	if f.ID != o.ID ||
		f.Type != o.Type ||
		f.Status != o.Status ||
		f.LastError != o.LastError ||
		f.CurrentStep != o.CurrentStep ||
		!f.CreatedAt.Equal(o.CreatedAt) ||
		!f.UpdatedAt.Equal(o.UpdatedAt) ||
		len(f.Steps) != len(o.Steps) {
		return false
	}
	for i, s := range f.Steps {
		if !s.Equal(o.Steps[i]) {
			return false
		}
	}
	return true
}

// Digest summarizes the flow for list responses
func (f *Flow) Digest() *FlowDigest {
	return &FlowDigest{
		ID:          f.ID,
		Type:        f.Type,
		Status:      f.Status,
		CurrentStep: f.CurrentStep,
		StepCount:   len(f.Steps),
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
		Error:       f.LastError,
	}
}
