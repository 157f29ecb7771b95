package assert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lumenlabs/chainflow/pkg/api"
)

// Wrapper wraps testify assertions with chainflow-specific helpers
type Wrapper struct {
	*testing.T
	*assert.Assertions
	Require *assert.Assertions
}

// DefaultRetryInterval is the default polling interval for Eventually checks
const DefaultRetryInterval = 100 * time.Millisecond

// New creates a new test assertion wrapper with both assert and require from
// testify plus chainflow-specific helpers
func New(t *testing.T) *Wrapper {
	return &Wrapper{
		T:          t,
		Assertions: assert.New(t),
		Require:    assert.New(t),
	}
}

// FlowStatus asserts the status of a flow
func (w *Wrapper) FlowStatus(flow *api.Flow, expected api.FlowStatus) {
	w.Helper()
	w.Equal(expected, flow.Status)
}

// FlowAt asserts the flow's current step index
func (w *Wrapper) FlowAt(flow *api.Flow, index int) {
	w.Helper()
	w.Equal(index, flow.CurrentStep)
}

// StepStatus asserts the status of the step at the given index
func (w *Wrapper) StepStatus(
	flow *api.Flow, index int, expected api.StepStatus,
) {
	w.Helper()
	w.Require.Less(index, len(flow.Steps))
	w.Equal(expected, flow.Steps[index].Status)
}

// StepValid asserts that a step spec validates cleanly
func (w *Wrapper) StepValid(s *api.StepSpec) {
	w.Helper()
	w.NoError(s.Validate())
	w.NotEmpty(s.ID)
	w.NotEmpty(s.Label)
}

// StepInvalid asserts that a step spec fails validation with the given
// sentinel
func (w *Wrapper) StepInvalid(s *api.StepSpec, expected error) error {
	w.Helper()
	err := s.Validate()
	w.Error(err)
	if err != nil && expected != nil {
		w.ErrorIs(err, expected)
	}
	return err
}
