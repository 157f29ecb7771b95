package helpers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lumenlabs/chainflow/internal/engine"
	"github.com/lumenlabs/chainflow/internal/probe"
	"github.com/lumenlabs/chainflow/pkg/api"
)

// TestEnv holds all the components needed for engine testing: a tracker
// and supervisor on a manual clock, with a scripted probe registered for
// the test chains
type TestEnv struct {
	Tracker    *engine.Tracker
	Supervisor *engine.Supervisor
	Hub        *engine.Hub
	Probe      *MockProbe
	Registry   *probe.Registry
	Clock      *Clock
}

// Chains the scripted probe answers for in tests
const (
	ChainAlpha api.Chain = "alpha"
	ChainBeta  api.Chain = "beta"
)

const testStalenessWindow = 30 * time.Minute

// NewTestEnv creates a fully wired tracker and supervisor over a mock
// probe and a manual clock. The supervisor never ticks on its own; tests
// drive it through Supervisor.Tick
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	clock := NewClock(time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC))
	hub := engine.NewHub()
	tracker := engine.NewTracker(hub, api.DefaultToleranceBps,
		engine.WithClock(clock.Now))

	mock := NewMockProbe()
	registry := probe.NewRegistry()
	registry.Register(ChainAlpha, mock)
	registry.Register(ChainBeta, mock)

	supervisor := engine.NewSupervisor(tracker, registry,
		engine.SupervisorConfig{
			TickInterval:    time.Hour,
			StalenessWindow: testStalenessWindow,
			Workers:         4,
		})

	return &TestEnv{
		Tracker:    tracker,
		Supervisor: supervisor,
		Hub:        hub,
		Probe:      mock,
		Registry:   registry,
		Clock:      clock,
	}
}

// StartFlow creates a flow from the given specs, failing the test on error
func (e *TestEnv) StartFlow(
	t *testing.T, steps ...*api.StepSpec,
) *api.Flow {
	t.Helper()
	flow, err := e.Tracker.StartFlow(context.Background(),
		&api.CreateFlowRequest{
			Type:  "test_flow",
			Steps: steps,
		})
	require.NoError(t, err)
	return flow
}

// Tick runs one synchronous supervision pass
func (e *TestEnv) Tick() {
	e.Supervisor.Tick(context.Background())
}

// Flow refetches a flow by ID, failing the test on error
func (e *TestEnv) Flow(t *testing.T, id api.FlowID) *api.Flow {
	t.Helper()
	flow, err := e.Tracker.GetFlow(id)
	require.NoError(t, err)
	return flow
}
