package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lumenlabs/chainflow/internal/store"
	"github.com/lumenlabs/chainflow/internal/util"
	"github.com/lumenlabs/chainflow/pkg/api"
	"github.com/lumenlabs/chainflow/pkg/log"
)

type (
	// Tracker is the caller-facing surface of the flow engine. It owns the
	// flow store and applies all explicit state changes through the same
	// atomic update path the supervisor uses, so caller writes and probe
	// reductions can never interleave destructively
	Tracker struct {
		store       *store.Store
		hub         *Hub
		snapshotter store.Snapshotter
		now         func() time.Time
		defaultBps  int
	}

	// TrackerOption configures optional tracker behavior
	TrackerOption func(*Tracker)
)

var (
	ErrInvalidState  = errors.New("invalid state transition")
	ErrNoSteps       = errors.New("flow has no steps")
	ErrDuplicateStep = errors.New("duplicate step ID")
	ErrNoCurrentStep = errors.New("flow has no current step")
	ErrFlowStillLive = errors.New("cannot remove a running flow")
)

// WithSnapshotter attaches a durability backend. The tracker persists the
// full flow set on every mutation, best effort
func WithSnapshotter(s store.Snapshotter) TrackerOption {
	return func(t *Tracker) {
		t.snapshotter = s
	}
}

// WithClock overrides the tracker's time source, used in tests
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		t.now = now
		t.store = store.NewWithClock(now)
	}
}

// NewTracker creates a flow tracker with an empty store
func NewTracker(hub *Hub, defaultBps int, opts ...TrackerOption) *Tracker {
	res := &Tracker{
		store:      store.New(),
		hub:        hub,
		now:        time.Now,
		defaultBps: defaultBps,
	}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// StartFlow validates the request, materializes its steps, and registers
// the new flow in running state
func (t *Tracker) StartFlow(
	ctx context.Context, req *api.CreateFlowRequest,
) (*api.Flow, error) {
	if len(req.Steps) == 0 {
		return nil, ErrNoSteps
	}
	seen := util.Set[api.StepID]{}
	for _, spec := range req.Steps {
		if err := spec.Validate(); err != nil {
			return nil, err
		}
		if seen.Contains(spec.ID) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateStep, spec.ID)
		}
		seen.Add(spec.ID)
	}

	now := t.now()
	flow := &api.Flow{
		ID:        api.NewFlowID(),
		Type:      req.Type,
		Status:    api.FlowRunning,
		Context:   req.Context,
		Steps:     make([]*api.FlowStep, len(req.Steps)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i, spec := range req.Steps {
		flow.Steps[i] = spec.Step(now)
	}

	if err := t.store.Create(flow); err != nil {
		return nil, err
	}
	slog.Info("Flow started",
		log.FlowID(flow.ID),
		slog.String("type", string(flow.Type)),
		slog.Int("steps", len(flow.Steps)))

	t.publish(ctx, flow)
	return flow, nil
}

// GetFlow returns the flow with the given ID
func (t *Tracker) GetFlow(id api.FlowID) (*api.Flow, error) {
	return t.store.Get(id)
}

// ListActiveFlows returns all running flows
func (t *Tracker) ListActiveFlows() []*api.Flow {
	return t.store.ListRunning()
}

// ListFlows returns every tracked flow regardless of status
func (t *Tracker) ListFlows() []*api.Flow {
	return t.store.List()
}

// SetCurrentStepStatus applies a caller-driven status change to the
// current step of a running flow. The step transition table gates the
// change; confirming the current step advances the flow
func (t *Tracker) SetCurrentStepStatus(
	ctx context.Context, id api.FlowID, patch *api.StepPatchRequest,
) (*api.Flow, error) {
	// Confirming or failing the current step is flow-level progress;
	// route through the single code path for each
	if patch.Status == api.StepConfirmed {
		return t.AdvanceFlowStep(ctx, id)
	}
	if patch.Status == api.StepFailed {
		return t.FailFlow(ctx, id, "failed by caller")
	}

	flow, err := t.store.Update(id, func(flow *api.Flow) (*api.Flow, error) {
		if flow.Status != api.FlowRunning {
			return nil, fmt.Errorf("%w: flow is %s",
				ErrInvalidState, flow.Status)
		}
		step, ok := flow.CurrentStepRef()
		if !ok {
			return nil, ErrNoCurrentStep
		}
		if !stepTransitions.CanTransition(step.Status, patch.Status) {
			return nil, fmt.Errorf("%w: step %s cannot move %s -> %s",
				ErrInvalidState, step.ID, step.Status, patch.Status)
		}
		now := t.now()
		step.Status = patch.Status
		step.UpdatedAt = now
		if patch.TxHash != "" && step.Tx != nil {
			step.Tx.TxHash = patch.TxHash
		}
		if patch.Status == api.StepSkipped {
			return skipStep(flow, now), nil
		}
		flow.UpdatedAt = now
		return flow, nil
	})
	if err != nil {
		return nil, err
	}

	t.publish(ctx, flow)
	return flow, nil
}

// AdvanceFlowStep confirms the current step and moves the flow forward,
// completing it when the confirmed step was the last
func (t *Tracker) AdvanceFlowStep(
	ctx context.Context, id api.FlowID,
) (*api.Flow, error) {
	flow, err := t.store.Update(id, func(flow *api.Flow) (*api.Flow, error) {
		if flow.Status != api.FlowRunning {
			return nil, fmt.Errorf("%w: flow is %s",
				ErrInvalidState, flow.Status)
		}
		step, ok := flow.CurrentStepRef()
		if !ok {
			return nil, ErrNoCurrentStep
		}
		if !stepTransitions.CanTransition(step.Status, api.StepConfirmed) {
			return nil, fmt.Errorf("%w: step %s cannot move %s -> %s",
				ErrInvalidState, step.ID, step.Status, api.StepConfirmed)
		}
		return advanceStep(flow, t.now()), nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Flow step advanced",
		log.FlowID(flow.ID),
		log.Status(flow.Status),
		slog.Int("current_step", flow.CurrentStep))
	t.publish(ctx, flow)
	return flow, nil
}

// FailFlow marks a running flow failed with the given reason, failing its
// current step along the way
func (t *Tracker) FailFlow(
	ctx context.Context, id api.FlowID, reason string,
) (*api.Flow, error) {
	flow, err := t.store.Update(id, func(flow *api.Flow) (*api.Flow, error) {
		if flowTransitions.IsTerminal(flow.Status) {
			return nil, fmt.Errorf("%w: flow is %s",
				ErrInvalidState, flow.Status)
		}
		if reason == "" {
			reason = "failed by caller"
		}
		return failStep(flow, reason, t.now()), nil
	})
	if err != nil {
		return nil, err
	}

	slog.Warn("Flow failed",
		log.FlowID(flow.ID),
		log.ErrorString(flow.LastError))
	t.publish(ctx, flow)
	return flow, nil
}

// CancelFlow marks a non-terminal flow cancelled. Cancellation always
// wins; a supervision pass racing with it cannot resurrect the flow
func (t *Tracker) CancelFlow(
	ctx context.Context, id api.FlowID,
) (*api.Flow, error) {
	flow, err := t.store.Update(id, func(flow *api.Flow) (*api.Flow, error) {
		if !flowTransitions.CanTransition(flow.Status, api.FlowCancelled) {
			return nil, fmt.Errorf("%w: flow is %s",
				ErrInvalidState, flow.Status)
		}
		flow.Status = api.FlowCancelled
		flow.UpdatedAt = t.now()
		return flow, nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Flow cancelled",
		log.FlowID(flow.ID))
	t.publish(ctx, flow)
	return flow, nil
}

// RemoveFlow purges a terminal flow from the store. Running flows must be
// cancelled first
func (t *Tracker) RemoveFlow(ctx context.Context, id api.FlowID) error {
	flow, err := t.store.Get(id)
	if err != nil {
		return err
	}
	if !flowTransitions.IsTerminal(flow.Status) {
		return fmt.Errorf("%w: %s", ErrFlowStillLive, id)
	}
	// Terminal statuses never revert, so the check-then-remove cannot race
	// with the supervisor
	if err := t.store.Remove(id); err != nil {
		return err
	}
	t.persist(ctx)
	return nil
}

// Restore reloads the flow set from the snapshotter, replacing the store's
// contents. A nil snapshotter is a no-op
func (t *Tracker) Restore(ctx context.Context) error {
	if t.snapshotter == nil {
		return nil
	}
	flows, err := t.snapshotter.Load(ctx)
	if err != nil {
		return err
	}
	t.store.Restore(flows)
	slog.Info("Flows restored from snapshot",
		slog.Int("count", len(flows)))
	return nil
}

// skipStep moves past a skipped current step without confirming it
func skipStep(flow *api.Flow, now time.Time) *api.Flow {
	flow.CurrentStep++
	if flow.CurrentStep >= len(flow.Steps) {
		flow.Status = api.FlowCompleted
	}
	flow.UpdatedAt = now
	return flow
}

// publish pushes the updated flow to subscribers and persists the store,
// both best effort
func (t *Tracker) publish(ctx context.Context, flow *api.Flow) {
	t.hub.Publish(flow)
	t.persist(ctx)
}

func (t *Tracker) persist(ctx context.Context) {
	if t.snapshotter == nil {
		return
	}
	if err := t.snapshotter.Save(ctx, t.store.List()); err != nil {
		slog.Error("Snapshot save failed",
			log.Error(err))
	}
}
