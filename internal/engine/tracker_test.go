package engine_test

import (
	"context"
	"testing"

	"github.com/lumenlabs/chainflow/internal/assert"
	"github.com/lumenlabs/chainflow/internal/assert/helpers"
	"github.com/lumenlabs/chainflow/internal/engine"
	"github.com/lumenlabs/chainflow/internal/store"
	"github.com/lumenlabs/chainflow/pkg/api"
)

func TestStartFlow(t *testing.T) {
	as := assert.New(t)
	env := helpers.NewTestEnv(t)

	flow := env.StartFlow(t,
		helpers.WalletStep("approve"),
		helpers.TxStep("confirm", helpers.ChainAlpha, "0xabc"),
	)

	as.NotEmpty(flow.ID)
	as.FlowStatus(flow, api.FlowRunning)
	as.FlowAt(flow, 0)
	as.Len(flow.Steps, 2)
	as.StepStatus(flow, 0, api.StepAwaitingUser)
	as.StepStatus(flow, 1, api.StepSubmitted)
	as.Equal(flow.CreatedAt, flow.UpdatedAt)
}

func TestStartFlowValidation(t *testing.T) {
	as := assert.New(t)
	env := helpers.NewTestEnv(t)
	ctx := context.Background()

	_, err := env.Tracker.StartFlow(ctx, &api.CreateFlowRequest{
		Type: "empty",
	})
	as.ErrorIs(err, engine.ErrNoSteps)

	_, err = env.Tracker.StartFlow(ctx, &api.CreateFlowRequest{
		Type: "dupes",
		Steps: []*api.StepSpec{
			helpers.WalletStep("approve"),
			helpers.ManualStep("approve"),
		},
	})
	as.ErrorIs(err, engine.ErrDuplicateStep)

	_, err = env.Tracker.StartFlow(ctx, &api.CreateFlowRequest{
		Type: "mismatch",
		Steps: []*api.StepSpec{{
			ID:    "confirm",
			Label: "Confirm",
			Kind:  api.KindTxConfirm,
		}},
	})
	as.ErrorIs(err, api.ErrConditionMismatch)

	as.Zero(env.Tracker.ListFlows())
}

func TestSetCurrentStepStatus(t *testing.T) {
	as := assert.New(t)
	env := helpers.NewTestEnv(t)
	ctx := context.Background()

	flow := env.StartFlow(t,
		helpers.TxStep("confirm", helpers.ChainAlpha, ""),
	)

	// The wallet reported submission along with the hash
	updated, err := env.Tracker.SetCurrentStepStatus(ctx, flow.ID,
		&api.StepPatchRequest{
			Status: api.StepMonitoring,
			TxHash: "0xdef",
		})
	as.Require.NoError(err)
	as.StepStatus(updated, 0, api.StepMonitoring)
	as.Equal("0xdef", updated.Steps[0].Tx.TxHash)
}

func TestSetCurrentStepStatusInvalidTransition(t *testing.T) {
	as := assert.New(t)
	env := helpers.NewTestEnv(t)
	ctx := context.Background()

	flow := env.StartFlow(t,
		helpers.TxStep("confirm", helpers.ChainAlpha, "0xabc"),
	)

	// A monitoring step cannot step back to awaiting_user
	_, err := env.Tracker.SetCurrentStepStatus(ctx, flow.ID,
		&api.StepPatchRequest{Status: api.StepMonitoring})
	as.Require.NoError(err)
	_, err = env.Tracker.SetCurrentStepStatus(ctx, flow.ID,
		&api.StepPatchRequest{Status: api.StepAwaitingUser})
	as.ErrorIs(err, engine.ErrInvalidState)
}

func TestSetCurrentStepStatusSkip(t *testing.T) {
	as := assert.New(t)
	env := helpers.NewTestEnv(t)
	ctx := context.Background()

	flow := env.StartFlow(t,
		helpers.ManualStep("review"),
		helpers.WalletStep("approve"),
	)

	updated, err := env.Tracker.SetCurrentStepStatus(ctx, flow.ID,
		&api.StepPatchRequest{Status: api.StepSkipped})
	as.Require.NoError(err)
	as.StepStatus(updated, 0, api.StepSkipped)
	as.FlowAt(updated, 1)
	as.FlowStatus(updated, api.FlowRunning)
}

func TestAdvanceFlowStep(t *testing.T) {
	as := assert.New(t)
	env := helpers.NewTestEnv(t)
	ctx := context.Background()

	flow := env.StartFlow(t,
		helpers.WalletStep("approve"),
		helpers.ManualStep("review"),
	)

	updated, err := env.Tracker.AdvanceFlowStep(ctx, flow.ID)
	as.Require.NoError(err)
	as.FlowAt(updated, 1)
	as.StepStatus(updated, 0, api.StepConfirmed)
	as.FlowStatus(updated, api.FlowRunning)

	updated, err = env.Tracker.AdvanceFlowStep(ctx, flow.ID)
	as.Require.NoError(err)
	as.FlowAt(updated, 2)
	as.FlowStatus(updated, api.FlowCompleted)

	// Nothing left to advance
	_, err = env.Tracker.AdvanceFlowStep(ctx, flow.ID)
	as.ErrorIs(err, engine.ErrInvalidState)
}

func TestConfirmPatchAdvances(t *testing.T) {
	as := assert.New(t)
	env := helpers.NewTestEnv(t)
	ctx := context.Background()

	flow := env.StartFlow(t,
		helpers.WalletStep("approve"),
		helpers.ManualStep("review"),
	)

	updated, err := env.Tracker.SetCurrentStepStatus(ctx, flow.ID,
		&api.StepPatchRequest{Status: api.StepConfirmed})
	as.Require.NoError(err)
	as.FlowAt(updated, 1)
	as.StepStatus(updated, 0, api.StepConfirmed)
}

func TestFailFlow(t *testing.T) {
	as := assert.New(t)
	env := helpers.NewTestEnv(t)
	ctx := context.Background()

	flow := env.StartFlow(t, helpers.WalletStep("approve"))

	updated, err := env.Tracker.FailFlow(ctx, flow.ID, "user rejected")
	as.Require.NoError(err)
	as.FlowStatus(updated, api.FlowFailed)
	as.Equal("user rejected", updated.LastError)
	as.StepStatus(updated, 0, api.StepFailed)
}

func TestCancelFlow(t *testing.T) {
	as := assert.New(t)
	env := helpers.NewTestEnv(t)
	ctx := context.Background()

	flow := env.StartFlow(t, helpers.WalletStep("approve"))

	updated, err := env.Tracker.CancelFlow(ctx, flow.ID)
	as.Require.NoError(err)
	as.FlowStatus(updated, api.FlowCancelled)
}

func TestTerminalFlowImmutable(t *testing.T) {
	as := assert.New(t)
	env := helpers.NewTestEnv(t)
	ctx := context.Background()

	flow := env.StartFlow(t, helpers.WalletStep("approve"))
	_, err := env.Tracker.CancelFlow(ctx, flow.ID)
	as.Require.NoError(err)

	// No caller operation may move a terminal flow
	_, err = env.Tracker.SetCurrentStepStatus(ctx, flow.ID,
		&api.StepPatchRequest{Status: api.StepSubmitted})
	as.ErrorIs(err, engine.ErrInvalidState)
	_, err = env.Tracker.AdvanceFlowStep(ctx, flow.ID)
	as.ErrorIs(err, engine.ErrInvalidState)
	_, err = env.Tracker.FailFlow(ctx, flow.ID, "too late")
	as.ErrorIs(err, engine.ErrInvalidState)
	_, err = env.Tracker.CancelFlow(ctx, flow.ID)
	as.ErrorIs(err, engine.ErrInvalidState)

	got := env.Flow(t, flow.ID)
	as.FlowStatus(got, api.FlowCancelled)
}

func TestRemoveFlow(t *testing.T) {
	as := assert.New(t)
	env := helpers.NewTestEnv(t)
	ctx := context.Background()

	flow := env.StartFlow(t, helpers.WalletStep("approve"))

	err := env.Tracker.RemoveFlow(ctx, flow.ID)
	as.ErrorIs(err, engine.ErrFlowStillLive)

	_, err = env.Tracker.CancelFlow(ctx, flow.ID)
	as.Require.NoError(err)
	as.Require.NoError(env.Tracker.RemoveFlow(ctx, flow.ID))

	_, err = env.Tracker.GetFlow(flow.ID)
	as.ErrorIs(err, store.ErrFlowNotFound)
}

func TestListActiveFlows(t *testing.T) {
	as := assert.New(t)
	env := helpers.NewTestEnv(t)
	ctx := context.Background()

	running := env.StartFlow(t, helpers.WalletStep("approve"))
	cancelled := env.StartFlow(t, helpers.WalletStep("approve"))
	_, err := env.Tracker.CancelFlow(ctx, cancelled.ID)
	as.Require.NoError(err)

	active := env.Tracker.ListActiveFlows()
	as.Require.Len(active, 1)
	as.Equal(running.ID, active[0].ID)
	as.Len(env.Tracker.ListFlows(), 2)
}

func TestTrackerPublishesUpdates(t *testing.T) {
	as := assert.New(t)
	env := helpers.NewTestEnv(t)
	ctx := context.Background()

	ch, cancel := env.Hub.Subscribe()
	defer cancel()

	flow := env.StartFlow(t, helpers.WalletStep("approve"))
	started := <-ch
	as.Equal(flow.ID, started.ID)
	as.FlowStatus(started, api.FlowRunning)

	_, err := env.Tracker.CancelFlow(ctx, flow.ID)
	as.Require.NoError(err)
	update := <-ch
	as.FlowStatus(update, api.FlowCancelled)
}
