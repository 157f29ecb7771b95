package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lumenlabs/chainflow/internal/probe"
	"github.com/lumenlabs/chainflow/pkg/api"
	"github.com/lumenlabs/chainflow/pkg/log"
)

type (
	// Supervisor periodically sweeps all running flows, probes the chain
	// state their current steps depend on, and folds the observations back
	// into the store. Each flow is evaluated in isolation; one flow's probe
	// failure or panic never disturbs the others
	Supervisor struct {
		tracker  *Tracker
		probes   *probe.Registry
		stop     chan struct{}
		done     chan struct{}
		now      func() time.Time
		interval time.Duration
		stale    time.Duration
		workers  int
		started  atomic.Bool
		stopOnce sync.Once
	}

	// SupervisorConfig bundles the supervisor's tuning knobs
	SupervisorConfig struct {
		TickInterval    time.Duration
		StalenessWindow time.Duration
		Workers         int
	}
)

// NewSupervisor creates a supervisor over the given tracker and probes.
// It does not start ticking until Start is called
func NewSupervisor(
	t *Tracker, probes *probe.Registry, cfg SupervisorConfig,
) *Supervisor {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Supervisor{
		tracker:  t,
		probes:   probes,
		interval: cfg.TickInterval,
		stale:    cfg.StalenessWindow,
		workers:  workers,
		now:      t.now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the periodic supervision loop. It returns immediately;
// the loop runs until Stop is called or the context is cancelled
func (s *Supervisor) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go s.run(ctx)
}

// Stop halts the supervision loop and waits for an in-flight tick to
// finish. Calling Stop on a supervisor that was never started is a no-op
func (s *Supervisor) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	if s.started.Load() {
		<-s.done
	}
}

func (s *Supervisor) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("Supervisor started",
		slog.Duration("interval", s.interval),
		slog.Int("workers", s.workers))

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one complete supervision pass synchronously. When no flows
// are running it returns without touching any probe
func (s *Supervisor) Tick(ctx context.Context) {
	flows := s.tracker.store.ListRunning()
	if len(flows) == 0 {
		return
	}

	work := make(chan *api.Flow)
	var wg sync.WaitGroup
	workers := min(s.workers, len(flows))
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for flow := range work {
				s.superviseFlow(ctx, flow)
			}
		}()
	}

	for _, flow := range flows {
		select {
		case <-ctx.Done():
			close(work)
			wg.Wait()
			return
		case work <- flow:
		}
	}
	close(work)
	wg.Wait()
}

// superviseFlow evaluates a single flow against fresh observations and
// commits the result. Panics are contained so a corrupt flow cannot take
// the tick down
func (s *Supervisor) superviseFlow(ctx context.Context, snap *api.Flow) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Flow supervision panicked",
				log.FlowID(snap.ID),
				slog.Any("panic", r))
		}
	}()

	step, ok := snap.CurrentStepRef()
	var outcome Outcome
	now := s.now()
	if ok {
		obs := s.observe(ctx, step)
		outcome = Evaluate(step, obs, s.tracker.defaultBps, now)
	}

	reduced := Reduce(snap, outcome, s.stale, now)
	if reduced == snap {
		return
	}

	var prev *api.Flow
	committed, err := s.tracker.store.Update(snap.ID,
		func(cur *api.Flow) (*api.Flow, error) {
			prev = cur.Clone()
			return mergeReduction(cur, snap, reduced), nil
		})
	if err != nil {
		// Removed between snapshot and commit; nothing to do
		return
	}
	if committed.Equal(prev) {
		return
	}

	s.logTransition(prev, committed)
	s.tracker.publish(ctx, committed)
}

// observe gathers only the observations the step's evaluation can use.
// Steps that cannot act on chain state cost no probe calls
func (s *Supervisor) observe(
	ctx context.Context, step *api.FlowStep,
) Observations {
	var obs Observations
	switch step.Kind {
	case api.KindTxConfirm:
		if step.Tx.TxHash == "" {
			// Hash not reported yet; nothing to look up
			obs.Tx = api.TxInconclusive()
			break
		}
		switch step.Status {
		case api.StepSubmitted, api.StepMonitoring:
			obs.Tx = s.probes.TxStatus(
				ctx, step.Tx.Chain, step.Tx.TxHash)
		}
	case api.KindBalanceCondition:
		switch step.Status {
		case api.StepPending, api.StepSubmitted, api.StepMonitoring:
			obs.Balance = s.probes.TokenBalance(
				ctx, step.Balance.Chain,
				step.Balance.TokenAddress, step.Balance.Account)
		}
	}
	return obs
}

// mergeReduction reconciles a reduction computed from a snapshot with the
// flow's current store value, which may have moved underneath it. The
// rules keep both writers safe: terminal current state always wins, a
// caller's own progress wins over an outdated reduction, and the
// reduction applies cleanly only when the flow has not shifted under it
func mergeReduction(cur, snap, reduced *api.Flow) *api.Flow {
	if cur.Status != api.FlowRunning {
		return cur
	}

	if reduced.Status == api.FlowStale {
		// Staleness was judged against the snapshot's UpdatedAt; any
		// concurrent mutation refreshed it, so the verdict no longer
		// holds on the current value
		if cur.UpdatedAt.Equal(snap.UpdatedAt) {
			return applyReduction(cur, snap, reduced)
		}
		return cur
	}

	if flowTransitions.IsTerminal(reduced.Status) ||
		reduced.CurrentStep > cur.CurrentStep {
		return applyReduction(cur, snap, reduced)
	}

	if reduced.CurrentStep == cur.CurrentStep {
		step, ok := cur.CurrentStepRef()
		if ok && step.Equal(snap.Steps[snap.CurrentStep]) {
			return applyReduction(cur, snap, reduced)
		}
	}
	// The caller moved the flow since the snapshot was taken; drop the
	// reduction and pick up the new state next tick
	return cur
}

// applyReduction carries the reduced flow-level fields and any changed
// steps onto the current value, leaving untouched steps as the caller
// left them
func applyReduction(cur, snap, reduced *api.Flow) *api.Flow {
	cur.Status = reduced.Status
	cur.CurrentStep = reduced.CurrentStep
	cur.LastError = reduced.LastError
	cur.UpdatedAt = reduced.UpdatedAt
	for i := range cur.Steps {
		if i < len(snap.Steps) && !snap.Steps[i].Equal(reduced.Steps[i]) {
			cur.Steps[i] = reduced.Steps[i].Clone()
		}
	}
	return cur
}

func (s *Supervisor) logTransition(before, after *api.Flow) {
	switch {
	case after.Status != before.Status:
		slog.Info("Flow status changed",
			log.FlowID(after.ID),
			log.Status(after.Status),
			log.ErrorString(after.LastError))
	case after.CurrentStep != before.CurrentStep:
		slog.Info("Flow advanced",
			log.FlowID(after.ID),
			slog.Int("current_step", after.CurrentStep))
	}
}
