package engine

import (
	"fmt"
	"math/big"
	"time"

	"github.com/lumenlabs/chainflow/pkg/api"
)

type (
	// OutcomeKind classifies the result of evaluating a step against fresh
	// probe observations
	OutcomeKind string

	// Outcome is a step evaluation result. Reason is set only for failures
	Outcome struct {
		Kind   OutcomeKind
		Reason string
	}

	// Observations carries the probe results gathered for one step ahead
	// of its evaluation
	Observations struct {
		Tx      api.TxObservation
		Balance api.BalanceObservation
	}
)

const (
	OutcomeNoChange       OutcomeKind = "no_change"
	OutcomeKeepMonitoring OutcomeKind = "keep_monitoring"
	OutcomeAdvance        OutcomeKind = "advance"
	OutcomeFail           OutcomeKind = "fail"
)

func noChange() Outcome {
	return Outcome{Kind: OutcomeNoChange}
}

func keepMonitoring() Outcome {
	return Outcome{Kind: OutcomeKeepMonitoring}
}

func advance() Outcome {
	return Outcome{Kind: OutcomeAdvance}
}

func fail(format string, args ...any) Outcome {
	return Outcome{Kind: OutcomeFail, Reason: fmt.Sprintf(format, args...)}
}

// Evaluate decides a step's next status from fresh probe observations. It
// is a pure function; missing or inconclusive observations conservatively
// keep the step monitoring and never advance or fail it.
//
// The timeout check runs before any kind-specific logic, so an expired
// step fails even when its probe simultaneously reports success
func Evaluate(
	step *api.FlowStep, obs Observations, defaultBps int, now time.Time,
) Outcome {
	if timeout := step.TimeoutDuration(); timeout > 0 &&
		now.Sub(step.StartedAt) > timeout {
		return fail("%s timed out", step.Label)
	}

	switch step.Kind {
	case api.KindTxConfirm:
		return evaluateTxConfirm(step, obs.Tx)
	case api.KindBalanceCondition:
		return evaluateBalance(step, obs.Balance, defaultBps)
	case api.KindWalletConfirmation, api.KindManualAction:
		// Driven only by explicit caller transitions, never by the
		// supervisor
		return noChange()
	default:
		return noChange()
	}
}

func evaluateTxConfirm(step *api.FlowStep, obs api.TxObservation) Outcome {
	switch step.Status {
	case api.StepPending:
		// We just started watching, not yet polled
		return keepMonitoring()
	case api.StepSubmitted, api.StepMonitoring:
		switch {
		case obs.Failed:
			return fail("%s failed on chain", step.Label)
		case obs.Confirmed:
			return advance()
		default:
			return keepMonitoring()
		}
	default:
		return noChange()
	}
}

func evaluateBalance(
	step *api.FlowStep, obs api.BalanceObservation, defaultBps int,
) Outcome {
	switch step.Status {
	case api.StepPending, api.StepSubmitted, api.StepMonitoring:
	default:
		return noChange()
	}

	if obs.Inconclusive || obs.Amount == nil {
		return keepMonitoring()
	}

	cond := step.Balance
	previous, err := api.ParseAmount(cond.PreviousBalance)
	if err != nil {
		return keepMonitoring()
	}
	expected, err := api.ParseAmount(cond.ExpectedIncrease)
	if err != nil {
		return keepMonitoring()
	}

	if balanceSatisfied(obs.Amount, previous, expected,
		cond.Tolerance(defaultBps)) {
		return advance()
	}
	return keepMonitoring()
}

// balanceSatisfied reports whether current - previous covers the expected
// increase, allowing the given basis points of slack to absorb rounding
// and fee noise
func balanceSatisfied(current, previous, expected *big.Int, bps int) bool {
	delta := new(big.Int).Sub(current, previous)

	tolerance := new(big.Int).Mul(expected, big.NewInt(int64(bps)))
	tolerance.Quo(tolerance, big.NewInt(api.BpsDenominator))

	threshold := new(big.Int).Sub(expected, tolerance)
	return delta.Cmp(threshold) >= 0
}
