package api

import (
	"errors"
	"fmt"
	"math/big"
	"time"
)

type (
	// StepKind discriminates the unit of work a flow step represents
	StepKind string

	// StepStatus represents the current state of a flow step
	StepStatus string

	// StepID identifies a step within its flow
	StepID string

	// Chain names one of the supported blockchains
	Chain string

	// FlowStep is one unit of work inside a flow. Exactly one condition
	// payload is populated, matching Kind
	FlowStep struct {
		StartedAt time.Time         `json:"started_at"`
		UpdatedAt time.Time         `json:"updated_at"`
		Tx        *TxCondition      `json:"tx,omitempty"`
		Balance   *BalanceCondition `json:"balance,omitempty"`
		ID        StepID            `json:"id"`
		Label     string            `json:"label"`
		Kind      StepKind          `json:"kind"`
		Status    StepStatus        `json:"status"`
		Error     string            `json:"error,omitempty"`
		Timeout   int64             `json:"timeout,omitempty"`
	}

	// StepSpec describes a step at flow creation time. Timestamps are
	// engine-assigned and Status defaults to pending when omitted
	StepSpec struct {
		Tx      *TxCondition      `json:"tx,omitempty"`
		Balance *BalanceCondition `json:"balance,omitempty"`
		ID      StepID            `json:"id"`
		Label   string            `json:"label"`
		Kind    StepKind          `json:"kind"`
		Status  StepStatus        `json:"status,omitempty"`
		Timeout int64             `json:"timeout,omitempty"`
	}

	// TxCondition identifies an on-chain transaction to watch
	TxCondition struct {
		TxHash string `json:"tx_hash"`
		Chain  Chain  `json:"chain"`
	}

	// BalanceCondition describes an expected token balance increase.
	// Amounts are decimal integer strings in the token's smallest unit so
	// that values beyond 53 bits survive JSON round-trips
	BalanceCondition struct {
		ToleranceBps     *int   `json:"tolerance_bps,omitempty"`
		Chain            Chain  `json:"chain"`
		TokenAddress     string `json:"token_address"`
		Account          string `json:"account"`
		PreviousBalance  string `json:"previous_balance"`
		ExpectedIncrease string `json:"expected_increase"`
	}
)

const (
	KindWalletConfirmation StepKind = "wallet_confirmation"
	KindTxConfirm          StepKind = "tx_confirm"
	KindBalanceCondition   StepKind = "balance_condition"
	KindManualAction       StepKind = "manual_action"
)

const (
	StepPending      StepStatus = "pending"
	StepAwaitingUser StepStatus = "awaiting_user"
	StepSubmitted    StepStatus = "submitted"
	StepMonitoring   StepStatus = "monitoring"
	StepConfirmed    StepStatus = "confirmed"
	StepFailed       StepStatus = "failed"
	StepSkipped      StepStatus = "skipped"
)

const (
	// DefaultToleranceBps is the basis-point slack applied to balance
	// comparisons when a condition does not set its own
	DefaultToleranceBps = 10

	// BpsDenominator converts basis points to a fraction
	BpsDenominator = 10_000
)

const (
	Second int64 = 1000
	Minute       = Second * 60
	Hour         = Minute * 60
)

var (
	ErrStepIDEmpty       = errors.New("step ID empty")
	ErrStepLabelEmpty    = errors.New("step label empty")
	ErrInvalidStepKind   = errors.New("invalid step kind")
	ErrInvalidStepStatus = errors.New("invalid initial step status")
	ErrConditionMismatch = errors.New("condition does not match step kind")
	ErrChainEmpty        = errors.New("chain empty")
	ErrTokenAddressEmpty = errors.New("token address empty")
	ErrAccountEmpty      = errors.New("account empty")
	ErrInvalidAmount     = errors.New("amount is not a decimal integer")
	ErrNegativeTolerance = errors.New("tolerance_bps cannot be negative")
	ErrNegativeTimeout   = errors.New("timeout cannot be negative")
)

var validStepKinds = map[StepKind]struct{}{
	KindWalletConfirmation: {},
	KindTxConfirm:          {},
	KindBalanceCondition:   {},
	KindManualAction:       {},
}

// Initial statuses a caller may supply for steps whose state is already
// known at creation time. Failed is never a valid starting point.
var validInitialStatuses = map[StepStatus]struct{}{
	StepPending:      {},
	StepAwaitingUser: {},
	StepSubmitted:    {},
	StepMonitoring:   {},
	StepConfirmed:    {},
	StepSkipped:      {},
}

// ParseAmount parses a non-negative decimal integer string into a big.Int
// without precision loss
func ParseAmount(s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return n, nil
}

// Validate checks that a step spec is well-formed and that exactly one
// condition payload is populated, matching its kind
func (s *StepSpec) Validate() error {
	if s.ID == "" {
		return ErrStepIDEmpty
	}
	if s.Label == "" {
		return ErrStepLabelEmpty
	}
	if _, ok := validStepKinds[s.Kind]; !ok {
		return fmt.Errorf("%w: %s", ErrInvalidStepKind, s.Kind)
	}
	if s.Status != "" {
		if _, ok := validInitialStatuses[s.Status]; !ok {
			return fmt.Errorf("%w: %s", ErrInvalidStepStatus, s.Status)
		}
	}
	if s.Timeout < 0 {
		return ErrNegativeTimeout
	}

	switch s.Kind {
	case KindTxConfirm:
		if s.Tx == nil || s.Balance != nil {
			return fmt.Errorf("%w: %s", ErrConditionMismatch, s.ID)
		}
		return s.Tx.Validate()
	case KindBalanceCondition:
		if s.Balance == nil || s.Tx != nil {
			return fmt.Errorf("%w: %s", ErrConditionMismatch, s.ID)
		}
		return s.Balance.Validate()
	default:
		if s.Tx != nil || s.Balance != nil {
			return fmt.Errorf("%w: %s", ErrConditionMismatch, s.ID)
		}
		return nil
	}
}

// Validate checks the condition. An empty TxHash is allowed at creation
// time; the hash arrives through a step patch once the wallet submits
func (c *TxCondition) Validate() error {
	if c.Chain == "" {
		return ErrChainEmpty
	}
	return nil
}

func (c *BalanceCondition) Validate() error {
	if c.Chain == "" {
		return ErrChainEmpty
	}
	if c.TokenAddress == "" {
		return ErrTokenAddressEmpty
	}
	if c.Account == "" {
		return ErrAccountEmpty
	}
	if _, err := ParseAmount(c.PreviousBalance); err != nil {
		return err
	}
	if _, err := ParseAmount(c.ExpectedIncrease); err != nil {
		return err
	}
	if c.ToleranceBps != nil && *c.ToleranceBps < 0 {
		return ErrNegativeTolerance
	}
	return nil
}

// Tolerance returns the condition's basis-point slack, falling back to the
// provided default when the condition does not set one
func (c *BalanceCondition) Tolerance(def int) int {
	if c.ToleranceBps != nil {
		return *c.ToleranceBps
	}
	return def
}

// Step materializes a StepSpec into a flow step. Status defaults to pending
// and both timestamps are set to now
func (s *StepSpec) Step(now time.Time) *FlowStep {
	status := s.Status
	if status == "" {
		status = StepPending
	}
	return &FlowStep{
		ID:        s.ID,
		Label:     s.Label,
		Kind:      s.Kind,
		Status:    status,
		Timeout:   s.Timeout,
		StartedAt: now,
		UpdatedAt: now,
		Tx:        s.Tx.Clone(),
		Balance:   s.Balance.Clone(),
	}
}

// TimeoutDuration returns the step's domain-level timeout, zero when unset
func (s *FlowStep) TimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Millisecond
}

// Clone returns a deep copy of the step
func (s *FlowStep) Clone() *FlowStep {
	if s == nil {
		return nil
	}
	res := *s
	res.Tx = s.Tx.Clone()
	res.Balance = s.Balance.Clone()
	return &res
}

// Equal reports field-level structural equality between two steps
func (s *FlowStep) Equal(o *FlowStep) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.ID == o.ID &&
		s.Label == o.Label &&
		s.Kind == o.Kind &&
		s.Status == o.Status &&
		s.Error == o.Error &&
		s.Timeout == o.Timeout &&
		s.StartedAt.Equal(o.StartedAt) &&
		s.UpdatedAt.Equal(o.UpdatedAt) &&
		s.Tx.Equal(o.Tx) &&
		s.Balance.Equal(o.Balance)
}

func (c *TxCondition) Clone() *TxCondition {
	if c == nil {
		return nil
	}
	res := *c
	return &res
}

func (c *TxCondition) Equal(o *TxCondition) bool {
	if c == nil || o == nil {
		return c == o
	}
	return *c == *o
}

func (c *BalanceCondition) Clone() *BalanceCondition {
	if c == nil {
		return nil
	}
	res := *c
	if c.ToleranceBps != nil {
		bps := *c.ToleranceBps
		res.ToleranceBps = &bps
	}
	return &res
}

func (c *BalanceCondition) Equal(o *BalanceCondition) bool {
	if c == nil || o == nil {
		return c == o
	}
	if (c.ToleranceBps == nil) != (o.ToleranceBps == nil) {
		return false
	}
	if c.ToleranceBps != nil && *c.ToleranceBps != *o.ToleranceBps {
		return false
	}
	return c.Chain == o.Chain &&
		c.TokenAddress == o.TokenAddress &&
		c.Account == o.Account &&
		c.PreviousBalance == o.PreviousBalance &&
		c.ExpectedIncrease == o.ExpectedIncrease
}
