package helpers

import (
	"github.com/lumenlabs/chainflow/pkg/api"
)

// TxStep builds a tx_confirm step spec in submitted state, ready for the
// supervisor to start polling
func TxStep(id api.StepID, chain api.Chain, txHash string) *api.StepSpec {
	return &api.StepSpec{
		ID:     id,
		Label:  "Confirm " + string(id),
		Kind:   api.KindTxConfirm,
		Status: api.StepSubmitted,
		Tx: &api.TxCondition{
			Chain:  chain,
			TxHash: txHash,
		},
	}
}

// BalanceStep builds a balance_condition step spec watching for an
// increase over the previous balance
func BalanceStep(
	id api.StepID, chain api.Chain, previous, increase string,
) *api.StepSpec {
	return &api.StepSpec{
		ID:    id,
		Label: "Balance " + string(id),
		Kind:  api.KindBalanceCondition,
		Balance: &api.BalanceCondition{
			Chain:            chain,
			TokenAddress:     "0xtoken",
			Account:          "0xaccount",
			PreviousBalance:  previous,
			ExpectedIncrease: increase,
		},
	}
}

// WalletStep builds a wallet_confirmation step spec awaiting the user
func WalletStep(id api.StepID) *api.StepSpec {
	return &api.StepSpec{
		ID:     id,
		Label:  "Approve " + string(id),
		Kind:   api.KindWalletConfirmation,
		Status: api.StepAwaitingUser,
	}
}

// ManualStep builds a manual_action step spec
func ManualStep(id api.StepID) *api.StepSpec {
	return &api.StepSpec{
		ID:    id,
		Label: "Manual " + string(id),
		Kind:  api.KindManualAction,
	}
}
