package api

import "math/big"

type (
	// TxObservation is a point-in-time view of a transaction's inclusion
	// state. Exactly one of Confirmed, Pending, or Failed is true. Failed
	// means the chain itself reports the transaction as reverted or
	// invalid; a transaction that is not yet indexed is Pending.
	// Inconclusive marks observations produced by a probe call that could
	// not complete, which must never be treated as on-chain failure
	TxObservation struct {
		Confirmed    bool
		Pending      bool
		Failed       bool
		Inconclusive bool
	}

	// BalanceObservation is a point-in-time view of a token balance in the
	// token's smallest unit
	BalanceObservation struct {
		Amount       *big.Int
		Inconclusive bool
	}
)

func TxConfirmed() TxObservation {
	return TxObservation{Confirmed: true}
}

func TxPending() TxObservation {
	return TxObservation{Pending: true}
}

func TxFailed() TxObservation {
	return TxObservation{Failed: true}
}

// TxInconclusive is the default observation for a probe call that could
// not complete. It reads as pending so conservative callers keep waiting
func TxInconclusive() TxObservation {
	return TxObservation{Pending: true, Inconclusive: true}
}

func BalanceOf(amount *big.Int) BalanceObservation {
	return BalanceObservation{Amount: amount}
}

func BalanceInconclusive() BalanceObservation {
	return BalanceObservation{Inconclusive: true}
}
