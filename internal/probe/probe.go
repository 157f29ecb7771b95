// Package probe translates chain-specific lookups into normalized
// observations. Probes never raise transport failures to their callers; an
// observation that could not be produced is marked inconclusive so the
// supervisor can keep waiting instead of failing a step on flaky
// infrastructure
package probe

import (
	"context"
	"log/slog"

	"github.com/lumenlabs/chainflow/pkg/api"
	"github.com/lumenlabs/chainflow/pkg/log"
)

type (
	// Probe answers "is this transaction confirmed?" and "what is this
	// balance now?" for a single chain
	Probe interface {
		TxStatus(ctx context.Context, txHash string) api.TxObservation
		TokenBalance(
			ctx context.Context, tokenAddress, account string,
		) api.BalanceObservation
	}

	// Registry dispatches lookups to the probe registered for a chain
	Registry struct {
		probes map[api.Chain]Probe
	}
)

// NewRegistry creates an empty probe registry
func NewRegistry() *Registry {
	return &Registry{
		probes: map[api.Chain]Probe{},
	}
}

// Register installs the probe for a chain, replacing any previous one
func (r *Registry) Register(chain api.Chain, p Probe) {
	r.probes[chain] = p
}

// TxStatus queries the probe for the given chain. An unknown chain yields
// an inconclusive observation rather than an error
func (r *Registry) TxStatus(
	ctx context.Context, chain api.Chain, txHash string,
) api.TxObservation {
	p, ok := r.probes[chain]
	if !ok {
		slog.Warn("No probe registered for chain",
			log.Chain(chain),
			log.TxHash(txHash))
		return api.TxInconclusive()
	}
	return p.TxStatus(ctx, txHash)
}

// TokenBalance queries the probe for the given chain. An unknown chain
// yields an inconclusive observation rather than an error
func (r *Registry) TokenBalance(
	ctx context.Context, chain api.Chain, tokenAddress, account string,
) api.BalanceObservation {
	p, ok := r.probes[chain]
	if !ok {
		slog.Warn("No probe registered for chain",
			log.Chain(chain),
			log.Account(account))
		return api.BalanceInconclusive()
	}
	return p.TokenBalance(ctx, tokenAddress, account)
}
