// Package chainflow is a cross-chain flow tracking engine. It supervises
// long-running, multi-step user operations whose steps span independent
// blockchains, reconciling externally-observed state (transaction inclusion,
// balance deltas) without ever mistaking network flakiness for on-chain
// failure.
package chainflow

const (
	// Name identifies the service in logs and health responses
	Name = "chainflow"

	// Version is the engine release version
	Version = "0.1.0"
)
