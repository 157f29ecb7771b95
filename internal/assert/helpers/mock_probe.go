package helpers

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/lumenlabs/chainflow/pkg/api"
)

// MockProbe is a scripted probe implementation for testing. Observations
// can be queued per transaction hash or balance key; a queue's last entry
// repeats once the queue is drained, and an unscripted lookup answers
// inconclusive
type MockProbe struct {
	txQueues      map[string][]api.TxObservation
	balanceQueues map[string][]api.BalanceObservation
	txHooks       map[string]func()
	txPanics      map[string]bool
	txCalls       atomic.Int64
	balanceCalls  atomic.Int64
	mu            sync.Mutex
}

// NewMockProbe creates a mock probe with no scripted observations
func NewMockProbe() *MockProbe {
	return &MockProbe{
		txQueues:      map[string][]api.TxObservation{},
		balanceQueues: map[string][]api.BalanceObservation{},
		txHooks:       map[string]func(){},
		txPanics:      map[string]bool{},
	}
}

func balanceKey(tokenAddress, account string) string {
	return tokenAddress + "|" + account
}

// QueueTx schedules observations for a transaction hash, consumed one per
// lookup
func (p *MockProbe) QueueTx(txHash string, obs ...api.TxObservation) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.txQueues[txHash] = append(p.txQueues[txHash], obs...)
}

// QueueBalance schedules observations for a token/account pair
func (p *MockProbe) QueueBalance(
	tokenAddress, account string, obs ...api.BalanceObservation,
) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := balanceKey(tokenAddress, account)
	p.balanceQueues[key] = append(p.balanceQueues[key], obs...)
}

// OnTx registers a callback invoked whenever the given hash is looked up,
// before the observation is returned. Used to interleave caller mutations
// with an in-flight supervision pass
func (p *MockProbe) OnTx(txHash string, fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.txHooks[txHash] = fn
}

// PanicOnTx makes lookups of the given hash panic
func (p *MockProbe) PanicOnTx(txHash string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.txPanics[txHash] = true
}

func (p *MockProbe) TxStatus(
	_ context.Context, txHash string,
) api.TxObservation {
	p.txCalls.Add(1)

	p.mu.Lock()
	hook := p.txHooks[txHash]
	shouldPanic := p.txPanics[txHash]
	p.mu.Unlock()
	if shouldPanic {
		panic("probe exploded: " + txHash)
	}
	if hook != nil {
		hook()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	queue := p.txQueues[txHash]
	if len(queue) == 0 {
		return api.TxInconclusive()
	}
	obs := queue[0]
	if len(queue) > 1 {
		p.txQueues[txHash] = queue[1:]
	}
	return obs
}

func (p *MockProbe) TokenBalance(
	_ context.Context, tokenAddress, account string,
) api.BalanceObservation {
	p.balanceCalls.Add(1)
	p.mu.Lock()
	defer p.mu.Unlock()

	queue := p.balanceQueues[balanceKey(tokenAddress, account)]
	if len(queue) == 0 {
		return api.BalanceInconclusive()
	}
	obs := queue[0]
	if len(queue) > 1 {
		p.balanceQueues[balanceKey(tokenAddress, account)] = queue[1:]
	}
	return obs
}

// TxCalls returns the total number of TxStatus lookups performed
func (p *MockProbe) TxCalls() int64 {
	return p.txCalls.Load()
}

// BalanceCalls returns the total number of TokenBalance lookups performed
func (p *MockProbe) BalanceCalls() int64 {
	return p.balanceCalls.Load()
}
