package probe_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lumenlabs/chainflow/internal/probe"
)

const testTimeout = 2 * time.Second

func txServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
		}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTxStatusConfirmed(t *testing.T) {
	srv := txServer(t, http.StatusOK,
		`{"block_height": 12345, "return_type": "ok"}`)
	p := probe.NewHTTPProbe(srv.URL, "", testTimeout)

	obs := p.TxStatus(context.Background(), "0xabc")
	assert.True(t, obs.Confirmed)
	assert.False(t, obs.Inconclusive)
}

func TestTxStatusPendingInMempool(t *testing.T) {
	srv := txServer(t, http.StatusOK, `{"block_height": -1}`)
	p := probe.NewHTTPProbe(srv.URL, "", testTimeout)

	obs := p.TxStatus(context.Background(), "0xabc")
	assert.True(t, obs.Pending)
	assert.False(t, obs.Inconclusive)
}

func TestTxStatusNotYetIndexedIsPending(t *testing.T) {
	srv := txServer(t, http.StatusNotFound, `{"reason": "not found"}`)
	p := probe.NewHTTPProbe(srv.URL, "", testTimeout)

	obs := p.TxStatus(context.Background(), "0xabc")
	assert.True(t, obs.Pending)
	assert.False(t, obs.Failed)
	assert.False(t, obs.Inconclusive)
}

func TestTxStatusReverted(t *testing.T) {
	for _, body := range []string{
		`{"block_height": 99, "return_type": "revert"}`,
		`{"block_height": 99, "status": "failed"}`,
		`{"block_height": 99, "status": "reverted"}`,
	} {
		srv := txServer(t, http.StatusOK, body)
		p := probe.NewHTTPProbe(srv.URL, "", testTimeout)

		obs := p.TxStatus(context.Background(), "0xabc")
		assert.True(t, obs.Failed, "body: %s", body)
	}
}

func TestTxStatusUnreachableNodeIsInconclusive(t *testing.T) {
	p := probe.NewHTTPProbe(
		"http://127.0.0.1:1", "", 200*time.Millisecond,
	)

	obs := p.TxStatus(context.Background(), "0xabc")
	assert.True(t, obs.Pending)
	assert.True(t, obs.Inconclusive,
		"transport failure must never read as on-chain failure")
	assert.False(t, obs.Failed)
}

func TestTxStatusFallsBackToIndexer(t *testing.T) {
	var nodeCalls atomic.Int32
	node := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			nodeCalls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
	t.Cleanup(node.Close)

	indexer := txServer(t, http.StatusOK, `{"block_height": 7}`)
	p := probe.NewHTTPProbe(node.URL, indexer.URL, testTimeout)

	obs := p.TxStatus(context.Background(), "0xabc")
	assert.True(t, obs.Confirmed)
	assert.Equal(t, int32(1), nodeCalls.Load())
}

func TestTxStatusCachesTerminalObservations(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			_, _ = w.Write([]byte(`{"block_height": 1}`))
		}))
	t.Cleanup(srv.Close)

	p := probe.NewHTTPProbe(srv.URL, "", testTimeout)
	ctx := context.Background()

	assert.True(t, p.TxStatus(ctx, "0xabc").Confirmed)
	assert.True(t, p.TxStatus(ctx, "0xabc").Confirmed)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTokenBalance(t *testing.T) {
	srv := txServer(t, http.StatusOK,
		`{"balance": "123456789012345678901234567890"}`)
	p := probe.NewHTTPProbe(srv.URL, "", testTimeout)

	obs := p.TokenBalance(context.Background(), "T", "acc1")
	assert.False(t, obs.Inconclusive)
	assert.Equal(t, "123456789012345678901234567890", obs.Amount.String())
}

func TestTokenBalanceNumericField(t *testing.T) {
	srv := txServer(t, http.StatusOK, `{"amount": 500000}`)
	p := probe.NewHTTPProbe(srv.URL, "", testTimeout)

	obs := p.TokenBalance(context.Background(), "T", "acc1")
	assert.False(t, obs.Inconclusive)
	assert.Equal(t, "500000", obs.Amount.String())
}

func TestTokenBalanceUnreachableIsInconclusive(t *testing.T) {
	p := probe.NewHTTPProbe(
		"http://127.0.0.1:1", "", 200*time.Millisecond,
	)

	obs := p.TokenBalance(context.Background(), "T", "acc1")
	assert.True(t, obs.Inconclusive)
	assert.Nil(t, obs.Amount)
}

func TestRegistryUnknownChain(t *testing.T) {
	r := probe.NewRegistry()

	obs := r.TxStatus(context.Background(), "Z", "0xabc")
	assert.True(t, obs.Inconclusive)

	bal := r.TokenBalance(context.Background(), "Z", "T", "acc1")
	assert.True(t, bal.Inconclusive)
}

func TestRegistryDispatch(t *testing.T) {
	srv := txServer(t, http.StatusOK, `{"block_height": 5}`)
	r := probe.NewRegistry()
	r.Register("B", probe.NewHTTPProbe(srv.URL, "", testTimeout))

	obs := r.TxStatus(context.Background(), "B", "0xabc")
	assert.True(t, obs.Confirmed)
}
