package probe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/lumenlabs/chainflow/internal/util"
	"github.com/lumenlabs/chainflow/pkg/api"
	"github.com/lumenlabs/chainflow/pkg/log"
)

// HTTPProbe queries a chain node's REST API, falling back to an indexer
// when the node cannot answer. Terminal observations are cached; once a
// chain reports a transaction confirmed or failed that answer never
// changes
type HTTPProbe struct {
	client     *http.Client
	cache      *util.LRUCache[api.TxObservation]
	nodeURL    string
	indexerURL string
	timeout    time.Duration
}

const txCacheSize = 4096

var _ Probe = (*HTTPProbe)(nil)

// NewHTTPProbe creates a probe for one chain. indexerURL may be empty, in
// which case only the node is consulted. Every call is bounded by timeout
// so an unreachable node cannot occupy a supervisor worker indefinitely
func NewHTTPProbe(nodeURL, indexerURL string, timeout time.Duration) *HTTPProbe {
	return &HTTPProbe{
		client:     &http.Client{Timeout: timeout},
		cache:      util.NewLRUCache[api.TxObservation](txCacheSize),
		nodeURL:    nodeURL,
		indexerURL: indexerURL,
		timeout:    timeout,
	}
}

// TxStatus reports the inclusion state of a transaction. A transaction the
// chain has not indexed yet reads as pending; only a source that cannot be
// reached at all produces an inconclusive observation
func (p *HTTPProbe) TxStatus(
	ctx context.Context, txHash string,
) api.TxObservation {
	if obs, ok := p.cache.Get(txHash); ok {
		return obs
	}

	sources := []string{p.nodeURL + "/v2/transactions/" + txHash}
	if p.indexerURL != "" {
		sources = append(sources, p.indexerURL+"/v2/transactions/"+txHash)
	}

	for _, url := range sources {
		obs, ok := p.fetchTx(ctx, url, txHash)
		if !ok {
			continue
		}
		if obs.Confirmed || obs.Failed {
			p.cache.Put(txHash, obs)
		}
		return obs
	}
	return api.TxInconclusive()
}

// TokenBalance reports an account's current token balance in the token's
// smallest unit
func (p *HTTPProbe) TokenBalance(
	ctx context.Context, tokenAddress, account string,
) api.BalanceObservation {
	path := fmt.Sprintf("/v2/accounts/%s/tokens/%s/balance",
		account, tokenAddress)

	sources := []string{p.nodeURL + path}
	if p.indexerURL != "" {
		sources = append(sources, p.indexerURL+path)
	}

	for _, url := range sources {
		if obs, ok := p.fetchBalance(ctx, url, account); ok {
			return obs
		}
	}
	return api.BalanceInconclusive()
}

func (p *HTTPProbe) fetchTx(
	ctx context.Context, url, txHash string,
) (api.TxObservation, bool) {
	body, status, err := p.get(ctx, url)
	if err != nil {
		slog.Debug("Tx status fetch failed",
			log.TxHash(txHash),
			log.Error(err))
		return api.TxObservation{}, false
	}

	switch {
	case status == http.StatusNotFound:
		// Not yet indexed is still a conclusive answer: pending
		return api.TxPending(), true
	case status < 200 || status >= 300:
		return api.TxObservation{}, false
	}

	return txObservation(body), true
}

// txObservation normalizes a node or indexer transaction document. A
// transaction is confirmed once it carries a positive block height, unless
// the chain reports it reverted
func txObservation(body []byte) api.TxObservation {
	if gjson.GetBytes(body, "block_height").Int() <= 0 {
		return api.TxPending()
	}

	returnType := gjson.GetBytes(body, "return_type").Str
	if returnType == "revert" || returnType == "error" {
		return api.TxFailed()
	}
	status := gjson.GetBytes(body, "status").Str
	if status == "failed" || status == "reverted" {
		return api.TxFailed()
	}
	return api.TxConfirmed()
}

func (p *HTTPProbe) fetchBalance(
	ctx context.Context, url, account string,
) (api.BalanceObservation, bool) {
	body, status, err := p.get(ctx, url)
	if err != nil || status < 200 || status >= 300 {
		slog.Debug("Balance fetch failed",
			log.Account(account),
			slog.Int("http_status", status),
			log.Error(err))
		return api.BalanceObservation{}, false
	}

	raw := gjson.GetBytes(body, "balance")
	if !raw.Exists() {
		raw = gjson.GetBytes(body, "amount")
	}
	amount, err := api.ParseAmount(raw.String())
	if err != nil {
		slog.Debug("Balance response unparseable",
			log.Account(account),
			log.Error(err))
		return api.BalanceObservation{}, false
	}
	return api.BalanceOf(amount), true
}

func (p *HTTPProbe) get(ctx context.Context, url string) ([]byte, int, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}
