package chainclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yourusername/btcrelay/internal/relayerr"
)

// BlockstreamClient implements ChainClient against a Blockstream-compatible
// REST API (spec §6): blocks/tip/height, address/{a}, address/{a}/utxo,
// address/{a}/txs, tx/{txid}, and tx for broadcast.
type BlockstreamClient struct {
	baseURL string
	http    *http.Client
}

// NewBlockstreamClient builds a client against baseURL (e.g.
// https://blockstream.info/testnet/api) with the given request timeout
// (spec §5 "Chain Client HTTP calls (30s timeout each)").
func NewBlockstreamClient(baseURL string, timeout time.Duration) *BlockstreamClient {
	return &BlockstreamClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *BlockstreamClient) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, relayerr.NewFatalError("failed to build chain client request", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, relayerr.NewTransientError("ERR_CHAIN_CLIENT_UNREACHABLE",
			fmt.Sprintf("chain client request failed: %s", path), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, relayerr.NewTransientError("ERR_CHAIN_CLIENT_READ",
			fmt.Sprintf("failed to read chain client response: %s", path), err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, relayerr.NewTransientError("ERR_CHAIN_CLIENT_STATUS",
			fmt.Sprintf("chain client returned %d for %s: %s", resp.StatusCode, path, string(body)), nil)
	}

	return body, nil
}

// TipHeight calls GET blocks/tip/height, which responds with a bare integer.
func (c *BlockstreamClient) TipHeight(ctx context.Context) (uint64, error) {
	body, err := c.get(ctx, "/blocks/tip/height")
	if err != nil {
		return 0, err
	}

	height, err := strconv.ParseUint(strings.TrimSpace(string(body)), 10, 64)
	if err != nil {
		return 0, relayerr.NewTransientError("ERR_CHAIN_CLIENT_PARSE", "failed to parse tip height", err)
	}
	return height, nil
}

type addressStatsResponse struct {
	ChainStats struct {
		FundedTxoSum int64 `json:"funded_txo_sum"`
		SpentTxoSum  int64 `json:"spent_txo_sum"`
	} `json:"chain_stats"`
	MempoolStats struct {
		FundedTxoSum int64 `json:"funded_txo_sum"`
		SpentTxoSum  int64 `json:"spent_txo_sum"`
	} `json:"mempool_stats"`
}

// AddressBalance calls GET address/{a} and derives confirmed/unconfirmed
// balances from the chain_stats/mempool_stats funded/spent sums (spec §4.3).
func (c *BlockstreamClient) AddressBalance(ctx context.Context, address string) (Balance, error) {
	body, err := c.get(ctx, "/address/"+address)
	if err != nil {
		return Balance{}, err
	}

	var stats addressStatsResponse
	if err := json.Unmarshal(body, &stats); err != nil {
		return Balance{}, relayerr.NewTransientError("ERR_CHAIN_CLIENT_PARSE", "failed to parse address stats", err)
	}

	return Balance{
		ConfirmedSats:   stats.ChainStats.FundedTxoSum - stats.ChainStats.SpentTxoSum,
		UnconfirmedSats: stats.MempoolStats.FundedTxoSum - stats.MempoolStats.SpentTxoSum,
	}, nil
}

type utxoResponse struct {
	TxID   string `json:"txid"`
	Vout   uint32 `json:"vout"`
	Value  int64  `json:"value"`
	Status struct {
		Confirmed   bool   `json:"confirmed"`
		BlockHeight uint64 `json:"block_height"`
	} `json:"status"`
}

// AddressUTXOs calls GET address/{a}/utxo.
func (c *BlockstreamClient) AddressUTXOs(ctx context.Context, address string) ([]UTXO, error) {
	body, err := c.get(ctx, "/address/"+address+"/utxo")
	if err != nil {
		return nil, err
	}

	var raw []utxoResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, relayerr.NewTransientError("ERR_CHAIN_CLIENT_PARSE", "failed to parse utxo list", err)
	}

	utxos := make([]UTXO, 0, len(raw))
	for _, u := range raw {
		utxos = append(utxos, UTXO{
			TxID:        u.TxID,
			Vout:        u.Vout,
			ValueSats:   u.Value,
			Confirmed:   u.Status.Confirmed,
			BlockHeight: u.Status.BlockHeight,
		})
	}
	return utxos, nil
}

type txResponse struct {
	TxID   string `json:"txid"`
	Status struct {
		Confirmed   bool   `json:"confirmed"`
		BlockHeight uint64 `json:"block_height"`
	} `json:"status"`
	Fee int64 `json:"fee"`
}

// AddressTxs calls GET address/{a}/txs.
func (c *BlockstreamClient) AddressTxs(ctx context.Context, address string) ([]Tx, error) {
	body, err := c.get(ctx, "/address/"+address+"/txs")
	if err != nil {
		return nil, err
	}

	var raw []txResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, relayerr.NewTransientError("ERR_CHAIN_CLIENT_PARSE", "failed to parse address txs", err)
	}

	txs := make([]Tx, 0, len(raw))
	for _, t := range raw {
		txs = append(txs, Tx{
			TxID:        t.TxID,
			Confirmed:   t.Status.Confirmed,
			BlockHeight: t.Status.BlockHeight,
		})
	}
	return txs, nil
}

// TxStatus calls GET tx/{txid}.
func (c *BlockstreamClient) TxStatus(ctx context.Context, txid string) (TxStatus, error) {
	body, err := c.get(ctx, "/tx/"+txid)
	if err != nil {
		return TxStatus{}, err
	}

	var raw txResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return TxStatus{}, relayerr.NewTransientError("ERR_CHAIN_CLIENT_PARSE", "failed to parse tx status", err)
	}

	return TxStatus{
		Confirmed:   raw.Status.Confirmed,
		BlockHeight: raw.Status.BlockHeight,
		FeeSats:     raw.Fee,
	}, nil
}

// Broadcast POSTs the raw hex transaction body to tx, which responds with
// the bare txid on success or a node error message on rejection (spec §6,
// §7 BroadcastRejected).
func (c *BlockstreamClient) Broadcast(ctx context.Context, rawTxHex string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tx", strings.NewReader(rawTxHex))
	if err != nil {
		return "", relayerr.NewFatalError("failed to build broadcast request", err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", relayerr.NewTransientError("ERR_CHAIN_CLIENT_UNREACHABLE", "broadcast request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", relayerr.NewTransientError("ERR_CHAIN_CLIENT_READ", "failed to read broadcast response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", relayerr.NewBroadcastRejectedError(strings.TrimSpace(string(body)), nil)
	}

	return strings.TrimSpace(string(body)), nil
}

var _ ChainClient = (*BlockstreamClient)(nil)
