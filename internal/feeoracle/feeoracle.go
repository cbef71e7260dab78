// Package feeoracle supplies network fee-rate tiers to the Engine (spec
// §4.4), with a synthesized fallback schedule when the upstream oracle is
// unreachable. Grounded on the teacher's src/chainadapter/bitcoin/fee.go
// FeeEstimator: same "try the live source, fall back to a conservative
// static schedule on failure" shape, but against mempool.space's
// recommended-fees JSON (spec §6) rather than estimatesmartfee RPC.
package feeoracle

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/yourusername/btcrelay/internal/models"
)

// EstimatedTxVBytes is the conservative single-input single-output P2WPKH
// sweep size used to convert a fee rate into an absolute fee (spec §4.4).
const EstimatedTxVBytes = 110

// MinFeeSats is the floor the Engine applies to the chosen tier to guard
// against dust-fee rejections (spec §4.4, §4.6 step 4).
const MinFeeSats = 200

// Priority labels the four tiers mempool.space publishes.
type Priority string

const (
	PriorityHigh    Priority = "high"
	PriorityMedium  Priority = "medium"
	PriorityLow     Priority = "low"
	PriorityEconomy Priority = "economy"
)

// Tier is one fee recommendation (spec §4.4).
type Tier struct {
	FeeRateSatVB     int64
	EstimatedFeeSats int64
	Priority         Priority
}

// Fees bundles the four tiers the oracle returns.
type Fees struct {
	High    Tier
	Medium  Tier
	Low     Tier
	Economy Tier
}

// MediumFloored applies the fee floor to the medium tier, the rate the
// Engine actually spends (spec §4.4, §4.6 step 4).
func (f Fees) MediumFloored() int64 {
	if f.Medium.EstimatedFeeSats < MinFeeSats {
		return MinFeeSats
	}
	return f.Medium.EstimatedFeeSats
}

func tier(rate int64, priority Priority) Tier {
	return Tier{
		FeeRateSatVB:     rate,
		EstimatedFeeSats: rate * EstimatedTxVBytes,
		Priority:         priority,
	}
}

// baseRateFor returns the fallback base sat/vB rate per network (spec §4.4).
func baseRateFor(network models.Network) int64 {
	if network == models.Mainnet {
		return 20
	}
	return 10
}

// Fallback synthesizes tiers from a per-network base rate scaled
// ×2, ×1, /2, /4 when the upstream oracle cannot be reached (spec §4.4).
func Fallback(network models.Network) Fees {
	base := baseRateFor(network)
	return Fees{
		High:    tier(base*2, PriorityHigh),
		Medium:  tier(base, PriorityMedium),
		Low:     tier(maxInt64(base/2, 1), PriorityLow),
		Economy: tier(maxInt64(base/4, 1), PriorityEconomy),
	}
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// FeeOracle is the Engine's view of current network fee conditions (spec §4.4).
type FeeOracle interface {
	GetFees(ctx context.Context, network models.Network) (Fees, error)
}

// MempoolSpaceOracle implements FeeOracle against a mempool.space-compatible
// recommended-fees endpoint.
type MempoolSpaceOracle struct {
	baseURL string
	http    *http.Client
}

// NewMempoolSpaceOracle builds an oracle against baseURL (spec §5 "Fee
// Oracle calls (10s timeout)").
func NewMempoolSpaceOracle(baseURL string, timeout time.Duration) *MempoolSpaceOracle {
	return &MempoolSpaceOracle{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type recommendedFeesResponse struct {
	FastestFee  int64 `json:"fastestFee"`
	HalfHourFee int64 `json:"halfHourFee"`
	HourFee     int64 `json:"hourFee"`
	EconomyFee  int64 `json:"economyFee"`
}

// GetFees fetches the four tiers; on any failure it logs nothing itself
// (callers log) and returns the network's Fallback schedule rather than an
// error, since an unreachable oracle must never stall the relay cycle
// (spec §4.4, §7 TransientNetwork).
func (o *MempoolSpaceOracle) GetFees(ctx context.Context, network models.Network) (Fees, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL, nil)
	if err != nil {
		return Fallback(network), nil
	}

	resp, err := o.http.Do(req)
	if err != nil {
		return Fallback(network), nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode != http.StatusOK {
		return Fallback(network), nil
	}

	var raw recommendedFeesResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return Fallback(network), nil
	}

	return Fees{
		High:    tier(raw.FastestFee, PriorityHigh),
		Medium:  tier(raw.HalfHourFee, PriorityMedium),
		Low:     tier(raw.HourFee, PriorityLow),
		Economy: tier(raw.EconomyFee, PriorityEconomy),
	}, nil
}

var _ FeeOracle = (*MempoolSpaceOracle)(nil)
