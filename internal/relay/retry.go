package relay

import (
	"context"

	"github.com/yourusername/btcrelay/internal/models"
	"github.com/yourusername/btcrelay/internal/relayerr"
)

// ManualRetryFeeSats is the fixed small fee the manual retry procedure
// pays at every step, independent of the Fee Oracle (spec §4.6 "Manual
// retry").
const ManualRetryFeeSats = 200

// StepOutcome is one manual-retry step's result (spec §4.6, §8 scenario 5).
type StepOutcome string

const (
	StepSuccess StepOutcome = "success"
	StepSkipped StepOutcome = "skipped"
	StepNoFunds StepOutcome = "no_funds"
	StepError   StepOutcome = "error"
)

// StepResult reports the outcome of sweeping one address in the manual
// retry walk.
type StepResult struct {
	Address string      `json:"address"`
	Outcome StepOutcome  `json:"outcome"`
	Detail  string       `json:"detail,omitempty"`
}

// Retry is the one-shot "recover stuck chain" procedure (spec §4.6): it
// walks the address list once, independent of the engine's delay gating,
// sweeping each funded address to its next destination with a fixed small
// fee, and reports a per-step outcome.
func (e *Engine) Retry(ctx context.Context, chainID int64) ([]StepResult, error) {
	chain, err := e.store.GetChain(chainID)
	if err != nil {
		return nil, err
	}
	if chain.Status != models.ChainActive {
		return nil, relayerr.NewInvalidInputError("chain must be active to retry")
	}

	tip, err := e.chainClient.TipHeight(ctx)
	if err != nil {
		return nil, err
	}

	addrs := chain.AddressChain()
	keys := chain.EncryptedKeyChain()
	dests := chain.DestinationChain()
	n := chain.TotalHops

	r := &reconciler{
		store:       e.store,
		chainClient: e.chainClient,
		feeOracle:   e.feeOracle,
		signer:      e.signer,
		password:    e.password,
		logger:      e.logger,
	}

	results := make([]StepResult, 0, len(addrs))
	for i, addr := range addrs {
		if i > 0 {
			hop := chain.HopByNumber(i - 1)
			if hop != nil && hop.Status == models.HopRelayed {
				results = append(results, StepResult{Address: addr, Outcome: StepSkipped})
				continue
			}
		}

		bal, err := e.chainClient.AddressBalance(ctx, addr)
		if err != nil {
			results = append(results, StepResult{Address: addr, Outcome: StepError, Detail: err.Error()})
			continue
		}
		if bal.ConfirmedSats <= 0 {
			results = append(results, StepResult{Address: addr, Outcome: StepNoFunds})
			continue
		}

		if err := r.sweep(ctx, chain, i, addr, keys[i], dests[i], n, tip, ManualRetryFeeSats); err != nil {
			results = append(results, StepResult{Address: addr, Outcome: StepError, Detail: err.Error()})
			continue
		}
		results = append(results, StepResult{Address: addr, Outcome: StepSuccess})

		// Reload so later steps in this walk see this step's updates
		// (hop statuses, current_hop) before deciding their own outcome.
		chain, err = e.store.GetChain(chainID)
		if err != nil {
			return results, err
		}
	}

	if err := e.store.AppendLog(models.LogEntry{ChainID: chainID, Kind: models.EventManualRetry}); err != nil {
		return results, err
	}

	return results, nil
}
