package controlsurface

import (
	"math"
	"net/http"

	"github.com/yourusername/btcrelay/internal/feeoracle"
	"github.com/yourusername/btcrelay/internal/models"
	"github.com/yourusername/btcrelay/internal/relay"
	"github.com/yourusername/btcrelay/internal/relayerr"
)

func (a *App) handleGetFees(w http.ResponseWriter, r *http.Request) {
	network, err := a.activeNetwork()
	if err != nil {
		writeError(w, err)
		return
	}
	fees, err := a.feeOracles[network].GetFees(r.Context(), network)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fees)
}

type feeEstimateRequest struct {
	NumHops     int    `json:"num_hops"`
	FeePriority string `json:"fee_priority,omitempty"`
}

type feeEstimateResponse struct {
	Tier            feeoracle.Tier `json:"tier"`
	SweepCount      int            `json:"sweep_count"`
	TotalFeeSats    int64          `json:"total_fee_sats"`
	FlooredPerSweep int64          `json:"floored_per_sweep_sats"`

	DelaysPerHop     []uint64 `json:"delays_per_hop"`
	TotalDelayBlocks uint64   `json:"total_delay_blocks"`
	EstimatedMinutes float64  `json:"estimated_minutes"`
	EstimatedHours   float64  `json:"estimated_hours"`
	EstimatedDays    float64  `json:"estimated_days"`
}

// handleEstimateFees previews the total fee cost and expected duration of
// relaying a chain with num_hops intermediate addresses: one sweep from
// intake plus one per hop, each paying the floored fee for the requested
// priority tier, plus the wall-clock time the chain's Fibonacci delay
// schedule implies (spec §4.5 "Total expected duration is sum(delays) x
// avg_block_minutes", spec §6 "per-chain preview").
func (a *App) handleEstimateFees(w http.ResponseWriter, r *http.Request) {
	var req feeEstimateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.NumHops < models.MinHops || req.NumHops > models.MaxHops {
		writeError(w, relayerr.NewInvalidInputError("num_hops out of range"))
		return
	}

	network, err := a.activeNetwork()
	if err != nil {
		writeError(w, err)
		return
	}
	fees, err := a.feeOracles[network].GetFees(r.Context(), network)
	if err != nil {
		writeError(w, err)
		return
	}

	tier := tierForPriority(fees, req.FeePriority)
	floored := tier.EstimatedFeeSats
	if floored < feeoracle.MinFeeSats {
		floored = feeoracle.MinFeeSats
	}

	sweeps := req.NumHops + 1 // intake->hop0, hop0->hop1, ..., hopN-1->final
	delays := relay.Fibonacci(req.NumHops)
	totalBlocks, minutes := relay.ExpectedDuration(delays, network)

	writeJSON(w, http.StatusOK, feeEstimateResponse{
		Tier:             tier,
		SweepCount:       sweeps,
		TotalFeeSats:     floored * int64(sweeps),
		FlooredPerSweep:  floored,
		DelaysPerHop:     delays,
		TotalDelayBlocks: totalBlocks,
		EstimatedMinutes: minutes,
		EstimatedHours:   round1(minutes / 60),
		EstimatedDays:    round2(minutes / 1440),
	})
}

// round1/round2 match the original's round(x, 1)/round(x, 2) rounding for
// the hours/days fields of estimate_relay_timing.
func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }

func tierForPriority(fees feeoracle.Fees, priority string) feeoracle.Tier {
	switch feeoracle.Priority(priority) {
	case feeoracle.PriorityHigh:
		return fees.High
	case feeoracle.PriorityLow:
		return fees.Low
	case feeoracle.PriorityEconomy:
		return fees.Economy
	default:
		return fees.Medium
	}
}
