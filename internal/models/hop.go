package models

import "time"

// HopStatus is the lifecycle state of one hop address (spec §3, §4.6).
type HopStatus string

const (
	HopWaiting      HopStatus = "waiting"
	HopFunded       HopStatus = "funded" // legacy alias for pending_relay, spec §4.6
	HopPendingRelay HopStatus = "pending_relay"
	HopRelayed      HopStatus = "relayed"
	HopFailed       HopStatus = "failed"
)

// IsValid reports whether s is a known hop status.
func (s HopStatus) IsValid() bool {
	switch s {
	case HopWaiting, HopFunded, HopPendingRelay, HopRelayed, HopFailed:
		return true
	default:
		return false
	}
}

// Hop is one intermediate, single-use address in a chain.
type Hop struct {
	ID        int64  `json:"id"`
	ChainID   int64  `json:"chainId"`
	HopNumber int    `json:"hopNumber"`

	Address      string `json:"address"`
	EncryptedKey string `json:"encryptedKey"`

	DelayBlocks  uint64 `json:"delayBlocks"`
	RelayAtBlock uint64 `json:"relayAtBlock"`

	Status HopStatus `json:"status"`

	IncomingTxID        string `json:"incomingTxId,omitempty"`
	IncomingAmountSats   int64  `json:"incomingAmountSats,omitempty"`
	IncomingBlockHeight  uint64 `json:"incomingBlockHeight,omitempty"`

	OutgoingTxID     string `json:"outgoingTxId,omitempty"`
	OutgoingAmountSats int64  `json:"outgoingAmountSats,omitempty"`
	OutgoingFeeSats  int64  `json:"outgoingFeeSats,omitempty"`

	CreatedAt time.Time  `json:"createdAt"`
	FundedAt  *time.Time `json:"fundedAt,omitempty"`
	RelayedAt *time.Time `json:"relayedAt,omitempty"`
}
