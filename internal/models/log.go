package models

import "time"

// LogEventKind enumerates the audit-log event kinds the engine and control
// surface append. Grounded on the AuditLogEntry.Operation convention in the
// teacher's internal/services/audit package (NDJSON "WALLET_CREATE" etc.)
// but scoped to relay events.
type LogEventKind string

const (
	EventChainCreated    LogEventKind = "chain_created"
	EventChainActivated  LogEventKind = "chain_activated"
	EventChainCancelled  LogEventKind = "chain_cancelled"
	EventChainCompleted  LogEventKind = "chain_completed"
	EventWaitingForFunds LogEventKind = "waiting_for_funds"
	EventFundsInTransit  LogEventKind = "funds_in_transit"
	EventRelaySent       LogEventKind = "relay_sent"
	EventInsufficientBal LogEventKind = "insufficient_balance"
	EventBroadcastError  LogEventKind = "broadcast_error"
	EventDecryptError    LogEventKind = "decrypt_error"
	EventManualRetry     LogEventKind = "manual_retry"
	EventStatusCorrected LogEventKind = "status_corrected"
)

// LogEntry is an append-only audit record (spec §3). Entries are never
// updated or deleted except via chain-deletion cascade.
type LogEntry struct {
	ID      int64  `json:"id"`
	ChainID int64  `json:"chainId"`
	HopID   int64  `json:"hopId,omitempty"`

	Kind LogEventKind `json:"kind"`

	TxID       string `json:"txId,omitempty"`
	AmountSats int64  `json:"amountSats,omitempty"`
	FeeSats    int64  `json:"feeSats,omitempty"`
	BlockHeight uint64 `json:"blockHeight,omitempty"`

	Details string `json:"details,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}
