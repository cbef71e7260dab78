// Package store provides durable, transactional persistence for chains,
// hops, the audit log, and the last-seen tip (spec §3/§4.2). Every
// mutation funnels through one of the typed operations below; each one is
// a single transaction (spec §3 "Ownership").
package store

import "github.com/yourusername/btcrelay/internal/models"

// PendingHop pairs a hop with its owning chain id, the shape
// HopsPendingRelay returns (spec §4.2).
type PendingHop struct {
	ChainID int64
	Hop     *models.Hop
}

// NewChainParams is the input to CreateChain.
type NewChainParams struct {
	Name    string
	Network models.Network

	IntakeAddress      string
	IntakeEncryptedKey string

	FinalAddress      string
	FinalIsGenerated  bool
	FinalEncryptedKey string

	// Hops are pre-generated by the caller (control surface) with fresh
	// addresses/keys and Fibonacci delays already assigned (spec §4.5);
	// the Store only assigns ids and persists them densely over
	// [0, total_hops).
	Hops []NewHopParams
}

// NewHopParams is the per-hop input to CreateChain.
type NewHopParams struct {
	Address      string
	EncryptedKey string
	DelayBlocks  uint64
}

// Store is the persistence boundary the Engine and control surface share.
type Store interface {
	// Chains

	CreateChain(p NewChainParams) (*models.Chain, error)
	GetChain(id int64) (*models.Chain, error)
	ListChains(network models.Network) ([]*models.Chain, error)
	ListActiveChains(network models.Network) ([]*models.Chain, error)
	DeleteChain(id int64) error

	ActivateChain(id int64) error
	CancelChain(id int64) error
	FailChain(id int64, reason string) error

	// RecordIntakeSwept applies the i*==0 branch of ReconcileAndAdvance
	// step 5: records the gross intake balance on the chain, marks hop[0]
	// funded with the given incoming txid and the net amount it actually
	// received (amountReceivedSats - feeSats), and schedules its relay at
	// tip+delay.
	RecordIntakeSwept(chainID int64, amountReceivedSats, feeSats int64, txid string, tipHeight uint64) error

	// RecordHopRelayed applies the i*>0 branch of step 5: marks
	// hop[hopNumber] relayed with outgoing txid/amount/fee, and — when the
	// destination is itself a hop rather than final — marks that
	// destination hop funded and schedules its own relay.
	RecordHopRelayed(chainID int64, hopNumber int, outgoingTxID string, amountSats, feeSats int64, destHopNumber *int, tipHeight uint64) error

	// CorrectHopRelayed marks hop[hopNumber] relayed without any new
	// outgoing-tx data, for the case where the broadcast that relayed it
	// already landed on chain but a crash prevented RecordHopRelayed from
	// ever persisting (spec §6 "fix_status corrects hops whose downstream
	// address is funded"). It leaves OutgoingTxID/OutgoingAmountSats/
	// OutgoingFeeSats untouched, since the broadcast details aren't
	// recoverable from a balance check, and advances CurrentHop past
	// hopNumber if it hasn't already.
	CorrectHopRelayed(chainID int64, hopNumber int) error

	// CompleteChain transitions a chain to completed (spec §4.6
	// "Completion"): sets amount_sent/total_fees, marks any non-relayed
	// hops relayed, and stamps CompletedAt.
	CompleteChain(chainID int64, amountSentSats int64) error

	// MarkHopFailed records a broadcast failure against a hop without
	// otherwise changing chain state (spec §4.6 step 6, §7 BroadcastRejected).
	MarkHopFailed(chainID int64, hopNumber int, reason string) error

	// HopsPendingRelay returns pending_relay hops of active chains on
	// network whose relay_at_block <= tipHeight (spec §4.2).
	HopsPendingRelay(network models.Network, tipHeight uint64) ([]PendingHop, error)

	// Log

	AppendLog(entry models.LogEntry) error
	ListLog(chainID int64) ([]*models.LogEntry, error)

	// Tip

	SetTip(network models.Network, height uint64, hash string) error
	GetTip(network models.Network) (*models.TipMarker, error)

	// Settings

	GetSettings() (models.Settings, error)
	SetSettings(models.Settings) error
}
