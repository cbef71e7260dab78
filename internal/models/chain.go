package models

import "time"

// ChainStatus is the lifecycle state of a relay chain (spec §3, §4.6).
type ChainStatus string

const (
	ChainPending   ChainStatus = "pending"
	ChainActive    ChainStatus = "active"
	ChainCompleted ChainStatus = "completed"
	ChainFailed    ChainStatus = "failed"
	ChainCancelled ChainStatus = "cancelled"
)

// IsValid reports whether s is a known chain status.
func (s ChainStatus) IsValid() bool {
	switch s {
	case ChainPending, ChainActive, ChainCompleted, ChainFailed, ChainCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether s cannot transition further (spec §3 invariants).
func (s ChainStatus) IsTerminal() bool {
	switch s {
	case ChainCompleted, ChainFailed, ChainCancelled:
		return true
	default:
		return false
	}
}

// MinHops and MaxHops bound the number of hops a chain may be created with (spec §8).
const (
	MinHops = 2
	MaxHops = 10
)

// Chain is one relay job: intake -> hop[0] -> ... -> hop[n-1] -> final.
type Chain struct {
	ID   int64   `json:"id"`
	Name string  `json:"name"`

	Network Network     `json:"network"`
	Status  ChainStatus `json:"status"`

	IntakeAddress       string `json:"intakeAddress"`
	IntakeEncryptedKey  string `json:"intakeEncryptedKey"`

	FinalAddress      string `json:"finalAddress"`
	FinalIsGenerated  bool   `json:"finalIsGenerated"`
	FinalEncryptedKey string `json:"finalEncryptedKey,omitempty"`

	TotalHops  int `json:"totalHops"`
	CurrentHop int `json:"currentHop"`

	AmountReceivedSats int64 `json:"amountReceivedSats"`
	AmountSentSats     int64 `json:"amountSentSats"`
	TotalFeesSats      int64 `json:"totalFeesSats"`

	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Error       string     `json:"error,omitempty"`

	Hops []*Hop `json:"hops"`
}

// AddressChain returns the ordered address list A = [intake, hop0..hopN-1]
// used by ReconcileAndAdvance to locate funds (spec §4.6 step 1).
func (c *Chain) AddressChain() []string {
	addrs := make([]string, 0, len(c.Hops)+1)
	addrs = append(addrs, c.IntakeAddress)
	for _, h := range c.Hops {
		addrs = append(addrs, h.Address)
	}
	return addrs
}

// EncryptedKeyChain returns the encrypted signing keys parallel to AddressChain.
func (c *Chain) EncryptedKeyChain() []string {
	keys := make([]string, 0, len(c.Hops)+1)
	keys = append(keys, c.IntakeEncryptedKey)
	for _, h := range c.Hops {
		keys = append(keys, h.EncryptedKey)
	}
	return keys
}

// DestinationChain returns D = [hop0..hopN-1, final], the destination for a
// sweep originating at the address of the same index in AddressChain.
func (c *Chain) DestinationChain() []string {
	dests := make([]string, 0, len(c.Hops)+1)
	for _, h := range c.Hops {
		dests = append(dests, h.Address)
	}
	dests = append(dests, c.FinalAddress)
	return dests
}

// HopByNumber returns the hop with the given hop_number, or nil.
func (c *Chain) HopByNumber(n int) *Hop {
	for _, h := range c.Hops {
		if h.HopNumber == n {
			return h
		}
	}
	return nil
}
