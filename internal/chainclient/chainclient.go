// Package chainclient is the abstract contract the Engine uses to read
// chain state and broadcast transactions (spec §4.3), together with a
// Blockstream-compatible REST implementation (spec §6). Grounded on the
// teacher's src/chainadapter/bitcoin/rpc.go RPCHelper: same "thin wrapper
// returning typed results, classify every failure as TransientNetwork on
// the way out" shape, but over HTTP/REST instead of JSON-RPC since that is
// the wire format spec §6 names.
package chainclient

import "context"

// Balance is address_balance's confirmed/unconfirmed split (spec §4.3):
// confirmed = chain.funded - chain.spent, unconfirmed = mempool.funded -
// mempool.spent, both signed.
type Balance struct {
	ConfirmedSats   int64
	UnconfirmedSats int64
}

// UTXO is one spendable output at an address, needed to build a sweep
// transaction. The Blockstream wire format exposes this at
// address/{a}/utxo (spec §6) even though §4.3's operation list only names
// address_balance; AddressUTXOs backs the actual transaction construction
// that balance alone cannot support.
type UTXO struct {
	TxID        string
	Vout        uint32
	ValueSats   int64
	Confirmed   bool
	BlockHeight uint64
}

// Tx is one entry of address_txs (spec §4.3) — enough to drive the
// "funds in transit" vs "confirmed" status distinction without a full
// transaction decode.
type Tx struct {
	TxID        string
	Confirmed   bool
	BlockHeight uint64
}

// TxStatus is tx_status's result (spec §4.3).
type TxStatus struct {
	Confirmed   bool
	BlockHeight uint64
	FeeSats     int64
}

// ChainClient is the Engine's view of the blockchain (spec §4.3). Every
// call may fail transiently; callers treat failure as "no information,
// try again next cycle" (spec §4.3, §7 TransientNetwork).
type ChainClient interface {
	TipHeight(ctx context.Context) (uint64, error)
	AddressBalance(ctx context.Context, address string) (Balance, error)
	AddressUTXOs(ctx context.Context, address string) ([]UTXO, error)
	AddressTxs(ctx context.Context, address string) ([]Tx, error)
	TxStatus(ctx context.Context, txid string) (TxStatus, error)
	Broadcast(ctx context.Context, rawTxHex string) (string, error)
}
