package relay

import (
	"context"
	"sync"

	"github.com/yourusername/btcrelay/internal/chainclient"
	"github.com/yourusername/btcrelay/internal/feeoracle"
	"github.com/yourusername/btcrelay/internal/models"
)

// fakeChainClient is an in-memory, test-only ChainClient whose balances and
// UTXO sets a test can mutate directly to simulate blocks being mined and
// funds moving, without touching any real network.
type fakeChainClient struct {
	mu           sync.Mutex
	tip          uint64
	balances     map[string]chainclient.Balance
	utxos        map[string][]chainclient.UTXO
	broadcastHex []string
	panicOnTip   bool
}

func (f *fakeChainClient) setPanicOnTip(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.panicOnTip = v
}

func newFakeChainClient(tip uint64) *fakeChainClient {
	return &fakeChainClient{
		tip:      tip,
		balances: make(map[string]chainclient.Balance),
		utxos:    make(map[string][]chainclient.UTXO),
	}
}

func (f *fakeChainClient) fund(addr string, utxo chainclient.UTXO) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.utxos[addr] = append(f.utxos[addr], utxo)
	bal := f.balances[addr]
	bal.ConfirmedSats += utxo.ValueSats
	f.balances[addr] = bal
}

// spend simulates an address's UTXOs being consumed by a transaction that
// has since been observed on-chain.
func (f *fakeChainClient) spend(addr string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.utxos, addr)
	delete(f.balances, addr)
}

func (f *fakeChainClient) setTip(h uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tip = h
}

func (f *fakeChainClient) TipHeight(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOnTip {
		panic("simulated panic reading chain tip")
	}
	return f.tip, nil
}

func (f *fakeChainClient) AddressBalance(ctx context.Context, address string) (chainclient.Balance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[address], nil
}

func (f *fakeChainClient) AddressUTXOs(ctx context.Context, address string) ([]chainclient.UTXO, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.utxos[address], nil
}

func (f *fakeChainClient) AddressTxs(ctx context.Context, address string) ([]chainclient.Tx, error) {
	return nil, nil
}

func (f *fakeChainClient) TxStatus(ctx context.Context, txid string) (chainclient.TxStatus, error) {
	return chainclient.TxStatus{}, nil
}

func (f *fakeChainClient) Broadcast(ctx context.Context, rawTxHex string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcastHex = append(f.broadcastHex, rawTxHex)
	return fakeTxID(len(f.broadcastHex)), nil
}

func fakeTxID(n int) string {
	const hexDigits = "0123456789abcdef"
	id := make([]byte, 64)
	for i := range id {
		id[i] = hexDigits[0]
	}
	id[63] = hexDigits[n%16]
	return string(id)
}

var _ chainclient.ChainClient = (*fakeChainClient)(nil)

// fakeFeeOracle always returns a fixed medium fee, regardless of network.
type fakeFeeOracle struct {
	mediumFeeRateSatVB int64
}

func (f *fakeFeeOracle) GetFees(ctx context.Context, network models.Network) (feeoracle.Fees, error) {
	return feeoracle.Fees{
		Medium: feeoracle.Tier{
			FeeRateSatVB:     f.mediumFeeRateSatVB,
			EstimatedFeeSats: f.mediumFeeRateSatVB * feeoracle.EstimatedTxVBytes,
			Priority:         feeoracle.PriorityMedium,
		},
	}, nil
}

var _ feeoracle.FeeOracle = (*fakeFeeOracle)(nil)
