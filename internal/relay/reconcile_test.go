package relay

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/btcrelay/internal/btcsigner"
	"github.com/yourusername/btcrelay/internal/chainclient"
	"github.com/yourusername/btcrelay/internal/models"
	"github.com/yourusername/btcrelay/internal/store"
	"github.com/yourusername/btcrelay/internal/vault"
)

const testPassword = "correct horse battery staple"

type testChain struct {
	chain  *models.Chain
	signer btcsigner.BitcoinSigner
}

func buildTestChain(t *testing.T, s store.Store, numHops int) *models.Chain {
	t.Helper()
	signer := btcsigner.NewBTCDSigner()

	intakeKey, err := signer.GenerateKey(models.Testnet)
	require.NoError(t, err)
	intakeEnc, err := vault.Encrypt([]byte(intakeKey.WIF), testPassword)
	require.NoError(t, err)

	finalKey, err := signer.GenerateKey(models.Testnet)
	require.NoError(t, err)

	hops := make([]store.NewHopParams, numHops)
	delays := Fibonacci(numHops)
	for i := 0; i < numHops; i++ {
		key, err := signer.GenerateKey(models.Testnet)
		require.NoError(t, err)
		enc, err := vault.Encrypt([]byte(key.WIF), testPassword)
		require.NoError(t, err)
		hops[i] = store.NewHopParams{Address: key.Address, EncryptedKey: enc, DelayBlocks: delays[i]}
	}

	chain, err := s.CreateChain(store.NewChainParams{
		Name:               "test",
		Network:            models.Testnet,
		IntakeAddress:      intakeKey.Address,
		IntakeEncryptedKey: intakeEnc,
		FinalAddress:       finalKey.Address,
		FinalIsGenerated:   false,
		Hops:               hops,
	})
	require.NoError(t, err)
	require.NoError(t, s.ActivateChain(chain.ID))

	chain, err = s.GetChain(chain.ID)
	require.NoError(t, err)
	return chain
}

func newTestReconciler(s store.Store, cc *fakeChainClient) *reconciler {
	return &reconciler{
		store:       s,
		chainClient: cc,
		feeOracle:   &fakeFeeOracle{mediumFeeRateSatVB: 10},
		signer:      btcsigner.NewBTCDSigner(),
		password:    testPassword,
		logger:      zap.NewNop(),
	}
}

func newTestFileStore(t *testing.T) store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relay.db.json")
	s, err := store.Open(path)
	require.NoError(t, err)
	return s
}

func TestReconcileSweepsIntakeWhenFunded(t *testing.T) {
	s := newTestFileStore(t)
	chain := buildTestChain(t, s, 3)

	cc := newFakeChainClient(1000)
	cc.fund(chain.IntakeAddress, chainclient.UTXO{TxID: "11" + pad62(), Vout: 0, ValueSats: 100000, Confirmed: true})

	r := newTestReconciler(s, cc)
	require.NoError(t, r.reconcileAndAdvance(context.Background(), chain, 1000))

	require.Len(t, cc.broadcastHex, 1)

	got, err := s.GetChain(chain.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), got.AmountReceivedSats)

	hop0 := got.HopByNumber(0)
	require.NotNil(t, hop0)
	assert.Equal(t, models.HopPendingRelay, hop0.Status)
	assert.Equal(t, uint64(1001), hop0.RelayAtBlock) // fib(0) == 1
}

func TestReconcileGatesHopSweepOnRelayAtBlock(t *testing.T) {
	s := newTestFileStore(t)
	chain := buildTestChain(t, s, 3)

	cc := newFakeChainClient(1000)
	cc.fund(chain.IntakeAddress, chainclient.UTXO{TxID: "11" + pad62(), Vout: 0, ValueSats: 100000, Confirmed: true})

	r := newTestReconciler(s, cc)
	require.NoError(t, r.reconcileAndAdvance(context.Background(), chain, 1000))

	chain, err := s.GetChain(chain.ID)
	require.NoError(t, err)
	hop0 := chain.HopByNumber(0)
	require.NotNil(t, hop0)

	// The intake sweep's output has since moved; the intake address is
	// spent and hop0 is observed funded, one block before its delay has
	// elapsed.
	cc.spend(chain.IntakeAddress)
	cc.fund(hop0.Address, chainclient.UTXO{TxID: "22" + pad62(), Vout: 0, ValueSats: 99900, Confirmed: true})

	cc.setTip(hop0.RelayAtBlock - 1)
	require.NoError(t, r.reconcileAndAdvance(context.Background(), chain, hop0.RelayAtBlock-1))
	assert.Len(t, cc.broadcastHex, 1, "gated sweep must not fire before relay_at_block")

	cc.setTip(hop0.RelayAtBlock)
	require.NoError(t, r.reconcileAndAdvance(context.Background(), chain, hop0.RelayAtBlock))
	assert.Len(t, cc.broadcastHex, 2, "sweep must fire once tip reaches relay_at_block")
}

func TestReconcileCompletesChainWhenFinalFunded(t *testing.T) {
	s := newTestFileStore(t)
	chain := buildTestChain(t, s, 2)

	cc := newFakeChainClient(5000)
	cc.fund(chain.FinalAddress, chainclient.UTXO{TxID: "33" + pad62(), Vout: 0, ValueSats: 98000, Confirmed: true})

	r := newTestReconciler(s, cc)
	require.NoError(t, r.reconcileAndAdvance(context.Background(), chain, 5000))

	got, err := s.GetChain(chain.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChainCompleted, got.Status)
	assert.Equal(t, int64(98000), got.AmountSentSats)
	assert.NotNil(t, got.CompletedAt)
}

func TestReconcileLogsInsufficientBalanceWithoutBroadcasting(t *testing.T) {
	s := newTestFileStore(t)
	chain := buildTestChain(t, s, 2)

	cc := newFakeChainClient(1000)
	cc.fund(chain.IntakeAddress, chainclient.UTXO{TxID: "44" + pad62(), Vout: 0, ValueSats: 50, Confirmed: true})

	r := newTestReconciler(s, cc)
	require.NoError(t, r.reconcileAndAdvance(context.Background(), chain, 1000))

	assert.Empty(t, cc.broadcastHex)

	logs, err := s.ListLog(chain.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.EventInsufficientBal, logs[0].Kind)

	got, err := s.GetChain(chain.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChainActive, got.Status, "chain remains active, retried next cycle")
}

func TestReconcileIsIdempotentAcrossRepeatedCycles(t *testing.T) {
	s := newTestFileStore(t)
	chain := buildTestChain(t, s, 2)

	cc := newFakeChainClient(1000)
	r := newTestReconciler(s, cc)

	// No funds anywhere: repeated cycles must not write anything.
	require.NoError(t, r.reconcileAndAdvance(context.Background(), chain, 1000))
	require.NoError(t, r.reconcileAndAdvance(context.Background(), chain, 1001))

	logs, err := s.ListLog(chain.ID)
	require.NoError(t, err)
	assert.Empty(t, logs)
	assert.Empty(t, cc.broadcastHex)
}

func TestCorrectDriftMarksStaleHopRelayedWhenDownstreamFunded(t *testing.T) {
	s := newTestFileStore(t)
	chain := buildTestChain(t, s, 3)

	cc := newFakeChainClient(1000)
	cc.fund(chain.IntakeAddress, chainclient.UTXO{TxID: "11" + pad62(), Vout: 0, ValueSats: 100000, Confirmed: true})

	r := newTestReconciler(s, cc)
	require.NoError(t, r.reconcileAndAdvance(context.Background(), chain, 1000))

	chain, err := s.GetChain(chain.ID)
	require.NoError(t, err)
	hop0 := chain.HopByNumber(0)
	require.Equal(t, models.HopPendingRelay, hop0.Status)

	// Simulate a crash between hop0's sweep broadcast landing on chain and
	// RecordHopRelayed ever persisting: hop0's own address is spent, hop1's
	// address (hop0's downstream) already holds the funds, but the store
	// still shows hop0 pending.
	hop1 := chain.HopByNumber(1)
	require.NotNil(t, hop1)
	cc.spend(hop0.Address)
	cc.fund(hop1.Address, chainclient.UTXO{TxID: "22" + pad62(), Vout: 0, ValueSats: 99500, Confirmed: true})

	require.NoError(t, r.correctDrift(context.Background(), chain))

	got, err := s.GetChain(chain.ID)
	require.NoError(t, err)
	gotHop0 := got.HopByNumber(0)
	assert.Equal(t, models.HopRelayed, gotHop0.Status, "hop0's downstream address is funded, so fix_status must mark it relayed")
	assert.NotNil(t, gotHop0.RelayedAt)
	assert.Equal(t, 1, got.CurrentHop)

	logs, err := s.ListLog(chain.ID)
	require.NoError(t, err)
	found := false
	for _, l := range logs {
		if l.Kind == models.EventStatusCorrected {
			found = true
		}
	}
	assert.True(t, found, "correction must be logged")
}

func TestCorrectDriftIsNoopWhenNoHopsAreStale(t *testing.T) {
	s := newTestFileStore(t)
	chain := buildTestChain(t, s, 2)

	cc := newFakeChainClient(1000)
	r := newTestReconciler(s, cc)

	require.NoError(t, r.correctDrift(context.Background(), chain))

	logs, err := s.ListLog(chain.ID)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func pad62() string {
	out := make([]byte, 62)
	for i := range out {
		out[i] = '0'
	}
	return string(out)
}
