package relay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/btcrelay/internal/btcsigner"
	"github.com/yourusername/btcrelay/internal/chainclient"
	"github.com/yourusername/btcrelay/internal/models"
)

func TestRetrySweepsStrandedHopAndReportsNoFundsElsewhere(t *testing.T) {
	s := newTestFileStore(t)
	chain := buildTestChain(t, s, 3)

	cc := newFakeChainClient(1000)

	engine := NewEngine(Config{
		Store:           s,
		ChainClient:     cc,
		FeeOracle:       &fakeFeeOracle{mediumFeeRateSatVB: 10},
		Signer:          btcsigner.NewBTCDSigner(),
		Network:         models.Testnet,
		Password:        testPassword,
		Logger:          zap.NewNop(),
		PollInterval:    time.Hour,
		ShutdownTimeout: time.Second,
	})

	hop1 := chain.HopByNumber(1)
	require.NotNil(t, hop1)
	cc.fund(hop1.Address, chainclient.UTXO{TxID: "55" + pad62(), Vout: 0, ValueSats: 80000, Confirmed: true})

	results, err := engine.Retry(context.Background(), chain.ID)
	require.NoError(t, err)
	require.Len(t, results, 4) // intake + 3 hops

	var successes, noFunds int
	for _, r := range results {
		switch r.Outcome {
		case StepSuccess:
			successes++
		case StepNoFunds:
			noFunds++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 3, noFunds)
	assert.Len(t, cc.broadcastHex, 1)

	got, err := s.GetChain(chain.ID)
	require.NoError(t, err)
	assert.Equal(t, models.HopRelayed, got.HopByNumber(1).Status)
	assert.Equal(t, models.HopPendingRelay, got.HopByNumber(2).Status)

	logs, err := s.ListLog(chain.ID)
	require.NoError(t, err)
	var sawManualRetry bool
	for _, l := range logs {
		if l.Kind == models.EventManualRetry {
			sawManualRetry = true
		}
	}
	assert.True(t, sawManualRetry)
}

func TestRetryRejectsNonActiveChain(t *testing.T) {
	s := newTestFileStore(t)
	chain := buildTestChain(t, s, 2)
	require.NoError(t, s.CancelChain(chain.ID))

	cc := newFakeChainClient(1000)
	engine := NewEngine(Config{
		Store:           s,
		ChainClient:     cc,
		FeeOracle:       &fakeFeeOracle{mediumFeeRateSatVB: 10},
		Signer:          btcsigner.NewBTCDSigner(),
		Network:         models.Testnet,
		Password:        testPassword,
		Logger:          zap.NewNop(),
		PollInterval:    time.Hour,
		ShutdownTimeout: time.Second,
	})

	_, err := engine.Retry(context.Background(), chain.ID)
	require.Error(t, err)
}
