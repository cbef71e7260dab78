package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/btcrelay/internal/models"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relay.db.json")
	fs, err := Open(path)
	require.NoError(t, err)
	return fs
}

func testChainParams() NewChainParams {
	return NewChainParams{
		Name:               "test chain",
		Network:            models.Testnet,
		IntakeAddress:      "tb1qintake",
		IntakeEncryptedKey: "enc-intake",
		FinalAddress:       "tb1qfinal",
		FinalIsGenerated:   false,
		Hops: []NewHopParams{
			{Address: "tb1qhop0", EncryptedKey: "enc-hop0", DelayBlocks: 1},
			{Address: "tb1qhop1", EncryptedKey: "enc-hop1", DelayBlocks: 1},
			{Address: "tb1qhop2", EncryptedKey: "enc-hop2", DelayBlocks: 2},
		},
	}
}

func TestCreateAndGetChain(t *testing.T) {
	s := newTestStore(t)

	c, err := s.CreateChain(testChainParams())
	require.NoError(t, err)
	assert.Equal(t, models.ChainPending, c.Status)
	assert.Equal(t, 3, c.TotalHops)
	assert.Len(t, c.Hops, 3)
	for i, h := range c.Hops {
		assert.Equal(t, i, h.HopNumber)
		assert.Equal(t, models.HopWaiting, h.Status)
	}

	got, err := s.GetChain(c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, c.IntakeAddress, got.IntakeAddress)
}

func TestCreateChainRejectsOutOfRangeHopCount(t *testing.T) {
	s := newTestStore(t)

	p := testChainParams()
	p.Hops = []NewHopParams{{Address: "only-one", EncryptedKey: "k", DelayBlocks: 1}}

	_, err := s.CreateChain(p)
	require.Error(t, err)
}

func TestGetChainNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetChain(999)
	require.Error(t, err)
}

func TestActivateCancelLifecycle(t *testing.T) {
	s := newTestStore(t)
	c, err := s.CreateChain(testChainParams())
	require.NoError(t, err)

	require.NoError(t, s.ActivateChain(c.ID))
	got, err := s.GetChain(c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChainActive, got.Status)
	assert.NotNil(t, got.StartedAt)

	require.Error(t, s.ActivateChain(c.ID), "cannot re-activate an already-active chain")

	require.NoError(t, s.CancelChain(c.ID))
	got, err = s.GetChain(c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChainCancelled, got.Status)

	require.Error(t, s.CancelChain(c.ID), "cannot cancel a terminal chain")
}

func TestRecordIntakeSweptSchedulesHopZero(t *testing.T) {
	s := newTestStore(t)
	c, err := s.CreateChain(testChainParams())
	require.NoError(t, err)
	require.NoError(t, s.ActivateChain(c.ID))

	require.NoError(t, s.RecordIntakeSwept(c.ID, 100000, 500, "txid-intake", 1000))

	got, err := s.GetChain(c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), got.AmountReceivedSats)

	hop0 := got.HopByNumber(0)
	require.NotNil(t, hop0)
	assert.Equal(t, models.HopPendingRelay, hop0.Status)
	assert.Equal(t, "txid-intake", hop0.IncomingTxID)
	assert.Equal(t, int64(99500), hop0.IncomingAmountSats, "hop0 is credited net of the sweep fee, not the gross intake balance")
	assert.Equal(t, uint64(1001), hop0.RelayAtBlock)
	assert.NotNil(t, hop0.FundedAt)
}

func TestRecordHopRelayedAdvancesAndFundsNextHop(t *testing.T) {
	s := newTestStore(t)
	c, err := s.CreateChain(testChainParams())
	require.NoError(t, err)
	require.NoError(t, s.ActivateChain(c.ID))
	require.NoError(t, s.RecordIntakeSwept(c.ID, 100000, 500, "txid-intake", 1000))

	dest1 := 1
	require.NoError(t, s.RecordHopRelayed(c.ID, 0, "txid-hop0-out", 99500, 500, &dest1, 1001))

	got, err := s.GetChain(c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentHop)

	hop0 := got.HopByNumber(0)
	assert.Equal(t, models.HopRelayed, hop0.Status)
	assert.Equal(t, "txid-hop0-out", hop0.OutgoingTxID)

	hop1 := got.HopByNumber(1)
	require.NotNil(t, hop1)
	assert.Equal(t, models.HopPendingRelay, hop1.Status)
	assert.Equal(t, "txid-hop0-out", hop1.IncomingTxID)
	assert.Equal(t, uint64(1002), hop1.RelayAtBlock)
}

func TestCompleteChainSumsFeesAndMarksHopsRelayed(t *testing.T) {
	s := newTestStore(t)
	c, err := s.CreateChain(testChainParams())
	require.NoError(t, err)
	require.NoError(t, s.ActivateChain(c.ID))
	require.NoError(t, s.RecordIntakeSwept(c.ID, 100000, 500, "txid-intake", 1000))

	dest1 := 1
	require.NoError(t, s.RecordHopRelayed(c.ID, 0, "txid-hop0-out", 99500, 500, &dest1, 1001))
	dest2 := 2
	require.NoError(t, s.RecordHopRelayed(c.ID, 1, "txid-hop1-out", 99000, 500, &dest2, 1003))
	require.NoError(t, s.RecordHopRelayed(c.ID, 2, "txid-hop2-out", 98500, 500, nil, 1006))

	require.NoError(t, s.CompleteChain(c.ID, 98500))

	got, err := s.GetChain(c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChainCompleted, got.Status)
	assert.Equal(t, int64(98500), got.AmountSentSats)
	assert.Equal(t, int64(1500), got.TotalFeesSats)
	assert.Equal(t, got.TotalHops, got.CurrentHop)
	assert.NotNil(t, got.CompletedAt)
	for _, h := range got.Hops {
		assert.Equal(t, models.HopRelayed, h.Status)
	}
}

func TestHopsPendingRelayFiltersByTipAndNetwork(t *testing.T) {
	s := newTestStore(t)
	c, err := s.CreateChain(testChainParams())
	require.NoError(t, err)
	require.NoError(t, s.ActivateChain(c.ID))
	require.NoError(t, s.RecordIntakeSwept(c.ID, 100000, 500, "txid-intake", 1000))

	pending, err := s.HopsPendingRelay(models.Testnet, 1000)
	require.NoError(t, err)
	assert.Empty(t, pending, "relay_at_block is tip+1, not yet reached")

	pending, err = s.HopsPendingRelay(models.Testnet, 1001)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, c.ID, pending[0].ChainID)
	assert.Equal(t, 0, pending[0].Hop.HopNumber)

	pending, err = s.HopsPendingRelay(models.Mainnet, 1001)
	require.NoError(t, err)
	assert.Empty(t, pending, "wrong network must not match")
}

func TestDeleteChainCascadesLog(t *testing.T) {
	s := newTestStore(t)
	c, err := s.CreateChain(testChainParams())
	require.NoError(t, err)

	require.NoError(t, s.AppendLog(models.LogEntry{ChainID: c.ID, Kind: models.EventChainCreated}))
	require.NoError(t, s.AppendLog(models.LogEntry{ChainID: c.ID, Kind: models.EventChainActivated}))

	logs, err := s.ListLog(c.ID)
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	require.NoError(t, s.DeleteChain(c.ID))

	_, err = s.GetChain(c.ID)
	require.Error(t, err)

	logs, err = s.ListLog(c.ID)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestTipMarkerRoundTrip(t *testing.T) {
	s := newTestStore(t)

	tip, err := s.GetTip(models.Testnet)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), tip.Height)

	require.NoError(t, s.SetTip(models.Testnet, 12345, "00000abc"))

	tip, err = s.GetTip(models.Testnet)
	require.NoError(t, err)
	assert.Equal(t, uint64(12345), tip.Height)
	assert.Equal(t, "00000abc", tip.Hash)
}

func TestSettingsRoundTrip(t *testing.T) {
	s := newTestStore(t)

	settings, err := s.GetSettings()
	require.NoError(t, err)
	assert.Empty(t, settings.PasswordVerifier)

	require.NoError(t, s.SetSettings(models.Settings{
		ActiveNetwork:    models.Testnet,
		PasswordVerifier: "verifier-blob",
	}))

	settings, err = s.GetSettings()
	require.NoError(t, err)
	assert.Equal(t, "verifier-blob", settings.PasswordVerifier)
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.db.json")
	s1, err := Open(path)
	require.NoError(t, err)

	c, err := s1.CreateChain(testChainParams())
	require.NoError(t, err)

	s2, err := Open(path)
	require.NoError(t, err)

	got, err := s2.GetChain(c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.IntakeAddress, got.IntakeAddress)
}
