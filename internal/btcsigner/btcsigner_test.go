package btcsigner

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/btcrelay/internal/chainclient"
	"github.com/yourusername/btcrelay/internal/models"
)

func TestGenerateKeyProducesValidTestnetAddress(t *testing.T) {
	signer := NewBTCDSigner()

	key, err := signer.GenerateKey(models.Testnet)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key.Address, "tb1q"))
	assert.NotEmpty(t, key.WIF)

	derived, err := signer.AddressFromWIF(key.WIF, models.Testnet)
	require.NoError(t, err)
	assert.Equal(t, key.Address, derived)
}

func TestGenerateKeyProducesValidMainnetAddress(t *testing.T) {
	signer := NewBTCDSigner()

	key, err := signer.GenerateKey(models.Mainnet)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key.Address, "bc1q"))
}

func TestGenerateKeyProducesDistinctKeys(t *testing.T) {
	signer := NewBTCDSigner()

	a, err := signer.GenerateKey(models.Testnet)
	require.NoError(t, err)
	b, err := signer.GenerateKey(models.Testnet)
	require.NoError(t, err)

	assert.NotEqual(t, a.Address, b.Address)
	assert.NotEqual(t, a.WIF, b.WIF)
}

func TestAddressFromWIFRejectsGarbage(t *testing.T) {
	signer := NewBTCDSigner()

	_, err := signer.AddressFromWIF("not-a-wif-key", models.Testnet)
	require.Error(t, err)
}

func TestBuildSweepProducesValidSignedTransaction(t *testing.T) {
	signer := NewBTCDSigner()

	key, err := signer.GenerateKey(models.Testnet)
	require.NoError(t, err)

	destKey, err := signer.GenerateKey(models.Testnet)
	require.NoError(t, err)

	utxos := []chainclient.UTXO{
		{TxID: strings.Repeat("ab", 32), Vout: 0, ValueSats: 100000, Confirmed: true, BlockHeight: 100},
	}

	rawHex, txid, amount, err := signer.BuildSweep(context.Background(), key.WIF, models.Testnet, utxos, destKey.Address, 500)
	require.NoError(t, err)
	assert.NotEmpty(t, rawHex)
	assert.NotEmpty(t, txid)
	assert.Equal(t, int64(99500), amount)
}

func TestBuildSweepRejectsWhenBalanceBelowFee(t *testing.T) {
	signer := NewBTCDSigner()

	key, err := signer.GenerateKey(models.Testnet)
	require.NoError(t, err)
	destKey, err := signer.GenerateKey(models.Testnet)
	require.NoError(t, err)

	utxos := []chainclient.UTXO{
		{TxID: strings.Repeat("cd", 32), Vout: 0, ValueSats: 100, Confirmed: true},
	}

	_, _, _, err = signer.BuildSweep(context.Background(), key.WIF, models.Testnet, utxos, destKey.Address, 200)
	require.Error(t, err)
}

func TestBuildSweepSumsMultipleUTXOs(t *testing.T) {
	signer := NewBTCDSigner()

	key, err := signer.GenerateKey(models.Testnet)
	require.NoError(t, err)
	destKey, err := signer.GenerateKey(models.Testnet)
	require.NoError(t, err)

	utxos := []chainclient.UTXO{
		{TxID: strings.Repeat("11", 32), Vout: 0, ValueSats: 50000},
		{TxID: strings.Repeat("22", 32), Vout: 1, ValueSats: 30000},
	}

	_, _, amount, err := signer.BuildSweep(context.Background(), key.WIF, models.Testnet, utxos, destKey.Address, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(79000), amount)
}
