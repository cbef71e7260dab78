package feeoracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/btcrelay/internal/models"
)

func TestFallbackScalesFromBaseRate(t *testing.T) {
	fees := Fallback(models.Testnet)
	assert.Equal(t, int64(20), fees.High.FeeRateSatVB)
	assert.Equal(t, int64(10), fees.Medium.FeeRateSatVB)
	assert.Equal(t, int64(5), fees.Low.FeeRateSatVB)
	assert.Equal(t, int64(2), fees.Economy.FeeRateSatVB)

	fees = Fallback(models.Mainnet)
	assert.Equal(t, int64(40), fees.High.FeeRateSatVB)
	assert.Equal(t, int64(20), fees.Medium.FeeRateSatVB)
}

func TestMediumFlooredAppliesMinimum(t *testing.T) {
	fees := Fees{Medium: Tier{EstimatedFeeSats: 50}}
	assert.Equal(t, int64(MinFeeSats), fees.MediumFloored())

	fees = Fees{Medium: Tier{EstimatedFeeSats: 5000}}
	assert.Equal(t, int64(5000), fees.MediumFloored())
}

func TestGetFeesParsesMempoolSpaceResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"fastestFee":30,"halfHourFee":20,"hourFee":15,"economyFee":5}`))
	}))
	defer srv.Close()

	oracle := NewMempoolSpaceOracle(srv.URL, time.Second)
	fees, err := oracle.GetFees(context.Background(), models.Testnet)
	require.NoError(t, err)

	assert.Equal(t, int64(30), fees.High.FeeRateSatVB)
	assert.Equal(t, int64(20), fees.Medium.FeeRateSatVB)
	assert.Equal(t, int64(15), fees.Low.FeeRateSatVB)
	assert.Equal(t, int64(5), fees.Economy.FeeRateSatVB)
	assert.Equal(t, int64(20*EstimatedTxVBytes), fees.Medium.EstimatedFeeSats)
}

func TestGetFeesFallsBackOnUnreachableOracle(t *testing.T) {
	oracle := NewMempoolSpaceOracle("http://127.0.0.1:1", 100*time.Millisecond)
	fees, err := oracle.GetFees(context.Background(), models.Testnet)
	require.NoError(t, err)
	assert.Equal(t, Fallback(models.Testnet), fees)
}

func TestGetFeesFallsBackOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	oracle := NewMempoolSpaceOracle(srv.URL, time.Second)
	fees, err := oracle.GetFees(context.Background(), models.Mainnet)
	require.NoError(t, err)
	assert.Equal(t, Fallback(models.Mainnet), fees)
}
