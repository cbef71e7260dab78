package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yourusername/btcrelay/internal/models"
)

func TestFibonacciKnownTerms(t *testing.T) {
	assert.Equal(t, []uint64{1, 1, 2, 3, 5, 8, 13, 21, 34, 55}, Fibonacci(10))
}

func TestFibonacciExtendsBeyondTable(t *testing.T) {
	delays := Fibonacci(15)
	assert.Len(t, delays, 15)
	for i := 2; i < 15; i++ {
		assert.Equal(t, delays[i-1]+delays[i-2], delays[i])
	}
}

func TestFibonacciZeroAndOne(t *testing.T) {
	assert.Nil(t, Fibonacci(0))
	assert.Equal(t, []uint64{1}, Fibonacci(1))
}

func TestExpectedDurationSumsDelaysTimesAvgBlockMinutes(t *testing.T) {
	delays := Fibonacci(5) // 1, 1, 2, 3, 5 -> sum 12
	totalBlocks, minutes := ExpectedDuration(delays, models.Testnet)
	assert.Equal(t, uint64(12), totalBlocks)
	assert.Equal(t, 120.0, minutes)
}
