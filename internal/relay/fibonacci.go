package relay

import "github.com/yourusername/btcrelay/internal/models"

// Fibonacci returns the first n terms of the delay sequence 1, 1, 2, 3, 5,
// 8, 13, ... (spec §4.5, GLOSSARY "Fibonacci delay": fib(0)=fib(1)=1). The
// sequence extends arbitrarily far beyond any fixed table, satisfying the
// boundary case of requesting more hops than any precomputed cache holds.
func Fibonacci(n int) []uint64 {
	if n <= 0 {
		return nil
	}

	delays := make([]uint64, n)
	delays[0] = 1
	if n > 1 {
		delays[1] = 1
	}
	for i := 2; i < n; i++ {
		delays[i] = delays[i-1] + delays[i-2]
	}
	return delays
}

// avgBlockMinutes is the assumed average block interval used to convert a
// delay schedule, measured in blocks, into wall-clock duration (spec §4.5
// "Total expected duration is sum(delays) x avg_block_minutes"). Both
// networks target the same 10-minute difficulty adjustment, so the
// constant is the same for each; it is kept per-network so a future
// network with a different target interval only needs an entry here.
// Grounded on the original implementation's estimate_relay_timing, which
// defaults avg_block_time_minutes to 10.
var avgBlockMinutes = map[models.Network]float64{
	models.Testnet: 10,
	models.Mainnet: 10,
}

// ExpectedDuration sums a delay schedule and converts it to wall-clock
// time for network, mirroring the original's estimate_relay_timing.
func ExpectedDuration(delays []uint64, network models.Network) (totalBlocks uint64, minutes float64) {
	for _, d := range delays {
		totalBlocks += d
	}
	minutes = float64(totalBlocks) * avgBlockMinutes[network]
	return totalBlocks, minutes
}
