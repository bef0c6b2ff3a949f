package pool

import "math/big"

// MinimumLiquidity is permanently locked to the zero address on a pool's
// first mint, keeping the per-share price away from exploitable extremes.
var MinimumLiquidity = big.NewInt(1000)

// sqrt returns the integer square root of n, floored.
func sqrt(n *big.Int) *big.Int {
	return new(big.Int).Sqrt(n)
}

func minBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}
