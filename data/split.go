package data

import (
	"math"
	"math/rand"
)

// splitmix64 is the finalizer of the SplitMix64 generator; one round is
// enough to decorrelate nearby seeds.
func splitmix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB
	return x ^ (x >> 31)
}

// NewFoldStream returns the random stream used for one fold's validation
// split. With the "splitmix" generator each fold gets an independent stream
// derived from (seed, fold index); with "shared" every fold reuses the seed
// verbatim, so equally sized folds produce positionally identical masks.
// Either way the stream depends only on its inputs, never on other folds.
func NewFoldStream(seed int64, generator string, foldIndex int) *rand.Rand {
	var s int64
	switch generator {
	case "shared":
		s = seed
	default: // splitmix
		s = int64(splitmix64(uint64(seed) ^ splitmix64(uint64(foldIndex)+1)))
	}
	return rand.New(rand.NewSource(s))
}

// HoldOutMask partitions n samples once by fraction: round(frac*n) entries
// are marked true (held out for validation), the rest stay in training. A
// degenerate mask (all false or all true) is legal; callers must tolerate an
// empty validation set.
func HoldOutMask(n int, frac float64, rng *rand.Rand) []bool {
	mask := make([]bool, n)
	if n == 0 {
		return mask
	}
	k := int(math.Round(frac * float64(n)))
	if k < 0 {
		k = 0
	}
	if k > n {
		k = n
	}
	for _, idx := range rng.Perm(n)[:k] {
		mask[idx] = true
	}
	return mask
}
