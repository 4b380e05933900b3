package simulation

import (
	"math"
	"math/rand"
)

// Random streams derived from the park seed. Each stream draws from its own
// seed space so no agent reuses an hour's arrival sequence.
const (
	decisionStream uint64 = iota + 1
	arrivalStream
	agentStream
)

// streamSeed mixes the park seed, a stream and an index through the
// splitmix64 finalizer.
func streamSeed(seed int64, stream uint64, n int) int64 {
	z := uint64(seed) + stream*0x9e3779b97f4a7c15 + uint64(n)*0xd1b54a32d192ed03
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return int64(z ^ (z >> 31))
}

// poisson samples a Poisson count with the given mean. Knuth's method for
// moderate means, normal approximation above 30.
func poisson(r *rand.Rand, mean float64) int {
	if mean <= 0 {
		return 0
	}
	if mean > 30 {
		val := int(math.Round(r.NormFloat64()*math.Sqrt(mean) + mean))
		if val < 0 {
			return 0
		}
		return val
	}
	limit := math.Exp(-mean)
	k := 0
	p := 1.0
	for p > limit {
		k++
		p *= r.Float64()
	}
	return k - 1
}

// normal samples N(mean, sd) floored at min.
func normal(r *rand.Rand, mean, sd, min float64) float64 {
	return math.Max(r.NormFloat64()*sd+mean, min)
}

// weightedIndex picks an index in proportion to weights. All-zero weights
// fall back to a uniform pick. Returns -1 for an empty slice.
func weightedIndex(r *rand.Rand, weights []float64) int {
	if len(weights) == 0 {
		return -1
	}
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return r.Intn(len(weights))
	}
	x := r.Float64() * total
	floor := 0.0
	for i, w := range weights {
		floor += w
		if x < floor {
			return i
		}
	}
	return len(weights) - 1
}
