package game

import (
	"math/rand"
	"time"
)

// NewRNG returns the per-match random source. All engine randomness (deck
// shuffles, role deals, tie breaks) must flow through this source so that
// replay from (seed, action batches) is exact. Seed 0 picks a time-based
// seed for casual runs.
func NewRNG(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
