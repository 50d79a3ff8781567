package source

import "math/rand/v2"

// Selector picks a stream index in [0, n).
type Selector interface {
	IntN(n int) int
}

// NewSelector returns a deterministic selector seeded once with seed.
// Two selectors with the same seed produce the same sequence.
func NewSelector(seed uint64) Selector {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
