package core

import (
	"math/rand/v2"
	"sync"
)

// Rand is a seedable pseudo-random source that is safe for concurrent use.
// Every stochastic decision in scheduling and the workflow driver draws from
// one Rand so a run can be replayed from its seed.
type Rand struct {
	mu   sync.Mutex
	r    *rand.Rand
	seed uint64
}

// NewRand returns a Rand seeded with seed. A zero seed picks a random one.
func NewRand(seed uint64) *Rand {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Rand{
		r:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		seed: seed,
	}
}

// Seed returns the seed the source was created with.
func (r *Rand) Seed() uint64 { return r.seed }

// Float64 returns a number in [0.0, 1.0).
func (r *Rand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.r.Float64()
}

// IntN returns a number in [0, n). It panics if n <= 0.
func (r *Rand) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.r.IntN(n)
}

// Uint64 returns a pseudo-random 64-bit value, used to derive child seeds.
func (r *Rand) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.r.Uint64()
}
