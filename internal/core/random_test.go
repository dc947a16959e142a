package core

import (
	"sync"
	"testing"
)

func TestRand_SameSeedSameSequence(t *testing.T) {
	a := NewRand(42)
	b := NewRand(42)
	for i := 0; i < 100; i++ {
		if x, y := a.IntN(1000), b.IntN(1000); x != y {
			t.Fatalf("draw %d differs: %d vs %d", i, x, y)
		}
	}
}

func TestRand_ZeroSeedIsRandomised(t *testing.T) {
	r := NewRand(0)
	if r.Seed() == 0 {
		t.Error("expected a non-zero seed to be chosen")
	}
}

func TestRand_ConcurrentUse(t *testing.T) {
	r := NewRand(7)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				if f := r.Float64(); f < 0 || f >= 1 {
					t.Errorf("Float64 out of range: %v", f)
				}
			}
		}()
	}
	wg.Wait()
}
