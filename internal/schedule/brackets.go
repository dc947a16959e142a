package schedule

import (
	"errors"
	"fmt"
	"math"
)

// Bracket is a weighted range of birth-to-declaration delays, in days.
type Bracket struct {
	Min    int
	Max    int
	Weight float64
}

// Brackets is an ordered set of completion brackets whose weights sum to ~1.
type Brackets []Bracket

// weightTolerance is how far the weight sum may drift from 1 before Validate complains.
const weightTolerance = 0.01

// Validate checks ranges and that the weights sum to 1 within tolerance.
func (bs Brackets) Validate() error {
	if len(bs) == 0 {
		return errors.New("no completion brackets")
	}
	var sum float64
	for i, b := range bs {
		if b.Min < 0 || b.Max < b.Min {
			return fmt.Errorf("bracket %d: invalid range [%d,%d]", i, b.Min, b.Max)
		}
		if b.Weight < 0 {
			return fmt.Errorf("bracket %d: negative weight %v", i, b.Weight)
		}
		sum += b.Weight
	}
	if math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("bracket weights sum to %v, want 1", sum)
	}
	return nil
}

// Pick selects a bracket by weighted random choice. If the weights do not
// reach 1 the last bracket absorbs the remaining probability mass.
func (bs Brackets) Pick(rnd Source) Bracket {
	draw := rnd.Float64()
	var cumulative float64
	for _, b := range bs[:len(bs)-1] {
		cumulative += b.Weight
		if draw < cumulative {
			return b
		}
	}
	return bs[len(bs)-1]
}

// Sample returns a delay in days: a bracket picked by weight, then a uniform
// integer inside its [Min, Max] range. It never fails on a non-empty set.
func (bs Brackets) Sample(rnd Source) int {
	b := bs.Pick(rnd)
	return b.Min + rnd.IntN(b.Max-b.Min+1)
}
