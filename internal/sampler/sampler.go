// Package sampler implements seeded weighted selection used for room templates,
// encounter kinds and entity pools.
package sampler

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// ErrEmptyPool is returned when sampling from a pool with no entries.
var ErrEmptyPool = errors.New("empty pool")

// EmptyPoolError names the pool that had nothing to offer.
type EmptyPoolError struct {
	Pool string
}

func (e *EmptyPoolError) Error() string {
	if e.Pool == "" {
		return "cannot sample from an empty pool"
	}
	return fmt.Sprintf("cannot sample from empty %s pool", e.Pool)
}

// Is lets errors.Is match ErrEmptyPool.
func (e *EmptyPoolError) Is(target error) bool {
	return target == ErrEmptyPool
}

// ErrWeightOverflow is returned when a pool's weights do not sum to an int.
var ErrWeightOverflow = errors.New("total weight overflows int")

// Source is the random source consumed by the sampler. *rand.Rand and *RNG satisfy it.
type Source interface {
	Intn(n int) int
}

// Weighted pairs an item with its relative weight.
type Weighted[T any] struct {
	Item   T
	Weight int
}

// SampleIndex returns an index chosen by weighted random selection.
// Draws r in [0, total) and returns the first index whose running sum exceeds r.
func SampleIndex(weights []int, rng Source) (int, error) {
	if len(weights) == 0 {
		return 0, &EmptyPoolError{}
	}

	total := 0
	for i, w := range weights {
		if w <= 0 {
			return 0, fmt.Errorf("weight at index %d is %d, must be positive", i, w)
		}
		if w > math.MaxInt-total {
			return 0, fmt.Errorf("weight at index %d: %w", i, ErrWeightOverflow)
		}
		total += w
	}

	roll := rng.Intn(total)
	cumulative := 0
	for i, w := range weights {
		cumulative += w
		if roll < cumulative {
			return i, nil
		}
	}
	// unreachable with positive weights
	return len(weights) - 1, nil
}

// Sample picks one item from the pool. name is only used for error messages.
func Sample[T any](name string, pool []Weighted[T], rng Source) (T, error) {
	var zero T
	if len(pool) == 0 {
		return zero, &EmptyPoolError{Pool: name}
	}

	weights := make([]int, len(pool))
	for i, entry := range pool {
		weights[i] = entry.Weight
	}

	idx, err := SampleIndex(weights, rng)
	if err != nil {
		return zero, fmt.Errorf("%s pool: %w", name, err)
	}
	return pool[idx].Item, nil
}

// RNG wraps math/rand.Rand with deterministic position tracking.
// Position increments with every draw, so a run can be explained as
// (seed, position) and replayed.
type RNG struct {
	src *rand.Rand
	pos int64
}

// NewRNG creates a new deterministic RNG from a seed.
func NewRNG(seed int64) *RNG {
	return &RNG{src: rand.New(rand.NewSource(seed))}
}

// Intn returns a random integer in [0, n).
func (r *RNG) Intn(n int) int {
	r.pos++
	return r.src.Intn(n)
}

// Between returns a random integer in [lo, hi].
func (r *RNG) Between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.Intn(hi-lo+1)
}

// Position returns the number of draws made since creation.
func (r *RNG) Position() int64 {
	return r.pos
}
