package menu

import "math/rand/v2"

// Rand is the random source used for shuffling. *rand.Rand satisfies it, so tests
// can pass a seeded PCG source for reproducible output.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// DefaultRand draws from the process-wide generator and is safe for concurrent use.
var DefaultRand Rand = globalRand{}

// Shuffle returns a uniformly permuted copy of items; the input is left untouched.
func Shuffle[T any](r Rand, items []T) []T {
	if r == nil {
		r = DefaultRand
	}
	out := make([]T, len(items))
	copy(out, items)
	for i := len(out) - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// PickRandom returns up to n distinct elements of items in random order.
// It never pads: asking for more than len(items) yields all of them.
func PickRandom[T any](r Rand, items []T, n int) []T {
	if len(items) == 0 || n <= 0 {
		return []T{}
	}
	shuffled := Shuffle(r, items)
	return shuffled[:min(n, len(items))]
}
