// Package sampler implements the ReferenceSampler component: batches of
// reference-point indices drawn either uniformly without replacement or by
// walking a precomputed permutation.
package sampler

import "math/rand"

// Sampler draws batches of distinct indices in 0..n-1.
type Sampler interface {
	// NextBatch returns size distinct indices in 0..n-1.
	NextBatch(size int) []int
	// Reset rewinds any internal cursor state. The engine calls Reset at
	// the start of each BUILD medoid step and each SWAP outer iteration.
	Reset()
}

// Uniform draws each batch uniformly at random without replacement.
type Uniform struct {
	n   int
	rng *rand.Rand
}

// NewUniform creates a Uniform sampler over 0..n-1 using rng. If rng is
// nil, a package-default source is used.
func NewUniform(n int, rng *rand.Rand) *Uniform {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Uniform{n: n, rng: rng}
}

// NextBatch draws size distinct indices via a partial Fisher-Yates shuffle:
// only the first size positions of a fresh n-length index pool are
// shuffled. A size larger than n is reduced to n.
func (u *Uniform) NextBatch(size int) []int {
	if size > u.n {
		size = u.n
	}
	pool := make([]int, u.n)
	for i := range pool {
		pool[i] = i
	}
	for i := 0; i < size; i++ {
		j := i + u.rng.Intn(u.n-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:size]
}

// Reset is a no-op for Uniform: each call is independent.
func (u *Uniform) Reset() {}

// Permutation walks a precomputed permutation of 0..n-1 in fixed-size
// windows, advancing a cursor by size on every call.
//
// Known quirk, preserved for parity with the reference implementation: on
// wraparound the cursor resets to 0 without first exhausting the tail of
// the current window. If p+size-1 >= n, the remaining n-p elements of the
// permutation are dropped for that call rather than being combined with a
// wrapped-around read from the front. This means over many calls some
// permutation entries near the tail are sampled less often than others;
// this is retained intentionally rather than "fixed", for reproducibility
// with the reference.
type Permutation struct {
	perm []int
	p    int
}

// NewPermutation wraps a caller-supplied permutation of 0..n-1.
func NewPermutation(perm []int) *Permutation {
	return &Permutation{perm: perm}
}

// NextBatch returns perm[p : p+size], resetting p to 0 first if the window
// would run past the end of the permutation.
func (s *Permutation) NextBatch(size int) []int {
	n := len(s.perm)
	if s.p+size-1 >= n {
		s.p = 0
	}
	batch := s.perm[s.p : s.p+size]
	s.p += size
	return batch
}

// Reset rewinds the cursor to the start of the permutation.
func (s *Permutation) Reset() { s.p = 0 }

// GeneratePermutation returns a random permutation of 0..n-1, used once per
// fit to seed a Permutation sampler and to choose DistanceCache pivots.
func GeneratePermutation(n int, rng *rand.Rand) []int {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return rng.Perm(n)
}
