// Package cache implements the optional pivot DistanceCache: a flat array
// of size n*m caching distances from every point to a small set of m
// "pivot" columns chosen from a random permutation prefix.
package cache

import (
	"math"
	"sync/atomic"
)

// slot marks an uncomputed cache cell. -1 is not representable as a
// distinct atomic sentinel alongside real distances without an extra bit,
// so unlike the reference's raw "-1" float sentinel, this cache stores a
// present/absent flag alongside the value; the flag itself is the atomic
// word that makes a racing read/write benign.
type slot struct {
	present atomic.Bool
	bits    atomic.Uint64 // math.Float64bits of the cached value
}

// Cache is the pivot distance cache described by the DissimilarityOracle's
// caching contract. It is owned by one fit call and freed at fit exit
// (i.e. simply dropped by the garbage collector once the Engine returns).
//
// Cell writes are idempotent: two goroutines racing to fill the same
// (i, pivot) slot will compute and store the same value, so no lock is
// required. Reads/writes of the 64-bit bit pattern go through
// sync/atomic, which is the portable equivalent of the reference's
// assumption that scalar float stores are atomic on the target platform.
type Cache struct {
	n       int
	m       int
	slots   []slot   // len n*m
	reindex []int    // len n; reindex[j] = pivot column index in 0..m-1, or -1 if j is not a pivot
	pivots  []int    // len m; pivots[c] = original dataset index of pivot c
}

// PivotCount returns m = min(n, ceil(cacheMultiplier * log10(n))), the
// number of pivot columns selected for a dataset of size n.
func PivotCount(n int, cacheMultiplier float64) int {
	if n <= 0 {
		return 0
	}
	m := int(math.Ceil(cacheMultiplier * math.Log10(float64(n))))
	if m < 0 {
		m = 0
	}
	if m > n {
		m = n
	}
	return m
}

// New builds a Cache for n points, taking the first m entries of perm as
// pivot columns (perm is expected to be a permutation of 0..n-1, typically
// the same one used to seed the ReferenceSampler's permutation walk).
func New(n int, perm []int, cacheMultiplier float64) *Cache {
	m := PivotCount(n, cacheMultiplier)
	c := &Cache{
		n:       n,
		m:       m,
		slots:   make([]slot, n*m),
		reindex: make([]int, n),
		pivots:  make([]int, m),
	}
	for j := range c.reindex {
		c.reindex[j] = -1
	}
	for pivotIdx := 0; pivotIdx < m; pivotIdx++ {
		orig := perm[pivotIdx]
		c.pivots[pivotIdx] = orig
		c.reindex[orig] = pivotIdx
	}
	return c
}

// Lookup consults the cache for (i, j): j is the "row" (any dataset index)
// and i is the candidate that must be a pivot for the cache to apply. It
// returns (value, true) on a hit, or (0, false) if i is not a pivot column
// or the slot has not been filled yet.
//
// Axis convention (documented per the reference's ambiguous n*m indexing,
// §9 design notes): the cache is addressed [row=j][col=pivotIdx(i)], with
// the pivot index varying fastest. i (the value being looked up as a pivot)
// is reindexed through reindex, while j indexes the full n-length axis
// directly.
func (c *Cache) Lookup(i, j int) (float64, bool) {
	if c == nil || c.m == 0 {
		return 0, false
	}
	pivotIdx := c.reindex[i]
	if pivotIdx < 0 {
		return 0, false
	}
	s := &c.slots[j*c.m+pivotIdx]
	if !s.present.Load() {
		return 0, false
	}
	return math.Float64frombits(s.bits.Load()), true
}

// Store fills the (i, j) slot if i is a pivot column. Storing a value for a
// non-pivot i is a silent no-op, matching the reference's "only pivot
// columns are cached" contract.
func (c *Cache) Store(i, j int, value float64) {
	if c == nil || c.m == 0 {
		return
	}
	pivotIdx := c.reindex[i]
	if pivotIdx < 0 {
		return
	}
	s := &c.slots[j*c.m+pivotIdx]
	s.bits.Store(math.Float64bits(value))
	s.present.Store(true)
}

// IsPivot reports whether idx is one of the cache's chosen pivot columns.
func (c *Cache) IsPivot(idx int) bool {
	if c == nil {
		return false
	}
	return c.reindex[idx] >= 0
}

// Pivots returns the dataset indices chosen as pivot columns.
func (c *Cache) Pivots() []int {
	if c == nil {
		return nil
	}
	return c.pivots
}
