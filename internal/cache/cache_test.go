package cache_test

import (
	"context"
	"testing"

	"github.com/bnaras/kmedoids/internal/cache"
	"github.com/bnaras/kmedoids/metric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPivotCount(t *testing.T) {
	// m = min(n, ceil(1000 * log10(n)))
	assert.Equal(t, 0, cache.PivotCount(0, 1000))
	m := cache.PivotCount(100, 1000)
	assert.Equal(t, 100, m) // ceil(1000*2) = 2000, capped at n=100
	m = cache.PivotCount(1_000_000, 1)
	assert.Equal(t, 6, m) // ceil(1*log10(1e6)) = 6
}

func TestCacheStoreLookupOnlyPivots(t *testing.T) {
	perm := []int{2, 0, 1, 3, 4} // pivots are perm[:m]
	c := cache.New(5, perm, 1)   // m = ceil(log10(5)) = 1 -> pivot index 2

	require.True(t, c.IsPivot(2))
	require.False(t, c.IsPivot(0))

	_, ok := c.Lookup(2, 3)
	assert.False(t, ok, "unfilled slot should miss")

	c.Store(2, 3, 4.5)
	v, ok := c.Lookup(2, 3)
	require.True(t, ok)
	assert.Equal(t, 4.5, v)

	// storing against a non-pivot index is a no-op
	c.Store(0, 3, 9.0)
	_, ok = c.Lookup(0, 3)
	assert.False(t, ok)
}

type fakeSource [][]float64

func (f fakeSource) Column(idx int) []float64 { return f[idx] }
func (f fakeSource) N() int                   { return len(f) }

func TestOracleCachedLoss(t *testing.T) {
	data := fakeSource{{0, 0}, {3, 4}, {6, 8}}
	perm := []int{1, 0, 2} // m = ceil(log10(3)) = 1 -> pivot is index 1
	c := cache.New(3, perm, 1)

	o := &cache.Oracle{Data: data, Metric: metric.L2{}, Cache: c}

	d1 := o.CachedLoss(1, 0)
	assert.InDelta(t, 5.0, d1, 1e-9)

	v, ok := c.Lookup(1, 0)
	require.True(t, ok)
	assert.InDelta(t, 5.0, v, 1e-9)

	// second call should hit the cache and return the same value
	d2 := o.CachedLoss(1, 0)
	assert.Equal(t, d1, d2)
}

func TestOracleWithoutCache(t *testing.T) {
	data := fakeSource{{0, 0}, {3, 4}}
	o := &cache.Oracle{Data: data, Metric: metric.L2{}}
	assert.InDelta(t, 5.0, o.CachedLoss(0, 1), 1e-9)
}

type countingMetrics struct{ n int }

func (c *countingMetrics) RecordDistanceComputation() { c.n++ }

func TestOracleBatchLoss(t *testing.T) {
	data := fakeSource{{0, 0}, {3, 4}, {6, 8}}
	perm := []int{1, 0, 2}
	c := cache.New(3, perm, 1)
	metrics := &countingMetrics{}
	o := &cache.Oracle{Data: data, Metric: metric.L2{}, Cache: c, Metrics: metrics}

	dists := o.BatchLoss(1, []int{0, 2})
	require.Len(t, dists, 2)
	assert.InDelta(t, 5.0, dists[0], 1e-9)
	assert.InDelta(t, 5.0, dists[1], 1e-9)
	assert.Equal(t, 2, metrics.n)

	v, ok := c.Lookup(1, 0)
	require.True(t, ok)
	assert.InDelta(t, 5.0, v, 1e-9)

	// second call should serve entirely from cache; still counted.
	dists2 := o.BatchLoss(1, []int{0, 2})
	assert.Equal(t, dists, dists2)
	assert.Equal(t, 4, metrics.n)
}

func TestOraclePrecomputePivots(t *testing.T) {
	data := fakeSource{{0, 0}, {3, 4}, {6, 8}}
	perm := []int{1, 0, 2}
	c := cache.New(3, perm, 1)
	o := &cache.Oracle{Data: data, Metric: metric.L2{}, Cache: c}

	require.NoError(t, o.PrecomputePivots(context.Background()))

	for j := 0; j < 3; j++ {
		v, ok := c.Lookup(1, j)
		require.True(t, ok, "pivot cell (1,%d) should be precomputed", j)
		want := metric.L2{}.Dist(data[1], data[j])
		assert.InDelta(t, want, v, 1e-9)
	}
}
