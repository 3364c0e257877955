package cache

import (
	"context"

	"github.com/bnaras/kmedoids/metric"
)

// ColumnSource supplies column vectors by dataset index, e.g.
// *kmedoids.Dataset. It exists so this package does not import the root
// package (which imports cache), avoiding an import cycle.
type ColumnSource interface {
	Column(idx int) []float64
	N() int
}

// Metrics receives distance-computation counts. It is a narrow local copy
// of the root package's MetricsCollector.RecordDistanceComputation method,
// again to avoid an import cycle; any collector implementing that method
// satisfies this interface for free.
type Metrics interface {
	RecordDistanceComputation()
}

// Oracle is the DissimilarityOracle: a Metric optionally backed by a pivot
// Cache. CachedLoss implements the caching contract from spec §4.1 -
// consult the cache only when i is a pivot column; on a miss, compute,
// store, and return.
type Oracle struct {
	Data    ColumnSource
	Metric  metric.Metric
	Cache   *Cache  // nil disables caching
	Metrics Metrics // nil disables instrumentation
}

// CachedLoss returns dist(i, j), consulting and populating the pivot cache
// when enabled and i is a pivot column.
func (o *Oracle) CachedLoss(i, j int) float64 {
	if o.Metrics != nil {
		o.Metrics.RecordDistanceComputation()
	}
	if o.Cache != nil {
		if v, ok := o.Cache.Lookup(i, j); ok {
			return v
		}
	}
	d := o.Metric.Dist(o.Data.Column(i), o.Data.Column(j))
	if o.Cache != nil {
		o.Cache.Store(i, j, d)
	}
	return d
}

// BatchLoss returns dist(i, refs[k]) for every k, serving cache hits
// directly and resolving every miss in one metric.Batch call instead of a
// per-point loop. It backs BUILD/SWAP sigma estimation, which always needs
// one candidate's distance to a whole reference batch at once.
func (o *Oracle) BatchLoss(i int, refs []int) []float64 {
	out := make([]float64, len(refs))
	missPos := make([]int, 0, len(refs))
	missRefs := make([]int, 0, len(refs))

	for k, j := range refs {
		if o.Metrics != nil {
			o.Metrics.RecordDistanceComputation()
		}
		if o.Cache != nil {
			if v, ok := o.Cache.Lookup(i, j); ok {
				out[k] = v
				continue
			}
		}
		missPos = append(missPos, k)
		missRefs = append(missRefs, j)
	}
	if len(missRefs) == 0 {
		return out
	}

	vectors := make([][]float64, len(missRefs))
	for k, j := range missRefs {
		vectors[k] = o.Data.Column(j)
	}
	dists := metric.Batch(context.Background(), o.Metric, o.Data.Column(i), vectors)
	for k, pos := range missPos {
		out[pos] = dists[k]
		if o.Cache != nil {
			o.Cache.Store(i, missRefs[k], dists[k])
		}
	}
	return out
}

// PrecomputePivots eagerly fills every (pivot, j) cell of the cache using
// metric.Batch, one batched call per pivot column instead of the lazy
// fill-on-first-lookup path CachedLoss otherwise takes. A no-op if caching
// is disabled.
func (o *Oracle) PrecomputePivots(ctx context.Context) error {
	if o.Cache == nil {
		return nil
	}
	n := o.Data.N()
	columns := make([][]float64, n)
	for j := 0; j < n; j++ {
		columns[j] = o.Data.Column(j)
	}

	for _, p := range o.Cache.Pivots() {
		if err := ctx.Err(); err != nil {
			return err
		}
		dists := metric.Batch(ctx, o.Metric, o.Data.Column(p), columns)
		for j, d := range dists {
			o.Cache.Store(p, j, d)
			if o.Metrics != nil {
				o.Metrics.RecordDistanceComputation()
			}
		}
	}
	return nil
}
