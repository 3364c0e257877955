package kmedoids

import "sync/atomic"

// MetricsCollector collects operational metrics from a Fit call. Implement
// this interface to integrate with a monitoring system; see
// NewPrometheusMetricsCollector for a ready-made Prometheus integration.
type MetricsCollector interface {
	// RecordDistanceComputation is called once per dissimilarity oracle
	// evaluation (cache hits included, so it reflects logical work rather
	// than raw distance-function calls).
	RecordDistanceComputation()

	// RecordArmsEliminated is called once per ConfidenceBoundLoop run (one
	// per BUILD slot or BanditPAM SWAP iteration) with the total number of
	// arms that run dropped from candidacy.
	RecordArmsEliminated(count int)

	// RecordExactPromotion is called once per arm resolved by exact
	// evaluation rather than by batch sampling.
	RecordExactPromotion()

	// RecordBuildStep is called once per BUILD medoid slot filled.
	RecordBuildStep()

	// RecordSwapStep is called once per accepted SWAP.
	RecordSwapStep()
}

// NoopMetricsCollector discards all metrics. It is the default.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordDistanceComputation() {}
func (NoopMetricsCollector) RecordArmsEliminated(int)   {}
func (NoopMetricsCollector) RecordExactPromotion()      {}
func (NoopMetricsCollector) RecordBuildStep()           {}
func (NoopMetricsCollector) RecordSwapStep()            {}

// BasicMetricsCollector accumulates counters in memory using atomics, for
// debugging without wiring an external monitoring system.
type BasicMetricsCollector struct {
	DistanceComputations atomic.Int64
	ArmsEliminated       atomic.Int64
	ExactPromotions      atomic.Int64
	BuildSteps           atomic.Int64
	SwapSteps            atomic.Int64
}

func (b *BasicMetricsCollector) RecordDistanceComputation() { b.DistanceComputations.Add(1) }
func (b *BasicMetricsCollector) RecordArmsEliminated(count int) {
	b.ArmsEliminated.Add(int64(count))
}
func (b *BasicMetricsCollector) RecordExactPromotion() { b.ExactPromotions.Add(1) }
func (b *BasicMetricsCollector) RecordBuildStep()      { b.BuildSteps.Add(1) }
func (b *BasicMetricsCollector) RecordSwapStep()       { b.SwapSteps.Add(1) }
