package kmedoids

import "github.com/prometheus/client_golang/prometheus"

// PrometheusMetricsCollector implements MetricsCollector using a set of
// prometheus.Counter instances that NewPrometheusMetricsCollector registers
// with a caller-supplied prometheus.Registerer. Using an explicit
// registerer (rather than promauto's default global registry, as the
// reference examples do for long-lived server processes) lets a process
// that constructs more than one Engine give each collector its own
// registry and so avoid a duplicate-registration panic, which is a normal
// usage pattern for a library rather than a singleton server.
type PrometheusMetricsCollector struct {
	distanceComputations prometheus.Counter
	armsEliminated       prometheus.Counter
	exactPromotions      prometheus.Counter
	buildSteps           prometheus.Counter
	swapSteps            prometheus.Counter
}

// NewPrometheusMetricsCollector creates the metric instances and registers
// them with reg. namespace is used as the metric name prefix, e.g.
// "kmedoids" produces "kmedoids_distance_computations_total".
func NewPrometheusMetricsCollector(reg prometheus.Registerer, namespace string) *PrometheusMetricsCollector {
	c := &PrometheusMetricsCollector{
		distanceComputations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "distance_computations_total",
			Help:      "Total number of dissimilarity oracle evaluations.",
		}),
		armsEliminated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "arms_eliminated_total",
			Help:      "Total number of bandit arms eliminated from candidacy.",
		}),
		exactPromotions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exact_promotions_total",
			Help:      "Total number of arms resolved by exact evaluation.",
		}),
		buildSteps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "build_steps_total",
			Help:      "Total number of BUILD medoid slots filled.",
		}),
		swapSteps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swap_steps_total",
			Help:      "Total number of accepted SWAP operations.",
		}),
	}
	reg.MustRegister(
		c.distanceComputations,
		c.armsEliminated,
		c.exactPromotions,
		c.buildSteps,
		c.swapSteps,
	)
	return c
}

func (c *PrometheusMetricsCollector) RecordDistanceComputation() { c.distanceComputations.Inc() }
func (c *PrometheusMetricsCollector) RecordArmsEliminated(count int) {
	c.armsEliminated.Add(float64(count))
}
func (c *PrometheusMetricsCollector) RecordExactPromotion() { c.exactPromotions.Inc() }
func (c *PrometheusMetricsCollector) RecordBuildStep()      { c.buildSteps.Inc() }
func (c *PrometheusMetricsCollector) RecordSwapStep()       { c.swapSteps.Inc() }
