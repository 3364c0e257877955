package kmedoids

import (
	"github.com/bnaras/kmedoids/internal/parallel"
	"github.com/bnaras/kmedoids/metric"
)

// Algorithm selects which BUILD and SWAP implementations Fit uses. BanditPAM
// seeds with the bandit-accelerated BUILD; Naive and FastPAM1 seed with the
// exhaustive greedy BUILD. The swap search differs for all three (see
// DESIGN.md for the resolved Open Question this decision addresses).
type Algorithm int

const (
	BanditPAM Algorithm = iota
	Naive
	FastPAM1
)

func (a Algorithm) String() string {
	switch a {
	case BanditPAM:
		return "BanditPAM"
	case Naive:
		return "naive"
	case FastPAM1:
		return "FastPAM1"
	default:
		return "unknown"
	}
}

// ParseAlgorithm resolves a configuration string to an Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch name {
	case "BanditPAM":
		return BanditPAM, nil
	case "naive":
		return Naive, nil
	case "FastPAM1":
		return FastPAM1, nil
	default:
		return 0, invalidConfig("unknown algorithm %q", name)
	}
}

// config holds every construction option, borrowed immutably by all
// phases once New returns; only the Engine's medoid/label/step outputs
// mutate after construction.
type config struct {
	numMedoids      int
	algorithm       Algorithm
	metric          metric.Metric
	maxIter         int
	batchSize       int
	buildConfidence float64
	swapConfidence  float64
	useCache        bool
	usePerm         bool
	cacheMultiplier float64
	precisionFloor  float64
	seed            int64
	logger          *Logger
	metrics         MetricsCollector
	pool            *parallel.Pool
}

func defaultConfig() config {
	return config{
		algorithm:       BanditPAM,
		metric:          metric.L2{},
		maxIter:         1000,
		batchSize:       100,
		buildConfidence: 1000,
		swapConfidence:  1000,
		useCache:        true,
		usePerm:         true,
		cacheMultiplier: 1000,
		precisionFloor:  0.5,
		seed:            1,
		logger:          NoopLogger(),
		metrics:         NoopMetricsCollector{},
	}
}

// Option configures an Engine at construction time. Unlike search-time
// parameters, algorithm and loss selection are validated eagerly: an
// invalid name returns ErrInvalidConfig from New before an Engine exists,
// per spec's "raised synchronously at set-time; fit never begins".
type Option func(*config) error

// WithNumMedoids sets k, the number of medoids to find. Required.
func WithNumMedoids(k int) Option {
	return func(c *config) error {
		if k <= 0 {
			return invalidConfig("n_medoids must be positive, got %d", k)
		}
		c.numMedoids = k
		return nil
	}
}

// WithAlgorithm selects {BanditPAM, naive, FastPAM1}.
func WithAlgorithm(name string) Option {
	return func(c *config) error {
		a, err := ParseAlgorithm(name)
		if err != nil {
			return err
		}
		c.algorithm = a
		return nil
	}
}

// WithLoss selects the dissimilarity metric {L1, L2, cos, manhattan}.
func WithLoss(name string) Option {
	return func(c *config) error {
		m, err := metric.Parse(name)
		if err != nil {
			return invalidConfig("%s", err)
		}
		c.metric = m
		return nil
	}
}

// WithMaxIter bounds the SWAP outer iteration count.
func WithMaxIter(n int) Option {
	return func(c *config) error {
		if n <= 0 {
			return invalidConfig("max_iter must be positive, got %d", n)
		}
		c.maxIter = n
		return nil
	}
}

// WithBatchSize sets the bandit reference batch size.
func WithBatchSize(n int) Option {
	return func(c *config) error {
		if n <= 0 {
			return invalidConfig("batch_size must be positive, got %d", n)
		}
		c.batchSize = n
		return nil
	}
}

// WithBuildConfidence sets the BUILD confidence reciprocal.
func WithBuildConfidence(v float64) Option {
	return func(c *config) error {
		if v <= 0 {
			return invalidConfig("build_confidence must be positive, got %v", v)
		}
		c.buildConfidence = v
		return nil
	}
}

// WithSwapConfidence sets the SWAP confidence reciprocal.
func WithSwapConfidence(v float64) Option {
	return func(c *config) error {
		if v <= 0 {
			return invalidConfig("swap_confidence must be positive, got %v", v)
		}
		c.swapConfidence = v
		return nil
	}
}

// WithCache enables or disables the pivot distance cache.
func WithCache(enabled bool) Option {
	return func(c *config) error { c.useCache = enabled; return nil }
}

// WithPermutation enables or disables the deterministic permutation-walk
// sampler; when disabled, the uniform-without-replacement sampler is used.
func WithPermutation(enabled bool) Option {
	return func(c *config) error { c.usePerm = enabled; return nil }
}

// WithCacheMultiplier sets the multiplier on log10(n) for pivot count.
func WithCacheMultiplier(v float64) Option {
	return func(c *config) error {
		if v <= 0 {
			return invalidConfig("cache_multiplier must be positive, got %v", v)
		}
		c.cacheMultiplier = v
		return nil
	}
}

// WithPrecisionFloor sets the candidate-count termination threshold.
func WithPrecisionFloor(v float64) Option {
	return func(c *config) error {
		if v <= 0 {
			return invalidConfig("precision_floor must be positive, got %v", v)
		}
		c.precisionFloor = v
		return nil
	}
}

// WithSeed fixes the random source used for the permutation and the
// uniform sampler, so that Fit with use_perm=true is reproducible per
// spec's round-trip property.
func WithSeed(seed int64) Option {
	return func(c *config) error { c.seed = seed; return nil }
}

// WithLogger sets the structured log sink. Re-expresses spec's
// verbosity/log_filename option pair as a single *Logger, per §9's
// "global option state" design note.
func WithLogger(l *Logger) Option {
	return func(c *config) error {
		if l == nil {
			l = NoopLogger()
		}
		c.logger = l
		return nil
	}
}

// WithMetricsCollector sets the metrics sink.
func WithMetricsCollector(m MetricsCollector) Option {
	return func(c *config) error {
		if m == nil {
			m = NoopMetricsCollector{}
		}
		c.metrics = m
		return nil
	}
}

// WithConcurrencyPool bounds how many Engines sharing pool may run Fit at
// once: Fit acquires one slot for the duration of the whole call and
// releases it on return. Share one *parallel.Pool across multiple Engine
// instances to cap the total goroutine fan-out they produce in the same
// process; leave unset (the default) for no cross-Engine bound.
func WithConcurrencyPool(pool *parallel.Pool) Option {
	return func(c *config) error {
		c.pool = pool
		return nil
	}
}
