package kmedoids

import (
	"github.com/kelseyhightower/envconfig"
)

// envConfig mirrors config's tunables as environment-variable overrides,
// following the struct-tag convention used elsewhere in the ecosystem for
// process-config loading.
type envConfig struct {
	NumMedoids      int     `envconfig:"N_MEDOIDS" default:"0"`
	Algorithm       string  `envconfig:"ALGORITHM" default:"BanditPAM"`
	Loss            string  `envconfig:"LOSS" default:"L2"`
	MaxIter         int     `envconfig:"MAX_ITER" default:"1000"`
	BatchSize       int     `envconfig:"BATCH_SIZE" default:"100"`
	BuildConfidence float64 `envconfig:"BUILD_CONFIDENCE" default:"1000"`
	SwapConfidence  float64 `envconfig:"SWAP_CONFIDENCE" default:"1000"`
	UseCache        bool    `envconfig:"USE_CACHE" default:"true"`
	UsePerm         bool    `envconfig:"USE_PERM" default:"true"`
	CacheMultiplier float64 `envconfig:"CACHE_MULTIPLIER" default:"1000"`
	PrecisionFloor  float64 `envconfig:"PRECISION_FLOOR" default:"0.5"`
	Seed            int64   `envconfig:"SEED" default:"1"`
}

// LoadOptionsFromEnv reads environment variables under prefix (e.g.
// "KMEDOIDS_N_MEDOIDS" for prefix "KMEDOIDS") and returns the equivalent
// Option slice. N_MEDOIDS defaults to 0, which New rejects, so callers
// that rely on the environment for k must set it explicitly.
func LoadOptionsFromEnv(prefix string) ([]Option, error) {
	var ec envConfig
	if err := envconfig.Process(prefix, &ec); err != nil {
		return nil, invalidConfig("loading env config: %s", err)
	}

	opts := []Option{
		WithAlgorithm(ec.Algorithm),
		WithLoss(ec.Loss),
		WithMaxIter(ec.MaxIter),
		WithBatchSize(ec.BatchSize),
		WithBuildConfidence(ec.BuildConfidence),
		WithSwapConfidence(ec.SwapConfidence),
		WithCache(ec.UseCache),
		WithPermutation(ec.UsePerm),
		WithCacheMultiplier(ec.CacheMultiplier),
		WithPrecisionFloor(ec.PrecisionFloor),
		WithSeed(ec.Seed),
	}
	if ec.NumMedoids > 0 {
		opts = append(opts, WithNumMedoids(ec.NumMedoids))
	}
	return opts, nil
}
