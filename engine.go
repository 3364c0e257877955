package kmedoids

import (
	"context"
	"math/rand"

	"github.com/bnaras/kmedoids/internal/build"
	"github.com/bnaras/kmedoids/internal/cache"
	"github.com/bnaras/kmedoids/internal/sampler"
	"github.com/bnaras/kmedoids/internal/swap"
	"gonum.org/v1/gonum/mat"
)

// Engine runs one k-medoids fit. Options are frozen at New; the medoid,
// label, and step outputs are populated by Fit and read back through the
// getters below.
type Engine struct {
	cfg config

	dataset      *Dataset
	medoidsBuild []int
	medoidsFinal []int
	labels       []int
	steps        int
}

// New constructs an Engine from options. WithNumMedoids is required; every
// other option has a default matching the reference implementation's
// defaults. Validation errors are returned immediately, wrapping
// ErrInvalidConfig; no Engine is returned on error.
func New(opts ...Option) (*Engine, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if cfg.numMedoids <= 0 {
		return nil, invalidConfig("n_medoids is required (use WithNumMedoids)")
	}
	return &Engine{cfg: cfg}, nil
}

// Fit clusters raw (shape n x d, one row per point) into cfg.numMedoids
// medoids. It orchestrates, in order: dataset transposition, the BUILD
// phase, and the SWAP phase, both selected by WithAlgorithm. BanditPAM
// seeds BUILD with the bandit-accelerated ConfidenceBoundLoop; Naive and
// FastPAM1 seed it with the deterministic exhaustive greedy sweep, since
// neither uses bandit sampling anywhere in its algorithm.
func (e *Engine) Fit(ctx context.Context, raw *mat.Dense) error {
	if e.cfg.pool != nil {
		if err := e.cfg.pool.Acquire(ctx); err != nil {
			return err
		}
		defer e.cfg.pool.Release()
	}

	ds, err := NewDataset(raw)
	if err != nil {
		return err
	}
	n, k := ds.N(), e.cfg.numMedoids
	if k > n {
		return &ErrDimensionMismatch{N: n, D: ds.D(), K: k, Reason: "n_medoids exceeds number of points"}
	}
	e.dataset = ds

	rng := rand.New(rand.NewSource(e.cfg.seed))
	perm := sampler.GeneratePermutation(n, rng)

	var distCache *cache.Cache
	if e.cfg.useCache {
		distCache = cache.New(n, perm, e.cfg.cacheMultiplier)
	}
	oracle := &cache.Oracle{Data: ds, Metric: e.cfg.metric, Cache: distCache, Metrics: e.cfg.metrics}
	if err := oracle.PrecomputePivots(ctx); err != nil {
		return err
	}

	newSampler := func() swapSampler {
		if e.cfg.usePerm {
			return sampler.NewPermutation(append([]int(nil), perm...))
		}
		return sampler.NewUniform(n, rand.New(rand.NewSource(e.cfg.seed)))
	}

	buildCfg := build.Config{
		N: n, K: k, BatchSize: e.cfg.batchSize,
		BuildConfidence: e.cfg.buildConfidence, PrecisionFloor: e.cfg.precisionFloor,
		Logger: e.cfg.logger,
	}
	var buildRes build.Result
	switch e.cfg.algorithm {
	case Naive, FastPAM1:
		buildRes, err = build.Greedy(ctx, oracle, e.cfg.metrics, buildCfg)
	default:
		buildRes, err = build.Run(ctx, oracle, newSampler(), e.cfg.metrics, buildCfg)
	}
	if err != nil {
		return err
	}
	e.medoidsBuild = buildRes.Medoids

	swapCfg := swap.Config{
		N: n, K: k, BatchSize: e.cfg.batchSize,
		SwapConfidence: e.cfg.swapConfidence, PrecisionFloor: e.cfg.precisionFloor,
		MaxIter: e.cfg.maxIter, Logger: e.cfg.logger,
	}

	var swapRes swap.Result
	switch e.cfg.algorithm {
	case Naive:
		swapRes, err = swap.Naive(ctx, oracle, e.cfg.metrics, swapCfg, buildRes.Medoids)
	case FastPAM1:
		swapRes, err = swap.FastPAM1(ctx, oracle, e.cfg.metrics, swapCfg, buildRes.Medoids)
	default:
		swapRes, err = swap.BanditPAM(ctx, oracle, newSampler(), e.cfg.metrics, swapCfg, buildRes.Medoids)
	}
	if err != nil {
		return err
	}

	e.medoidsFinal = swapRes.Medoids
	e.labels = swapRes.Labels
	e.steps = swapRes.Steps

	var finalLoss float64
	for i, medoidSlot := range e.labels {
		finalLoss += oracle.CachedLoss(e.medoidsFinal[medoidSlot], i)
	}
	e.cfg.logger.LogFitComplete(ctx, k, n, e.steps, finalLoss)
	return nil
}

// swapSampler is the intersection of build.Sampler and swap.Sampler, which
// are structurally identical; it lets Fit build one sampler value per
// invocation and hand it to whichever phase needs it.
type swapSampler interface {
	NextBatch(size int) []int
	Reset()
}

// MedoidsBuild returns the medoid indices chosen by the BUILD phase, before
// any SWAP refinement. Valid only after a successful Fit.
func (e *Engine) MedoidsBuild() []int { return e.medoidsBuild }

// MedoidsFinal returns the medoid indices after SWAP refinement. Valid only
// after a successful Fit.
func (e *Engine) MedoidsFinal() []int { return e.medoidsFinal }

// Labels returns, for each input point, the slot index into MedoidsFinal it
// is assigned to. Valid only after a successful Fit.
func (e *Engine) Labels() []int { return e.labels }

// Steps returns the number of accepted SWAP iterations. Valid only after a
// successful Fit.
func (e *Engine) Steps() int { return e.steps }
