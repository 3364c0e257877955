// Package build implements the BUILD phase: seeding k medoids one at a
// time. BanditPAM seeds each slot by running the shared ConfidenceBoundLoop
// over all n candidate arms; Naive and FastPAM1 seed with the deterministic
// exhaustive greedy sweep instead, since neither uses bandit sampling
// anywhere in its algorithm, not just its swap.
package build

import (
	"context"
	"math"

	"github.com/bnaras/kmedoids/internal/bandit"
	"github.com/bnaras/kmedoids/internal/parallel"
	"gonum.org/v1/gonum/stat"
)

// Oracle is the dissimilarity oracle contract this package depends on.
type Oracle interface {
	CachedLoss(i, j int) float64
	// BatchLoss returns CachedLoss(i, refs[k]) for every k, letting the
	// oracle resolve cache misses in one batched distance call instead of
	// a per-point loop.
	BatchLoss(i int, refs []int) []float64
}

// Sampler is the reference sampler contract this package depends on.
type Sampler interface {
	NextBatch(size int) []int
	Reset()
}

// Metrics receives coarse-grained instrumentation callbacks. All methods
// are optional to implement fully; pass a no-op implementation if unused.
type Metrics interface {
	RecordBuildStep()
	RecordExactPromotion()
	RecordArmsEliminated(count int)
}

// Logger receives per-slot and numeric-underflow notifications from BUILD.
// It embeds bandit.Logger so bandit.Run's underflow detection can log
// through the same value passed in via Config.
type Logger interface {
	bandit.Logger
	// LogBuildStep is called once per medoid slot filled, both by the
	// bandit-driven Run and the exhaustive Greedy path.
	LogBuildStep(ctx context.Context, slot, medoid, candidatesRemaining int)
}

// Config bundles BUILD's tunables.
type Config struct {
	N               int
	K               int
	BatchSize       int
	BuildConfidence float64
	PrecisionFloor  float64
	Logger          Logger // optional; nil disables logging
}

// Result is BUILD's output.
type Result struct {
	Medoids      []int
	BestDistance []float64 // b[i], length N
}

// Run seeds K medoids by repeated ConfidenceBoundLoop runs, one per slot.
// Before the first slot, sigma/reward use "absolute" mode (raw distance);
// from the second slot on they use "reward" mode
// (min(dist(i,j), b[j]) - b[j]).
func Run(ctx context.Context, oracle Oracle, samp Sampler, metrics Metrics, cfg Config) (Result, error) {
	n := cfg.N
	bestDist := make([]float64, n)
	for i := range bestDist {
		bestDist[i] = math.Inf(1)
	}
	medoids := make([]int, 0, cfg.K)
	absolute := true
	batchSize := cfg.BatchSize
	if batchSize > n {
		batchSize = n
	}

	for step := 0; step < cfg.K; step++ {
		samp.Reset()

		sigma, err := computeSigma(ctx, oracle, samp, bestDist, absolute, n, batchSize)
		if err != nil {
			return Result{}, err
		}

		eval := func(arms []int, exact bool) []float64 {
			size := batchSize
			if exact {
				size = n
			}
			var refs []int
			if exact {
				refs = allIndices(n)
			} else {
				refs = samp.NextBatch(size)
			}
			out := make([]float64, len(arms))
			_ = parallel.Range(ctx, len(arms), func(lo, hi int) error {
				for idx := lo; idx < hi; idx++ {
					out[idx] = armReward(oracle, arms[idx], refs, bestDist, absolute)
				}
				return nil
			})
			return out
		}

		p := cfg.BuildConfidence * float64(n)
		loopCfg := bandit.Config{
			N: n, P: p, BatchSize: batchSize, PrecisionFloor: cfg.PrecisionFloor,
			Phase: "build", Logger: cfg.Logger,
		}
		res, err := bandit.Run(ctx, n, sigma, eval, loopCfg)
		if err != nil {
			return Result{}, err
		}
		if metrics != nil {
			for i := 0; i < res.ExactPromotions; i++ {
				metrics.RecordExactPromotion()
			}
			metrics.RecordArmsEliminated(res.Eliminated)
			metrics.RecordBuildStep()
		}

		// An arm already chosen can tie for the lowest LCB when no candidate
		// improves on it (e.g. identical points); take the lowest-LCB arm
		// not yet chosen instead, so the medoids stay distinct.
		medoid := res.Best
		chosen := make(map[int]bool, len(medoids))
		for _, m := range medoids {
			chosen[m] = true
		}
		if chosen[medoid] {
			bestLCB := math.Inf(1)
			for a, l := range res.LCB {
				if !chosen[a] && l < bestLCB {
					bestLCB, medoid = l, a
				}
			}
		}
		medoids = append(medoids, medoid)

		if err := parallel.Range(ctx, n, func(lo, hi int) error {
			for i := lo; i < hi; i++ {
				cost := oracle.CachedLoss(i, medoid)
				if cost < bestDist[i] {
					bestDist[i] = cost
				}
			}
			return nil
		}); err != nil {
			return Result{}, err
		}

		if cfg.Logger != nil {
			cfg.Logger.LogBuildStep(ctx, step, medoid, n-res.Eliminated)
		}

		absolute = false
	}

	return Result{Medoids: medoids, BestDistance: bestDist}, nil
}

// Greedy seeds K medoids with the deterministic exhaustive sweep Naive and
// FastPAM1 use in place of bandit sampling: at each slot it evaluates every
// candidate's total distance to all n points, capped by the running
// best-distance from previously chosen medoids, and keeps the minimizer.
// Mirrors original_source's buildFastPAM1 exactly, generalized from its
// single hard-coded loss function to the configured Oracle.
func Greedy(ctx context.Context, oracle Oracle, metrics Metrics, cfg Config) (Result, error) {
	n := cfg.N
	bestDist := make([]float64, n)
	for i := range bestDist {
		bestDist[i] = math.Inf(1)
	}
	medoids := make([]int, 0, cfg.K)
	all := allIndices(n)

	for step := 0; step < cfg.K; step++ {
		totals := make([]float64, n)
		if err := parallel.Range(ctx, n, func(lo, hi int) error {
			for i := lo; i < hi; i++ {
				dists := oracle.BatchLoss(i, all)
				var total float64
				for j, d := range dists {
					if bestDist[j] < d {
						d = bestDist[j]
					}
					total += d
				}
				totals[i] = total
			}
			return nil
		}); err != nil {
			return Result{}, err
		}

		medoid, minTotal := 0, math.Inf(1)
		for i, total := range totals {
			if total < minTotal {
				minTotal, medoid = total, i
			}
		}
		medoids = append(medoids, medoid)

		if err := parallel.Range(ctx, n, func(lo, hi int) error {
			for i := lo; i < hi; i++ {
				cost := oracle.CachedLoss(i, medoid)
				if cost < bestDist[i] {
					bestDist[i] = cost
				}
			}
			return nil
		}); err != nil {
			return Result{}, err
		}

		if metrics != nil {
			metrics.RecordBuildStep()
		}
		if cfg.Logger != nil {
			// exact evaluation resolves every slot in one sweep: no
			// candidate is ever left unresolved by elimination.
			cfg.Logger.LogBuildStep(ctx, step, medoid, 0)
		}
	}

	return Result{Medoids: medoids, BestDistance: bestDist}, nil
}

// computeSigma draws one reference batch and computes, for every candidate
// arm i in 0..n-1, the sample standard deviation of the reward/cost across
// that batch.
func computeSigma(ctx context.Context, oracle Oracle, samp Sampler, bestDist []float64, absolute bool, n, batchSize int) ([]float64, error) {
	batch := samp.NextBatch(batchSize)
	sigma := make([]float64, n)
	err := parallel.Range(ctx, n, func(lo, hi int) error {
		sample := make([]float64, len(batch))
		for i := lo; i < hi; i++ {
			dists := oracle.BatchLoss(i, batch)
			for j, d := range dists {
				sample[j] = rewardOrCost(d, bestDist[batch[j]], absolute)
			}
			sigma[i] = stat.StdDev(sample, nil)
		}
		return nil
	})
	return sigma, err
}

func armReward(oracle Oracle, arm int, refs []int, bestDist []float64, absolute bool) float64 {
	dists := oracle.BatchLoss(arm, refs)
	var total float64
	for j, d := range dists {
		total += rewardOrCost(d, bestDist[refs[j]], absolute)
	}
	return total / float64(len(refs))
}

func rewardOrCost(cost, best float64, absolute bool) float64 {
	if absolute {
		return cost
	}
	if cost < best {
		return cost - best
	}
	return 0
}

func allIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
