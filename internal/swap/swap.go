// Package swap implements the SWAP phase: BanditPAM's bandit-accelerated
// swap search plus the naive PAM and FastPAM1 external collaborators, all
// sharing one O(k*n) best/second-best/assignment recompute and one
// dissimilarity oracle.
package swap

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

// Metrics receives coarse-grained instrumentation callbacks.
type Metrics interface {
	RecordSwapStep()
	RecordExactPromotion()
	RecordArmsEliminated(count int)
}

// Logger receives per-iteration and numeric-underflow notifications from
// SWAP. It embeds bandit.Logger so bandit.Run's underflow detection can log
// through the same value passed in via Config.
type Logger interface {
	bandit.Logger
	// LogSwapIteration is called once per outer SWAP iteration, by all
	// three collaborators (BanditPAM, FastPAM1, Naive).
	LogSwapIteration(ctx context.Context, iter int, swapped bool, medoidSlot, candidate int)
}

// Config bundles SWAP's tunables.
type Config struct {
	N              int
	K              int
	BatchSize      int
	SwapConfidence float64
	PrecisionFloor float64
	MaxIter        int
	Logger         Logger // optional; nil disables logging
}

// Result is SWAP's output.
type Result struct {
	Medoids []int
	Labels  []int
	Steps   int
}

// RecomputeBSA performs the shared O(k*n) pass: for every point, find the
// smallest and second-smallest distance to any medoid, and record which
// medoid slot realizes the smallest.
func RecomputeBSA(ctx context.Context, oracle Oracle, medoids []int, n int) (best, second []float64, assign []int, err error) {
	best = make([]float64, n)
	second = make([]float64, n)
	assign = make([]int, n)

	err = parallel.Range(ctx, n, func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			b, s, a := math.Inf(1), math.Inf(1), -1
			for k, m := range medoids {
				d := oracle.CachedLoss(i, m)
				if d < b {
					s = b
					b = d
					a = k
				} else if d < s {
					s = d
				}
			}
			best[i] = b
			second[i] = s
			assign[i] = a
		}
		return nil
	})
	return best, second, assign, err
}

// swapReward computes the reward-mode sample value for candidate i against
// reference point j, given point j's current best/second-best distance and
// assignment, and the medoid slot k under consideration for replacement.
// This is the shared formula behind both BanditPAM's sampled evaluation and
// the naive collaborator's exact per-pair evaluation.
func swapReward(dij float64, k int, j int, best, second []float64, assign []int) float64 {
	bj := best[j]
	if assign[j] == k {
		if dij < second[j] {
			return dij - bj
		}
		return second[j] - bj
	}
	if dij < bj {
		return dij - bj
	}
	return 0
}

// BanditPAM runs the bandit-accelerated swap search until a proposed swap
// is a no-op or MaxIter outer iterations are reached.
func BanditPAM(ctx context.Context, oracle Oracle, samp Sampler, metrics Metrics, cfg Config, initial []int) (Result, error) {
	n, k := cfg.N, cfg.K
	medoids := append([]int(nil), initial...)
	batchSize := cfg.BatchSize
	if batchSize > n {
		batchSize = n
	}

	var assign []int
	iter := 0
	for iter < cfg.MaxIter {
		best, second, a, err := RecomputeBSA(ctx, oracle, medoids, n)
		if err != nil {
			return Result{}, err
		}
		assign = a

		samp.Reset()
		sigma, err := computeSwapSigma(ctx, oracle, samp, best, second, assign, n, k, batchSize)
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
					arm := arms[idx]
					cand, slot := arm/k, arm%k
					dists := oracle.BatchLoss(cand, refs)
					var total float64
					for j, dij := range dists {
						total += swapReward(dij, slot, refs[j], best, second, assign)
					}
					out[idx] = total / float64(len(refs))
				}
				return nil
			})
			return out
		}

		p := cfg.SwapConfidence * float64(n) * float64(k)
		loopCfg := bandit.Config{
			N: n, P: p, BatchSize: batchSize, PrecisionFloor: cfg.PrecisionFloor,
			Phase: "swap", Logger: cfg.Logger,
		}
		res, err := bandit.Run(ctx, k*n, sigma, eval, loopCfg)
		if err != nil {
			return Result{}, err
		}
		if metrics != nil {
			for i := 0; i < res.ExactPromotions; i++ {
				metrics.RecordExactPromotion()
			}
			metrics.RecordArmsEliminated(res.Eliminated)
		}

		cand, slot := res.Best/k, res.Best%k
		swapped := medoids[slot] != cand
		if cfg.Logger != nil {
			cfg.Logger.LogSwapIteration(ctx, iter, swapped, slot, cand)
		}
		if !swapped {
			break // no-op proposal: terminate
		}
		iter++
		medoids[slot] = cand
		if metrics != nil {
			metrics.RecordSwapStep()
		}
	}

	_, _, finalAssign, err := RecomputeBSA(ctx, oracle, medoids, n)
	if err != nil {
		return Result{}, err
	}
	return Result{Medoids: medoids, Labels: finalAssign, Steps: iter}, nil
}

// computeSwapSigma computes the k*n sigma matrix (flattened arm = cand*k +
// slot), one reference batch shared across all arms.
func computeSwapSigma(ctx context.Context, oracle Oracle, samp Sampler, best, second []float64, assign []int, n, k, batchSize int) ([]float64, error) {
	batch := samp.NextBatch(batchSize)
	sigma := make([]float64, k*n)
	err := parallel.Range(ctx, n*k, func(lo, hi int) error {
		sample := make([]float64, len(batch))
		for arm := lo; arm < hi; arm++ {
			cand, slot := arm/k, arm%k
			dists := oracle.BatchLoss(cand, batch)
			for j, dij := range dists {
				sample[j] = swapReward(dij, slot, batch[j], best, second, assign)
			}
			sigma[arm] = stat.StdDev(sample, nil)
		}
		return nil
	})
	return sigma, err
}

// FastPAM1 runs the deterministic Schubert-Rousseeuw single-best-swap
// recurrence: each outer iteration computes, for every non-medoid
// candidate and every medoid slot, the exact change in total loss from
// that single swap, in one O(n) sweep per candidate, and accepts the most
// improving swap if it is negative.
func FastPAM1(ctx context.Context, oracle Oracle, metrics Metrics, cfg Config, initial []int) (Result, error) {
	n, k := cfg.N, cfg.K
	medoids := append([]int(nil), initial...)

	iter := 0
	changed := true
	var assign []int
	for iter < cfg.MaxIter && changed {
		best, second, a, err := RecomputeBSA(ctx, oracle, medoids, n)
		if err != nil {
			return Result{}, err
		}
		assign = a

		deltaBest := make([]float64, n)
		slotBest := make([]int, n)
		err = parallel.Range(ctx, n, func(lo, hi int) error {
			deltaTd := make([]float64, k)
			for i := lo; i < hi; i++ {
				di := best[i]
				for kk := range deltaTd {
					deltaTd[kk] = -di
				}
				for j := 0; j < n; j++ {
					if j == i {
						continue
					}
					dij := oracle.CachedLoss(i, j)
					aj := assign[j]
					bj := best[j]
					if dij < second[j] {
						deltaTd[aj] += dij - bj
					} else {
						deltaTd[aj] += second[j] - bj
					}
					if dij < bj {
						diff := dij - bj
						for kk := range deltaTd {
							deltaTd[kk] += diff
						}
						deltaTd[aj] -= diff
					}
				}
				minVal, minSlot := deltaTd[0], 0
				for kk := 1; kk < k; kk++ {
					if deltaTd[kk] < minVal {
						minVal, minSlot = deltaTd[kk], kk
					}
				}
				deltaBest[i] = minVal
				slotBest[i] = minSlot
			}
			return nil
		})
		if err != nil {
			return Result{}, err
		}

		bestChange, bestCand, bestSlot := 0.0, -1, -1
		for i := 0; i < n; i++ {
			if deltaBest[i] < bestChange {
				bestChange, bestCand, bestSlot = deltaBest[i], i, slotBest[i]
			}
		}

		changed = bestChange < 0
		loggedCand, loggedSlot := -1, -1
		if changed {
			medoids[bestSlot] = bestCand
			loggedCand, loggedSlot = bestCand, bestSlot
			if metrics != nil {
				metrics.RecordSwapStep()
			}
		}
		if cfg.Logger != nil {
			cfg.Logger.LogSwapIteration(ctx, iter, changed, loggedSlot, loggedCand)
		}
		if changed {
			iter++
		}
	}

	_, _, finalAssign, err := RecomputeBSA(ctx, oracle, medoids, n)
	if err != nil {
		return Result{}, err
	}
	return Result{Medoids: medoids, Labels: finalAssign, Steps: iter}, nil
}

// Naive runs the exhaustive O(k*n^2) PAM swap scan: every outer iteration
// evaluates every (slot, candidate) pair's exact loss delta over all n
// points using the shared swapReward formula, and accepts the single best
// strictly-improving swap.
func Naive(ctx context.Context, oracle Oracle, metrics Metrics, cfg Config, initial []int) (Result, error) {
	n, k := cfg.N, cfg.K
	medoids := append([]int(nil), initial...)

	iter := 0
	for iter < cfg.MaxIter {
		best, second, assign, err := RecomputeBSA(ctx, oracle, medoids, n)
		if err != nil {
			return Result{}, err
		}

		deltas := make([]float64, k*n)
		err = parallel.Range(ctx, k*n, func(lo, hi int) error {
			for pair := lo; pair < hi; pair++ {
				slot, cand := pair/n, pair%n
				var delta float64
				for j := 0; j < n; j++ {
					dij := oracle.CachedLoss(cand, j)
					delta += swapReward(dij, slot, j, best, second, assign)
				}
				deltas[pair] = delta
			}
			return nil
		})
		if err != nil {
			return Result{}, err
		}

		bestDelta, bestSlot, bestCand := 0.0, -1, -1
		for pair, delta := range deltas {
			if delta < bestDelta {
				bestDelta, bestSlot, bestCand = delta, pair/n, pair%n
			}
		}

		if cfg.Logger != nil {
			cfg.Logger.LogSwapIteration(ctx, iter, bestSlot >= 0, bestSlot, bestCand)
		}
		if bestSlot < 0 {
			break
		}
		medoids[bestSlot] = bestCand
		if metrics != nil {
			metrics.RecordSwapStep()
		}
		iter++
	}

	_, _, finalAssign, err := RecomputeBSA(ctx, oracle, medoids, n)
	if err != nil {
		return Result{}, err
	}
	return Result{Medoids: medoids, Labels: finalAssign, Steps: iter}, nil
}

func allIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
