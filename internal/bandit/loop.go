// Package bandit implements the ConfidenceBoundLoop: the multi-armed
// bandit kernel shared by BUILD and SWAP. It maintains per-arm running
// mean, sample count, an exact flag, and UCB/LCB bounds, eliminating arms
// whose lower confidence bound exceeds the current best upper confidence
// bound until fewer than precisionFloor candidates remain.
package bandit

import (
	"context"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
)

// EvalFunc evaluates the given arm indices, either over a fresh reference
// batch (exact=false) or over all n reference points (exact=true), and
// returns one mean-reward estimate per arm in the same order as arms.
type EvalFunc func(arms []int, exact bool) []float64

// Result holds the outcome of one ConfidenceBoundLoop run.
type Result struct {
	Best            int       // argmin LCB across all arms, ties broken by lowest index
	Mean            []float64 // per-arm running mean at termination
	LCB             []float64 // per-arm lower confidence bound at termination
	UCB             []float64 // per-arm upper confidence bound at termination
	ExactPromotions int       // total arms resolved by exact evaluation
	Eliminated      int       // total arms dropped from candidacy across all rounds
}

// Logger receives a warning when an entire sigma slice underflows to zero.
// Both build.Run and swap.BanditPAM's callers can pass their *kmedoids.Logger
// here directly, since its LogNumericUnderflow method already has this shape.
type Logger interface {
	LogNumericUnderflow(ctx context.Context, phase string, arm int)
}

// Config bundles the loop's tunables.
type Config struct {
	N              int     // number of reference points (used for exact-promotion threshold)
	P              float64 // confidence parameter, log(p) drives the radius
	BatchSize      int
	PrecisionFloor float64 // candidate-count termination threshold, e.g. 0.5
	Phase          string  // "build" or "swap", passed through to Logger
	Logger         Logger  // optional; nil disables underflow logging
}

// Run executes the ConfidenceBoundLoop over numArms arms with the given
// per-arm sigma estimates, calling eval to sample or exactly resolve arms.
func Run(ctx context.Context, numArms int, sigma []float64, eval EvalFunc, cfg Config) (Result, error) {
	if cfg.Logger != nil && numArms > 0 {
		allZero := true
		for _, s := range sigma {
			if s != 0 {
				allZero = false
				break
			}
		}
		if allZero {
			// arm -1 denotes "the whole slice", not a single index: this
			// fires when every candidate's reward samples were identical.
			cfg.Logger.LogNumericUnderflow(ctx, cfg.Phase, -1)
		}
	}

	mean := make([]float64, numArms)
	samples := make([]int, numArms)
	exact := make([]bool, numArms)
	ucb := make([]float64, numArms)
	lcb := make([]float64, numArms)

	candidates := roaring.New()
	candidates.AddRange(0, uint64(numArms))

	logP := math.Log(cfg.P)
	totalPromotions := 0
	totalEliminated := 0

	for float64(candidates.GetCardinality()) >= cfg.PrecisionFloor {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		// Exact promotion: arms whose next batch would push samples past
		// N are resolved definitively and dropped from further sampling.
		promote := make([]int, 0)
		it := candidates.Iterator()
		for it.HasNext() {
			a := int(it.Next())
			wouldExceed := samples[a]+cfg.BatchSize >= cfg.N
			if wouldExceed != exact[a] {
				promote = append(promote, a)
			}
		}
		if len(promote) > 0 {
			result := eval(promote, true)
			for i, a := range promote {
				mean[a] = result[i]
				ucb[a] = result[i]
				lcb[a] = result[i]
				exact[a] = true
				samples[a] += cfg.N
				candidates.Remove(uint32(a))
			}
			totalPromotions += len(promote)
		}

		if float64(candidates.GetCardinality()) < cfg.PrecisionFloor {
			break
		}

		targets := candidates.ToArray()
		targetIdx := make([]int, len(targets))
		for i, a := range targets {
			targetIdx[i] = int(a)
		}

		result := eval(targetIdx, false)
		for i, a := range targetIdx {
			mean[a] = (float64(samples[a])*mean[a] + float64(cfg.BatchSize)*result[i]) /
				float64(samples[a]+cfg.BatchSize)
			samples[a] += cfg.BatchSize
			delta := sigma[a] * math.Sqrt(logP/float64(samples[a]))
			ucb[a] = mean[a] + delta
			lcb[a] = mean[a] - delta
		}

		uStar := math.Inf(1)
		for a := 0; a < numArms; a++ {
			if ucb[a] < uStar {
				uStar = ucb[a]
			}
		}

		// Elimination: only the batched-branch update participates, per
		// the reference's redundant exact-branch elimination write being
		// dropped as a no-op simplification (already-exact arms were
		// already removed from candidates above).
		next := roaring.New()
		for _, a := range targetIdx {
			if lcb[a] < uStar {
				next.Add(uint32(a))
			}
		}
		totalEliminated += len(targetIdx) - int(next.GetCardinality())
		candidates = next
	}

	best := 0
	bestLCB := math.Inf(1)
	for a := 0; a < numArms; a++ {
		if lcb[a] < bestLCB {
			bestLCB = lcb[a]
			best = a
		}
	}

	return Result{
		Best:            best,
		Mean:            mean,
		LCB:             lcb,
		UCB:             ucb,
		ExactPromotions: totalPromotions,
		Eliminated:      totalEliminated,
	}, nil
}
