package kmedoids_test

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/bnaras/kmedoids"
	"github.com/bnaras/kmedoids/internal/parallel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// sixPoints is the spec's first concrete scenario: two well-separated
// clusters of three points each.
func sixPoints() *mat.Dense {
	return mat.NewDense(6, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		10, 10,
		10, 11,
		11, 10,
	})
}

func totalLoss(t *testing.T, ds *mat.Dense, medoids, labels []int) float64 {
	t.Helper()
	n, d := ds.Dims()
	var loss float64
	for i := 0; i < n; i++ {
		pi := mat.Row(nil, i, ds)
		m := medoids[labels[i]]
		pm := mat.Row(nil, m, ds)
		var sum float64
		for j := 0; j < d; j++ {
			diff := pi[j] - pm[j]
			sum += diff * diff
		}
		loss += math.Sqrt(sum)
	}
	return loss
}

func TestFitSixPointsBanditPAM(t *testing.T) {
	e, err := kmedoids.New(kmedoids.WithNumMedoids(2), kmedoids.WithSeed(7))
	require.NoError(t, err)

	data := sixPoints()
	require.NoError(t, e.Fit(context.Background(), data))

	assert.Len(t, e.MedoidsFinal(), 2)
	assert.NotEqual(t, e.MedoidsFinal()[0], e.MedoidsFinal()[1])

	low := map[int]bool{0: true, 1: true, 2: true}
	high := map[int]bool{3: true, 4: true, 5: true}
	m := e.MedoidsFinal()
	oneInEach := (low[m[0]] && high[m[1]]) || (high[m[0]] && low[m[1]])
	assert.True(t, oneInEach, "medoids %v should land one per cluster", m)

	// mean per-point loss: the summed loss of this scenario is at least 4.0
	assert.LessOrEqual(t, totalLoss(t, data, m, e.Labels())/float64(len(e.Labels())), 3.0)
}

func TestFitSixPointsNaiveAndFastPAM1(t *testing.T) {
	for _, algo := range []string{"naive", "FastPAM1"} {
		e, err := kmedoids.New(kmedoids.WithNumMedoids(2), kmedoids.WithAlgorithm(algo), kmedoids.WithSeed(3))
		require.NoError(t, err)

		data := sixPoints()
		require.NoError(t, e.Fit(context.Background(), data))
		meanLoss := totalLoss(t, data, e.MedoidsFinal(), e.Labels()) / float64(len(e.Labels()))
		assert.LessOrEqual(t, meanLoss, 3.0, "algorithm %s", algo)
	}
}

// TestMedoidsAreDistinct covers property 1: M has exactly k distinct
// indices, for every configured algorithm.
func TestMedoidsAreDistinct(t *testing.T) {
	for _, algo := range []string{"BanditPAM", "naive", "FastPAM1"} {
		e, err := kmedoids.New(kmedoids.WithNumMedoids(3), kmedoids.WithAlgorithm(algo), kmedoids.WithSeed(11))
		require.NoError(t, err)
		require.NoError(t, e.Fit(context.Background(), twoGaussians(90, 3)))

		seen := map[int]bool{}
		for _, m := range e.MedoidsFinal() {
			assert.False(t, seen[m], "medoid %d repeated under %s", m, algo)
			seen[m] = true
		}
		assert.Len(t, seen, 3)
	}
}

// TestLabelsAreTrueNearest covers property 2: every label points at the
// closest medoid under the configured metric.
func TestLabelsAreTrueNearest(t *testing.T) {
	e, err := kmedoids.New(kmedoids.WithNumMedoids(3), kmedoids.WithSeed(5))
	require.NoError(t, err)
	data := twoGaussians(90, 3)
	require.NoError(t, e.Fit(context.Background(), data))

	n, d := data.Dims()
	medoids := e.MedoidsFinal()
	for i := 0; i < n; i++ {
		pi := mat.Row(nil, i, data)
		best := math.Inf(1)
		bestSlot := -1
		for slot, m := range medoids {
			pm := mat.Row(nil, m, data)
			var sum float64
			for j := 0; j < d; j++ {
				diff := pi[j] - pm[j]
				sum += diff * diff
			}
			dist := math.Sqrt(sum)
			if dist < best {
				best, bestSlot = dist, slot
			}
		}
		assert.Equal(t, bestSlot, e.Labels()[i])
	}
}

// TestSeedReproducibility covers property 6: same seed + use_perm=true
// yields bit-identical medoids across independent runs.
func TestSeedReproducibility(t *testing.T) {
	data := twoGaussians(90, 3)

	run := func() []int {
		e, err := kmedoids.New(kmedoids.WithNumMedoids(3), kmedoids.WithSeed(42), kmedoids.WithPermutation(true))
		require.NoError(t, err)
		require.NoError(t, e.Fit(context.Background(), data))
		return e.MedoidsFinal()
	}

	assert.Equal(t, run(), run())
}

// TestCacheDoesNotChangeMedoids covers property 7.
func TestCacheDoesNotChangeMedoids(t *testing.T) {
	data := twoGaussians(90, 3)

	withCache, err := kmedoids.New(kmedoids.WithNumMedoids(3), kmedoids.WithSeed(9), kmedoids.WithCache(true))
	require.NoError(t, err)
	require.NoError(t, withCache.Fit(context.Background(), data))

	withoutCache, err := kmedoids.New(kmedoids.WithNumMedoids(3), kmedoids.WithSeed(9), kmedoids.WithCache(false))
	require.NoError(t, err)
	require.NoError(t, withoutCache.Fit(context.Background(), data))

	assert.Equal(t, withCache.MedoidsFinal(), withoutCache.MedoidsFinal())
}

// TestKEqualsN covers the k=n boundary: every point is its own medoid.
func TestKEqualsN(t *testing.T) {
	data := sixPoints()
	e, err := kmedoids.New(kmedoids.WithNumMedoids(6), kmedoids.WithSeed(1))
	require.NoError(t, err)
	require.NoError(t, e.Fit(context.Background(), data))

	seen := map[int]bool{}
	for _, m := range e.MedoidsFinal() {
		seen[m] = true
	}
	assert.Len(t, seen, 6)
	for i, label := range e.Labels() {
		assert.Equal(t, i, e.MedoidsFinal()[label])
	}
}

// TestKEqualsOne covers the k=1 boundary.
func TestKEqualsOne(t *testing.T) {
	e, err := kmedoids.New(kmedoids.WithNumMedoids(1), kmedoids.WithSeed(1))
	require.NoError(t, err)
	require.NoError(t, e.Fit(context.Background(), sixPoints()))

	assert.Len(t, e.MedoidsFinal(), 1)
	for _, label := range e.Labels() {
		assert.Equal(t, 0, label)
	}
}

// TestIdenticalPoints covers the identical-points boundary: sigma is zero
// for every arm, and the engine must terminate without dividing by zero.
func TestIdenticalPoints(t *testing.T) {
	raw := make([]float64, 50*2)
	data := mat.NewDense(50, 2, raw)

	e, err := kmedoids.New(kmedoids.WithNumMedoids(3), kmedoids.WithSeed(1))
	require.NoError(t, err)
	require.NoError(t, e.Fit(context.Background(), data))

	seen := map[int]bool{}
	for _, m := range e.MedoidsFinal() {
		seen[m] = true
	}
	assert.Len(t, seen, 3)
	assert.Len(t, e.Labels(), 50)
	for _, label := range e.Labels() {
		assert.GreaterOrEqual(t, label, 0)
		assert.Less(t, label, 3)
	}
}

// TestBanditPAMWithinEpsilonOfNaive covers property 5: BanditPAM's final
// loss should not exceed naive PAM's by more than a small margin.
func TestBanditPAMWithinEpsilonOfNaive(t *testing.T) {
	data := twoGaussians(200, 11)

	bpam, err := kmedoids.New(kmedoids.WithNumMedoids(2), kmedoids.WithSeed(2))
	require.NoError(t, err)
	require.NoError(t, bpam.Fit(context.Background(), data))

	naive, err := kmedoids.New(kmedoids.WithNumMedoids(2), kmedoids.WithAlgorithm("naive"), kmedoids.WithSeed(2))
	require.NoError(t, err)
	require.NoError(t, naive.Fit(context.Background(), data))

	bpamLoss := totalLoss(t, data, bpam.MedoidsFinal(), bpam.Labels())
	naiveLoss := totalLoss(t, data, naive.MedoidsFinal(), naive.Labels())

	assert.LessOrEqual(t, bpamLoss, naiveLoss*1.10)
}

// TestInvalidConfigRejected covers the InvalidConfig error kind.
func TestInvalidConfigRejected(t *testing.T) {
	_, err := kmedoids.New(kmedoids.WithNumMedoids(2), kmedoids.WithAlgorithm("not-a-real-algorithm"))
	assert.ErrorIs(t, err, kmedoids.ErrInvalidConfig)

	_, err = kmedoids.New(kmedoids.WithNumMedoids(2), kmedoids.WithLoss("not-a-real-metric"))
	assert.ErrorIs(t, err, kmedoids.ErrInvalidConfig)

	_, err = kmedoids.New()
	assert.ErrorIs(t, err, kmedoids.ErrInvalidConfig)
}

// TestDimensionMismatchRejected covers the DimensionMismatch error kind.
func TestDimensionMismatchRejected(t *testing.T) {
	e, err := kmedoids.New(kmedoids.WithNumMedoids(10))
	require.NoError(t, err)

	err = e.Fit(context.Background(), sixPoints())
	var dimErr *kmedoids.ErrDimensionMismatch
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 10, dimErr.K)
}

// TestConcurrencyPoolBoundsFitCalls covers the cross-Engine concurrency
// bound WithConcurrencyPool describes: an Engine sharing a fully-held pool
// must block in Fit until a slot is released.
func TestConcurrencyPoolBoundsFitCalls(t *testing.T) {
	pool := parallel.NewPool(1)
	require.NoError(t, pool.Acquire(context.Background())) // hold the only slot

	e, err := kmedoids.New(kmedoids.WithNumMedoids(2), kmedoids.WithConcurrencyPool(pool))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- e.Fit(context.Background(), sixPoints()) }()

	select {
	case <-done:
		t.Fatal("Fit completed before the pool slot was released")
	case <-time.After(50 * time.Millisecond):
	}

	pool.Release()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Fit did not complete after the pool slot was released")
	}
}

// TestNaiveBuildIsExactArgminBeyondBatchSize covers the naive-BUILD
// testable property for n larger than the bandit batch size: naive's
// initial medoid at k=1 must be the exact brute-force argmin, not a
// bandit-sampled approximation, since a bug here is only observable once n
// exceeds one reference batch.
func TestNaiveBuildIsExactArgminBeyondBatchSize(t *testing.T) {
	data := twoGaussians(150, 21) // n=150 > default batch_size=100

	e, err := kmedoids.New(kmedoids.WithNumMedoids(1), kmedoids.WithAlgorithm("naive"), kmedoids.WithSeed(21))
	require.NoError(t, err)
	require.NoError(t, e.Fit(context.Background(), data))

	n, d := data.Dims()
	wantBest, wantTotal := -1, math.Inf(1)
	for i := 0; i < n; i++ {
		pi := mat.Row(nil, i, data)
		var total float64
		for j := 0; j < n; j++ {
			pj := mat.Row(nil, j, data)
			var sum float64
			for c := 0; c < d; c++ {
				diff := pi[c] - pj[c]
				sum += diff * diff
			}
			total += math.Sqrt(sum)
		}
		if total < wantTotal {
			wantTotal, wantBest = total, i
		}
	}

	assert.Equal(t, wantBest, e.MedoidsBuild()[0])
}

// twoGaussians builds n points split between two Gaussian blobs centered at
// (0,0) and (5,5), matching the spec's second concrete scenario shape at a
// scale small enough for a fast unit test.
func twoGaussians(n int, seed int64) *mat.Dense {
	rng := rand.New(rand.NewSource(seed))
	raw := make([]float64, n*2)
	half := n / 2
	for i := 0; i < n; i++ {
		cx, cy := 0.0, 0.0
		if i >= half {
			cx, cy = 5.0, 5.0
		}
		raw[i*2] = cx + rng.NormFloat64()*0.5
		raw[i*2+1] = cy + rng.NormFloat64()*0.5
	}
	return mat.NewDense(n, 2, raw)
}
