package accel_test

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/piwi3910/BarCut/internal/accel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// weightedScore is position-sensitive so swapped results would be noticed.
func weightedScore(c []int) float64 {
	var s float64
	for i, g := range c {
		s += math.Sqrt(float64(g+1)) * float64(i+1)
	}
	return s
}

func randomPopulation(size, genes int, seed int64) [][]int {
	rng := rand.New(rand.NewSource(seed))
	pop := make([][]int, size)
	for i := range pop {
		pop[i] = rng.Perm(genes)
	}
	return pop
}

type failingBackend struct{ calls int }

func (f *failingBackend) Name() string { return "broken" }

func (f *failingBackend) EvaluateBatch(context.Context, [][]int, accel.ScoreFunc) ([]float64, error) {
	f.calls++
	return nil, accel.ErrAccelerationUnavailable
}

func TestCPUBackend_ScoresByIndex(t *testing.T) {
	pop := randomPopulation(20, 12, 1)

	scores, err := accel.CPUBackend{}.EvaluateBatch(context.Background(), pop, weightedScore)

	require.NoError(t, err)
	require.Len(t, scores, len(pop))
	for i, c := range pop {
		assert.Equal(t, weightedScore(c), scores[i])
	}
}

func TestParallelBackend_MatchesCPU(t *testing.T) {
	pop := randomPopulation(97, 30, 7)
	par, err := accel.NewParallelBackend(4)
	require.NoError(t, err)

	cpuScores, err := accel.CPUBackend{}.EvaluateBatch(context.Background(), pop, weightedScore)
	require.NoError(t, err)
	parScores, err := par.EvaluateBatch(context.Background(), pop, weightedScore)
	require.NoError(t, err)

	require.Len(t, parScores, len(cpuScores))
	for i := range cpuScores {
		assert.InEpsilon(t, cpuScores[i], parScores[i], 1e-6, "chromosome %d", i)
	}
}

func TestParallelBackend_EmptyPopulation(t *testing.T) {
	par, err := accel.NewParallelBackend(2)
	require.NoError(t, err)

	scores, err := par.EvaluateBatch(context.Background(), nil, weightedScore)

	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestNewParallelBackend_SingleProcessorUnavailable(t *testing.T) {
	_, err := accel.NewParallelBackend(1)
	assert.ErrorIs(t, err, accel.ErrAccelerationUnavailable)
}

func TestParallelBackend_Cancelled(t *testing.T) {
	par, err := accel.NewParallelBackend(2)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = par.EvaluateBatch(ctx, randomPopulation(8, 4, 1), weightedScore)

	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDispatcher_CPUWhenDisabled(t *testing.T) {
	d := accel.NewDispatcher(weightedScore)
	assert.Equal(t, "cpu", d.Backend())

	scores, err := d.EvaluateBatch(context.Background(), randomPopulation(5, 5, 3))
	require.NoError(t, err)
	assert.Len(t, scores, 5)
}

func TestDispatcher_UsesProbedBackend(t *testing.T) {
	d := accel.NewDispatcher(weightedScore,
		accel.WithAcceleration(true),
		accel.WithProbe(func() (accel.Backend, error) { return accel.NewParallelBackend(3) }),
	)
	assert.Equal(t, "parallel", d.Backend())

	pop := randomPopulation(40, 16, 9)
	scores, err := d.EvaluateBatch(context.Background(), pop)
	require.NoError(t, err)
	for i, c := range pop {
		assert.InEpsilon(t, weightedScore(c), scores[i], 1e-6)
	}
}

func TestDispatcher_ProbeFailureFallsBack(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	d := accel.NewDispatcher(weightedScore,
		accel.WithLogger(zap.New(core)),
		accel.WithAcceleration(true),
		accel.WithProbe(func() (accel.Backend, error) { return nil, accel.ErrAccelerationUnavailable }),
	)

	assert.Equal(t, "cpu", d.Backend())
	scores, err := d.EvaluateBatch(context.Background(), randomPopulation(4, 4, 2))
	require.NoError(t, err)
	assert.Len(t, scores, 4)
	assert.Equal(t, 1, logs.FilterMessage("accelerated evaluation unavailable, using cpu").Len())
}

func TestDispatcher_RuntimeFailureFallsBackOnce(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	broken := &failingBackend{}
	d := accel.NewDispatcher(weightedScore,
		accel.WithLogger(zap.New(core)),
		accel.WithAcceleration(true),
		accel.WithProbe(func() (accel.Backend, error) { return broken, nil }),
	)
	assert.Equal(t, "broken", d.Backend())

	pop := randomPopulation(10, 6, 4)
	for i := 0; i < 3; i++ {
		scores, err := d.EvaluateBatch(context.Background(), pop)
		require.NoError(t, err)
		for j, c := range pop {
			assert.Equal(t, weightedScore(c), scores[j])
		}
	}

	assert.Equal(t, 1, broken.calls, "a failed backend is not retried")
	assert.Equal(t, "cpu", d.Backend())
	assert.Equal(t, 1, logs.FilterMessage("accelerated evaluation failed, falling back to cpu").Len())
}
