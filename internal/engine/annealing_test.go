package engine

import (
	"context"
	"testing"

	"github.com/piwi3910/BarCut/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnnealingConfig_Validate(t *testing.T) {
	tests := []struct {
		name  string
		cfg   AnnealingConfig
		field string
	}{
		{"cold start", AnnealingConfig{InitialTemperature: -1}, "strategy_params.annealing.initial_temperature"},
		{"no cooling", AnnealingConfig{InitialTemperature: 10, CoolingRate: 1, MinTemperature: 1}, "strategy_params.annealing.cooling_rate"},
		{"floor above start", AnnealingConfig{InitialTemperature: 10, CoolingRate: 0.9, MinTemperature: 20}, "strategy_params.annealing.min_temperature"},
		{"negative iterations", AnnealingConfig{InitialTemperature: 10, CoolingRate: 0.9, MinTemperature: 1, Iterations: -5}, "strategy_params.annealing.iterations"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var verr *model.ValidationError
			require.ErrorAs(t, tt.cfg.validate(), &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
	assert.NoError(t, DefaultAnnealingConfig().validate())
	var verr *model.ValidationError
	require.ErrorAs(t, AnnealingConfig{}.validate(), &verr, "zero config is not silently defaulted")
	assert.Equal(t, "strategy_params.annealing.initial_temperature", verr.Field)
}

func TestAnnealing_BestNeverWorseThanStart(t *testing.T) {
	pieces := randomPieces(13, 9, 5)
	p := newProblem(pieces, 6100, defaultTestSettings())
	ev := defaultEvaluator()
	cfg := DefaultAnnealingConfig()
	cfg.Iterations = 800

	res := newAnnealer(p, ev, cfg).optimize(unbounded())

	ffd := p.runHeuristic(model.StrategyFFD)
	assert.GreaterOrEqual(t, ev.Score(res.plan).Composite, ev.Score(ffd).Composite)
	assert.Equal(t, model.StrategyAnnealing, res.plan.Strategy)
	assert.Equal(t, 800, res.iterations)
	assert.LessOrEqual(t, res.accepted, res.iterations)
	assertPlanInvariants(t, res.plan, pieces, defaultTestSettings())
}

func TestAnnealing_StopsAtMinTemperature(t *testing.T) {
	p := newProblem(randomPieces(1, 5, 3), 6100, defaultTestSettings())
	cfg := AnnealingConfig{InitialTemperature: 1, CoolingRate: 0.5, MinTemperature: 0.1, Iterations: 1000, Seed: 3}

	res := newAnnealer(p, defaultEvaluator(), cfg).optimize(unbounded())

	// 1, 0.5, 0.25, 0.125 are at or above the floor.
	assert.Equal(t, 4, res.iterations)
}

func TestAnnealing_Deterministic(t *testing.T) {
	pieces := randomPieces(17, 6, 4)
	cfg := DefaultAnnealingConfig()
	cfg.Iterations = 300

	run := func() model.CuttingPlan {
		return newAnnealer(newProblem(pieces, 6100, defaultTestSettings()), defaultEvaluator(), cfg).optimize(unbounded()).plan
	}

	assert.Equal(t, run(), run())
}

func TestAnnealing_SingleInstance(t *testing.T) {
	pieces := []model.Piece{model.NewPiece("AL", 1000, 1)}
	p := newProblem(pieces, 6100, defaultTestSettings())

	res := newAnnealer(p, defaultEvaluator(), DefaultAnnealingConfig()).optimize(unbounded())

	assert.Equal(t, 0, res.iterations)
	assert.Equal(t, 1, res.plan.BarsUsed)
}

func TestAnnealing_CancelledReturnsStart(t *testing.T) {
	pieces := randomPieces(19, 6, 4)
	p := newProblem(pieces, 6100, defaultTestSettings())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := newAnnealer(p, defaultEvaluator(), DefaultAnnealingConfig()).optimize(budget{ctx: ctx})

	assert.True(t, res.timedOut)
	assert.Equal(t, 0, res.iterations)
	assert.Equal(t, planLengths(p.runHeuristic(model.StrategyFFD)), planLengths(res.plan))
}
