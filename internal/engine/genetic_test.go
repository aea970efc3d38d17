package engine

import (
	"context"
	"math/rand"
	"testing"

	"github.com/piwi3910/BarCut/internal/accel"
	"github.com/piwi3910/BarCut/internal/model"
	"github.com/piwi3910/BarCut/internal/objective"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isPermutation(genes []int) bool {
	seen := make([]bool, len(genes))
	for _, g := range genes {
		if g < 0 || g >= len(genes) || seen[g] {
			return false
		}
		seen[g] = true
	}
	return true
}

func defaultEvaluator() objective.Evaluator {
	return objective.New(objective.DefaultRates(), objective.DefaultWeights())
}

func smallGeneticConfig() GeneticConfig {
	return GeneticConfig{PopulationSize: 20, Generations: 15, MutationRate: 0.2, CrossoverRate: 0.8, Seed: 7}
}

func unbounded() budget {
	return budget{ctx: context.Background()}
}

func TestPMX_ProducesPermutations(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 500; trial++ {
		n := 1 + rng.Intn(15)
		a, b := rng.Perm(n), rng.Perm(n)

		child := pmx(rng, a, b)

		require.Len(t, child, n)
		assert.True(t, isPermutation(child), "a=%v b=%v child=%v", a, b, child)
	}
}

func TestPMX_IdenticalParents(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	parent := []int{4, 2, 0, 3, 1}

	assert.Equal(t, parent, pmx(rng, parent, parent))
}

func TestPMX_DoesNotModifyParents(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	a := []int{0, 1, 2, 3, 4, 5}
	b := []int{5, 4, 3, 2, 1, 0}

	pmx(rng, a, b)

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, a)
	assert.Equal(t, []int{5, 4, 3, 2, 1, 0}, b)
}

func TestSwapMutate_SwapsTwoPositions(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	for trial := 0; trial < 100; trial++ {
		genes := []int{0, 1, 2, 3, 4, 5, 6}
		swapMutate(rng, genes)

		assert.True(t, isPermutation(genes))
		moved := 0
		for i, g := range genes {
			if g != i {
				moved++
			}
		}
		assert.Equal(t, 2, moved)
	}
}

func TestSwapMutate_SingleGeneUnchanged(t *testing.T) {
	genes := []int{0}
	swapMutate(rand.New(rand.NewSource(1)), genes)
	assert.Equal(t, []int{0}, genes)
}

func TestRouletteWheel(t *testing.T) {
	pop := []chromosome{{fitness: -10}, {fitness: 5}, {fitness: 20}}

	cum := rouletteWheel(pop)

	require.Len(t, cum, 3)
	assert.Greater(t, cum[0], 0.0, "worst keeps a positive weight")
	assert.Greater(t, cum[1], cum[0])
	assert.Greater(t, cum[2]-cum[1], cum[1]-cum[0], "fitter chromosomes get wider slots")
}

func TestRouletteWheel_EqualFitnessIsUniform(t *testing.T) {
	pop := []chromosome{{fitness: 3}, {fitness: 3}, {fitness: 3}, {fitness: 3}}

	cum := rouletteWheel(pop)

	for i := 1; i < len(cum); i++ {
		assert.InDelta(t, cum[0], cum[i]-cum[i-1], 1e-15)
	}
}

func TestSpin_FavorsHeavySlot(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	cum := []float64{1, 2, 100}
	counts := make([]int, 3)
	for i := 0; i < 1000; i++ {
		counts[spin(rng, cum)]++
	}
	assert.Greater(t, counts[2], counts[0]+counts[1])
}

func TestGeneticConfig_Defaults(t *testing.T) {
	cfg := DefaultGeneticConfig()

	assert.Equal(t, 50, cfg.PopulationSize)
	assert.Equal(t, 100, cfg.Generations)
	assert.Equal(t, 0.1, cfg.MutationRate)
	assert.Equal(t, 0.8, cfg.CrossoverRate)
	assert.Equal(t, int64(42), cfg.Seed)
}

func TestGeneticConfig_ZeroRatesAreValid(t *testing.T) {
	cfg := GeneticConfig{PopulationSize: 2}

	assert.NoError(t, cfg.validate())
}

func TestGeneticConfig_Validate(t *testing.T) {
	tests := []struct {
		cfg   GeneticConfig
		field string
	}{
		{GeneticConfig{PopulationSize: 1, MutationRate: 0.1, CrossoverRate: 0.5}, "strategy_params.genetic.population_size"},
		{GeneticConfig{PopulationSize: 10, Generations: -1}, "strategy_params.genetic.generations"},
		{GeneticConfig{PopulationSize: 10, MutationRate: 1.5}, "strategy_params.genetic.mutation_rate"},
		{GeneticConfig{PopulationSize: 10, CrossoverRate: -0.1}, "strategy_params.genetic.crossover_rate"},
	}
	for _, tt := range tests {
		err := tt.cfg.validate()
		var verr *model.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, tt.field, verr.Field)
	}
	assert.NoError(t, DefaultGeneticConfig().validate())
}

func TestGenetic_ElitismNeverRegresses(t *testing.T) {
	p := newProblem(randomPieces(21, 8, 4), 6100, defaultTestSettings())
	g := newGeneticOptimizer(p, defaultEvaluator(), smallGeneticConfig())

	res := g.optimize(unbounded())

	require.Len(t, res.history, 16)
	for i := 1; i < len(res.history); i++ {
		assert.GreaterOrEqual(t, res.history[i].Best, res.history[i-1].Best, "generation %d", i)
	}
	assert.False(t, res.timedOut)
	assert.Equal(t, 1+16*20, res.evaluations)
}

func TestGenetic_NeverWorseThanFFD(t *testing.T) {
	pieces := randomPieces(8, 9, 5)
	p := newProblem(pieces, 6100, defaultTestSettings())
	ev := defaultEvaluator()

	res := newGeneticOptimizer(p, ev, smallGeneticConfig()).optimize(unbounded())
	ffd := p.runHeuristic(model.StrategyFFD)

	assert.GreaterOrEqual(t, ev.Score(res.plan).Composite, ev.Score(ffd).Composite)
	assert.LessOrEqual(t, res.plan.BarsUsed, ffd.BarsUsed)
	assert.Equal(t, model.StrategyGenetic, res.plan.Strategy)
	assertPlanInvariants(t, res.plan, pieces, defaultTestSettings())
}

func TestGenetic_SameSeedSamePlan(t *testing.T) {
	pieces := randomPieces(4, 7, 4)

	run := func() model.CuttingPlan {
		p := newProblem(pieces, 6100, defaultTestSettings())
		return newGeneticOptimizer(p, defaultEvaluator(), smallGeneticConfig()).optimize(unbounded()).plan
	}

	assert.Equal(t, run(), run())
}

func TestGenetic_AcceleratedMatchesCPU(t *testing.T) {
	pieces := randomPieces(5, 8, 4)
	parallel := func() (accel.Backend, error) { return accel.NewParallelBackend(4) }

	cpu := newGeneticOptimizer(newProblem(pieces, 6100, defaultTestSettings()), defaultEvaluator(), smallGeneticConfig())
	fast := newGeneticOptimizer(newProblem(pieces, 6100, defaultTestSettings()), defaultEvaluator(), smallGeneticConfig(),
		accel.WithAcceleration(true), accel.WithProbe(parallel))

	cpuRes := cpu.optimize(unbounded())
	fastRes := fast.optimize(unbounded())

	assert.Equal(t, "cpu", cpuRes.backend)
	assert.Equal(t, "parallel", fastRes.backend)
	assert.Equal(t, cpuRes.plan, fastRes.plan)
	require.Equal(t, len(cpuRes.history), len(fastRes.history))
	for i := range cpuRes.history {
		assert.InDelta(t, cpuRes.history[i].Best, fastRes.history[i].Best, 1e-9)
		assert.InDelta(t, cpuRes.history[i].Mean, fastRes.history[i].Mean, 1e-9)
	}
}

func TestGenetic_ExpiredBudgetReturnsSeedPlan(t *testing.T) {
	pieces := randomPieces(6, 6, 3)
	p := newProblem(pieces, 6100, defaultTestSettings())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := newGeneticOptimizer(p, defaultEvaluator(), smallGeneticConfig()).optimize(budget{ctx: ctx})

	assert.True(t, res.timedOut)
	assert.Empty(t, res.history)
	assert.Equal(t, planLengths(p.runHeuristic(model.StrategyFFD)), planLengths(res.plan))
}

func TestGenetic_ZeroGenerationsEvaluatesInitialPopulation(t *testing.T) {
	p := newProblem(randomPieces(2, 5, 3), 6100, defaultTestSettings())
	cfg := smallGeneticConfig()
	cfg.Generations = 0

	res := newGeneticOptimizer(p, defaultEvaluator(), cfg).optimize(unbounded())

	require.Len(t, res.history, 1)
	assert.Equal(t, 0, res.history[0].Generation)
	assert.Equal(t, 1+cfg.PopulationSize, res.evaluations)
}

func TestOptimizeGenetic(t *testing.T) {
	pieces := []model.Piece{model.NewPiece("AL", 2000, 3)}

	plan, err := OptimizeGenetic(context.Background(), pieces, 6100, defaultTestSettings(), GeneticConfig{PopulationSize: 8, Generations: 5, MutationRate: 0.1, CrossoverRate: 0.8, Seed: 3})

	require.NoError(t, err)
	assert.Equal(t, 1, plan.BarsUsed)
}

func TestOptimizeGenetic_RejectsBadConfig(t *testing.T) {
	pieces := []model.Piece{model.NewPiece("AL", 2000, 3)}

	_, err := OptimizeGenetic(context.Background(), pieces, 6100, defaultTestSettings(), GeneticConfig{PopulationSize: 1})

	var verr *model.ValidationError
	assert.ErrorAs(t, err, &verr)
}
