package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"github.com/piwi3910/BarCut/internal/accel"
	"github.com/piwi3910/BarCut/internal/model"
	"github.com/piwi3910/BarCut/internal/objective"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// GeneticConfig holds parameters for the genetic algorithm optimizer. Values
// are used as given; start from DefaultGeneticConfig to override a few.
type GeneticConfig struct {
	PopulationSize int     `json:"population_size" yaml:"population_size"`
	Generations    int     `json:"generations" yaml:"generations"`
	MutationRate   float64 `json:"mutation_rate" yaml:"mutation_rate"`
	CrossoverRate  float64 `json:"crossover_rate" yaml:"crossover_rate"`
	Seed           int64   `json:"seed" yaml:"seed"`
}

// DefaultGeneticConfig returns sensible default parameters.
func DefaultGeneticConfig() GeneticConfig {
	return GeneticConfig{
		PopulationSize: 50,
		Generations:    100,
		MutationRate:   0.1,
		CrossoverRate:  0.8,
		Seed:           42,
	}
}

func (c GeneticConfig) validate() error {
	const prefix = "strategy_params.genetic."
	switch {
	case c.PopulationSize < 2:
		return &model.ValidationError{Field: prefix + "population_size", Message: "must be at least 2"}
	case c.Generations < 0:
		return &model.ValidationError{Field: prefix + "generations", Message: "must not be negative"}
	case c.MutationRate < 0 || c.MutationRate > 1:
		return &model.ValidationError{Field: prefix + "mutation_rate", Message: "must be within [0, 1]"}
	case c.CrossoverRate < 0 || c.CrossoverRate > 1:
		return &model.ValidationError{Field: prefix + "crossover_rate", Message: "must be within [0, 1]"}
	}
	return nil
}

// chromosome is a permutation of instance indices plus its composite score.
type chromosome struct {
	genes   []int
	fitness float64
}

func (c chromosome) clone() chromosome {
	genes := make([]int, len(c.genes))
	copy(genes, c.genes)
	return chromosome{genes: genes, fitness: c.fitness}
}

// geneticResult is the best plan found plus run statistics.
type geneticResult struct {
	plan        model.CuttingPlan
	timedOut    bool
	evaluations int
	backend     string
	history     []GenerationStats
}

// geneticOptimizer searches instance orders decoded with first-fit.
type geneticOptimizer struct {
	problem    *problem
	evaluator  objective.Evaluator
	config     GeneticConfig
	dispatcher *accel.Dispatcher
	rng        *rand.Rand
}

func newGeneticOptimizer(p *problem, ev objective.Evaluator, config GeneticConfig, opts ...accel.Option) *geneticOptimizer {
	g := &geneticOptimizer{
		problem:   p,
		evaluator: ev,
		config:    config,
		rng:       rand.New(rand.NewSource(config.Seed)),
	}
	g.dispatcher = accel.NewDispatcher(g.score, opts...)
	return g
}

// score decodes an order and returns its composite. Safe for concurrent use.
func (g *geneticOptimizer) score(genes []int) float64 {
	plan := g.problem.decode(genes, firstFit, model.StrategyGenetic)
	return g.evaluator.Score(plan).Composite
}

// optimize runs the genetic algorithm and returns the best plan seen. The
// first-fit-decreasing order is scored before any generation, so a plan
// exists even when the budget is already spent.
func (g *geneticOptimizer) optimize(b budget) geneticResult {
	seed := chromosome{genes: g.problem.decreasingOrder()}
	seed.fitness = g.score(seed.genes)
	best := seed.clone()

	res := geneticResult{evaluations: 1, backend: g.dispatcher.Backend()}
	population := g.initPopulation(seed)

	for gen := 0; gen <= g.config.Generations; gen++ {
		if b.expired() {
			res.timedOut = true
			break
		}

		scores, err := g.dispatcher.EvaluateBatch(b.ctx, genesOf(population))
		if err != nil {
			res.timedOut = true
			break
		}
		res.evaluations += len(scores)
		for i := range population {
			population[i].fitness = scores[i]
			if scores[i] > best.fitness {
				best = population[i].clone()
			}
		}
		mean, std := stat.MeanStdDev(scores, nil)
		res.history = append(res.history, GenerationStats{
			Generation: gen,
			Best:       best.fitness,
			Mean:       mean,
			StdDev:     std,
		})

		if gen == g.config.Generations {
			break
		}
		population = g.nextGeneration(population, best)
	}

	res.backend = g.dispatcher.Backend()
	res.plan = g.problem.decode(best.genes, firstFit, model.StrategyGenetic)
	return res
}

// initPopulation seeds the population with the decreasing order and fills
// the rest with random permutations.
func (g *geneticOptimizer) initPopulation(seed chromosome) []chromosome {
	n := len(g.problem.instances)
	population := make([]chromosome, g.config.PopulationSize)
	population[0] = seed.clone()
	for i := 1; i < len(population); i++ {
		population[i] = chromosome{genes: g.rng.Perm(n)}
	}
	return population
}

// nextGeneration breeds a new population. The best chromosome seen so far is
// carried unchanged into slot 0.
func (g *geneticOptimizer) nextGeneration(population []chromosome, best chromosome) []chromosome {
	next := make([]chromosome, 0, len(population))
	next = append(next, best.clone())

	cumulative := rouletteWheel(population)
	for len(next) < len(population) {
		p1 := population[spin(g.rng, cumulative)]
		p2 := population[spin(g.rng, cumulative)]

		var child chromosome
		if g.rng.Float64() < g.config.CrossoverRate {
			child = chromosome{genes: pmx(g.rng, p1.genes, p2.genes)}
		} else {
			child = p1.clone()
		}
		if g.rng.Float64() < g.config.MutationRate {
			swapMutate(g.rng, child.genes)
		}
		next = append(next, child)
	}
	return next
}

// rouletteWheel returns cumulative selection weights. Fitness is shifted so
// the worst chromosome keeps a small positive weight.
func rouletteWheel(population []chromosome) []float64 {
	weights := make([]float64, len(population))
	for i, c := range population {
		weights[i] = c.fitness
	}
	low := floats.Min(weights)
	spread := floats.Max(weights) - low
	floor := 1e-9
	if spread > 0 {
		floor = spread * 0.01
	}
	floats.AddConst(floor-low, weights)
	return floats.CumSum(make([]float64, len(weights)), weights)
}

// spin picks an index with probability proportional to its weight.
func spin(rng *rand.Rand, cumulative []float64) int {
	total := cumulative[len(cumulative)-1]
	i := sort.SearchFloat64s(cumulative, rng.Float64()*total)
	if i >= len(cumulative) {
		i = len(cumulative) - 1
	}
	return i
}

// pmx is partially mapped crossover. The child keeps a[lo:hi+1] in place and
// takes the remaining genes from b, relocating conflicts through the mapping
// defined by the two segments.
func pmx(rng *rand.Rand, a, b []int) []int {
	n := len(a)
	child := make([]int, n)
	if n < 2 {
		copy(child, a)
		return child
	}
	for i := range child {
		child[i] = -1
	}

	lo, hi := rng.Intn(n), rng.Intn(n)
	if lo > hi {
		lo, hi = hi, lo
	}

	placed := make([]bool, n)
	posInB := make([]int, n)
	for i, gene := range b {
		posInB[gene] = i
	}
	for i := lo; i <= hi; i++ {
		child[i] = a[i]
		placed[a[i]] = true
	}
	for i := lo; i <= hi; i++ {
		gene := b[i]
		if placed[gene] {
			continue
		}
		j := i
		for j >= lo && j <= hi {
			j = posInB[a[j]]
		}
		child[j] = gene
		placed[gene] = true
	}
	for i := range child {
		if child[i] == -1 {
			child[i] = b[i]
		}
	}
	return child
}

// swapMutate exchanges two distinct positions.
func swapMutate(rng *rand.Rand, genes []int) {
	n := len(genes)
	if n < 2 {
		return
	}
	i := rng.Intn(n)
	j := rng.Intn(n - 1)
	if j >= i {
		j++
	}
	genes[i], genes[j] = genes[j], genes[i]
}

func genesOf(population []chromosome) [][]int {
	out := make([][]int, len(population))
	for i, c := range population {
		out[i] = c.genes
	}
	return out
}

// OptimizeGenetic runs the genetic algorithm with no time budget.
func OptimizeGenetic(ctx context.Context, pieces []model.Piece, stockLength float64, settings model.CutSettings, config GeneticConfig) (model.CuttingPlan, error) {
	if err := model.ValidateInput(pieces, stockLength, settings); err != nil {
		return model.CuttingPlan{}, err
	}
	if err := config.validate(); err != nil {
		return model.CuttingPlan{}, fmt.Errorf("genetic: %w", err)
	}
	g := newGeneticOptimizer(newProblem(pieces, stockLength, settings), objective.New(objective.DefaultRates(), objective.DefaultWeights()), config)
	return g.optimize(budget{ctx: ctx}).plan, nil
}
