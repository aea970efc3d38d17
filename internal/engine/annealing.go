package engine

import (
	"math"
	"math/rand"

	"github.com/piwi3910/BarCut/internal/model"
	"github.com/piwi3910/BarCut/internal/objective"
)

// AnnealingConfig holds parameters for simulated annealing.
type AnnealingConfig struct {
	InitialTemperature float64 `json:"initial_temperature" yaml:"initial_temperature"`
	CoolingRate        float64 `json:"cooling_rate" yaml:"cooling_rate"`
	MinTemperature     float64 `json:"min_temperature" yaml:"min_temperature"`
	Iterations         int     `json:"iterations" yaml:"iterations"`
	Seed               int64   `json:"seed" yaml:"seed"`
}

func DefaultAnnealingConfig() AnnealingConfig {
	return AnnealingConfig{
		InitialTemperature: 10,
		CoolingRate:        0.995,
		MinTemperature:     1e-3,
		Iterations:         5000,
		Seed:               42,
	}
}

func (c AnnealingConfig) validate() error {
	const prefix = "strategy_params.annealing."
	switch {
	case c.InitialTemperature <= 0:
		return &model.ValidationError{Field: prefix + "initial_temperature", Message: "must be positive"}
	case c.CoolingRate <= 0 || c.CoolingRate >= 1:
		return &model.ValidationError{Field: prefix + "cooling_rate", Message: "must be within (0, 1)"}
	case c.MinTemperature <= 0 || c.MinTemperature >= c.InitialTemperature:
		return &model.ValidationError{Field: prefix + "min_temperature", Message: "must be positive and below initial_temperature"}
	case c.Iterations < 0:
		return &model.ValidationError{Field: prefix + "iterations", Message: "must not be negative"}
	}
	return nil
}

type annealingResult struct {
	plan       model.CuttingPlan
	timedOut   bool
	iterations int
	accepted   int
}

// annealer walks the permutation space by pairwise swaps. Cost is the
// negated composite score.
type annealer struct {
	problem   *problem
	evaluator objective.Evaluator
	config    AnnealingConfig
	rng       *rand.Rand
}

func newAnnealer(p *problem, ev objective.Evaluator, config AnnealingConfig) *annealer {
	return &annealer{
		problem:   p,
		evaluator: ev,
		config:    config,
		rng:       rand.New(rand.NewSource(config.Seed)),
	}
}

func (a *annealer) cost(order []int) float64 {
	return -a.evaluator.Score(a.problem.decode(order, firstFit, model.StrategyAnnealing)).Composite
}

// optimize starts from the decreasing order and returns the best order seen,
// which may be better than the final state.
func (a *annealer) optimize(b budget) annealingResult {
	current := a.problem.decreasingOrder()
	currentCost := a.cost(current)
	best := append([]int(nil), current...)
	bestCost := currentCost

	var res annealingResult
	n := len(current)
	temperature := a.config.InitialTemperature

	for it := 0; it < a.config.Iterations && n >= 2; it++ {
		if b.expired() {
			res.timedOut = true
			break
		}
		if temperature < a.config.MinTemperature {
			break
		}
		res.iterations++

		i := a.rng.Intn(n)
		j := a.rng.Intn(n - 1)
		if j >= i {
			j++
		}
		current[i], current[j] = current[j], current[i]
		candidate := a.cost(current)
		delta := candidate - currentCost

		if delta <= 0 || a.rng.Float64() < math.Exp(-delta/temperature) {
			currentCost = candidate
			res.accepted++
			if currentCost < bestCost {
				bestCost = currentCost
				copy(best, current)
			}
		} else {
			current[i], current[j] = current[j], current[i]
		}
		temperature *= a.config.CoolingRate
	}

	res.plan = a.problem.decode(best, firstFit, model.StrategyAnnealing)
	return res
}
