package engine

import (
	"sort"

	"github.com/piwi3910/BarCut/internal/model"
	"github.com/piwi3910/BarCut/internal/packing"
)

// problem is a validated instance: pieces expanded into unit instances.
type problem struct {
	stockLength float64
	params      packing.Params
	instances   []model.Piece // quantity 1 each, input order
	sorted      []int         // instance indices by length descending, stable
}

func newProblem(pieces []model.Piece, stockLength float64, settings model.CutSettings) *problem {
	p := &problem{
		stockLength: stockLength,
		params:      packing.FromSettings(settings),
	}
	for _, piece := range pieces {
		for i := 0; i < piece.Quantity; i++ {
			p.instances = append(p.instances, piece.WithQuantity(1))
		}
	}

	p.sorted = make([]int, len(p.instances))
	for i := range p.sorted {
		p.sorted[i] = i
	}
	sort.SliceStable(p.sorted, func(i, j int) bool {
		return p.instances[p.sorted[i]].Length > p.instances[p.sorted[j]].Length
	})
	return p
}

// decreasingOrder returns a copy of the stable descending order.
func (p *problem) decreasingOrder() []int {
	order := make([]int, len(p.sorted))
	copy(order, p.sorted)
	return order
}

// fitRule picks the open bar for a piece, or -1 to open a new one.
type fitRule func(params packing.Params, bars []model.Stock, length float64) int

// firstFit picks the earliest-opened bar that fits.
func firstFit(params packing.Params, bars []model.Stock, length float64) int {
	for i, b := range bars {
		if params.CanFit(b, length) {
			return i
		}
	}
	return -1
}

// bestFit picks the bar left with the smallest leftover; earliest wins ties.
func bestFit(params packing.Params, bars []model.Stock, length float64) int {
	best := -1
	var bestLeft float64
	for i, b := range bars {
		if !params.CanFit(b, length) {
			continue
		}
		left := params.LeftoverAfter(b, length)
		if best == -1 || left < bestLeft-packing.Epsilon {
			best, bestLeft = i, left
		}
	}
	return best
}

// worstFit picks the bar with the most remaining capacity; earliest wins ties.
func worstFit(params packing.Params, bars []model.Stock, length float64) int {
	best := -1
	var bestFree float64
	for i, b := range bars {
		if !params.CanFit(b, length) {
			continue
		}
		free := packing.RemainingCapacity(b)
		if best == -1 || free > bestFree+packing.Epsilon {
			best, bestFree = i, free
		}
	}
	return best
}

// nextFit only considers the most recently opened bar; earlier bars are closed.
func nextFit(params packing.Params, bars []model.Stock, length float64) int {
	if n := len(bars); n > 0 && params.CanFit(bars[n-1], length) {
		return n - 1
	}
	return -1
}

func ruleFor(s model.Strategy) fitRule {
	switch s {
	case model.StrategyBFD:
		return bestFit
	case model.StrategyNFD:
		return nextFit
	case model.StrategyWFD:
		return worstFit
	default:
		return firstFit
	}
}

// pack assigns instances in the given order using rule.
func (p *problem) pack(order []int, rule fitRule) []model.Stock {
	var bars []model.Stock
	for _, idx := range order {
		piece := p.instances[idx]
		target := rule(p.params, bars, piece.Length)
		if target == -1 {
			bars = append(bars, p.params.Open(len(bars), p.stockLength))
			target = len(bars) - 1
		}
		bars[target] = p.params.Place(bars[target], piece)
	}
	return bars
}

// decode turns an instance order into a plan.
func (p *problem) decode(order []int, rule fitRule, strategy model.Strategy) model.CuttingPlan {
	return model.NewCuttingPlan(strategy, p.stockLength, p.params.Settings(), p.pack(order, rule))
}

// runHeuristic runs one of the four decreasing-order packers.
func (p *problem) runHeuristic(strategy model.Strategy) model.CuttingPlan {
	return p.decode(p.sorted, ruleFor(strategy), strategy)
}

// FirstFitDecreasing packs pieces into the first bar that fits.
func FirstFitDecreasing(pieces []model.Piece, stockLength float64, settings model.CutSettings) model.CuttingPlan {
	return newProblem(pieces, stockLength, settings).runHeuristic(model.StrategyFFD)
}

// BestFitDecreasing packs pieces into the bar left tightest.
func BestFitDecreasing(pieces []model.Piece, stockLength float64, settings model.CutSettings) model.CuttingPlan {
	return newProblem(pieces, stockLength, settings).runHeuristic(model.StrategyBFD)
}

// NextFitDecreasing keeps a single open bar.
func NextFitDecreasing(pieces []model.Piece, stockLength float64, settings model.CutSettings) model.CuttingPlan {
	return newProblem(pieces, stockLength, settings).runHeuristic(model.StrategyNFD)
}

// WorstFitDecreasing packs pieces into the emptiest bar.
func WorstFitDecreasing(pieces []model.Piece, stockLength float64, settings model.CutSettings) model.CuttingPlan {
	return newProblem(pieces, stockLength, settings).runHeuristic(model.StrategyWFD)
}
