package engine

import (
	"fmt"
	"math"

	"github.com/piwi3910/BarCut/internal/model"
)

// BranchAndBoundConfig bounds the exact search. MaxNodes 0 means no node
// limit.
type BranchAndBoundConfig struct {
	MaxInstances int   `json:"max_instances" yaml:"max_instances"`
	MaxNodes     int64 `json:"max_nodes" yaml:"max_nodes"`
}

func DefaultBranchAndBoundConfig() BranchAndBoundConfig {
	return BranchAndBoundConfig{MaxInstances: 20, MaxNodes: 2_000_000}
}

func (c BranchAndBoundConfig) validate(instances int) error {
	const prefix = "strategy_params.branch_and_bound."
	switch {
	case c.MaxInstances < 0:
		return &model.ValidationError{Field: prefix + "max_instances", Message: "must not be negative"}
	case c.MaxNodes < 0:
		return &model.ValidationError{Field: prefix + "max_nodes", Message: "must not be negative"}
	case instances > c.MaxInstances:
		return &model.ValidationError{
			Field:   "pieces",
			Message: fmt.Sprintf("%d piece instances exceed the exact solver limit of %d", instances, c.MaxInstances),
		}
	}
	return nil
}

// bbEps absorbs drift from repeatedly adding and removing lengths.
const bbEps = 1e-6

// bbCheckMask sets how often the budget is polled.
const bbCheckMask = 1023

type bbResult struct {
	plan     model.CuttingPlan
	proven   bool
	timedOut bool
	nodes    int64
}

// bbEngine minimizes the number of bars. With a fixed instance set the
// used length only depends on the bar count, so fewer bars is less waste.
// Every instance weighs length+kerf and every bar holds usable+kerf.
type bbEngine struct {
	weights  []float64 // in decreasing order
	suffix   []float64 // suffix[i] = sum(weights[i:])
	capacity float64

	free   []float64 // free capacity of open bars
	assign []int

	best       int
	bestAssign []int
	rootBound  int

	nodes    int64
	maxNodes int64
	budget   budget
	aborted  bool
	timedOut bool
}

func newBBEngine(p *problem, cfg BranchAndBoundConfig, b budget, incumbent int) *bbEngine {
	n := len(p.sorted)
	e := &bbEngine{
		weights:  make([]float64, n),
		suffix:   make([]float64, n+1),
		capacity: p.params.UsableLength(p.stockLength) + p.params.Kerf,
		assign:   make([]int, n),
		best:     incumbent,
		maxNodes: cfg.MaxNodes,
		budget:   b,
	}
	for i, idx := range p.sorted {
		e.weights[i] = p.instances[idx].Length + p.params.Kerf
	}
	for i := n - 1; i >= 0; i-- {
		e.suffix[i] = e.suffix[i+1] + e.weights[i]
	}
	e.rootBound = e.lowerBound(0)
	return e
}

// lowerBound is the open bars plus the bars needed for the remaining weight
// that does not fit in their free capacity.
func (e *bbEngine) lowerBound(i int) int {
	var freeSum float64
	for _, f := range e.free {
		freeSum += f
	}
	open := len(e.free)
	extra := e.suffix[i] - freeSum
	if extra <= bbEps {
		return open
	}
	return open + int(math.Ceil(extra/e.capacity-bbEps))
}

func (e *bbEngine) search(i int) {
	if e.aborted || e.best <= e.rootBound {
		return
	}
	e.nodes++
	if e.nodes&bbCheckMask == 0 && e.budget.expired() {
		e.aborted, e.timedOut = true, true
		return
	}
	if e.maxNodes > 0 && e.nodes > e.maxNodes {
		e.aborted = true
		return
	}

	if i == len(e.weights) {
		if len(e.free) < e.best {
			e.best = len(e.free)
			e.bestAssign = append(e.bestAssign[:0], e.assign...)
		}
		return
	}
	if e.lowerBound(i) >= e.best {
		return
	}

	w := e.weights[i]
	tried := make([]float64, 0, len(e.free))
	for b := range e.free {
		if w > e.free[b]+bbEps || seen(tried, e.free[b]) {
			continue
		}
		tried = append(tried, e.free[b])

		e.free[b] -= w
		e.assign[i] = b
		e.search(i + 1)
		e.free[b] += w
		if e.aborted {
			return
		}
	}

	if len(e.free)+1 < e.best {
		e.free = append(e.free, e.capacity-w)
		e.assign[i] = len(e.free) - 1
		e.search(i + 1)
		e.free = e.free[:len(e.free)-1]
	}
}

// seen reports whether a bar with the same free capacity was already tried
// at this node; such bars lead to equivalent subtrees.
func seen(tried []float64, free float64) bool {
	for _, f := range tried {
		if math.Abs(f-free) <= bbEps {
			return true
		}
	}
	return false
}

// solveBranchAndBound searches bar assignments of the decreasing order. The
// incumbent is the first-fit-decreasing plan. Optimality is proven when the
// search completes or the incumbent meets the root lower bound.
func solveBranchAndBound(p *problem, cfg BranchAndBoundConfig, b budget) bbResult {
	incumbent := p.decode(p.sorted, firstFit, model.StrategyBranchAndBound)
	if b.expired() {
		return bbResult{plan: incumbent, timedOut: true}
	}

	e := newBBEngine(p, cfg, b, incumbent.BarsUsed)
	e.search(0)

	res := bbResult{
		plan:     incumbent,
		proven:   !e.aborted,
		timedOut: e.timedOut,
		nodes:    e.nodes,
	}
	if e.bestAssign != nil {
		res.plan = p.planFromAssignment(e.bestAssign)
	}
	return res
}

// planFromAssignment places the decreasing order onto the chosen bars.
func (p *problem) planFromAssignment(assign []int) model.CuttingPlan {
	var bars []model.Stock
	for i, idx := range p.sorted {
		b := assign[i]
		for len(bars) <= b {
			bars = append(bars, p.params.Open(len(bars), p.stockLength))
		}
		bars[b] = p.params.Place(bars[b], p.instances[idx])
	}
	return model.NewCuttingPlan(model.StrategyBranchAndBound, p.stockLength, p.params.Settings(), bars)
}
