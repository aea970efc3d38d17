package engine

import (
	"context"
	"fmt"
	"runtime"

	"github.com/piwi3910/BarCut/internal/model"
	"golang.org/x/sync/errgroup"
)

// ComparisonScenario is a named request to run side by side with others.
type ComparisonScenario struct {
	Name    string
	Request Request
}

// ComparisonResult holds the response and headline numbers of one scenario.
type ComparisonResult struct {
	Scenario     ComparisonScenario
	Response     Response
	BarsUsed     int
	TotalCuts    int
	WastePercent float64
	Composite    float64
}

// Compare runs every scenario concurrently and returns results in scenario
// order. Scenarios share no state; each gets its own Solve call.
func (s *Service) Compare(ctx context.Context, scenarios []ComparisonScenario) []ComparisonResult {
	results := make([]ComparisonResult, len(scenarios))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, scenario := range scenarios {
		i, scenario := i, scenario
		g.Go(func() error {
			results[i] = summarize(scenario, s.Solve(ctx, scenario.Request))
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func summarize(scenario ComparisonScenario, resp Response) ComparisonResult {
	r := ComparisonResult{Scenario: scenario, Response: resp}
	if !resp.Success {
		return r
	}
	r.BarsUsed = resp.Plan.BarsUsed
	r.TotalCuts = resp.Plan.TotalCuts()
	r.WastePercent = 100.0 - resp.ScoreBreakdown.Efficiency
	r.Composite = resp.ScoreBreakdown.Composite
	return r
}

// BestResult returns the index of the successful result with the highest
// composite score, or -1 when every scenario failed. Earlier scenarios win
// ties.
func BestResult(results []ComparisonResult) int {
	best := -1
	for i, r := range results {
		if !r.Response.Success {
			continue
		}
		if best == -1 || r.Composite > results[best].Composite {
			best = i
		}
	}
	return best
}

// BuildDefaultScenarios generates what-if alternatives around base: every
// other strategy, the exact solver when the instance is small enough, and a
// thinner blade.
func BuildDefaultScenarios(base Request) []ComparisonScenario {
	scenarios := []ComparisonScenario{
		{Name: "Current Settings", Request: base},
	}

	for _, strategy := range []model.Strategy{
		model.StrategyFFD, model.StrategyBFD, model.StrategyNFD, model.StrategyWFD,
		model.StrategyGenetic, model.StrategyAnnealing,
	} {
		if strategy == base.Strategy {
			continue
		}
		alt := base
		alt.Strategy = strategy
		scenarios = append(scenarios, ComparisonScenario{Name: string(strategy), Request: alt})
	}

	limit := DefaultBranchAndBoundConfig().MaxInstances
	if base.StrategyParams.BranchAndBound != nil {
		limit = base.StrategyParams.BranchAndBound.MaxInstances
	}
	if base.Strategy != model.StrategyBranchAndBound && model.TotalQuantity(base.Pieces) <= limit {
		exact := base
		exact.Strategy = model.StrategyBranchAndBound
		scenarios = append(scenarios, ComparisonScenario{Name: string(model.StrategyBranchAndBound), Request: exact})
	}

	// Thinner blade
	if kerf := base.Settings().Kerf; kerf > 1.0 {
		half := kerf * 0.5
		thin := base
		thin.Kerf = &half
		scenarios = append(scenarios, ComparisonScenario{
			Name:    fmt.Sprintf("Kerf %.2fmm (half)", half),
			Request: thin,
		})
	}

	return scenarios
}
