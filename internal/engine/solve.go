package engine

import (
	"context"
	"time"

	"github.com/piwi3910/BarCut/internal/accel"
	"github.com/piwi3910/BarCut/internal/model"
	"go.uber.org/zap"
)

// Option configures a single Solve call.
type Option func(*solveOptions)

type solveOptions struct {
	logger *zap.Logger
	probe  accel.Probe
}

// WithLogger sets the logger for solver diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(o *solveOptions) { o.logger = l }
}

// WithProbe replaces the acceleration capability probe.
func WithProbe(p accel.Probe) Option {
	return func(o *solveOptions) { o.probe = p }
}

// outcome is what a strategy hands back to Solve.
type outcome struct {
	plan     model.CuttingPlan
	timedOut bool
	proven   *bool
	stats    Stats
}

// Solve validates the request, runs the chosen strategy and scores the best
// plan. It never panics on bad input and never returns a partial plan.
func Solve(ctx context.Context, req Request, opts ...Option) Response {
	o := solveOptions{logger: zap.NewNop(), probe: accel.DefaultProbe}
	for _, opt := range opts {
		opt(&o)
	}
	start := time.Now()

	settings := req.Settings()
	if !req.Strategy.Valid() {
		return failure(&model.ValidationError{Field: "strategy", Message: "unknown strategy " + string(req.Strategy)})
	}
	if req.TimeBudgetMs != nil && *req.TimeBudgetMs < 0 {
		return failure(&model.ValidationError{Field: "time_budget_ms", Message: "must not be negative"})
	}
	if err := model.ValidateInput(req.Pieces, req.StockLength, settings); err != nil {
		return failure(err)
	}
	if err := req.Evaluator().Validate(); err != nil {
		return failure(err)
	}
	if err := ctx.Err(); err != nil {
		return failure(err)
	}

	p := newProblem(req.Pieces, req.StockLength, settings)
	b := newBudget(ctx, start, req.TimeBudgetMs)

	out, err := run(p, req, b, o)
	if err != nil {
		return failure(err)
	}
	if out.timedOut {
		o.logger.Info("time budget reached, returning best plan",
			zap.String("strategy", string(req.Strategy)),
			zap.Int("bars", out.plan.BarsUsed))
	}

	score := req.Evaluator().Score(out.plan)
	plan := out.plan.WithCost(score.Cost)
	estimate := model.EstimateBars(req.Pieces, req.StockLength, settings)

	out.stats.Duration = time.Since(start)
	return Response{
		Success:           true,
		Plan:              &plan,
		ScoreBreakdown:    &score,
		ProofOfOptimality: out.proven,
		TimedOut:          out.timedOut,
		BarEstimate:       &estimate,
		Stats:             out.stats,
	}
}

func run(p *problem, req Request, b budget, o solveOptions) (outcome, error) {
	switch req.Strategy {
	case model.StrategyFFD, model.StrategyBFD, model.StrategyNFD, model.StrategyWFD:
		return outcome{plan: p.runHeuristic(req.Strategy)}, nil

	case model.StrategyGenetic:
		cfg := DefaultGeneticConfig()
		if req.StrategyParams.Genetic != nil {
			cfg = *req.StrategyParams.Genetic
		}
		if err := cfg.validate(); err != nil {
			return outcome{}, err
		}
		g := newGeneticOptimizer(p, req.Evaluator(), cfg,
			accel.WithLogger(o.logger),
			accel.WithAcceleration(req.Acceleration),
			accel.WithProbe(o.probe),
		)
		res := g.optimize(b)
		return outcome{
			plan:     res.plan,
			timedOut: res.timedOut,
			stats: Stats{
				Iterations:  len(res.history),
				Evaluations: res.evaluations,
				Backend:     res.backend,
				Generations: res.history,
			},
		}, nil

	case model.StrategyAnnealing:
		cfg := DefaultAnnealingConfig()
		if req.StrategyParams.Annealing != nil {
			cfg = *req.StrategyParams.Annealing
		}
		if err := cfg.validate(); err != nil {
			return outcome{}, err
		}
		res := newAnnealer(p, req.Evaluator(), cfg).optimize(b)
		return outcome{
			plan:     res.plan,
			timedOut: res.timedOut,
			stats:    Stats{Iterations: res.iterations, Evaluations: res.iterations + 1},
		}, nil

	case model.StrategyBranchAndBound:
		cfg := DefaultBranchAndBoundConfig()
		if req.StrategyParams.BranchAndBound != nil {
			cfg = *req.StrategyParams.BranchAndBound
		}
		if err := cfg.validate(len(p.instances)); err != nil {
			return outcome{}, err
		}
		res := solveBranchAndBound(p, cfg, b)
		proven := res.proven
		return outcome{
			plan:     res.plan,
			timedOut: res.timedOut,
			proven:   &proven,
			stats:    Stats{Nodes: res.nodes},
		}, nil
	}
	return outcome{}, &model.ValidationError{Field: "strategy", Message: "unknown strategy " + string(req.Strategy)}
}
