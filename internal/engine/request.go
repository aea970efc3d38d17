package engine

import (
	"context"
	"errors"
	"time"

	"github.com/piwi3910/BarCut/internal/model"
	"github.com/piwi3910/BarCut/internal/objective"
)

// Request is the input of one solving run. Optional fields left nil take the
// defaults from model.DefaultSettings, objective.DefaultRates and
// objective.DefaultWeights.
type Request struct {
	Pieces         []model.Piece        `json:"pieces" yaml:"pieces"`
	StockLength    float64              `json:"stock_length" yaml:"stock_length"`
	Kerf           *float64             `json:"kerf,omitempty" yaml:"kerf,omitempty"`
	SafetyMargins  *model.SafetyMargins `json:"safety_margins,omitempty" yaml:"safety_margins,omitempty"`
	ScrapThreshold *float64             `json:"scrap_threshold,omitempty" yaml:"scrap_threshold,omitempty"`
	Strategy       model.Strategy       `json:"strategy" yaml:"strategy"`
	StrategyParams StrategyParams       `json:"strategy_params,omitempty" yaml:"strategy_params,omitempty"`
	// TimeBudgetMs bounds wall-clock time. Nil means unbounded; zero expires
	// immediately and yields the heuristic seed plan.
	TimeBudgetMs *int64               `json:"time_budget_ms,omitempty" yaml:"time_budget_ms,omitempty"`
	Rates        *objective.CostRates `json:"rates,omitempty" yaml:"rates,omitempty"`
	Weights      *objective.Weights   `json:"weights,omitempty" yaml:"weights,omitempty"`
	Acceleration bool                 `json:"acceleration,omitempty" yaml:"acceleration,omitempty"`
}

// StrategyParams carries per-strategy tuning. A nil block runs the strategy
// with its defaults; a set block is used as given.
type StrategyParams struct {
	Genetic        *GeneticConfig        `json:"genetic,omitempty" yaml:"genetic,omitempty"`
	Annealing      *AnnealingConfig      `json:"annealing,omitempty" yaml:"annealing,omitempty"`
	BranchAndBound *BranchAndBoundConfig `json:"branch_and_bound,omitempty" yaml:"branch_and_bound,omitempty"`
}

// Settings resolves the physical parameters of the run.
func (r Request) Settings() model.CutSettings {
	s := model.DefaultSettings()
	if r.Kerf != nil {
		s.Kerf = *r.Kerf
	}
	if r.SafetyMargins != nil {
		s.Margins = *r.SafetyMargins
	}
	if r.ScrapThreshold != nil {
		s.ScrapThreshold = *r.ScrapThreshold
	}
	return s
}

// Evaluator resolves the scoring rates and weights of the run.
func (r Request) Evaluator() objective.Evaluator {
	rates := objective.DefaultRates()
	if r.Rates != nil {
		rates = *r.Rates
	}
	weights := objective.DefaultWeights()
	if r.Weights != nil {
		weights = *r.Weights
	}
	return objective.New(rates, weights)
}

// ErrorKind classifies a failed response.
type ErrorKind string

const (
	ErrorValidation ErrorKind = "VALIDATION"
	ErrorInfeasible ErrorKind = "INFEASIBLE"
	ErrorCancelled  ErrorKind = "CANCELLED"
)

// Error describes why a run produced no plan.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
}

// GenerationStats summarizes one evaluated genetic-algorithm population.
type GenerationStats struct {
	Generation int     `json:"generation"`
	Best       float64 `json:"best"` // best composite seen so far
	Mean       float64 `json:"mean"`
	StdDev     float64 `json:"std_dev"`
}

// Stats reports the work a run performed.
type Stats struct {
	Duration time.Duration `json:"duration"`
	// Iterations counts completed generations for the genetic strategy and
	// proposed moves for annealing.
	Iterations  int               `json:"iterations,omitempty"`
	Evaluations int               `json:"evaluations,omitempty"`
	Nodes       int64             `json:"nodes,omitempty"`
	Backend     string            `json:"backend,omitempty"`
	Generations []GenerationStats `json:"generations,omitempty"`
}

// Response is the output of one solving run. Exactly one of Plan and Error
// is set.
type Response struct {
	Success           bool               `json:"success"`
	Plan              *model.CuttingPlan `json:"plan,omitempty"`
	ScoreBreakdown    *objective.Score   `json:"score_breakdown,omitempty"`
	Error             *Error             `json:"error,omitempty"`
	ProofOfOptimality *bool              `json:"proof_of_optimality,omitempty"`
	TimedOut          bool               `json:"timed_out,omitempty"`
	BarEstimate       *model.BarEstimate `json:"bar_estimate,omitempty"`
	Stats             Stats              `json:"stats"`

	err error
}

// Err returns the typed error behind a failed response, or nil.
func (r Response) Err() error {
	return r.err
}

func failure(err error) Response {
	resp := Response{err: err, Error: &Error{Message: err.Error()}}

	var verr *model.ValidationError
	var inf *model.InfeasibleError
	switch {
	case errors.As(err, &verr):
		resp.Error.Kind = ErrorValidation
		resp.Error.Field = verr.Field
	case errors.As(err, &inf):
		resp.Error.Kind = ErrorInfeasible
		resp.Error.Field = inf.Field
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		resp.Error.Kind = ErrorCancelled
	default:
		resp.Error.Kind = ErrorValidation
	}
	return resp
}

// budget is the cooperative stop condition shared by iterative solvers.
type budget struct {
	ctx         context.Context
	deadline    time.Time
	hasDeadline bool
}

func newBudget(ctx context.Context, start time.Time, ms *int64) budget {
	b := budget{ctx: ctx}
	if ms != nil {
		b.deadline = start.Add(time.Duration(*ms) * time.Millisecond)
		b.hasDeadline = true
	}
	return b
}

// expired reports whether the run must stop and return its best plan.
func (b budget) expired() bool {
	if b.ctx.Err() != nil {
		return true
	}
	return b.hasDeadline && !time.Now().Before(b.deadline)
}
