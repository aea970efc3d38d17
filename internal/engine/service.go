package engine

import (
	"context"

	"github.com/google/uuid"
	"github.com/piwi3910/BarCut/internal/accel"
	"github.com/piwi3910/BarCut/internal/metrics"
	"github.com/piwi3910/BarCut/internal/model"
	"go.uber.org/zap"
)

// Service wraps Solve with structured logging and metrics. It holds no
// per-run state and is safe for concurrent use.
type Service struct {
	logger  *zap.Logger
	metrics *metrics.Metrics
	probe   accel.Probe
}

// NewService returns a service. A nil logger or metrics disables them.
func NewService(logger *zap.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{logger: logger, metrics: m, probe: accel.DefaultProbe}
}

// WithProbe returns a copy of the service using probe for acceleration.
func (s *Service) WithProbe(probe accel.Probe) *Service {
	cp := *s
	cp.probe = probe
	return &cp
}

// Solve runs one request under a fresh run id.
func (s *Service) Solve(ctx context.Context, req Request) Response {
	log := s.logger.With(
		zap.String("run_id", uuid.New().String()[:8]),
		zap.String("strategy", string(req.Strategy)),
	)
	log.Debug("solve started",
		zap.Int("pieces", len(req.Pieces)),
		zap.Int("instances", model.TotalQuantity(req.Pieces)),
		zap.Float64("stock_length", req.StockLength))

	resp := Solve(ctx, req, WithLogger(log), WithProbe(s.probe))

	if !resp.Success {
		log.Warn("solve failed",
			zap.String("kind", string(resp.Error.Kind)),
			zap.String("field", resp.Error.Field),
			zap.Error(resp.Err()))
		s.metrics.ObserveSolve(string(req.Strategy), metrics.OutcomeFailed, resp.Stats.Duration, 0)
		return resp
	}

	outcome := metrics.OutcomeSuccess
	if resp.TimedOut {
		outcome = metrics.OutcomeTimedOut
	}
	s.metrics.ObserveSolve(string(req.Strategy), outcome, resp.Stats.Duration, resp.Plan.BarsUsed)
	if req.Strategy == model.StrategyGenetic {
		s.metrics.ObserveBackend(resp.Stats.Backend)
	}

	fields := []zap.Field{
		zap.Int("bars", resp.Plan.BarsUsed),
		zap.Float64("efficiency", resp.ScoreBreakdown.Efficiency),
		zap.Float64("waste", resp.ScoreBreakdown.Waste),
		zap.Float64("cost", resp.ScoreBreakdown.Cost),
		zap.Bool("timed_out", resp.TimedOut),
		zap.Duration("duration", resp.Stats.Duration),
	}
	if resp.ProofOfOptimality != nil {
		fields = append(fields, zap.Bool("optimal", *resp.ProofOfOptimality))
	}
	log.Info("solve finished", fields...)
	return resp
}
