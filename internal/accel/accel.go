// Package accel evaluates genetic-algorithm populations in batch. An
// accelerated backend is used when the capability probe succeeds; otherwise,
// or when it fails at run time, evaluation falls back to the CPU backend.
package accel

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrAccelerationUnavailable is returned by probes and backends that cannot
// serve a batch. The dispatcher never surfaces it.
var ErrAccelerationUnavailable = errors.New("acceleration unavailable")

// ScoreFunc scores one chromosome. It must be safe for concurrent use.
type ScoreFunc func(chromosome []int) float64

// Backend evaluates a whole population. Scores are returned by chromosome
// index, never by completion order.
type Backend interface {
	Name() string
	EvaluateBatch(ctx context.Context, population [][]int, score ScoreFunc) ([]float64, error)
}

// CPUBackend evaluates chromosomes sequentially on the calling goroutine.
type CPUBackend struct{}

func (CPUBackend) Name() string { return "cpu" }

func (CPUBackend) EvaluateBatch(ctx context.Context, population [][]int, score ScoreFunc) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	scores := make([]float64, len(population))
	for i, c := range population {
		scores[i] = score(c)
	}
	return scores, nil
}

// ParallelBackend fans a population out over all available processors.
type ParallelBackend struct {
	workers int
}

// NewParallelBackend returns a backend using the given number of workers, or
// GOMAXPROCS when workers is zero. A single processor offers nothing to
// accelerate and yields ErrAccelerationUnavailable.
func NewParallelBackend(workers int) (*ParallelBackend, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers < 2 {
		return nil, fmt.Errorf("%w: %d processor", ErrAccelerationUnavailable, workers)
	}
	return &ParallelBackend{workers: workers}, nil
}

func (b *ParallelBackend) Name() string { return "parallel" }

// Workers returns the fan-out width.
func (b *ParallelBackend) Workers() int { return b.workers }

func (b *ParallelBackend) EvaluateBatch(ctx context.Context, population [][]int, score ScoreFunc) ([]float64, error) {
	scores := make([]float64, len(population))
	n := len(population)
	if n == 0 {
		return scores, nil
	}

	chunk := (n + b.workers - 1) / b.workers
	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < n; start += chunk {
		start := start
		end := min(start+chunk, n)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				scores[i] = score(population[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}

// Probe checks for an accelerated backend at run time.
type Probe func() (Backend, error)

// DefaultProbe builds a ParallelBackend over GOMAXPROCS.
func DefaultProbe() (Backend, error) {
	return NewParallelBackend(0)
}

// Dispatcher routes batch evaluation to the best available backend.
type Dispatcher struct {
	score    ScoreFunc
	logger   *zap.Logger
	cpu      Backend
	accel    Backend
	fellBack atomic.Bool
}

// Option configures a Dispatcher.
type Option func(*dispatcherOptions)

type dispatcherOptions struct {
	logger      *zap.Logger
	accelerated bool
	probe       Probe
}

// WithLogger sets the logger used to report fallbacks.
func WithLogger(l *zap.Logger) Option {
	return func(o *dispatcherOptions) { o.logger = l }
}

// WithAcceleration enables probing for an accelerated backend.
func WithAcceleration(enabled bool) Option {
	return func(o *dispatcherOptions) { o.accelerated = enabled }
}

// WithProbe replaces DefaultProbe.
func WithProbe(p Probe) Option {
	return func(o *dispatcherOptions) { o.probe = p }
}

// NewDispatcher returns a dispatcher scoring chromosomes with score.
func NewDispatcher(score ScoreFunc, opts ...Option) *Dispatcher {
	o := dispatcherOptions{logger: zap.NewNop(), probe: DefaultProbe}
	for _, opt := range opts {
		opt(&o)
	}

	d := &Dispatcher{score: score, logger: o.logger, cpu: CPUBackend{}}
	if !o.accelerated {
		return d
	}
	backend, err := o.probe()
	if err != nil {
		d.logger.Warn("accelerated evaluation unavailable, using cpu", zap.Error(err))
		return d
	}
	d.accel = backend
	return d
}

// Backend names the backend serving the next batch.
func (d *Dispatcher) Backend() string {
	if d.accel != nil && !d.fellBack.Load() {
		return d.accel.Name()
	}
	return d.cpu.Name()
}

// EvaluateBatch scores every chromosome. An accelerated failure other than
// cancellation is logged once and the batch is re-run on the CPU backend.
func (d *Dispatcher) EvaluateBatch(ctx context.Context, population [][]int) ([]float64, error) {
	if d.accel != nil && !d.fellBack.Load() {
		scores, err := d.accel.EvaluateBatch(ctx, population, d.score)
		if err == nil && len(scores) == len(population) {
			return scores, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err == nil {
			err = fmt.Errorf("%w: %d scores for %d chromosomes", ErrAccelerationUnavailable, len(scores), len(population))
		}
		if d.fellBack.CompareAndSwap(false, true) {
			d.logger.Warn("accelerated evaluation failed, falling back to cpu",
				zap.String("backend", d.accel.Name()), zap.Error(err))
		}
	}
	return d.cpu.EvaluateBatch(ctx, population, d.score)
}
