// Package evop implements EVOP (Evolutionary Operation), a derivative-free
// hypercube pattern search.
//
// Each iteration evaluates the objective at the 2^N corners of the hypercube
// around the current center, and at the center itself. If a corner is better
// the center moves there; otherwise every half-width is halved. The search
// stops once the norm of the half-width vector drops below the tolerance.
package evop

import (
	"context"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/copyleftdev/evop/internal/optimization"
	"github.com/copyleftdev/evop/internal/optimization/hypercube"
	"github.com/copyleftdev/evop/internal/optimization/vecmath"
)

const (
	// noImprovementTolerance decides whether the best candidate is the
	// current center. It is independent of the caller's tolerance.
	noImprovementTolerance = 1e-8

	// shrinkFactor divides the step vector when no candidate improves.
	shrinkFactor = 2.0
)

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithLogger sets the logger used for iteration traces.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Optimizer) {
		if logger != nil {
			o.logger = logger.Named("evop")
		}
	}
}

// WithIterationHook registers fn to be called with every recorded iteration,
// in order, from the goroutine running Optimize.
func WithIterationHook(fn func(optimization.IterationRecord)) Option {
	return func(o *Optimizer) {
		o.hook = fn
	}
}

// Optimizer runs the EVOP search. It is safe to query GetBestSolution and
// GetHistory while Optimize is running.
type Optimizer struct {
	config optimization.OptimizerConfig
	logger *zap.Logger
	hook   func(optimization.IterationRecord)

	mu           sync.RWMutex
	bestSolution *optimization.Solution
	history      []optimization.IterationRecord
	cancel       context.CancelFunc
}

// NewOptimizer creates an EVOP optimizer for config. The configuration is
// validated when Optimize is called.
func NewOptimizer(config optimization.OptimizerConfig, opts ...Option) *Optimizer {
	o := &Optimizer{
		config: config,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Minimize is a convenience wrapper that runs a single EVOP search from
// center with initial half-widths step until the step norm drops below eps.
func Minimize(ctx context.Context, objective optimization.ObjectiveFunction, center, step []float64, eps float64, opts ...Option) (*optimization.OptimizationResult, error) {
	o := NewOptimizer(optimization.OptimizerConfig{
		Objective: objective,
		Center:    center,
		Step:      step,
		Tolerance: eps,
	}, opts...)
	return o.Optimize(ctx, optimization.OptimizerConfig{})
}

// Optimize runs the search. A config with a non-nil Objective replaces the
// one given to NewOptimizer. The caller's center and step slices are never
// modified.
//
// An objective failure aborts the run and no partial result is returned;
// the history recorded so far is still available through GetHistory.
func (o *Optimizer) Optimize(ctx context.Context, config optimization.OptimizerConfig) (*optimization.OptimizationResult, error) {
	if config.Objective != nil {
		o.config = config
	}
	cfg := o.config
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	o.cancel = cancel
	o.bestSolution = nil
	o.history = make([]optimization.IterationRecord, 0, 64)
	o.mu.Unlock()
	defer cancel()

	if cfg.Tolerance <= 0 {
		o.logger.Warn("non-positive tolerance, search ends at the iteration limit",
			zap.Float64("tolerance", cfg.Tolerance),
			zap.Int("max_iterations", cfg.MaxIterations),
		)
	}

	x0 := vecmath.Clone(cfg.Center)
	delta := vecmath.Clone(cfg.Step)
	eval := evaluator{objective: cfg.Objective, workers: cfg.Workers}
	evaluations := 0
	converged := false

	for it := 0; ; it++ {
		norm := vecmath.Norm(delta)
		if norm < cfg.Tolerance {
			converged = true
			break
		}
		if cfg.MaxIterations > 0 && it >= cfg.MaxIterations {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		vertices, err := hypercube.Vertices(x0, delta)
		if err != nil {
			return nil, err
		}
		// The center goes last, so an exact tie is won by a corner.
		candidates := append(vertices, x0)

		values, err := eval.evaluate(ctx, candidates)
		if err != nil {
			return nil, err
		}
		evaluations += len(candidates)

		best, bestValue := selectBest(candidates, values)

		// A corner that overflowed is never a move target.
		same := !vecmath.IsFinite(best)
		if !same {
			same, err = vecmath.ApproxEqual(best, x0, noImprovementTolerance)
			if err != nil {
				return nil, err
			}
		}

		record := optimization.IterationRecord{Iteration: it}
		if same {
			if err := vecmath.DivideInPlace(delta, shrinkFactor); err != nil {
				return nil, err
			}
			record.Value = values[len(values)-1]
		} else {
			x0 = best
			record.Value = bestValue
			record.Moved = true
		}
		record.Point = vecmath.Clone(x0)
		record.StepNorm = vecmath.Norm(delta)

		o.record(record)

		o.logger.Debug("iteration",
			zap.Int("iteration", it),
			zap.Float64s("center", record.Point),
			zap.Float64("value", record.Value),
			zap.Float64("step_norm", record.StepNorm),
			zap.Bool("moved", record.Moved),
		)
	}

	o.mu.RLock()
	defer o.mu.RUnlock()

	result := &optimization.OptimizationResult{
		History:       append([]optimization.IterationRecord(nil), o.history...),
		Iterations:    len(o.history),
		Evaluations:   evaluations,
		FinalStepNorm: vecmath.Norm(delta),
		Converged:     converged,
	}
	if o.bestSolution != nil {
		result.BestSolution = &optimization.Solution{
			Parameters: vecmath.Clone(o.bestSolution.Parameters),
			Value:      o.bestSolution.Value,
		}
	}

	o.logger.Debug("search finished",
		zap.Int("iterations", result.Iterations),
		zap.Int("evaluations", result.Evaluations),
		zap.Bool("converged", result.Converged),
	)
	return result, nil
}

// GetBestSolution returns the most recent center, or nil before the first
// iteration completes.
func (o *Optimizer) GetBestSolution() *optimization.Solution {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.bestSolution == nil {
		return nil
	}
	return &optimization.Solution{
		Parameters: vecmath.Clone(o.bestSolution.Parameters),
		Value:      o.bestSolution.Value,
	}
}

// GetHistory returns a copy of the iterations recorded so far.
func (o *Optimizer) GetHistory() []optimization.IterationRecord {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]optimization.IterationRecord(nil), o.history...)
}

// Stop cancels a running Optimize call.
func (o *Optimizer) Stop() {
	o.mu.RLock()
	cancel := o.cancel
	o.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
}

func (o *Optimizer) record(r optimization.IterationRecord) {
	o.mu.Lock()
	o.history = append(o.history, r)
	o.bestSolution = r.Solution()
	o.mu.Unlock()

	if o.hook != nil {
		o.hook(r)
	}
}

// selectBest scans candidates in order and keeps the first strictly smaller
// value. If no value is below +Inf (all infinite or NaN) the last candidate,
// the center, is kept.
func selectBest(candidates [][]float64, values []float64) ([]float64, float64) {
	bestIdx := len(candidates) - 1
	lowest := math.Inf(1)
	for i, v := range values {
		if v < lowest {
			lowest = v
			bestIdx = i
		}
	}
	return candidates[bestIdx], values[bestIdx]
}

// Validate checks cfg without running anything. Optimize calls it before
// the first objective evaluation.
func Validate(cfg optimization.OptimizerConfig) error {
	const op = "evop.validate"

	if cfg.Objective == nil {
		return optimization.WrapError(optimization.ErrNilObjective, "no objective").WithOperation(op)
	}
	if len(cfg.Center) != len(cfg.Step) {
		return optimization.DimensionMismatch(op, len(cfg.Step), len(cfg.Center))
	}
	if len(cfg.Center) > hypercube.MaxDimension {
		return optimization.NewErrorf("dimension %d exceeds maximum %d", len(cfg.Center), hypercube.MaxDimension).WithOperation(op)
	}
	for i, c := range cfg.Center {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return optimization.WrapErrorf(optimization.ErrInvalidCenter, "center[%d] = %v", i, c).WithOperation(op)
		}
	}
	for i, s := range cfg.Step {
		if s < 0 || math.IsNaN(s) || math.IsInf(s, 0) {
			return optimization.WrapErrorf(optimization.ErrInvalidStep, "step[%d] = %v", i, s).WithOperation(op)
		}
	}
	if math.IsNaN(cfg.Tolerance) || (cfg.Tolerance <= 0 && cfg.MaxIterations <= 0) {
		return optimization.WrapErrorf(optimization.ErrInvalidTolerance, "tolerance %v, max iterations %d", cfg.Tolerance, cfg.MaxIterations).WithOperation(op)
	}
	if cfg.MaxIterations < 0 {
		return optimization.NewErrorf("max iterations must not be negative, got %d", cfg.MaxIterations).WithOperation(op)
	}
	return nil
}
