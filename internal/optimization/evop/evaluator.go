package evop

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/copyleftdev/evop/internal/optimization"
)

// evaluator computes objective values for a batch of candidates. Values are
// stored by candidate index, so selection order never depends on which
// evaluation finishes first.
type evaluator struct {
	objective optimization.ObjectiveFunction
	workers   int
}

func (e evaluator) evaluate(ctx context.Context, points [][]float64) ([]float64, error) {
	const op = "evop.evaluate"

	values := make([]float64, len(points))
	if e.workers <= 1 || len(points) < 2 {
		for i, p := range points {
			v, err := e.objective(p)
			if err != nil {
				return nil, optimization.ObjectiveFailure(op, p, err)
			}
			values[i] = v
		}
		return values, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, p := range points {
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, err := e.objective(p)
			if err != nil {
				return optimization.ObjectiveFailure(op, p, err)
			}
			values[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return values, nil
}
