package funcscope

import (
	"context"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MaterializeExitBlocks computes the exit blocks of every function using up
// to workers goroutines, so that later ExitBlocks calls return the memoized
// sets. workers <= 0 uses GOMAXPROCS. Functions only read the shared graph,
// so no coordination between them is needed.
func MaterializeExitBlocks(ctx context.Context, fns []*Function, workers int) error {
	if len(fns) == 0 {
		return nil
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(workers, len(fns)))

	for _, fn := range fns {
		fn := fn
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			fn.ExitBlocks()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	Logger().Debug("materialized exit blocks",
		zap.Int("functions", len(fns)),
		zap.Int("workers", workers))
	return nil
}
