// Package collect pulls indicator readings from external sources. These
// are thin I/O adapters: a source that fails or omits indicators simply
// contributes nothing, and the staleness rules turn the absence into a
// forced red downstream.
package collect

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/watchtower/internal/model"
)

// Source produces a batch of readings keyed by indicator name.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (map[string]*model.Reading, error)
}

// Gather fetches all sources concurrently and merges their readings.
// Later sources win on duplicate indicator names. Source failures are
// logged and skipped rather than failing the poll; missing data is the
// staleness evaluator's problem, not ours.
func Gather(ctx context.Context, sources []Source) map[string]*model.Reading {
	merged := make(map[string]*model.Reading)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range sources {
		g.Go(func() error {
			readings, err := src.Fetch(gctx)
			if err != nil {
				zap.L().Warn("collect: source failed",
					zap.String("source", src.Name()),
					zap.Error(err),
				)
				return nil
			}
			mu.Lock()
			for name, r := range readings {
				merged[name] = r
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // goroutines never return errors; failures are logged above

	return merged
}
