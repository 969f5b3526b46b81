package pipeline

import (
	"context"

	"github.com/clipmind/video-report/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// fanOut runs fn once per item under sem, preserving the input order of
// items in the returned slice regardless of completion order. A failing
// item's slot keeps placeholder rather than aborting the other items or
// the fan-out as a whole, per the Open Question decision recorded in
// DESIGN.md: failed fan-out tasks are substituted in position, never
// dropped, so downstream stages can rely on positional alignment against
// the input.
func fanOut[T any, R any](ctx context.Context, sem *semaphore.Weighted, label string, items []T, placeholder R, fn func(context.Context, int, T) (R, error)) []R {
	results := make([]R, len(items))
	for i := range results {
		results[i] = placeholder
	}
	if len(items) == 0 {
		return results
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				log.LogNoRequestID("fan-out item could not acquire semaphore, leaving placeholder", "stage", label, "index", i, "err", err)
				return nil
			}
			defer sem.Release(1)

			r, err := fn(gctx, i, item)
			if err != nil {
				log.LogNoRequestID("fan-out item failed, leaving placeholder", "stage", label, "index", i, "err", err)
				return nil
			}
			results[i] = r
			return nil
		})
	}
	_ = g.Wait()
	return results
}
