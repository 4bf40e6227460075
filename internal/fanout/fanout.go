// Package fanout runs work over a slice with a cap on how much is in flight at once.
package fanout

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultLimit bounds concurrent calls into storage and outbound fetches.
const DefaultLimit = 10

// Each calls fn for every item with at most limit calls running at a time.
//
// The first error cancels the context handed to the remaining calls and is returned.
// A limit below one uses DefaultLimit.
func Each[T any](ctx context.Context, limit int, items []T, fn func(ctx context.Context, item T) error) error {
	if limit < 1 {
		limit = DefaultLimit
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, item := range items {
		if gCtx.Err() != nil {
			break
		}

		g.Go(func() error {
			return fn(gCtx, item)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	return ctx.Err()
}

// Map is Each, keeping the results in the same order as items.
func Map[T, R any](ctx context.Context, limit int, items []T, fn func(ctx context.Context, item T) (R, error)) ([]R, error) {
	results := make([]R, len(items))
	indexes := make([]int, len(items))
	for i := range items {
		indexes[i] = i
	}

	err := Each(ctx, limit, indexes, func(ctx context.Context, i int) error {
		r, err := fn(ctx, items[i])
		if err != nil {
			return err
		}
		results[i] = r

		return nil
	})
	if err != nil {
		return nil, err
	}

	return results, nil
}
