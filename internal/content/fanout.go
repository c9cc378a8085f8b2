package content

import (
	"context"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// FetchAll calls fetch once per descriptor concurrently and joins before
// flattening. Results keep descriptor order, so the output does not depend on
// which call finished first. limit bounds the number of calls in flight; zero
// or less means unbounded.
func FetchAll[D any](ctx context.Context, descriptors []D, limit int, fetch func(context.Context, D) []Item) []Item {
	results := make([][]Item, len(descriptors))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, d := range descriptors {
		g.Go(func() error {
			results[i] = fetch(ctx, d)
			return nil
		})
	}
	_ = g.Wait() // fetch never fails; faults are absorbed per descriptor

	return lo.Flatten(results)
}
