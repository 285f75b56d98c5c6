package domain

import (
	"context"

	"golang.org/x/sync/errgroup"

	m "vistet.dev/pkg/devtask/internal/model"
)

// forEachSource applies fn to every source with at most parallel concurrent
// calls. Results keep the order of sources; the first error cancels the rest.
func forEachSource[T any](ctx context.Context, sources []m.SourceFile, parallel int, fn func(context.Context, m.SourceFile) (T, error)) ([]T, error) {
	results := make([]T, len(sources))

	group, groupCtx := errgroup.WithContext(ctx)
	if parallel <= 0 {
		parallel = 1
	}

	group.SetLimit(parallel)

	for i, source := range sources {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			result, err := fn(groupCtx, source)
			if err != nil {
				return err
			}

			results[i] = result

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
