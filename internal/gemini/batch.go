package gemini

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// generateBatch runs one image request per variant with at most limit in
// flight. Any failure fails the batch; variants that came back without an
// image are skipped. Results keep variant order.
func generateBatch(ctx context.Context, n, limit int, gen func(ctx context.Context, i int) ([]string, error)) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = n
	}

	results := make([][]string, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			images, err := gen(gctx, i)
			if err != nil {
				return err
			}
			results[i] = images
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []string
	for _, images := range results {
		if len(images) > 0 {
			out = append(out, images[0])
		}
	}
	return out, nil
}
