package resolver

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one request resolved by ResolveEach.
type Result struct {
	Matches []Match
	Err     error
}

// ResolveEach resolves independent requests concurrently, running at most limit at a
// time (no limit when limit <= 0). Results are returned in request order and carry
// their own errors; the returned error is only set when ctx ends before every
// request ran.
func (r *Resolver) ResolveEach(ctx context.Context, requests []Request, limit int) ([]Result, error) {
	results := make([]Result, len(requests))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, req := range requests {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = Result{Err: err}
				return err
			}
			matches, err := r.Resolve(gctx, req)
			results[i] = Result{Matches: matches, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
