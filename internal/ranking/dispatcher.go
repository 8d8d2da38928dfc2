package ranking

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// dispatch drains the batch queue with a fixed pool of
// credentials × workersPerCredential workers. Worker ordinal o is pinned to
// credential o / workersPerCredential for its whole lifetime, so each
// credential's rate budget is load-balanced across a constant worker subset.
//
// Cancellation stops further claims but already claimed batches finish.
// A panic escaping one worker is converted to an error; the errgroup then
// cancels the shared context so sibling workers stop claiming instead of
// hanging, and the caller still gets whatever was processed.
func (r *Runner) dispatch(ctx context.Context, criterion string, batches []Batch, total int, agg *Aggregator, events *Emitter) (int, error) {
	queue := newBatchQueue(batches)
	workers := len(r.scorers) * r.cfg.WorkersPerCredential

	limiters := make([]*rate.Limiter, len(r.scorers))
	for i := range limiters {
		limiters[i] = rate.NewLimiter(rate.Limit(r.cfg.RequestsPerMinute/60.0), 1)
	}

	var processed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	for ordinal := 0; ordinal < workers; ordinal++ {
		credential := ordinal / r.cfg.WorkersPerCredential
		policy := NewRetryPolicy(r.scorers[credential], r.cfg.MaxRetries, r.cfg.BackoffBase, r.cfg.ScoreTimeout, events, r.logger)

		g.Go(func() (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = fmt.Errorf("worker %d crashed: %v", ordinal, rec)
				}
			}()

			for {
				if gctx.Err() != nil {
					// Cancelled or a sibling crashed: stop claiming, keep
					// what was already accumulated.
					return nil
				}

				batch, ok := queue.Claim()
				if !ok {
					return nil
				}

				if waitErr := limiters[credential].Wait(gctx); waitErr != nil {
					return nil
				}

				r.logger.Debug("batch claimed",
					zap.Int("worker", ordinal),
					zap.Int("credential", credential),
					zap.Int("batch_start", batch.StartIndex),
					zap.Int("batch_size", batch.Len()),
				)

				items := policy.Score(gctx, criterion, batch)
				merged := agg.Collect(ordinal, batch, items)

				count := processed.Add(int64(len(items)))
				events.Partial(merged, int(count), total)
			}
		})
	}

	err := g.Wait()

	return int(processed.Load()), err
}
