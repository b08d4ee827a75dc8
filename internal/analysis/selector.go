package analysis

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/gwdetchar/hveto/internal/domain/trigger"
)

// selectWinner evaluates every (channel, window, threshold) combination
// against the current primary set and returns the best candidate under the
// deterministic total order, or nil when no candidate shows an excess of
// observed over expected coincidences.
//
// Channels are fanned out across workers; each evaluation reads only the
// immutable pre-round snapshot of the store, and the reduction applies
// Candidate.outranks so the result is identical whether the grid is swept
// serially or in parallel. A context cancellation surfaces as the returned
// error and leaves no partial state behind.
func selectWinner(
	ctx context.Context,
	store *trigger.Store,
	params Params,
	engine Engine,
	livetime float64,
) (*Candidate, error) {
	var (
		mu   sync.Mutex
		best *Candidate
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(params.workers())

	primary := store.Primary()

	for _, name := range store.Channels() {
		name := name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			channelBest := sweepChannel(primary, store.Aux(name), params, engine, livetime)
			if channelBest == nil {
				return nil
			}

			mu.Lock()
			if best == nil || channelBest.outranks(*best) {
				best = channelBest
			}
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return best, nil
}

// sweepChannel evaluates the full parameter grid for one auxiliary channel
// and returns its best viable candidate, or nil when none has an excess.
func sweepChannel(
	primary, aux *trigger.Set,
	params Params,
	engine Engine,
	livetime float64,
) *Candidate {
	var best *Candidate

	for _, window := range params.Windows {
		for _, threshold := range params.Thresholds {
			cand := engine.Evaluate(primary, aux, window, threshold, livetime)

			// No excess correlation means the candidate cannot win.
			if float64(cand.Observed) <= cand.Expected {
				continue
			}

			if best == nil || cand.outranks(*best) {
				c := cand
				best = &c
			}
		}
	}

	return best
}
