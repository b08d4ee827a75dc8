package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/gwdetchar/hveto/internal/domain/segment"
	"github.com/gwdetchar/hveto/internal/domain/trigger"
	"github.com/gwdetchar/hveto/internal/logger"
)

// runState is the two-state machine driving the round loop.
type runState int

const (
	stateRunning runState = iota
	stateStopped
)

// Run executes the hierarchical veto analysis over the provided store.
//
// The store must come from trigger.NewStore so its sequences are already
// validated; Params are validated here before round 1. Rounds execute
// strictly sequentially and mutate the store in place. Cancellation through
// ctx is a normal terminal outcome: the ledger accumulated so far is
// returned with StatusCancelled and a nil error.
func Run(ctx context.Context, store *trigger.Store, params Params) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("validate parameters: %w", err)
	}

	engine, err := engineFor(params.Model)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:             uuid.NewString(),
		Status:            StatusCompleted,
		SegmentsByChannel: make(map[string]segment.List),
	}

	ctx = logger.WithKV(ctx, "run_id", result.RunID)

	// Triggers outside the span carry no live time and would produce
	// segments that clip to nothing, leaving later rounds unable to make
	// progress. They are dropped before round 1.
	if removed := store.Restrict(params.Span); removed > 0 {
		logger.WarnKV(ctx, "Dropped triggers outside the analysis span", "removed", removed)
	}

	var (
		spanDuration   = params.Span.Duration()
		livetime       = spanDuration
		initialPrimary = store.Primary().Len()
		cumulative     segment.List
	)

	for state := stateRunning; state == stateRunning; {
		// Every exit condition of the round loop is enumerated here.
		switch {
		case len(result.Rounds) >= params.MaxRounds:
			logger.InfoKV(ctx, "Maximum round count reached", "max_rounds", params.MaxRounds)

			state = stateStopped

			continue
		case store.Primary().Len() == 0:
			logger.Info(ctx, "Primary set exhausted, stopping")

			state = stateStopped

			continue
		case ctx.Err() != nil:
			result.Status = StatusCancelled

			logger.WarnKV(ctx, "Run cancelled between rounds", "rounds", len(result.Rounds))

			state = stateStopped

			continue
		}

		index := len(result.Rounds) + 1
		logger.DebugKV(ctx, "Processing round", "round", index, "livetime", livetime)

		winner, err := selectWinner(ctx, store, params, engine, livetime)
		if err != nil {
			// The selector only fails on cancellation mid-sweep.
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				result.Status = StatusCancelled

				logger.WarnKV(ctx, "Run cancelled during selection", "round", index)

				state = stateStopped

				continue
			}

			return nil, fmt.Errorf("round %d: %w", index, err)
		}

		if winner == nil {
			logger.Info(ctx, "No viable candidate remains, stopping")

			state = stateStopped

			continue
		}

		if winner.Significance < params.MinimumSignificance {
			logger.InfoKV(ctx, "Maximum significance below stopping point",
				"significance", winner.Significance,
				"minimum", params.MinimumSignificance)

			state = stateStopped

			continue
		}

		round := applyRound(store, params, *winner, &cumulative, index, initialPrimary)
		livetime = spanDuration - cumulative.Duration()
		result.Rounds = append(result.Rounds, round)
		result.SegmentsByChannel[round.Winner.Channel] =
			result.SegmentsByChannel[round.Winner.Channel].Union(round.NewSegments)

		logger.InfoKV(ctx, "Round complete",
			"round", round.Index,
			"winner", round.Winner.Channel,
			"significance", round.Winner.Significance,
			"window", round.Winner.Window,
			"threshold", round.Winner.Threshold,
			"use_percentage", round.UsePercentage(),
			"efficiency", round.Efficiency,
			"cum_efficiency", round.CumulativeEfficiency,
			"deadtime", round.Deadtime)
	}

	result.Segments = cumulative
	result.Livetime = livetime

	return result, nil
}

// applyRound builds the winner's veto segments, prunes every channel, and
// assembles the Round record. The cumulative list is updated in place.
func applyRound(
	store *trigger.Store,
	params Params,
	winner Candidate,
	cumulative *segment.List,
	index int,
	initialPrimary int,
) Round {
	times := store.Aux(winner.Channel).TimesAbove(winner.Threshold)
	coincident := countCoincident(times, store.Primary().Events(), winner.Window)

	segs := segment.FromTriggers(times, winner.Window).ClipTo(params.Span)

	counts := store.Prune(segs)
	*cumulative = cumulative.Union(segs)

	primary := counts[store.Primary().Name()]

	var efficiency, cumEfficiency float64
	if primary.Before > 0 {
		efficiency = float64(primary.Before-primary.After) / float64(primary.Before)
	}

	if initialPrimary > 0 {
		cumEfficiency = float64(initialPrimary-primary.After) / float64(initialPrimary)
	}

	return Round{
		Index:                index,
		Winner:               winner,
		NewSegments:          segs,
		PrimaryBefore:        primary.Before,
		PrimaryAfter:         primary.After,
		UsedAux:              len(times),
		CoincidentAux:        coincident,
		Efficiency:           efficiency,
		CumulativeEfficiency: cumEfficiency,
		Deadtime:             cumulative.Duration() / params.Span.Duration(),
	}
}
