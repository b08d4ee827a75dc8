package analysis

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gwdetchar/hveto/internal/domain/segment"
	"github.com/gwdetchar/hveto/internal/domain/trigger"
)

// testParams returns a small valid parameter set shared by the run tests.
func testParams() Params {
	return Params{
		Windows:             []float64{1.0},
		Thresholds:          []float64{0},
		MinimumSignificance: 0,
		MaxRounds:           20,
		Span:                segment.Segment{Start: 0, End: 100},
	}
}

// TestRunEndToEnd drives the canonical one-winner scenario: one auxiliary
// channel vetoes two of three primary triggers in round one and the run
// stops cleanly when nothing viable remains.
func TestRunEndToEnd(t *testing.T) {
	t.Parallel()

	st, err := trigger.NewStore("X1:MAIN",
		[]trigger.Trigger{
			{Time: 10, Statistic: 8},
			{Time: 20, Statistic: 8},
			{Time: 30, Statistic: 8},
		},
		map[string][]trigger.Trigger{
			"X1:AUX-A": {{Time: 10.1, Statistic: 5}, {Time: 20.2, Statistic: 5}},
		})
	require.NoError(t, err)

	res, err := Run(context.Background(), st, testParams())
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, res.Status)
	require.NotEmpty(t, res.RunID)
	require.Len(t, res.Rounds, 1)

	round := res.Rounds[0]
	require.Equal(t, 1, round.Index)
	require.Equal(t, "X1:AUX-A", round.Winner.Channel)
	require.Equal(t, 2, round.Winner.Observed)
	require.Equal(t, 3, round.PrimaryBefore)
	require.Equal(t, 1, round.PrimaryAfter)
	require.Equal(t, 2, round.UsedAux)
	require.Equal(t, 2, round.CoincidentAux)
	require.InDelta(t, 1.0, round.UsePercentage(), 1e-12)
	require.InDelta(t, 2.0/3.0, round.Efficiency, 1e-12)

	require.Len(t, round.NewSegments, 2)
	require.InDelta(t, 9.6, round.NewSegments[0].Start, 1e-9)
	require.InDelta(t, 10.6, round.NewSegments[0].End, 1e-9)
	require.InDelta(t, 19.7, round.NewSegments[1].Start, 1e-9)
	require.InDelta(t, 20.7, round.NewSegments[1].End, 1e-9)

	// Primary pruned to the lone survivor, auxiliary exhausted.
	require.Equal(t, []float64{30}, st.Primary().TimesAbove(0))
	require.Equal(t, 0, st.Aux("X1:AUX-A").Len())

	require.Equal(t, res.Segments, res.SegmentsByChannel["X1:AUX-A"])

	require.InDelta(t, 2.0/100.0, round.Deadtime, 1e-9)
	require.InDelta(t, 2.0/100.0, res.Deadtime(segment.Segment{Start: 0, End: 100}), 1e-9)
	require.InDelta(t, 98.0, res.Livetime, 1e-9)
}

// TestRunStopImmediately verifies MaxRounds of zero yields an empty ledger
// and leaves the primary set untouched.
func TestRunStopImmediately(t *testing.T) {
	t.Parallel()

	st, err := trigger.NewStore("X1:MAIN",
		[]trigger.Trigger{{Time: 10, Statistic: 8}},
		map[string][]trigger.Trigger{
			"X1:AUX-A": {{Time: 10.1, Statistic: 5}},
		})
	require.NoError(t, err)

	params := testParams()
	params.MaxRounds = 0

	res, err := Run(context.Background(), st, params)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, res.Status)
	require.Empty(t, res.Rounds)
	require.Empty(t, res.Segments)
	require.Equal(t, 1, st.Primary().Len())
}

// TestRunDropsOutOfSpanTriggers verifies triggers entirely outside the
// analysis span are discarded before round 1, so the primary set is empty
// and the run stops with no rounds instead of looping on a winner whose
// segments clip to nothing.
func TestRunDropsOutOfSpanTriggers(t *testing.T) {
	t.Parallel()

	st, err := trigger.NewStore("X1:MAIN",
		[]trigger.Trigger{
			{Time: 200, Statistic: 8},
			{Time: 210, Statistic: 8},
		},
		map[string][]trigger.Trigger{
			"X1:AUX-A": {{Time: 200.1, Statistic: 5}, {Time: 210.1, Statistic: 5}},
		})
	require.NoError(t, err)

	params := testParams()
	params.MaxRounds = 50

	res, err := Run(context.Background(), st, params)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, res.Status)
	require.Empty(t, res.Rounds)
	require.Empty(t, res.Segments)
	require.Equal(t, 0, st.Primary().Len())
}

// TestRunIgnoresOutOfSpanTriggers verifies a run with mixed in- and
// out-of-span triggers only ever analyses the in-span events.
func TestRunIgnoresOutOfSpanTriggers(t *testing.T) {
	t.Parallel()

	st, err := trigger.NewStore("X1:MAIN",
		[]trigger.Trigger{
			{Time: 10, Statistic: 8},
			{Time: 200, Statistic: 8},
		},
		map[string][]trigger.Trigger{
			"X1:AUX-A": {{Time: 10.1, Statistic: 5}, {Time: 200.1, Statistic: 5}},
		})
	require.NoError(t, err)

	res, err := Run(context.Background(), st, testParams())
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, res.Status)
	require.Len(t, res.Rounds, 1)

	round := res.Rounds[0]
	require.Equal(t, 1, round.Winner.Observed)
	require.Equal(t, 1, round.PrimaryBefore)
	require.Equal(t, 0, round.PrimaryAfter)
	require.Equal(t, 1, round.UsedAux)
}

// TestRunHierarchicalPruning verifies a trigger on a second channel inside a
// segment vetoed by the first round is removed before later rounds.
func TestRunHierarchicalPruning(t *testing.T) {
	t.Parallel()

	st, err := trigger.NewStore("X1:MAIN",
		[]trigger.Trigger{
			{Time: 10, Statistic: 8},
			{Time: 20, Statistic: 8},
			{Time: 30, Statistic: 8},
			{Time: 50, Statistic: 8},
		},
		map[string][]trigger.Trigger{
			"X1:AUX-A": {{Time: 10.05, Statistic: 9}, {Time: 20.05, Statistic: 9}},
			// The first trigger sits inside AUX-A's round-one veto.
			"X1:AUX-B": {{Time: 10.2, Statistic: 9}, {Time: 50.1, Statistic: 9}},
		})
	require.NoError(t, err)

	res, err := Run(context.Background(), st, testParams())
	require.NoError(t, err)
	require.Len(t, res.Rounds, 2)

	require.Equal(t, "X1:AUX-A", res.Rounds[0].Winner.Channel)
	require.Equal(t, "X1:AUX-B", res.Rounds[1].Winner.Channel)

	// AUX-B's in-segment trigger was pruned by round one, so round two only
	// used its surviving trigger.
	require.Equal(t, 1, res.Rounds[1].UsedAux)
	require.Equal(t, 1, res.Rounds[1].Winner.Observed)
	require.Equal(t, 0, st.Aux("X1:AUX-B").Len())

	// Cumulative deadtime must never decrease.
	for i := 1; i < len(res.Rounds); i++ {
		require.GreaterOrEqual(t, res.Rounds[i].Deadtime, res.Rounds[i-1].Deadtime)
	}

	// Primary count only shrinks.
	for _, round := range res.Rounds {
		require.LessOrEqual(t, round.PrimaryAfter, round.PrimaryBefore)
	}
}

// TestRunDeterminismAcrossWorkerCounts verifies serial and parallel sweeps
// produce identical ledgers and segments.
func TestRunDeterminismAcrossWorkerCounts(t *testing.T) {
	t.Parallel()

	primary := []trigger.Trigger{
		{Time: 5, Statistic: 8}, {Time: 10, Statistic: 8}, {Time: 20, Statistic: 8},
		{Time: 33, Statistic: 8}, {Time: 47, Statistic: 8}, {Time: 60, Statistic: 8},
		{Time: 71, Statistic: 8}, {Time: 85, Statistic: 8},
	}
	aux := map[string][]trigger.Trigger{
		"X1:AUX-A": {{Time: 5.1, Statistic: 9}, {Time: 10.2, Statistic: 7}, {Time: 59.9, Statistic: 6}},
		"X1:AUX-B": {{Time: 20.1, Statistic: 12}, {Time: 33.2, Statistic: 11}},
		"X1:AUX-C": {{Time: 47.3, Statistic: 4}, {Time: 70.8, Statistic: 10}, {Time: 84.9, Statistic: 10}},
		"X1:AUX-D": {{Time: 2, Statistic: 3}, {Time: 90, Statistic: 3}},
	}

	build := func() *trigger.Store {
		st, err := trigger.NewStore("X1:MAIN", append([]trigger.Trigger(nil), primary...), aux)
		require.NoError(t, err)

		return st.Clone()
	}

	params := testParams()
	params.Windows = []float64{0.5, 1.0, 2.0}
	params.Thresholds = []float64{0, 5, 10}

	serialParams := params
	serialParams.Workers = 1

	parallelParams := params
	parallelParams.Workers = 4

	serial, err := Run(context.Background(), build(), serialParams)
	require.NoError(t, err)

	parallel, err := Run(context.Background(), build(), parallelParams)
	require.NoError(t, err)

	require.Equal(t, serial.Rounds, parallel.Rounds)
	require.Equal(t, serial.Segments, parallel.Segments)
	require.Equal(t, serial.Status, parallel.Status)
}

// TestRunCancelled verifies cancellation is a valid partial outcome, not an
// error.
func TestRunCancelled(t *testing.T) {
	t.Parallel()

	st, err := trigger.NewStore("X1:MAIN",
		[]trigger.Trigger{{Time: 10, Statistic: 8}},
		map[string][]trigger.Trigger{
			"X1:AUX-A": {{Time: 10.1, Statistic: 5}},
		})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Run(ctx, st, testParams())
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, res.Status)
	require.Empty(t, res.Rounds)
}

// TestRunRejectsInvalidParams verifies configuration errors abort before
// round one with no partial ledger.
func TestRunRejectsInvalidParams(t *testing.T) {
	t.Parallel()

	st, err := trigger.NewStore("X1:MAIN", nil, nil)
	require.NoError(t, err)

	cases := map[string]func(*Params){
		"empty grid":        func(p *Params) { p.Windows = nil },
		"bad window":        func(p *Params) { p.Windows = []float64{-1} },
		"negative rounds":   func(p *Params) { p.MaxRounds = -1 },
		"inverted span":     func(p *Params) { p.Span = segment.Segment{Start: 10, End: 10} },
		"unknown model":     func(p *Params) { p.Model = "bogus" },
		"nonfinite cutoff":  func(p *Params) { p.Thresholds = []float64{math.Inf(1)} },
		"empty thresholds":  func(p *Params) { p.Thresholds = nil },
	}

	for name, mutate := range cases {
		params := testParams()
		mutate(&params)

		_, err := Run(context.Background(), st, params)
		require.Error(t, err, name)
	}
}
