package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gwdetchar/hveto/internal/domain/trigger"
)

// TestPoissonSignificanceSanity verifies the ordering and edge cases of the
// Poisson tail score.
func TestPoissonSignificanceSanity(t *testing.T) {
	t.Parallel()

	five := poissonSignificance(5, 1.0)
	two := poissonSignificance(2, 1.0)

	require.Greater(t, five, two)
	require.Greater(t, two, 0.0)

	// Zero observed scores zero regardless of the mean.
	require.Zero(t, poissonSignificance(0, 0))
	require.Zero(t, poissonSignificance(0, 42))

	// Positive observed against a zero mean is capped, not infinite.
	require.Equal(t, MaxSignificance, poissonSignificance(3, 0))

	// Degenerate means are clamped locally instead of propagating.
	require.Equal(t, MaxSignificance, poissonSignificance(1, math.NaN()))

	// Observed far below the mean is not significant.
	require.InDelta(t, 0, poissonSignificance(1, 50), 1e-6)
}

// TestPoissonSignificanceValue checks the score against a hand-computed
// reference: P(X >= 2 | mu = 0.06) = 1 - e^-0.06 (1 + 0.06).
func TestPoissonSignificanceValue(t *testing.T) {
	t.Parallel()

	tail := 1 - math.Exp(-0.06)*(1+0.06)
	want := -math.Log10(tail)

	require.InDelta(t, want, poissonSignificance(2, 0.06), 1e-9)
}

// TestEvaluateCounts verifies observed and expected counts for a small
// hand-checked configuration.
func TestEvaluateCounts(t *testing.T) {
	t.Parallel()

	primary, err := trigger.NewSet("X1:MAIN", []trigger.Trigger{
		{Time: 10, Statistic: 8},
		{Time: 20, Statistic: 8},
		{Time: 30, Statistic: 8},
	})
	require.NoError(t, err)

	aux, err := trigger.NewSet("X1:AUX", []trigger.Trigger{
		{Time: 10.1, Statistic: 5},
		{Time: 10.2, Statistic: 5},
		{Time: 20.2, Statistic: 5},
		{Time: 90, Statistic: 1},
	})
	require.NoError(t, err)

	cand := poissonEngine{}.Evaluate(primary, aux, 1.0, 2.0, 100.0)

	// Two primary triggers have a qualifying partner; the double match at
	// t=10 counts once, and the statistic-1 trigger is filtered out.
	require.Equal(t, 2, cand.Observed)
	require.InDelta(t, 3.0*(3.0/100.0)*1.0, cand.Expected, 1e-12)
	require.Greater(t, cand.Significance, 0.0)
	require.Equal(t, "X1:AUX", cand.Channel)
}

// TestCountMatchedClosedInterval verifies both window edges are inclusive.
func TestCountMatchedClosedInterval(t *testing.T) {
	t.Parallel()

	primary := []trigger.Trigger{{Time: 10}}

	require.Equal(t, 1, countMatched(primary, []float64{10.5}, 1.0))
	require.Equal(t, 1, countMatched(primary, []float64{9.5}, 1.0))
	require.Equal(t, 0, countMatched(primary, []float64{10.51}, 1.0))

	require.Equal(t, 1, countCoincident([]float64{10.5}, primary, 1.0))
	require.Equal(t, 0, countCoincident([]float64{10.51}, primary, 1.0))
}
