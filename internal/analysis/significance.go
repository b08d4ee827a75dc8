package analysis

import (
	"fmt"
	"math"

	"github.com/gwdetchar/hveto/internal/domain/trigger"
)

// MaxSignificance caps the score when the tail probability underflows, so a
// perfectly correlated channel yields a large finite number instead of +Inf.
const MaxSignificance = 300.0

// minExpected is the clamp applied when an expected-count computation
// degenerates to a non-positive or non-finite value.
const minExpected = 1e-300

// Candidate is the outcome of evaluating one (channel, window, threshold)
// combination against the current primary set.
type Candidate struct {
	// Channel is the auxiliary channel that was evaluated.
	Channel string
	// Window is the coincidence window in seconds.
	Window float64
	// Threshold is the statistic cutoff applied to the auxiliary triggers.
	Threshold float64
	// Observed is the number of primary triggers with at least one
	// qualifying auxiliary trigger inside the window.
	Observed int
	// Expected is the accidental coincidence count under the null model.
	Expected float64
	// Significance scores how unlikely Observed is given Expected.
	Significance float64
}

// outranks reports whether c beats other under the engine's deterministic
// total order: higher significance, then smaller window, then smaller
// threshold, then lexicographically smaller channel name. The order makes
// the parallel reduction independent of worker completion order.
func (c Candidate) outranks(other Candidate) bool {
	if c.Significance != other.Significance {
		return c.Significance > other.Significance
	}

	if c.Window != other.Window {
		return c.Window < other.Window
	}

	if c.Threshold != other.Threshold {
		return c.Threshold < other.Threshold
	}

	return c.Channel < other.Channel
}

// Engine computes the significance of the coincidence between a primary and
// an auxiliary trigger set for one grid point.
type Engine interface {
	Evaluate(primary, aux *trigger.Set, window, threshold, livetime float64) Candidate
}

// engineFor resolves the configured model to its engine.
func engineFor(model Model) (Engine, error) {
	switch model {
	case "", ModelPoisson:
		return poissonEngine{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}
}

// poissonEngine scores candidates with the negative log10 upper-tail Poisson
// probability of the observed coincidence count.
type poissonEngine struct{}

// Evaluate filters the auxiliary set by threshold, counts primary triggers
// with a qualifying auxiliary trigger within +-window/2 (closed interval,
// each primary counted once), estimates the accidental count from the
// auxiliary rate over the remaining live time, and converts both into a
// significance score.
func (poissonEngine) Evaluate(primary, aux *trigger.Set, window, threshold, livetime float64) Candidate {
	auxTimes := aux.TimesAbove(threshold)
	observed := countMatched(primary.Events(), auxTimes, window)

	var expected float64
	if livetime > 0 {
		rate := float64(len(auxTimes)) / livetime
		expected = float64(primary.Len()) * rate * window
	}

	return Candidate{
		Channel:      aux.Name(),
		Window:       window,
		Threshold:    threshold,
		Observed:     observed,
		Expected:     expected,
		Significance: poissonSignificance(observed, expected),
	}
}

// countMatched returns the number of primary triggers with at least one
// auxiliary time inside [t-window/2, t+window/2]. Both inputs are sorted by
// time, so a single forward sweep suffices.
func countMatched(primary []trigger.Trigger, auxTimes []float64, window float64) int {
	half := window / 2

	var matched, j int

	for _, ev := range primary {
		for j < len(auxTimes) && auxTimes[j] < ev.Time-half {
			j++
		}

		if j < len(auxTimes) && auxTimes[j] <= ev.Time+half {
			matched++
		}
	}

	return matched
}

// countCoincident returns the number of aux times with at least one primary
// trigger inside the closed coincidence window. Used for the round's
// use-percentage bookkeeping.
func countCoincident(auxTimes []float64, primary []trigger.Trigger, window float64) int {
	half := window / 2

	var matched, j int

	for _, t := range auxTimes {
		for j < len(primary) && primary[j].Time < t-half {
			j++
		}

		if j < len(primary) && primary[j].Time <= t+half {
			matched++
		}
	}

	return matched
}

// poissonSignificance returns -log10 of the probability of observing at
// least `observed` events from a Poisson distribution with the given mean.
// Zero observed events score zero regardless of the mean; a positive count
// against a zero mean scores the capped maximum. Non-finite means are
// clamped locally so a single degenerate channel cannot abort the run.
func poissonSignificance(observed int, mean float64) float64 {
	if observed == 0 {
		return 0
	}

	if math.IsNaN(mean) || math.IsInf(mean, 0) {
		mean = minExpected
	}

	if mean <= 0 {
		return MaxSignificance
	}

	n := float64(observed)

	var logTail float64
	if n > mean {
		logTail = logUpperTail(observed, mean)
	} else {
		// In this regime the tail is large; the complement of the lower
		// tail is numerically safe and needs only `observed` terms.
		lower := lowerTail(observed, mean)
		if lower >= 1 {
			return 0
		}

		logTail = math.Log(1 - lower)
	}

	sig := -logTail / math.Ln10
	if sig < 0 {
		return 0
	}

	if math.IsNaN(sig) || sig > MaxSignificance {
		return MaxSignificance
	}

	return sig
}

// logUpperTail computes log P(X >= n) by summing the series from k = n in
// log space. The summation order is fixed, keeping results bit-stable.
func logUpperTail(n int, mean float64) float64 {
	lg, _ := math.Lgamma(float64(n) + 1)
	logFirst := -mean + float64(n)*math.Log(mean) - lg

	acc, term := 1.0, 1.0

	for k := n; ; k++ {
		term *= mean / float64(k+1)
		acc += term

		if term < acc*1e-17 {
			break
		}
	}

	return logFirst + math.Log(acc)
}

// lowerTail computes P(X < n) by direct summation of the first n terms.
func lowerTail(n int, mean float64) float64 {
	term := math.Exp(-mean)
	sum := term

	for k := 1; k < n; k++ {
		term *= mean / float64(k)
		sum += term
	}

	return sum
}
