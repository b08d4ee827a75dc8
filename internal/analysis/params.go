package analysis

import (
	"errors"
	"fmt"
	"math"

	"github.com/gwdetchar/hveto/internal/domain/segment"
)

// Model selects the statistical significance model used by a run.
type Model string

// ModelPoisson ranks candidates by the upper-tail Poisson probability of the
// observed coincidence count. It is the only model currently implemented.
const ModelPoisson Model = "poisson"

var (
	// ErrEmptyGrid is returned when no windows or no thresholds are configured.
	ErrEmptyGrid = errors.New("parameter grid is empty")
	// ErrNonPositiveWindow is returned for a window of zero or less.
	ErrNonPositiveWindow = errors.New("coincidence window must be positive")
	// ErrNonFiniteThreshold is returned for a NaN or infinite threshold.
	ErrNonFiniteThreshold = errors.New("threshold must be finite")
	// ErrNegativeMaxRounds is returned for a negative round limit.
	ErrNegativeMaxRounds = errors.New("maximum round count must not be negative")
	// ErrInvalidSpan is returned when the analysis span has end <= start.
	ErrInvalidSpan = errors.New("analysis span end must be after start")
	// ErrUnknownModel is returned for an unrecognized significance model.
	ErrUnknownModel = errors.New("unknown significance model")
)

// Params holds the validated run configuration consumed by Run.
// Construct it once, call Validate, and pass it by value; the engine performs
// no further option lookups at runtime.
type Params struct {
	// Windows is the ordered set of coincidence windows to evaluate, seconds.
	Windows []float64
	// Thresholds is the ordered set of statistic cutoffs to evaluate.
	Thresholds []float64
	// MinimumSignificance stops the run once no candidate reaches it.
	MinimumSignificance float64
	// MaxRounds bounds the number of executed rounds. Zero is a valid
	// configuration and yields an empty ledger.
	MaxRounds int
	// Span is the analysis interval whose duration is the initial live time.
	Span segment.Segment
	// Model selects the significance model. Empty means ModelPoisson.
	Model Model
	// Workers bounds the parallel per-channel evaluations within one round.
	// Values below one fall back to serial evaluation.
	Workers int
}

// Validate checks the parameters and reports the first violation found.
func (p Params) Validate() error {
	if len(p.Windows) == 0 || len(p.Thresholds) == 0 {
		return ErrEmptyGrid
	}

	for _, w := range p.Windows {
		if !(w > 0) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: %v", ErrNonPositiveWindow, w)
		}
	}

	for _, thr := range p.Thresholds {
		if math.IsNaN(thr) || math.IsInf(thr, 0) {
			return fmt.Errorf("%w: %v", ErrNonFiniteThreshold, thr)
		}
	}

	if p.MaxRounds < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeMaxRounds, p.MaxRounds)
	}

	if !(p.Span.End > p.Span.Start) {
		return fmt.Errorf("%w: [%v, %v)", ErrInvalidSpan, p.Span.Start, p.Span.End)
	}

	if _, err := engineFor(p.Model); err != nil {
		return err
	}

	return nil
}

// workers returns the effective worker count for the round selector.
func (p Params) workers() int {
	if p.Workers < 1 {
		return 1
	}

	return p.Workers
}
