package analysis

import (
	"github.com/gwdetchar/hveto/internal/domain/segment"
)

// Status is the terminal outcome of a run.
type Status string

const (
	// StatusCompleted marks a run that reached a normal stopping condition.
	StatusCompleted Status = "completed"
	// StatusCancelled marks a run interrupted by context cancellation; its
	// ledger holds the rounds accumulated so far and remains valid.
	StatusCancelled Status = "cancelled"
)

// Round records one executed veto round. Rounds are appended to the ledger
// in execution order and never reordered or modified afterwards.
type Round struct {
	// Index is the 1-based round number.
	Index int
	// Winner is the selected (channel, window, threshold) candidate.
	Winner Candidate
	// NewSegments are the merged veto segments produced by this round,
	// clipped to the analysis span.
	NewSegments segment.List
	// PrimaryBefore is the primary trigger count entering the round.
	PrimaryBefore int
	// PrimaryAfter is the primary trigger count after pruning.
	PrimaryAfter int
	// UsedAux is the number of winning-channel triggers above threshold.
	UsedAux int
	// CoincidentAux is the number of used triggers coincident with a
	// primary trigger at the time the veto was applied.
	CoincidentAux int
	// Efficiency is the fraction of the pre-round primary set removed.
	Efficiency float64
	// CumulativeEfficiency is the fraction of the original primary set
	// removed by all rounds up to and including this one.
	CumulativeEfficiency float64
	// Deadtime is the cumulative vetoed duration divided by the span
	// duration after this round.
	Deadtime float64
}

// UsePercentage returns the fraction of used auxiliary triggers that were
// coincident with a primary trigger, or zero when none were used.
func (r Round) UsePercentage() float64 {
	if r.UsedAux == 0 {
		return 0
	}

	return float64(r.CoincidentAux) / float64(r.UsedAux)
}

// Result is the complete outcome of one run.
type Result struct {
	// RunID uniquely identifies the run for audit purposes.
	RunID string
	// Status reports whether the run completed or was cancelled.
	Status Status
	// Rounds is the append-only run ledger, one entry per executed round.
	Rounds []Round
	// Segments is the cumulative union of every round's veto segments.
	Segments segment.List
	// SegmentsByChannel groups the cumulative veto segments by the winning
	// channel that produced them. A channel that wins several rounds maps
	// to the union of its rounds' segments.
	SegmentsByChannel map[string]segment.List
	// Livetime is the remaining unvetoed duration of the analysis span.
	Livetime float64
}

// Deadtime returns the final cumulative deadtime fraction of the run.
func (r *Result) Deadtime(span segment.Segment) float64 {
	if span.Duration() <= 0 {
		return 0
	}

	return r.Segments.Duration() / span.Duration()
}
