package trigger

import (
	"errors"
	"fmt"
	"math"

	"github.com/gwdetchar/hveto/internal/domain/segment"
)

// Trigger is a single noise event on one channel.
// It is immutable once created.
type Trigger struct {
	// Time is the event peak time in seconds.
	Time float64
	// Statistic is the ranking statistic of the event, e.g. SNR.
	Statistic float64
}

var (
	// ErrUnsortedTriggers is returned when a sequence is not sorted by time.
	ErrUnsortedTriggers = errors.New("triggers are not sorted by time")
	// ErrNonFiniteTrigger is returned when a trigger carries a NaN or
	// infinite time or statistic.
	ErrNonFiniteTrigger = errors.New("trigger has non-finite time or statistic")
)

// Set is one channel's time-sorted trigger sequence.
type Set struct {
	// name is the channel the triggers belong to.
	name string
	// events is the remaining trigger sequence, strictly sorted by time.
	events []Trigger
}

// NewSet validates the provided sequence and wraps it into a Set.
// The slice is owned by the Set afterwards and must not be modified.
func NewSet(name string, events []Trigger) (*Set, error) {
	for i, ev := range events {
		if !isFinite(ev.Time) || !isFinite(ev.Statistic) {
			return nil, fmt.Errorf("channel %s, index %d: %w", name, i, ErrNonFiniteTrigger)
		}

		if i > 0 && ev.Time < events[i-1].Time {
			return nil, fmt.Errorf("channel %s, index %d: %w", name, i, ErrUnsortedTriggers)
		}
	}

	return &Set{name: name, events: events}, nil
}

// Name returns the channel name of the set.
func (s *Set) Name() string {
	return s.name
}

// Len returns the number of remaining triggers.
func (s *Set) Len() int {
	return len(s.events)
}

// Events returns the remaining triggers in time order.
// Callers must not modify the returned slice.
func (s *Set) Events() []Trigger {
	return s.events
}

// TimesAbove returns the event times whose statistic is at least the
// threshold, in time order.
func (s *Set) TimesAbove(threshold float64) []float64 {
	var out []float64

	for _, ev := range s.events {
		if ev.Statistic >= threshold {
			out = append(out, ev.Time)
		}
	}

	return out
}

// restrict removes every trigger outside the half-open analysis span and
// returns the number of removed events.
func (s *Set) restrict(span segment.Segment) int {
	kept := s.events[:0]

	for _, ev := range s.events {
		if span.Contains(ev.Time) {
			kept = append(kept, ev)
		}
	}

	removed := len(s.events) - len(kept)
	s.events = kept

	return removed
}

// prune removes every trigger lying inside the provided segments and returns
// the number of removed events.
func (s *Set) prune(segs segment.List) int {
	if len(segs) == 0 || len(s.events) == 0 {
		return 0
	}

	kept := s.events[:0]

	for _, ev := range s.events {
		if !segs.Contains(ev.Time) {
			kept = append(kept, ev)
		}
	}

	removed := len(s.events) - len(kept)
	s.events = kept

	return removed
}

// clone returns an independent copy of the set.
func (s *Set) clone() *Set {
	events := make([]Trigger, len(s.events))
	copy(events, s.events)

	return &Set{name: s.name, events: events}
}

// isFinite reports whether f is neither NaN nor infinite.
func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
