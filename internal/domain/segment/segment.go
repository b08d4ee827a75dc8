package segment

import (
	"sort"
)

// Segment is a half-open time interval [Start, End) in seconds.
type Segment struct {
	// Start is the inclusive lower bound of the interval.
	Start float64
	// End is the exclusive upper bound of the interval.
	End float64
}

// Duration returns the length of the segment in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Contains reports whether the instant t lies inside the segment.
func (s Segment) Contains(t float64) bool {
	return t >= s.Start && t < s.End
}

// List is an ordered sequence of disjoint, non-touching segments sorted by
// start time. Construct lists with FromTriggers or coalesce; do not append
// raw segments directly.
type List []Segment

// FromTriggers converts event times into the minimal merged segment list,
// placing an interval of the given total width around each time. Overlapping
// or touching intervals collapse into a single covering segment.
func FromTriggers(times []float64, window float64) List {
	if len(times) == 0 {
		return nil
	}

	raw := make(List, 0, len(times))

	half := window / 2
	for _, t := range times {
		raw = append(raw, Segment{Start: t - half, End: t + half})
	}

	return coalesce(raw)
}

// coalesce sorts raw intervals by start and merges every overlapping or
// touching pair, restoring the List invariant.
func coalesce(raw List) List {
	if len(raw) == 0 {
		return nil
	}

	sort.Slice(raw, func(i, j int) bool {
		if raw[i].Start != raw[j].Start {
			return raw[i].Start < raw[j].Start
		}

		return raw[i].End < raw[j].End
	})

	merged := List{raw[0]}

	for _, s := range raw[1:] {
		last := &merged[len(merged)-1]
		if s.Start <= last.End {
			if s.End > last.End {
				last.End = s.End
			}

			continue
		}

		merged = append(merged, s)
	}

	return merged
}

// Union returns the merged combination of both lists.
// The result preserves the List invariant; neither input is modified.
func (l List) Union(other List) List {
	if len(l) == 0 && len(other) == 0 {
		return nil
	}

	raw := make(List, 0, len(l)+len(other))
	raw = append(raw, l...)
	raw = append(raw, other...)

	return coalesce(raw)
}

// Duration returns the total time covered by the list in seconds.
func (l List) Duration() float64 {
	var total float64
	for _, s := range l {
		total += s.Duration()
	}

	return total
}

// Contains reports whether the instant t lies inside any segment of the list.
func (l List) Contains(t float64) bool {
	// Binary search for the first segment ending after t.
	i := sort.Search(len(l), func(i int) bool {
		return l[i].End > t
	})

	return i < len(l) && l[i].Contains(t)
}

// ClipTo intersects the list with the provided bounds, discarding any
// coverage outside of them.
func (l List) ClipTo(bounds Segment) List {
	var clipped List

	for _, s := range l {
		if s.End <= bounds.Start || s.Start >= bounds.End {
			continue
		}

		if s.Start < bounds.Start {
			s.Start = bounds.Start
		}

		if s.End > bounds.End {
			s.End = bounds.End
		}

		if s.Start < s.End {
			clipped = append(clipped, s)
		}
	}

	return clipped
}
