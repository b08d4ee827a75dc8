// Package segment contains the interval algebra used by the veto engine.
//
// A Segment is a half-open time interval [Start, End) and a List is an
// ordered sequence of pairwise-disjoint, non-touching segments. The merge
// step of FromTriggers and the Union operation preserve that invariant, so
// consumers can rely on a List always being minimal and sorted by start.
package segment
