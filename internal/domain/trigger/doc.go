// Package trigger contains the event data model for the veto engine.
//
// A Trigger is a timestamped noise event with a ranking statistic (typically
// signal-to-noise ratio). A Set is one channel's time-sorted sequence of
// triggers, and a Store owns the primary set plus every auxiliary channel's
// set for the duration of a run. The Store is populated once, validated up
// front, and then only shrinks as veto segments prune it round by round.
package trigger
