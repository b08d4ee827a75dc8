// Package analysis implements the hierarchical veto round engine.
//
// Given a validated trigger store and run parameters it repeatedly searches
// every (auxiliary channel, window, threshold) combination for the most
// significant coincidence with the primary channel, converts the winning
// channel's triggers into merged veto segments, prunes all channels by those
// segments, and records one Round per iteration until a stopping condition
// holds. The whole computation is in-memory and deterministic: identical
// inputs produce identical ledgers regardless of worker count.
package analysis
