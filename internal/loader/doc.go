// Package loader reads trigger lists and channel maps from plain-text files
// into the in-memory shape consumed by the analysis engine.
//
// Trigger files carry one event per line as whitespace-separated columns:
// either "time statistic" or "time frequency statistic" (the frequency column
// is accepted for compatibility with common trigger exports and ignored).
// Channel maps carry one "channel-name path" pair per line. Lines that are
// blank or start with '#' are skipped in both formats.
package loader
