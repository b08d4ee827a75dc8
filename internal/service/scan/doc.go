// Package scan glues the analysis engine to the process surface: it loads
// configuration and trigger files, guards the output directory with a run
// lock, executes the round engine, and writes the resulting segments and
// audit ledger.
package scan
