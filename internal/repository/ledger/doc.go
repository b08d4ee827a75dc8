// Package ledger persists run results to SQLite for post-hoc audit.
//
// Every run is stored under its run ID with one row per round and one row
// per veto segment, so a finished analysis can be reconstructed without the
// original trigger files. The store is append-only; rows are never updated.
package ledger
