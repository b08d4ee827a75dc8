package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/gwdetchar/hveto/internal/analysis"
	"github.com/gwdetchar/hveto/internal/domain/segment"
)

const runsSchema = `
CREATE TABLE IF NOT EXISTS runs (
    id              TEXT PRIMARY KEY,
    status          TEXT NOT NULL,
    primary_channel TEXT NOT NULL,
    span_start      REAL NOT NULL,
    span_end        REAL NOT NULL,
    livetime        REAL NOT NULL,
    round_count     INTEGER NOT NULL,
    created_at      TEXT NOT NULL
);
`

const roundsSchema = `
CREATE TABLE IF NOT EXISTS rounds (
    run_id         TEXT NOT NULL,
    round          INTEGER NOT NULL,
    channel        TEXT NOT NULL,
    window_width   REAL NOT NULL,
    threshold      REAL NOT NULL,
    significance   REAL NOT NULL,
    observed       INTEGER NOT NULL,
    expected       REAL NOT NULL,
    primary_before INTEGER NOT NULL,
    primary_after  INTEGER NOT NULL,
    used_aux       INTEGER NOT NULL,
    coincident_aux INTEGER NOT NULL,
    efficiency     REAL NOT NULL,
    cum_efficiency REAL NOT NULL,
    deadtime       REAL NOT NULL,
    PRIMARY KEY (run_id, round)
);
`

const segmentsSchema = `
CREATE TABLE IF NOT EXISTS segments (
    run_id     TEXT NOT NULL,
    round      INTEGER NOT NULL,
    start_time REAL NOT NULL,
    end_time   REAL NOT NULL
);
`

const segmentsIndex = `
CREATE INDEX IF NOT EXISTS idx_segments_run
ON segments(run_id, round);
`

// Repository defines persistence operations for run results.
type Repository interface {
	SaveRun(ctx context.Context, primaryChannel string, span segment.Segment, res *analysis.Result) error
	Close() error
}

// SQLiteRepository stores run results in a SQLite database file.
type SQLiteRepository struct {
	// db is the underlying database handle.
	db *sql.DB
}

// Open creates (or opens) the database at the provided path and ensures the
// schema exists.
func Open(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	for _, stmt := range []string{runsSchema, roundsSchema, segmentsSchema, segmentsIndex} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()

			return nil, fmt.Errorf("initialise ledger schema: %w", err)
		}
	}

	return &SQLiteRepository{db: db}, nil
}

// Close releases the database handle.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// SaveRun writes the run header, every round and every veto segment in one
// transaction, so a partially written run never becomes visible.
func (r *SQLiteRepository) SaveRun(
	ctx context.Context,
	primaryChannel string,
	span segment.Segment,
	res *analysis.Result,
) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, status, primary_channel, span_start, span_end, livetime, round_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID,
		string(res.Status),
		primaryChannel,
		span.Start,
		span.End,
		res.Livetime,
		len(res.Rounds),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, round := range res.Rounds {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO rounds
			(run_id, round, channel, window_width, threshold, significance, observed,
			 expected, primary_before, primary_after, used_aux, coincident_aux,
			 efficiency, cum_efficiency, deadtime)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			res.RunID,
			round.Index,
			round.Winner.Channel,
			round.Winner.Window,
			round.Winner.Threshold,
			round.Winner.Significance,
			round.Winner.Observed,
			round.Winner.Expected,
			round.PrimaryBefore,
			round.PrimaryAfter,
			round.UsedAux,
			round.CoincidentAux,
			round.Efficiency,
			round.CumulativeEfficiency,
			round.Deadtime,
		)
		if err != nil {
			return fmt.Errorf("insert round %d: %w", round.Index, err)
		}

		for _, seg := range round.NewSegments {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO segments (run_id, round, start_time, end_time)
				VALUES (?, ?, ?, ?)`,
				res.RunID, round.Index, seg.Start, seg.End,
			)
			if err != nil {
				return fmt.Errorf("insert segment for round %d: %w", round.Index, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger transaction: %w", err)
	}

	return nil
}
