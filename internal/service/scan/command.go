package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gwdetchar/hveto/internal/analysis"
	"github.com/gwdetchar/hveto/internal/config"
	"github.com/gwdetchar/hveto/internal/domain/segment"
	"github.com/gwdetchar/hveto/internal/loader"
	"github.com/gwdetchar/hveto/internal/logger"
	"github.com/gwdetchar/hveto/internal/repository/ledger"
	"github.com/gwdetchar/hveto/internal/runlock"
)

// Options controls one analysis run.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// PrimaryChannel names the channel being vetoed.
	PrimaryChannel string
	// PrimaryFile is the primary channel's trigger file.
	PrimaryFile string
	// ChannelsFile maps auxiliary channel names to trigger files.
	ChannelsFile string
	// OutputDir receives segment files, the ledger and the run lock.
	OutputDir string
	// Workers overrides the configured evaluation parallelism when positive.
	Workers int
}

// outputDirPermissions is the mode for a created output directory.
const outputDirPermissions = 0o755

// Run executes a full analysis: load settings and triggers, lock the output
// directory, drive the round engine, then persist segments and the ledger.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "hveto")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if opts.Workers > 0 {
		cfg.Workers = opts.Workers
	}

	if err = os.MkdirAll(opts.OutputDir, outputDirPermissions); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	lock, err := runlock.Acquire(ctx, opts.OutputDir)
	if err != nil {
		return err
	}

	defer func() {
		if releaseErr := lock.Release(); releaseErr != nil {
			logger.Errorf(ctx, "Failed to release run lock: %v", releaseErr)
		}
	}()

	store, err := loader.LoadStore(opts.PrimaryChannel, opts.PrimaryFile, opts.ChannelsFile)
	if err != nil {
		return fmt.Errorf("load triggers: %w", err)
	}

	logger.InfoKV(ctx, "Triggers loaded",
		"primary_channel", opts.PrimaryChannel,
		"primary_triggers", store.Primary().Len(),
		"aux_channels", len(store.Channels()))

	res, err := analysis.Run(ctx, store, cfg.Params())
	if err != nil {
		return fmt.Errorf("run analysis: %w", err)
	}

	if res.Status == analysis.StatusCancelled {
		logger.WarnKV(ctx, "Analysis cancelled, persisting partial results",
			"rounds", len(res.Rounds))
	}

	if err = writeSegments(opts.OutputDir, res); err != nil {
		return err
	}

	if err = persistLedger(ctx, filepath.Join(opts.OutputDir, cfg.LedgerFile), opts.PrimaryChannel, cfg, res); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Analysis finished",
		"run_id", res.RunID,
		"status", res.Status,
		"rounds", len(res.Rounds),
		"primary_remaining", store.Primary().Len(),
		"veto_duration", res.Segments.Duration(),
		"deadtime", res.Deadtime(segment.Segment{Start: cfg.AnalysisStart, End: cfg.AnalysisEnd}),
		"livetime", res.Livetime)

	return nil
}

// writeSegments writes one ASCII segment file per round plus the cumulative
// list for the whole run.
func writeSegments(dir string, res *analysis.Result) error {
	for _, round := range res.Rounds {
		path := filepath.Join(dir, fmt.Sprintf("hveto-veto-segments-round-%d.txt", round.Index))
		if err := segment.WriteASCIIFile(path, round.NewSegments); err != nil {
			return fmt.Errorf("round %d segments: %w", round.Index, err)
		}
	}

	path := filepath.Join(dir, "hveto-veto-segments-all.txt")
	if err := segment.WriteASCIIFile(path, res.Segments); err != nil {
		return fmt.Errorf("cumulative segments: %w", err)
	}

	return nil
}

// persistLedger records the run in the SQLite audit ledger.
func persistLedger(
	ctx context.Context,
	path, primaryChannel string,
	cfg *config.Config,
	res *analysis.Result,
) error {
	repo, err := ledger.Open(path)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			logger.Errorf(ctx, "Failed to close ledger: %v", closeErr)
		}
	}()

	span := segment.Segment{Start: cfg.AnalysisStart, End: cfg.AnalysisEnd}
	if err = repo.SaveRun(ctx, primaryChannel, span, res); err != nil {
		return fmt.Errorf("persist ledger: %w", err)
	}

	return nil
}
