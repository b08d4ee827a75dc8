package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gwdetchar/hveto/internal/config"
	"github.com/gwdetchar/hveto/internal/logger"
	"github.com/gwdetchar/hveto/internal/service/scan"
	"github.com/gwdetchar/hveto/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// primaryChannel names the channel being vetoed.
	primaryChannel string
	// primaryFile is the primary channel's trigger file.
	primaryFile string
	// channelsFile maps auxiliary channels to their trigger files.
	channelsFile string
	// outputDir receives segments, ledger and run lock.
	outputDir string
	// workers overrides the configured evaluation parallelism.
	workers int
	// logLevel sets the logging verbosity.
	logLevel string

	// rootCmd represents the base command for running the veto analysis.
	rootCmd = &cobra.Command{
		Use:   "hveto",
		Short: "Run the hierarchical veto analysis over trigger files.",
		Long: `Runs the hierarchical veto algorithm: round by round it searches every
auxiliary channel and every (window, threshold) combination for the most
significant coincidence with the primary channel, turns the winning channel's
triggers into veto segments, and prunes all channels by those segments.

Inputs are plain-text trigger files ("time statistic" per line) for the
primary channel and for each auxiliary channel listed in the channel map.
Outputs are per-round and cumulative ASCII segment files plus a SQLite run
ledger, written to the output directory. Interrupting the process records the
rounds finished so far as a cancelled run.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			if lvl, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(lvl)
			}

			options := &scan.Options{
				ConfigPath:     configPath,
				PrimaryChannel: primaryChannel,
				PrimaryFile:    primaryFile,
				ChannelsFile:   channelsFile,
				OutputDir:      outputDir,
				Workers:        workers,
			}

			return scan.Run(ctx, options)
		},
	}
)

// Execute runs the hveto CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&primaryChannel, "primary-channel", "p", "", "name of the primary channel")
	rootCmd.Flags().StringVarP(&primaryFile, "primary-file", "f", "", "path to the primary trigger file")
	rootCmd.Flags().StringVarP(&channelsFile, "channels", "a", "", "path to the auxiliary channel map file")
	rootCmd.Flags().StringVarP(&outputDir, "output-directory", "o", ".", "directory for segments and ledger")
	rootCmd.Flags().IntVarP(&workers, "workers", "n", 0, "parallel channel evaluations per round (0 = from config)")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "info", "logging level (debug, info, warn, error)")

	_ = rootCmd.MarkFlagRequired("primary-channel")
	_ = rootCmd.MarkFlagRequired("primary-file")
	_ = rootCmd.MarkFlagRequired("channels")
}
