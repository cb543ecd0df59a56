package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Mizogg/GUI-keyhunt/internal/config"
	"github.com/Mizogg/GUI-keyhunt/internal/logging"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "keyhunter",
	Short: "Run keyhunt across several processes that share one keyspace",
	Long: `keyhunter splits a private-key range into contiguous sub-ranges and runs
one keyhunt process per sub-range, streaming each process's output to its
own console.

Examples:
  keyhunter run --bits 66 --instances 4
  keyhunter tui --range 20000000000000000:3ffffffffffffffff
  keyhunter command --mode bsgs --movement both --instances 2`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		// The dashboard owns the terminal; only log there when a file is set.
		if cmd.Name() == "tui" && cfg.Logging.File == "" {
			logger = zap.NewNop()
			return nil
		}

		logger, err = logging.New(cfg.Logging, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logging.For(logger, logging.CategoryBoot).Debug("Configuration loaded", zap.String("path", configPath))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Configuration file")

	runOpts.register(runCmd)
	tuiOpts.register(tuiCmd)
	commandOpts.register(commandCmd)

	rangeCmd.AddCommand(rangeInfoCmd)
	rangeCmd.AddCommand(rangeSplitCmd)
	rangeCmd.AddCommand(rangeBitsCmd)

	progressCmd.Flags().BoolVar(&removeProgress, "remove", false, "Delete the checkpoint files")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of runs to show")
	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(commandCmd)
	rootCmd.AddCommand(rangeCmd)
	rootCmd.AddCommand(foundCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
