package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Mizogg/GUI-keyhunt/internal/findings"
	"github.com/Mizogg/GUI-keyhunt/internal/logging"
)

var removeProgress bool

// foundCmd shows the found-key file
var foundCmd = &cobra.Command{
	Use:   "found",
	Short: "Show keys recorded in " + findings.FoundFile,
	Args:  cobra.NoArgs,
	RunE:  showFound,
}

// progressCmd lists or removes checkpoint files
var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "List keyhunt checkpoint (.dat) files",
	Args:  cobra.NoArgs,
	RunE:  showProgress,
}

func showFound(cmd *cobra.Command, args []string) error {
	report, err := findings.CheckFound(cfg.Findings.Dir)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !report.Found {
		fmt.Fprintln(out, "No keys found yet.")
		return nil
	}
	fmt.Fprintf(out, "%s (modified %s)\n\n", report.Path, humanize.Time(report.ModTime))
	for _, e := range report.Entries() {
		fmt.Fprintln(out, e)
	}
	return nil
}

func showProgress(cmd *cobra.Command, args []string) error {
	files, err := findings.ProgressFiles(cfg.Findings.Dir)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(files) == 0 {
		fmt.Fprintln(out, "No checkpoint files.")
		return nil
	}

	flog := logging.For(logger, logging.CategoryFindings)
	for _, f := range files {
		if removeProgress {
			if err := findings.RemoveProgress(f.Path); err != nil {
				return err
			}
			flog.Info("Removed checkpoint", zap.String("path", f.Path))
			fmt.Fprintf(out, "removed %s\n", f.Path)
			continue
		}
		fmt.Fprintf(out, "%-40s %10s  %s\n", f.Path, humanize.Bytes(uint64(f.Size)), humanize.Time(f.ModTime))
	}
	return nil
}
