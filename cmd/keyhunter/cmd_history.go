package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Mizogg/GUI-keyhunt/internal/history"
	"github.com/Mizogg/GUI-keyhunt/internal/logging"
)

var historyLimit int

// historyCmd lists past runs
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent runs and how each instance ended",
	Args:  cobra.NoArgs,
	RunE:  showHistory,
}

func showHistory(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if _, err := os.Stat(filepath.Join(cfg.History.DataDir, history.FileName)); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}

	store, err := history.NewStore(cfg.History.DataDir, logging.For(logger, logging.CategoryHistory))
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Recent(historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}

	for _, r := range runs {
		ended := "running or finished"
		if r.StoppedAt != nil {
			ended = "stopped " + humanize.Time(*r.StoppedAt)
		}
		fmt.Fprintf(out, "%s  %s  %s/%s  %s  %d instances  (%s)\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Mode, r.Crypto, r.Range, r.Instances, ended)
		for _, res := range r.Results {
			code := ""
			if res.ExitCode != nil {
				code = fmt.Sprintf(" exit %d", *res.ExitCode)
			}
			fmt.Fprintf(out, "  [%d/%d] %-9s %s%s\n", res.Index, r.Instances, res.Outcome, res.SubRange, code)
		}
	}
	return nil
}
