package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Mizogg/GUI-keyhunt/internal/command"
	"github.com/Mizogg/GUI-keyhunt/internal/config"
	"github.com/Mizogg/GUI-keyhunt/internal/console"
	"github.com/Mizogg/GUI-keyhunt/internal/findings"
	"github.com/Mizogg/GUI-keyhunt/internal/history"
	"github.com/Mizogg/GUI-keyhunt/internal/logging"
	"github.com/Mizogg/GUI-keyhunt/internal/supervisor"
)

// stopTimeout bounds how long shutdown waits for workers to exit.
const stopTimeout = 15 * time.Second

// runCmd runs a search in the foreground
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a search in the foreground",
	Long: `Starts one keyhunt process per instance and prints their output with an
[i/N] prefix. Ctrl+C stops every process and waits for them to exit.`,
	Args: cobra.NoArgs,
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	total, err := runOpts.prepare(cmd, cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	writers := console.NewPrefixWriters(cmd.OutOrStdout(), cfg.Instances)
	sinks := func(index, count int) console.Sink { return writers[index-1] }

	opts, closeHistory := supervisorOptions(cfg)
	defer closeHistory()

	sup, err := supervisor.New(cfg.Instances, sinks, opts...)
	if err != nil {
		return err
	}

	stopWatch := watchFindings(ctx, cfg, func(r findings.Report) {
		for _, w := range writers {
			w.Append("KEY FOUND: see " + r.Path)
		}
	})
	defer stopWatch()

	info, err := sup.StartAll(ctx, cfg.Search, total)
	if err != nil {
		return err
	}
	if info.Spawned == 0 {
		return fmt.Errorf("no instance could be started: %w", errors.Join(spawnErrors(info)...))
	}

	waitErr := sup.Wait(ctx)
	if waitErr != nil {
		logger.Info("Received shutdown signal")
		stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
		defer stopCancel()
		if err := sup.StopAll(stopCtx); err != nil {
			return fmt.Errorf("stop: %w", err)
		}
	}

	printSummary(cmd, sup.Snapshot())
	return nil
}

func spawnErrors(info supervisor.RunInfo) []error {
	errs := make([]error, 0, len(info.SpawnErrors))
	for i := 1; i <= len(info.Ranges); i++ {
		if err, ok := info.SpawnErrors[i]; ok {
			errs = append(errs, err)
		}
	}
	return errs
}

func printSummary(cmd *cobra.Command, snapshot []supervisor.InstanceStatus) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	for _, st := range snapshot {
		fmt.Fprintf(out, "[%d/%d] %-9s %s\n", st.Index, len(snapshot), st.State, st.Range)
	}
}

// supervisorOptions wires logging, the binary location and, when enabled,
// the history store. The returned func closes the store.
func supervisorOptions(cfg *config.Config) ([]supervisor.Option, func()) {
	opts := []supervisor.Option{
		supervisor.WithLogger(logging.For(logger, logging.CategorySupervisor)),
		supervisor.WithBuilder(command.NewBuilder(cfg.Binary.Dir, cfg.Binary.InputDir)),
	}
	if !cfg.History.Enabled {
		return opts, func() {}
	}

	hlog := logging.For(logger, logging.CategoryHistory)
	store, err := history.NewStore(cfg.History.DataDir, hlog)
	if err != nil {
		hlog.Warn("History disabled", zap.Error(err))
		return opts, func() {}
	}
	opts = append(opts, supervisor.WithObserver(store))
	return opts, func() {
		if err := store.Close(); err != nil {
			hlog.Warn("Failed to close history", zap.Error(err))
		}
	}
}

// watchFindings starts the found-file watcher when enabled. The returned
// func stops it.
func watchFindings(ctx context.Context, cfg *config.Config, onFound func(findings.Report)) func() {
	if !cfg.Findings.Watch {
		return func() {}
	}

	flog := logging.For(logger, logging.CategoryFindings)
	w, err := findings.NewWatcher(cfg.Findings.Dir, flog)
	if err != nil {
		flog.Warn("Found-file watcher unavailable", zap.Error(err))
		return func() {}
	}
	if err := w.Start(ctx); err != nil {
		flog.Warn("Found-file watcher unavailable", zap.Error(err))
		w.Stop()
		return func() {}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case r := <-w.Reports():
				flog.Warn("Key found", zap.String("path", r.Path), zap.Strings("entries", r.Entries()))
				onFound(r)
			}
		}
	}()

	return func() {
		close(stop)
		<-done
		w.Stop()
	}
}
