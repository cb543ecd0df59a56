package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Mizogg/GUI-keyhunt/internal/findings"
	"github.com/Mizogg/GUI-keyhunt/internal/logging"
	"github.com/Mizogg/GUI-keyhunt/internal/supervisor"
	"github.com/Mizogg/GUI-keyhunt/internal/tui"
)

// tuiCmd launches the dashboard
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive multi-instance dashboard",
	Long: `Shows one console per instance in a grid.

Keys:
  s          start all instances
  x          stop all instances
  1 2 4 6 8  change the number of instances (stops the current run)
  c          clear every console
  t          cycle console retention (50, 100, 500, 1000 lines)
  q          stop everything and quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	total, err := tuiOpts.prepare(cmd, cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer cancel()

	consoles := tui.NewConsoles(cfg.Console.Threshold)
	opts, closeHistory := supervisorOptions(cfg)
	defer closeHistory()

	sup, err := supervisor.New(cfg.Instances, consoles.Sink, opts...)
	if err != nil {
		return err
	}
	// Covers exits that bypass the quit key.
	defer func() {
		if sup.Running() > 0 {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
			defer stopCancel()
			_ = sup.StopAll(stopCtx)
		}
	}()

	model := tui.New(ctx, sup, consoles, cfg.Search, total, logging.For(logger, logging.CategoryTUI))
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx), tea.WithOutput(os.Stdout))

	stopWatch := watchFindings(ctx, cfg, func(r findings.Report) {
		p.Send(tui.FoundMsg{Report: r})
	})
	defer stopWatch()

	_, err = p.Run()
	return err
}
