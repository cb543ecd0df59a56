package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mizogg/GUI-keyhunt/internal/command"
	"github.com/Mizogg/GUI-keyhunt/internal/keyspace"
)

// commandCmd prints the invocations a run would use
var commandCmd = &cobra.Command{
	Use:   "command",
	Short: "Print the keyhunt command line of every instance without running it",
	Args:  cobra.NoArgs,
	RunE:  showCommands,
}

func showCommands(cmd *cobra.Command, args []string) error {
	total, err := commandOpts.prepare(cmd, cfg)
	if err != nil {
		return err
	}

	ranges, err := keyspace.Split(total, cfg.Instances)
	if err != nil {
		return err
	}
	invs, err := command.NewBuilder(cfg.Binary.Dir, cfg.Binary.InputDir).BuildAll(cfg.Search, ranges)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i, inv := range invs {
		start, end := ranges[i].Hex()
		fmt.Fprintf(out, "Instance %d/%d\n", i+1, len(invs))
		fmt.Fprintf(out, "Range: %s to %s\n", start, end)
		fmt.Fprintf(out, "%s\n\n", inv)
	}
	return nil
}
