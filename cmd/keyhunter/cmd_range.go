package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Mizogg/GUI-keyhunt/internal/keyspace"
)

// rangeCmd groups keyspace helpers
var rangeCmd = &cobra.Command{
	Use:   "range",
	Short: "Inspect and split key ranges",
}

var rangeInfoCmd = &cobra.Command{
	Use:   "info [start:end]",
	Short: "Show the size of a range and a naive search-time estimate",
	Long: `Shows the size of a range and how long an exhaustive search would take at
keys_per_second from the configuration. Without an argument the configured
range is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: rangeInfo,
}

var rangeSplitCmd = &cobra.Command{
	Use:   "split <start:end> <n>",
	Short: "Split a range into n contiguous parts",
	Args:  cobra.ExactArgs(2),
	RunE:  rangeSplit,
}

var rangeBitsCmd = &cobra.Command{
	Use:   "bits <n>",
	Short: "Show the range of keys with exactly n bits",
	Args:  cobra.ExactArgs(1),
	RunE:  rangeBits,
}

func rangeInfo(cmd *cobra.Command, args []string) error {
	text := cfg.Range
	if len(args) == 1 {
		text = args[0]
	}
	r, err := keyspace.ParseRange(text)
	if err != nil {
		return err
	}
	writeRangeInfo(cmd.OutOrStdout(), r, cfg.KeysPerSecond)
	return nil
}

func writeRangeInfo(out io.Writer, r keyspace.Range, rate int64) {
	info := keyspace.Describe(r, rate)
	fmt.Fprintf(out, "Start:    %s\n", info.Start)
	fmt.Fprintf(out, "End:      %s\n", info.End)
	fmt.Fprintf(out, "Keys:     %s\n", info.SizeText())
	fmt.Fprintf(out, "Bits:     %d\n", info.Bits)
	fmt.Fprintf(out, "Estimate: %s at %d keys/s\n", info.EstimateText(), info.Rate)
}

func rangeSplit(cmd *cobra.Command, args []string) error {
	r, err := keyspace.ParseRange(args[0])
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid part count %q: %w", args[1], err)
	}
	parts, err := keyspace.Split(r, n)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i, p := range parts {
		fmt.Fprintf(out, "%d/%d %s\n", i+1, n, p)
	}
	return nil
}

func rangeBits(cmd *cobra.Command, args []string) error {
	bits, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid bit size %q: %w", args[0], err)
	}
	r, err := keyspace.FromBits(bits)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, r)
	writeRangeInfo(out, r, cfg.KeysPerSecond)
	return nil
}
