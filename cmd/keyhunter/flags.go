package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Mizogg/GUI-keyhunt/internal/config"
	"github.com/Mizogg/GUI-keyhunt/internal/keyspace"
)

// searchOptions are the flags shared by run, tui and command. Only flags
// the user actually set override the configuration file.
type searchOptions struct {
	rangeText string
	bits      int
	instances int
	binaryDir string
	inputDir  string

	crypto   string
	mode     string
	movement string
	look     string
	threads  int
	input    string
	stride   string
	k        int
	n        string
	vanity   string
	quiet    bool
}

var (
	runOpts     searchOptions
	tuiOpts     searchOptions
	commandOpts searchOptions
)

func (o *searchOptions) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&o.rangeText, "range", "r", "", "Keyspace as start:end in hex")
	f.IntVarP(&o.bits, "bits", "b", 0, "Search the puzzle range of this bit size")
	f.IntVarP(&o.instances, "instances", "i", 0, fmt.Sprintf("Number of processes %v", config.InstanceCounts))
	f.StringVar(&o.binaryDir, "binary-dir", "", "Directory holding the keyhunt executable")
	f.StringVar(&o.inputDir, "input-dir", "", "Directory prepended to relative input files")

	f.StringVar(&o.crypto, "crypto", "", "btc or eth")
	f.StringVarP(&o.mode, "mode", "m", "", "address, rmd160, xpoint, bsgs or vanity")
	f.StringVar(&o.movement, "movement", "", "sequential, random, backward, both or dance")
	f.StringVarP(&o.look, "look", "l", "", "compress, uncompress or both")
	f.IntVarP(&o.threads, "threads", "t", 0, "Threads per process")
	f.StringVarP(&o.input, "file", "f", "", "Target file")
	f.StringVarP(&o.stride, "stride", "I", "", "Stride")
	f.IntVarP(&o.k, "k", "k", 0, "bsgs k factor")
	f.StringVarP(&o.n, "n", "n", "", "bsgs n value")
	f.StringVar(&o.vanity, "vanity", "", "Vanity prefixes, whitespace or comma separated")
	f.BoolVarP(&o.quiet, "quiet", "q", false, "Pass -q to keyhunt")

	cmd.MarkFlagsMutuallyExclusive("range", "bits")
}

// apply overrides cfg with every flag set on cmd.
func (o *searchOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	s := &cfg.Search

	if f.Changed("range") {
		if _, err := keyspace.ParseRange(o.rangeText); err != nil {
			return err
		}
		cfg.Range = o.rangeText
	}
	if f.Changed("bits") {
		r, err := keyspace.FromBits(o.bits)
		if err != nil {
			return err
		}
		// Only the range is derived; keyhunt's own -b would override each
		// instance's sub-range.
		cfg.Range = r.String()
	}
	if f.Changed("instances") {
		cfg.Instances = o.instances
	}
	if f.Changed("binary-dir") {
		cfg.Binary.Dir = o.binaryDir
	}
	if f.Changed("input-dir") {
		cfg.Binary.InputDir = o.inputDir
	}
	if f.Changed("crypto") {
		s.Crypto = config.Crypto(o.crypto)
	}
	if f.Changed("mode") {
		s.Mode = config.Mode(o.mode)
		// A bsgs-only movement from the file falls back to sequential,
		// which every mode accepts.
		if !f.Changed("movement") && s.Movement != "" && !slices.Contains(config.LegalMovements(s.Mode), s.Movement) {
			s.Movement = config.MovementSequential
		}
	}
	if f.Changed("movement") {
		s.Movement = config.Movement(o.movement)
	}
	if f.Changed("look") {
		s.Look = config.Look(o.look)
	}
	if f.Changed("threads") {
		s.Threads = o.threads
	}
	if f.Changed("file") {
		s.InputFile = o.input
	}
	if f.Changed("stride") {
		s.Stride = o.stride
	}
	if f.Changed("k") {
		s.K = o.k
	}
	if f.Changed("n") {
		s.N = o.n
	}
	if f.Changed("vanity") {
		s.Vanity = config.VanityOptions{Enabled: o.vanity != "", Prefixes: o.vanity}
	}
	if f.Changed("quiet") {
		s.Quiet = o.quiet
	}
	return nil
}

// prepare applies flags, validates, and parses the range.
func (o *searchOptions) prepare(cmd *cobra.Command, cfg *config.Config) (keyspace.Range, error) {
	if err := o.apply(cmd, cfg); err != nil {
		return keyspace.Range{}, err
	}
	if err := cfg.Validate(); err != nil {
		return keyspace.Range{}, err
	}
	return cfg.KeyRange()
}
