// Package command maps a search configuration and an assigned key range to
// an invocation of the keyhunt binary.
//
// Clauses are appended in a fixed order:
//
//	-m <mode> -t <threads>
//	-r <start>:<end>
//	-f <input file>
//	-R | -S | -B <movement>
//	-I <stride>          (not for bsgs "both")
//	-c eth               (eth only)
//	-l <look>            (not for eth)
//	-n <n> -k <k>        (bsgs only)
//	-v <prefix>...       (address, rmd160, xpoint with vanity enabled)
//	-C <base> -8 <chars> (address only)
//	-e -b <bits>
//	-q
//
// The matrix display flag is never passed to the binary.
package command

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Mizogg/GUI-keyhunt/internal/config"
	"github.com/Mizogg/GUI-keyhunt/internal/keyspace"
)

// Builder produces invocations for one binary location.
type Builder struct {
	// Program is the path of the search binary.
	Program string

	// InputDir is joined with relative input file names.
	InputDir string
}

// NewBuilder locates the platform executable inside binaryDir.
func NewBuilder(binaryDir, inputDir string) *Builder {
	program := Executable
	if binaryDir != "" {
		program = filepath.Join(binaryDir, Executable)
	}
	return &Builder{Program: program, InputDir: inputDir}
}

// Build returns the invocation for one instance. The result depends only
// on its arguments. An illegal configuration yields a *config.ConfigError
// and no invocation.
func (b *Builder) Build(cfg config.Search, assigned keyspace.Range, index int) (Invocation, error) {
	if err := cfg.Validate(); err != nil {
		return Invocation{}, err
	}
	if assigned.IsZero() {
		return Invocation{}, fmt.Errorf("instance %d: no range assigned", index)
	}

	mode := cfg.Mode
	bsgs := mode == config.ModeBSGS

	args := []string{"-m", string(mode), "-t", strconv.Itoa(cfg.ThreadsFor(index))}
	args = append(args, "-r", assigned.String())

	if file := strings.TrimSpace(cfg.InputFile); file != "" {
		args = append(args, "-f", b.inputPath(file))
	}

	switch {
	case cfg.Movement == "":
	case bsgs:
		args = append(args, "-B", string(cfg.Movement))
	case cfg.Movement == config.MovementRandom:
		args = append(args, "-R")
	case cfg.Movement == config.MovementSequential:
		args = append(args, "-S")
	}

	if stride := strings.TrimSpace(cfg.Stride); stride != "" && !cfg.StrideSuppressed() {
		args = append(args, "-I", stride)
	}

	if cfg.Crypto == config.CryptoETH {
		args = append(args, "-c", string(config.CryptoETH))
	} else if cfg.Look != "" {
		args = append(args, "-l", string(cfg.Look))
	}

	if bsgs {
		if n := strings.TrimSpace(cfg.N); n != "" {
			args = append(args, "-n", n)
		}
		args = append(args, "-k", strconv.Itoa(cfg.K))
	}

	if cfg.Vanity.Enabled && config.VanityModes(mode) {
		for _, prefix := range cfg.Vanity.Tokens() {
			args = append(args, "-v", prefix)
		}
	}

	if mode == config.ModeAddress {
		if cfg.Minikey.Enabled {
			args = append(args, "-C", strings.TrimSpace(cfg.Minikey.Base))
		}
		if cfg.Alphabet.Enabled {
			args = append(args, "-8", strings.TrimSpace(cfg.Alphabet.Chars))
		}
	}

	if cfg.Endomorphism {
		args = append(args, "-e")
	}
	if cfg.Bits > 0 {
		args = append(args, "-b", strconv.Itoa(cfg.Bits))
	}

	if cfg.Quiet {
		args = append(args, "-q")
	}

	return Invocation{Program: b.Program, Args: args}, nil
}

// BuildAll builds one invocation per range, indexed from 1. Either every
// instance gets an invocation or none does.
func (b *Builder) BuildAll(cfg config.Search, ranges []keyspace.Range) ([]Invocation, error) {
	invs := make([]Invocation, 0, len(ranges))
	for i, r := range ranges {
		inv, err := b.Build(cfg, r, i+1)
		if err != nil {
			return nil, err
		}
		invs = append(invs, inv)
	}
	return invs, nil
}

func (b *Builder) inputPath(file string) string {
	if b.InputDir == "" || filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(b.InputDir, file)
}
