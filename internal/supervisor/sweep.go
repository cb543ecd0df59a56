package supervisor

import (
	"context"
	"time"
)

// SweepTimeout bounds the orphan sweep.
const SweepTimeout = 2 * time.Second

// Sweeper kills search binaries the supervisor no longer tracks, such as
// processes left behind by an earlier crash. Failures are reported but
// never fatal.
type Sweeper interface {
	Sweep(ctx context.Context) error
}

// SweeperFunc adapts a function to a Sweeper.
type SweeperFunc func(ctx context.Context) error

func (f SweeperFunc) Sweep(ctx context.Context) error { return f(ctx) }

// NoSweep disables the orphan sweep.
var NoSweep Sweeper = SweeperFunc(func(context.Context) error { return nil })

// processSweeper kills every process running the named executable.
type processSweeper struct {
	executable string
}

// NewSweeper returns the platform sweeper for the given executable name.
func NewSweeper(executable string) Sweeper {
	return &processSweeper{executable: executable}
}
