// Package worker supervises a single run of the search binary. A Process
// starts the binary, streams its combined output line by line to its
// observers and reports how it ended. Only the Process itself writes its
// state; everyone else observes it.
package worker

import (
	"errors"
	"fmt"
	"time"
)

// Phase is the coarse lifecycle position of a Process.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRunning
	PhaseStopping
	PhaseFinished
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRunning:
		return "running"
	case PhaseStopping:
		return "stopping"
	case PhaseFinished:
		return "finished"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is a snapshot of a Process.
//
// Finished covers both natural exits and user terminations: Killed tells
// them apart, and ExitCode is meaningful only when Killed is false.
// Failed means the process could not be started or waited on.
type State struct {
	Phase      Phase
	ExitCode   int
	Killed     bool
	Err        error
	Usage      *ResourceUsage
	StartedAt  time.Time
	FinishedAt time.Time
}

// Terminal reports whether the process has ended.
func (s State) Terminal() bool {
	return s.Phase == PhaseFinished || s.Phase == PhaseFailed
}

// Succeeded reports a natural exit with status zero.
func (s State) Succeeded() bool {
	return s.Phase == PhaseFinished && !s.Killed && s.ExitCode == 0
}

// Duration is the wall time between start and exit.
func (s State) Duration() time.Duration {
	if s.StartedAt.IsZero() || s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

func (s State) String() string {
	switch s.Phase {
	case PhaseFinished:
		if s.Killed {
			return "finished(killed)"
		}
		return fmt.Sprintf("finished(%d)", s.ExitCode)
	case PhaseFailed:
		return fmt.Sprintf("failed(%v)", s.Err)
	default:
		return s.Phase.String()
	}
}

// ResourceUsage contains resource consumption metrics for an exited process.
type ResourceUsage struct {
	UserTimeMs   int64 `json:"user_time_ms"`
	SystemTimeMs int64 `json:"system_time_ms"`
	MaxRSSBytes  int64 `json:"max_rss_bytes"`
}

var (
	// ErrSpawn is matched by every *SpawnError.
	ErrSpawn = errors.New("failed to start search binary")

	// ErrKill is matched by every *KillError.
	ErrKill = errors.New("failed to terminate search binary")
)

// SpawnError reports that the binary could not be launched.
type SpawnError struct {
	Program string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("%s %s: %v", ErrSpawn, e.Program, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

func (e *SpawnError) Is(target error) bool { return target == ErrSpawn }

// KillError reports that a termination request could not be delivered.
type KillError struct {
	PID int
	Err error
}

func (e *KillError) Error() string {
	return fmt.Sprintf("%s (pid %d): %v", ErrKill, e.PID, e.Err)
}

func (e *KillError) Unwrap() error { return e.Err }

func (e *KillError) Is(target error) bool { return target == ErrKill }
