// Package supervisor runs a keyspace search across several instances of the
// search binary. It splits the key range, builds one invocation per
// instance, launches the workers and tears them down again.
//
// StartAll, StopAll and Relayout are serialized. Worker output is relayed
// to each instance's sink from that worker's own goroutine, so a busy
// instance never holds up its siblings or the control operations.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Mizogg/GUI-keyhunt/internal/command"
	"github.com/Mizogg/GUI-keyhunt/internal/config"
	"github.com/Mizogg/GUI-keyhunt/internal/console"
	"github.com/Mizogg/GUI-keyhunt/internal/keyspace"
	"github.com/Mizogg/GUI-keyhunt/internal/logging"
	"github.com/Mizogg/GUI-keyhunt/internal/worker"
)

// ErrInvalidCount is returned for an instance count below one.
var ErrInvalidCount = errors.New("instance count must be positive")

// Messages written to an instance's sink around the binary's own output.
const (
	MsgStoppedByUser = "Process stopped by user"
	MsgSucceeded     = "Command execution finished successfully"
	MsgFailedFormat  = "Command execution failed (exit code %d)"
)

// SinkFactory returns the sink for instance index (1-based) of count.
type SinkFactory func(index, count int) console.Sink

// RunObserver is told about run lifecycle events. Calls may arrive from
// worker goroutines and must not block.
type RunObserver interface {
	RunStarted(info RunInfo)
	InstanceExited(runID uuid.UUID, index int, state worker.State)
	RunStopped(runID uuid.UUID)
}

// RunInfo describes one StartAll call.
type RunInfo struct {
	ID          uuid.UUID
	Started     time.Time
	Config      config.Search
	Total       keyspace.Range
	Ranges      []keyspace.Range
	Invocations []command.Invocation

	// Spawned counts the workers that launched. SpawnErrors maps the
	// index of every instance that did not to its *worker.SpawnError.
	Spawned     int
	SpawnErrors map[int]error
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Supervisor) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBuilder sets the command builder.
func WithBuilder(b *command.Builder) Option {
	return func(s *Supervisor) {
		if b != nil {
			s.builder = b
		}
	}
}

// WithSweeper replaces the orphan sweeper.
func WithSweeper(sw Sweeper) Option {
	return func(s *Supervisor) {
		if sw != nil {
			s.sweeper = sw
		}
	}
}

// WithObserver adds a run observer.
func WithObserver(o RunObserver) Option {
	return func(s *Supervisor) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

type instance struct {
	index     int
	sink      console.Sink
	state     InstanceState
	assigned  keyspace.Range
	proc      *worker.Process
	replacing bool
	last      worker.State
}

// Supervisor owns the instance table.
type Supervisor struct {
	// ctlMu serializes StartAll, StopAll and Relayout.
	ctlMu sync.Mutex

	// mu guards the instance table and the current run.
	mu        sync.RWMutex
	instances []*instance
	runID     uuid.UUID

	sinks     SinkFactory
	builder   *command.Builder
	sweeper   Sweeper
	observers []RunObserver
	logger    *zap.Logger

	// terminate is (*worker.Process).Terminate outside tests.
	terminate func(*worker.Process) error
}

// New creates a supervisor with count empty instances.
func New(count int, sinks SinkFactory, opts ...Option) (*Supervisor, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCount, count)
	}
	if sinks == nil {
		sinks = func(int, int) console.Sink { return console.Discard }
	}

	s := &Supervisor{
		sinks:     sinks,
		builder:   command.NewBuilder("", ""),
		sweeper:   NewSweeper(command.Executable),
		logger:    zap.NewNop(),
		terminate: (*worker.Process).Terminate,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.instances = s.newTable(count)
	return s, nil
}

func (s *Supervisor) newTable(count int) []*instance {
	table := make([]*instance, count)
	for i := range table {
		table[i] = &instance{
			index: i + 1,
			sink:  s.sinks(i+1, count),
			state: StateEmpty,
		}
	}
	return table
}

// Count returns the number of instances.
func (s *Supervisor) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.instances)
}

// RunID returns the id of the current run, or uuid.Nil.
func (s *Supervisor) RunID() uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runID
}

// StartAll splits total across the instances and launches one worker per
// instance. The split and every invocation are computed before anything is
// stopped or spawned, so a rejected configuration leaves the table
// untouched. Workers still running from a previous run are terminated and
// awaited first; if ctx ends during that wait nothing is launched and
// ctx.Err() is returned. A worker that fails to launch is reported to its
// own sink and in RunInfo.SpawnErrors; its siblings still start.
func (s *Supervisor) StartAll(ctx context.Context, cfg config.Search, total keyspace.Range) (RunInfo, error) {
	s.ctlMu.Lock()
	defer s.ctlMu.Unlock()

	count := s.Count()
	ranges, err := keyspace.Split(total, count)
	if err != nil {
		return RunInfo{}, err
	}
	invs, err := s.builder.BuildAll(cfg, ranges)
	if err != nil {
		return RunInfo{}, err
	}

	if err := s.stopLocked(ctx, true); err != nil {
		s.logger.Warn("Previous workers did not stop cleanly", zap.Error(err))
	}
	// The old workers may still be exiting; never run two per instance.
	if err := ctx.Err(); err != nil {
		s.mu.Lock()
		for _, inst := range s.instances {
			if inst.state == StateReplaced {
				inst.state = StateKilled
			}
		}
		s.mu.Unlock()
		return RunInfo{}, err
	}

	info := RunInfo{
		ID:          uuid.New(),
		Started:     time.Now(),
		Config:      cfg,
		Total:       total,
		Ranges:      ranges,
		Invocations: invs,
		SpawnErrors: make(map[int]error),
	}
	log := s.logger.With(zap.String(logging.FieldRunID, info.ID.String()))
	log.Info("Starting run",
		zap.Int("instances", count),
		zap.Stringer(logging.FieldRange, total),
		zap.String("mode", string(cfg.Mode)))

	s.mu.Lock()
	s.runID = info.ID
	table := s.instances
	s.mu.Unlock()

	for _, o := range s.observers {
		o.RunStarted(info)
	}

	for i, inst := range table {
		start, end := ranges[i].Hex()
		inst.sink.Append(fmt.Sprintf("Instance %d/%d", inst.index, count))
		inst.sink.Append(fmt.Sprintf("Range: %s to %s", start, end))
		inst.sink.Append("Executing command: " + invs[i].String())

		proc := worker.New(inst.index, invs[i],
			worker.WithLogger(logging.For(s.logger, logging.CategoryWorker).With(zap.String(logging.FieldRunID, info.ID.String()))))
		proc.Subscribe(s.relay(info.ID, inst, proc))

		s.mu.Lock()
		inst.proc = proc
		inst.assigned = ranges[i]
		inst.replacing = false
		inst.last = worker.State{}
		inst.state = StateStarting
		s.mu.Unlock()

		if err := proc.Start(); err != nil {
			info.SpawnErrors[inst.index] = err
			log.Warn("Instance failed to start", zap.Int(logging.FieldInstance, inst.index), zap.Error(err))
			continue
		}
		info.Spawned++

		s.mu.Lock()
		if inst.proc == proc && inst.state == StateStarting {
			inst.state = StateRunning
		}
		s.mu.Unlock()

		log.Debug("Instance started",
			zap.Int(logging.FieldInstance, inst.index),
			zap.Int(logging.FieldPID, proc.PID()),
			zap.Stringer(logging.FieldRange, ranges[i]))
	}

	return info, nil
}

// relay forwards one worker's output and exit to its instance.
func (s *Supervisor) relay(runID uuid.UUID, inst *instance, proc *worker.Process) worker.Observer {
	sink := inst.sink
	return worker.ObserverFuncs{
		OnLine: func(_ int, line string) {
			sink.Append(line)
		},
		OnExit: func(index int, st worker.State) {
			s.mu.Lock()
			if inst.proc == proc {
				inst.last = st
				inst.state = exitState(st, inst.replacing)
			}
			s.mu.Unlock()

			sink.Append(exitMessage(st))
			for _, o := range s.observers {
				o.InstanceExited(runID, index, st)
			}
		},
	}
}

func exitState(st worker.State, replacing bool) InstanceState {
	switch {
	case st.Killed && replacing:
		return StateReplaced
	case st.Killed:
		return StateKilled
	case st.Phase == worker.PhaseFailed:
		return StateFailed
	default:
		return StateCompleted
	}
}

func exitMessage(st worker.State) string {
	switch {
	case st.Killed:
		return MsgStoppedByUser
	case st.Phase == worker.PhaseFailed:
		return fmt.Sprintf("Error: %v", st.Err)
	case st.ExitCode == 0:
		return MsgSucceeded
	default:
		return fmt.Sprintf(MsgFailedFormat, st.ExitCode)
	}
}

// StopAll terminates every live worker, waits for each to exit and clears
// the worker references, then sweeps for untracked search binaries. It is
// safe to call with nothing running and safe to call repeatedly.
// Termination failures are aggregated into the returned error; the
// affected instances are cleared regardless.
func (s *Supervisor) StopAll(ctx context.Context) error {
	s.ctlMu.Lock()
	defer s.ctlMu.Unlock()
	return s.stopLocked(ctx, false)
}

// Relayout stops everything and rebuilds the table with n fresh sinks.
// Nothing is restarted.
func (s *Supervisor) Relayout(ctx context.Context, n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCount, n)
	}

	s.ctlMu.Lock()
	defer s.ctlMu.Unlock()

	err := s.stopLocked(ctx, false)

	s.mu.Lock()
	s.instances = s.newTable(n)
	s.mu.Unlock()

	s.logger.Info("Instances reconfigured", zap.Int("instances", n))
	return err
}

func (s *Supervisor) stopLocked(ctx context.Context, replacing bool) error {
	timer := logging.StartTimer(s.logger, "Stop workers")
	defer timer.Stop()

	s.mu.Lock()
	runID := s.runID
	s.runID = uuid.Nil
	var live []*instance
	for _, inst := range s.instances {
		if inst.proc != nil && !inst.proc.Status().Terminal() {
			inst.replacing = replacing
			live = append(live, inst)
		}
	}
	s.mu.Unlock()

	errs := make([]error, len(live))
	var g errgroup.Group
	for i, inst := range live {
		proc := inst.proc
		g.Go(func() error {
			if err := s.terminate(proc); err != nil {
				errs[i] = fmt.Errorf("instance %d: %w", inst.index, err)
				return nil
			}
			select {
			case <-proc.Done():
			case <-ctx.Done():
				errs[i] = fmt.Errorf("instance %d: %w", inst.index, ctx.Err())
			}
			return nil
		})
	}
	_ = g.Wait()

	s.mu.Lock()
	for _, inst := range s.instances {
		inst.proc = nil
		if inst.state.Live() {
			if replacing {
				inst.state = StateReplaced
			} else {
				inst.state = StateKilled
			}
		}
	}
	s.mu.Unlock()

	err := multierr.Combine(errs...)
	if err != nil {
		s.logger.Error("Failed to terminate some instances", zap.Error(err))
	}
	if len(live) > 0 {
		s.logger.Info("Stopped instances", zap.Int("count", len(live)), zap.Bool("replacing", replacing))
	}

	if !replacing {
		s.sweep(ctx)
	}
	if runID != uuid.Nil {
		for _, o := range s.observers {
			o.RunStopped(runID)
		}
	}
	return err
}

func (s *Supervisor) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, SweepTimeout)
	defer cancel()
	if err := s.sweeper.Sweep(sweepCtx); err != nil {
		s.logger.Debug("Orphan sweep reported an error", zap.Error(err))
	}
}

// Wait blocks until every worker of the current table has exited or ctx
// is done.
func (s *Supervisor) Wait(ctx context.Context) error {
	s.mu.RLock()
	var procs []*worker.Process
	for _, inst := range s.instances {
		if inst.proc != nil {
			procs = append(procs, inst.proc)
		}
	}
	s.mu.RUnlock()

	for _, p := range procs {
		select {
		case <-p.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Running reports how many workers are currently live.
func (s *Supervisor) Running() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, inst := range s.instances {
		if inst.state.Live() {
			n++
		}
	}
	return n
}
