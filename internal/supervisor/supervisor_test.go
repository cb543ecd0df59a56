package supervisor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/Mizogg/GUI-keyhunt/internal/command"
	"github.com/Mizogg/GUI-keyhunt/internal/config"
	"github.com/Mizogg/GUI-keyhunt/internal/console"
	"github.com/Mizogg/GUI-keyhunt/internal/keyspace"
	"github.com/Mizogg/GUI-keyhunt/internal/worker"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeBinary writes a stand-in for the search binary and returns a builder
// that points at it.
func fakeBinary(t *testing.T, body string) *command.Builder {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake binary is a shell script")
	}
	path := filepath.Join(t.TempDir(), "keyhunt")
	script := "#!/bin/sh\necho \"args: $*\"\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return &command.Builder{Program: path}
}

type sinks struct {
	mu      sync.Mutex
	buffers map[int]*console.Buffer
	counts  []int
}

func newSinks() *sinks {
	return &sinks{buffers: make(map[int]*console.Buffer)}
}

func (s *sinks) factory(index, count int) console.Sink {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := console.NewBuffer(1000)
	s.buffers[index] = b
	s.counts = append(s.counts, count)
	return b
}

func (s *sinks) lines(index int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffers[index].Lines()
}

type countingSweeper struct{ calls atomic.Int32 }

func (c *countingSweeper) Sweep(context.Context) error {
	c.calls.Add(1)
	return errors.New("pkill: no process found")
}

type runEvents struct {
	mu      sync.Mutex
	started []uuid.UUID
	exited  map[int]worker.State
	stopped []uuid.UUID
}

func newRunEvents() *runEvents {
	return &runEvents{exited: make(map[int]worker.State)}
}

func (r *runEvents) RunStarted(info RunInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, info.ID)
}

func (r *runEvents) InstanceExited(_ uuid.UUID, index int, st worker.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exited[index] = st
}

func (r *runEvents) RunStopped(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = append(r.stopped, id)
}

func mustRange(t *testing.T, text string) keyspace.Range {
	t.Helper()
	r, err := keyspace.ParseRange(text)
	require.NoError(t, err)
	return r
}

func newSupervisor(t *testing.T, count int, b *command.Builder, opts ...Option) (*Supervisor, *sinks, *countingSweeper) {
	t.Helper()
	sk := newSinks()
	sw := &countingSweeper{}
	opts = append([]Option{WithLogger(zap.NewNop()), WithBuilder(b), WithSweeper(sw)}, opts...)
	s, err := New(count, sk.factory, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.StopAll(context.Background()) })
	return s, sk, sw
}

func states(s *Supervisor) []InstanceState {
	var out []InstanceState
	for _, st := range s.Snapshot() {
		out = append(out, st.State)
	}
	return out
}

func TestNew_RejectsBadCount(t *testing.T) {
	_, err := New(0, nil)
	assert.ErrorIs(t, err, ErrInvalidCount)
}

func TestStopAll_IdempotentWhenIdle(t *testing.T) {
	s, _, _ := newSupervisor(t, 2, &command.Builder{Program: "keyhunt"})
	before := s.Snapshot()

	require.NoError(t, s.StopAll(context.Background()))
	require.NoError(t, s.StopAll(context.Background()))

	assert.Equal(t, before, s.Snapshot())
	assert.Equal(t, []InstanceState{StateEmpty, StateEmpty}, states(s))
}

func TestStartAll_ConfigErrorStartsNothing(t *testing.T) {
	s, sk, sw := newSupervisor(t, 4, fakeBinary(t, "exec sleep 30"))

	cfg := config.DefaultSearch()
	cfg.Movement = config.MovementDance

	_, err := s.StartAll(context.Background(), cfg, mustRange(t, "0:ffff"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrConfig))

	assert.Equal(t, []InstanceState{StateEmpty, StateEmpty, StateEmpty, StateEmpty}, states(s))
	assert.Zero(t, s.Running())
	assert.Empty(t, sk.lines(1))
	assert.Zero(t, sw.calls.Load())
}

func TestStartAll_RangeTooSmall(t *testing.T) {
	s, _, _ := newSupervisor(t, 4, fakeBinary(t, "exit 0"))

	_, err := s.StartAll(context.Background(), config.DefaultSearch(), mustRange(t, "0:2"))
	assert.ErrorIs(t, err, keyspace.ErrRangeTooSmall)
	assert.Zero(t, s.Running())
}

func TestStartAll_RunsToCompletion(t *testing.T) {
	events := newRunEvents()
	s, sk, _ := newSupervisor(t, 2, fakeBinary(t, "exit 0"), WithObserver(events))

	info, err := s.StartAll(context.Background(), config.DefaultSearch(), mustRange(t, "0:3f"))
	require.NoError(t, err)
	assert.Equal(t, 2, info.Spawned)
	assert.Empty(t, info.SpawnErrors)
	require.Len(t, info.Ranges, 2)
	assert.Equal(t, info.ID, s.RunID())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))

	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]InstanceState{StateCompleted, StateCompleted}, states(s))
	}, 5*time.Second, 10*time.Millisecond)

	lines := sk.lines(2)
	require.GreaterOrEqual(t, len(lines), 5)
	assert.Equal(t, "Instance 2/2", lines[0])
	assert.Equal(t, "Range: 20 to 3f", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "Executing command: "))
	assert.Contains(t, lines[2], "-r 20:3f")
	assert.Contains(t, lines[3], "args: -m address")
	assert.Equal(t, MsgSucceeded, lines[len(lines)-1])

	events.mu.Lock()
	defer events.mu.Unlock()
	assert.Equal(t, []uuid.UUID{info.ID}, events.started)
	assert.Len(t, events.exited, 2)
}

func TestStopAll_KillsAndWaits(t *testing.T) {
	events := newRunEvents()
	s, sk, sw := newSupervisor(t, 2, fakeBinary(t, "exec sleep 30"), WithObserver(events))

	info, err := s.StartAll(context.Background(), config.DefaultSearch(), mustRange(t, "0:3f"))
	require.NoError(t, err)
	assert.Equal(t, 2, s.Running())
	for _, st := range s.Snapshot() {
		assert.NotZero(t, st.PID)
	}

	require.NoError(t, s.StopAll(context.Background()))

	// Everything is settled by the time StopAll returns.
	assert.Equal(t, []InstanceState{StateKilled, StateKilled}, states(s))
	for _, st := range s.Snapshot() {
		assert.Zero(t, st.PID)
		assert.True(t, st.Last.Killed)
	}
	for i := 1; i <= 2; i++ {
		lines := sk.lines(i)
		assert.Equal(t, MsgStoppedByUser, lines[len(lines)-1])
	}
	assert.Equal(t, int32(1), sw.calls.Load())
	assert.Equal(t, uuid.Nil, s.RunID())

	require.NoError(t, s.StopAll(context.Background()))
	assert.Equal(t, int32(2), sw.calls.Load())

	events.mu.Lock()
	defer events.mu.Unlock()
	assert.Equal(t, []uuid.UUID{info.ID}, events.stopped)
}

func TestStopAll_KillFailureStillClears(t *testing.T) {
	s, _, sw := newSupervisor(t, 2, fakeBinary(t, "exec sleep 30"))
	s.terminate = func(p *worker.Process) error {
		assert.NoError(t, p.Terminate())
		<-p.Done()
		return &worker.KillError{PID: p.PID(), Err: errors.New("operation not permitted")}
	}

	_, err := s.StartAll(context.Background(), config.DefaultSearch(), mustRange(t, "0:3f"))
	require.NoError(t, err)
	require.Equal(t, 2, s.Running())

	err = s.StopAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, worker.ErrKill)
	assert.Contains(t, err.Error(), "instance 1")
	assert.Contains(t, err.Error(), "instance 2")

	assert.Zero(t, s.Running())
	assert.Equal(t, []InstanceState{StateKilled, StateKilled}, states(s))
	for _, st := range s.Snapshot() {
		assert.Zero(t, st.PID)
	}
	assert.Equal(t, int32(1), sw.calls.Load())
}

func TestStartAll_CancelledDuringReplacementStartsNothing(t *testing.T) {
	events := newRunEvents()
	s, _, _ := newSupervisor(t, 2, fakeBinary(t, "exec sleep 30"), WithObserver(events))

	first, err := s.StartAll(context.Background(), config.DefaultSearch(), mustRange(t, "0:3f"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.StartAll(ctx, config.DefaultSearch(), mustRange(t, "40:7f"))
	assert.ErrorIs(t, err, context.Canceled)

	assert.Zero(t, s.Running())
	assert.Equal(t, uuid.Nil, s.RunID())
	for _, st := range s.Snapshot() {
		assert.Zero(t, st.PID)
		assert.Equal(t, StateKilled, st.State)
	}

	// The old workers were still signalled and exit on their own.
	require.Eventually(t, func() bool {
		events.mu.Lock()
		defer events.mu.Unlock()
		return len(events.exited) == 2
	}, 5*time.Second, 10*time.Millisecond)

	events.mu.Lock()
	defer events.mu.Unlock()
	assert.Equal(t, []uuid.UUID{first.ID}, events.started)
	assert.Equal(t, []uuid.UUID{first.ID}, events.stopped)
}

func TestStartAll_ReplacesRunningWorkers(t *testing.T) {
	events := newRunEvents()
	s, sk, sw := newSupervisor(t, 2, fakeBinary(t, "exec sleep 30"), WithObserver(events))
	ctx := context.Background()

	first, err := s.StartAll(ctx, config.DefaultSearch(), mustRange(t, "0:3f"))
	require.NoError(t, err)
	oldPIDs := []int{s.Snapshot()[0].PID, s.Snapshot()[1].PID}

	second, err := s.StartAll(ctx, config.DefaultSearch(), mustRange(t, "40:7f"))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	snap := s.Snapshot()
	for i, st := range snap {
		assert.Equal(t, StateRunning, st.State)
		assert.NotEqual(t, oldPIDs[i], st.PID)
	}
	assert.Equal(t, "40:5f", snap[0].Range)
	assert.Contains(t, sk.lines(1), MsgStoppedByUser)
	assert.Zero(t, sw.calls.Load(), "replacement does not sweep")

	events.mu.Lock()
	assert.Equal(t, []uuid.UUID{first.ID}, events.stopped)
	events.mu.Unlock()

	require.NoError(t, s.StopAll(ctx))
}

func TestSiblingsIndependentOnAbnormalExit(t *testing.T) {
	body := `case "$*" in
*"-r 0:1f"*) echo crashing; exit 3 ;;
esac
exec sleep 30`
	s, sk, _ := newSupervisor(t, 2, fakeBinary(t, body))

	_, err := s.StartAll(context.Background(), config.DefaultSearch(), mustRange(t, "0:3f"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return s.Snapshot()[0].State == StateCompleted
	}, 10*time.Second, 10*time.Millisecond)

	snap := s.Snapshot()
	assert.Equal(t, 3, snap[0].Last.ExitCode)
	assert.Equal(t, StateRunning, snap[1].State)
	assert.Equal(t, 1, s.Running())

	lines := sk.lines(1)
	assert.Equal(t, "Command execution failed (exit code 3)", lines[len(lines)-1])

	require.NoError(t, s.StopAll(context.Background()))
	assert.Equal(t, []InstanceState{StateCompleted, StateKilled}, states(s))
}

func TestStartAll_SpawnFailureIsPerInstance(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix paths")
	}
	s, sk, _ := newSupervisor(t, 2, &command.Builder{Program: "/nonexistent/keyhunt"})

	info, err := s.StartAll(context.Background(), config.DefaultSearch(), mustRange(t, "0:3f"))
	require.NoError(t, err)
	assert.Zero(t, info.Spawned)
	require.Len(t, info.SpawnErrors, 2)
	assert.ErrorIs(t, info.SpawnErrors[1], worker.ErrSpawn)

	assert.Equal(t, []InstanceState{StateFailed, StateFailed}, states(s))
	lines := sk.lines(2)
	assert.True(t, strings.HasPrefix(lines[len(lines)-1], "Error: "))
}

func TestRelayout(t *testing.T) {
	s, sk, sw := newSupervisor(t, 1, fakeBinary(t, "exec sleep 30"))

	_, err := s.StartAll(context.Background(), config.DefaultSearch(), mustRange(t, "0:ff"))
	require.NoError(t, err)

	require.NoError(t, s.Relayout(context.Background(), 4))
	assert.Equal(t, 4, s.Count())
	assert.Equal(t, []InstanceState{StateEmpty, StateEmpty, StateEmpty, StateEmpty}, states(s))
	assert.Zero(t, s.Running(), "relayout does not restart")
	assert.Equal(t, int32(1), sw.calls.Load())

	sk.mu.Lock()
	assert.Equal(t, []int{1, 4, 4, 4, 4}, sk.counts)
	sk.mu.Unlock()

	assert.ErrorIs(t, s.Relayout(context.Background(), 0), ErrInvalidCount)
}

func TestExitMessage(t *testing.T) {
	assert.Equal(t, MsgStoppedByUser, exitMessage(worker.State{Phase: worker.PhaseFinished, Killed: true}))
	assert.Equal(t, MsgSucceeded, exitMessage(worker.State{Phase: worker.PhaseFinished}))
	assert.Equal(t, "Command execution failed (exit code 1)", exitMessage(worker.State{Phase: worker.PhaseFinished, ExitCode: 1}))
	assert.Equal(t, "Error: boom", exitMessage(worker.State{Phase: worker.PhaseFailed, Err: errors.New("boom")}))
}

func TestInstanceStateString(t *testing.T) {
	assert.Equal(t, "replaced", StateReplaced.String())
	assert.True(t, StateStarting.Live())
	assert.False(t, StateCompleted.Live())
}
