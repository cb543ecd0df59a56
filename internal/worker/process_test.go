package worker

import (
	"bufio"
	"errors"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/Mizogg/GUI-keyhunt/internal/command"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func shell(t *testing.T, script string) command.Invocation {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("process tests use /bin/sh")
	}
	return command.Invocation{Program: "/bin/sh", Args: []string{"-c", script}}
}

func waitDone(t *testing.T, p *Process) State {
	t.Helper()
	select {
	case <-p.Done():
		return p.Status()
	case <-time.After(10 * time.Second):
		t.Fatalf("process %d did not exit", p.Index())
		return State{}
	}
}

func collect(ch <-chan string) []string {
	var out []string
	for line := range ch {
		out = append(out, line)
	}
	return out
}

type recorder struct {
	mu     sync.Mutex
	lines  []string
	exits  []State
	onExit chan struct{}
}

func newRecorder() *recorder {
	return &recorder{onExit: make(chan struct{}, 1)}
}

func (r *recorder) Line(_ int, line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
}

func (r *recorder) Exited(_ int, st State) {
	r.mu.Lock()
	r.exits = append(r.exits, st)
	r.mu.Unlock()
	r.onExit <- struct{}{}
}

func TestProcess_FinishedZero(t *testing.T) {
	p := New(1, shell(t, "echo one; echo two 1>&2; echo three"), WithLogger(zap.NewNop()))
	assert.Equal(t, PhaseIdle, p.Status().Phase)

	lines := p.Lines()
	require.NoError(t, p.Start())

	got := collect(lines)
	st := waitDone(t, p)

	assert.Equal(t, []string{"one", "two", "three"}, got)
	assert.Equal(t, "finished(0)", st.String())
	assert.True(t, st.Succeeded())
	assert.NotNil(t, st.Usage)
}

func TestProcess_FinishedNonZero(t *testing.T) {
	p := New(2, shell(t, "echo failing; exit 3"))
	rec := newRecorder()
	p.Subscribe(rec)

	require.NoError(t, p.Start())
	st := p.Wait()

	assert.Equal(t, PhaseFinished, st.Phase)
	assert.Equal(t, 3, st.ExitCode)
	assert.False(t, st.Killed)
	assert.Equal(t, "finished(3)", st.String())

	<-rec.onExit
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{"failing"}, rec.lines)
	require.Len(t, rec.exits, 1)
	assert.Equal(t, 3, rec.exits[0].ExitCode)
}

func TestProcess_CarriageReturns(t *testing.T) {
	p := New(1, shell(t, `printf 'progress 1\rprogress 2\r\ndone\n\nlast'`))
	lines := p.Lines()
	require.NoError(t, p.Start())

	assert.Equal(t, []string{"progress 1", "progress 2", "done", "last"}, collect(lines))
	waitDone(t, p)
}

func TestProcess_TerminateKillsGroup(t *testing.T) {
	// The background sleep holds the output pipe open; the process only
	// finishes if the whole group is killed.
	p := New(1, shell(t, "echo started; sleep 30 & sleep 30; wait"))
	lines := p.Lines()
	require.NoError(t, p.Start())

	assert.Equal(t, "started", <-lines)
	assert.Equal(t, PhaseRunning, p.Status().Phase)
	assert.NotZero(t, p.PID())

	require.NoError(t, p.Terminate())
	st := waitDone(t, p)
	collect(lines)

	assert.Equal(t, PhaseFinished, st.Phase)
	assert.True(t, st.Killed)
	assert.Equal(t, "finished(killed)", st.String())
	assert.False(t, st.Succeeded())
}

func TestFinalState_LateTerminateKeepsExitStatus(t *testing.T) {
	inv := shell(t, "exit 3")

	waitErr := func(script string) error {
		return exec.Command("/bin/sh", "-c", script).Run()
	}
	final := func(err error) State {
		p := New(1, inv)
		p.cmd = &exec.Cmd{}
		p.killRequested = true
		return p.finalState(err)
	}

	st := final(nil)
	assert.False(t, st.Killed)
	assert.Equal(t, "finished(0)", st.String())

	st = final(waitErr("exit 3"))
	assert.False(t, st.Killed)
	assert.Equal(t, 3, st.ExitCode)
	assert.Equal(t, "finished(3)", st.String())

	st = final(waitErr("kill -9 $$"))
	assert.True(t, st.Killed)
	assert.Equal(t, "finished(killed)", st.String())
}

func TestProcess_TerminateIdempotent(t *testing.T) {
	p := New(1, shell(t, "sleep 30"))
	assert.NoError(t, p.Terminate(), "terminate before start is a no-op")

	require.NoError(t, p.Start())
	assert.NoError(t, p.Terminate())
	assert.NoError(t, p.Terminate())

	st := waitDone(t, p)
	assert.True(t, st.Killed)
	assert.NoError(t, p.Terminate(), "terminate after exit is a no-op")
	assert.True(t, p.Status().Killed)
}

func TestProcess_SpawnError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix paths")
	}
	p := New(4, command.Invocation{Program: "/nonexistent/keyhunt", Args: []string{"-m", "address"}})
	rec := newRecorder()
	p.Subscribe(rec)
	lines := p.Lines()

	err := p.Start()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSpawn))
	var spawnErr *SpawnError
	require.True(t, errors.As(err, &spawnErr))
	assert.Equal(t, "/nonexistent/keyhunt", spawnErr.Program)

	st := waitDone(t, p)
	assert.Equal(t, PhaseFailed, st.Phase)
	assert.True(t, strings.HasPrefix(st.String(), "failed("))
	assert.Empty(t, collect(lines))
	<-rec.onExit
}

func TestProcess_StartTwice(t *testing.T) {
	p := New(1, shell(t, "exit 0"))
	require.NoError(t, p.Start())
	assert.Error(t, p.Start())
	waitDone(t, p)
}

func TestProcess_SubscribeAfterExit(t *testing.T) {
	p := New(1, shell(t, "exit 5"))
	require.NoError(t, p.Start())
	waitDone(t, p)

	rec := newRecorder()
	p.Subscribe(rec)
	<-rec.onExit
	assert.Equal(t, 5, rec.exits[0].ExitCode)

	// Lines after exit is an already-closed stream.
	assert.Empty(t, collect(p.Lines()))
}

func TestProcess_ObserverFuncs(t *testing.T) {
	var mu sync.Mutex
	var lines []string
	exited := make(chan State, 1)

	p := New(3, shell(t, "echo a; echo b"))
	p.Subscribe(ObserverFuncs{
		OnLine: func(index int, line string) {
			mu.Lock()
			defer mu.Unlock()
			lines = append(lines, line)
		},
		OnExit: func(index int, st State) { exited <- st },
	})
	p.Subscribe(ObserverFuncs{})

	require.NoError(t, p.Start())
	st := <-exited
	waitDone(t, p)

	assert.True(t, st.Succeeded())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b"}, lines)
}

func TestScanLines(t *testing.T) {
	scanner := bufio.NewScanner(strings.NewReader("a\r\nb\rc\n\r\nd\r"))
	scanner.Split(scanLines)

	var got []string
	for scanner.Scan() {
		got = append(got, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, []string{"a", "b", "c", "", "d"}, got)
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{State{}, "idle"},
		{State{Phase: PhaseRunning}, "running"},
		{State{Phase: PhaseStopping}, "stopping"},
		{State{Phase: PhaseFinished}, "finished(0)"},
		{State{Phase: PhaseFinished, ExitCode: 3}, "finished(3)"},
		{State{Phase: PhaseFinished, Killed: true, ExitCode: -1}, "finished(killed)"},
		{State{Phase: PhaseFailed, Err: errors.New("boom")}, "failed(boom)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}

func TestKillError(t *testing.T) {
	err := error(&KillError{PID: 42, Err: errors.New("operation not permitted")})
	assert.True(t, errors.Is(err, ErrKill))
	assert.Contains(t, err.Error(), "pid 42")
}
