package worker

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Mizogg/GUI-keyhunt/internal/command"
	"github.com/Mizogg/GUI-keyhunt/internal/logging"
)

// maxLineBytes bounds a single output line.
const maxLineBytes = 1024 * 1024

// Option configures a Process.
type Option func(*Process)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Process) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithDir sets the working directory of the binary.
func WithDir(dir string) Option {
	return func(p *Process) { p.dir = dir }
}

// Process runs one invocation of the search binary.
type Process struct {
	index  int
	inv    command.Invocation
	dir    string
	logger *zap.Logger

	mu            sync.RWMutex
	state         State
	observers     []Observer
	cmd           *exec.Cmd
	killRequested bool

	linesOnce sync.Once
	lines     chan string

	done chan struct{}
}

// New creates an idle Process for the given instance index.
func New(index int, inv command.Invocation, opts ...Option) *Process {
	p := &Process{
		index:  index,
		inv:    inv,
		logger: zap.NewNop(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(zap.Int(logging.FieldInstance, index))
	return p
}

// Index returns the instance index.
func (p *Process) Index() int { return p.index }

// Invocation returns the invocation this process runs.
func (p *Process) Invocation() command.Invocation { return p.inv }

// PID returns the operating system process id, or 0 before Start.
func (p *Process) PID() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Subscribe registers an observer. Observers added after Start miss the
// lines already produced; an observer added after exit is told at once.
func (p *Process) Subscribe(o Observer) {
	p.mu.Lock()
	if p.state.Terminal() {
		st := p.state
		p.mu.Unlock()
		o.Exited(p.index, st)
		return
	}
	p.observers = append(p.observers, o)
	p.mu.Unlock()
}

// Lines returns the output stream. The channel yields lines in output
// order and is closed after the process has exited. Call it before Start
// to see every line. Consumers must drain the channel.
func (p *Process) Lines() <-chan string {
	p.linesOnce.Do(func() {
		out := make(chan string)
		q := newLineQueue()
		p.lines = out
		go q.pump(out)
		p.Subscribe(q)
	})
	return p.lines
}

// Status returns the current state.
func (p *Process) Status() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Done is closed once the process has exited and every observer has been
// told.
func (p *Process) Done() <-chan struct{} { return p.done }

// Wait blocks until the process has exited and returns its final state.
func (p *Process) Wait() State {
	<-p.done
	return p.Status()
}

// Start launches the binary with combined stdout and stderr. It returns a
// *SpawnError when the binary cannot be launched; the process is then
// Failed and its observers have been notified.
func (p *Process) Start() error {
	p.mu.Lock()
	if p.state.Phase != PhaseIdle {
		p.mu.Unlock()
		return fmt.Errorf("worker %d: already started", p.index)
	}

	cmd := exec.Command(p.inv.Program, p.inv.Args...)
	cmd.Dir = p.dir
	configureCommand(cmd)

	stdout, err := cmd.StdoutPipe()
	if err == nil {
		cmd.Stderr = cmd.Stdout
		err = cmd.Start()
	}
	if err != nil {
		spawnErr := &SpawnError{Program: p.inv.Program, Err: err}
		p.state = State{Phase: PhaseFailed, Err: spawnErr, FinishedAt: time.Now()}
		observers := p.observers
		p.mu.Unlock()

		p.logger.Warn("Failed to start search binary", zap.String("program", p.inv.Program), zap.Error(err))
		for _, o := range observers {
			o.Exited(p.index, p.Status())
		}
		close(p.done)
		return spawnErr
	}

	p.cmd = cmd
	p.state = State{Phase: PhaseRunning, StartedAt: time.Now()}
	p.mu.Unlock()

	p.logger.Debug("Search binary started", zap.Int(logging.FieldPID, cmd.Process.Pid))

	go p.run(stdout)
	return nil
}

// Terminate kills the process and everything it spawned. It does nothing
// unless the process is running, so repeated calls are safe. A *KillError
// means the signal could not be delivered.
func (p *Process) Terminate() error {
	p.mu.Lock()
	if p.state.Phase != PhaseRunning {
		p.mu.Unlock()
		return nil
	}
	p.state.Phase = PhaseStopping
	p.killRequested = true
	cmd := p.cmd
	p.mu.Unlock()

	pid := cmd.Process.Pid
	p.logger.Debug("Terminating search binary", zap.Int(logging.FieldPID, pid))

	if err := killProcessTree(cmd); err != nil {
		p.logger.Error("Failed to terminate search binary", zap.Int(logging.FieldPID, pid), zap.Error(err))
		return &KillError{PID: pid, Err: err}
	}
	return nil
}

func (p *Process) run(stdout io.ReadCloser) {
	defer close(p.done)

	p.drain(stdout)
	waitErr := p.cmd.Wait()

	p.mu.Lock()
	st := p.finalState(waitErr)
	p.state = st
	observers := p.observers
	p.mu.Unlock()

	p.logger.Debug("Search binary exited",
		zap.Stringer("state", st),
		zap.Duration("duration", st.Duration()))

	for _, o := range observers {
		o.Exited(p.index, st)
	}
}

// drain reads output until the pipe closes. Empty lines, which the binary
// produces when redrawing its progress line, are dropped.
func (p *Process) drain(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	scanner.Split(scanLines)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		p.mu.RLock()
		observers := p.observers
		p.mu.RUnlock()
		for _, o := range observers {
			o.Line(p.index, line)
		}
	}

	if err := scanner.Err(); err != nil {
		p.logger.Warn("Error reading search binary output", zap.Error(err))
		// Keep the pipe flowing so the binary never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, stdout)
	}
}

func (p *Process) finalState(waitErr error) State {
	st := State{
		Phase:      PhaseFinished,
		StartedAt:  p.state.StartedAt,
		FinishedAt: time.Now(),
		Usage:      getProcessResourceUsage(p.cmd),
	}

	var exitErr *exec.ExitError
	switch {
	// A process that exits on its own just as it is terminated keeps its
	// real exit status.
	case p.killRequested && killedByRequest(waitErr):
		st.Killed = true
		st.ExitCode = -1
	case waitErr == nil:
		st.ExitCode = 0
	case errors.As(waitErr, &exitErr):
		st.ExitCode = exitErr.ExitCode()
	default:
		st.Phase = PhaseFailed
		st.Err = waitErr
	}
	return st
}

// scanLines is a bufio.SplitFunc that ends lines at "\n", "\r\n" or a bare
// "\r", since the binary rewrites its progress line with carriage returns.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if atEOF {
			return i + 1, data[:i], nil
		}
		// A trailing '\r' may be the first half of "\r\n".
		return 0, nil, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
