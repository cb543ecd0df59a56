package worker

import "sync"

// Observer receives the output and the exit of a Process. Line is called
// from the goroutine draining the process output, once per line and in
// output order. Exited is called once, after the last Line. Observers must
// not block and must not call Wait on the Process they observe.
type Observer interface {
	Line(index int, line string)
	Exited(index int, state State)
}

// ObserverFuncs adapts functions to an Observer. Nil fields are skipped.
type ObserverFuncs struct {
	OnLine func(index int, line string)
	OnExit func(index int, state State)
}

func (f ObserverFuncs) Line(index int, line string) {
	if f.OnLine != nil {
		f.OnLine(index, line)
	}
}

func (f ObserverFuncs) Exited(index int, state State) {
	if f.OnExit != nil {
		f.OnExit(index, state)
	}
}

// lineQueue is an unbounded FIFO between the output drain and a Lines
// consumer, so a slow consumer never holds up the process.
type lineQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []string
	closed bool
}

func newLineQueue() *lineQueue {
	q := &lineQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *lineQueue) Line(_ int, line string) {
	q.mu.Lock()
	q.items = append(q.items, line)
	q.mu.Unlock()
	q.cond.Signal()
}

func (q *lineQueue) Exited(int, State) {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

func (q *lineQueue) pump(out chan<- string) {
	defer close(out)
	for {
		q.mu.Lock()
		for len(q.items) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.items) == 0 {
			q.mu.Unlock()
			return
		}
		line := q.items[0]
		q.items[0] = ""
		q.items = q.items[1:]
		q.mu.Unlock()

		out <- line
	}
}
