package supervisor

import (
	"fmt"

	"github.com/Mizogg/GUI-keyhunt/internal/worker"
)

// InstanceState is the supervisor's view of one instance.
type InstanceState int

const (
	StateEmpty InstanceState = iota
	StateStarting
	StateRunning
	StateCompleted
	StateKilled
	StateFailed
	StateReplaced
)

func (s InstanceState) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateKilled:
		return "killed"
	case StateFailed:
		return "failed"
	case StateReplaced:
		return "replaced"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Live reports whether a worker may still be running.
func (s InstanceState) Live() bool {
	return s == StateStarting || s == StateRunning
}

// InstanceStatus is a point-in-time view of one instance.
type InstanceStatus struct {
	Index int
	State InstanceState
	Range string
	PID   int

	// Last is the exit state of the most recent worker, if any.
	Last worker.State
}

// Snapshot returns the status of every instance in index order.
func (s *Supervisor) Snapshot() []InstanceStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]InstanceStatus, len(s.instances))
	for i, inst := range s.instances {
		st := InstanceStatus{
			Index: inst.index,
			State: inst.state,
			Last:  inst.last,
		}
		if !inst.assigned.IsZero() {
			st.Range = inst.assigned.String()
		}
		if inst.proc != nil {
			st.PID = inst.proc.PID()
		}
		out[i] = st
	}
	return out
}
