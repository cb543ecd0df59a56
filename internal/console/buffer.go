package console

import (
	"sync"

	"github.com/Mizogg/GUI-keyhunt/internal/config"
)

// Buffer retains the most recent lines of one instance. When the number of
// lines exceeds the threshold the oldest lines are evicted.
type Buffer struct {
	mu        sync.RWMutex
	lines     []string
	threshold int
	changed   chan struct{}
}

// NewBuffer creates a buffer. A threshold below one uses the default.
func NewBuffer(threshold int) *Buffer {
	if threshold < 1 {
		threshold = config.DefaultThreshold
	}
	return &Buffer{
		threshold: threshold,
		changed:   make(chan struct{}, 1),
	}
}

// Append adds a line, evicting the oldest if the threshold is exceeded.
func (b *Buffer) Append(line string) {
	b.mu.Lock()
	b.lines = append(b.lines, line)
	b.trimLocked()
	b.mu.Unlock()
	b.notify()
}

// Lines returns a copy of the retained lines, oldest first.
func (b *Buffer) Lines() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

// Tail returns up to n of the newest lines.
func (b *Buffer) Tail(n int) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if n > len(b.lines) {
		n = len(b.lines)
	}
	if n <= 0 {
		return nil
	}
	out := make([]string, n)
	copy(out, b.lines[len(b.lines)-n:])
	return out
}

// Len returns the number of retained lines.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.lines)
}

// Threshold returns the retention limit.
func (b *Buffer) Threshold() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.threshold
}

// SetThreshold changes the retention limit, evicting immediately if needed.
func (b *Buffer) SetThreshold(n int) {
	if n < 1 {
		return
	}
	b.mu.Lock()
	b.threshold = n
	b.trimLocked()
	b.mu.Unlock()
	b.notify()
}

// Clear drops every retained line.
func (b *Buffer) Clear() {
	b.mu.Lock()
	b.lines = nil
	b.mu.Unlock()
	b.notify()
}

// Changed signals after modifications. Signals are coalesced: several
// appends between two receives produce a single notification.
func (b *Buffer) Changed() <-chan struct{} {
	return b.changed
}

func (b *Buffer) trimLocked() {
	if excess := len(b.lines) - b.threshold; excess > 0 {
		b.lines = b.lines[excess:]
	}
}

func (b *Buffer) notify() {
	select {
	case b.changed <- struct{}{}:
	default:
	}
}
