package tui

import (
	"sync"

	"github.com/Mizogg/GUI-keyhunt/internal/console"
)

// Consoles owns one Buffer per instance. Its Sink method is the
// supervisor's sink factory, so a relayout swaps in a fresh set.
type Consoles struct {
	mu        sync.Mutex
	threshold int
	bufs      []*console.Buffer
}

// NewConsoles creates an empty pool retaining threshold lines per buffer.
func NewConsoles(threshold int) *Consoles {
	return &Consoles{threshold: threshold}
}

// Sink creates the buffer for one instance of a table of count.
func (c *Consoles) Sink(index, count int) console.Sink {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index == 1 || len(c.bufs) != count {
		c.bufs = make([]*console.Buffer, count)
	}
	buf := console.NewBuffer(c.threshold)
	c.bufs[index-1] = buf
	return buf
}

// Buffers returns the current buffers in instance order.
func (c *Consoles) Buffers() []*console.Buffer {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*console.Buffer, len(c.bufs))
	copy(out, c.bufs)
	return out
}

// Threshold returns the retention applied to every buffer.
func (c *Consoles) Threshold() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.threshold
}

// SetThreshold changes the retention of every current and future buffer.
func (c *Consoles) SetThreshold(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.threshold = n
	for _, b := range c.bufs {
		if b != nil {
			b.SetThreshold(n)
		}
	}
}

// Clear empties every buffer.
func (c *Consoles) Clear() {
	for _, b := range c.Buffers() {
		if b != nil {
			b.Clear()
		}
	}
}

// Broadcast appends line to every buffer.
func (c *Consoles) Broadcast(line string) {
	for _, b := range c.Buffers() {
		if b != nil {
			b.Append(line)
		}
	}
}
