// Package console provides destinations for the lines streamed by search
// instances. Every instance has exactly one Sink; completion and error
// notices travel through the same Sink as process output.
package console

import (
	"fmt"
	"io"
	"sync"
)

// Sink receives lines in the order they were produced.
type Sink interface {
	Append(line string)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(line string)

func (f SinkFunc) Append(line string) { f(line) }

// Discard drops every line.
var Discard Sink = SinkFunc(func(string) {})

type multi []Sink

func (m multi) Append(line string) {
	for _, s := range m {
		s.Append(line)
	}
}

// Multi fans each line out to every sink, in argument order.
func Multi(sinks ...Sink) Sink {
	out := make(multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// PrefixWriter writes "[i/N] line" records to a shared writer. Writers
// for different instances may share one io.Writer; records never
// interleave mid-line.
type PrefixWriter struct {
	mu     *sync.Mutex
	w      io.Writer
	prefix string
}

// NewPrefixWriters returns one PrefixWriter per instance, all writing to w.
func NewPrefixWriters(w io.Writer, count int) []*PrefixWriter {
	mu := &sync.Mutex{}
	out := make([]*PrefixWriter, count)
	for i := range out {
		out[i] = &PrefixWriter{
			mu:     mu,
			w:      w,
			prefix: fmt.Sprintf("[%d/%d] ", i+1, count),
		}
	}
	return out
}

// Append writes one prefixed line.
func (p *PrefixWriter) Append(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = io.WriteString(p.w, p.prefix+line+"\n")
}
