// Package sink is the seam between the producer side and whatever carries
// records to their destination. The core hands a finished record mapping to
// a Sink and is done with it: encoding, buffering, files, journals and
// sockets all live behind this interface, outside the core.
package sink

import (
	"sync"

	"github.com/skeinlog/skein/record"
)

// Sink accepts one finished record. Implementations must not retain or
// mutate the mapping after Write returns unless they copy it.
//
// Write is called from whichever goroutine owns the emitting Action, so a
// Sink shared between goroutines must be safe for concurrent use.
type Sink interface {
	Write(fields record.Fields)
}

// Func adapts a plain function to the Sink interface.
type Func func(record.Fields)

// Write implements Sink.
func (f Func) Write(fields record.Fields) { f(fields) }

// Discard drops every record. Useful as a default in tests that exercise
// producer control flow without caring about output.
var Discard = Func(func(record.Fields) {})

// Memory captures records in order of emission. It is safe for concurrent
// use, so a single Memory can collect from several producer goroutines.
type Memory struct {
	mu      sync.Mutex
	records []record.Fields
}

// NewMemory creates an empty capture sink.
func NewMemory() *Memory {
	return &Memory{}
}

// Write implements Sink, storing a copy of the record.
func (m *Memory) Write(fields record.Fields) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, fields.Copy())
}

// Records returns the captured records in emission order. The returned
// slice is a copy; the records themselves are shared and must be treated as
// read-only.
func (m *Memory) Records() []record.Fields {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]record.Fields, len(m.records))
	copy(out, m.records)
	return out
}

// Len returns the number of captured records.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// Reset discards everything captured so far.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = nil
}

// Fanout forwards each record to every member sink. Membership may change
// at runtime; Write holds no lock while delegating beyond snapshotting the
// member list, so removal does not block in-flight writes.
type Fanout struct {
	mu    sync.Mutex
	sinks []Sink
}

// NewFanout creates a Fanout over the given sinks.
func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

// Add registers another destination sink.
func (f *Fanout) Add(s Sink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinks = append(f.sinks, s)
}

// Remove unregisters a previously added sink. Removing a sink that was
// never added is a no-op. Sinks intended for removal should be pointer
// backed; Func values are not comparable.
func (f *Fanout) Remove(s Sink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, existing := range f.sinks {
		if existing == s {
			f.sinks = append(f.sinks[:i], f.sinks[i+1:]...)
			return
		}
	}
}

// Write implements Sink.
func (f *Fanout) Write(fields record.Fields) {
	f.mu.Lock()
	sinks := make([]Sink, len(f.sinks))
	copy(sinks, f.sinks)
	f.mu.Unlock()
	for _, s := range sinks {
		s.Write(fields)
	}
}
