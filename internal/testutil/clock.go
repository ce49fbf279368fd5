// Package testutil provides deterministic time and identity sources for
// producer-side tests, so emitted records are byte-stable across runs.
package testutil

import "fmt"

// Clock hands out strictly increasing timestamps from a fixed origin.
// Substituted for the wall clock via action.WithClock.
//
// Not safe for concurrent use; tests that emit from several goroutines
// give each producer its own Clock.
type Clock struct {
	next float64
	step float64
}

// NewClock creates a clock that returns start, start+step, start+2*step...
func NewClock(start, step float64) *Clock {
	return &Clock{next: start, step: step}
}

// Now returns the next timestamp.
func (c *Clock) Now() float64 {
	t := c.next
	c.next += c.step
	return t
}

// UUIDSource hands out a deterministic sequence of task identifiers,
// substituted for random UUIDs via action.WithUUIDSource.
type UUIDSource struct {
	prefix string
	n      int
}

// NewUUIDSource creates a source yielding "<prefix>-0001", "<prefix>-0002"...
func NewUUIDSource(prefix string) *UUIDSource {
	return &UUIDSource{prefix: prefix}
}

// Next returns the next identifier.
func (u *UUIDSource) Next() string {
	u.n++
	return fmt.Sprintf("%s-%04d", u.prefix, u.n)
}
