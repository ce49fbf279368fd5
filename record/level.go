package record

import (
	"fmt"
	"strconv"
	"strings"
)

// Level is the address of a record within a task's tree of actions: an
// ordered sequence of positive integers. [2, 3, 1] is the first record
// inside the third record inside the second record of the task.
//
// The root of a task is the empty Level. Every other Level is non-empty and
// every element is >= 1.
//
// Level is an immutable value type: all methods derive a fresh slice and
// never alias the receiver. Levels are totally ordered by CompareLevels and hash
// by their Key string, which round-trips exactly through ParseLevel.
type Level []int

// RootLevel is the implicit address of a task's root action.
var RootLevel = Level{}

// ParseLevel converts the serialized form back into a Level. It is the
// exact inverse of String for any well-formed address.
func ParseLevel(s string) (Level, error) {
	level := Level{}
	for _, part := range strings.Split(s, "/") {
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("parse task level %q: %w", s, err)
		}
		if n < 1 {
			return nil, fmt.Errorf("parse task level %q: element %d is not positive", s, n)
		}
		level = append(level, n)
	}
	return level, nil
}

// String serializes the level as "/" joined elements, e.g. "/2/3/1".
// The root level serializes as "/".
func (l Level) String() string {
	var b strings.Builder
	b.WriteByte('/')
	for i, n := range l {
		if i > 0 {
			b.WriteByte('/')
		}
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}

// Key returns the canonical map key for this level. Identical to String;
// named separately so call sites keying node maps read as intent.
func (l Level) Key() string {
	return l.String()
}

// AsList returns the level as a fresh []int, suitable for embedding in a
// record's task_level field.
func (l Level) AsList() []int {
	out := make([]int, len(l))
	copy(out, l)
	return out
}

// IsRoot reports whether this is the empty root level.
func (l Level) IsRoot() bool {
	return len(l) == 0
}

// Child returns the first child of this level: the level with 1 appended.
func (l Level) Child() Level {
	out := make(Level, len(l)+1)
	copy(out, l)
	out[len(l)] = 1
	return out
}

// NextSibling returns the level immediately following this one at the same
// depth. Panics on the root level, which has no siblings; callers must
// check IsRoot first.
func (l Level) NextSibling() Level {
	if l.IsRoot() {
		panic("record: root level has no sibling")
	}
	out := make(Level, len(l))
	copy(out, l)
	out[len(out)-1]++
	return out
}

// Parent returns the level one step up the tree. ok is false at the root,
// which has no parent.
func (l Level) Parent() (parent Level, ok bool) {
	if l.IsRoot() {
		return nil, false
	}
	out := make(Level, len(l)-1)
	copy(out, l[:len(l)-1])
	return out, true
}

// Last returns the final element of the level. Panics on the root level.
func (l Level) Last() int {
	if l.IsRoot() {
		panic("record: root level has no elements")
	}
	return l[len(l)-1]
}

// Equal reports whether two levels denote the same address.
func (l Level) Equal(other Level) bool {
	return CompareLevels(l, other) == 0
}

// IsSiblingOf reports whether both levels share the same parent. The root
// level is a sibling only of itself.
func (l Level) IsSiblingOf(other Level) bool {
	lp, lok := l.Parent()
	op, ook := other.Parent()
	if lok != ook {
		return false
	}
	if !lok {
		return true
	}
	return lp.Equal(op)
}

// CompareLevels orders two levels lexicographically by their integer
// elements, which matches the order records are emitted within one task.
// Returns -1, 0 or 1.
func CompareLevels(a, b Level) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}
