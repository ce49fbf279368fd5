// Package parse is the consumer side of skein: it folds a stream of decoded
// records back into validated trees of actions and messages, one tree per
// task, regardless of the order records arrive in.
//
// WrittenAction is the validated tree node; validation happens at
// construction time, never by mutation, so a node visible outside this
// package is always fully valid. Task applies the incremental
// reconstruction algorithm for one task; Parser routes records to tasks and
// yields each task once it is structurally complete.
package parse

import (
	"slices"

	"github.com/skeinlog/skein/record"
)

// UnknownActionType is reported by actions whose start and end records have
// not arrived yet.
const UnknownActionType = "*unknown*"

// Node is a reconstructed element of a task tree: either a *WrittenAction
// or a *record.WrittenMessage.
type Node interface {
	// TaskUUID returns the identity of the task the node belongs to.
	TaskUUID() string
	// Level returns the node's address within the task tree.
	Level() record.Level
}

var (
	_ Node = (*WrittenAction)(nil)
	_ Node = (*record.WrittenMessage)(nil)
)

// nodesEqual reports structural equality between two nodes. Messages
// compare by record contents; actions compare start, end and children
// recursively. The consumer uses it to tell a harmless re-delivery from a
// conflicting duplicate.
func nodesEqual(a, b Node) bool {
	switch an := a.(type) {
	case *record.WrittenMessage:
		bn, ok := b.(*record.WrittenMessage)
		return ok && an.Equal(bn)
	case *WrittenAction:
		bn, ok := b.(*WrittenAction)
		if !ok || an.taskUUID != bn.taskUUID || !an.level.Equal(bn.level) {
			return false
		}
		if !an.start.Equal(bn.start) || !an.end.Equal(bn.end) {
			return false
		}
		if len(an.children) != len(bn.children) {
			return false
		}
		for key, child := range an.children {
			other, ok := bn.children[key]
			if !ok || !nodesEqual(child, other) {
				return false
			}
		}
		return true
	}
	return false
}

// WrittenAction is an immutable reconstruction of one action: an optional
// start record, an optional end record, and the child nodes between them.
// Either message may be missing while the stream is still incomplete.
//
// WrittenActions are built only through FromMessages and the internal
// with* builders, all of which re-validate the parent/child invariants:
// every child sits at a direct-child address and carries the action's task
// UUID. Mutating constructors return fresh nodes; an existing node is never
// changed in place.
type WrittenAction struct {
	start    *record.WrittenMessage
	end      *record.WrittenMessage
	level    record.Level
	taskUUID string
	children map[string]Node
}

// FromMessages builds a validated WrittenAction from a start record, child
// nodes and an end record, any of which may be absent (though at least one
// must be present). Children are validated in input order.
//
// It returns a ValidationError with code:
//   - INVALID_START_MESSAGE if start is not status "started" or does not
//     sit at a first-child address,
//   - WRONG_TASK / WRONG_TASK_LEVEL if a child or the end record does not
//     belong directly under this action,
//   - DUPLICATE_CHILD if two distinct records claim the same address,
//   - WRONG_ACTION_TYPE if end's action type differs from start's,
//   - INVALID_STATUS if end's status is not terminal.
func FromMessages(start *record.WrittenMessage, children []Node, end *record.WrittenMessage) (*WrittenAction, error) {
	var first Node
	switch {
	case start != nil:
		first = start
	case end != nil:
		first = end
	case len(children) > 0:
		first = children[0]
	default:
		return nil, &ValidationError{
			Code:    ErrCodeInvalidStartMessage,
			Message: "cannot build an action from no messages",
		}
	}
	level, ok := first.Level().Parent()
	if !ok {
		level = record.RootLevel
	}
	a := &WrittenAction{level: level, taskUUID: first.TaskUUID()}

	var err error
	if start != nil {
		if a, err = a.withStart(start); err != nil {
			return nil, err
		}
	}
	for _, child := range children {
		if existing, ok := a.children[child.Level().Key()]; ok && !nodesEqual(existing, child) {
			return nil, newDuplicateChild(a, child)
		}
		if a, err = a.withChild(child); err != nil {
			return nil, err
		}
	}
	if end != nil {
		if a, err = a.withEnd(end); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// newPlaceholder creates an empty action standing in for one whose own
// records have not arrived yet. Placeholders absorb children that arrive
// before their parent's start record.
func newPlaceholder(level record.Level, taskUUID string) *WrittenAction {
	return &WrittenAction{level: level, taskUUID: taskUUID}
}

// copyNode returns a shallow copy with its own children map, so builders
// replace rather than mutate.
func (a *WrittenAction) copyNode() *WrittenAction {
	out := &WrittenAction{
		start:    a.start,
		end:      a.end,
		level:    a.level,
		taskUUID: a.taskUUID,
		children: make(map[string]Node, len(a.children)+1),
	}
	for k, v := range a.children {
		out.children[k] = v
	}
	return out
}

// validateMember checks that n belongs directly under this action.
func (a *WrittenAction) validateMember(n Node) error {
	if n.TaskUUID() != a.taskUUID {
		return newWrongTask(a, n)
	}
	parent, ok := n.Level().Parent()
	if !ok || !parent.Equal(a.level) {
		return newWrongTaskLevel(a, n)
	}
	return nil
}

// withStart returns a copy of the action with its start record set.
func (a *WrittenAction) withStart(start *record.WrittenMessage) (*WrittenAction, error) {
	if start.ActionStatus() != record.StatusStarted {
		return nil, newInvalidStartMessage(start, `start record must have status "started"`)
	}
	if start.Level().Last() != 1 {
		return nil, newInvalidStartMessage(start, "start record must sit at a first-child address")
	}
	if a.start != nil && !a.start.Equal(start) {
		return nil, newDuplicateChild(a, start)
	}
	out := a.copyNode()
	out.start = start
	return out, nil
}

// withChild returns a copy of the action with child attached, replacing any
// node already at that address. Callers that must reject distinct
// duplicates check before calling.
func (a *WrittenAction) withChild(child Node) (*WrittenAction, error) {
	if err := a.validateMember(child); err != nil {
		return nil, err
	}
	out := a.copyNode()
	out.children[child.Level().Key()] = child
	return out, nil
}

// withEnd returns a copy of the action with its end record set.
func (a *WrittenAction) withEnd(end *record.WrittenMessage) (*WrittenAction, error) {
	if t := a.ActionType(); t != UnknownActionType && t != end.ActionType() {
		return nil, newWrongActionType(a, end)
	}
	if err := a.validateMember(end); err != nil {
		return nil, err
	}
	status := end.ActionStatus()
	if status != record.StatusSucceeded && status != record.StatusFailed {
		return nil, newInvalidStatus(end)
	}
	if a.end != nil && !a.end.Equal(end) {
		return nil, newDuplicateChild(a, end)
	}
	out := a.copyNode()
	out.end = end
	return out, nil
}

// TaskUUID implements Node.
func (a *WrittenAction) TaskUUID() string {
	return a.taskUUID
}

// Level implements Node. An action whose start record sits at [2, 3, 1]
// has level [2, 3].
func (a *WrittenAction) Level() record.Level {
	return a.level
}

// StartMessage returns the start record, or nil while it has not arrived.
func (a *WrittenAction) StartMessage() *record.WrittenMessage {
	return a.start
}

// EndMessage returns the end record, or nil while the action is unfinished.
func (a *WrittenAction) EndMessage() *record.WrittenMessage {
	return a.end
}

// ActionType returns the action's type from its start record, falling back
// to the end record, or UnknownActionType when neither has arrived.
func (a *WrittenAction) ActionType() string {
	switch {
	case a.start != nil:
		return a.start.ActionType()
	case a.end != nil:
		return a.end.ActionType()
	default:
		return UnknownActionType
	}
}

// Status returns "started", "succeeded" or "failed" depending on which
// records have arrived, or "" when neither has.
func (a *WrittenAction) Status() string {
	switch {
	case a.end != nil:
		return a.end.ActionStatus()
	case a.start != nil:
		return a.start.ActionStatus()
	default:
		return ""
	}
}

// StartTime returns the start record's timestamp; ok is false while the
// start record has not arrived.
func (a *WrittenAction) StartTime() (t float64, ok bool) {
	if a.start == nil {
		return 0, false
	}
	return a.start.Timestamp(), true
}

// EndTime returns the end record's timestamp; ok is false while the end
// record has not arrived.
func (a *WrittenAction) EndTime() (t float64, ok bool) {
	if a.end == nil {
		return 0, false
	}
	return a.end.Timestamp(), true
}

// Exception returns the failed end record's exception type name, or "" if
// the action succeeded or is unfinished.
func (a *WrittenAction) Exception() string {
	if a.end == nil {
		return ""
	}
	s, _ := a.end.Field(record.ExceptionField)
	str, _ := s.(string)
	return str
}

// Reason returns the failed end record's stringified error, or "" if the
// action succeeded or is unfinished.
func (a *WrittenAction) Reason() string {
	if a.end == nil {
		return ""
	}
	s, _ := a.end.Field(record.ReasonField)
	str, _ := s.(string)
	return str
}

// Children returns the child nodes between the start and end records,
// sorted by ascending task level. Start and end records are not children.
func (a *WrittenAction) Children() []Node {
	out := make([]Node, 0, len(a.children))
	for _, n := range a.children {
		out = append(out, n)
	}
	slices.SortFunc(out, func(x, y Node) int {
		return record.CompareLevels(x.Level(), y.Level())
	})
	return out
}
