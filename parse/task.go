package parse

import (
	"github.com/skeinlog/skein/record"
)

// Task incrementally reconstructs one task's tree from records arriving in
// any order. The defining property is order independence: feeding the same
// set of records in any permutation produces the same final tree and the
// same completeness verdict.
//
// Two mechanisms make that hold. Children arriving before their parent's
// own records are absorbed by placeholder actions, synthesized on demand
// and later filled in. And every node mutation goes through the validating
// copy-on-write builders of WrittenAction, replacing the stored node rather
// than changing it, so a half-updated node is never observable.
//
// A Task is exclusively owned by its caller and must not be mutated from
// two goroutines.
type Task struct {
	uuid string

	// nodes maps a level key to the reconstructed action at that address.
	// The task's root action lives at the root level; a task consisting of
	// one bare leaf message stores that message at the root level instead.
	nodes map[string]Node

	// completed records which actions are structurally complete: start and
	// end present, every intermediate child address filled, every child
	// action itself complete.
	completed map[string]bool
}

// NewTask creates an empty reconstruction.
func NewTask() *Task {
	return &Task{
		nodes:     make(map[string]Node),
		completed: make(map[string]bool),
	}
}

// Add folds one decoded record into the tree. It returns a ValidationError
// if the record cannot be reconciled with the nodes built so far; the tree
// is unchanged in that case except for placeholders already synthesized
// along the walk, which are structurally neutral.
func (t *Task) Add(fields record.Fields) error {
	msg, err := record.ParseMessage(fields)
	if err != nil {
		return err
	}
	return t.addMessage(msg)
}

func (t *Task) addMessage(msg *record.WrittenMessage) error {
	if t.uuid == "" {
		t.uuid = msg.TaskUUID()
	} else if msg.TaskUUID() != t.uuid {
		return &ValidationError{
			Code:     ErrCodeWrongTask,
			Message:  "record belongs to task " + msg.TaskUUID(),
			TaskUUID: t.uuid,
			Level:    msg.Level(),
		}
	}

	if msg.ActionType() == "" {
		if err := t.addLeaf(msg); err != nil {
			return err
		}
	} else {
		if err := t.addActionRecord(msg); err != nil {
			return err
		}
	}
	t.refreshCompleteness(msg.Level())
	return nil
}

// addLeaf handles a record with no action type: a plain leaf message.
func (t *Task) addLeaf(msg *record.WrittenMessage) error {
	// A task can be a single bare message: level [1] with no action type
	// is itself the task root, and such a task is trivially complete.
	if msg.Level().Equal(record.Level{1}) {
		key := record.RootLevel.Key()
		if existing, ok := t.nodes[key]; ok && !nodesEqual(existing, msg) {
			return &ValidationError{
				Code:     ErrCodeDuplicateChild,
				Message:  "task root is already occupied",
				TaskUUID: t.uuid,
				Level:    msg.Level(),
			}
		}
		t.nodes[key] = msg
		t.completed[key] = true
		return nil
	}
	return t.ensureNodeParents(msg)
}

// addActionRecord handles a start or end record: it locates or synthesizes
// the action the record describes, rebuilds it through the validated
// constructors, and reinserts it.
func (t *Task) addActionRecord(msg *record.WrittenMessage) error {
	actionLevel, _ := msg.Level().Parent()
	node, err := t.actionAt(actionLevel, msg.TaskUUID())
	if err != nil {
		return err
	}
	var updated *WrittenAction
	if msg.ActionStatus() == record.StatusStarted {
		updated, err = node.withStart(msg)
	} else {
		updated, err = node.withEnd(msg)
	}
	if err != nil {
		return err
	}
	return t.insertAction(updated)
}

// actionAt returns the action node at level, synthesizing a placeholder if
// none exists yet.
func (t *Task) actionAt(level record.Level, taskUUID string) (*WrittenAction, error) {
	node, ok := t.nodes[level.Key()]
	if !ok {
		return newPlaceholder(level, taskUUID), nil
	}
	a, ok := node.(*WrittenAction)
	if !ok {
		// A leaf message already claims this address.
		return nil, &ValidationError{
			Code:     ErrCodeDuplicateChild,
			Message:  "a message already occupies this address",
			TaskUUID: t.uuid,
			Level:    level,
		}
	}
	return a, nil
}

// insertAction stores the (possibly rebuilt) action at its address and
// re-attaches it to its parent, synthesizing ancestors as needed.
func (t *Task) insertAction(a *WrittenAction) error {
	t.nodes[a.Level().Key()] = a
	return t.ensureNodeParents(a)
}

// ensureNodeParents walks up from child, attaching it to its parent and
// recursively reinserting each rebuilt ancestor. Missing ancestors become
// placeholders; this is what lets children arrive before their parent's
// start record.
func (t *Task) ensureNodeParents(child Node) error {
	parentLevel, ok := child.Level().Parent()
	if !ok {
		return nil
	}
	parent, err := t.actionAt(parentLevel, child.TaskUUID())
	if err != nil {
		return err
	}
	updated, err := parent.attachChild(child)
	if err != nil {
		return err
	}
	return t.insertAction(updated)
}

// attachChild is the reconstruction-path variant of withChild: a rebuilt
// node replaces its previous version at the same address, but two distinct
// records claiming one address are a conflict.
func (a *WrittenAction) attachChild(child Node) (*WrittenAction, error) {
	if existing, ok := a.children[child.Level().Key()]; ok {
		_, existingIsAction := existing.(*WrittenAction)
		_, childIsAction := child.(*WrittenAction)
		switch {
		case existingIsAction && childIsAction:
			// Rebuilt version of the same action; replace.
		case !existingIsAction && !childIsAction && nodesEqual(existing, child):
			// Identical re-delivery; replace is harmless.
		default:
			return nil, newDuplicateChild(a, child)
		}
	}
	return a.withChild(child)
}

// refreshCompleteness recomputes the completed set along the path from a
// freshly inserted record up to the root. Completeness only ever needs
// recomputing on that path: nothing below or beside it changed.
func (t *Task) refreshCompleteness(from record.Level) {
	level := from
	for {
		t.updateCompletion(level)
		parent, ok := level.Parent()
		if !ok {
			return
		}
		level = parent
	}
}

// updateCompletion recomputes whether the action at level is structurally
// complete. An action is complete exactly when its start and end records
// are present, the number of direct children equals the gap the end
// record's address implies (the end at sibling position n leaves n-2
// intermediate addresses), and every child action is itself complete. A
// skipped sibling address therefore keeps the action incomplete forever.
func (t *Task) updateCompletion(level record.Level) {
	key := level.Key()
	node, ok := t.nodes[key]
	if !ok {
		return
	}
	a, ok := node.(*WrittenAction)
	if !ok {
		// The bare-message root is marked complete at installation.
		return
	}
	complete := a.start != nil && a.end != nil &&
		len(a.children) == a.end.Level().Last()-2
	if complete {
		for _, child := range a.children {
			ca, isAction := child.(*WrittenAction)
			if isAction && !t.completed[ca.Level().Key()] {
				complete = false
				break
			}
		}
	}
	if complete {
		t.completed[key] = true
	} else {
		delete(t.completed, key)
	}
}

// UUID returns the task's UUID, or "" before the first record arrives.
func (t *Task) UUID() string {
	return t.uuid
}

// Root returns the task's root node, or nil while no record reaching the
// root has arrived. The root is a *WrittenAction except for bare
// single-message tasks, where it is the *record.WrittenMessage itself.
func (t *Task) Root() Node {
	return t.nodes[record.RootLevel.Key()]
}

// NodeAt returns the reconstructed action at the given address. Leaf
// messages live inside their parent's children, not in this index.
func (t *Task) NodeAt(level record.Level) (Node, bool) {
	n, ok := t.nodes[level.Key()]
	return n, ok
}

// IsComplete reports whether the whole tree is structurally complete: the
// root address is in the completed set.
func (t *Task) IsComplete() bool {
	return t.completed[record.RootLevel.Key()]
}
