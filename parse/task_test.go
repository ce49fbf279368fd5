package parse

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skeinlog/skein/record"
)

func rawStart(uuid string, level record.Level, ts float64, actionType string) record.Fields {
	return record.Fields{
		record.TaskUUIDField:     uuid,
		record.TaskLevelField:    level.AsList(),
		record.TimestampField:    ts,
		record.ActionTypeField:   actionType,
		record.ActionStatusField: record.StatusStarted,
	}
}

func rawEnd(uuid string, level record.Level, ts float64, actionType, status string) record.Fields {
	return record.Fields{
		record.TaskUUIDField:     uuid,
		record.TaskLevelField:    level.AsList(),
		record.TimestampField:    ts,
		record.ActionTypeField:   actionType,
		record.ActionStatusField: status,
	}
}

func rawLeaf(uuid string, level record.Level, ts float64, messageType string) record.Fields {
	return record.Fields{
		record.TaskUUIDField:    uuid,
		record.TaskLevelField:   level.AsList(),
		record.TimestampField:   ts,
		record.MessageTypeField: messageType,
	}
}

// nestedRecords is a two-level task: an outer action holding a leaf message
// and a nested action which itself holds a leaf message.
func nestedRecords(uuid string) []record.Fields {
	return []record.Fields{
		rawStart(uuid, record.Level{1}, 100, "app:outer"),
		rawLeaf(uuid, record.Level{2}, 101, "app:progress"),
		rawStart(uuid, record.Level{3, 1}, 102, "app:inner"),
		rawLeaf(uuid, record.Level{3, 2}, 103, "app:detail"),
		rawEnd(uuid, record.Level{3, 3}, 104, "app:inner", record.StatusSucceeded),
		rawEnd(uuid, record.Level{4}, 105, "app:outer", record.StatusSucceeded),
	}
}

// summarize flattens a reconstructed tree into a canonical string so two
// trees can be compared regardless of the order records arrived in.
func summarize(n Node) string {
	var b strings.Builder
	var walk func(n Node, depth int)
	walk = func(n Node, depth int) {
		indent := strings.Repeat(" ", depth)
		switch v := n.(type) {
		case *record.WrittenMessage:
			fmt.Fprintf(&b, "%smessage %s %s\n", indent, v.Level().String(), v.MessageType())
		case *WrittenAction:
			fmt.Fprintf(&b, "%saction %s %s %s\n", indent, v.Level().String(), v.ActionType(), v.Status())
			for _, child := range v.Children() {
				walk(child, depth+1)
			}
		}
	}
	walk(n, 0)
	return b.String()
}

func addAll(t *testing.T, task *Task, records []record.Fields) {
	t.Helper()
	for _, r := range records {
		require.NoError(t, task.Add(r))
	}
}

func TestTask_NestedReconstruction(t *testing.T) {
	task := NewTask()
	addAll(t, task, nestedRecords(testUUID))

	assert.Equal(t, testUUID, task.UUID())
	assert.True(t, task.IsComplete())

	root, ok := task.Root().(*WrittenAction)
	require.True(t, ok)
	assert.Equal(t, "app:outer", root.ActionType())
	assert.Equal(t, record.StatusSucceeded, root.Status())

	children := root.Children()
	require.Len(t, children, 2)
	inner, ok := children[1].(*WrittenAction)
	require.True(t, ok)
	assert.Equal(t, "app:inner", inner.ActionType())
	assert.Len(t, inner.Children(), 1)
}

func TestTask_OrderIndependence(t *testing.T) {
	records := nestedRecords(testUUID)

	forward := NewTask()
	addAll(t, forward, records)
	want := summarize(forward.Root())

	t.Run("reversed", func(t *testing.T) {
		task := NewTask()
		for i := len(records) - 1; i >= 0; i-- {
			require.NoError(t, task.Add(records[i]))
		}
		assert.True(t, task.IsComplete())
		assert.Equal(t, want, summarize(task.Root()))
	})

	t.Run("ends first", func(t *testing.T) {
		task := NewTask()
		for _, i := range []int{5, 4, 0, 2, 3, 1} {
			require.NoError(t, task.Add(records[i]))
		}
		assert.True(t, task.IsComplete())
		assert.Equal(t, want, summarize(task.Root()))
	})
}

func TestTask_PlaceholderUntilStartArrives(t *testing.T) {
	task := NewTask()

	// A nested start arrives before anything about its parents: both the
	// action at /2 and the root are synthesized as placeholders.
	require.NoError(t, task.Add(rawStart(testUUID, record.Level{2, 3, 1}, 102, "app:deep")))

	root, ok := task.Root().(*WrittenAction)
	require.True(t, ok)
	assert.Equal(t, UnknownActionType, root.ActionType())

	mid, ok := task.NodeAt(record.Level{2})
	require.True(t, ok)
	assert.Equal(t, UnknownActionType, mid.(*WrittenAction).ActionType())

	deep, ok := task.NodeAt(record.Level{2, 3})
	require.True(t, ok)
	assert.Equal(t, "app:deep", deep.(*WrittenAction).ActionType())

	// The root start fills in its placeholder without losing the subtree.
	require.NoError(t, task.Add(rawStart(testUUID, record.Level{1}, 100, "app:outer")))
	root = task.Root().(*WrittenAction)
	assert.Equal(t, "app:outer", root.ActionType())
	assert.Len(t, root.Children(), 1)
}

func TestTask_BareMessageRoot(t *testing.T) {
	task := NewTask()
	require.NoError(t, task.Add(rawLeaf(testUUID, record.Level{1}, 50, "app:ping")))

	assert.True(t, task.IsComplete())
	root, ok := task.Root().(*record.WrittenMessage)
	require.True(t, ok)
	assert.Equal(t, "app:ping", root.MessageType())

	// The identical record again is a harmless re-delivery.
	require.NoError(t, task.Add(rawLeaf(testUUID, record.Level{1}, 50, "app:ping")))
	assert.True(t, task.IsComplete())

	// A different record at the root address is a conflict.
	err := task.Add(rawLeaf(testUUID, record.Level{1}, 51, "app:pong"))
	assert.True(t, IsValidationError(err, ErrCodeDuplicateChild), "got %v", err)
}

func TestTask_WrongTask(t *testing.T) {
	task := NewTask()
	require.NoError(t, task.Add(rawStart(testUUID, record.Level{1}, 100, "app:outer")))

	err := task.Add(rawLeaf("another-task", record.Level{2}, 101, "app:step"))
	assert.True(t, IsValidationError(err, ErrCodeWrongTask), "got %v", err)
}

func TestTask_MessageActionCollision(t *testing.T) {
	t.Run("message first", func(t *testing.T) {
		task := NewTask()
		require.NoError(t, task.Add(rawLeaf(testUUID, record.Level{2}, 101, "app:step")))
		err := task.Add(rawStart(testUUID, record.Level{2, 1}, 102, "app:inner"))
		assert.True(t, IsValidationError(err, ErrCodeDuplicateChild), "got %v", err)
	})
	t.Run("action first", func(t *testing.T) {
		task := NewTask()
		require.NoError(t, task.Add(rawStart(testUUID, record.Level{2, 1}, 102, "app:inner")))
		err := task.Add(rawLeaf(testUUID, record.Level{2}, 101, "app:step"))
		assert.True(t, IsValidationError(err, ErrCodeDuplicateChild), "got %v", err)
	})
}

func TestTask_ConflictingDuplicateRecords(t *testing.T) {
	task := NewTask()
	require.NoError(t, task.Add(rawStart(testUUID, record.Level{1}, 10, "app:outer")))
	require.NoError(t, task.Add(rawEnd(testUUID, record.Level{2}, 12, "app:outer", record.StatusSucceeded)))

	// Identical re-deliveries are absorbed.
	require.NoError(t, task.Add(rawStart(testUUID, record.Level{1}, 10, "app:outer")))
	require.NoError(t, task.Add(rawEnd(testUUID, record.Level{2}, 12, "app:outer", record.StatusSucceeded)))
	assert.True(t, task.IsComplete())

	// A differing record at an occupied address is a conflict.
	err := task.Add(rawStart(testUUID, record.Level{1}, 11, "app:outer"))
	assert.True(t, IsValidationError(err, ErrCodeDuplicateChild), "got %v", err)

	err = task.Add(rawEnd(testUUID, record.Level{2}, 13, "app:outer", record.StatusFailed))
	assert.True(t, IsValidationError(err, ErrCodeDuplicateChild), "got %v", err)
}

func TestTask_SkippedSiblingNeverCompletes(t *testing.T) {
	task := NewTask()
	require.NoError(t, task.Add(rawStart(testUUID, record.Level{1}, 10, "app:outer")))
	require.NoError(t, task.Add(rawLeaf(testUUID, record.Level{2}, 11, "app:first")))
	// The end at /4 implies a child at /3 that never shows up.
	require.NoError(t, task.Add(rawEnd(testUUID, record.Level{4}, 13, "app:outer", record.StatusSucceeded)))
	assert.False(t, task.IsComplete())

	// Filling the gap completes the task.
	require.NoError(t, task.Add(rawLeaf(testUUID, record.Level{3}, 12, "app:second")))
	assert.True(t, task.IsComplete())
}

func TestTask_CompletenessRequiresCompleteChildren(t *testing.T) {
	task := NewTask()
	require.NoError(t, task.Add(rawStart(testUUID, record.Level{1}, 10, "app:outer")))
	require.NoError(t, task.Add(rawStart(testUUID, record.Level{2, 1}, 11, "app:inner")))
	require.NoError(t, task.Add(rawEnd(testUUID, record.Level{3}, 14, "app:outer", record.StatusSucceeded)))

	// The inner action has no end yet, so the root cannot be complete even
	// though its own start, end and child count line up.
	assert.False(t, task.IsComplete())

	require.NoError(t, task.Add(rawEnd(testUUID, record.Level{2, 2}, 12, "app:inner", record.StatusSucceeded)))
	assert.True(t, task.IsComplete())
}

func TestTask_EmptyState(t *testing.T) {
	task := NewTask()
	assert.Equal(t, "", task.UUID())
	assert.Nil(t, task.Root())
	assert.False(t, task.IsComplete())
}

func TestTask_RejectsMalformedRecord(t *testing.T) {
	task := NewTask()
	err := task.Add(record.Fields{record.TaskUUIDField: testUUID})
	assert.Error(t, err)
}

func TestTask_ChildrenStaySorted(t *testing.T) {
	task := NewTask()
	require.NoError(t, task.Add(rawStart(testUUID, record.Level{1}, 10, "app:outer")))
	for _, pos := range []int{11, 4, 7, 2} {
		require.NoError(t, task.Add(rawLeaf(testUUID, record.Level{pos}, float64(pos), "app:step")))
	}
	root := task.Root().(*WrittenAction)
	children := root.Children()
	require.Len(t, children, 4)
	assert.True(t, sort.SliceIsSorted(children, func(i, j int) bool {
		return record.CompareLevels(children[i].Level(), children[j].Level()) < 0
	}))
}
