package record

import (
	"fmt"
	"reflect"
)

// WrittenMessage is an immutable view over one decoded record. It is the
// consumer-side twin of a record the producer emitted: addressing fields are
// exposed as typed accessors, everything else through Contents.
//
// Construct with ParseMessage; the zero value is not meaningful.
type WrittenMessage struct {
	fields Fields
	level  Level
}

// ParseMessage validates the reserved fields of a decoded record and wraps
// it. It requires task_uuid (string), task_level (list of positive ints,
// possibly decoded as floats by a JSON decoder) and timestamp (number).
func ParseMessage(fields Fields) (*WrittenMessage, error) {
	if _, ok := fields[TaskUUIDField].(string); !ok {
		return nil, fmt.Errorf("record: missing or non-string %s field", TaskUUIDField)
	}
	raw, ok := fields[TaskLevelField]
	if !ok {
		return nil, fmt.Errorf("record: missing %s field", TaskLevelField)
	}
	level, err := decodeLevel(raw)
	if err != nil {
		return nil, err
	}
	if level.IsRoot() {
		return nil, fmt.Errorf("record: %s must not be empty", TaskLevelField)
	}
	if _, err := toFloat(fields[TimestampField]); err != nil {
		return nil, fmt.Errorf("record: bad %s field: %w", TimestampField, err)
	}
	return &WrittenMessage{fields: fields.Copy(), level: level}, nil
}

// decodeLevel accepts the shapes a task_level list takes after decoding:
// native ints, int64s from some decoders, float64s from encoding/json, or a
// mixed []any of those.
func decodeLevel(raw any) (Level, error) {
	switch v := raw.(type) {
	case Level:
		return append(Level{}, v...), nil
	case []int:
		return append(Level{}, v...), nil
	case []any:
		level := make(Level, 0, len(v))
		for _, e := range v {
			f, err := toFloat(e)
			if err != nil {
				return nil, fmt.Errorf("record: bad %s element: %w", TaskLevelField, err)
			}
			n := int(f)
			if float64(n) != f || n < 1 {
				return nil, fmt.Errorf("record: bad %s element %v", TaskLevelField, e)
			}
			level = append(level, n)
		}
		return level, nil
	default:
		return nil, fmt.Errorf("record: %s is %T, want list of integers", TaskLevelField, raw)
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("%v (%T) is not a number", v, v)
	}
}

// TaskUUID returns the identity of the task this record belongs to.
func (m *WrittenMessage) TaskUUID() string {
	s, _ := m.fields[TaskUUIDField].(string)
	return s
}

// Level returns the record's address within the task tree.
func (m *WrittenMessage) Level() Level {
	return m.level
}

// Timestamp returns the emission time in seconds since the epoch.
func (m *WrittenMessage) Timestamp() float64 {
	f, _ := toFloat(m.fields[TimestampField])
	return f
}

// ActionType returns the action_type field, or "" if this is not an action
// start or end record.
func (m *WrittenMessage) ActionType() string {
	s, _ := m.fields[ActionTypeField].(string)
	return s
}

// ActionStatus returns the action_status field, or "" if absent.
func (m *WrittenMessage) ActionStatus() string {
	s, _ := m.fields[ActionStatusField].(string)
	return s
}

// MessageType returns the message_type field, or "" if this is not a leaf
// message.
func (m *WrittenMessage) MessageType() string {
	s, _ := m.fields[MessageTypeField].(string)
	return s
}

// Field returns an arbitrary field by name.
func (m *WrittenMessage) Field(name string) (any, bool) {
	v, ok := m.fields[name]
	return v, ok
}

// Contents returns a copy of the record minus the three addressing fields
// (task_uuid, task_level, timestamp).
func (m *WrittenMessage) Contents() Fields {
	out := m.fields.Copy()
	delete(out, TaskUUIDField)
	delete(out, TaskLevelField)
	delete(out, TimestampField)
	return out
}

// AsFields returns a copy of the full underlying record.
func (m *WrittenMessage) AsFields() Fields {
	return m.fields.Copy()
}

// Equal reports whether two messages carry identical records. Used by the
// consumer to tell a harmless re-delivery from a conflicting duplicate.
func (m *WrittenMessage) Equal(other *WrittenMessage) bool {
	if m == nil || other == nil {
		return m == other
	}
	return reflect.DeepEqual(m.fields, other.fields)
}
