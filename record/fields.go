package record

// Reserved field names. Every other key in a record is a user field.
const (
	// TaskUUIDField identifies the task a record belongs to.
	TaskUUIDField = "task_uuid"

	// TaskLevelField is the record's address within the task tree,
	// serialized as a list of positive integers.
	TaskLevelField = "task_level"

	// TimestampField is the emission time in seconds since the epoch.
	TimestampField = "timestamp"

	// ActionTypeField names the action, e.g. "yourapp:subsystem:frobnicate".
	// Present only on action start and end records.
	ActionTypeField = "action_type"

	// ActionStatusField is present exactly when ActionTypeField is present.
	ActionStatusField = "action_status"

	// MessageTypeField names a leaf message. Present only on leaf records.
	MessageTypeField = "message_type"

	// ExceptionField is the fully-qualified error type name. Present only
	// on failed end records.
	ExceptionField = "exception"

	// ReasonField is the stringified error. Present only on failed end
	// records.
	ReasonField = "reason"
)

// Action statuses. A started action ends with exactly one of the two
// terminal statuses.
const (
	StatusStarted   = "started"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// ValidStatuses enumerates every status a well-formed record may carry.
var ValidStatuses = map[string]bool{
	StatusStarted:   true,
	StatusSucceeded: true,
	StatusFailed:    true,
}

// Fields is one record's contents: a flat mapping of field names to
// JSON-safe values. Schema validation of user fields is the concern of an
// outer layer; the types here only require the reserved fields above.
type Fields map[string]any

// Copy returns a shallow copy of the mapping. Values are assumed immutable
// by convention (JSON-safe scalars and lists).
func (f Fields) Copy() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
