// Package record defines the value types shared by the producer and consumer
// sides of skein: hierarchical task-level addresses, the flat field mapping
// that makes up one emitted record, and the immutable WrittenMessage wrapper
// over a decoded record.
//
// A record is a flat mapping of string keys to JSON-safe values. Three keys
// are always present and identify the record's position in a task's tree:
//
//	task_uuid  - identity of the top-level task
//	task_level - address within the task's tree (list of positive integers)
//	timestamp  - emission time, seconds since the epoch
//
// Records carrying action_type/action_status mark the start or end of an
// action; records carrying message_type are leaf messages. Everything else
// is user data.
//
// All types in this package are immutable value types: methods that derive a
// new address copy rather than mutate, and WrittenMessage never exposes its
// underlying mapping for writing. That is what allows the consumer side to
// share nodes freely while folding a record stream in arbitrary order.
package record
