package parse

import (
	"errors"
	"fmt"

	"github.com/skeinlog/skein/record"
)

// ValidationError reports that a record cannot be reconciled with the tree
// built so far. All validation errors are local and synchronous: they
// surface from Task.Add and Parser.Add and are never retried or silently
// dropped. Recovery policy (skip the record, abort the stream, log and
// continue) belongs to the caller.
type ValidationError struct {
	// Code identifies the error category.
	Code ValidationErrorCode

	// Message is a human-readable description.
	Message string

	// TaskUUID identifies the affected task, when known.
	TaskUUID string

	// Level identifies the address involved, when known.
	Level record.Level
}

// ValidationErrorCode categorizes validation errors.
type ValidationErrorCode string

const (
	// ErrCodeWrongTask indicates a node references a different task_uuid
	// than its claimed parent.
	ErrCodeWrongTask ValidationErrorCode = "WRONG_TASK"

	// ErrCodeWrongTaskLevel indicates a node's address is not a direct
	// child of its claimed parent.
	ErrCodeWrongTaskLevel ValidationErrorCode = "WRONG_TASK_LEVEL"

	// ErrCodeWrongActionType indicates an end record's action type differs
	// from its start record's.
	ErrCodeWrongActionType ValidationErrorCode = "WRONG_ACTION_TYPE"

	// ErrCodeInvalidStatus indicates an end record's status is missing or
	// not a terminal status.
	ErrCodeInvalidStatus ValidationErrorCode = "INVALID_STATUS"

	// ErrCodeDuplicateChild indicates two distinct records claim the same
	// child address under the same parent.
	ErrCodeDuplicateChild ValidationErrorCode = "DUPLICATE_CHILD"

	// ErrCodeInvalidStartMessage indicates a claimed start record is not
	// status "started" or does not sit at a first-child address.
	ErrCodeInvalidStartMessage ValidationErrorCode = "INVALID_START_MESSAGE"
)

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.TaskUUID != "" && e.Level != nil {
		return fmt.Sprintf("%s: %s (task=%s, level=%s)", e.Code, e.Message, e.TaskUUID, e.Level)
	}
	if e.Level != nil {
		return fmt.Sprintf("%s: %s (level=%s)", e.Code, e.Message, e.Level)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsValidationError reports whether err is (or wraps) a ValidationError
// with the given code.
func IsValidationError(err error, code ValidationErrorCode) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code == code
	}
	return false
}

func newWrongTask(parent *WrittenAction, child Node) *ValidationError {
	return &ValidationError{
		Code:     ErrCodeWrongTask,
		Message:  fmt.Sprintf("expected task_uuid %s, got %s", parent.TaskUUID(), child.TaskUUID()),
		TaskUUID: parent.TaskUUID(),
		Level:    child.Level(),
	}
}

func newWrongTaskLevel(parent *WrittenAction, child Node) *ValidationError {
	return &ValidationError{
		Code:     ErrCodeWrongTaskLevel,
		Message:  fmt.Sprintf("%s is not a direct child of %s", child.Level(), parent.Level()),
		TaskUUID: parent.TaskUUID(),
		Level:    child.Level(),
	}
}

func newWrongActionType(parent *WrittenAction, end *record.WrittenMessage) *ValidationError {
	return &ValidationError{
		Code:     ErrCodeWrongActionType,
		Message:  fmt.Sprintf("expected action_type %q, got %q", parent.ActionType(), end.ActionType()),
		TaskUUID: parent.TaskUUID(),
		Level:    end.Level(),
	}
}

func newInvalidStatus(end *record.WrittenMessage) *ValidationError {
	return &ValidationError{
		Code: ErrCodeInvalidStatus,
		Message: fmt.Sprintf("expected status %q or %q, got %q",
			record.StatusSucceeded, record.StatusFailed, end.ActionStatus()),
		TaskUUID: end.TaskUUID(),
		Level:    end.Level(),
	}
}

func newDuplicateChild(parent *WrittenAction, child Node) *ValidationError {
	return &ValidationError{
		Code:     ErrCodeDuplicateChild,
		Message:  fmt.Sprintf("already have a different child at %s", child.Level()),
		TaskUUID: parent.TaskUUID(),
		Level:    child.Level(),
	}
}

func newInvalidStartMessage(start *record.WrittenMessage, reason string) *ValidationError {
	return &ValidationError{
		Code:     ErrCodeInvalidStartMessage,
		Message:  reason,
		TaskUUID: start.TaskUUID(),
		Level:    start.Level(),
	}
}
