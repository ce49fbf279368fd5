// Package action is the producer side of skein: it assigns hierarchical
// addresses to records, runs the action lifecycle state machine, and keeps
// track of the current action within a call stack.
//
// An Action represents one scoped unit of work. Starting it emits a start
// record, finishing it emits exactly one end record with status "succeeded"
// or "failed", and anything logged in between becomes a leaf message nested
// inside it. Addresses are allocated so that children receive strictly
// increasing sibling levels in call order, which is what lets the consumer
// side rebuild the tree from records alone.
//
// An Action is exclusively owned by the goroutine that created it. Crossing
// a goroutine or process boundary is an explicit hand-off through
// SerializeTaskID and ContinueTask, not a shared reference.
package action

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/skeinlog/skein/record"
	"github.com/skeinlog/skein/sink"
)

// RemoteTaskType is the action type used by ContinueTask when the caller
// does not supply one.
const RemoteTaskType = "skein:remote_task"

type config struct {
	now        func() float64
	newUUID    func() string
	extraction *ErrorExtraction
}

func defaultConfig() config {
	return config{
		now:        func() float64 { return float64(time.Now().UnixNano()) / 1e9 },
		newUUID:    uuid.NewString,
		extraction: DefaultExtraction,
	}
}

// Option adjusts how an action emits records. Options apply to the action
// they are passed to and are inherited by its children.
type Option func(*config)

// WithClock substitutes the timestamp source. Tests use a fixed clock so
// emitted records are deterministic.
func WithClock(now func() float64) Option {
	return func(c *config) { c.now = now }
}

// WithUUIDSource substitutes the task UUID generator used by StartTask.
func WithUUIDSource(newUUID func() string) Option {
	return func(c *config) { c.newUUID = newUUID }
}

// WithExtraction substitutes the error-field extraction registry consulted
// on failure.
func WithExtraction(e *ErrorExtraction) Option {
	return func(c *config) { c.extraction = e }
}

// Action is one in-progress or finished unit of work within a task.
//
// The zero value is not usable; create actions with StartTask, StartAction,
// ContinueTask or Child. Methods must be called from the single goroutine
// that owns the action.
type Action struct {
	sink       sink.Sink
	cfg        config
	taskUUID   string
	level      record.Level
	actionType string

	lastChild     record.Level
	successFields record.Fields
	started       bool
	finished      bool
	failed        bool
}

// StartTask creates and starts a new top-level action with a fresh task
// UUID. Every record emitted under it (and under its descendants) shares
// that UUID.
func StartTask(s sink.Sink, actionType string, fields record.Fields, opts ...Option) *Action {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	a := &Action{
		sink:       s,
		cfg:        cfg,
		taskUUID:   cfg.newUUID(),
		level:      record.RootLevel,
		actionType: actionType,
	}
	a.Start(fields)
	return a
}

// StartAction creates and starts an action nested inside the current action
// of ec. With no execution context or no current action it falls back to
// StartTask. A nil s inherits the parent's sink.
func StartAction(ec *ExecutionContext, s sink.Sink, actionType string, fields record.Fields, opts ...Option) *Action {
	var parent *Action
	if ec != nil {
		parent = ec.Current()
	}
	if parent == nil {
		return StartTask(s, actionType, fields, opts...)
	}
	child := parent.Child(actionType)
	if s != nil {
		child.sink = s
	}
	child.Start(fields)
	return child
}

// ContinueTask resumes a causal chain serialized by SerializeTaskID,
// typically in another goroutine or process. The returned action is started
// at the serialized address; an empty actionType defaults to
// RemoteTaskType.
//
// A serialized task ID is a one-shot capability. Continuing the same ID
// twice produces two structurally valid but causally confusing subtrees;
// PreserveContext enforces single use for the in-process case.
func ContinueTask(s sink.Sink, taskID, actionType string, fields record.Fields, opts ...Option) (*Action, error) {
	uuidPart, levelPart, ok := strings.Cut(taskID, "@")
	if !ok || uuidPart == "" {
		return nil, fmt.Errorf("action: malformed task ID %q", taskID)
	}
	level, err := record.ParseLevel(levelPart)
	if err != nil {
		return nil, fmt.Errorf("action: malformed task ID %q: %w", taskID, err)
	}
	if actionType == "" {
		actionType = RemoteTaskType
	}
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	a := &Action{
		sink:       s,
		cfg:        cfg,
		taskUUID:   uuidPart,
		level:      level,
		actionType: actionType,
	}
	a.Start(fields)
	return a, nil
}

// TaskUUID returns the UUID of the task this action belongs to.
func (a *Action) TaskUUID() string {
	return a.taskUUID
}

// Level returns the action's own address within the task tree. Its start
// record is emitted at Level().Child().
func (a *Action) Level() record.Level {
	return a.level
}

// ActionType returns the type this action was started with.
func (a *Action) ActionType() string {
	return a.actionType
}

// Finished reports whether Finish has been called.
func (a *Action) Finished() bool {
	return a.finished
}

// Failed reports whether the action finished with an error.
func (a *Action) Failed() bool {
	return a.failed
}

// nextLevel allocates the next child address: the first call yields the
// action's first child level, each later call the next sibling of the
// previous allocation. The strict in-order increase is load-bearing: the
// consumer infers tree structure from these addresses alone.
func (a *Action) nextLevel() record.Level {
	if a.lastChild == nil {
		a.lastChild = a.level.Child()
	} else {
		a.lastChild = a.lastChild.NextSibling()
	}
	return a.lastChild
}

func (a *Action) emit(fields record.Fields) {
	fields[record.TimestampField] = a.cfg.now()
	fields[record.TaskUUIDField] = a.taskUUID
	fields[record.TaskLevelField] = a.nextLevel().AsList()
	if a.sink != nil {
		a.sink.Write(fields)
	}
}

// Start emits the start record with the given extra fields. The Start*
// constructors call it for you; calling it again is a no-op.
func (a *Action) Start(fields record.Fields) {
	if a.started {
		return
	}
	a.started = true
	out := fields.Copy()
	if out == nil {
		out = record.Fields{}
	}
	out[record.ActionTypeField] = a.actionType
	out[record.ActionStatusField] = record.StatusStarted
	a.emit(out)
}

// Child allocates the next child address and returns a new unstarted
// Action rooted there, inheriting this action's sink and configuration.
// Most callers want StartAction instead.
func (a *Action) Child(actionType string) *Action {
	return &Action{
		sink:       a.sink,
		cfg:        a.cfg,
		taskUUID:   a.taskUUID,
		level:      a.nextLevel(),
		actionType: actionType,
	}
}

// Log emits a leaf message nested in this action, independent of start and
// finish.
func (a *Action) Log(messageType string, fields record.Fields) {
	out := fields.Copy()
	if out == nil {
		out = record.Fields{}
	}
	out[record.MessageTypeField] = messageType
	a.emit(out)
}

// AddSuccessFields accumulates fields to include in the end record if the
// action finishes successfully.
func (a *Action) AddSuccessFields(fields record.Fields) {
	if a.successFields == nil {
		a.successFields = record.Fields{}
	}
	for k, v := range fields {
		a.successFields[k] = v
	}
}

// Finish emits the end record: status "succeeded" carrying the accumulated
// success fields when err is nil, status "failed" carrying the exception
// type name, the stringified error and any extracted error fields when err
// is non-nil.
//
// Finish is idempotent. Only the first call emits; later calls, with or
// without an error, are no-ops. Double finish is explicitly not an error.
func (a *Action) Finish(err error) {
	if a.finished {
		return
	}
	a.finished = true

	var out record.Fields
	if err == nil {
		out = a.successFields
		if out == nil {
			out = record.Fields{}
		}
		out[record.ActionStatusField] = record.StatusSucceeded
	} else {
		a.failed = true
		out = a.cfg.extraction.FieldsFor(err).Copy()
		out[record.ExceptionField] = errorTypeName(err)
		out[record.ReasonField] = safeErrorString(err)
		out[record.ActionStatusField] = record.StatusFailed
	}
	out[record.ActionTypeField] = a.actionType
	a.emit(out)
}

// SerializeTaskID allocates a child address and returns the one-shot
// continuation token "<task_uuid>@<level>" for it. Each call allocates a
// fresh address, so distinct hand-offs never collide.
func (a *Action) SerializeTaskID() string {
	return a.taskUUID + "@" + a.nextLevel().String()
}

// In runs f with this action as the current action in ec. The action is
// popped on every exit path and is not finished; pair with an explicit
// Finish. Use Run for the common scope-and-finish case.
func (a *Action) In(ec *ExecutionContext, f func() error) error {
	ec.Push(a)
	defer ec.Pop()
	return f()
}

// Run runs f with this action as the current action in ec and finishes the
// action with f's result. A panic in f finishes the action as failed and
// then propagates.
func (a *Action) Run(ec *ExecutionContext, f func() error) (err error) {
	ec.Push(a)
	defer ec.Pop()
	defer func() {
		if r := recover(); r != nil {
			a.Finish(&PanicError{Value: r})
			panic(r)
		}
		a.Finish(err)
	}()
	return f()
}

// PanicError is the error a panicking Run finishes its action with.
type PanicError struct {
	Value any
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
