package parse

import (
	"slices"
	"strings"

	"github.com/skeinlog/skein/record"
)

// Parser folds a stream of decoded records into tasks. It holds one Task
// per in-flight task UUID, routes each record to its task, and yields a
// task as soon as it is structurally complete.
//
// A Parser is a pure fold over its input: it performs no I/O and no
// blocking, and is exclusively owned by a single goroutine. For parallel
// consumption across tasks, shard by task UUID (see ShardedParser); a
// single task's records must stay on one parser.
type Parser struct {
	tasks map[string]*Task
}

// NewParser creates a parser with no in-flight tasks.
func NewParser() *Parser {
	return &Parser{tasks: make(map[string]*Task)}
}

// Add routes one record to its task, creating the task on first sight of
// its UUID. It returns the tasks completed by this record (at most one);
// completed tasks leave the in-flight map and will not be returned again.
//
// Validation failures surface as ValidationError and leave the offending
// record unapplied; whether to skip it or abort the stream is the caller's
// policy.
func (p *Parser) Add(fields record.Fields) ([]*Task, error) {
	msg, err := record.ParseMessage(fields)
	if err != nil {
		return nil, err
	}
	task, ok := p.tasks[msg.TaskUUID()]
	if !ok {
		task = NewTask()
		p.tasks[msg.TaskUUID()] = task
	}
	if err := task.addMessage(msg); err != nil {
		return nil, err
	}
	if task.IsComplete() {
		delete(p.tasks, msg.TaskUUID())
		return []*Task{task}, nil
	}
	return nil, nil
}

// IncompleteTasks returns the tasks still in flight, ordered by UUID.
// Typically consulted at end of stream for diagnostics.
func (p *Parser) IncompleteTasks() []*Task {
	out := make([]*Task, 0, len(p.tasks))
	for _, t := range p.tasks {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b *Task) int {
		return strings.Compare(a.UUID(), b.UUID())
	})
	return out
}
