package action

import (
	"errors"
	"sync"

	"github.com/skeinlog/skein/sink"
)

// ErrAlreadyCalled reports that a context-preserving callable was invoked
// more than once. A serialized task ID must be consumed at most once;
// reusing one would produce two structurally valid but causally confusing
// subtrees, so accidental reuse fails loudly instead.
var ErrAlreadyCalled = errors.New("action: context-preserving callable invoked more than once")

// PreserveContext packages f together with the current action of ec so the
// causal chain can continue on another goroutine. The returned callable
// continues the task, runs f inside the continuation action, and finishes
// it with f's result.
//
// The result is one-shot: a second invocation returns ErrAlreadyCalled
// without running f. With no current action, f is returned as-is.
func PreserveContext(ec *ExecutionContext, s sink.Sink, f func() error) func() error {
	current := ec.Current()
	if current == nil {
		return f
	}
	if s == nil {
		s = current.sink
	}
	taskID := current.SerializeTaskID()
	opts := []Option{
		WithClock(current.cfg.now),
		WithExtraction(current.cfg.extraction),
	}

	var mu sync.Mutex
	called := false
	return func() error {
		mu.Lock()
		if called {
			mu.Unlock()
			return ErrAlreadyCalled
		}
		called = true
		mu.Unlock()

		cont, err := ContinueTask(s, taskID, "", nil, opts...)
		if err != nil {
			return err
		}
		ec := NewExecutionContext()
		return cont.Run(ec, f)
	}
}
