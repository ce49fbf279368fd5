package action

// Stack is an ordered stack of in-progress actions for one logical thread
// of control. The top of the stack is the "current" action: the implicit
// parent for StartAction and Log calls made within its scope.
//
// A Stack is owned by exactly one logical thread at a time and is not safe
// for concurrent use. Cooperative schedulers that interleave many logical
// tasks on one goroutine keep one Stack per logical task and switch between
// them with ExecutionContext's resolver hook.
type Stack struct {
	actions []*Action
}

// NewStack creates an empty stack.
func NewStack() *Stack {
	return &Stack{}
}

// Current returns the action on top of the stack, or nil if empty.
func (s *Stack) Current() *Action {
	if len(s.actions) == 0 {
		return nil
	}
	return s.actions[len(s.actions)-1]
}

// Push makes a the current action.
func (s *Stack) Push(a *Action) {
	s.actions = append(s.actions, a)
}

// Pop removes the current action. Popping an empty stack is a no-op.
func (s *Stack) Pop() {
	if len(s.actions) > 0 {
		s.actions = s.actions[:len(s.actions)-1]
	}
}

// Clone returns a copy of the stack sharing the same actions. Used to
// snapshot the context at a suspension point.
func (s *Stack) Clone() *Stack {
	out := make([]*Action, len(s.actions))
	copy(out, s.actions)
	return &Stack{actions: out}
}

// StackResolver returns the stack for the currently active unit of
// concurrency, or nil to fall back to the context's default stack. It is
// the single seam through which coroutine- or scheduler-aware adapters plug
// in per-task stacks without the context primitive knowing about them.
type StackResolver func() *Stack

// ExecutionContext tracks the current action for one logical thread of
// control. By default it delegates to a single built-in stack; installing a
// StackResolver lets an event-loop adapter substitute a per-task stack
// whenever a different logical task is active.
//
// An ExecutionContext is not safe for concurrent use. Each goroutine (or
// each logical task multiplexed onto a goroutine) owns its own.
type ExecutionContext struct {
	def     *Stack
	resolve StackResolver
}

// NewExecutionContext creates a context with an empty default stack and no
// resolver.
func NewExecutionContext() *ExecutionContext {
	return &ExecutionContext{def: NewStack()}
}

// SetResolver installs the sub-stack hook. Passing nil restores the default
// behavior of always using the built-in stack.
func (c *ExecutionContext) SetResolver(r StackResolver) {
	c.resolve = r
}

// stack returns the active stack: the resolver's answer when one is
// installed and returns non-nil, otherwise the default stack.
func (c *ExecutionContext) stack() *Stack {
	if c.resolve != nil {
		if s := c.resolve(); s != nil {
			return s
		}
	}
	return c.def
}

// Current returns the current action, or nil when no action is in scope.
func (c *ExecutionContext) Current() *Action {
	return c.stack().Current()
}

// Push makes a the current action on the active stack.
func (c *ExecutionContext) Push(a *Action) {
	c.stack().Push(a)
}

// Pop removes the current action from the active stack.
func (c *ExecutionContext) Pop() {
	c.stack().Pop()
}

// Snapshot captures the active stack so a suspending computation can
// restore it on resume. The snapshot is independent of later pushes and
// pops on the live stack.
func (c *ExecutionContext) Snapshot() *Stack {
	return c.stack().Clone()
}

// Restore replaces the default stack's contents with a snapshot taken
// earlier. Suspension points pair Snapshot before suspending with Restore
// on resume; the caller's own stack should be snapshotted and restored
// around the resumed computation in the same way.
func (c *ExecutionContext) Restore(s *Stack) {
	c.def = s.Clone()
}
