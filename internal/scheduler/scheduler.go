// Package scheduler implements a generic single-threaded cooperative
// dependency scheduler: a Task waits for N asynchronous dependencies, then
// executes, then notifies M dependents.
//
// All task methods must run on the same dispatcher goroutine. A Task is not
// safe for concurrent use from multiple goroutines.
package scheduler

import (
	"fmt"

	"github.com/devcoord/devco/internal/log"
)

// Dispatcher posts a callback to run later on the scheduler's single
// executor goroutine, preserving FIFO order.
type Dispatcher interface {
	Post(fn func()) error
}

// Runner implements the policy of a task kind.
type Runner interface {
	// Run is invoked every time all currently registered dependencies have
	// finished successfully, including right after construction with zero
	// dependencies. It must either add at least one new dependency (the task
	// goes back to waiting and Run will be invoked again) or call Complete on
	// the task before returning.
	Run(t *Task)
}

// FailureHandler can be implemented by a Runner to replace the default
// fail-fast reaction to a failed dependency.
type FailureHandler interface {
	// DependencyFailed is invoked instead of completing the task when a
	// dependency finishes with an error. The implementation decides whether
	// to complete the task, tolerate the failure, or anything in between.
	DependencyFailed(t *Task, err error)
}

// State is the lifecycle state of a task.
type State string

const (
	// StateCreated is the state before the deferred initial run.
	StateCreated State = "created"
	// StateWaiting is the state while dependencies are outstanding.
	StateWaiting State = "waiting"
	// StateRunning is the state while the runner executes.
	StateRunning State = "running"
	// StateCompleted is the terminal state.
	StateCompleted State = "completed"
)

// TaskConfig is the configuration for a task.
type TaskConfig struct {
	Dispatcher Dispatcher
	Runner     Runner
	// OnComplete is invoked exactly once, synchronously, when the task
	// completes. A nil error means success.
	OnComplete func(err error)
	Logger     log.Logger
}

func (c *TaskConfig) defaults() error {
	if c.Dispatcher == nil {
		return fmt.Errorf("dispatcher is required")
	}

	if c.Runner == nil {
		return fmt.Errorf("runner is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "scheduler.Task"})

	return nil
}

// Task is a unit of asynchronous work gated on the completion of other
// tasks. Its state machine is Created → {Waiting ⇄ Running} → Completed:
// Running may re-enter Waiting by adding new dependencies, and Completed is
// terminal.
//
// Misuse (adding a dependency or completing an already completed task,
// returning from Run without completing or adding dependencies) is a broken
// invariant, not an environmental condition, and panics.
type Task struct {
	dispatcher Dispatcher
	runner     Runner
	onComplete func(err error)
	logger     log.Logger

	state        State
	totalDeps    int
	finishedDeps int
	dependents   []*Task
	addedInRun   bool
	completed    bool
	result       error
}

// NewTask creates a task and schedules its first run on the next dispatcher
// turn, so a zero-dependency task never runs inside its constructor.
func NewTask(cfg TaskConfig) (*Task, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	t := &Task{
		dispatcher: cfg.Dispatcher,
		runner:     cfg.Runner,
		onComplete: cfg.OnComplete,
		logger:     cfg.Logger,
		state:      StateCreated,
	}

	if err := t.dispatcher.Post(t.initialRun); err != nil {
		return nil, fmt.Errorf("could not schedule initial run: %w", err)
	}

	return t, nil
}

// State returns the task's current lifecycle state.
func (t *Task) State() State { return t.state }

// Completed returns true once the task has completed.
func (t *Task) Completed() bool { return t.completed }

// Result returns the completion result. Only meaningful once Completed
// returns true; a nil error means success.
func (t *Task) Result() error { return t.result }

// DependencyCounts returns the total and finished dependency counters. Both
// are monotone non-decreasing and finished never exceeds total.
func (t *Task) DependencyCounts() (total, finished int) {
	return t.totalDeps, t.finishedDeps
}

// AddDependency registers this task as a dependent of dep. It may only be
// called from within the runner's Run, and re-arms the task's wait
// condition. If dep already completed, this task is notified on the next
// dispatcher turn instead of recursing; the queue acts as the trampoline
// that bounds stack depth on deep graphs.
func (t *Task) AddDependency(dep *Task) {
	if t.completed {
		panic("scheduler: AddDependency called on a completed task")
	}
	if t.state != StateRunning {
		panic("scheduler: AddDependency called outside Run")
	}

	t.totalDeps++
	t.addedInRun = true

	if dep.completed {
		result := dep.result
		t.post(func() { t.dependencyComplete(result) })
		return
	}

	dep.dependents = append(dep.dependents, t)
}

// Complete marks the task completed exactly once, notifies dependents in
// registration order and finally invokes the completion callback. Completing
// an already completed task panics, it is never silently ignored.
func (t *Task) Complete(err error) {
	if t.completed {
		panic("scheduler: Complete called on an already completed task")
	}

	t.completed = true
	t.result = err
	t.state = StateCompleted

	if err != nil {
		t.logger.Debugf("Task completed with failure: %v", err)
	}

	// Dependents are notified in FIFO registration order, each on its own
	// dispatcher turn. The list is drained: a completed task never notifies
	// anyone again.
	dependents := t.dependents
	t.dependents = nil
	for _, dependent := range dependents {
		dependent := dependent
		t.post(func() { dependent.dependencyComplete(err) })
	}

	if t.onComplete != nil {
		t.onComplete(err)
	}
}

// initialRun is the deferred first run scheduled at construction.
func (t *Task) initialRun() {
	// A failed dependency registered against us cannot exist yet, but the
	// guard keeps the invariant in one place.
	if t.completed {
		return
	}

	t.run()
}

// dependencyComplete is invoked once per finished dependency. Failures take
// the fail-fast branch unconditionally under the default policy; late
// notifications arriving after this task already completed are dropped (the
// siblings keep running, they are just no longer awaited).
func (t *Task) dependencyComplete(err error) {
	if t.completed {
		return
	}

	if err != nil {
		if fh, ok := t.runner.(FailureHandler); ok {
			fh.DependencyFailed(t, err)
			return
		}

		t.Complete(err)
		return
	}

	t.finishedDeps++
	if t.finishedDeps > t.totalDeps {
		panic("scheduler: finished dependencies exceed total dependencies")
	}

	if t.finishedDeps == t.totalDeps {
		t.run()
	}
}

func (t *Task) run() {
	t.state = StateRunning
	t.addedInRun = false

	t.runner.Run(t)

	if t.completed {
		return
	}

	if !t.addedInRun {
		panic("scheduler: Run returned without completing or adding dependencies")
	}

	t.state = StateWaiting
}

// post enqueues engine work. A stopped dispatcher means the operation is
// being torn down: the notification is dropped and the task simply never
// progresses.
func (t *Task) post(fn func()) {
	if err := t.dispatcher.Post(fn); err != nil {
		t.logger.Errorf("Could not post task notification: %v", err)
	}
}
