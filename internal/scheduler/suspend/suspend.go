// Package suspend implements the suspend policy for the task scheduler: the
// dependency DAG that must complete before a device itself is suspended.
package suspend

import (
	"fmt"

	"github.com/devcoord/devco/internal/log"
	"github.com/devcoord/devco/internal/model"
	"github.com/devcoord/devco/internal/scheduler"
)

// Device is the view of the device tree the suspend policy needs.
type Device interface {
	ID() string
	Name() string
	State() model.DeviceState
	// Children returns the device's children in tree order.
	Children() []Device
	// Proxy returns the device's proxy device, nil when it has none.
	Proxy() Device
	// HasHost returns false when the device is not running anywhere, in which
	// case there is nothing to actually suspend.
	HasHost() bool
	// RequestSuspendTask returns the device's in-flight suspend task,
	// creating one when none exists. At most one suspend task is live per
	// device at a time.
	RequestSuspendTask(flags model.SuspendFlag) (*scheduler.Task, error)
	// SendSuspend issues the device's own suspend action. done is invoked
	// exactly once with the outcome unless SendSuspend itself returns an
	// error, in which case no callback will ever follow.
	SendSuspend(flags model.SuspendFlag, done func(err error)) error
}

// TaskConfig is the configuration for a device suspend task.
type TaskConfig struct {
	Dispatcher scheduler.Dispatcher
	Device     Device
	Flags      model.SuspendFlag
	// OnComplete is invoked exactly once with the suspend outcome.
	OnComplete func(err error)
	Logger     log.Logger
}

func (c *TaskConfig) defaults() error {
	if c.Dispatcher == nil {
		return fmt.Errorf("dispatcher is required")
	}

	if c.Device == nil {
		return fmt.Errorf("device is required")
	}

	if c.Flags == "" {
		return fmt.Errorf("suspend flags are required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "scheduler.Suspend", "device": c.Device.Name()})

	return nil
}

// Task is the suspend policy for one device: children suspend first, then
// the proxy, then the device's own suspend action. It implements
// scheduler.Runner and relies on the engine's default fail-fast policy, so
// the first failed child or proxy completes this task with that failure
// while the sibling tasks keep running unawaited.
type Task struct {
	device Device
	flags  model.SuspendFlag
	logger log.Logger
}

// NewTask creates the suspend task for a device and schedules it on the
// dispatcher.
func NewTask(cfg TaskConfig) (*scheduler.Task, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	t := &Task{
		device: cfg.Device,
		flags:  cfg.Flags,
		logger: cfg.Logger,
	}

	st, err := scheduler.NewTask(scheduler.TaskConfig{
		Dispatcher: cfg.Dispatcher,
		Runner:     t,
		OnComplete: cfg.OnComplete,
		Logger:     cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create scheduler task: %w", err)
	}

	return st, nil
}

// Run executes one wave of the suspend traversal. It runs once per wave of
// newly discovered dependencies: first the children, then the proxy, and
// only when neither contributes an outstanding dependency the device's own
// suspend action.
func (t *Task) Run(st *scheduler.Task) {
	// Children first: consumers release before the layers they are reached
	// through.
	added := false
	for _, child := range t.device.Children() {
		if !needsSuspend(child.State()) {
			continue
		}

		dep, err := child.RequestSuspendTask(t.flags)
		if err != nil {
			st.Complete(fmt.Errorf("could not request suspend task for child %q: %w", child.Name(), err))
			return
		}

		st.AddDependency(dep)
		added = true
	}
	if added {
		t.logger.Debugf("Waiting for children of %q to suspend", t.device.Name())
		return
	}

	// Proxy only once every child is settled: a proxy may depend on its
	// owner's children having already released resources.
	if proxy := t.device.Proxy(); proxy != nil && needsSuspend(proxy.State()) {
		dep, err := proxy.RequestSuspendTask(t.flags)
		if err != nil {
			st.Complete(fmt.Errorf("could not request suspend task for proxy %q: %w", proxy.Name(), err))
			return
		}

		st.AddDependency(dep)
		t.logger.Debugf("Waiting for proxy of %q to suspend", t.device.Name())
		return
	}

	// Nothing is running anywhere for this device, there is nothing to
	// actually suspend.
	if !t.device.HasHost() {
		t.logger.Debugf("Device %q has no host, suspended trivially", t.device.Name())
		st.Complete(nil)
		return
	}

	if err := t.device.SendSuspend(t.flags, st.Complete); err != nil {
		// The action could not even be dispatched, no callback will follow.
		st.Complete(fmt.Errorf("could not send suspend to %q: %w", t.device.Name(), err))
	}
}

// needsSuspend returns true for states that still require waiting on a
// suspend task. Dead and already suspended devices have nothing to wait for.
func needsSuspend(s model.DeviceState) bool {
	switch s {
	case model.DeviceStateDead, model.DeviceStateSuspended:
		return false
	}

	return true
}
