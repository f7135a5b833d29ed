// Package resume implements the resume policy for the task scheduler: the
// inverse unwind of suspend, where a device may only resume after the device
// it hangs from is back.
package resume

import (
	"fmt"

	"github.com/devcoord/devco/internal/log"
	"github.com/devcoord/devco/internal/model"
	"github.com/devcoord/devco/internal/scheduler"
)

// Device is the view of the device tree the resume policy needs.
type Device interface {
	ID() string
	Name() string
	State() model.DeviceState
	// Parent returns the device this device hangs from, nil for the root.
	Parent() Device
	// HasHost returns false when the device has no live driver host, in which
	// case resuming is a no-op.
	HasHost() bool
	// RequestResumeTask returns the device's in-flight resume task, creating
	// one when none exists.
	RequestResumeTask() (*scheduler.Task, error)
	// SendResume issues the device's own resume action. done is invoked
	// exactly once unless SendResume itself returns an error.
	SendResume(done func(err error)) error
}

// TaskConfig is the configuration for a device resume task.
type TaskConfig struct {
	Dispatcher scheduler.Dispatcher
	Device     Device
	// OnComplete is invoked exactly once with the resume outcome.
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

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "scheduler.Resume", "device": c.Device.Name()})

	return nil
}

// Task is the resume policy for one device: the parent resumes first, then
// the device's own resume action. Children resume through their own tasks
// depending on this one, so a whole subtree unwinds top-down.
type Task struct {
	device Device
	logger log.Logger
}

// NewTask creates the resume task for a device and schedules it on the
// dispatcher.
func NewTask(cfg TaskConfig) (*scheduler.Task, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	t := &Task{
		device: cfg.Device,
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

// Run executes one wave of the resume traversal: wait for the parent when it
// is still down, then perform the device's own resume.
func (t *Task) Run(st *scheduler.Task) {
	if parent := t.device.Parent(); parent != nil && needsResume(parent.State()) {
		dep, err := parent.RequestResumeTask()
		if err != nil {
			st.Complete(fmt.Errorf("could not request resume task for parent %q: %w", parent.Name(), err))
			return
		}

		st.AddDependency(dep)
		t.logger.Debugf("Waiting for parent of %q to resume", t.device.Name())
		return
	}

	// Only suspended devices have anything to undo.
	if !needsResume(t.device.State()) {
		st.Complete(nil)
		return
	}

	if !t.device.HasHost() {
		t.logger.Debugf("Device %q has no host, resumed trivially", t.device.Name())
		st.Complete(nil)
		return
	}

	if err := t.device.SendResume(st.Complete); err != nil {
		st.Complete(fmt.Errorf("could not send resume to %q: %w", t.device.Name(), err))
	}
}

// needsResume returns true for states a resume still has to act on or wait
// for.
func needsResume(s model.DeviceState) bool {
	switch s {
	case model.DeviceStateSuspended, model.DeviceStateResuming, model.DeviceStateSuspending:
		return true
	}

	return false
}
