package devtree

import (
	"github.com/devcoord/devco/internal/model"
	"github.com/devcoord/devco/internal/scheduler"
	"github.com/devcoord/devco/internal/scheduler/resume"
	"github.com/devcoord/devco/internal/scheduler/suspend"
)

// suspendView adapts a tree device to the suspend policy's device interface.
type suspendView struct {
	d *Device
}

var _ suspend.Device = suspendView{}

func (v suspendView) ID() string               { return v.d.id }
func (v suspendView) Name() string             { return v.d.name }
func (v suspendView) State() model.DeviceState { return v.d.state }
func (v suspendView) HasHost() bool            { return v.d.hostID != "" }

func (v suspendView) Children() []suspend.Device {
	out := make([]suspend.Device, 0, len(v.d.children))
	for _, c := range v.d.children {
		out = append(out, suspendView{c})
	}

	return out
}

func (v suspendView) Proxy() suspend.Device {
	if v.d.proxy == nil {
		return nil
	}

	return suspendView{v.d.proxy}
}

func (v suspendView) RequestSuspendTask(flags model.SuspendFlag) (*scheduler.Task, error) {
	return v.d.RequestSuspendTask(flags)
}

func (v suspendView) SendSuspend(flags model.SuspendFlag, done func(err error)) error {
	return v.d.SendSuspend(flags, done)
}

// resumeView adapts a tree device to the resume policy's device interface.
type resumeView struct {
	d *Device
}

var _ resume.Device = resumeView{}

func (v resumeView) ID() string               { return v.d.id }
func (v resumeView) Name() string             { return v.d.name }
func (v resumeView) State() model.DeviceState { return v.d.state }
func (v resumeView) HasHost() bool            { return v.d.hostID != "" }

func (v resumeView) Parent() resume.Device {
	if v.d.parent == nil {
		return nil
	}

	return resumeView{v.d.parent}
}

func (v resumeView) RequestResumeTask() (*scheduler.Task, error) {
	return v.d.RequestResumeTask()
}

func (v resumeView) SendResume(done func(err error)) error {
	return v.d.SendResume(done)
}
