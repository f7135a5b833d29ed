package suspend_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devcoord/devco/internal/dispatch"
	"github.com/devcoord/devco/internal/model"
	"github.com/devcoord/devco/internal/scheduler"
	"github.com/devcoord/devco/internal/scheduler/suspend"
)

// fakeDevice is an in-memory device tree node implementing suspend.Device.
type fakeDevice struct {
	id       string
	name     string
	state    model.DeviceState
	hasHost  bool
	children []*fakeDevice
	proxy    *fakeDevice

	dispatcher *dispatch.Dispatcher
	task       *scheduler.Task

	// sendErr makes SendSuspend fail synchronously, asyncErr makes the
	// deferred completion fail.
	sendErr  error
	asyncErr error

	// order records completed suspend actions across the whole tree.
	order *[]string
}

func (d *fakeDevice) ID() string               { return d.id }
func (d *fakeDevice) Name() string             { return d.name }
func (d *fakeDevice) State() model.DeviceState { return d.state }
func (d *fakeDevice) HasHost() bool            { return d.hasHost }

func (d *fakeDevice) Children() []suspend.Device {
	out := make([]suspend.Device, 0, len(d.children))
	for _, c := range d.children {
		out = append(out, c)
	}
	return out
}

func (d *fakeDevice) Proxy() suspend.Device {
	if d.proxy == nil {
		return nil
	}
	return d.proxy
}

func (d *fakeDevice) RequestSuspendTask(flags model.SuspendFlag) (*scheduler.Task, error) {
	if d.task != nil {
		return d.task, nil
	}

	task, err := suspend.NewTask(suspend.TaskConfig{
		Dispatcher: d.dispatcher,
		Device:     d,
		Flags:      flags,
		OnComplete: func(err error) {
			if err == nil {
				d.state = model.DeviceStateSuspended
			}
		},
	})
	if err != nil {
		return nil, err
	}

	d.task = task
	return task, nil
}

func (d *fakeDevice) SendSuspend(flags model.SuspendFlag, done func(err error)) error {
	if d.sendErr != nil {
		return d.sendErr
	}

	err := d.dispatcher.Post(func() {
		if d.asyncErr == nil {
			*d.order = append(*d.order, d.name)
		}
		done(d.asyncErr)
	})
	if err != nil {
		return err
	}

	return nil
}

// newFakeTree wires dispatcher and order recorder into every device.
func newFakeTree(t *testing.T, root *fakeDevice) (*dispatch.Dispatcher, *[]string) {
	d, err := dispatch.NewDispatcher(dispatch.DispatcherConfig{})
	require.NoError(t, err)

	order := &[]string{}
	var wire func(dev *fakeDevice)
	wire = func(dev *fakeDevice) {
		dev.dispatcher = d
		dev.order = order
		for _, c := range dev.children {
			wire(c)
		}
		if dev.proxy != nil {
			wire(dev.proxy)
		}
	}
	wire(root)

	return d, order
}

func TestSuspendLeafFirst(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	leaf := &fakeDevice{id: "3", name: "leaf", state: model.DeviceStateActive, hasHost: true}
	mid := &fakeDevice{id: "2", name: "mid", state: model.DeviceStateActive, hasHost: true, children: []*fakeDevice{leaf}}
	root := &fakeDevice{id: "1", name: "root", state: model.DeviceStateActive, hasHost: true, children: []*fakeDevice{mid}}

	d, order := newFakeTree(t, root)

	var gotErr error
	_, err := suspend.NewTask(suspend.TaskConfig{
		Dispatcher: d,
		Device:     root,
		Flags:      model.SuspendFlagSuspendToRAM,
		OnComplete: func(err error) { gotErr = err },
	})
	require.NoError(err)

	d.RunUntilIdle()

	assert.NoError(gotErr)
	assert.Equal([]string{"leaf", "mid", "root"}, *order)
	assert.Equal(model.DeviceStateSuspended, leaf.state)
	assert.Equal(model.DeviceStateSuspended, mid.state)
}

func TestSuspendSkipsDeadAndSuspendedChildren(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	dead := &fakeDevice{id: "2", name: "dead", state: model.DeviceStateDead, hasHost: true}
	done := &fakeDevice{id: "3", name: "done", state: model.DeviceStateSuspended, hasHost: true}
	active := &fakeDevice{id: "4", name: "active", state: model.DeviceStateActive, hasHost: true}
	root := &fakeDevice{id: "1", name: "root", state: model.DeviceStateActive, hasHost: true, children: []*fakeDevice{dead, done, active}}

	d, order := newFakeTree(t, root)

	var gotErr error
	_, err := suspend.NewTask(suspend.TaskConfig{
		Dispatcher: d,
		Device:     root,
		Flags:      model.SuspendFlagSuspendToRAM,
		OnComplete: func(err error) { gotErr = err },
	})
	require.NoError(err)

	d.RunUntilIdle()

	assert.NoError(gotErr)
	// Only the active child and the root themselves acted.
	assert.Equal([]string{"active", "root"}, *order)
}

func TestSuspendProxyAfterChildrenBeforeSelf(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	child := &fakeDevice{id: "2", name: "child", state: model.DeviceStateActive, hasHost: true}
	proxy := &fakeDevice{id: "3", name: "proxy", state: model.DeviceStateActive, hasHost: true}
	root := &fakeDevice{id: "1", name: "root", state: model.DeviceStateActive, hasHost: true, children: []*fakeDevice{child}, proxy: proxy}

	d, order := newFakeTree(t, root)

	var gotErr error
	_, err := suspend.NewTask(suspend.TaskConfig{
		Dispatcher: d,
		Device:     root,
		Flags:      model.SuspendFlagPoweroff,
		OnComplete: func(err error) { gotErr = err },
	})
	require.NoError(err)

	d.RunUntilIdle()

	assert.NoError(gotErr)
	assert.Equal([]string{"child", "proxy", "root"}, *order)
}

func TestSuspendNoHostIsTrivialSuccess(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	root := &fakeDevice{id: "1", name: "root", state: model.DeviceStateActive, hasHost: false}

	d, order := newFakeTree(t, root)

	var gotErr error
	task, err := suspend.NewTask(suspend.TaskConfig{
		Dispatcher: d,
		Device:     root,
		Flags:      model.SuspendFlagSuspendToRAM,
		OnComplete: func(err error) { gotErr = err },
	})
	require.NoError(err)

	d.RunUntilIdle()

	assert.NoError(gotErr)
	assert.True(task.Completed())
	// No suspend action was ever sent.
	assert.Empty(*order)
}

func TestSuspendSyncSendFailureCompletesImmediately(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	root := &fakeDevice{id: "1", name: "root", state: model.DeviceStateActive, hasHost: true, sendErr: fmt.Errorf("host unreachable")}

	d, _ := newFakeTree(t, root)

	var gotErr error
	task, err := suspend.NewTask(suspend.TaskConfig{
		Dispatcher: d,
		Device:     root,
		Flags:      model.SuspendFlagSuspendToRAM,
		OnComplete: func(err error) { gotErr = err },
	})
	require.NoError(err)

	d.RunUntilIdle()

	assert.True(task.Completed())
	require.Error(gotErr)
	assert.Contains(gotErr.Error(), "host unreachable")
}

func TestSuspendChildFailureFailsFastWithoutCancellingSiblings(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	failing := &fakeDevice{id: "2", name: "failing", state: model.DeviceStateActive, hasHost: true, asyncErr: fmt.Errorf("driver rejected suspend")}
	sibling := &fakeDevice{id: "3", name: "sibling", state: model.DeviceStateActive, hasHost: true}
	root := &fakeDevice{id: "1", name: "root", state: model.DeviceStateActive, hasHost: true, children: []*fakeDevice{failing, sibling}}

	d, order := newFakeTree(t, root)

	var gotErr error
	task, err := suspend.NewTask(suspend.TaskConfig{
		Dispatcher: d,
		Device:     root,
		Flags:      model.SuspendFlagSuspendToRAM,
		OnComplete: func(err error) { gotErr = err },
	})
	require.NoError(err)

	d.RunUntilIdle()

	// The root failed fast with the child's error and never suspended itself.
	assert.True(task.Completed())
	require.Error(gotErr)
	assert.Contains(gotErr.Error(), "driver rejected suspend")
	assert.NotContains(*order, "root")

	// The sibling was not cancelled: its own task finished its work.
	assert.Contains(*order, "sibling")
	assert.Equal(model.DeviceStateSuspended, sibling.state)
}
