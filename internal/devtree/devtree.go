// Package devtree holds the in-memory device tree a suspend or resume
// operation runs against. A tree is built from the persisted registry for a
// single operation and mutated only from the scheduler dispatcher goroutine.
package devtree

import (
	"context"
	"fmt"

	"github.com/devcoord/devco/internal/host"
	"github.com/devcoord/devco/internal/log"
	"github.com/devcoord/devco/internal/model"
	"github.com/devcoord/devco/internal/scheduler"
	"github.com/devcoord/devco/internal/scheduler/resume"
	"github.com/devcoord/devco/internal/scheduler/suspend"
)

// TreeConfig is the configuration for a device tree.
type TreeConfig struct {
	Devices    []model.Device
	Dispatcher scheduler.Dispatcher
	Hosts      host.Engine
	// OnSuspendResult is invoked on the dispatcher goroutine every time a
	// device's suspend task completes, successfully or not.
	OnSuspendResult func(d *Device, err error)
	// OnResumeResult is the resume counterpart of OnSuspendResult.
	OnResumeResult func(d *Device, err error)
	Logger        log.Logger
}

func (c *TreeConfig) defaults() error {
	if len(c.Devices) == 0 {
		return fmt.Errorf("at least one device is required")
	}

	if c.Dispatcher == nil {
		return fmt.Errorf("dispatcher is required")
	}

	if c.Hosts == nil {
		return fmt.Errorf("host engine is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "devtree.Tree"})

	return nil
}

// Tree is the linked device tree for one operation.
type Tree struct {
	ctx        context.Context
	dispatcher scheduler.Dispatcher
	hosts      host.Engine
	logger     log.Logger

	devices []*Device
	byID    map[string]*Device
	byName  map[string]*Device
	root    *Device

	onSuspendResult func(d *Device, err error)
	onResumeResult  func(d *Device, err error)
}

// New builds a tree from the given devices, linking parents and proxies. The
// context scopes host requests issued during this operation.
func New(ctx context.Context, cfg TreeConfig) (*Tree, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	tr := &Tree{
		ctx:             ctx,
		dispatcher:      cfg.Dispatcher,
		hosts:           cfg.Hosts,
		logger:          cfg.Logger,
		byID:            map[string]*Device{},
		byName:          map[string]*Device{},
		onSuspendResult: cfg.OnSuspendResult,
		onResumeResult:  cfg.OnResumeResult,
	}

	// First pass: create every device.
	for _, md := range cfg.Devices {
		md := md
		if err := md.Validate(); err != nil {
			return nil, fmt.Errorf("invalid device %q: %w", md.Name, err)
		}

		if _, ok := tr.byID[md.ID]; ok {
			return nil, fmt.Errorf("device id %q: %w", md.ID, model.ErrAlreadyExists)
		}
		if _, ok := tr.byName[md.Name]; ok {
			return nil, fmt.Errorf("device name %q: %w", md.Name, model.ErrAlreadyExists)
		}

		d := &Device{
			tree:   tr,
			id:     md.ID,
			name:   md.Name,
			state:  md.State,
			hostID: md.HostID,
		}
		tr.devices = append(tr.devices, d)
		tr.byID[md.ID] = d
		tr.byName[md.Name] = d
	}

	// Second pass: link parents and proxies.
	proxyOwners := map[string]string{}
	for _, md := range cfg.Devices {
		d := tr.byID[md.ID]

		if md.ParentID != "" {
			parent, ok := tr.byID[md.ParentID]
			if !ok {
				return nil, fmt.Errorf("device %q parent %q: %w", md.Name, md.ParentID, model.ErrNotFound)
			}
			d.parent = parent
			parent.children = append(parent.children, d)
		}

		if md.ProxyID != "" {
			proxy, ok := tr.byID[md.ProxyID]
			if !ok {
				return nil, fmt.Errorf("device %q proxy %q: %w", md.Name, md.ProxyID, model.ErrNotFound)
			}
			if owner, ok := proxyOwners[md.ProxyID]; ok {
				return nil, fmt.Errorf("device %q is already the proxy of %q: %w", proxy.name, owner, model.ErrNotValid)
			}
			proxyOwners[md.ProxyID] = md.Name
			d.proxy = proxy
			proxy.isProxy = true
		}
	}

	// The root is the only non-proxy device without a parent.
	for _, d := range tr.devices {
		if d.parent != nil || d.isProxy {
			continue
		}
		if tr.root != nil {
			return nil, fmt.Errorf("multiple root devices (%q and %q): %w", tr.root.name, d.name, model.ErrNotValid)
		}
		tr.root = d
	}
	if tr.root == nil {
		return nil, fmt.Errorf("no root device: %w", model.ErrNotValid)
	}

	return tr, nil
}

// Root returns the root device of the tree.
func (tr *Tree) Root() *Device { return tr.root }

// Device returns a device by ID.
func (tr *Tree) Device(id string) (*Device, error) {
	d, ok := tr.byID[id]
	if !ok {
		return nil, fmt.Errorf("device %s: %w", id, model.ErrNotFound)
	}

	return d, nil
}

// DeviceByName returns a device by name.
func (tr *Tree) DeviceByName(name string) (*Device, error) {
	d, ok := tr.byName[name]
	if !ok {
		return nil, fmt.Errorf("device with name %s: %w", name, model.ErrNotFound)
	}

	return d, nil
}

// Devices returns all devices in load order.
func (tr *Tree) Devices() []*Device {
	return append([]*Device{}, tr.devices...)
}

// Device is a device linked into a tree.
type Device struct {
	tree     *Tree
	id       string
	name     string
	state    model.DeviceState
	hostID   string
	parent   *Device
	children []*Device
	proxy    *Device
	isProxy  bool

	suspendTask *scheduler.Task
	resumeTask  *scheduler.Task
}

// ID returns the device ID.
func (d *Device) ID() string { return d.id }

// Name returns the device name.
func (d *Device) Name() string { return d.name }

// State returns the device's current lifecycle state.
func (d *Device) State() model.DeviceState { return d.state }

// HostID returns the device's host ID, empty when it has none.
func (d *Device) HostID() string { return d.hostID }

// Parent returns the device's parent, nil for the root and for proxies.
func (d *Device) Parent() *Device { return d.parent }

// Children returns the device's children in tree order.
func (d *Device) Children() []*Device { return append([]*Device{}, d.children...) }

// Proxy returns the device's proxy, nil when it has none.
func (d *Device) Proxy() *Device { return d.proxy }

// Subtree returns the device and every descendant reachable through children
// and proxies, depth first.
func (d *Device) Subtree() []*Device {
	out := []*Device{d}
	for _, c := range d.children {
		out = append(out, c.Subtree()...)
	}
	if d.proxy != nil {
		out = append(out, d.proxy.Subtree()...)
	}

	return out
}

// RequestSuspendTask returns the device's in-flight suspend task, creating
// and scheduling one when none exists. At most one suspend task is live per
// device at a time.
func (d *Device) RequestSuspendTask(flags model.SuspendFlag) (*scheduler.Task, error) {
	if d.suspendTask != nil {
		return d.suspendTask, nil
	}

	if d.state == model.DeviceStateDead {
		return nil, fmt.Errorf("cannot suspend dead device %q: %w", d.name, model.ErrNotValid)
	}

	prevState := d.state
	d.state = model.DeviceStateSuspending

	st, err := suspend.NewTask(suspend.TaskConfig{
		Dispatcher: d.tree.dispatcher,
		Device:     suspendView{d},
		Flags:      flags,
		OnComplete: d.suspendDone,
		Logger:     d.tree.logger,
	})
	if err != nil {
		d.state = prevState
		return nil, fmt.Errorf("could not create suspend task: %w", err)
	}

	d.suspendTask = st
	return st, nil
}

// RequestResumeTask returns the device's in-flight resume task, creating and
// scheduling one when none exists.
func (d *Device) RequestResumeTask() (*scheduler.Task, error) {
	if d.resumeTask != nil {
		return d.resumeTask, nil
	}

	if d.state == model.DeviceStateSuspended {
		d.state = model.DeviceStateResuming
	}

	st, err := resume.NewTask(resume.TaskConfig{
		Dispatcher: d.tree.dispatcher,
		Device:     resumeView{d},
		OnComplete: d.resumeDone,
		Logger:     d.tree.logger,
	})
	if err != nil {
		if d.state == model.DeviceStateResuming {
			d.state = model.DeviceStateSuspended
		}
		return nil, fmt.Errorf("could not create resume task: %w", err)
	}

	d.resumeTask = st
	return st, nil
}

// SendSuspend forwards the device's own suspend action to its host.
func (d *Device) SendSuspend(flags model.SuspendFlag, done func(err error)) error {
	return d.tree.hosts.SendSuspend(d.tree.ctx, d.hostID, d.id, flags, done)
}

// SendResume forwards the device's own resume action to its host.
func (d *Device) SendResume(done func(err error)) error {
	return d.tree.hosts.SendResume(d.tree.ctx, d.hostID, d.id, done)
}

func (d *Device) suspendDone(err error) {
	d.suspendTask = nil

	if d.state == model.DeviceStateSuspending {
		if err != nil {
			d.state = model.DeviceStateActive
		} else {
			d.state = model.DeviceStateSuspended
		}
	}

	if d.tree.onSuspendResult != nil {
		d.tree.onSuspendResult(d, err)
	}
}

func (d *Device) resumeDone(err error) {
	d.resumeTask = nil

	if d.state == model.DeviceStateResuming {
		if err != nil {
			d.state = model.DeviceStateSuspended
		} else {
			d.state = model.DeviceStateActive
		}
	}

	if d.tree.onResumeResult != nil {
		d.tree.onResumeResult(d, err)
	}
}
