package lib

import (
	"errors"
	"time"

	appstatus "github.com/devcoord/devco/internal/app/status"
	"github.com/devcoord/devco/internal/model"
)

// Sentinel errors returned by the SDK, inspectable with [errors.Is].
var (
	// ErrNotFound is returned when a device does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when loading into a populated registry
	// without replace, or on duplicated device names.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned on invalid input or operations, like suspending
	// an already suspended device.
	ErrNotValid = errors.New("not valid")
)

// HostsType identifies the host engine implementation.
type HostsType string

const (
	// HostsDocker maps driver hosts to Docker containers: suspend pauses the
	// container, resume unpauses it.
	HostsDocker HostsType = "docker"

	// HostsFake uses an in-memory simulation (no real hosts).
	// Use this for unit testing without infrastructure dependencies.
	HostsFake HostsType = "fake"
)

// DeviceState represents the lifecycle state of a device.
//
// The typical lifecycle is:
//
//	active -> suspending -> suspended -> resuming -> active
//
// A dead device lingers in the tree but is skipped by every operation.
type DeviceState string

const (
	// DeviceStateActive indicates the device is running normally.
	DeviceStateActive DeviceState = "active"
	// DeviceStateSuspending indicates the device has an in-flight suspend operation.
	DeviceStateSuspending DeviceState = "suspending"
	// DeviceStateSuspended indicates the device finished suspending.
	DeviceStateSuspended DeviceState = "suspended"
	// DeviceStateResuming indicates the device has an in-flight resume operation.
	DeviceStateResuming DeviceState = "resuming"
	// DeviceStateDead indicates the device has been removed and only lingers in the tree.
	DeviceStateDead DeviceState = "dead"
)

// SuspendFlag selects the suspend variant requested for a device subtree.
type SuspendFlag string

const (
	// SuspendToRAM suspends devices keeping state in memory. This is the
	// default variant.
	SuspendToRAM SuspendFlag = "suspend-to-ram"
	// SuspendPoweroff suspends devices ahead of a full power off.
	SuspendPoweroff SuspendFlag = "poweroff"
	// SuspendReboot suspends devices ahead of a reboot.
	SuspendReboot SuspendFlag = "reboot"
	// SuspendMexec suspends devices ahead of a mexec kernel handoff.
	SuspendMexec SuspendFlag = "mexec"
)

// Device represents a device in the coordinator's registry.
//
// This is a read-only snapshot of the device state at the time of the API
// call. Use [Client.DeviceStatus] to get the latest state.
type Device struct {
	// ID is the unique identifier (ULID) assigned at load time.
	ID string
	// Name is the human-friendly name, unique across the tree.
	Name string
	// State is the current lifecycle state.
	State DeviceState
	// Driver is the driver managing this device.
	Driver string
	// ParentID is the device this device hangs from, empty for the root
	// device and for proxies.
	ParentID string
	// ProxyID points to this device's proxy device, empty when it has none.
	ProxyID string
	// HostID identifies the execution context running this device's driver.
	// Empty means the device is not running anywhere.
	HostID string
	// CreatedAt is when the device was registered.
	CreatedAt time.Time
	// SuspendedAt is when the device was last suspended. Nil if active.
	SuspendedAt *time.Time
}

// LoadTreeOpts configures device tree loading.
//
// Pass nil to [Client.LoadTree] to require an empty registry.
type LoadTreeOpts struct {
	// Replace removes any previously registered devices before importing.
	Replace bool
}

// ListDevicesOpts configures device listing.
//
// Pass nil to [Client.ListDevices] to list all devices.
type ListDevicesOpts struct {
	// State filters devices by lifecycle state. Nil means all states.
	State *DeviceState
}

// SuspendOpts configures suspend behavior.
//
// Pass nil to [Client.Suspend] to suspend to RAM.
type SuspendOpts struct {
	// Flag selects the suspend variant. Default: [SuspendToRAM].
	Flag SuspendFlag
}

// StepStatus represents the status of a journal step.
type StepStatus string

const (
	// StepStatusPending indicates the step has not run yet.
	StepStatusPending StepStatus = "pending"
	// StepStatusDone indicates the step completed successfully.
	StepStatusDone StepStatus = "done"
	// StepStatusFailed indicates the step failed.
	StepStatusFailed StepStatus = "failed"
)

// Step is one recorded unit of work of a suspend or resume operation.
type Step struct {
	// DeviceID is the device this step acts on.
	DeviceID string
	// Name is a human-readable description (e.g. "suspend sensor").
	Name string
	// Status is the step status.
	Status StepStatus
	// Error holds the failure message for failed steps.
	Error string
}

// DeviceStatus is the detailed state of a device, including any in-flight
// operation recorded in the journal.
type DeviceStatus struct {
	// Device is the device's registry snapshot.
	Device Device
	// PendingOperation names the operation with pending steps referencing
	// this device, empty when there is none.
	PendingOperation string
	// Done and Total describe the pending operation's progress. Both are zero
	// when there is no pending operation.
	Done  int
	Total int
	// Steps are the pending operation's journal steps in execution order.
	Steps []Step
}

// DeviceResult is the per-device outcome of a suspend or resume operation.
type DeviceResult struct {
	// DeviceName is the device's name.
	DeviceName string
	// Skipped is true when the device needed no action (already suspended,
	// already active, or dead).
	Skipped bool
	// Err holds the device's failure message, empty on success.
	Err string
}

// OperationReport is the outcome of a whole suspend or resume operation.
type OperationReport struct {
	// Operation is "suspend" or "resume".
	Operation string
	// Target is the name of the device the operation was requested on.
	Target string
	// Results holds the per-device outcomes in completion order.
	Results []DeviceResult
	// Err is the failure that reached the target device, empty when the
	// operation succeeded.
	Err string
}

// Failed returns true when the operation did not complete successfully.
func (r *OperationReport) Failed() bool { return r.Err != "" }

// --- Internal conversion helpers ---

func fromInternalDevice(d model.Device) Device {
	return Device{
		ID:          d.ID,
		Name:        d.Name,
		State:       DeviceState(d.State),
		Driver:      d.Driver,
		ParentID:    d.ParentID,
		ProxyID:     d.ProxyID,
		HostID:      d.HostID,
		CreatedAt:   d.CreatedAt,
		SuspendedAt: d.SuspendedAt,
	}
}

func fromInternalDeviceList(ds []model.Device) []Device {
	result := make([]Device, len(ds))
	for i, d := range ds {
		result[i] = fromInternalDevice(d)
	}
	return result
}

func fromInternalStatus(st *appstatus.Status) *DeviceStatus {
	out := &DeviceStatus{
		Device:           fromInternalDevice(st.Device),
		PendingOperation: st.PendingOperation,
	}

	if st.Progress != nil {
		out.Done = st.Progress.Done
		out.Total = st.Progress.Total
	}

	for _, s := range st.Steps {
		out.Steps = append(out.Steps, Step{
			DeviceID: s.DeviceID,
			Name:     s.Name,
			Status:   StepStatus(s.Status),
			Error:    s.Error,
		})
	}

	return out
}

func fromInternalReport(r *model.OperationReport) *OperationReport {
	out := &OperationReport{
		Operation: r.Operation,
		Target:    r.Target,
		Err:       r.Err,
	}
	for _, res := range r.Results {
		out.Results = append(out.Results, DeviceResult{
			DeviceName: res.DeviceName,
			Skipped:    res.Skipped,
			Err:        res.Err,
		})
	}
	return out
}

func toInternalStateFilter(opts *ListDevicesOpts) *model.DeviceState {
	if opts == nil || opts.State == nil {
		return nil
	}
	s := model.DeviceState(*opts.State)
	return &s
}

func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, model.ErrNotFound):
		return joinErrors(err, ErrNotFound)
	case errors.Is(err, model.ErrAlreadyExists):
		return joinErrors(err, ErrAlreadyExists)
	case errors.Is(err, model.ErrNotValid):
		return joinErrors(err, ErrNotValid)
	default:
		return err
	}
}

func joinErrors(original, sentinel error) error {
	return &mappedError{original: original, sentinel: sentinel}
}

// mappedError keeps the internal error message while exposing a public
// sentinel through errors.Is.
type mappedError struct {
	original error
	sentinel error
}

func (e *mappedError) Error() string { return e.original.Error() }

func (e *mappedError) Is(target error) bool {
	return target == e.sentinel
}

func (e *mappedError) Unwrap() error { return e.original }
