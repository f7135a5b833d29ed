package model

import (
	"fmt"
	"time"
)

// DeviceState represents the lifecycle state of a device.
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

// Device represents a device in the coordinator's device tree.
type Device struct {
	ID     string
	Name   string
	State  DeviceState
	Driver string

	// ParentID is the device this device hangs from, empty for the root device
	// and for proxy devices (a proxy is reached through its owner, not a parent).
	ParentID string
	// ProxyID points to this device's proxy device, empty when it has none.
	ProxyID string
	// HostID identifies the execution context running this device's driver.
	// Empty means the device is not running anywhere and is trivially suspendable.
	HostID string

	CreatedAt   time.Time
	SuspendedAt *time.Time
}

// Validate validates the device data.
func (d *Device) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("id is required: %w", ErrNotValid)
	}

	if d.Name == "" {
		return fmt.Errorf("name is required: %w", ErrNotValid)
	}

	switch d.State {
	case DeviceStateActive, DeviceStateSuspending, DeviceStateSuspended, DeviceStateResuming, DeviceStateDead:
	default:
		return fmt.Errorf("unknown device state %q: %w", d.State, ErrNotValid)
	}

	if d.ID == d.ParentID {
		return fmt.Errorf("device cannot be its own parent: %w", ErrNotValid)
	}

	if d.ID == d.ProxyID {
		return fmt.Errorf("device cannot be its own proxy: %w", ErrNotValid)
	}

	return nil
}
