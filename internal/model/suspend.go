package model

import "fmt"

// SuspendFlag selects the suspend variant requested for a device subtree.
type SuspendFlag string

const (
	// SuspendFlagSuspendToRAM suspends devices keeping state in memory.
	SuspendFlagSuspendToRAM SuspendFlag = "suspend-to-ram"
	// SuspendFlagPoweroff suspends devices ahead of a full power off.
	SuspendFlagPoweroff SuspendFlag = "poweroff"
	// SuspendFlagReboot suspends devices ahead of a reboot.
	SuspendFlagReboot SuspendFlag = "reboot"
	// SuspendFlagMexec suspends devices ahead of a mexec kernel handoff.
	SuspendFlagMexec SuspendFlag = "mexec"
)

// SuspendFlagValues are all the valid suspend flags, in display order.
var SuspendFlagValues = []SuspendFlag{
	SuspendFlagSuspendToRAM,
	SuspendFlagPoweroff,
	SuspendFlagReboot,
	SuspendFlagMexec,
}

// ParseSuspendFlag parses a suspend flag from its string form.
func ParseSuspendFlag(s string) (SuspendFlag, error) {
	for _, f := range SuspendFlagValues {
		if s == string(f) {
			return f, nil
		}
	}

	return "", fmt.Errorf("unknown suspend flag %q: %w", s, ErrNotValid)
}

// DeviceResult is the per-device outcome of a suspend or resume operation.
type DeviceResult struct {
	DeviceID   string
	DeviceName string
	// Skipped is true when the device needed no action (already suspended,
	// already active, or dead).
	Skipped bool
	Err     string
}

// OperationReport is the outcome of a whole suspend or resume operation.
type OperationReport struct {
	Operation string
	Target    string
	Flag      SuspendFlag
	Results   []DeviceResult
	// Err is the failure delivered to the root task's completion callback,
	// empty when the operation succeeded.
	Err string
}

// Failed returns true when the operation did not complete successfully.
func (r *OperationReport) Failed() bool {
	return r.Err != ""
}
