package printer

import (
	"github.com/devcoord/devco/internal/journal"
	"github.com/devcoord/devco/internal/model"
)

// Printer knows how to print device information in different formats.
type Printer interface {
	PrintDeviceList(devices []model.Device) error
	PrintDeviceStatus(device model.Device, operation string, progress *journal.Progress, steps []journal.Step) error
	PrintReport(report model.OperationReport) error
	PrintMessage(msg string) error
}
