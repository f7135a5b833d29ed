package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/devcoord/devco/internal/journal"
	"github.com/devcoord/devco/internal/model"
)

// JSONPrinter prints device information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

// listItem represents a device in the list output (subset of fields).
type listItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	State     string    `json:"state"`
	ParentID  string    `json:"parent_id,omitempty"`
	HostID    string    `json:"host_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// statusOutput represents the full device status output.
type statusOutput struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	State       string        `json:"state"`
	Driver      string        `json:"driver,omitempty"`
	ParentID    string        `json:"parent_id,omitempty"`
	ProxyID     string        `json:"proxy_id,omitempty"`
	HostID      string        `json:"host_id,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	SuspendedAt *time.Time    `json:"suspended_at,omitempty"`
	Operation   string        `json:"operation,omitempty"`
	Progress    *progressOut  `json:"progress,omitempty"`
	Steps       []stepOutput  `json:"steps,omitempty"`
}

type progressOut struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

type stepOutput struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// reportOutput represents the outcome of a suspend or resume operation.
type reportOutput struct {
	Operation string         `json:"operation"`
	Target    string         `json:"target"`
	Flag      string         `json:"flag,omitempty"`
	Failed    bool           `json:"failed"`
	Error     string         `json:"error,omitempty"`
	Results   []resultOutput `json:"results"`
}

type resultOutput struct {
	DeviceID   string `json:"device_id"`
	DeviceName string `json:"device_name"`
	Skipped    bool   `json:"skipped"`
	Error      string `json:"error,omitempty"`
}

// messageOutput represents a simple message output.
type messageOutput struct {
	Message string `json:"message"`
}

// PrintDeviceList prints devices in JSON format with a subset of fields.
func (j *JSONPrinter) PrintDeviceList(devices []model.Device) error {
	items := make([]listItem, len(devices))
	for i, d := range devices {
		items[i] = listItem{
			ID:        d.ID,
			Name:      d.Name,
			State:     string(d.State),
			ParentID:  d.ParentID,
			HostID:    d.HostID,
			CreatedAt: d.CreatedAt.UTC(),
		}
	}

	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

// PrintDeviceStatus prints detailed device status in JSON format.
func (j *JSONPrinter) PrintDeviceStatus(device model.Device, operation string, progress *journal.Progress, steps []journal.Step) error {
	output := statusOutput{
		ID:        device.ID,
		Name:      device.Name,
		State:     string(device.State),
		Driver:    device.Driver,
		ParentID:  device.ParentID,
		ProxyID:   device.ProxyID,
		HostID:    device.HostID,
		CreatedAt: device.CreatedAt.UTC(),
		Operation: operation,
	}

	if device.SuspendedAt != nil {
		utcTime := device.SuspendedAt.UTC()
		output.SuspendedAt = &utcTime
	}

	if progress != nil {
		output.Progress = &progressOut{Done: progress.Done, Total: progress.Total}
	}

	for _, s := range steps {
		output.Steps = append(output.Steps, stepOutput{
			Name:   s.Name,
			Status: string(s.Status),
			Error:  s.Error,
		})
	}

	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}

// PrintReport prints the outcome of a suspend or resume operation in JSON format.
func (j *JSONPrinter) PrintReport(report model.OperationReport) error {
	output := reportOutput{
		Operation: report.Operation,
		Target:    report.Target,
		Flag:      string(report.Flag),
		Failed:    report.Failed(),
		Error:     report.Err,
		Results:   []resultOutput{},
	}

	for _, r := range report.Results {
		output.Results = append(output.Results, resultOutput{
			DeviceID:   r.DeviceID,
			DeviceName: r.DeviceName,
			Skipped:    r.Skipped,
			Error:      r.Err,
		})
	}

	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	output := messageOutput{Message: msg}
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}
