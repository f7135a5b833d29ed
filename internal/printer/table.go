package printer

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/devcoord/devco/internal/journal"
	"github.com/devcoord/devco/internal/model"
)

// TablePrinter prints device information in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintDeviceList prints devices in a table format.
func (t *TablePrinter) PrintDeviceList(devices []model.Device) error {
	if len(devices) == 0 {
		return nil
	}

	byID := map[string]model.Device{}
	for _, d := range devices {
		byID[d.ID] = d
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	// Print header
	fmt.Fprintln(tw, "NAME\tSTATE\tDRIVER\tPARENT\tHOST\tCREATED")

	// Print rows
	for _, d := range devices {
		parent := ""
		if p, ok := byID[d.ParentID]; ok {
			parent = p.Name
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", d.Name, d.State, d.Driver, parent, d.HostID, TimeAgo(d.CreatedAt))
	}

	return nil
}

// PrintDeviceStatus prints detailed device status, including the in-flight
// operation journal when there is one.
func (t *TablePrinter) PrintDeviceStatus(device model.Device, operation string, progress *journal.Progress, steps []journal.Step) error {
	fmt.Fprintf(t.writer, "Name:       %s\n", device.Name)
	fmt.Fprintf(t.writer, "ID:         %s\n", device.ID)
	fmt.Fprintf(t.writer, "State:      %s\n", device.State)

	if device.Driver != "" {
		fmt.Fprintf(t.writer, "Driver:     %s\n", device.Driver)
	}
	if device.HostID != "" {
		fmt.Fprintf(t.writer, "Host:       %s\n", device.HostID)
	}
	fmt.Fprintf(t.writer, "Created:    %s\n", FormatTimestamp(device.CreatedAt))

	if device.SuspendedAt != nil {
		fmt.Fprintf(t.writer, "Suspended:  %s\n", FormatTimestamp(*device.SuspendedAt))
	}

	if operation != "" {
		fmt.Fprintf(t.writer, "Operation:  %s", operation)
		if progress != nil {
			fmt.Fprintf(t.writer, " (%d/%d)", progress.Done, progress.Total)
		}
		fmt.Fprintln(t.writer)
	}

	if len(steps) > 0 {
		tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
		defer tw.Flush()

		fmt.Fprintln(tw, "\nSTEP\tSTATUS\tERROR")
		for _, s := range steps {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Name, s.Status, s.Error)
		}
	}

	return nil
}

// PrintReport prints the outcome of a suspend or resume operation.
func (t *TablePrinter) PrintReport(report model.OperationReport) error {
	outcome := "succeeded"
	if report.Failed() {
		outcome = "failed"
	}
	fmt.Fprintf(t.writer, "%s of %s %s\n", report.Operation, report.Target, outcome)
	if report.Err != "" {
		fmt.Fprintf(t.writer, "Error: %s\n", report.Err)
	}

	if len(report.Results) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "\nDEVICE\tRESULT")
	for _, r := range report.Results {
		result := "ok"
		switch {
		case r.Skipped:
			result = "skipped"
		case r.Err != "":
			result = r.Err
		}
		fmt.Fprintf(tw, "%s\t%s\n", r.DeviceName, result)
	}

	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}
