package journal

import (
	"context"
	"time"
)

// Status represents the state of a journal step.
type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Step represents a single per-device step in a multi-step operation.
type Step struct {
	ID        string
	DeviceID  string
	Operation string
	Sequence  int
	Name      string
	Status    Status
	Error     string
	CreatedAt time.Time
}

// Progress represents the completion state of an operation.
type Progress struct {
	Done  int
	Total int
}

// Recorder tracks the steps of multi-device operations.
type Recorder interface {
	// AddStep adds a single step to an operation.
	AddStep(ctx context.Context, operation, deviceID, name string) error

	// AddSteps adds multiple steps to an operation in order. Only the
	// DeviceID and Name of each step are used.
	AddSteps(ctx context.Context, operation string, steps []Step) error

	// NextStep returns the next pending step for an operation, or nil if all done.
	NextStep(ctx context.Context, operation string) (*Step, error)

	// CompleteStep marks a step as completed.
	CompleteStep(ctx context.Context, stepID string) error

	// FailStep marks a step as failed with an error message.
	FailStep(ctx context.Context, stepID string, err error) error

	// Progress returns the completion progress for an operation.
	Progress(ctx context.Context, operation string) (*Progress, error)

	// ListOperationSteps returns all steps of an operation in sequence order.
	ListOperationSteps(ctx context.Context, operation string) ([]Step, error)

	// HasPendingOperation checks if a device has any pending steps.
	// Returns the operation name and true if found, empty string and false otherwise.
	HasPendingOperation(ctx context.Context, deviceID string) (operation string, hasPending bool, err error)

	// ClearOperation removes all steps for an operation.
	ClearOperation(ctx context.Context, operation string) error
}
