package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/devcoord/devco/internal/journal"
	"github.com/devcoord/devco/internal/log"
)

// RecorderConfig is the configuration for the memory journal recorder.
type RecorderConfig struct {
	Logger log.Logger
}

func (c *RecorderConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "journal.Memory"})
	return nil
}

// Recorder is an in-memory implementation of journal.Recorder.
type Recorder struct {
	steps  []journal.Step
	mu     sync.Mutex
	logger log.Logger
}

// NewRecorder creates a new memory journal recorder.
func NewRecorder(cfg RecorderConfig) (*Recorder, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Recorder{logger: cfg.Logger}, nil
}

// AddStep adds a single step to an operation.
func (r *Recorder) AddStep(ctx context.Context, operation, deviceID, name string) error {
	return r.AddSteps(ctx, operation, []journal.Step{{DeviceID: deviceID, Name: name}})
}

// AddSteps adds multiple steps to an operation in order.
func (r *Recorder) AddSteps(ctx context.Context, operation string, steps []journal.Step) error {
	if len(steps) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	maxSeq := 0
	for _, s := range r.steps {
		if s.Operation == operation && s.Sequence > maxSeq {
			maxSeq = s.Sequence
		}
	}

	now := time.Now().UTC()
	for i, step := range steps {
		r.steps = append(r.steps, journal.Step{
			ID:        ulid.Make().String(),
			DeviceID:  step.DeviceID,
			Operation: operation,
			Sequence:  maxSeq + i + 1,
			Name:      step.Name,
			Status:    journal.StatusPending,
			CreatedAt: now,
		})
	}

	r.logger.Debugf("Added %d steps for operation %s", len(steps), operation)
	return nil
}

// NextStep returns the next pending step for an operation, or nil if all done.
func (r *Recorder) NextStep(ctx context.Context, operation string) (*journal.Step, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var next *journal.Step
	for i := range r.steps {
		s := &r.steps[i]
		if s.Operation != operation || s.Status != journal.StatusPending {
			continue
		}
		if next == nil || s.Sequence < next.Sequence {
			next = s
		}
	}

	if next == nil {
		return nil, nil
	}

	stepCopy := *next
	return &stepCopy, nil
}

// CompleteStep marks a step as completed.
func (r *Recorder) CompleteStep(ctx context.Context, stepID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.steps {
		if r.steps[i].ID == stepID {
			r.steps[i].Status = journal.StatusDone
			r.logger.Debugf("Completed step: %s", stepID)
			return nil
		}
	}

	return fmt.Errorf("step %s not found", stepID)
}

// FailStep marks a step as failed with an error message.
func (r *Recorder) FailStep(ctx context.Context, stepID string, stepErr error) error {
	errMsg := ""
	if stepErr != nil {
		errMsg = stepErr.Error()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.steps {
		if r.steps[i].ID == stepID {
			r.steps[i].Status = journal.StatusFailed
			r.steps[i].Error = errMsg
			r.logger.Debugf("Failed step: %s (error: %s)", stepID, errMsg)
			return nil
		}
	}

	return fmt.Errorf("step %s not found", stepID)
}

// Progress returns the completion progress for an operation.
func (r *Recorder) Progress(ctx context.Context, operation string) (*journal.Progress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := journal.Progress{}
	for _, s := range r.steps {
		if s.Operation != operation {
			continue
		}
		p.Total++
		if s.Status == journal.StatusDone {
			p.Done++
		}
	}

	return &p, nil
}

// ListOperationSteps returns all steps of an operation in sequence order.
func (r *Recorder) ListOperationSteps(ctx context.Context, operation string) ([]journal.Step, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	steps := []journal.Step{}
	for _, s := range r.steps {
		if s.Operation == operation {
			steps = append(steps, s)
		}
	}

	// Steps are appended in sequence order per operation.
	return steps, nil
}

// HasPendingOperation checks if a device has any pending steps.
func (r *Recorder) HasPendingOperation(ctx context.Context, deviceID string) (operation string, hasPending bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.steps {
		if s.DeviceID == deviceID && s.Status == journal.StatusPending {
			return s.Operation, true, nil
		}
	}

	return "", false, nil
}

// ClearOperation removes all steps for an operation.
func (r *Recorder) ClearOperation(ctx context.Context, operation string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.steps[:0]
	cleared := 0
	for _, s := range r.steps {
		if s.Operation == operation {
			cleared++
			continue
		}
		kept = append(kept, s)
	}
	r.steps = kept

	r.logger.Debugf("Cleared %d steps for operation %s", cleared, operation)
	return nil
}
