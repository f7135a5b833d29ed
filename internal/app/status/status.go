package status

import (
	"context"
	"errors"
	"fmt"

	"github.com/devcoord/devco/internal/journal"
	"github.com/devcoord/devco/internal/log"
	"github.com/devcoord/devco/internal/model"
	"github.com/devcoord/devco/internal/storage"
)

// ServiceConfig is the configuration for the status service.
type ServiceConfig struct {
	Repository storage.DeviceRepository
	Journal    journal.Recorder
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.Journal == nil {
		return fmt.Errorf("journal is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Service retrieves detailed device status.
type Service struct {
	repo    storage.DeviceRepository
	journal journal.Recorder
	logger  log.Logger
}

// NewService creates a new status service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:    cfg.Repository,
		journal: cfg.Journal,
		logger:  cfg.Logger,
	}, nil
}

// Request represents the status request parameters.
type Request struct {
	// NameOrID is the device name or ID to query.
	NameOrID string
}

// Status is the detailed state of a device, including any in-flight
// operation recorded in the journal.
type Status struct {
	Device model.Device
	// PendingOperation is the journal operation with pending steps that
	// references this device, empty when there is none.
	PendingOperation string
	Progress         *journal.Progress
	Steps            []journal.Step
}

// Run retrieves the status of a device by name or ID.
// It tries name lookup first, then ID lookup if the input looks like a ULID.
func (s *Service) Run(ctx context.Context, req Request) (*Status, error) {
	s.logger.Debugf("getting status for device: %s", req.NameOrID)

	device, err := s.repo.GetDeviceByName(ctx, req.NameOrID)
	if errors.Is(err, model.ErrNotFound) && looksLikeULID(req.NameOrID) {
		s.logger.Debugf("name lookup failed, trying ID lookup")
		device, err = s.repo.GetDevice(ctx, req.NameOrID)
	}
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("device not found: %s: %w", req.NameOrID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not get device status: %w", err)
	}

	st := &Status{Device: *device}

	operation, hasPending, err := s.journal.HasPendingOperation(ctx, device.ID)
	if err != nil {
		return nil, fmt.Errorf("could not check pending operations: %w", err)
	}
	if hasPending {
		st.PendingOperation = operation

		progress, err := s.journal.Progress(ctx, operation)
		if err != nil {
			return nil, fmt.Errorf("could not get operation progress: %w", err)
		}
		st.Progress = progress

		steps, err := s.journal.ListOperationSteps(ctx, operation)
		if err != nil {
			return nil, fmt.Errorf("could not list operation steps: %w", err)
		}
		st.Steps = steps
	}

	return st, nil
}

// looksLikeULID checks if a string looks like a ULID (26 characters, alphanumeric uppercase).
func looksLikeULID(s string) bool {
	if len(s) != 26 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}
