package list

import (
	"context"
	"fmt"

	"github.com/devcoord/devco/internal/log"
	"github.com/devcoord/devco/internal/model"
	"github.com/devcoord/devco/internal/storage"
)

// ServiceConfig is the configuration for the list service.
type ServiceConfig struct {
	Repository storage.DeviceRepository
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Service lists devices with optional filtering.
type Service struct {
	repo   storage.DeviceRepository
	logger log.Logger
}

// NewService creates a new list service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Request represents the list request parameters.
type Request struct {
	// StateFilter is an optional filter to only show devices in this state.
	StateFilter *model.DeviceState
}

// Run lists all devices, optionally filtered by state.
func (s *Service) Run(ctx context.Context, req Request) ([]model.Device, error) {
	s.logger.Debugf("listing devices with filter: %v", req.StateFilter)

	devices, err := s.repo.ListDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list devices: %w", err)
	}

	if req.StateFilter != nil {
		filtered := make([]model.Device, 0, len(devices))
		for _, d := range devices {
			if d.State == *req.StateFilter {
				filtered = append(filtered, d)
			}
		}
		devices = filtered
	}

	s.logger.Debugf("found %d devices", len(devices))
	return devices, nil
}
