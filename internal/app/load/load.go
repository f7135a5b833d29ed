package load

import (
	"context"
	"fmt"

	"github.com/devcoord/devco/internal/log"
	"github.com/devcoord/devco/internal/model"
	"github.com/devcoord/devco/internal/storage"
)

// TreeLoader loads a device tree definition from a file.
type TreeLoader interface {
	GetTree(ctx context.Context, path string) ([]model.Device, error)
}

// ServiceConfig is the configuration for the load service.
type ServiceConfig struct {
	Loader     TreeLoader
	Repository storage.DeviceRepository
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Loader == nil {
		return fmt.Errorf("loader is required")
	}
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Load"})
	return nil
}

// Service imports a device tree definition into the registry.
type Service struct {
	loader TreeLoader
	repo   storage.DeviceRepository
	logger log.Logger
}

// NewService creates a new load service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		loader: cfg.Loader,
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Request represents the load request parameters.
type Request struct {
	// Path is the tree definition file to import.
	Path string
	// Replace removes any previously registered devices before importing.
	Replace bool
}

// Run imports the device tree at the given path into the registry.
// The registry must be empty unless Replace is set.
func (s *Service) Run(ctx context.Context, req Request) ([]model.Device, error) {
	s.logger.Debugf("loading device tree from: %s", req.Path)

	devices, err := s.loader.GetTree(ctx, req.Path)
	if err != nil {
		return nil, fmt.Errorf("could not load tree definition: %w", err)
	}

	existing, err := s.repo.ListDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list registered devices: %w", err)
	}

	if len(existing) > 0 {
		if !req.Replace {
			return nil, fmt.Errorf("registry already has %d devices, use replace to overwrite: %w", len(existing), model.ErrAlreadyExists)
		}
		for _, d := range existing {
			if err := s.repo.DeleteDevice(ctx, d.ID); err != nil {
				return nil, fmt.Errorf("could not remove device %s: %w", d.Name, err)
			}
		}
		s.logger.Debugf("removed %d previously registered devices", len(existing))
	}

	for _, d := range devices {
		if err := s.repo.CreateDevice(ctx, d); err != nil {
			return nil, fmt.Errorf("could not register device %s: %w", d.Name, err)
		}
	}

	s.logger.Infof("Loaded %d devices from %s", len(devices), req.Path)
	return devices, nil
}
