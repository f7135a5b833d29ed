package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/devcoord/devco/internal/log"
	"github.com/devcoord/devco/internal/model"
)

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})
	return nil
}

// Repository is an in-memory implementation of storage.DeviceRepository.
type Repository struct {
	devices map[string]model.Device
	order   []string
	mu      sync.RWMutex
	logger  log.Logger
}

// NewRepository creates a new memory repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		devices: make(map[string]model.Device),
		logger:  cfg.Logger,
	}, nil
}

// CreateDevice creates a new device in the repository.
func (r *Repository) CreateDevice(ctx context.Context, d model.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := d.Validate(); err != nil {
		return fmt.Errorf("invalid device: %w", err)
	}

	// Check if ID already exists.
	if _, ok := r.devices[d.ID]; ok {
		return fmt.Errorf("device with id %s: %w", d.ID, model.ErrAlreadyExists)
	}

	// Check if name already exists.
	for _, existing := range r.devices {
		if existing.Name == d.Name {
			return fmt.Errorf("device with name %s: %w", d.Name, model.ErrAlreadyExists)
		}
	}

	r.devices[d.ID] = d
	r.order = append(r.order, d.ID)
	r.logger.Debugf("Created device in repository: %s", d.ID)

	return nil
}

// GetDevice retrieves a device by ID.
func (r *Repository) GetDevice(ctx context.Context, id string) (*model.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	device, ok := r.devices[id]
	if !ok {
		return nil, fmt.Errorf("device %s: %w", id, model.ErrNotFound)
	}

	// Return a copy.
	deviceCopy := device
	return &deviceCopy, nil
}

// GetDeviceByName retrieves a device by name.
func (r *Repository) GetDeviceByName(ctx context.Context, name string) (*model.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, device := range r.devices {
		if device.Name == name {
			deviceCopy := device
			return &deviceCopy, nil
		}
	}

	return nil, fmt.Errorf("device with name %s: %w", name, model.ErrNotFound)
}

// ListDevices returns all devices in creation order.
func (r *Repository) ListDevices(ctx context.Context) ([]model.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]model.Device, 0, len(r.order))
	for _, id := range r.order {
		devices = append(devices, r.devices[id])
	}

	return devices, nil
}

// UpdateDevice updates an existing device.
func (r *Repository) UpdateDevice(ctx context.Context, d model.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[d.ID]; !ok {
		return fmt.Errorf("device %s: %w", d.ID, model.ErrNotFound)
	}

	r.devices[d.ID] = d
	r.logger.Debugf("Updated device in repository: %s", d.ID)

	return nil
}

// DeleteDevice deletes a device.
func (r *Repository) DeleteDevice(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[id]; !ok {
		return fmt.Errorf("device %s: %w", id, model.ErrNotFound)
	}

	delete(r.devices, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.logger.Debugf("Deleted device from repository: %s", id)

	return nil
}
