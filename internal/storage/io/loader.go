package io

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"

	"github.com/devcoord/devco/internal/model"
)

// TreeYAMLRepository loads device tree definitions from YAML files.
type TreeYAMLRepository struct {
	fs fs.FS
}

// NewTreeYAMLRepository creates a new YAML tree repository.
func NewTreeYAMLRepository(filesystem fs.FS) *TreeYAMLRepository {
	return &TreeYAMLRepository{fs: filesystem}
}

// GetTree loads a device tree from a YAML file and returns the validated
// devices in depth-first order, root first. Every device gets a fresh ID.
func (r *TreeYAMLRepository) GetTree(ctx context.Context, path string) ([]model.Device, error) {
	data, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading tree file: %w", err)
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var cfg TreeConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid tree definition: %w", err)
	}

	return cfg.toModel(), nil
}

// TreeConfig represents the YAML structure for a device tree definition.
type TreeConfig struct {
	Root DeviceConfig `yaml:"root"`
}

// DeviceConfig represents the YAML structure for a single device.
type DeviceConfig struct {
	Name     string         `yaml:"name"`
	Driver   string         `yaml:"driver"`
	Host     string         `yaml:"host,omitempty"`
	State    string         `yaml:"state,omitempty"`
	Proxy    *DeviceConfig  `yaml:"proxy,omitempty"`
	Children []DeviceConfig `yaml:"children,omitempty"`
}

func (c TreeConfig) validate() error {
	names := map[string]bool{}
	if err := c.Root.validate(names); err != nil {
		return err
	}
	return nil
}

func (c DeviceConfig) validate(names map[string]bool) error {
	if c.Name == "" {
		return fmt.Errorf("device name is required")
	}
	if names[c.Name] {
		return fmt.Errorf("duplicated device name: %s", c.Name)
	}
	names[c.Name] = true

	if c.State != "" {
		switch model.DeviceState(c.State) {
		case model.DeviceStateActive, model.DeviceStateSuspended, model.DeviceStateDead:
			// Loadable states only, transitional ones can't be persisted.
		default:
			return fmt.Errorf("device %s: invalid state: %s", c.Name, c.State)
		}
	}

	if c.Proxy != nil {
		if err := c.Proxy.validate(names); err != nil {
			return fmt.Errorf("device %s proxy: %w", c.Name, err)
		}
	}

	for _, child := range c.Children {
		if err := child.validate(names); err != nil {
			return err
		}
	}

	return nil
}

func (c TreeConfig) toModel() []model.Device {
	out := []model.Device{}
	c.Root.appendModel(&out, "")
	return out
}

// appendModel flattens the device and its subtree into out, assigning IDs and
// wiring parent and proxy references. Returns the device's own ID.
func (c DeviceConfig) appendModel(out *[]model.Device, parentID string) string {
	state := model.DeviceState(c.State)
	if state == "" {
		state = model.DeviceStateActive
	}

	d := model.Device{
		ID:        ulid.Make().String(),
		Name:      c.Name,
		State:     state,
		Driver:    c.Driver,
		ParentID:  parentID,
		HostID:    c.Host,
		CreatedAt: time.Now().UTC(),
	}
	if state == model.DeviceStateSuspended {
		now := time.Now().UTC()
		d.SuspendedAt = &now
	}

	idx := len(*out)
	*out = append(*out, d)

	if c.Proxy != nil {
		proxyID := c.Proxy.appendModel(out, "")
		(*out)[idx].ProxyID = proxyID
	}

	for _, child := range c.Children {
		child.appendModel(out, d.ID)
	}

	return d.ID
}
