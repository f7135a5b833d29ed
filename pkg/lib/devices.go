package lib

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/devcoord/devco/internal/app/list"
	"github.com/devcoord/devco/internal/app/load"
	"github.com/devcoord/devco/internal/app/status"
	storageio "github.com/devcoord/devco/internal/storage/io"
)

// LoadTree imports a device tree definition from a YAML file into the
// registry and returns the registered devices.
//
// The registry must be empty unless opts.Replace is set, otherwise
// [ErrAlreadyExists] is returned. Pass nil opts for defaults.
func (c *Client) LoadTree(ctx context.Context, path string, opts *LoadTreeOpts) ([]Device, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("could not resolve tree path: %w", err)
	}

	svc, err := load.NewService(load.ServiceConfig{
		Loader:     storageio.NewTreeYAMLRepository(os.DirFS(filepath.Dir(absPath))),
		Repository: c.repo,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	req := load.Request{Path: filepath.Base(absPath)}
	if opts != nil {
		req.Replace = opts.Replace
	}

	devices, err := svc.Run(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}

	return fromInternalDeviceList(devices), nil
}

// ListDevices returns the registered devices in load order.
// Pass nil opts to list all devices.
func (c *Client) ListDevices(ctx context.Context, opts *ListDevicesOpts) ([]Device, error) {
	svc, err := list.NewService(list.ServiceConfig{
		Repository: c.repo,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	devices, err := svc.Run(ctx, list.Request{StateFilter: toInternalStateFilter(opts)})
	if err != nil {
		return nil, mapError(err)
	}

	return fromInternalDeviceList(devices), nil
}

// DeviceStatus returns the detailed status of a device by name or ID,
// including the progress of any in-flight operation.
//
// Returns [ErrNotFound] if the device does not exist.
func (c *Client) DeviceStatus(ctx context.Context, nameOrID string) (*DeviceStatus, error) {
	svc, err := status.NewService(status.ServiceConfig{
		Repository: c.repo,
		Journal:    c.journal,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	st, err := svc.Run(ctx, status.Request{NameOrID: nameOrID})
	if err != nil {
		return nil, mapError(err)
	}

	return fromInternalStatus(st), nil
}
