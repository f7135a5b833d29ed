package storage

import (
	"context"

	"github.com/devcoord/devco/internal/model"
)

// DeviceRepository is the interface for device registry persistence.
type DeviceRepository interface {
	CreateDevice(ctx context.Context, d model.Device) error
	GetDevice(ctx context.Context, id string) (*model.Device, error)
	GetDeviceByName(ctx context.Context, name string) (*model.Device, error)
	ListDevices(ctx context.Context) ([]model.Device, error)
	UpdateDevice(ctx context.Context, d model.Device) error
	DeleteDevice(ctx context.Context, id string) error
}
