package storagemock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/devcoord/devco/internal/model"
)

// MockRepository is a mock implementation of storage.DeviceRepository.
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateDevice(ctx context.Context, d model.Device) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockRepository) GetDevice(ctx context.Context, id string) (*model.Device, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Device), args.Error(1)
}

func (m *MockRepository) GetDeviceByName(ctx context.Context, name string) (*model.Device, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Device), args.Error(1)
}

func (m *MockRepository) ListDevices(ctx context.Context) ([]model.Device, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Device), args.Error(1)
}

func (m *MockRepository) UpdateDevice(ctx context.Context, d model.Device) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockRepository) DeleteDevice(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
