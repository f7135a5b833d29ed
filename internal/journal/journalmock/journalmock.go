package journalmock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/devcoord/devco/internal/journal"
)

// MockRecorder is a mock implementation of journal.Recorder.
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) AddStep(ctx context.Context, operation, deviceID, name string) error {
	args := m.Called(ctx, operation, deviceID, name)
	return args.Error(0)
}

func (m *MockRecorder) AddSteps(ctx context.Context, operation string, steps []journal.Step) error {
	args := m.Called(ctx, operation, steps)
	return args.Error(0)
}

func (m *MockRecorder) NextStep(ctx context.Context, operation string) (*journal.Step, error) {
	args := m.Called(ctx, operation)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*journal.Step), args.Error(1)
}

func (m *MockRecorder) CompleteStep(ctx context.Context, stepID string) error {
	args := m.Called(ctx, stepID)
	return args.Error(0)
}

func (m *MockRecorder) FailStep(ctx context.Context, stepID string, err error) error {
	args := m.Called(ctx, stepID, err)
	return args.Error(0)
}

func (m *MockRecorder) Progress(ctx context.Context, operation string) (*journal.Progress, error) {
	args := m.Called(ctx, operation)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*journal.Progress), args.Error(1)
}

func (m *MockRecorder) ListOperationSteps(ctx context.Context, operation string) ([]journal.Step, error) {
	args := m.Called(ctx, operation)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]journal.Step), args.Error(1)
}

func (m *MockRecorder) HasPendingOperation(ctx context.Context, deviceID string) (string, bool, error) {
	args := m.Called(ctx, deviceID)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockRecorder) ClearOperation(ctx context.Context, operation string) error {
	args := m.Called(ctx, operation)
	return args.Error(0)
}
