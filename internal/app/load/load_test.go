package load_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/devcoord/devco/internal/app/load"
	"github.com/devcoord/devco/internal/model"
	"github.com/devcoord/devco/internal/storage/storagemock"
)

type mockLoader struct {
	mock.Mock
}

func (m *mockLoader) GetTree(ctx context.Context, path string) ([]model.Device, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Device), args.Error(1)
}

func TestServiceRun(t *testing.T) {
	tree := []model.Device{
		{ID: "1", Name: "board", State: model.DeviceStateActive},
		{ID: "2", Name: "sensor", State: model.DeviceStateActive, ParentID: "1"},
	}

	tests := map[string]struct {
		mocks   func(ml *mockLoader, mr *storagemock.MockRepository)
		req     load.Request
		expDevs []model.Device
		expErr  error
	}{
		"Loading into an empty registry registers every device.": {
			mocks: func(ml *mockLoader, mr *storagemock.MockRepository) {
				ml.On("GetTree", mock.Anything, "tree.yaml").Once().Return(tree, nil)
				mr.On("ListDevices", mock.Anything).Once().Return([]model.Device{}, nil)
				mr.On("CreateDevice", mock.Anything, tree[0]).Once().Return(nil)
				mr.On("CreateDevice", mock.Anything, tree[1]).Once().Return(nil)
			},
			req:     load.Request{Path: "tree.yaml"},
			expDevs: tree,
		},

		"Loading into a populated registry without replace fails.": {
			mocks: func(ml *mockLoader, mr *storagemock.MockRepository) {
				ml.On("GetTree", mock.Anything, "tree.yaml").Once().Return(tree, nil)
				mr.On("ListDevices", mock.Anything).Once().Return([]model.Device{{ID: "9", Name: "old"}}, nil)
			},
			req:    load.Request{Path: "tree.yaml"},
			expErr: model.ErrAlreadyExists,
		},

		"Loading with replace removes the previous registry first.": {
			mocks: func(ml *mockLoader, mr *storagemock.MockRepository) {
				ml.On("GetTree", mock.Anything, "tree.yaml").Once().Return(tree, nil)
				mr.On("ListDevices", mock.Anything).Once().Return([]model.Device{{ID: "9", Name: "old"}}, nil)
				mr.On("DeleteDevice", mock.Anything, "9").Once().Return(nil)
				mr.On("CreateDevice", mock.Anything, tree[0]).Once().Return(nil)
				mr.On("CreateDevice", mock.Anything, tree[1]).Once().Return(nil)
			},
			req:     load.Request{Path: "tree.yaml", Replace: true},
			expDevs: tree,
		},

		"A broken tree definition fails.": {
			mocks: func(ml *mockLoader, mr *storagemock.MockRepository) {
				ml.On("GetTree", mock.Anything, "tree.yaml").Once().Return(nil, fmt.Errorf("bad yaml: %w", model.ErrNotValid))
			},
			req:    load.Request{Path: "tree.yaml"},
			expErr: model.ErrNotValid,
		},

		"A registration failure stops the import.": {
			mocks: func(ml *mockLoader, mr *storagemock.MockRepository) {
				ml.On("GetTree", mock.Anything, "tree.yaml").Once().Return(tree, nil)
				mr.On("ListDevices", mock.Anything).Once().Return([]model.Device{}, nil)
				mr.On("CreateDevice", mock.Anything, tree[0]).Once().Return(fmt.Errorf("device: %w", model.ErrAlreadyExists))
			},
			req:    load.Request{Path: "tree.yaml"},
			expErr: model.ErrAlreadyExists,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			ml := &mockLoader{}
			mr := &storagemock.MockRepository{}
			test.mocks(ml, mr)

			svc, err := load.NewService(load.ServiceConfig{Loader: ml, Repository: mr})
			require.NoError(err)

			got, err := svc.Run(context.TODO(), test.req)

			if test.expErr != nil {
				assert.ErrorIs(err, test.expErr)
			} else {
				assert.NoError(err)
				assert.Equal(test.expDevs, got)
			}
			ml.AssertExpectations(t)
			mr.AssertExpectations(t)
		})
	}
}
