package status_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/devcoord/devco/internal/app/status"
	"github.com/devcoord/devco/internal/journal"
	"github.com/devcoord/devco/internal/journal/journalmock"
	"github.com/devcoord/devco/internal/model"
	"github.com/devcoord/devco/internal/storage/storagemock"
)

func TestServiceRun(t *testing.T) {
	device := model.Device{ID: "01H9ZQ3NDEKTSV4RRFFQ69G5FA", Name: "sensor", State: model.DeviceStateSuspending}

	tests := map[string]struct {
		mocks     func(mr *storagemock.MockRepository, mj *journalmock.MockRecorder)
		req       status.Request
		expStatus *status.Status
		expErr    error
	}{
		"An idle device returns only its registry data.": {
			mocks: func(mr *storagemock.MockRepository, mj *journalmock.MockRecorder) {
				mr.On("GetDeviceByName", mock.Anything, "sensor").Once().Return(&device, nil)
				mj.On("HasPendingOperation", mock.Anything, device.ID).Once().Return("", false, nil)
			},
			req:       status.Request{NameOrID: "sensor"},
			expStatus: &status.Status{Device: device},
		},

		"A device with a pending operation includes progress and steps.": {
			mocks: func(mr *storagemock.MockRepository, mj *journalmock.MockRecorder) {
				mr.On("GetDeviceByName", mock.Anything, "sensor").Once().Return(&device, nil)
				mj.On("HasPendingOperation", mock.Anything, device.ID).Once().Return("suspend/1", true, nil)
				mj.On("Progress", mock.Anything, "suspend/1").Once().Return(&journal.Progress{Done: 1, Total: 3}, nil)
				mj.On("ListOperationSteps", mock.Anything, "suspend/1").Once().Return([]journal.Step{
					{ID: "s1", DeviceID: device.ID, Operation: "suspend/1", Sequence: 1, Status: journal.StatusDone},
				}, nil)
			},
			req: status.Request{NameOrID: "sensor"},
			expStatus: &status.Status{
				Device:           device,
				PendingOperation: "suspend/1",
				Progress:         &journal.Progress{Done: 1, Total: 3},
				Steps: []journal.Step{
					{ID: "s1", DeviceID: device.ID, Operation: "suspend/1", Sequence: 1, Status: journal.StatusDone},
				},
			},
		},

		"A ULID shaped query falls back to an ID lookup.": {
			mocks: func(mr *storagemock.MockRepository, mj *journalmock.MockRecorder) {
				mr.On("GetDeviceByName", mock.Anything, device.ID).Once().Return(nil, fmt.Errorf("device: %w", model.ErrNotFound))
				mr.On("GetDevice", mock.Anything, device.ID).Once().Return(&device, nil)
				mj.On("HasPendingOperation", mock.Anything, device.ID).Once().Return("", false, nil)
			},
			req:       status.Request{NameOrID: device.ID},
			expStatus: &status.Status{Device: device},
		},

		"An unknown device fails with not found.": {
			mocks: func(mr *storagemock.MockRepository, mj *journalmock.MockRecorder) {
				mr.On("GetDeviceByName", mock.Anything, "ghost").Once().Return(nil, fmt.Errorf("device: %w", model.ErrNotFound))
			},
			req:    status.Request{NameOrID: "ghost"},
			expErr: model.ErrNotFound,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			mr := &storagemock.MockRepository{}
			mj := &journalmock.MockRecorder{}
			test.mocks(mr, mj)

			svc, err := status.NewService(status.ServiceConfig{Repository: mr, Journal: mj})
			require.NoError(err)

			got, err := svc.Run(context.TODO(), test.req)

			if test.expErr != nil {
				assert.ErrorIs(err, test.expErr)
			} else {
				assert.NoError(err)
				assert.Equal(test.expStatus, got)
			}
			mr.AssertExpectations(t)
			mj.AssertExpectations(t)
		})
	}
}
