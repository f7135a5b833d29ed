package suspend_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devcoord/devco/internal/app/suspend"
	"github.com/devcoord/devco/internal/dispatch"
	hostfake "github.com/devcoord/devco/internal/host/fake"
	"github.com/devcoord/devco/internal/journal"
	journalmemory "github.com/devcoord/devco/internal/journal/memory"
	"github.com/devcoord/devco/internal/model"
	storagememory "github.com/devcoord/devco/internal/storage/memory"
)

func testDevice(id, name, parentID string, state model.DeviceState) model.Device {
	d := model.Device{
		ID:        id,
		Name:      name,
		State:     state,
		Driver:    "gpio",
		ParentID:  parentID,
		HostID:    "h1",
		CreatedAt: time.Now().UTC(),
	}
	if state == model.DeviceStateSuspended {
		now := time.Now().UTC()
		d.SuspendedAt = &now
	}
	return d
}

type testEnv struct {
	repo    *storagememory.Repository
	journal *journalmemory.Recorder
	hosts   *hostfake.Engine
	svc     *suspend.Service
}

// newTestEnv seeds the registry and wires a fresh dispatcher into the fake
// host engine and the service, the same way the CLI commands do.
func newTestEnv(t *testing.T, devices []model.Device, failSuspend map[string]error) *testEnv {
	require := require.New(t)

	repo, err := storagememory.NewRepository(storagememory.RepositoryConfig{})
	require.NoError(err)
	for _, d := range devices {
		require.NoError(repo.CreateDevice(context.TODO(), d))
	}

	rec, err := journalmemory.NewRecorder(journalmemory.RecorderConfig{})
	require.NoError(err)

	d, err := dispatch.NewDispatcher(dispatch.DispatcherConfig{})
	require.NoError(err)

	hosts, err := hostfake.NewEngine(hostfake.EngineConfig{Dispatcher: d, FailSuspend: failSuspend})
	require.NoError(err)

	svc, err := suspend.NewService(suspend.ServiceConfig{
		Repository: repo,
		Journal:    rec,
		Hosts:      hosts,
		Dispatcher: d,
	})
	require.NoError(err)

	return &testEnv{repo: repo, journal: rec, hosts: hosts, svc: svc}
}

func (e *testEnv) deviceState(t *testing.T, id string) model.Device {
	d, err := e.repo.GetDevice(context.TODO(), id)
	require.NoError(t, err)
	return *d
}

func TestServiceRunSuspendsSubtree(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	env := newTestEnv(t, []model.Device{
		testDevice("1", "root", "", model.DeviceStateActive),
		testDevice("2", "mid", "1", model.DeviceStateActive),
		testDevice("3", "leaf", "2", model.DeviceStateActive),
	}, nil)

	report, err := env.svc.Run(context.Background(), suspend.Request{
		NameOrID: "root",
		Flag:     model.SuspendFlagSuspendToRAM,
	})
	require.NoError(err)

	assert.False(report.Failed())
	assert.Equal("suspend", report.Operation)
	assert.Equal("root", report.Target)
	assert.Len(report.Results, 3)

	// Children suspended before their parents.
	assert.Equal([]string{"3", "2", "1"}, env.hosts.SuspendedOrder())

	for _, id := range []string{"1", "2", "3"} {
		d := env.deviceState(t, id)
		assert.Equal(model.DeviceStateSuspended, d.State)
		assert.NotNil(d.SuspendedAt)
	}

	// Every journal step settled.
	steps, err := env.journal.ListOperationSteps(context.TODO(), "suspend/1")
	require.NoError(err)
	require.Len(steps, 3)
	assert.Equal("suspend leaf", steps[0].Name)
	assert.Equal("suspend mid", steps[1].Name)
	assert.Equal("suspend root", steps[2].Name)
	for _, s := range steps {
		assert.Equal(journal.StatusDone, s.Status)
	}

	_, pending, err := env.journal.HasPendingOperation(context.TODO(), "1")
	require.NoError(err)
	assert.False(pending)
}

func TestServiceRunSkipsDevicesNeedingNoAction(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	env := newTestEnv(t, []model.Device{
		testDevice("1", "root", "", model.DeviceStateActive),
		testDevice("2", "done", "1", model.DeviceStateSuspended),
		testDevice("3", "gone", "1", model.DeviceStateDead),
		testDevice("4", "active", "1", model.DeviceStateActive),
	}, nil)

	report, err := env.svc.Run(context.Background(), suspend.Request{
		NameOrID: "root",
		Flag:     model.SuspendFlagSuspendToRAM,
	})
	require.NoError(err)

	assert.False(report.Failed())
	assert.Equal([]string{"4", "1"}, env.hosts.SuspendedOrder())

	skipped := map[string]bool{}
	for _, r := range report.Results {
		if r.Skipped {
			skipped[r.DeviceName] = true
		}
	}
	assert.Equal(map[string]bool{"done": true, "gone": true}, skipped)

	// Skipped devices got no journal steps and kept their state.
	steps, err := env.journal.ListOperationSteps(context.TODO(), "suspend/1")
	require.NoError(err)
	assert.Len(steps, 2)
	assert.Equal(model.DeviceStateDead, env.deviceState(t, "3").State)
}

func TestServiceRunFailureFailsFastAndRecordsIt(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	env := newTestEnv(t, []model.Device{
		testDevice("1", "root", "", model.DeviceStateActive),
		testDevice("2", "mid", "1", model.DeviceStateActive),
		testDevice("3", "leaf", "2", model.DeviceStateActive),
	}, map[string]error{"3": fmt.Errorf("driver rejected suspend")})

	report, err := env.svc.Run(context.Background(), suspend.Request{
		NameOrID: "root",
		Flag:     model.SuspendFlagSuspendToRAM,
	})
	require.NoError(err)

	assert.True(report.Failed())
	assert.Contains(report.Err, "driver rejected suspend")

	// Nothing actually suspended and every device went back to active.
	assert.Empty(env.hosts.SuspendedOrder())
	for _, id := range []string{"1", "2", "3"} {
		assert.Equal(model.DeviceStateActive, env.deviceState(t, id).State)
	}

	// The failure cascaded through the journal.
	steps, err := env.journal.ListOperationSteps(context.TODO(), "suspend/1")
	require.NoError(err)
	require.Len(steps, 3)
	for _, s := range steps {
		assert.Equal(journal.StatusFailed, s.Status)
		assert.Contains(s.Error, "driver rejected suspend")
	}
}

func TestServiceRunRequestErrors(t *testing.T) {
	tests := map[string]struct {
		devices []model.Device
		req     suspend.Request
		expErr  error
	}{
		"An unknown device fails with not found.": {
			devices: []model.Device{testDevice("1", "root", "", model.DeviceStateActive)},
			req:     suspend.Request{NameOrID: "ghost", Flag: model.SuspendFlagSuspendToRAM},
			expErr:  model.ErrNotFound,
		},

		"An already suspended device cannot be suspended again.": {
			devices: []model.Device{testDevice("1", "root", "", model.DeviceStateSuspended)},
			req:     suspend.Request{NameOrID: "root", Flag: model.SuspendFlagSuspendToRAM},
			expErr:  model.ErrNotValid,
		},

		"A dead device cannot be suspended.": {
			devices: []model.Device{testDevice("1", "root", "", model.DeviceStateDead)},
			req:     suspend.Request{NameOrID: "root", Flag: model.SuspendFlagSuspendToRAM},
			expErr:  model.ErrNotValid,
		},

		"An unknown suspend flag fails.": {
			devices: []model.Device{testDevice("1", "root", "", model.DeviceStateActive)},
			req:     suspend.Request{NameOrID: "root", Flag: model.SuspendFlag("hibernate")},
			expErr:  model.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t, test.devices, nil)

			_, err := env.svc.Run(context.Background(), test.req)

			assert.ErrorIs(t, err, test.expErr)
		})
	}
}
