package lib_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devcoord/devco/pkg/lib"
)

const testTree = `
root:
  name: board
  driver: board
  host: h1
  children:
    - name: sensor
      driver: i2c
      host: h1
    - name: led
      driver: gpio
      host: h1
`

func newTestClient(t *testing.T) *lib.Client {
	require := require.New(t)

	client, err := lib.New(context.Background(), lib.Config{
		DBPath: filepath.Join(t.TempDir(), "test.db"),
		Hosts:  lib.HostsFake,
	})
	require.NoError(err)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func writeTree(t *testing.T, yaml string) string {
	path := filepath.Join(t.TempDir(), "tree.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	return path
}

func TestClientLoadTree(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	client := newTestClient(t)
	path := writeTree(t, testTree)

	devices, err := client.LoadTree(context.Background(), path, nil)
	require.NoError(err)
	require.Len(devices, 3)
	assert.Equal("board", devices[0].Name)
	assert.Equal(lib.DeviceStateActive, devices[0].State)

	// Loading again without replace fails.
	_, err = client.LoadTree(context.Background(), path, nil)
	assert.ErrorIs(err, lib.ErrAlreadyExists)

	// Replace wipes the previous registry.
	devices, err = client.LoadTree(context.Background(), path, &lib.LoadTreeOpts{Replace: true})
	require.NoError(err)
	assert.Len(devices, 3)
}

func TestClientListDevices(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	client := newTestClient(t)
	path := writeTree(t, testTree)

	_, err := client.LoadTree(context.Background(), path, nil)
	require.NoError(err)

	devices, err := client.ListDevices(context.Background(), nil)
	require.NoError(err)
	assert.Len(devices, 3)

	state := lib.DeviceStateSuspended
	devices, err = client.ListDevices(context.Background(), &lib.ListDevicesOpts{State: &state})
	require.NoError(err)
	assert.Empty(devices)
}

func TestClientSuspendResumeLifecycle(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	client := newTestClient(t)
	path := writeTree(t, testTree)

	_, err := client.LoadTree(context.Background(), path, nil)
	require.NoError(err)

	report, err := client.Suspend(context.Background(), "board", nil)
	require.NoError(err)
	assert.False(report.Failed())
	assert.Equal("suspend", report.Operation)
	assert.Len(report.Results, 3)

	devices, err := client.ListDevices(context.Background(), nil)
	require.NoError(err)
	for _, d := range devices {
		assert.Equal(lib.DeviceStateSuspended, d.State)
		assert.NotNil(d.SuspendedAt)
	}

	// Suspending again is invalid.
	_, err = client.Suspend(context.Background(), "board", nil)
	assert.ErrorIs(err, lib.ErrNotValid)

	// Resuming a leaf wakes the whole ancestor chain.
	report, err = client.Resume(context.Background(), "sensor")
	require.NoError(err)
	assert.False(report.Failed())
	assert.Equal("resume", report.Operation)

	st, err := client.DeviceStatus(context.Background(), "sensor")
	require.NoError(err)
	assert.Equal(lib.DeviceStateActive, st.Device.State)
	assert.Empty(st.PendingOperation)
}

func TestClientErrors(t *testing.T) {
	tests := map[string]struct {
		run   func(client *lib.Client) error
		expIs error
	}{
		"Suspending an unknown device fails with not found.": {
			run: func(client *lib.Client) error {
				_, err := client.Suspend(context.Background(), "ghost", nil)
				return err
			},
			expIs: lib.ErrNotFound,
		},

		"Resuming an unknown device fails with not found.": {
			run: func(client *lib.Client) error {
				_, err := client.Resume(context.Background(), "ghost")
				return err
			},
			expIs: lib.ErrNotFound,
		},

		"Status of an unknown device fails with not found.": {
			run: func(client *lib.Client) error {
				_, err := client.DeviceStatus(context.Background(), "ghost")
				return err
			},
			expIs: lib.ErrNotFound,
		},

		"Suspending with an unknown flag fails with not valid.": {
			run: func(client *lib.Client) error {
				_, err := client.Suspend(context.Background(), "board", &lib.SuspendOpts{Flag: lib.SuspendFlag("hibernate")})
				return err
			},
			expIs: lib.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t)

			path := writeTree(t, testTree)
			_, err := client.LoadTree(context.Background(), path, nil)
			require.NoError(t, err)

			err = test.run(client)

			assert.ErrorIs(t, err, test.expIs)
		})
	}
}
