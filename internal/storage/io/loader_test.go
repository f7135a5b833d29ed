package io_test

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devcoord/devco/internal/model"
	storageio "github.com/devcoord/devco/internal/storage/io"
)

func fsWithTree(yaml string) fstest.MapFS {
	return fstest.MapFS{
		"tree.yaml": &fstest.MapFile{Data: []byte(yaml)},
	}
}

func TestGetTreeFlattensDevices(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	repo := storageio.NewTreeYAMLRepository(fsWithTree(`
root:
  name: board
  driver: board
  host: h1
  proxy:
    name: board-proxy
    driver: i2c
    host: h1
  children:
    - name: sensor
      driver: i2c
      host: h1
      state: suspended
    - name: led
      driver: gpio
`))

	devices, err := repo.GetTree(context.TODO(), "tree.yaml")
	require.NoError(err)
	require.Len(devices, 4)

	byName := map[string]model.Device{}
	for _, d := range devices {
		assert.NotEmpty(d.ID)
		byName[d.Name] = d
	}

	board := byName["board"]
	assert.Equal(model.DeviceStateActive, board.State)
	assert.Equal("h1", board.HostID)
	assert.Empty(board.ParentID)
	assert.Equal(byName["board-proxy"].ID, board.ProxyID)

	// The proxy hangs off its owner, not a parent.
	assert.Empty(byName["board-proxy"].ParentID)

	sensor := byName["sensor"]
	assert.Equal(board.ID, sensor.ParentID)
	assert.Equal(model.DeviceStateSuspended, sensor.State)
	assert.NotNil(sensor.SuspendedAt)

	led := byName["led"]
	assert.Equal(board.ID, led.ParentID)
	assert.Equal(model.DeviceStateActive, led.State)
	assert.Nil(led.SuspendedAt)

	// The root comes first so the registry can be replayed in order.
	assert.Equal("board", devices[0].Name)
}

func TestGetTreeErrors(t *testing.T) {
	tests := map[string]struct {
		yaml   string
		path   string
		expErr string
	}{
		"A missing file fails.": {
			yaml:   `root: {name: board, driver: board}`,
			path:   "missing.yaml",
			expErr: "reading tree file",
		},

		"Broken YAML fails.": {
			yaml:   `root: [`,
			path:   "tree.yaml",
			expErr: "parsing YAML",
		},

		"A device without a name fails.": {
			yaml: `
root:
  name: board
  driver: board
  children:
    - driver: gpio
`,
			path:   "tree.yaml",
			expErr: "name is required",
		},

		"Duplicated device names fail.": {
			yaml: `
root:
  name: board
  driver: board
  children:
    - name: board
      driver: gpio
`,
			path:   "tree.yaml",
			expErr: "duplicated device name",
		},

		"A transitional state cannot be loaded.": {
			yaml: `
root:
  name: board
  driver: board
  state: suspending
`,
			path:   "tree.yaml",
			expErr: "invalid state",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			repo := storageio.NewTreeYAMLRepository(fsWithTree(test.yaml))

			_, err := repo.GetTree(context.TODO(), test.path)

			require.Error(t, err)
			assert.Contains(t, err.Error(), test.expErr)
		})
	}
}
