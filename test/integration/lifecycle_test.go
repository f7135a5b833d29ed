package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devcoord/devco/test/integration/testutils"
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

func buildTestBinary(t *testing.T) string {
	binary := filepath.Join(t.TempDir(), "devco-test")
	buildCmd := exec.Command("go", "build", "-o", binary, "../../cmd/devco")
	out, err := buildCmd.CombinedOutput()
	require.NoError(t, err, string(out))
	return binary
}

func writeTree(t *testing.T, yaml string) string {
	path := filepath.Join(t.TempDir(), "tree.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	return path
}

func runDevco(t *testing.T, binary, dbPath, cmdArgs string) (string, string, error) {
	env := []string{fmt.Sprintf("DEVCO_DB_PATH=%s", dbPath)}
	stdout, stderr, err := testutils.RunDevco(context.Background(), env, binary, cmdArgs, true)
	t.Logf("devco %s\nstdout: %s\nstderr: %s", cmdArgs, stdout, stderr)
	return string(stdout), string(stderr), err
}

func TestLifecycle(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	binary := buildTestBinary(t)
	dbPath := filepath.Join(t.TempDir(), "test.db")
	treePath := writeTree(t, testTree)

	// Load the tree.
	_, _, err := runDevco(t, binary, dbPath, "load "+treePath)
	require.NoError(err)

	// Every device shows up active.
	stdout, _, err := runDevco(t, binary, dbPath, "list")
	require.NoError(err)
	for _, name := range []string{"board", "sensor", "led"} {
		assert.Contains(stdout, name)
	}
	assert.Contains(stdout, "active")

	// Loading again without replace fails.
	_, stderr, err := runDevco(t, binary, dbPath, "load "+treePath)
	require.Error(err)
	assert.Contains(stderr, "replace")

	// Suspend the whole tree.
	stdout, _, err = runDevco(t, binary, dbPath, "suspend board")
	require.NoError(err)
	assert.Contains(stdout, "succeeded")

	stdout, _, err = runDevco(t, binary, dbPath, "list --state suspended")
	require.NoError(err)
	for _, name := range []string{"board", "sensor", "led"} {
		assert.Contains(stdout, name)
	}

	// Suspending again fails.
	_, _, err = runDevco(t, binary, dbPath, "suspend board")
	require.Error(err)

	// Resume a leaf: the ancestor chain wakes up with it.
	stdout, _, err = runDevco(t, binary, dbPath, "resume sensor")
	require.NoError(err)
	assert.Contains(stdout, "succeeded")

	stdout, _, err = runDevco(t, binary, dbPath, "status sensor")
	require.NoError(err)
	assert.Contains(stdout, "active")

	// The led sibling stays suspended.
	stdout, _, err = runDevco(t, binary, dbPath, "status led")
	require.NoError(err)
	assert.Contains(stdout, "suspended")
}

func TestListJSONFormat(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	binary := buildTestBinary(t)
	dbPath := filepath.Join(t.TempDir(), "test.db")
	treePath := writeTree(t, testTree)

	_, _, err := runDevco(t, binary, dbPath, "load "+treePath)
	require.NoError(err)

	stdout, _, err := runDevco(t, binary, dbPath, "list --format json")
	require.NoError(err)

	var devices []map[string]interface{}
	require.NoError(json.Unmarshal([]byte(stdout), &devices))
	require.Len(devices, 3)
	assert.Equal("board", devices[0]["name"])
	assert.Equal("active", devices[0]["state"])
	assert.NotEmpty(devices[0]["id"])
}

func TestSuspendUnknownDevice(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	binary := buildTestBinary(t)
	dbPath := filepath.Join(t.TempDir(), "test.db")
	treePath := writeTree(t, testTree)

	_, _, err := runDevco(t, binary, dbPath, "load "+treePath)
	require.NoError(err)

	_, stderr, err := runDevco(t, binary, dbPath, "suspend ghost")
	require.Error(err)
	assert.True(strings.Contains(stderr, "not found"))
}
