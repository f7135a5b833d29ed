package dispatch_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devcoord/devco/internal/dispatch"
)

func TestDispatcherFIFO(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	d, err := dispatch.NewDispatcher(dispatch.DispatcherConfig{})
	require.NoError(err)

	got := []int{}
	for i := 0; i < 5; i++ {
		i := i
		require.NoError(d.Post(func() { got = append(got, i) }))
	}

	assert.Equal(5, d.Pending())
	d.RunUntilIdle()

	assert.Equal([]int{0, 1, 2, 3, 4}, got)
	assert.Equal(0, d.Pending())
}

func TestDispatcherNestedPostsRunAfterQueued(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	d, err := dispatch.NewDispatcher(dispatch.DispatcherConfig{})
	require.NoError(err)

	got := []string{}
	require.NoError(d.Post(func() {
		got = append(got, "first")
		require.NoError(d.Post(func() { got = append(got, "nested") }))
	}))
	require.NoError(d.Post(func() { got = append(got, "second") }))

	d.RunUntilIdle()

	// The nested post goes behind everything already queued.
	assert.Equal([]string{"first", "second", "nested"}, got)
}

func TestDispatcherRunStopsOnContextCancel(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	d, err := dispatch.NewDispatcher(dispatch.DispatcherConfig{})
	require.NoError(err)

	ctx, cancel := context.WithCancel(context.Background())

	ran := false
	require.NoError(d.Post(func() {
		ran = true
		cancel()
	}))

	done := make(chan error)
	go func() { done <- d.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(err)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop on context cancellation")
	}

	assert.True(ran)

	// Once stopped, posting fails.
	err = d.Post(func() {})
	assert.ErrorIs(err, dispatch.ErrStopped)
}
