package commands

import (
	"fmt"

	"github.com/devcoord/devco/internal/dispatch"
	"github.com/devcoord/devco/internal/host"
	"github.com/devcoord/devco/internal/host/docker"
	"github.com/devcoord/devco/internal/host/fake"
)

// newHostEngine creates the driver host engine selected by the global --hosts
// flag, delivering completions through the given dispatcher.
func newHostEngine(rootCmd *RootCommand, dispatcher *dispatch.Dispatcher) (host.Engine, error) {
	switch rootCmd.HostsType {
	case HostsTypeDocker:
		eng, err := docker.NewEngine(docker.EngineConfig{
			Dispatcher: dispatcher,
			Logger:     rootCmd.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create Docker host engine: %w", err)
		}
		return eng, nil
	default:
		eng, err := fake.NewEngine(fake.EngineConfig{
			Dispatcher: dispatcher,
			Logger:     rootCmd.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create fake host engine: %w", err)
		}
		return eng, nil
	}
}
