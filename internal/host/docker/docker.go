package docker

import (
	"context"
	"fmt"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/devcoord/devco/internal/log"
	"github.com/devcoord/devco/internal/model"
	"github.com/devcoord/devco/internal/scheduler"
)

// DockerClient is the interface for the Docker operations that we use.
// This allows us to mock the Docker client for testing.
type DockerClient interface {
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerPause(ctx context.Context, containerID string) error
	ContainerUnpause(ctx context.Context, containerID string) error
	ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error)
}

// EngineConfig is the configuration for the Docker host engine.
type EngineConfig struct {
	Client DockerClient
	// Dispatcher receives the completion callbacks.
	Dispatcher scheduler.Dispatcher
	// Image is the container image used when provisioning missing host
	// containers.
	Image string
	Logger log.Logger
}

func (c *EngineConfig) defaults() error {
	if c.Client == nil {
		// Create a default Docker client.
		cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
		if err != nil {
			return fmt.Errorf("could not create Docker client: %w", err)
		}
		c.Client = cli
	}

	if c.Dispatcher == nil {
		return fmt.Errorf("dispatcher is required")
	}

	if c.Image == "" {
		c.Image = "alpine:3"
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "host.Docker"})

	return nil
}

// Engine is a Docker implementation of host.Engine: each driver host maps to
// a container, suspending pauses it and resuming unpauses it. Missing host
// containers are provisioned lazily on first use.
type Engine struct {
	client     DockerClient
	dispatcher scheduler.Dispatcher
	image      string
	logger     log.Logger
}

// NewEngine creates a new Docker host engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Engine{
		client:     cfg.Client,
		dispatcher: cfg.Dispatcher,
		image:      cfg.Image,
		logger:     cfg.Logger,
	}, nil
}

// SendSuspend pauses the container backing the device's host.
func (e *Engine) SendSuspend(ctx context.Context, hostID, deviceID string, flags model.SuspendFlag, done func(err error)) error {
	containerName, err := e.containerName(hostID)
	if err != nil {
		return err
	}

	e.logger.Debugf("Pausing container %s for device %s (%s)", containerName, deviceID, flags)

	go func() {
		err := e.ensureHost(ctx, containerName)
		if err == nil {
			err = e.pause(ctx, containerName)
		}
		e.post(done, err)
	}()

	return nil
}

// SendResume unpauses the container backing the device's host.
func (e *Engine) SendResume(ctx context.Context, hostID, deviceID string, done func(err error)) error {
	containerName, err := e.containerName(hostID)
	if err != nil {
		return err
	}

	e.logger.Debugf("Unpausing container %s for device %s", containerName, deviceID)

	go func() {
		err := e.unpause(ctx, containerName)
		e.post(done, err)
	}()

	return nil
}

func (e *Engine) containerName(hostID string) (string, error) {
	if hostID == "" {
		return "", fmt.Errorf("host id is required: %w", model.ErrNotValid)
	}

	return fmt.Sprintf("devco-host-%s", strings.ToLower(hostID)), nil
}

// ensureHost provisions and starts the host container when it doesn't exist
// yet.
func (e *Engine) ensureHost(ctx context.Context, containerName string) error {
	info, err := e.client.ContainerInspect(ctx, containerName)
	if err == nil {
		if info.State != nil && info.State.Running {
			return nil
		}
		return e.start(ctx, containerName)
	}

	if !strings.Contains(err.Error(), "No such container") {
		return fmt.Errorf("could not inspect container %s: %w", containerName, err)
	}

	e.logger.Infof("Provisioning host container: %s", containerName)

	containerConfig := &container.Config{
		Image: e.image,
		Cmd:   []string{"tail", "-f", "/dev/null"}, // Keep container running.
	}

	_, err = e.client.ContainerCreate(ctx, containerConfig, &container.HostConfig{}, nil, nil, containerName)
	if err != nil {
		return fmt.Errorf("could not create container %s: %w", containerName, err)
	}

	return e.start(ctx, containerName)
}

func (e *Engine) start(ctx context.Context, containerName string) error {
	if err := e.client.ContainerStart(ctx, containerName, container.StartOptions{}); err != nil {
		if strings.Contains(err.Error(), "already started") || strings.Contains(err.Error(), "is already running") {
			return nil
		}
		return fmt.Errorf("could not start container %s: %w", containerName, err)
	}

	return nil
}

func (e *Engine) pause(ctx context.Context, containerName string) error {
	if err := e.client.ContainerPause(ctx, containerName); err != nil {
		// Pausing a paused container is idempotent.
		if strings.Contains(err.Error(), "is already paused") {
			e.logger.Debugf("Container %s is already paused", containerName)
			return nil
		}
		return fmt.Errorf("could not pause container %s: %w", containerName, err)
	}

	return nil
}

func (e *Engine) unpause(ctx context.Context, containerName string) error {
	if err := e.client.ContainerUnpause(ctx, containerName); err != nil {
		if strings.Contains(err.Error(), "is not paused") {
			e.logger.Debugf("Container %s is not paused", containerName)
			return nil
		}
		return fmt.Errorf("could not unpause container %s: %w", containerName, err)
	}

	return nil
}

func (e *Engine) post(done func(err error), err error) {
	if postErr := e.dispatcher.Post(func() { done(err) }); postErr != nil {
		e.logger.Errorf("Could not post host completion: %v", postErr)
	}
}
