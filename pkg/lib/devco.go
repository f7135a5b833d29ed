package lib

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/devcoord/devco/internal/dispatch"
	"github.com/devcoord/devco/internal/host"
	hostdocker "github.com/devcoord/devco/internal/host/docker"
	hostfake "github.com/devcoord/devco/internal/host/fake"
	journalsqlite "github.com/devcoord/devco/internal/journal/sqlite"
	"github.com/devcoord/devco/internal/log"
	"github.com/devcoord/devco/internal/storage/sqlite"
)

const (
	defaultDataDir = ".devco"
	defaultDBFile  = "devco.db"
)

// Config configures the SDK client.
//
// All fields are optional and have sensible defaults. At minimum, an empty
// Config{} will use ~/.devco/devco.db for storage and Docker host engines.
type Config struct {
	// DBPath is the SQLite database path.
	// Default: ~/.devco/devco.db.
	DBPath string

	// Logger receives structured log output from the SDK.
	// Default: noop (silent). See the log sub-package for the interface.
	Logger log.Logger

	// Hosts selects the host engine used for suspend and resume actions.
	// Default: [HostsDocker].
	//
	// Set this to [HostsFake] for testing without real infrastructure.
	Hosts HostsType

	// DockerImage is the container image used when provisioning missing
	// driver host containers. Only used when Hosts is [HostsDocker].
	DockerImage string
}

func (c *Config) defaults() error {
	if c.DBPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("could not get user home dir: %w", err)
		}
		c.DBPath = filepath.Join(home, defaultDataDir, defaultDBFile)
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	if c.Hosts == "" {
		c.Hosts = HostsDocker
	}

	return nil
}

// Client is the main SDK entry point for coordinating devices
// programmatically.
//
// Create a Client with [New] and release its resources with [Client.Close].
// A Client is safe for concurrent use.
type Client struct {
	repo        *sqlite.Repository
	journal     *journalsqlite.Recorder
	logger      log.Logger
	hostsType   HostsType
	dockerImage string
	closeFn     func() error
}

// New creates a new SDK client backed by a SQLite database.
//
// The caller must call [Client.Close] when done to release the database
// connection. Typically used with defer:
//
//	client, err := lib.New(ctx, lib.Config{})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: cfg.DBPath,
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create repository: %w", err)
	}

	rec, err := journalsqlite.NewRecorder(journalsqlite.RecorderConfig{
		DB:     repo.DB(),
		Logger: cfg.Logger,
	})
	if err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("could not create journal: %w", err)
	}

	return &Client{
		repo:        repo,
		journal:     rec,
		logger:      cfg.Logger,
		hostsType:   cfg.Hosts,
		dockerImage: cfg.DockerImage,
		closeFn:     repo.Close,
	}, nil
}

// Close releases resources held by the client, including the database connection.
// After Close returns, the client must not be used.
func (c *Client) Close() error {
	if c.closeFn != nil {
		return c.closeFn()
	}
	return nil
}

// newHostEngine creates the host engine for one suspend or resume operation.
// Completion callbacks are delivered through the given dispatcher.
func (c *Client) newHostEngine(dispatcher *dispatch.Dispatcher) (host.Engine, error) {
	switch c.hostsType {
	case HostsDocker:
		return hostdocker.NewEngine(hostdocker.EngineConfig{
			Dispatcher: dispatcher,
			Image:      c.dockerImage,
			Logger:     c.logger,
		})
	case HostsFake:
		return hostfake.NewEngine(hostfake.EngineConfig{
			Dispatcher: dispatcher,
			Logger:     c.logger,
		})
	default:
		return nil, fmt.Errorf("unsupported hosts type: %s: %w", c.hostsType, ErrNotValid)
	}
}
