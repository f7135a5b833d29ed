package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"

	"github.com/devcoord/devco/internal/app/load"
	"github.com/devcoord/devco/internal/printer"
	"github.com/devcoord/devco/internal/storage/io"
	"github.com/devcoord/devco/internal/storage/sqlite"
)

type LoadCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	path    string
	replace bool
}

// NewLoadCommand returns the load command.
func NewLoadCommand(rootCmd *RootCommand, app *kingpin.Application) *LoadCommand {
	c := &LoadCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("load", "Load a device tree definition into the registry.")
	c.Cmd.Arg("file", "Device tree YAML file.").Required().StringVar(&c.path)
	c.Cmd.Flag("replace", "Replace any previously registered devices.").BoolVar(&c.replace)

	return c
}

func (c LoadCommand) Name() string { return c.Cmd.FullCommand() }

func (c LoadCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	// Initialize storage (SQLite).
	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: c.rootCmd.DBPath,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create repository: %w", err)
	}
	defer repo.Close()

	// Loader reads relative to the file's directory.
	absPath, err := filepath.Abs(c.path)
	if err != nil {
		return fmt.Errorf("could not resolve path: %w", err)
	}
	loader := io.NewTreeYAMLRepository(os.DirFS(filepath.Dir(absPath)))

	// Create load service.
	svc, err := load.NewService(load.ServiceConfig{
		Loader:     loader,
		Repository: repo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	// Execute load.
	devices, err := svc.Run(ctx, load.Request{
		Path:    filepath.Base(absPath),
		Replace: c.replace,
	})
	if err != nil {
		return fmt.Errorf("could not load device tree: %w", err)
	}

	// Print success message.
	p := printer.NewTablePrinter(c.rootCmd.Stdout)
	if err := p.PrintMessage(fmt.Sprintf("Loaded %d devices", len(devices))); err != nil {
		return fmt.Errorf("could not print message: %w", err)
	}

	return nil
}
