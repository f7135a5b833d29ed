package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/alecthomas/kingpin/v2"

	"github.com/devcoord/devco/internal/app/list"
	"github.com/devcoord/devco/internal/model"
	"github.com/devcoord/devco/internal/printer"
	"github.com/devcoord/devco/internal/storage/sqlite"
)

type ListCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	stateFilter string
	format      string
}

// NewListCommand returns the list command.
func NewListCommand(rootCmd *RootCommand, app *kingpin.Application) *ListCommand {
	c := &ListCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("list", "List all devices.")
	c.Cmd.Flag("state", "Filter by state (active, suspending, suspended, resuming, dead).").StringVar(&c.stateFilter)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c ListCommand) Name() string { return c.Cmd.FullCommand() }

func (c ListCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	// Parse state filter if provided.
	var stateFilter *model.DeviceState
	if c.stateFilter != "" {
		state := model.DeviceState(strings.ToLower(c.stateFilter))
		// Validate state value.
		switch state {
		case model.DeviceStateActive, model.DeviceStateSuspending, model.DeviceStateSuspended, model.DeviceStateResuming, model.DeviceStateDead:
			stateFilter = &state
		default:
			return fmt.Errorf("invalid state filter: %s (must be: active, suspending, suspended, resuming, dead)", c.stateFilter)
		}
	}

	// Initialize storage (SQLite).
	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: c.rootCmd.DBPath,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create repository: %w", err)
	}
	defer repo.Close()

	// Create list service.
	svc, err := list.NewService(list.ServiceConfig{
		Repository: repo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	// Execute list.
	devices, err := svc.Run(ctx, list.Request{
		StateFilter: stateFilter,
	})
	if err != nil {
		return fmt.Errorf("could not list devices: %w", err)
	}

	// Print output.
	var p printer.Printer
	switch c.format {
	case "json":
		p = printer.NewJSONPrinter(c.rootCmd.Stdout)
	default: // table
		p = printer.NewTablePrinter(c.rootCmd.Stdout)
	}

	if err := p.PrintDeviceList(devices); err != nil {
		return fmt.Errorf("could not print list: %w", err)
	}

	return nil
}
