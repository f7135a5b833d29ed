package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/devcoord/devco/internal/app/suspend"
	"github.com/devcoord/devco/internal/dispatch"
	journalsqlite "github.com/devcoord/devco/internal/journal/sqlite"
	"github.com/devcoord/devco/internal/model"
	"github.com/devcoord/devco/internal/printer"
	"github.com/devcoord/devco/internal/storage/sqlite"
)

type SuspendCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	nameOrID string
	flag     string
}

// NewSuspendCommand returns the suspend command.
func NewSuspendCommand(rootCmd *RootCommand, app *kingpin.Application) *SuspendCommand {
	c := &SuspendCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("suspend", "Suspend a device and its whole subtree, children first.")
	c.Cmd.Arg("name-or-id", "Device name or ID.").Required().StringVar(&c.nameOrID)

	flagValues := make([]string, 0, len(model.SuspendFlagValues))
	for _, f := range model.SuspendFlagValues {
		flagValues = append(flagValues, string(f))
	}
	c.Cmd.Flag("flag", "Suspend variant.").Default(string(model.SuspendFlagSuspendToRAM)).EnumVar(&c.flag, flagValues...)

	return c
}

func (c SuspendCommand) Name() string { return c.Cmd.FullCommand() }

func (c SuspendCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	flag, err := model.ParseSuspendFlag(c.flag)
	if err != nil {
		return err
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

	// Journal shares the repository's database.
	recorder, err := journalsqlite.NewRecorder(journalsqlite.RecorderConfig{
		DB:     repo.DB(),
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create journal recorder: %w", err)
	}

	// Dispatcher runs the operation's task callbacks.
	dispatcher, err := dispatch.NewDispatcher(dispatch.DispatcherConfig{Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create dispatcher: %w", err)
	}

	// Initialize driver host engine.
	hosts, err := newHostEngine(c.rootCmd, dispatcher)
	if err != nil {
		return err
	}

	// Create suspend service.
	svc, err := suspend.NewService(suspend.ServiceConfig{
		Repository: repo,
		Journal:    recorder,
		Hosts:      hosts,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	// Execute suspend.
	report, err := svc.Run(ctx, suspend.Request{
		NameOrID: c.nameOrID,
		Flag:     flag,
	})
	if err != nil {
		return fmt.Errorf("could not suspend device: %w", err)
	}

	// Print outcome.
	p := printer.NewTablePrinter(c.rootCmd.Stdout)
	if err := p.PrintReport(*report); err != nil {
		return fmt.Errorf("could not print report: %w", err)
	}

	if report.Failed() {
		return fmt.Errorf("suspend of %s failed: %s", report.Target, report.Err)
	}

	return nil
}
