package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/devcoord/devco/internal/app/resume"
	"github.com/devcoord/devco/internal/dispatch"
	journalsqlite "github.com/devcoord/devco/internal/journal/sqlite"
	"github.com/devcoord/devco/internal/printer"
	"github.com/devcoord/devco/internal/storage/sqlite"
)

type ResumeCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	nameOrID string
}

// NewResumeCommand returns the resume command.
func NewResumeCommand(rootCmd *RootCommand, app *kingpin.Application) *ResumeCommand {
	c := &ResumeCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("resume", "Resume a device, waking its suspended ancestors first.")
	c.Cmd.Arg("name-or-id", "Device name or ID.").Required().StringVar(&c.nameOrID)

	return c
}

func (c ResumeCommand) Name() string { return c.Cmd.FullCommand() }

func (c ResumeCommand) Run(ctx context.Context) error {
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

	// Create resume service.
	svc, err := resume.NewService(resume.ServiceConfig{
		Repository: repo,
		Journal:    recorder,
		Hosts:      hosts,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	// Execute resume.
	report, err := svc.Run(ctx, resume.Request{
		NameOrID: c.nameOrID,
	})
	if err != nil {
		return fmt.Errorf("could not resume device: %w", err)
	}

	// Print outcome.
	p := printer.NewTablePrinter(c.rootCmd.Stdout)
	if err := p.PrintReport(*report); err != nil {
		return fmt.Errorf("could not print report: %w", err)
	}

	if report.Failed() {
		return fmt.Errorf("resume of %s failed: %s", report.Target, report.Err)
	}

	return nil
}
