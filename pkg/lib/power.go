package lib

import (
	"context"
	"fmt"

	"github.com/devcoord/devco/internal/app/resume"
	"github.com/devcoord/devco/internal/app/suspend"
	"github.com/devcoord/devco/internal/dispatch"
	"github.com/devcoord/devco/internal/model"
)

// Suspend suspends a device and its whole subtree, children first, and blocks
// until the operation settles. Pass nil opts to suspend to RAM.
//
// Returns [ErrNotFound] if the device does not exist and [ErrNotValid] if it
// is already suspended or dead. A failure on a subtree device does not return
// an error: it is reported through the returned [OperationReport].
func (c *Client) Suspend(ctx context.Context, nameOrID string, opts *SuspendOpts) (*OperationReport, error) {
	flag := SuspendToRAM
	if opts != nil && opts.Flag != "" {
		flag = opts.Flag
	}

	dispatcher, err := dispatch.NewDispatcher(dispatch.DispatcherConfig{Logger: c.logger})
	if err != nil {
		return nil, fmt.Errorf("could not create dispatcher: %w", err)
	}

	hosts, err := c.newHostEngine(dispatcher)
	if err != nil {
		return nil, mapError(fmt.Errorf("could not create host engine: %w", err))
	}

	svc, err := suspend.NewService(suspend.ServiceConfig{
		Repository: c.repo,
		Journal:    c.journal,
		Hosts:      hosts,
		Dispatcher: dispatcher,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	report, err := svc.Run(ctx, suspend.Request{
		NameOrID: nameOrID,
		Flag:     model.SuspendFlag(flag),
	})
	if err != nil {
		return nil, mapError(err)
	}

	return fromInternalReport(report), nil
}

// Resume resumes a device by name or ID and blocks until the operation
// settles. Suspended ancestors are resumed first, root-most down to the
// device itself.
//
// Returns [ErrNotFound] if the device does not exist and [ErrNotValid] if it
// is not suspended. A failure on an ancestor does not return an error: it is
// reported through the returned [OperationReport].
func (c *Client) Resume(ctx context.Context, nameOrID string) (*OperationReport, error) {
	dispatcher, err := dispatch.NewDispatcher(dispatch.DispatcherConfig{Logger: c.logger})
	if err != nil {
		return nil, fmt.Errorf("could not create dispatcher: %w", err)
	}

	hosts, err := c.newHostEngine(dispatcher)
	if err != nil {
		return nil, mapError(fmt.Errorf("could not create host engine: %w", err))
	}

	svc, err := resume.NewService(resume.ServiceConfig{
		Repository: c.repo,
		Journal:    c.journal,
		Hosts:      hosts,
		Dispatcher: dispatcher,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	report, err := svc.Run(ctx, resume.Request{NameOrID: nameOrID})
	if err != nil {
		return nil, mapError(err)
	}

	return fromInternalReport(report), nil
}
