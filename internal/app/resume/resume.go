package resume

import (
	"context"
	"errors"
	"fmt"

	"github.com/devcoord/devco/internal/devtree"
	"github.com/devcoord/devco/internal/dispatch"
	"github.com/devcoord/devco/internal/host"
	"github.com/devcoord/devco/internal/journal"
	"github.com/devcoord/devco/internal/log"
	"github.com/devcoord/devco/internal/model"
	"github.com/devcoord/devco/internal/storage"
)

// ServiceConfig is the configuration for the resume service.
type ServiceConfig struct {
	Repository storage.DeviceRepository
	Journal    journal.Recorder
	Hosts      host.Engine
	// Dispatcher runs the operation's task callbacks. The service consumes it:
	// it is stopped once Run returns, so each Run needs a fresh one.
	Dispatcher *dispatch.Dispatcher
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.Journal == nil {
		return fmt.Errorf("journal is required")
	}

	if c.Hosts == nil {
		return fmt.Errorf("host engine is required")
	}

	if c.Dispatcher == nil {
		return fmt.Errorf("dispatcher is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Resume"})

	return nil
}

// Service resumes a device, waking its suspended ancestors first.
type Service struct {
	repo       storage.DeviceRepository
	journal    journal.Recorder
	hosts      host.Engine
	dispatcher *dispatch.Dispatcher
	logger     log.Logger
}

// NewService creates a new resume service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:       cfg.Repository,
		journal:    cfg.Journal,
		hosts:      cfg.Hosts,
		dispatcher: cfg.Dispatcher,
		logger:     cfg.Logger,
	}, nil
}

// Request represents the resume request parameters.
type Request struct {
	// NameOrID is the device name or ID to resume.
	NameOrID string
}

// Run resumes a device by name or ID. Suspended ancestors are resumed first,
// root-most ancestor down to the device itself.
func (s *Service) Run(ctx context.Context, req Request) (*model.OperationReport, error) {
	s.logger.Debugf("resuming device: %s", req.NameOrID)

	target, err := s.lookupDevice(ctx, req.NameOrID)
	if err != nil {
		return nil, err
	}

	if target.State != model.DeviceStateSuspended {
		return nil, fmt.Errorf("cannot resume device %s (current state: %s): %w", target.Name, target.State, model.ErrNotValid)
	}

	devices, err := s.repo.ListDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list devices: %w", err)
	}

	operation := "resume/" + target.ID
	report := &model.OperationReport{
		Operation: "resume",
		Target:    target.Name,
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	tree, err := devtree.New(runCtx, devtree.TreeConfig{
		Devices:    devices,
		Dispatcher: s.dispatcher,
		Hosts:      s.hosts,
		Logger:     s.logger,
		OnResumeResult: func(d *devtree.Device, taskErr error) {
			s.deviceDone(ctx, operation, d, taskErr, report)
			if d.ID() == target.ID {
				if taskErr != nil {
					report.Err = taskErr.Error()
				}
				cancelRun()
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("could not build device tree: %w", err)
	}

	treeTarget, err := tree.Device(target.ID)
	if err != nil {
		return nil, fmt.Errorf("could not find target in tree: %w", err)
	}

	if err := s.planJournal(ctx, operation, treeTarget); err != nil {
		return nil, err
	}

	if _, err := treeTarget.RequestResumeTask(); err != nil {
		return nil, fmt.Errorf("could not schedule resume task: %w", err)
	}

	if err := s.dispatcher.Run(runCtx); err != nil {
		return nil, fmt.Errorf("dispatcher failed: %w", err)
	}

	s.logger.Infof("Resume of %s finished (failed: %t)", target.Name, report.Failed())
	return report, nil
}

// planJournal records one pending step per device on the suspended ancestor
// chain, root-most first so the journal mirrors completion order.
func (s *Service) planJournal(ctx context.Context, operation string, target *devtree.Device) error {
	if err := s.journal.ClearOperation(ctx, operation); err != nil {
		return fmt.Errorf("could not clear previous operation: %w", err)
	}

	chain := []*devtree.Device{}
	for d := target; d != nil && needsResume(d.State()); d = d.Parent() {
		chain = append(chain, d)
	}

	steps := []journal.Step{}
	for i := len(chain) - 1; i >= 0; i-- {
		steps = append(steps, journal.Step{
			DeviceID: chain[i].ID(),
			Name:     fmt.Sprintf("resume %s", chain[i].Name()),
		})
	}

	if err := s.journal.AddSteps(ctx, operation, steps); err != nil {
		return fmt.Errorf("could not record journal steps: %w", err)
	}

	return nil
}

// deviceDone persists a device's final state and settles its journal step.
// It runs on the dispatcher goroutine as each device task completes.
func (s *Service) deviceDone(ctx context.Context, operation string, d *devtree.Device, taskErr error, report *model.OperationReport) {
	result := model.DeviceResult{DeviceID: d.ID(), DeviceName: d.Name()}
	if taskErr != nil {
		result.Err = taskErr.Error()
	}
	report.Results = append(report.Results, result)

	stored, err := s.repo.GetDevice(ctx, d.ID())
	if err != nil {
		s.logger.Errorf("could not load device %s to persist state: %s", d.Name(), err)
	} else {
		stored.State = d.State()
		if d.State() == model.DeviceStateActive {
			stored.SuspendedAt = nil
		}
		if err := s.repo.UpdateDevice(ctx, *stored); err != nil {
			s.logger.Errorf("could not persist device %s state: %s", d.Name(), err)
		}
	}

	if err := s.settleStep(ctx, operation, d.ID(), taskErr); err != nil {
		s.logger.Errorf("could not settle journal step for %s: %s", d.Name(), err)
	}
}

// settleStep marks the device's pending step done or failed.
func (s *Service) settleStep(ctx context.Context, operation, deviceID string, taskErr error) error {
	steps, err := s.journal.ListOperationSteps(ctx, operation)
	if err != nil {
		return fmt.Errorf("could not list operation steps: %w", err)
	}

	for _, step := range steps {
		if step.DeviceID != deviceID || step.Status != journal.StatusPending {
			continue
		}
		if taskErr != nil {
			return s.journal.FailStep(ctx, step.ID, taskErr)
		}
		return s.journal.CompleteStep(ctx, step.ID)
	}

	return nil
}

func needsResume(state model.DeviceState) bool {
	switch state {
	case model.DeviceStateSuspended, model.DeviceStateResuming, model.DeviceStateSuspending:
		return true
	}
	return false
}

func (s *Service) lookupDevice(ctx context.Context, nameOrID string) (*model.Device, error) {
	device, err := s.repo.GetDeviceByName(ctx, nameOrID)
	if errors.Is(err, model.ErrNotFound) && looksLikeULID(nameOrID) {
		device, err = s.repo.GetDevice(ctx, nameOrID)
	}
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("device not found: %s: %w", nameOrID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not get device: %w", err)
	}

	return device, nil
}

// looksLikeULID checks if a string looks like a ULID (26 characters, alphanumeric uppercase).
func looksLikeULID(s string) bool {
	if len(s) != 26 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}
