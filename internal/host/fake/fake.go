package fake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/devcoord/devco/internal/log"
	"github.com/devcoord/devco/internal/model"
	"github.com/devcoord/devco/internal/scheduler"
)

// EngineConfig is the configuration for the fake host engine.
type EngineConfig struct {
	// Dispatcher receives the completion callbacks.
	Dispatcher scheduler.Dispatcher
	// Latency delays every completion, simulating slow remote hosts.
	Latency time.Duration
	// FailSuspend makes suspend fail for the given device IDs.
	FailSuspend map[string]error
	// FailResume makes resume fail for the given device IDs.
	FailResume map[string]error
	Logger     log.Logger
}

func (c *EngineConfig) defaults() error {
	if c.Dispatcher == nil {
		return fmt.Errorf("dispatcher is required")
	}

	if c.FailSuspend == nil {
		c.FailSuspend = map[string]error{}
	}

	if c.FailResume == nil {
		c.FailResume = map[string]error{}
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "host.Fake"})

	return nil
}

// Engine is a fake implementation of host.Engine. It simulates driver hosts
// without any real execution context, completing every request
// asynchronously through the dispatcher.
type Engine struct {
	dispatcher  scheduler.Dispatcher
	latency     time.Duration
	failSuspend map[string]error
	failResume  map[string]error

	mu        sync.Mutex
	suspended []string
	resumed   []string

	logger log.Logger
}

// NewEngine creates a new fake host engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Engine{
		dispatcher:  cfg.Dispatcher,
		latency:     cfg.Latency,
		failSuspend: cfg.FailSuspend,
		failResume:  cfg.FailResume,
		logger:      cfg.Logger,
	}, nil
}

// SendSuspend simulates suspending a device on its host.
func (e *Engine) SendSuspend(ctx context.Context, hostID, deviceID string, flags model.SuspendFlag, done func(err error)) error {
	if hostID == "" {
		return fmt.Errorf("host id is required: %w", model.ErrNotValid)
	}

	e.logger.Debugf("Sending suspend (%s) to device %s on host %s", flags, deviceID, hostID)

	e.complete(deviceID, e.failSuspend[deviceID], done, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.suspended = append(e.suspended, deviceID)
	})

	return nil
}

// SendResume simulates resuming a device on its host.
func (e *Engine) SendResume(ctx context.Context, hostID, deviceID string, done func(err error)) error {
	if hostID == "" {
		return fmt.Errorf("host id is required: %w", model.ErrNotValid)
	}

	e.logger.Debugf("Sending resume to device %s on host %s", deviceID, hostID)

	e.complete(deviceID, e.failResume[deviceID], done, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.resumed = append(e.resumed, deviceID)
	})

	return nil
}

// SuspendedOrder returns the device IDs that completed a suspend, in
// completion order.
func (e *Engine) SuspendedOrder() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]string{}, e.suspended...)
}

// ResumedOrder returns the device IDs that completed a resume, in completion
// order.
func (e *Engine) ResumedOrder() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]string{}, e.resumed...)
}

func (e *Engine) complete(deviceID string, failure error, done func(err error), record func()) {
	finish := func() {
		if failure == nil {
			record()
		}
		done(failure)
	}

	if e.latency == 0 {
		// Still asynchronous: the callback runs on a later dispatcher turn.
		e.post(finish)
		return
	}

	go func() {
		time.Sleep(e.latency)
		e.post(finish)
	}()
}

func (e *Engine) post(fn func()) {
	if err := e.dispatcher.Post(fn); err != nil {
		e.logger.Errorf("Could not post host completion: %v", err)
	}
}
