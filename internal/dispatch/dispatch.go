package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/devcoord/devco/internal/log"
)

// ErrStopped is returned by Post once the dispatcher has been stopped.
var ErrStopped = fmt.Errorf("dispatcher is stopped")

// DispatcherConfig is the configuration for the dispatcher.
type DispatcherConfig struct {
	Logger log.Logger
}

func (c *DispatcherConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "dispatch.Dispatcher"})

	return nil
}

// Dispatcher is a single-goroutine FIFO executor. Callbacks posted with Post
// run in order, one at a time, on whichever goroutine is draining the queue
// (Run or RunUntilIdle). A callback may post more callbacks; they are
// appended behind everything already queued.
//
// Only one Run or RunUntilIdle call may be active at a time, which is what
// gives the task scheduler its single logical executor.
type Dispatcher struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	stopped bool
	logger  log.Logger
}

// NewDispatcher creates a new dispatcher.
func NewDispatcher(cfg DispatcherConfig) (*Dispatcher, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Dispatcher{
		wake:   make(chan struct{}, 1),
		logger: cfg.Logger,
	}, nil
}

// Post queues a callback to run after everything already queued.
func (d *Dispatcher) Post(fn func()) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return ErrStopped
	}

	d.queue = append(d.queue, fn)

	// Non-blocking wake: a pending signal already covers this post.
	select {
	case d.wake <- struct{}{}:
	default:
	}

	return nil
}

// Run drains the queue until the context is cancelled, blocking while the
// queue is empty. It stops the dispatcher on return, so further posts fail
// with ErrStopped.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer d.stop()

	for {
		if ctx.Err() != nil {
			d.logger.Debugf("Dispatcher stopping: %v", ctx.Err())
			return nil
		}

		fn, ok := d.next()
		if !ok {
			select {
			case <-d.wake:
			case <-ctx.Done():
			}
			continue
		}

		fn()
	}
}

// RunUntilIdle drains the queue on the calling goroutine and returns once it
// is empty. Callbacks posted from other goroutines while draining may or may
// not be observed; it is meant for tests and one-shot usage where all work is
// posted from the draining goroutine itself.
func (d *Dispatcher) RunUntilIdle() {
	for {
		fn, ok := d.next()
		if !ok {
			return
		}

		fn()
	}
}

// Pending returns the number of queued callbacks.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.queue)
}

func (d *Dispatcher) next() (func(), bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.queue) == 0 {
		return nil, false
	}

	fn := d.queue[0]
	d.queue = d.queue[1:]

	return fn, true
}

func (d *Dispatcher) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if n := len(d.queue); n > 0 {
		d.logger.Warningf("Dispatcher stopped with %d queued callbacks", n)
		d.queue = nil
	}
}
