package host

import (
	"context"

	"github.com/devcoord/devco/internal/model"
)

// Engine sends lifecycle requests to the execution contexts hosting device
// drivers. Requests are asynchronous: the done callback is posted onto the
// scheduler dispatcher exactly once with the outcome, unless the request
// itself returns an error, in which case no callback will ever follow.
type Engine interface {
	// SendSuspend asks the host of a device to suspend it.
	SendSuspend(ctx context.Context, hostID, deviceID string, flags model.SuspendFlag, done func(err error)) error

	// SendResume asks the host of a device to resume it.
	SendResume(ctx context.Context, hostID, deviceID string, done func(err error)) error
}
