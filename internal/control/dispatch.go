package control

import (
	"context"

	deverrors "github.com/sweeney/ces-device/internal/errors"
)

// Request is a command waiting to be applied by the run loop.
type Request struct {
	Command Command
	reply   chan error
}

// Done reports the result back to the submitter. It must be called
// exactly once.
func (r Request) Done(err error) {
	r.reply <- err
}

// Submitter hands commands to whoever owns the device.
type Submitter interface {
	Submit(ctx context.Context, cmd Command) error
}

// Dispatcher carries commands from concurrent producers (HTTP handlers,
// stdin) to the single goroutine that owns the device.
type Dispatcher struct {
	requests chan Request
}

// NewDispatcher creates a dispatcher with the given queue depth.
func NewDispatcher(queue int) *Dispatcher {
	return &Dispatcher{requests: make(chan Request, queue)}
}

// Requests is read by the run loop.
func (d *Dispatcher) Requests() <-chan Request {
	return d.requests
}

// Submit queues cmd and waits until the run loop has applied it.
func (d *Dispatcher) Submit(ctx context.Context, cmd Command) error {
	req := Request{Command: cmd, reply: make(chan error, 1)}
	select {
	case d.requests <- req:
	case <-ctx.Done():
		return deverrors.NewUnavailable("device loop is not accepting commands")
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return deverrors.NewUnavailable("device loop did not answer in time")
	}
}
