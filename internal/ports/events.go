package ports

import (
	"context"

	"ride-coord/internal/general/contracts"
)

// EventSink receives core events at the notification seam. Implementations
// must be fast or internally asynchronous; the core calls Publish after the
// state transition has committed and ignores the returned error beyond
// logging it.
type EventSink interface {
	Publish(ctx context.Context, event contracts.CoreEvent) error
}

// EventSinkFunc adapts a plain function to the EventSink interface.
type EventSinkFunc func(ctx context.Context, event contracts.CoreEvent) error

// Publish calls the wrapped function.
func (fn EventSinkFunc) Publish(ctx context.Context, event contracts.CoreEvent) error {
	return fn(ctx, event)
}
