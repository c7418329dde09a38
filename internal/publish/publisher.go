// Package publish defines the durable-topic port the webhook pipeline
// depends on, and its Kafka implementation.
package publish

import (
	"context"

	"github.com/lumenworks/frameio-relay/internal/event"
)

// Publisher is the capability the webhook service needs from a durable
// transport. A call either returns a non-empty message id or an *Error;
// events are never dropped silently.
type Publisher interface {
	Publish(ctx context.Context, ev *event.Event) (string, error)
	Close() error
}

// Error is the transient-failure class of the pipeline: the identical
// request is expected to succeed on retry once the transport recovers.
type Error struct {
	Err error
}

func (e *Error) Error() string {
	return "failed to publish event: " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}
