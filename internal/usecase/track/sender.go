// Package track implements the event batcher: an in-memory queue of tracked
// events that is delivered in batches on a timer, when it grows past a size
// threshold, immediately for critical events, and one last time on teardown.
package track

import (
	"context"

	"sitepulse/internal/domain/entity"
)

// Sender delivers one batch. A nil error means the whole batch was accepted;
// any error hands the batch back to the batcher for re-queueing.
type Sender interface {
	Send(ctx context.Context, batch entity.Batch) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, batch entity.Batch) error

// Send calls f(ctx, batch).
func (f SenderFunc) Send(ctx context.Context, batch entity.Batch) error {
	return f(ctx, batch)
}
