package delivery

import (
	"context"
	"log/slog"

	"sitepulse/internal/domain/entity"
)

// NoOpSender accepts every batch without sending it.
// It is used when no delivery endpoint is configured so the batcher keeps
// its normal flow without null checks.
type NoOpSender struct{}

// NewNoOpSender creates a new NoOpSender instance.
func NewNoOpSender() *NoOpSender {
	return &NoOpSender{}
}

// Send discards the batch and returns nil.
func (n *NoOpSender) Send(ctx context.Context, batch entity.Batch) error {
	slog.Debug("delivery disabled, discarding batch",
		slog.String("batch_id", batch.ID),
		slog.Int("batch_size", batch.Len()))
	return nil
}
