// Package logging builds the agent's slog loggers and carries them through
// contexts.
//
// LOG_LEVEL selects the level (debug, info, warn, error). Debug output
// includes source locations. Loggers scoped to a request or a batch add
// request_id or batch_id and batch_size to every line:
//
//	logger := logging.WithBatchID(slog.Default(), batch.ID, batch.Len())
//	logger.Warn("batch delivery failed", slog.Any("error", err))
//
//	ctx = logging.WithLogger(ctx, logging.WithRequestID(ctx, slog.Default()))
//	logging.FromContext(ctx).Info("event accepted")
package logging
