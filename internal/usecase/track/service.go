package track

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"sitepulse/internal/domain/entity"
	"sitepulse/internal/observability/logging"
	"sitepulse/internal/observability/slo"
	"sitepulse/internal/observability/tracing"
)

// Flush triggers used in logs, spans and metrics.
const (
	triggerInterval  = "interval"
	triggerRequested = "requested"
	triggerManual    = "manual"
	triggerShutdown  = "shutdown"
)

// Stats is a point-in-time view of the batcher.
type Stats struct {
	Queued        int       `json:"queued"`
	Tracked       uint64    `json:"tracked"`
	Delivered     uint64    `json:"delivered"`
	Dropped       uint64    `json:"dropped"`
	FailedFlushes uint64    `json:"failed_flushes"`
	LastFlushAt   time.Time `json:"last_flush_at,omitzero"`
	LastError     string    `json:"last_error,omitempty"`
	Closed        bool      `json:"closed"`
}

// Batcher queues events in memory and delivers them in batches through a Sender.
//
// Batches are never sent concurrently: every flush path (timer, size threshold,
// critical event, explicit Flush, final flush) goes through one singleflight
// key. A caller arriving during an in-flight flush waits for it; if that send
// took the queue before the caller's events were enqueued, the caller then
// sends what is left.
//
// Thread safety: Batcher is safe for concurrent use.
type Batcher struct {
	cfg      Config
	sender   Sender
	critical map[string]struct{}
	now      func() time.Time

	mu       sync.Mutex // Protects queue, session, stats and the sequence counters
	queue    *queue
	session  entity.SessionContext
	stats    Stats
	enqueued uint64 // Events accepted so far
	taken    uint64 // Value of enqueued when a send last took the queue

	group       singleflight.Group
	kick        chan struct{} // Buffered flush requests for the run loop
	stop        chan struct{} // Closed by Destroy
	loopDone    chan struct{} // Closed when the run loop has exited
	finalDone   chan struct{} // Closed when the final flush has finished
	closed      atomic.Bool
	destroyOnce sync.Once
}

// New creates a Batcher and starts its background flush loop.
// Callers must eventually call Destroy or Shutdown.
func New(sender Sender, cfg Config) (*Batcher, error) {
	if sender == nil {
		return nil, errors.New("sender is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid batcher config: %w", err)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	critical := make(map[string]struct{}, len(cfg.CriticalEvents))
	for _, name := range cfg.CriticalEvents {
		critical[name] = struct{}{}
	}

	b := &Batcher{
		cfg:       cfg,
		sender:    sender,
		critical:  critical,
		now:       now,
		queue:     newQueue(cfg.MaxQueueSize),
		session:   cfg.Session,
		kick:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		loopDone:  make(chan struct{}),
		finalDone: make(chan struct{}),
	}

	go b.run()

	slog.Info("event batcher started",
		slog.Duration("flush_interval", cfg.FlushInterval),
		slog.Int("max_batch_size", cfg.MaxBatchSize),
		slog.Int("max_queue_size", cfg.MaxQueueSize))

	return b, nil
}

// Track records an event stamped with the current session context.
// It never blocks on I/O and never fails; invalid events and events tracked
// after Destroy are logged and dropped. Names on the critical list are
// flushed immediately.
func (b *Batcher) Track(name string, properties map[string]any, coords *entity.Coordinates) {
	b.mu.Lock()
	session := b.session
	b.mu.Unlock()

	ev := entity.NewTrackedEvent(name, properties, session, coords, b.now())
	_, ev.Critical = b.critical[name]

	_ = b.accept(ev)
}

// TrackCritical records an event and flushes immediately, whatever its name.
func (b *Batcher) TrackCritical(name string, properties map[string]any) {
	b.mu.Lock()
	session := b.session
	b.mu.Unlock()

	ev := entity.NewTrackedEvent(name, properties, session, nil, b.now())
	ev.Critical = true

	_ = b.accept(ev)
}

// Enqueue adds a pre-built event, such as one received by the relay endpoint.
// Unlike Track it reports validation failures and ErrBatcherClosed.
func (b *Batcher) Enqueue(ev entity.TrackedEvent) error {
	if _, listed := b.critical[ev.Name]; listed {
		ev.Critical = true
	}
	return b.accept(ev)
}

// SetSession replaces the session context stamped on subsequent Track calls.
func (b *Batcher) SetSession(session entity.SessionContext) {
	b.mu.Lock()
	b.session = session
	b.mu.Unlock()
}

func (b *Batcher) accept(ev entity.TrackedEvent) error {
	if b.closed.Load() {
		slog.Debug("batcher closed, event ignored",
			slog.String("event", ev.Name))
		return ErrBatcherClosed
	}

	if err := ev.Validate(); err != nil {
		slog.Warn("invalid event dropped",
			slog.String("event", ev.Name),
			slog.Any("error", err))
		recordDropped(dropInvalid, 1)
		return err
	}

	b.mu.Lock()
	evicted := b.queue.push(queued{event: ev})
	n := b.queue.len()
	b.enqueued++
	b.stats.Tracked++
	b.stats.Dropped += uint64(len(evicted))
	b.mu.Unlock()

	queueLength.Set(float64(n))
	recordTracked(ev.Critical)
	logDropped(dropOverflow, evicted)

	if ev.Critical || n >= b.cfg.MaxBatchSize {
		b.requestFlush()
	}
	return nil
}

// requestFlush wakes the run loop without blocking; a pending request already covers this one.
func (b *Batcher) requestFlush() {
	select {
	case b.kick <- struct{}{}:
	default:
	}
}

func (b *Batcher) run() {
	defer close(b.loopDone)

	ticker := time.NewTicker(b.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			b.backgroundFlush(triggerInterval)
		case <-b.kick:
			b.backgroundFlush(triggerRequested)
		}
	}
}

func (b *Batcher) backgroundFlush(trigger string) {
	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.FlushTimeout)
	defer cancel()

	// Failures are logged, counted and re-queued inside send
	_ = b.flush(ctx, trigger)
}

// Flush sends every queued event as one batch.
//
// On failure the events go back to the front of the queue (unless they ran
// out of delivery attempts) and the error is returned. On success exactly the
// sent events are gone; events tracked during the send stay queued.
func (b *Batcher) Flush(ctx context.Context) error {
	return b.flush(ctx, triggerManual)
}

func (b *Batcher) flush(ctx context.Context, trigger string) error {
	b.mu.Lock()
	want := b.enqueued
	b.mu.Unlock()

	for {
		_, err, shared := b.group.Do("flush", func() (interface{}, error) {
			return nil, b.send(ctx, trigger)
		})
		if !shared || b.covers(want) || ctx.Err() != nil {
			return err
		}
	}
}

// covers reports whether the latest send took every event accepted before want.
func (b *Batcher) covers(want uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.taken >= want
}

func (b *Batcher) send(ctx context.Context, trigger string) error {
	b.mu.Lock()
	items, expired := b.queue.takeAll(b.now(), b.cfg.MaxEventAge)
	b.taken = b.enqueued
	b.stats.Dropped += uint64(len(expired))
	b.mu.Unlock()

	logDropped(dropExpired, expired)

	if len(items) == 0 {
		queueLength.Set(float64(b.Len()))
		return nil
	}

	events := make([]entity.TrackedEvent, len(items))
	for i, it := range items {
		events[i] = it.event
	}
	batch := entity.NewBatch(events)

	logger := logging.WithBatchID(logging.FromContext(ctx), batch.ID, batch.Len())
	ctx = logging.WithLogger(ctx, logger)

	ctx, span := tracing.GetTracer().Start(ctx, "track.Flush",
		trace.WithAttributes(
			attribute.String("batch.id", batch.ID),
			attribute.Int("batch.size", batch.Len()),
			attribute.String("trigger", trigger),
		))
	defer span.End()

	start := time.Now()
	err := b.sender.Send(ctx, batch)
	duration := time.Since(start)
	recordFlush(trigger, batch.Len(), duration, err)

	if err == nil {
		deliveredAt := b.now()
		for _, ev := range events {
			slo.ObserveDeliveryLag(ev.Age(deliveredAt))
		}

		b.mu.Lock()
		b.stats.Delivered += uint64(batch.Len())
		b.stats.LastFlushAt = deliveredAt
		b.stats.LastError = ""
		delivered, dropped, n := b.stats.Delivered, b.stats.Dropped, b.queue.len()
		b.mu.Unlock()

		slo.UpdateDeliveryRatio(delivered, dropped)
		queueLength.Set(float64(n))

		logger.Info("batch delivered",
			slog.String("trigger", trigger),
			slog.Duration("duration", duration))
		return nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	retained := make([]queued, 0, len(items))
	var exhausted []queued
	for _, it := range items {
		it.attempts++
		if it.attempts >= b.cfg.MaxDeliveryAttempts {
			exhausted = append(exhausted, it)
			continue
		}
		retained = append(retained, it)
	}

	b.mu.Lock()
	evicted := b.queue.requeueFront(retained)
	b.stats.FailedFlushes++
	b.stats.Dropped += uint64(len(exhausted) + len(evicted))
	b.stats.LastError = err.Error()
	delivered, dropped, n := b.stats.Delivered, b.stats.Dropped, b.queue.len()
	b.mu.Unlock()

	logDropped(dropAttempts, exhausted)
	logDropped(dropOverflow, evicted)
	slo.UpdateDeliveryRatio(delivered, dropped)
	queueLength.Set(float64(n))

	logger.Warn("batch delivery failed, events re-queued",
		slog.String("trigger", trigger),
		slog.Int("requeued", len(retained)),
		slog.Duration("duration", duration),
		slog.Any("error", err))

	b.notifyFailure(batch, err)

	return fmt.Errorf("flush %d events: %w", batch.Len(), err)
}

func (b *Batcher) notifyFailure(batch entity.Batch, err error) {
	if b.cfg.OnDeliveryFailure == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("delivery failure callback panicked",
				slog.String("batch_id", batch.ID),
				slog.Any("panic", r))
		}
	}()
	b.cfg.OnDeliveryFailure(batch, err)
}

func logDropped(reason string, items []queued) {
	if len(items) == 0 {
		return
	}
	recordDropped(reason, len(items))
	slog.Warn("events dropped",
		slog.String("reason", reason),
		slog.Int("count", len(items)),
		slog.String("oldest_event", items[0].event.Name))
}

// Destroy stops the flush timer and starts a final best-effort flush that is
// detached from any caller and bounded by KeepaliveTimeout. It returns without
// waiting for delivery. Later Track calls are ignored.
func (b *Batcher) Destroy() {
	b.destroy(context.Background())
}

// Shutdown destroys the batcher and waits for the final flush or ctx,
// whichever comes first. The final flush keeps running if ctx expires.
func (b *Batcher) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down event batcher")

	b.destroy(ctx)

	select {
	case <-b.finalDone:
		slog.Info("Event batcher shutdown complete")
		return nil
	case <-ctx.Done():
		slog.Warn("Event batcher shutdown timeout",
			slog.Int("queued", b.Len()))
		return ctx.Err()
	}
}

func (b *Batcher) destroy(parent context.Context) {
	b.destroyOnce.Do(func() {
		b.closed.Store(true)
		close(b.stop)

		detached := context.WithoutCancel(parent)
		go func() {
			defer close(b.finalDone)

			// An interval flush already running completes first. A manual
			// flush still in flight is joined, then whatever it did not take
			// is sent.
			<-b.loopDone

			ctx, cancel := context.WithTimeout(detached, b.cfg.KeepaliveTimeout)
			defer cancel()

			if err := b.flush(ctx, triggerShutdown); err != nil {
				slog.Warn("final flush failed",
					slog.Int("queued", b.Len()),
					slog.Any("error", err))
			}
		}()
	})
}

// Len returns the number of queued events.
func (b *Batcher) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queue.len()
}

// Pending returns a copy of the queued events in flush order.
func (b *Batcher) Pending() []entity.TrackedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queue.events()
}

// Stats returns a snapshot of the batcher counters.
func (b *Batcher) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.stats
	s.Queued = b.queue.len()
	s.Closed = b.closed.Load()
	return s
}
