package http

import (
	"context"
	"errors"
	"sync"

	"github.com/sony/gobreaker"

	"sitepulse/internal/domain/entity"
	"sitepulse/internal/usecase/livemetrics"
	"sitepulse/internal/usecase/track"
)

type fakeBatcher struct {
	mu       sync.Mutex
	events   []entity.TrackedEvent
	closed   bool
	flushErr error
	flushes  int
	stats    track.Stats
}

func (f *fakeBatcher) Enqueue(ev entity.TrackedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return track.ErrBatcherClosed
	}
	if err := ev.Validate(); err != nil {
		return err
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeBatcher) Flush(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
	return f.flushErr
}

func (f *fakeBatcher) Stats() track.Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.stats
	s.Queued = len(f.events)
	s.Closed = f.closed
	return s
}

func (f *fakeBatcher) received() []entity.TrackedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]entity.TrackedEvent, len(f.events))
	copy(out, f.events)
	return out
}

type fakeCircuit struct {
	name     string
	state    gobreaker.State
	failures uint32
}

func (c fakeCircuit) Name() string                { return c.name }
func (c fakeCircuit) State() gobreaker.State      { return c.state }
func (c fakeCircuit) ConsecutiveFailures() uint32 { return c.failures }

type fakeSnapshots struct {
	current   livemetrics.Snapshot
	refreshed livemetrics.Snapshot
	refreshes int
}

func (f *fakeSnapshots) Current() livemetrics.Snapshot { return f.current }

func (f *fakeSnapshots) Refresh(ctx context.Context) livemetrics.Snapshot {
	f.refreshes++
	return f.refreshed
}

var errDeliveryDown = errors.New("delivery endpoint unavailable")
