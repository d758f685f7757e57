package track

import (
	"context"
	"sync"

	"sitepulse/internal/domain/entity"
)

// fakeSender records batches. fail decides the outcome of each call (0-based);
// when block is non-nil every call waits on it after signalling started.
type fakeSender struct {
	mu      sync.Mutex
	batches []entity.Batch
	calls   int
	fail    func(call int) error
	block   chan struct{}
	started chan struct{}
}

func newFakeSender() *fakeSender {
	return &fakeSender{started: make(chan struct{}, 16)}
}

func (f *fakeSender) Send(ctx context.Context, batch entity.Batch) error {
	f.mu.Lock()
	call := f.calls
	f.calls++
	block := f.block
	fail := f.fail
	f.mu.Unlock()

	select {
	case f.started <- struct{}{}:
	default:
	}

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if fail != nil {
		if err := fail(call); err != nil {
			return err
		}
	}

	f.mu.Lock()
	f.batches = append(f.batches, batch)
	f.mu.Unlock()
	return nil
}

func (f *fakeSender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeSender) delivered() []entity.Batch {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]entity.Batch, len(f.batches))
	copy(out, f.batches)
	return out
}

func (f *fakeSender) deliveredNames() [][]string {
	var out [][]string
	for _, b := range f.delivered() {
		out = append(out, names(b.Events))
	}
	return out
}

func names(events []entity.TrackedEvent) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.Name
	}
	return out
}
