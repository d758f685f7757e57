package livemetrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"sitepulse/internal/infra/fetcher"
	"sitepulse/internal/observability/metrics"
	"sitepulse/internal/resilience/circuitbreaker"
)

// ErrAlreadyStarted is returned by Start when the schedule is already running.
var ErrAlreadyStarted = errors.New("poller already started")

// Poller refreshes a Snapshot from the metrics source.
//
// Refresh never fails: when the source is down or its circuit is open the
// previous snapshot is kept and marked FromCache. Concurrent refreshes are
// coalesced into one request.
type Poller struct {
	cfg    Config
	client *fetcher.Client
	now    func() time.Time

	mu      sync.RWMutex
	current Snapshot
	cron    *cron.Cron

	group singleflight.Group
}

// NewPoller creates a Poller. The schedule is not started until Start.
func NewPoller(cfg Config) (*Poller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid live metrics config: %w", err)
	}
	return &Poller{
		cfg:    cfg,
		client: fetcher.New(cfg.Fetch),
		now:    time.Now,
	}, nil
}

// Refresh fetches the metrics once and returns the resulting snapshot.
func (p *Poller) Refresh(ctx context.Context) Snapshot {
	v, _, _ := p.group.Do("refresh", func() (interface{}, error) {
		return p.refresh(ctx), nil
	})
	snap, _ := v.(Snapshot)
	return snap
}

func (p *Poller) refresh(ctx context.Context) Snapshot {
	last := p.Current()

	res := fetcher.FetchWithFallback(ctx, p.client, fetcher.Request{URL: p.cfg.SourceURL}, last.Metrics)
	now := p.now()
	metrics.RecordLiveMetricsRefresh(res.FromCache, now)

	next := Snapshot{Metrics: res.Data, FromCache: res.FromCache, FetchedAt: last.FetchedAt}
	if res.FromCache {
		next.LastError = res.Err.Error()
	} else {
		next.FetchedAt = now
	}

	p.mu.Lock()
	p.current = next
	p.mu.Unlock()

	if !res.FromCache {
		slog.Debug("live metrics refreshed",
			slog.Int("active_visitors", next.Metrics.ActiveVisitors))
	}
	return next
}

// Current returns the latest snapshot without touching the network.
func (p *Poller) Current() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Start runs an initial refresh in the background and then refreshes on the
// configured schedule.
func (p *Poller) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cron != nil {
		return ErrAlreadyStarted
	}

	c := cron.New()
	if _, err := c.AddFunc(p.cfg.Schedule, p.scheduledRefresh); err != nil {
		return fmt.Errorf("schedule refresh: %w", err)
	}
	c.Start()
	p.cron = c

	go p.scheduledRefresh()

	slog.Info("live metrics poller started",
		slog.String("schedule", p.cfg.Schedule),
		slog.String("dependency", p.client.Name()))
	return nil
}

func (p *Poller) scheduledRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.RefreshTimeout)
	defer cancel()
	p.Refresh(ctx)
}

// Stop halts the schedule and waits for a running refresh or ctx.
func (p *Poller) Stop(ctx context.Context) error {
	p.mu.Lock()
	c := p.cron
	p.cron = nil
	p.mu.Unlock()

	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		slog.Info("live metrics poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Breaker exposes the source circuit breaker for health reporting.
func (p *Poller) Breaker() *circuitbreaker.CircuitBreaker {
	return p.client.Breaker()
}
