package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitepulse/internal/usecase/livemetrics"
	"sitepulse/internal/usecase/track"
)

func TestFlushHandler(t *testing.T) {
	t.Run("success returns stats", func(t *testing.T) {
		b := &fakeBatcher{stats: track.Stats{Delivered: 7}}
		rr := httptest.NewRecorder()
		(&FlushHandler{Batcher: b}).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/flush", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		var body struct {
			Stats track.Stats `json:"stats"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, uint64(7), body.Stats.Delivered)
		assert.Equal(t, 1, b.flushes)
	})

	t.Run("delivery failure returns 502", func(t *testing.T) {
		b := &fakeBatcher{flushErr: errDeliveryDown}
		rr := httptest.NewRecorder()
		(&FlushHandler{Batcher: b}).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/flush", nil))

		assert.Equal(t, http.StatusBadGateway, rr.Code)
		assert.Contains(t, rr.Body.String(), "delivery failed")
		assert.NotContains(t, rr.Body.String(), errDeliveryDown.Error())
	})
}

func TestStatsHandler(t *testing.T) {
	b := &fakeBatcher{stats: track.Stats{Tracked: 3, Dropped: 1}}
	rr := httptest.NewRecorder()
	(&StatsHandler{Batcher: b}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/stats", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var stats track.Stats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Equal(t, uint64(3), stats.Tracked)
	assert.Equal(t, uint64(1), stats.Dropped)
}

func TestLiveMetricsHandler(t *testing.T) {
	fetched := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeSnapshots{
		current: livemetrics.Snapshot{
			Metrics:   livemetrics.Metrics{ActiveVisitors: 4},
			FetchedAt: fetched,
		},
		refreshed: livemetrics.Snapshot{
			Metrics:   livemetrics.Metrics{ActiveVisitors: 4},
			FromCache: true,
			FetchedAt: fetched,
			LastError: "circuit breaker is open",
		},
	}
	h := &LiveMetricsHandler{Source: src, MaxAge: time.Minute}

	t.Run("current snapshot", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/live-metrics", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "live", rr.Header().Get("X-Data-Source"))
		assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
		assert.Equal(t, "true", rr.Header().Get("X-Data-Stale"))

		var snap livemetrics.Snapshot
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
		assert.Equal(t, 4, snap.Metrics.ActiveVisitors)
		assert.Equal(t, 0, src.refreshes)
	})

	t.Run("refresh falls back to cache", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/live-metrics?refresh=true", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "cache", rr.Header().Get("X-Data-Source"))
		assert.Equal(t, 1, src.refreshes)
	})
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		batcher    *fakeBatcher
		circuits   []Circuit
		wantCode   int
		wantStatus string
	}{
		{
			name:       "healthy",
			batcher:    &fakeBatcher{},
			circuits:   []Circuit{fakeCircuit{name: "delivery", state: gobreaker.StateClosed}},
			wantCode:   http.StatusOK,
			wantStatus: statusHealthy,
		},
		{
			name:    "open circuit degrades",
			batcher: &fakeBatcher{},
			circuits: []Circuit{
				fakeCircuit{name: "delivery", state: gobreaker.StateClosed},
				fakeCircuit{name: "live-metrics", state: gobreaker.StateOpen, failures: 5},
			},
			wantCode:   http.StatusOK,
			wantStatus: statusDegraded,
		},
		{
			name:       "half-open stays healthy",
			batcher:    &fakeBatcher{},
			circuits:   []Circuit{fakeCircuit{name: "delivery", state: gobreaker.StateHalfOpen}},
			wantCode:   http.StatusOK,
			wantStatus: statusHealthy,
		},
		{
			name:       "closed batcher is unhealthy",
			batcher:    &fakeBatcher{closed: true},
			circuits:   []Circuit{fakeCircuit{name: "delivery", state: gobreaker.StateOpen}},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: statusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &HealthHandler{Batcher: tt.batcher, Circuits: tt.circuits, Version: "1.2.3"}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantCode, rr.Code)
			var resp HealthResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, "1.2.3", resp.Version)
			assert.Contains(t, resp.Checks, "batcher")
			for _, c := range tt.circuits {
				assert.Contains(t, resp.Checks, "circuit:"+c.Name())
			}
		})
	}
}

func TestHealthHandler_NoBatcher(t *testing.T) {
	rr := httptest.NewRecorder()
	(&HealthHandler{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "not configured")
}

func TestCircuitsHandler(t *testing.T) {
	h := &CircuitsHandler{Circuits: []Circuit{
		fakeCircuit{name: "delivery", state: gobreaker.StateOpen, failures: 3},
		fakeCircuit{name: "live-metrics", state: gobreaker.StateClosed},
	}}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/circuits", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Circuits []CircuitInfo `json:"circuits"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, []CircuitInfo{
		{Name: "delivery", State: "open", ConsecutiveFailures: 3},
		{Name: "live-metrics", State: "closed"},
	}, body.Circuits)
}

func TestLiveHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	(&LiveHandler{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/live", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"alive"}`, rr.Body.String())
}

func TestLiveMetricsHandler_FreshSnapshotNotStale(t *testing.T) {
	src := &fakeSnapshots{current: livemetrics.Snapshot{FetchedAt: time.Now()}}
	h := &LiveMetricsHandler{Source: src, MaxAge: time.Minute}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/live-metrics", nil))

	assert.Empty(t, rr.Header().Get("X-Data-Stale"))
}
