package fetcher_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitepulse/internal/infra/fetcher"
	"sitepulse/internal/observability/metrics"
	"sitepulse/internal/resilience/circuitbreaker"
	"sitepulse/internal/resilience/retry"
)

func TestFetchWithFallback_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"visitors": 12, "status": "live"}`))
	}))
	defer server.Close()

	client := fetcher.New(testConfig("fallback-success"))

	res := fetcher.FetchWithFallback(context.Background(), client,
		fetcher.Request{URL: server.URL}, payload{Status: "cached"})

	assert.False(t, res.FromCache)
	assert.NoError(t, res.Err)
	assert.Equal(t, payload{Visitors: 12, Status: "live"}, res.Data)
}

func TestFetchWithFallback_ClientErrorSingleRequest(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := fetcher.New(testConfig("fallback-404"))
	fallback := payload{Visitors: 3, Status: "cached"}

	res := fetcher.FetchWithFallback(context.Background(), client, fetcher.Request{URL: server.URL}, fallback)

	assert.True(t, res.FromCache)
	assert.Equal(t, fallback, res.Data)
	assert.Equal(t, int32(1), requests.Load())

	var clientErr *fetcher.ClientError
	require.True(t, errors.As(res.Err, &clientErr))
	assert.Equal(t, http.StatusNotFound, clientErr.StatusCode)
}

func TestFetchWithFallback_ExhaustedRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := fetcher.New(testConfig("fallback-exhausted"))
	before := testutil.ToFloat64(metrics.FetchFallbackTotal.WithLabelValues("fallback-exhausted", "exhausted"))

	res := fetcher.FetchWithFallback(context.Background(), client, fetcher.Request{URL: server.URL}, []string{"stale"})

	assert.True(t, res.FromCache)
	assert.Equal(t, []string{"stale"}, res.Data)
	assert.ErrorIs(t, res.Err, retry.ErrMaxAttemptsExceeded)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.FetchFallbackTotal.WithLabelValues("fallback-exhausted", "exhausted")))
}

func TestFetchWithFallback_OpenCircuit(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testConfig("fallback-open")
	cfg.Breaker.FailureThreshold = 3
	cfg.Retry.MaxAttempts = 1
	client := fetcher.New(cfg)

	for i := 0; i < 3; i++ {
		res := fetcher.FetchWithFallback(context.Background(), client, fetcher.Request{URL: server.URL}, 0)
		require.True(t, res.FromCache)
	}

	before := testutil.ToFloat64(metrics.FetchFallbackTotal.WithLabelValues("fallback-open", "circuit_open"))

	res := fetcher.FetchWithFallback(context.Background(), client, fetcher.Request{URL: server.URL}, 99)

	assert.True(t, res.FromCache)
	assert.Equal(t, 99, res.Data)
	assert.ErrorIs(t, res.Err, circuitbreaker.ErrOpen)
	assert.Equal(t, int32(3), requests.Load())
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.FetchFallbackTotal.WithLabelValues("fallback-open", "circuit_open")))
}

func TestFetchWithFallback_NeverReturnsErrorForInvalidURL(t *testing.T) {
	client := fetcher.New(testConfig("fallback-invalid"))

	res := fetcher.FetchWithFallback(context.Background(), client, fetcher.Request{URL: "::not a url"}, "fallback")

	assert.True(t, res.FromCache)
	assert.Equal(t, "fallback", res.Data)
	assert.ErrorIs(t, res.Err, fetcher.ErrInvalidURL)
}
