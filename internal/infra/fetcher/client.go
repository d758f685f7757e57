// Package fetcher provides a resilient HTTP client for JSON endpoints.
//
// Every call goes through retry (outer) and a circuit breaker (inner), so each
// attempt is one breaker sample and an open circuit stops the retry loop.
package fetcher

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"sitepulse/internal/observability/metrics"
	"sitepulse/internal/observability/tracing"
	"sitepulse/internal/resilience/circuitbreaker"
	"sitepulse/internal/resilience/retry"
)

// maxErrorBodyLength bounds the response body kept in error values.
const maxErrorBodyLength = 256

// Request describes one logical call.
type Request struct {
	// Method defaults to GET, or POST when Body is set.
	Method string

	// URL is the absolute http(s) URL.
	URL string

	// Header is added to every attempt.
	Header http.Header

	// Body is JSON-encoded once and replayed on every attempt.
	Body any
}

// Client performs HTTP calls to a single dependency.
//
// Thread safety: Client is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	cfg        Config
	name       string
}

// New creates a Client with its own circuit breaker.
//
// Example:
//
//	client := fetcher.New(fetcher.DefaultConfig(circuitbreaker.LiveMetricsConfig(), retry.MetricsSourceConfig()))
//	var m Metrics
//	err := client.Do(ctx, fetcher.Request{URL: url}, &m)
func New(cfg Config) *Client {
	c := &Client{
		breaker: circuitbreaker.New(cfg.Breaker),
		cfg:     cfg,
		name:    cfg.Breaker.Name,
	}

	c.httpClient = &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > c.cfg.MaxRedirects {
				return fmt.Errorf("%w: %d redirects", ErrTooManyRedirects, len(via))
			}
			if err := validateURL(req.Context(), req.URL, c.cfg.DenyPrivateIPs); err != nil {
				return fmt.Errorf("redirect target validation failed: %w", err)
			}
			return nil
		},
	}

	return c
}

// Name returns the dependency name used in logs and metrics.
func (c *Client) Name() string {
	return c.name
}

// Breaker exposes the client's circuit breaker for health reporting.
func (c *Client) Breaker() *circuitbreaker.CircuitBreaker {
	return c.breaker
}

// Do performs req and decodes a 2xx JSON response into out (which may be nil).
//
// Errors:
//   - *ClientError for 4xx (returned after a single attempt, 408 excepted)
//   - *ServerError for 5xx, *RateLimitError for 429 (retried)
//   - circuitbreaker.ErrOpen when the circuit rejects an attempt
//   - retry.ErrMaxAttemptsExceeded wrapping the last error on exhaustion
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	start := time.Now()
	defer func() {
		metrics.RecordFetchDuration(c.name, time.Since(start))
	}()

	method := req.Method
	if method == "" {
		method = http.MethodGet
		if req.Body != nil {
			method = http.MethodPost
		}
	}

	ctx, span := tracing.GetTracer().Start(ctx, "fetcher.Do",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("dependency", c.name),
			attribute.String("http.method", method),
		))
	defer span.End()

	err := c.do(ctx, span, method, req, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (c *Client) do(ctx context.Context, span trace.Span, method string, req Request, out any) error {
	u, err := parseURL(ctx, req.URL, c.cfg.DenyPrivateIPs)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.String("http.url", u.Redacted()))

	var body []byte
	if req.Body != nil {
		body, err = json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	attempts := 0
	_, err = retry.Do(ctx, c.cfg.Retry, func(attemptCtx context.Context) (struct{}, error) {
		attempts++
		span.AddEvent("attempt", trace.WithAttributes(attribute.Int("attempt", attempts)))
		return circuitbreaker.Call(c.breaker, func() (struct{}, error) {
			return struct{}{}, c.attempt(attemptCtx, method, u, req.Header, body, out)
		})
	})
	span.SetAttributes(attribute.Int("attempts", attempts))
	return err
}

// attempt performs exactly one HTTP round trip.
func (c *Client) attempt(ctx context.Context, method string, u *url.URL, header http.Header, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %v", ErrInvalidURL, err)
	}
	for key, values := range header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	if c.cfg.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	if c.cfg.BearerToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.BearerToken)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		metrics.RecordFetchAttempt(c.name, "network_error")
		// Redirect policy failures are terminal
		var urlErr *url.Error
		if errors.As(err, &urlErr) && (errors.Is(urlErr.Err, ErrTooManyRedirects) ||
			errors.Is(urlErr.Err, ErrPrivateIP) || errors.Is(urlErr.Err, ErrInvalidURL)) {
			return urlErr.Err
		}
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodySize+1))
	if err != nil {
		metrics.RecordFetchAttempt(c.name, "network_error")
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(data)) > c.cfg.MaxBodySize {
		return fmt.Errorf("%w: exceeds limit %d bytes", ErrBodyTooLarge, c.cfg.MaxBodySize)
	}

	switch code := resp.StatusCode; {
	case code == http.StatusTooManyRequests:
		metrics.RecordFetchAttempt(c.name, "rate_limited")
		return &RateLimitError{
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
			Message:    fmt.Sprintf("HTTP 429: %s", truncate(data)),
		}
	case code >= 500:
		metrics.RecordFetchAttempt(c.name, "server_error")
		return &ServerError{StatusCode: code, Body: truncate(data)}
	case code < 200 || code >= 300:
		metrics.RecordFetchAttempt(c.name, "client_error")
		return &ClientError{StatusCode: code, Body: truncate(data)}
	}

	metrics.RecordFetchAttempt(c.name, "success")

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}

// parseRetryAfter accepts delta-seconds or an HTTP date; anything else yields 0.
func parseRetryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

func truncate(data []byte) string {
	s := string(bytes.TrimSpace(data))
	if len(s) > maxErrorBodyLength {
		return s[:maxErrorBodyLength] + "..."
	}
	return s
}
