// Package resilience provides fault tolerance patterns for calls to unreliable endpoints.
//
// The package supports:
//   - Circuit breakers that stop calling an endpoint after consecutive failures
//   - Retry logic with exponential backoff and per-attempt timeouts
//
// Retries wrap the breaker so each attempt is one breaker sample:
//
//	cb := circuitbreaker.New(circuitbreaker.AnalyticsConfig())
//	err := retry.WithBackoff(ctx, retry.DeliveryConfig(), func() error {
//	    _, err := cb.Execute(func() (interface{}, error) {
//	        return nil, send(ctx)
//	    })
//	    return err
//	})
package resilience
