package main

import (
	"log/slog"

	"sitepulse/internal/config"
	"sitepulse/internal/domain/entity"
	"sitepulse/internal/infra/delivery"
	"sitepulse/internal/resilience/circuitbreaker"
	"sitepulse/internal/usecase/livemetrics"
	"sitepulse/internal/usecase/track"
)

// newSender returns the HTTP sender and its breaker, or a no-op sender and
// a nil breaker when delivery is disabled.
func newSender(cfg *config.AgentConfig) (track.Sender, *circuitbreaker.CircuitBreaker, error) {
	if !cfg.DeliveryEnabled() {
		slog.Warn("DELIVERY_ENDPOINT not set, events will be discarded")
		return delivery.NewNoOpSender(), nil, nil
	}

	sender, err := delivery.NewHTTPSender(deliveryConfig(cfg))
	if err != nil {
		return nil, nil, err
	}
	return sender, sender.Breaker(), nil
}

func deliveryConfig(cfg *config.AgentConfig) delivery.Config {
	dc := delivery.DefaultConfig(cfg.DeliveryEndpoint)
	dc.RequestsPerSecond = cfg.DeliveryRateLimit
	dc.Burst = cfg.DeliveryBurst
	dc.Fetch.BearerToken = cfg.DeliveryToken
	dc.Fetch.DenyPrivateIPs = cfg.DenyPrivateIPs
	return dc
}

func trackConfig(cfg *config.AgentConfig) track.Config {
	tc := track.DefaultConfig()
	tc.FlushInterval = cfg.FlushInterval
	tc.MaxBatchSize = cfg.MaxBatchSize
	tc.MaxQueueSize = cfg.MaxQueueSize
	tc.MaxEventAge = cfg.MaxEventAge
	tc.MaxDeliveryAttempts = cfg.MaxDeliveryAttempts
	tc.KeepaliveTimeout = cfg.KeepaliveTimeout
	if len(cfg.CriticalEvents) > 0 {
		tc.CriticalEvents = append([]string(nil), cfg.CriticalEvents...)
	}
	tc.OnDeliveryFailure = func(batch entity.Batch, err error) {
		slog.Warn("batch delivery failed",
			slog.String("batch_id", batch.ID),
			slog.Int("batch_size", batch.Len()),
			slog.Any("error", err))
	}
	return tc
}

func liveMetricsConfig(cfg *config.AgentConfig) livemetrics.Config {
	lc := livemetrics.DefaultConfig(cfg.LiveMetricsURL)
	lc.Schedule = cfg.LiveMetricsSchedule
	lc.Fetch.DenyPrivateIPs = cfg.DenyPrivateIPs
	return lc
}
