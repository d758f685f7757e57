package track

import (
	"fmt"
	"time"

	"sitepulse/internal/domain/entity"
)

// DefaultCriticalEvents are the event names that are flushed as soon as they
// are tracked.
var DefaultCriticalEvents = []string{
	"conversion",
	"error",
	"user_identified",
	"signup",
	"purchase",
	"contact_submitted",
}

// Config holds the batcher configuration.
type Config struct {
	// FlushInterval is the period of the background flush.
	// Default: 10s
	FlushInterval time.Duration

	// MaxBatchSize is the queue length that triggers an immediate flush.
	// Default: 20
	MaxBatchSize int

	// MaxQueueSize bounds the queue. When full, the oldest non-critical event
	// is dropped first, then the oldest critical one.
	// Default: 1000
	MaxQueueSize int

	// MaxEventAge drops events older than this at flush time.
	// Default: 24h
	MaxEventAge time.Duration

	// MaxDeliveryAttempts drops an event after this many failed deliveries.
	// Default: 5
	MaxDeliveryAttempts int

	// FlushTimeout bounds a background flush.
	// Default: 30s
	FlushTimeout time.Duration

	// KeepaliveTimeout bounds the final flush started by Destroy, which runs
	// detached from any caller context.
	// Default: 5s
	KeepaliveTimeout time.Duration

	// CriticalEvents are the names Track flushes immediately.
	// Default: DefaultCriticalEvents
	CriticalEvents []string

	// Session is the context stamped on events created by Track.
	Session entity.SessionContext

	// OnDeliveryFailure, when set, is called after every failed flush with
	// the batch that was attempted.
	OnDeliveryFailure func(batch entity.Batch, err error)

	// Now overrides the clock used for timestamps and age checks.
	Now func() time.Time
}

// DefaultConfig returns the default batcher configuration.
func DefaultConfig() Config {
	critical := make([]string, len(DefaultCriticalEvents))
	copy(critical, DefaultCriticalEvents)

	return Config{
		FlushInterval:       10 * time.Second,
		MaxBatchSize:        20,
		MaxQueueSize:        1000,
		MaxEventAge:         24 * time.Hour,
		MaxDeliveryAttempts: 5,
		FlushTimeout:        30 * time.Second,
		KeepaliveTimeout:    5 * time.Second,
		CriticalEvents:      critical,
	}
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if c.FlushInterval <= 0 {
		return fmt.Errorf("flush interval must be positive, got %v", c.FlushInterval)
	}
	if c.MaxBatchSize < 1 {
		return fmt.Errorf("max batch size must be at least 1, got %d", c.MaxBatchSize)
	}
	if c.MaxQueueSize < c.MaxBatchSize {
		return fmt.Errorf("max queue size (%d) must not be smaller than max batch size (%d)", c.MaxQueueSize, c.MaxBatchSize)
	}
	if c.MaxEventAge <= 0 {
		return fmt.Errorf("max event age must be positive, got %v", c.MaxEventAge)
	}
	if c.MaxDeliveryAttempts < 1 {
		return fmt.Errorf("max delivery attempts must be at least 1, got %d", c.MaxDeliveryAttempts)
	}
	if c.FlushTimeout <= 0 {
		return fmt.Errorf("flush timeout must be positive, got %v", c.FlushTimeout)
	}
	if c.KeepaliveTimeout <= 0 {
		return fmt.Errorf("keepalive timeout must be positive, got %v", c.KeepaliveTimeout)
	}
	return nil
}
