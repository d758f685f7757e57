// Package livemetrics keeps a recent snapshot of the site's live metrics.
// The snapshot is refreshed from the metrics source on a cron schedule and
// falls back to the last good value whenever the source is unavailable.
package livemetrics

import "time"

// Metrics is the JSON object served by the metrics source.
type Metrics struct {
	ActiveVisitors    int       `json:"active_visitors"`
	PageViews         int64     `json:"page_views"`
	UniqueVisitors    int64     `json:"unique_visitors"`
	Conversions       int64     `json:"conversions"`
	BounceRate        float64   `json:"bounce_rate"`
	AvgSessionSeconds float64   `json:"avg_session_seconds"`
	TopPages          []Page    `json:"top_pages,omitempty"`
	GeneratedAt       time.Time `json:"generated_at,omitzero"`
}

// Page is one entry of the top pages list.
type Page struct {
	Path  string `json:"path"`
	Views int64  `json:"views"`
}

// Snapshot is the value handed to readers.
type Snapshot struct {
	Metrics Metrics `json:"metrics"`

	// FromCache is true when the last refresh failed and Metrics is the
	// previous good value (or the zero value before any success).
	FromCache bool `json:"from_cache"`

	// FetchedAt is when Metrics was last fetched successfully.
	FetchedAt time.Time `json:"fetched_at,omitzero"`

	// LastError is the cause of the last failed refresh.
	LastError string `json:"last_error,omitempty"`
}

// Stale reports whether the snapshot is older than maxAge at now.
// A snapshot that was never fetched is always stale.
func (s Snapshot) Stale(now time.Time, maxAge time.Duration) bool {
	if s.FetchedAt.IsZero() {
		return true
	}
	return now.Sub(s.FetchedAt) > maxAge
}
