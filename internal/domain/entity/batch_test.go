package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBatch(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	events := []TrackedEvent{
		NewTrackedEvent("page_view", nil, SessionContext{Path: "/"}, nil, now),
		NewTrackedEvent("click", nil, SessionContext{Path: "/"}, nil, now),
	}

	a := NewBatch(events)
	b := NewBatch(events)

	_, err := uuid.Parse(a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID, "same events keep the same ID across retries")
	assert.Equal(t, 2, a.Len())

	grown := NewBatch(append(append([]TrackedEvent(nil), events...),
		NewTrackedEvent("scroll", nil, SessionContext{Path: "/"}, nil, now)))
	assert.NotEqual(t, a.ID, grown.ID)

	reordered := NewBatch([]TrackedEvent{events[1], events[0]})
	assert.NotEqual(t, a.ID, reordered.ID)
}

func TestBatch_JSONOmitsID(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	batch := NewBatch([]TrackedEvent{
		NewTrackedEvent("conversion", map[string]any{"plan": "pro"}, SessionContext{Path: "/pricing"}, nil, now),
	})

	data, err := json.Marshal(batch)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded, 1)
	require.Contains(t, decoded, "events")
	assert.Len(t, decoded["events"], 1)
}
