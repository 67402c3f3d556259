package redpanda

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/domain"
)

func TestNewPublisher_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewPublisher(nil, "call-events")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no seed brokers")

	_, err = NewPublisher([]string{"localhost:19092"}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "topic")
}

func TestBuildRecord_RequiresCallID(t *testing.T) {
	t.Parallel()

	_, err := buildRecord("call-events", domain.CallEvent{EventType: domain.EventCallback})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestBuildRecord_ShapesWireRecord(t *testing.T) {
	t.Parallel()

	occurred := time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)
	rec, err := buildRecord("call-events", domain.CallEvent{
		EventType:   domain.EventCallInitiation,
		CallID:      "c-1",
		CampaignID:  7,
		PhoneNumber: "15551234567",
		Status:      domain.CallInitiated,
		OccurredAt:  occurred,
	})
	require.NoError(t, err)

	assert.Equal(t, "call-events", rec.Topic)
	assert.Equal(t, []byte("c-1"), rec.Key)
	require.Len(t, rec.Headers, 2)
	assert.Equal(t, "event_type", rec.Headers[0].Key)
	assert.Equal(t, []byte(domain.EventCallInitiation), rec.Headers[0].Value)
	assert.Equal(t, "campaign_id", rec.Headers[1].Key)
	assert.Equal(t, []byte("7"), rec.Headers[1].Value)

	var e domain.CallEvent
	require.NoError(t, json.Unmarshal(rec.Value, &e))
	assert.Equal(t, "c-1", e.CallID)
	assert.Equal(t, int64(7), e.CampaignID)
	assert.Equal(t, "15551234567", e.PhoneNumber)
	assert.Equal(t, domain.CallInitiated, e.Status)
	assert.True(t, e.OccurredAt.Equal(occurred))
}

func TestBuildRecord_StampsMissingOccurredAt(t *testing.T) {
	t.Parallel()

	before := time.Now().UTC()
	rec, err := buildRecord("call-events", domain.CallEvent{
		EventType: domain.EventCallback,
		CallID:    "c-2",
	})
	require.NoError(t, err)

	var e domain.CallEvent
	require.NoError(t, json.Unmarshal(rec.Value, &e))
	assert.False(t, e.OccurredAt.IsZero())
	assert.False(t, e.OccurredAt.Before(before))
}
