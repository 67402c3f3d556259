package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/domain"
	"github.com/fairyhunter13/call-campaign-orchestrator/internal/domain/mocks"
	"github.com/fairyhunter13/call-campaign-orchestrator/internal/usecase"
)

func TestOverview_Operational(t *testing.T) {
	t.Parallel()
	metrics := &mocks.MockMetricsRepository{}
	registry := &mocks.MockSlotRegistry{}
	registry.On("Count", mock.Anything).Return(int64(12), nil)
	metrics.On("Recent", mock.Anything, 7).Return([]domain.DailyMetrics{
		{Date: time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), CallsInitiated: 40, CallsPicked: 22},
	}, nil)
	svc := usecase.NewMetricsService(metrics, registry, &mocks.MockCampaignRepository{}, &mocks.MockPendingQueue{}, 30)

	out := svc.Overview(context.Background())
	assert.Equal(t, int64(12), out.CurrentConcurrentCalls)
	assert.Equal(t, int64(30), out.MaxConcurrentCalls)
	assert.Equal(t, "operational", out.SystemStatus)
	require.Len(t, out.Recent, 1)
	assert.Equal(t, int64(40), out.Recent[0].CallsInitiated)
}

func TestOverview_DegradesInsteadOfFailing(t *testing.T) {
	t.Parallel()
	metrics := &mocks.MockMetricsRepository{}
	registry := &mocks.MockSlotRegistry{}
	registry.On("Count", mock.Anything).Return(int64(0), errors.New("redis down"))
	metrics.On("Recent", mock.Anything, 7).Return(nil, nil)
	svc := usecase.NewMetricsService(metrics, registry, &mocks.MockCampaignRepository{}, &mocks.MockPendingQueue{}, 30)

	out := svc.Overview(context.Background())
	assert.Equal(t, "degraded", out.SystemStatus)
	assert.Zero(t, out.CurrentConcurrentCalls)
	assert.Equal(t, int64(30), out.MaxConcurrentCalls)
}

func TestQueueDepths_SkipsUnreadableQueues(t *testing.T) {
	t.Parallel()
	campaigns := &mocks.MockCampaignRepository{}
	pending := &mocks.MockPendingQueue{}
	campaigns.On("ListActive", mock.Anything).Return([]domain.Campaign{
		{ID: 1, Name: "alpha", Active: true},
		{ID: 2, Name: "beta", Active: true},
	}, nil)
	pending.On("Size", mock.Anything, int64(1)).Return(int64(4), nil)
	pending.On("Size", mock.Anything, int64(2)).Return(int64(0), errors.New("redis down"))
	svc := usecase.NewMetricsService(&mocks.MockMetricsRepository{}, &mocks.MockSlotRegistry{}, campaigns, pending, 30)

	depths, err := svc.QueueDepths(context.Background())
	require.NoError(t, err)
	require.Len(t, depths, 1)
	assert.Equal(t, usecase.QueueDepth{CampaignID: 1, CampaignName: "alpha", Size: 4}, depths[0])
}
