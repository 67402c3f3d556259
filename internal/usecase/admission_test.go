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

// admissionMocks bundles every port the admission service touches. Tests set
// expectations only for the calls they care about; the incidental metric and
// event writes are marked Maybe.
type admissionMocks struct {
	campaigns *mocks.MockCampaignRepository
	numbers   *mocks.MockPhoneNumberRepository
	calls     *mocks.MockCallRepository
	holdings  *mocks.MockSlotHoldingRepository
	registry  *mocks.MockSlotRegistry
	pending   *mocks.MockPendingQueue
	bus       *mocks.MockTaskBus
	metrics   *mocks.MockMetricsRepository
	events    *mocks.MockEventPublisher
}

func newAdmissionMocks() admissionMocks {
	m := admissionMocks{
		campaigns: &mocks.MockCampaignRepository{},
		numbers:   &mocks.MockPhoneNumberRepository{},
		calls:     &mocks.MockCallRepository{},
		holdings:  &mocks.MockSlotHoldingRepository{},
		registry:  &mocks.MockSlotRegistry{},
		pending:   &mocks.MockPendingQueue{},
		bus:       &mocks.MockTaskBus{},
		metrics:   &mocks.MockMetricsRepository{},
		events:    &mocks.MockEventPublisher{},
	}
	m.registry.On("Count", mock.Anything).Return(int64(1), nil).Maybe()
	m.metrics.On("Bump", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	m.events.On("PublishCallEvent", mock.Anything, mock.Anything).Return(nil).Maybe()
	return m
}

// service builds an AdmissionService capped at 2 concurrent calls and 3
// attempts.
func (m admissionMocks) service() usecase.AdmissionService {
	return usecase.NewAdmissionService(
		m.campaigns, m.numbers, m.calls, m.holdings, m.registry,
		m.pending, m.bus, m.metrics, m.events, 2, 3,
	)
}

func (m admissionMocks) assertAll(t *testing.T) {
	t.Helper()
	m.campaigns.AssertExpectations(t)
	m.numbers.AssertExpectations(t)
	m.calls.AssertExpectations(t)
	m.holdings.AssertExpectations(t)
	m.registry.AssertExpectations(t)
	m.pending.AssertExpectations(t)
	m.bus.AssertExpectations(t)
	m.metrics.AssertExpectations(t)
	m.events.AssertExpectations(t)
}

func activeCampaign(id int64) domain.Campaign {
	return domain.Campaign{ID: id, Name: "leads", Active: true, CreatedAt: time.Now().UTC()}
}

func TestInitiateCall_Immediate(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	m := newAdmissionMocks()
	m.campaigns.On("Get", mock.Anything, int64(7)).Return(activeCampaign(7), nil)
	m.registry.On("Acquire", mock.Anything, mock.Anything, "15551234567").Return(domain.AdmissionOk, nil)
	m.holdings.On("Insert", mock.Anything, mock.MatchedBy(func(h domain.SlotHolding) bool {
		return h.PhoneNumber == "15551234567" && h.CampaignID == 7
	})).Return(nil)
	m.calls.On("Create", mock.Anything, mock.MatchedBy(func(c domain.CallRecord) bool {
		return c.Status == domain.CallInitiated && c.AttemptCount == 1 && c.MaxAttempts == 3 &&
			c.PhoneNumber == "15551234567" && c.LastAttemptAt != nil
	})).Return(nil)
	m.bus.On("EnqueueInitiate", mock.Anything, mock.MatchedBy(func(p domain.InitiateTaskPayload) bool {
		return p.PhoneNumber == "15551234567" && p.CampaignID == 7 && p.CallID != ""
	})).Return("t-1", nil)

	rec, disp, err := m.service().InitiateCall(ctx, 7, "+1 (555) 123-4567")
	require.NoError(t, err)
	assert.Equal(t, usecase.DispositionImmediate, disp)
	assert.NotEmpty(t, rec.CallID)
	assert.Equal(t, domain.CallInitiated, rec.Status)
	m.assertAll(t)
}

func TestInitiateCall_InvalidNumber(t *testing.T) {
	t.Parallel()
	m := newAdmissionMocks()
	for _, bad := range []string{"", "123", "12ab3456789"} {
		_, _, err := m.service().InitiateCall(context.Background(), 7, bad)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	}
	m.calls.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestInitiateCall_CampaignNotFoundOrInactive(t *testing.T) {
	t.Parallel()
	m := newAdmissionMocks()
	m.campaigns.On("Get", mock.Anything, int64(1)).Return(domain.Campaign{}, domain.ErrNotFound)
	m.campaigns.On("Get", mock.Anything, int64(2)).Return(domain.Campaign{ID: 2, Active: false}, nil)

	svc := m.service()
	_, _, err := svc.InitiateCall(context.Background(), 1, "5551234567")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, _, err = svc.InitiateCall(context.Background(), 2, "5551234567")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	m.registry.AssertNotCalled(t, "Acquire", mock.Anything, mock.Anything, mock.Anything)
}

func TestInitiateCall_DuplicateInWindow(t *testing.T) {
	t.Parallel()
	m := newAdmissionMocks()
	m.campaigns.On("Get", mock.Anything, int64(7)).Return(activeCampaign(7), nil)
	m.registry.On("Acquire", mock.Anything, mock.Anything, "5551234567").Return(domain.AdmissionDuplicate, nil)

	_, _, err := m.service().InitiateCall(context.Background(), 7, "5551234567")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDuplicateCall)
	m.calls.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	m.holdings.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestInitiateCall_CapacityDeflectsToQueue(t *testing.T) {
	t.Parallel()
	m := newAdmissionMocks()
	m.campaigns.On("Get", mock.Anything, int64(7)).Return(activeCampaign(7), nil)
	m.registry.On("Acquire", mock.Anything, mock.Anything, "5551234567").Return(domain.AdmissionCapacityFull, nil)
	m.calls.On("Create", mock.Anything, mock.MatchedBy(func(c domain.CallRecord) bool {
		// Queued records have not dialed yet.
		return c.Status == domain.CallInitiated && c.LastAttemptAt == nil
	})).Return(nil)
	m.pending.On("PushBack", mock.Anything, mock.MatchedBy(func(e domain.QueueEntry) bool {
		return e.CampaignID == 7 && e.PhoneNumber == "5551234567" && e.CallID != ""
	})).Return(nil)
	m.bus.On("EnqueueQueueDrain", mock.Anything, int64(7), time.Duration(0)).Return("d-1", nil)

	rec, disp, err := m.service().InitiateCall(context.Background(), 7, "5551234567")
	require.NoError(t, err)
	assert.Equal(t, usecase.DispositionQueued, disp)
	assert.NotEmpty(t, rec.CallID)
	m.bus.AssertNotCalled(t, "EnqueueInitiate", mock.Anything, mock.Anything)
	m.holdings.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	m.assertAll(t)
}

func TestInitiateCall_EnqueueFailureRollsBack(t *testing.T) {
	t.Parallel()
	m := newAdmissionMocks()
	m.campaigns.On("Get", mock.Anything, int64(7)).Return(activeCampaign(7), nil)
	m.registry.On("Acquire", mock.Anything, mock.Anything, "5551234567").Return(domain.AdmissionOk, nil)
	m.holdings.On("Insert", mock.Anything, mock.Anything).Return(nil)
	m.calls.On("Create", mock.Anything, mock.Anything).Return(nil)
	m.bus.On("EnqueueInitiate", mock.Anything, mock.Anything).Return("", errors.New("redis down"))
	m.calls.On("Transition", mock.Anything, mock.Anything, mock.Anything).
		Return(func(_ context.Context, _ string, fn func(*domain.CallRecord) error) (domain.CallRecord, error) {
			rec := domain.CallRecord{Status: domain.CallInitiated}
			if err := fn(&rec); err != nil {
				return domain.CallRecord{}, err
			}
			require.Equal(t, domain.CallFailed, rec.Status)
			return rec, nil
		})
	m.holdings.On("Delete", mock.Anything, mock.Anything).Return(true, nil)
	m.registry.On("Release", mock.Anything, mock.Anything, "5551234567").Return(nil)

	_, _, err := m.service().InitiateCall(context.Background(), 7, "5551234567")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
	m.assertAll(t)
}

func TestStartTracking_InsertFailureRollsBack(t *testing.T) {
	t.Parallel()
	m := newAdmissionMocks()
	m.registry.On("Acquire", mock.Anything, "c-1", "5551234567").Return(domain.AdmissionOk, nil)
	m.holdings.On("Insert", mock.Anything, mock.Anything).Return(errors.New("pg down"))
	m.registry.On("Release", mock.Anything, "c-1", "5551234567").Return(nil)

	_, err := m.service().StartTracking(context.Background(), "c-1", "5551234567", 7)
	require.Error(t, err)
	m.assertAll(t)
}

func TestEndTracking_ReleasesExactlyOnce(t *testing.T) {
	t.Parallel()
	m := newAdmissionMocks()
	m.holdings.On("Delete", mock.Anything, "c-1").Return(true, nil).Once()
	m.holdings.On("Delete", mock.Anything, "c-1").Return(false, nil).Once()
	m.registry.On("Release", mock.Anything, "c-1", "5551234567").Return(nil).Once()

	svc := m.service()
	require.NoError(t, svc.EndTracking(context.Background(), "c-1", "5551234567"))
	require.NoError(t, svc.EndTracking(context.Background(), "c-1", "5551234567"))
	m.registry.AssertNumberOfCalls(t, "Release", 1)
	m.assertAll(t)
}

func TestEndTracking_ReleaseErrorIsSwallowed(t *testing.T) {
	t.Parallel()
	m := newAdmissionMocks()
	m.holdings.On("Delete", mock.Anything, "c-1").Return(true, nil)
	m.registry.On("Release", mock.Anything, "c-1", "5551234567").Return(errors.New("redis down"))

	// The holding is gone, so the transition must still commit; the lock
	// TTL cleans up the registry side.
	require.NoError(t, m.service().EndTracking(context.Background(), "c-1", "5551234567"))
	m.assertAll(t)
}

func TestBulkInitiate_MixedVerdicts(t *testing.T) {
	t.Parallel()
	m := newAdmissionMocks()
	m.campaigns.On("Get", mock.Anything, int64(7)).Return(activeCampaign(7), nil)
	m.registry.On("Acquire", mock.Anything, mock.Anything, mock.Anything).
		Return(func(_ context.Context, _ string, number string) (domain.AdmissionVerdict, error) {
			switch number {
			case "5550000001":
				return domain.AdmissionOk, nil
			case "5550000002":
				return domain.AdmissionCapacityFull, nil
			default:
				return domain.AdmissionDuplicate, nil
			}
		})
	m.holdings.On("Insert", mock.Anything, mock.Anything).Return(nil)
	m.calls.On("Create", mock.Anything, mock.Anything).Return(nil)
	m.bus.On("EnqueueInitiate", mock.Anything, mock.Anything).Return("t-1", nil)
	m.pending.On("PushBack", mock.Anything, mock.MatchedBy(func(e domain.QueueEntry) bool {
		// Bulk overflow parks bare numbers; records appear at drain time.
		return e.CallID == "" && e.PhoneNumber == "5550000002"
	})).Return(nil)
	m.bus.On("EnqueueQueueDrain", mock.Anything, int64(7), time.Duration(0)).Return("d-1", nil)
	m.pending.On("Size", mock.Anything, int64(7)).Return(int64(1), nil)

	res, err := m.service().BulkInitiate(context.Background(), 7,
		[]string{"5550000001", "5550000002", "5550000003", "junk"}, false)
	require.NoError(t, err)
	assert.Equal(t, 4, res.TotalRequested)
	assert.Equal(t, 1, res.ImmediateProcessed)
	assert.Equal(t, 1, res.QueuedForLater)
	assert.Equal(t, 2, res.Failed)
	assert.Len(t, res.CallIDs, 1)
	assert.Equal(t, int64(1), res.TotalInQueue)
	assert.Contains(t, res.Errors, "Call to 5550000003 already in progress")
	assert.NotEmpty(t, res.BatchID)
	m.assertAll(t)
}

func TestBulkInitiate_CampaignNumbers(t *testing.T) {
	t.Parallel()
	m := newAdmissionMocks()
	m.campaigns.On("Get", mock.Anything, int64(7)).Return(activeCampaign(7), nil)
	m.numbers.On("ListActive", mock.Anything, int64(7)).Return([]domain.PhoneNumber{
		{CampaignID: 7, Number: "5550000001", Active: true},
	}, nil)
	m.registry.On("Acquire", mock.Anything, mock.Anything, "5550000001").Return(domain.AdmissionOk, nil)
	m.holdings.On("Insert", mock.Anything, mock.Anything).Return(nil)
	m.calls.On("Create", mock.Anything, mock.Anything).Return(nil)
	m.bus.On("EnqueueInitiate", mock.Anything, mock.Anything).Return("t-1", nil)
	m.pending.On("Size", mock.Anything, int64(7)).Return(int64(0), nil)

	res, err := m.service().BulkInitiate(context.Background(), 7, nil, true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ImmediateProcessed)
	m.assertAll(t)
}

func TestBulkInitiate_NoNumbers(t *testing.T) {
	t.Parallel()
	m := newAdmissionMocks()
	m.campaigns.On("Get", mock.Anything, int64(7)).Return(activeCampaign(7), nil)
	m.numbers.On("ListActive", mock.Anything, int64(7)).Return(nil, nil)

	_, err := m.service().BulkInitiate(context.Background(), 7, nil, true)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestCanStart_ChecksCapacityBeforeDuplicate(t *testing.T) {
	t.Parallel()

	full := admissionMocks{
		campaigns: &mocks.MockCampaignRepository{}, numbers: &mocks.MockPhoneNumberRepository{},
		calls: &mocks.MockCallRepository{}, holdings: &mocks.MockSlotHoldingRepository{},
		registry: &mocks.MockSlotRegistry{}, pending: &mocks.MockPendingQueue{},
		bus: &mocks.MockTaskBus{}, metrics: &mocks.MockMetricsRepository{},
		events: &mocks.MockEventPublisher{},
	}
	full.registry.On("Count", mock.Anything).Return(int64(2), nil)
	verdict, err := full.service().CanStart(context.Background(), "5551234567")
	require.NoError(t, err)
	assert.Equal(t, domain.AdmissionCapacityFull, verdict)
	full.registry.AssertNotCalled(t, "HasLock", mock.Anything, mock.Anything)

	m := newAdmissionMocks()
	m.registry.On("HasLock", mock.Anything, "5551234567").Return(true, nil)
	verdict, err = m.service().CanStart(context.Background(), "5551234567")
	require.NoError(t, err)
	assert.Equal(t, domain.AdmissionDuplicate, verdict)
}

func TestCanStart_RegistryOutage(t *testing.T) {
	t.Parallel()
	m := newAdmissionMocks()
	m.registry.On("HasLock", mock.Anything, "5551234567").Return(false, errors.New("redis down"))

	_, err := m.service().CanStart(context.Background(), "5551234567")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
}
