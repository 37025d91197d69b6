package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/adapters/payment"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/data"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/domain/model"
	apperrors "github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/errors"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/mocks"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/testutil"
)

type stubWatcher struct {
	mu   sync.Mutex
	jobs []*model.Job
}

func (s *stubWatcher) Watch(job *model.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job.Clone())
}

func (s *stubWatcher) watched() []*model.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slicesCloneJobs(s.jobs)
}

func slicesCloneJobs(jobs []*model.Job) []*model.Job {
	out := make([]*model.Job, len(jobs))
	copy(out, jobs)
	return out
}

func paymentTerms(blockchainID string) *model.PaymentRequest {
	raw := `{"blockchainIdentifier":"` + blockchainID + `","payByTime":"1750000000","submitResultTime":"1750600000"}`
	return &model.PaymentRequest{
		BlockchainID: blockchainID,
		Raw:          json.RawMessage(raw),
	}
}

func startRequest() *model.StartJobRequest {
	return &model.StartJobRequest{
		IdentifierFromPurchaser: "purchaser-ext-1",
		InputData: []model.InputItem{
			{Key: "csv_url", Value: "https://example.com/leads.csv"},
		},
	}
}

func newTestJobService(t *testing.T, opts func(*JobServiceOptions)) (*JobService, *data.MemoryJobStore, *stubGateway, *stubWatcher) {
	t.Helper()

	store := data.NewMemoryJobStore()
	gateway := &stubGateway{}
	watcher := &stubWatcher{}

	serviceOpts := JobServiceOptions{
		Store:   store,
		Gateway: gateway,
		Watcher: watcher,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:     testutil.FixedTimeFunc(testutil.TestTime()),
		NewID:   func() string { return "job-fixed" },
	}
	if opts != nil {
		opts(&serviceOpts)
	}

	svc, err := NewJobService(serviceOpts)
	require.NoError(t, err)
	return svc, store, gateway, watcher
}

func TestNewJobServiceValidation(t *testing.T) {
	_, err := NewJobService(JobServiceOptions{})
	require.ErrorContains(t, err, "Store is required")
}

func TestJobService_Create(t *testing.T) {
	svc, store, gateway, watcher := newTestJobService(t, nil)
	gateway.createFn = func(purchaserID string, input []model.InputItem) (*model.PaymentRequest, error) {
		assert.Equal(t, "purchaser-ext-1", purchaserID)
		require.Len(t, input, 1)
		assert.Equal(t, "csv_url", input[0].Key)
		return paymentTerms("block-123"), nil
	}

	job, err := svc.Create(context.Background(), startRequest())
	require.NoError(t, err)

	assert.Equal(t, "job-fixed", job.ID)
	assert.Equal(t, model.JobStatusAwaitingPayment, job.Status)
	assert.Equal(t, "purchaser-ext-1", job.PurchaserID)
	assert.Equal(t, "block-123", job.BlockchainID)
	assert.Contains(t, string(job.Payment), "payByTime")
	assert.True(t, job.CreatedAt.Equal(testutil.TestTime()))

	stored, err := store.Get(context.Background(), "job-fixed")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusAwaitingPayment, stored.Status)

	watched := watcher.watched()
	require.Len(t, watched, 1)
	assert.Equal(t, "job-fixed", watched[0].ID)
	assert.Equal(t, "block-123", watched[0].BlockchainID)
}

func TestJobService_Create_NoBlockchainIdentifier(t *testing.T) {
	svc, _, gateway, watcher := newTestJobService(t, nil)
	gateway.createFn = func(string, []model.InputItem) (*model.PaymentRequest, error) {
		return &model.PaymentRequest{Raw: json.RawMessage(`{"note":"no identifier"}`)}, nil
	}

	job, err := svc.Create(context.Background(), startRequest())
	require.NoError(t, err)
	assert.Empty(t, job.BlockchainID)
	require.Len(t, watcher.watched(), 1)
}

func TestJobService_Create_WebhookNotConfigured(t *testing.T) {
	svc, store, _, _ := newTestJobService(t, func(opts *JobServiceOptions) {
		opts.Watcher = nil
	})

	_, err := svc.Create(context.Background(), startRequest())
	require.Error(t, err)
	assert.True(t, apperrors.IsConfiguration(err))
	assert.Equal(t, "Make.com webhook not configured", err.Error())
	assert.Equal(t, 0, store.Len())
}

func TestJobService_Create_PaymentNotConfigured(t *testing.T) {
	svc, store, _, _ := newTestJobService(t, func(opts *JobServiceOptions) {
		opts.Gateway = nil
	})

	_, err := svc.Create(context.Background(), startRequest())
	require.Error(t, err)
	assert.True(t, apperrors.IsConfiguration(err))
	assert.Equal(t, "Payment service not configured", err.Error())
	assert.Equal(t, 0, store.Len())
}

func TestJobService_Create_InvalidRequest(t *testing.T) {
	svc, _, _, _ := newTestJobService(t, nil)

	_, err := svc.Create(context.Background(), &model.StartJobRequest{})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.Create(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestJobService_Create_PaymentRejected(t *testing.T) {
	svc, store, gateway, watcher := newTestJobService(t, nil)
	gateway.createFn = func(string, []model.InputItem) (*model.PaymentRequest, error) {
		return nil, &payment.RejectionError{StatusCode: 402, Body: `{"error":"insufficient funds"}`}
	}

	_, err := svc.Create(context.Background(), startRequest())
	require.Error(t, err)
	assert.True(t, apperrors.IsPaymentRejected(err))
	assert.Contains(t, err.Error(), "Payment service error: ")
	assert.Contains(t, err.Error(), "insufficient funds")

	var rejection *payment.RejectionError
	require.ErrorAs(t, err, &rejection)
	assert.Equal(t, 402, rejection.StatusCode)

	assert.Equal(t, 0, store.Len())
	assert.Empty(t, watcher.watched())
}

func TestJobService_Create_PaymentUnreachable(t *testing.T) {
	svc, store, gateway, watcher := newTestJobService(t, nil)
	gateway.createFn = func(string, []model.InputItem) (*model.PaymentRequest, error) {
		return nil, errors.New("payment request failed: dial tcp: connection refused")
	}

	_, err := svc.Create(context.Background(), startRequest())
	require.Error(t, err)
	assert.True(t, apperrors.IsOracleUnavailable(err))
	assert.Equal(t, 0, store.Len())
	assert.Empty(t, watcher.watched())
}

func TestJobService_Create_InsertFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockJobStore(ctrl)
	store.EXPECT().
		Insert(gomock.Any(), gomock.Any()).
		Return(errors.New("connection reset"))

	gateway := &stubGateway{
		createFn: func(string, []model.InputItem) (*model.PaymentRequest, error) {
			return paymentTerms("block-9"), nil
		},
	}
	watcher := &stubWatcher{}

	svc := MustNewJobService(JobServiceOptions{
		Store:   store,
		Gateway: gateway,
		Watcher: watcher,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	_, err := svc.Create(context.Background(), startRequest())
	require.ErrorContains(t, err, "connection reset")
	assert.Empty(t, watcher.watched())
}

func TestJobService_GetStatus(t *testing.T) {
	svc, store, _, _ := newTestJobService(t, nil)

	seed := testutil.NewJob("job-55").WithMessage("Make.com processing completed").Build()
	require.NoError(t, store.Insert(context.Background(), seed))

	job, err := svc.GetStatus(context.Background(), "job-55")
	require.NoError(t, err)
	assert.Equal(t, "job-55", job.ID)
	assert.Equal(t, "Make.com processing completed", job.Message)
}

func TestJobService_GetStatus_NotFound(t *testing.T) {
	svc, _, _, _ := newTestJobService(t, nil)

	_, err := svc.GetStatus(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
	assert.ErrorIs(t, err, data.ErrJobNotFound)
}

func TestJobService_GetStatus_EmptyID(t *testing.T) {
	svc, _, _, _ := newTestJobService(t, nil)

	_, err := svc.GetStatus(context.Background(), "  ")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "job_id", apperrors.GetField(err))
}
