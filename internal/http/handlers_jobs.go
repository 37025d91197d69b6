// Package httpx provides the HTTP surface of the payment-gated job proxy.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/adapters/payment"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/domain/model"
	apperrors "github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/errors"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/service"
)

// startJobMessage is returned alongside the payment terms on job creation.
const startJobMessage = "Payment request created. Please send payment to proceed."

// JobHandlers provides HTTP handlers for job creation and status lookup.
type JobHandlers struct {
	Svc *service.JobService
}

// StartJob handles HTTP requests to create a new payment-gated job.
func (h *JobHandlers) StartJob(w http.ResponseWriter, r *http.Request) {
	var req model.StartJobRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	job, err := h.Svc.Create(r.Context(), &req)
	if err != nil {
		writeStartJobError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, startJobResponse(job))
}

// startJobResponse merges the payment service's creation response into the
// proxy's own envelope. Payment service fields win on key conflicts so
// callers see the terms exactly as the service issued them.
func startJobResponse(job *model.Job) map[string]any {
	payload := map[string]any{
		"status":  "success",
		"job_id":  job.ID,
		"message": startJobMessage,
	}

	if len(job.Payment) > 0 {
		var terms map[string]any
		if err := json.Unmarshal(job.Payment, &terms); err == nil {
			for key, value := range terms {
				payload[key] = value
			}
		}
	}

	return payload
}

// writeStartJobError maps job creation failures onto the wire contract:
// missing configuration and unreachable payment service are 500s, payment
// service rejections pass the upstream status code through, and invalid
// requests are 400s.
func writeStartJobError(w http.ResponseWriter, err error) {
	var rejection *payment.RejectionError
	switch {
	case apperrors.IsConfiguration(err):
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "not_configured", Err: err})
	case errors.As(err, &rejection):
		WriteError(w, ErrorParams{Code: rejection.StatusCode, ErrCode: "payment_rejected", Err: err})
	case apperrors.IsValidation(err):
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_request", Err: err})
	default:
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "start_job_failed", Err: err})
	}
}

// GetStatus handles HTTP requests to retrieve the status of a specific job.
func (h *JobHandlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("job_id")

	job, err := h.Svc.GetStatus(r.Context(), jobID)
	if err != nil {
		switch {
		case apperrors.IsValidation(err):
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_request", Err: err})
		case apperrors.IsNotFound(err):
			WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "job_not_found", Err: err})
		default:
			WriteError(
				w,
				ErrorParams{Code: http.StatusInternalServerError, ErrCode: "get_status_failed", Err: errors.New("failed to get job status")},
			)
		}
		return
	}

	WriteJSON(w, http.StatusOK, job.StatusResponse())
}
