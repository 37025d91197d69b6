package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/data"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/service"
)

func TestHealthHandler(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	healthHandler(w, r)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestHealthHandler_Head(t *testing.T) {
	r := httptest.NewRequest(http.MethodHead, "/health", nil)
	w := httptest.NewRecorder()

	healthHandler(w, r)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, w.Body.String())
}

func TestRootHandler(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	rootHandler(w, r)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{
		"service": "Masumi Make.com Proxy",
		"version": "1.0.0",
		"status": "operational",
		"endpoints": {
			"input_schema": "/input_schema",
			"availability": "/availability",
			"start_job": "/start_job (POST)",
			"job_status": "/status?job_id=xxx"
		}
	}`, w.Body.String())
}

func TestInputSchemaHandler(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/input_schema", nil)
	w := httptest.NewRecorder()

	inputSchemaHandler(w, r)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{
		"csv_url": {
			"type": "string",
			"description": "URL to CSV file containing contact information (Name, Email, Company, Website columns)",
			"required": true,
			"example": "https://example.com/contacts.csv"
		}
	}`, w.Body.String())
}

func newAvailabilityHandlers(t *testing.T, webhook, payment bool) *AvailabilityHandlers {
	t.Helper()
	svc, err := service.NewAvailabilityService(service.AvailabilityServiceOptions{
		Store:             data.NewMemoryJobStore(),
		WebhookConfigured: webhook,
		PaymentConfigured: payment,
	})
	require.NoError(t, err)
	return &AvailabilityHandlers{Svc: svc}
}

func TestAvailabilityHandler_Online(t *testing.T) {
	h := newAvailabilityHandlers(t, true, true)

	r := httptest.NewRequest(http.MethodGet, "/availability", nil)
	w := httptest.NewRecorder()

	h.Check(w, r)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{
		"status": "available",
		"message": "LinkedIn Outreach Email Generator is online",
		"uptime": "operational"
	}`, w.Body.String())
}

func TestAvailabilityHandler_Degraded(t *testing.T) {
	h := newAvailabilityHandlers(t, false, true)

	r := httptest.NewRequest(http.MethodGet, "/availability", nil)
	w := httptest.NewRecorder()

	h.Check(w, r)

	resp := w.Result()
	defer resp.Body.Close()

	// Degraded configuration still answers 200 with the status in the body.
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{
		"status": "unavailable",
		"message": "Make.com webhook not configured"
	}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "uptime")
}
