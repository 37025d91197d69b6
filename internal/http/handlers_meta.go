package httpx

import (
	"io"
	"net/http"

	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/service"
)

const healthResponse = `{"status":"ok"}`

// healthHandler returns a simple 200 OK status for readiness/liveness checks.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.WriteString(w, healthResponse); err != nil {
		// Nothing more to do if the client connection is gone.
		return
	}
}

// serviceDescriptor is the static API information served at the root.
var serviceDescriptor = map[string]any{
	"service": "Masumi Make.com Proxy",
	"version": "1.0.0",
	"status":  "operational",
	"endpoints": map[string]string{
		"input_schema": "/input_schema",
		"availability": "/availability",
		"start_job":    "/start_job (POST)",
		"job_status":   "/status?job_id=xxx",
	},
}

// rootHandler serves the API descriptor.
func rootHandler(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, serviceDescriptor)
}

// inputSchema describes the input fields a purchaser must provide.
var inputSchema = map[string]any{
	"csv_url": map[string]any{
		"type":        "string",
		"description": "URL to CSV file containing contact information (Name, Email, Company, Website columns)",
		"required":    true,
		"example":     "https://example.com/contacts.csv",
	},
}

// inputSchemaHandler serves the expected input schema for the agent.
func inputSchemaHandler(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, inputSchema)
}

// AvailabilityHandlers provides the HTTP handler for the availability check.
type AvailabilityHandlers struct {
	Svc *service.AvailabilityService
}

// Check reports whether the proxy can currently accept jobs. The endpoint
// always answers 200; degraded configuration or storage is reported in the
// body.
func (h *AvailabilityHandlers) Check(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.Svc.Check(r.Context()))
}
