package httpx

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/data"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/service"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	store := data.NewMemoryJobStore()
	jobs := service.MustNewJobService(service.JobServiceOptions{Store: store})
	availability := service.MustNewAvailabilityService(service.AvailabilityServiceOptions{
		Store:             store,
		WebhookConfigured: true,
		PaymentConfigured: true,
	})
	return NewRouter(RouterServices{Jobs: jobs, Availability: availability})
}

func TestRouter_Endpoints(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{name: "root descriptor", method: http.MethodGet, path: "/", wantStatus: http.StatusOK},
		{name: "health", method: http.MethodGet, path: "/health", wantStatus: http.StatusOK},
		{name: "health head", method: http.MethodHead, path: "/health", wantStatus: http.StatusOK},
		{name: "input schema", method: http.MethodGet, path: "/input_schema", wantStatus: http.StatusOK},
		{name: "availability", method: http.MethodGet, path: "/availability", wantStatus: http.StatusOK},
		{name: "status without id", method: http.MethodGet, path: "/status", wantStatus: http.StatusBadRequest},
		{name: "status unknown id", method: http.MethodGet, path: "/status?job_id=nope", wantStatus: http.StatusNotFound},
		{name: "start job bad json", method: http.MethodPost, path: "/start_job", body: "{bad", wantStatus: http.StatusBadRequest},
		{name: "start job wrong method", method: http.MethodGet, path: "/start_job", wantStatus: http.StatusMethodNotAllowed},
		{name: "unknown path", method: http.MethodGet, path: "/nope", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body *strings.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			} else {
				body = strings.NewReader("")
			}
			r := httptest.NewRequest(tt.method, tt.path, body)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
