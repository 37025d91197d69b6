package httpx

import (
	"log/slog"
	"net/http"

	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Jobs         *service.JobService
	Availability *service.AvailabilityService
	Logger       *slog.Logger // Logger for HTTP errors (optional)
}

// NewRouter creates and configures a new HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	jobHandlers := &JobHandlers{Svc: services.Jobs}
	availabilityHandlers := &AvailabilityHandlers{Svc: services.Availability}

	registerJobRoutes(mux, jobHandlers)
	registerMetaRoutes(mux, availabilityHandlers)

	return mux
}

func registerJobRoutes(mux *http.ServeMux, h *JobHandlers) {
	mux.HandleFunc("POST /start_job", h.StartJob)
	mux.HandleFunc("GET /status", h.GetStatus)
}

func registerMetaRoutes(mux *http.ServeMux, h *AvailabilityHandlers) {
	// "/{$}" matches the bare root only; a plain "/" pattern would swallow
	// every unmatched path.
	mux.HandleFunc("GET /{$}", rootHandler)
	mux.Handle("GET /health", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /health", http.HandlerFunc(healthHandler))
	mux.HandleFunc("GET /input_schema", inputSchemaHandler)
	mux.HandleFunc("GET /availability", h.Check)
}
