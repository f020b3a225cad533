package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rajasatyajit/QuakeAlert/internal/models"
)

// Store is the read side the API needs
type Store interface {
	ListNotifications(ctx context.Context, q models.NotificationQuery) ([]models.NotificationRecord, error)
	Health(ctx context.Context) error
}

// Cycler runs one polling cycle on demand
type Cycler interface {
	RunCycle(ctx context.Context, sourceKey string) (models.CycleResult, error)
}

// Handler handles HTTP requests for the API
type Handler struct {
	store     Store
	cycler    Cycler
	version   string
	buildTime string
	gitCommit string
	startTime time.Time
}

// NewHandler creates a new API handler
func NewHandler(store Store, cycler Cycler, version, buildTime, gitCommit string) *Handler {
	return &Handler{
		store:     store,
		cycler:    cycler,
		version:   version,
		buildTime: buildTime,
		gitCommit: gitCommit,
		startTime: time.Now(),
	}
}

// RegisterRoutes registers all API routes. trigger wraps the routes that
// start a polling cycle, typically with a rate limiter.
func (h *Handler) RegisterRoutes(r chi.Router, trigger ...func(http.Handler) http.Handler) {
	r.Route("/v1", func(r chi.Router) {
		// Health check endpoints
		r.Get("/health", h.healthHandler)
		r.Get("/health/ready", h.readinessHandler)
		r.Get("/health/live", h.livenessHandler)

		r.With(trigger...).Post("/check/{source}", h.checkHandler)
		r.Get("/notifications", h.notificationsHandler)

		// System info
		r.Get("/version", h.versionHandler)
	})

	// Endpoints kept for mobile clients built against the first release
	r.Route("/api", func(r chi.Router) {
		r.Use(trigger...)
		r.Post("/check-afad", h.legacyCheck(models.SourceAFAD))
		r.Post("/check-kandilli", h.legacyCheck(models.SourceKandilli))
		r.Post("/check-emsc", h.legacyCheck(models.SourceEMSC))
	})

	// Root health check
	r.Get("/health", h.healthHandler)
}

type healthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version,omitempty"`
	Uptime    string            `json:"uptime,omitempty"`
	Scheduler string            `json:"scheduler,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
}

func (h *Handler) healthHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSONResponse(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   h.version,
	})
}

// readinessHandler fails while the ledger store is unreachable, since a cycle
// would then fail at subscriber loading.
func (h *Handler) readinessHandler(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ready",
		Timestamp: time.Now().UTC(),
		Checks:    map[string]string{"store": "ok"},
	}
	statusCode := http.StatusOK

	if err := h.store.Health(r.Context()); err != nil {
		resp.Status = "not_ready"
		resp.Checks["store"] = "error: " + err.Error()
		statusCode = http.StatusServiceUnavailable
	}

	h.writeJSONResponse(w, statusCode, resp)
}

func (h *Handler) livenessHandler(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "alive",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}
	if s, ok := h.cycler.(interface{ IsRunning() bool }); ok {
		resp.Scheduler = "idle"
		if s.IsRunning() {
			resp.Scheduler = "running"
		}
	}

	h.writeJSONResponse(w, http.StatusOK, resp)
}

func (h *Handler) versionHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSONResponse(w, http.StatusOK, map[string]string{
		"version":    h.version,
		"build_time": h.buildTime,
		"git_commit": h.gitCommit,
	})
}

// writeJSONResponse writes a JSON response
func (h *Handler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeErrorResponse writes a standardized error response
func (h *Handler) writeErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	response := ErrorResponse{
		Error:     http.StatusText(statusCode),
		Message:   message,
		Timestamp: time.Now().UTC(),
		RequestID: middleware.GetReqID(r.Context()),
	}

	h.writeJSONResponse(w, statusCode, response)
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}
