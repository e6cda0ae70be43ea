// Package api provides HTTP handlers for the Shipyard API.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/artpar/shipyard/internal/core/domain"
	"github.com/artpar/shipyard/internal/core/graph"
	"github.com/artpar/shipyard/internal/core/manifest"
	"github.com/artpar/shipyard/internal/core/migration"
	"github.com/artpar/shipyard/internal/engine"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// =============================================================================
// Handler
// =============================================================================

// Handler provides HTTP handlers for the API.
type Handler struct {
	engine   *engine.Engine
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// NewHandler creates a new API handler. gatherer backs the /metrics
// endpoint; pass the registry the engine's metrics were registered on.
func NewHandler(e *engine.Engine, gatherer prometheus.Gatherer, l *slog.Logger) *Handler {
	if l == nil {
		l = slog.Default()
	}
	return &Handler{
		engine:   e,
		gatherer: gatherer,
		logger:   l.With("component", "api"),
	}
}

// Routes returns the router with all routes configured.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.jsonContentType)
	r.Use(h.requestIDHeader)

	// Operational endpoints
	r.Get("/health", h.handleHealth)
	r.Get("/ready", h.handleReady)
	if h.gatherer != nil {
		r.Method(http.MethodGet, "/metrics",
			promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/plans", func(r chi.Router) {
			r.Post("/", h.handleCreatePlan)
			r.Get("/{id}", h.handleGetPlan)
			r.Get("/{id}/status", h.handlePlanStatus)
			r.Post("/{id}/validate", h.handleValidatePlan)
			r.Post("/{id}/execute", h.handleExecutePlan)
			r.Post("/{id}/rollback", h.handleRollbackPlan)
		})

		r.Route("/artifacts", func(r chi.Router) {
			r.Post("/", h.handleBuildArtifact)
			r.Post("/gc", h.handleGCArtifacts)
			r.Get("/{hash}", h.handleGetArtifact)
		})

		r.Route("/migrations", func(r chi.Router) {
			r.Post("/", h.handlePlanMigration)
			r.Get("/{id}", h.handleMigrationStatus)
			r.Post("/{id}/expand", h.handleExpandMigration)
			r.Post("/{id}/migrate", h.handleMigrateMigration)
			r.Post("/{id}/contract", h.handleContractMigration)
		})

		r.Route("/rollouts", func(r chi.Router) {
			r.Post("/", h.handleBeginRollout)
			r.Get("/{id}", h.handleRolloutStatus)
			r.Post("/{id}/advance", h.handleAdvanceRollout)
			r.Post("/{id}/pause", h.handlePauseRollout)
			r.Post("/{id}/resume", h.handleResumeRollout)
			r.Post("/{id}/abort", h.handleAbortRollout)
		})

		r.Route("/health", func(r chi.Router) {
			r.Post("/units", h.handleCheckUnit)
			r.Post("/links", h.handleCheckLink)
			r.Get("/plans/{id}", h.handleCheckPlan)
			r.Post("/invariants", h.handleCheckInvariant)
		})
	})

	return r
}

// =============================================================================
// Middleware
// =============================================================================

// jsonContentType sets Content-Type header to application/json.
func (h *Handler) jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// requestIDHeader copies the request ID to the response header.
func (h *Handler) requestIDHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			w.Header().Set("X-Request-ID", reqID)
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Operational Handlers
// =============================================================================

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)

	if err := h.engine.Store.ProbeRoundTrip(r.Context(), "readiness"); err != nil {
		checks["database"] = "failed"
		h.writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{
			Status: "not_ready",
			Checks: checks,
		})
		return
	}
	checks["database"] = "ok"

	h.writeJSON(w, http.StatusOK, ReadyResponse{
		Status: "ready",
		Checks: checks,
	})
}

// =============================================================================
// Helpers
// =============================================================================

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode JSON", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message, code string) {
	h.writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// writeServiceError maps an engine or core error onto the API error
// taxonomy: 400 for validation failures, 404 for missing entities, 409 for
// state conflicts and structural problems, 500 otherwise.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var (
		phaseErr    *domain.PhaseError
		cycleErr    *graph.CycleError
		manifestErr *manifest.InvalidManifestError
		incompatErr *migration.IncompatibleError
	)

	switch {
	case errors.As(err, &manifestErr),
		errors.Is(err, manifest.ErrEmptyManifest),
		errors.Is(err, domain.ErrUnknownStrategy),
		errors.Is(err, domain.ErrNoSteps),
		errors.Is(err, domain.ErrInvalidWeight):
		h.writeError(w, http.StatusBadRequest, err.Error(), "validation_error")
	case errors.Is(err, engine.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error(), "not_found")
	case errors.As(err, &cycleErr):
		h.writeError(w, http.StatusConflict, err.Error(), "circular_dependency")
	case errors.As(err, &incompatErr):
		h.writeError(w, http.StatusConflict, err.Error(), "incompatible_versions")
	case errors.As(err, &phaseErr), errors.Is(err, domain.ErrInvalidTransition):
		h.writeError(w, http.StatusConflict, err.Error(), "state_conflict")
	case errors.Is(err, engine.ErrConflict):
		h.writeError(w, http.StatusConflict, err.Error(), "version_conflict")
	default:
		h.logger.Error("request failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal error", "internal_error")
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", "validation_error")
		return false
	}
	return true
}
