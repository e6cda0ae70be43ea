package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// =============================================================================
// Migration Handlers
// =============================================================================

func (h *Handler) handlePlanMigration(w http.ResponseWriter, r *http.Request) {
	var req PlanMigrationRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Concept == "" {
		h.writeError(w, http.StatusBadRequest, "concept is required", "validation_error")
		return
	}

	result, err := h.engine.Migrations.PlanMigration(r.Context(), req.Concept, req.FromVersion, req.ToVersion)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	status := http.StatusCreated
	if result.NoMigrationNeeded {
		status = http.StatusOK
	}
	h.writeJSON(w, status, result)
}

func (h *Handler) handleMigrationStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.engine.Migrations.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, status)
}

func (h *Handler) handleExpandMigration(w http.ResponseWriter, r *http.Request) {
	m, err := h.engine.Migrations.Expand(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, m)
}

func (h *Handler) handleMigrateMigration(w http.ResponseWriter, r *http.Request) {
	m, err := h.engine.Migrations.Migrate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, m)
}

func (h *Handler) handleContractMigration(w http.ResponseWriter, r *http.Request) {
	result, err := h.engine.Migrations.Contract(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	status := http.StatusOK
	if result.RollbackRequired {
		status = http.StatusConflict
	}
	h.writeJSON(w, status, result)
}
