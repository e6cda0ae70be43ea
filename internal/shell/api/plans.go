package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// =============================================================================
// Plan Handlers
// =============================================================================

func (h *Handler) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req CreatePlanRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Environment == "" {
		h.writeError(w, http.StatusBadRequest, "environment is required", "validation_error")
		return
	}

	plan, err := h.engine.Planner.Plan(r.Context(), req.Manifest, req.Environment)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, plan)
}

func (h *Handler) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.engine.Planner.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, plan)
}

func (h *Handler) handlePlanStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.engine.Planner.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, status)
}

func (h *Handler) handleValidatePlan(w http.ResponseWriter, r *http.Request) {
	result, err := h.engine.Planner.Validate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleExecutePlan(w http.ResponseWriter, r *http.Request) {
	var req ExecutePlanRequest
	if r.ContentLength > 0 && !h.decode(w, r, &req) {
		return
	}

	plan, err := h.engine.Planner.Execute(r.Context(), chi.URLParam(r, "id"), req.FailNodes)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, plan)
}

func (h *Handler) handleRollbackPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.engine.Planner.Rollback(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, plan)
}
