package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// =============================================================================
// Health Check Handlers
// =============================================================================

func (h *Handler) handleCheckUnit(w http.ResponseWriter, r *http.Request) {
	var req CheckUnitRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Target == "" {
		h.writeError(w, http.StatusBadRequest, "target is required", "validation_error")
		return
	}

	check, err := h.engine.Health.CheckUnit(r.Context(), req.Target)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, check)
}

func (h *Handler) handleCheckLink(w http.ResponseWriter, r *http.Request) {
	var req CheckLinkRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Link == "" || len(req.Units) == 0 {
		h.writeError(w, http.StatusBadRequest, "link and units are required", "validation_error")
		return
	}

	check, err := h.engine.Health.CheckLink(r.Context(), req.Link, req.Units)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, check)
}

func (h *Handler) handleCheckPlan(w http.ResponseWriter, r *http.Request) {
	environment := r.URL.Query().Get("environment")
	verdict, err := h.engine.Health.CheckPlan(r.Context(), chi.URLParam(r, "id"), environment)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, verdict)
}

func (h *Handler) handleCheckInvariant(w http.ResponseWriter, r *http.Request) {
	var req CheckInvariantRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Unit == "" || req.Invariant == "" {
		h.writeError(w, http.StatusBadRequest, "unit and invariant are required", "validation_error")
		return
	}

	check, err := h.engine.Health.CheckInvariant(r.Context(), req.Unit, req.Invariant)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, check)
}
