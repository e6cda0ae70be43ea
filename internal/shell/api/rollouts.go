package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// =============================================================================
// Rollout Handlers
// =============================================================================

func (h *Handler) handleBeginRollout(w http.ResponseWriter, r *http.Request) {
	var req BeginRolloutRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Plan == "" {
		h.writeError(w, http.StatusBadRequest, "plan is required", "validation_error")
		return
	}

	ro, err := h.engine.Rollouts.Begin(r.Context(), req.Plan, req.Strategy, req.Steps, req.SuccessCriteria, req.AutoRollback)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, ro)
}

func (h *Handler) handleRolloutStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.engine.Rollouts.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, status)
}

func (h *Handler) handleAdvanceRollout(w http.ResponseWriter, r *http.Request) {
	outcome, ro, err := h.engine.Rollouts.Advance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, AdvanceRolloutResponse{Outcome: string(outcome), Rollout: ro})
}

func (h *Handler) handlePauseRollout(w http.ResponseWriter, r *http.Request) {
	var req PauseRolloutRequest
	if r.ContentLength > 0 && !h.decode(w, r, &req) {
		return
	}

	ro, err := h.engine.Rollouts.Pause(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ro)
}

func (h *Handler) handleResumeRollout(w http.ResponseWriter, r *http.Request) {
	ro, err := h.engine.Rollouts.Resume(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ro)
}

func (h *Handler) handleAbortRollout(w http.ResponseWriter, r *http.Request) {
	outcome, ro, err := h.engine.Rollouts.Abort(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, AdvanceRolloutResponse{Outcome: string(outcome), Rollout: ro})
}
