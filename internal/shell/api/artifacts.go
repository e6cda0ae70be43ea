package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// =============================================================================
// Artifact Handlers
// =============================================================================

func (h *Handler) handleBuildArtifact(w http.ResponseWriter, r *http.Request) {
	var req BuildArtifactRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Concept == "" {
		h.writeError(w, http.StatusBadRequest, "concept is required", "validation_error")
		return
	}

	art, created, err := h.engine.Artifacts.Build(r.Context(), req.Concept, req.Spec, req.Implementation, req.Deps)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.writeJSON(w, status, BuildArtifactResponse{Artifact: art, Created: created})
}

func (h *Handler) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	art, err := h.engine.Artifacts.Get(r.Context(), chi.URLParam(r, "hash"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, art)
}

func (h *Handler) handleGCArtifacts(w http.ResponseWriter, r *http.Request) {
	var req GCArtifactsRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.KeepVersions < 0 {
		h.writeError(w, http.StatusBadRequest, "keep_versions must not be negative", "validation_error")
		return
	}

	result, err := h.engine.Artifacts.GC(r.Context(), req.OlderThan, req.KeepVersions)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, GCArtifactsResponse{
		Removed:    len(result.Victims),
		FreedBytes: result.FreedBytes,
	})
}
