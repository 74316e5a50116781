package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	middleware "github.com/markdave123-py/Lumen/internal/api/middlewares"
	"github.com/markdave123-py/Lumen/internal/core"
	"github.com/markdave123-py/Lumen/internal/models"
	"github.com/markdave123-py/Lumen/internal/services"
)

type SessionHandler struct {
	sessions *services.SessionService
}

func NewSessionHandler(sessions *services.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

type createSessionRequest struct {
	ArtifactID string `json:"artifact_id"`
	Kind       string `json:"kind"`
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	kind, ok := models.ParseArtifactKind(req.Kind)
	if !ok {
		writeError(w, core.NewError(core.ErrInvalidInput, "create session", "kind must be video or document"))
		return
	}

	view, err := h.sessions.CreateSessionForArtifact(r.Context(), middleware.TokenFrom(r.Context()), req.ArtifactID, kind)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// List always answers 200; an empty list covers every failure.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessions.ListSessionsForUser(r.Context(), middleware.TokenFrom(r.Context())))
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.sessions.GetSessionForUser(r.Context(), middleware.TokenFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.DeleteSession(r.Context(), middleware.TokenFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
