package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/Lumen/internal/core/diagrams"
)

type DiagramHandler struct {
	poller *diagrams.Poller
}

func NewDiagramHandler(poller *diagrams.Poller) *DiagramHandler {
	return &DiagramHandler{poller: poller}
}

// Status polls the detector once. The body is always a status document.
func (h *DiagramHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.poller.FetchDiagramStatus(r.Context(), chi.URLParam(r, "id")))
}

func (h *DiagramHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.poller.GetDiagrams(r.Context(), chi.URLParam(r, "id")))
}
