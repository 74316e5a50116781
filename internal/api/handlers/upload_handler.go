package handlers

import (
	"errors"
	"io"
	"net/http"

	middleware "github.com/markdave123-py/Lumen/internal/api/middlewares"
	"github.com/markdave123-py/Lumen/internal/core"
	"github.com/markdave123-py/Lumen/internal/models"
	"github.com/markdave123-py/Lumen/internal/services"
)

// DefaultMaxUploadBytes caps a multipart document upload.
const DefaultMaxUploadBytes = 50 << 20

type UploadHandler struct {
	uploads  *services.UploadService
	sessions *services.SessionService
	maxBytes int64
}

func NewUploadHandler(uploads *services.UploadService, sessions *services.SessionService, maxBytes int64) *UploadHandler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &UploadHandler{uploads: uploads, sessions: sessions, maxBytes: maxBytes}
}

type videoUploadRequest struct {
	VideoURL string `json:"video_url"`
}

// UploadVideo records the video and returns 202 with its id.
func (h *UploadHandler) UploadVideo(w http.ResponseWriter, r *http.Request) {
	id, err := h.submitVideo(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"video_id": id})
}

// UploadDocument stores the file and returns 202 with the document id.
func (h *UploadHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	id, err := h.submitDocument(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"document_id": id})
}

// UploadVideoSession submits a video and opens a session for it.
func (h *UploadHandler) UploadVideoSession(w http.ResponseWriter, r *http.Request) {
	id, err := h.submitVideo(r)
	if err != nil {
		writeError(w, err)
		return
	}
	h.openSession(w, r, id, models.KindVideo)
}

// UploadDocumentSession submits a document and opens a session for it.
func (h *UploadHandler) UploadDocumentSession(w http.ResponseWriter, r *http.Request) {
	id, err := h.submitDocument(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	h.openSession(w, r, id, models.KindDocument)
}

func (h *UploadHandler) submitVideo(r *http.Request) (string, error) {
	var req videoUploadRequest
	if err := decodeJSON(r, &req); err != nil {
		return "", err
	}
	return h.uploads.SubmitVideo(r.Context(), middleware.TokenFrom(r.Context()), req.VideoURL)
}

func (h *UploadHandler) submitDocument(w http.ResponseWriter, r *http.Request) (string, error) {
	const op = "read upload"

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", core.NewError(core.ErrInvalidInput, op, "file is too large")
		}
		return "", core.WrapError(core.ErrInvalidInput, op, err)
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", core.NewError(core.ErrInvalidInput, op, "file is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", core.WrapError(core.ErrInvalidInput, op, err)
	}

	return h.uploads.SubmitDocument(r.Context(), middleware.TokenFrom(r.Context()), services.DocumentUpload{
		Title:       r.FormValue("title"),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
}

func (h *UploadHandler) openSession(w http.ResponseWriter, r *http.Request, artifactID string, kind models.ArtifactKind) {
	view, err := h.sessions.CreateSessionForArtifact(r.Context(), middleware.TokenFrom(r.Context()), artifactID, kind)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}
