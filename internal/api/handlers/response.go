package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/markdave123-py/Lumen/internal/core"
)

type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps an error kind to its HTTP status. Unclassified errors are
// reported as 500 without their text.
func writeError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	writeJSON(w, status, errorEnvelope{Error: apiError{Message: msg, Code: code}})
}

func statusFor(err error) (int, string) {
	switch {
	case core.IsKind(err, core.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case core.IsKind(err, core.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case core.IsKind(err, core.ErrIdentityNotFound):
		return http.StatusUnauthorized, "identity_not_found"
	case core.IsKind(err, core.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case core.IsKind(err, core.ErrConflict):
		return http.StatusConflict, "conflict"
	case core.IsKind(err, core.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable, "upstream_unavailable"
	case core.IsKind(err, core.ErrUpstreamMalformed):
		return http.StatusBadGateway, "upstream_malformed"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return core.NewError(core.ErrInvalidInput, "decode body", "request body is empty")
		}
		return core.WrapError(core.ErrInvalidInput, "decode body", err)
	}
	return nil
}
