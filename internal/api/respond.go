package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/serroba/opsportal/internal/apperr"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to encode response")
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeError renders an operation error with the status of its kind.
func writeError(w http.ResponseWriter, err error) {
	writeMessage(w, statusOf(err), apperr.Message(err))
}

func statusOf(err error) int {
	switch kind := apperr.KindOf(err); {
	case errors.Is(kind, apperr.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(kind, apperr.ErrNotAuthorized), errors.Is(kind, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(kind, apperr.ErrOwnership):
		return http.StatusForbidden
	case errors.Is(kind, apperr.ErrInvalid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decode reads a JSON body into v, answering 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")

		return false
	}

	return true
}

// pathID parses the named path segment as a positive id, answering 400 on
// failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		writeMessage(w, http.StatusBadRequest, "invalid "+name)

		return 0, false
	}

	return id, true
}

// queryFolderID parses the optional folderId query parameter. Missing or
// "root" means the drive root.
func queryFolderID(w http.ResponseWriter, r *http.Request) (*int64, bool) {
	raw := r.URL.Query().Get("folderId")
	if raw == "" || raw == "root" {
		return nil, true
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid folderId")

		return nil, false
	}

	return &id, true
}

func queryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}

	return n
}
