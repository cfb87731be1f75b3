package common

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/stacklok/toolhive-assetsync/internal/service"
	"github.com/stacklok/toolhive-assetsync/internal/syncerr"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// WriteJSONResponse writes a JSON response with the given data
func WriteJSONResponse(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// WriteErrorResponse writes a standardized error response
func WriteErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	WriteJSONResponse(w, ErrorResponse{Error: message}, statusCode)
}

// WriteError writes err with the HTTP status matching its failure kind
func WriteError(w http.ResponseWriter, err error) {
	statusCode := StatusForError(err)
	if statusCode >= http.StatusInternalServerError {
		slog.Error("Request failed", "error", err)
	}
	code := syncerr.CodeOf(err).String()
	w.Header().Set(syncerr.HTTPHeader, code)
	WriteJSONResponse(w, ErrorResponse{
		Error: err.Error(),
		Code:  code,
	}, statusCode)
}

// StatusForError maps an engine or service error to an HTTP status code
func StatusForError(err error) int {
	if errors.Is(err, service.ErrResourceNotFound) {
		return http.StatusNotFound
	}
	switch syncerr.CodeOf(err) {
	case syncerr.CodeValidation:
		return http.StatusBadRequest
	case syncerr.CodeNotFound, syncerr.CodeRefNotFound:
		return http.StatusNotFound
	case syncerr.CodeNetwork:
		return http.StatusBadGateway
	case syncerr.CodeBusy, syncerr.CodeNotStarted:
		return http.StatusServiceUnavailable
	case syncerr.CodeCancelled:
		return http.StatusRequestTimeout
	case syncerr.CodeIntegrity:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
