package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/capitalize-ai/a2ui-playground/internal/llm"
	"github.com/capitalize-ai/a2ui-playground/internal/probe"
	"github.com/capitalize-ai/a2ui-playground/internal/service"
	"github.com/capitalize-ai/a2ui-playground/internal/store"
	"github.com/capitalize-ai/a2ui-playground/pkg/logger"
)

const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// decodeJSON decodes a bounded request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var verr *service.ValidationError
	var rce *llm.RemoteCallError
	var perr *probe.ProbeError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotConfigured):
		return http.StatusPreconditionFailed
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrTurnInFlight):
		return http.StatusConflict
	case errors.As(err, &rce), errors.As(err, &perr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError writes err with its mapped status. Internal errors are
// logged and reported without detail.
func writeServiceError(w http.ResponseWriter, log *logger.Logger, msg string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error(msg, zap.Error(err))
		writeError(w, status, msg)
		return
	}
	writeError(w, status, err.Error())
}
