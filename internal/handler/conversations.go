// Package handler provides HTTP handlers for the API.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/capitalize-ai/a2ui-playground/internal/middleware"
	"github.com/capitalize-ai/a2ui-playground/internal/model"
	"github.com/capitalize-ai/a2ui-playground/internal/service"
	"github.com/capitalize-ai/a2ui-playground/pkg/logger"
)

// ConversationHandler handles conversation endpoints.
type ConversationHandler struct {
	service *service.ConversationService
	logger  *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(svc *service.ConversationService, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		service: svc,
		logger:  log,
	}
}

// conversationID extracts and validates the {id} route parameter.
func conversationID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return id, true
}

// Create handles POST /api/v1/conversations
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	conv, err := h.service.Create(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "failed to create conversation", err)
		return
	}

	writeJSON(w, http.StatusCreated, conv)
}

// List handles GET /api/v1/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.List(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "failed to list conversations", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/conversations/{id}
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}

	conv, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, "failed to get conversation", err)
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// Events handles GET /api/v1/conversations/{id}/events
func (h *ConversationHandler) Events(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}

	events, err := h.service.Events(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, "failed to load events", err)
		return
	}

	writeJSON(w, http.StatusOK, &model.ListEventsResponse{
		ConversationID: id,
		Events:         events,
	})
}

// View handles GET /api/v1/conversations/{id}/view?cursor=N
func (h *ConversationHandler) View(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}

	cursor, err := middleware.ParseCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := h.service.View(r.Context(), id, cursor)
	if err != nil {
		writeServiceError(w, h.logger, "failed to build view", err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// Clear handles POST /api/v1/conversations/{id}/clear
func (h *ConversationHandler) Clear(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}

	if err := h.service.Clear(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, "failed to clear conversation", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/v1/conversations/{id}
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, "failed to delete conversation", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
