package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/capitalize-ai/a2ui-playground/internal/llm"
	"github.com/capitalize-ai/a2ui-playground/internal/middleware"
	"github.com/capitalize-ai/a2ui-playground/internal/model"
	"github.com/capitalize-ai/a2ui-playground/internal/service"
	"github.com/capitalize-ai/a2ui-playground/pkg/logger"
)

// MessageHandler handles chat turn endpoints.
type MessageHandler struct {
	chat     *service.ChatService
	settings *service.SettingsService
	logger   *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(
	chat *service.ChatService,
	settings *service.SettingsService,
	log *logger.Logger,
) *MessageHandler {
	return &MessageHandler{
		chat:     chat,
		settings: settings,
		logger:   log,
	}
}

// Send handles POST /api/v1/conversations/{id}/messages
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := conversationID(w, r)
	if !ok {
		return
	}

	var req model.SendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	settings, err := h.settings.Current(ctx)
	if err != nil {
		writeServiceError(w, h.logger, "failed to load settings", err)
		return
	}

	result, err := h.chat.SendMessage(ctx, settings, service.TurnRequest{
		ConversationID: id,
		Content:        req.Content,
		Cursor:         req.Cursor,
	})
	if err != nil {
		var rce *llm.RemoteCallError
		if errors.As(err, &rce) && result != nil {
			writeJSON(w, http.StatusBadGateway, &model.TurnErrorResponse{
				Error:  err.Error(),
				Events: result.Events,
			})
			return
		}
		writeServiceError(w, h.logger, "failed to send message", err)
		return
	}

	writeJSON(w, http.StatusCreated, &model.SendMessageResponse{
		Events:           result.Events,
		Messages:         result.Messages,
		Cursor:           result.Cursor,
		ExtractionErrors: result.ExtractionErrors,
	})
}

// ChangeModel handles PUT /api/v1/conversations/{id}/model
func (h *MessageHandler) ChangeModel(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}

	var req model.ChangeModelRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateModelName(req.Model); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	event, err := h.chat.ChangeModel(r.Context(), id, req.Model)
	if err != nil {
		writeServiceError(w, h.logger, "failed to change model", err)
		return
	}

	h.logger.Debug("model change recorded", zap.String("event_id", event.ID))
	writeJSON(w, http.StatusOK, event)
}
