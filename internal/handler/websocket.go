package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/capitalize-ai/a2ui-playground/internal/debugbus"
	"github.com/capitalize-ai/a2ui-playground/internal/middleware"
	"github.com/capitalize-ai/a2ui-playground/internal/model"
	"github.com/capitalize-ai/a2ui-playground/pkg/logger"
	"github.com/capitalize-ai/a2ui-playground/pkg/metrics"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

// WebSocketHandler pushes newly appended debug events to websocket observers.
// Delivery is best effort; observers re-fetch the log after reconnecting.
type WebSocketHandler struct {
	hub      *debugbus.Hub
	upgrader websocket.Upgrader
	logger   *logger.Logger
}

// NewWebSocketHandler creates a websocket handler. checkOrigin may be nil to
// accept any origin.
func NewWebSocketHandler(hub *debugbus.Hub, checkOrigin func(*http.Request) bool, log *logger.Logger) *WebSocketHandler {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		logger: log,
	}
}

// Serve handles GET /ws?conversation_id=... An empty conversation_id observes
// every conversation.
func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conversationID := r.URL.Query().Get("conversation_id")
	if conversationID != "" {
		if err := middleware.ValidateConversationID(conversationID); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	metrics.IncrementObservers("websocket")
	defer metrics.DecrementObservers("websocket")

	sub := h.hub.Subscribe(conversationID)
	defer h.hub.Unsubscribe(sub)

	log := h.logger.With(zap.String("observer_conversation", conversationID))
	log.Debug("debug observer connected")

	// The read loop only services control frames and detects disconnects.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Debug("websocket read failed", zap.Error(err))
				}
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return

		case batch, open := <-sub.C:
			if !open {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(wsWriteWait))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(&model.DebugEventsMessage{
				Type:           "debug_events",
				ConversationID: batch[0].ConversationID,
				Events:         batch,
			}); err != nil {
				log.Debug("websocket write failed", zap.Error(err))
				return
			}

		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}
