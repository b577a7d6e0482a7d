package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/a2ui-playground/internal/debugbus"
	"github.com/capitalize-ai/a2ui-playground/internal/model"
	"github.com/capitalize-ai/a2ui-playground/internal/service"
	"github.com/capitalize-ai/a2ui-playground/pkg/logger"
	"github.com/capitalize-ai/a2ui-playground/pkg/metrics"
)

const heartbeatInterval = 30 * time.Second

// StreamHandler handles SSE streaming of a conversation's debug events.
type StreamHandler struct {
	conversations *service.ConversationService
	hub           *debugbus.Hub
	logger        *logger.Logger
	heartbeat     time.Duration
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(convSvc *service.ConversationService, hub *debugbus.Hub, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		conversations: convSvc,
		hub:           hub,
		logger:        log,
		heartbeat:     heartbeatInterval,
	}
}

// ReplayCompleteEvent marks the end of the persisted log replay.
type ReplayCompleteEvent struct {
	LastSeq    int `json:"last_seq"`
	EventCount int `json:"event_count"`
}

// Stream handles GET /api/v1/conversations/{id}/stream
//
// The persisted log is replayed first, then live events follow. Events that
// arrive while replaying are delivered once. Live events are matched against
// the replayed IDs rather than Seq, since Seq restarts at 0 after a clear.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := conversationID(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// Subscribe before loading so nothing appended in between is missed.
	sub := h.hub.Subscribe(id)
	defer h.hub.Unsubscribe(sub)

	events, err := h.conversations.Events(ctx, id)
	if err != nil {
		writeServiceError(w, h.logger, "failed to load events", err)
		return
	}

	// The server write timeout would otherwise cut long-lived streams.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", zap.Error(err))
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	metrics.IncrementObservers("sse")
	defer metrics.DecrementObservers("sse")

	log := h.logger.WithConversation(id)

	sendSSEEvent(w, flusher, "connected", map[string]string{
		"conversation_id": id,
	})

	lastSeq := -1
	replayed := make(map[string]struct{}, len(events))
	for _, e := range events {
		if err := sendSSEEvent(w, flusher, "debug_event", e); err != nil {
			return
		}
		replayed[e.ID] = struct{}{}
		lastSeq = e.Seq
	}

	sendSSEEvent(w, flusher, "replay_complete", &ReplayCompleteEvent{
		LastSeq:    lastSeq,
		EventCount: len(events),
	})
	log.Debug("debug event replay complete", zap.Int("events", len(events)))

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug("SSE client disconnected")
			return

		case batch, open := <-sub.C:
			if !open {
				return
			}
			for _, e := range batch {
				if _, seen := replayed[e.ID]; seen {
					delete(replayed, e.ID)
					continue
				}
				if err := sendSSEEvent(w, flusher, "debug_event", e); err != nil {
					return
				}
			}

		case <-heartbeat.C:
			sendSSEEvent(w, flusher, "heartbeat", &model.HeartbeatEvent{
				Timestamp: time.Now().UTC(),
			})
		}
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return err
	}
	flusher.Flush()

	return nil
}
