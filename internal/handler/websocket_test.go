package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/a2ui-playground/internal/model"
)

func TestWebSocket_PushesPublishedEvents(t *testing.T) {
	api := newTestAPI(t, configured)
	srv := httptest.NewServer(api.handler)
	defer srv.Close()

	id := "0192f0c4-3b8e-7d2a-9c41-5e6f7a8b9c0d"
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?conversation_id=" + id
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return api.hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	api.hub.Publish("other", model.Event{ID: "skip", ConversationID: "other"})
	api.hub.Publish(id, model.Event{ID: "e1", ConversationID: id, Seq: 0, Type: model.EventTypeRequest})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg model.DebugEventsMessage
	require.NoError(t, conn.ReadJSON(&msg))

	assert.Equal(t, "debug_events", msg.Type)
	assert.Equal(t, id, msg.ConversationID)
	require.Len(t, msg.Events, 1)
	assert.Equal(t, "e1", msg.Events[0].ID)
}

func TestWebSocket_RejectsBadConversationID(t *testing.T) {
	api := newTestAPI(t, configured)

	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws?conversation_id=bad", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebSocket_ClosesOnHubShutdown(t *testing.T) {
	api := newTestAPI(t, configured)
	srv := httptest.NewServer(api.handler)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return api.hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)
	api.hub.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}
