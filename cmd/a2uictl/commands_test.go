package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/a2ui-playground/internal/model"
	"github.com/capitalize-ai/a2ui-playground/internal/store"
)

func seedStore(t *testing.T) (string, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cli.sqlite")
	st, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	id := "0192f0c4-3b8e-7d2a-9c41-5e6f7a8b9c0d"
	for _, e := range []struct {
		typ     model.EventType
		source  model.EventSource
		payload any
	}{
		{model.EventTypeRequest, model.SourceFrontend, &model.RequestPayload{Content: "hello"}},
		{model.EventTypeResponse, model.SourceLLM, &model.ResponsePayload{Message: &model.ResponseMessage{Content: "hi there"}}},
	} {
		ev, err := model.NewEvent(id, e.typ, e.source, "seed", e.payload)
		require.NoError(t, err)
		require.NoError(t, st.Append(ctx, id, ev))
	}
	return path, id
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.ExecuteContext(context.Background()), out.String())
	return out.String()
}

func TestReplayCommand(t *testing.T) {
	path, id := seedStore(t)

	var live model.ViewResponse
	require.NoError(t, json.Unmarshal([]byte(execute(t, "replay", id, "--backend", "sqlite", "--sqlite-path", path, "-o", "json", "--cursor", "1")), &live))
	assert.True(t, live.Live)
	assert.Len(t, live.Messages, 2)

	var past model.ViewResponse
	require.NoError(t, json.Unmarshal([]byte(execute(t, "replay", id, "--backend", "sqlite", "--sqlite-path", path, "--cursor", "0")), &past))
	assert.False(t, past.Live)
	require.Len(t, past.Messages, 1)
	assert.Equal(t, "hello", past.Messages[0].Content)
}

func TestEventsCommand_YAML(t *testing.T) {
	path, id := seedStore(t)

	out := execute(t, "events", id, "--backend", "sqlite", "--sqlite-path", path, "-o", "yaml")
	assert.Contains(t, out, "conversation_id: "+id)
	assert.Contains(t, out, "type: request")
	assert.Contains(t, out, "seq: 1")

	outputFmt = "json"
}

func TestReplay(t *testing.T) {
	events := []model.Event{}
	view, err := replay("c", events, true, -1)
	require.NoError(t, err)
	assert.Equal(t, -1, view.Cursor)
	assert.Empty(t, view.Messages)

	_, err = replay("c", events, true, 3)
	assert.Error(t, err)

	view, err = replay("c", events, false, 0)
	require.NoError(t, err)
	assert.True(t, view.Live)
}

func TestWriteOutput(t *testing.T) {
	v := map[string]any{"name": "chat", "ok": true}

	var buf bytes.Buffer
	require.NoError(t, writeOutput(&buf, "json", v))
	assert.JSONEq(t, `{"name":"chat","ok":true}`, buf.String())

	buf.Reset()
	require.NoError(t, writeOutput(&buf, "yaml", v))
	assert.Equal(t, "name: chat\nok: true\n", buf.String())

	assert.Error(t, writeOutput(&buf, "xml", v))
}
