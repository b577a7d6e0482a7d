package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/a2ui-playground/internal/model"
)

func TestAnthropicClient_MapsContentBlocks(t *testing.T) {
	var seen map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/messages"))
		assert.Equal(t, "ant-key", r.Header.Get("X-Api-Key"))
		data, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(data, &seen))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
		  "id": "msg_1",
		  "type": "message",
		  "role": "assistant",
		  "model": "claude-3-5-sonnet-20241022",
		  "content": [
		    {"type": "thinking", "thinking": "consider a card", "signature": "sig"},
		    {"type": "text", "text": "Rendering a card"},
		    {"type": "tool_use", "id": "toolu_1", "name": "render_ui_component", "input": {"type":"card"}}
		  ],
		  "stop_reason": "tool_use",
		  "usage": {"input_tokens": 20, "output_tokens": 9}
		}`)
	}))
	defer srv.Close()

	client, err := NewAnthropicClient(model.Settings{
		Provider:    model.ProviderAnthropic,
		APIKey:      "ant-key",
		APIEndpoint: srv.URL,
	}, srv.Client())
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), &CompletionRequest{
		Messages: []ChatMessage{
			{Role: "system", Content: "sys"},
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "hello"},
			{Role: "user", Content: "card please"},
		},
		Tools: []Tool{{
			Name:        "render_ui_component",
			Description: "Render",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{"type": map[string]any{"type": "string"}},
				"required":   []string{"type"},
			},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, "Rendering a card", resp.Content)
	assert.Equal(t, "consider a card", resp.Reasoning)
	assert.Equal(t, "tool_use", resp.StopReason)
	assert.Equal(t, model.Usage{PromptTokens: 20, CompletionTokens: 9, TotalTokens: 29}, resp.Usage)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "toolu_1", resp.ToolCalls[0].ID)
	assert.JSONEq(t, `{"type":"card"}`, resp.ToolCalls[0].Arguments)

	assert.Equal(t, anthropicDefaultModel, seen["model"])
	assert.Len(t, seen["messages"], 3, "system prompt is sent separately")
	assert.NotEmpty(t, seen["system"])
	assert.Len(t, seen["tools"], 1)
}

func TestAnthropicClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`)
	}))
	defer srv.Close()

	client, err := NewAnthropicClient(model.Settings{APIKey: "k", APIEndpoint: srv.URL}, srv.Client())
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), &CompletionRequest{
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
	})

	var rce *RemoteCallError
	require.True(t, errors.As(err, &rce))
	assert.Equal(t, "anthropic", rce.Provider)
	assert.Equal(t, http.StatusServiceUnavailable, rce.StatusCode)
}
