// Package llm provides the completion client interface and its providers.
package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/capitalize-ai/a2ui-playground/internal/model"
)

// CompletionRequest represents a completion request.
type CompletionRequest struct {
	Model       string
	Messages    []ChatMessage
	Tools       []Tool
	ToolChoice  string // "auto" unless set
	MaxTokens   int
	Temperature float64
}

// ChatMessage represents a chat message for LLM.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Tool is a function the model may call.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolCall is a function call returned by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// CompletionResponse represents a completion response.
type CompletionResponse struct {
	Content    string
	ToolCalls  []ToolCall
	Reasoning  string
	Model      string
	Usage      model.Usage
	StopReason string
	LatencyMs  int64
}

// Client is the interface for completion providers.
type Client interface {
	// Complete sends a completion request and returns the response. Every
	// failure is reported as a *RemoteCallError.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string
}

// Factory builds a client for the given settings.
type Factory func(settings model.Settings) (Client, error)

// NewFactory returns a Factory whose clients share httpClient.
func NewFactory(httpClient *http.Client) Factory {
	return func(settings model.Settings) (Client, error) {
		return NewClient(settings, httpClient)
	}
}

// NewClient creates a client for the provider named in settings.
func NewClient(settings model.Settings, httpClient *http.Client) (Client, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	switch settings.Provider {
	case model.ProviderOpenAI, model.ProviderAzure, "":
		return NewOpenAIClient(settings, httpClient)
	case model.ProviderAnthropic:
		return NewAnthropicClient(settings, httpClient)
	default:
		return nil, fmt.Errorf("unsupported provider %q", settings.Provider)
	}
}
