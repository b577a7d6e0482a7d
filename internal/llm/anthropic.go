package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/capitalize-ai/a2ui-playground/internal/model"
)

const anthropicDefaultModel = "claude-3-5-sonnet-latest"

// AnthropicClient is the Anthropic LLM client. Tool use blocks are mapped
// onto tool calls so the rest of the turn does not care about the provider.
type AnthropicClient struct {
	client anthropic.Client
	model  string
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(settings model.Settings, httpClient *http.Client) (*AnthropicClient, error) {
	if settings.APIKey == "" {
		return nil, errors.New("Anthropic API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(settings.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if settings.APIEndpoint != "" {
		opts = append(opts, option.WithBaseURL(settings.APIEndpoint))
	}

	return &AnthropicClient{
		client: anthropic.NewClient(opts...),
		model:  settings.Model,
	}, nil
}

// Name returns the provider name.
func (c *AnthropicClient) Name() string {
	return string(model.ProviderAnthropic)
}

// Complete sends a completion request.
func (c *AnthropicClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	modelName := req.Model
	if modelName == "" {
		modelName = c.model
	}
	if modelName == "" {
		modelName = anthropicDefaultModel
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(modelName),
		MaxTokens: int64(maxTokens),
	}

	// System turns go to the dedicated field; the rest alternate user/assistant.
	for _, msg := range req.Messages {
		switch msg.Role {
		case string(model.RoleSystem):
			params.System = append(params.System, anthropic.TextBlockParam{Text: msg.Content})
		case string(model.RoleAssistant):
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	for _, t := range req.Tools {
		schema := anthropic.ToolInputSchemaParam{Properties: t.Parameters["properties"]}
		if required, ok := t.Parameters["required"].([]string); ok {
			schema.Required = required
		}
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: schema,
			},
		})
	}
	if len(params.Tools) > 0 {
		params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, remoteError(c.Name(), err)
	}
	if resp == nil {
		return nil, malformed(c.Name(), "empty response")
	}

	var content, reasoning strings.Builder
	out := &CompletionResponse{
		Model:      string(resp.Model),
		StopReason: string(resp.StopReason),
		Usage: model.Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			content.WriteString(block.Text)
		case "thinking":
			reasoning.WriteString(block.Thinking)
		case "tool_use":
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: string(block.Input),
			})
		}
	}

	out.Content = content.String()
	out.Reasoning = reasoning.String()
	out.LatencyMs = time.Since(start).Milliseconds()
	return out, nil
}
