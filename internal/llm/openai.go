package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/capitalize-ai/a2ui-playground/internal/model"
)

// OpenAIClient talks to OpenAI-compatible chat completion APIs, including
// Azure OpenAI deployments.
type OpenAIClient struct {
	client   *openai.Client
	provider string
	model    string
}

// NewOpenAIClient creates a new OpenAI or Azure OpenAI client.
func NewOpenAIClient(settings model.Settings, httpClient *http.Client) (*OpenAIClient, error) {
	if settings.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	var config openai.ClientConfig
	provider := string(model.ProviderOpenAI)

	if settings.Provider == model.ProviderAzure {
		if settings.APIEndpoint == "" {
			return nil, errors.New("Azure OpenAI endpoint is required")
		}
		provider = string(model.ProviderAzure)
		config = openai.DefaultAzureConfig(settings.APIKey, settings.APIEndpoint)
		if settings.APIVersion != "" {
			config.APIVersion = settings.APIVersion
		}
		if deployment := settings.Deployment; deployment != "" {
			config.AzureModelMapperFunc = func(string) string { return deployment }
		}
	} else {
		config = openai.DefaultConfig(settings.APIKey)
		if settings.APIEndpoint != "" {
			config.BaseURL = settings.APIEndpoint
		}
	}
	config.HTTPClient = httpClient

	return &OpenAIClient{
		client:   openai.NewClientWithConfig(config),
		provider: provider,
		model:    settings.Model,
	}, nil
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string {
	return c.provider
}

// Complete sends a completion request.
func (c *OpenAIClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	modelName := req.Model
	if modelName == "" {
		modelName = c.model
	}
	if modelName == "" {
		modelName = "gpt-4o"
	}

	// Convert messages to OpenAI format
	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       modelName,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	}

	if len(req.Tools) > 0 {
		chatReq.Tools = make([]openai.Tool, len(req.Tools))
		for i, t := range req.Tools {
			chatReq.Tools[i] = openai.Tool{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				},
			}
		}
		choice := req.ToolChoice
		if choice == "" {
			choice = "auto"
		}
		chatReq.ToolChoice = choice
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, remoteError(c.provider, err)
	}

	if len(resp.Choices) == 0 {
		return nil, malformed(c.provider, "response contained no choices")
	}

	choice := resp.Choices[0]
	out := &CompletionResponse{
		Content:    choice.Message.Content,
		Reasoning:  choice.Message.ReasoningContent,
		Model:      resp.Model,
		StopReason: string(choice.FinishReason),
		Usage: model.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		LatencyMs: time.Since(start).Milliseconds(),
	}
	if out.Model == "" {
		out.Model = modelName
	}

	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	return out, nil
}
