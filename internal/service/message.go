package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/capitalize-ai/a2ui-playground/internal/a2ui"
	"github.com/capitalize-ai/a2ui-playground/internal/llm"
	"github.com/capitalize-ai/a2ui-playground/internal/model"
	"github.com/capitalize-ai/a2ui-playground/internal/store"
	"github.com/capitalize-ai/a2ui-playground/internal/timeline"
	"github.com/capitalize-ai/a2ui-playground/pkg/logger"
	"github.com/capitalize-ai/a2ui-playground/pkg/metrics"
)

// MaxContentBytes bounds a single user utterance.
const MaxContentBytes = 100 * 1024

// Publisher receives every event appended by a service.
type Publisher interface {
	Publish(conversationID string, events ...model.Event)
}

// TurnRequest is one user utterance sent to a conversation.
type TurnRequest struct {
	ConversationID string
	Content        string
	// Cursor is the log position the user was viewing; nil means live.
	// History is rebuilt from log[0..Cursor] and the new events are
	// appended at the end of the log, which is never truncated.
	Cursor *int
}

// TurnResult describes what a turn appended.
type TurnResult struct {
	ConversationID   string
	Events           []model.Event
	Messages         []model.DisplayMessage
	Cursor           int
	ExtractionErrors []string
}

// ChatService runs chat turns against a conversation's event log.
type ChatService struct {
	events    store.EventStore
	settings  store.ConfigStore
	newClient llm.Factory
	publisher Publisher
	logger    *logger.Logger
	tracer    trace.Tracer
	now       func() time.Time

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewChatService creates a new chat service.
func NewChatService(
	events store.EventStore,
	settings store.ConfigStore,
	newClient llm.Factory,
	publisher Publisher,
	log *logger.Logger,
) *ChatService {
	return &ChatService{
		events:    events,
		settings:  settings,
		newClient: newClient,
		publisher: publisher,
		logger:    log.Named("chat"),
		tracer:    otel.Tracer("github.com/capitalize-ai/a2ui-playground/internal/service"),
		now:       time.Now,
		inFlight:  make(map[string]struct{}),
	}
}

// ValidateContent checks a user utterance.
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return &ValidationError{Field: "content", Message: "message content cannot be empty"}
	}
	if len(content) > MaxContentBytes {
		return &ValidationError{Field: "content", Message: fmt.Sprintf("message content exceeds %d bytes", MaxContentBytes)}
	}
	if !utf8.ValidString(content) {
		return &ValidationError{Field: "content", Message: "message content must be valid UTF-8"}
	}
	return nil
}

func (s *ChatService) acquire(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[conversationID]; busy {
		return false
	}
	s.inFlight[conversationID] = struct{}{}
	return true
}

func (s *ChatService) release(conversationID string) {
	s.mu.Lock()
	delete(s.inFlight, conversationID)
	s.mu.Unlock()
}

// turn accumulates the events one SendMessage call appends.
type turn struct {
	svc     *ChatService
	session *timeline.Session
	events  []model.Event
}

func (t *turn) append(ctx context.Context, typ model.EventType, source model.EventSource, description string, payload any) error {
	e, err := model.NewEvent(t.session.ConversationID(), typ, source, description, payload)
	if err != nil {
		return err
	}
	if err := t.svc.events.Append(ctx, t.session.ConversationID(), e); err != nil {
		return fmt.Errorf("failed to append %s event: %w", typ, err)
	}
	t.session.Append(*e)
	t.events = append(t.events, *e)
	if t.svc.publisher != nil {
		t.svc.publisher.Publish(t.session.ConversationID(), *e)
	}
	return nil
}

func (t *turn) result() *TurnResult {
	return &TurnResult{
		ConversationID: t.session.ConversationID(),
		Events:         t.events,
		Messages:       t.session.View(),
		Cursor:         t.session.Cursor(),
	}
}

// SendMessage records the utterance, calls the completion API with the
// conversation history and records the outcome.
//
// Settings are passed per call. On a failed completion call one error event
// is appended and both the partial result and a *llm.RemoteCallError are
// returned. Concurrent turns on one conversation are rejected with
// ErrTurnInFlight; across conversations they run in parallel.
func (s *ChatService) SendMessage(ctx context.Context, settings model.Settings, req TurnRequest) (*TurnResult, error) {
	if err := ValidateContent(req.Content); err != nil {
		return nil, err
	}
	if req.ConversationID == "" {
		return nil, &ValidationError{Field: "conversation_id", Message: "conversation id is required"}
	}
	if !settings.Configured() {
		return nil, ErrNotConfigured
	}
	client, err := s.newClient(settings)
	if err != nil {
		return nil, &ValidationError{Field: "settings", Message: err.Error()}
	}

	if !s.acquire(req.ConversationID) {
		return nil, ErrTurnInFlight
	}
	defer s.release(req.ConversationID)

	ctx, span := s.tracer.Start(ctx, "chat.turn", trace.WithAttributes(
		attribute.String("conversation.id", req.ConversationID),
		attribute.String("llm.provider", client.Name()),
		attribute.String("llm.model", settings.Model),
	))
	defer span.End()

	log := s.logger.WithConversation(req.ConversationID)

	existing, err := s.events.Load(ctx, req.ConversationID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	session := timeline.NewSession(req.ConversationID, existing)
	if req.Cursor != nil {
		if err := session.SetCursor(*req.Cursor); err != nil {
			return nil, &ValidationError{Field: "cursor", Message: err.Error()}
		}
	}
	history := BuildHistory(session.View(), req.Content)

	t := &turn{svc: s, session: session}
	if err := t.append(ctx, model.EventTypeRequest, model.SourceFrontend, "User message", &model.RequestPayload{Content: req.Content}); err != nil {
		s.fail(span, "persistence")
		return nil, err
	}

	tool := a2ui.Tool()
	start := s.now()
	resp, callErr := s.complete(ctx, client, &llm.CompletionRequest{
		Model:    settings.Model,
		Messages: history,
		Tools: []llm.Tool{{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  tool.Parameters,
		}},
		ToolChoice: "auto",
	})
	elapsed := s.now().Sub(start).Seconds()

	if callErr != nil {
		metrics.RecordLLMCall(client.Name(), settings.Model, "error", elapsed, 0, 0)
		log.Warn("completion call failed", zap.Error(callErr))

		// The request may already be cancelled; the failure must still be recorded.
		recordCtx := context.WithoutCancel(ctx)
		if err := t.append(recordCtx, model.EventTypeError, model.SourceBackend, "Completion call failed",
			&model.ErrorPayload{Error: callErr.Error(), Code: "remote_call"}); err != nil {
			s.fail(span, "persistence")
			return t.result(), errors.Join(callErr, err)
		}
		s.fail(span, "remote_call")
		span.RecordError(callErr)
		return t.result(), callErr
	}

	metrics.RecordLLMCall(client.Name(), resp.Model, "success", elapsed, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	span.SetAttributes(
		attribute.Int("llm.tokens.prompt", resp.Usage.PromptTokens),
		attribute.Int("llm.tokens.completion", resp.Usage.CompletionTokens),
		attribute.Int("llm.tool_calls", len(resp.ToolCalls)),
	)

	if err := t.append(ctx, model.EventTypeResponse, model.SourceLLM, responseDescription(resp), responsePayload(resp)); err != nil {
		s.fail(span, "persistence")
		return t.result(), err
	}

	var extractionErrors []string
	components := 0
	for _, call := range resp.ToolCalls {
		component, err := a2ui.Extract(a2ui.ToolCall{ID: call.ID, Name: call.Name, Arguments: call.Arguments})
		if errors.Is(err, a2ui.ErrNotRenderCall) {
			log.Debug("ignoring tool call", zap.String("tool", call.Name))
			continue
		}
		if err != nil {
			metrics.ExtractionFailuresTotal.Inc()
			log.Warn("skipping malformed component", zap.String("call_id", call.ID), zap.Error(err))
			extractionErrors = append(extractionErrors, err.Error())
			continue
		}
		if !a2ui.KnownType(component.Type) {
			log.Info("passing through unknown component type", zap.String("type", string(component.Type)))
		}
		metrics.ComponentsTotal.WithLabelValues(string(component.Type)).Inc()

		if err := t.append(ctx, model.EventTypeToolCall, model.SourceLLM,
			fmt.Sprintf("Rendered %s component", component.Type),
			&model.ToolCallPayload{Component: &component}); err != nil {
			s.fail(span, "persistence")
			return t.result(), err
		}
		components++
	}

	if resp.Reasoning != "" {
		if err := t.append(ctx, model.EventTypeThought, model.SourceLLM, "Model reasoning",
			&model.ThoughtPayload{Reasoning: resp.Reasoning}); err != nil {
			s.fail(span, "persistence")
			return t.result(), err
		}
	}

	metrics.TurnsTotal.WithLabelValues("success").Inc()
	log.Info("turn completed",
		zap.Int("events", len(t.events)),
		zap.Int("components", components),
		zap.Float64("llm_seconds", elapsed),
		zap.Int64("provider_latency_ms", resp.LatencyMs),
	)

	result := t.result()
	result.ExtractionErrors = extractionErrors
	return result, nil
}

func (s *ChatService) complete(ctx context.Context, client llm.Client, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "llm.complete", trace.WithAttributes(
		attribute.String("llm.provider", client.Name()),
		attribute.String("llm.model", req.Model),
	))
	defer span.End()

	resp, err := client.Complete(ctx, req)
	if err != nil {
		var rce *llm.RemoteCallError
		if !errors.As(err, &rce) {
			err = &llm.RemoteCallError{Provider: client.Name(), Message: err.Error(), Err: err}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return nil, err
	}
	return resp, nil
}

func (s *ChatService) fail(span trace.Span, outcome string) {
	metrics.TurnsTotal.WithLabelValues(outcome).Inc()
	span.SetStatus(codes.Error, outcome)
}

// ChangeModel stores a new model for later turns and records the change in
// the conversation's log. The bookkeeping event produces no display message.
func (s *ChatService) ChangeModel(ctx context.Context, conversationID, modelName string) (*model.Event, error) {
	modelName = strings.TrimSpace(modelName)
	if modelName == "" {
		return nil, &ValidationError{Field: "model", Message: "model cannot be empty"}
	}

	current, err := s.settings.GetSettings(ctx)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if current == nil {
		current = &model.Settings{}
	}
	previous := current.Model
	current.Model = modelName
	current.UpdatedAt = s.now().UTC()
	if err := s.settings.PutSettings(ctx, current); err != nil {
		return nil, fmt.Errorf("failed to store settings: %w", err)
	}

	e, err := model.NewEvent(conversationID, model.EventTypeRequest, model.SourceFrontend,
		fmt.Sprintf("Model changed to %s", modelName), &model.RequestPayload{Model: modelName})
	if err != nil {
		return nil, err
	}
	if err := s.events.Append(ctx, conversationID, e); err != nil {
		return nil, fmt.Errorf("failed to append model change: %w", err)
	}
	if s.publisher != nil {
		s.publisher.Publish(conversationID, *e)
	}

	s.logger.WithConversation(conversationID).Info("model changed",
		zap.String("from", previous),
		zap.String("to", modelName),
	)
	return e, nil
}

// BuildHistory turns the visible conversation into completion messages: the
// A2UI system prompt first, then every user and assistant message, then the
// new utterance.
func BuildHistory(messages []model.DisplayMessage, utterance string) []llm.ChatMessage {
	history := make([]llm.ChatMessage, 0, len(messages)+2)
	history = append(history, llm.ChatMessage{Role: string(model.RoleSystem), Content: a2ui.SystemPrompt})

	for _, m := range messages {
		content := m.Content
		if m.Role == model.RoleAssistant && content == "" && len(m.UIComponents) > 0 {
			kinds := make([]string, len(m.UIComponents))
			for i, c := range m.UIComponents {
				kinds[i] = string(c.Type)
			}
			content = "[rendered " + strings.Join(kinds, ", ") + "]"
		}
		if content == "" {
			continue
		}
		history = append(history, llm.ChatMessage{Role: string(m.Role), Content: content})
	}

	return append(history, llm.ChatMessage{Role: string(model.RoleUser), Content: utterance})
}

func responsePayload(resp *llm.CompletionResponse) *model.ResponsePayload {
	msg := &model.ResponseMessage{Content: resp.Content}
	for _, call := range resp.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, model.ToolCallInfo{
			ID:   call.ID,
			Type: "function",
			Function: model.ToolCallFunction{
				Name:      call.Name,
				Arguments: call.Arguments,
			},
		})
	}

	usage := resp.Usage
	return &model.ResponsePayload{Message: msg, Usage: &usage}
}

func responseDescription(resp *llm.CompletionResponse) string {
	if n := len(resp.ToolCalls); n > 0 {
		return fmt.Sprintf("Assistant response from %s with %d tool call(s)", resp.Model, n)
	}
	return fmt.Sprintf("Assistant response from %s", resp.Model)
}
