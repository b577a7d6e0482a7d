package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/capitalize-ai/a2ui-playground/internal/a2ui"
	"github.com/capitalize-ai/a2ui-playground/internal/llm"
	"github.com/capitalize-ai/a2ui-playground/internal/model"
	"github.com/capitalize-ai/a2ui-playground/internal/store"
	"github.com/capitalize-ai/a2ui-playground/pkg/logger"
)

type fakeClient struct {
	mu       sync.Mutex
	requests []*llm.CompletionRequest
	respond  func(req *llm.CompletionRequest) (*llm.CompletionResponse, error)
}

func (c *fakeClient) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()
	return c.respond(req)
}

func (c *fakeClient) Name() string { return "fake" }

func (c *fakeClient) lastRequest(t *testing.T) *llm.CompletionRequest {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.requests)
	return c.requests[len(c.requests)-1]
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.Event
}

func (p *recordingPublisher) Publish(conversationID string, events ...model.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
}

type fixture struct {
	store     *store.SQLStore
	client    *fakeClient
	publisher *recordingPublisher
	chat      *ChatService
	convs     *ConversationService
}

var configured = model.Settings{Provider: model.ProviderOpenAI, APIKey: "sk-test", Model: "gpt-4o"}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "service.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	f := &fixture{
		store:     st,
		client:    &fakeClient{},
		publisher: &recordingPublisher{},
	}
	factory := func(model.Settings) (llm.Client, error) { return f.client, nil }
	f.chat = NewChatService(st, st, factory, f.publisher, logger.NewNop())
	f.convs = NewConversationService(st, logger.NewNop())
	return f
}

func reply(content string, calls ...llm.ToolCall) func(*llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return func(*llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return &llm.CompletionResponse{
			Content:   content,
			ToolCalls: calls,
			Model:     "gpt-4o",
			Usage:     model.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		}, nil
	}
}

func kinds(events []model.Event) []model.EventType {
	out := make([]model.EventType, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

func TestSendMessage_Success(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.client.respond = reply("Here is a button",
		llm.ToolCall{ID: "c1", Name: a2ui.ToolName, Arguments: `{"type":"button","props":{"label":"Go"}}`},
		llm.ToolCall{ID: "c2", Name: a2ui.ToolName, Arguments: `{"type":"card","props":{"title":"T"}}`},
	)

	res, err := f.chat.SendMessage(ctx, configured, TurnRequest{ConversationID: "conv", Content: "show me"})
	require.NoError(t, err)

	assert.Equal(t, []model.EventType{
		model.EventTypeRequest, model.EventTypeResponse, model.EventTypeToolCall, model.EventTypeToolCall,
	}, kinds(res.Events))
	assert.Equal(t, 3, res.Cursor)
	require.Len(t, res.Messages, 2)
	assert.Equal(t, "Here is a button", res.Messages[1].Content)
	require.Len(t, res.Messages[1].UIComponents, 2)
	assert.Equal(t, model.ComponentButton, res.Messages[1].UIComponents[0].Type)
	assert.Equal(t, model.ComponentCard, res.Messages[1].UIComponents[1].Type)
	assert.Empty(t, res.ExtractionErrors)

	stored, err := f.store.Load(ctx, "conv")
	require.NoError(t, err)
	assert.Len(t, stored, 4)
	assert.Len(t, f.publisher.events, 4)

	req := f.client.lastRequest(t)
	assert.Equal(t, "gpt-4o", req.Model)
	assert.Equal(t, "auto", req.ToolChoice)
	require.Len(t, req.Tools, 1)
	assert.Equal(t, a2ui.ToolName, req.Tools[0].Name)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, a2ui.SystemPrompt, req.Messages[0].Content)
	assert.Equal(t, llm.ChatMessage{Role: "user", Content: "show me"}, req.Messages[1])
}

func TestSendMessage_RemoteFailureAppendsOneError(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.client.respond = func(*llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return nil, &llm.RemoteCallError{Provider: "fake", StatusCode: 500, Message: "internal error"}
	}

	res, err := f.chat.SendMessage(ctx, configured, TurnRequest{ConversationID: "conv", Content: "hi"})

	var rce *llm.RemoteCallError
	require.True(t, errors.As(err, &rce))
	assert.Equal(t, 500, rce.StatusCode)
	require.NotNil(t, res)
	assert.Equal(t, []model.EventType{model.EventTypeRequest, model.EventTypeError}, kinds(res.Events))

	p, perr := res.Events[1].Payload()
	require.NoError(t, perr)
	assert.Equal(t, "remote_call", p.(*model.ErrorPayload).Code)
	assert.Contains(t, p.(*model.ErrorPayload).Error, "internal error")

	require.Len(t, res.Messages, 1, "user message stays visible")
	assert.Equal(t, model.RoleUser, res.Messages[0].Role)

	stored, err := f.store.Load(ctx, "conv")
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestSendMessage_NonRemoteErrorIsWrapped(t *testing.T) {
	f := newFixture(t)
	f.client.respond = func(*llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return nil, errors.New("dial tcp: refused")
	}

	_, err := f.chat.SendMessage(context.Background(), configured, TurnRequest{ConversationID: "conv", Content: "hi"})

	var rce *llm.RemoteCallError
	require.True(t, errors.As(err, &rce))
	assert.Equal(t, "fake", rce.Provider)
}

func TestSendMessage_RejectsBeforeAppending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.client.respond = reply("unused")

	_, err := f.chat.SendMessage(ctx, model.Settings{}, TurnRequest{ConversationID: "conv", Content: "hi"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = f.chat.SendMessage(ctx, configured, TurnRequest{ConversationID: "conv", Content: "   "})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))

	bad := -5
	_, err = f.chat.SendMessage(ctx, configured, TurnRequest{ConversationID: "conv", Content: "hi", Cursor: &bad})
	assert.True(t, errors.As(err, &verr))

	events, err := f.store.Load(ctx, "conv")
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Empty(t, f.client.requests)
}

func TestSendMessage_FactoryErrorIsValidation(t *testing.T) {
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "f.sqlite"))
	require.NoError(t, err)
	defer st.Close()

	chat := NewChatService(st, st, func(model.Settings) (llm.Client, error) {
		return nil, errors.New("Azure OpenAI endpoint is required")
	}, nil, logger.NewNop())

	_, err = chat.SendMessage(context.Background(), configured, TurnRequest{ConversationID: "c", Content: "hi"})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestSendMessage_MalformedToolCallSkipped(t *testing.T) {
	f := newFixture(t)
	f.client.respond = reply("partly broken",
		llm.ToolCall{ID: "bad", Name: a2ui.ToolName, Arguments: "{not json"},
		llm.ToolCall{ID: "other", Name: "get_weather", Arguments: `{}`},
		llm.ToolCall{ID: "good", Name: a2ui.ToolName, Arguments: `{"type":"alert","props":{"message":"ok"}}`},
	)

	res, err := f.chat.SendMessage(context.Background(), configured, TurnRequest{ConversationID: "conv", Content: "hi"})
	require.NoError(t, err)

	assert.Equal(t, []model.EventType{model.EventTypeRequest, model.EventTypeResponse, model.EventTypeToolCall}, kinds(res.Events))
	require.Len(t, res.ExtractionErrors, 1)
	assert.Contains(t, res.ExtractionErrors[0], "bad")
	require.Len(t, res.Messages[1].UIComponents, 1)
	assert.Equal(t, model.ComponentAlert, res.Messages[1].UIComponents[0].Type)
}

func TestSendMessage_ReasoningAppendsThought(t *testing.T) {
	f := newFixture(t)
	f.client.respond = func(*llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return &llm.CompletionResponse{Content: "answer", Reasoning: "step by step", Model: "o1"}, nil
	}

	res, err := f.chat.SendMessage(context.Background(), configured, TurnRequest{ConversationID: "conv", Content: "why"})
	require.NoError(t, err)

	assert.Equal(t, model.EventTypeThought, res.Events[len(res.Events)-1].Type)
	assert.Equal(t, "step by step", res.Messages[1].Reasoning)
}

func TestSendMessage_HistoryIncludesPriorTurns(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.client.respond = reply("", llm.ToolCall{ID: "c", Name: a2ui.ToolName, Arguments: `{"type":"chart","props":{}}`})

	_, err := f.chat.SendMessage(ctx, configured, TurnRequest{ConversationID: "conv", Content: "first"})
	require.NoError(t, err)

	f.client.respond = reply("second answer")
	_, err = f.chat.SendMessage(ctx, configured, TurnRequest{ConversationID: "conv", Content: "second"})
	require.NoError(t, err)

	msgs := f.client.lastRequest(t).Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "first", msgs[1].Content)
	assert.Equal(t, "assistant", msgs[2].Role)
	assert.Equal(t, "[rendered chart]", msgs[2].Content)
	assert.Equal(t, "second", msgs[3].Content)
}

func TestSendMessage_RewindAppendsAtTail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.client.respond = reply("one")
	_, err := f.chat.SendMessage(ctx, configured, TurnRequest{ConversationID: "conv", Content: "first"})
	require.NoError(t, err)
	f.client.respond = reply("two")
	_, err = f.chat.SendMessage(ctx, configured, TurnRequest{ConversationID: "conv", Content: "second"})
	require.NoError(t, err)

	// Rewind to just after the first user message.
	cursor := 0
	f.client.respond = reply("branch")
	res, err := f.chat.SendMessage(ctx, configured, TurnRequest{ConversationID: "conv", Content: "instead", Cursor: &cursor})
	require.NoError(t, err)

	msgs := f.client.lastRequest(t).Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, "first", msgs[1].Content)
	assert.Equal(t, "instead", msgs[2].Content)

	stored, err := f.store.Load(ctx, "conv")
	require.NoError(t, err)
	assert.Len(t, stored, 6, "log is never truncated")
	assert.Equal(t, 4, res.Events[0].Seq)
	assert.Equal(t, 5, res.Cursor)
}

func TestSendMessage_RejectsConcurrentTurn(t *testing.T) {
	f := newFixture(t)
	release := make(chan struct{})
	entered := make(chan struct{})
	f.client.respond = func(*llm.CompletionRequest) (*llm.CompletionResponse, error) {
		close(entered)
		<-release
		return &llm.CompletionResponse{Content: "done"}, nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := f.chat.SendMessage(context.Background(), configured, TurnRequest{ConversationID: "conv", Content: "slow"})
		done <- err
	}()
	<-entered

	_, err := f.chat.SendMessage(context.Background(), configured, TurnRequest{ConversationID: "conv", Content: "again"})
	assert.ErrorIs(t, err, ErrTurnInFlight)

	close(release)
	require.NoError(t, <-done)
}

func TestChangeModel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.store.PutSettings(ctx, &configured))

	e, err := f.chat.ChangeModel(ctx, "conv", "gpt-4o-mini")
	require.NoError(t, err)
	assert.Equal(t, 0, e.Seq)

	s, err := f.store.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", s.Model)
	assert.Equal(t, "sk-test", s.APIKey)

	view, err := f.convs.View(ctx, "conv", nil)
	require.NoError(t, err)
	assert.Empty(t, view.Messages, "model change is bookkeeping only")
	assert.Equal(t, 1, view.Length)

	_, err = f.chat.ChangeModel(ctx, "conv", " ")
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestBuildHistory_SkipsEmptyMessages(t *testing.T) {
	msgs := BuildHistory([]model.DisplayMessage{
		{Role: model.RoleUser, Content: "hi"},
		{Role: model.RoleAssistant, Content: ""},
	}, "next")

	require.Len(t, msgs, 3)
	assert.Equal(t, "hi", msgs[1].Content)
	assert.Equal(t, "next", msgs[2].Content)
}

func TestValidateContent(t *testing.T) {
	assert.NoError(t, ValidateContent("hello"))
	assert.Error(t, ValidateContent(""))
	assert.Error(t, ValidateContent(string(make([]byte, MaxContentBytes+1))))
	assert.Error(t, ValidateContent("bad \xff utf8"))
}

func TestSendMessage_RecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	defer otel.SetTracerProvider(prev)

	f := newFixture(t)
	f.client.respond = func(*llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return nil, &llm.RemoteCallError{Provider: "fake", StatusCode: 502, Message: "bad gateway"}
	}

	_, err := f.chat.SendMessage(context.Background(), configured, TurnRequest{ConversationID: "conv", Content: "hi"})
	require.Error(t, err)

	names := map[string]codes.Code{}
	for _, s := range recorder.Ended() {
		names[s.Name()] = s.Status().Code
	}
	assert.Equal(t, codes.Error, names["chat.turn"])
	assert.Equal(t, codes.Error, names["llm.complete"])
}

// countingStore counts full index scans.
type countingStore struct {
	store.EventStore
	lists int
}

func (s *countingStore) List(ctx context.Context) ([]model.ConversationSummary, error) {
	s.lists++
	return s.EventStore.List(ctx)
}

func TestConversationGet_UnknownSkipsIndexScan(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	counting := &countingStore{EventStore: f.store}
	convs := NewConversationService(counting, logger.NewNop())

	_, err := convs.Get(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Zero(t, counting.lists)

	require.NoError(t, f.store.Create(ctx, "known"))
	got, err := convs.Get(ctx, "known")
	require.NoError(t, err)
	assert.Equal(t, "known", got.ID)
}

func TestSendMessage_LogsProviderLatency(t *testing.T) {
	f := newFixture(t)
	core, logs := observer.New(zap.InfoLevel)
	chat := NewChatService(f.store, f.store, func(model.Settings) (llm.Client, error) { return f.client, nil },
		f.publisher, &logger.Logger{Logger: zap.New(core)})
	f.client.respond = func(req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
		resp, err := reply("ok")(req)
		resp.LatencyMs = 42
		return resp, err
	}

	_, err := chat.SendMessage(context.Background(), configured, TurnRequest{ConversationID: "conv", Content: "hi"})
	require.NoError(t, err)

	completed := logs.FilterMessage("turn completed").All()
	require.Len(t, completed, 1)
	assert.Equal(t, int64(42), completed[0].ContextMap()["provider_latency_ms"])
}
