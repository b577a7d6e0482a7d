package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType represents the kind of step a debug event records.
type EventType string

const (
	EventTypeRequest  EventType = "request"
	EventTypeResponse EventType = "response"
	EventTypeToolCall EventType = "tool_call"
	EventTypeThought  EventType = "thought"
	EventTypeError    EventType = "error"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventTypeRequest, EventTypeResponse, EventTypeToolCall, EventTypeThought, EventTypeError:
		return true
	}
	return false
}

// EventSource identifies the collaborator that produced an event.
type EventSource string

const (
	SourceFrontend EventSource = "frontend"
	SourceBackend  EventSource = "backend"
	SourceLLM      EventSource = "llm"
)

// Valid reports whether s is one of the known sources.
func (s EventSource) Valid() bool {
	switch s {
	case SourceFrontend, SourceBackend, SourceLLM:
		return true
	}
	return false
}

// Event is one immutable entry of a conversation's debug log.
//
// Seq is the event's position in the log and is the only ordering key.
// Timestamp is informational and is never used to sort.
type Event struct {
	ID             string          `json:"id"`
	ConversationID string          `json:"conversation_id"`
	Seq            int             `json:"seq"`
	Timestamp      time.Time       `json:"timestamp"`
	Type           EventType       `json:"type"`
	Source         EventSource     `json:"source"`
	Data           json.RawMessage `json:"data"`
	Description    string          `json:"description"`
}

// ErrEmptyDescription is returned when an event is built without a summary.
var ErrEmptyDescription = errors.New("event description cannot be empty")

// NewEvent builds an event with a fresh id. The store assigns Seq and may
// adjust Timestamp so that it never goes backwards within a conversation.
func NewEvent(conversationID string, typ EventType, source EventSource, description string, payload any) (*Event, error) {
	if description == "" {
		return nil, ErrEmptyDescription
	}
	if !typ.Valid() {
		return nil, fmt.Errorf("unknown event type %q", typ)
	}
	if !source.Valid() {
		return nil, fmt.Errorf("unknown event source %q", source)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", typ, err)
	}

	return &Event{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		Seq:            -1,
		Timestamp:      time.Now().UTC(),
		Type:           typ,
		Source:         source,
		Data:           data,
		Description:    description,
	}, nil
}

// Payload decodes Data into the variant selected by (Type, Source).
// Combinations without a dedicated variant decode to UnknownPayload.
func (e *Event) Payload() (Payload, error) {
	var p Payload
	switch {
	case e.Type == EventTypeRequest && e.Source == SourceFrontend:
		p = &RequestPayload{}
	case e.Type == EventTypeResponse && e.Source == SourceLLM:
		p = &ResponsePayload{}
	case e.Type == EventTypeToolCall && e.Source == SourceLLM:
		p = &ToolCallPayload{}
	case e.Type == EventTypeThought && e.Source == SourceLLM:
		p = &ThoughtPayload{}
	case e.Type == EventTypeError:
		p = &ErrorPayload{}
	default:
		return UnknownPayload(e.Data), nil
	}

	if len(e.Data) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(e.Data, p); err != nil {
		return nil, fmt.Errorf("failed to decode %s/%s payload of event %s: %w", e.Type, e.Source, e.ID, err)
	}
	return p, nil
}

// Payload is implemented by every event payload variant.
type Payload interface {
	payload()
}

// RequestPayload is carried by request/frontend events. Content holds a user
// utterance; Model is set instead for model-change bookkeeping entries.
type RequestPayload struct {
	Content string `json:"content,omitempty"`
	Model   string `json:"model,omitempty"`
}

// ResponsePayload is carried by response/llm events.
type ResponsePayload struct {
	Message *ResponseMessage `json:"message,omitempty"`
	Usage   *Usage           `json:"usage,omitempty"`
}

// ResponseMessage is the assistant message returned by the completion call.
type ResponseMessage struct {
	Content   string         `json:"content"`
	ToolCalls []ToolCallInfo `json:"tool_calls,omitempty"`
}

// ToolCallInfo mirrors a function call as returned by the model.
type ToolCallInfo struct {
	ID       string           `json:"id,omitempty"`
	Type     string           `json:"type"`
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction is the name and raw JSON arguments of a function call.
type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Usage is the token accounting of one completion call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ToolCallPayload is carried by tool_call/llm events.
type ToolCallPayload struct {
	Component *UIComponent `json:"component,omitempty"`
}

// ThoughtPayload is carried by thought/llm events.
type ThoughtPayload struct {
	Reasoning string `json:"reasoning,omitempty"`
}

// ErrorPayload is carried by error events from any source.
type ErrorPayload struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// UnknownPayload holds the raw data of combinations without a variant.
type UnknownPayload json.RawMessage

func (*RequestPayload) payload()  {}
func (*ResponsePayload) payload() {}
func (*ToolCallPayload) payload() {}
func (*ThoughtPayload) payload()  {}
func (*ErrorPayload) payload()    {}
func (UnknownPayload) payload()   {}
