package model

import (
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ComponentType names a UI component kind. The set is open on the wire.
type ComponentType string

const (
	ComponentButton   ComponentType = "button"
	ComponentCard     ComponentType = "card"
	ComponentList     ComponentType = "list"
	ComponentForm     ComponentType = "form"
	ComponentChart    ComponentType = "chart"
	ComponentImage    ComponentType = "image"
	ComponentTable    ComponentType = "table"
	ComponentProgress ComponentType = "progress"
	ComponentAlert    ComponentType = "alert"
	ComponentInput    ComponentType = "input"
)

// UIComponent is a UI descriptor produced from a render_ui_component call.
type UIComponent struct {
	ID       string         `json:"id"`
	Type     ComponentType  `json:"type"`
	Props    map[string]any `json:"props"`
	Children []UIComponent  `json:"children,omitempty"`
}

// DisplayMessage is one user or assistant turn derived from the event log.
// It is never persisted.
type DisplayMessage struct {
	// ID is the id of the event that produced the message.
	ID           string        `json:"id"`
	Role         Role          `json:"role"`
	Content      string        `json:"content"`
	Timestamp    time.Time     `json:"timestamp"`
	UIComponents []UIComponent `json:"ui_components"`
	Reasoning    string        `json:"reasoning,omitempty"`
	Usage        *Usage        `json:"usage,omitempty"`
}

// SendMessageRequest is the request to send a new message.
type SendMessageRequest struct {
	Content string `json:"content"`
	// Cursor is the log position the sender was viewing. Nil means live.
	Cursor *int `json:"cursor,omitempty"`
}

// SendMessageResponse is the response after a completed turn.
type SendMessageResponse struct {
	Events           []Event          `json:"events"`
	Messages         []DisplayMessage `json:"messages"`
	Cursor           int              `json:"cursor"`
	ExtractionErrors []string         `json:"extraction_errors,omitempty"`
}

// TurnErrorResponse is returned when the completion call failed after the
// user's request was recorded.
type TurnErrorResponse struct {
	Error  string  `json:"error"`
	Events []Event `json:"events"`
}

// ViewResponse is the reduced conversation at a cursor position.
type ViewResponse struct {
	ConversationID string           `json:"conversation_id"`
	Cursor         int              `json:"cursor"`
	Length         int              `json:"length"`
	Live           bool             `json:"live"`
	Messages       []DisplayMessage `json:"messages"`
}

// ListEventsResponse is the raw event log of a conversation.
type ListEventsResponse struct {
	ConversationID string  `json:"conversation_id"`
	Events         []Event `json:"events"`
}

// ChangeModelRequest switches the model used for subsequent turns.
type ChangeModelRequest struct {
	Model string `json:"model"`
}

// DebugEventsMessage is the frame pushed to debug observers.
type DebugEventsMessage struct {
	Type           string  `json:"type"`
	ConversationID string  `json:"conversation_id"`
	Events         []Event `json:"events"`
}

// HeartbeatEvent keeps idle streams open.
type HeartbeatEvent struct {
	Timestamp time.Time `json:"timestamp"`
}
