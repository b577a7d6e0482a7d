package timeline

import (
	"github.com/capitalize-ai/a2ui-playground/internal/model"
)

// Session binds one conversation's event log to a cursor. It is not safe
// for concurrent use; each viewer or turn owns its own Session.
type Session struct {
	conversationID string
	events         []model.Event
	cursor         Cursor
}

// NewSession loads events and places the cursor on the tip.
func NewSession(conversationID string, events []model.Event) *Session {
	s := &Session{conversationID: conversationID}
	s.Load(events)
	return s
}

// ConversationID returns the id of the conversation the log belongs to.
func (s *Session) ConversationID() string { return s.conversationID }

// Load replaces the log, as when switching conversations, and goes live.
func (s *Session) Load(events []model.Event) {
	s.events = append(s.events[:0:0], events...)
	s.cursor.Reset(len(s.events))
}

// Append adds events to the end of the log. Appending always goes live.
func (s *Session) Append(events ...model.Event) {
	for _, e := range events {
		s.events = append(s.events, e)
		s.cursor.Append()
	}
}

// SetCursor moves the cursor to i in [-1, Len()-1].
func (s *Session) SetCursor(i int) error { return s.cursor.Set(i) }

// GoLive moves the cursor to the tip.
func (s *Session) GoLive() { s.cursor.GoLive() }

// Cursor returns the current position.
func (s *Session) Cursor() int { return s.cursor.Position() }

// Live reports whether the cursor is on the tip.
func (s *Session) Live() bool { return s.cursor.Live() }

// Len returns the number of events in the log.
func (s *Session) Len() int { return len(s.events) }

// Visible returns the events up to and including the cursor.
func (s *Session) Visible() []model.Event { return Prefix(s.events, s.cursor.Position()) }

// View returns the conversation as it looked at the cursor.
func (s *Session) View() []model.DisplayMessage { return Reduce(s.Visible()) }
