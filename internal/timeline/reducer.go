// Package timeline derives the visible conversation from a debug event log
// and tracks the time-travel cursor over that log.
package timeline

import (
	"github.com/capitalize-ai/a2ui-playground/internal/model"
)

// Reduce folds an event-log prefix into display messages, left to right.
// It is pure: the same prefix always yields the same messages, and it never
// looks past the events it is given.
func Reduce(events []model.Event) []model.DisplayMessage {
	messages := make([]model.DisplayMessage, 0, len(events)/2+1)

	for i := range events {
		e := &events[i]

		p, err := e.Payload()
		if err != nil {
			// Undecodable payloads stay visible in the raw log only.
			continue
		}

		switch payload := p.(type) {
		case *model.RequestPayload:
			if payload.Content == "" {
				continue
			}
			messages = append(messages, model.DisplayMessage{
				ID:           e.ID,
				Role:         model.RoleUser,
				Content:      payload.Content,
				Timestamp:    e.Timestamp,
				UIComponents: []model.UIComponent{},
			})

		case *model.ResponsePayload:
			if payload.Message == nil {
				continue
			}
			messages = append(messages, model.DisplayMessage{
				ID:           e.ID,
				Role:         model.RoleAssistant,
				Content:      payload.Message.Content,
				Timestamp:    e.Timestamp,
				UIComponents: []model.UIComponent{},
				Usage:        payload.Usage,
			})

		case *model.ToolCallPayload:
			if payload.Component == nil || len(messages) == 0 {
				continue
			}
			last := &messages[len(messages)-1]
			if last.Role != model.RoleAssistant {
				continue
			}
			last.UIComponents = append(last.UIComponents, *payload.Component)

		case *model.ThoughtPayload:
			if payload.Reasoning == "" {
				continue
			}
			if idx := lastAssistant(messages); idx >= 0 {
				messages[idx].Reasoning = payload.Reasoning
			}
		}
	}

	return messages
}

// ReduceAt reduces log[0..cursor] inclusive. Cursor values outside the log
// are clamped; -1 yields an empty conversation.
func ReduceAt(events []model.Event, cursor int) []model.DisplayMessage {
	return Reduce(Prefix(events, cursor))
}

// Prefix returns log[0..cursor] inclusive, clamped to the log bounds.
func Prefix(events []model.Event, cursor int) []model.Event {
	if cursor < 0 {
		return events[:0]
	}
	if cursor >= len(events) {
		return events
	}
	return events[:cursor+1]
}

func lastAssistant(messages []model.DisplayMessage) int {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == model.RoleAssistant {
			return i
		}
	}
	return -1
}
