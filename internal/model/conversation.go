// Package model defines data structures for the A2UI playground.
package model

import (
	"time"
)

// ConversationSummary describes a stored conversation without its events.
type ConversationSummary struct {
	ID          string    `json:"id"`
	EventCount  int       `json:"event_count"`
	CreatedAt   time.Time `json:"created_at"`
	LastEventAt time.Time `json:"last_event_at"`
}

// ListConversationsResponse is the response for listing conversations.
type ListConversationsResponse struct {
	Conversations []ConversationSummary `json:"conversations"`
	Total         int                   `json:"total"`
}

// Provider selects the completion API flavour.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAzure     Provider = "azure"
	ProviderAnthropic Provider = "anthropic"
)

// Settings is the single current record of the config namespace.
type Settings struct {
	Provider    Provider  `json:"provider"`
	APIEndpoint string    `json:"api_endpoint"`
	APIKey      string    `json:"api_key"`
	Model       string    `json:"model"`
	APIVersion  string    `json:"api_version,omitempty"`
	Deployment  string    `json:"deployment,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Configured reports whether credentials are present.
func (s *Settings) Configured() bool {
	return s != nil && s.APIKey != ""
}

// Redacted returns a copy safe to show to clients.
func (s Settings) Redacted() Settings {
	if s.APIKey != "" {
		if len(s.APIKey) > 8 {
			s.APIKey = s.APIKey[:4] + "…" + s.APIKey[len(s.APIKey)-4:]
		} else {
			s.APIKey = "…"
		}
	}
	return s
}

// UpdateSettingsRequest is the request to replace the current settings.
// Empty fields keep their stored values.
type UpdateSettingsRequest struct {
	Provider    Provider `json:"provider,omitempty"`
	APIEndpoint string   `json:"api_endpoint,omitempty"`
	APIKey      string   `json:"api_key,omitempty"`
	Model       string   `json:"model,omitempty"`
	APIVersion  string   `json:"api_version,omitempty"`
	Deployment  string   `json:"deployment,omitempty"`
}

// Apply merges the request into s.
func (r *UpdateSettingsRequest) Apply(s Settings) Settings {
	if r.Provider != "" {
		s.Provider = r.Provider
	}
	if r.APIEndpoint != "" {
		s.APIEndpoint = r.APIEndpoint
	}
	if r.APIKey != "" {
		s.APIKey = r.APIKey
	}
	if r.Model != "" {
		s.Model = r.Model
	}
	if r.APIVersion != "" {
		s.APIVersion = r.APIVersion
	}
	if r.Deployment != "" {
		s.Deployment = r.Deployment
	}
	s.UpdatedAt = time.Now().UTC()
	return s
}
