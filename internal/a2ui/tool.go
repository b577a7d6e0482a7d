// Package a2ui turns render_ui_component function calls into UI component
// descriptors.
package a2ui

import (
	"github.com/capitalize-ai/a2ui-playground/internal/model"
)

// ToolName is the only function the model is offered.
const ToolName = "render_ui_component"

// SystemPrompt is sent once, as the first message of every conversation.
const SystemPrompt = `You are a helpful assistant that can render interactive UI components for the user.
When a visual element would help (a button, a card, a list, a chart, a form, a table, a progress bar or an alert),
call the render_ui_component function with the component "type" and its "props".
You may call the function several times in one reply, and you should still answer in plain text as well.`

// ToolTypes are the component types advertised in the tool schema.
var ToolTypes = []model.ComponentType{
	model.ComponentButton,
	model.ComponentCard,
	model.ComponentList,
	model.ComponentChart,
	model.ComponentForm,
	model.ComponentTable,
	model.ComponentProgress,
	model.ComponentAlert,
}

var knownTypes = map[model.ComponentType]bool{
	model.ComponentButton:   true,
	model.ComponentCard:     true,
	model.ComponentList:     true,
	model.ComponentForm:     true,
	model.ComponentChart:    true,
	model.ComponentImage:    true,
	model.ComponentTable:    true,
	model.ComponentProgress: true,
	model.ComponentAlert:    true,
	model.ComponentInput:    true,
}

// KnownType reports whether the renderer has a dedicated view for t.
// Unknown types are still passed through and rendered as a fallback.
func KnownType(t model.ComponentType) bool {
	return knownTypes[t]
}

// ToolDefinition is a provider-neutral function declaration.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Tool returns the fixed render_ui_component declaration.
func Tool() ToolDefinition {
	enum := make([]string, len(ToolTypes))
	for i, t := range ToolTypes {
		enum[i] = string(t)
	}

	return ToolDefinition{
		Name:        ToolName,
		Description: "Render an interactive UI component in the chat interface.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"type": map[string]any{
					"type":        "string",
					"enum":        enum,
					"description": "The kind of component to render.",
				},
				"props": map[string]any{
					"type":        "object",
					"description": "Component specific properties, e.g. label, title, items, data.",
				},
			},
			"required": []string{"type", "props"},
		},
	}
}
