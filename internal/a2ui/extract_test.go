package a2ui

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/a2ui-playground/internal/model"
)

func TestExtract_Button(t *testing.T) {
	c, err := Extract(ToolCall{
		ID:        "call_1",
		Name:      ToolName,
		Arguments: `{"type":"button","props":{"label":"Click me","variant":"primary"}}`,
	})

	require.NoError(t, err)
	assert.Equal(t, model.ComponentButton, c.Type)
	assert.Equal(t, "Click me", c.Props["label"])
	_, parseErr := uuid.Parse(c.ID)
	assert.NoError(t, parseErr)
}

func TestExtract_InvalidJSON(t *testing.T) {
	c, err := Extract(ToolCall{ID: "call_2", Name: ToolName, Arguments: "{not json"})

	var xerr *ExtractionError
	require.True(t, errors.As(err, &xerr))
	assert.Equal(t, "call_2", xerr.CallID)
	assert.Empty(t, c.ID)
	assert.Contains(t, err.Error(), "call_2")
}

func TestExtract_Rejects(t *testing.T) {
	tests := []struct {
		name string
		args string
	}{
		{"array", `[1,2]`},
		{"missing type", `{"props":{}}`},
		{"empty type", `{"type":"","props":{}}`},
		{"numeric type", `{"type":3,"props":{}}`},
		{"props not object", `{"type":"card","props":"title"}`},
		{"bad child", `{"type":"card","props":{},"children":[{"props":{}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(ToolCall{Name: ToolName, Arguments: tt.args})
			var xerr *ExtractionError
			assert.True(t, errors.As(err, &xerr), "got %v", err)
		})
	}
}

func TestExtract_NotRenderCall(t *testing.T) {
	_, err := Extract(ToolCall{Name: "get_weather", Arguments: `{}`})
	assert.ErrorIs(t, err, ErrNotRenderCall)
}

func TestExtract_UnknownTypePassesThrough(t *testing.T) {
	c, err := Extract(ToolCall{Name: ToolName, Arguments: `{"type":"carousel","props":{"items":[1,2]}}`})

	require.NoError(t, err)
	assert.Equal(t, model.ComponentType("carousel"), c.Type)
	assert.False(t, KnownType(c.Type))
}

func TestExtract_IgnoresModelSuppliedID(t *testing.T) {
	c, err := Extract(ToolCall{Name: ToolName, Arguments: `{"id":"model-id","type":"alert","props":{"message":"hi"}}`})

	require.NoError(t, err)
	assert.NotEqual(t, "model-id", c.ID)
	assert.NotEmpty(t, c.ID)
}

func TestExtract_FreshIDsPerCall(t *testing.T) {
	call := ToolCall{Name: ToolName, Arguments: `{"type":"card","props":{}}`}

	a, err := Extract(call)
	require.NoError(t, err)
	b, err := Extract(call)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
}

func TestExtract_Children(t *testing.T) {
	c, err := Extract(ToolCall{Name: ToolName, Arguments: `{
		"type": "card",
		"props": {"title": "Order"},
		"children": [
			{"type": "button", "props": {"label": "Pay"}},
			{"type": "list", "props": {"items": ["a"]}, "children": [{"type": "alert", "props": null}]}
		]
	}`})

	require.NoError(t, err)
	require.Len(t, c.Children, 2)
	assert.Equal(t, model.ComponentButton, c.Children[0].Type)
	require.Len(t, c.Children[1].Children, 1)
	assert.Equal(t, model.ComponentAlert, c.Children[1].Children[0].Type)
	assert.NotNil(t, c.Children[1].Children[0].Props)
	assert.NotEqual(t, c.ID, c.Children[0].ID)
}

func TestExtract_MissingPropsDefaultsToEmpty(t *testing.T) {
	c, err := Extract(ToolCall{Name: ToolName, Arguments: `{"type":"progress"}`})

	require.NoError(t, err)
	assert.NotNil(t, c.Props)
	assert.Empty(t, c.Props)
}

func TestTool_Schema(t *testing.T) {
	def := Tool()

	assert.Equal(t, "render_ui_component", def.Name)
	assert.Equal(t, "object", def.Parameters["type"])
	assert.Equal(t, []string{"type", "props"}, def.Parameters["required"])

	props := def.Parameters["properties"].(map[string]any)
	typeProp := props["type"].(map[string]any)
	assert.Equal(t, []string{"button", "card", "list", "chart", "form", "table", "progress", "alert"}, typeProp["enum"])
}
