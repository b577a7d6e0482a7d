package a2ui

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/capitalize-ai/a2ui-playground/internal/model"
)

// ErrNotRenderCall is returned for function calls other than render_ui_component.
var ErrNotRenderCall = errors.New("not a render_ui_component call")

// ExtractionError reports a malformed render_ui_component call. It never
// aborts a turn: the offending component is skipped.
type ExtractionError struct {
	CallID string
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	msg := "invalid render_ui_component call"
	if e.CallID != "" {
		msg += " " + e.CallID
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ToolCall is the subset of a model function call the extractor reads.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

type componentArgs struct {
	Type     json.RawMessage   `json:"type"`
	Props    json.RawMessage   `json:"props"`
	Children []json.RawMessage `json:"children"`
}

// Extract parses a render_ui_component call into a component. Ids are always
// freshly generated; any id the model supplies is ignored.
func Extract(call ToolCall) (model.UIComponent, error) {
	if call.Name != ToolName {
		return model.UIComponent{}, ErrNotRenderCall
	}

	c, err := parseComponent([]byte(call.Arguments))
	if err != nil {
		var xerr *ExtractionError
		if errors.As(err, &xerr) {
			xerr.CallID = call.ID
			return model.UIComponent{}, xerr
		}
		return model.UIComponent{}, &ExtractionError{CallID: call.ID, Reason: "malformed arguments", Err: err}
	}
	return c, nil
}

func parseComponent(raw []byte) (model.UIComponent, error) {
	var args componentArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return model.UIComponent{}, &ExtractionError{Reason: "arguments are not a JSON object", Err: err}
	}

	var typ string
	if len(args.Type) == 0 || json.Unmarshal(args.Type, &typ) != nil || typ == "" {
		return model.UIComponent{}, &ExtractionError{Reason: "missing component type"}
	}

	props := map[string]any{}
	if len(args.Props) > 0 && string(args.Props) != "null" {
		if err := json.Unmarshal(args.Props, &props); err != nil {
			return model.UIComponent{}, &ExtractionError{Reason: "props must be an object", Err: err}
		}
	}

	c := model.UIComponent{
		ID:    uuid.NewString(),
		Type:  model.ComponentType(typ),
		Props: props,
	}

	for i, rawChild := range args.Children {
		child, err := parseComponent(rawChild)
		if err != nil {
			var xerr *ExtractionError
			if errors.As(err, &xerr) {
				xerr.Reason = fmt.Sprintf("child %d: %s", i, xerr.Reason)
			}
			return model.UIComponent{}, err
		}
		c.Children = append(c.Children, child)
	}

	return c, nil
}
