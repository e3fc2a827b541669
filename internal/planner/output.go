package planner

import (
	"encoding/json"
	"fmt"

	"github.com/parleyhq/parley/internal/domain"
	"github.com/parleyhq/parley/pkg/llm"
)

var outputSchema = llm.JSONSchema{
	Name: "planner_output",
	Schema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"step": {"type": "string", "enum": ["ASK", "RESPOND", "CALL_TOOL", "HANDOFF", "CLOSE"]},
			"userMessage": {"type": "string"},
			"toolCall": {
				"type": "object",
				"properties": {
					"name": {"type": "string"},
					"args": {"type": "object"}
				},
				"required": ["name"]
			},
			"handoff": {
				"type": "object",
				"properties": {
					"reason": {"type": "string"},
					"fields": {"type": "object"}
				},
				"required": ["reason"]
			},
			"close": {
				"type": "object",
				"properties": {
					"reason": {"type": "string"}
				},
				"required": ["reason"]
			},
			"rationale": {"type": "string"}
		},
		"required": ["step"]
	}`),
}

// ValidateOutput checks the variant-specific payload requirements. Violations
// are reported as schema errors so the retry policy treats them the same as a
// malformed response body.
func ValidateOutput(out *domain.PlannerOutput) error {
	switch out.Step {
	case domain.StepAsk, domain.StepRespond:
		if out.UserMessage == "" {
			return fmt.Errorf("%w: %s without userMessage", llm.ErrSchema, out.Step)
		}
	case domain.StepCallTool:
		if out.ToolCall == nil || out.ToolCall.Name == "" {
			return fmt.Errorf("%w: CALL_TOOL without tool name", llm.ErrSchema)
		}
	case domain.StepHandoff:
		if out.Handoff == nil || out.Handoff.Reason == "" {
			return fmt.Errorf("%w: HANDOFF without reason", llm.ErrSchema)
		}
	case domain.StepClose:
		if out.Close == nil || out.Close.Reason == "" {
			return fmt.Errorf("%w: CLOSE without reason", llm.ErrSchema)
		}
	default:
		return fmt.Errorf("%w: unknown step %q", llm.ErrSchema, out.Step)
	}
	return nil
}
