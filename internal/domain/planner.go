package domain

// Step is the planner's decision for the next conversational move.
type Step string

const (
	StepAsk      Step = "ASK"
	StepRespond  Step = "RESPOND"
	StepCallTool Step = "CALL_TOOL"
	StepHandoff  Step = "HANDOFF"
	StepClose    Step = "CLOSE"
)

// ToolRequest is the CALL_TOOL payload.
type ToolRequest struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// HandoffDirective is the HANDOFF payload.
type HandoffDirective struct {
	Reason string         `json:"reason"`
	Fields map[string]any `json:"fields,omitempty"`
}

// CloseDirective is the CLOSE payload.
type CloseDirective struct {
	Reason string `json:"reason"`
}

// PlannerOutput is the tagged variant produced by the execution planner.
// Rationale is stored for audit but never shown to the customer.
type PlannerOutput struct {
	Step        Step              `json:"step"`
	UserMessage string            `json:"userMessage,omitempty"`
	ToolCall    *ToolRequest      `json:"toolCall,omitempty"`
	Handoff     *HandoffDirective `json:"handoff,omitempty"`
	Close       *CloseDirective   `json:"close,omitempty"`
	Rationale   string            `json:"rationale,omitempty"`
}
