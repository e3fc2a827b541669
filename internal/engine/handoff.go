package engine

import (
	"context"
	"encoding/json"

	"github.com/parleyhq/parley/internal/domain"
	"github.com/parleyhq/parley/pkg/llm"
)

const (
	handoffAvailableMessage   = "I'm connecting you with a member of our team who will take it from here."
	handoffUnavailableMessage = "Our team isn't available right now, but someone will follow up with you as soon as possible."

	// synthesizeHandoffInstruction drives the transitional message when the
	// organization has agents online but no custom instructions.
	synthesizeHandoffInstruction = "Write one short sentence telling the customer a member of the support team is joining the conversation to help them."
)

var handoffMessageSchema = llm.JSONSchema{
	Name: "handoff_message",
	Schema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"message": {"type": "string"}
		},
		"required": ["message"]
	}`),
}

type handoffMessageResponse struct {
	Message string `json:"message"`
}

type handoffParams struct {
	Reason string
	Fields map[string]any

	// CustomerMessage overrides the default announcement (guardrail
	// fallbacks arrive pre-translated).
	CustomerMessage string

	// OriginalMessage is the suppressed candidate when the handoff replaced
	// a blocked or low-confidence response.
	OriginalMessage string
}

// handoff moves the conversation to a human. Online-agent availability picks
// the announcement and assigns the conversation; either way the status
// becomes pending_human. A second handoff in the same pass is a no-op.
//
// Returns true when the organization's custom handoff instructions were run,
// which tells the planning loop to keep going so the planner can act on the
// new state; the handoffDone guard prevents a second announcement.
func (e *Engine) handoff(ctx context.Context, p *pass, params handoffParams) bool {
	if p.handoffDone {
		e.logger.Debug("handoff already processed this pass", "conversation_id", p.conv.ID)
		return false
	}
	p.handoffDone = true

	agents, err := e.store.Agents.ListOnline(ctx, p.org.ID)
	if err != nil {
		e.logger.Warn("online agent lookup failed", "conversation_id", p.conv.ID, "error", err)
	}

	instructed := false
	message := params.CustomerMessage
	if message == "" {
		switch {
		case len(agents) > 0 && p.org.HandoffAvailableInstructions != "":
			message = e.composeHandoffMessage(ctx, p, p.org.HandoffAvailableInstructions, handoffAvailableMessage)
			instructed = true
		case len(agents) > 0:
			message = e.composeHandoffMessage(ctx, p, synthesizeHandoffInstruction, handoffAvailableMessage)
		case p.org.HandoffUnavailableInstructions != "":
			message = e.composeHandoffMessage(ctx, p, p.org.HandoffUnavailableInstructions, handoffUnavailableMessage)
			instructed = true
		default:
			message = handoffUnavailableMessage
		}
	}

	metadata := map[string]any{
		"step":           "HANDOFF",
		"handoff_reason": params.Reason,
	}
	if len(params.Fields) > 0 {
		metadata["fields"] = params.Fields
	}
	if params.OriginalMessage != "" {
		metadata["original_message"] = params.OriginalMessage
	}
	e.respond(ctx, p, message, metadata)

	if len(agents) > 0 {
		p.conv = p.conv.WithAgent(agents[0].ID)
	}
	p.conv = p.conv.WithResolution(domain.StatusPendingHuman, domain.ResolutionMetadata{
		Resolved: false,
		Reason:   params.Reason,
	})
	e.logger.Info("conversation handed off", "conversation_id", p.conv.ID,
		"reason", params.Reason, "agents_online", len(agents), "instructed", instructed)
	return instructed
}

// composeHandoffMessage writes the customer-facing announcement by running
// the given instruction against the transcript. Best-effort: gateway failures
// fall back to the stock announcement.
func (e *Engine) composeHandoffMessage(ctx context.Context, p *pass, instruction, fallback string) string {
	system := "You are writing the customer-facing message announcing a handoff to a human support agent. " + instruction
	if lang := p.language(); lang != "" {
		system += " Respond in " + lang + "."
	}
	out, err := llm.Invoke[handoffMessageResponse](ctx, e.gateway, []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: e.budgeter.TranscriptText(p.msgs, e.budgeter.InputBudget())},
	}, handoffMessageSchema)
	if err != nil {
		e.logger.Warn("handoff message composition failed", "conversation_id", p.conv.ID, "error", err)
		return fallback
	}
	if out.Message == "" {
		return fallback
	}
	return out.Message
}
