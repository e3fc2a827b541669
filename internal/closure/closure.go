// Package closure double-checks a provisional close signal against the full
// customer-visible transcript before the engine resolves a conversation.
package closure

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/parleyhq/parley/internal/domain"
	"github.com/parleyhq/parley/internal/prompts"
	"github.com/parleyhq/parley/pkg/llm"
)

var decisionSchema = llm.JSONSchema{
	Name: "closure_decision",
	Schema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"shouldClose": {"type": "boolean"},
			"reason": {"type": "string"}
		},
		"required": ["shouldClose", "reason"]
	}`),
}

// Decision is the validator's verdict.
type Decision struct {
	ShouldClose bool   `json:"shouldClose"`
	Reason      string `json:"reason"`
}

// Validator confirms or rejects a close-intent classification.
type Validator struct {
	gateway  llm.Gateway
	budgeter *prompts.Budgeter
	logger   *slog.Logger
}

// New creates a validator.
func New(gateway llm.Gateway, budgeter *prompts.Budgeter, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{gateway: gateway, budgeter: budgeter, logger: logger}
}

// Validate decides whether the conversation is actually finished. Gateway
// failures fail open to "keep the conversation going"; a wrongly kept-open
// conversation is recoverable, a wrongly closed one is not.
func (v *Validator) Validate(ctx context.Context, msgs []*domain.Message, playbookActive bool) Decision {
	transcript := v.budgeter.TranscriptText(msgs, v.budgeter.InputBudget())

	system := "Decide whether this support conversation is finished and should be closed.\n" +
		"Close only if the customer's need was addressed or the customer clearly wants to end the conversation.\n" +
		"Do not close if there are unanswered questions or pending steps."
	if playbookActive {
		system += "\nA scripted workflow is in progress; only close if it has run to completion or the customer abandoned it."
	}

	d, err := llm.Invoke[Decision](ctx, v.gateway, []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: "Conversation:\n" + transcript},
	}, decisionSchema)
	if err != nil {
		v.logger.Warn("closure validation failed, keeping conversation open", "error", err)
		return Decision{ShouldClose: false, Reason: "validation unavailable"}
	}
	return d
}
