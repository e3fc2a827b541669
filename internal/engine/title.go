package engine

import (
	"context"
	"encoding/json"

	"github.com/parleyhq/parley/internal/domain"
	"github.com/parleyhq/parley/pkg/llm"
)

var titleSchema = llm.JSONSchema{
	Name: "conversation_title",
	Schema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"title": {"type": "string"}
		},
		"required": ["title"]
	}`),
}

type titleResponse struct {
	Title string `json:"title"`
}

// generateTitle summarizes the conversation into a short title. Best-effort:
// an empty string means the conversation keeps its current title.
func (e *Engine) generateTitle(ctx context.Context, msgs []*domain.Message) string {
	transcript := e.budgeter.TranscriptText(msgs, e.budgeter.InputBudget())
	if transcript == "" {
		return ""
	}
	out, err := llm.Invoke[titleResponse](ctx, e.gateway, []llm.Message{
		{Role: "system", Content: "Write a title of at most 8 words summarizing what this support conversation was about."},
		{Role: "user", Content: transcript},
	}, titleSchema)
	if err != nil {
		e.logger.Warn("title generation failed", "error", err)
		return ""
	}
	return out.Title
}
