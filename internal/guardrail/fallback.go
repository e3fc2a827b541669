package guardrail

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/parleyhq/parley/pkg/llm"
)

const (
	blockedFallback = "I'm sorry, I can't help with that directly. Let me connect you with a member of our team."

	lowConfidenceFallback = "I want to make sure you get accurate information, and I'm not fully certain about this one. Could you share a few more details so I can help properly?"

	escalationFallback = "I want to make sure you get accurate information, so I'm bringing in a member of our team to help."
)

var translationSchema = llm.JSONSchema{
	Name: "translation",
	Schema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"text": {"type": "string"}
		},
		"required": ["text"]
	}`),
}

type translation struct {
	Text string `json:"text"`
}

// translate renders a fallback message in the customer's language. Failures
// fall back to the English original; a fallback must always be deliverable.
func translate(ctx context.Context, gateway llm.Gateway, logger *slog.Logger, text, language string) string {
	if language == "" || strings.EqualFold(language, "english") {
		return text
	}
	out, err := llm.Invoke[translation](ctx, gateway, []llm.Message{
		{Role: "system", Content: "Translate the message into " + language + ". Return only the translation."},
		{Role: "user", Content: text},
	}, translationSchema)
	if err != nil || out.Text == "" {
		logger.Warn("fallback translation failed, using english", "language", language, "error", err)
		return text
	}
	return out.Text
}
