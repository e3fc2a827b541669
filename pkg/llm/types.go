package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// Message represents a chat message in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// JSONSchema constrains the model's output to a named schema.
type JSONSchema struct {
	Name   string          `json:"name"`
	Schema json.RawMessage `json:"schema"`
}

// Request is a single completion request. A nil Schema asks for free text.
type Request struct {
	Messages []Message
	Schema   *JSONSchema
}

// Response represents a complete response from a gateway.
type Response struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

// Usage tracks token consumption for a request/response pair.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Invoke sends a schema-constrained request and decodes the response into T.
// Decode failures are wrapped in ErrSchema so callers can classify them as
// retryable stage failures.
func Invoke[T any](ctx context.Context, g Gateway, messages []Message, schema JSONSchema) (T, error) {
	var out T
	resp, err := g.Complete(ctx, Request{Messages: messages, Schema: &schema})
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(resp.Content), &out); err != nil {
		return out, fmt.Errorf("%w: decode %s: %v", ErrSchema, schema.Name, err)
	}
	return out, nil
}
