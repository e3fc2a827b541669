package llm

import (
	"context"
	"errors"
)

// ErrSchema marks a gateway response that did not match the requested JSON
// schema. Stage callers treat it as a retryable failure, not a crash.
var ErrSchema = errors.New("llm: response violates schema")

// Gateway defines the interface to a language-model backend. Callers pass a
// schema whenever a structured decision is required; schema validation is
// shared (Invoke) rather than re-implemented per provider.
type Gateway interface {
	// Complete sends a chat completion request and returns the full response.
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Config holds common configuration for gateway implementations.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
}
