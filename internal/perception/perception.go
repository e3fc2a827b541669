// Package perception classifies the latest customer message: intent,
// sentiment, and language. The annotations are written once onto the
// triggering message and drive the rest of the pass.
package perception

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/parleyhq/parley/internal/domain"
	"github.com/parleyhq/parley/internal/prompts"
	"github.com/parleyhq/parley/internal/repository"
	"github.com/parleyhq/parley/pkg/llm"
)

var classificationSchema = llm.JSONSchema{
	Name: "perception",
	Schema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"intent": {"type": "string", "enum": ["greet", "question", "request", "handoff", "close_satisfied", "close_unsatisfied", "other"]},
			"intent_confidence": {"type": "number"},
			"sentiment": {"type": "string", "enum": ["positive", "neutral", "negative"]},
			"sentiment_confidence": {"type": "number"},
			"language": {"type": "string"}
		},
		"required": ["intent", "intent_confidence", "sentiment", "sentiment_confidence", "language"]
	}`),
}

// Classifier annotates customer messages.
type Classifier struct {
	gateway  llm.Gateway
	messages repository.MessageRepo
	budgeter *prompts.Budgeter
}

// New creates a classifier.
func New(gateway llm.Gateway, messages repository.MessageRepo, budgeter *prompts.Budgeter) *Classifier {
	return &Classifier{gateway: gateway, messages: messages, budgeter: budgeter}
}

// Classify annotates the latest customer message in msgs and persists the
// annotation. Already-annotated messages are returned as-is so a retried
// pass never classifies twice. Returns the perception that now applies.
func (c *Classifier) Classify(ctx context.Context, msgs []*domain.Message) (*domain.Perception, error) {
	var target *domain.Message
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Type == domain.MessageCustomer {
			target = msgs[i]
			break
		}
	}
	if target == nil {
		return nil, domain.ErrNoCustomerMessage
	}
	if target.Perception != nil {
		return target.Perception, nil
	}

	// A little recent context disambiguates one-word replies like "yes".
	transcript := c.budgeter.TranscriptText(prompts.LastMessages(msgs, 6), c.budgeter.InputBudget())

	system := "Classify the customer's latest message.\n" +
		"intent: greet, question, request, handoff (explicitly wants a human), " +
		"close_satisfied, close_unsatisfied, or other.\n" +
		"sentiment: positive, neutral, or negative.\n" +
		"language: the English name of the language the message is written in.\n" +
		"Confidences are between 0 and 1."
	user := fmt.Sprintf("Recent conversation:\n%s\n\nLatest customer message:\n%s", transcript, target.Content)

	p, err := llm.Invoke[domain.Perception](ctx, c.gateway, []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}, classificationSchema)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	if p.Intent == "" {
		p.Intent = domain.IntentUnknown
	}

	target.Perception = &p
	if err := c.messages.Update(ctx, target); err != nil {
		return nil, fmt.Errorf("persist perception: %w", err)
	}
	return &p, nil
}
