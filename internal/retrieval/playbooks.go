package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/parleyhq/parley/internal/domain"
	"github.com/parleyhq/parley/internal/prompts"
	"github.com/parleyhq/parley/pkg/llm"
)

const (
	// activationThreshold: a playbook activates only when its relevance
	// score strictly exceeds this.
	activationThreshold = 0.7

	// continuationWindow is how many recent messages the continuation check
	// sees.
	continuationWindow = 3
)

var scoreSchema = llm.JSONSchema{
	Name: "playbook_scores",
	Schema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"scores": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"id": {"type": "string"},
						"score": {"type": "number"}
					},
					"required": ["id", "score"]
				}
			}
		},
		"required": ["scores"]
	}`),
}

var continuationSchema = llm.JSONSchema{
	Name: "playbook_continuation",
	Schema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"continues": {"type": "boolean"}
		},
		"required": ["continues"]
	}`),
}

type scoreList struct {
	Scores []struct {
		ID    string  `json:"id"`
		Score float64 `json:"score"`
	} `json:"scores"`
}

type continuation struct {
	Continues bool `json:"continues"`
}

// Selector picks the playbook that should steer the conversation, if any.
type Selector struct {
	gateway  llm.Gateway
	budgeter *prompts.Budgeter
}

// NewSelector creates a playbook selector.
func NewSelector(gateway llm.Gateway, budgeter *prompts.Budgeter) *Selector {
	return &Selector{gateway: gateway, budgeter: budgeter}
}

// Select decides the playbook for this turn. candidates must be in the
// repository's stable order; ties between equal scores resolve to the
// earlier candidate. Returns nil when no playbook applies.
func (s *Selector) Select(ctx context.Context, msgs []*domain.Message, active *domain.Playbook, candidates []*domain.Playbook) (*domain.Playbook, error) {
	if len(candidates) == 0 {
		return active, nil
	}

	if active != nil {
		continues, err := s.checkContinuation(ctx, msgs, active)
		if err != nil {
			return nil, err
		}
		if continues {
			return active, nil
		}
	}

	scores, err := s.score(ctx, msgs, candidates)
	if err != nil {
		return nil, err
	}

	var best *domain.Playbook
	bestScore := activationThreshold
	for _, p := range candidates {
		// Strict comparison keeps the first candidate on ties and enforces
		// the activation threshold.
		if sc := scores[p.ID]; sc > bestScore {
			best, bestScore = p, sc
		}
	}

	if active != nil {
		// The conversation left the active playbook's track. Switch only
		// when another playbook is a strictly better fit.
		if best != nil && best.ID != active.ID && bestScore > scores[active.ID] {
			return best, nil
		}
		return active, nil
	}
	return best, nil
}

func (s *Selector) checkContinuation(ctx context.Context, msgs []*domain.Message, active *domain.Playbook) (bool, error) {
	recent := s.budgeter.TranscriptText(prompts.LastMessages(msgs, continuationWindow), s.budgeter.InputBudget())
	system := fmt.Sprintf(
		"A support conversation is following the %q workflow:\n%s\n\nAnswer whether the recent messages continue this workflow.",
		active.Name, strings.Join(active.Steps, "\n"))

	c, err := llm.Invoke[continuation](ctx, s.gateway, []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: "Recent messages:\n" + recent},
	}, continuationSchema)
	if err != nil {
		return false, fmt.Errorf("playbook continuation: %w", err)
	}
	return c.Continues, nil
}

func (s *Selector) score(ctx context.Context, msgs []*domain.Message, candidates []*domain.Playbook) (map[domain.PlaybookID]float64, error) {
	transcript := s.budgeter.TranscriptText(msgs, s.budgeter.InputBudget())

	var b strings.Builder
	b.WriteString("Score how well each workflow matches what the customer needs, 0 to 1.\n\nWorkflows:\n")
	for _, p := range candidates {
		fmt.Fprintf(&b, "- id %s: %s", p.ID, p.Name)
		if p.Description != "" {
			fmt.Fprintf(&b, " (%s)", p.Description)
		}
		b.WriteString("\n")
	}

	list, err := llm.Invoke[scoreList](ctx, s.gateway, []llm.Message{
		{Role: "system", Content: b.String()},
		{Role: "user", Content: "Conversation:\n" + transcript},
	}, scoreSchema)
	if err != nil {
		return nil, fmt.Errorf("playbook scoring: %w", err)
	}

	scores := make(map[domain.PlaybookID]float64, len(list.Scores))
	for _, s := range list.Scores {
		scores[domain.PlaybookID(s.ID)] = s.Score
	}
	return scores, nil
}
