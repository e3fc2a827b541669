package guardrail

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/parleyhq/parley/internal/domain"
	"github.com/parleyhq/parley/pkg/llm"
)

// toolResultSimilarity ranks fresh tool output above any retrieved document.
const toolResultSimilarity = 0.95

var confidenceSchema = llm.JSONSchema{
	Name: "confidence_breakdown",
	Schema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"grounding": {"type": "number"},
			"retrieval": {"type": "number"},
			"certainty": {"type": "number"},
			"details": {"type": "string"}
		},
		"required": ["grounding", "retrieval", "certainty"]
	}`),
}

type breakdownResponse struct {
	domain.ConfidenceBreakdown
	Details string `json:"details,omitempty"`
}

// ConfidenceScorer is guardrail stage two: how well is the candidate
// response grounded in the retrieved material.
type ConfidenceScorer struct {
	gateway llm.Gateway
}

// NewConfidenceScorer creates the stage-two scorer.
func NewConfidenceScorer(gateway llm.Gateway) *ConfidenceScorer {
	return &ConfidenceScorer{gateway: gateway}
}

// SyntheticToolDocs converts this pass's successful tool results into
// grounding documents.
func SyntheticToolDocs(toolLog []domain.ToolLogEntry) []domain.DocumentHit {
	var docs []domain.DocumentHit
	for _, e := range toolLog {
		if !e.Success || e.Result == "" {
			continue
		}
		docs = append(docs, domain.DocumentHit{
			ID:         domain.DocumentID("tool:" + e.IdempotencyKey),
			Content:    e.Result,
			Similarity: toolResultSimilarity,
			Metadata:   map[string]any{"tool": e.Name},
		})
	}
	return docs
}

// Score asks the gateway for a per-dimension breakdown and collapses it into
// a tiered assessment. The score and tier are computed here, not by the
// model.
func (s *ConfidenceScorer) Score(ctx context.Context, candidate string, docs []domain.DocumentHit) (*domain.ConfidenceAssessment, error) {
	var b strings.Builder
	b.WriteString("Score how well the drafted response is grounded in the reference material, each dimension 0 to 1.\n")
	b.WriteString("grounding: every factual claim in the draft appears in the material.\n")
	b.WriteString("retrieval: the material is relevant to what the customer asked.\n")
	b.WriteString("certainty: the draft avoids hedging and contradictions.\n")
	if len(docs) == 0 {
		b.WriteString("\nThere is no reference material. Grounding and retrieval must reflect that.\n")
	} else {
		b.WriteString("\nReference material:\n")
		for _, d := range docs {
			fmt.Fprintf(&b, "--- %s (similarity %.2f) ---\n%s\n", d.ID, d.Similarity, d.Content)
		}
	}

	resp, err := llm.Invoke[breakdownResponse](ctx, s.gateway, []llm.Message{
		{Role: "system", Content: b.String()},
		{Role: "user", Content: "Drafted response:\n" + candidate},
	}, confidenceSchema)
	if err != nil {
		return nil, fmt.Errorf("confidence score: %w", err)
	}

	score := domain.ScoreBreakdown(resp.ConfidenceBreakdown)
	tier := domain.TierFor(score)
	return &domain.ConfidenceAssessment{
		Score:          score,
		Tier:           tier,
		Breakdown:      resp.ConfidenceBreakdown,
		DocumentsUsed:  len(docs),
		ShouldRecheck:  tier == domain.TierMedium,
		ShouldEscalate: tier == domain.TierLow,
		Details:        resp.Details,
	}, nil
}
