package domain

// ConfidenceTier buckets a fact-grounding score.
type ConfidenceTier string

const (
	TierHigh   ConfidenceTier = "high"
	TierMedium ConfidenceTier = "medium"
	TierLow    ConfidenceTier = "low"
)

// CompanyInterestAssessment is the first guardrail stage's verdict on a
// candidate response. Transient: computed per RESPOND attempt, persisted
// only into the guardrail log.
type CompanyInterestAssessment struct {
	Passed            bool   `json:"passed"`
	ViolationType     string `json:"violationType,omitempty"`
	Severity          string `json:"severity,omitempty"`
	ShouldBlock       bool   `json:"shouldBlock"`
	RequiresFactCheck bool   `json:"requiresFactCheck"`
	Reasoning         string `json:"reasoning,omitempty"`
}

// ConfidenceBreakdown is the per-dimension scoring the gateway returns for
// the fact-grounding stage.
type ConfidenceBreakdown struct {
	Grounding float64 `json:"grounding"`
	Retrieval float64 `json:"retrieval"`
	Certainty float64 `json:"certainty"`
}

// ConfidenceAssessment is the second guardrail stage's verdict.
type ConfidenceAssessment struct {
	Score          float64             `json:"score"`
	Tier           ConfidenceTier      `json:"tier"`
	Breakdown      ConfidenceBreakdown `json:"breakdown"`
	DocumentsUsed  int                 `json:"documentsUsed"`
	ShouldRecheck  bool                `json:"shouldRecheck"`
	ShouldEscalate bool                `json:"shouldEscalate"`
	Details        string              `json:"details,omitempty"`
}

const (
	tierHighFloor   = 0.8
	tierMediumFloor = 0.5
)

// ScoreBreakdown collapses a breakdown into a single confidence score.
// Grounding dominates: it measures whether the response's claims appear in
// the retrieved material at all.
func ScoreBreakdown(b ConfidenceBreakdown) float64 {
	return 0.5*b.Grounding + 0.3*b.Retrieval + 0.2*b.Certainty
}

// TierFor buckets a score. Boundaries: high >= 0.8, medium >= 0.5.
func TierFor(score float64) ConfidenceTier {
	switch {
	case score >= tierHighFloor:
		return TierHigh
	case score >= tierMediumFloor:
		return TierMedium
	default:
		return TierLow
	}
}
