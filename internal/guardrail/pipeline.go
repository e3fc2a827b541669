package guardrail

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/parleyhq/parley/internal/domain"
	"github.com/parleyhq/parley/internal/retrieval"
	"github.com/parleyhq/parley/pkg/llm"
)

// Action tells the loop what to do with the reviewed candidate.
type Action string

const (
	// ActionDeliver sends Message to the customer as a normal response.
	ActionDeliver Action = "deliver"
	// ActionHandoff converts the turn into a handoff; Message is the
	// customer-facing explanation.
	ActionHandoff Action = "handoff"
)

// Input is everything a review needs.
type Input struct {
	Organization *domain.Organization
	Messages     []*domain.Message
	Candidate    string
	Intent       domain.Intent
	Language     string

	// Orchestration receives guardrail and confidence log entries as they
	// are decided, before any message is persisted.
	Orchestration *domain.OrchestrationContext

	// Documents are the pass's retrieved grounding documents.
	Documents []domain.DocumentHit

	// Replan regenerates the candidate with extra grounding documents
	// during a recheck.
	Replan func(ctx context.Context, extra []domain.DocumentHit) (string, error)
}

// Verdict is the review outcome.
type Verdict struct {
	Action        Action
	Message       string
	HandoffReason string

	// OriginalMessage preserves the suppressed candidate when the delivered
	// text is a substitute.
	OriginalMessage string

	// AttachDocs are recheck documents that improved the response and
	// should be attached to the conversation.
	AttachDocs []domain.DocumentHit

	Company    *domain.CompanyInterestAssessment
	Confidence *domain.ConfidenceAssessment
}

// Pipeline runs the two guardrail stages over a candidate RESPOND.
type Pipeline struct {
	company   *CompanyChecker
	scorer    *ConfidenceScorer
	retriever *retrieval.Retriever
	gateway   llm.Gateway
	logger    *slog.Logger
	now       func() time.Time
}

// NewPipeline assembles the guardrail pipeline.
func NewPipeline(company *CompanyChecker, scorer *ConfidenceScorer, retriever *retrieval.Retriever, gateway llm.Gateway, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		company:   company,
		scorer:    scorer,
		retriever: retriever,
		gateway:   gateway,
		logger:    logger,
		now:       time.Now,
	}
}

// Review checks a candidate response. Greeting and closure turns are exempt
// and deliver unchanged. Stage-one failures are hard errors; the recheck is
// best-effort.
func (p *Pipeline) Review(ctx context.Context, in Input) (*Verdict, error) {
	if in.Intent.GuardrailExempt() {
		return &Verdict{Action: ActionDeliver, Message: in.Candidate}, nil
	}

	company, err := p.company.Check(ctx, in.Organization, in.Messages, in.Candidate)
	if err != nil {
		return nil, err
	}
	in.Orchestration.AppendGuardrail(domain.GuardrailEntry{
		Passed:        company.Passed,
		ViolationType: company.ViolationType,
		Severity:      company.Severity,
		Blocked:       company.ShouldBlock,
		At:            p.now(),
	})

	if company.ShouldBlock {
		// A blocked response always becomes a handoff. The fact-grounding
		// stage never sees blocked content.
		return &Verdict{
			Action:          ActionHandoff,
			Message:         translate(ctx, p.gateway, p.logger, blockedFallback, in.Language),
			HandoffReason:   fmt.Sprintf("response blocked: %s: %s", company.ViolationType, company.Reasoning),
			OriginalMessage: in.Candidate,
			Company:         company,
		}, nil
	}

	if !company.RequiresFactCheck {
		return &Verdict{Action: ActionDeliver, Message: in.Candidate, Company: company}, nil
	}

	docs := append(append([]domain.DocumentHit{}, in.Documents...), SyntheticToolDocs(in.Orchestration.ToolLog)...)
	assessment, err := p.scorer.Score(ctx, in.Candidate, docs)
	if err != nil {
		return nil, err
	}

	candidate := in.Candidate
	var attach []domain.DocumentHit
	rechecked := false
	if assessment.Tier == domain.TierMedium {
		rechecked = true
		candidate, assessment, attach = p.recheck(ctx, in, candidate, assessment, docs)
	}

	entry := domain.ConfidenceEntry{
		Score:            assessment.Score,
		Tier:             string(assessment.Tier),
		Grounding:        assessment.Breakdown.Grounding,
		Retrieval:        assessment.Breakdown.Retrieval,
		Certainty:        assessment.Breakdown.Certainty,
		DocumentsUsed:    assessment.DocumentsUsed,
		RecheckAttempted: rechecked,
		Details:          assessment.Details,
		At:               p.now(),
	}

	if assessment.Tier == domain.TierLow {
		entry.Escalated = in.Organization != nil && in.Organization.EscalationEnabled
		in.Orchestration.AppendConfidence(entry)
		if entry.Escalated {
			return &Verdict{
				Action:          ActionHandoff,
				Message:         translate(ctx, p.gateway, p.logger, escalationFallback, in.Language),
				HandoffReason:   fmt.Sprintf("low confidence response (score %.2f): %s", assessment.Score, assessment.Details),
				OriginalMessage: in.Candidate,
				Company:         company,
				Confidence:      assessment,
			}, nil
		}
		return &Verdict{
			Action:          ActionDeliver,
			Message:         translate(ctx, p.gateway, p.logger, lowConfidenceFallback, in.Language),
			OriginalMessage: in.Candidate,
			Company:         company,
			Confidence:      assessment,
		}, nil
	}

	in.Orchestration.AppendConfidence(entry)
	return &Verdict{
		Action:     ActionDeliver,
		Message:    candidate,
		AttachDocs: attach,
		Company:    company,
		Confidence: assessment,
	}, nil
}

// recheck runs the single relaxed-retrieval improvement attempt for a
// medium-tier response. It returns the candidate and assessment to keep and,
// when the improved response won, the extra documents to attach. Failures
// keep the original.
func (p *Pipeline) recheck(ctx context.Context, in Input, candidate string, assessment *domain.ConfidenceAssessment, docs []domain.DocumentHit) (string, *domain.ConfidenceAssessment, []domain.DocumentHit) {
	if in.Replan == nil || in.Orchestration.RAG == nil || in.Orchestration.RAG.Query == "" {
		return candidate, assessment, nil
	}

	extra, err := p.retriever.FetchRelaxed(ctx, in.Organization.ID, in.Orchestration.RAG.Query)
	if err != nil {
		p.logger.Warn("recheck retrieval failed, keeping original response", "error", err)
		return candidate, assessment, nil
	}
	extra = newDocs(docs, extra)
	if len(extra) == 0 {
		return candidate, assessment, nil
	}

	improved, err := in.Replan(ctx, extra)
	if err != nil || improved == "" {
		p.logger.Warn("recheck replan failed, keeping original response", "error", err)
		return candidate, assessment, nil
	}

	rescored, err := p.scorer.Score(ctx, improved, append(append([]domain.DocumentHit{}, docs...), extra...))
	if err != nil {
		p.logger.Warn("recheck scoring failed, keeping original response", "error", err)
		return candidate, assessment, nil
	}

	// Keep the improved response only on a strict improvement.
	if rescored.Score > assessment.Score {
		return improved, rescored, extra
	}
	return candidate, assessment, nil
}

// newDocs filters out hits already present in the current document set.
func newDocs(have, extra []domain.DocumentHit) []domain.DocumentHit {
	seen := make(map[domain.DocumentID]bool, len(have))
	for _, d := range have {
		seen[d.ID] = true
	}
	var out []domain.DocumentHit
	for _, d := range extra {
		if !seen[d.ID] {
			out = append(out, d)
		}
	}
	return out
}
