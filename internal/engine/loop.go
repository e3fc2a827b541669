package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/parleyhq/parley/internal/domain"
	"github.com/parleyhq/parley/internal/guardrail"
	"github.com/parleyhq/parley/internal/planner"
	"github.com/parleyhq/parley/internal/retrieval"
	"github.com/parleyhq/parley/pkg/llm"
)

// maxLoopIterations bounds the planning loop. A conversation that still has
// no user-facing outcome after this many iterations stays open and waits for
// the next pass.
const maxLoopIterations = 15

// loopState tracks where the planning loop ended.
type loopState string

const (
	statePlanning  loopState = "planning"
	stateResponded loopState = "responded"
	stateHandedOff loopState = "handed_off"
	stateClosed    loopState = "closed"
	stateExhausted loopState = "exhausted"
)

// runLoop drives planning iterations until a user-facing outcome or the
// iteration cap. Tool calls consume iterations; an invalid planner output
// consumes an iteration and feeds the violation back.
func (e *Engine) runLoop(ctx context.Context, p *pass) error {
	state := statePlanning
	feedback := ""

	for i := 0; i < maxLoopIterations && state == statePlanning; i++ {
		out, err := e.planner.Plan(ctx, planner.Input{
			Organization: p.org,
			Messages:     p.msgs,
			Playbook:     p.playbook,
			Documents:    p.documents(),
			Tools:        e.executor.Specs(),
			Feedback:     feedback,
		})
		if err != nil {
			if errors.Is(err, llm.ErrSchema) {
				feedback = fmt.Sprintf("Your previous output was invalid: %v. Produce a valid step.", err)
				continue
			}
			return err
		}
		feedback = ""

		switch out.Step {
		case domain.StepAsk:
			e.respond(ctx, p, out.UserMessage, map[string]any{
				"step":      string(out.Step),
				"rationale": out.Rationale,
			})
			state = stateResponded

		case domain.StepCallTool:
			e.callTool(ctx, p, out)

		case domain.StepHandoff:
			// Custom handoff instructions keep the loop alive so the
			// planner can act on them; the processed guard stops a
			// second handoff message.
			instructed := e.handoff(ctx, p, handoffParams{
				Reason: out.Handoff.Reason,
				Fields: out.Handoff.Fields,
			})
			if !instructed {
				state = stateHandedOff
			}

		case domain.StepClose:
			e.respond(ctx, p, closingMessage(out), map[string]any{
				"step":         string(out.Step),
				"close_reason": out.Close.Reason,
				"rationale":    out.Rationale,
			})
			p.conv = p.conv.WithResolution(domain.StatusClosed, domain.ResolutionMetadata{
				Resolved: true,
				Reason:   out.Close.Reason,
			})
			state = stateClosed

		case domain.StepRespond:
			done, err := e.reviewAndRespond(ctx, p, out)
			if err != nil {
				return err
			}
			if done {
				state = stateResponded
			} else {
				state = stateHandedOff
			}
		}
	}

	if state == statePlanning {
		state = stateExhausted
		p.exhausted = true
		e.logger.Warn("planning loop exhausted without outcome",
			"conversation_id", p.conv.ID, "iterations", maxLoopIterations)
	}
	e.logger.Debug("planning loop finished", "conversation_id", p.conv.ID, "state", string(state))
	return nil
}

// callTool appends a running tool message, executes the tool, and finishes
// the message in place with the result. Failures are recorded, never raised:
// the planner sees them next iteration.
func (e *Engine) callTool(ctx context.Context, p *pass, out *domain.PlannerOutput) {
	m := domain.NewMessage(p.conv.ID, domain.MessageTool, "running")
	m.Metadata = map[string]any{
		"tool":   out.ToolCall.Name,
		"args":   out.ToolCall.Args,
		"status": "running",
	}
	if err := e.store.Messages.Append(ctx, m); err != nil {
		e.logger.Error("tool message append failed", "conversation_id", p.conv.ID, "error", err)
	}

	entry := e.executor.Execute(ctx, *out.ToolCall)
	p.oc.AppendTool(entry)

	m.Content = entry.Result
	m.Metadata["status"] = "finished"
	m.Metadata["success"] = entry.Success
	if entry.ErrorClass != "" {
		m.Metadata["error_class"] = entry.ErrorClass
	}
	if err := e.store.Messages.Update(ctx, m); err != nil {
		e.logger.Error("tool message update failed", "conversation_id", p.conv.ID, "error", err)
	}
	p.msgs = append(p.msgs, m)

	e.logger.Info("tool executed", "conversation_id", p.conv.ID,
		"tool", entry.Name, "success", entry.Success, "latency_ms", entry.LatencyMS)
}

// reviewAndRespond runs the guardrail pipeline over a RESPOND candidate.
// Returns true when a response was delivered, false when the turn converted
// into a handoff.
func (e *Engine) reviewAndRespond(ctx context.Context, p *pass, out *domain.PlannerOutput) (bool, error) {
	verdict, err := e.guard.Review(ctx, guardrail.Input{
		Organization:  p.org,
		Messages:      p.msgs,
		Candidate:     out.UserMessage,
		Intent:        p.perception.Intent,
		Language:      p.language(),
		Orchestration: p.oc,
		Documents:     p.documents(),
		Replan:        e.replanWith(p, out),
	})
	if err != nil {
		return false, fmt.Errorf("guardrail: %w", err)
	}

	if verdict.Action == guardrail.ActionHandoff {
		e.handoff(ctx, p, handoffParams{
			Reason:          verdict.HandoffReason,
			CustomerMessage: verdict.Message,
			OriginalMessage: verdict.OriginalMessage,
		})
		return false, nil
	}

	if len(verdict.AttachDocs) > 0 {
		// The recheck's extra documents earned their place.
		p.oc.RAG.Hits = append(p.oc.RAG.Hits, verdict.AttachDocs...)
		p.conv = p.conv.WithDocuments(retrieval.HitIDs(verdict.AttachDocs))
	}

	metadata := map[string]any{
		"step":      "RESPOND",
		"rationale": out.Rationale,
	}
	if verdict.Confidence != nil {
		metadata["confidence_score"] = verdict.Confidence.Score
		metadata["confidence_tier"] = string(verdict.Confidence.Tier)
	}
	if verdict.OriginalMessage != "" && verdict.OriginalMessage != verdict.Message {
		metadata["original_message"] = verdict.OriginalMessage
	}
	e.respond(ctx, p, verdict.Message, metadata)
	return true, nil
}

// replanWith builds the recheck callback: one extra planning call with the
// relaxed-retrieval documents added to the grounding set.
func (e *Engine) replanWith(p *pass, out *domain.PlannerOutput) func(context.Context, []domain.DocumentHit) (string, error) {
	return func(ctx context.Context, extra []domain.DocumentHit) (string, error) {
		docs := append(append([]domain.DocumentHit{}, p.documents()...), extra...)
		improved, err := e.planner.Plan(ctx, planner.Input{
			Organization: p.org,
			Messages:     p.msgs,
			Playbook:     p.playbook,
			Documents:    docs,
			Tools:        e.executor.Specs(),
			Feedback:     "Rewrite your previous answer using the expanded reference documents. Respond with step RESPOND.",
		})
		if err != nil {
			return "", err
		}
		if improved.Step != domain.StepRespond || improved.UserMessage == "" {
			return "", fmt.Errorf("recheck replan produced %s instead of a response", improved.Step)
		}
		return improved.UserMessage, nil
	}
}

func closingMessage(out *domain.PlannerOutput) string {
	if out.UserMessage != "" {
		return out.UserMessage
	}
	return "Thanks for reaching out. I'm closing this conversation now, but message us anytime if you need anything else."
}
