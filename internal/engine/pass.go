package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/parleyhq/parley/internal/domain"
	"github.com/parleyhq/parley/internal/notify"
	"github.com/parleyhq/parley/internal/retrieval"
)

// pass carries the working state of one locked processing pass.
type pass struct {
	conv *domain.Conversation
	org  *domain.Organization
	oc   *domain.OrchestrationContext
	msgs []*domain.Message

	perception *domain.Perception
	playbook   *domain.Playbook

	// initialStatus detects status transitions worth notifying.
	initialStatus domain.ConversationStatus

	// handoffDone guards against a second handoff within the same pass.
	handoffDone bool

	// exhausted marks a planning loop that hit its iteration ceiling
	// without an outcome; the conversation stays eligible for a retry.
	exhausted bool
}

func (p *pass) language() string {
	if p.perception == nil {
		return ""
	}
	return p.perception.Language
}

func (p *pass) documents() []domain.DocumentHit {
	if p.oc.RAG == nil {
		return nil
	}
	return p.oc.RAG.Hits
}

// Process runs one pass over a single conversation. The conversation lock
// serializes passes: losing the acquire means another worker is already on
// it, which is a silent skip.
func (e *Engine) Process(ctx context.Context, id domain.ConversationID) error {
	acquired, err := e.locks.Acquire(ctx, id)
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !acquired {
		e.logger.Debug("conversation locked, skipping", "conversation_id", id)
		return nil
	}
	defer func() {
		if err := e.locks.Release(ctx, id); err != nil {
			e.logger.Warn("lock release failed, relying on TTL", "conversation_id", id, "error", err)
		}
	}()

	// Re-read under the lock; the eligible snapshot may be stale.
	conv, err := e.store.Conversations.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}
	if conv.Status.Terminal() || !conv.NeedsProcessing {
		return nil
	}

	org, err := e.store.Organizations.Get(ctx, conv.OrganizationID)
	if err != nil {
		return fmt.Errorf("load organization: %w", err)
	}
	msgs, err := e.store.Messages.List(ctx, conv.ID)
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}

	oc := conv.Orchestration
	if oc == nil {
		oc = domain.NewOrchestrationContext()
	}
	p := &pass{conv: conv, org: org, oc: oc, msgs: msgs, initialStatus: conv.Status}

	p.perception, err = e.classifier.Classify(ctx, msgs)
	if errors.Is(err, domain.ErrNoCustomerMessage) {
		// Nothing to react to. Clear the flag so the conversation stops
		// showing up as eligible.
		return e.finish(ctx, p)
	}
	if err != nil {
		// Leave needs_processing set; the next tick retries the pass.
		return fmt.Errorf("perception: %w", err)
	}

	if p.perception.Intent.ClosureIntent() {
		decision := e.closer.Validate(ctx, msgs, conv.PlaybookID != "")
		if decision.ShouldClose {
			return e.close(ctx, p, decision.Reason)
		}
	}

	e.selectPlaybook(ctx, p)
	e.retrieve(ctx, p)

	if err := e.runLoop(ctx, p); err != nil {
		e.logger.Error("planning loop failed", "conversation_id", conv.ID, "error", err)
		e.respond(ctx, p, "I'm sorry, something went wrong on our side. Please give me a moment and try again.", map[string]any{
			"step":  "RESPOND",
			"error": err.Error(),
		})
	}
	return e.finish(ctx, p)
}

// selectPlaybook updates the pass's playbook via scoring/continuation.
// Selection failures keep whatever is currently active.
func (e *Engine) selectPlaybook(ctx context.Context, p *pass) {
	candidates, err := e.store.Playbooks.ListActive(ctx, p.org.ID)
	if err != nil {
		e.logger.Warn("playbook listing failed", "conversation_id", p.conv.ID, "error", err)
		return
	}

	var active *domain.Playbook
	if p.conv.PlaybookID != "" {
		active, err = e.store.Playbooks.Get(ctx, p.conv.PlaybookID)
		if err != nil {
			e.logger.Warn("active playbook load failed", "conversation_id", p.conv.ID, "playbook_id", p.conv.PlaybookID, "error", err)
		}
	}

	selected, err := e.selector.Select(ctx, p.msgs, active, candidates)
	if err != nil {
		e.logger.Warn("playbook selection failed", "conversation_id", p.conv.ID, "error", err)
		p.playbook = active
		return
	}
	p.playbook = selected
	if selected != nil && selected.ID != p.conv.PlaybookID {
		p.conv = p.conv.WithPlaybook(selected.ID)
		p.oc.ActivePlaybook = &domain.PlaybookState{ID: selected.ID}
		e.logger.Info("playbook activated", "conversation_id", p.conv.ID, "playbook_id", selected.ID)
	}
}

// retrieve refreshes the grounding documents. Retrieval is fail-open: on
// error the pass continues with the previous pack.
func (e *Engine) retrieve(ctx context.Context, p *pass) {
	pack, err := e.retriever.Fetch(ctx, p.org.ID, p.msgs)
	if err != nil {
		e.logger.Warn("retrieval failed, continuing without fresh documents", "conversation_id", p.conv.ID, "error", err)
		return
	}
	if pack == nil {
		return
	}
	p.oc.RAG = pack
	p.conv = p.conv.WithDocuments(retrieval.HitIDs(pack.Hits))
}

// respond appends and delivers a customer-facing agent message.
func (e *Engine) respond(ctx context.Context, p *pass, content string, metadata map[string]any) *domain.Message {
	m := domain.NewMessage(p.conv.ID, domain.MessageBotAgent, content)
	m.Metadata = metadata
	if err := e.store.Messages.Append(ctx, m); err != nil {
		e.logger.Error("message append failed", "conversation_id", p.conv.ID, "error", err)
		return m
	}
	p.msgs = append(p.msgs, m)
	if e.delivery != nil {
		if err := e.delivery.Deliver(p.conv.ChannelKey, content); err != nil {
			e.logger.Warn("delivery failed", "conversation_id", p.conv.ID, "error", err)
		}
	}
	return m
}

// close resolves the conversation after a validated closure signal.
func (e *Engine) close(ctx context.Context, p *pass, reason string) error {
	if p.conv.Title == "" {
		if title := e.generateTitle(ctx, p.msgs); title != "" {
			p.conv = p.conv.WithTitle(title)
		}
	}

	e.respond(ctx, p, "Thanks for reaching out. I'm closing this conversation now, but message us anytime if you need anything else.", map[string]any{
		"step":         "CLOSE",
		"close_reason": reason,
	})

	p.conv = p.conv.WithResolution(domain.StatusResolved, domain.ResolutionMetadata{
		Resolved:   p.perception.Intent == domain.IntentCloseSatisfied,
		Confidence: p.perception.IntentConfidence,
		Reason:     reason,
	})
	return e.finish(ctx, p)
}

// finish persists the pass outcome: bumped context version, processing
// flag, status notification. An exhausted pass keeps needs_processing set
// so the next tick picks the conversation up again.
func (e *Engine) finish(ctx context.Context, p *pass) error {
	statusChanged := p.conv.Status != p.initialStatus

	p.oc.Bump(time.Now())
	p.conv = p.conv.WithOrchestration(p.oc).WithNeedsProcessing(p.exhausted)
	if err := e.store.Conversations.Update(ctx, p.conv); err != nil {
		return fmt.Errorf("persist conversation: %w", err)
	}

	if statusChanged {
		change := notify.StatusChange{
			ConversationID: p.conv.ID,
			Status:         p.conv.Status,
			Title:          p.conv.Title,
		}
		if err := e.notifier.Publish(ctx, change); err != nil {
			e.logger.Warn("status notification failed", "conversation_id", p.conv.ID, "error", err)
		}
	}
	return nil
}
