// Package planner decides the next conversational move: ask, respond, call a
// tool, hand off, or close. One gateway call per loop iteration, constrained
// to a tagged output schema.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/parleyhq/parley/internal/domain"
	"github.com/parleyhq/parley/internal/prompts"
	"github.com/parleyhq/parley/pkg/llm"
)

// languagePinWindow is the customer-message count below which the planner is
// pinned to the perceived language. With four or more customer messages the
// transcript itself carries enough signal.
const languagePinWindow = 4

// ToolSpec describes a tool the planner may request.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// Planner produces the next step for a conversation turn.
type Planner struct {
	gateway  llm.Gateway
	budgeter *prompts.Budgeter
}

// New creates a planner backed by the given gateway.
func New(gateway llm.Gateway, budgeter *prompts.Budgeter) *Planner {
	return &Planner{gateway: gateway, budgeter: budgeter}
}

// Input gathers everything a planning call sees.
type Input struct {
	Organization *domain.Organization
	Messages     []*domain.Message
	Playbook     *domain.Playbook
	Documents    []domain.DocumentHit
	Tools        []ToolSpec

	// Feedback carries a correction for the previous invalid output, if any.
	Feedback string
}

// Plan runs one planning call over the full message history and returns a
// validated step.
func (p *Planner) Plan(ctx context.Context, in Input) (*domain.PlannerOutput, error) {
	system := p.systemInstruction(in)
	history := p.budgeter.Transcript(in.Messages, p.budgeter.InputBudget()-p.budgeter.CountTokens(system))

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: system})
	messages = append(messages, history...)
	if in.Feedback != "" {
		messages = append(messages, llm.Message{Role: "system", Content: in.Feedback})
	}

	out, err := llm.Invoke[domain.PlannerOutput](ctx, p.gateway, messages, outputSchema)
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}
	if err := ValidateOutput(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *Planner) systemInstruction(in Input) string {
	var b strings.Builder
	b.WriteString("You are a customer support agent. Decide the single next step for this conversation.\n\n")
	b.WriteString("Steps:\n")
	b.WriteString("- ASK: you need more information from the customer. Set userMessage to the question.\n")
	b.WriteString("- RESPOND: you can answer now. Set userMessage to the answer, grounded in the reference documents below.\n")
	b.WriteString("- CALL_TOOL: you need data from a tool first. Set toolCall to the tool name and args.\n")
	b.WriteString("- HANDOFF: the customer needs a human. Set handoff.reason.\n")
	b.WriteString("- CLOSE: the conversation is finished. Set close.reason.\n")

	if in.Organization != nil && in.Organization.Description != "" {
		b.WriteString("\nAbout the company:\n")
		b.WriteString(in.Organization.Description)
		b.WriteString("\n")
	}

	if in.Playbook != nil {
		b.WriteString("\nActive playbook: ")
		b.WriteString(in.Playbook.Name)
		b.WriteString("\nFollow these steps in order, one per turn:\n")
		for i, step := range in.Playbook.Steps {
			fmt.Fprintf(&b, "%d. %s\n", i+1, step)
		}
	}

	if len(in.Tools) > 0 {
		b.WriteString("\nAvailable tools:\n")
		for _, t := range in.Tools {
			fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Description)
			if len(t.Parameters) > 0 {
				fmt.Fprintf(&b, "  args schema: %s\n", t.Parameters)
			}
		}
	}

	if len(in.Documents) > 0 {
		b.WriteString("\nReference documents:\n")
		for _, d := range in.Documents {
			fmt.Fprintf(&b, "--- document %s ---\n%s\n", d.ID, d.Content)
		}
		b.WriteString("Only state facts supported by the reference documents or tool results.\n")
	}

	if lang := pinnedLanguage(in.Messages); lang != "" {
		fmt.Fprintf(&b, "\nRespond in %s.\n", lang)
	}

	b.WriteString("\nNever invent order numbers, prices, policies, or dates. When unsure, ASK or HANDOFF.")
	return b.String()
}

// pinnedLanguage returns the perceived language of the latest customer
// message while the conversation is still short enough to need pinning.
func pinnedLanguage(msgs []*domain.Message) string {
	var customer []*domain.Message
	for _, m := range msgs {
		if m.Type == domain.MessageCustomer {
			customer = append(customer, m)
		}
	}
	if len(customer) == 0 || len(customer) >= languagePinWindow {
		return ""
	}
	last := customer[len(customer)-1]
	if last.Perception == nil {
		return ""
	}
	return last.Perception.Language
}
