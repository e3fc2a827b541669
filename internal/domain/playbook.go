package domain

import "time"

// Playbook is an organization-defined scripted workflow the engine can
// activate to steer a conversation.
type Playbook struct {
	ID             PlaybookID     `json:"id"`
	OrganizationID OrganizationID `json:"organization_id"`
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	Steps          []string       `json:"steps,omitempty"`
	Active         bool           `json:"active"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Document is a knowledge document reference. Content lives in the vector
// index; the repository keeps enough for attachment bookkeeping.
type Document struct {
	ID             DocumentID     `json:"id"`
	OrganizationID OrganizationID `json:"organization_id"`
	Title          string         `json:"title,omitempty"`
}

// HumanAgent is a support person who can take over conversations.
type HumanAgent struct {
	ID             AgentID        `json:"id"`
	OrganizationID OrganizationID `json:"organization_id"`
	Name           string         `json:"name"`
	Online         bool           `json:"online"`
}

// Organization carries the per-tenant settings the engine consults.
type Organization struct {
	ID     OrganizationID `json:"id"`
	Name   string         `json:"name"`
	Domain string         `json:"domain,omitempty"`

	// Description feeds the company-interest guardrail's domain context.
	Description string `json:"description,omitempty"`

	// HandoffAvailableInstructions / HandoffUnavailableInstructions are
	// optional prompts run when a handoff resolves with/without online
	// humans. Empty means use the built-in message.
	HandoffAvailableInstructions   string `json:"handoff_available_instructions,omitempty"`
	HandoffUnavailableInstructions string `json:"handoff_unavailable_instructions,omitempty"`

	// EscalationEnabled selects the low-confidence fallback policy:
	// handoff when true, silent fallback substitution when false.
	EscalationEnabled bool `json:"escalation_enabled"`
}
