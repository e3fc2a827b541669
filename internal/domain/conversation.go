// Package domain holds the conversation model shared by every stage of the
// orchestration engine. Entities are plain values; all state changes go
// through pure transition functions so the engine (not the entity) owns
// persistence.
package domain

import "time"

// ConversationStatus is the lifecycle state of a conversation.
type ConversationStatus string

const (
	StatusOpen          ConversationStatus = "open"
	StatusPendingHuman  ConversationStatus = "pending_human"
	StatusResolved      ConversationStatus = "resolved"
	StatusClosed        ConversationStatus = "closed"
	StatusHumanTookOver ConversationStatus = "human_took_over"
)

// Terminal reports whether the scheduler should stop processing the
// conversation.
func (s ConversationStatus) Terminal() bool {
	return s != StatusOpen
}

// ResolutionMetadata records why a conversation left the open state.
type ResolutionMetadata struct {
	Resolved   bool    `json:"resolved"`
	Confidence float64 `json:"confidence,omitempty"`
	Reason     string  `json:"reason,omitempty"`
}

// Conversation is the engine's unit of work. It is a value: callers never
// mutate fields directly, they derive updated copies via the With* helpers
// and persist through the repository.
type Conversation struct {
	ID             ConversationID     `json:"id"`
	OrganizationID OrganizationID     `json:"organization_id"`
	ChannelKey     ChannelKey         `json:"channel_key"`
	Status         ConversationStatus `json:"status"`
	Title          string             `json:"title,omitempty"`

	AgentID     AgentID      `json:"agent_id,omitempty"`
	PlaybookID  PlaybookID   `json:"playbook_id,omitempty"`
	DocumentIDs []DocumentID `json:"document_ids,omitempty"`

	Orchestration *OrchestrationContext `json:"orchestration_status,omitempty"`

	NeedsProcessing bool                `json:"needs_processing"`
	Resolution      *ResolutionMetadata `json:"resolution_metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewConversation creates an open conversation for the given organization
// and channel.
func NewConversation(org OrganizationID, channel ChannelKey) *Conversation {
	now := time.Now()
	return &Conversation{
		ID:             NewConversationID(),
		OrganizationID: org,
		ChannelKey:     channel,
		Status:         StatusOpen,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// WithStatus returns a copy with the status changed.
func (c Conversation) WithStatus(s ConversationStatus) *Conversation {
	c.Status = s
	c.UpdatedAt = time.Now()
	return &c
}

// WithResolution returns a copy marked resolved/closed with metadata.
func (c Conversation) WithResolution(s ConversationStatus, meta ResolutionMetadata) *Conversation {
	c.Status = s
	c.Resolution = &meta
	c.NeedsProcessing = false
	c.UpdatedAt = time.Now()
	return &c
}

// WithTitle returns a copy with the title set.
func (c Conversation) WithTitle(title string) *Conversation {
	c.Title = title
	c.UpdatedAt = time.Now()
	return &c
}

// WithPlaybook returns a copy with the active playbook changed.
func (c Conversation) WithPlaybook(id PlaybookID) *Conversation {
	c.PlaybookID = id
	c.UpdatedAt = time.Now()
	return &c
}

// WithAgent returns a copy assigned to a human agent.
func (c Conversation) WithAgent(id AgentID) *Conversation {
	c.AgentID = id
	c.UpdatedAt = time.Now()
	return &c
}

// WithNeedsProcessing returns a copy with the processing flag set.
func (c Conversation) WithNeedsProcessing(v bool) *Conversation {
	c.NeedsProcessing = v
	c.UpdatedAt = time.Now()
	return &c
}

// WithDocuments returns a copy whose attached document set is the union of
// the current set and ids. Attachment is idempotent: already-attached ids
// are not duplicated and ordering of existing ids is preserved.
func (c Conversation) WithDocuments(ids []DocumentID) *Conversation {
	seen := make(map[DocumentID]bool, len(c.DocumentIDs))
	docs := make([]DocumentID, len(c.DocumentIDs))
	copy(docs, c.DocumentIDs)
	for _, id := range c.DocumentIDs {
		seen[id] = true
	}
	for _, id := range ids {
		if !seen[id] {
			docs = append(docs, id)
			seen[id] = true
		}
	}
	c.DocumentIDs = docs
	c.UpdatedAt = time.Now()
	return &c
}

// WithDocumentSet returns a copy whose attached document set is exactly ids.
// Used to revert an optimistic recheck attachment.
func (c Conversation) WithDocumentSet(ids []DocumentID) *Conversation {
	docs := make([]DocumentID, len(ids))
	copy(docs, ids)
	c.DocumentIDs = docs
	c.UpdatedAt = time.Now()
	return &c
}

// WithOrchestration returns a copy carrying the given orchestration context.
func (c Conversation) WithOrchestration(oc *OrchestrationContext) *Conversation {
	c.Orchestration = oc
	c.UpdatedAt = time.Now()
	return &c
}
