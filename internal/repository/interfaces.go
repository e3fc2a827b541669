// Package repository defines the persistence contracts the orchestration
// engine drives. The engine never issues raw queries; everything is keyed
// by id and organization id.
package repository

import (
	"context"

	"github.com/parleyhq/parley/internal/domain"
)

// ConversationRepo persists conversations.
type ConversationRepo interface {
	Create(ctx context.Context, c *domain.Conversation) error
	Get(ctx context.Context, id domain.ConversationID) (*domain.Conversation, error)
	// FindByChannelKey resolves the open conversation for an inbound
	// channel, or domain.ErrNotFound.
	FindByChannelKey(ctx context.Context, org domain.OrganizationID, key domain.ChannelKey) (*domain.Conversation, error)
	Update(ctx context.Context, c *domain.Conversation) error
	// ListEligible returns open conversations flagged needs_processing.
	ListEligible(ctx context.Context) ([]*domain.Conversation, error)
}

// MessageRepo persists messages. Append-only except for Update, which the
// engine uses to finish running tool messages in place and to write
// perception annotations onto the triggering customer message.
type MessageRepo interface {
	Append(ctx context.Context, m *domain.Message) error
	Update(ctx context.Context, m *domain.Message) error
	// List returns the conversation's messages in creation-time order.
	List(ctx context.Context, conv domain.ConversationID) ([]*domain.Message, error)
}

// PlaybookRepo reads organization playbooks.
type PlaybookRepo interface {
	Get(ctx context.Context, id domain.PlaybookID) (*domain.Playbook, error)
	// ListActive returns the organization's active playbooks in stable
	// order (playbook candidate tie-break relies on it).
	ListActive(ctx context.Context, org domain.OrganizationID) ([]*domain.Playbook, error)
}

// AgentRepo reads human support agents.
type AgentRepo interface {
	ListOnline(ctx context.Context, org domain.OrganizationID) ([]*domain.HumanAgent, error)
}

// OrganizationRepo reads tenant settings.
type OrganizationRepo interface {
	Get(ctx context.Context, id domain.OrganizationID) (*domain.Organization, error)
}

// Store bundles the repositories the engine needs.
type Store struct {
	Conversations ConversationRepo
	Messages      MessageRepo
	Playbooks     PlaybookRepo
	Agents        AgentRepo
	Organizations OrganizationRepo
}
