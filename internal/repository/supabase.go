package repository

import (
	"context"
	"fmt"

	"github.com/supabase-community/supabase-go"

	"github.com/parleyhq/parley/internal/domain"
)

// SupabaseConfig holds connection configuration for the hosted store.
type SupabaseConfig struct {
	URL    string
	APIKey string
}

// SupabaseStore is the production Store over Supabase/postgrest tables:
// conversations, messages, playbooks, agents, organizations.
type SupabaseStore struct {
	client *supabase.Client
}

// NewSupabaseStore connects to Supabase.
func NewSupabaseStore(cfg SupabaseConfig) (*SupabaseStore, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("supabase URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("supabase API key is required")
	}
	client, err := supabase.NewClient(cfg.URL, cfg.APIKey, nil)
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return &SupabaseStore{client: client}, nil
}

// Store returns the repository bundle over this supabase store.
func (s *SupabaseStore) Store() *Store {
	return &Store{
		Conversations: &sbConversations{s.client},
		Messages:      &sbMessages{s.client},
		Playbooks:     &sbPlaybooks{s.client},
		Agents:        &sbAgents{s.client},
		Organizations: &sbOrganizations{s.client},
	}
}

type sbConversations struct{ client *supabase.Client }

func (r *sbConversations) Create(_ context.Context, c *domain.Conversation) error {
	_, _, err := r.client.From("conversations").Insert(c, false, "", "", "").Execute()
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

func (r *sbConversations) Get(_ context.Context, id domain.ConversationID) (*domain.Conversation, error) {
	var rows []domain.Conversation
	_, err := r.client.From("conversations").
		Select("*", "", false).
		Eq("id", string(id)).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
	}
	return &rows[0], nil
}

func (r *sbConversations) FindByChannelKey(_ context.Context, org domain.OrganizationID, key domain.ChannelKey) (*domain.Conversation, error) {
	var rows []domain.Conversation
	_, err := r.client.From("conversations").
		Select("*", "", false).
		Eq("organization_id", string(org)).
		Eq("channel_key", string(key)).
		Eq("status", string(domain.StatusOpen)).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("find conversation by channel: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("channel %s: %w", key, domain.ErrNotFound)
	}
	return &rows[0], nil
}

func (r *sbConversations) Update(_ context.Context, c *domain.Conversation) error {
	_, _, err := r.client.From("conversations").
		Update(c, "", "").
		Eq("id", string(c.ID)).
		Execute()
	if err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}
	return nil
}

func (r *sbConversations) ListEligible(_ context.Context) ([]*domain.Conversation, error) {
	var rows []*domain.Conversation
	_, err := r.client.From("conversations").
		Select("*", "", false).
		Eq("status", string(domain.StatusOpen)).
		Eq("needs_processing", "true").
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("list eligible conversations: %w", err)
	}
	return rows, nil
}

type sbMessages struct{ client *supabase.Client }

func (r *sbMessages) Append(_ context.Context, m *domain.Message) error {
	_, _, err := r.client.From("messages").Insert(m, false, "", "", "").Execute()
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *sbMessages) Update(_ context.Context, m *domain.Message) error {
	_, _, err := r.client.From("messages").
		Update(m, "", "").
		Eq("id", string(m.ID)).
		Execute()
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	return nil
}

func (r *sbMessages) List(_ context.Context, conv domain.ConversationID) ([]*domain.Message, error) {
	var rows []*domain.Message
	_, err := r.client.From("messages").
		Select("*", "", false).
		Eq("conversation_id", string(conv)).
		Order("created_at", nil).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return rows, nil
}

type sbPlaybooks struct{ client *supabase.Client }

func (r *sbPlaybooks) Get(_ context.Context, id domain.PlaybookID) (*domain.Playbook, error) {
	var rows []domain.Playbook
	_, err := r.client.From("playbooks").
		Select("*", "", false).
		Eq("id", string(id)).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("get playbook: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("playbook %s: %w", id, domain.ErrNotFound)
	}
	return &rows[0], nil
}

func (r *sbPlaybooks) ListActive(_ context.Context, org domain.OrganizationID) ([]*domain.Playbook, error) {
	var rows []*domain.Playbook
	_, err := r.client.From("playbooks").
		Select("*", "", false).
		Eq("organization_id", string(org)).
		Eq("active", "true").
		Order("created_at", nil).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("list active playbooks: %w", err)
	}
	return rows, nil
}

type sbAgents struct{ client *supabase.Client }

func (r *sbAgents) ListOnline(_ context.Context, org domain.OrganizationID) ([]*domain.HumanAgent, error) {
	var rows []*domain.HumanAgent
	_, err := r.client.From("agents").
		Select("*", "", false).
		Eq("organization_id", string(org)).
		Eq("online", "true").
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("list online agents: %w", err)
	}
	return rows, nil
}

type sbOrganizations struct{ client *supabase.Client }

func (r *sbOrganizations) Get(_ context.Context, id domain.OrganizationID) (*domain.Organization, error) {
	var rows []domain.Organization
	_, err := r.client.From("organizations").
		Select("*", "", false).
		Eq("id", string(id)).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("get organization: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("organization %s: %w", id, domain.ErrNotFound)
	}
	return &rows[0], nil
}
