// Package intake turns inbound channel messages into conversation state:
// resolve or create the conversation for the channel key, append the
// customer message, and flag the conversation for the next tick.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/parleyhq/parley/internal/domain"
	"github.com/parleyhq/parley/internal/repository"
)

// Service ingests customer messages from any channel adapter.
type Service struct {
	store  *repository.Store
	logger *slog.Logger
}

// New creates an intake service.
func New(store *repository.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// Receive records one inbound customer message and returns the conversation
// it landed in. The conversation is created on first contact for the channel
// key and always leaves flagged for processing.
func (s *Service) Receive(ctx context.Context, org domain.OrganizationID, key domain.ChannelKey, text string) (*domain.Conversation, error) {
	conv, err := s.store.Conversations.FindByChannelKey(ctx, org, key)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		conv = domain.NewConversation(org, key)
		if err := s.store.Conversations.Create(ctx, conv); err != nil {
			return nil, fmt.Errorf("create conversation: %w", err)
		}
		s.logger.Info("conversation created", "conversation_id", conv.ID, "channel_key", key)
	case err != nil:
		return nil, fmt.Errorf("resolve conversation: %w", err)
	}

	m := domain.NewMessage(conv.ID, domain.MessageCustomer, text)
	if err := s.store.Messages.Append(ctx, m); err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}

	conv = conv.WithNeedsProcessing(true)
	if err := s.store.Conversations.Update(ctx, conv); err != nil {
		return nil, fmt.Errorf("flag conversation: %w", err)
	}
	return conv, nil
}
