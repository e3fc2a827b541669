// Package notify publishes conversation status changes for live UI
// consumers. Publishing is fire-and-forget: failures are logged by
// callers, never fatal.
package notify

import (
	"context"

	"github.com/parleyhq/parley/internal/domain"
)

// StatusChange is the event published on every conversation status
// transition.
type StatusChange struct {
	ConversationID domain.ConversationID     `json:"conversationId"`
	Status         domain.ConversationStatus `json:"status"`
	Title          string                    `json:"title,omitempty"`
}

// Notifier publishes status changes.
type Notifier interface {
	Publish(ctx context.Context, change StatusChange) error
}

// Noop discards all notifications.
type Noop struct{}

// Publish implements Notifier.
func (Noop) Publish(context.Context, StatusChange) error { return nil }
