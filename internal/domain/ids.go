// internal/domain/ids.go
package domain

import (
	"strings"

	"github.com/google/uuid"
)

type ConversationID string
type MessageID string
type OrganizationID string
type PlaybookID string
type DocumentID string
type AgentID string

// ChannelKey identifies the inbound channel a conversation arrived on,
// e.g. "telegram:12345:67890" or "web:abc". Delivery handlers match on
// the prefix.
type ChannelKey string

func NewConversationID() ConversationID {
	return ConversationID(uuid.New().String())
}

func NewMessageID() MessageID {
	return MessageID(uuid.New().String())
}

func NewChannelKey(parts ...string) ChannelKey {
	return ChannelKey(strings.Join(parts, ":"))
}
