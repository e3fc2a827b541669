// Package lock serializes processing passes per conversation. The
// coordinator is the only cross-conversation shared mutable state: it must
// be acquired before any mutation of a conversation's orchestration fields
// and released on every exit path.
package lock

import (
	"context"

	"github.com/parleyhq/parley/internal/domain"
)

// Coordinator guards conversations against concurrent processing passes.
type Coordinator interface {
	// Acquire takes the conversation lock. It returns false when another
	// owner already holds a valid lock; callers treat that as "already
	// being processed, skip silently", never as an error.
	Acquire(ctx context.Context, id domain.ConversationID) (bool, error)

	// Release clears the lock unconditionally for this owner. A failed
	// release is logged by the caller but never re-thrown: the lock's TTL
	// self-expires, bounding how long a stuck lock can block others.
	Release(ctx context.Context, id domain.ConversationID) error
}
