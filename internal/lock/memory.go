package lock

import (
	"context"
	"sync"
	"time"

	"github.com/parleyhq/parley/internal/domain"
)

// MemoryCoordinator is an in-process Coordinator for development and
// tests. Locks honor the same TTL expiry semantics as the redis driver.
type MemoryCoordinator struct {
	mu    sync.Mutex
	ttl   time.Duration
	held  map[domain.ConversationID]time.Time
	clock func() time.Time
}

// NewMemoryCoordinator creates an in-memory coordinator.
func NewMemoryCoordinator(ttl time.Duration) *MemoryCoordinator {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCoordinator{
		ttl:   ttl,
		held:  make(map[domain.ConversationID]time.Time),
		clock: time.Now,
	}
}

// Acquire implements Coordinator.
func (c *MemoryCoordinator) Acquire(_ context.Context, id domain.ConversationID) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock()
	if until, ok := c.held[id]; ok && now.Before(until) {
		return false, nil
	}
	c.held[id] = now.Add(c.ttl)
	return true, nil
}

// Release implements Coordinator.
func (c *MemoryCoordinator) Release(_ context.Context, id domain.ConversationID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.held, id)
	return nil
}

var _ Coordinator = (*MemoryCoordinator)(nil)
