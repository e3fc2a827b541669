// Package delivery routes outbound messages to the channel that owns a
// conversation.
package delivery

import (
	"fmt"
	"strings"
	"sync"

	"github.com/parleyhq/parley/internal/domain"
)

// Handler delivers a message to the customer behind a channel key.
type Handler func(key domain.ChannelKey, message string) error

// Registry routes messages to the appropriate delivery handler based on
// channel key prefix (e.g. "telegram:", "webhook:").
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty delivery registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register adds a handler for channel keys starting with prefix.
func (r *Registry) Register(prefix string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[prefix] = handler
}

// Deliver finds the handler matching the channel key prefix and calls it.
// Returns an error if no handler is registered for the prefix.
func (r *Registry) Deliver(key domain.ChannelKey, message string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for prefix, handler := range r.handlers {
		if strings.HasPrefix(string(key), prefix) {
			return handler(key, message)
		}
	}
	return fmt.Errorf("no delivery handler for channel key: %s", key)
}
