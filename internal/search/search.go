// Package search defines the similarity-search contract the retrieval
// stage depends on.
package search

import (
	"context"

	"github.com/parleyhq/parley/internal/domain"
)

// Searcher performs organization-scoped similarity search over the
// knowledge index. Implementations must be safe for concurrent use and must
// lazily ensure the underlying index is reachable before the first query.
type Searcher interface {
	Search(ctx context.Context, org domain.OrganizationID, query string, topK int) ([]domain.DocumentHit, error)
}
