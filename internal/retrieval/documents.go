package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/parleyhq/parley/internal/domain"
	"github.com/parleyhq/parley/internal/prompts"
	"github.com/parleyhq/parley/internal/search"
)

const (
	// queryWindow is how many recent customer messages form the search query.
	queryWindow = 3

	// primaryTopK / primaryMinScore govern the normal retrieval pass.
	primaryTopK     = 5
	primaryMinScore = 0.4

	// recheckTopK / recheckMinScore govern the relaxed medium-confidence
	// recheck pass.
	recheckTopK     = 10
	recheckMinScore = 0.25
)

// Retriever runs document similarity search for conversations.
type Retriever struct {
	searcher search.Searcher
}

// NewRetriever creates a retriever over the given searcher.
func NewRetriever(searcher search.Searcher) *Retriever {
	return &Retriever{searcher: searcher}
}

// Query builds the search query from the last customer messages. Empty when
// the conversation has no customer text to search on.
func Query(msgs []*domain.Message) string {
	recent := prompts.LastCustomerMessages(msgs, queryWindow)
	parts := make([]string, 0, len(recent))
	for _, m := range recent {
		if t := strings.TrimSpace(m.Content); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// Fetch runs the primary retrieval pass and returns the pack to store on the
// orchestration context. A nil pack means retrieval was skipped (empty
// query).
func (r *Retriever) Fetch(ctx context.Context, org domain.OrganizationID, msgs []*domain.Message) (*domain.RetrievalPack, error) {
	query := Query(msgs)
	if query == "" {
		return nil, nil
	}
	hits, err := r.search(ctx, org, query, primaryTopK, primaryMinScore)
	if err != nil {
		return nil, err
	}
	return &domain.RetrievalPack{Query: query, Hits: hits}, nil
}

// FetchRelaxed runs the wider, lower-threshold pass used by the confidence
// recheck.
func (r *Retriever) FetchRelaxed(ctx context.Context, org domain.OrganizationID, query string) ([]domain.DocumentHit, error) {
	return r.search(ctx, org, query, recheckTopK, recheckMinScore)
}

func (r *Retriever) search(ctx context.Context, org domain.OrganizationID, query string, topK int, minScore float64) ([]domain.DocumentHit, error) {
	hits, err := r.searcher.Search(ctx, org, query, topK)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	kept := hits[:0]
	for _, h := range hits {
		if h.Similarity <= minScore {
			continue
		}
		h.Content = TruncateContent(h.Content)
		kept = append(kept, h)
	}
	return kept, nil
}

// HitIDs extracts document ids for conversation attachment.
func HitIDs(hits []domain.DocumentHit) []domain.DocumentID {
	ids := make([]domain.DocumentID, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.ID)
	}
	return ids
}
