package retrieval

import (
	"context"
	"strings"
	"testing"

	"github.com/parleyhq/parley/internal/domain"
)

type fakeSearcher struct {
	hits    []domain.DocumentHit
	queries []string
	topKs   []int
}

func (f *fakeSearcher) Search(_ context.Context, _ domain.OrganizationID, query string, topK int) ([]domain.DocumentHit, error) {
	f.queries = append(f.queries, query)
	f.topKs = append(f.topKs, topK)
	return f.hits, nil
}

func customer(content string) *domain.Message {
	return &domain.Message{Type: domain.MessageCustomer, Content: content}
}

func bot(content string) *domain.Message {
	return &domain.Message{Type: domain.MessageBotAgent, Content: content}
}

func TestQueryJoinsLastThreeCustomerMessages(t *testing.T) {
	msgs := []*domain.Message{
		customer("first"), bot("reply"),
		customer("second"), customer("third"), customer("fourth"),
	}
	if got := Query(msgs); got != "second third fourth" {
		t.Fatalf("query = %q", got)
	}
}

func TestQueryEmptyWithoutCustomerText(t *testing.T) {
	msgs := []*domain.Message{bot("hello"), customer("   ")}
	if got := Query(msgs); got != "" {
		t.Fatalf("query = %q, want empty", got)
	}
}

func TestFetchSkipsOnEmptyQuery(t *testing.T) {
	s := &fakeSearcher{}
	r := NewRetriever(s)
	pack, err := r.Fetch(context.Background(), "org-1", []*domain.Message{bot("hi")})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if pack != nil {
		t.Fatalf("expected skip, got %+v", pack)
	}
	if len(s.queries) != 0 {
		t.Fatal("searcher must not be called for an empty query")
	}
}

func TestFetchDiscardsLowSimilarity(t *testing.T) {
	s := &fakeSearcher{hits: []domain.DocumentHit{
		{ID: "a", Content: "good", Similarity: 0.9},
		{ID: "b", Content: "borderline", Similarity: 0.4},
		{ID: "c", Content: "weak", Similarity: 0.1},
	}}
	r := NewRetriever(s)
	pack, err := r.Fetch(context.Background(), "org-1", []*domain.Message{customer("refund policy")})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(pack.Hits) != 1 || pack.Hits[0].ID != "a" {
		t.Fatalf("hits = %+v", pack.Hits)
	}
	if s.topKs[0] != 5 {
		t.Fatalf("primary topK = %d", s.topKs[0])
	}
}

func TestFetchTruncatesHitContent(t *testing.T) {
	s := &fakeSearcher{hits: []domain.DocumentHit{
		{ID: "a", Content: strings.Repeat("x", 9000), Similarity: 0.8},
	}}
	r := NewRetriever(s)
	pack, err := r.Fetch(context.Background(), "org-1", []*domain.Message{customer("ship")})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !strings.HasSuffix(pack.Hits[0].Content, "[truncated]") {
		t.Fatal("hit content not truncated")
	}
}

func TestFetchRelaxedUsesWiderPass(t *testing.T) {
	s := &fakeSearcher{hits: []domain.DocumentHit{
		{ID: "a", Content: "ok", Similarity: 0.3},
		{ID: "b", Content: "too weak", Similarity: 0.25},
	}}
	r := NewRetriever(s)
	hits, err := r.FetchRelaxed(context.Background(), "org-1", "refund policy")
	if err != nil {
		t.Fatalf("FetchRelaxed: %v", err)
	}
	if s.topKs[0] != 10 {
		t.Fatalf("relaxed topK = %d", s.topKs[0])
	}
	if len(hits) != 1 || hits[0].ID != "a" {
		t.Fatalf("hits = %+v", hits)
	}
}
