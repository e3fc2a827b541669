package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestSearch(serverURL string) *WebSearch {
	w := NewWebSearch("test-key")
	w.baseURL = serverURL
	return w
}

func TestWebSearchExecute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Subscription-Token"); got != "test-key" {
			t.Errorf("missing subscription token, got %q", got)
		}
		if got := r.URL.Query().Get("q"); got != "return policy" {
			t.Errorf("query = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"web":{"results":[{"title":"Returns","url":"https://example.com/returns","description":"30 day returns"}]}}`))
	}))
	defer server.Close()

	s := newTestSearch(server.URL)
	args, _ := json.Marshal(map[string]any{"query": "return policy"})
	result, err := s.Execute(context.Background(), args)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result, "Returns") || !strings.Contains(result, "30 day returns") {
		t.Errorf("unexpected result: %q", result)
	}
}

func TestWebSearchMissingQuery(t *testing.T) {
	s := NewWebSearch("test-key")
	args, _ := json.Marshal(map[string]any{})
	_, err := s.Execute(context.Background(), args)
	if err == nil {
		t.Fatal("expected error for missing query")
	}
}

func TestWebSearchNoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"web":{"results":[]}}`))
	}))
	defer server.Close()

	s := newTestSearch(server.URL)
	args, _ := json.Marshal(map[string]any{"query": "nothing"})
	result, err := s.Execute(context.Background(), args)
	if err != nil {
		t.Fatal(err)
	}
	if result != "No results found." {
		t.Errorf("result = %q", result)
	}
}

func TestWebSearchAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	s := newTestSearch(server.URL)
	args, _ := json.Marshal(map[string]any{"query": "anything"})
	_, err := s.Execute(context.Background(), args)
	if err == nil {
		t.Fatal("expected error for API failure")
	}
}
