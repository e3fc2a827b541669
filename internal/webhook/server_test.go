package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/parleyhq/parley/internal/domain"
	"github.com/parleyhq/parley/internal/intake"
	"github.com/parleyhq/parley/internal/repository"
)

type fakeProcessor struct {
	ticks int
}

func (f *fakeProcessor) Tick(context.Context) error {
	f.ticks++
	return nil
}

func newServer(t *testing.T) (*Server, *repository.Store, *fakeProcessor) {
	t.Helper()
	fs, err := repository.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	store := fs.Store()
	proc := &fakeProcessor{}
	return NewServer(intake.New(store, nil), proc, store, nil), store, proc
}

func TestHealthEndpoint(t *testing.T) {
	s, _, _ := newServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestInboundCreatesConversation(t *testing.T) {
	s, store, _ := newServer(t)
	body := `{"organization_id":"org-1","channel_key":"webhook:cust-9","text":"my order is late"}`
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest("POST", "/inbound", strings.NewReader(body)))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	conv, err := store.Conversations.Get(context.Background(), domain.ConversationID(resp["conversation_id"]))
	if err != nil {
		t.Fatalf("conversation not created: %v", err)
	}
	if !conv.NeedsProcessing {
		t.Fatal("conversation not flagged for processing")
	}
}

func TestInboundValidation(t *testing.T) {
	s, _, _ := newServer(t)
	for _, body := range []string{
		`not json`,
		`{"organization_id":"org-1"}`,
		`{"organization_id":"org-1","channel_key":"webhook:x","text":""}`,
	} {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest("POST", "/inbound", strings.NewReader(body)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d", body, rec.Code)
		}
	}
}

func TestTickEndpoint(t *testing.T) {
	s, _, proc := newServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest("POST", "/tick", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if proc.ticks != 1 {
		t.Fatalf("ticks = %d", proc.ticks)
	}
}

func TestConversationReadAPI(t *testing.T) {
	s, store, _ := newServer(t)
	conv := domain.NewConversation("org-1", "webhook:cust-9")
	if err := store.Conversations.Create(context.Background(), conv); err != nil {
		t.Fatal(err)
	}
	m := domain.NewMessage(conv.ID, domain.MessageCustomer, "hello")
	if err := store.Messages.Append(context.Background(), m); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest("GET", "/api/conversations/"+string(conv.ID), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest("GET", "/api/conversations/"+string(conv.ID)+"/messages", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("messages status = %d", rec.Code)
	}
	var msgs []*domain.Message
	if err := json.Unmarshal(rec.Body.Bytes(), &msgs); err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Content != "hello" {
		t.Fatalf("messages = %+v", msgs)
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest("GET", "/api/conversations/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing conversation status = %d", rec.Code)
	}
}
