package intake

import (
	"context"
	"testing"

	"github.com/parleyhq/parley/internal/domain"
	"github.com/parleyhq/parley/internal/repository"
)

func newService(t *testing.T) (*Service, *repository.Store) {
	t.Helper()
	fs, err := repository.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	store := fs.Store()
	return New(store, nil), store
}

func TestReceiveCreatesConversationOnFirstContact(t *testing.T) {
	s, store := newService(t)
	ctx := context.Background()

	conv, err := s.Receive(ctx, "org-1", "telegram:1:2", "hello")
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if conv.Status != domain.StatusOpen || !conv.NeedsProcessing {
		t.Fatalf("conversation = %+v", conv)
	}

	msgs, err := store.Messages.List(ctx, conv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Type != domain.MessageCustomer || msgs[0].Content != "hello" {
		t.Fatalf("messages = %+v", msgs)
	}
}

func TestReceiveReusesOpenConversation(t *testing.T) {
	s, store := newService(t)
	ctx := context.Background()

	first, err := s.Receive(ctx, "org-1", "telegram:1:2", "hello")
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Receive(ctx, "org-1", "telegram:1:2", "still there?")
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same conversation, got %s and %s", first.ID, second.ID)
	}
	msgs, _ := store.Messages.List(ctx, first.ID)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
}

func TestReceiveNewConversationAfterClose(t *testing.T) {
	s, store := newService(t)
	ctx := context.Background()

	first, err := s.Receive(ctx, "org-1", "telegram:1:2", "hello")
	if err != nil {
		t.Fatal(err)
	}
	closed := first.WithStatus(domain.StatusResolved)
	if err := store.Conversations.Update(ctx, closed); err != nil {
		t.Fatal(err)
	}

	second, err := s.Receive(ctx, "org-1", "telegram:1:2", "new question")
	if err != nil {
		t.Fatal(err)
	}
	if second.ID == first.ID {
		t.Fatal("resolved conversation must not be reused")
	}
}
