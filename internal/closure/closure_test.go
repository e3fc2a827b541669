package closure

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/parleyhq/parley/internal/domain"
	"github.com/parleyhq/parley/internal/prompts"
	"github.com/parleyhq/parley/pkg/llm"
)

type scriptedGateway struct {
	response string
	err      error
}

func (g *scriptedGateway) Complete(_ context.Context, _ llm.Request) (*llm.Response, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &llm.Response{Content: g.response}, nil
}

func newValidator(t *testing.T, gw llm.Gateway) *Validator {
	t.Helper()
	b, err := prompts.New("gpt-4o", 32768, 2048)
	if err != nil {
		t.Fatalf("budgeter: %v", err)
	}
	return New(gw, b, slog.Default())
}

func transcript() []*domain.Message {
	conv := domain.NewConversationID()
	return []*domain.Message{
		domain.NewMessage(conv, domain.MessageCustomer, "thanks, that fixed it"),
		domain.NewMessage(conv, domain.MessageBotAgent, "glad to help"),
		domain.NewMessage(conv, domain.MessageCustomer, "bye"),
	}
}

func TestValidateConfirmsClose(t *testing.T) {
	v := newValidator(t, &scriptedGateway{response: `{"shouldClose":true,"reason":"customer satisfied and said goodbye"}`})
	d := v.Validate(context.Background(), transcript(), false)
	if !d.ShouldClose {
		t.Fatalf("expected close, got %+v", d)
	}
}

func TestValidateRejectsClose(t *testing.T) {
	v := newValidator(t, &scriptedGateway{response: `{"shouldClose":false,"reason":"refund still pending"}`})
	d := v.Validate(context.Background(), transcript(), true)
	if d.ShouldClose {
		t.Fatalf("expected open, got %+v", d)
	}
}

func TestValidateFailsOpenOnGatewayError(t *testing.T) {
	v := newValidator(t, &scriptedGateway{err: errors.New("gateway down")})
	d := v.Validate(context.Background(), transcript(), false)
	if d.ShouldClose {
		t.Fatal("gateway failure must not close the conversation")
	}
}

func TestValidateFailsOpenOnBadSchema(t *testing.T) {
	v := newValidator(t, &scriptedGateway{response: `oops`})
	d := v.Validate(context.Background(), transcript(), false)
	if d.ShouldClose {
		t.Fatal("schema failure must not close the conversation")
	}
}
