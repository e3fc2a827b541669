package planner

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/parleyhq/parley/internal/domain"
	"github.com/parleyhq/parley/internal/prompts"
	"github.com/parleyhq/parley/pkg/llm"
)

type scriptedGateway struct {
	responses []string
	requests  []llm.Request
}

func (g *scriptedGateway) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	g.requests = append(g.requests, req)
	if len(g.responses) == 0 {
		return nil, errors.New("no scripted response")
	}
	content := g.responses[0]
	g.responses = g.responses[1:]
	return &llm.Response{Content: content}, nil
}

func newTestPlanner(t *testing.T, gw llm.Gateway) *Planner {
	t.Helper()
	b, err := prompts.New("gpt-4o", 32768, 2048)
	if err != nil {
		t.Fatalf("budgeter: %v", err)
	}
	return New(gw, b)
}

func customerMsg(content, lang string) *domain.Message {
	m := &domain.Message{Type: domain.MessageCustomer, Content: content}
	if lang != "" {
		m.Perception = &domain.Perception{Language: lang}
	}
	return m
}

func TestPlanRespond(t *testing.T) {
	gw := &scriptedGateway{responses: []string{
		`{"step":"RESPOND","userMessage":"Your order shipped yesterday.","rationale":"tracked"}`,
	}}
	p := newTestPlanner(t, gw)
	out, err := p.Plan(context.Background(), Input{
		Messages: []*domain.Message{customerMsg("where is my order", "")},
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if out.Step != domain.StepRespond {
		t.Fatalf("step = %q", out.Step)
	}
	if out.UserMessage == "" {
		t.Fatal("empty userMessage")
	}
}

func TestPlanInvalidVariants(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"respond without message", `{"step":"RESPOND"}`},
		{"ask without message", `{"step":"ASK"}`},
		{"tool without name", `{"step":"CALL_TOOL","toolCall":{"args":{}}}`},
		{"handoff without reason", `{"step":"HANDOFF","handoff":{"fields":{}}}`},
		{"close without reason", `{"step":"CLOSE"}`},
		{"unknown step", `{"step":"DANCE"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := &scriptedGateway{responses: []string{tc.body}}
			p := newTestPlanner(t, gw)
			_, err := p.Plan(context.Background(), Input{
				Messages: []*domain.Message{customerMsg("hi", "")},
			})
			if !errors.Is(err, llm.ErrSchema) {
				t.Fatalf("want ErrSchema, got %v", err)
			}
		})
	}
}

func TestPlanLanguagePin(t *testing.T) {
	gw := &scriptedGateway{responses: []string{
		`{"step":"ASK","userMessage":"Quel est votre numero de commande ?"}`,
	}}
	p := newTestPlanner(t, gw)
	_, err := p.Plan(context.Background(), Input{
		Messages: []*domain.Message{customerMsg("bonjour", "French")},
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	system := gw.requests[0].Messages[0].Content
	if !strings.Contains(system, "Respond in French") {
		t.Fatalf("language pin missing from system instruction:\n%s", system)
	}
}

func TestPlanLanguagePinDroppedAfterFourCustomerMessages(t *testing.T) {
	gw := &scriptedGateway{responses: []string{
		`{"step":"ASK","userMessage":"ok"}`,
	}}
	p := newTestPlanner(t, gw)
	msgs := []*domain.Message{
		customerMsg("bonjour", "French"),
		customerMsg("ma commande", "French"),
		customerMsg("numero 123", "French"),
		customerMsg("toujours rien", "French"),
	}
	if _, err := p.Plan(context.Background(), Input{Messages: msgs}); err != nil {
		t.Fatalf("Plan: %v", err)
	}
	system := gw.requests[0].Messages[0].Content
	if strings.Contains(system, "Respond in") {
		t.Fatalf("language pin should be dropped by the fourth customer message:\n%s", system)
	}
}

func TestPlanIncludesToolsAndDocuments(t *testing.T) {
	gw := &scriptedGateway{responses: []string{
		`{"step":"CALL_TOOL","toolCall":{"name":"order_lookup","args":{"order_id":"123"}}}`,
	}}
	p := newTestPlanner(t, gw)
	out, err := p.Plan(context.Background(), Input{
		Messages: []*domain.Message{customerMsg("where is order 123", "")},
		Tools: []ToolSpec{{
			Name:        "order_lookup",
			Description: "Fetch an order by id",
			Parameters:  json.RawMessage(`{"type":"object","properties":{"order_id":{"type":"string"}}}`),
		}},
		Documents: []domain.DocumentHit{{ID: "doc-1", Content: "Shipping takes 3-5 days.", Similarity: 0.9}},
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if out.ToolCall.Name != "order_lookup" {
		t.Fatalf("tool = %q", out.ToolCall.Name)
	}
	system := gw.requests[0].Messages[0].Content
	if !strings.Contains(system, "order_lookup") || !strings.Contains(system, "Shipping takes 3-5 days.") {
		t.Fatalf("system instruction missing tool or document:\n%s", system)
	}
}

func TestPlanFeedbackAppended(t *testing.T) {
	gw := &scriptedGateway{responses: []string{
		`{"step":"RESPOND","userMessage":"here you go"}`,
	}}
	p := newTestPlanner(t, gw)
	if _, err := p.Plan(context.Background(), Input{
		Messages: []*domain.Message{customerMsg("hi", "")},
		Feedback: "Your previous output was invalid: RESPOND requires userMessage.",
	}); err != nil {
		t.Fatalf("Plan: %v", err)
	}
	req := gw.requests[0]
	last := req.Messages[len(req.Messages)-1]
	if last.Role != "system" || !strings.Contains(last.Content, "invalid") {
		t.Fatalf("feedback not appended: %+v", last)
	}
}
