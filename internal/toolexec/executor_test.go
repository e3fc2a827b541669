package toolexec

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/parleyhq/parley/internal/domain"
)

type stubTool struct {
	name   string
	result string
	err    error
	args   json.RawMessage
}

func (s *stubTool) Name() string                { return s.name }
func (s *stubTool) Description() string         { return "stub" }
func (s *stubTool) Parameters() json.RawMessage { return json.RawMessage(`{"type":"object"}`) }
func (s *stubTool) Execute(_ context.Context, args json.RawMessage) (string, error) {
	s.args = args
	return s.result, s.err
}

func TestExecuteSuccess(t *testing.T) {
	r := NewRegistry()
	tool := &stubTool{name: "order_lookup", result: `{"status":"shipped"}`}
	r.Register(tool)

	entry := r.Execute(context.Background(), domain.ToolRequest{
		Name: "order_lookup",
		Args: map[string]any{"order_id": "123"},
	})
	if !entry.Success {
		t.Fatalf("entry = %+v", entry)
	}
	if entry.Result != `{"status":"shipped"}` {
		t.Fatalf("result = %q", entry.Result)
	}
	if entry.IdempotencyKey == "" {
		t.Fatal("missing idempotency key")
	}
	if !strings.Contains(string(tool.args), "123") {
		t.Fatalf("args not forwarded: %s", tool.args)
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	r := NewRegistry()
	entry := r.Execute(context.Background(), domain.ToolRequest{Name: "nope"})
	if entry.Success {
		t.Fatal("unknown tool must fail")
	}
	if entry.ErrorClass != "unknown_tool" {
		t.Fatalf("error class = %q", entry.ErrorClass)
	}
}

func TestExecuteToolError(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "broken", err: errors.New("boom")})
	entry := r.Execute(context.Background(), domain.ToolRequest{Name: "broken"})
	if entry.Success {
		t.Fatal("tool error must produce a failed entry")
	}
	if entry.ErrorClass != "execution_error" || entry.Result != "boom" {
		t.Fatalf("entry = %+v", entry)
	}
}

func TestExecuteTimeoutClass(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "slow", err: context.DeadlineExceeded})
	entry := r.Execute(context.Background(), domain.ToolRequest{Name: "slow"})
	if entry.ErrorClass != "timeout" {
		t.Fatalf("error class = %q", entry.ErrorClass)
	}
}

func TestExecuteTruncatesLongOutput(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "big", result: strings.Repeat("x", 9000)})
	entry := r.Execute(context.Background(), domain.ToolRequest{Name: "big"})
	if !entry.Success {
		t.Fatalf("entry = %+v", entry)
	}
	if !strings.HasSuffix(entry.Result, "[truncated]") {
		t.Fatal("long output must be truncated")
	}
}

func TestSpecsInRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "b"})
	r.Register(&stubTool{name: "a"})
	specs := r.Specs()
	if len(specs) != 2 || specs[0].Name != "b" || specs[1].Name != "a" {
		t.Fatalf("specs = %+v", specs)
	}
}
