// Package toolexec owns tool registration and execution. Tool failures are
// data, not errors: every invocation produces a structured log entry the
// planner can observe on the next iteration.
package toolexec

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/parleyhq/parley/internal/domain"
	"github.com/parleyhq/parley/internal/planner"
	"github.com/parleyhq/parley/internal/retrieval"
)

// Tool defines the interface for an executable tool.
type Tool interface {
	Name() string
	Description() string
	Parameters() json.RawMessage
	Execute(ctx context.Context, args json.RawMessage) (string, error)
}

// Executor runs planner-requested tools.
type Executor interface {
	Execute(ctx context.Context, req domain.ToolRequest) domain.ToolLogEntry
	Specs() []planner.ToolSpec
}

var _ Executor = (*Registry)(nil)

// Registry holds registered tools and executes requests against them.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool to the registry.
func (r *Registry) Register(t Tool) {
	if _, ok := r.tools[t.Name()]; !ok {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

// Specs lists registered tools for the planner, in registration order.
func (r *Registry) Specs() []planner.ToolSpec {
	out := make([]planner.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		out = append(out, planner.ToolSpec{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return out
}

// Execute runs one tool request and returns its log entry. Unknown tools,
// bad arguments, and tool errors all come back as failed entries.
func (r *Registry) Execute(ctx context.Context, req domain.ToolRequest) domain.ToolLogEntry {
	entry := domain.ToolLogEntry{
		Name:           req.Name,
		Input:          req.Args,
		IdempotencyKey: uuid.NewString(),
		At:             time.Now(),
	}

	tool, ok := r.tools[req.Name]
	if !ok {
		entry.ErrorClass = "unknown_tool"
		entry.Result = "no tool named " + req.Name
		return entry
	}

	args, err := json.Marshal(req.Args)
	if err != nil {
		entry.ErrorClass = "bad_arguments"
		entry.Result = err.Error()
		return entry
	}

	start := time.Now()
	out, err := tool.Execute(ctx, args)
	entry.LatencyMS = time.Since(start).Milliseconds()
	if err != nil {
		entry.ErrorClass = classify(err)
		entry.Result = err.Error()
		return entry
	}

	entry.Success = true
	entry.Result = retrieval.TruncateContent(out)
	return entry
}

func classify(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "execution_error"
	}
}
