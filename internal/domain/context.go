package domain

import "time"

// OrchestrationContext is the versioned state bag attached to a
// conversation. It is appended-to, never rewritten: every tool invocation
// and every guardrail decision is logged exactly once per loop iteration it
// occurred in, and the version increments on each persisted pass.
type OrchestrationContext struct {
	Version  int       `json:"version"`
	LastTurn time.Time `json:"last_turn,omitzero"`

	ActivePlaybook *PlaybookState `json:"active_playbook,omitempty"`
	RAG            *RetrievalPack `json:"rag,omitempty"`

	ToolLog       []ToolLogEntry    `json:"tool_log,omitempty"`
	ConfidenceLog []ConfidenceEntry `json:"confidence_log,omitempty"`
	GuardrailLog  []GuardrailEntry  `json:"guardrail_log,omitempty"`
}

// NewOrchestrationContext lazily initializes the context on the first
// processing pass.
func NewOrchestrationContext() *OrchestrationContext {
	return &OrchestrationContext{Version: 1}
}

// PlaybookState tracks the active scripted workflow.
type PlaybookState struct {
	ID      PlaybookID     `json:"id"`
	Step    string         `json:"step,omitempty"`
	State   map[string]any `json:"state,omitempty"`
	History []string       `json:"history,omitempty"`
}

// RetrievalPack is the last retrieval result bundle used as grounding
// context.
type RetrievalPack struct {
	Query        string        `json:"query"`
	Hits         []DocumentHit `json:"hits,omitempty"`
	IndexVersion string        `json:"index_version,omitempty"`
}

// DocumentHit is one ranked similarity-search result.
type DocumentHit struct {
	ID         DocumentID     `json:"id"`
	Content    string         `json:"content"`
	Similarity float64        `json:"similarity"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ToolLogEntry records one tool invocation.
type ToolLogEntry struct {
	Name           string         `json:"name"`
	Input          map[string]any `json:"input,omitempty"`
	Success        bool           `json:"success"`
	Result         string         `json:"result,omitempty"`
	ErrorClass     string         `json:"error_class,omitempty"`
	LatencyMS      int64          `json:"latency_ms"`
	IdempotencyKey string         `json:"idempotency_key"`
	At             time.Time      `json:"at"`
}

// ConfidenceEntry records one fact-grounding assessment.
type ConfidenceEntry struct {
	Score            float64   `json:"score"`
	Tier             string    `json:"tier"`
	Grounding        float64   `json:"grounding"`
	Retrieval        float64   `json:"retrieval"`
	Certainty        float64   `json:"certainty"`
	DocumentsUsed    int       `json:"documents_used"`
	RecheckAttempted bool      `json:"recheck_attempted,omitempty"`
	Escalated        bool      `json:"escalated,omitempty"`
	Details          string    `json:"details,omitempty"`
	At               time.Time `json:"at"`
}

// GuardrailEntry records one company-interest decision.
type GuardrailEntry struct {
	Passed        bool      `json:"passed"`
	ViolationType string    `json:"violation_type,omitempty"`
	Severity      string    `json:"severity,omitempty"`
	Blocked       bool      `json:"blocked"`
	At            time.Time `json:"at"`
}

// AppendTool appends a tool log entry.
func (oc *OrchestrationContext) AppendTool(e ToolLogEntry) {
	oc.ToolLog = append(oc.ToolLog, e)
}

// AppendConfidence appends a confidence log entry.
func (oc *OrchestrationContext) AppendConfidence(e ConfidenceEntry) {
	oc.ConfidenceLog = append(oc.ConfidenceLog, e)
}

// AppendGuardrail appends a guardrail log entry.
func (oc *OrchestrationContext) AppendGuardrail(e GuardrailEntry) {
	oc.GuardrailLog = append(oc.GuardrailLog, e)
}

// Bump marks the end of a processing pass: the version increments and the
// last-turn timestamp is refreshed.
func (oc *OrchestrationContext) Bump(now time.Time) {
	oc.Version++
	oc.LastTurn = now
}
