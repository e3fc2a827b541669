// Package prompts renders conversation transcripts into token-budgeted
// gateway messages shared by every stage.
package prompts

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/parleyhq/parley/internal/domain"
	"github.com/parleyhq/parley/pkg/llm"
)

// Budgeter counts tokens and trims transcripts so stage prompts stay inside
// the model's context window.
type Budgeter struct {
	tokenizer *tiktoken.Tiktoken
	maxTokens int
	reserve   int
}

// New creates a budgeter for the given model. maxTokens is the model's
// context window; reserve is held back for the model's own output.
func New(model string, maxTokens, reserve int) (*Budgeter, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// Fallback to cl100k_base for unknown models
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("get tokenizer: %w", err)
		}
	}
	return &Budgeter{tokenizer: enc, maxTokens: maxTokens, reserve: reserve}, nil
}

// CountTokens returns the token count for a string.
func (b *Budgeter) CountTokens(text string) int {
	return len(b.tokenizer.Encode(text, nil, nil))
}

// InputBudget is the token budget left for prompt content after the output
// reserve.
func (b *Budgeter) InputBudget() int {
	return b.maxTokens - b.reserve
}

// roleFor maps message types onto chat roles. Tool and system messages both
// surface as system context; the planner schema carries the structure.
func roleFor(t domain.MessageType) string {
	switch t {
	case domain.MessageCustomer:
		return "user"
	case domain.MessageBotAgent, domain.MessageHumanAgent:
		return "assistant"
	default:
		return "system"
	}
}

// Transcript converts messages to chat messages, keeping the most recent
// ones that fit the budget (in chronological order).
func (b *Budgeter) Transcript(msgs []*domain.Message, budget int) []llm.Message {
	var kept []llm.Message
	used := 0
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		content := m.Content
		if m.Type == domain.MessageTool {
			tool, _ := m.Metadata["tool"].(string)
			content = fmt.Sprintf("Tool %s result: %s", tool, m.Content)
		}
		cost := b.CountTokens(content)
		if used+cost > budget {
			break
		}
		kept = append(kept, llm.Message{Role: roleFor(m.Type), Content: content})
		used += cost
	}
	// Reverse back to chronological order.
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	return kept
}

// speakerFor labels transcript lines for plain-text prompts.
func speakerFor(t domain.MessageType) string {
	switch t {
	case domain.MessageCustomer:
		return "Customer"
	case domain.MessageBotAgent:
		return "Agent"
	case domain.MessageHumanAgent:
		return "Human agent"
	default:
		return "System"
	}
}

// TranscriptText renders the customer-visible transcript as plain text,
// keeping the most recent lines that fit the budget.
func (b *Budgeter) TranscriptText(msgs []*domain.Message, budget int) string {
	var lines []string
	used := 0
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if !m.CustomerVisible() {
			continue
		}
		line := fmt.Sprintf("%s: %s", speakerFor(m.Type), m.Content)
		cost := b.CountTokens(line)
		if used+cost > budget {
			break
		}
		lines = append(lines, line)
		used += cost
	}
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return strings.Join(lines, "\n")
}

// LastCustomerMessages returns up to n most recent customer messages in
// chronological order.
func LastCustomerMessages(msgs []*domain.Message, n int) []*domain.Message {
	var customer []*domain.Message
	for _, m := range msgs {
		if m.Type == domain.MessageCustomer {
			customer = append(customer, m)
		}
	}
	if len(customer) > n {
		customer = customer[len(customer)-n:]
	}
	return customer
}

// LastMessages returns up to n most recent messages in chronological order.
func LastMessages(msgs []*domain.Message, n int) []*domain.Message {
	if len(msgs) > n {
		return msgs[len(msgs)-n:]
	}
	return msgs
}
