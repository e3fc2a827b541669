package domain

import "time"

// MessageType identifies who produced a message.
type MessageType string

const (
	MessageCustomer   MessageType = "customer"
	MessageBotAgent   MessageType = "bot_agent"
	MessageSystem     MessageType = "system"
	MessageTool       MessageType = "tool"
	MessageHumanAgent MessageType = "human_agent"
)

// Intent is the perception classifier's label for a customer message.
type Intent string

const (
	IntentGreet            Intent = "greet"
	IntentQuestion         Intent = "question"
	IntentRequest          Intent = "request"
	IntentHandoff          Intent = "handoff"
	IntentCloseSatisfied   Intent = "close_satisfied"
	IntentCloseUnsatisfied Intent = "close_unsatisfied"
	IntentOther            Intent = "other"
	IntentUnknown          Intent = "unknown"
)

// ClosureIntent reports whether the intent provisionally signals that the
// customer wants the conversation to end.
func (i Intent) ClosureIntent() bool {
	return i == IntentCloseSatisfied || i == IntentCloseUnsatisfied
}

// GuardrailExempt reports whether a turn triggered by this intent skips the
// guardrail pipeline entirely (pure conversational turns are not
// fact-checked).
func (i Intent) GuardrailExempt() bool {
	return i == IntentGreet || i == IntentCloseSatisfied || i == IntentCloseUnsatisfied
}

// Sentiment is the perception classifier's tone label.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Perception carries the classifier annotations written once onto the
// triggering customer message.
type Perception struct {
	Intent              Intent    `json:"intent"`
	IntentConfidence    float64   `json:"intent_confidence"`
	Sentiment           Sentiment `json:"sentiment"`
	SentimentConfidence float64   `json:"sentiment_confidence"`
	Language            string    `json:"language,omitempty"`
}

// Message belongs to exactly one conversation. Messages are append-only
// within a processing pass; creation time gives the total order. Tool
// messages are the single exception: they are created in a running state
// and updated in place with the tool result.
type Message struct {
	ID             MessageID      `json:"id"`
	ConversationID ConversationID `json:"conversation_id"`
	Type           MessageType    `json:"type"`
	Content        string         `json:"content"`

	Perception *Perception `json:"perception,omitempty"`

	// Metadata is the step-provenance bag: plan, rationale, confidence
	// scores, handoff/close reasons.
	Metadata map[string]any `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewMessage creates a message for the conversation with the current time.
func NewMessage(conv ConversationID, t MessageType, content string) *Message {
	return &Message{
		ID:             NewMessageID(),
		ConversationID: conv,
		Type:           t,
		Content:        content,
		CreatedAt:      time.Now(),
	}
}

// CustomerVisible reports whether the message is part of the transcript a
// customer sees (and therefore the transcript stages reason over).
func (m *Message) CustomerVisible() bool {
	return m.Type == MessageCustomer || m.Type == MessageBotAgent || m.Type == MessageHumanAgent
}
