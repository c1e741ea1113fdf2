package eventbus

import "time"

const (
	EventExchangeStarted   = "exchange:started"
	EventExchangeToolCall  = "exchange:tool_call"
	EventExchangeCompleted = "exchange:completed"
	EventExchangeFailed    = "exchange:failed"
)

// Topics lists every exchange topic, in lifecycle order.
var Topics = []string{
	EventExchangeStarted,
	EventExchangeToolCall,
	EventExchangeCompleted,
	EventExchangeFailed,
}

// ExchangeEventData is the payload published on every exchange topic.
// Fields that do not apply to a topic are left empty.
type ExchangeEventData struct {
	ConversationID string         `json:"conversation_id"`
	UserID         string         `json:"user_id"`
	Provider       string         `json:"provider"`
	Hop            int            `json:"hop,omitempty"`
	Tool           string         `json:"tool,omitempty"`
	ToolArgs       map[string]any `json:"tool_args,omitempty"`
	ToolFailed     bool           `json:"tool_failed,omitempty"`
	InputTokens    int            `json:"input_tokens,omitempty"`
	OutputTokens   int            `json:"output_tokens,omitempty"`
	Error          string         `json:"error,omitempty"`
	Elapsed        time.Duration  `json:"elapsed,omitempty"`
	At             time.Time      `json:"at"`
}
