package orchestrator

import (
	"socialhub-server-go/internal/domain/chat/aggregate"
	"socialhub-server-go/internal/domain/chat/ledger"
)

// EventType names the events streamed to a caller while an exchange runs.
type EventType string

const (
	EventProgress     EventType = "progress"
	EventFunctionCall EventType = "function_call"
	EventDone         EventType = "done"
	EventError        EventType = "error"
)

// Event is delivered to an Observer on the exchange goroutine.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// Observer receives streaming events. It must not block for long.
type Observer func(Event)

type ProgressData struct {
	ConversationID string `json:"conversationId"`
	Hop            int    `json:"hop"`
	Stage          string `json:"stage"`
	Message        string `json:"message"`
}

type FunctionCallData struct {
	ConversationID string         `json:"conversationId"`
	Hop            int            `json:"hop"`
	Name           string         `json:"name"`
	Args           map[string]any `json:"args"`
	Result         any            `json:"result"`
	Failed         bool           `json:"failed"`
}

type ErrorData struct {
	ConversationID string `json:"conversationId"`
	Message        string `json:"message"`
}

// Result is the outcome of one exchange and the payload of the done event.
type Result struct {
	ConversationID string                   `json:"conversationId"`
	Text           string                   `json:"agentResponse"`
	FunctionCalls  []aggregate.FunctionCall `json:"functionCalls"`
	Usage          ledger.Ledger            `json:"tokenUsage"`
	Provider       string                   `json:"provider"`
	Hops           int                      `json:"hops"`
	Outcome        string                   `json:"outcome"`
}

const (
	OutcomeCompleted   = "completed"
	OutcomeTerminated  = "terminated"
	OutcomeHopLimit    = "hop_limit"
	OutcomeMissingUser = "missing_user"
	OutcomeFailed      = "failed"
	OutcomeTimeout     = "timeout"
)

func (o Observer) emit(t EventType, data any) {
	if o != nil {
		o(Event{Type: t, Data: data})
	}
}
