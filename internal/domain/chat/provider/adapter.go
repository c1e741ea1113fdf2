// Package provider defines the contract every model backend implements and
// the helpers shared by the backends: argument normalization, token
// estimation, retry and circuit breaking.
package provider

import (
	"context"

	"socialhub-server-go/internal/domain/chat/aggregate"
	"socialhub-server-go/internal/domain/chat/ledger"
)

// Continuation is the opaque state needed to resume an exchange after tool
// results are available. Each backend defines its own implementation.
type Continuation interface {
	Provider() string
}

type StartRequest struct {
	UserMessage string
	// History is the bounded window, oldest first, without the current message.
	History     []aggregate.Turn
	Attachments []aggregate.Attachment
}

// Response is the outcome of one model call. When Terminated is set, Text is
// final and ToolCalls is empty.
type Response struct {
	Text         string
	ToolCalls    []aggregate.ToolInvocation
	Usage        ledger.Ledger
	Continuation Continuation
	Terminated   bool
}

// Final reports whether the exchange ends with this response.
func (r *Response) Final() bool {
	return r.Terminated || len(r.ToolCalls) == 0
}

// BreakerReporter is implemented by adapters that guard their backend with a
// CircuitBreaker.
type BreakerReporter interface {
	BreakerState() int
}

// Adapter is implemented by each model backend. Transport and model failures
// are absorbed into a terminated Response; an error is returned only for
// caller mistakes such as a foreign Continuation.
type Adapter interface {
	Name() string
	// MergeMode tells the orchestrator how to fold per-hop usage.
	MergeMode() ledger.Mode
	StartExchange(ctx context.Context, req StartRequest) (*Response, error)
	// ContinueExchange sends results in the same order as the calls they answer.
	ContinueExchange(ctx context.Context, cont Continuation, results []aggregate.ToolResult) (*Response, error)
	Close() error
}
