// Package orchestrator drives one conversational exchange: it records the
// user turn, calls the active provider, dispatches requested tools, feeds
// their results back and repeats until the model answers with text.
package orchestrator

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"socialhub-server-go/internal/domain/chat/aggregate"
	"socialhub-server-go/internal/domain/chat/dispatch"
	"socialhub-server-go/internal/domain/chat/ledger"
	"socialhub-server-go/internal/domain/chat/provider"
	"socialhub-server-go/internal/domain/chat/session"
	"socialhub-server-go/internal/domain/eventbus"
	"socialhub-server-go/internal/platform/errors"
	"socialhub-server-go/internal/platform/logging"
	"socialhub-server-go/internal/platform/observability"
)

const (
	DefaultMaxHops = 10

	HopLimitMessage    = "I'm sorry, I could not complete this request within the allowed number of steps. Please try breaking it into smaller requests."
	MissingUserMessage = "I'm sorry, I can't perform actions on your behalf without knowing who you are. Please sign in and try again."
)

type Config struct {
	// MaxHops bounds the number of model calls in one exchange.
	MaxHops int
	// Timeout wraps the whole exchange. Zero leaves the caller's deadline alone.
	Timeout time.Duration
}

// AdapterSource lends the adapter for one exchange. *provider.Manager
// implements it.
type AdapterSource interface {
	Acquire() (provider.Adapter, func())
}

type Dependencies struct {
	Providers  AdapterSource
	Dispatcher *dispatch.Dispatcher
	Session    *session.Session
	Bus        *eventbus.Bus
	Metrics    *observability.Metrics
	Logger     *logging.Logger
}

type Orchestrator struct {
	cfg        Config
	providers  AdapterSource
	dispatcher *dispatch.Dispatcher
	session    *session.Session
	bus        *eventbus.Bus
	metrics    *observability.Metrics
	logger     *logging.Logger
	locks      *userLocks
	now        func() time.Time
}

// Request is one user message. UserID may be empty for anonymous callers:
// nothing is recorded and tool calls are refused.
type Request struct {
	UserID      string
	Message     string
	Attachments []aggregate.Attachment
}

func New(cfg Config, deps Dependencies) (*Orchestrator, error) {
	if deps.Providers == nil || deps.Dispatcher == nil || deps.Session == nil {
		return nil, errors.New(errors.KindBootstrap, "orchestrator.new", "providers, dispatcher and session are required")
	}
	if cfg.MaxHops <= 0 {
		cfg.MaxHops = DefaultMaxHops
	}
	return &Orchestrator{
		cfg:        cfg,
		providers:  deps.Providers,
		dispatcher: deps.Dispatcher,
		session:    deps.Session,
		bus:        deps.Bus,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		locks:      newUserLocks(),
		now:        time.Now,
	}, nil
}

// exchange is the mutable state of one RunExchange call.
type exchange struct {
	id       string
	req      Request
	adapter  provider.Adapter
	observe  Observer
	hops     int
	usage    ledger.Ledger
	calls    []aggregate.FunctionCall
	text     string
	outcome  string
	recorder *ledger.Recorder
}

// RunExchange processes one user message to a final text answer. Provider and
// tool failures end as text in the Result; an error is returned only for
// invalid requests, storage failures, cancellation and timeout, in which case
// no agent turn is recorded.
func (o *Orchestrator) RunExchange(ctx context.Context, req Request, observe Observer) (*Result, error) {
	if strings.TrimSpace(req.Message) == "" && len(req.Attachments) == 0 {
		return nil, errors.New(errors.KindDomain, "orchestrator.run", "message is required")
	}
	adapter, release := o.providers.Acquire()
	defer release()
	if adapter == nil {
		return nil, errors.New(errors.KindProvider, "orchestrator.run", "no provider configured")
	}

	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	ex := &exchange{
		id:       uuid.NewString(),
		req:      req,
		adapter:  adapter,
		observe:  observe,
		recorder: &ledger.Recorder{},
	}
	start := o.now()
	ctx, endSpan := observability.StartSpan(ctx, "orchestrator", "run_exchange",
		slog.String("conversation_id", ex.id),
		slog.String("provider", adapter.Name()),
	)
	defer o.metrics.ExchangeStarted()()

	err := o.run(ctx, ex)
	endSpan(err)
	elapsed := o.now().Sub(start)

	if err != nil {
		outcome := OutcomeFailed
		if errors.IsKind(err, errors.KindTimeout) {
			outcome = OutcomeTimeout
		}
		o.metrics.RecordExchange(adapter.Name(), outcome, ex.hops, elapsed, 0, 0)
		o.publish(eventbus.EventExchangeFailed, ex, eventbus.ExchangeEventData{Hop: ex.hops, Error: err.Error(), Elapsed: elapsed})
		observe.emit(EventError, ErrorData{ConversationID: ex.id, Message: err.Error()})
		o.logger.WarnTag("EXCHANGE", "%s for %s failed after %d hops: %v", ex.id, req.UserID, ex.hops, err)
		return nil, err
	}

	result := &Result{
		ConversationID: ex.id,
		Text:           ex.text,
		FunctionCalls:  ex.calls,
		Usage:          ex.usage,
		Provider:       adapter.Name(),
		Hops:           ex.hops,
		Outcome:        ex.outcome,
	}
	if result.FunctionCalls == nil {
		result.FunctionCalls = []aggregate.FunctionCall{}
	}

	o.metrics.RecordExchange(adapter.Name(), ex.outcome, ex.hops, elapsed, ex.usage.InputTokens, ex.usage.OutputTokens)
	o.publish(eventbus.EventExchangeCompleted, ex, eventbus.ExchangeEventData{
		Hop:          ex.hops,
		InputTokens:  ex.usage.InputTokens,
		OutputTokens: ex.usage.OutputTokens,
		Elapsed:      elapsed,
	})
	observe.emit(EventDone, result)
	o.logger.InfoTag("EXCHANGE", "%s for %s %s in %d hops, tokens=%d",
		ex.id, req.UserID, ex.outcome, ex.hops, ex.usage.TotalTokens)
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, ex *exchange) error {
	user := ex.req.UserID

	var history []aggregate.Turn
	if user != "" {
		release, err := o.locks.acquire(ctx, user)
		if err != nil {
			return contextError(err)
		}
		defer release()

		history, err = o.session.History(ctx, user)
		if err != nil {
			return errors.Wrap(errors.KindStorage, "orchestrator.history", "failed to load history", err)
		}
		if _, err := o.session.Append(ctx, user, aggregate.RoleUser, ex.req.Message, nil); err != nil {
			return errors.Wrap(errors.KindStorage, "orchestrator.append", "failed to record user turn", err)
		}
	}

	o.publish(eventbus.EventExchangeStarted, ex, eventbus.ExchangeEventData{})
	ex.observe.emit(EventProgress, ProgressData{ConversationID: ex.id, Hop: 1, Stage: "thinking", Message: "Thinking..."})

	resp, err := o.call(ctx, ex, func(ctx context.Context) (*provider.Response, error) {
		return ex.adapter.StartExchange(ctx, provider.StartRequest{
			UserMessage: ex.req.Message,
			History:     history,
			Attachments: ex.req.Attachments,
		})
	})

	toolCtx := ledger.ContextWithRecorder(ctx, ex.recorder)
	for {
		if cerr := ctx.Err(); cerr != nil {
			return contextError(cerr)
		}
		if err != nil {
			o.logger.ErrorTag("EXCHANGE", "%s provider contract error: %v", ex.id, err)
			ex.finish(provider.ProviderFailureMessage, OutcomeFailed)
			break
		}

		ex.usage = ledger.Merge(ex.usage, resp.Usage, ex.adapter.MergeMode())

		if resp.Final() {
			outcome := OutcomeCompleted
			if resp.Terminated {
				outcome = OutcomeTerminated
			}
			ex.finish(resp.Text, outcome)
			break
		}
		if user == "" {
			o.logger.WarnTag("EXCHANGE", "%s requested %d tool calls without an acting user", ex.id, len(resp.ToolCalls))
			ex.finish(MissingUserMessage, OutcomeMissingUser)
			break
		}
		if ex.hops >= o.cfg.MaxHops {
			o.logger.WarnTag("EXCHANGE", "%s reached the hop limit (%d)", ex.id, o.cfg.MaxHops)
			ex.finish(HopLimitMessage, OutcomeHopLimit)
			break
		}

		results := o.dispatchAll(toolCtx, ex, resp.ToolCalls)
		ex.usage = ex.usage.WithImageGeneration(ex.recorder.Drain())
		if cerr := ctx.Err(); cerr != nil {
			return contextError(cerr)
		}

		ex.observe.emit(EventProgress, ProgressData{ConversationID: ex.id, Hop: ex.hops + 1, Stage: "continuing", Message: "Reviewing tool results..."})
		cont := resp.Continuation
		resp, err = o.call(ctx, ex, func(ctx context.Context) (*provider.Response, error) {
			return ex.adapter.ContinueExchange(ctx, cont, results)
		})
	}

	if user != "" {
		if _, err := o.session.Append(ctx, user, aggregate.RoleAgent, ex.text, ex.calls); err != nil {
			o.logger.ErrorTag("EXCHANGE", "%s failed to record agent turn: %v", ex.id, err)
		}
	}
	return nil
}

// dispatchAll runs the calls in order and returns results in the same order.
func (o *Orchestrator) dispatchAll(ctx context.Context, ex *exchange, calls []aggregate.ToolInvocation) []aggregate.ToolResult {
	results := make([]aggregate.ToolResult, 0, len(calls))
	for _, call := range calls {
		result := o.dispatcher.Execute(ctx, call.Name, call.Arguments, ex.req.UserID)
		failed := dispatch.IsErrorResult(result)

		results = append(results, aggregate.ToolResult{CallID: call.ID, Name: call.Name, Result: result})
		ex.calls = append(ex.calls, aggregate.FunctionCall{Name: call.Name, Args: call.Arguments})

		ex.observe.emit(EventFunctionCall, FunctionCallData{
			ConversationID: ex.id,
			Hop:            ex.hops,
			Name:           call.Name,
			Args:           call.Arguments,
			Result:         result,
			Failed:         failed,
		})
		o.publish(eventbus.EventExchangeToolCall, ex, eventbus.ExchangeEventData{
			Hop:        ex.hops,
			Tool:       call.Name,
			ToolArgs:   call.Arguments,
			ToolFailed: failed,
		})
	}
	return results
}

func (o *Orchestrator) call(ctx context.Context, ex *exchange, fn func(context.Context) (*provider.Response, error)) (*provider.Response, error) {
	ex.hops++
	start := time.Now()
	resp, err := fn(ctx)
	o.metrics.RecordProviderCall(ex.adapter.Name(), time.Since(start))
	if br, ok := ex.adapter.(provider.BreakerReporter); ok {
		o.metrics.SetBreakerState(ex.adapter.Name(), br.BreakerState())
	}
	if err == nil && resp == nil {
		err = errors.New(errors.KindProvider, "orchestrator.call", "adapter returned no response")
	}
	return resp, err
}

func (o *Orchestrator) publish(topic string, ex *exchange, data eventbus.ExchangeEventData) {
	data.ConversationID = ex.id
	data.UserID = ex.req.UserID
	data.Provider = ex.adapter.Name()
	data.At = o.now().UTC()
	o.bus.PublishAsync(topic, data)
}

func (ex *exchange) finish(text, outcome string) {
	ex.text = text
	ex.outcome = outcome
}

func contextError(err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(errors.KindTimeout, "orchestrator.run", "exchange timed out", err)
	}
	return errors.Wrap(errors.KindContext, "orchestrator.run", "exchange cancelled", err)
}
