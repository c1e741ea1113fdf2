package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialhub-server-go/internal/domain/chat/aggregate"
	"socialhub-server-go/internal/domain/chat/dispatch"
	"socialhub-server-go/internal/domain/chat/ledger"
	"socialhub-server-go/internal/domain/chat/provider"
	"socialhub-server-go/internal/domain/chat/session"
	"socialhub-server-go/internal/domain/chat/session/store"
	"socialhub-server-go/internal/domain/eventbus"
	platformerrors "socialhub-server-go/internal/platform/errors"
	"socialhub-server-go/internal/platform/observability"
	platformtesting "socialhub-server-go/internal/platform/testing"
)

type scriptedCont struct{}

func (scriptedCont) Provider() string { return "scripted" }

type scriptedAdapter struct {
	mode   ledger.Mode
	onCall func(ctx context.Context)
	closed atomic.Bool

	mu      sync.Mutex
	script  []*provider.Response
	next    int
	starts  []provider.StartRequest
	results [][]aggregate.ToolResult
}

func (a *scriptedAdapter) Name() string           { return "scripted" }
func (a *scriptedAdapter) MergeMode() ledger.Mode { return a.mode }
func (a *scriptedAdapter) Close() error           { a.closed.Store(true); return nil }

func (a *scriptedAdapter) StartExchange(ctx context.Context, req provider.StartRequest) (*provider.Response, error) {
	a.mu.Lock()
	a.starts = append(a.starts, req)
	a.mu.Unlock()
	return a.respond(ctx), nil
}

func (a *scriptedAdapter) ContinueExchange(ctx context.Context, cont provider.Continuation, results []aggregate.ToolResult) (*provider.Response, error) {
	if _, ok := cont.(scriptedCont); !ok {
		return nil, errors.New("foreign continuation")
	}
	a.mu.Lock()
	a.results = append(a.results, results)
	a.mu.Unlock()
	return a.respond(ctx), nil
}

func (a *scriptedAdapter) respond(ctx context.Context) *provider.Response {
	if a.onCall != nil {
		a.onCall(ctx)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	i := a.next
	if i >= len(a.script) {
		i = len(a.script) - 1
	} else {
		a.next++
	}
	r := *a.script[i]
	return &r
}

func usage(in, out int) ledger.Ledger {
	return ledger.Ledger{InputTokens: in, OutputTokens: out, TotalTokens: in + out}
}

func text(s string, in, out int) *provider.Response {
	return &provider.Response{Text: s, Usage: usage(in, out)}
}

func tools(in, out int, calls ...aggregate.ToolInvocation) *provider.Response {
	return &provider.Response{ToolCalls: calls, Usage: usage(in, out), Continuation: scriptedCont{}}
}

func call(id, name string, args map[string]any) aggregate.ToolInvocation {
	return aggregate.ToolInvocation{ID: id, Name: name, Arguments: args}
}

type fixture struct {
	orch    *Orchestrator
	adapter *scriptedAdapter
	manager *provider.Manager
	session *session.Session
	invoked *atomic.Int32
}

func newFixture(t *testing.T, cfg Config, adapter *scriptedAdapter) *fixture {
	t.Helper()
	invoked := &atomic.Int32{}
	handlers := map[string]dispatch.Handler{
		"save_post": func(_ context.Context, args map[string]any, user string) (any, error) {
			invoked.Add(1)
			return map[string]any{"post_id": 7, "owner": user}, nil
		},
		"generate_image": func(ctx context.Context, args map[string]any, _ string) (any, error) {
			invoked.Add(1)
			ledger.RecordImageGeneration(ctx, ledger.ImageGeneration{PromptTokens: 4, ImageTokens: 765, Images: 1})
			return map[string]any{"url": "https://img.example/1.png"}, nil
		},
		"fail": func(context.Context, map[string]any, string) (any, error) {
			invoked.Add(1)
			return nil, errors.New("quota exceeded")
		},
	}

	logger := platformtesting.SetupTestLogger(t)
	manager := provider.NewManager(nil, logger)
	manager.SetAdapter(adapter)
	sess := session.New(store.NewMemory(), 20, logger)
	bus := eventbus.New(1, logger)
	t.Cleanup(bus.Shutdown)

	orch, err := New(cfg, Dependencies{
		Providers:  manager,
		Dispatcher: dispatch.New(handlers, nil),
		Session:    sess,
		Bus:        bus,
		Metrics:    observability.NewMetrics(),
		Logger:     logger,
	})
	require.NoError(t, err)
	return &fixture{orch: orch, adapter: adapter, manager: manager, session: sess, invoked: invoked}
}

func TestPlainTextExchangeRecordsBothTurns(t *testing.T) {
	f := newFixture(t, Config{}, &scriptedAdapter{script: []*provider.Response{text("Hello!", 50, 5)}})
	ctx := context.Background()

	res, err := f.orch.RunExchange(ctx, Request{UserID: "u1", Message: "hi"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello!", res.Text)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, 1, res.Hops)
	assert.Empty(t, res.FunctionCalls)
	assert.NotNil(t, res.FunctionCalls)
	assert.Equal(t, 55, res.Usage.TotalTokens)

	turns, err := f.session.Recent(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, aggregate.RoleUser, turns[0].Role)
	assert.Equal(t, "hi", turns[0].Message)
	assert.Equal(t, aggregate.RoleAgent, turns[1].Role)
	assert.Equal(t, "Hello!", turns[1].Message)
}

func threeHopScript() []*provider.Response {
	return []*provider.Response{
		tools(100, 10,
			call("c1", "save_post", map[string]any{"content": "a"}),
			call("c2", "generate_image", map[string]any{"prompt": "b"}),
		),
		tools(150, 20, call("c3", "save_post", map[string]any{"content": "c"})),
		text("All done.", 200, 30),
	}
}

func TestThreeHopExchangeAdditive(t *testing.T) {
	f := newFixture(t, Config{}, &scriptedAdapter{mode: ledger.Additive, script: threeHopScript()})

	var events []EventType
	res, err := f.orch.RunExchange(context.Background(), Request{UserID: "u1", Message: "post twice"}, func(e Event) {
		events = append(events, e.Type)
	})
	require.NoError(t, err)

	assert.Equal(t, "All done.", res.Text)
	assert.Equal(t, 3, res.Hops)
	assert.Equal(t, 450, res.Usage.InputTokens)
	assert.Equal(t, 60, res.Usage.OutputTokens)
	assert.Equal(t, 510, res.Usage.TotalTokens)
	assert.Equal(t, res.Usage.InputTokens+res.Usage.OutputTokens, res.Usage.TotalTokens)
	assert.Equal(t, 765, res.Usage.Breakdown.ImageGeneration.ImageTokens)

	require.Len(t, res.FunctionCalls, 3)
	assert.Equal(t, []string{"save_post", "generate_image", "save_post"},
		[]string{res.FunctionCalls[0].Name, res.FunctionCalls[1].Name, res.FunctionCalls[2].Name})

	require.Len(t, f.adapter.results, 2)
	first := f.adapter.results[0]
	require.Len(t, first, 2)
	assert.Equal(t, "c1", first[0].CallID)
	assert.Equal(t, "c2", first[1].CallID)
	assert.Equal(t, "u1", first[0].Result.(map[string]any)["owner"])

	assert.Equal(t, []EventType{
		EventProgress, EventFunctionCall, EventFunctionCall,
		EventProgress, EventFunctionCall,
		EventProgress, EventDone,
	}, events)

	turns, err := f.session.Recent(context.Background(), "u1", 10)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Len(t, turns[1].FunctionCalls, 3)
}

func TestThreeHopExchangeInputReplace(t *testing.T) {
	f := newFixture(t, Config{}, &scriptedAdapter{mode: ledger.InputReplaceOutputAccumulate, script: threeHopScript()})

	res, err := f.orch.RunExchange(context.Background(), Request{UserID: "u1", Message: "post twice"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 200, res.Usage.InputTokens)
	assert.Equal(t, 60, res.Usage.OutputTokens)
	assert.Equal(t, 260, res.Usage.TotalTokens)
}

func TestHopLimit(t *testing.T) {
	loop := tools(10, 1, call("x", "save_post", map[string]any{}))
	f := newFixture(t, Config{MaxHops: 3}, &scriptedAdapter{script: []*provider.Response{loop}})

	res, err := f.orch.RunExchange(context.Background(), Request{UserID: "u1", Message: "loop"}, nil)
	require.NoError(t, err)
	assert.Equal(t, HopLimitMessage, res.Text)
	assert.Equal(t, OutcomeHopLimit, res.Outcome)
	assert.Equal(t, 3, res.Hops)
	assert.Len(t, res.FunctionCalls, 2)
	assert.Equal(t, int32(2), f.invoked.Load())
	assert.Equal(t, 33, res.Usage.TotalTokens)
}

func TestMissingUserRefusesDispatch(t *testing.T) {
	f := newFixture(t, Config{}, &scriptedAdapter{script: []*provider.Response{
		tools(10, 1, call("x", "save_post", map[string]any{})),
	}})

	res, err := f.orch.RunExchange(context.Background(), Request{Message: "save it"}, nil)
	require.NoError(t, err)
	assert.Equal(t, MissingUserMessage, res.Text)
	assert.Equal(t, OutcomeMissingUser, res.Outcome)
	assert.Equal(t, int32(0), f.invoked.Load())
	assert.Empty(t, res.FunctionCalls)
}

func TestToolFailuresDoNotAbortSiblings(t *testing.T) {
	f := newFixture(t, Config{}, &scriptedAdapter{script: []*provider.Response{
		tools(10, 1,
			call("a", "nope", map[string]any{}),
			call("b", "fail", map[string]any{}),
			call("c", "save_post", map[string]any{}),
		),
		text("Partially done.", 20, 2),
	}})

	res, err := f.orch.RunExchange(context.Background(), Request{UserID: "u1", Message: "go"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Partially done.", res.Text)

	require.Len(t, f.adapter.results, 1)
	got := f.adapter.results[0]
	require.Len(t, got, 3)
	assert.Equal(t, map[string]any{"error": "Unknown function: nope"}, got[0].Result)
	assert.Equal(t, map[string]any{"error": "quota exceeded"}, got[1].Result)
	assert.Equal(t, 7, got[2].Result.(map[string]any)["post_id"])
}

func TestHistoryIsBoundedAndExcludesCurrentMessage(t *testing.T) {
	adapter := &scriptedAdapter{script: []*provider.Response{text("ok", 1, 1)}}
	f := newFixture(t, Config{}, adapter)
	ctx := context.Background()
	for i := 0; i < 25; i++ {
		_, err := f.session.Append(ctx, "u1", aggregate.RoleUser, fmt.Sprintf("old %d", i), nil)
		require.NoError(t, err)
	}

	_, err := f.orch.RunExchange(ctx, Request{UserID: "u1", Message: "new"}, nil)
	require.NoError(t, err)

	require.Len(t, adapter.starts, 1)
	history := adapter.starts[0].History
	require.Len(t, history, 20)
	assert.Equal(t, "old 5", history[0].Message)
	assert.Equal(t, "old 24", history[19].Message)
	assert.Equal(t, "new", adapter.starts[0].UserMessage)
}

func TestTimeoutRecordsNoAgentTurn(t *testing.T) {
	adapter := &scriptedAdapter{
		script: []*provider.Response{text("too late", 1, 1)},
		onCall: func(ctx context.Context) { <-ctx.Done() },
	}
	f := newFixture(t, Config{Timeout: 20 * time.Millisecond}, adapter)

	var gotError bool
	_, err := f.orch.RunExchange(context.Background(), Request{UserID: "u1", Message: "slow"}, func(e Event) {
		if e.Type == EventError {
			gotError = true
		}
	})
	require.Error(t, err)
	assert.True(t, platformerrors.IsKind(err, platformerrors.KindTimeout))
	assert.True(t, gotError)

	turns, err := f.session.Recent(context.Background(), "u1", 10)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, aggregate.RoleUser, turns[0].Role)
}

func TestExchangesAreSerializedPerUser(t *testing.T) {
	var active, peak atomic.Int32
	adapter := &scriptedAdapter{
		script: []*provider.Response{text("ok", 1, 1)},
		onCall: func(context.Context) {
			n := active.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			active.Add(-1)
		},
	}
	f := newFixture(t, Config{}, adapter)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.orch.RunExchange(context.Background(), Request{UserID: "same", Message: "hi"}, nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), peak.Load())
	assert.Equal(t, 0, f.orch.locks.size())

	turns, err := f.session.Recent(context.Background(), "same", 100)
	require.NoError(t, err)
	require.Len(t, turns, 10)
	for i := 0; i < 10; i += 2 {
		assert.Equal(t, aggregate.RoleUser, turns[i].Role)
		assert.Equal(t, aggregate.RoleAgent, turns[i+1].Role)
	}
}

func TestTerminatedResponseEndsExchange(t *testing.T) {
	f := newFixture(t, Config{}, &scriptedAdapter{script: []*provider.Response{provider.Terminal(provider.SafetyBlockedMessage)}})

	res, err := f.orch.RunExchange(context.Background(), Request{UserID: "u1", Message: "bad"}, nil)
	require.NoError(t, err)
	assert.Equal(t, provider.SafetyBlockedMessage, res.Text)
	assert.Equal(t, OutcomeTerminated, res.Outcome)
	assert.Equal(t, 0, res.Usage.TotalTokens)
}

func TestRejectsInvalidRequests(t *testing.T) {
	f := newFixture(t, Config{}, &scriptedAdapter{script: []*provider.Response{text("ok", 1, 1)}})

	_, err := f.orch.RunExchange(context.Background(), Request{UserID: "u1", Message: "  "}, nil)
	assert.True(t, platformerrors.IsKind(err, platformerrors.KindDomain))

	empty, err := New(Config{}, Dependencies{
		Providers:  provider.NewManager(nil, nil),
		Dispatcher: dispatch.New(nil, nil),
		Session:    session.New(store.NewMemory(), 0, nil),
	})
	require.NoError(t, err)
	_, err = empty.RunExchange(context.Background(), Request{UserID: "u1", Message: "hi"}, nil)
	assert.True(t, platformerrors.IsKind(err, platformerrors.KindProvider))

	_, err = New(Config{}, Dependencies{})
	assert.Error(t, err)
}

func TestProviderSwitchDuringExchangeKeepsAdapterOpen(t *testing.T) {
	adapter := &scriptedAdapter{mode: ledger.Additive, script: []*provider.Response{
		tools(10, 1, call("c1", "save_post", map[string]any{"content": "a"})),
		text("Saved.", 20, 2),
	}}
	f := newFixture(t, Config{}, adapter)
	replacement := &scriptedAdapter{script: []*provider.Response{text("new backend", 1, 1)}}

	hops := 0
	closedMidExchange := false
	adapter.onCall = func(context.Context) {
		hops++
		if hops == 1 {
			f.manager.SetAdapter(replacement)
		}
		if adapter.closed.Load() {
			closedMidExchange = true
		}
	}

	res, err := f.orch.RunExchange(context.Background(), Request{UserID: "u1", Message: "save it"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Saved.", res.Text)
	assert.Equal(t, 2, hops)
	assert.False(t, closedMidExchange)
	assert.True(t, adapter.closed.Load(), "replaced adapter is closed once the exchange ends")
	assert.Same(t, replacement, f.manager.Current())

	res, err = f.orch.RunExchange(context.Background(), Request{UserID: "u1", Message: "again"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "new backend", res.Text)
}
