// Package gemini implements the stateful-session backend. The provider keeps
// the conversation inside a chat session; continuations send only function
// responses, and reported input already covers every earlier hop.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"socialhub-server-go/internal/domain/chat/aggregate"
	"socialhub-server-go/internal/domain/chat/catalogue"
	"socialhub-server-go/internal/domain/chat/ledger"
	"socialhub-server-go/internal/domain/chat/provider"
	platformerrors "socialhub-server-go/internal/platform/errors"
	"socialhub-server-go/internal/platform/logging"
)

const Name = "gemini"

// finishReasonMalformedFunctionCall is MALFORMED_FUNCTION_CALL, which the
// genai enum does not name.
const finishReasonMalformedFunctionCall genai.FinishReason = 10

type Config struct {
	APIKey       string
	Model        string
	Temperature  float32
	MaxTokens    int
	SystemPrompt string
	Retry        provider.RetryConfig
}

// chatSession is the subset of *genai.ChatSession the adapter needs.
type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type sessionFactory func(history []*genai.Content) chatSession

// rollbackSession drops the content genai.ChatSession appends to its history
// before a send that then fails, so a retried send is not duplicated.
type rollbackSession struct {
	cs *genai.ChatSession
}

func (s rollbackSession) SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	n := len(s.cs.History)
	resp, err := s.cs.SendMessage(ctx, parts...)
	if err != nil && len(s.cs.History) > n {
		s.cs.History = s.cs.History[:n]
	}
	return resp, err
}

type Adapter struct {
	client       *genai.Client
	newSession   sessionFactory
	cfg          Config
	schemaTokens int
	breaker      *provider.CircuitBreaker
	logger       *logging.Logger
}

type continuation struct {
	session   chatSession
	estimator *provider.Estimator
	output    ledger.Breakdown
	pending   []aggregate.ToolInvocation
	hop       int
}

func (c *continuation) Provider() string { return Name }

func New(ctx context.Context, cfg Config, cat *catalogue.Catalogue, logger *logging.Logger) (*Adapter, error) {
	if cfg.APIKey == "" {
		return nil, platformerrors.New(platformerrors.KindConfig, "gemini.new", "api_key is required")
	}
	if cfg.Model == "" {
		return nil, platformerrors.New(platformerrors.KindConfig, "gemini.new", "model is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindProvider, "gemini.new", "failed to create client", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.Tools = cat.GeminiTools()
	if cfg.SystemPrompt != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(cfg.SystemPrompt)}}
	}
	if cfg.Temperature > 0 {
		model.SetTemperature(cfg.Temperature)
	}
	if cfg.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(cfg.MaxTokens))
	}

	a := newAdapter(cfg, cat, logger, func(history []*genai.Content) chatSession {
		cs := model.StartChat()
		cs.History = history
		return rollbackSession{cs: cs}
	})
	a.client = client
	return a, nil
}

func newAdapter(cfg Config, cat *catalogue.Catalogue, logger *logging.Logger, factory sessionFactory) *Adapter {
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = provider.DefaultRetryConfig()
	}
	return &Adapter{
		newSession:   factory,
		cfg:          cfg,
		schemaTokens: ledger.EstimateJSON(cat.GeminiTools()),
		breaker:      provider.NewCircuitBreaker(5, 30*time.Second),
		logger:       logger,
	}
}

func (a *Adapter) Name() string { return Name }

// BreakerState reports the circuit breaker state for metrics.
func (a *Adapter) BreakerState() int { return a.breaker.State() }

func (a *Adapter) MergeMode() ledger.Mode { return ledger.InputReplaceOutputAccumulate }

func (a *Adapter) Close() error {
	if a.client != nil {
		return a.client.Close()
	}
	return nil
}

func (a *Adapter) StartExchange(ctx context.Context, req provider.StartRequest) (*provider.Response, error) {
	parts := []genai.Part{genai.Text(req.UserMessage)}
	for _, att := range req.Attachments {
		if !supported(att.MimeType) {
			a.logger.WarnTag("GEMINI", "attachment %s (%s) rejected", att.Name, att.MimeType)
			return provider.Terminal(provider.UnsupportedAttachmentMessage("Gemini", att.Name, att.MimeType)), nil
		}
		data, err := att.Decode()
		if err != nil {
			return provider.Terminal(fmt.Sprintf(provider.InvalidAttachmentFormat, att.Name)), nil
		}
		parts = append(parts, genai.Blob{MIMEType: att.MimeType, Data: data})
	}

	session := a.newSession(historyContents(req.History))
	estimator := provider.NewEstimator(a.cfg.SystemPrompt, a.schemaTokens, req)
	return a.send(ctx, session, estimator, 0, parts), nil
}

func (a *Adapter) ContinueExchange(ctx context.Context, cont provider.Continuation, results []aggregate.ToolResult) (*provider.Response, error) {
	c, ok := cont.(*continuation)
	if !ok || c == nil {
		return nil, platformerrors.New(platformerrors.KindContext, "gemini.continue", "continuation does not belong to this provider")
	}
	if len(results) != len(c.pending) {
		return nil, platformerrors.New(platformerrors.KindContext, "gemini.continue",
			fmt.Sprintf("expected %d tool results, got %d", len(c.pending), len(results)))
	}

	parts := make([]genai.Part, 0, len(results))
	for _, r := range results {
		parts = append(parts, genai.FunctionResponse{
			Name:     r.Name,
			Response: provider.ResultObject(r.Name, r.Result, a.logger),
		})
	}

	return a.send(ctx, c.session, c.estimator.Advance(c.output, results), c.hop+1, parts), nil
}

func (a *Adapter) send(ctx context.Context, session chatSession, estimator *provider.Estimator, hop int, parts []genai.Part) *provider.Response {
	if !a.breaker.Allow() {
		a.logger.WarnTag("GEMINI", "circuit open, skipping request")
		return provider.Terminal(provider.CircuitOpenMessage)
	}

	var resp *genai.GenerateContentResponse
	start := time.Now()
	err := provider.Retry(ctx, a.cfg.Retry, retryable, func(ctx context.Context) error {
		var callErr error
		resp, callErr = session.SendMessage(ctx, parts...)
		return callErr
	})

	var blocked *genai.BlockedError
	switch {
	case errors.As(err, &blocked):
		a.breaker.RecordSuccess()
		a.logger.WarnTag("GEMINI", "response blocked: %v", blocked)
		return provider.Terminal(provider.SafetyBlockedMessage)
	case err != nil:
		a.breaker.RecordFailure()
		a.logger.ErrorTag("GEMINI", "send message failed after %s: %v", time.Since(start).Round(time.Millisecond), err)
		return provider.Terminal(provider.ProviderFailureMessage)
	}
	a.breaker.RecordSuccess()

	return a.interpret(resp, session, estimator, hop)
}

func (a *Adapter) interpret(resp *genai.GenerateContentResponse, session chatSession, estimator *provider.Estimator, hop int) *provider.Response {
	prompt := estimator.Prompt()
	reportedIn, reportedOut := reported(resp)

	terminal := func(text string, output ledger.Breakdown) *provider.Response {
		out := provider.Terminal(text)
		out.Usage = provider.HopUsage(prompt, output, reportedIn, reportedOut)
		return out
	}

	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
			return terminal(provider.SafetyBlockedMessage, ledger.Breakdown{})
		}
		return terminal(provider.EmptyCompletionMessage, ledger.Breakdown{})
	}

	cand := resp.Candidates[0]
	if cand.FinishReason == genai.FinishReasonSafety {
		return terminal(provider.SafetyBlockedMessage, ledger.Breakdown{})
	}
	if cand.FinishReason == finishReasonMalformedFunctionCall {
		a.logger.WarnTag("GEMINI", "malformed function call reported by model")
		return terminal(provider.MalformedCallMessage, ledger.Breakdown{})
	}

	var text strings.Builder
	var calls []aggregate.ToolInvocation
	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			switch p := part.(type) {
			case genai.Text:
				text.WriteString(string(p))
			case genai.FunctionCall:
				calls = append(calls, a.invocation(p, hop, len(calls)))
			case *genai.FunctionCall:
				if p != nil {
					calls = append(calls, a.invocation(*p, hop, len(calls)))
				}
			}
		}
	}

	output := provider.OutputBreakdown(text.String(), calls)
	usage := provider.HopUsage(prompt, output, reportedIn, reportedOut)

	if len(calls) == 0 {
		reply := text.String()
		if strings.TrimSpace(reply) == "" {
			reply = provider.EmptyCompletionMessage
		}
		return &provider.Response{Text: reply, Usage: usage}
	}

	return &provider.Response{
		Text:      text.String(),
		ToolCalls: calls,
		Usage:     usage,
		Continuation: &continuation{
			session:   session,
			estimator: estimator,
			output:    output,
			pending:   calls,
			hop:       hop,
		},
	}
}

func (a *Adapter) invocation(fc genai.FunctionCall, hop, index int) aggregate.ToolInvocation {
	return aggregate.ToolInvocation{
		ID:        fmt.Sprintf("gemini-%d-%d", hop, index),
		Name:      fc.Name,
		Arguments: provider.NormalizeArguments(fc.Args, a.logger),
	}
}

func reported(resp *genai.GenerateContentResponse) (int, int) {
	if resp == nil || resp.UsageMetadata == nil {
		return 0, 0
	}
	return int(resp.UsageMetadata.PromptTokenCount), int(resp.UsageMetadata.CandidatesTokenCount)
}

// historyContents maps stored turns to session history. Consecutive turns with
// the same role are merged; system turns are carried by the system instruction.
func historyContents(turns []aggregate.Turn) []*genai.Content {
	var out []*genai.Content
	for _, t := range turns {
		if t.Role == aggregate.RoleSystem || t.Message == "" {
			continue
		}
		role := "user"
		if t.Role == aggregate.RoleAgent {
			role = "model"
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Parts = append(out[n-1].Parts, genai.Text(t.Message))
			continue
		}
		out = append(out, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(t.Message)}})
	}
	return out
}

func supported(mimeType string) bool {
	mime := strings.ToLower(mimeType)
	return strings.HasPrefix(mime, "image/") || strings.HasPrefix(mime, "text/") || mime == "application/pdf"
}

func retryable(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return provider.IsRetryableStatus(apiErr.Code)
	}
	return provider.IsRetryableNetworkError(err)
}
