// Package openai implements the chat-completions backend. The conversation is
// held by the caller: every continuation re-sends the full message list with
// tool results correlated by tool_call_id.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"socialhub-server-go/internal/domain/chat/aggregate"
	"socialhub-server-go/internal/domain/chat/catalogue"
	"socialhub-server-go/internal/domain/chat/ledger"
	"socialhub-server-go/internal/domain/chat/provider"
	platformerrors "socialhub-server-go/internal/platform/errors"
	"socialhub-server-go/internal/platform/logging"
)

const Name = "openai"

type Config struct {
	APIKey       string
	BaseURL      string
	Model        string
	Temperature  float32
	MaxTokens    int
	Timeout      time.Duration
	SystemPrompt string
	Retry        provider.RetryConfig
}

type Adapter struct {
	client       *openai.Client
	cfg          Config
	tools        []openai.Tool
	schemaTokens int
	breaker      *provider.CircuitBreaker
	logger       *logging.Logger
}

type continuation struct {
	messages  []openai.ChatCompletionMessage
	estimator *provider.Estimator
	output    ledger.Breakdown
	pending   []aggregate.ToolInvocation
}

func (c *continuation) Provider() string { return Name }

func New(cfg Config, cat *catalogue.Catalogue, logger *logging.Logger) (*Adapter, error) {
	if cfg.APIKey == "" {
		return nil, platformerrors.New(platformerrors.KindConfig, "openai.new", "api_key is required")
	}
	if cfg.Model == "" {
		return nil, platformerrors.New(platformerrors.KindConfig, "openai.new", "model is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = provider.DefaultRetryConfig()
	}

	tools := cat.OpenAITools()
	return &Adapter{
		client:       openai.NewClientWithConfig(clientCfg),
		cfg:          cfg,
		tools:        tools,
		schemaTokens: ledger.EstimateJSON(tools),
		breaker:      provider.NewCircuitBreaker(5, 30*time.Second),
		logger:       logger,
	}, nil
}

func (a *Adapter) Name() string { return Name }

// BreakerState reports the circuit breaker state for metrics.
func (a *Adapter) BreakerState() int { return a.breaker.State() }

func (a *Adapter) MergeMode() ledger.Mode { return ledger.Additive }

func (a *Adapter) Close() error { return nil }

func (a *Adapter) StartExchange(ctx context.Context, req provider.StartRequest) (*provider.Response, error) {
	userContent := req.UserMessage
	for _, att := range req.Attachments {
		text, refusal := inlineAttachment(att)
		if refusal != "" {
			a.logger.WarnTag("OPENAI", "attachment %s (%s) rejected", att.Name, att.MimeType)
			return provider.Terminal(refusal), nil
		}
		userContent += text
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if a.cfg.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: a.cfg.SystemPrompt})
	}
	for _, turn := range req.History {
		messages = append(messages, openai.ChatCompletionMessage{Role: roleOf(turn.Role), Content: turn.Message})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: userContent})

	estimator := provider.NewEstimator(a.cfg.SystemPrompt, a.schemaTokens, req)
	return a.send(ctx, messages, estimator), nil
}

func (a *Adapter) ContinueExchange(ctx context.Context, cont provider.Continuation, results []aggregate.ToolResult) (*provider.Response, error) {
	c, ok := cont.(*continuation)
	if !ok || c == nil {
		return nil, platformerrors.New(platformerrors.KindContext, "openai.continue", "continuation does not belong to this provider")
	}
	if len(results) != len(c.pending) {
		return nil, platformerrors.New(platformerrors.KindContext, "openai.continue",
			fmt.Sprintf("expected %d tool results, got %d", len(c.pending), len(results)))
	}

	messages := make([]openai.ChatCompletionMessage, len(c.messages), len(c.messages)+len(results))
	copy(messages, c.messages)
	for _, r := range results {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			Content:    provider.EncodeResult(r.Name, r.Result, a.logger),
			ToolCallID: r.CallID,
		})
	}

	return a.send(ctx, messages, c.estimator.Advance(c.output, results)), nil
}

func (a *Adapter) send(ctx context.Context, messages []openai.ChatCompletionMessage, estimator *provider.Estimator) *provider.Response {
	if !a.breaker.Allow() {
		a.logger.WarnTag("OPENAI", "circuit open, skipping request")
		return provider.Terminal(provider.CircuitOpenMessage)
	}

	request := openai.ChatCompletionRequest{
		Model:       a.cfg.Model,
		Messages:    messages,
		Tools:       a.tools,
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxTokens,
	}

	var resp openai.ChatCompletionResponse
	start := time.Now()
	err := provider.Retry(ctx, a.cfg.Retry, retryable, func(ctx context.Context) error {
		var callErr error
		resp, callErr = a.client.CreateChatCompletion(ctx, request)
		return callErr
	})
	if err != nil {
		if isContentPolicy(err) {
			a.breaker.RecordSuccess()
			a.logger.WarnTag("OPENAI", "request rejected by content policy")
			return provider.Terminal(provider.SafetyBlockedMessage)
		}
		a.breaker.RecordFailure()
		a.logger.ErrorTag("OPENAI", "chat completion failed after %s: %v", time.Since(start).Round(time.Millisecond), err)
		return provider.Terminal(provider.ProviderFailureMessage)
	}
	a.breaker.RecordSuccess()
	a.logger.DebugTag("OPENAI", "chat completion in %s, prompt=%d completion=%d",
		time.Since(start).Round(time.Millisecond), resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	return a.interpret(resp, messages, estimator)
}

func (a *Adapter) interpret(resp openai.ChatCompletionResponse, messages []openai.ChatCompletionMessage, estimator *provider.Estimator) *provider.Response {
	prompt := estimator.Prompt()
	if len(resp.Choices) == 0 {
		out := provider.Terminal(provider.EmptyCompletionMessage)
		out.Usage = provider.HopUsage(prompt, ledger.Breakdown{}, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
		return out
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		out := provider.Terminal(provider.SafetyBlockedMessage)
		out.Usage = provider.HopUsage(prompt, ledger.Breakdown{}, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
		return out
	}

	calls := make([]aggregate.ToolInvocation, 0, len(choice.Message.ToolCalls))
	for i, tc := range choice.Message.ToolCalls {
		args, err := decodeArguments(tc.Function.Arguments)
		if err != nil {
			a.logger.WarnTag("OPENAI", "malformed arguments for %s: %v", tc.Function.Name, err)
			out := provider.Terminal(provider.MalformedCallMessage)
			out.Usage = provider.HopUsage(prompt, provider.OutputBreakdown(choice.Message.Content, nil),
				resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
			return out
		}
		id := tc.ID
		if id == "" {
			id = fmt.Sprintf("call_%d", i)
		}
		calls = append(calls, aggregate.ToolInvocation{
			ID:        id,
			Name:      tc.Function.Name,
			Arguments: provider.NormalizeArguments(args, a.logger),
		})
	}

	output := provider.OutputBreakdown(choice.Message.Content, calls)
	usage := provider.HopUsage(prompt, output, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	if len(calls) == 0 {
		text := choice.Message.Content
		if strings.TrimSpace(text) == "" {
			text = provider.EmptyCompletionMessage
		}
		return &provider.Response{Text: text, Usage: usage}
	}

	assistant := choice.Message
	assistant.Role = openai.ChatMessageRoleAssistant
	for i := range assistant.ToolCalls {
		assistant.ToolCalls[i].ID = calls[i].ID
		if assistant.ToolCalls[i].Type == "" {
			assistant.ToolCalls[i].Type = openai.ToolTypeFunction
		}
	}
	history := make([]openai.ChatCompletionMessage, len(messages), len(messages)+1)
	copy(history, messages)
	history = append(history, assistant)

	return &provider.Response{
		Text:      choice.Message.Content,
		ToolCalls: calls,
		Usage:     usage,
		Continuation: &continuation{
			messages:  history,
			estimator: estimator,
			output:    output,
			pending:   calls,
		},
	}
}

func decodeArguments(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

func roleOf(role aggregate.Role) string {
	switch role {
	case aggregate.RoleAgent:
		return openai.ChatMessageRoleAssistant
	case aggregate.RoleSystem:
		return openai.ChatMessageRoleSystem
	default:
		return openai.ChatMessageRoleUser
	}
}

// inlineAttachment turns text-like files into prompt text. Images and other
// binary files are refused with an explanatory message.
func inlineAttachment(att aggregate.Attachment) (text string, refusal string) {
	mime := strings.ToLower(att.MimeType)
	textual := strings.HasPrefix(mime, "text/") || mime == "application/json" || mime == "application/xml"
	if att.IsImage() || !textual {
		return "", provider.UnsupportedAttachmentMessage("OpenAI chat", att.Name, att.MimeType)
	}
	data, err := att.Decode()
	if err != nil {
		return "", fmt.Sprintf(provider.InvalidAttachmentFormat, att.Name)
	}
	return fmt.Sprintf("\n\n[Attachment %s]\n%s", att.Name, string(data)), ""
}

func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return provider.IsRetryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return provider.IsRetryableStatus(reqErr.HTTPStatusCode)
	}
	return provider.IsRetryableNetworkError(err)
}

func isContentPolicy(err error) bool {
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	code := fmt.Sprint(apiErr.Code)
	return code == "content_policy_violation" || code == "content_filter"
}
