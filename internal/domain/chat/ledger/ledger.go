// Package ledger accumulates token usage across the hops of one exchange.
//
// A Ledger is a plain value. Merge never mutates its inputs, and every
// constructor keeps TotalTokens equal to InputTokens+OutputTokens.
package ledger

// Mode selects how a hop's usage folds into the running ledger.
type Mode int

const (
	// Additive sums input and output. Used when each hop is billed for its full prompt.
	Additive Mode = iota
	// InputReplaceOutputAccumulate takes the latest hop's input as the cumulative
	// input and sums outputs. Used when the provider reports input that already
	// contains every earlier hop.
	InputReplaceOutputAccumulate
)

func (m Mode) String() string {
	switch m {
	case Additive:
		return "additive"
	case InputReplaceOutputAccumulate:
		return "input-replace-output-accumulate"
	default:
		return "unknown"
	}
}

// ImageGeneration reports tokens spent by image-generation tools. It is
// informational and not part of InputTokens or OutputTokens.
type ImageGeneration struct {
	PromptTokens int `json:"prompt_tokens"`
	ImageTokens  int `json:"image_tokens"`
	Images       int `json:"images"`
}

func (g ImageGeneration) add(o ImageGeneration) ImageGeneration {
	return ImageGeneration{
		PromptTokens: g.PromptTokens + o.PromptTokens,
		ImageTokens:  g.ImageTokens + o.ImageTokens,
		Images:       g.Images + o.Images,
	}
}

// Breakdown attributes tokens to prompt components. Input-side keys are
// SystemPrompt through ToolResults, output-side keys are ToolCalls and Completion.
type Breakdown struct {
	SystemPrompt    int             `json:"system_prompt"`
	ToolSchemas     int             `json:"tool_schemas"`
	History         int             `json:"history"`
	UserMessage     int             `json:"user_message"`
	Attachments     int             `json:"attachments"`
	ToolResults     int             `json:"tool_results"`
	ToolCalls       int             `json:"tool_calls"`
	Completion      int             `json:"completion"`
	ImageGeneration ImageGeneration `json:"image_generation"`
}

func (b Breakdown) InputTotal() int {
	return b.SystemPrompt + b.ToolSchemas + b.History + b.UserMessage + b.Attachments + b.ToolResults
}

func (b Breakdown) OutputTotal() int {
	return b.ToolCalls + b.Completion
}

// InputOnly zeroes the output-side keys.
func (b Breakdown) InputOnly() Breakdown {
	return Breakdown{
		SystemPrompt: b.SystemPrompt,
		ToolSchemas:  b.ToolSchemas,
		History:      b.History,
		UserMessage:  b.UserMessage,
		Attachments:  b.Attachments,
		ToolResults:  b.ToolResults,
	}
}

// OutputOnly zeroes the input-side keys.
func (b Breakdown) OutputOnly() Breakdown {
	return Breakdown{ToolCalls: b.ToolCalls, Completion: b.Completion}
}

func (b Breakdown) Add(o Breakdown) Breakdown {
	return Breakdown{
		SystemPrompt:    b.SystemPrompt + o.SystemPrompt,
		ToolSchemas:     b.ToolSchemas + o.ToolSchemas,
		History:         b.History + o.History,
		UserMessage:     b.UserMessage + o.UserMessage,
		Attachments:     b.Attachments + o.Attachments,
		ToolResults:     b.ToolResults + o.ToolResults,
		ToolCalls:       b.ToolCalls + o.ToolCalls,
		Completion:      b.Completion + o.Completion,
		ImageGeneration: b.ImageGeneration.add(o.ImageGeneration),
	}
}

type Ledger struct {
	InputTokens  int       `json:"inputTokens"`
	OutputTokens int       `json:"outputTokens"`
	TotalTokens  int       `json:"totalTokens"`
	Breakdown    Breakdown `json:"breakdown"`
}

// FromBreakdown builds an estimate-only ledger whose totals equal the breakdown sums.
func FromBreakdown(b Breakdown) Ledger {
	in, out := b.InputTotal(), b.OutputTotal()
	return Ledger{InputTokens: in, OutputTokens: out, TotalTokens: in + out, Breakdown: b}
}

// WithAuthoritative replaces the estimated totals with provider-reported counts.
// A non-positive count keeps the estimate for that side.
func (l Ledger) WithAuthoritative(input, output int) Ledger {
	if input > 0 {
		l.InputTokens = input
	}
	if output > 0 {
		l.OutputTokens = output
	}
	l.TotalTokens = l.InputTokens + l.OutputTokens
	return l
}

// WithImageGeneration adds image tool usage to the breakdown.
func (l Ledger) WithImageGeneration(g ImageGeneration) Ledger {
	l.Breakdown.ImageGeneration = l.Breakdown.ImageGeneration.add(g)
	return l
}

// Merge folds delta into current according to mode.
func Merge(current, delta Ledger, mode Mode) Ledger {
	var out Ledger
	switch mode {
	case InputReplaceOutputAccumulate:
		out.InputTokens = current.InputTokens
		out.Breakdown = current.Breakdown.InputOnly()
		if delta.InputTokens > 0 {
			out.InputTokens = delta.InputTokens
			out.Breakdown = delta.Breakdown.InputOnly()
		}
		out.OutputTokens = current.OutputTokens + delta.OutputTokens
		out.Breakdown = out.Breakdown.Add(current.Breakdown.OutputOnly()).Add(delta.Breakdown.OutputOnly())
		out.Breakdown.ImageGeneration = current.Breakdown.ImageGeneration.add(delta.Breakdown.ImageGeneration)
	default:
		out.InputTokens = current.InputTokens + delta.InputTokens
		out.OutputTokens = current.OutputTokens + delta.OutputTokens
		out.Breakdown = current.Breakdown.Add(delta.Breakdown)
	}
	out.TotalTokens = out.InputTokens + out.OutputTokens
	return out
}
