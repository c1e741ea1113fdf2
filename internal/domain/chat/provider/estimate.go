package provider

import (
	"socialhub-server-go/internal/domain/chat/aggregate"
	"socialhub-server-go/internal/domain/chat/ledger"
)

// Estimator tracks the prompt of one exchange as it grows across hops. Model
// output from earlier hops is re-sent as history; tool results accumulate
// under ToolResults.
type Estimator struct {
	prompt ledger.Breakdown
}

// NewEstimator sizes the first call of an exchange.
func NewEstimator(systemPrompt string, schemaTokens int, req StartRequest) *Estimator {
	history := make([]string, 0, len(req.History))
	for _, t := range req.History {
		history = append(history, t.Message)
	}
	var images, files int
	for _, a := range req.Attachments {
		if a.IsImage() {
			images++
		} else {
			files++
		}
	}
	return &Estimator{prompt: ledger.EstimatePrompt(ledger.Prompt{
		SystemPrompt:     systemPrompt,
		ToolSchemaTokens: schemaTokens,
		History:          history,
		UserMessage:      req.UserMessage,
		Images:           images,
		Files:            files,
	})}
}

// Prompt is the input-side breakdown of the next call.
func (e *Estimator) Prompt() ledger.Breakdown {
	return e.prompt
}

// Advance returns the estimator for the next hop: the previous hop's output
// and the tool results folded into the prompt. e is left unchanged.
func (e *Estimator) Advance(previousOutput ledger.Breakdown, results []aggregate.ToolResult) *Estimator {
	next := &Estimator{prompt: e.prompt}
	next.prompt.History += previousOutput.OutputTotal() + ledger.MessageOverheadTokens
	for _, r := range results {
		next.prompt.ToolResults += ledger.EstimateJSON(r.Result) + ledger.MessageOverheadTokens
	}
	return next
}

// OutputBreakdown estimates the tokens of a model reply.
func OutputBreakdown(text string, calls []aggregate.ToolInvocation) ledger.Breakdown {
	b := ledger.Breakdown{Completion: ledger.EstimateText(text)}
	for _, c := range calls {
		b.ToolCalls += ledger.EstimateText(c.Name) + ledger.EstimateJSON(c.Arguments)
	}
	return b
}

// HopUsage combines the estimate for one call with provider-reported counts,
// which replace the estimate for that call when present.
func HopUsage(prompt, output ledger.Breakdown, reportedInput, reportedOutput int) ledger.Ledger {
	return ledger.FromBreakdown(prompt.Add(output)).WithAuthoritative(reportedInput, reportedOutput)
}
