package ledger

import (
	"unicode/utf8"

	"github.com/bytedance/sonic"
)

const (
	// CharsPerToken is the heuristic used for every pre-send estimate.
	CharsPerToken = 4
	// ImageAttachmentTokens is the fixed cost charged per image attachment.
	ImageAttachmentTokens = 258
	// FileAttachmentTokens is the fixed cost charged per non-image attachment.
	FileAttachmentTokens = 100
	// MessageOverheadTokens covers role and framing per history message.
	MessageOverheadTokens = 4
)

// EstimateText returns ceil(runes/4).
func EstimateText(s string) int {
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return 0
	}
	return (n + CharsPerToken - 1) / CharsPerToken
}

// EstimateJSON estimates v by its JSON encoding. Unserializable values fall back to zero.
func EstimateJSON(v any) int {
	if v == nil {
		return 0
	}
	data, err := sonic.Marshal(v)
	if err != nil {
		return 0
	}
	return EstimateText(string(data))
}

// Prompt lists the components sent on the first call of an exchange.
type Prompt struct {
	SystemPrompt     string
	ToolSchemaTokens int
	History          []string
	UserMessage      string
	Images           int
	Files            int
}

// EstimatePrompt returns the input-side breakdown for p.
func EstimatePrompt(p Prompt) Breakdown {
	b := Breakdown{
		SystemPrompt: EstimateText(p.SystemPrompt),
		ToolSchemas:  p.ToolSchemaTokens,
		UserMessage:  EstimateText(p.UserMessage),
		Attachments:  p.Images*ImageAttachmentTokens + p.Files*FileAttachmentTokens,
	}
	for _, msg := range p.History {
		b.History += EstimateText(msg) + MessageOverheadTokens
	}
	return b
}
