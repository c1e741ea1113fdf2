package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"socialhub-server-go/internal/domain/chat/aggregate"
	"socialhub-server-go/internal/domain/chat/ledger"
)

func TestEstimatorGrowsAcrossHops(t *testing.T) {
	req := StartRequest{
		UserMessage: "draft a post about our launch",
		History:     []aggregate.Turn{{Role: aggregate.RoleUser, Message: "hi"}, {Role: aggregate.RoleAgent, Message: "hello"}},
		Attachments: []aggregate.Attachment{{MimeType: "image/png"}, {MimeType: "application/pdf"}},
	}
	est := NewEstimator("system prompt", 120, req)
	first := est.Prompt()

	assert.Equal(t, 120, first.ToolSchemas)
	assert.Equal(t, ledger.ImageAttachmentTokens+ledger.FileAttachmentTokens, first.Attachments)
	// "hi" is 1 token and "hello" rounds up to 2.
	assert.Equal(t, 1+ledger.MessageOverheadTokens+2+ledger.MessageOverheadTokens, first.History)

	calls := []aggregate.ToolInvocation{{ID: "c1", Name: "save_post", Arguments: map[string]any{"content": "x"}}}
	out := OutputBreakdown("", calls)
	assert.Positive(t, out.ToolCalls)
	assert.Zero(t, out.Completion)

	results := []aggregate.ToolResult{{CallID: "c1", Name: "save_post", Result: map[string]any{"id": 1}}}
	second := est.Advance(out, results).Prompt()
	assert.Equal(t, first.History+out.OutputTotal()+ledger.MessageOverheadTokens, second.History)
	assert.Positive(t, second.ToolResults)

	assert.Equal(t, first, est.Prompt(), "advancing leaves the earlier hop untouched")
	assert.Equal(t, second, est.Advance(out, results).Prompt())
}

func TestHopUsagePrefersReportedCounts(t *testing.T) {
	prompt := ledger.Breakdown{UserMessage: 10, SystemPrompt: 5}
	output := ledger.Breakdown{Completion: 3}

	estimated := HopUsage(prompt, output, 0, 0)
	assert.Equal(t, 15, estimated.InputTokens)
	assert.Equal(t, 3, estimated.OutputTokens)
	assert.Equal(t, 18, estimated.TotalTokens)

	reported := HopUsage(prompt, output, 40, 9)
	assert.Equal(t, 40, reported.InputTokens)
	assert.Equal(t, 9, reported.OutputTokens)
	assert.Equal(t, 49, reported.TotalTokens)
	assert.Equal(t, estimated.Breakdown, reported.Breakdown)
}
