package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecorderCollectsThroughContext(t *testing.T) {
	rec := &Recorder{}
	ctx := ContextWithRecorder(context.Background(), rec)

	RecordImageGeneration(ctx, ImageGeneration{PromptTokens: 5, ImageTokens: 765, Images: 1})
	RecordImageGeneration(ctx, ImageGeneration{PromptTokens: 3, ImageTokens: 765, Images: 1})
	RecordImageGeneration(context.Background(), ImageGeneration{Images: 9})

	got := rec.Drain()
	assert.Equal(t, ImageGeneration{PromptTokens: 8, ImageTokens: 1530, Images: 2}, got)
	assert.Equal(t, ImageGeneration{}, rec.Drain())
}

func TestImageGenerationExcludedFromTotals(t *testing.T) {
	l := FromBreakdown(Breakdown{UserMessage: 10, Completion: 4}).
		WithImageGeneration(ImageGeneration{PromptTokens: 6, ImageTokens: 765, Images: 1})
	assert.Equal(t, 14, l.TotalTokens)
	assert.Equal(t, 765, l.Breakdown.ImageGeneration.ImageTokens)
}
