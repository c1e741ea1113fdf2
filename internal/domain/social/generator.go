package social

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"

	"socialhub-server-go/internal/domain/chat/ledger"
	"socialhub-server-go/internal/platform/errors"
)

// ContentRequest describes the post text to write.
type ContentRequest struct {
	Topic     string
	Platform  string
	Tone      string
	MaxLength int
}

type ContentGenerator interface {
	Generate(ctx context.Context, req ContentRequest) (string, error)
}

type ImageRequest struct {
	Prompt string
	Size   string
	Style  string
}

type GeneratedImage struct {
	URL           string
	RevisedPrompt string
	Size          string
	Usage         ledger.ImageGeneration
}

type ImageGenerator interface {
	Generate(ctx context.Context, req ImageRequest) (*GeneratedImage, error)
}

// ChatCompleter is the part of *openai.Client used for copywriting.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ImageCreator is the part of *openai.Client used for images.
type ImageCreator interface {
	CreateImage(ctx context.Context, req openai.ImageRequest) (openai.ImageResponse, error)
}

const copywriterPrompt = `You are a social media copywriter. Write one ready-to-post message for the given platform.
Return only the post text, without quotes or commentary. Respect the character limit.`

type openAIContentGenerator struct {
	client ChatCompleter
	model  string
}

func NewOpenAIContentGenerator(client ChatCompleter, model string) ContentGenerator {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &openAIContentGenerator{client: client, model: model}
}

func (g *openAIContentGenerator) Generate(ctx context.Context, req ContentRequest) (string, error) {
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Topic: %s\n", req.Topic)
	if req.Platform != "" {
		fmt.Fprintf(&prompt, "Platform: %s\n", req.Platform)
	}
	if req.Tone != "" {
		fmt.Fprintf(&prompt, "Tone: %s\n", req.Tone)
	}
	if req.MaxLength > 0 {
		fmt.Fprintf(&prompt, "Maximum length: %d characters\n", req.MaxLength)
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: copywriterPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt.String()},
		},
		Temperature: 0.8,
	})
	if err != nil {
		return "", errors.Wrap(errors.KindTool, "content.generate", "content generation failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New(errors.KindTool, "content.generate", "content generation returned no text")
	}

	text := strings.Trim(strings.TrimSpace(resp.Choices[0].Message.Content), `"`)
	if text == "" {
		return "", errors.New(errors.KindTool, "content.generate", "content generation returned no text")
	}
	return truncateRunes(text, req.MaxLength), nil
}

type openAIImageGenerator struct {
	client      ImageCreator
	model       string
	defaultSize string
}

func NewOpenAIImageGenerator(client ImageCreator, model, defaultSize string) ImageGenerator {
	if model == "" {
		model = openai.CreateImageModelDallE3
	}
	if defaultSize == "" {
		defaultSize = openai.CreateImageSize1024x1024
	}
	return &openAIImageGenerator{client: client, model: model, defaultSize: defaultSize}
}

func (g *openAIImageGenerator) Generate(ctx context.Context, req ImageRequest) (*GeneratedImage, error) {
	size := req.Size
	if size == "" {
		size = g.defaultSize
	}
	if _, ok := imageTiles(size); !ok {
		return nil, errors.New(errors.KindTool, "image.generate", fmt.Sprintf("unsupported image size %q", size))
	}

	imgReq := openai.ImageRequest{
		Prompt:         req.Prompt,
		Model:          g.model,
		N:              1,
		Size:           size,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	}
	if g.model == openai.CreateImageModelDallE3 {
		switch strings.ToLower(req.Style) {
		case openai.CreateImageStyleNatural:
			imgReq.Style = openai.CreateImageStyleNatural
		case "", openai.CreateImageStyleVivid:
			imgReq.Style = openai.CreateImageStyleVivid
		}
	}

	resp, err := g.client.CreateImage(ctx, imgReq)
	if err != nil {
		return nil, errors.Wrap(errors.KindTool, "image.generate", "image generation failed", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return nil, errors.New(errors.KindTool, "image.generate", "image generation returned no image")
	}

	return &GeneratedImage{
		URL:           resp.Data[0].URL,
		RevisedPrompt: resp.Data[0].RevisedPrompt,
		Size:          size,
		Usage:         ImageUsage(req.Prompt, size),
	}, nil
}

// ImageUsage estimates the tokens of one generated image: the prompt text plus
// 85 base tokens and 170 per 512px tile.
func ImageUsage(prompt, size string) ledger.ImageGeneration {
	tiles, _ := imageTiles(size)
	return ledger.ImageGeneration{
		PromptTokens: ledger.EstimateText(prompt),
		ImageTokens:  85 + 170*tiles,
		Images:       1,
	}
}

func imageTiles(size string) (int, bool) {
	var w, h int
	if _, err := fmt.Sscanf(size, "%dx%d", &w, &h); err != nil || w <= 0 || h <= 0 {
		return 0, false
	}
	return ((w + 511) / 512) * ((h + 511) / 512), true
}

// unavailable is used when no OpenAI key is configured for the tools.
type unavailable struct{ what string }

func (u unavailable) Generate(context.Context, ContentRequest) (string, error) {
	return "", errors.New(errors.KindConfig, "content.generate", u.what+" is not configured")
}

type unavailableImages struct{ what string }

func (u unavailableImages) Generate(context.Context, ImageRequest) (*GeneratedImage, error) {
	return nil, errors.New(errors.KindConfig, "image.generate", u.what+" is not configured")
}

// UnavailableContentGenerator fails every call with a configuration error.
func UnavailableContentGenerator() ContentGenerator {
	return unavailable{what: "content generation"}
}

// UnavailableImageGenerator fails every call with a configuration error.
func UnavailableImageGenerator() ImageGenerator {
	return unavailableImages{what: "image generation"}
}

func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:max]))
}
