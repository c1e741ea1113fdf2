// Package social implements the collaborators behind the agent tools: post
// storage, copywriting, image generation and publishing.
package social

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"socialhub-server-go/internal/domain/chat/catalogue"
	"socialhub-server-go/internal/domain/chat/dispatch"
	"socialhub-server-go/internal/domain/chat/ledger"
	"socialhub-server-go/internal/domain/social/aggregate"
	"socialhub-server-go/internal/domain/social/repository"
	"socialhub-server-go/internal/platform/logging"
)

const (
	defaultListLimit = 10
	maxListLimit     = 50
)

// Service binds the tool handlers to their collaborators.
type Service struct {
	posts     repository.PostRepository
	content   ContentGenerator
	images    ImageGenerator
	publisher *Publisher
	logger    *logging.Logger
	now       func() time.Time
}

func NewService(posts repository.PostRepository, content ContentGenerator, images ImageGenerator, publisher *Publisher, logger *logging.Logger) *Service {
	if content == nil {
		content = UnavailableContentGenerator()
	}
	if images == nil {
		images = UnavailableImageGenerator()
	}
	return &Service{
		posts:     posts,
		content:   content,
		images:    images,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Handlers returns one dispatch handler per catalogue tool.
func (s *Service) Handlers() map[string]dispatch.Handler {
	return map[string]dispatch.Handler{
		catalogue.ToolGenerateContent: s.generateContent,
		catalogue.ToolGenerateImage:   s.generateImage,
		catalogue.ToolSavePost:        s.savePost,
		catalogue.ToolListPosts:       s.listPosts,
		catalogue.ToolGetPost:         s.getPost,
		catalogue.ToolUpdatePost:      s.updatePost,
		catalogue.ToolSchedulePost:    s.schedulePost,
		catalogue.ToolPublishPost:     s.publishPost,
		catalogue.ToolDeletePost:      s.deletePost,
	}
}

func (s *Service) generateContent(ctx context.Context, args map[string]any, _ string) (any, error) {
	topic, err := dispatch.RequireString(args, "topic")
	if err != nil {
		return nil, err
	}
	req := ContentRequest{Topic: topic}
	if p, ok := dispatch.String(args, "platform"); ok {
		if req.Platform, err = aggregate.NormalizePlatform(p); err != nil {
			return nil, err
		}
	}
	req.Tone, _ = dispatch.String(args, "tone")
	req.MaxLength, _ = dispatch.Int(args, "max_length")
	if limit := aggregate.ContentLimit(req.Platform); limit > 0 && (req.MaxLength <= 0 || req.MaxLength > limit) {
		req.MaxLength = limit
	}

	text, err := s.content.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"content":  text,
		"platform": req.Platform,
		"length":   utf8.RuneCountInString(text),
	}, nil
}

func (s *Service) generateImage(ctx context.Context, args map[string]any, _ string) (any, error) {
	prompt, err := dispatch.RequireString(args, "prompt")
	if err != nil {
		return nil, err
	}
	req := ImageRequest{Prompt: prompt}
	req.Size, _ = dispatch.String(args, "size")
	req.Style, _ = dispatch.String(args, "style")

	img, err := s.images.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	ledger.RecordImageGeneration(ctx, img.Usage)

	out := map[string]any{
		"image_url": img.URL,
		"size":      img.Size,
	}
	if img.RevisedPrompt != "" {
		out["revised_prompt"] = img.RevisedPrompt
	}
	return out, nil
}

func (s *Service) savePost(ctx context.Context, args map[string]any, user string) (any, error) {
	content, err := dispatch.RequireString(args, "content")
	if err != nil {
		return nil, err
	}
	rawPlatform, err := dispatch.RequireString(args, "platform")
	if err != nil {
		return nil, err
	}
	platform, err := aggregate.NormalizePlatform(rawPlatform)
	if err != nil {
		return nil, err
	}

	post := &aggregate.Post{
		OwnerID:  user,
		Platform: platform,
		Content:  content,
		Hashtags: aggregate.NormalizeHashtags(dispatch.Strings(args, "hashtags")),
		Status:   aggregate.StatusDraft,
	}
	post.ImageURL, _ = dispatch.String(args, "image_url")
	if err := post.Validate(); err != nil {
		return nil, err
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	s.logger.InfoTag("TOOLS", "saved post %d for %s", post.ID, user)
	return postView(post), nil
}

func (s *Service) listPosts(ctx context.Context, args map[string]any, user string) (any, error) {
	filter := aggregate.ListFilter{Limit: defaultListLimit}
	if raw, ok := dispatch.String(args, "status"); ok {
		st, err := aggregate.ParseStatus(raw)
		if err != nil {
			return nil, err
		}
		filter.Status = st
	}
	if raw, ok := dispatch.String(args, "platform"); ok {
		p, err := aggregate.NormalizePlatform(raw)
		if err != nil {
			return nil, err
		}
		filter.Platform = p
	}
	if n, ok := dispatch.Int(args, "limit"); ok && n > 0 {
		filter.Limit = min(n, maxListLimit)
	}

	posts, err := s.posts.List(ctx, user, filter)
	if err != nil {
		return nil, err
	}
	views := make([]any, 0, len(posts))
	for i := range posts {
		views = append(views, postView(&posts[i]))
	}
	return map[string]any{"posts": views, "count": len(views)}, nil
}

func (s *Service) getPost(ctx context.Context, args map[string]any, user string) (any, error) {
	post, err := s.loadPost(ctx, args, user)
	if err != nil {
		return nil, err
	}
	view := postView(post)
	if post.Status == aggregate.StatusPublished {
		pubs, err := s.posts.Publications(ctx, post.ID)
		if err != nil {
			return nil, err
		}
		view["publications"] = publicationViews(pubs)
	}
	return view, nil
}

func (s *Service) updatePost(ctx context.Context, args map[string]any, user string) (any, error) {
	post, err := s.loadPost(ctx, args, user)
	if err != nil {
		return nil, err
	}
	if !post.Editable() {
		return nil, fmt.Errorf("post %d is already published and cannot be edited", post.ID)
	}

	changed := false
	if content, ok := dispatch.String(args, "content"); ok {
		post.Content = content
		changed = true
	}
	if _, present := args["image_url"]; present {
		post.ImageURL, _ = dispatch.String(args, "image_url")
		changed = true
	}
	if _, present := args["hashtags"]; present {
		post.Hashtags = aggregate.NormalizeHashtags(dispatch.Strings(args, "hashtags"))
		changed = true
	}
	if !changed {
		return nil, fmt.Errorf("nothing to update: provide content, image_url or hashtags")
	}
	if err := post.Validate(); err != nil {
		return nil, err
	}
	if err := s.posts.Update(ctx, post); err != nil {
		return nil, s.notFound(err, post.ID)
	}
	return postView(post), nil
}

func (s *Service) schedulePost(ctx context.Context, args map[string]any, user string) (any, error) {
	post, err := s.loadPost(ctx, args, user)
	if err != nil {
		return nil, err
	}
	raw, err := dispatch.RequireString(args, "publish_at")
	if err != nil {
		return nil, err
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("publish_at must be an RFC3339 timestamp such as 2024-06-01T09:00:00Z")
	}
	if !at.After(s.now()) {
		return nil, fmt.Errorf("publish_at %s is in the past", raw)
	}
	if !post.Editable() {
		return nil, fmt.Errorf("post %d is already published", post.ID)
	}

	at = at.UTC()
	post.ScheduledAt = &at
	post.Status = aggregate.StatusScheduled
	if err := s.posts.Update(ctx, post); err != nil {
		return nil, s.notFound(err, post.ID)
	}
	return postView(post), nil
}

func (s *Service) publishPost(ctx context.Context, args map[string]any, user string) (any, error) {
	post, err := s.loadPost(ctx, args, user)
	if err != nil {
		return nil, err
	}
	pubs, err := s.publisher.Publish(ctx, post, dispatch.Strings(args, "platforms"))
	if err != nil {
		return nil, err
	}
	view := postView(post)
	view["publications"] = publicationViews(pubs)
	return view, nil
}

func (s *Service) deletePost(ctx context.Context, args map[string]any, user string) (any, error) {
	id, err := dispatch.RequireInt(args, "post_id")
	if err != nil {
		return nil, err
	}
	if err := s.posts.Delete(ctx, user, uint(id)); err != nil {
		return nil, s.notFound(err, uint(id))
	}
	return map[string]any{"deleted": true, "post_id": id}, nil
}

func (s *Service) loadPost(ctx context.Context, args map[string]any, user string) (*aggregate.Post, error) {
	id, err := dispatch.RequireInt(args, "post_id")
	if err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, fmt.Errorf("post_id must be positive")
	}
	post, err := s.posts.Get(ctx, user, uint(id))
	if err != nil {
		return nil, s.notFound(err, uint(id))
	}
	return post, nil
}

func (s *Service) notFound(err error, id uint) error {
	if stderrors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("post %d not found", id)
	}
	return err
}

func postView(p *aggregate.Post) map[string]any {
	view := map[string]any{
		"post_id":    p.ID,
		"platform":   p.Platform,
		"content":    p.Content,
		"status":     string(p.Status),
		"hashtags":   p.Hashtags,
		"created_at": p.CreatedAt.UTC().Format(time.RFC3339),
	}
	if p.ImageURL != "" {
		view["image_url"] = p.ImageURL
	}
	if p.ScheduledAt != nil {
		view["scheduled_at"] = p.ScheduledAt.UTC().Format(time.RFC3339)
	}
	if p.PublishedAt != nil {
		view["published_at"] = p.PublishedAt.UTC().Format(time.RFC3339)
	}
	if strings.TrimSpace(p.Content) != "" {
		view["length"] = utf8.RuneCountInString(p.Content)
	}
	return view
}

func publicationViews(pubs []aggregate.Publication) []any {
	out := make([]any, 0, len(pubs))
	for _, p := range pubs {
		out = append(out, map[string]any{
			"platform":     p.Platform,
			"external_ref": p.ExternalRef,
			"published_at": p.PublishedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}
