package social

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"socialhub-server-go/internal/domain/social/aggregate"
	"socialhub-server-go/internal/domain/social/repository"
	"socialhub-server-go/internal/platform/errors"
	"socialhub-server-go/internal/platform/logging"
)

// Publisher records the delivery of a post to one or more platforms and marks
// it published. Delivery itself is simulated: each platform gets a generated
// external reference.
type Publisher struct {
	posts  repository.PostRepository
	logger *logging.Logger
	now    func() time.Time
}

func NewPublisher(posts repository.PostRepository, logger *logging.Logger) *Publisher {
	return &Publisher{posts: posts, logger: logger, now: time.Now}
}

// Publish sends post to platforms, or to the post's own platform when none are given.
func (p *Publisher) Publish(ctx context.Context, post *aggregate.Post, platforms []string) ([]aggregate.Publication, error) {
	if post.Status == aggregate.StatusPublished {
		return nil, errors.New(errors.KindDomain, "post.publish", fmt.Sprintf("post %d is already published", post.ID))
	}
	if len(platforms) == 0 {
		platforms = []string{post.Platform}
	}

	now := p.now().UTC()
	seen := make(map[string]bool, len(platforms))
	pubs := make([]aggregate.Publication, 0, len(platforms))
	for _, raw := range platforms {
		platform, err := aggregate.NormalizePlatform(raw)
		if err != nil {
			return nil, err
		}
		if seen[platform] {
			continue
		}
		seen[platform] = true
		if limit := aggregate.ContentLimit(platform); len([]rune(post.Content)) > limit {
			return nil, errors.New(errors.KindDomain, "post.publish",
				fmt.Sprintf("content exceeds the %d character limit of %s", limit, platform))
		}
		pubs = append(pubs, aggregate.Publication{
			PostID:      post.ID,
			Platform:    platform,
			ExternalRef: fmt.Sprintf("%s-%s", platform, uuid.NewString()[:8]),
			PublishedAt: now,
		})
	}

	post.PublishedAt = &now
	if err := p.posts.MarkPublished(ctx, post, pubs); err != nil {
		return nil, err
	}
	p.logger.InfoTag("TOOLS", "post %d of %s published to %d platforms", post.ID, post.OwnerID, len(pubs))
	return pubs, nil
}

// Scheduler publishes scheduled posts once their time has come.
type Scheduler struct {
	posts     repository.PostRepository
	publisher *Publisher
	interval  time.Duration
	batch     int
	logger    *logging.Logger
	now       func() time.Time
}

func NewScheduler(posts repository.PostRepository, publisher *Publisher, interval time.Duration, logger *logging.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		posts:     posts,
		publisher: publisher,
		interval:  interval,
		batch:     50,
		logger:    logger,
		now:       time.Now,
	}
}

// Run publishes due posts every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.PublishDue(ctx); err != nil {
				s.logger.WarnTag("TOOLS", "scheduled publish pass failed: %v", err)
			}
		}
	}
}

// PublishDue publishes every post whose scheduled time has passed and returns
// how many were published. A failing post is logged and skipped.
func (s *Scheduler) PublishDue(ctx context.Context) (int, error) {
	due, err := s.posts.DueScheduled(ctx, s.now(), s.batch)
	if err != nil {
		return 0, err
	}

	published := 0
	for i := range due {
		post := due[i]
		if _, err := s.publisher.Publish(ctx, &post, nil); err != nil {
			s.logger.WarnTag("TOOLS", "scheduled post %d of %s not published: %v", post.ID, post.OwnerID, err)
			continue
		}
		published++
	}
	return published, nil
}
