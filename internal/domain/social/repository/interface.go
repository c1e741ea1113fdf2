package repository

import (
	"context"
	"errors"
	"time"

	"socialhub-server-go/internal/domain/social/aggregate"
)

// ErrNotFound is returned when a post does not exist or belongs to another owner.
var ErrNotFound = errors.New("post not found")

// PostRepository persists posts. Every read and write is scoped to an owner.
type PostRepository interface {
	Create(ctx context.Context, post *aggregate.Post) error
	Get(ctx context.Context, ownerID string, id uint) (*aggregate.Post, error)
	List(ctx context.Context, ownerID string, filter aggregate.ListFilter) ([]aggregate.Post, error)
	Update(ctx context.Context, post *aggregate.Post) error
	Delete(ctx context.Context, ownerID string, id uint) error

	// MarkPublished stores the publications and flips the post to published atomically.
	MarkPublished(ctx context.Context, post *aggregate.Post, pubs []aggregate.Publication) error
	Publications(ctx context.Context, postID uint) ([]aggregate.Publication, error)

	// DueScheduled returns scheduled posts of every owner whose time is at or before now.
	DueScheduled(ctx context.Context, now time.Time, limit int) ([]aggregate.Post, error)
}
