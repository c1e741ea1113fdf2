package infrastructure

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/bytedance/sonic"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"socialhub-server-go/internal/domain/social/aggregate"
	"socialhub-server-go/internal/domain/social/repository"
	"socialhub-server-go/internal/platform/errors"
	"socialhub-server-go/internal/platform/storage"
)

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) repository.PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *aggregate.Post) error {
	row, err := toRow(post)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "post.create", "failed to create post", err)
	}
	*post = *fromRow(row)
	return nil
}

func (r *postRepository) Get(ctx context.Context, ownerID string, id uint) (*aggregate.Post, error) {
	var row storage.Post
	err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&row).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "post.get", "failed to load post", err)
	}
	return fromRow(&row), nil
}

func (r *postRepository) List(ctx context.Context, ownerID string, filter aggregate.ListFilter) ([]aggregate.Post, error) {
	query := r.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.Platform != "" {
		query = query.Where("platform = ?", filter.Platform)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []storage.Post
	if err := query.Order("id DESC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "post.list", "failed to list posts", err)
	}
	return fromRows(rows), nil
}

func (r *postRepository) Update(ctx context.Context, post *aggregate.Post) error {
	tags, err := encodeTags(post.Hashtags)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).
		Model(&storage.Post{}).
		Where("id = ? AND owner_id = ?", post.ID, post.OwnerID).
		Updates(map[string]interface{}{
			"platform":     post.Platform,
			"content":      post.Content,
			"image_url":    post.ImageURL,
			"hashtags":     datatypes.JSON(tags),
			"status":       string(post.Status),
			"scheduled_at": utcPtr(post.ScheduledAt),
			"published_at": utcPtr(post.PublishedAt),
			"updated_at":   time.Now().UTC(),
		})
	if res.Error != nil {
		return errors.Wrap(errors.KindStorage, "post.update", "failed to update post", res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, ownerID string, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND owner_id = ?", id, ownerID).Delete(&storage.Post{})
		if res.Error != nil {
			return errors.Wrap(errors.KindStorage, "post.delete", "failed to delete post", res.Error)
		}
		if res.RowsAffected == 0 {
			return repository.ErrNotFound
		}
		if err := tx.Where("post_id = ?", id).Delete(&storage.Publication{}).Error; err != nil {
			return errors.Wrap(errors.KindStorage, "post.delete", "failed to delete publications", err)
		}
		return nil
	})
}

func (r *postRepository) MarkPublished(ctx context.Context, post *aggregate.Post, pubs []aggregate.Publication) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows := make([]storage.Publication, 0, len(pubs))
		for _, p := range pubs {
			rows = append(rows, storage.Publication{
				PostID:      post.ID,
				Platform:    p.Platform,
				ExternalRef: p.ExternalRef,
				PublishedAt: p.PublishedAt.UTC(),
			})
		}
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return errors.Wrap(errors.KindStorage, "post.publish", "failed to record publications", err)
			}
		}

		res := tx.Model(&storage.Post{}).
			Where("id = ? AND owner_id = ?", post.ID, post.OwnerID).
			Updates(map[string]interface{}{
				"status":       string(aggregate.StatusPublished),
				"published_at": utcPtr(post.PublishedAt),
				"updated_at":   time.Now().UTC(),
			})
		if res.Error != nil {
			return errors.Wrap(errors.KindStorage, "post.publish", "failed to mark post published", res.Error)
		}
		if res.RowsAffected == 0 {
			return repository.ErrNotFound
		}
		post.Status = aggregate.StatusPublished
		return nil
	})
}

func (r *postRepository) Publications(ctx context.Context, postID uint) ([]aggregate.Publication, error) {
	var rows []storage.Publication
	if err := r.db.WithContext(ctx).Where("post_id = ?", postID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "post.publications", "failed to list publications", err)
	}
	out := make([]aggregate.Publication, 0, len(rows))
	for _, row := range rows {
		out = append(out, aggregate.Publication{
			ID:          row.ID,
			PostID:      row.PostID,
			Platform:    row.Platform,
			ExternalRef: row.ExternalRef,
			PublishedAt: row.PublishedAt,
		})
	}
	return out, nil
}

func (r *postRepository) DueScheduled(ctx context.Context, now time.Time, limit int) ([]aggregate.Post, error) {
	query := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_at <= ?", string(aggregate.StatusScheduled), now.UTC()).
		Order("scheduled_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []storage.Post
	if err := query.Find(&rows).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "post.due", "failed to load scheduled posts", err)
	}
	return fromRows(rows), nil
}

func toRow(p *aggregate.Post) (*storage.Post, error) {
	tags, err := encodeTags(p.Hashtags)
	if err != nil {
		return nil, err
	}
	return &storage.Post{
		ID:          p.ID,
		OwnerID:     p.OwnerID,
		Platform:    p.Platform,
		Content:     p.Content,
		ImageURL:    p.ImageURL,
		Hashtags:    tags,
		Status:      string(p.Status),
		ScheduledAt: utcPtr(p.ScheduledAt),
		PublishedAt: utcPtr(p.PublishedAt),
	}, nil
}

func fromRow(row *storage.Post) *aggregate.Post {
	var tags []string
	if len(row.Hashtags) > 0 {
		_ = sonic.Unmarshal(row.Hashtags, &tags)
	}
	if tags == nil {
		tags = []string{}
	}
	return &aggregate.Post{
		ID:          row.ID,
		OwnerID:     row.OwnerID,
		Platform:    row.Platform,
		Content:     row.Content,
		ImageURL:    row.ImageURL,
		Hashtags:    tags,
		Status:      aggregate.Status(row.Status),
		ScheduledAt: row.ScheduledAt,
		PublishedAt: row.PublishedAt,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

func fromRows(rows []storage.Post) []aggregate.Post {
	out := make([]aggregate.Post, 0, len(rows))
	for i := range rows {
		out = append(out, *fromRow(&rows[i]))
	}
	return out
}

func encodeTags(tags []string) ([]byte, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := sonic.Marshal(tags)
	if err != nil {
		return nil, errors.Wrap(errors.KindSerialization, "post.hashtags", "failed to encode hashtags", err)
	}
	return data, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
