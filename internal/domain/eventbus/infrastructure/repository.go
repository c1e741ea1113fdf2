package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"gorm.io/gorm"

	"socialhub-server-go/internal/domain/eventbus/repository"
	"socialhub-server-go/internal/platform/errors"
	"socialhub-server-go/internal/platform/storage"
)

type eventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) repository.EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Store(ctx context.Context, event repository.Event) error {
	dataBytes, err := sonic.Marshal(event.Data)
	if err != nil {
		return errors.Wrap(errors.KindSerialization, "event.store.marshal", "failed to marshal event data", err)
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	row := &storage.ExchangeEvent{
		EventType:      event.EventType,
		ConversationID: event.ConversationID,
		UserID:         event.UserID,
		Data:           dataBytes,
		CreatedAt:      createdAt,
	}

	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "event.store.create", "failed to store event", err)
	}
	return nil
}

func (r *eventRepository) FindByConversation(ctx context.Context, conversationID string) ([]repository.Event, error) {
	var rows []storage.ExchangeEvent
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "event.find.conversation", "failed to find events by conversation", err)
	}
	return convertEvents(rows)
}

func (r *eventRepository) FindByUserID(ctx context.Context, userID string, limit int) ([]repository.Event, error) {
	var rows []storage.ExchangeEvent
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "event.find.user", "failed to find events by user ID", err)
	}
	return convertEvents(rows)
}

func (r *eventRepository) DeleteOldEvents(ctx context.Context, beforeTime time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ?", beforeTime).
		Delete(&storage.ExchangeEvent{})
	if res.Error != nil {
		return 0, errors.Wrap(errors.KindStorage, "event.delete.old", "failed to delete old events", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *eventRepository) GetEventStats(ctx context.Context) (map[string]int64, error) {
	var stats []struct {
		EventType string
		Count     int64
	}

	if err := r.db.WithContext(ctx).
		Model(&storage.ExchangeEvent{}).
		Select("event_type, count(*) as count").
		Group("event_type").
		Scan(&stats).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "event.stats", "failed to get event stats", err)
	}

	result := make(map[string]int64, len(stats))
	for _, stat := range stats {
		result[stat.EventType] = stat.Count
	}
	return result, nil
}

func convertEvents(rows []storage.ExchangeEvent) ([]repository.Event, error) {
	events := make([]repository.Event, len(rows))
	for i, row := range rows {
		var data interface{}
		if len(row.Data) > 0 {
			if err := sonic.Unmarshal(row.Data, &data); err != nil {
				return nil, errors.Wrap(errors.KindSerialization, "event.convert.unmarshal", "failed to unmarshal event data", err)
			}
		}
		events[i] = repository.Event{
			ID:             fmt.Sprintf("%d", row.ID),
			EventType:      row.EventType,
			ConversationID: row.ConversationID,
			UserID:         row.UserID,
			Data:           data,
			CreatedAt:      row.CreatedAt,
		}
	}
	return events, nil
}
