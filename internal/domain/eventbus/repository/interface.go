package repository

import (
	"context"
	"time"
)

// EventRepository persists exchange events for auditing.
type EventRepository interface {
	Store(ctx context.Context, event Event) error
	FindByConversation(ctx context.Context, conversationID string) ([]Event, error)
	FindByUserID(ctx context.Context, userID string, limit int) ([]Event, error)
	// DeleteOldEvents removes events created before beforeTime and returns how many were removed.
	DeleteOldEvents(ctx context.Context, beforeTime time.Time) (int64, error)
	// GetEventStats counts stored events per type.
	GetEventStats(ctx context.Context) (map[string]int64, error)
}

type Event struct {
	ID             string
	EventType      string
	ConversationID string
	UserID         string
	Data           interface{}
	CreatedAt      time.Time
}
