package storage

import (
	"time"

	"gorm.io/datatypes"
)

// ConversationTurn is one row of a user's append-only conversation log.
type ConversationTurn struct {
	ID            uint           `gorm:"primaryKey"`
	TurnID        string         `gorm:"type:varchar(64);uniqueIndex;not null"`
	UserID        string         `gorm:"type:varchar(255);index:idx_turns_user_created,priority:1;not null"`
	Role          string         `gorm:"type:varchar(16);not null"`
	Message       string         `gorm:"type:text"`
	FunctionCalls datatypes.JSON `gorm:"type:json"`
	CreatedAt     time.Time      `gorm:"index:idx_turns_user_created,priority:2;not null"`
}

func (ConversationTurn) TableName() string { return "conversation_turns" }

type Post struct {
	ID          uint           `gorm:"primaryKey"`
	OwnerID     string         `gorm:"type:varchar(255);index;not null"`
	Platform    string         `gorm:"type:varchar(64);not null"`
	Content     string         `gorm:"type:text;not null"`
	ImageURL    string         `gorm:"type:text"`
	Hashtags    datatypes.JSON `gorm:"type:json"`
	Status      string         `gorm:"type:varchar(32);index;not null"`
	ScheduledAt *time.Time
	PublishedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Post) TableName() string { return "posts" }

type Publication struct {
	ID          uint      `gorm:"primaryKey"`
	PostID      uint      `gorm:"index;not null"`
	Platform    string    `gorm:"type:varchar(64);not null"`
	ExternalRef string    `gorm:"type:varchar(128)"`
	PublishedAt time.Time `gorm:"not null"`
}

func (Publication) TableName() string { return "publications" }

// ExchangeEvent is the audit trail of exchange lifecycle events.
type ExchangeEvent struct {
	ID             uint           `gorm:"primaryKey"`
	EventType      string         `gorm:"type:varchar(64);index;not null"`
	ConversationID string         `gorm:"type:varchar(64);index"`
	UserID         string         `gorm:"type:varchar(255);index"`
	Data           datatypes.JSON `gorm:"type:json"`
	CreatedAt      time.Time      `gorm:"index"`
}

func (ExchangeEvent) TableName() string { return "exchange_events" }
