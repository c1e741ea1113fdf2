package store

import (
	"context"

	"github.com/bytedance/sonic"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"socialhub-server-go/internal/domain/chat/aggregate"
	"socialhub-server-go/internal/platform/errors"
	"socialhub-server-go/internal/platform/storage"
)

type sqliteStore struct {
	db *gorm.DB
}

// NewSQLite expects the conversation_turns migration to have been applied.
func NewSQLite(db *gorm.DB) Store {
	return &sqliteStore{db: db}
}

func (s *sqliteStore) Append(ctx context.Context, turn aggregate.Turn) error {
	var calls datatypes.JSON
	if len(turn.FunctionCalls) > 0 {
		data, err := sonic.Marshal(turn.FunctionCalls)
		if err != nil {
			return errors.Wrap(errors.KindSerialization, "session.append", "failed to encode function calls", err)
		}
		calls = datatypes.JSON(data)
	}

	row := storage.ConversationTurn{
		TurnID:        turn.ID,
		UserID:        turn.UserID,
		Role:          string(turn.Role),
		Message:       turn.Message,
		FunctionCalls: calls,
		CreatedAt:     turn.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "session.append", "failed to save turn", err)
	}
	return nil
}

func (s *sqliteStore) Recent(ctx context.Context, userID string, n int) ([]aggregate.Turn, error) {
	if n <= 0 {
		return []aggregate.Turn{}, nil
	}

	var rows []storage.ConversationTurn
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(n).
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "session.recent", "failed to load turns", err)
	}

	turns := make([]aggregate.Turn, len(rows))
	for i, row := range rows {
		turn, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		turns[len(rows)-1-i] = turn
	}
	return turns, nil
}

func (s *sqliteStore) Count(ctx context.Context, userID string) (int, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&storage.ConversationTurn{}).
		Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, errors.Wrap(errors.KindStorage, "session.count", "failed to count turns", err)
	}
	return int(count), nil
}

func (s *sqliteStore) DeleteAll(ctx context.Context, userID string) (int, error) {
	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ?", userID).Delete(&storage.ConversationTurn{})
		removed = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, errors.Wrap(errors.KindStorage, "session.delete_all", "failed to delete turns", err)
	}
	return int(removed), nil
}

func (s *sqliteStore) Close(context.Context) error {
	return nil
}

func fromRow(row storage.ConversationTurn) (aggregate.Turn, error) {
	turn := aggregate.Turn{
		ID:        row.TurnID,
		UserID:    row.UserID,
		Role:      aggregate.Role(row.Role),
		Message:   row.Message,
		CreatedAt: row.CreatedAt,
	}
	if len(row.FunctionCalls) > 0 {
		if err := sonic.Unmarshal(row.FunctionCalls, &turn.FunctionCalls); err != nil {
			return aggregate.Turn{}, errors.Wrap(errors.KindSerialization, "session.decode", "failed to decode function calls", err)
		}
	}
	return turn, nil
}
