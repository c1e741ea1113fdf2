// Package session is the per-user conversation log: an append-only turn
// history with a bounded window handed to the model on every exchange.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"socialhub-server-go/internal/domain/chat/aggregate"
	"socialhub-server-go/internal/domain/chat/session/store"
	"socialhub-server-go/internal/platform/errors"
	"socialhub-server-go/internal/platform/logging"
)

// DefaultWindow is the number of most recent turns handed to the model.
const DefaultWindow = 20

type Session struct {
	store  store.Store
	window int
	logger *logging.Logger
	now    func() time.Time
}

func New(st store.Store, window int, logger *logging.Logger) *Session {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Session{
		store:  st,
		window: window,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Session) Window() int { return s.window }

// Append records a new turn and returns it with its generated id and timestamp.
func (s *Session) Append(ctx context.Context, userID string, role aggregate.Role, message string, calls []aggregate.FunctionCall) (aggregate.Turn, error) {
	if userID == "" {
		return aggregate.Turn{}, errors.New(errors.KindContext, "session.append", "user id is required")
	}
	turn := aggregate.Turn{
		ID:            uuid.NewString(),
		UserID:        userID,
		Role:          role,
		Message:       message,
		FunctionCalls: calls,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.store.Append(ctx, turn); err != nil {
		return aggregate.Turn{}, err
	}
	s.logger.DebugTag("SESSION", "appended %s turn for %s", role, userID)
	return turn, nil
}

// History returns the bounded window, oldest first.
func (s *Session) History(ctx context.Context, userID string) ([]aggregate.Turn, error) {
	return s.store.Recent(ctx, userID, s.window)
}

// Recent returns up to n turns, oldest first. Non-positive n falls back to the window.
func (s *Session) Recent(ctx context.Context, userID string, n int) ([]aggregate.Turn, error) {
	if n <= 0 {
		n = s.window
	}
	return s.store.Recent(ctx, userID, n)
}

// Clear bulk-deletes the user's history.
func (s *Session) Clear(ctx context.Context, userID string) (int, error) {
	removed, err := s.store.DeleteAll(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.logger.InfoTag("SESSION", "cleared %d turns for %s", removed, userID)
	return removed, nil
}

func (s *Session) Close(ctx context.Context) error {
	return s.store.Close(ctx)
}
