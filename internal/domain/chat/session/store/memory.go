package store

import (
	"context"
	"sync"

	"socialhub-server-go/internal/domain/chat/aggregate"
)

type memoryStore struct {
	mu    sync.RWMutex
	turns map[string][]aggregate.Turn
}

func NewMemory() Store {
	return &memoryStore{turns: make(map[string][]aggregate.Turn)}
}

func (s *memoryStore) Append(_ context.Context, turn aggregate.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns[turn.UserID] = append(s.turns[turn.UserID], cloneTurn(turn))
	return nil
}

func (s *memoryStore) Recent(_ context.Context, userID string, n int) ([]aggregate.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.turns[userID]
	if n <= 0 || len(all) == 0 {
		return []aggregate.Turn{}, nil
	}
	if n > len(all) {
		n = len(all)
	}
	out := make([]aggregate.Turn, 0, n)
	for _, t := range all[len(all)-n:] {
		out = append(out, cloneTurn(t))
	}
	return out, nil
}

func (s *memoryStore) Count(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns[userID]), nil
}

func (s *memoryStore) DeleteAll(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.turns[userID])
	delete(s.turns, userID)
	return n, nil
}

func (s *memoryStore) Close(context.Context) error {
	return nil
}

func cloneTurn(t aggregate.Turn) aggregate.Turn {
	if t.FunctionCalls != nil {
		calls := make([]aggregate.FunctionCall, len(t.FunctionCalls))
		copy(calls, t.FunctionCalls)
		t.FunctionCalls = calls
	}
	return t
}
