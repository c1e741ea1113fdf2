package orchestrator

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// userLocks serializes exchanges per user. Entries are dropped when the last
// holder or waiter releases them.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	sem  *semaphore.Weighted
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*userLock)}
}

// acquire blocks until the user's lock is free or ctx is done.
func (l *userLocks) acquire(ctx context.Context, user string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.locks[user]
	if !ok {
		entry = &userLock{sem: semaphore.NewWeighted(1)}
		l.locks[user] = entry
	}
	entry.refs++
	l.mu.Unlock()

	if err := entry.sem.Acquire(ctx, 1); err != nil {
		l.unref(user, entry)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			entry.sem.Release(1)
			l.unref(user, entry)
		})
	}, nil
}

func (l *userLocks) unref(user string, entry *userLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, user)
	}
}

func (l *userLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
