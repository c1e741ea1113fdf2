package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialhub-server-go/internal/domain/eventbus/repository"
)

type recordingHandler struct {
	mu     sync.Mutex
	events []string
}

func (h *recordingHandler) Handle(eventType string, data ExchangeEventData) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, eventType+"/"+data.ConversationID)
}

func (h *recordingHandler) snapshot() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.events...)
}

func TestRegisterDeliversAsyncEvents(t *testing.T) {
	bus := New(2, nil)
	defer bus.Shutdown()

	h := &recordingHandler{}
	require.NoError(t, Register(bus, h))

	bus.PublishAsync(EventExchangeStarted, ExchangeEventData{ConversationID: "c1"})
	bus.PublishAsync(EventExchangeFailed, ExchangeEventData{ConversationID: "c2"})
	bus.WaitAsync()

	assert.ElementsMatch(t, []string{"exchange:started/c1", "exchange:failed/c2"}, h.snapshot())
}

func TestSyncPublish(t *testing.T) {
	bus := New(1, nil)
	defer bus.Shutdown()

	var got ExchangeEventData
	require.NoError(t, bus.Subscribe(EventExchangeCompleted, func(d ExchangeEventData) { got = d }))
	bus.Publish(EventExchangeCompleted, ExchangeEventData{ConversationID: "c9", Hop: 3})
	assert.Equal(t, 3, got.Hop)
}

func TestPanickingSubscriberDoesNotStopWorkers(t *testing.T) {
	bus := New(1, nil)
	defer bus.Shutdown()

	require.NoError(t, bus.SubscribeAsync(EventExchangeStarted, func(ExchangeEventData) { panic("boom") }))
	h := &recordingHandler{}
	require.NoError(t, Register(bus, h))

	bus.PublishAsync(EventExchangeStarted, ExchangeEventData{ConversationID: "a"})
	bus.PublishAsync(EventExchangeToolCall, ExchangeEventData{ConversationID: "b"})
	bus.WaitAsync()

	assert.Contains(t, h.snapshot(), "exchange:tool_call/b")
}

func TestNilBusIsNoop(t *testing.T) {
	var bus *Bus
	bus.Publish(EventExchangeStarted, ExchangeEventData{})
	bus.PublishAsync(EventExchangeStarted, ExchangeEventData{})
	bus.Shutdown()
}

type memoryRepo struct {
	mu      sync.Mutex
	stored  []repository.Event
	cutoffs []time.Time
}

func (m *memoryRepo) Store(_ context.Context, e repository.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stored = append(m.stored, e)
	return nil
}

func (m *memoryRepo) FindByConversation(context.Context, string) ([]repository.Event, error) {
	return nil, nil
}

func (m *memoryRepo) FindByUserID(context.Context, string, int) ([]repository.Event, error) {
	return nil, nil
}

func (m *memoryRepo) DeleteOldEvents(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cutoffs = append(m.cutoffs, before)
	kept := m.stored[:0]
	var removed int64
	for _, e := range m.stored {
		if e.CreatedAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	m.stored = kept
	return removed, nil
}

func (m *memoryRepo) GetEventStats(context.Context) (map[string]int64, error) { return nil, nil }

func TestAuditHandlerStoresEvents(t *testing.T) {
	repo := &memoryRepo{}
	bus := New(1, nil)
	defer bus.Shutdown()
	require.NoError(t, Register(bus, NewAuditHandler(repo, nil), NewLoggingHandler(nil)))

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	bus.PublishAsync(EventExchangeCompleted, ExchangeEventData{ConversationID: "c1", UserID: "u1", At: at})
	bus.WaitAsync()

	require.Len(t, repo.stored, 1)
	assert.Equal(t, EventExchangeCompleted, repo.stored[0].EventType)
	assert.Equal(t, "u1", repo.stored[0].UserID)
	assert.Equal(t, at, repo.stored[0].CreatedAt)
}

func TestRetentionPrunesOldEvents(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	repo := &memoryRepo{stored: []repository.Event{
		{EventType: EventExchangeStarted, CreatedAt: now.Add(-48 * time.Hour)},
		{EventType: EventExchangeCompleted, CreatedAt: now.Add(-time.Hour)},
	}}
	r := NewRetention(repo, 24*time.Hour, nil)
	r.now = func() time.Time { return now }

	removed, err := r.Prune(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)
	require.Len(t, repo.stored, 1)
	assert.Equal(t, EventExchangeCompleted, repo.stored[0].EventType)
	assert.Equal(t, now.Add(-24*time.Hour), repo.cutoffs[0])
}

func TestRetentionDisabled(t *testing.T) {
	repo := &memoryRepo{}
	removed, err := NewRetention(repo, 0, nil).Prune(context.Background())
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.Empty(t, repo.cutoffs)
}

func TestRetentionRunStopsWithContext(t *testing.T) {
	repo := &memoryRepo{}
	r := NewRetention(repo, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return len(repo.cutoffs) == 1
	}, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("retention loop did not stop")
	}
}
