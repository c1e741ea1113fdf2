package ws

import (
	"sync"
	"sync/atomic"

	"socialhub-server-go/internal/platform/observability"
)

// Hub tracks the active websocket sessions.
type Hub struct {
	sessions sync.Map // map[string]*Session
	count    atomic.Int64
	metrics  *observability.Metrics
}

func NewHub(metrics *observability.Metrics) *Hub {
	return &Hub{metrics: metrics}
}

func (h *Hub) Register(session *Session) {
	if session == nil {
		return
	}
	if _, loaded := h.sessions.LoadOrStore(session.ID(), session); !loaded {
		h.metrics.SetWebsocketSessions(int(h.count.Add(1)))
	}
}

func (h *Hub) Unregister(id string) {
	if id == "" {
		return
	}
	if _, loaded := h.sessions.LoadAndDelete(id); loaded {
		h.metrics.SetWebsocketSessions(int(h.count.Add(-1)))
	}
}

// CloseAll terminates all active sessions.
func (h *Hub) CloseAll(reason error) {
	if reason == nil {
		reason = ErrSessionShutdown
	}

	h.sessions.Range(func(key, value any) bool {
		if session, ok := value.(*Session); ok {
			session.Close(reason)
		}
		h.Unregister(key.(string))
		return true
	})
}

// Count reports the number of open sessions.
func (h *Hub) Count() int {
	return int(h.count.Load())
}
