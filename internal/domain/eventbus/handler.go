package eventbus

import (
	"context"
	"time"

	"socialhub-server-go/internal/domain/eventbus/repository"
	"socialhub-server-go/internal/platform/logging"
)

// EventHandler receives exchange events from the async side of the bus.
type EventHandler interface {
	Handle(eventType string, data ExchangeEventData)
}

// Register subscribes every handler to every exchange topic.
func Register(bus *Bus, handlers ...EventHandler) error {
	for _, h := range handlers {
		for _, topic := range Topics {
			topic, h := topic, h
			if err := bus.SubscribeAsync(topic, func(data ExchangeEventData) {
				h.Handle(topic, data)
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

// LoggingHandler writes one log line per event.
type LoggingHandler struct {
	logger *logging.Logger
}

func NewLoggingHandler(logger *logging.Logger) *LoggingHandler {
	return &LoggingHandler{logger: logger}
}

func (h *LoggingHandler) Handle(eventType string, data ExchangeEventData) {
	switch eventType {
	case EventExchangeStarted:
		h.logger.DebugTag("EVENTS", "%s started for %s on %s", data.ConversationID, data.UserID, data.Provider)
	case EventExchangeToolCall:
		h.logger.DebugTag("EVENTS", "%s hop %d called %s (failed=%v)", data.ConversationID, data.Hop, data.Tool, data.ToolFailed)
	case EventExchangeCompleted:
		h.logger.InfoTag("EVENTS", "%s completed in %d hops, %s, tokens in=%d out=%d",
			data.ConversationID, data.Hop, data.Elapsed.Round(time.Millisecond), data.InputTokens, data.OutputTokens)
	case EventExchangeFailed:
		h.logger.WarnTag("EVENTS", "%s failed: %s", data.ConversationID, data.Error)
	}
}

// AuditHandler stores every event through an EventRepository.
type AuditHandler struct {
	repo    repository.EventRepository
	logger  *logging.Logger
	timeout time.Duration
}

func NewAuditHandler(repo repository.EventRepository, logger *logging.Logger) *AuditHandler {
	return &AuditHandler{repo: repo, logger: logger, timeout: 5 * time.Second}
}

func (h *AuditHandler) Handle(eventType string, data ExchangeEventData) {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	err := h.repo.Store(ctx, repository.Event{
		EventType:      eventType,
		ConversationID: data.ConversationID,
		UserID:         data.UserID,
		Data:           data,
		CreatedAt:      data.At,
	})
	if err != nil {
		h.logger.WarnTag("EVENTS", "audit of %s failed: %v", eventType, err)
	}
}
