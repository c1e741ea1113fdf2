// Package eventbus carries exchange lifecycle events to subscribers that are
// not on the request path: logging, metrics and the audit trail.
package eventbus

import (
	evbus "github.com/asaskevich/EventBus"

	"socialhub-server-go/internal/platform/logging"
)

// Bus pairs a synchronous bus with an async worker pool. A Bus is created
// explicitly and passed to its users.
type Bus struct {
	sync  evbus.Bus
	async *AsyncEventBus
}

// New creates a bus whose async side runs workers goroutines.
func New(workers int, logger *logging.Logger) *Bus {
	b := &Bus{
		sync:  evbus.New(),
		async: NewAsyncEventBus(workers, logger),
	}
	b.async.Start()
	return b
}

// Publish delivers to synchronous subscribers on the caller's goroutine.
func (b *Bus) Publish(topic string, args ...interface{}) {
	if b == nil {
		return
	}
	b.sync.Publish(topic, args...)
}

// PublishAsync queues delivery to async subscribers. Events are dropped when
// the queue is full.
func (b *Bus) PublishAsync(topic string, args ...interface{}) {
	if b == nil {
		return
	}
	b.async.PublishAsync(topic, args...)
}

func (b *Bus) Subscribe(topic string, fn interface{}) error {
	return b.sync.Subscribe(topic, fn)
}

func (b *Bus) SubscribeAsync(topic string, fn interface{}) error {
	return b.async.Subscribe(topic, fn)
}

func (b *Bus) Unsubscribe(topic string, fn interface{}) error {
	return b.sync.Unsubscribe(topic, fn)
}

// WaitAsync blocks until every queued async event has been handled.
func (b *Bus) WaitAsync() {
	b.async.WaitAsync()
}

// Shutdown drains the async queue and stops its workers.
func (b *Bus) Shutdown() {
	if b == nil {
		return
	}
	b.async.Stop()
}
