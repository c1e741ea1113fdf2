package eventbus

import (
	"sync"

	evbus "github.com/asaskevich/EventBus"

	"socialhub-server-go/internal/platform/logging"
)

// AsyncEventBus delivers events on a fixed pool of workers.
type AsyncEventBus struct {
	bus       evbus.Bus
	workerNum int
	workChan  chan asyncEvent
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	pending   sync.WaitGroup
	logger    *logging.Logger
}

type asyncEvent struct {
	topic string
	args  []interface{}
}

func NewAsyncEventBus(workerNum int, logger *logging.Logger) *AsyncEventBus {
	if workerNum <= 0 {
		workerNum = 4
	}

	return &AsyncEventBus{
		bus:       evbus.New(),
		workerNum: workerNum,
		workChan:  make(chan asyncEvent, 1000),
		stopChan:  make(chan struct{}),
		logger:    logger,
	}
}

func (aeb *AsyncEventBus) Start() {
	for i := 0; i < aeb.workerNum; i++ {
		aeb.wg.Add(1)
		go aeb.worker()
	}
}

// Stop handles what is already queued, then stops the workers.
func (aeb *AsyncEventBus) Stop() {
	aeb.stopOnce.Do(func() {
		aeb.pending.Wait()
		close(aeb.stopChan)
		aeb.wg.Wait()
	})
}

func (aeb *AsyncEventBus) worker() {
	defer aeb.wg.Done()

	for {
		select {
		case <-aeb.stopChan:
			return
		case event := <-aeb.workChan:
			aeb.deliver(event)
		}
	}
}

func (aeb *AsyncEventBus) deliver(event asyncEvent) {
	defer aeb.pending.Done()
	defer func() {
		if r := recover(); r != nil {
			aeb.logger.ErrorTag("EVENTS", "subscriber of %s panicked: %v", event.topic, r)
		}
	}()
	aeb.bus.Publish(event.topic, event.args...)
}

func (aeb *AsyncEventBus) PublishAsync(topic string, args ...interface{}) {
	select {
	case <-aeb.stopChan:
		return
	default:
	}

	aeb.pending.Add(1)
	select {
	case aeb.workChan <- asyncEvent{topic: topic, args: args}:
	default:
		aeb.pending.Done()
		aeb.logger.WarnTag("EVENTS", "async queue full, dropped %s", topic)
	}
}

func (aeb *AsyncEventBus) Subscribe(topic string, fn interface{}) error {
	return aeb.bus.Subscribe(topic, fn)
}

func (aeb *AsyncEventBus) Unsubscribe(topic string, handler interface{}) error {
	return aeb.bus.Unsubscribe(topic, handler)
}

func (aeb *AsyncEventBus) HasCallback(topic string) bool {
	return aeb.bus.HasCallback(topic)
}

// WaitAsync blocks until the queue is empty. Used by tests and shutdown.
func (aeb *AsyncEventBus) WaitAsync() {
	aeb.pending.Wait()
}
