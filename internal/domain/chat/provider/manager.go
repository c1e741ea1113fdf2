package provider

import (
	"context"
	"fmt"
	"sync"

	"socialhub-server-go/internal/platform/logging"
)

// Builder constructs an adapter by backend name.
type Builder func(ctx context.Context, name string) (Adapter, error)

// lease counts the exchanges still running on an adapter. A retired adapter
// is closed when its last exchange releases it.
type lease struct {
	adapter Adapter
	refs    int
	retired bool
}

// Manager owns the active adapter. It replaces a process-wide singleton:
// callers receive the Manager explicitly and can swap the backend at runtime.
type Manager struct {
	mu     sync.Mutex
	active *lease
	build  Builder
	logger *logging.Logger
}

func NewManager(build Builder, logger *logging.Logger) *Manager {
	return &Manager{build: build, logger: logger}
}

// SetAdapter installs adapter and retires the previous one.
func (m *Manager) SetAdapter(adapter Adapter) {
	m.mu.Lock()
	old := m.active
	if old != nil && old.adapter == adapter {
		m.mu.Unlock()
		return
	}
	m.active = nil
	if adapter != nil {
		m.active = &lease{adapter: adapter}
	}
	closeNow := m.retire(old)
	m.mu.Unlock()

	if closeNow {
		m.close(old.adapter)
	}
}

// Current returns the active adapter or nil.
func (m *Manager) Current() Adapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil
	}
	return m.active.adapter
}

// Acquire returns the active adapter for one exchange. The adapter stays open
// until release is called, even if it is replaced in the meantime.
func (m *Manager) Acquire() (Adapter, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil, func() {}
	}
	l := m.active
	l.refs++

	var once sync.Once
	return l.adapter, func() {
		once.Do(func() { m.release(l) })
	}
}

func (m *Manager) release(l *lease) {
	m.mu.Lock()
	l.refs--
	closeNow := l.retired && l.refs == 0
	m.mu.Unlock()

	if closeNow {
		m.close(l.adapter)
	}
}

// retire marks l as replaced and reports whether it can be closed now.
// Callers hold m.mu.
func (m *Manager) retire(l *lease) bool {
	if l == nil {
		return false
	}
	l.retired = true
	return l.refs == 0
}

func (m *Manager) close(adapter Adapter) {
	if err := adapter.Close(); err != nil {
		m.logger.WarnTag("LLM", "closing %s adapter: %v", adapter.Name(), err)
	}
}

// Reconfigure builds the named backend and makes it current. In-flight
// exchanges keep the adapter they started with.
func (m *Manager) Reconfigure(ctx context.Context, name string) error {
	if m.build == nil {
		return fmt.Errorf("no adapter builder configured")
	}
	adapter, err := m.build(ctx, name)
	if err != nil {
		return err
	}
	m.SetAdapter(adapter)
	m.logger.InfoTag("LLM", "active provider switched to %s", adapter.Name())
	return nil
}

// Reset drops the active adapter. It is closed now, or by the last exchange
// still using it.
func (m *Manager) Reset() error {
	m.mu.Lock()
	old := m.active
	m.active = nil
	closeNow := m.retire(old)
	m.mu.Unlock()

	if closeNow {
		return old.adapter.Close()
	}
	return nil
}
