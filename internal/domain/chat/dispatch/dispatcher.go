// Package dispatch routes model tool calls to their handlers. A call never
// fails the exchange: every failure is returned as an {"error": ...} result.
package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"time"

	"socialhub-server-go/internal/platform/logging"
)

// Handler executes one tool call on behalf of actingUser.
type Handler func(ctx context.Context, args map[string]any, actingUser string) (any, error)

// Observer is notified after every call. Used for metrics.
type Observer func(name string, ok bool, elapsed time.Duration)

type Dispatcher struct {
	handlers map[string]Handler
	logger   *logging.Logger
	observe  Observer
}

func New(handlers map[string]Handler, logger *logging.Logger) *Dispatcher {
	copied := make(map[string]Handler, len(handlers))
	for name, h := range handlers {
		copied[name] = h
	}
	return &Dispatcher{handlers: copied, logger: logger}
}

// WithObserver sets the post-call hook.
func (d *Dispatcher) WithObserver(o Observer) *Dispatcher {
	d.observe = o
	return d
}

// ErrorResult is the shape returned to the model for any failed call.
func ErrorResult(message string) map[string]any {
	return map[string]any{"error": message}
}

// IsErrorResult reports whether result is an ErrorResult.
func IsErrorResult(result any) bool {
	m, ok := result.(map[string]any)
	if !ok {
		return false
	}
	_, has := m["error"]
	return has && len(m) == 1
}

func (d *Dispatcher) Has(name string) bool {
	_, ok := d.handlers[name]
	return ok
}

// Missing returns the names in want that have no handler, sorted.
func (d *Dispatcher) Missing(want []string) []string {
	var out []string
	for _, name := range want {
		if !d.Has(name) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Execute runs the named handler. Unknown names, handler errors and panics all
// become ErrorResult values.
func (d *Dispatcher) Execute(ctx context.Context, name string, args map[string]any, actingUser string) (result any) {
	start := time.Now()
	handler, ok := d.handlers[name]
	if !ok {
		d.logger.WarnTag("TOOLS", "unknown function requested: %s", name)
		d.record(name, false, start)
		return ErrorResult(fmt.Sprintf("Unknown function: %s", name))
	}
	if args == nil {
		args = map[string]any{}
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.ErrorTag("TOOLS", "%s panicked: %v\n%s", name, r, debug.Stack())
			d.record(name, false, start)
			result = ErrorResult(fmt.Sprintf("%s failed: %v", name, r))
		}
	}()

	out, err := handler(ctx, args, actingUser)
	if err != nil {
		d.logger.WarnTag("TOOLS", "%s failed for %s: %v", name, actingUser, err)
		d.record(name, false, start)
		return ErrorResult(err.Error())
	}
	d.logger.InfoTag("TOOLS", "%s ok for %s in %s", name, actingUser, time.Since(start).Round(time.Millisecond))
	d.record(name, true, start)
	return out
}

func (d *Dispatcher) record(name string, ok bool, start time.Time) {
	if d.observe != nil {
		d.observe(name, ok, time.Since(start))
	}
}
