package dispatcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/garyjia/expense-approval/internal/domain/event"
)

// Dispatcher routes committed workflow events to registered handlers
type Dispatcher interface {
	// SubscribeNamed registers a handler with a name for debugging
	SubscribeNamed(eventType event.Type, name string, handler Handler)

	// SubscribeAll registers the same named handler for every event type
	SubscribeAll(name string, handler Handler)

	// Publish dispatches a batch asynchronously, preserving order per handler.
	// Handlers outlive the caller's request: they get ctx values but not its cancellation
	Publish(ctx context.Context, events []*event.Event)

	// ListHandlers returns registered handlers for an event type
	ListHandlers(eventType event.Type) []HandlerInfo

	// Close shuts down the dispatcher and waits for async handlers
	Close() error
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type eventDispatcher struct {
	// mu guards handlers and closed; Publish holds it while adding to wg
	mu       sync.RWMutex
	handlers map[event.Type][]HandlerInfo
	closed   bool
	logger   Logger

	wg sync.WaitGroup
}

// Option configures the dispatcher
type Option func(*eventDispatcher)

// WithLogger sets a logger for the dispatcher
func WithLogger(logger Logger) Option {
	return func(d *eventDispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a new event dispatcher
func NewDispatcher(opts ...Option) Dispatcher {
	d := &eventDispatcher{
		handlers: make(map[event.Type][]HandlerInfo),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// SubscribeNamed registers a handler with a specific name
func (d *eventDispatcher) SubscribeNamed(eventType event.Type, name string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers[eventType] = append(d.handlers[eventType], HandlerInfo{
		Name:      name,
		EventType: eventType,
		Handler:   handler,
	})

	if d.logger != nil {
		d.logger.Info("Handler registered",
			"event_type", eventType,
			"handler_name", name,
		)
	}
}

// SubscribeAll registers handler under name for every known event type
func (d *eventDispatcher) SubscribeAll(name string, handler Handler) {
	for _, t := range event.AllTypes() {
		d.SubscribeNamed(t, name, handler)
	}
}

// Publish runs one goroutine per handler; each handler sees the batch in order
func (d *eventDispatcher) Publish(ctx context.Context, events []*event.Event) {
	if len(events) == 0 {
		return
	}

	ctx = context.WithoutCancel(ctx)

	// one goroutine per handler name keeps, e.g., submitted ahead of approved for that handler
	type delivery struct {
		info HandlerInfo
		evt  *event.Event
	}

	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		if d.logger != nil {
			d.logger.Error("Cannot dispatch events, dispatcher is closed",
				"event_count", len(events),
				"expense_id", events[0].ExpenseID,
			)
		}
		return
	}

	var order []string
	queues := make(map[string][]delivery)
	for _, evt := range events {
		for _, info := range d.handlers[evt.Type] {
			if _, ok := queues[info.Name]; !ok {
				order = append(order, info.Name)
			}
			queues[info.Name] = append(queues[info.Name], delivery{info: info, evt: evt})
		}
	}
	d.wg.Add(len(order))
	d.mu.RUnlock()

	for _, name := range order {
		go func(queue []delivery) {
			defer d.wg.Done()
			for _, dl := range queue {
				if err := d.safeExecute(ctx, dl.evt, dl.info); err != nil && d.logger != nil {
					d.logger.Error("Async handler error",
						"event_type", dl.evt.Type,
						"event_id", dl.evt.ID,
						"handler_name", dl.info.Name,
						"error", err,
					)
				}
			}
		}(queues[name])
	}
}

// ListHandlers returns registered handlers for an event type
func (d *eventDispatcher) ListHandlers(eventType event.Type) []HandlerInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()

	handlers := d.handlers[eventType]
	result := make([]HandlerInfo, len(handlers))
	for i, h := range handlers {
		result[i] = HandlerInfo{
			Name:        h.Name,
			EventType:   h.EventType,
			Description: h.Description,
		}
	}
	return result
}

// Close shuts down the dispatcher and waits for async handlers to complete
func (d *eventDispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return fmt.Errorf("dispatcher already closed")
	}
	d.closed = true
	d.mu.Unlock()

	if d.logger != nil {
		d.logger.Info("Closing dispatcher, waiting for async handlers")
	}

	d.wg.Wait()

	if d.logger != nil {
		d.logger.Info("Dispatcher closed")
	}
	return nil
}

// safeExecute runs a handler with panic recovery
func (d *eventDispatcher) safeExecute(ctx context.Context, evt *event.Event, info HandlerInfo) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
			if d.logger != nil {
				d.logger.Error("Handler panic recovered",
					"event_type", evt.Type,
					"event_id", evt.ID,
					"handler_name", info.Name,
					"panic", r,
				)
			}
		}
	}()

	return info.Handler(ctx, evt)
}
