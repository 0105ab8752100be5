package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrNoHandler is returned when an event is emitted before any handler is registered.
var ErrNoHandler = errors.New("no event handler registered")

// InMemoryEventEmitter dispatches events synchronously to handlers kept in memory.
type InMemoryEventEmitter struct {
	mu       sync.RWMutex
	handlers []EventHandler
	logger   *slog.Logger
}

var _ EventEmitter = (*InMemoryEventEmitter)(nil)

// NewInMemoryEventEmitter creates an emitter without handlers.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryEventEmitter{
		logger: logger.With("component", "event_emitter"),
	}
}

// RegisterHandler adds a handler that receives every subsequent event.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler) {
	e.mu.Lock()
	e.handlers = append(e.handlers, handler)
	count := len(e.handlers)
	e.mu.Unlock()

	e.logger.Debug("registered event handler", "handler_count", count)
}

// EmitEvent hands event to every registered handler in registration order.
// All handlers run even when one fails; the first error is returned.
// Emitting with no handlers registered returns ErrNoHandler, since a dataset
// request nobody acts on would leave its client waiting forever.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *DatasetRequestEvent) error {
	e.mu.RLock()
	handlers := append([]EventHandler(nil), e.handlers...)
	e.mu.RUnlock()

	log := e.logger.With("event_id", event.ID, "event_type", event.Type)
	if len(handlers) == 0 {
		log.Warn("no handlers registered for event")
		return ErrNoHandler
	}

	log.Debug("emitting event", "handler_count", len(handlers))

	var firstErr error
	for i, handler := range handlers {
		if err := handler.HandleEvent(ctx, event); err != nil {
			log.Error("handler failed to process event", "handler_index", i, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
