package events

import (
	"context"
	"fmt"

	"github.com/openswap-labs/swapsync/internal/logger"
)

// HandlerFunc processes one decoded event. Handlers must be idempotent:
// the same event can be delivered again after a crash or during an
// unprocessed-event replay.
type HandlerFunc func(ctx context.Context, evt *DecodedEvent) error

// Dispatcher routes decoded events to their registered handlers by event name.
type Dispatcher struct {
	log      *logger.Logger
	handlers map[string]HandlerFunc
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher(log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		log:      log,
		handlers: make(map[string]HandlerFunc),
	}
}

// Register binds a handler to an event name. Registering the same name twice
// panics, since it signals a wiring bug.
func (d *Dispatcher) Register(name string, fn HandlerFunc) {
	if _, ok := d.handlers[name]; ok {
		panic(fmt.Sprintf("handler for %s already registered", name))
	}

	d.handlers[name] = fn
}

// Dispatch routes one event to its handler. Events without a registered
// handler are logged and dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, evt *DecodedEvent) error {
	fn, ok := d.handlers[evt.Payload.Name()]
	if !ok {
		d.log.Warnf("no handler registered for event %s from %s, skipping",
			evt.Payload.Name(), evt.Address)

		return nil
	}

	if err := fn(ctx, evt); err != nil {
		return fmt.Errorf("handler for %s failed (tx %s, log %d): %w",
			evt.Payload.Name(), evt.TxHash, evt.LogIndex, err)
	}

	return nil
}
