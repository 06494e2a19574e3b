// Package dispatcher routes world events to a fixed set of handlers
// registered against the typed event enum. The host is single-threaded and
// cooperative, so all dispatch is synchronous; handlers only enqueue work
// or rebuild configuration, never perform replacement transactions inline.
package dispatcher

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/trainworks/relink/pkg/core"
)

// HandlerFunc processes one event.
type HandlerFunc func(core.Event) error

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	logged bool
}

// Logged adds debug logging around the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	handlers map[core.EventType]HandlerFunc
	logger   Logger

	processed metric.Int64Counter
	failed    metric.Int64Counter
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[core.EventType]HandlerFunc),
		logger:   logger,
	}

	m := meter()
	var err error

	d.processed, err = m.Int64Counter(
		"dispatcher.events.processed",
		metric.WithDescription("Total events processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.failed, err = m.Int64Counter(
		"dispatcher.events.failed",
		metric.WithDescription("Total events whose handler returned an error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given event type with optional
// configuration. Registering again replaces the previous handler.
func (d *Dispatcher) Register(t core.EventType, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h
	if cfg.logged {
		handler = d.withLogging(t, handler)
	}

	d.handlers[t] = handler
}

// Dispatch routes an event to its registered handler. Events without a
// handler are ignored: the world raises more event types than this system
// reacts to.
func (d *Dispatcher) Dispatch(e core.Event) error {
	h, ok := d.handlers[e.Type]
	if !ok {
		return nil
	}

	err := h(e)

	attrs := metric.WithAttributes(attribute.String("event", e.Type.String()))
	d.processed.Add(context.Background(), 1, attrs)
	if err != nil {
		d.failed.Add(context.Background(), 1, attrs)
	}
	return err
}

// HasHandler returns true if a handler is registered for the event type.
func (d *Dispatcher) HasHandler(t core.EventType) bool {
	_, ok := d.handlers[t]
	return ok
}

func (d *Dispatcher) withLogging(t core.EventType, h HandlerFunc) HandlerFunc {
	return func(e core.Event) error {
		start := time.Now()
		d.logger.Debug("handling event", "event", t.String(), "train", e.Train, "unit", e.Unit)

		err := h(e)

		if err != nil {
			d.logger.Error("event failed", "event", t.String(), "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "event", t.String(), "duration", time.Since(start))
		}

		return err
	}
}
