package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Event Dispatcher
// ============================================================================
// The dispatcher is the single entry point for remote events. It owns no state
// of its own: routing comes from the Registry, state lives in collaborators.
// Unknown events are normal (the remote protocol is larger than what we
// implement) and are logged, never returned as errors.
// ============================================================================

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	registry *Registry
	logger   *slog.Logger
}

// NewDispatcher constructs a dispatcher over a built registry.
func NewDispatcher(registry *Registry, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{registry: registry, logger: logger}
}

// HandleEvent invokes the handler bound to name. It returns the handler's error,
// or nil when no handler is registered.
func (d *Dispatcher) HandleEvent(ctx context.Context, src Source, name string, args Args) error {
	handler, ok := d.registry.Lookup(name)
	if !ok {
		d.logger.Debug("unhandled event", "event", name, "source", src.String(), "arguments", args)
		eventsTotal.WithLabelValues(unregisteredEventLabel, outcomeUnhandled).Inc()
		return nil
	}

	logger := d.logger.With("event", name, "event_id", uuid.NewString())
	logger.Debug("handled event", "source", src.String(), "arguments", args)

	start := time.Now()
	err := handler(ctx, src, Event{Name: name, Args: args})
	handlerDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	if err != nil {
		logger.Warn("event handler failed", "error", err)
		eventsTotal.WithLabelValues(name, outcomeFailed).Inc()
		return err
	}
	eventsTotal.WithLabelValues(name, outcomeHandled).Inc()
	return nil
}
