package main

import (
	"context"
	"log/slog"
)

// ============================================================================
// Dispatch Loop
// ============================================================================
//
// All inbound events funnel through one goroutine so that each event is fully
// handled before the next one starts. Producers (the control socket, tests)
// never call the dispatcher directly.
//
// Reply semantics:
//   - Reply, if set, receives exactly one value: the handler error (nil on success)
//   - Reply must be buffered; the loop never blocks on it
//
// ============================================================================

// InboundEvent is an event queued for dispatch.
type InboundEvent struct {
	Source Source
	Event  Event
	Reply  chan<- error
}

// runDispatcher consumes inbound events until ctx is canceled or the channel is closed.
func runDispatcher(ctx context.Context, inbound <-chan InboundEvent, d *Dispatcher, logger *slog.Logger) {
	if d == nil {
		logger.Error("dispatcher is nil")
		return
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("dispatcher stopping (context canceled)")
			return

		case in, ok := <-inbound:
			if !ok {
				logger.Info("dispatcher stopping (inbound channel closed)")
				return
			}

			err := d.HandleEvent(ctx, in.Source, in.Event.Name, in.Event.Args)
			if in.Reply == nil {
				continue
			}
			select {
			case in.Reply <- err:
			default:
				logger.Warn("event reply channel not ready; dropping result", "event", in.Event.Name)
			}
		}
	}
}
