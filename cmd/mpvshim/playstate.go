package main

import (
	"context"
	"errors"
	"fmt"
)

// handlePlaystate decodes a "Playstate" event's Command.
func (h *Commands) handlePlaystate(_ context.Context, _ Source, ev Event) error {
	command, _ := ev.Args.String("Command")
	switch command {
	case "PlayPause":
		return h.c.Player.TogglePause()
	case "PreviousTrack":
		return h.c.Player.PlayPrev()
	case "NextTrack":
		return h.c.Player.PlayNext()
	case "Stop":
		return h.c.Player.Stop()
	case "Seek":
		ticks, err := ev.Args.Float("SeekPositionTicks")
		if err != nil {
			h.logger.Warn("ignoring seek", "error", err)
			return nil
		}
		return h.c.Player.Seek(ticksToSeconds(ticks))
	default:
		h.logger.Debug("ignoring playstate command", "command", command)
		return nil
	}
}

// handlePlayPause toggles pause and always publishes the timeline afterwards.
func (h *Commands) handlePlayPause(_ context.Context, _ Source, _ Event) error {
	var errs []error
	if err := h.c.Player.TogglePause(); err != nil {
		errs = append(errs, fmt.Errorf("toggle pause: %w", err))
	}
	if err := h.c.Timeline.SendTimeline(); err != nil {
		errs = append(errs, fmt.Errorf("send timeline: %w", err))
	}
	return errors.Join(errs...)
}
