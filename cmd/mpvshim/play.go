package main

import (
	"context"
	"errors"
	"fmt"
)

// handlePlay decodes a "Play" event.
//
// Without a loaded video there is no queue to insert into, so every request is
// treated as PlayNow.
func (h *Commands) handlePlay(ctx context.Context, src Source, ev Event) error {
	mode := PlayMode(ev.Args.StringOr("PlayCommand", ""))
	current := h.c.Player.CurrentVideo()
	if current == nil {
		mode = PlayNow
	}

	switch mode {
	case PlayNow:
		return h.playNow(ctx, src, h.playRequest(ev.Args, mode))

	case PlayLast, PlayNext:
		ids := ev.Args.StringList("ItemIds")
		if current.Playlist == nil {
			return errors.New("play: current video has no playlist")
		}
		if err := current.Playlist.InsertItems(ids, mode == PlayLast); err != nil {
			return fmt.Errorf("play: insert items: %w", err)
		}
		h.logger.Debug("queued items", "mode", mode, "items", ids)
		if err := h.c.Player.UpdateVisibility(); err != nil {
			return fmt.Errorf("play: update visibility: %w", err)
		}
		return nil

	default:
		h.logger.Debug("ignoring play command", "play_command", string(mode))
		return nil
	}
}

func (h *Commands) playNow(ctx context.Context, src Source, req PlayRequest) error {
	video, err := h.c.Loader.Load(src, req)
	if err != nil {
		return fmt.Errorf("play: load media: %w", err)
	}
	if video == nil {
		h.logger.Info("nothing to play", "items", req.ItemIDs)
		return nil
	}

	if h.c.PreMedia != nil {
		if err := h.c.PreMedia(ctx); err != nil {
			h.logger.Warn("pre-media command failed", "error", err)
		}
	}

	offset := req.Offset()
	h.logger.Debug("play now", "item", video.ItemID, "url", video.URL, "offset", offset)
	if err := h.c.Player.Play(video, offset); err != nil {
		return fmt.Errorf("play: %w", err)
	}
	if err := h.c.Timeline.SendTimeline(); err != nil {
		return fmt.Errorf("play: send timeline: %w", err)
	}
	return nil
}

// playRequest builds a PlayRequest. Malformed optional fields are dropped.
func (h *Commands) playRequest(args Args, mode PlayMode) PlayRequest {
	req := PlayRequest{
		ItemIDs:       args.StringList("ItemIds"),
		UserID:        args.StringOr("ControllingUserId", ""),
		MediaSourceID: args.StringOr("MediaSourceId", ""),
		Mode:          mode,
	}

	if _, ok := args.Get("StartPositionTicks"); ok {
		if ticks, err := args.Float("StartPositionTicks"); err != nil {
			h.logger.Warn("ignoring start position", "error", err)
		} else {
			req.StartTicks = &ticks
		}
	}

	var err error
	if req.AudioIndex, err = args.OptionalInt("AudioStreamIndex"); err != nil {
		h.logger.Warn("ignoring audio stream index", "error", err)
	}
	if req.SubtitleIndex, err = args.OptionalInt("SubtitleStreamIndex"); err != nil {
		h.logger.Warn("ignoring subtitle stream index", "error", err)
	}
	return req
}
