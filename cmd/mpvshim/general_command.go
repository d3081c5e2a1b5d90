package main

import (
	"context"
	"errors"
	"fmt"
)

// General command names.
const (
	cmdSetVolume              = "SetVolume"
	cmdSetAudioStreamIndex    = "SetAudioStreamIndex"
	cmdSetSubtitleStreamIndex = "SetSubtitleStreamIndex"
	cmdDisplayContent         = "DisplayContent"
	cmdGoToSettings           = "GoToSettings"
	cmdDisplayMessage         = "DisplayMessage"
	cmdSendString             = "SendString"
	cmdMute                   = "Mute"
	cmdUnmute                 = "Unmute"
	cmdTakeScreenshot         = "TakeScreenshot"
	cmdToggleFullscreen       = "ToggleFullscreen"
)

// handleGeneralCommand decodes the "GeneralCommand" envelope: Name picks the
// action, Arguments carries its parameters.
func (h *Commands) handleGeneralCommand(_ context.Context, src Source, ev Event) error {
	raw, hasName := ev.Args.Get("Name")
	args := ev.Args.Map("Arguments")

	// The remote's fullscreen button sends a command without a name.
	if !hasName {
		return h.c.Player.ToggleFullscreen()
	}
	name, ok := raw.AsString()
	if !ok {
		h.logger.Debug("ignoring general command with non-string name", "kind", raw.Kind().String())
		return nil
	}

	switch name {
	case cmdSetVolume:
		volume, err := args.Int("Volume")
		if err != nil {
			h.logger.Warn("ignoring SetVolume", "error", err)
			return nil
		}
		// Remotes repeat volume notifications; only forward real changes.
		current, err := h.c.Player.Volume()
		if err != nil {
			return fmt.Errorf("get volume: %w", err)
		}
		if current == int(volume) {
			return nil
		}
		return h.c.Player.SetVolume(int(volume))

	case cmdSetAudioStreamIndex, cmdSetSubtitleStreamIndex:
		n, err := args.Int("Index")
		if err != nil {
			h.logger.Warn("ignoring stream selection", "command", name, "error", err)
			return nil
		}
		index := int(n)
		if name == cmdSetAudioStreamIndex {
			return h.c.Player.SetStreams(&index, nil)
		}
		return h.c.Player.SetStreams(nil, &index)

	case cmdDisplayContent:
		h.c.Timeline.DelayIdle()
		if h.c.Mirror == nil {
			return nil
		}
		return h.c.Mirror.DisplayContent(src, args)

	case cmdGoToSettings:
		return h.c.Menu.Show()

	case cmdDisplayMessage:
		return h.c.Notifier.Notify(args.StringOr("Header", ""), args.StringOr("Text", ""), h.c.NotifyIcon)

	case cmdSendString:
		return h.c.Keyboard.Type(args.StringOr("String", ""))

	case cmdMute, cmdUnmute:
		return h.c.Player.SetMute(name == cmdMute)

	case cmdTakeScreenshot:
		return h.c.Player.Screenshot()

	case cmdToggleFullscreen:
		return h.c.Player.ToggleFullscreen()
	}

	if nav, ok := parseNavCommand(name); ok {
		return h.navigate(nav)
	}

	h.logger.Debug("ignoring general command", "command", name)
	return nil
}

// navigate routes a navigation command to the menu while it is shown, and to
// key emulation otherwise.
func (h *Commands) navigate(nav NavCommand) error {
	if action, ok := navMenuActions[nav]; ok && h.c.Menu.IsShown() {
		return h.c.Menu.Action(action)
	}
	key, ok := navKeys[nav]
	if !ok {
		return fmt.Errorf("no key mapping for %s", nav)
	}
	return tapKey(h.c.Keyboard, key)
}

// tapKey presses and releases key. The release always runs; its error is
// joined with the press error.
func tapKey(kb Keyboard, key Key) (err error) {
	keyTapsTotal.WithLabelValues(key.Name).Inc()
	defer func() {
		if rerr := kb.Release(key); rerr != nil {
			err = errors.Join(err, fmt.Errorf("release %s: %w", key.Name, rerr))
		}
	}()
	if err := kb.Press(key); err != nil {
		return fmt.Errorf("press %s: %w", key.Name, err)
	}
	return nil
}
