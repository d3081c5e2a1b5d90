package main

import (
	"context"
	"log/slog"
)

// Event names bound by the shim.
const (
	EventPlay           = "Play"
	EventGeneralCommand = "GeneralCommand"
	EventPlaystate      = "Playstate"
	EventPlayPause      = "PlayPause"
)

// Collaborators groups everything the interpreters act on.
// Mirror and PreMedia are optional.
type Collaborators struct {
	Player   Player
	Menu     Menu
	Keyboard Keyboard
	Notifier Notifier
	Timeline Timeline
	Loader   MediaLoader
	Mirror   Mirror

	// PreMedia runs before a PlayNow request starts playback.
	PreMedia func(ctx context.Context) error

	// NotifyIcon is passed to the notifier for DisplayMessage.
	NotifyIcon string
}

// Commands holds the sub-command interpreters.
type Commands struct {
	c      Collaborators
	logger *slog.Logger
}

// NewCommands constructs the interpreters over a set of collaborators.
func NewCommands(c Collaborators, logger *slog.Logger) *Commands {
	if logger == nil {
		logger = slog.Default()
	}
	return &Commands{c: c, logger: logger}
}

// Bindings returns the event table for NewRegistry.
func (h *Commands) Bindings() []Binding {
	return []Binding{
		{Name: EventPlay, Handler: h.handlePlay},
		{Name: EventGeneralCommand, Handler: h.handleGeneralCommand},
		{Name: EventPlaystate, Handler: h.handlePlaystate},
		{Name: EventPlayPause, Handler: h.handlePlayPause},
	}
}
