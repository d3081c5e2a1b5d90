package main

// ============================================================================
// Collaborators
// ============================================================================
// Handlers never reach for globals; everything they touch is passed in through
// these interfaces so tests can substitute recording fakes.
// ============================================================================

// Player is the media player's transport surface.
type Player interface {
	// Play starts video. A nil offset starts from the player's default position.
	Play(video *Video, offset *float64) error
	TogglePause() error
	Stop() error
	Seek(seconds float64) error
	PlayNext() error
	PlayPrev() error

	SetVolume(volume int) error
	Volume() (int, error)
	SetMute(muted bool) error

	// SetStreams changes stream selection; a nil index leaves that stream untouched.
	SetStreams(audio, subtitle *int) error

	Screenshot() error
	ToggleFullscreen() error

	// CurrentVideo returns the loaded video, or nil when nothing is loaded.
	CurrentVideo() *Video

	// UpdateVisibility re-evaluates player/OSD visibility after queue changes.
	UpdateVisibility() error
}

// Menu is the player's on-screen menu.
type Menu interface {
	IsShown() bool
	Action(action MenuAction) error
	// Show opens the root (settings) view.
	Show() error
}

// Keyboard emulates key presses for the focused window.
type Keyboard interface {
	Press(key Key) error
	Release(key Key) error
	Type(text string) error
}

// Notifier shows desktop notifications.
type Notifier interface {
	Notify(title, body, icon string) error
}

// Timeline publishes playback state to controlling sessions.
type Timeline interface {
	SendTimeline() error
	// DelayIdle postpones the configured idle action.
	DelayIdle()
}

// Mirror displays content requested by a remote session (optional).
type Mirror interface {
	DisplayContent(src Source, args Args) error
}

// MediaLoader turns a play request into a playable video.
// A nil video with a nil error means nothing playable was found.
type MediaLoader interface {
	Load(src Source, req PlayRequest) (*Video, error)
}
