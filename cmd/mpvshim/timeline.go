package main

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ============================================================================
// Timeline
// ============================================================================
// The timeline publisher turns player state into broadcasts for the timeline
// websocket. Broadcasts flow one way: publisher -> channel -> RunBroadcaster.
// The publisher never blocks the dispatcher; a full channel drops the update.
// ============================================================================

// TimelineSnapshot is the playback state reported to timeline listeners.
type TimelineSnapshot struct {
	ItemID        string `json:"item_id,omitempty"`
	MediaSourceID string `json:"media_source_id,omitempty"`

	PositionTicks int64 `json:"position_ticks"`
	DurationTicks int64 `json:"duration_ticks"`

	Paused     bool `json:"paused"`
	Muted      bool `json:"muted"`
	Volume     int  `json:"volume"`
	Fullscreen bool `json:"fullscreen"`

	AudioIndex    *int `json:"audio_stream_index,omitempty"`
	SubtitleIndex *int `json:"subtitle_stream_index,omitempty"`

	QueueIndex  int `json:"queue_index"`
	QueueLength int `json:"queue_length"`
}

// StateBroadcast is implemented by everything the broadcaster understands.
type StateBroadcast interface {
	isStateBroadcast()
}

// BroadcastTimeline carries a playback snapshot.
type BroadcastTimeline struct {
	Snapshot TimelineSnapshot
	At       time.Time
}

// BroadcastDisplayContent is emitted when a remote asks to show an item.
type BroadcastDisplayContent struct {
	Source   Source
	ItemID   string
	ItemName string
	ItemType string
	At       time.Time
}

// BroadcastIdle is emitted when the idle action fires.
type BroadcastIdle struct {
	At time.Time
}

func (BroadcastTimeline) isStateBroadcast()       {}
func (BroadcastDisplayContent) isStateBroadcast() {}
func (BroadcastIdle) isStateBroadcast()           {}

// timelineSource is the player state the publisher reads.
type timelineSource interface {
	Snapshot() TimelineSnapshot
	CurrentVideo() *Video
}

// timelinePublisher implements Timeline and Mirror.
type timelinePublisher struct {
	player timelineSource
	out    chan<- StateBroadcast
	idle   *idleTimer
	logger *slog.Logger
}

func newTimelinePublisher(player timelineSource, out chan<- StateBroadcast, idle *idleTimer, logger *slog.Logger) *timelinePublisher {
	return &timelinePublisher{player: player, out: out, idle: idle, logger: logger}
}

func (t *timelinePublisher) publish(b StateBroadcast) {
	select {
	case t.out <- b:
	default:
		t.logger.Warn("timeline broadcast queue full, dropping update")
	}
}

// SendTimeline publishes the current playback state.
func (t *timelinePublisher) SendTimeline() error {
	t.publish(BroadcastTimeline{Snapshot: t.player.Snapshot(), At: time.Now().UTC()})
	return nil
}

// DelayIdle pushes the idle action back by its full delay.
func (t *timelinePublisher) DelayIdle() {
	t.idle.Delay()
}

// DisplayContent mirrors a remote's "show this item" request to listeners.
func (t *timelinePublisher) DisplayContent(src Source, args Args) error {
	b := BroadcastDisplayContent{
		Source:   src,
		ItemID:   args.StringOr("ItemId", ""),
		ItemName: args.StringOr("ItemName", ""),
		ItemType: args.StringOr("ItemType", ""),
		At:       time.Now().UTC(),
	}
	t.logger.Info("display content", "source", src.String(), "item_id", b.ItemID, "item_name", b.ItemName)
	t.publish(b)
	return nil
}

// Run publishes a snapshot every interval while a video is loaded, and keeps
// the idle action from firing during unpaused playback.
func (t *timelinePublisher) Run(ctx context.Context, interval time.Duration) error {
	defer t.idle.Stop()

	// Arm the idle action for a daemon that starts with nothing playing.
	t.idle.Delay()

	if interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if t.player.CurrentVideo() == nil {
				continue
			}
			snap := t.player.Snapshot()
			t.publish(BroadcastTimeline{Snapshot: snap, At: time.Now().UTC()})
			if !snap.Paused {
				t.idle.Delay()
			}
		}
	}
}

// ============================================================================
// Idle timer
// ============================================================================

// idleTimer runs fire once the timer has not been delayed for a full delay.
// A nil timer, a nil fire func and a non-positive delay all disable it.
type idleTimer struct {
	mu    sync.Mutex
	delay time.Duration
	fire  func()
	timer *time.Timer
}

func newIdleTimer(delay time.Duration, fire func()) *idleTimer {
	return &idleTimer{delay: delay, fire: fire}
}

func (t *idleTimer) enabled() bool {
	return t != nil && t.fire != nil && t.delay > 0
}

// Delay (re)arms the timer.
func (t *idleTimer) Delay() {
	if !t.enabled() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.delay, t.fire)
}

// Stop cancels a pending fire.
func (t *idleTimer) Stop() {
	if !t.enabled() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
