package main

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"
)

// mpvPlayer implements Player (and the menu's text display) on top of mpv.
type mpvPlayer struct {
	mpv    MPVCommander
	logger *slog.Logger

	mu      sync.Mutex
	current *Video
}

func newMPVPlayer(mpv MPVCommander, logger *slog.Logger) *mpvPlayer {
	return &mpvPlayer{mpv: mpv, logger: logger}
}

// streamValue maps a remote stream index to an mpv track selector.
// Negative indexes disable the track.
func streamValue(idx *int) any {
	switch {
	case idx == nil:
		return "auto"
	case *idx < 0:
		return "no"
	default:
		return *idx
	}
}

func (p *mpvPlayer) Play(video *Video, offset *float64) error {
	if video == nil {
		return errors.New("play: nil video")
	}

	start := "none"
	if offset != nil {
		start = strconv.FormatFloat(*offset, 'f', 3, 64)
	}
	if err := p.mpv.SetProperty("start", start); err != nil {
		return fmt.Errorf("play: %w", err)
	}
	if err := p.mpv.SetProperty("aid", streamValue(video.AudioIndex)); err != nil {
		return fmt.Errorf("play: %w", err)
	}
	if err := p.mpv.SetProperty("sid", streamValue(video.SubtitleIndex)); err != nil {
		return fmt.Errorf("play: %w", err)
	}
	if _, err := p.mpv.Command("loadfile", video.URL, "replace"); err != nil {
		return fmt.Errorf("play: loadfile: %w", err)
	}
	if err := p.mpv.SetProperty("pause", false); err != nil {
		return fmt.Errorf("play: %w", err)
	}

	p.mu.Lock()
	p.current = video
	p.mu.Unlock()

	p.logger.Info("playing", "item_id", video.ItemID, "url", video.URL, "offset", start)
	return nil
}

func (p *mpvPlayer) TogglePause() error {
	_, err := p.mpv.Command("cycle", "pause")
	return err
}

func (p *mpvPlayer) Stop() error {
	if _, err := p.mpv.Command("stop"); err != nil {
		return err
	}
	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()
	return nil
}

func (p *mpvPlayer) Seek(seconds float64) error {
	_, err := p.mpv.Command("seek", seconds, "absolute")
	return err
}

func (p *mpvPlayer) PlayNext() error {
	return p.step((*Playlist).Next, "next")
}

func (p *mpvPlayer) PlayPrev() error {
	return p.step((*Playlist).Prev, "previous")
}

func (p *mpvPlayer) step(move func(*Playlist) *Video, dir string) error {
	cur := p.CurrentVideo()
	if cur == nil || cur.Playlist == nil {
		p.logger.Debug("no queue to step through", "direction", dir)
		return nil
	}
	v := move(cur.Playlist)
	if v == nil {
		p.logger.Debug("queue boundary reached", "direction", dir)
		return nil
	}
	return p.Play(v, nil)
}

func (p *mpvPlayer) SetVolume(volume int) error {
	return p.mpv.SetProperty("volume", volume)
}

func (p *mpvPlayer) Volume() (int, error) {
	var v float64
	if err := p.mpv.GetProperty("volume", &v); err != nil {
		return 0, err
	}
	return int(math.Round(v)), nil
}

func (p *mpvPlayer) SetMute(muted bool) error {
	return p.mpv.SetProperty("mute", muted)
}

func (p *mpvPlayer) SetStreams(audio, subtitle *int) error {
	var errs []error
	if audio != nil {
		errs = append(errs, p.mpv.SetProperty("aid", streamValue(audio)))
	}
	if subtitle != nil {
		errs = append(errs, p.mpv.SetProperty("sid", streamValue(subtitle)))
	}
	return errors.Join(errs...)
}

func (p *mpvPlayer) Screenshot() error {
	_, err := p.mpv.Command("screenshot")
	return err
}

func (p *mpvPlayer) ToggleFullscreen() error {
	_, err := p.mpv.Command("cycle", "fullscreen")
	return err
}

func (p *mpvPlayer) CurrentVideo() *Video {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// UpdateVisibility shows the queue position on the OSD.
func (p *mpvPlayer) UpdateVisibility() error {
	cur := p.CurrentVideo()
	if cur == nil || cur.Playlist == nil {
		return nil
	}
	idx, n := cur.Playlist.Position()
	return p.ShowText(fmt.Sprintf("Queue: %d/%d", idx+1, n), 2*time.Second)
}

// ShowText displays text on mpv's OSD.
func (p *mpvPlayer) ShowText(text string, d time.Duration) error {
	_, err := p.mpv.Command("show-text", text, d.Milliseconds())
	return err
}

// Snapshot reads the current playback state. Unreadable properties keep
// their zero value; mpv reports most of them as unavailable while idle.
func (p *mpvPlayer) Snapshot() TimelineSnapshot {
	snap := TimelineSnapshot{}

	cur := p.CurrentVideo()
	if cur != nil {
		snap.ItemID = cur.ItemID
		snap.MediaSourceID = cur.MediaSourceID
		snap.AudioIndex = cur.AudioIndex
		snap.SubtitleIndex = cur.SubtitleIndex
		if cur.Playlist != nil {
			snap.QueueIndex, snap.QueueLength = cur.Playlist.Position()
		}
	}

	var pos, dur, vol float64
	if err := p.mpv.GetProperty("time-pos", &pos); err == nil {
		snap.PositionTicks = secondsToTicks(pos)
	}
	if err := p.mpv.GetProperty("duration", &dur); err == nil {
		snap.DurationTicks = secondsToTicks(dur)
	}
	if err := p.mpv.GetProperty("volume", &vol); err == nil {
		snap.Volume = int(math.Round(vol))
	}
	_ = p.mpv.GetProperty("pause", &snap.Paused)
	_ = p.mpv.GetProperty("mute", &snap.Muted)
	_ = p.mpv.GetProperty("fullscreen", &snap.Fullscreen)

	return snap
}
