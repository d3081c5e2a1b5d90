package main

import (
	"net/url"
	"strings"
	"sync"
)

// PlayMode is the remote's "PlayCommand".
type PlayMode string

const (
	PlayNow  PlayMode = "PlayNow"
	PlayLast PlayMode = "PlayLast"
	PlayNext PlayMode = "PlayNext"
)

// PlayRequest is decoded from a "Play" event. It is built per event and not retained.
type PlayRequest struct {
	ItemIDs       []string
	StartTicks    *float64
	AudioIndex    *int
	SubtitleIndex *int
	UserID        string
	MediaSourceID string
	Mode          PlayMode
}

// Offset returns the start offset in seconds, or nil when none was given.
func (r PlayRequest) Offset() *float64 {
	if r.StartTicks == nil {
		return nil
	}
	s := ticksToSeconds(*r.StartTicks)
	return &s
}

// Video is one playable item.
type Video struct {
	ItemID        string
	URL           string
	MediaSourceID string
	UserID        string
	AudioIndex    *int
	SubtitleIndex *int

	// Playlist is the queue this video belongs to.
	Playlist *Playlist
}

// ============================================================================
// Playlist
// ============================================================================

// Playlist is the in-memory play queue created by a PlayNow request.
type Playlist struct {
	mu      sync.Mutex
	ids     []string
	current int

	userID   string
	template string
}

// NewPlaylist creates a queue positioned on its first item.
func NewPlaylist(ids []string, userID, template string) *Playlist {
	return &Playlist{
		ids:      append([]string(nil), ids...),
		userID:   userID,
		template: template,
	}
}

// InsertItems appends ids to the end of the queue, or inserts them right after
// the current item when appendItems is false.
func (p *Playlist) InsertItems(ids []string, appendItems bool) error {
	if len(ids) == 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if appendItems || len(p.ids) == 0 {
		p.ids = append(p.ids, ids...)
		return nil
	}

	at := p.current + 1
	next := make([]string, 0, len(p.ids)+len(ids))
	next = append(next, p.ids[:at]...)
	next = append(next, ids...)
	next = append(next, p.ids[at:]...)
	p.ids = next
	return nil
}

// IDs returns a copy of the queued item ids.
func (p *Playlist) IDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.ids...)
}

// Position returns the current index and queue length.
func (p *Playlist) Position() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, len(p.ids)
}

// Current returns the video at the current position.
func (p *Playlist) Current() *Video {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.videoLocked(p.current)
}

// Next advances and returns the next video, or nil at the end of the queue.
func (p *Playlist) Next() *Video {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current+1 >= len(p.ids) {
		return nil
	}
	p.current++
	return p.videoLocked(p.current)
}

// Prev steps back and returns the previous video, or nil at the start.
func (p *Playlist) Prev() *Video {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current <= 0 {
		return nil
	}
	p.current--
	return p.videoLocked(p.current)
}

func (p *Playlist) videoLocked(i int) *Video {
	if i < 0 || i >= len(p.ids) {
		return nil
	}
	id := p.ids[i]
	return &Video{
		ItemID:   id,
		URL:      expandURLTemplate(p.template, id, "", p.userID),
		UserID:   p.userID,
		Playlist: p,
	}
}

// ============================================================================
// Media loader
// ============================================================================

// defaultURLTemplate treats item ids as paths or URLs mpv can open directly.
const defaultURLTemplate = "{item_id}"

// templateLoader resolves item ids through a URL template.
type templateLoader struct {
	template string
}

func newTemplateLoader(template string) *templateLoader {
	if template == "" {
		template = defaultURLTemplate
	}
	return &templateLoader{template: template}
}

func (l *templateLoader) Load(_ Source, req PlayRequest) (*Video, error) {
	if len(req.ItemIDs) == 0 {
		return nil, nil
	}
	pl := NewPlaylist(req.ItemIDs, req.UserID, l.template)
	v := pl.Current()
	// Stream selection and media source only apply to the requested item.
	v.MediaSourceID = req.MediaSourceID
	v.URL = expandURLTemplate(l.template, v.ItemID, req.MediaSourceID, req.UserID)
	v.AudioIndex = req.AudioIndex
	v.SubtitleIndex = req.SubtitleIndex
	return v, nil
}

// expandURLTemplate substitutes {item_id}, {media_source_id} and {user_id}.
// Values are path-escaped when the template is a URL.
func expandURLTemplate(template, itemID, mediaSourceID, userID string) string {
	esc := func(s string) string { return s }
	if strings.Contains(template, "://") {
		esc = url.PathEscape
	}
	if mediaSourceID == "" {
		mediaSourceID = itemID
	}
	return strings.NewReplacer(
		"{item_id}", esc(itemID),
		"{media_source_id}", esc(mediaSourceID),
		"{user_id}", esc(userID),
	).Replace(template)
}
