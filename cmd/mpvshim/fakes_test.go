package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// recorder collects collaborator calls in order across all fakes.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func fmtIntPtr(p *int) string {
	if p == nil {
		return "nil"
	}
	return fmt.Sprint(*p)
}

func fmtFloatPtr(p *float64) string {
	if p == nil {
		return "nil"
	}
	return fmt.Sprint(*p)
}

// fakePlayer is a test double for Player.
type fakePlayer struct {
	rec     *recorder
	current *Video
	volume  int

	volumeErr error
	playErr   error
	pauseErr  error
}

func (p *fakePlayer) Play(v *Video, offset *float64) error {
	p.rec.add("Play(%s,%s)", v.ItemID, fmtFloatPtr(offset))
	if p.playErr != nil {
		return p.playErr
	}
	p.current = v
	return nil
}

func (p *fakePlayer) TogglePause() error {
	p.rec.add("TogglePause")
	return p.pauseErr
}

func (p *fakePlayer) Stop() error {
	p.rec.add("Stop")
	p.current = nil
	return nil
}

func (p *fakePlayer) Seek(s float64) error {
	p.rec.add("Seek(%v)", s)
	return nil
}

func (p *fakePlayer) PlayNext() error {
	p.rec.add("PlayNext")
	return nil
}

func (p *fakePlayer) PlayPrev() error {
	p.rec.add("PlayPrev")
	return nil
}

func (p *fakePlayer) SetVolume(v int) error {
	p.rec.add("SetVolume(%d)", v)
	p.volume = v
	return nil
}

func (p *fakePlayer) Volume() (int, error) {
	p.rec.add("Volume")
	return p.volume, p.volumeErr
}

func (p *fakePlayer) SetMute(m bool) error {
	p.rec.add("SetMute(%v)", m)
	return nil
}

func (p *fakePlayer) SetStreams(audio, subtitle *int) error {
	p.rec.add("SetStreams(%s,%s)", fmtIntPtr(audio), fmtIntPtr(subtitle))
	return nil
}

func (p *fakePlayer) Screenshot() error {
	p.rec.add("Screenshot")
	return nil
}

func (p *fakePlayer) ToggleFullscreen() error {
	p.rec.add("ToggleFullscreen")
	return nil
}

func (p *fakePlayer) CurrentVideo() *Video { return p.current }

func (p *fakePlayer) UpdateVisibility() error {
	p.rec.add("UpdateVisibility")
	return nil
}

// fakeMenu is a test double for Menu.
type fakeMenu struct {
	rec   *recorder
	shown bool
}

func (m *fakeMenu) IsShown() bool { return m.shown }

func (m *fakeMenu) Action(a MenuAction) error {
	m.rec.add("Menu.Action(%s)", a)
	return nil
}

func (m *fakeMenu) Show() error {
	m.rec.add("Menu.Show")
	m.shown = true
	return nil
}

// fakeKeyboard is a test double for Keyboard.
type fakeKeyboard struct {
	rec        *recorder
	pressErr   error
	releaseErr error
}

func (k *fakeKeyboard) Press(key Key) error {
	k.rec.add("Press(%s)", key.Name)
	return k.pressErr
}

func (k *fakeKeyboard) Release(key Key) error {
	k.rec.add("Release(%s)", key.Name)
	return k.releaseErr
}

func (k *fakeKeyboard) Type(text string) error {
	k.rec.add("Type(%s)", text)
	return nil
}

type fakeNotifier struct{ rec *recorder }

func (n *fakeNotifier) Notify(title, body, icon string) error {
	n.rec.add("Notify(%s|%s|%s)", title, body, icon)
	return nil
}

type fakeTimeline struct {
	rec     *recorder
	sendErr error
}

func (t *fakeTimeline) SendTimeline() error {
	t.rec.add("SendTimeline")
	return t.sendErr
}

func (t *fakeTimeline) DelayIdle() { t.rec.add("DelayIdle") }

type fakeMirror struct{ rec *recorder }

func (m *fakeMirror) DisplayContent(src Source, args Args) error {
	m.rec.add("DisplayContent(%s,%s)", src.ID, args.StringOr("ItemId", ""))
	return nil
}

// fakeLoader records loads and resolves through the template loader.
type fakeLoader struct {
	rec     *recorder
	nothing bool
	err     error
}

func (l *fakeLoader) Load(src Source, req PlayRequest) (*Video, error) {
	l.rec.add("Load(%s)", strings.Join(req.ItemIDs, ","))
	if l.err != nil {
		return nil, l.err
	}
	if l.nothing {
		return nil, nil
	}
	return newTemplateLoader("").Load(src, req)
}

// harness bundles fakes sharing one recorder.
type harness struct {
	rec      *recorder
	player   *fakePlayer
	menu     *fakeMenu
	keyboard *fakeKeyboard
	notifier *fakeNotifier
	timeline *fakeTimeline
	loader   *fakeLoader
	mirror   *fakeMirror
}

func newHarness() *harness {
	rec := &recorder{}
	return &harness{
		rec:      rec,
		player:   &fakePlayer{rec: rec},
		menu:     &fakeMenu{rec: rec},
		keyboard: &fakeKeyboard{rec: rec},
		notifier: &fakeNotifier{rec: rec},
		timeline: &fakeTimeline{rec: rec},
		loader:   &fakeLoader{rec: rec},
		mirror:   &fakeMirror{rec: rec},
	}
}

func (h *harness) collaborators() Collaborators {
	return Collaborators{
		Player:     h.player,
		Menu:       h.menu,
		Keyboard:   h.keyboard,
		Notifier:   h.notifier,
		Timeline:   h.timeline,
		Loader:     h.loader,
		Mirror:     h.mirror,
		NotifyIcon: "mpvshim",
	}
}

func (h *harness) commands() *Commands {
	return NewCommands(h.collaborators(), discardLogger())
}

func (h *harness) dispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	reg, err := NewRegistry(h.commands().Bindings()...)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return NewDispatcher(reg, discardLogger())
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mustArgs decodes a JSON object into Args.
func mustArgs(t *testing.T, js string) Args {
	t.Helper()
	var v Value
	if err := v.UnmarshalJSON([]byte(js)); err != nil {
		t.Fatalf("decode args %s: %v", js, err)
	}
	m, ok := v.AsMap()
	if !ok {
		t.Fatalf("args %s is not an object", js)
	}
	return m
}
