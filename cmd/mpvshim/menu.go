package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// ============================================================================
// OSD Menu
// ============================================================================
// A small nested menu rendered as OSD text. While shown it owns navigation
// input: up/down move the cursor, ok/right enter a submenu or run an item,
// back/left leave the current level (and hide at the root), home returns to
// the root level.
// ============================================================================

// MenuItem is one menu entry. Items with Children open a submenu.
type MenuItem struct {
	Label    string
	Run      func() error
	Children []MenuItem
}

// TextDisplay renders menu text.
type TextDisplay interface {
	ShowText(text string, d time.Duration) error
}

type menuLevel struct {
	title  string
	items  []MenuItem
	cursor int
}

// osdMenu implements Menu.
type osdMenu struct {
	mu      sync.Mutex
	display TextDisplay
	root    []MenuItem
	ttl     time.Duration
	logger  *slog.Logger

	shown bool
	stack []menuLevel
}

func newOSDMenu(display TextDisplay, root []MenuItem, ttl time.Duration, logger *slog.Logger) *osdMenu {
	if ttl <= 0 {
		ttl = defaultMenuOSDDuration
	}
	return &osdMenu{display: display, root: root, ttl: ttl, logger: logger}
}

func (m *osdMenu) IsShown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shown
}

// Show opens the root level.
func (m *osdMenu) Show() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shown = true
	m.stack = []menuLevel{{title: "Settings", items: m.root}}
	return m.renderLocked()
}

func (m *osdMenu) Action(action MenuAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.shown {
		return nil
	}
	top := &m.stack[len(m.stack)-1]

	switch action {
	case MenuUp:
		if n := len(top.items); n > 0 {
			top.cursor = (top.cursor - 1 + n) % n
		}
	case MenuDown:
		if n := len(top.items); n > 0 {
			top.cursor = (top.cursor + 1) % n
		}
	case MenuOK, MenuRight:
		if len(top.items) == 0 {
			return nil
		}
		item := top.items[top.cursor]
		if len(item.Children) > 0 {
			m.stack = append(m.stack, menuLevel{title: item.Label, items: item.Children})
			break
		}
		if item.Run == nil {
			return nil
		}
		m.hideLocked()
		if err := item.Run(); err != nil {
			return fmt.Errorf("menu %q: %w", item.Label, err)
		}
		return nil
	case MenuBack, MenuLeft:
		if len(m.stack) == 1 {
			return m.hideLocked()
		}
		m.stack = m.stack[:len(m.stack)-1]
	case MenuHome:
		m.stack = m.stack[:1]
		m.stack[0].cursor = 0
	default:
		m.logger.Debug("menu: ignoring action", "action", action)
		return nil
	}
	return m.renderLocked()
}

func (m *osdMenu) hideLocked() error {
	m.shown = false
	m.stack = nil
	return m.display.ShowText("", 0)
}

func (m *osdMenu) renderLocked() error {
	return m.display.ShowText(m.textLocked(), m.ttl)
}

func (m *osdMenu) textLocked() string {
	top := m.stack[len(m.stack)-1]
	var b strings.Builder
	b.WriteString(top.title)
	for i, item := range top.items {
		b.WriteByte('\n')
		if i == top.cursor {
			b.WriteString("> ")
		} else {
			b.WriteString("  ")
		}
		b.WriteString(item.Label)
		if len(item.Children) > 0 {
			b.WriteString(" ...")
		}
	}
	return b.String()
}

// defaultMenuItems builds the settings menu over the player.
func defaultMenuItems(p Player) []MenuItem {
	volumeStep := func(delta int) func() error {
		return func() error {
			v, err := p.Volume()
			if err != nil {
				return err
			}
			return p.SetVolume(min(max(v+delta, 0), 100))
		}
	}
	subtitlesOff := -1
	return []MenuItem{
		{Label: "Toggle Fullscreen", Run: p.ToggleFullscreen},
		{Label: "Volume", Children: []MenuItem{
			{Label: "+10", Run: volumeStep(10)},
			{Label: "-10", Run: volumeStep(-10)},
			{Label: "Mute", Run: func() error { return p.SetMute(true) }},
			{Label: "Unmute", Run: func() error { return p.SetMute(false) }},
		}},
		{Label: "Subtitles Off", Run: func() error { return p.SetStreams(nil, &subtitlesOff) }},
		{Label: "Take Screenshot", Run: p.Screenshot},
		{Label: "Stop", Run: p.Stop},
	}
}
