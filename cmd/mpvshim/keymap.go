package main

import "fmt"

// ============================================================================
// Navigation tables
// ============================================================================
// Navigation commands have two targets: a menu action token used while the
// OSD menu owns input focus, and an emulated key used otherwise.
// ============================================================================

// NavCommand is a remote navigation command name.
type NavCommand string

const (
	NavBack              NavCommand = "Back"
	NavSelect            NavCommand = "Select"
	NavMoveUp            NavCommand = "MoveUp"
	NavMoveDown          NavCommand = "MoveDown"
	NavMoveLeft          NavCommand = "MoveLeft"
	NavMoveRight         NavCommand = "MoveRight"
	NavGoHome            NavCommand = "GoHome"
	NavToggleContextMenu NavCommand = "ToggleContextMenu"
	NavGoToSearch        NavCommand = "GoToSearch"
)

// navCommands lists every navigation command in protocol order.
var navCommands = []NavCommand{
	NavBack, NavSelect, NavMoveUp, NavMoveDown, NavMoveLeft, NavMoveRight,
	NavGoHome, NavToggleContextMenu, NavGoToSearch,
}

// parseNavCommand reports whether name is a navigation command.
func parseNavCommand(name string) (NavCommand, bool) {
	for _, c := range navCommands {
		if string(c) == name {
			return c, true
		}
	}
	return "", false
}

// MenuAction is a token understood by the OSD menu.
type MenuAction string

const (
	MenuBack  MenuAction = "back"
	MenuOK    MenuAction = "ok"
	MenuUp    MenuAction = "up"
	MenuDown  MenuAction = "down"
	MenuLeft  MenuAction = "left"
	MenuRight MenuAction = "right"
	MenuHome  MenuAction = "home"
)

// navMenuActions only covers commands the menu understands. ToggleContextMenu
// and GoToSearch always fall through to key emulation.
var navMenuActions = map[NavCommand]MenuAction{
	NavBack:      MenuBack,
	NavSelect:    MenuOK,
	NavMoveUp:    MenuUp,
	NavMoveDown:  MenuDown,
	NavMoveRight: MenuRight,
	NavMoveLeft:  MenuLeft,
	NavGoHome:    MenuHome,
}

// Key is an emulated key, identified by its X11 keysym.
type Key struct {
	Name string // keysym name as accepted by xdotool
	Sym  uint32
}

func (k Key) String() string { return fmt.Sprintf("%s(0x%x)", k.Name, k.Sym) }

// X11 keysyms (X11/keysymdef.h, X11/XF86keysym.h).
var (
	KeyEscape       = Key{Name: "Escape", Sym: 0xff1b}
	KeyReturn       = Key{Name: "Return", Sym: 0xff0d}
	KeyUp           = Key{Name: "Up", Sym: 0xff52}
	KeyDown         = Key{Name: "Down", Sym: 0xff54}
	KeyLeft         = Key{Name: "Left", Sym: 0xff51}
	KeyRight        = Key{Name: "Right", Sym: 0xff53}
	KeyMenu         = Key{Name: "Menu", Sym: 0xff67}
	KeyXF86HomePage = Key{Name: "XF86HomePage", Sym: 269025048}
	KeyXF86Search   = Key{Name: "XF86Search", Sym: 269025051}
)

// navKeys maps every navigation command to a key.
var navKeys = map[NavCommand]Key{
	NavBack:              KeyEscape,
	NavSelect:            KeyReturn,
	NavMoveUp:            KeyUp,
	NavMoveDown:          KeyDown,
	NavMoveRight:         KeyRight,
	NavMoveLeft:          KeyLeft,
	NavGoHome:            KeyXF86HomePage,
	NavToggleContextMenu: KeyMenu,
	NavGoToSearch:        KeyXF86Search,
}
