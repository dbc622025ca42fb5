package board

import "strings"

type Shortcut int

const (
	ShortcutNone Shortcut = iota
	ShortcutUndo
	ShortcutRedo
	ShortcutSave
)

// ParseShortcut maps a key name as bubbletea reports it ("ctrl+z") to a
// board shortcut.
func ParseShortcut(key string) Shortcut {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "ctrl+z":
		return ShortcutUndo
	case "ctrl+y", "ctrl+shift+z":
		return ShortcutRedo
	case "ctrl+s":
		return ShortcutSave
	}
	return ShortcutNone
}
