package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// cardKeys assigns one toggle key per market position. Twelve cards is
// the usual classic market; the tail covers extended markets, which top
// out at 21 cards before a set is guaranteed.
const cardKeys = "123456789abcdefghijkl"

// cardIndexForKey translates a pressed key to a market position.
// The boolean is false for keys that do not address a card.
func cardIndexForKey(key string) (int, bool) {
	if len(key) != 1 {
		return 0, false
	}
	idx := strings.IndexByte(cardKeys, key[0])
	if idx < 0 {
		return 0, false
	}
	return idx, true
}

// cardKeyLabel returns the toggle key label for a market position, or
// an empty string for positions beyond the key row.
func cardKeyLabel(index int) string {
	if index < 0 || index >= len(cardKeys) {
		return ""
	}
	return string(cardKeys[index])
}

// KeyMapper translates Bubble Tea key messages to screen actions.
// This centralizes key bindings and makes them testable.
type KeyMapper struct{}

// NewKeyMapper creates a new key mapper with default bindings.
func NewKeyMapper() *KeyMapper {
	return &KeyMapper{}
}

// MenuAction represents a menu-specific action derived from input.
type MenuAction int

const (
	MenuActionNone MenuAction = iota
	MenuActionUp
	MenuActionDown
	MenuActionLeft
	MenuActionRight
	MenuActionSelect
	MenuActionBack
	MenuActionQuit
)

// MapKeyToMenuAction translates a key to a menu action.
func (km *KeyMapper) MapKeyToMenuAction(msg tea.KeyMsg) MenuAction {
	key := msg.String()

	switch key {
	case "ctrl+c", "q":
		return MenuActionQuit
	case "w", "up", "k": // vim-style k for up
		return MenuActionUp
	case "s", "down", "j": // vim-style j for down
		return MenuActionDown
	case "a", "left", "h":
		return MenuActionLeft
	case "d", "right", "l":
		return MenuActionRight
	case "enter", " ":
		return MenuActionSelect
	case "b", "esc":
		return MenuActionBack
	}

	return MenuActionNone
}
