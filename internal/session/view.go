package session

import "github.com/dmkor/tui-sets/internal/sets"

// View is the read-only projection of controller state handed to a
// rendering layer. Every field is a copy; mutating a View has no
// effect on the controller.
type View struct {
	// Cards is the face-up market in engine order. Indices are only
	// valid until the market re-binds.
	Cards []sets.Card

	// Names holds one display name per player index.
	Names []string

	// Selection is the local player's chosen positions, ascending.
	Selection []int

	// Bans maps a player index to ban progress. A key is present
	// exactly while that player is banned; the value is clamped to
	// [0, 100] for display.
	Bans map[int]float64

	// Scores maps every player index to its current score.
	Scores map[int]int

	// Finished is true once the session has ended. It never goes
	// back to false.
	Finished bool
}

// clampPercent bounds a raw progress value to the displayable range.
func clampPercent(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
