package session

import "sort"

// selection tracks which market positions the local player has
// tentatively chosen. Positions are only meaningful against the market
// they were chosen from, so the whole thing resets whenever the market
// re-binds or a claim is dispatched.
type selection struct {
	picked map[int]bool
}

func newSelection() *selection {
	return &selection{picked: make(map[int]bool)}
}

// Toggle flips the position in or out and reports whether it is
// selected afterwards.
func (s *selection) Toggle(index int) bool {
	if s.picked[index] {
		delete(s.picked, index)
		return false
	}
	s.picked[index] = true
	return true
}

// Has reports whether the position is currently selected.
func (s *selection) Has(index int) bool {
	return s.picked[index]
}

// Clear removes every selected position.
func (s *selection) Clear() {
	clear(s.picked)
}

// Len returns the number of selected positions.
func (s *selection) Len() int {
	return len(s.picked)
}

// Indices returns the selected positions in ascending order.
func (s *selection) Indices() []int {
	out := make([]int, 0, len(s.picked))
	for idx := range s.picked {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}
