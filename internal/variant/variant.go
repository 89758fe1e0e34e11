// Package variant provides a global catalog of playable game variants.
// Variants register themselves in init() functions, allowing the CLI and
// the setup screen to discover them without hardcoded dependencies.
package variant

import (
	"fmt"
	"sort"
	"sync"
)

// Variant describes one rule set of the card game. The engine reads the
// deck shape and market sizing from it; everything else (styling, key
// labels) belongs to the presentation layer.
type Variant struct {
	// ID is the stable identifier used for CLI flags, config files and
	// score storage (e.g., "classic", "mini").
	ID string

	// Title is a human-readable name for display.
	Title string

	// Description is a one-line summary shown by the list command.
	Description string

	// Features is the number of feature dimensions per card. Every
	// feature takes one of three values, so the deck holds 3^Features
	// cards.
	Features int

	// MarketTarget is the number of cards kept face-up while the deck
	// can still supply them.
	MarketTarget int

	// RefillStep is how many cards are added when the face-up market
	// contains no claimable set.
	RefillStep int
}

var (
	variants = make(map[string]Variant)
	mu       sync.RWMutex
)

// Register adds a variant to the catalog.
// Typically called from an engine package's init() function.
// Panics if a variant with the same ID is already registered.
func Register(v Variant) {
	mu.Lock()
	defer mu.Unlock()

	if v.ID == "" {
		panic("variant: empty ID")
	}
	if _, exists := variants[v.ID]; exists {
		panic(fmt.Sprintf("variant: %q already registered", v.ID))
	}

	variants[v.ID] = v
}

// List returns all registered variants, sorted by ID.
func List() []Variant {
	mu.RLock()
	defer mu.RUnlock()

	result := make([]Variant, 0, len(variants))
	for _, v := range variants {
		result = append(result, v)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result
}

// Get looks up a variant by its ID.
// Returns an error if the ID is not registered.
func Get(id string) (Variant, error) {
	mu.RLock()
	defer mu.RUnlock()

	v, ok := variants[id]
	if !ok {
		return Variant{}, fmt.Errorf("variant: unknown variant %q", id)
	}

	return v, nil
}

// Exists checks if a variant with the given ID is registered.
func Exists(id string) bool {
	mu.RLock()
	defer mu.RUnlock()

	_, ok := variants[id]
	return ok
}
