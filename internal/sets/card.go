// Package sets implements the rules engine for the "Sets" card game:
// deck composition, the face-up market, claim validation, scoring, and
// temporary bans for wrong claims. The package contains pure game logic
// plus session timers; it has no dependency on the controller or the
// presentation layer.
package sets

// Feature values. Every card feature takes one of three values; the
// meaning of each value (one/two/three, diamond/pill/squiggle, ...)
// belongs to the presentation layer.
const FeatureValues = 3

// Card is one card of the deck. A card is identified in play only by
// its position in the market, never by these values.
type Card struct {
	Count   uint8 // 0..2 -> one, two, three symbols
	Shape   uint8 // 0..2 -> symbol glyph
	Color   uint8 // 0..2 -> symbol color
	Shading uint8 // 0..2 -> solid, striped, open
}

// features returns the card's feature values in a fixed order.
func (c Card) features() [4]uint8 {
	return [4]uint8{c.Count, c.Shape, c.Color, c.Shading}
}

// IsSet reports whether three cards form a valid set: for every feature
// the three values are either all the same or all different. With three
// possible values this is equivalent to the sum being divisible by three.
func IsSet(a, b, c Card) bool {
	fa, fb, fc := a.features(), b.features(), c.features()
	for i := range fa {
		if (fa[i]+fb[i]+fc[i])%FeatureValues != 0 {
			return false
		}
	}
	return true
}

// FindSet returns the indices of the first valid set among the given
// cards, scanning triples in lexicographic index order. The second
// return value is false when no set exists.
func FindSet(cards []Card) ([3]int, bool) {
	for i := 0; i < len(cards); i++ {
		for j := i + 1; j < len(cards); j++ {
			for k := j + 1; k < len(cards); k++ {
				if IsSet(cards[i], cards[j], cards[k]) {
					return [3]int{i, j, k}, true
				}
			}
		}
	}
	return [3]int{}, false
}

// ContainsSet reports whether any valid set exists among the given cards.
func ContainsSet(cards []Card) bool {
	_, ok := FindSet(cards)
	return ok
}

// newDeck builds the full deck for the given number of feature
// dimensions. Four features yield the classic 81-card deck; three
// features fix the shading to solid and yield 27 cards.
func newDeck(features int) []Card {
	shadings := FeatureValues
	if features < 4 {
		shadings = 1
	}

	deck := make([]Card, 0, FeatureValues*FeatureValues*FeatureValues*shadings)
	for count := range FeatureValues {
		for shape := range FeatureValues {
			for color := range FeatureValues {
				for shading := range shadings {
					deck = append(deck, Card{
						Count:   uint8(count),
						Shape:   uint8(shape),
						Color:   uint8(color),
						Shading: uint8(shading),
					})
				}
			}
		}
	}
	return deck
}

// shuffle permutes the deck in place with a Fisher-Yates walk driven by
// the injected rand. The same rand sequence produces the same deck.
func shuffle(deck []Card, randInt func(n int) int) {
	for i := len(deck) - 1; i > 0; i-- {
		j := randInt(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
}
