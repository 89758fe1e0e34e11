package sets

import "github.com/dmkor/tui-sets/internal/variant"

// VariantClassic is the default rule set: four features, 81 cards,
// twelve-card market.
const VariantClassic = "classic"

// VariantMini is the reduced rule set for quick matches: three features
// (every card solid), 27 cards, nine-card market.
const VariantMini = "mini"

func init() {
	variant.Register(variant.Variant{
		ID:           VariantClassic,
		Title:        "Classic",
		Description:  "Four features, 81 cards, 12-card market",
		Features:     4,
		MarketTarget: 12,
		RefillStep:   3,
	})
	variant.Register(variant.Variant{
		ID:           VariantMini,
		Title:        "Mini",
		Description:  "Three features, 27 cards, 9-card market",
		Features:     3,
		MarketTarget: 9,
		RefillStep:   3,
	})
}
