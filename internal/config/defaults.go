package config

import (
	_ "embed"
)

//go:embed defaults/match.yaml
var defaultMatchYAML []byte

// DefaultMatchConfig returns the standard two-seat match: one human,
// one bot, escalating bans.
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		Variant: "classic",
		Players: 2,
		Bots:    1,
		Bans: BanConfig{
			Enabled: true,
			BaseMS:  2000,
			Growth:  2,
		},
		Bot: BotConfig{
			MinDelayMS: 700,
			MaxDelayMS: 1600,
			Blunder:    0.1,
		},
	}
}

// DefaultYAML returns the embedded default match YAML.
func DefaultYAML() []byte {
	return defaultMatchYAML
}
