package config

import "fmt"

// DifficultyPreset represents a named difficulty level.
type DifficultyPreset string

const (
	DifficultyCasual   DifficultyPreset = "casual"
	DifficultyStandard DifficultyPreset = "standard"
	DifficultyHardcore DifficultyPreset = "hardcore"
)

// Presets lists the known difficulty presets in order.
func Presets() []DifficultyPreset {
	return []DifficultyPreset{DifficultyCasual, DifficultyStandard, DifficultyHardcore}
}

// ParseDifficulty maps a flag value to a preset.
func ParseDifficulty(s string) (DifficultyPreset, error) {
	switch DifficultyPreset(s) {
	case DifficultyCasual, DifficultyStandard, DifficultyHardcore:
		return DifficultyPreset(s), nil
	default:
		return "", fmt.Errorf("config: unknown difficulty %q (want casual, standard, or hardcore)", s)
	}
}

// ApplyDifficulty adjusts ban and bot parameters for a preset. Table
// composition and the hosting mode are left alone.
func ApplyDifficulty(cfg *MatchConfig, preset DifficultyPreset) {
	switch preset {
	case DifficultyCasual:
		cfg.Bans.Enabled = false
		cfg.Bot.MinDelayMS = 1200
		cfg.Bot.MaxDelayMS = 2500
		cfg.Bot.Blunder = 0.25
	case DifficultyStandard:
		cfg.Bans = BanConfig{Enabled: true, BaseMS: 2000, Growth: 2}
		cfg.Bot.MinDelayMS = 700
		cfg.Bot.MaxDelayMS = 1600
		cfg.Bot.Blunder = 0.1
	case DifficultyHardcore:
		cfg.Bans = BanConfig{Enabled: true, BaseMS: 5000, Growth: 3}
		cfg.Bot.MinDelayMS = 350
		cfg.Bot.MaxDelayMS = 900
		cfg.Bot.Blunder = 0.02
	}
}
