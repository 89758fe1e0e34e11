// Package config provides YAML-based match configuration loading and
// difficulty presets for the sets table.
package config

import (
	"fmt"
	"time"
)

// MatchConfig describes one match: who sits at the table and which
// rules apply.
type MatchConfig struct {
	Variant          string    `yaml:"variant"`
	Players          int       `yaml:"players"`
	Bots             int       `yaml:"bots"`
	Names            []string  `yaml:"names"`
	PreventAutoClaim bool      `yaml:"prevent_auto_claim"`
	Bans             BanConfig `yaml:"bans"`
	Bot              BotConfig `yaml:"bot"`
}

// BanConfig defines the penalty for claiming a non-set.
type BanConfig struct {
	Enabled bool    `yaml:"enabled"`
	BaseMS  int     `yaml:"base_ms"` // first ban duration
	Growth  float64 `yaml:"growth"`  // multiplier for each further ban
}

// BotConfig defines bot pacing and accuracy.
type BotConfig struct {
	MinDelayMS int     `yaml:"min_delay_ms"`
	MaxDelayMS int     `yaml:"max_delay_ms"`
	Blunder    float64 `yaml:"blunder"` // probability of claiming a non-set
}

// Base returns the first ban duration.
func (b BanConfig) Base() time.Duration {
	return time.Duration(b.BaseMS) * time.Millisecond
}

// MinDelay returns the lower bound of the bot think delay.
func (b BotConfig) MinDelay() time.Duration {
	return time.Duration(b.MinDelayMS) * time.Millisecond
}

// MaxDelay returns the upper bound of the bot think delay.
func (b BotConfig) MaxDelay() time.Duration {
	return time.Duration(b.MaxDelayMS) * time.Millisecond
}

// Validate checks the structural constraints of a match config.
// Variant existence is checked at the table, where the catalog lives.
func (c MatchConfig) Validate() error {
	if c.Players < 1 {
		return fmt.Errorf("config: players must be at least 1, got %d", c.Players)
	}
	if c.Bots < 0 || c.Bots > c.Players {
		return fmt.Errorf("config: bots must be between 0 and players (%d), got %d", c.Players, c.Bots)
	}
	if c.Bans.Enabled {
		if c.Bans.BaseMS <= 0 {
			return fmt.Errorf("config: bans.base_ms must be positive, got %d", c.Bans.BaseMS)
		}
		if c.Bans.Growth < 1 {
			return fmt.Errorf("config: bans.growth must be at least 1, got %v", c.Bans.Growth)
		}
	}
	if c.Bot.MinDelayMS < 0 {
		return fmt.Errorf("config: bot.min_delay_ms must not be negative, got %d", c.Bot.MinDelayMS)
	}
	if c.Bot.MaxDelayMS < c.Bot.MinDelayMS {
		return fmt.Errorf("config: bot.max_delay_ms %d is below bot.min_delay_ms %d", c.Bot.MaxDelayMS, c.Bot.MinDelayMS)
	}
	if c.Bot.Blunder < 0 || c.Bot.Blunder > 1 {
		return fmt.Errorf("config: bot.blunder must be in [0, 1], got %v", c.Bot.Blunder)
	}
	return nil
}
