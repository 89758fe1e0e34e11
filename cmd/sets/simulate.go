package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dmkor/tui-sets/internal/bot"
	"github.com/dmkor/tui-sets/internal/config"
	"github.com/dmkor/tui-sets/internal/session"
	"github.com/dmkor/tui-sets/internal/sets"
	"github.com/dmkor/tui-sets/internal/storage"
)

var (
	flagSimVariant    string
	flagSimPlayers    int
	flagSimDifficulty string
	flagSimSave       bool
)

// simTimeout bounds a runaway simulation.
const simTimeout = 5 * time.Minute

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a headless bots-only match",
	Long: `Run a match with bots on every seat and no UI. Claims, bans, and
the finish are narrated to stderr; the final standings go to stdout.

The match uses the external claim path throughout, the same one remote
hosts drive, so this doubles as an end-to-end check of the session
plumbing.

Examples:
  sets simulate
  sets simulate --variant mini --players 3
  sets simulate --difficulty hardcore --seed 7
  sets simulate --save`,
	Run: runSimulate,
}

func init() {
	simulateCmd.Flags().StringVar(&flagSimVariant, "variant", "", "Variant to simulate (see 'sets list')")
	simulateCmd.Flags().IntVar(&flagSimPlayers, "players", 0, "Number of bot seats (default from config)")
	simulateCmd.Flags().StringVar(&flagSimDifficulty, "difficulty", "", "Difficulty preset: casual, standard, hardcore")
	simulateCmd.Flags().BoolVar(&flagSimSave, "save", false, "Persist the result to the database")
}

func runSimulate(cmd *cobra.Command, _ []string) {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "sets-sim",
	})

	match, err := config.LoadMatch(flagConfig)
	if err != nil {
		logger.Fatal("load match config", "error", err)
	}
	if flagSimVariant != "" {
		match.Variant = flagSimVariant
	}
	if cmd.Flags().Changed("players") {
		match.Players = flagSimPlayers
	}
	if flagSimDifficulty != "" {
		preset, err := config.ParseDifficulty(flagSimDifficulty)
		if err != nil {
			logger.Fatal("bad difficulty", "error", err)
		}
		config.ApplyDifficulty(&match, preset)
	}

	// Every seat is a bot, thinking at headless pace rather than the
	// configured human-facing delays.
	match.Bots = match.Players
	match.Bot.MinDelayMS = 40
	match.Bot.MaxDelayMS = 120

	if err := match.Validate(); err != nil {
		logger.Fatal("invalid match config", "error", err)
	}

	seed := flagSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	names := make([]string, match.Players)
	for i := range names {
		names[i] = fmt.Sprintf("Bot %d", i+1)
	}

	var banPolicy func(prev time.Duration) time.Duration
	if match.Bans.Enabled {
		banPolicy = sets.EscalatingBans(match.Bans.Base(), match.Bans.Growth)
	}

	// Claims flow only through the capability handed out on start, the
	// same way an external host drives seats.
	claimCh := make(chan session.ClaimFunc, 1)

	rng := rand.New(rand.NewSource(seed))
	ctrl, err := session.New(session.Config{
		Players:          match.Players,
		Names:            names,
		Rand:             rng.Intn,
		PreventAutoClaim: true,
		NextBanDuration:  banPolicy,
		Variant:          match.Variant,
		OnStarted: func(claim session.ClaimFunc) {
			claimCh <- claim
		},
	})
	if err != nil {
		logger.Fatal("create session", "error", err)
	}
	defer ctrl.Close()

	logger.Info("starting match",
		"variant", match.Variant,
		"seats", match.Players,
		"bans", match.Bans.Enabled,
		"seed", seed,
	)

	startedAt := time.Now()
	if err := ctrl.Start(); err != nil {
		logger.Fatal("start session", "error", err)
	}
	claim := <-claimCh

	narrated := func(player int, indices []int) bool {
		ok := claim(player, indices)
		if ok {
			logger.Info("set claimed", "seat", names[player], "cards", indices)
		} else {
			logger.Info("claim rejected", "seat", names[player], "cards", indices)
		}
		return ok
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for seat := 0; seat < match.Players; seat++ {
		botRng := rand.New(rand.NewSource(seed + int64(seat) + 1))
		botCfg := bot.Config{
			Player:   seat,
			Claim:    narrated,
			View:     ctrl.View,
			Rand:     botRng.Intn,
			MinDelay: match.Bot.MinDelay(),
			MaxDelay: match.Bot.MaxDelay(),
			Blunder:  match.Bot.Blunder,
		}
		go func() {
			//nolint:errcheck // Bots exit with the match context; the error carries nothing actionable.
			bot.Run(ctx, botCfg)
		}()
	}

	// Narrate ban transitions until the match finishes.
	banned := make(map[int]bool)
	deadline := time.Now().Add(simTimeout)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		v := ctrl.View()

		for seat := range v.Bans {
			if !banned[seat] {
				banned[seat] = true
				raw, _ := ctrl.BanProgress(seat)
				logger.Info("seat banned", "seat", names[seat], "progress", fmt.Sprintf("%.0f%%", raw))
			}
		}
		for seat := range banned {
			if _, still := v.Bans[seat]; !still && banned[seat] {
				delete(banned, seat)
				logger.Info("ban lifted", "seat", names[seat])
			}
		}

		if v.Finished {
			break
		}
		if time.Now().After(deadline) {
			logger.Error("simulation timed out", "after", simTimeout)
			break
		}
	}
	cancel()

	duration := time.Since(startedAt)
	finalView := ctrl.View()
	logger.Info("match over", "duration", duration.Round(time.Millisecond))

	res := session.NewResult(finalView, ctrl.Variant(), duration)

	// Standings to stdout
	fmt.Println()
	fmt.Printf("Result - %s, %d seats, %s\n", ctrl.Variant(), match.Players, duration.Round(time.Second))
	fmt.Println()
	fmt.Printf("  %-4s  %-14s  %s\n", "Seat", "Name", "Score")
	fmt.Printf("  %-4s  %-14s  %s\n", "----", "----", "-----")
	for i, name := range finalView.Names {
		mark := ""
		for _, w := range res.Winners {
			if w == i {
				mark = "  *"
			}
		}
		fmt.Printf("  %-4d  %-14s  %d%s\n", i+1, name, finalView.Scores[i], mark)
	}

	if !flagSimSave {
		return
	}

	store, err := storage.Open(flagDBPath)
	if err != nil {
		logger.Fatal("open results database", "error", err)
	}
	defer store.Close()

	res.ID = uuid.NewString()
	if err := store.SaveResult(res); err != nil {
		logger.Fatal("save result", "error", err)
	}

	// Read the record back so a broken write surfaces here, not later
	// in the scoreboard.
	rec, err := store.MatchByID(res.ID)
	if err != nil || rec == nil {
		logger.Fatal("verify saved result", "error", err)
	}
	fmt.Println()
	fmt.Printf("Saved match %s (%d score lines)\n", rec.ID, len(rec.Scores))
}
