package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dmkor/tui-sets/internal/config"
	"github.com/dmkor/tui-sets/internal/platform/tui"
	"github.com/dmkor/tui-sets/internal/storage"
	"github.com/dmkor/tui-sets/internal/variant"
)

var (
	flagPlayers          int
	flagBots             int
	flagDifficulty       string
	flagVariant          string
	flagName             string
	flagPreventAutoClaim bool
	flagNoBans           bool
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a match",
	Long: `Start a match against bots.

Controls:
  1-9/a-l    - Toggle a card
  Enter      - Claim the selected three cards
  Esc        - New match (after the standings screen)
  Q/Ctrl+C   - Quit

Difficulty options:
  casual   - No bans, slow and blundery bots
  standard - 2s base ban, doubling per repeat
  hardcore - 5s base ban, tripling per repeat, sharp bots

Examples:
  sets play
  sets play --variant mini
  sets play --bots 3 --difficulty hardcore
  sets play --name Ada --no-bans
  sets play --config ./my-match.yaml`,
	Run: runPlay,
}

func init() {
	playCmd.Flags().IntVar(&flagPlayers, "players", 0, "Number of seats at the table (default from config)")
	playCmd.Flags().IntVar(&flagBots, "bots", -1, "Number of bot seats (default from config)")
	playCmd.Flags().StringVar(&flagDifficulty, "difficulty", "", "Difficulty preset: casual, standard, hardcore")
	playCmd.Flags().StringVar(&flagVariant, "variant", "", "Variant to play (see 'sets list')")
	playCmd.Flags().StringVar(&flagName, "name", "", "Display name for your seat")
	playCmd.Flags().BoolVar(&flagPreventAutoClaim, "prevent-auto-claim", false, "Report local claims without dispatching them")
	playCmd.Flags().BoolVar(&flagNoBans, "no-bans", false, "Disable wrong-claim bans")
}

// buildMatchConfig folds the play flags over the loaded match config.
func buildMatchConfig(cmd *cobra.Command) (config.MatchConfig, error) {
	cfg, err := config.LoadMatch(flagConfig)
	if err != nil {
		return cfg, err
	}

	if cmd.Flags().Changed("players") {
		cfg.Players = flagPlayers
	}
	if cmd.Flags().Changed("bots") {
		cfg.Bots = flagBots
	}
	if flagVariant != "" {
		cfg.Variant = flagVariant
	}
	if flagDifficulty != "" {
		preset, err := config.ParseDifficulty(flagDifficulty)
		if err != nil {
			return cfg, err
		}
		config.ApplyDifficulty(&cfg, preset)
	}
	if flagNoBans {
		cfg.Bans.Enabled = false
	}
	if flagPreventAutoClaim {
		cfg.PreventAutoClaim = true
	}
	if flagName != "" {
		if len(cfg.Names) == 0 {
			cfg.Names = []string{flagName}
		} else {
			cfg.Names[0] = flagName
		}
	}

	return cfg, cfg.Validate()
}

func runPlay(cmd *cobra.Command, _ []string) {
	matchCfg, err := buildMatchConfig(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Check the variant before opening any screen
	if !variant.Exists(matchCfg.Variant) {
		fmt.Fprintf(os.Stderr, "Error: unknown variant %q\n", matchCfg.Variant)
		fmt.Fprintln(os.Stderr, "Run 'sets list' to see available variants.")
		os.Exit(1)
	}

	// Get terminal size early for layout
	width, height := 80, 24 // Defaults
	if w, h, termErr := term.GetSize(int(os.Stdout.Fd())); termErr == nil {
		width = w
		height = h
	}

	// Open results storage
	store, err := storage.Open(flagDBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not open results database: %v\n", err)
		// Continue without storage - the match still works
		store = nil
	}

	opts := tui.Options{
		FPS:    flagFPS,
		Seed:   flagSeed,
		Width:  width,
		Height: height,
	}

	// Match loop: the first match uses the flags directly, replays go
	// through the setup screen.
	var runErr error
	for {
		again, err := tui.Run(matchCfg, store, opts)
		if err != nil {
			runErr = err
			break
		}
		if !again {
			break
		}

		selected, err := tui.RunSetup(matchCfg, width, height)
		if err != nil {
			runErr = err
			break
		}
		if selected == nil {
			break
		}
		matchCfg = *selected
	}

	// Close store before potential exit
	if store != nil {
		store.Close()
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error running match: %v\n", runErr)
		os.Exit(1)
	}
}
