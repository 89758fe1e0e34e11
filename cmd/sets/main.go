// sets is a TUI for playing the Sets pattern-matching card game in the
// terminal, alone against bots or over SSH.
//
// Usage:
//
//	sets list                - List available variants
//	sets play                - Play a match
//	sets scores              - Browse the scoreboard
//	sets serve               - Start SSH server for remote play
//	sets simulate            - Run a headless bots-only match
//
// Global flags:
//
//	--fps <rate>     - Set view refresh rate (default: 30)
//	--seed <value>   - Set RNG seed for reproducible deals
//	--db <path>      - Set database path (default: ~/.sets/scores.db)
//	--config <path>  - Path to a custom match config YAML
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	// Import the engine to register its variants
	_ "github.com/dmkor/tui-sets/internal/sets"
)

var (
	// Global flags
	flagFPS    int
	flagSeed   int64
	flagDBPath string
	flagConfig string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sets",
	Short: "Sets - Play the pattern-matching card game in your terminal",
	Long: `Sets is a terminal take on the classic pattern-matching card game:
spot three cards whose features are all same or all different, faster
than the other seats.

Available commands:
  list     - Show all available variants
  play     - Play a match against bots
  scores   - Browse the scoreboard
  serve    - Start SSH server for remote play
  simulate - Run a headless bots-only match

Examples:
  sets list
  sets play
  sets play --variant mini --bots 2 --difficulty hardcore
  sets serve --port 2222
  sets scores`,
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().IntVar(&flagFPS, "fps", 30, "View refresh rate (frames per second)")
	rootCmd.PersistentFlags().Int64Var(&flagSeed, "seed", 0, "RNG seed (0 = random based on time)")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "~/.sets/scores.db", "Path to results database")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to custom match config YAML")

	// Add subcommands
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(scoresCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(simulateCmd)
}
