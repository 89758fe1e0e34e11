package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dmkor/tui-sets/internal/platform/tui"
	"github.com/dmkor/tui-sets/internal/storage"
)

var flagRecent int

var scoresCmd = &cobra.Command{
	Use:   "scores",
	Short: "Browse the scoreboard",
	Long: `Open the interactive scoreboard: per-variant top scores with
aggregate stats. Tab cycles variants.

With --recent the last matches are printed as plain text instead,
which is handy outside a terminal session.

Examples:
  sets scores
  sets scores --recent 10`,
	Run: runScores,
}

func init() {
	scoresCmd.Flags().IntVar(&flagRecent, "recent", 0, "Print the N most recent matches instead of the scoreboard")
}

func runScores(_ *cobra.Command, _ []string) {
	store, err := storage.Open(flagDBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening results database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if flagRecent > 0 {
		printRecent(store, flagRecent)
		return
	}

	// Get terminal size
	width, height := 80, 24
	if w, h, termErr := term.GetSize(int(os.Stdout.Fd())); termErr == nil {
		width = w
		height = h
	}

	if _, err := tui.RunScoreboard(store, width, height); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// printRecent writes the latest matches as a plain table.
func printRecent(store *storage.Store, limit int) {
	matches, err := store.RecentMatches(limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error retrieving matches: %v\n", err)
		os.Exit(1)
	}

	if len(matches) == 0 {
		fmt.Println("No matches recorded yet.")
		fmt.Println()
		fmt.Println("Play 'sets play' to record the first one!")
		return
	}

	fmt.Printf("Last %d matches:\n", len(matches))
	fmt.Println()

	for _, m := range matches {
		mins := int(m.Duration.Minutes())
		secs := int(m.Duration.Seconds()) % 60
		fmt.Printf("  %s  %-8s  %d players  %dm%02ds\n",
			m.CreatedAt.Format("2006-01-02 15:04"), m.Variant, m.Players, mins, secs)

		lines := make([]string, 0, len(m.Scores))
		for _, sc := range m.Scores {
			mark := " "
			if sc.Winner {
				mark = "*"
			}
			lines = append(lines, fmt.Sprintf("%s%s %d", mark, sc.Name, sc.Score))
		}
		fmt.Printf("      %s\n", strings.Join(lines, "   "))
	}

	fmt.Println()
	fmt.Println("* winner")
}
