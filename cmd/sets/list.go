package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmkor/tui-sets/internal/variant"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all available variants",
	Long:  `Shows a list of all registered rule variants.`,
	Run:   runList,
}

func runList(_ *cobra.Command, _ []string) {
	variants := variant.List()

	if len(variants) == 0 {
		fmt.Println("No variants available.")
		return
	}

	fmt.Println("Available variants:")
	fmt.Println()

	// Calculate column widths
	maxIDLen := 2 // "ID" header
	for _, v := range variants {
		if len(v.ID) > maxIDLen {
			maxIDLen = len(v.ID)
		}
	}

	// Print header
	fmt.Printf("  %-*s  %-6s  %-6s  %s\n", maxIDLen, "ID", "Deck", "Market", "Description")
	fmt.Printf("  %-*s  %-6s  %-6s  %s\n", maxIDLen, "--", "----", "------", "-----------")

	// Print variants
	for _, v := range variants {
		deck := 1
		for i := 0; i < v.Features; i++ {
			deck *= 3
		}
		fmt.Printf("  %-*s  %-6d  %-6d  %s\n", maxIDLen, v.ID, deck, v.MarketTarget, v.Description)
	}

	fmt.Println()
	fmt.Println("Run 'sets play --variant <id>' to play one.")
}
