package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmkor/tui-sets/internal/config"
	"github.com/dmkor/tui-sets/internal/platform/tui"
)

var (
	flagHost        string
	flagPort        int
	flagKeyPath     string
	flagIdleTimeout int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the sets SSH server",
	Long: `Start an SSH server that lets users connect and play matches.

Each SSH connection gets its own table: a setup screen, then a match
against bots. Results are stored per-server (all users share the same
scoreboard).

Host key handling:
  - If --keypath is provided, uses that key file
  - Otherwise, auto-generates a key at ~/.sets/host_key

Examples:
  sets serve                       # Listen on :23234 with auto-generated key
  sets serve --port 2222           # Listen on port 2222
  sets serve --keypath ./host_key  # Use specific host key
  sets serve --db ./scores.db      # Use specific database

Users can connect with:
  ssh localhost -p 23234`,
	Run: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagHost, "host", "", "Host to listen on (empty = all interfaces)")
	serveCmd.Flags().IntVar(&flagPort, "port", 23234, "Port to listen on")
	serveCmd.Flags().StringVar(&flagKeyPath, "keypath", "", "Path to host key file (auto-generated if not specified)")
	serveCmd.Flags().IntVar(&flagIdleTimeout, "idle-timeout", 30, "Idle timeout in minutes before disconnecting")
}

func runServe(_ *cobra.Command, _ []string) {
	match, err := config.LoadMatch(flagConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading match config: %v\n", err)
		os.Exit(1)
	}
	if err := match.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg := tui.SSHServerConfig{
		Address:     fmt.Sprintf("%s:%d", flagHost, flagPort),
		HostKeyPath: flagKeyPath,
		DBPath:      flagDBPath,
		IdleTimeout: time.Duration(flagIdleTimeout) * time.Minute,
		Match:       match,
	}

	server, err := tui.NewSSHServer(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating server: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Starting sets SSH server on %s\n", cfg.Address)
	fmt.Printf("Connect with: ssh localhost -p %d\n", flagPort)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.ListenAndServe(); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
