package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"

	"github.com/dmkor/tui-sets/internal/config"
	"github.com/dmkor/tui-sets/internal/session"
	"github.com/dmkor/tui-sets/internal/storage"
	"github.com/dmkor/tui-sets/internal/variant"
)

// SSHServerConfig holds configuration for the SSH server.
type SSHServerConfig struct {
	// Address is the host:port to listen on (e.g., ":23234").
	Address string

	// HostKeyPath is the path to the host key file.
	// If empty, a key will be auto-generated at ~/.sets/host_key.
	HostKeyPath string

	// DBPath is the path to the match results database.
	DBPath string

	// IdleTimeout is how long to wait before closing idle connections.
	IdleTimeout time.Duration

	// Match is the base match configuration offered to every
	// connection; each session tunes it in the setup screen.
	Match config.MatchConfig
}

// DefaultSSHServerConfig returns a config with sensible defaults.
func DefaultSSHServerConfig() SSHServerConfig {
	return SSHServerConfig{
		Address:     ":23234",
		DBPath:      "~/.sets/scores.db",
		IdleTimeout: 30 * time.Minute,
		Match:       config.DefaultMatchConfig(),
	}
}

// SSHServer wraps a Wish SSH server for the sets table.
type SSHServer struct {
	config SSHServerConfig
	server *ssh.Server
	store  *storage.Store
	logger *log.Logger
}

// NewSSHServer creates a new SSH server with the given configuration.
func NewSSHServer(cfg SSHServerConfig) (*SSHServer, error) {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "sets-ssh",
	})

	// Open storage
	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		logger.Warn("could not open results database", "error", err)
		// Continue without storage
	}

	srv := &SSHServer{
		config: cfg,
		store:  store,
		logger: logger,
	}

	// Resolve host key path
	hostKeyPath := cfg.HostKeyPath
	if hostKeyPath == "" {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return nil, fmt.Errorf("cannot get home directory: %w", homeErr)
		}
		hostKeyPath = filepath.Join(home, ".sets", "host_key")
	}

	// Ensure host key directory exists
	hostKeyDir := filepath.Dir(hostKeyPath)
	if mkdirErr := os.MkdirAll(hostKeyDir, 0o700); mkdirErr != nil {
		return nil, fmt.Errorf("cannot create host key directory: %w", mkdirErr)
	}

	// Create Wish server options
	opts := []ssh.Option{
		wish.WithAddress(cfg.Address),
		wish.WithHostKeyPath(hostKeyPath),
		wish.WithIdleTimeout(cfg.IdleTimeout),
		wish.WithMiddleware(
			bubbletea.Middleware(srv.teaHandler),
			srv.loggingMiddleware,
		),
	}

	// Create the server
	server, err := wish.NewServer(opts...)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, fmt.Errorf("cannot create SSH server: %w", err)
	}

	srv.server = server
	return srv, nil
}

// teaHandler creates a Bubble Tea program for each SSH session.
func (s *SSHServer) teaHandler(sshSession ssh.Session) (tea.Model, []tea.ProgramOption) {
	pty, _, ok := sshSession.Pty()
	if !ok {
		s.logger.Warn("no PTY requested", "user", sshSession.User())
		return nil, nil
	}

	// Every connection edits its own copy of the base match config,
	// with the SSH user on seat 0.
	match := s.config.Match
	match.Names = append([]string(nil), match.Names...)
	if len(match.Names) == 0 {
		match.Names = []string{""}
	}
	if user := sshSession.User(); user != "" {
		match.Names[0] = user
	}

	// Tear the running match down when the connection goes away,
	// whether or not the user quit cleanly.
	holder := &rigHolder{}
	go func() {
		<-sshSession.Context().Done()
		holder.close()
	}()

	model := NewSessionModel(s.store, match, holder, pty.Window.Width, pty.Window.Height)

	return model, []tea.ProgramOption{
		tea.WithAltScreen(),
	}
}

// loggingMiddleware logs SSH session events.
func (s *SSHServer) loggingMiddleware(next ssh.Handler) ssh.Handler {
	return func(sshSession ssh.Session) {
		s.logger.Info("session started",
			"user", sshSession.User(),
			"remote", sshSession.RemoteAddr().String(),
		)
		next(sshSession)
		s.logger.Info("session ended",
			"user", sshSession.User(),
			"remote", sshSession.RemoteAddr().String(),
		)
	}
}

// ListenAndServe starts the SSH server and blocks until shutdown.
func (s *SSHServer) ListenAndServe() error {
	s.logger.Info("starting SSH server", "address", s.config.Address)

	// Setup signal handling for graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			s.logger.Error("server error", "error", err)
		}
	}()

	<-done
	s.logger.Info("shutting down...")
	return s.Shutdown()
}

// Shutdown gracefully stops the server.
func (s *SSHServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.store != nil {
		s.store.Close()
	}

	return s.server.Shutdown(ctx)
}

// Addr returns the server's listen address string.
func (s *SSHServer) Addr() string {
	return s.config.Address
}

// rigHolder keeps the live match rig for one connection so it can be
// torn down from outside the Bubble Tea loop when the connection dies.
type rigHolder struct {
	mu  sync.Mutex
	rig *matchRig
}

// set installs a new rig, closing the previous one if any.
func (h *rigHolder) set(r *matchRig) {
	h.mu.Lock()
	old := h.rig
	h.rig = r
	h.mu.Unlock()

	if old != nil {
		old.Close()
	}
}

func (h *rigHolder) close() {
	h.set(nil)
}

// SessionModel manages the full remote session flow: setup -> match ->
// setup. This is the top-level model used for SSH sessions.
type SessionModel struct {
	store    *storage.Store
	match    config.MatchConfig
	holder   *rigHolder
	width    int
	height   int
	setup    SetupModel
	game     *GameModel
	inGame   bool
	quitting bool
}

// NewSessionModel creates a new session model.
func NewSessionModel(store *storage.Store, match config.MatchConfig, holder *rigHolder, width, height int) SessionModel {
	return SessionModel{
		store:  store,
		match:  match,
		holder: holder,
		width:  width,
		height: height,
		setup:  NewSetupModel(match, width, height),
	}
}

// Init initializes the session.
func (m SessionModel) Init() tea.Cmd {
	return m.setup.Init()
}

// Update handles messages for the session.
func (m SessionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Track window size globally
	if wsm, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = wsm.Width
		m.height = wsm.Height
	}

	if m.inGame && m.game != nil {
		return m.updateGame(msg)
	}
	return m.updateSetup(msg)
}

// updateSetup handles updates when in the setup screen.
func (m SessionModel) updateSetup(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	newSetup, cmd := m.setup.Update(msg)
	if setupModel, ok := newSetup.(SetupModel); ok {
		m.setup = setupModel
	}

	// Check if user quit
	if m.setup.IsQuitting() {
		m.quitting = true
		return m, tea.Quit
	}

	// Check if a match was configured
	if selected := m.setup.Selected(); selected != nil {
		rig, err := startMatch(*selected, 0)
		if err != nil {
			// Shouldn't happen since setup only offers registered variants
			return m, nil
		}
		m.holder.set(rig)

		info, err := variant.Get(rig.ctrl.Variant())
		if err != nil {
			m.holder.close()
			return m, nil
		}

		var saver session.ResultSaver
		if m.store != nil {
			saver = m.store
		}

		game := NewGameModel(rig.ctrl, saver, info, 0, m.width, m.height)
		m.game = &game
		m.inGame = true

		return m, m.game.Init()
	}

	return m, cmd
}

// updateGame handles updates when a match is on.
func (m SessionModel) updateGame(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	newModel, cmd := m.game.Update(msg)
	if gameModel, ok := newModel.(GameModel); ok {
		m.game = &gameModel
	}

	// Check if user wants another match (back to setup)
	if m.game.BackToMenu() {
		m.holder.close()
		m.inGame = false
		m.game = nil
		// Reset setup state
		m.setup = NewSetupModel(m.match, m.width, m.height)
		return m, m.setup.Init()
	}

	// Check if user quit entirely
	if m.game.IsQuitting() {
		m.holder.close()
		m.quitting = true
		return m, tea.Quit
	}

	return m, cmd
}

// View renders the current view.
func (m SessionModel) View() string {
	if m.quitting {
		return ""
	}

	if m.inGame && m.game != nil {
		return m.game.View()
	}

	return m.setup.View()
}
