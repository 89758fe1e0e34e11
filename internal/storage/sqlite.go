// Package storage provides SQLite-based persistence for match results.
// Uses the pure-Go modernc.org/sqlite driver to avoid CGO dependencies.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/dmkor/tui-sets/internal/session"
)

// timeLayout is how DATETIME columns are written and read back.
const timeLayout = "2006-01-02 15:04:05"

// Store manages the SQLite database connection for match persistence.
type Store struct {
	db *sql.DB
}

// MatchRecord represents one finished match with its score lines.
type MatchRecord struct {
	ID        string
	Variant   string
	Players   int
	Duration  time.Duration
	CreatedAt time.Time
	Scores    []PlayerScore
}

// PlayerScore is one seat's line in a match record.
type PlayerScore struct {
	Player int
	Name   string
	Score  int
	Winner bool
}

// ScoreEntry is one row of the per-variant best-scores board.
type ScoreEntry struct {
	MatchID   string
	Variant   string
	Name      string
	Score     int
	Winner    bool
	CreatedAt time.Time
}

// VariantStats contains aggregated results for one variant.
type VariantStats struct {
	Variant    string
	Matches    int
	BestScore  int
	AvgScore   float64
	LastPlayed time.Time
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	// Create parent directories
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	// Open database
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}

	// Run migrations
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS matches (
			id TEXT PRIMARY KEY,
			variant TEXT NOT NULL,
			players INTEGER NOT NULL,
			duration_seconds INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_matches_variant ON matches(variant);
		CREATE INDEX IF NOT EXISTS idx_matches_created ON matches(created_at DESC);

		CREATE TABLE IF NOT EXISTS match_scores (
			match_id TEXT NOT NULL,
			player_idx INTEGER NOT NULL,
			name TEXT NOT NULL,
			score INTEGER NOT NULL DEFAULT 0,
			winner INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (match_id, player_idx)
		);
		CREATE INDEX IF NOT EXISTS idx_match_scores_score ON match_scores(score DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveResult records a finished match and its score lines in one
// transaction. A missing result ID gets a fresh UUID.
func (s *Store) SaveResult(res session.Result) error {
	id := res.ID
	if id == "" {
		id = uuid.NewString()
	}
	playedAt := res.PlayedAt
	if playedAt.IsZero() {
		playedAt = time.Now()
	}

	winners := make(map[int]bool, len(res.Winners))
	for _, w := range res.Winners {
		winners[w] = true
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("storage: cannot begin transaction: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO matches (id, variant, players, duration_seconds, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, res.Variant, len(res.Scores), int(res.Duration.Seconds()),
		playedAt.UTC().Format(timeLayout),
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("storage: cannot save match: %w", err)
	}

	for idx, score := range res.Scores {
		name := ""
		if idx < len(res.Names) {
			name = res.Names[idx]
		}
		winner := 0
		if winners[idx] {
			winner = 1
		}
		if _, err := tx.Exec(
			`INSERT INTO match_scores (match_id, player_idx, name, score, winner)
			 VALUES (?, ?, ?, ?, ?)`,
			id, idx, name, score, winner,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("storage: cannot save score line: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: cannot commit match: %w", err)
	}
	return nil
}

// TopScores retrieves the best score lines for the given variant.
// Results are ordered by score descending.
func (s *Store) TopScores(variant string, limit int) ([]ScoreEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(
		`SELECT m.id, m.variant, sc.name, sc.score, sc.winner, m.created_at
		 FROM match_scores sc
		 JOIN matches m ON m.id = sc.match_id
		 WHERE m.variant = ?
		 ORDER BY sc.score DESC, m.created_at DESC
		 LIMIT ?`,
		variant, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query scores: %w", err)
	}
	defer rows.Close()

	var entries []ScoreEntry
	for rows.Next() {
		var e ScoreEntry
		var winner int
		var createdAt any
		if err := rows.Scan(&e.MatchID, &e.Variant, &e.Name, &e.Score, &winner, &createdAt); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		e.Winner = winner != 0
		e.CreatedAt = parseTimestamp(createdAt)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return entries, nil
}

// RecentMatches retrieves the most recent matches with their score
// lines, newest first.
func (s *Store) RecentMatches(limit int) ([]MatchRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT m.id, m.variant, m.players, m.duration_seconds, m.created_at,
		        sc.player_idx, sc.name, sc.score, sc.winner
		 FROM (SELECT * FROM matches ORDER BY created_at DESC, id LIMIT ?) m
		 JOIN match_scores sc ON sc.match_id = m.id
		 ORDER BY m.created_at DESC, m.id, sc.player_idx`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query matches: %w", err)
	}
	defer rows.Close()

	var records []MatchRecord
	for rows.Next() {
		var id, variant, name string
		var players, secs, playerIdx, score, winner int
		var createdAt any
		if err := rows.Scan(&id, &variant, &players, &secs, &createdAt,
			&playerIdx, &name, &score, &winner); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}

		if len(records) == 0 || records[len(records)-1].ID != id {
			records = append(records, MatchRecord{
				ID:        id,
				Variant:   variant,
				Players:   players,
				Duration:  time.Duration(secs) * time.Second,
				CreatedAt: parseTimestamp(createdAt),
			})
		}
		rec := &records[len(records)-1]
		rec.Scores = append(rec.Scores, PlayerScore{
			Player: playerIdx,
			Name:   name,
			Score:  score,
			Winner: winner != 0,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return records, nil
}

// MatchByID retrieves one match with its score lines. A missing match
// returns nil without an error.
func (s *Store) MatchByID(id string) (*MatchRecord, error) {
	var rec MatchRecord
	var secs int
	var createdAt any

	err := s.db.QueryRow(
		`SELECT id, variant, players, duration_seconds, created_at
		 FROM matches WHERE id = ?`,
		id,
	).Scan(&rec.ID, &rec.Variant, &rec.Players, &secs, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query match: %w", err)
	}
	rec.Duration = time.Duration(secs) * time.Second
	rec.CreatedAt = parseTimestamp(createdAt)

	rows, err := s.db.Query(
		`SELECT player_idx, name, score, winner
		 FROM match_scores WHERE match_id = ?
		 ORDER BY player_idx`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query score lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line PlayerScore
		var winner int
		if err := rows.Scan(&line.Player, &line.Name, &line.Score, &winner); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		line.Winner = winner != 0
		rec.Scores = append(rec.Scores, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return &rec, nil
}

// Stats retrieves aggregated results for a specific variant.
func (s *Store) Stats(variant string) (*VariantStats, error) {
	stats := &VariantStats{Variant: variant}

	err := s.db.QueryRow(
		`SELECT COUNT(DISTINCT m.id), COALESCE(MAX(sc.score), 0), COALESCE(AVG(sc.score), 0)
		 FROM matches m
		 JOIN match_scores sc ON sc.match_id = m.id
		 WHERE m.variant = ?`,
		variant,
	).Scan(&stats.Matches, &stats.BestScore, &stats.AvgScore)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot get variant stats: %w", err)
	}

	var lastPlayed any
	err = s.db.QueryRow(
		`SELECT created_at FROM matches WHERE variant = ? ORDER BY created_at DESC LIMIT 1`,
		variant,
	).Scan(&lastPlayed)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("storage: cannot get last played: %w", err)
	}
	if err == nil {
		stats.LastPlayed = parseTimestamp(lastPlayed)
	}

	return stats, nil
}

// parseTimestamp reads a DATETIME column that the driver may hand back
// as either a time.Time or a string.
func parseTimestamp(v any) time.Time {
	switch v := v.(type) {
	case time.Time:
		return v
	case string:
		if parsed, err := time.Parse(timeLayout, v); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

// Ensure Store implements session.ResultSaver
var _ session.ResultSaver = (*Store)(nil)
