package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmkor/tui-sets/internal/session"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleResult(id, variant string, playedAt time.Time, scores []int) session.Result {
	names := make([]string, len(scores))
	for i := range names {
		names[i] = fmt.Sprintf("Seat %d", i+1)
	}
	best := 0
	for _, s := range scores {
		if s > best {
			best = s
		}
	}
	var winners []int
	for i, s := range scores {
		if s == best {
			winners = append(winners, i)
		}
	}
	return session.Result{
		ID:       id,
		Variant:  variant,
		Names:    names,
		Scores:   scores,
		Winners:  winners,
		Duration: 90 * time.Second,
		PlayedAt: playedAt,
	}
}

func TestStoreOpenClose(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "deep", "test.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer store.Close()

	// Check that the file and nested directories were created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestStoreSaveAndRetrieve(t *testing.T) {
	store := openTestStore(t)
	playedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	err := store.SaveResult(sampleResult("m1", "classic", playedAt, []int{5, 9, 2}))
	if err != nil {
		t.Fatalf("SaveResult() failed: %v", err)
	}
	err = store.SaveResult(sampleResult("m2", "mini", playedAt, []int{4}))
	if err != nil {
		t.Fatalf("SaveResult() failed: %v", err)
	}

	scores, err := store.TopScores("classic", 10)
	if err != nil {
		t.Fatalf("TopScores() failed: %v", err)
	}
	if len(scores) != 3 {
		t.Fatalf("Expected 3 classic score lines, got %d", len(scores))
	}

	// Should be sorted descending
	if scores[0].Score != 9 || scores[1].Score != 5 || scores[2].Score != 2 {
		t.Errorf("Scores not in expected order: %v", scores)
	}
	if scores[0].Name != "Seat 2" {
		t.Errorf("Expected best line from Seat 2, got %q", scores[0].Name)
	}
	if !scores[0].Winner {
		t.Error("Best line should carry the winner flag")
	}
	if scores[1].Winner {
		t.Error("Losing line should not carry the winner flag")
	}
	if !scores[0].CreatedAt.Equal(playedAt) {
		t.Errorf("Expected created_at %v, got %v", playedAt, scores[0].CreatedAt)
	}

	miniScores, err := store.TopScores("mini", 10)
	if err != nil {
		t.Fatalf("TopScores() failed: %v", err)
	}
	if len(miniScores) != 1 {
		t.Errorf("Expected 1 mini score line, got %d", len(miniScores))
	}
}

func TestStoreTopScoresLimit(t *testing.T) {
	store := openTestStore(t)
	playedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	err := store.SaveResult(sampleResult("m1", "classic", playedAt, []int{100, 200, 300, 400, 500}))
	if err != nil {
		t.Fatalf("SaveResult() failed: %v", err)
	}

	scores, err := store.TopScores("classic", 3)
	if err != nil {
		t.Fatalf("TopScores() failed: %v", err)
	}
	if len(scores) != 3 {
		t.Fatalf("Expected 3 score lines with limit, got %d", len(scores))
	}
	if scores[0].Score != 500 || scores[1].Score != 400 || scores[2].Score != 300 {
		t.Errorf("Scores not in expected order: %v", scores)
	}
}

func TestStoreAssignsMatchID(t *testing.T) {
	store := openTestStore(t)
	playedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	err := store.SaveResult(sampleResult("", "classic", playedAt, []int{1, 2}))
	if err != nil {
		t.Fatalf("SaveResult() failed: %v", err)
	}

	records, err := store.RecentMatches(1)
	if err != nil {
		t.Fatalf("RecentMatches() failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 match, got %d", len(records))
	}
	if records[0].ID == "" {
		t.Error("Expected a generated match ID for an empty result ID")
	}
}

func TestStoreRecentMatchesOrder(t *testing.T) {
	store := openTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"m-old", "m-mid", "m-new"} {
		res := sampleResult(id, "classic", base.Add(time.Duration(i)*time.Hour), []int{3 + i, 1})
		if err := store.SaveResult(res); err != nil {
			t.Fatalf("SaveResult(%s) failed: %v", id, err)
		}
	}

	records, err := store.RecentMatches(2)
	if err != nil {
		t.Fatalf("RecentMatches() failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 matches, got %d", len(records))
	}
	if records[0].ID != "m-new" || records[1].ID != "m-mid" {
		t.Errorf("Matches not newest first: %s, %s", records[0].ID, records[1].ID)
	}

	newest := records[0]
	if newest.Players != 2 || len(newest.Scores) != 2 {
		t.Fatalf("Expected 2 score lines, got %+v", newest)
	}
	if newest.Scores[0].Player != 0 || newest.Scores[1].Player != 1 {
		t.Errorf("Score lines not in seat order: %+v", newest.Scores)
	}
	if newest.Scores[0].Score != 5 || !newest.Scores[0].Winner {
		t.Errorf("Unexpected winning line: %+v", newest.Scores[0])
	}
	if newest.Duration != 90*time.Second {
		t.Errorf("Expected duration 90s, got %v", newest.Duration)
	}
}

func TestStoreMatchByID(t *testing.T) {
	store := openTestStore(t)
	playedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := store.SaveResult(sampleResult("m1", "mini", playedAt, []int{7, 7})); err != nil {
		t.Fatalf("SaveResult() failed: %v", err)
	}

	rec, err := store.MatchByID("m1")
	if err != nil {
		t.Fatalf("MatchByID() failed: %v", err)
	}
	if rec == nil {
		t.Fatal("Expected a match record")
	}
	if rec.Variant != "mini" || len(rec.Scores) != 2 {
		t.Errorf("Unexpected record: %+v", rec)
	}
	// Tied top scores are both winners
	if !rec.Scores[0].Winner || !rec.Scores[1].Winner {
		t.Errorf("Expected both lines flagged winners: %+v", rec.Scores)
	}

	missing, err := store.MatchByID("nope")
	if err != nil {
		t.Fatalf("MatchByID() failed: %v", err)
	}
	if missing != nil {
		t.Errorf("Expected nil for a missing match, got %+v", missing)
	}
}

func TestStoreStats(t *testing.T) {
	store := openTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	stats, err := store.Stats("classic")
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	if stats.Matches != 0 || stats.BestScore != 0 {
		t.Errorf("Expected empty stats, got %+v", stats)
	}

	if err := store.SaveResult(sampleResult("m1", "classic", base, []int{1, 3})); err != nil {
		t.Fatalf("SaveResult() failed: %v", err)
	}
	if err := store.SaveResult(sampleResult("m2", "classic", base.Add(time.Hour), []int{5, 7})); err != nil {
		t.Fatalf("SaveResult() failed: %v", err)
	}

	stats, err = store.Stats("classic")
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	if stats.Matches != 2 {
		t.Errorf("Expected 2 matches, got %d", stats.Matches)
	}
	if stats.BestScore != 7 {
		t.Errorf("Expected best score 7, got %d", stats.BestScore)
	}
	if stats.AvgScore < 3.99 || stats.AvgScore > 4.01 {
		t.Errorf("Expected average 4, got %v", stats.AvgScore)
	}
	if !stats.LastPlayed.Equal(base.Add(time.Hour)) {
		t.Errorf("Expected last played %v, got %v", base.Add(time.Hour), stats.LastPlayed)
	}
}
