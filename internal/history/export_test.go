package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ST4RKiLLaX/lets-go-quizzing/internal/domain"
)

func TestExportWritesSortedStandings(t *testing.T) {
	dir := t.TempDir()
	exp := NewExporter(dir)

	now := time.Date(2026, 9, 1, 20, 30, 0, 0, time.UTC)
	exp.clock = func() time.Time { return now }

	state := domain.NewGameState("ROOM42", domain.Quiz{Meta: domain.QuizMeta{Name: "Pub Quiz"}}, "pub.yaml", "host")
	state.StartedAt = 1000
	state.Players = map[string]domain.Player{
		"a": {ID: "a", Name: "Alice", Emoji: "🦊", Score: 3},
		"b": {ID: "b", Name: "Bob", Emoji: "🐻", Score: 5},
		"c": {ID: "c", Name: "Carol", Emoji: "🐱", Score: 3},
	}

	exp.Export(state)

	path := filepath.Join(dir, "history", "2026-09-01_game_ROOM42.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}

	var rec struct {
		RoomID    string `json:"roomId"`
		QuizName  string `json:"quizName"`
		StartedAt int64  `json:"startedAt"`
		EndedAt   int64  `json:"endedAt"`
		Players   []struct {
			Name  string `json:"name"`
			Score int    `json:"score"`
		} `json:"players"`
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("unmarshal export: %v", err)
	}

	if rec.RoomID != "ROOM42" || rec.QuizName != "Pub Quiz" {
		t.Fatalf("unexpected header: %+v", rec)
	}
	if rec.StartedAt != 1000 || rec.EndedAt != now.UnixMilli() {
		t.Fatalf("unexpected timestamps: started=%d ended=%d", rec.StartedAt, rec.EndedAt)
	}
	if len(rec.Players) != 3 {
		t.Fatalf("expected 3 players, got %d", len(rec.Players))
	}
	// Score descending, ties broken by name.
	if rec.Players[0].Name != "Bob" || rec.Players[1].Name != "Alice" || rec.Players[2].Name != "Carol" {
		t.Fatalf("unexpected order: %+v", rec.Players)
	}
}

func TestExportSurvivesWriteFailure(t *testing.T) {
	// Point the exporter at a path that cannot become a directory.
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocked")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	exp := NewExporter(blocker)
	state := domain.NewGameState("ROOM42", domain.Quiz{}, "q.yaml", "host")

	// Must not panic; the failure is logged and dropped.
	exp.Export(state)
}
