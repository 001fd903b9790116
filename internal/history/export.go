// Package history writes end-of-game records to disk. The export is
// best-effort: a room that ends while the disk is full loses its record and
// nothing else.
package history

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ST4RKiLLaX/lets-go-quizzing/internal/domain"
)

// Exporter writes one JSON file per finished game under dir/history.
type Exporter struct {
	dir   string
	clock func() time.Time
}

// NewExporter builds an exporter rooted at dataDir (typically "data").
func NewExporter(dataDir string) *Exporter {
	return &Exporter{dir: filepath.Join(dataDir, "history"), clock: time.Now}
}

type record struct {
	RoomID    string         `json:"roomId"`
	QuizName  string         `json:"quizName"`
	StartedAt int64          `json:"startedAt,omitempty"`
	EndedAt   int64          `json:"endedAt"`
	Players   []playerRecord `json:"players"`
}

type playerRecord struct {
	Name  string `json:"name"`
	Emoji string `json:"emoji"`
	Score int    `json:"score"`
}

// Export persists the final standings of a room. Errors are logged, never
// returned: history must not interfere with game flow.
func (e *Exporter) Export(state domain.GameState) {
	if err := e.write(state); err != nil {
		log.Printf("history: export for room %s failed: %v", state.RoomID, err)
	}
}

func (e *Exporter) write(state domain.GameState) error {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}

	now := e.clock()
	players := make([]playerRecord, 0, len(state.Players))
	for _, p := range state.Players {
		players = append(players, playerRecord{Name: p.Name, Emoji: p.Emoji, Score: p.Score})
	}
	sort.Slice(players, func(i, j int) bool {
		if players[i].Score != players[j].Score {
			return players[i].Score > players[j].Score
		}
		return players[i].Name < players[j].Name
	})

	rec := record{
		RoomID:    state.RoomID,
		QuizName:  state.Quiz.Meta.Name,
		StartedAt: state.StartedAt,
		EndedAt:   now.UnixMilli(),
		Players:   players,
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	name := fmt.Sprintf("%s_game_%s.json", now.Format("2006-01-02"), state.RoomID)
	if err := os.WriteFile(filepath.Join(e.dir, name), data, 0o644); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}
