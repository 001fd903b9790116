package app

import (
	"sort"

	"github.com/ST4RKiLLaX/lets-go-quizzing/internal/domain"
)

// PlayerView is the wire shape of a player inside a snapshot.
type PlayerView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Emoji string `json:"emoji"`
	Score int    `json:"score"`
}

// StateSnapshot is the serialized form of a room's state sent to clients.
// The players map is flattened to an ordered list, best score first.
type StateSnapshot struct {
	Type                 domain.StateType          `json:"type"`
	RoomID               string                    `json:"roomId"`
	Quiz                 domain.Quiz               `json:"quiz"`
	QuizRef              string                    `json:"quizRef"`
	Players              []PlayerView              `json:"players"`
	CurrentRoundIndex    int                       `json:"currentRoundIndex"`
	CurrentQuestionIndex int                       `json:"currentQuestionIndex"`
	Submissions          []domain.AnswerSubmission `json:"submissions"`
	WrongAnswers         []domain.WrongAnswer      `json:"wrongAnswers"`
	TimerEndsAt          int64                     `json:"timerEndsAt,omitempty"`
	StartedAt            int64                     `json:"startedAt,omitempty"`
}

// Snapshot flattens a game state for broadcast.
func Snapshot(s domain.GameState) StateSnapshot {
	players := make([]PlayerView, 0, len(s.Players))
	for _, p := range s.Players {
		players = append(players, PlayerView{ID: p.ID, Name: p.Name, Emoji: p.Emoji, Score: p.Score})
	}
	sort.Slice(players, func(i, j int) bool {
		if players[i].Score != players[j].Score {
			return players[i].Score > players[j].Score
		}
		if players[i].Name != players[j].Name {
			return players[i].Name < players[j].Name
		}
		return players[i].ID < players[j].ID
	})

	submissions := s.Submissions
	if submissions == nil {
		submissions = []domain.AnswerSubmission{}
	}
	wrong := s.WrongAnswers
	if wrong == nil {
		wrong = []domain.WrongAnswer{}
	}

	return StateSnapshot{
		Type:                 s.Type,
		RoomID:               s.RoomID,
		Quiz:                 s.Quiz,
		QuizRef:              s.QuizRef,
		Players:              players,
		CurrentRoundIndex:    s.CurrentRoundIndex,
		CurrentQuestionIndex: s.CurrentQuestionIndex,
		Submissions:          submissions,
		WrongAnswers:         wrong,
		TimerEndsAt:          s.TimerEndsAt,
		StartedAt:            s.StartedAt,
	}
}
