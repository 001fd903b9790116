package domain

// StateType names the phase of a room's game.
type StateType string

const (
	StateLobby        StateType = "Lobby"
	StateQuestion     StateType = "Question"
	StateRevealAnswer StateType = "RevealAnswer"
	StateScoreboard   StateType = "Scoreboard"
	StateEnd          StateType = "End"
)

// Player is a participant in a room. The ID is stable across reconnects;
// ConnID is the current connection binding and is cleared (not deleted) on
// disconnect.
type Player struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Emoji  string `json:"emoji"`
	Score  int    `json:"score"`
	ConnID string `json:"-"`
}

// AnswerSubmission is one player's answer to one question. At most one exists
// per (player, question) pair; admission control enforces that. AnswerIndex
// and AnswerText are nil when the client omitted them.
type AnswerSubmission struct {
	PlayerID    string  `json:"playerId"`
	QuestionID  string  `json:"questionId"`
	AnswerIndex *int    `json:"answerIndex,omitempty"`
	AnswerText  *string `json:"answerText,omitempty"`
	SubmittedAt int64   `json:"submittedAt"`
}

// WrongAnswer records an incorrect submission for reveal display. Answer holds
// the raw submitted value: the option index for choice questions (-1 when
// absent) or the text for input questions ("" when absent).
type WrongAnswer struct {
	PlayerID   string `json:"playerId"`
	QuestionID string `json:"questionId"`
	Answer     any    `json:"answer"`
}

// GameState is the full mutable state of a room at a point in time. It is
// treated as a value: transitions and scoring return a new state and never
// mutate shared maps or slices in place.
type GameState struct {
	Type                 StateType          `json:"type"`
	RoomID               string             `json:"roomId"`
	Quiz                 Quiz               `json:"quiz"`
	QuizRef              string             `json:"quizRef"`
	HostConnID           string             `json:"-"`
	Players              map[string]Player  `json:"-"`
	CurrentRoundIndex    int                `json:"currentRoundIndex"`
	CurrentQuestionIndex int                `json:"currentQuestionIndex"`
	Submissions          []AnswerSubmission `json:"submissions"`
	WrongAnswers         []WrongAnswer      `json:"wrongAnswers"`
	TimerEndsAt          int64              `json:"timerEndsAt,omitempty"`
	StartedAt            int64              `json:"startedAt,omitempty"`
}

// NewGameState returns a fresh lobby state for a room.
func NewGameState(roomID string, quiz Quiz, quizRef, hostConnID string) GameState {
	return GameState{
		Type:        StateLobby,
		RoomID:      roomID,
		Quiz:        quiz,
		QuizRef:     quizRef,
		HostConnID:  hostConnID,
		Players:     make(map[string]Player),
		Submissions: []AnswerSubmission{},
	}
}

// CurrentQuestion returns the question the room is on, or false when the
// indices point past the quiz content.
func (s GameState) CurrentQuestion() (Question, bool) {
	return s.Quiz.QuestionAt(s.CurrentRoundIndex, s.CurrentQuestionIndex)
}

// HasNextQuestion reports whether the current round has a question after the
// current one.
func (s GameState) HasNextQuestion() bool {
	round, ok := s.Quiz.RoundAt(s.CurrentRoundIndex)
	if !ok {
		return false
	}
	return s.CurrentQuestionIndex < len(round.Questions)-1
}

// HasNextRound reports whether another round follows the current one.
func (s GameState) HasNextRound() bool {
	return s.CurrentRoundIndex < len(s.Quiz.Rounds)-1
}

// ClonePlayers returns a copy of the players map for copy-on-write updates.
func (s GameState) ClonePlayers() map[string]Player {
	players := make(map[string]Player, len(s.Players))
	for id, p := range s.Players {
		players[id] = p
	}
	return players
}

// SubmissionFor returns a player's submission for a question, if any.
func (s GameState) SubmissionFor(playerID, questionID string) (AnswerSubmission, bool) {
	for _, sub := range s.Submissions {
		if sub.PlayerID == playerID && sub.QuestionID == questionID {
			return sub, true
		}
	}
	return AnswerSubmission{}, false
}
