package game

import (
	"time"

	"github.com/ST4RKiLLaX/lets-go-quizzing/internal/domain"
)

// Event drives the per-room state machine. Events carry no payload; anything
// payload-shaped (submissions, registrations) mutates state outside the
// machine, before or after a transition.
type Event string

const (
	EventStartGame       Event = "START_GAME"
	EventNext            Event = "NEXT"
	EventStopTimer       Event = "STOP_TIMER"
	EventShowLeaderboard Event = "SHOW_LEADERBOARD"
	EventEndGame         Event = "END_GAME"
)

// Transition computes the next state from the current state and an event. It
// is pure and total: an event that does not apply in the current phase
// returns the input unchanged, so stale or duplicate client events are
// harmless. Callers that need scoring must run it before transitioning out of
// the Question phase; the machine itself never touches scores.
func Transition(s domain.GameState, ev Event, now time.Time) domain.GameState {
	switch s.Type {
	case domain.StateLobby:
		if ev == EventStartGame {
			s.Type = domain.StateQuestion
			s.CurrentRoundIndex = 0
			s.CurrentQuestionIndex = 0
			s.StartedAt = now.UnixMilli()
			s.TimerEndsAt = timerDeadline(s.Quiz, now)
			return s
		}
	case domain.StateQuestion:
		if ev == EventNext || ev == EventStopTimer {
			s.Type = domain.StateRevealAnswer
			s.TimerEndsAt = 0
			return s
		}
	case domain.StateRevealAnswer:
		switch ev {
		case EventNext:
			if s.HasNextQuestion() {
				s.Type = domain.StateQuestion
				s.CurrentQuestionIndex++
				s.Submissions = nil
				s.WrongAnswers = nil
				s.TimerEndsAt = timerDeadline(s.Quiz, now)
				return s
			}
			s.Type = domain.StateScoreboard
			return s
		case EventShowLeaderboard:
			s.Type = domain.StateScoreboard
			return s
		}
	case domain.StateScoreboard:
		switch ev {
		case EventNext:
			if s.HasNextRound() && !s.HasNextQuestion() {
				s.Type = domain.StateQuestion
				s.CurrentRoundIndex++
				s.CurrentQuestionIndex = 0
				s.Submissions = nil
				s.WrongAnswers = nil
				s.TimerEndsAt = timerDeadline(s.Quiz, now)
				return s
			}
			if !s.HasNextRound() && !s.HasNextQuestion() {
				s.Type = domain.StateEnd
				return s
			}
		case EventEndGame:
			s.Type = domain.StateEnd
			return s
		}
	}
	return s
}

// timerDeadline returns the advisory countdown deadline in unix millis, or 0
// when the quiz has no default timer. The server never enforces it; clients
// display it and the host decides when to stop.
func timerDeadline(quiz domain.Quiz, now time.Time) int64 {
	if quiz.Meta.DefaultTimer <= 0 {
		return 0
	}
	return now.Add(time.Duration(quiz.Meta.DefaultTimer) * time.Second).UnixMilli()
}
