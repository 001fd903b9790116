package game

import (
	"math"
	"sort"
	"strings"

	"github.com/ST4RKiLLaX/lets-go-quizzing/internal/domain"
)

const (
	defaultFuzzyThreshold = 0.85
	defaultBasePoints     = 1
	defaultRankedMax      = 100
	defaultRankedMin      = 10
)

// Score settles the current question: it walks the accumulated submissions,
// awards points to correct players per the quiz's scoring mode, and rebuilds
// WrongAnswers for reveal display. Submissions carrying a different question
// id are ignored, so a player cannot collect twice on one question by
// submitting under two ids. It is pure; the caller stores the returned
// state. It is NOT idempotent (scores are additive), so it must run exactly
// once per question, at the moment the room leaves the Question phase.
func Score(s domain.GameState) domain.GameState {
	question, ok := s.CurrentQuestion()
	if !ok {
		return s
	}

	threshold := s.Quiz.Meta.FuzzyThreshold
	if threshold == 0 {
		threshold = defaultFuzzyThreshold
	}

	players := s.ClonePlayers()
	wrong := []domain.WrongAnswer{}

	if s.Quiz.Meta.ScoringMode == domain.ScoringRanked {
		awardRanked(s, question, threshold, players)
	} else {
		for _, sub := range s.Submissions {
			if sub.QuestionID != question.ID {
				continue
			}
			player, ok := players[sub.PlayerID]
			if !ok {
				continue
			}
			if isCorrect(question, sub, threshold) {
				player.Score += defaultBasePoints
				players[sub.PlayerID] = player
			}
		}
	}

	for _, sub := range s.Submissions {
		if sub.QuestionID != question.ID {
			continue
		}
		if _, ok := players[sub.PlayerID]; !ok {
			continue
		}
		if !isCorrect(question, sub, threshold) {
			wrong = append(wrong, domain.WrongAnswer{
				PlayerID:   sub.PlayerID,
				QuestionID: question.ID,
				Answer:     rawAnswer(question, sub),
			})
		}
	}

	s.Players = players
	s.WrongAnswers = wrong
	return s
}

// awardRanked orders correct submissions by arrival time and interpolates
// points linearly from max to min across ranks. Rank advances only when the
// timestamp changes, so simultaneous submissions share a rank and its points.
func awardRanked(s domain.GameState, question domain.Question, threshold float64, players map[string]domain.Player) {
	maxPts := s.Quiz.Meta.RankedMaxPoints
	if maxPts == 0 {
		maxPts = defaultRankedMax
	}
	minPts := s.Quiz.Meta.RankedMinPoints
	if minPts == 0 {
		minPts = defaultRankedMin
	}

	correct := make([]domain.AnswerSubmission, 0, len(s.Submissions))
	for _, sub := range s.Submissions {
		if sub.QuestionID != question.ID {
			continue
		}
		if _, ok := players[sub.PlayerID]; !ok {
			continue
		}
		if isCorrect(question, sub, threshold) {
			correct = append(correct, sub)
		}
	}
	sort.SliceStable(correct, func(i, j int) bool {
		return correct[i].SubmittedAt < correct[j].SubmittedAt
	})

	rank := 1
	prev := int64(-1)
	for i, sub := range correct {
		if sub.SubmittedAt != prev {
			rank = i + 1
			prev = sub.SubmittedAt
		}
		pts := maxPts
		if len(correct) > 1 {
			pts = int(math.Round(float64(maxPts) - float64(rank-1)*float64(maxPts-minPts)/float64(len(correct)-1)))
		}
		player := players[sub.PlayerID]
		player.Score += pts
		players[sub.PlayerID] = player
	}
}

func isCorrect(question domain.Question, sub domain.AnswerSubmission, threshold float64) bool {
	if question.Type == domain.QuestionChoice {
		return sub.AnswerIndex != nil && *sub.AnswerIndex == question.Answer
	}
	if sub.AnswerText == nil {
		return false
	}
	normalized := normalize(*sub.AnswerText)
	for _, accepted := range question.Accepted {
		target := normalize(accepted)
		if normalized == target {
			return true
		}
		if Similarity(normalized, target) >= threshold {
			return true
		}
	}
	return false
}

// rawAnswer extracts the submitted value for wrong-answer display: the option
// index (-1 when absent) or the submitted text ("" when absent).
func rawAnswer(question domain.Question, sub domain.AnswerSubmission) any {
	if question.Type == domain.QuestionChoice {
		if sub.AnswerIndex == nil {
			return -1
		}
		return *sub.AnswerIndex
	}
	if sub.AnswerText == nil {
		return ""
	}
	return *sub.AnswerText
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
