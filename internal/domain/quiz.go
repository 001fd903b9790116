package domain

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ScoringMode selects how points are allocated for correct answers.
type ScoringMode string

const (
	// ScoringStandard awards a fixed number of points per correct answer.
	ScoringStandard ScoringMode = "standard"
	// ScoringRanked awards points scaled by arrival order among correct answers.
	ScoringRanked ScoringMode = "ranked"
)

// QuestionType discriminates the question union.
type QuestionType string

const (
	QuestionChoice QuestionType = "choice"
	QuestionInput  QuestionType = "input"
)

// QuizMeta holds quiz-wide settings. Zero values mean "unset" and defer to
// the scoring engine's defaults.
type QuizMeta struct {
	Name             string      `yaml:"name" json:"name"`
	Author           string      `yaml:"author,omitempty" json:"author,omitempty"`
	DefaultTimer     int         `yaml:"default_timer,omitempty" json:"default_timer,omitempty"`
	FuzzyThreshold   float64     `yaml:"fuzzy_threshold,omitempty" json:"fuzzy_threshold,omitempty"`
	ScoringMode      ScoringMode `yaml:"scoring_mode,omitempty" json:"scoring_mode,omitempty"`
	OptionLabelStyle string      `yaml:"option_label_style,omitempty" json:"option_label_style,omitempty"`
	RankedMaxPoints  int         `yaml:"ranked_max_points,omitempty" json:"ranked_max_points,omitempty"`
	RankedMinPoints  int         `yaml:"ranked_min_points,omitempty" json:"ranked_min_points,omitempty"`
}

// Question is a tagged union: a multiple-choice question carries Options and
// the correct Answer index; an input question carries the Accepted strings.
type Question struct {
	ID          string       `json:"id"`
	Type        QuestionType `json:"type"`
	Text        string       `json:"text"`
	Explanation string       `json:"explanation,omitempty"`
	Image       string       `json:"image,omitempty"`

	// Choice questions only.
	Options []string `json:"options,omitempty"`
	Answer  int      `json:"-"`

	// Input questions only.
	Accepted []string `json:"-"`
}

// Round is a named, ordered group of questions.
type Round struct {
	Name      string     `yaml:"name" json:"name"`
	Questions []Question `yaml:"questions" json:"questions"`
}

// Quiz is the immutable in-memory representation of a quiz document. The game
// engine only ever reads it.
type Quiz struct {
	Meta   QuizMeta `yaml:"meta" json:"meta"`
	Rounds []Round  `yaml:"rounds" json:"rounds"`
}

// RoundAt returns the round at index i, or false when out of bounds.
func (q Quiz) RoundAt(i int) (Round, bool) {
	if i < 0 || i >= len(q.Rounds) {
		return Round{}, false
	}
	return q.Rounds[i], true
}

// QuestionAt returns the question at round i, position j, or false when
// either index is out of bounds. Traversal code relies on this instead of
// length bookkeeping.
func (q Quiz) QuestionAt(i, j int) (Question, bool) {
	round, ok := q.RoundAt(i)
	if !ok {
		return Question{}, false
	}
	if j < 0 || j >= len(round.Questions) {
		return Question{}, false
	}
	return round.Questions[j], true
}

// Validate checks structural invariants after loading.
func (q Quiz) Validate() error {
	if q.Meta.Name == "" {
		return fmt.Errorf("%w: quiz name required", ErrQuizInvalid)
	}
	if q.Meta.FuzzyThreshold < 0 || q.Meta.FuzzyThreshold > 1 {
		return fmt.Errorf("%w: fuzzy_threshold must be within [0,1]", ErrQuizInvalid)
	}
	switch q.Meta.ScoringMode {
	case "", ScoringStandard, ScoringRanked:
	default:
		return fmt.Errorf("%w: unknown scoring_mode %q", ErrQuizInvalid, q.Meta.ScoringMode)
	}
	for ri, round := range q.Rounds {
		for qi, question := range round.Questions {
			if err := question.validate(); err != nil {
				return fmt.Errorf("round %d question %d: %w", ri, qi, err)
			}
		}
	}
	return nil
}

func (q Question) validate() error {
	if q.ID == "" {
		return fmt.Errorf("%w: question id required", ErrQuizInvalid)
	}
	switch q.Type {
	case QuestionChoice:
		if len(q.Options) == 0 {
			return fmt.Errorf("%w: choice question needs options", ErrQuizInvalid)
		}
		if q.Answer < 0 || q.Answer >= len(q.Options) {
			return fmt.Errorf("%w: choice answer index out of range", ErrQuizInvalid)
		}
	case QuestionInput:
		if len(q.Accepted) == 0 {
			return fmt.Errorf("%w: input question needs at least one accepted answer", ErrQuizInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown question type %q", ErrQuizInvalid, q.Type)
	}
	return nil
}

// rawQuestion is the on-disk shape: "answer" is an option index for choice
// questions and a string or list of strings for input questions.
type rawQuestion struct {
	ID          string       `yaml:"id" json:"id"`
	Type        QuestionType `yaml:"type" json:"type"`
	Text        string       `yaml:"text" json:"text"`
	Explanation string       `yaml:"explanation,omitempty" json:"explanation,omitempty"`
	Image       string       `yaml:"image,omitempty" json:"image,omitempty"`
	Options     []string     `yaml:"options,omitempty" json:"options,omitempty"`
}

func (q *Question) UnmarshalYAML(node *yaml.Node) error {
	var raw rawQuestion
	if err := node.Decode(&raw); err != nil {
		return err
	}
	var answer struct {
		Answer yaml.Node `yaml:"answer"`
	}
	if err := node.Decode(&answer); err != nil {
		return err
	}
	q.fromRaw(raw)
	switch raw.Type {
	case QuestionInput:
		accepted, err := decodeAccepted(&answer.Answer)
		if err != nil {
			return err
		}
		q.Accepted = accepted
	default:
		// Decode the index for anything else; validation rejects unknown types.
		if !answer.Answer.IsZero() {
			if err := answer.Answer.Decode(&q.Answer); err != nil {
				return fmt.Errorf("choice answer must be an option index: %w", err)
			}
		}
	}
	return nil
}

func decodeAccepted(node *yaml.Node) ([]string, error) {
	if node.IsZero() {
		return nil, nil
	}
	var single string
	if err := node.Decode(&single); err == nil {
		return []string{single}, nil
	}
	var many []string
	if err := node.Decode(&many); err != nil {
		return nil, fmt.Errorf("input answer must be a string or list of strings: %w", err)
	}
	return many, nil
}

func (q *Question) fromRaw(raw rawQuestion) {
	q.ID = raw.ID
	q.Type = raw.Type
	q.Text = raw.Text
	q.Explanation = raw.Explanation
	q.Image = raw.Image
	q.Options = raw.Options
}

func (q Question) MarshalJSON() ([]byte, error) {
	type alias struct {
		rawQuestion
		Answer any `json:"answer"`
	}
	out := alias{rawQuestion: rawQuestion{
		ID:          q.ID,
		Type:        q.Type,
		Text:        q.Text,
		Explanation: q.Explanation,
		Image:       q.Image,
		Options:     q.Options,
	}}
	if q.Type == QuestionInput {
		out.Answer = q.Accepted
	} else {
		out.Answer = q.Answer
	}
	return json.Marshal(out)
}

func (q *Question) UnmarshalJSON(data []byte) error {
	var raw rawQuestion
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var answer struct {
		Answer json.RawMessage `json:"answer"`
	}
	if err := json.Unmarshal(data, &answer); err != nil {
		return err
	}
	q.fromRaw(raw)
	if len(answer.Answer) == 0 {
		return nil
	}
	switch raw.Type {
	case QuestionInput:
		var single string
		if err := json.Unmarshal(answer.Answer, &single); err == nil {
			q.Accepted = []string{single}
			return nil
		}
		var many []string
		if err := json.Unmarshal(answer.Answer, &many); err != nil {
			return fmt.Errorf("input answer must be a string or list of strings: %w", err)
		}
		q.Accepted = many
	default:
		if err := json.Unmarshal(answer.Answer, &q.Answer); err != nil {
			return fmt.Errorf("choice answer must be an option index: %w", err)
		}
	}
	return nil
}
