package domain

import (
	"encoding/json"
	"testing"
)

func TestQuestionJSONUnion(t *testing.T) {
	choice := Question{
		ID:      "q1",
		Type:    QuestionChoice,
		Text:    "pick",
		Options: []string{"a", "b"},
		Answer:  1,
	}
	data, err := json.Marshal(choice)
	if err != nil {
		t.Fatalf("marshal choice: %v", err)
	}
	var gotChoice Question
	if err := json.Unmarshal(data, &gotChoice); err != nil {
		t.Fatalf("unmarshal choice: %v", err)
	}
	if gotChoice.Answer != 1 || len(gotChoice.Accepted) != 0 {
		t.Fatalf("choice round trip lost the answer index: %+v", gotChoice)
	}

	input := Question{
		ID:       "q2",
		Type:     QuestionInput,
		Text:     "type",
		Accepted: []string{"Paris", "paris"},
	}
	data, err = json.Marshal(input)
	if err != nil {
		t.Fatalf("marshal input: %v", err)
	}
	var gotInput Question
	if err := json.Unmarshal(data, &gotInput); err != nil {
		t.Fatalf("unmarshal input: %v", err)
	}
	if len(gotInput.Accepted) != 2 || gotInput.Accepted[0] != "Paris" {
		t.Fatalf("input round trip lost accepted answers: %+v", gotInput)
	}

	// A bare string answer is accepted too.
	var single Question
	if err := json.Unmarshal([]byte(`{"id":"q3","type":"input","text":"t","answer":"Madrid"}`), &single); err != nil {
		t.Fatalf("unmarshal single-string answer: %v", err)
	}
	if len(single.Accepted) != 1 || single.Accepted[0] != "Madrid" {
		t.Fatalf("single-string answer mishandled: %+v", single)
	}
}

func TestQuestionJSONRejectsWrongAnswerShape(t *testing.T) {
	var q Question
	if err := json.Unmarshal([]byte(`{"id":"q1","type":"choice","text":"t","options":["a"],"answer":"one"}`), &q); err == nil {
		t.Fatalf("expected error for string answer on choice question")
	}
	if err := json.Unmarshal([]byte(`{"id":"q2","type":"input","text":"t","answer":7}`), &q); err == nil {
		t.Fatalf("expected error for numeric answer on input question")
	}
}
