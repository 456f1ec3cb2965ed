package domain

import "testing"

func TestNextQuestionState(t *testing.T) {
	cases := []struct {
		name    string
		current QuestionState
		correct bool
		want    QuestionState
	}{
		{"unanswered correct", QuestionUnanswered, true, QuestionCorrect},
		{"unanswered incorrect", QuestionUnanswered, false, QuestionIncorrect},
		{"correct stays correct", QuestionCorrect, false, QuestionCorrect},
		{"incorrect stays incorrect", QuestionIncorrect, true, QuestionIncorrect},
		{"zero value treated as unanswered", "", true, QuestionCorrect},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NextQuestionState(tc.current, tc.correct); got != tc.want {
				t.Fatalf("NextQuestionState(%q, %v) = %q, want %q", tc.current, tc.correct, got, tc.want)
			}
		})
	}
}

func TestGraded(t *testing.T) {
	if QuestionUnanswered.Graded() {
		t.Fatal("unanswered must not be graded")
	}
	if !QuestionCorrect.Graded() || !QuestionIncorrect.Graded() {
		t.Fatal("answered states must be graded")
	}
}
