package domain

// QuestionState is the navigation marker for one question within a session.
type QuestionState string

const (
	QuestionUnanswered QuestionState = "unanswered"
	QuestionCorrect    QuestionState = "answered-correct"
	QuestionIncorrect  QuestionState = "answered-incorrect"
)

// Graded reports whether the state is terminal. Terminal marks are one-way:
// a question never returns to unanswered within the session's lifetime.
func (s QuestionState) Graded() bool {
	return s == QuestionCorrect || s == QuestionIncorrect
}

// NextQuestionState applies one grading outcome to a question marker.
// A terminal mark absorbs all later transitions, including a later correct
// grade on a question already marked incorrect.
func NextQuestionState(current QuestionState, correct bool) QuestionState {
	if current.Graded() {
		return current
	}
	if correct {
		return QuestionCorrect
	}
	return QuestionIncorrect
}
