package scoring

import (
	"context"
	"sort"
	"strings"

	"listenlab/internal/domain"
)

// Grade compares a submitted answer against the stored correct answer.
// A comma in the correct answer marks a multi-answer question: both sides
// are split, trimmed, and compared as sorted sets. Single answers compare
// trimmed and case-insensitive.
func Grade(correctAnswer, answer string) bool {
	if strings.Contains(correctAnswer, ",") {
		return equalAnswerSets(correctAnswer, answer)
	}
	return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(correctAnswer))
}

func equalAnswerSets(correctAnswer, answer string) bool {
	want := splitSorted(correctAnswer)
	got := splitSorted(answer)
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if want[i] != got[i] {
			return false
		}
	}
	return true
}

func splitSorted(csv string) []string {
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	sort.Strings(out)
	return out
}

// LocalScorer grades against the session's own question set, without a
// network round trip. It is the default collaborator when no remote scoring
// endpoint is configured.
type LocalScorer struct {
	questions map[string]domain.Question
}

func NewLocalScorer(questions []domain.Question) *LocalScorer {
	byID := make(map[string]domain.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	return &LocalScorer{questions: byID}
}

func (s *LocalScorer) Grade(_ context.Context, req domain.GradeRequest) (domain.GradeResult, error) {
	q, ok := s.questions[req.QuestionID]
	if !ok {
		return domain.GradeResult{}, domain.ErrQuestionNotFound
	}
	return domain.GradeResult{
		Correct:       Grade(q.CorrectAnswer, req.Answer),
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   q.Explanation,
	}, nil
}

// QuestionType looks up the type of a question for reporting.
func (s *LocalScorer) QuestionType(questionID string) string {
	if q, ok := s.questions[questionID]; ok {
		return q.Type
	}
	return ""
}
