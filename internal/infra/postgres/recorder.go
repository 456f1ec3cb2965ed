package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"listenlab/internal/domain"
)

// Recorder persists graded answers and session summaries to Postgres.
type Recorder struct {
	pool *pgxpool.Pool
}

func NewRecorder(pool *pgxpool.Pool) *Recorder {
	return &Recorder{pool: pool}
}

func (r *Recorder) RecordAnswer(ctx context.Context, answer domain.SubmittedAnswer) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO answers (session_id, question_id, question_type, user_answer, is_correct, time_taken, answered_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		answer.SessionID, answer.QuestionID, answer.QuestionType,
		answer.UserAnswer, answer.Correct, answer.TimeTaken, answer.AnsweredAt)
	if err != nil {
		return fmt.Errorf("record answer: %w", err)
	}
	return nil
}

func (r *Recorder) RecordSession(ctx context.Context, record domain.SessionRecord) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO practice_sessions (id, content_id, started_at, completed_at, total_questions, correct_answers, score_percentage, time_spent)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET
		   completed_at=EXCLUDED.completed_at,
		   correct_answers=EXCLUDED.correct_answers,
		   score_percentage=EXCLUDED.score_percentage,
		   time_spent=EXCLUDED.time_spent`,
		record.SessionID, record.ContentID, record.StartedAt, record.CompletedAt,
		record.TotalQuestions, record.CorrectAnswers, record.ScorePercentage, record.TimeSpent)
	if err != nil {
		return fmt.Errorf("record session: %w", err)
	}
	return nil
}
