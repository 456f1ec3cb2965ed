package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"listenlab/internal/domain"
)

// ContentLoader loads listening content and its questions from Postgres.
type ContentLoader struct {
	pool *pgxpool.Pool
}

func NewContentLoader(pool *pgxpool.Pool) *ContentLoader {
	return &ContentLoader{pool: pool}
}

func (l *ContentLoader) LoadContent(ctx context.Context, contentID string) (domain.Content, error) {
	var content domain.Content
	err := l.pool.QueryRow(ctx,
		`SELECT id, name, type, COALESCE(url, ''), COALESCE(difficulty, ''),
		        COALESCE(duration, 0), COALESCE(topic, ''), COALESCE(transcript, '')
		 FROM contents WHERE id=$1`, contentID).
		Scan(&content.ID, &content.Name, &content.Type, &content.URL,
			&content.Difficulty, &content.Duration, &content.Topic, &content.Transcript)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Content{}, domain.ErrContentNotFound
	}
	if err != nil {
		return domain.Content{}, fmt.Errorf("load content: %w", err)
	}

	rows, err := l.pool.Query(ctx,
		`SELECT id, question_text, question_type, options, correct_answer,
		        COALESCE(explanation, ''), COALESCE(difficulty, ''), COALESCE(audio_timestamp, 0)
		 FROM questions WHERE content_id=$1 ORDER BY position, id`, contentID)
	if err != nil {
		return domain.Content{}, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var q domain.Question
		var rawOptions []byte
		if err := rows.Scan(&q.ID, &q.Text, &q.Type, &rawOptions, &q.CorrectAnswer,
			&q.Explanation, &q.Difficulty, &q.AudioTimestamp); err != nil {
			return domain.Content{}, fmt.Errorf("scan question: %w", err)
		}
		if len(rawOptions) > 0 {
			if err := json.Unmarshal(rawOptions, &q.Options); err != nil {
				return domain.Content{}, fmt.Errorf("unmarshal options: %w", err)
			}
		}
		content.Questions = append(content.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return domain.Content{}, fmt.Errorf("iterate questions: %w", err)
	}
	return content, nil
}
