package memory

import (
	"context"
	"sync"

	"listenlab/internal/domain"
)

// Recorder collects answer and session records in memory (tests/demos).
type Recorder struct {
	mu       sync.Mutex
	answers  []domain.SubmittedAnswer
	sessions []domain.SessionRecord
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) RecordAnswer(_ context.Context, answer domain.SubmittedAnswer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answers = append(r.answers, answer)
	return nil
}

func (r *Recorder) RecordSession(_ context.Context, record domain.SessionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, record)
	return nil
}

func (r *Recorder) Answers() []domain.SubmittedAnswer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.SubmittedAnswer(nil), r.answers...)
}

func (r *Recorder) Sessions() []domain.SessionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.SessionRecord(nil), r.sessions...)
}
